// Copyright 2024 go-oras Authors All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//    http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package transport

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/oras-community/go-oras/pkg/errdef"
)

func respond(t *testing.T, status int, body string) *http.Response {
	t.Helper()
	rec := httptest.NewRecorder()
	rec.WriteHeader(status)
	rec.WriteString(body)
	resp := rec.Result()
	req := httptest.NewRequest(http.MethodGet, "https://registry.example.com/v2/foo/manifests/latest", nil)
	resp.Request = req
	return resp
}

func TestCheckErrorAccepted(t *testing.T) {
	resp := respond(t, http.StatusAccepted, "")
	if err := CheckError(resp, http.StatusOK, http.StatusAccepted); err != nil {
		t.Errorf("CheckError = %v, want nil", err)
	}
}

func TestCheckErrorStructured(t *testing.T) {
	resp := respond(t, http.StatusNotFound,
		`{"errors":[{"code":"MANIFEST_UNKNOWN","message":"manifest unknown","detail":{"Tag":"latest"}}]}`)
	err := CheckError(resp, http.StatusOK)
	if err == nil {
		t.Fatal("CheckError = nil, want error")
	}

	terr, ok := err.(*Error)
	if !ok {
		t.Fatalf("CheckError returned %T, want *Error", err)
	}
	if terr.StatusCode != http.StatusNotFound {
		t.Errorf("StatusCode = %d, want 404", terr.StatusCode)
	}
	if len(terr.Errors) != 1 || terr.Errors[0].Code != ManifestUnknownErrorCode {
		t.Errorf("Errors = %+v", terr.Errors)
	}
	if !strings.Contains(terr.Error(), "manifest unknown") {
		t.Errorf("Error() = %q", terr.Error())
	}
	if !errdef.IsKind(err, errdef.KindNotFound) {
		t.Errorf("IsKind(%v, not found) = false", err)
	}
}

func TestCheckErrorRawBody(t *testing.T) {
	resp := respond(t, http.StatusBadRequest, "not json at all")
	err := CheckError(resp, http.StatusOK)
	if err == nil {
		t.Fatal("CheckError = nil, want error")
	}
	if !strings.Contains(err.Error(), "not json at all") {
		t.Errorf("Error() = %q, want raw body included", err.Error())
	}
	if !errdef.IsKind(err, errdef.KindBadRequest) {
		t.Errorf("IsKind(%v, bad request) = false", err)
	}
}

func TestErrorTemporary(t *testing.T) {
	for _, tc := range []struct {
		status int
		want   bool
	}{
		{http.StatusInternalServerError, true},
		{http.StatusServiceUnavailable, true},
		{http.StatusTooManyRequests, true},
		{http.StatusNotFound, false},
		{http.StatusUnauthorized, false},
	} {
		e := &Error{StatusCode: tc.status}
		if got := e.Temporary(); got != tc.want {
			t.Errorf("Temporary(%d) = %v, want %v", tc.status, got, tc.want)
		}
	}
}

func TestErrorKindAuth(t *testing.T) {
	for _, status := range []int{http.StatusUnauthorized, http.StatusForbidden} {
		e := &Error{StatusCode: status}
		if e.ErrorKind() != errdef.KindAuth {
			t.Errorf("ErrorKind(%d) = %v, want auth", status, e.ErrorKind())
		}
	}
	if e := (&Error{StatusCode: http.StatusBadGateway}); e.ErrorKind() != errdef.KindTransport {
		t.Errorf("ErrorKind(502) = %v, want transport", e.ErrorKind())
	}
}
