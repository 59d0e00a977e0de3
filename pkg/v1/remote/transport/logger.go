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
	"fmt"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strings"
	"time"

	"github.com/oras-community/go-oras/pkg/logs"
)

type logTransport struct {
	inner http.RoundTripper
}

// NewLogger returns a transport that logs requests and responses to
// logs.Debug. Authorization headers are redacted.
func NewLogger(inner http.RoundTripper) http.RoundTripper {
	return &logTransport{inner}
}

func (t *logTransport) RoundTrip(in *http.Request) (out *http.Response, err error) {
	// Inspired by: github.com/motemen/go-loghttp

	// We redact token responses and binary blobs in response/request.
	omitBody, reason := redactBody(in.URL)

	// Force debug logging to display duration.
	start := time.Now()
	defer func() {
		if err != nil {
			logs.Debug.Printf("<-- %v %s %s (%s)", err, in.Method, in.URL, time.Since(start))
		}
	}()

	if omitBody {
		logs.Debug.Printf("--> %s %s [body redacted: %s]", in.Method, in.URL, reason)
	} else {
		b, berr := httputil.DumpRequestOut(sanitize(in), true)
		if berr != nil {
			logs.Debug.Printf("Failed to dump request %s %s: %v", in.Method, in.URL, berr)
		} else {
			logs.Debug.Printf("--> %s", string(b))
		}
	}

	out, err = t.inner.RoundTrip(in)
	if out != nil {
		if omitBody {
			logs.Debug.Printf("<-- %d %s %s (%s) [body redacted: %s]",
				out.StatusCode, out.Request.Method, out.Request.URL, time.Since(start), reason)
		} else {
			b, berr := httputil.DumpResponse(out, true)
			if berr != nil {
				logs.Debug.Printf("Failed to dump response %s %s: %v",
					out.Request.Method, out.Request.URL, berr)
			} else {
				logs.Debug.Printf("<-- %s (%s)", string(b), time.Since(start))
			}
		}
	}
	return
}

func sanitize(in *http.Request) *http.Request {
	out := in.Clone(in.Context())
	if out.Header.Get("Authorization") != "" {
		out.Header.Set("Authorization", "<redacted>")
	}
	return out
}

func redactBody(u *url.URL) (bool, string) {
	if _, ok := u.Query()["token"]; ok || u.Query().Get("service") != "" {
		return true, "contains token"
	}
	for _, fragment := range []string{"/blobs/", "/token"} {
		if strings.Contains(u.Path, fragment) {
			return true, fmt.Sprintf("path contains %q", fragment)
		}
	}
	return false, ""
}
