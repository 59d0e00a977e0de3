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
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/oras-community/go-oras/pkg/authn"
)

type testReg struct {
	host string
}

func (r testReg) RegistryStr() string { return r.host }
func (r testReg) Scheme() string      { return "http" }
func (r testReg) String() string      { return r.host }

func TestBearerFlow(t *testing.T) {
	hits := map[string]int{}
	var server *httptest.Server
	server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits[r.URL.Path]++
		switch r.URL.Path {
		case "/v2/":
			if r.Header.Get("Authorization") == "Bearer abc" {
				w.WriteHeader(http.StatusOK)
				return
			}
			w.Header().Set("WWW-Authenticate",
				fmt.Sprintf(`Bearer realm="%s/token",service="registry",scope="repository:foo:pull"`, server.URL))
			w.WriteHeader(http.StatusUnauthorized)
		case "/token":
			user, pass, _ := r.BasicAuth()
			if user != "user" || pass != "pass" {
				t.Errorf("token request credentials = %q:%q", user, pass)
			}
			if got := r.URL.Query().Get("service"); got != "registry" {
				t.Errorf("token request service = %q", got)
			}
			if got := r.URL.Query().Get("scope"); got != "repository:foo:pull" {
				t.Errorf("token request scope = %q", got)
			}
			fmt.Fprint(w, `{"token":"abc","expires_in":300}`)
		case "/v2/foo/manifests/latest":
			if got := r.Header.Get("Authorization"); got != "Bearer abc" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			w.WriteHeader(http.StatusOK)
		default:
			t.Errorf("unexpected request: %s", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	u, err := url.Parse(server.URL)
	if err != nil {
		t.Fatal(err)
	}
	reg := testReg{host: u.Host}

	basic := &authn.Basic{Username: "user", Password: "pass"}
	tr, err := NewWithContext(context.Background(), reg, basic, nil, []string{"repository:foo:pull"})
	if err != nil {
		t.Fatalf("NewWithContext: %v", err)
	}

	client := http.Client{Transport: tr}
	resp, err := client.Get(server.URL + "/v2/foo/manifests/latest")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}

	if got := hits["/token"]; got != 1 {
		t.Errorf("token endpoint hit %d times, want 1", got)
	}
	if got := hits["/v2/foo/manifests/latest"]; got != 1 {
		t.Errorf("manifest endpoint hit %d times, want 1", got)
	}
}

// A 401 on an authenticated request triggers exactly one refresh and one
// retry; a second 401 surfaces to the caller.
func TestBearerRefreshOnce(t *testing.T) {
	tokens := 0
	var server *httptest.Server
	server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/v2/":
			w.Header().Set("WWW-Authenticate",
				fmt.Sprintf(`Bearer realm="%s/token",service="registry"`, server.URL))
			w.WriteHeader(http.StatusUnauthorized)
		case r.URL.Path == "/token":
			tokens++
			fmt.Fprintf(w, `{"token":"tok%d"}`, tokens)
		case strings.HasPrefix(r.URL.Path, "/v2/"):
			// Only the second token is accepted, so the first real request
			// must refresh and retry.
			if r.Header.Get("Authorization") == "Bearer tok2" {
				w.WriteHeader(http.StatusOK)
				return
			}
			w.WriteHeader(http.StatusUnauthorized)
		}
	}))
	defer server.Close()

	u, err := url.Parse(server.URL)
	if err != nil {
		t.Fatal(err)
	}
	tr, err := NewWithContext(context.Background(), testReg{host: u.Host}, authn.Anonymous, nil, nil)
	if err != nil {
		t.Fatal(err)
	}

	client := http.Client{Transport: tr}
	resp, err := client.Get(server.URL + "/v2/foo/manifests/latest")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200 after one refresh", resp.StatusCode)
	}
	if tokens != 2 {
		t.Errorf("token endpoint hit %d times, want 2 (initial + one refresh)", tokens)
	}
}

func TestBasicChallenge(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v2/":
			if r.Header.Get("Authorization") == "" {
				w.Header().Set("WWW-Authenticate", `Basic realm="registry"`)
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			w.WriteHeader(http.StatusOK)
		case "/v2/foo/manifests/latest":
			if !strings.HasPrefix(r.Header.Get("Authorization"), "Basic ") {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			w.WriteHeader(http.StatusOK)
		}
	}))
	defer server.Close()

	u, err := url.Parse(server.URL)
	if err != nil {
		t.Fatal(err)
	}
	tr, err := NewWithContext(context.Background(), testReg{host: u.Host},
		&authn.Basic{Username: "user", Password: "pass"}, nil, nil)
	if err != nil {
		t.Fatal(err)
	}

	client := http.Client{Transport: tr}
	resp, err := client.Get(server.URL + "/v2/foo/manifests/latest")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
}
