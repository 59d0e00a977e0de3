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
	"net/url"
	"runtime/debug"
)

var defaultUserAgent = "go-oras"

func init() {
	if v, ok := debug.ReadBuildInfo(); ok && v.Main.Version != "(devel)" && v.Main.Version != "" {
		defaultUserAgent = fmt.Sprintf("go-oras/%s", v.Main.Version)
	}
}

type userAgentTransport struct {
	inner http.RoundTripper
	ua    string
}

// NewUserAgent returns an http.Roundtripper that sets the user agent to
// go-oras/version, prefixed by the given string when non-empty.
func NewUserAgent(inner http.RoundTripper, ua string) http.RoundTripper {
	if ua != "" {
		ua = fmt.Sprintf("%s %s", ua, defaultUserAgent)
	} else {
		ua = defaultUserAgent
	}
	return &userAgentTransport{
		inner: inner,
		ua:    ua,
	}
}

// RoundTrip implements http.RoundTripper
func (ut *userAgentTransport) RoundTrip(in *http.Request) (*http.Response, error) {
	in.Header.Set("User-Agent", ut.ua)
	return ut.inner.RoundTrip(in)
}

// redactURL removes sensitive query values from a URL before it lands in an
// error message.
func redactURL(u *url.URL) string {
	if u == nil {
		return ""
	}
	redacted := *u
	q := redacted.Query()
	for _, k := range []string{"token", "access_token"} {
		if q.Has(k) {
			q.Set(k, "REDACTED")
		}
	}
	redacted.RawQuery = q.Encode()
	return redacted.String()
}
