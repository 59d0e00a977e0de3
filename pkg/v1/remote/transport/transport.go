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

// Package transport provides an http.RoundTripper that speaks the registry
// authentication protocol: Basic credentials, Bearer challenge discovery,
// scoped token acquisition, and a single retry after a token refresh.
package transport

import (
	"context"
	"fmt"
	"net/http"

	"github.com/oras-community/go-oras/pkg/authn"
)

// Registry describes the endpoint a transport authenticates against.
type Registry interface {
	// RegistryStr returns the host serving the registry API.
	RegistryStr() string
	// Scheme returns "http" for insecure registries, else "https".
	Scheme() string
}

// scopes for token requests.
const (
	PullScope = "pull"
	PushScope = "pull,push"
)

// New returns an http.RoundTripper that authenticates against reg for the
// given scopes. It probes /v2/ once to discover the challenge scheme; for
// Bearer challenges, a token is fetched before New returns and refreshed at
// most once per request.
func New(reg Registry, auth authn.Authenticator, t http.RoundTripper, scopes []string) (http.RoundTripper, error) {
	return NewWithContext(context.Background(), reg, auth, t, scopes)
}

// NewWithContext is New with a caller-supplied context for the probe and
// token requests.
func NewWithContext(ctx context.Context, reg Registry, auth authn.Authenticator, t http.RoundTripper, scopes []string) (http.RoundTripper, error) {
	if t == nil {
		t = http.DefaultTransport
	}
	if auth == nil {
		auth = authn.Anonymous
	}

	// The handshake:
	//  1. Use "GET /v2/" to determine the challenge scheme.
	//  2. For Bearer, fetch a scoped token from the realm and keep it fresh.
	pr, err := ping(ctx, reg, t)
	if err != nil {
		return nil, err
	}

	switch pr.challenge.Canonical() {
	case anonymous, basic:
		return &basicTransport{inner: t, auth: auth, target: reg.RegistryStr()}, nil
	case bearer:
		realm, ok := pr.parameters["realm"]
		if !ok {
			return nil, fmt.Errorf("malformed www-authenticate, missing realm: %v", pr.parameters)
		}
		bt := &bearerTransport{
			inner:    t,
			basic:    auth,
			realm:    realm,
			registry: reg,
			service:  pr.parameters["service"],
			scopes:   scopes,
			scheme:   reg.Scheme(),
		}
		if err := bt.refresh(ctx); err != nil {
			return nil, err
		}
		return bt, nil
	default:
		return nil, fmt.Errorf("unrecognized challenge: %s", pr.challenge)
	}
}
