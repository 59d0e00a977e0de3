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
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"

	authchallenge "github.com/docker/distribution/registry/client/auth/challenge"

	"github.com/oras-community/go-oras/pkg/authn"
	"github.com/oras-community/go-oras/pkg/logs"
)

type bearerTransport struct {
	// Wrapped by bearerTransport.
	inner http.RoundTripper
	// Basic credentials that we exchange for bearer tokens.
	basic authn.Authenticator
	// Registry to which we send bearer tokens.
	registry Registry
	// See https://tools.ietf.org/html/rfc6750
	realm string
	// See https://docs.docker.com/registry/spec/auth/token/
	service string
	scopes  []string
	// Scheme we should use, determined by ping response.
	scheme string

	// The current token. Token refresh is a read-modify-write on this
	// field; the mutex makes the swap atomic so a client can be shared
	// across concurrent operations.
	mu    sync.Mutex
	token string
}

var _ http.RoundTripper = (*bearerTransport)(nil)

// RoundTrip implements http.RoundTripper
func (bt *bearerTransport) RoundTrip(in *http.Request) (*http.Response, error) {
	sendRequest := func() (*http.Response, error) {
		// http.Client handles redirects at a layer above the
		// http.RoundTripper abstraction, so to avoid forwarding
		// Authorization headers to places we are redirected, only set it
		// when the authorization header matches the registry with which we
		// are interacting. In case of redirect http.Client can use an empty
		// Host, check URL too.
		if matchesHost(bt.registry, in, bt.scheme) {
			bt.mu.Lock()
			token := bt.token
			bt.mu.Unlock()
			in.Header.Set("Authorization", "Bearer "+token)
		}
		return bt.inner.RoundTrip(in)
	}

	res, err := sendRequest()
	if err != nil {
		return nil, err
	}

	// If we hit a 401 or 403, the token may have expired or lacked the
	// needed scope. Refresh it once, adopting any scope in the response's
	// challenge, and retry exactly once.
	if res.StatusCode == http.StatusUnauthorized || res.StatusCode == http.StatusForbidden {
		if in.Body != nil && in.GetBody == nil {
			// The request body was a one-shot stream that has already been
			// consumed; there is nothing to replay.
			return res, nil
		}
		io.Copy(io.Discard, res.Body)
		res.Body.Close()

		ctx := in.Context()
		if challenges := authchallenge.ResponseChallenges(res); len(challenges) != 0 {
			// If the response included a challenge with a different scope,
			// adopt it for the refresh.
			for _, wac := range challenges {
				if strings.EqualFold(wac.Scheme, "bearer") {
					if realm, ok := wac.Parameters["realm"]; ok {
						bt.realm = realm
					}
					if service, ok := wac.Parameters["service"]; ok {
						bt.service = service
					}
					if scope, ok := wac.Parameters["scope"]; ok {
						bt.scopes = []string{scope}
					}
					break
				}
			}
		}
		if err := bt.refresh(ctx); err != nil {
			return nil, err
		}
		if in.Body != nil {
			body, err := in.GetBody()
			if err != nil {
				return nil, err
			}
			in.Body = body
		}
		return sendRequest()
	}

	return res, err
}

// refresh exchanges the underlying credentials for a bearer token at the
// realm and swaps it in.
func (bt *bearerTransport) refresh(ctx context.Context) error {
	auth, err := bt.basic.Authorization()
	if err != nil {
		return err
	}

	if auth.RegistryToken != "" {
		// If the secret being stored is an already-issued token, use it
		// directly instead of talking to the realm.
		bt.mu.Lock()
		bt.token = auth.RegistryToken
		bt.mu.Unlock()
		return nil
	}

	response, err := bt.fetchToken(ctx)
	if err != nil {
		return err
	}

	// Some registries set access_token instead of token.
	if response.AccessToken != "" {
		response.Token = response.AccessToken
	}

	// Find a token to turn into a Bearer authenticator
	if response.Token == "" {
		return fmt.Errorf("no token in bearer response:\n%s", response.raw)
	}
	bt.mu.Lock()
	bt.token = response.Token
	bt.mu.Unlock()
	return nil
}

func matchesHost(reg Registry, in *http.Request, scheme string) bool {
	canonicalHeaderHost := canonicalAddress(in.Host, scheme)
	canonicalURLHost := canonicalAddress(in.URL.Host, scheme)
	canonicalRegistryHost := canonicalAddress(reg.RegistryStr(), reg.Scheme())
	return canonicalHeaderHost == canonicalRegistryHost || canonicalURLHost == canonicalRegistryHost
}

func canonicalAddress(host, scheme string) (address string) {
	// The host may be any one of:
	// - hostname
	// - hostname:port
	// - ipv4
	// - ipv4:port
	// - ipv6
	// - [ipv6]:port
	// These are distinguished by whether a port is present.
	if strings.HasPrefix(host, "[") {
		// ipv6, maybe with port
		if i := strings.LastIndex(host, "]:"); i >= 0 {
			return host[1:i] + ":" + host[i+2:]
		}
		return host[1:len(host)-1] + ":" + defaultPort(scheme)
	}
	if i := strings.LastIndex(host, ":"); i >= 0 {
		return host
	}
	return host + ":" + defaultPort(scheme)
}

func defaultPort(scheme string) string {
	if scheme == "http" {
		return "80"
	}
	return "443"
}

type tokenResponse struct {
	Token       string `json:"token"`
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
	IssuedAt    string `json:"issued_at"`

	raw string
}

// fetchToken performs the realm GET with the underlying basic credentials,
// per the token-exchange protocol.
func (bt *bearerTransport) fetchToken(ctx context.Context) (*tokenResponse, error) {
	u, err := url.Parse(bt.realm)
	if err != nil {
		return nil, err
	}
	v := u.Query()
	if bt.service != "" {
		v.Set("service", bt.service)
	}
	for _, scope := range bt.scopes {
		v.Add("scope", scope)
	}
	u.RawQuery = v.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	// The basicTransport only attaches Authorization when the host matches
	// its target, so point it at the realm's host for this exchange.
	client := http.Client{Transport: &basicTransport{inner: bt.inner, auth: bt.basic, target: u.Host}}

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if err := CheckError(resp, http.StatusOK); err != nil {
		logs.Warn.Printf("token exchange with %s failed: %v", bt.realm, err)
		return nil, err
	}

	content, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	response := tokenResponse{raw: string(content)}
	if err := json.Unmarshal(content, &response); err != nil {
		return nil, err
	}
	return &response, nil
}
