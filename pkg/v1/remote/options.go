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

package remote

import (
	"crypto/tls"
	"net"
	"net/http"
	"time"

	"github.com/oras-community/go-oras/pkg/authn"
)

// Option is a functional option for NewRegistry.
type Option func(*options)

type options struct {
	auth          authn.Authenticator
	keychain      authn.Keychain
	transport     http.RoundTripper
	insecure      bool
	skipTLSVerify bool
	timeout       time.Duration
	userAgent     string
}

func makeOptions(opts ...Option) *options {
	o := &options{
		auth:    authn.Anonymous,
		timeout: 60 * time.Second,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// WithAuth is a functional option for overriding the default authenticator.
// By default, the registry is accessed anonymously.
func WithAuth(auth authn.Authenticator) Option {
	return func(o *options) {
		o.auth = auth
	}
}

// WithAuthFromKeychain resolves credentials for each registry from the
// given keychain, e.g. authn.DefaultKeychain for the Docker config file.
func WithAuthFromKeychain(keys authn.Keychain) Option {
	return func(o *options) {
		o.keychain = keys
	}
}

// WithTransport overrides the http.RoundTripper requests are sent over.
func WithTransport(t http.RoundTripper) Option {
	return func(o *options) {
		o.transport = t
	}
}

// WithInsecure talks to the registry over plain http.
func WithInsecure() Option {
	return func(o *options) {
		o.insecure = true
	}
}

// WithSkipTLSVerify disables certificate chain and host verification.
func WithSkipTLSVerify() Option {
	return func(o *options) {
		o.skipTLSVerify = true
	}
}

// WithTimeout overrides the connect timeout (default 60s).
func WithTimeout(d time.Duration) Option {
	return func(o *options) {
		o.timeout = d
	}
}

// WithUserAgent prefixes the User-Agent header with the given string.
func WithUserAgent(ua string) Option {
	return func(o *options) {
		o.userAgent = ua
	}
}

// scheme returns the URL scheme implied by the options.
func (o *options) scheme() string {
	if o.insecure {
		return "http"
	}
	return "https"
}

// baseTransport builds the innermost RoundTripper: either the caller's, or
// a fresh default transport with the configured dial timeout and TLS
// settings.
func (o *options) baseTransport() http.RoundTripper {
	if o.transport != nil {
		return o.transport
	}
	t := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   o.timeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
	if o.skipTLSVerify {
		t.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}
	return t
}
