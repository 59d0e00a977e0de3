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

// Package authn defines the credential types the registry transport
// consumes: anonymous, basic, and bearer.
package authn

// AuthConfig contains authorization information for connecting to a
// registry.
type AuthConfig struct {
	Username      string `json:"username,omitempty"`
	Password      string `json:"password,omitempty"`
	IdentityToken string `json:"identitytoken,omitempty"`
	RegistryToken string `json:"registrytoken,omitempty"`
}

// Authenticator is used to authenticate requests to a registry.
type Authenticator interface {
	// Authorization returns the value to use in an http transport's
	// Authorization header.
	Authorization() (*AuthConfig, error)
}

// anonymous implements Authenticator for anonymous access.
type anonymous struct{}

// Anonymous is a singleton Authenticator for providing anonymous auth.
var Anonymous Authenticator = &anonymous{}

// Authorization implements Authenticator.
func (a *anonymous) Authorization() (*AuthConfig, error) {
	return &AuthConfig{}, nil
}

// Basic implements Authenticator for basic authentication.
type Basic struct {
	Username string
	Password string
}

// Authorization implements Authenticator.
func (b *Basic) Authorization() (*AuthConfig, error) {
	return &AuthConfig{
		Username: b.Username,
		Password: b.Password,
	}, nil
}

// Bearer implements Authenticator for bearer authentication.
type Bearer struct {
	Token string `json:"token"`
}

// Authorization implements Authenticator.
func (b *Bearer) Authorization() (*AuthConfig, error) {
	return &AuthConfig{
		RegistryToken: b.Token,
	}, nil
}

// FromConfig returns an Authenticator that just returns the given
// AuthConfig.
func FromConfig(cfg AuthConfig) Authenticator {
	return &auth{cfg}
}

type auth struct {
	config AuthConfig
}

// Authorization implements Authenticator.
func (a *auth) Authorization() (*AuthConfig, error) {
	return &a.config, nil
}
