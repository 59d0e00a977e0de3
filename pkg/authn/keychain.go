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

package authn

import (
	"github.com/docker/cli/cli/config"
	"github.com/docker/cli/cli/config/types"
)

// DefaultAuthKey is the key used for the default (docker.io) registry in the
// Docker config file.
const DefaultAuthKey = "https://index.docker.io/v1/"

// Resource represents a registry or repository that can be authenticated
// against.
type Resource interface {
	// String returns the full string representation of the target, e.g.
	// my.registry.example/my-repo or just my.registry.example.
	String() string

	// RegistryStr returns just the registry portion of the target. This is
	// needed to pull out an appropriate hostname.
	RegistryStr() string
}

// Keychain is an interface for resolving a reference to a credential.
type Keychain interface {
	// Resolve looks up the most appropriate credential for the specified
	// target.
	Resolve(Resource) (Authenticator, error)
}

// defaultKeychain implements Keychain with the semantics of the standard
// Docker credential keychain.
type defaultKeychain struct{}

// DefaultKeychain implements Keychain by interpreting the Docker config
// file.
var DefaultKeychain Keychain = &defaultKeychain{}

// Resolve implements Keychain.
func (dk *defaultKeychain) Resolve(target Resource) (Authenticator, error) {
	cf, err := config.Load("")
	if err != nil {
		return nil, err
	}

	key := target.RegistryStr()
	if key == "docker.io" || key == "registry-1.docker.io" || key == "index.docker.io" {
		key = DefaultAuthKey
	}

	cfg, err := cf.GetAuthConfig(key)
	if err != nil {
		return nil, err
	}

	if empty := (types.AuthConfig{ServerAddress: cfg.ServerAddress}); cfg == empty {
		return Anonymous, nil
	}
	return FromConfig(AuthConfig{
		Username:      cfg.Username,
		Password:      cfg.Password,
		IdentityToken: cfg.IdentityToken,
		RegistryToken: cfg.RegistryToken,
	}), nil
}
