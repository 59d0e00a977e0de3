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

// Package name defines structured types for OCI artifact references, both
// registry-hosted (Container) and on-disk image layouts (Layout).
package name

import (
	"fmt"
)

// Ref constrains the reference type a store operates on. The type parameter
// ties each store implementation to its own reference flavor, so a registry
// cannot be handed a layout reference and vice versa.
type Ref[R any] interface {
	// WithDigest returns a copy of the reference pinned to the given digest.
	WithDigest(digest string) R
	// Identifier returns the digest when present, otherwise the tag.
	Identifier() string
	// DigestStr returns the reference's digest, or "".
	DigestStr() string
	// TagStr returns the reference's tag, or "".
	TagStr() string
	// Algorithm returns the digest algorithm implied by the reference, or
	// the library default when the reference carries no digest.
	Algorithm() string
	// Name identifies the repository or folder in error messages.
	Name() string

	fmt.Stringer
}
