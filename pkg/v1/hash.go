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

package v1

import (
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/oras-community/go-oras/pkg/errdef"
	"lukechampine.com/blake3"
)

// DefaultAlgorithm is the digest algorithm used when a reference or caller
// does not pin one.
const DefaultAlgorithm = "sha256"

// digestRegexp matches <algorithm>:<encoded>, where encoded is hex or
// base64url depending on the algorithm.
var digestRegexp = regexp.MustCompile(`^[a-z0-9]+(?:[+._-][a-z0-9]+)*:[a-zA-Z0-9=_-]+$`)

// Hash is an unqualified digest of some content, e.g. sha256:deadbeef.
type Hash struct {
	// Algorithm holds the algorithm used to compute the hash.
	Algorithm string

	// Hex holds the encoded portion of the content hash. Compute produces
	// lowercase hex for every algorithm, blake3 included.
	Hex string
}

// String reverses NewHash returning the string-form of the hash.
func (h Hash) String() string {
	return fmt.Sprintf("%s:%s", h.Algorithm, h.Hex)
}

// NewHash validates the input string is a hash and returns a strongly typed Hash object.
func NewHash(s string) (Hash, error) {
	h := Hash{}
	if err := h.parse(s); err != nil {
		return Hash{}, err
	}
	return h, nil
}

// IsValidDigest reports whether s matches the digest grammar.
func IsValidDigest(s string) bool {
	return digestRegexp.MatchString(s)
}

// MarshalJSON implements json.Marshaler
func (h Hash) MarshalJSON() ([]byte, error) {
	return []byte(`"` + h.String() + `"`), nil
}

// UnmarshalJSON implements json.Unmarshaler
func (h *Hash) UnmarshalJSON(data []byte) error {
	s, err := strconv.Unquote(string(data))
	if err != nil {
		return err
	}
	return h.parse(s)
}

// MarshalText implements encoding.TextMarshaler. This is required to use
// v1.Hash as a key in a map when marshalling JSON.
func (h Hash) MarshalText() (text []byte, err error) {
	return []byte(h.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler. This is required to use
// v1.Hash as a key in a map when unmarshalling JSON.
func (h *Hash) UnmarshalText(text []byte) error {
	return h.parse(string(text))
}

// Hasher returns a hash.Hash for the named algorithm.
func Hasher(name string) (hash.Hash, error) {
	switch name {
	case "sha256":
		return sha256.New(), nil
	case "sha384":
		return sha512.New384(), nil
	case "sha512":
		return sha512.New(), nil
	case "blake3":
		return blake3.New(32, nil), nil
	default:
		return nil, errdef.New(errdef.KindParse, "unsupported hash algorithm: %s", name)
	}
}

func (h *Hash) parse(unquoted string) error {
	if !digestRegexp.MatchString(unquoted) {
		return errdef.New(errdef.KindParse, "cannot parse digest %q", unquoted)
	}
	parts := strings.SplitN(unquoted, ":", 2)
	rest := strings.TrimPrefix(unquoted, parts[0])
	rest = strings.TrimPrefix(rest, ":")

	if _, err := Hasher(parts[0]); err != nil {
		return err
	}

	h.Algorithm = parts[0]
	h.Hex = rest
	return nil
}

// Compute computes the digest of r with the named algorithm, returning the
// Hash and the number of bytes read.
func Compute(algorithm string, r io.Reader) (Hash, int64, error) {
	hasher, err := Hasher(algorithm)
	if err != nil {
		return Hash{}, 0, err
	}
	n, err := io.Copy(hasher, r)
	if err != nil {
		return Hash{}, 0, err
	}
	return Hash{
		Algorithm: algorithm,
		Hex:       hex.EncodeToString(hasher.Sum(nil)),
	}, n, nil
}

// SHA256 computes the Hash of the provided io.Reader's content.
func SHA256(r io.Reader) (Hash, int64, error) {
	return Compute("sha256", r)
}
