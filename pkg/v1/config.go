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
	"bytes"

	"github.com/oras-community/go-oras/pkg/v1/types"
)

// emptyConfigDigest is sha256 of "{}".
const emptyConfigDigest = "sha256:44136fa355b3678a1146ad16f7e8649e94fb4fc21fe77e8310c060f61caaff8a"

// EmptyConfig returns the canonical empty config descriptor with inline
// data, per the OCI guidance for config-less artifacts.
func EmptyConfig() Descriptor {
	return Descriptor{
		MediaType: types.OCIEmptyJSON,
		Digest:    Hash{Algorithm: "sha256", Hex: emptyConfigDigest[len("sha256:"):]},
		Size:      2,
		Data:      []byte("{}"),
	}
}

// NewConfig returns a config descriptor over the given bytes, retained
// inline, with its digest computed using the given algorithm.
func NewConfig(mediaType types.MediaType, data []byte, algorithm string) (Descriptor, error) {
	if algorithm == "" {
		algorithm = DefaultAlgorithm
	}
	digest, size, err := Compute(algorithm, bytes.NewReader(data))
	if err != nil {
		return Descriptor{}, err
	}
	return Descriptor{
		MediaType: mediaType,
		Digest:    digest,
		Size:      size,
		Data:      data,
	}, nil
}
