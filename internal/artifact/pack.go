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

package artifact

import (
	"encoding/hex"
	"io"
	"os"
	"path/filepath"

	"github.com/oras-community/go-oras/internal/archive"
	v1 "github.com/oras-community/go-oras/pkg/v1"
	"github.com/oras-community/go-oras/pkg/v1/types"
)

// packDirectory archives dir into a gzip-compressed tar staged in a temp
// file and returns layer options carrying the unpack annotations: the
// pull side needs the digest of the uncompressed tar to verify extraction.
func packDirectory(dir string, algorithm string) (string, []v1.LayerOption, error) {
	tmp, err := os.CreateTemp("", "go-oras-archive-*")
	if err != nil {
		return "", nil, err
	}
	tmpPath := tmp.Name()

	hasher, err := v1.Hasher(algorithm)
	if err != nil {
		tmp.Close()
		return tmpPath, nil, err
	}

	zw, err := archive.Compressor(types.OCILayer, tmp)
	if err != nil {
		tmp.Close()
		return tmpPath, nil, err
	}
	// Hash the tar stream as it is compressed so the uncompressed digest
	// comes out of a single pass.
	if err := archive.TarDirectory(dir, io.MultiWriter(hasher, zw)); err != nil {
		zw.Close()
		tmp.Close()
		return tmpPath, nil, err
	}
	if err := zw.Close(); err != nil {
		tmp.Close()
		return tmpPath, nil, err
	}
	if err := tmp.Close(); err != nil {
		return tmpPath, nil, err
	}

	tarDigest := v1.Hash{
		Algorithm: algorithm,
		Hex:       hex.EncodeToString(hasher.Sum(nil)),
	}
	opts := []v1.LayerOption{
		v1.WithLayerMediaType(types.OCILayer),
		v1.WithLayerAlgorithm(algorithm),
		v1.WithLayerTitle(filepath.Base(filepath.Clean(dir))),
		v1.WithLayerAnnotations(map[string]string{
			v1.AnnotationUnpack:        "true",
			v1.AnnotationContentDigest: tarDigest.String(),
		}),
	}
	return tmpPath, opts, nil
}
