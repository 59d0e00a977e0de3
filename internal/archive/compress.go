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

package archive

import (
	"compress/gzip"
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"

	"github.com/oras-community/go-oras/pkg/v1/types"
)

// Compressor returns a WriteCloser that compresses into w with the codec
// the layer media type calls for. For the plain tar media type the returned
// writer passes bytes through.
func Compressor(mt types.MediaType, w io.Writer) (io.WriteCloser, error) {
	switch mt {
	case types.OCILayer, types.DockerLayer:
		return gzip.NewWriter(w), nil
	case types.OCILayerZStd:
		return zstd.NewWriter(w)
	case types.OCIUncompressedLayer:
		return nopWriteCloser{w}, nil
	default:
		return nil, fmt.Errorf("no compression codec for media type %s", mt)
	}
}

// Decompressor returns a reader of the uncompressed content of r per the
// layer media type.
func Decompressor(mt types.MediaType, r io.Reader) (io.ReadCloser, error) {
	switch mt {
	case types.OCILayer, types.DockerLayer:
		zr, err := gzip.NewReader(r)
		if err != nil {
			return nil, err
		}
		return zr, nil
	case types.OCILayerZStd:
		zr, err := zstd.NewReader(r)
		if err != nil {
			return nil, err
		}
		return zr.IOReadCloser(), nil
	case types.OCIUncompressedLayer:
		return io.NopCloser(r), nil
	default:
		return nil, fmt.Errorf("no decompression codec for media type %s", mt)
	}
}

type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error { return nil }
