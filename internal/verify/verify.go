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

// Package verify provides a ReadCloser that verifies content matches the
// expected hash as it is consumed.
package verify

import (
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"io"

	"github.com/oras-community/go-oras/pkg/errdef"
	v1 "github.com/oras-community/go-oras/pkg/v1"
)

// SizeUnknown is a sentinel value to indicate that the expected size is not
// known.
const SizeUnknown = -1

type verifyReader struct {
	inner             io.Reader
	hasher            hash.Hash
	expected          v1.Hash
	wantSize, gotSize int64
}

// Error provides information about the failed hash verification.
type Error struct {
	got     string
	want    v1.Hash
	gotSize int64
}

func (v Error) Error() string {
	return fmt.Sprintf("error verifying %s checksum after reading %d bytes; got %q, want %q",
		v.want.Algorithm, v.gotSize, v.got, v.want)
}

// Read implements io.Reader
func (vc *verifyReader) Read(b []byte) (int, error) {
	n, err := vc.inner.Read(b)
	vc.gotSize += int64(n)
	if err == io.EOF {
		if vc.wantSize != SizeUnknown && vc.gotSize != vc.wantSize {
			return n, fmt.Errorf("error verifying size; got %d, want %d", vc.gotSize, vc.wantSize)
		}
		got := hex.EncodeToString(vc.hasher.Sum(nil))
		if want := vc.expected.Hex; got != want {
			return n, errdef.Wrap(errdef.KindDigestMismatch, Error{
				got:     vc.expected.Algorithm + ":" + got,
				want:    vc.expected,
				gotSize: vc.gotSize,
			}, "content digest verification failed")
		}
	}
	return n, err
}

// ReadCloser wraps the given io.ReadCloser to verify that its contents match
// the provided v1.Hash before io.EOF is returned.
//
// The reader will only be read up to size+1 bytes, so a size error is
// returned at EOF if the contents are either shorter or longer than size.
func ReadCloser(r io.ReadCloser, size int64, h v1.Hash) (io.ReadCloser, error) {
	hasher, err := v1.Hasher(h.Algorithm)
	if err != nil {
		return nil, err
	}
	r2 := io.TeeReader(r, hasher)
	if size != SizeUnknown {
		r2 = io.TeeReader(io.LimitReader(r, size+1), hasher)
	}
	return &readAndCloser{
		Reader: &verifyReader{
			inner:    r2,
			hasher:   hasher,
			expected: h,
			wantSize: size,
		},
		CloseFunc: r.Close,
	}, nil
}

// IsMismatch reports whether err came from failed digest verification.
func IsMismatch(err error) bool {
	var ve Error
	return errors.As(err, &ve) || errdef.IsKind(err, errdef.KindDigestMismatch)
}

type readAndCloser struct {
	io.Reader
	CloseFunc func() error
}

func (r *readAndCloser) Close() error {
	return r.CloseFunc()
}
