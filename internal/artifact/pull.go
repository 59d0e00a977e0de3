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
	"context"
	"encoding/hex"
	"io"
	"os"
	"path/filepath"

	"github.com/oras-community/go-oras/internal/archive"
	"github.com/oras-community/go-oras/pkg/errdef"
	"github.com/oras-community/go-oras/pkg/logs"
	"github.com/oras-community/go-oras/pkg/name"
	v1 "github.com/oras-community/go-oras/pkg/v1"
	"github.com/oras-community/go-oras/pkg/v1/types"
)

// Pull fetches the artifact's layers into dest. Titled layers become files
// named by their title; layers carrying the unpack annotation are extracted
// with their uncompressed digest verified; zip layers are extracted;
// anything else is skipped.
func Pull[R name.Ref[R]](ctx context.Context, s Store[R], ref R, dest string, overwrite bool) error {
	desc, err := s.ProbeDescriptor(ctx, ref)
	if err != nil {
		return err
	}
	layers, err := CollectLayers(ctx, s, ref, desc.MediaType, false)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dest, 0o755); err != nil {
		return err
	}

	for _, l := range layers {
		title := l.Annotation(v1.AnnotationTitle)
		switch {
		case l.Annotation(v1.AnnotationUnpack) == "true":
			if err := pullUnpack(ctx, s, ref, l, dest); err != nil {
				return err
			}
		case l.MediaType == types.ORASArchiveZip:
			if err := pullZip(ctx, s, ref, l, dest); err != nil {
				return err
			}
		case title != "":
			if err := pullFile(ctx, s, ref, l, dest, title, overwrite); err != nil {
				return err
			}
		default:
			logs.Debug.Printf("skipping untitled layer %s", l.Digest)
		}
	}
	return nil
}

// pullFile streams one titled layer into dest/title.
func pullFile[R name.Ref[R]](ctx context.Context, s Store[R], ref R, l v1.Descriptor, dest, title string, overwrite bool) error {
	if !filepath.IsLocal(filepath.FromSlash(title)) {
		return errdef.New(errdef.KindPathTraversal, "layer title %q escapes the destination directory", title)
	}
	target := filepath.Join(dest, filepath.FromSlash(title))
	if _, err := os.Lstat(target); err == nil && !overwrite {
		return errdef.New(errdef.KindInvalidState, "%s already exists (use overwrite to replace)", target)
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}

	rc, err := s.FetchBlob(ctx, ref.WithDigest(l.Digest.String()))
	if err != nil {
		return err
	}
	defer rc.Close()

	f, err := os.Create(target)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, rc); err != nil {
		f.Close()
		os.Remove(target)
		return err
	}
	return f.Close()
}

// pullUnpack stages the layer, decompresses it, and extracts the tar under
// dest. The digest of the uncompressed tar must match the layer's
// content-digest annotation when present.
func pullUnpack[R name.Ref[R]](ctx context.Context, s Store[R], ref R, l v1.Descriptor, dest string) error {
	tmpPath, err := stageBlob(ctx, s, ref, l)
	if tmpPath != "" {
		defer os.Remove(tmpPath)
	}
	if err != nil {
		return err
	}

	f, err := os.Open(tmpPath)
	if err != nil {
		return err
	}
	defer f.Close()

	zr, err := archive.Decompressor(l.MediaType, f)
	if err != nil {
		return err
	}
	defer zr.Close()

	wantDigest := l.Annotation(v1.AnnotationContentDigest)
	algorithm := v1.DefaultAlgorithm
	if wantDigest != "" {
		want, err := v1.NewHash(wantDigest)
		if err != nil {
			return err
		}
		algorithm = want.Algorithm
	}
	hasher, err := v1.Hasher(algorithm)
	if err != nil {
		return err
	}

	if err := archive.Extract(io.TeeReader(zr, hasher), dest); err != nil {
		return err
	}
	// Drain any trailing padding so the hash covers the whole tar stream.
	if _, err := io.Copy(hasher, zr); err != nil {
		return err
	}

	if wantDigest != "" {
		got := v1.Hash{Algorithm: algorithm, Hex: hex.EncodeToString(hasher.Sum(nil))}
		if got.String() != wantDigest {
			return errdef.New(errdef.KindDigestMismatch,
				"uncompressed content digest %s does not match annotation %s", got, wantDigest)
		}
	}
	return nil
}

// pullZip stages a zip layer and extracts it under dest.
func pullZip[R name.Ref[R]](ctx context.Context, s Store[R], ref R, l v1.Descriptor, dest string) error {
	tmpPath, err := stageBlob(ctx, s, ref, l)
	if tmpPath != "" {
		defer os.Remove(tmpPath)
	}
	if err != nil {
		return err
	}
	return archive.Unzip(tmpPath, dest)
}

// stageBlob fetches the layer's blob into a temp file, digest-verified by
// the store's stream.
func stageBlob[R name.Ref[R]](ctx context.Context, s Store[R], ref R, l v1.Descriptor) (string, error) {
	rc, err := s.FetchBlob(ctx, ref.WithDigest(l.Digest.String()))
	if err != nil {
		return "", err
	}
	defer rc.Close()

	tmp, err := os.CreateTemp("", "go-oras-blob-*")
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(tmp, rc); err != nil {
		tmp.Close()
		return tmp.Name(), err
	}
	return tmp.Name(), tmp.Close()
}
