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

package layout

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/oras-community/go-oras/internal/verify"
	"github.com/oras-community/go-oras/pkg/errdef"
	"github.com/oras-community/go-oras/pkg/logs"
	"github.com/oras-community/go-oras/pkg/name"
	v1 "github.com/oras-community/go-oras/pkg/v1"
	"github.com/oras-community/go-oras/pkg/v1/types"
)

// PushBlob writes blob content at its content address. The write is
// idempotent: content that is already present is never re-written, and the
// open supplier is not invoked for it. New content is staged in a temp file
// and renamed into place once its digest checks out.
func (s *Store) PushBlob(ctx context.Context, ref name.Layout, size int64, open v1.Opener, annotations map[string]string) (*v1.Layer, error) {
	dgst := ref.DigestStr()
	if dgst == "" {
		return nil, errdef.New(errdef.KindInvalidState, "pushing blob to %s: digest required", ref.Path)
	}
	h, err := v1.NewHash(dgst)
	if err != nil {
		return nil, err
	}
	if err := ensureLayout(ref); err != nil {
		return nil, err
	}

	layer := v1.RemoteLayer(v1.Descriptor{
		MediaType:   types.OctetStream,
		Digest:      h,
		Size:        size,
		Annotations: annotations,
	})

	target := blobPath(ref.Path, h)
	if _, err := os.Stat(target); err == nil {
		logs.Progress.Printf("existing blob: %v", h)
		return &layer, nil
	}

	rc, err := open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	// Verify the stream against the declared digest while staging, so a
	// corrupt source never lands at a content address.
	vrc, err := verify.ReadCloser(rc, size, h)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return nil, err
	}
	tmp, err := os.CreateTemp(filepath.Join(ref.Path, "blobs"), ".upload-*")
	if err != nil {
		return nil, err
	}
	written, err := io.Copy(tmp, vrc)
	if err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return nil, err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return nil, err
	}
	if err := os.Rename(tmp.Name(), target); err != nil {
		os.Remove(tmp.Name())
		return nil, err
	}

	if layer.Size < 0 {
		layer.Size = written
	}
	logs.Progress.Printf("pushed blob: %s", h)
	return &layer, nil
}

// PushManifest writes the manifest blob and records it in index.json: under
// the reference's tag when the reference is not digest-pinned, otherwise as
// an untagged entry.
func (s *Store) PushManifest(ctx context.Context, ref name.Layout, m *v1.Manifest) (*v1.Manifest, error) {
	raw, err := m.RawManifest()
	if err != nil {
		return nil, err
	}
	mt := m.MediaType
	if mt == "" {
		mt = types.OCIManifestSchema1
	}
	desc, err := s.commitManifest(ctx, ref, raw, mt)
	if err != nil {
		return nil, err
	}
	desc.ArtifactType = m.ResolveArtifactType()
	return m.WithDescriptor(*desc), nil
}

// PushIndex writes the index blob and records it in index.json, like
// PushManifest.
func (s *Store) PushIndex(ctx context.Context, ref name.Layout, i *v1.Index) (*v1.Index, error) {
	raw, err := i.RawIndex()
	if err != nil {
		return nil, err
	}
	mt := i.MediaType
	if mt == "" {
		mt = types.OCIImageIndex
	}
	desc, err := s.commitManifest(ctx, ref, raw, mt)
	if err != nil {
		return nil, err
	}
	return i.WithDescriptor(*desc), nil
}

func (s *Store) commitManifest(ctx context.Context, ref name.Layout, raw []byte, mt types.MediaType) (*v1.Descriptor, error) {
	if err := ensureLayout(ref); err != nil {
		return nil, err
	}

	digest, size, err := v1.Compute(ref.Algorithm(), bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}
	if _, err := s.PushBlob(ctx, ref.WithDigest(digest.String()), size, v1.BytesOpener(raw), nil); err != nil {
		return nil, err
	}

	desc := v1.Descriptor{
		MediaType: mt,
		Digest:    digest,
		Size:      size,
	}

	tag := ""
	if ref.DigestStr() == "" {
		tag = ref.TagStr()
	}
	if err := s.upsertIndexEntry(ref, desc, tag); err != nil {
		return nil, err
	}
	logs.Progress.Printf("%v: digest: %v size: %d", ref, digest, size)
	return &desc, nil
}

// upsertIndexEntry records desc in index.json, keeping one entry per
// distinct (digest, tag) pair. A tagged push replaces the previous holder
// of the tag.
func (s *Store) upsertIndexEntry(ref name.Layout, desc v1.Descriptor, tag string) error {
	idx, err := readIndex(ref)
	if err != nil {
		return err
	}

	entry := desc
	if tag != "" {
		entry = desc.WithAnnotations(map[string]string{v1.AnnotationRefName: tag})
	}

	kept := make([]v1.Descriptor, 0, len(idx.Manifests)+1)
	for _, d := range idx.Manifests {
		dTag := d.Annotation(v1.AnnotationRefName)
		if tag != "" && dTag == tag {
			// The tag moves to the new descriptor.
			continue
		}
		if tag == "" && d.Digest == desc.Digest && dTag == "" {
			// Untagged entry for this digest already present.
			return nil
		}
		kept = append(kept, d)
	}
	kept = append(kept, entry)

	return writeIndex(ref, idx.WithManifests(kept))
}

// Delete removes the reference's entry from index.json. Blobs are left in
// place; a layout has no garbage collection.
func (s *Store) Delete(ctx context.Context, ref name.Layout) error {
	if err := checkLayout(ref); err != nil {
		return err
	}
	idx, err := readIndex(ref)
	if err != nil {
		return err
	}

	kept := make([]v1.Descriptor, 0, len(idx.Manifests))
	removed := false
	for _, d := range idx.Manifests {
		if dgst := ref.DigestStr(); dgst != "" {
			if d.Digest.String() == dgst {
				removed = true
				continue
			}
		} else if d.Annotation(v1.AnnotationRefName) == ref.TagStr() {
			removed = true
			continue
		}
		kept = append(kept, d)
	}
	if !removed {
		return errdef.New(errdef.KindNotFound, "%s not found in %s", ref.Identifier(), ref.Path)
	}
	return writeIndex(ref, idx.WithManifests(kept))
}
