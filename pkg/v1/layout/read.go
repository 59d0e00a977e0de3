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
	"sort"

	"github.com/oras-community/go-oras/internal/verify"
	"github.com/oras-community/go-oras/pkg/errdef"
	"github.com/oras-community/go-oras/pkg/name"
	v1 "github.com/oras-community/go-oras/pkg/v1"
	"github.com/oras-community/go-oras/pkg/v1/types"
)

// ProbeDescriptor resolves the reference against index.json without reading
// the manifest body. A digest reference that is missing from the index but
// present in the blob store is still resolved, by sniffing the blob.
func (s *Store) ProbeDescriptor(ctx context.Context, ref name.Layout) (*v1.Descriptor, error) {
	if err := checkLayout(ref); err != nil {
		return nil, err
	}
	idx, err := readIndex(ref)
	if err != nil {
		return nil, err
	}

	if dgst := ref.DigestStr(); dgst != "" {
		for _, d := range idx.Manifests {
			if d.Digest.String() == dgst {
				d := d
				return &d, nil
			}
		}
		return probeBlob(ref, dgst)
	}

	tag := ref.TagStr()
	for _, d := range idx.Manifests {
		if d.Annotation(v1.AnnotationRefName) == tag {
			d := d
			return &d, nil
		}
	}
	return nil, errdef.New(errdef.KindNotFound, "tag %q not found in %s", tag, ref.Path)
}

// GetDescriptor resolves the reference; for a layout this is the same
// lookup as ProbeDescriptor.
func (s *Store) GetDescriptor(ctx context.Context, ref name.Layout) (*v1.Descriptor, error) {
	return s.ProbeDescriptor(ctx, ref)
}

// probeBlob builds a descriptor for an index-less digest by sniffing the
// blob's JSON shape.
func probeBlob(ref name.Layout, dgst string) (*v1.Descriptor, error) {
	h, err := v1.NewHash(dgst)
	if err != nil {
		return nil, err
	}
	b, err := os.ReadFile(blobPath(ref.Path, h))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errdef.New(errdef.KindNotFound, "digest %s not found in %s", dgst, ref.Path)
		}
		return nil, err
	}

	desc := v1.Descriptor{Digest: h, Size: int64(len(b))}
	if idx, err := v1.ParseIndex(bytes.NewReader(b)); err == nil && idx.Manifests != nil && idx.MediaType.IsIndex() {
		desc.MediaType = idx.MediaType
		return &desc, nil
	}
	if m, err := v1.ParseManifest(bytes.NewReader(b)); err == nil {
		desc.MediaType = m.MediaType
		if desc.MediaType == "" {
			desc.MediaType = types.OCIManifestSchema1
		}
		desc.ArtifactType = m.ResolveArtifactType()
		return &desc, nil
	}
	desc.MediaType = types.OctetStream
	return &desc, nil
}

// GetManifest reads and parses the manifest the reference resolves to.
func (s *Store) GetManifest(ctx context.Context, ref name.Layout) (*v1.Manifest, error) {
	desc, err := s.ProbeDescriptor(ctx, ref)
	if err != nil {
		return nil, err
	}
	if desc.MediaType.IsIndex() {
		return nil, errdef.New(errdef.KindInvalidState,
			"%s points at an index (probably a multi-platform image); use GetIndex", ref)
	}
	b, err := s.GetBlob(ctx, ref.WithDigest(desc.Digest.String()))
	if err != nil {
		return nil, err
	}
	m, err := v1.ParseManifest(bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	return m.WithDescriptor(*desc), nil
}

// GetIndex reads and parses the index the reference resolves to.
func (s *Store) GetIndex(ctx context.Context, ref name.Layout) (*v1.Index, error) {
	desc, err := s.ProbeDescriptor(ctx, ref)
	if err != nil {
		return nil, err
	}
	if desc.MediaType.IsManifest() {
		return nil, errdef.New(errdef.KindInvalidState,
			"%s points at a manifest, not an index; use GetManifest", ref)
	}
	b, err := s.GetBlob(ctx, ref.WithDigest(desc.Digest.String()))
	if err != nil {
		return nil, err
	}
	idx, err := v1.ParseIndex(bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	return idx.WithDescriptor(*desc), nil
}

// FetchBlob opens the blob the reference's digest names. The stream
// verifies the digest as it is consumed.
func (s *Store) FetchBlob(ctx context.Context, ref name.Layout) (io.ReadCloser, error) {
	dgst := ref.DigestStr()
	if dgst == "" {
		return nil, errdef.New(errdef.KindInvalidState, "fetching blob from %s: digest required", ref.Path)
	}
	h, err := v1.NewHash(dgst)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(blobPath(ref.Path, h))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errdef.New(errdef.KindNotFound, "digest %s not found in %s", dgst, ref.Path)
		}
		return nil, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	return verify.ReadCloser(f, info.Size(), h)
}

// GetBlob reads the blob the reference's digest names into memory.
func (s *Store) GetBlob(ctx context.Context, ref name.Layout) ([]byte, error) {
	rc, err := s.FetchBlob(ctx, ref)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

// FetchBlobTo streams the blob into the named file.
func (s *Store) FetchBlobTo(ctx context.Context, ref name.Layout, path string) error {
	rc, err := s.FetchBlob(ctx, ref)
	if err != nil {
		return err
	}
	defer rc.Close()
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, rc); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// HasBlob reports whether the blob the reference's digest names exists.
func (s *Store) HasBlob(ctx context.Context, ref name.Layout) (bool, error) {
	dgst := ref.DigestStr()
	if dgst == "" {
		return false, errdef.New(errdef.KindInvalidState, "probing blob in %s: digest required", ref.Path)
	}
	h, err := v1.NewHash(dgst)
	if err != nil {
		return false, err
	}
	if _, err := os.Stat(blobPath(ref.Path, h)); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// GetTags lists the tags recorded in index.json.
func (s *Store) GetTags(ctx context.Context, ref name.Layout) (*v1.Tags, error) {
	if err := checkLayout(ref); err != nil {
		return nil, err
	}
	idx, err := readIndex(ref)
	if err != nil {
		return nil, err
	}
	seen := map[string]bool{}
	tags := []string{}
	for _, d := range idx.Manifests {
		if t := d.Annotation(v1.AnnotationRefName); t != "" && !seen[t] {
			seen[t] = true
			tags = append(tags, t)
		}
	}
	sort.Strings(tags)
	return &v1.Tags{Name: ref.Path, Tags: tags}, nil
}

// GetRepositories returns the single synthetic repository a layout holds.
func (s *Store) GetRepositories(ctx context.Context, ref name.Layout) (*v1.Repositories, error) {
	if err := checkLayout(ref); err != nil {
		return nil, err
	}
	return &v1.Repositories{Repositories: []string{ref.Path}}, nil
}

// GetReferrers scans the layout for manifests whose subject is the
// reference's digest, optionally filtered by artifact type.
func (s *Store) GetReferrers(ctx context.Context, ref name.Layout, artifactType string) (*v1.Referrers, error) {
	dgst := ref.DigestStr()
	if dgst == "" {
		return nil, errdef.New(errdef.KindInvalidState, "getting referrers of %s: digest required", ref.Path)
	}
	if err := checkLayout(ref); err != nil {
		return nil, err
	}
	idx, err := readIndex(ref)
	if err != nil {
		return nil, err
	}

	// Walk every manifest reachable from index.json, nested indexes
	// included, and keep those whose subject matches.
	visited := map[v1.Hash]bool{}
	var out []v1.Descriptor
	var walk func(descs []v1.Descriptor) error
	walk = func(descs []v1.Descriptor) error {
		for _, d := range descs {
			if visited[d.Digest] {
				continue
			}
			visited[d.Digest] = true

			b, err := os.ReadFile(blobPath(ref.Path, d.Digest))
			if err != nil {
				if os.IsNotExist(err) {
					continue
				}
				return err
			}
			if d.MediaType.IsIndex() {
				child, err := v1.ParseIndex(bytes.NewReader(b))
				if err != nil {
					continue
				}
				if matchesSubject(child.Subject, dgst) {
					out = append(out, v1.Descriptor{
						MediaType:    d.MediaType,
						Digest:       d.Digest,
						Size:         int64(len(b)),
						ArtifactType: child.ArtifactType,
						Annotations:  child.Annotations,
					})
				}
				if err := walk(child.Manifests); err != nil {
					return err
				}
				continue
			}
			m, err := v1.ParseManifest(bytes.NewReader(b))
			if err != nil {
				continue
			}
			if matchesSubject(m.Subject, dgst) {
				out = append(out, v1.Descriptor{
					MediaType:    d.MediaType,
					Digest:       d.Digest,
					Size:         int64(len(b)),
					ArtifactType: m.ResolveArtifactType(),
					Annotations:  m.Annotations,
				})
			}
		}
		return nil
	}
	if err := walk(idx.Manifests); err != nil {
		return nil, err
	}
	return v1.NewReferrers(out).Filtered(artifactType), nil
}

func matchesSubject(subject *v1.Descriptor, dgst string) bool {
	return subject != nil && subject.Digest.String() == dgst
}
