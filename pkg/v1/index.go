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
	"encoding/json"
	"io"

	"github.com/oras-community/go-oras/pkg/errdef"
	"github.com/oras-community/go-oras/pkg/v1/types"
)

// Index represents an OCI image index, a manifest-of-manifests. Like
// Manifest, a fetched Index retains its original bytes until mutated.
type Index struct {
	SchemaVersion int64             `json:"schemaVersion"`
	MediaType     types.MediaType   `json:"mediaType,omitempty"`
	ArtifactType  string            `json:"artifactType,omitempty"`
	Manifests     []Descriptor      `json:"manifests"`
	Subject       *Descriptor       `json:"subject,omitempty"`
	Annotations   map[string]string `json:"annotations,omitempty"`

	raw        []byte
	descriptor *Descriptor
}

// NewIndex returns an index over the given manifest descriptors.
func NewIndex(manifests []Descriptor) *Index {
	if manifests == nil {
		manifests = []Descriptor{}
	}
	return &Index{
		SchemaVersion: 2,
		MediaType:     types.OCIImageIndex,
		Manifests:     manifests,
	}
}

// ParseIndex parses the io.Reader's contents into an Index, retaining the
// original bytes.
func ParseIndex(r io.Reader) (*Index, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	i := Index{}
	if err := json.Unmarshal(b, &i); err != nil {
		return nil, errdef.Wrap(errdef.KindParse, err, "parsing index")
	}
	i.raw = b
	return &i, nil
}

// RawIndex returns the serialized bytes of the index: the original bytes
// when available, otherwise a fresh serialization.
func (i *Index) RawIndex() ([]byte, error) {
	if i.raw != nil {
		return i.raw, nil
	}
	return json.Marshal(i)
}

// Digest returns the digest of the serialized index, computed with the
// given algorithm, along with its size.
func (i *Index) Digest(algorithm string) (Hash, int64, error) {
	if i.descriptor != nil && i.descriptor.Digest.Algorithm == algorithm {
		return i.descriptor.Digest, i.descriptor.Size, nil
	}
	raw, err := i.RawIndex()
	if err != nil {
		return Hash{}, 0, err
	}
	return Compute(algorithm, bytes.NewReader(raw))
}

// Descriptor returns the descriptor identifying this index.
func (i *Index) Descriptor(algorithm string) (Descriptor, error) {
	if i.descriptor != nil {
		return *i.descriptor, nil
	}
	digest, size, err := i.Digest(algorithm)
	if err != nil {
		return Descriptor{}, err
	}
	mt := i.MediaType
	if mt == "" {
		mt = types.OCIImageIndex
	}
	return Descriptor{
		MediaType: mt,
		Digest:    digest,
		Size:      size,
	}, nil
}

// WithDescriptor returns a copy of the index carrying the store-assigned
// descriptor.
func (i Index) WithDescriptor(d Descriptor) *Index {
	i.descriptor = &d
	return &i
}

// WithManifests returns a copy of the index over the given descriptors.
func (i Index) WithManifests(manifests []Descriptor) *Index {
	i.Manifests = manifests
	i.invalidate()
	return &i
}

// WithAnnotations returns a copy of the index with the given annotations.
func (i Index) WithAnnotations(ann map[string]string) *Index {
	i.Annotations = ann
	i.invalidate()
	return &i
}

// RemoveManifest returns a copy of the index without any descriptor whose
// digest matches. Used when a non-recursive copy skips a nested index.
func (i Index) RemoveManifest(digest Hash) *Index {
	kept := make([]Descriptor, 0, len(i.Manifests))
	for _, d := range i.Manifests {
		if d.Digest != digest {
			kept = append(kept, d)
		}
	}
	i.Manifests = kept
	i.invalidate()
	return &i
}

func (i *Index) invalidate() {
	i.raw = nil
	i.descriptor = nil
}
