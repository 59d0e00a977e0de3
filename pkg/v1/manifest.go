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

// Manifest represents the OCI image manifest in a structured way. A Manifest
// fetched from a store retains the exact bytes it was parsed from, so that
// re-serializing it yields the same digest. Any With* mutation drops the
// retained bytes.
type Manifest struct {
	SchemaVersion int64             `json:"schemaVersion"`
	MediaType     types.MediaType   `json:"mediaType,omitempty"`
	ArtifactType  string            `json:"artifactType,omitempty"`
	Config        Descriptor        `json:"config"`
	Layers        []Descriptor      `json:"layers"`
	Subject       *Descriptor       `json:"subject,omitempty"`
	Annotations   map[string]string `json:"annotations,omitempty"`

	raw        []byte
	descriptor *Descriptor
}

// NewManifest returns a manifest for the given config and layers.
func NewManifest(config Descriptor, layers []Descriptor) *Manifest {
	if layers == nil {
		layers = []Descriptor{}
	}
	return &Manifest{
		SchemaVersion: 2,
		MediaType:     types.OCIManifestSchema1,
		Config:        config,
		Layers:        layers,
	}
}

// ParseManifest parses the io.Reader's contents into a Manifest, retaining
// the original bytes.
func ParseManifest(r io.Reader) (*Manifest, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	m := Manifest{}
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, errdef.Wrap(errdef.KindParse, err, "parsing manifest")
	}
	m.raw = b
	return &m, nil
}

// RawManifest returns the serialized bytes of the manifest: the original
// bytes when the manifest was fetched and has not been modified since,
// otherwise a fresh serialization.
func (m *Manifest) RawManifest() ([]byte, error) {
	if m.raw != nil {
		return m.raw, nil
	}
	return json.Marshal(m)
}

// Digest returns the digest of the serialized manifest, computed with the
// given algorithm, along with its size.
func (m *Manifest) Digest(algorithm string) (Hash, int64, error) {
	if m.descriptor != nil && m.descriptor.Digest.Algorithm == algorithm {
		return m.descriptor.Digest, m.descriptor.Size, nil
	}
	raw, err := m.RawManifest()
	if err != nil {
		return Hash{}, 0, err
	}
	return Compute(algorithm, bytes.NewReader(raw))
}

// Descriptor returns the descriptor identifying this manifest. When the
// manifest was fetched or pushed, this is the store-assigned descriptor;
// otherwise it is computed with the given algorithm.
func (m *Manifest) Descriptor(algorithm string) (Descriptor, error) {
	if m.descriptor != nil {
		return *m.descriptor, nil
	}
	digest, size, err := m.Digest(algorithm)
	if err != nil {
		return Descriptor{}, err
	}
	mt := m.MediaType
	if mt == "" {
		mt = types.OCIManifestSchema1
	}
	return Descriptor{
		MediaType:    mt,
		Digest:       digest,
		Size:         size,
		ArtifactType: m.ResolveArtifactType(),
	}, nil
}

// WithDescriptor returns a copy of the manifest carrying the store-assigned
// descriptor. The retained raw bytes survive, since the content is unchanged.
func (m Manifest) WithDescriptor(d Descriptor) *Manifest {
	m.descriptor = &d
	return &m
}

// WithConfig returns a copy of the manifest with the given config.
func (m Manifest) WithConfig(config Descriptor) *Manifest {
	m.Config = config
	m.invalidate()
	return &m
}

// WithLayers returns a copy of the manifest with the given layers.
func (m Manifest) WithLayers(layers []Descriptor) *Manifest {
	m.Layers = layers
	m.invalidate()
	return &m
}

// WithSubject returns a copy of the manifest attached to the given subject.
func (m Manifest) WithSubject(subject *Descriptor) *Manifest {
	m.Subject = subject
	m.invalidate()
	return &m
}

// WithArtifactType returns a copy of the manifest with the given artifact type.
func (m Manifest) WithArtifactType(artifactType string) *Manifest {
	m.ArtifactType = artifactType
	m.invalidate()
	return &m
}

// WithAnnotations returns a copy of the manifest with the given annotations.
func (m Manifest) WithAnnotations(ann map[string]string) *Manifest {
	m.Annotations = ann
	m.invalidate()
	return &m
}

// invalidate drops state derived from the serialized form.
func (m *Manifest) invalidate() {
	m.raw = nil
	m.descriptor = nil
}

// ResolveArtifactType resolves the artifact type of the manifest. The
// explicit field wins, then the config media type, then the generic
// unknown-artifact type.
func (m *Manifest) ResolveArtifactType() string {
	if m.ArtifactType != "" {
		return m.ArtifactType
	}
	if m.Config.MediaType != "" && m.Config.MediaType != types.OCIEmptyJSON {
		return string(m.Config.MediaType)
	}
	return string(types.UnknownArtifact)
}
