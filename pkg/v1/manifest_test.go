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
	"strings"
	"testing"

	"github.com/oras-community/go-oras/pkg/v1/types"
)

func TestEmptyConfig(t *testing.T) {
	cfg := EmptyConfig()
	if got, want := string(cfg.Data), "{}"; got != want {
		t.Errorf("Data = %q, want %q", got, want)
	}
	if got, want := cfg.Digest.String(), "sha256:44136fa355b3678a1146ad16f7e8649e94fb4fc21fe77e8310c060f61caaff8a"; got != want {
		t.Errorf("Digest = %q, want %q", got, want)
	}
	if cfg.Size != 2 {
		t.Errorf("Size = %d, want 2", cfg.Size)
	}
	if cfg.MediaType != types.OCIEmptyJSON {
		t.Errorf("MediaType = %q, want %q", cfg.MediaType, types.OCIEmptyJSON)
	}

	// The inline data must hash to the declared digest.
	h, n, err := SHA256(bytes.NewReader(cfg.Data))
	if err != nil {
		t.Fatal(err)
	}
	if h != cfg.Digest || n != cfg.Size {
		t.Errorf("recomputed (%v, %d) != declared (%v, %d)", h, n, cfg.Digest, cfg.Size)
	}
}

// Whitespace and key order in hand-written manifest JSON must survive a
// parse/serialize round trip, or the digest changes.
const rawManifest = `{
   "schemaVersion": 2,
   "mediaType":     "application/vnd.oci.image.manifest.v1+json",
   "config": {"mediaType": "application/vnd.oci.empty.v1+json", "digest": "sha256:44136fa355b3678a1146ad16f7e8649e94fb4fc21fe77e8310c060f61caaff8a", "size": 2},
   "layers": []
}`

func TestManifestRawPreservation(t *testing.T) {
	m, err := ParseManifest(strings.NewReader(rawManifest))
	if err != nil {
		t.Fatal(err)
	}

	raw, err := m.RawManifest()
	if err != nil {
		t.Fatal(err)
	}
	if string(raw) != rawManifest {
		t.Errorf("RawManifest() re-encoded the original bytes:\n%s", raw)
	}

	wantDigest, _, err := SHA256(strings.NewReader(rawManifest))
	if err != nil {
		t.Fatal(err)
	}
	gotDigest, _, err := m.Digest(DefaultAlgorithm)
	if err != nil {
		t.Fatal(err)
	}
	if gotDigest != wantDigest {
		t.Errorf("Digest() = %v, want %v", gotDigest, wantDigest)
	}

	// Reparsing the serialized form yields the same digest.
	again, err := ParseManifest(bytes.NewReader(raw))
	if err != nil {
		t.Fatal(err)
	}
	againDigest, _, err := again.Digest(DefaultAlgorithm)
	if err != nil {
		t.Fatal(err)
	}
	if againDigest != wantDigest {
		t.Errorf("reparsed Digest() = %v, want %v", againDigest, wantDigest)
	}
}

func TestManifestMutationDropsRaw(t *testing.T) {
	m, err := ParseManifest(strings.NewReader(rawManifest))
	if err != nil {
		t.Fatal(err)
	}
	before, _, err := m.Digest(DefaultAlgorithm)
	if err != nil {
		t.Fatal(err)
	}

	mutated := m.WithAnnotations(map[string]string{"org.example.key": "value"})
	after, _, err := mutated.Digest(DefaultAlgorithm)
	if err != nil {
		t.Fatal(err)
	}
	if before == after {
		t.Error("mutation did not change the digest")
	}

	// The original is untouched.
	unchanged, _, err := m.Digest(DefaultAlgorithm)
	if err != nil {
		t.Fatal(err)
	}
	if unchanged != before {
		t.Error("WithAnnotations mutated the receiver")
	}
}

func TestManifestDescriptorPreserved(t *testing.T) {
	m, err := ParseManifest(strings.NewReader(rawManifest))
	if err != nil {
		t.Fatal(err)
	}
	want := Descriptor{
		MediaType: types.OCIManifestSchema1,
		Digest:    Hash{Algorithm: "sha256", Hex: strings.Repeat("ab", 32)},
		Size:      123,
	}
	got, err := m.WithDescriptor(want).Descriptor(DefaultAlgorithm)
	if err != nil {
		t.Fatal(err)
	}
	if got.Digest != want.Digest || got.Size != want.Size {
		t.Errorf("Descriptor() = %+v, want %+v", got, want)
	}
}

func TestResolveArtifactType(t *testing.T) {
	empty := EmptyConfig()

	m := NewManifest(empty, nil)
	if got, want := m.ResolveArtifactType(), string(types.UnknownArtifact); got != want {
		t.Errorf("ResolveArtifactType() = %q, want %q", got, want)
	}

	m = m.WithConfig(Descriptor{MediaType: "application/vnd.example.config.v1+json"})
	if got, want := m.ResolveArtifactType(), "application/vnd.example.config.v1+json"; got != want {
		t.Errorf("ResolveArtifactType() = %q, want %q", got, want)
	}

	m = m.WithArtifactType("application/vnd.example.thing")
	if got, want := m.ResolveArtifactType(), "application/vnd.example.thing"; got != want {
		t.Errorf("ResolveArtifactType() = %q, want %q", got, want)
	}
}
