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
	"strings"
	"testing"

	"github.com/oras-community/go-oras/pkg/v1/types"
)

func testDescriptor(hex byte) Descriptor {
	return Descriptor{
		MediaType: types.OCIManifestSchema1,
		Digest:    Hash{Algorithm: "sha256", Hex: strings.Repeat(string([]byte{hex}), 64)},
		Size:      42,
	}
}

func TestIndexRawPreservation(t *testing.T) {
	raw := `{
  "schemaVersion": 2,
  "mediaType": "application/vnd.oci.image.index.v1+json",
  "manifests": []
}`
	idx, err := ParseIndex(strings.NewReader(raw))
	if err != nil {
		t.Fatal(err)
	}
	got, err := idx.RawIndex()
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != raw {
		t.Errorf("RawIndex() re-encoded the original bytes:\n%s", got)
	}
}

func TestIndexRemoveManifest(t *testing.T) {
	a, b, c := testDescriptor('a'), testDescriptor('b'), testDescriptor('c')
	idx := NewIndex([]Descriptor{a, b, c})

	filtered := idx.RemoveManifest(b.Digest)
	if len(filtered.Manifests) != 2 {
		t.Fatalf("RemoveManifest left %d manifests, want 2", len(filtered.Manifests))
	}
	for _, d := range filtered.Manifests {
		if d.Digest == b.Digest {
			t.Error("RemoveManifest kept the removed digest")
		}
	}
	if len(idx.Manifests) != 3 {
		t.Error("RemoveManifest mutated the receiver")
	}

	// Filtering invalidates any retained serialization.
	before, _, err := idx.Digest(DefaultAlgorithm)
	if err != nil {
		t.Fatal(err)
	}
	after, _, err := filtered.Digest(DefaultAlgorithm)
	if err != nil {
		t.Fatal(err)
	}
	if before == after {
		t.Error("filtered index digest unchanged")
	}
}
