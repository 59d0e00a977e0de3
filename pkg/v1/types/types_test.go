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

package types

import "testing"

func TestIsManifest(t *testing.T) {
	for _, mt := range []MediaType{
		OCIManifestSchema1, DockerManifestSchema2,
	} {
		if !mt.IsManifest() {
			t.Errorf("%s: should be manifest", mt)
		}
	}

	for _, mt := range []MediaType{
		OCIImageIndex,
		DockerManifestList,
		OCIConfigJSON,
		OCILayer,
		OctetStream,
	} {
		if mt.IsManifest() {
			t.Errorf("%s: should not be manifest", mt)
		}
	}
}

func TestIsIndex(t *testing.T) {
	for _, mt := range []MediaType{
		OCIImageIndex, DockerManifestList,
	} {
		if !mt.IsIndex() {
			t.Errorf("%s: should be index", mt)
		}
	}

	for _, mt := range []MediaType{
		OCIManifestSchema1,
		DockerManifestSchema2,
		OCIEmptyJSON,
		OCILayerZStd,
	} {
		if mt.IsIndex() {
			t.Errorf("%s: should not be index", mt)
		}
	}
}

func TestIsConfig(t *testing.T) {
	for _, mt := range []MediaType{
		OCIConfigJSON, OCIEmptyJSON, DockerConfigJSON,
	} {
		if !mt.IsConfig() {
			t.Errorf("%s: should be config", mt)
		}
	}
	if OCILayer.IsConfig() {
		t.Errorf("%s: should not be config", OCILayer)
	}
}

func TestIsLayer(t *testing.T) {
	for _, mt := range []MediaType{
		OCILayer, OCILayerZStd, OCIUncompressedLayer, DockerLayer, ORASArchiveZip,
	} {
		if !mt.IsLayer() {
			t.Errorf("%s: should be layer", mt)
		}
	}
	if OCIManifestSchema1.IsLayer() {
		t.Errorf("%s: should not be layer", OCIManifestSchema1)
	}
}
