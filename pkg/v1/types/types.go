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

// Package types holds common OCI media types.
package types

// MediaType is an enumeration of the supported mime types that an element of
// an image might have.
type MediaType string

// The collection of known MediaType values.
const (
	OCIContentDescriptor MediaType = "application/vnd.oci.descriptor.v1+json"
	OCIImageIndex        MediaType = "application/vnd.oci.image.index.v1+json"
	OCIManifestSchema1   MediaType = "application/vnd.oci.image.manifest.v1+json"
	OCIConfigJSON        MediaType = "application/vnd.oci.image.config.v1+json"
	OCIEmptyJSON         MediaType = "application/vnd.oci.empty.v1+json"
	OCILayer             MediaType = "application/vnd.oci.image.layer.v1.tar+gzip"
	OCILayerZStd         MediaType = "application/vnd.oci.image.layer.v1.tar+zstd"
	OCIUncompressedLayer MediaType = "application/vnd.oci.image.layer.v1.tar"

	DockerManifestSchema2 MediaType = "application/vnd.docker.distribution.manifest.v2+json"
	DockerManifestList    MediaType = "application/vnd.docker.distribution.manifest.list.v2+json"
	DockerConfigJSON      MediaType = "application/vnd.docker.container.image.v1+json"
	DockerLayer           MediaType = "application/vnd.docker.image.rootfs.diff.tar.gzip"

	ORASArchiveZip MediaType = "application/vnd.oras.archive.v1+zip"

	UnknownArtifact MediaType = "application/vnd.unknown.artifact.v1"

	OctetStream MediaType = "application/octet-stream"
)

// IsManifest returns true if the mediaType represents a single-artifact
// manifest, as opposed to an index.
func (m MediaType) IsManifest() bool {
	switch m {
	case OCIManifestSchema1, DockerManifestSchema2:
		return true
	}
	return false
}

// IsIndex returns true if the mediaType represents an index, i.e. a
// manifest-of-manifests.
func (m MediaType) IsIndex() bool {
	switch m {
	case OCIImageIndex, DockerManifestList:
		return true
	}
	return false
}

// IsConfig returns true if the mediaType represents a config, as opposed to
// something else, like a layer.
func (m MediaType) IsConfig() bool {
	switch m {
	case OCIConfigJSON, OCIEmptyJSON, DockerConfigJSON:
		return true
	}
	return false
}

// IsLayer returns true if the mediaType is one of the registered layer
// archive types.
func (m MediaType) IsLayer() bool {
	switch m {
	case OCILayer, OCILayerZStd, OCIUncompressedLayer, DockerLayer, ORASArchiveZip:
		return true
	}
	return false
}

// AcceptableManifestTypes are the media types we send in Accept headers when
// we expect a single-artifact manifest.
var AcceptableManifestTypes = []MediaType{
	OCIManifestSchema1,
	DockerManifestSchema2,
}

// AcceptableIndexTypes are the media types we send in Accept headers when we
// expect an index.
var AcceptableIndexTypes = []MediaType{
	OCIImageIndex,
	DockerManifestList,
}

// AcceptableTypes is the union of manifest and index types, for requests
// where either shape is fine.
var AcceptableTypes = append(append([]MediaType{}, AcceptableManifestTypes...), AcceptableIndexTypes...)
