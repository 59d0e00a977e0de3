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
	"encoding/json"

	ocispec "github.com/opencontainers/image-spec/specs-go/v1"

	"github.com/oras-community/go-oras/pkg/errdef"
)

// Annotation keys reserved by this library.
const (
	// AnnotationTitle names a layer; it controls the filename on pull.
	AnnotationTitle = ocispec.AnnotationTitle
	// AnnotationCreated is the RFC 3339 creation timestamp, stamped on push
	// when absent.
	AnnotationCreated = ocispec.AnnotationCreated
	// AnnotationRefName carries the tag inside a layout's index.json.
	AnnotationRefName = ocispec.AnnotationRefName
	// AnnotationContentDigest is the digest of the uncompressed tar inside a
	// compressed directory layer, verified on unpack.
	AnnotationContentDigest = "io.deis.oras.content.digest"
	// AnnotationUnpack marks a layer that should be unpacked on pull.
	AnnotationUnpack = "io.deis.oras.content.unpack"
)

// Keys reserved in the flat JSON form of Annotations.
const (
	annotationsManifestKey = "$manifest"
	annotationsConfigKey   = "$config"
)

// Annotations groups the annotation sets a caller can attach when pushing an
// artifact: one for the config, one for the manifest, and one per pushed
// file. Its JSON form is a flat object in which the keys "$manifest" and
// "$config" are reserved and every other key names a file.
type Annotations struct {
	Config   map[string]string
	Manifest map[string]string
	Files    map[string]map[string]string
}

// ParseAnnotations parses the flat JSON form.
func ParseAnnotations(b []byte) (*Annotations, error) {
	flat := map[string]map[string]string{}
	if err := json.Unmarshal(b, &flat); err != nil {
		return nil, errdef.Wrap(errdef.KindParse, err, "parsing annotations")
	}
	a := Annotations{}
	for k, v := range flat {
		switch k {
		case annotationsManifestKey:
			a.Manifest = v
		case annotationsConfigKey:
			a.Config = v
		default:
			if a.Files == nil {
				a.Files = map[string]map[string]string{}
			}
			a.Files[k] = v
		}
	}
	return &a, nil
}

// MarshalJSON implements json.Marshaler, producing the flat form. Empty
// buckets are omitted.
func (a Annotations) MarshalJSON() ([]byte, error) {
	flat := map[string]map[string]string{}
	if len(a.Manifest) > 0 {
		flat[annotationsManifestKey] = a.Manifest
	}
	if len(a.Config) > 0 {
		flat[annotationsConfigKey] = a.Config
	}
	for k, v := range a.Files {
		if len(v) > 0 {
			flat[k] = v
		}
	}
	return json.Marshal(flat)
}

// UnmarshalJSON implements json.Unmarshaler.
func (a *Annotations) UnmarshalJSON(b []byte) error {
	parsed, err := ParseAnnotations(b)
	if err != nil {
		return err
	}
	*a = *parsed
	return nil
}

// ForFile returns the annotation set for the named file, or nil.
func (a *Annotations) ForFile(name string) map[string]string {
	if a == nil {
		return nil
	}
	return a.Files[name]
}
