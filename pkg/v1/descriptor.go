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
	"github.com/oras-community/go-oras/pkg/v1/types"
)

// Descriptor holds a reference from the manifest to one of its constituent elements.
type Descriptor struct {
	MediaType    types.MediaType   `json:"mediaType"`
	Size         int64             `json:"size"`
	Digest       Hash              `json:"digest"`
	Data         []byte            `json:"data,omitempty"`
	URLs         []string          `json:"urls,omitempty"`
	Annotations  map[string]string `json:"annotations,omitempty"`
	Platform     *Platform         `json:"platform,omitempty"`
	ArtifactType string            `json:"artifactType,omitempty"`
}

// WithAnnotations returns a copy of d with the given annotations merged on
// top of the existing set. Empty maps never survive into the copy, so they
// are omitted when serialized.
func (d Descriptor) WithAnnotations(ann map[string]string) Descriptor {
	if len(ann) == 0 {
		return d
	}
	merged := make(map[string]string, len(d.Annotations)+len(ann))
	for k, v := range d.Annotations {
		merged[k] = v
	}
	for k, v := range ann {
		merged[k] = v
	}
	d.Annotations = merged
	return d
}

// WithPlatform returns a copy of d targeting the given platform.
func (d Descriptor) WithPlatform(p *Platform) Descriptor {
	if p != nil {
		cp := *p
		d.Platform = &cp
	} else {
		d.Platform = nil
	}
	return d
}

// WithArtifactType returns a copy of d with the given artifact type.
func (d Descriptor) WithArtifactType(artifactType string) Descriptor {
	d.ArtifactType = artifactType
	return d
}

// Annotation returns the value of the named annotation, or "".
func (d Descriptor) Annotation(key string) string {
	return d.Annotations[key]
}
