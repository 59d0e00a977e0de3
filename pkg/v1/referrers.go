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

// Referrers is the index-shaped response of the referrers API: the set of
// manifests whose subject points at a given digest.
type Referrers struct {
	MediaType types.MediaType `json:"mediaType"`
	Manifests []Descriptor    `json:"manifests"`
}

// NewReferrers returns a Referrers over the given descriptors.
func NewReferrers(manifests []Descriptor) *Referrers {
	if manifests == nil {
		manifests = []Descriptor{}
	}
	return &Referrers{
		MediaType: types.OCIImageIndex,
		Manifests: manifests,
	}
}

// Filtered returns a copy containing only descriptors with the given
// artifact type. An empty artifactType keeps everything.
func (r *Referrers) Filtered(artifactType string) *Referrers {
	if artifactType == "" {
		return r
	}
	kept := make([]Descriptor, 0, len(r.Manifests))
	for _, d := range r.Manifests {
		if d.ArtifactType == artifactType {
			kept = append(kept, d)
		}
	}
	return NewReferrers(kept)
}
