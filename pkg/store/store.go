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

// Package store defines the contract shared by the registry and the image
// layout transports. The copy engine is written against this interface; the
// reference type parameter keeps each transport's references from leaking
// into the other.
package store

import (
	"context"
	"io"

	"github.com/oras-community/go-oras/pkg/name"
	v1 "github.com/oras-community/go-oras/pkg/v1"
	"github.com/oras-community/go-oras/pkg/v1/types"
)

// Store is the abstract artifact store.
type Store[R name.Ref[R]] interface {
	// GetTags lists the tags of the reference's repository.
	GetTags(ctx context.Context, ref R) (*v1.Tags, error)
	// GetRepositories lists the repositories the store holds. Only the
	// location portion of ref is used; a layout reports a single synthetic
	// entry.
	GetRepositories(ctx context.Context, ref R) (*v1.Repositories, error)

	// PushArtifact packs paths into layers and pushes layers, config, and
	// manifest under ref.
	PushArtifact(ctx context.Context, ref R, artifactType string, annotations *v1.Annotations, config *v1.Descriptor, paths ...string) (*v1.Manifest, error)
	// PullArtifact fetches the artifact's files into dest.
	PullArtifact(ctx context.Context, ref R, dest string, overwrite bool) error
	// AttachArtifact pushes an artifact whose subject is the manifest ref
	// points at.
	AttachArtifact(ctx context.Context, ref R, artifactType string, annotations *v1.Annotations, paths ...string) (*v1.Manifest, error)

	// PushManifest pushes a manifest under ref; the returned copy carries
	// the store-assigned descriptor.
	PushManifest(ctx context.Context, ref R, m *v1.Manifest) (*v1.Manifest, error)
	// PushIndex pushes an index under ref.
	PushIndex(ctx context.Context, ref R, i *v1.Index) (*v1.Index, error)
	// GetManifest fetches a single-artifact manifest; an index-typed ref is
	// an error.
	GetManifest(ctx context.Context, ref R) (*v1.Manifest, error)
	// GetIndex fetches an index.
	GetIndex(ctx context.Context, ref R) (*v1.Index, error)
	// GetDescriptor resolves ref to a descriptor, reading the content.
	GetDescriptor(ctx context.Context, ref R) (*v1.Descriptor, error)
	// ProbeDescriptor resolves ref to a descriptor without reading the
	// content body.
	ProbeDescriptor(ctx context.Context, ref R) (*v1.Descriptor, error)

	// GetBlob reads the blob named by ref's digest into memory.
	GetBlob(ctx context.Context, ref R) ([]byte, error)
	// FetchBlob opens the blob named by ref's digest; the stream verifies
	// the digest as it is consumed.
	FetchBlob(ctx context.Context, ref R) (io.ReadCloser, error)
	// FetchBlobTo streams the blob into the named file.
	FetchBlobTo(ctx context.Context, ref R, path string) error
	// HasBlob reports whether the blob named by ref's digest exists.
	HasBlob(ctx context.Context, ref R) (bool, error)
	// PushBlob uploads blob content. The open supplier is lazy: a store
	// that already has the content never invokes it.
	PushBlob(ctx context.Context, ref R, size int64, open v1.Opener, annotations map[string]string) (*v1.Layer, error)

	// GetReferrers lists manifests whose subject is ref's digest.
	GetReferrers(ctx context.Context, ref R, artifactType string) (*v1.Referrers, error)

	// CollectLayers gathers the layer descriptors reachable from ref.
	CollectLayers(ctx context.Context, ref R, mediaType types.MediaType, includeAll bool) ([]v1.Descriptor, error)
}
