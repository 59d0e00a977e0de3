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

// Package layout implements the artifact store over an OCI image layout
// directory: oci-layout, index.json, and content-addressed blobs.
package layout

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"

	ocispec "github.com/opencontainers/image-spec/specs-go/v1"

	"github.com/oras-community/go-oras/internal/artifact"
	"github.com/oras-community/go-oras/pkg/errdef"
	"github.com/oras-community/go-oras/pkg/name"
	v1 "github.com/oras-community/go-oras/pkg/v1"
	"github.com/oras-community/go-oras/pkg/v1/types"
)

// layoutFile is the content of the oci-layout marker file.
var layoutFile = []byte(`{"imageLayoutVersion":"` + ocispec.ImageLayoutVersion + `"}`)

// Store is a layout-backed artifact store. A single Store may serve
// references on any folder; each reference carries the layout's path.
type Store struct{}

// NewStore returns a layout store.
func NewStore() *Store {
	return &Store{}
}

// checkLayout verifies that ref points at an existing layout directory.
func checkLayout(ref name.Layout) error {
	if _, err := os.Stat(filepath.Join(ref.Path, ocispec.ImageLayoutFile)); err != nil {
		if os.IsNotExist(err) {
			return errdef.New(errdef.KindNotFound, "%s is not an OCI image layout (missing %s)", ref.Path, ocispec.ImageLayoutFile)
		}
		return err
	}
	return nil
}

// ensureLayout creates the layout skeleton: the marker file, an empty
// index.json when absent, and the blobs directory.
func ensureLayout(ref name.Layout) error {
	if err := os.MkdirAll(filepath.Join(ref.Path, "blobs"), 0o755); err != nil {
		return err
	}
	marker := filepath.Join(ref.Path, ocispec.ImageLayoutFile)
	if _, err := os.Stat(marker); os.IsNotExist(err) {
		if err := os.WriteFile(marker, layoutFile, 0o644); err != nil {
			return err
		}
	}
	indexPath := filepath.Join(ref.Path, "index.json")
	if _, err := os.Stat(indexPath); os.IsNotExist(err) {
		raw, err := json.Marshal(v1.NewIndex(nil))
		if err != nil {
			return err
		}
		if err := os.WriteFile(indexPath, raw, 0o644); err != nil {
			return err
		}
	}
	return nil
}

// blobPath returns the content address of a digest inside the layout.
func blobPath(root string, h v1.Hash) string {
	return filepath.Join(root, "blobs", h.Algorithm, h.Hex)
}

// readIndex parses the top-level index.json.
func readIndex(ref name.Layout) (*v1.Index, error) {
	f, err := os.Open(filepath.Join(ref.Path, "index.json"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errdef.New(errdef.KindNotFound, "%s has no index.json", ref.Path)
		}
		return nil, err
	}
	defer f.Close()
	return v1.ParseIndex(f)
}

// writeIndex atomically replaces the top-level index.json.
func writeIndex(ref name.Layout, idx *v1.Index) error {
	raw, err := idx.RawIndex()
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(ref.Path, ".index-*.json")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), filepath.Join(ref.Path, "index.json"))
}

// CollectLayers gathers the layer descriptors reachable from ref, as in
// the registry store.
func (s *Store) CollectLayers(ctx context.Context, ref name.Layout, mediaType types.MediaType, includeAll bool) ([]v1.Descriptor, error) {
	return artifact.CollectLayers[name.Layout](ctx, s, ref, mediaType, includeAll)
}

// PushArtifact packs the given paths into layers and pushes them, the
// config, and the manifest under the reference.
func (s *Store) PushArtifact(ctx context.Context, ref name.Layout, artifactType string, annotations *v1.Annotations, config *v1.Descriptor, paths ...string) (*v1.Manifest, error) {
	return artifact.Push[name.Layout](ctx, s, ref, artifactType, annotations, config, paths)
}

// PullArtifact fetches the artifact's layers into dest, unpacking archive
// layers and naming files by their title annotation.
func (s *Store) PullArtifact(ctx context.Context, ref name.Layout, dest string, overwrite bool) error {
	return artifact.Pull[name.Layout](ctx, s, ref, dest, overwrite)
}

// AttachArtifact pushes an artifact whose subject is the manifest the
// reference currently points at.
func (s *Store) AttachArtifact(ctx context.Context, ref name.Layout, artifactType string, annotations *v1.Annotations, paths ...string) (*v1.Manifest, error) {
	return artifact.Attach[name.Layout](ctx, s, ref, artifactType, annotations, paths)
}
