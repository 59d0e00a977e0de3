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

// Package artifact implements the transport-independent halves of artifact
// push, pull, and attach: packing paths into layers, unpacking layers into
// files, and assembling manifests. Both the registry and the layout stores
// delegate here.
package artifact

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/oras-community/go-oras/pkg/errdef"
	"github.com/oras-community/go-oras/pkg/logs"
	"github.com/oras-community/go-oras/pkg/name"
	v1 "github.com/oras-community/go-oras/pkg/v1"
	"github.com/oras-community/go-oras/pkg/v1/types"
)

// Store is the subset of store operations the artifact engine needs.
type Store[R name.Ref[R]] interface {
	ProbeDescriptor(ctx context.Context, ref R) (*v1.Descriptor, error)
	GetManifest(ctx context.Context, ref R) (*v1.Manifest, error)
	GetIndex(ctx context.Context, ref R) (*v1.Index, error)
	FetchBlob(ctx context.Context, ref R) (io.ReadCloser, error)
	PushBlob(ctx context.Context, ref R, size int64, open v1.Opener, annotations map[string]string) (*v1.Layer, error)
	PushManifest(ctx context.Context, ref R, m *v1.Manifest) (*v1.Manifest, error)
}

// CollectLayers gathers the layer descriptors reachable from ref. A
// manifest contributes all of its layers. An index contributes the union of
// its manifests' layers, keeping untitled layers only when includeAll is
// set.
func CollectLayers[R name.Ref[R]](ctx context.Context, s Store[R], ref R, mediaType types.MediaType, includeAll bool) ([]v1.Descriptor, error) {
	if mediaType == "" {
		desc, err := s.ProbeDescriptor(ctx, ref)
		if err != nil {
			return nil, err
		}
		mediaType = desc.MediaType
	}

	switch {
	case mediaType.IsManifest():
		m, err := s.GetManifest(ctx, ref)
		if err != nil {
			return nil, err
		}
		return m.Layers, nil
	case mediaType.IsIndex():
		idx, err := s.GetIndex(ctx, ref)
		if err != nil {
			return nil, err
		}
		var out []v1.Descriptor
		seen := map[v1.Hash]bool{}
		for _, d := range idx.Manifests {
			if !d.MediaType.IsManifest() {
				continue
			}
			m, err := s.GetManifest(ctx, ref.WithDigest(d.Digest.String()))
			if err != nil {
				return nil, err
			}
			for _, l := range m.Layers {
				if seen[l.Digest] {
					continue
				}
				if l.Annotation(v1.AnnotationTitle) == "" && !includeAll {
					continue
				}
				seen[l.Digest] = true
				out = append(out, l)
			}
		}
		return out, nil
	default:
		return nil, errdef.New(errdef.KindInvalidState, "cannot collect layers of media type %s", mediaType)
	}
}

// Push packs paths into layers and pushes the layers and config, then the
// manifest, under ref.
func Push[R name.Ref[R]](ctx context.Context, s Store[R], ref R, artifactType string, annotations *v1.Annotations, config *v1.Descriptor, paths []string) (*v1.Manifest, error) {
	if annotations == nil {
		annotations = &v1.Annotations{}
	}

	layers, cleanup, err := packPaths(paths, ref.Algorithm(), annotations)
	defer cleanup()
	if err != nil {
		return nil, err
	}

	var cfg v1.Descriptor
	if config != nil {
		cfg = config.WithAnnotations(annotations.Config)
	} else {
		cfg = v1.EmptyConfig().WithAnnotations(annotations.Config)
	}
	if cfg.Data == nil {
		return nil, errdef.New(errdef.KindInvalidState, "pushing %s: config without inline data", ref.Name())
	}

	// Layers go up first, in parallel; the config joins them; the manifest
	// only after every blob it references is durable.
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	descs := make([]v1.Descriptor, len(layers))
	for i, l := range layers {
		i, l := i, l
		descs[i] = l.Descriptor
		g.Go(func() error {
			_, err := s.PushBlob(gctx, ref.WithDigest(l.Digest.String()), l.Size, l.Open, l.Annotations)
			return err
		})
	}
	g.Go(func() error {
		data := cfg.Data
		_, err := s.PushBlob(gctx, ref.WithDigest(cfg.Digest.String()), cfg.Size, v1.BytesOpener(data), cfg.Annotations)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	m := v1.NewManifest(cfg, descs).
		WithArtifactType(artifactType).
		WithAnnotations(stampCreated(annotations.Manifest))

	pushed, err := s.PushManifest(ctx, ref, m)
	if err != nil {
		return nil, err
	}
	logs.Progress.Printf("pushed artifact %s", ref)
	return pushed, nil
}

// Attach pushes an artifact whose subject is the manifest ref currently
// points at. The artifact manifest is addressed by its own digest.
func Attach[R name.Ref[R]](ctx context.Context, s Store[R], ref R, artifactType string, annotations *v1.Annotations, paths []string) (*v1.Manifest, error) {
	if artifactType == "" {
		return nil, errdef.New(errdef.KindInvalidState, "attaching to %s: artifact type required", ref.Name())
	}
	if annotations == nil {
		annotations = &v1.Annotations{}
	}

	subject, err := s.ProbeDescriptor(ctx, ref)
	if err != nil {
		return nil, err
	}

	layers, cleanup, err := packPaths(paths, ref.Algorithm(), annotations)
	defer cleanup()
	if err != nil {
		return nil, err
	}

	cfg := v1.EmptyConfig().WithAnnotations(annotations.Config)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	descs := make([]v1.Descriptor, len(layers))
	for i, l := range layers {
		i, l := i, l
		descs[i] = l.Descriptor
		g.Go(func() error {
			_, err := s.PushBlob(gctx, ref.WithDigest(l.Digest.String()), l.Size, l.Open, l.Annotations)
			return err
		})
	}
	g.Go(func() error {
		_, err := s.PushBlob(gctx, ref.WithDigest(cfg.Digest.String()), cfg.Size, v1.BytesOpener(cfg.Data), cfg.Annotations)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	m := v1.NewManifest(cfg, descs).
		WithArtifactType(artifactType).
		WithSubject(&v1.Descriptor{
			MediaType: subject.MediaType,
			Digest:    subject.Digest,
			Size:      subject.Size,
		}).
		WithAnnotations(stampCreated(annotations.Manifest))

	digest, _, err := m.Digest(ref.Algorithm())
	if err != nil {
		return nil, err
	}
	return s.PushManifest(ctx, ref.WithDigest(digest.String()), m)
}

// stampCreated returns ann with the created timestamp added when absent.
func stampCreated(ann map[string]string) map[string]string {
	out := map[string]string{}
	for k, v := range ann {
		out[k] = v
	}
	if _, ok := out[v1.AnnotationCreated]; !ok {
		out[v1.AnnotationCreated] = time.Now().UTC().Format(time.RFC3339)
	}
	return out
}

// packPaths turns each path into a layer: files become content-typed blobs,
// directories are archived. The returned cleanup removes any staging files
// and is safe to call on every exit path.
func packPaths(paths []string, algorithm string, annotations *v1.Annotations) ([]v1.Layer, func(), error) {
	var staged []string
	cleanup := func() {
		for _, p := range staged {
			os.Remove(p)
		}
	}

	layers := make([]v1.Layer, 0, len(paths))
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, cleanup, err
		}
		fileAnn := annotations.ForFile(filepath.Base(p))

		var layer v1.Layer
		if info.IsDir() {
			tmp, layerOpts, err := packDirectory(p, algorithm)
			if tmp != "" {
				staged = append(staged, tmp)
			}
			if err != nil {
				return nil, cleanup, err
			}
			layerOpts = append(layerOpts, v1.WithLayerAnnotations(fileAnn))
			layer, err = v1.NewLayerFromFile(tmp, layerOpts...)
			if err != nil {
				return nil, cleanup, err
			}
		} else {
			layer, err = v1.NewLayerFromFile(p,
				v1.WithLayerAlgorithm(algorithm),
				v1.WithLayerAnnotations(fileAnn))
			if err != nil {
				return nil, cleanup, err
			}
		}
		layers = append(layers, layer)
	}
	return layers, cleanup, nil
}
