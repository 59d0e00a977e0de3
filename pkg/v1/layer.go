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
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/oras-community/go-oras/pkg/errdef"
	"github.com/oras-community/go-oras/pkg/v1/types"
)

// Layer is a descriptor whose content can be opened. The content lives in
// exactly one place: inline bytes, a local file, or a remote blob reachable
// only through a store. The constructors enforce the exclusivity.
type Layer struct {
	Descriptor

	data []byte
	path string
}

// LayerOption mutates a layer at construction time.
type LayerOption func(*layerOptions)

type layerOptions struct {
	mediaType   types.MediaType
	algorithm   string
	annotations map[string]string
	title       string
}

// WithLayerMediaType overrides the detected media type.
func WithLayerMediaType(mt types.MediaType) LayerOption {
	return func(o *layerOptions) {
		o.mediaType = mt
	}
}

// WithLayerAlgorithm overrides the digest algorithm.
func WithLayerAlgorithm(algorithm string) LayerOption {
	return func(o *layerOptions) {
		o.algorithm = algorithm
	}
}

// WithLayerAnnotations merges the given annotations into the layer.
func WithLayerAnnotations(ann map[string]string) LayerOption {
	return func(o *layerOptions) {
		for k, v := range ann {
			o.annotations[k] = v
		}
	}
}

// WithLayerTitle overrides the title annotation (by default the base name
// of the file).
func WithLayerTitle(title string) LayerOption {
	return func(o *layerOptions) {
		o.title = title
	}
}

// NewLayerFromFile returns a layer whose content is the named file. The
// title annotation is set to the file's base name and the media type is
// probed from the content unless overridden.
func NewLayerFromFile(path string, opts ...LayerOption) (Layer, error) {
	o := layerOptions{
		algorithm:   DefaultAlgorithm,
		annotations: map[string]string{},
		title:       filepath.Base(path),
	}
	for _, opt := range opts {
		opt(&o)
	}

	f, err := os.Open(path)
	if err != nil {
		return Layer{}, err
	}
	defer f.Close()

	mt := o.mediaType
	if mt == "" {
		probed, err := probeContentType(f)
		if err != nil {
			return Layer{}, err
		}
		mt = probed
		if _, err := f.Seek(0, io.SeekStart); err != nil {
			return Layer{}, err
		}
	}

	digest, size, err := Compute(o.algorithm, f)
	if err != nil {
		return Layer{}, err
	}

	o.annotations[AnnotationTitle] = o.title
	return Layer{
		Descriptor: Descriptor{
			MediaType:   mt,
			Digest:      digest,
			Size:        size,
			Annotations: o.annotations,
		},
		path: path,
	}, nil
}

// NewLayerFromData returns a layer over the given bytes, retained inline.
func NewLayerFromData(data []byte, opts ...LayerOption) (Layer, error) {
	o := layerOptions{
		mediaType:   types.OCIUncompressedLayer,
		algorithm:   DefaultAlgorithm,
		annotations: map[string]string{},
	}
	for _, opt := range opts {
		opt(&o)
	}

	digest, size, err := Compute(o.algorithm, bytes.NewReader(data))
	if err != nil {
		return Layer{}, err
	}
	if o.title != "" {
		o.annotations[AnnotationTitle] = o.title
	}
	var ann map[string]string
	if len(o.annotations) > 0 {
		ann = o.annotations
	}
	return Layer{
		Descriptor: Descriptor{
			MediaType:   o.mediaType,
			Digest:      digest,
			Size:        size,
			Annotations: ann,
		},
		data: data,
	}, nil
}

// RemoteLayer returns a layer for a blob that lives in a store; its content
// must be fetched through that store.
func RemoteLayer(d Descriptor) Layer {
	return Layer{Descriptor: d}
}

// Opener is a lazy provider of a layer's content stream, allowing a target
// to skip opening the source entirely when the blob already exists.
type Opener func() (io.ReadCloser, error)

// BytesOpener returns an Opener over in-memory content.
func BytesOpener(b []byte) Opener {
	return func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(b)), nil
	}
}

// FileOpener returns an Opener over the named file.
func FileOpener(path string) Opener {
	return func() (io.ReadCloser, error) {
		return os.Open(path)
	}
}

// Local reports whether the layer's content is available without a store.
func (l Layer) Local() bool {
	return l.data != nil || l.path != ""
}

// Open returns the layer's content. It fails with an invalid-state error
// for remote layers.
func (l Layer) Open() (io.ReadCloser, error) {
	if l.data != nil {
		return io.NopCloser(bytes.NewReader(l.data)), nil
	}
	if l.path != "" {
		return os.Open(l.path)
	}
	return nil, errdef.New(errdef.KindInvalidState, "layer %s has no local content", l.Digest)
}

// probeContentType sniffs the media type from the first bytes of r.
func probeContentType(r io.Reader) (types.MediaType, error) {
	buf := make([]byte, 512)
	n, err := io.ReadFull(r, buf)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return "", err
	}
	return types.MediaType(http.DetectContentType(buf[:n])), nil
}
