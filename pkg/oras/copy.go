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

// Package oras is the high-level entry point of the library: the
// cross-transport copy engine over the abstract store contract.
package oras

import (
	"context"
	"io"

	"golang.org/x/sync/errgroup"

	"github.com/oras-community/go-oras/pkg/errdef"
	"github.com/oras-community/go-oras/pkg/logs"
	"github.com/oras-community/go-oras/pkg/name"
	"github.com/oras-community/go-oras/pkg/store"
	v1 "github.com/oras-community/go-oras/pkg/v1"
)

// CopyOptions controls how much of the source graph a copy carries over.
type CopyOptions struct {
	// IncludeReferrers also copies manifests attached to the source via the
	// referrers API, transitively.
	IncludeReferrers bool
	// Recursive descends into indexes nested inside an index. When false, a
	// nested index is removed from the copied index.
	Recursive bool
}

// The common presets.
var (
	ShallowCopy = CopyOptions{}
	DeepCopy    = CopyOptions{IncludeReferrers: true, Recursive: true}
)

// WithRecursive returns a copy of the options with Recursive set to r.
func (o CopyOptions) WithRecursive(r bool) CopyOptions {
	o.Recursive = r
	return o
}

// WithReferrers returns a copy of the options with IncludeReferrers set to
// incl.
func (o CopyOptions) WithReferrers(incl bool) CopyOptions {
	o.IncludeReferrers = incl
	return o
}

// blobConcurrency bounds parallel blob pushes within one copy. Blobs always
// complete before the manifest that references them, and manifests before
// the index.
const blobConcurrency = 4

// Copy moves the artifact srcRef points at from src to tgt under tgtRef.
// Blobs are streamed, never buffered whole; content digests are verified on
// the way through. When one side's reference is unqualified, it inherits
// the other side's registry.
func Copy[S name.Ref[S], T name.Ref[T]](ctx context.Context, src store.Store[S], srcRef S, tgt store.Store[T], tgtRef T, opts CopyOptions) error {
	srcRef, tgtRef = normalizeRefs(srcRef, tgtRef)

	desc, err := src.ProbeDescriptor(ctx, srcRef)
	if err != nil {
		return err
	}

	// Every layer reachable from the root goes first, so that no manifest
	// is ever visible before its blobs.
	layers, err := src.CollectLayers(ctx, srcRef, desc.MediaType, true)
	if err != nil {
		return err
	}
	if err := copyBlobs(ctx, src, srcRef, tgt, tgtRef, layers); err != nil {
		return err
	}

	switch {
	case desc.MediaType.IsManifest():
		return copyManifest(ctx, src, srcRef, tgt, tgtRef, opts)
	case desc.MediaType.IsIndex():
		return copyIndex(ctx, src, srcRef, tgt, tgtRef, opts)
	default:
		return errdef.New(errdef.KindInvalidState, "cannot copy media type %s", desc.MediaType)
	}
}

// copyBlobs pushes the given blobs to the target. The stream supplier is
// lazy, so a target that already has a blob never touches the source.
func copyBlobs[S name.Ref[S], T name.Ref[T]](ctx context.Context, src store.Store[S], srcRef S, tgt store.Store[T], tgtRef T, blobs []v1.Descriptor) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(blobConcurrency)
	for _, b := range blobs {
		b := b
		g.Go(func() error {
			open := func() (io.ReadCloser, error) {
				return src.FetchBlob(gctx, srcRef.WithDigest(b.Digest.String()))
			}
			_, err := tgt.PushBlob(gctx, tgtRef.WithDigest(b.Digest.String()), b.Size, open, b.Annotations)
			return err
		})
	}
	return g.Wait()
}

// copyManifest moves a single manifest: config, then the manifest itself,
// then (optionally) its referrers. The caller has already moved the layers.
func copyManifest[S name.Ref[S], T name.Ref[T]](ctx context.Context, src store.Store[S], srcRef S, tgt store.Store[T], tgtRef T, opts CopyOptions) error {
	m, err := src.GetManifest(ctx, srcRef)
	if err != nil {
		return err
	}

	if err := copyConfig(ctx, src, srcRef, tgt, tgtRef, m.Config); err != nil {
		return err
	}

	if _, err := tgt.PushManifest(ctx, tgtRef, m); err != nil {
		return err
	}

	if opts.IncludeReferrers {
		digest, _, err := m.Digest(srcRef.Algorithm())
		if err != nil {
			return err
		}
		return copyReferrers(ctx, src, srcRef.WithDigest(digest.String()), tgt, tgtRef.WithDigest(digest.String()), opts)
	}
	return nil
}

// copyConfig pushes the config blob, from inline data when present,
// streaming from the source otherwise.
func copyConfig[S name.Ref[S], T name.Ref[T]](ctx context.Context, src store.Store[S], srcRef S, tgt store.Store[T], tgtRef T, cfg v1.Descriptor) error {
	open := func() (io.ReadCloser, error) {
		return src.FetchBlob(ctx, srcRef.WithDigest(cfg.Digest.String()))
	}
	if cfg.Data != nil {
		open = v1.BytesOpener(cfg.Data)
	}
	_, err := tgt.PushBlob(ctx, tgtRef.WithDigest(cfg.Digest.String()), cfg.Size, open, cfg.Annotations)
	return err
}

// copyIndex moves an index: each child manifest under its own digest, then
// the (possibly filtered) index under the target reference.
func copyIndex[S name.Ref[S], T name.Ref[T]](ctx context.Context, src store.Store[S], srcRef S, tgt store.Store[T], tgtRef T, opts CopyOptions) error {
	idx, err := src.GetIndex(ctx, srcRef)
	if err != nil {
		return err
	}

	out := idx
	for _, d := range idx.Manifests {
		switch {
		case d.MediaType.IsIndex():
			if !opts.Recursive {
				// A non-recursive copy does not descend; the nested index
				// would dangle, so it is dropped from the copied index.
				logs.Progress.Printf("skipping nested index %s", d.Digest)
				out = out.RemoveManifest(d.Digest)
				continue
			}
			if err := Copy(ctx, src, srcRef.WithDigest(d.Digest.String()), tgt, tgtRef.WithDigest(d.Digest.String()), opts); err != nil {
				return err
			}
		case d.MediaType.IsManifest():
			if err := copyManifest(ctx, src, srcRef.WithDigest(d.Digest.String()), tgt, tgtRef.WithDigest(d.Digest.String()), opts); err != nil {
				return err
			}
		default:
			// Unrecognized child; move it as an opaque blob.
			if err := copyBlobs(ctx, src, srcRef, tgt, tgtRef, []v1.Descriptor{d}); err != nil {
				return err
			}
		}
	}

	if _, err := tgt.PushIndex(ctx, tgtRef, out); err != nil {
		return err
	}

	if opts.IncludeReferrers {
		// The source only ever held the unfiltered index, so its referrers
		// hang off the original digest, not the digest of the filtered copy.
		digest, _, err := idx.Digest(srcRef.Algorithm())
		if err != nil {
			return err
		}
		return copyReferrers(ctx, src, srcRef.WithDigest(digest.String()), tgt, tgtRef.WithDigest(digest.String()), opts)
	}
	return nil
}

// copyReferrers recursively copies every manifest attached to the subject
// digest.
func copyReferrers[S name.Ref[S], T name.Ref[T]](ctx context.Context, src store.Store[S], srcRef S, tgt store.Store[T], tgtRef T, opts CopyOptions) error {
	refs, err := src.GetReferrers(ctx, srcRef, "")
	if err != nil {
		return err
	}
	for _, d := range refs.Manifests {
		if err := Copy(ctx, src, srcRef.WithDigest(d.Digest.String()), tgt, tgtRef.WithDigest(d.Digest.String()), opts); err != nil {
			return err
		}
	}
	return nil
}

// normalizeRefs lets an unqualified container reference inherit the other
// side's registry. References of other transports pass through untouched.
func normalizeRefs[S name.Ref[S], T name.Ref[T]](srcRef S, tgtRef T) (S, T) {
	s, sok := any(srcRef).(name.Container)
	t, tok := any(tgtRef).(name.Container)
	if !sok || !tok {
		return srcRef, tgtRef
	}
	switch {
	case t.Unqualified && !s.Unqualified:
		tgtRef = any(t.WithRegistry(s.Registry)).(T)
	case s.Unqualified && !t.Unqualified:
		srcRef = any(s.WithRegistry(t.Registry)).(S)
	}
	return srcRef, tgtRef
}
