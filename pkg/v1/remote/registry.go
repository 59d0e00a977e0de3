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

// Package remote implements the registry-backed artifact store over the
// OCI distribution API.
package remote

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/oras-community/go-oras/internal/artifact"
	"github.com/oras-community/go-oras/internal/verify"
	"github.com/oras-community/go-oras/pkg/authn"
	"github.com/oras-community/go-oras/pkg/errdef"
	"github.com/oras-community/go-oras/pkg/logs"
	"github.com/oras-community/go-oras/pkg/name"
	v1 "github.com/oras-community/go-oras/pkg/v1"
	"github.com/oras-community/go-oras/pkg/v1/remote/transport"
	"github.com/oras-community/go-oras/pkg/v1/types"
)

// Registry is a client for registry-hosted artifacts. A single Registry may
// serve references on any host; credentials and the transport configuration
// are fixed at construction, while the authentication handshake happens per
// (host, repository, scope).
//
// A Registry is safe for concurrent use.
type Registry struct {
	o *options
}

// NewRegistry returns a Registry configured by the given options.
func NewRegistry(opts ...Option) *Registry {
	return &Registry{o: makeOptions(opts...)}
}

// endpoint adapts a reference to the transport's view of a registry.
type endpoint struct {
	host   string
	scheme string
}

func (e endpoint) RegistryStr() string { return e.host }
func (e endpoint) Scheme() string      { return e.scheme }
func (e endpoint) String() string      { return e.host }

// client builds an authenticated http.Client scoped to the reference's
// repository. Blob GETs may be redirected once, typically to a CDN; the
// redirected request drops the Authorization header and further hops are
// refused.
func (r *Registry) client(ctx context.Context, ref name.Container, scope string) (*http.Client, error) {
	reg := endpoint{host: ref.APIRegistry(), scheme: r.o.scheme()}

	auth := r.o.auth
	if r.o.keychain != nil {
		resolved, err := r.o.keychain.Resolve(reg)
		if err != nil {
			return nil, err
		}
		auth = resolved
	}
	if auth == nil {
		auth = authn.Anonymous
	}

	base := r.o.baseTransport()
	if logs.Enabled(logs.Debug) {
		base = transport.NewLogger(base)
	}
	tr, err := transport.NewWithContext(ctx, reg, auth, base, []string{ref.Scope(scope)})
	if err != nil {
		return nil, err
	}
	tr = transport.NewUserAgent(tr, r.o.userAgent)
	return &http.Client{
		Transport:     tr,
		CheckRedirect: checkRedirect,
	}, nil
}

// checkRedirect follows at most one redirect hop, for GET and HEAD only.
// The Authorization header never crosses the hop; the bearer transport only
// re-adds it for the registry's own host.
func checkRedirect(req *http.Request, via []*http.Request) error {
	if len(via) > 1 {
		return errdef.New(errdef.KindTransport, "too many redirects fetching %s", redactedURL(req))
	}
	if m := via[0].Method; m != http.MethodGet && m != http.MethodHead {
		return errdef.New(errdef.KindTransport, "refusing to follow redirect for %s request", m)
	}
	req.Header.Del("Authorization")
	return nil
}

func redactedURL(req *http.Request) string {
	u := *req.URL
	u.RawQuery = ""
	return u.String()
}

// GetTags lists the tags of the reference's repository.
func (r *Registry) GetTags(ctx context.Context, ref name.Container) (*v1.Tags, error) {
	f, err := r.fetcher(ctx, ref, transport.PullScope)
	if err != nil {
		return nil, err
	}
	return f.tags(ctx)
}

// GetRepositories lists the repositories of the reference's registry via
// the catalog endpoint. Only the registry portion of ref is used.
func (r *Registry) GetRepositories(ctx context.Context, ref name.Container) (*v1.Repositories, error) {
	f, err := r.fetcher(ctx, ref, transport.PullScope)
	if err != nil {
		return nil, err
	}
	return f.catalog(ctx)
}

// GetManifest fetches the manifest of the reference. Fetching an index with
// GetManifest is an error; use GetIndex.
func (r *Registry) GetManifest(ctx context.Context, ref name.Container) (*v1.Manifest, error) {
	f, err := r.fetcher(ctx, ref, transport.PullScope)
	if err != nil {
		return nil, err
	}
	return f.manifest(ctx, ref)
}

// GetIndex fetches the index of the reference.
func (r *Registry) GetIndex(ctx context.Context, ref name.Container) (*v1.Index, error) {
	f, err := r.fetcher(ctx, ref, transport.PullScope)
	if err != nil {
		return nil, err
	}
	return f.index(ctx, ref)
}

// GetDescriptor fetches the manifest endpoint with GET and returns the
// resulting descriptor.
func (r *Registry) GetDescriptor(ctx context.Context, ref name.Container) (*v1.Descriptor, error) {
	f, err := r.fetcher(ctx, ref, transport.PullScope)
	if err != nil {
		return nil, err
	}
	_, desc, err := f.fetchManifest(ctx, ref, types.AcceptableTypes)
	if err != nil {
		return nil, err
	}
	return desc, nil
}

// ProbeDescriptor issues a HEAD request to the manifest endpoint and
// returns the descriptor advertised by the response headers.
func (r *Registry) ProbeDescriptor(ctx context.Context, ref name.Container) (*v1.Descriptor, error) {
	f, err := r.fetcher(ctx, ref, transport.PullScope)
	if err != nil {
		return nil, err
	}
	return f.headManifest(ctx, ref, types.AcceptableTypes)
}

// GetBlob fetches the blob the reference's digest names, buffered in
// memory.
func (r *Registry) GetBlob(ctx context.Context, ref name.Container) ([]byte, error) {
	f, err := r.fetcher(ctx, ref, transport.PullScope)
	if err != nil {
		return nil, err
	}
	return f.blob(ctx, ref)
}

// FetchBlob opens the blob the reference's digest names. The stream
// verifies the digest as it is consumed.
func (r *Registry) FetchBlob(ctx context.Context, ref name.Container) (io.ReadCloser, error) {
	f, err := r.fetcher(ctx, ref, transport.PullScope)
	if err != nil {
		return nil, err
	}
	return f.fetchBlob(ctx, ref, verify.SizeUnknown)
}

// FetchBlobTo streams the blob into the named file.
func (r *Registry) FetchBlobTo(ctx context.Context, ref name.Container, path string) error {
	rc, err := r.FetchBlob(ctx, ref)
	if err != nil {
		return err
	}
	defer rc.Close()
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, rc); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// HasBlob reports whether the blob the reference's digest names exists.
func (r *Registry) HasBlob(ctx context.Context, ref name.Container) (bool, error) {
	f, err := r.fetcher(ctx, ref, transport.PullScope)
	if err != nil {
		return false, err
	}
	return f.blobExists(ctx, ref)
}

// PushBlob uploads blob content. The open supplier is only invoked when the
// registry does not already have the blob; annotations end up on the
// returned layer, not on the wire.
func (r *Registry) PushBlob(ctx context.Context, ref name.Container, size int64, open v1.Opener, annotations map[string]string) (*v1.Layer, error) {
	w, err := r.writer(ctx, ref)
	if err != nil {
		return nil, err
	}
	return w.pushBlob(ctx, ref, size, open, annotations)
}

// PushManifest pushes the manifest under the reference's tag or digest and
// returns a copy carrying the registry-assigned descriptor.
func (r *Registry) PushManifest(ctx context.Context, ref name.Container, m *v1.Manifest) (*v1.Manifest, error) {
	w, err := r.writer(ctx, ref)
	if err != nil {
		return nil, err
	}
	return w.pushManifest(ctx, ref, m)
}

// PushIndex pushes the index under the reference's tag or digest.
func (r *Registry) PushIndex(ctx context.Context, ref name.Container, i *v1.Index) (*v1.Index, error) {
	w, err := r.writer(ctx, ref)
	if err != nil {
		return nil, err
	}
	return w.pushIndex(ctx, ref, i)
}

// GetReferrers lists the manifests whose subject is the reference's digest,
// optionally filtered by artifact type.
func (r *Registry) GetReferrers(ctx context.Context, ref name.Container, artifactType string) (*v1.Referrers, error) {
	if ref.DigestStr() == "" {
		return nil, errdef.New(errdef.KindInvalidState, "getting referrers of %s: digest required", ref.Name())
	}
	f, err := r.fetcher(ctx, ref, transport.PullScope)
	if err != nil {
		return nil, err
	}
	return f.referrers(ctx, ref, artifactType)
}

// CollectLayers gathers the layer descriptors reachable from the reference.
// For an index, the union over all referenced manifests is returned; layers
// without a title annotation are kept only when includeAll is set.
func (r *Registry) CollectLayers(ctx context.Context, ref name.Container, mediaType types.MediaType, includeAll bool) ([]v1.Descriptor, error) {
	return artifact.CollectLayers[name.Container](ctx, r, ref, mediaType, includeAll)
}

// PushArtifact packs the given paths into layers and pushes them, the
// config, and the manifest under the reference.
func (r *Registry) PushArtifact(ctx context.Context, ref name.Container, artifactType string, annotations *v1.Annotations, config *v1.Descriptor, paths ...string) (*v1.Manifest, error) {
	return artifact.Push[name.Container](ctx, r, ref, artifactType, annotations, config, paths)
}

// PullArtifact fetches the artifact's layers into dest, unpacking archive
// layers and naming files by their title annotation.
func (r *Registry) PullArtifact(ctx context.Context, ref name.Container, dest string, overwrite bool) error {
	return artifact.Pull[name.Container](ctx, r, ref, dest, overwrite)
}

// AttachArtifact pushes an artifact whose subject is the manifest the
// reference currently points at.
func (r *Registry) AttachArtifact(ctx context.Context, ref name.Container, artifactType string, annotations *v1.Annotations, paths ...string) (*v1.Manifest, error) {
	return artifact.Attach[name.Container](ctx, r, ref, artifactType, annotations, paths)
}

// Delete removes the manifest the reference names via the manifests
// endpoint. Blobs are not deleted.
func (r *Registry) Delete(ctx context.Context, ref name.Container) error {
	w, err := r.writer(ctx, ref)
	if err != nil {
		return err
	}
	return w.delete(ctx, ref)
}

func (r *Registry) fetcher(ctx context.Context, ref name.Container, scope string) (*fetcher, error) {
	client, err := r.client(ctx, ref, scope)
	if err != nil {
		return nil, err
	}
	return &fetcher{ref: ref, client: client, scheme: r.o.scheme()}, nil
}

func (r *Registry) writer(ctx context.Context, ref name.Container) (*writer, error) {
	client, err := r.client(ctx, ref, transport.PushScope)
	if err != nil {
		return nil, err
	}
	return &writer{ref: ref, client: client, scheme: r.o.scheme()}, nil
}

var _ fmt.Stringer = endpoint{}
