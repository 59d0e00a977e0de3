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

package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/oras-community/go-oras/internal/verify"
	"github.com/oras-community/go-oras/pkg/errdef"
	"github.com/oras-community/go-oras/pkg/name"
	v1 "github.com/oras-community/go-oras/pkg/v1"
	"github.com/oras-community/go-oras/pkg/v1/remote/transport"
	"github.com/oras-community/go-oras/pkg/v1/types"
)

const (
	kib           = 1024
	mib           = 1024 * kib
	manifestLimit = 100 * mib
)

// fetcher implements methods for reading from a registry.
type fetcher struct {
	ref    name.Container
	client *http.Client
	scheme string
}

// url returns a url.URL for the specified resource in the context of the
// fetcher's repository.
func (f *fetcher) url(resource, identifier string) url.URL {
	return url.URL{
		Scheme: f.scheme,
		Host:   f.ref.APIRegistry(),
		Path:   fmt.Sprintf("/v2/%s/%s/%s", f.ref.RepositoryStr(), resource, identifier),
	}
}

func (f *fetcher) fetchManifest(ctx context.Context, ref name.Container, acceptable []types.MediaType) ([]byte, *v1.Descriptor, error) {
	u := f.url("manifests", ref.Identifier())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, nil, err
	}
	accept := []string{}
	for _, mt := range acceptable {
		accept = append(accept, string(mt))
	}
	req.Header.Set("Accept", strings.Join(accept, ","))

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, nil, err
	}
	defer resp.Body.Close()

	if err := transport.CheckError(resp, http.StatusOK); err != nil {
		return nil, nil, err
	}

	manifest, err := io.ReadAll(io.LimitReader(resp.Body, manifestLimit))
	if err != nil {
		return nil, nil, err
	}

	digest, size, err := v1.Compute(ref.Algorithm(), bytes.NewReader(manifest))
	if err != nil {
		return nil, nil, err
	}

	mediaType := types.MediaType(resp.Header.Get("Content-Type"))

	// Validate the digest matches what we asked for, if pulling by digest.
	if dgst := ref.DigestStr(); dgst != "" {
		if digest.String() != dgst {
			return nil, nil, errdef.New(errdef.KindDigestMismatch,
				"manifest digest %q does not match requested digest %q for %q", digest, dgst, ref)
		}
	}

	var artifactType string
	if mf, _ := v1.ParseManifest(bytes.NewReader(manifest)); mf != nil {
		// Failing to parse as a manifest should just be ignored; the body
		// might be an index.
		artifactType = mf.ResolveArtifactType()
	}

	desc := v1.Descriptor{
		MediaType:    mediaType,
		Digest:       digest,
		Size:         size,
		ArtifactType: artifactType,
	}
	return manifest, &desc, nil
}

func (f *fetcher) headManifest(ctx context.Context, ref name.Container, acceptable []types.MediaType) (*v1.Descriptor, error) {
	u := f.url("manifests", ref.Identifier())
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, u.String(), nil)
	if err != nil {
		return nil, err
	}
	accept := []string{}
	for _, mt := range acceptable {
		accept = append(accept, string(mt))
	}
	req.Header.Set("Accept", strings.Join(accept, ","))

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if err := transport.CheckError(resp, http.StatusOK); err != nil {
		return nil, err
	}

	mth := resp.Header.Get("Content-Type")
	if mth == "" {
		return nil, fmt.Errorf("HEAD %s: response did not include Content-Type header", u.String())
	}

	size := resp.ContentLength
	if size == -1 {
		return nil, fmt.Errorf("HEAD %s: response did not include Content-Length header", u.String())
	}

	dh := resp.Header.Get("Docker-Content-Digest")
	if dh == "" {
		return nil, fmt.Errorf("HEAD %s: response did not include Docker-Content-Digest header", u.String())
	}
	digest, err := v1.NewHash(dh)
	if err != nil {
		return nil, err
	}

	// Validate the digest matches what we asked for, if pulling by digest.
	if dgst := ref.DigestStr(); dgst != "" && digest.String() != dgst {
		return nil, errdef.New(errdef.KindDigestMismatch,
			"manifest digest %q does not match requested digest %q for %q", digest, dgst, ref)
	}

	return &v1.Descriptor{
		MediaType: types.MediaType(mth),
		Digest:    digest,
		Size:      size,
	}, nil
}

// manifest fetches and parses a single-artifact manifest. An index-typed
// response is an error: the caller asked for one artifact but the tag
// points at a multi-platform fan-out.
func (f *fetcher) manifest(ctx context.Context, ref name.Container) (*v1.Manifest, error) {
	b, desc, err := f.fetchManifest(ctx, ref, types.AcceptableTypes)
	if err != nil {
		return nil, err
	}
	if desc.MediaType.IsIndex() {
		return nil, errdef.New(errdef.KindInvalidState,
			"%s points at an index (probably a multi-platform image); use GetIndex", ref)
	}
	m, err := v1.ParseManifest(bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	return m.WithDescriptor(*desc), nil
}

// index fetches and parses an index.
func (f *fetcher) index(ctx context.Context, ref name.Container) (*v1.Index, error) {
	b, desc, err := f.fetchManifest(ctx, ref, types.AcceptableIndexTypes)
	if err != nil {
		return nil, err
	}
	if desc.MediaType.IsManifest() {
		return nil, errdef.New(errdef.KindInvalidState,
			"%s points at a manifest, not an index; use GetManifest", ref)
	}
	i, err := v1.ParseIndex(bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	return i.WithDescriptor(*desc), nil
}

func (f *fetcher) fetchBlob(ctx context.Context, ref name.Container, size int64) (io.ReadCloser, error) {
	dgst := ref.DigestStr()
	if dgst == "" {
		return nil, errdef.New(errdef.KindInvalidState, "fetching blob from %s: digest required", ref.Name())
	}
	h, err := v1.NewHash(dgst)
	if err != nil {
		return nil, err
	}

	u := f.url("blobs", dgst)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}

	if err := transport.CheckError(resp, http.StatusOK); err != nil {
		resp.Body.Close()
		return nil, err
	}

	// Do whatever we can with size validation.
	if hsize := resp.ContentLength; hsize != -1 {
		if size == verify.SizeUnknown {
			size = hsize
		} else if hsize != size {
			resp.Body.Close()
			return nil, fmt.Errorf("GET %s: Content-Length header %d does not match expected size %d", u.String(), hsize, size)
		}
	}

	return verify.ReadCloser(resp.Body, size, h)
}

func (f *fetcher) blob(ctx context.Context, ref name.Container) ([]byte, error) {
	rc, err := f.fetchBlob(ctx, ref, verify.SizeUnknown)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

func (f *fetcher) blobExists(ctx context.Context, ref name.Container) (bool, error) {
	dgst := ref.DigestStr()
	if dgst == "" {
		return false, errdef.New(errdef.KindInvalidState, "probing blob in %s: digest required", ref.Name())
	}
	u := f.url("blobs", dgst)
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, u.String(), nil)
	if err != nil {
		return false, err
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()

	if err := transport.CheckError(resp, http.StatusOK, http.StatusNotFound); err != nil {
		return false, err
	}
	return resp.StatusCode == http.StatusOK, nil
}

// tags lists the repository's tags, following pagination links.
func (f *fetcher) tags(ctx context.Context) (*v1.Tags, error) {
	u := url.URL{
		Scheme: f.scheme,
		Host:   f.ref.APIRegistry(),
		Path:   fmt.Sprintf("/v2/%s/tags/list", f.ref.RepositoryStr()),
	}
	out := v1.Tags{Name: f.ref.RepositoryStr()}

	uri := &u
	for {
		page := v1.Tags{}
		nextURI, err := f.page(ctx, uri, &page)
		if err != nil {
			return nil, err
		}
		out.Tags = append(out.Tags, page.Tags...)
		if nextURI == nil {
			break
		}
		uri = nextURI
	}
	return &out, nil
}

// catalog lists the registry's repositories, following pagination links.
func (f *fetcher) catalog(ctx context.Context) (*v1.Repositories, error) {
	u := url.URL{
		Scheme: f.scheme,
		Host:   f.ref.APIRegistry(),
		Path:   "/v2/_catalog",
	}
	out := v1.Repositories{}

	uri := &u
	for {
		page := v1.Repositories{}
		nextURI, err := f.page(ctx, uri, &page)
		if err != nil {
			return nil, err
		}
		out.Repositories = append(out.Repositories, page.Repositories...)
		if nextURI == nil {
			break
		}
		uri = nextURI
	}
	return &out, nil
}

// page fetches one page of a paginated listing into v and returns the next
// page's URL from the Link header, if any.
func (f *fetcher) page(ctx context.Context, u *url.URL, v any) (*url.URL, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if err := transport.CheckError(resp, http.StatusOK); err != nil {
		return nil, err
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return nil, err
	}

	link := resp.Header.Get("Link")
	if link == "" {
		return nil, nil
	}
	// Link headers look like: </v2/_catalog?n=100&last=foo>; rel="next"
	if !strings.HasPrefix(link, "<") {
		return nil, fmt.Errorf("failed to parse link header: %q", link)
	}
	end := strings.Index(link, ">")
	if end == -1 {
		return nil, fmt.Errorf("failed to parse link header: %q", link)
	}
	next, err := url.Parse(link[1:end])
	if err != nil {
		return nil, err
	}
	return resp.Request.URL.ResolveReference(next), nil
}

// referrers queries the referrers API for manifests whose subject is the
// reference's digest. A 404 means the subject has no attachments yet.
func (f *fetcher) referrers(ctx context.Context, ref name.Container, artifactType string) (*v1.Referrers, error) {
	u := f.url("referrers", ref.DigestStr())
	if artifactType != "" {
		q := url.Values{}
		q.Set("artifactType", artifactType)
		u.RawQuery = q.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", string(types.OCIImageIndex))

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if err := transport.CheckError(resp, http.StatusOK, http.StatusNotFound); err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusNotFound {
		// Not found just means there are no attachments yet.
		return v1.NewReferrers(nil), nil
	}

	b, err := io.ReadAll(io.LimitReader(resp.Body, manifestLimit))
	if err != nil {
		return nil, err
	}
	idx, err := v1.ParseIndex(bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	// The registry applied the artifactType filter if it echoed the
	// OCI-Filters-Applied header; otherwise filter client-side.
	refs := v1.NewReferrers(idx.Manifests)
	if artifactType != "" && !strings.Contains(resp.Header.Get("OCI-Filters-Applied"), "artifactType") {
		refs = refs.Filtered(artifactType)
	}
	return refs, nil
}
