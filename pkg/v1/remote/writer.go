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
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/oras-community/go-oras/internal/retry"
	"github.com/oras-community/go-oras/pkg/errdef"
	"github.com/oras-community/go-oras/pkg/logs"
	"github.com/oras-community/go-oras/pkg/name"
	v1 "github.com/oras-community/go-oras/pkg/v1"
	"github.com/oras-community/go-oras/pkg/v1/remote/transport"
	"github.com/oras-community/go-oras/pkg/v1/types"
)

// writer writes the elements of an artifact to a registry.
type writer struct {
	ref    name.Container
	client *http.Client
	scheme string
}

// url returns a url.URL for the specified path in the context of the
// writer's repository.
func (w *writer) url(path string) url.URL {
	return url.URL{
		Scheme: w.scheme,
		Host:   w.ref.APIRegistry(),
		Path:   path,
	}
}

// checkExistingBlob checks if a blob exists already in the repository by
// making a HEAD request to the blob store API.
func (w *writer) checkExistingBlob(ctx context.Context, h v1.Hash) (bool, error) {
	u := w.url(fmt.Sprintf("/v2/%s/blobs/%s", w.ref.RepositoryStr(), h.String()))

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, u.String(), nil)
	if err != nil {
		return false, err
	}
	resp, err := w.client.Do(req)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()

	if err := transport.CheckError(resp, http.StatusOK, http.StatusNotFound); err != nil {
		return false, err
	}
	return resp.StatusCode == http.StatusOK, nil
}

// resolveLocation completes a Location header value: a relative location is
// qualified against the registry's base URL.
func (w *writer) resolveLocation(loc string) (string, error) {
	if loc == "" {
		return "", fmt.Errorf("missing Location header")
	}
	u, err := url.Parse(loc)
	if err != nil {
		return "", err
	}
	if u.Scheme == "" {
		base := w.url("/")
		resolved := base.ResolveReference(u)
		return resolved.String(), nil
	}
	return loc, nil
}

// appendDigest appends the digest query parameter to an upload URL,
// preserving the existing query separator.
func appendDigest(location, digest string) string {
	sep := "?"
	if strings.Contains(location, "?") {
		sep = "&"
	}
	return location + sep + "digest=" + url.QueryEscape(digest)
}

// uploadBlob attempts the monolithic single-POST upload; registries that
// only support the two-step flow answer 202 with an upload URL, in which
// case the content is re-sent with PUT.
func (w *writer) uploadBlob(ctx context.Context, h v1.Hash, size int64, open v1.Opener) error {
	u := w.url(fmt.Sprintf("/v2/%s/blobs/uploads/", w.ref.RepositoryStr()))
	u.RawQuery = url.Values{"digest": []string{h.String()}}.Encode()

	blob, err := open()
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), blob)
	if err != nil {
		blob.Close()
		return err
	}
	req.Header.Set("Content-Type", string(types.OctetStream))
	if size >= 0 {
		req.ContentLength = size
	}
	// Let the auth retry and the 202 fallback re-read the content.
	req.GetBody = func() (io.ReadCloser, error) { return open() }

	resp, err := w.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := transport.CheckError(resp, http.StatusCreated, http.StatusAccepted); err != nil {
		return err
	}
	if resp.StatusCode == http.StatusCreated {
		return nil
	}

	// 202: the registry initiated a two-step upload instead. Send the
	// content to the returned location with the digest appended.
	location, err := w.resolveLocation(resp.Header.Get("Location"))
	if err != nil {
		return err
	}
	return w.commitBlob(ctx, location, h, size, open)
}

// commitBlob PUTs the content to the upload location with the digest query
// parameter, completing a two-step upload.
func (w *writer) commitBlob(ctx context.Context, location string, h v1.Hash, size int64, open v1.Opener) error {
	blob, err := open()
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, appendDigest(location, h.String()), blob)
	if err != nil {
		blob.Close()
		return err
	}
	req.Header.Set("Content-Type", string(types.OctetStream))
	if size >= 0 {
		req.ContentLength = size
	}
	req.GetBody = func() (io.ReadCloser, error) { return open() }

	resp, err := w.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	return transport.CheckError(resp, http.StatusCreated)
}

// pushBlob performs a complete blob upload: a HEAD preflight to skip
// content the registry already has, then the upload with a bounded retry of
// temporary failures.
func (w *writer) pushBlob(ctx context.Context, ref name.Container, size int64, open v1.Opener, annotations map[string]string) (*v1.Layer, error) {
	dgst := ref.DigestStr()
	if dgst == "" {
		return nil, errdef.New(errdef.KindInvalidState, "pushing blob to %s: digest required", ref.Name())
	}
	h, err := v1.NewHash(dgst)
	if err != nil {
		return nil, err
	}

	layer := v1.RemoteLayer(v1.Descriptor{
		MediaType:   types.OctetStream,
		Digest:      h,
		Size:        size,
		Annotations: annotations,
	})

	existing, err := w.checkExistingBlob(ctx, h)
	if err != nil {
		return nil, err
	}
	if existing {
		logs.Progress.Printf("existing blob: %v", h)
		return &layer, nil
	}

	tryUpload := func() error {
		return w.uploadBlob(ctx, h, size, open)
	}

	// Try this three times, waiting 1s after first failure, 3s after second.
	backoff := retry.Backoff{
		Duration: 1 * time.Second,
		Factor:   3.0,
		Jitter:   0.1,
		Steps:    3,
	}
	if err := retry.Retry(tryUpload, retry.IsTemporary, backoff); err != nil {
		return nil, err
	}
	logs.Progress.Printf("pushed blob: %s", h)
	return &layer, nil
}

// pushManifest does a PUT of the manifest and returns a copy carrying the
// registry-assigned descriptor. A manifest with a subject requires the
// registry to acknowledge the referrers update via the OCI-Subject header.
func (w *writer) pushManifest(ctx context.Context, ref name.Container, m *v1.Manifest) (*v1.Manifest, error) {
	raw, err := m.RawManifest()
	if err != nil {
		return nil, err
	}
	mt := m.MediaType
	if mt == "" {
		mt = types.OCIManifestSchema1
	}

	desc, err := w.commitManifest(ctx, ref, raw, mt, m.Subject != nil)
	if err != nil {
		return nil, err
	}
	desc.ArtifactType = m.ResolveArtifactType()
	return m.WithDescriptor(*desc), nil
}

// pushIndex does a PUT of the index.
func (w *writer) pushIndex(ctx context.Context, ref name.Container, i *v1.Index) (*v1.Index, error) {
	raw, err := i.RawIndex()
	if err != nil {
		return nil, err
	}
	mt := i.MediaType
	if mt == "" {
		mt = types.OCIImageIndex
	}

	desc, err := w.commitManifest(ctx, ref, raw, mt, i.Subject != nil)
	if err != nil {
		return nil, err
	}
	return i.WithDescriptor(*desc), nil
}

func (w *writer) commitManifest(ctx context.Context, ref name.Container, raw []byte, mt types.MediaType, hasSubject bool) (*v1.Descriptor, error) {
	u := w.url(fmt.Sprintf("/v2/%s/manifests/%s", w.ref.RepositoryStr(), ref.Identifier()))

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, u.String(), bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", string(mt))
	req.GetBody = func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(raw)), nil
	}

	resp, err := w.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if err := transport.CheckError(resp, http.StatusOK, http.StatusCreated, http.StatusAccepted); err != nil {
		return nil, err
	}

	if hasSubject && resp.Header.Get("OCI-Subject") == "" {
		// The registry stored the manifest but did not update the referrers
		// index for the subject. Guessing at a fallback tag scheme here
		// would leave the referrers view inconsistent, so refuse instead.
		return nil, errdef.New(errdef.KindBadRequest,
			"registry %s did not acknowledge the subject (no OCI-Subject header); its referrers API does not cover this push", w.ref.APIRegistry())
	}

	digest, size, err := v1.Compute(ref.Algorithm(), bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}
	if dh := resp.Header.Get("Docker-Content-Digest"); dh != "" {
		returned, err := v1.NewHash(dh)
		if err != nil {
			return nil, err
		}
		if returned.Algorithm == digest.Algorithm && returned != digest {
			return nil, errdef.New(errdef.KindDigestMismatch,
				"registry digest %q does not match computed digest %q", returned, digest)
		}
	}

	logs.Progress.Printf("%v: digest: %v size: %d", ref, digest, size)
	return &v1.Descriptor{
		MediaType: mt,
		Digest:    digest,
		Size:      size,
	}, nil
}

// delete removes the manifest the reference names.
func (w *writer) delete(ctx context.Context, ref name.Container) error {
	u := w.url(fmt.Sprintf("/v2/%s/manifests/%s", w.ref.RepositoryStr(), ref.Identifier()))

	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, u.String(), nil)
	if err != nil {
		return err
	}
	resp, err := w.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	return transport.CheckError(resp, http.StatusOK, http.StatusAccepted)
}
