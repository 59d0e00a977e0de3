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
	"errors"
	"io"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"testing"

	"github.com/oras-community/go-oras/internal/registrytest"
	"github.com/oras-community/go-oras/pkg/authn"
	"github.com/oras-community/go-oras/pkg/errdef"
	"github.com/oras-community/go-oras/pkg/name"
	v1 "github.com/oras-community/go-oras/pkg/v1"
	"github.com/oras-community/go-oras/pkg/v1/types"
)

// setup starts an in-memory registry and returns a store and a reference
// pointing into it.
func setup(t *testing.T, opts ...registrytest.Option) (*registrytest.Registry, *Registry, name.Container) {
	t.Helper()
	fake := registrytest.New(opts...)
	server := httptest.NewServer(fake.Handler())
	t.Cleanup(server.Close)

	u, err := url.Parse(server.URL)
	if err != nil {
		t.Fatal(err)
	}
	ref, err := name.ParseContainer(u.Host + "/test/artifact:v1")
	if err != nil {
		t.Fatal(err)
	}
	return fake, NewRegistry(WithInsecure()), ref
}

func mustDigest(t *testing.T, b []byte) v1.Hash {
	t.Helper()
	h, _, err := v1.SHA256(bytes.NewReader(b))
	if err != nil {
		t.Fatal(err)
	}
	return h
}

func TestPushBlobMonolithic(t *testing.T) {
	_, reg, ref := setup(t)

	content := []byte("some layer content")
	h := mustDigest(t, content)

	layer, err := reg.PushBlob(context.Background(), ref.WithDigest(h.String()), int64(len(content)), v1.BytesOpener(content), nil)
	if err != nil {
		t.Fatal(err)
	}
	if layer.Digest != h || layer.Size != int64(len(content)) {
		t.Errorf("PushBlob = %+v", layer.Descriptor)
	}

	got, err := reg.GetBlob(context.Background(), ref.WithDigest(h.String()))
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, content) {
		t.Errorf("GetBlob = %q, want %q", got, content)
	}
}

// A registry that answers 202 to the monolithic POST gets the content again
// via PUT on the returned location.
func TestPushBlobTwoStepFallback(t *testing.T) {
	_, reg, ref := setup(t, registrytest.WithTwoStepUpload())

	content := []byte("fallback content")
	h := mustDigest(t, content)

	layer, err := reg.PushBlob(context.Background(), ref.WithDigest(h.String()), int64(len(content)), v1.BytesOpener(content), nil)
	if err != nil {
		t.Fatal(err)
	}
	if layer.Digest != h {
		t.Errorf("digest = %v, want %v", layer.Digest, h)
	}

	ok, err := reg.HasBlob(context.Background(), ref.WithDigest(h.String()))
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Error("HasBlob = false after two-step upload")
	}
}

func TestPushBlobSkipsExisting(t *testing.T) {
	_, reg, ref := setup(t)

	content := []byte("already there")
	h := mustDigest(t, content)
	if _, err := reg.PushBlob(context.Background(), ref.WithDigest(h.String()), int64(len(content)), v1.BytesOpener(content), nil); err != nil {
		t.Fatal(err)
	}

	// The supplier must not be consulted when the blob exists.
	opened := false
	open := func() (io.ReadCloser, error) {
		opened = true
		return v1.BytesOpener(content)()
	}
	if _, err := reg.PushBlob(context.Background(), ref.WithDigest(h.String()), int64(len(content)), open, nil); err != nil {
		t.Fatal(err)
	}
	if opened {
		t.Error("existing blob re-opened the source stream")
	}
}

func TestManifestRoundTrip(t *testing.T) {
	_, reg, ref := setup(t)
	ctx := context.Background()

	cfg := v1.EmptyConfig()
	if _, err := reg.PushBlob(ctx, ref.WithDigest(cfg.Digest.String()), cfg.Size, v1.BytesOpener(cfg.Data), nil); err != nil {
		t.Fatal(err)
	}
	m := v1.NewManifest(cfg, nil).WithArtifactType("application/vnd.example.thing")

	pushed, err := reg.PushManifest(ctx, ref, m)
	if err != nil {
		t.Fatal(err)
	}
	desc, err := pushed.Descriptor(v1.DefaultAlgorithm)
	if err != nil {
		t.Fatal(err)
	}

	probed, err := reg.ProbeDescriptor(ctx, ref)
	if err != nil {
		t.Fatal(err)
	}
	if probed.Digest != desc.Digest || probed.Size != desc.Size {
		t.Errorf("ProbeDescriptor = %+v, want %+v", probed, desc)
	}
	if !probed.MediaType.IsManifest() {
		t.Errorf("MediaType = %q", probed.MediaType)
	}

	fetched, err := reg.GetManifest(ctx, ref)
	if err != nil {
		t.Fatal(err)
	}
	raw, err := fetched.RawManifest()
	if err != nil {
		t.Fatal(err)
	}
	want, err := m.RawManifest()
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(raw, want) {
		t.Errorf("fetched manifest bytes differ:\n%s\n%s", raw, want)
	}
}

func TestGetManifestOnIndexFails(t *testing.T) {
	_, reg, ref := setup(t)
	ctx := context.Background()

	idx := v1.NewIndex(nil)
	if _, err := reg.PushIndex(ctx, ref, idx); err != nil {
		t.Fatal(err)
	}

	_, err := reg.GetManifest(ctx, ref)
	if !errdef.IsKind(err, errdef.KindInvalidState) {
		t.Errorf("GetManifest on index = %v, want invalid state error", err)
	}
	if _, err := reg.GetIndex(ctx, ref); err != nil {
		t.Errorf("GetIndex = %v", err)
	}
}

func TestPushManifestSubjectUnsupported(t *testing.T) {
	_, reg, ref := setup(t, registrytest.WithoutSubjectSupport())
	ctx := context.Background()

	subjectDigest := mustDigest(t, []byte("subject"))
	m := v1.NewManifest(v1.EmptyConfig(), nil).WithSubject(&v1.Descriptor{
		MediaType: types.OCIManifestSchema1,
		Digest:    subjectDigest,
		Size:      7,
	})

	_, err := reg.PushManifest(ctx, ref, m)
	if err == nil {
		t.Fatal("PushManifest with subject succeeded against a registry without OCI-Subject")
	}
	if !errdef.IsKind(err, errdef.KindBadRequest) {
		t.Errorf("error = %v, want bad request kind", err)
	}
}

func TestReferrers(t *testing.T) {
	_, reg, ref := setup(t)
	ctx := context.Background()

	subject, err := reg.PushArtifact(ctx, ref, "application/vnd.example.thing", nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	subjectDesc, err := subject.Descriptor(v1.DefaultAlgorithm)
	if err != nil {
		t.Fatal(err)
	}

	attached, err := reg.AttachArtifact(ctx, ref, "application/vnd.example.signature", nil)
	if err != nil {
		t.Fatal(err)
	}
	attachedDesc, err := attached.Descriptor(v1.DefaultAlgorithm)
	if err != nil {
		t.Fatal(err)
	}

	refs, err := reg.GetReferrers(ctx, ref.WithDigest(subjectDesc.Digest.String()), "")
	if err != nil {
		t.Fatal(err)
	}
	found := false
	for _, d := range refs.Manifests {
		if d.Digest == attachedDesc.Digest {
			found = true
			if d.ArtifactType != "application/vnd.example.signature" {
				t.Errorf("referrer artifactType = %q", d.ArtifactType)
			}
		}
	}
	if !found {
		t.Errorf("attached manifest %v not in referrers %+v", attachedDesc.Digest, refs.Manifests)
	}

	// Filtering by a type nothing carries yields an empty set.
	filtered, err := reg.GetReferrers(ctx, ref.WithDigest(subjectDesc.Digest.String()), "application/vnd.other")
	if err != nil {
		t.Fatal(err)
	}
	if len(filtered.Manifests) != 0 {
		t.Errorf("filtered referrers = %+v, want none", filtered.Manifests)
	}
}

func TestReferrersOfUnknownSubjectIsEmpty(t *testing.T) {
	_, reg, ref := setup(t)
	h := mustDigest(t, []byte("never pushed"))
	refs, err := reg.GetReferrers(context.Background(), ref.WithDigest(h.String()), "")
	if err != nil {
		t.Fatal(err)
	}
	if len(refs.Manifests) != 0 {
		t.Errorf("referrers = %+v, want none", refs.Manifests)
	}
}

func TestBlobRedirectStripsAuthorization(t *testing.T) {
	// Token auth plus CDN redirects on a second host: the CDN handler
	// rejects any request that still carries credentials.
	fake := registrytest.New(
		registrytest.WithToken("user", "pass", "tok"),
		registrytest.WithBlobRedirect(),
	)
	server := httptest.NewServer(fake.Handler())
	defer server.Close()
	cdn := httptest.NewServer(fake.Handler())
	defer cdn.Close()
	fake.CDNBase = cdn.URL
	u, err := url.Parse(server.URL)
	if err != nil {
		t.Fatal(err)
	}
	ref, err := name.ParseContainer(u.Host + "/test/artifact:v1")
	if err != nil {
		t.Fatal(err)
	}
	reg := NewRegistry(WithInsecure(), WithAuth(&authn.Basic{Username: "user", Password: "pass"}))
	ctx := context.Background()

	content := []byte("cdn blob")
	h := mustDigest(t, content)
	if _, err := reg.PushBlob(ctx, ref.WithDigest(h.String()), int64(len(content)), v1.BytesOpener(content), nil); err != nil {
		t.Fatal(err)
	}

	got, err := reg.GetBlob(ctx, ref.WithDigest(h.String()))
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, content) {
		t.Errorf("GetBlob via redirect = %q, want %q", got, content)
	}
}

func TestTagsAndCatalog(t *testing.T) {
	_, reg, ref := setup(t)
	ctx := context.Background()

	for _, tag := range []string{"v1", "v2"} {
		if _, err := reg.PushArtifact(ctx, ref.WithTag(tag), "application/vnd.example.thing", nil, nil); err != nil {
			t.Fatal(err)
		}
	}

	tags, err := reg.GetTags(ctx, ref)
	if err != nil {
		t.Fatal(err)
	}
	if len(tags.Tags) != 2 {
		t.Errorf("tags = %v, want 2 entries", tags.Tags)
	}

	repos, err := reg.GetRepositories(ctx, ref)
	if err != nil {
		t.Fatal(err)
	}
	if len(repos.Repositories) != 1 || repos.Repositories[0] != "test/artifact" {
		t.Errorf("repositories = %v", repos.Repositories)
	}
}

func TestArtifactRoundTrip(t *testing.T) {
	_, reg, ref := setup(t)
	ctx := context.Background()

	src := t.TempDir()
	want := []byte("artifact payload bytes")
	if err := os.WriteFile(filepath.Join(src, "payload.txt"), want, 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := reg.PushArtifact(ctx, ref, "application/vnd.example.thing", nil, nil, filepath.Join(src, "payload.txt")); err != nil {
		t.Fatal(err)
	}

	dest := t.TempDir()
	if err := reg.PullArtifact(ctx, ref, dest, false); err != nil {
		t.Fatal(err)
	}
	got, err := os.ReadFile(filepath.Join(dest, "payload.txt"))
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, want) {
		t.Errorf("pulled %q, want %q", got, want)
	}

	// Pulling again without overwrite refuses to clobber the file.
	err = reg.PullArtifact(ctx, ref, dest, false)
	if !errdef.IsKind(err, errdef.KindInvalidState) {
		t.Errorf("second pull = %v, want invalid state", err)
	}
	if err := reg.PullArtifact(ctx, ref, dest, true); err != nil {
		t.Errorf("overwrite pull = %v", err)
	}
}

func TestNotFound(t *testing.T) {
	_, reg, ref := setup(t)
	_, err := reg.GetManifest(context.Background(), ref)
	var terr interface{ Temporary() bool }
	if !errdef.IsKind(err, errdef.KindNotFound) {
		t.Errorf("GetManifest of missing tag = %v, want not found", err)
	}
	if errors.As(err, &terr) && terr.Temporary() {
		t.Error("404 reported as temporary")
	}
}
