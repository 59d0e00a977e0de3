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

package layout

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/oras-community/go-oras/pkg/errdef"
	"github.com/oras-community/go-oras/pkg/name"
	v1 "github.com/oras-community/go-oras/pkg/v1"
)

func layoutRef(t *testing.T, tag string) name.Layout {
	t.Helper()
	ref, err := name.ParseLayout(t.TempDir() + ":" + tag)
	if err != nil {
		t.Fatal(err)
	}
	return ref
}

func mustDigest(t *testing.T, b []byte) v1.Hash {
	t.Helper()
	h, _, err := v1.SHA256(bytes.NewReader(b))
	if err != nil {
		t.Fatal(err)
	}
	return h
}

func TestPushBlobIdempotent(t *testing.T) {
	s := NewStore()
	ref := layoutRef(t, "v1")
	ctx := context.Background()

	content := []byte("blob content")
	h := mustDigest(t, content)

	first, err := s.PushBlob(ctx, ref.WithDigest(h.String()), int64(len(content)), v1.BytesOpener(content), nil)
	if err != nil {
		t.Fatal(err)
	}

	// The second push must not re-open the source.
	opened := false
	second, err := s.PushBlob(ctx, ref.WithDigest(h.String()), int64(len(content)), func() (io.ReadCloser, error) {
		opened = true
		return v1.BytesOpener(content)()
	}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if opened {
		t.Error("idempotent push re-opened the source stream")
	}
	if first.Digest != second.Digest || first.Size != second.Size {
		t.Errorf("descriptors differ: %+v vs %+v", first.Descriptor, second.Descriptor)
	}

	// Exactly one blob file exists.
	entries, err := os.ReadDir(filepath.Join(ref.Path, "blobs", "sha256"))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("blob dir has %d entries, want 1", len(entries))
	}

	got, err := s.GetBlob(ctx, ref.WithDigest(h.String()))
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, content) {
		t.Errorf("GetBlob = %q, want %q", got, content)
	}
}

func TestPushBlobRejectsCorruptStream(t *testing.T) {
	s := NewStore()
	ref := layoutRef(t, "v1")

	h := mustDigest(t, []byte("expected content"))
	_, err := s.PushBlob(context.Background(), ref.WithDigest(h.String()), int64(len("other content")), v1.BytesOpener([]byte("other content")), nil)
	if !errdef.IsKind(err, errdef.KindDigestMismatch) {
		t.Errorf("PushBlob with wrong content = %v, want digest mismatch", err)
	}
	if ok, _ := s.HasBlob(context.Background(), ref.WithDigest(h.String())); ok {
		t.Error("corrupt content landed at the content address")
	}
}

func TestLayoutOnDiskShape(t *testing.T) {
	s := NewStore()
	ref := layoutRef(t, "v1")
	ctx := context.Background()

	cfg := v1.EmptyConfig()
	if _, err := s.PushBlob(ctx, ref.WithDigest(cfg.Digest.String()), cfg.Size, v1.BytesOpener(cfg.Data), nil); err != nil {
		t.Fatal(err)
	}
	if _, err := s.PushManifest(ctx, ref, v1.NewManifest(cfg, nil)); err != nil {
		t.Fatal(err)
	}

	b, err := os.ReadFile(filepath.Join(ref.Path, "oci-layout"))
	if err != nil {
		t.Fatal(err)
	}
	var marker struct {
		Version string `json:"imageLayoutVersion"`
	}
	if err := json.Unmarshal(b, &marker); err != nil {
		t.Fatal(err)
	}
	if marker.Version != "1.0.0" {
		t.Errorf("imageLayoutVersion = %q, want 1.0.0", marker.Version)
	}

	// Every index entry's blob exists with matching size and digest.
	idx, err := readIndex(ref)
	if err != nil {
		t.Fatal(err)
	}
	if len(idx.Manifests) == 0 {
		t.Fatal("index.json has no entries")
	}
	for _, d := range idx.Manifests {
		blob, err := os.ReadFile(blobPath(ref.Path, d.Digest))
		if err != nil {
			t.Fatalf("missing blob for %v: %v", d.Digest, err)
		}
		if int64(len(blob)) != d.Size {
			t.Errorf("blob size %d != descriptor size %d", len(blob), d.Size)
		}
		if got := mustDigest(t, blob); got != d.Digest {
			t.Errorf("blob digest %v != descriptor digest %v", got, d.Digest)
		}
	}
}

func TestTagReplacement(t *testing.T) {
	s := NewStore()
	ref := layoutRef(t, "v1")
	ctx := context.Background()

	cfg := v1.EmptyConfig()
	if _, err := s.PushBlob(ctx, ref.WithDigest(cfg.Digest.String()), cfg.Size, v1.BytesOpener(cfg.Data), nil); err != nil {
		t.Fatal(err)
	}

	first := v1.NewManifest(cfg, nil)
	if _, err := s.PushManifest(ctx, ref, first); err != nil {
		t.Fatal(err)
	}
	second := v1.NewManifest(cfg, nil).WithAnnotations(map[string]string{"rev": "2"})
	pushed, err := s.PushManifest(ctx, ref, second)
	if err != nil {
		t.Fatal(err)
	}

	// The tag moved; only one entry holds it.
	idx, err := readIndex(ref)
	if err != nil {
		t.Fatal(err)
	}
	holders := 0
	for _, d := range idx.Manifests {
		if d.Annotation(v1.AnnotationRefName) == "v1" {
			holders++
		}
	}
	if holders != 1 {
		t.Errorf("%d entries hold tag v1, want 1", holders)
	}

	desc, err := s.ProbeDescriptor(ctx, ref)
	if err != nil {
		t.Fatal(err)
	}
	want, err := pushed.Descriptor(v1.DefaultAlgorithm)
	if err != nil {
		t.Fatal(err)
	}
	if desc.Digest != want.Digest {
		t.Errorf("tag resolves to %v, want %v", desc.Digest, want.Digest)
	}
}

func TestTagsAndRepositories(t *testing.T) {
	s := NewStore()
	ref := layoutRef(t, "v1")
	ctx := context.Background()

	cfg := v1.EmptyConfig()
	if _, err := s.PushBlob(ctx, ref.WithDigest(cfg.Digest.String()), cfg.Size, v1.BytesOpener(cfg.Data), nil); err != nil {
		t.Fatal(err)
	}
	for _, tag := range []string{"v1", "v2"} {
		if _, err := s.PushManifest(ctx, ref.WithTag(tag), v1.NewManifest(cfg, nil).WithAnnotations(map[string]string{"tag": tag})); err != nil {
			t.Fatal(err)
		}
	}

	tags, err := s.GetTags(ctx, ref)
	if err != nil {
		t.Fatal(err)
	}
	if len(tags.Tags) != 2 || tags.Tags[0] != "v1" || tags.Tags[1] != "v2" {
		t.Errorf("tags = %v, want [v1 v2]", tags.Tags)
	}

	repos, err := s.GetRepositories(ctx, ref)
	if err != nil {
		t.Fatal(err)
	}
	if len(repos.Repositories) != 1 || repos.Repositories[0] != ref.Path {
		t.Errorf("repositories = %v, want [%s]", repos.Repositories, ref.Path)
	}
}

func TestLayoutReferrers(t *testing.T) {
	s := NewStore()
	ref := layoutRef(t, "v1")
	ctx := context.Background()

	subject, err := s.PushArtifact(ctx, ref, "application/vnd.example.thing", nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	subjectDesc, err := subject.Descriptor(v1.DefaultAlgorithm)
	if err != nil {
		t.Fatal(err)
	}

	attached, err := s.AttachArtifact(ctx, ref, "application/vnd.example.signature", nil)
	if err != nil {
		t.Fatal(err)
	}
	attachedDesc, err := attached.Descriptor(v1.DefaultAlgorithm)
	if err != nil {
		t.Fatal(err)
	}

	refs, err := s.GetReferrers(ctx, ref.WithDigest(subjectDesc.Digest.String()), "")
	if err != nil {
		t.Fatal(err)
	}
	if len(refs.Manifests) != 1 || refs.Manifests[0].Digest != attachedDesc.Digest {
		t.Errorf("referrers = %+v, want the attached manifest", refs.Manifests)
	}

	filtered, err := s.GetReferrers(ctx, ref.WithDigest(subjectDesc.Digest.String()), "application/vnd.other")
	if err != nil {
		t.Fatal(err)
	}
	if len(filtered.Manifests) != 0 {
		t.Errorf("filtered referrers = %+v, want none", filtered.Manifests)
	}
}

func TestMissingLayout(t *testing.T) {
	s := NewStore()
	ref, err := name.ParseLayout(filepath.Join(t.TempDir(), "nope") + ":v1")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.GetTags(context.Background(), ref); !errdef.IsKind(err, errdef.KindNotFound) {
		t.Errorf("GetTags on missing layout = %v, want not found", err)
	}
}
