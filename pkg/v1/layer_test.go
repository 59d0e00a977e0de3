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
	"os"
	"path/filepath"
	"testing"

	"github.com/oras-community/go-oras/pkg/errdef"
)

func TestLayerFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "artifact.txt")
	content := []byte("hello artifact")
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatal(err)
	}

	l, err := NewLayerFromFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if got, want := l.Annotation(AnnotationTitle), "artifact.txt"; got != want {
		t.Errorf("title = %q, want %q", got, want)
	}
	if l.Size != int64(len(content)) {
		t.Errorf("Size = %d, want %d", l.Size, len(content))
	}
	wantDigest, _, err := SHA256(bytes.NewReader(content))
	if err != nil {
		t.Fatal(err)
	}
	if l.Digest != wantDigest {
		t.Errorf("Digest = %v, want %v", l.Digest, wantDigest)
	}
	if !l.Local() {
		t.Error("Local() = false, want true")
	}

	rc, err := l.Open()
	if err != nil {
		t.Fatal(err)
	}
	defer rc.Close()
	got, err := io.ReadAll(rc)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, content) {
		t.Errorf("Open() = %q, want %q", got, content)
	}
}

func TestLayerFromData(t *testing.T) {
	l, err := NewLayerFromData([]byte("inline"), WithLayerAlgorithm("sha512"))
	if err != nil {
		t.Fatal(err)
	}
	if got, want := l.Digest.Algorithm, "sha512"; got != want {
		t.Errorf("algorithm = %q, want %q", got, want)
	}
	rc, err := l.Open()
	if err != nil {
		t.Fatal(err)
	}
	defer rc.Close()
	b, err := io.ReadAll(rc)
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != "inline" {
		t.Errorf("Open() = %q", b)
	}
}

func TestRemoteLayerHasNoContent(t *testing.T) {
	l := RemoteLayer(Descriptor{Digest: Hash{Algorithm: "sha256", Hex: "00"}})
	if l.Local() {
		t.Error("Local() = true, want false")
	}
	if _, err := l.Open(); !errdef.IsKind(err, errdef.KindInvalidState) {
		t.Errorf("Open() = %v, want invalid state", err)
	}
}
