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

package name

import "testing"

const layoutDigest = "sha256:b5b2b2c507a0944348e0303114d8d93aaaa081732b86451d9bce1f432a537bc7"

func TestParseLayout(t *testing.T) {
	for _, tc := range []struct {
		ref  string
		want Layout
	}{{
		ref:  "./layout",
		want: Layout{Path: "./layout", Tag: "latest"},
	}, {
		ref:  "/tmp/layout:v1",
		want: Layout{Path: "/tmp/layout", Tag: "v1"},
	}, {
		ref:  "layout@" + layoutDigest,
		want: Layout{Path: "layout", Tag: "latest", Digest: layoutDigest},
	}, {
		// When both are present, the digest wins for addressing.
		ref:  "layout:v1@" + layoutDigest,
		want: Layout{Path: "layout", Tag: "v1", Digest: layoutDigest},
	}} {
		got, err := ParseLayout(tc.ref)
		if err != nil {
			t.Errorf("ParseLayout(%q): %v", tc.ref, err)
			continue
		}
		if got != tc.want {
			t.Errorf("ParseLayout(%q) = %#v, want %#v", tc.ref, got, tc.want)
		}
	}
}

func TestLayoutIdentifier(t *testing.T) {
	l, err := ParseLayout("layout:v1@" + layoutDigest)
	if err != nil {
		t.Fatal(err)
	}
	if got := l.Identifier(); got != layoutDigest {
		t.Errorf("Identifier() = %q, want digest", got)
	}
	if !l.IsValidDigest() {
		t.Error("IsValidDigest() = false, want true")
	}

	tagged, err := ParseLayout("layout:v1")
	if err != nil {
		t.Fatal(err)
	}
	if got := tagged.Identifier(); got != "v1" {
		t.Errorf("Identifier() = %q, want v1", got)
	}
	if tagged.IsValidDigest() {
		t.Error("IsValidDigest() = true, want false")
	}
}

func TestParseLayoutErrors(t *testing.T) {
	if _, err := ParseLayout("layout@sha256:no!hex"); err == nil {
		t.Error("ParseLayout with malformed digest: expected error, got none")
	}
}
