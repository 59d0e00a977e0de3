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

import (
	"regexp"
	"strings"

	"github.com/oras-community/go-oras/pkg/errdef"
	v1 "github.com/oras-community/go-oras/pkg/v1"
)

// layoutRegexp captures folder, tag, and digest. The folder need not exist
// on disk at parse time; that is checked when the layout store is opened.
var layoutRegexp = regexp.MustCompile(`^(.+?)(?::([^:@]+))?(?:@(.+))?$`)

// Layout is a parsed OCI image layout reference: folder[:tag][@digest].
type Layout struct {
	Path   string
	Tag    string
	Digest string
}

// ParseLayout parses s into a Layout reference. When both a tag and a
// digest are present, the digest wins.
func ParseLayout(s string) (Layout, error) {
	m := layoutRegexp.FindStringSubmatch(s)
	if m == nil || m[1] == "" {
		return Layout{}, errdef.New(errdef.KindParse, "cannot parse layout reference %q", s)
	}
	l := Layout{
		Path:   m[1],
		Tag:    m[2],
		Digest: m[3],
	}
	if l.Digest != "" {
		if _, err := v1.NewHash(l.Digest); err != nil {
			return Layout{}, err
		}
	}
	// A lone tag position holding a digest string is a digest.
	if l.Digest == "" && v1.IsValidDigest(l.Tag) {
		if _, err := v1.NewHash(l.Tag); err == nil {
			l.Digest = l.Tag
			l.Tag = ""
		}
	}
	if l.Tag == "" {
		l.Tag = DefaultTag
	}
	return l, nil
}

// String formats the reference back to its string form.
func (l Layout) String() string {
	var b strings.Builder
	b.WriteString(l.Path)
	if l.Tag != "" {
		b.WriteString(":")
		b.WriteString(l.Tag)
	}
	if l.Digest != "" {
		b.WriteString("@")
		b.WriteString(l.Digest)
	}
	return b.String()
}

// IsValidDigest reports whether the reference is pinned to a digest.
func (l Layout) IsValidDigest() bool {
	return l.Digest != ""
}

// Identifier returns the digest when present, otherwise the tag.
func (l Layout) Identifier() string {
	if l.Digest != "" {
		return l.Digest
	}
	return l.Tag
}

// DigestStr implements Ref.
func (l Layout) DigestStr() string {
	return l.Digest
}

// TagStr implements Ref.
func (l Layout) TagStr() string {
	return l.Tag
}

// Name implements Ref.
func (l Layout) Name() string {
	return l.Path
}

// Algorithm returns the digest algorithm implied by the reference.
func (l Layout) Algorithm() string {
	return algorithmOf(l.Digest)
}

// WithDigest returns a copy of the reference pinned to the given digest.
func (l Layout) WithDigest(digest string) Layout {
	l.Digest = digest
	return l
}

// WithTag returns a copy of the reference with the given tag and no digest.
func (l Layout) WithTag(tag string) Layout {
	l.Tag = tag
	l.Digest = ""
	return l
}
