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
	"fmt"
	"regexp"
	"strings"

	"github.com/oras-community/go-oras/pkg/errdef"
	v1 "github.com/oras-community/go-oras/pkg/v1"
)

const (
	// DefaultRegistry adopted for unqualified references.
	DefaultRegistry = "docker.io"
	// DefaultRegistryAPI is the API host actually serving DefaultRegistry.
	DefaultRegistryAPI = "registry-1.docker.io"
	// DefaultNamespace is assumed for docker.io references without one, for
	// path construction only.
	DefaultNamespace = "library"
	// DefaultTag adopted for references without one.
	DefaultTag = "latest"
)

var (
	schemePrefix = regexp.MustCompile(`^(?:https?|oci)://`)

	// containerRegexp has five capture groups: registry, namespace (with a
	// trailing slash), repository, tag, digest. The registry group only
	// matches a leading component that looks like a host: it contains a dot
	// or a port, or is "localhost".
	containerRegexp = regexp.MustCompile(`^` +
		`(?:([a-zA-Z0-9-]+(?:\.[a-zA-Z0-9.-]+)+(?::[0-9]+)?|[a-zA-Z0-9-]+:[0-9]+|localhost(?::[0-9]+)?)/)?` +
		`((?:[a-z0-9]+(?:[._-][a-z0-9]+)*/)*)` +
		`([a-z0-9]+(?:[._-][a-z0-9]+)*)` +
		`(?::([a-zA-Z0-9_][a-zA-Z0-9._-]{0,127}))?` +
		`(?:@([a-z0-9]+(?:[+._-][a-z0-9]+)*:[a-zA-Z0-9=_-]+))?` +
		`$`)
)

// Container is a parsed registry-hosted artifact reference:
// [registry/][namespace/]repository[:tag][@digest].
type Container struct {
	Registry   string
	Namespace  string
	Repository string
	Tag        string
	Digest     string

	// Unqualified records that the original string carried no registry.
	// During a copy, the unqualified side adopts the other side's registry.
	Unqualified bool
}

// ParseContainer parses s into a Container reference. The repository is
// mandatory; a bare name like "alpine" is rejected because there is no way
// to tell a repository from a namespace.
func ParseContainer(s string) (Container, error) {
	trimmed := schemePrefix.ReplaceAllString(s, "")
	m := containerRegexp.FindStringSubmatch(trimmed)
	if m == nil {
		return Container{}, errdef.New(errdef.KindParse, "cannot parse artifact reference %q", s)
	}

	c := Container{
		Registry:   m[1],
		Namespace:  strings.TrimSuffix(m[2], "/"),
		Repository: m[3],
		Tag:        m[4],
		Digest:     m[5],
	}

	if c.Digest != "" {
		if _, err := v1.NewHash(c.Digest); err != nil {
			return Container{}, err
		}
	}
	if c.Registry == "" {
		if c.Namespace == "" {
			return Container{}, errdef.New(errdef.KindParse,
				"artifact reference %q is minimally required to include <namespace>/<repository>", s)
		}
		c.Registry = DefaultRegistry
		c.Unqualified = true
	}
	if c.Tag == "" {
		c.Tag = DefaultTag
	}
	return c, nil
}

// MustParseContainer parses s or panics. For tests and compiled-in refs.
func MustParseContainer(s string) Container {
	c, err := ParseContainer(s)
	if err != nil {
		panic(err)
	}
	return c
}

// String formats the reference back to its string form. The registry is
// omitted for unqualified references so that parse/format round-trips.
func (c Container) String() string {
	var b strings.Builder
	if !c.Unqualified && c.Registry != "" {
		b.WriteString(c.Registry)
		b.WriteString("/")
	}
	if c.Namespace != "" {
		b.WriteString(c.Namespace)
		b.WriteString("/")
	}
	b.WriteString(c.Repository)
	if c.Tag != "" {
		b.WriteString(":")
		b.WriteString(c.Tag)
	}
	if c.Digest != "" {
		b.WriteString("@")
		b.WriteString(c.Digest)
	}
	return b.String()
}

// APIRegistry returns the host serving the registry API, rewriting
// docker.io to its real API endpoint.
func (c Container) APIRegistry() string {
	if c.Registry == DefaultRegistry {
		return DefaultRegistryAPI
	}
	return c.Registry
}

// RepositoryStr returns the path portion of the reference, applying the
// default docker.io namespace when absent.
func (c Container) RepositoryStr() string {
	ns := c.Namespace
	if ns == "" && c.Registry == DefaultRegistry {
		ns = DefaultNamespace
	}
	if ns == "" {
		return c.Repository
	}
	return ns + "/" + c.Repository
}

// ManifestsPath returns the host-qualified API path of the manifest
// endpoint for this reference, without a scheme.
func (c Container) ManifestsPath() string {
	return fmt.Sprintf("%s/v2/%s/manifests/%s", c.APIRegistry(), c.RepositoryStr(), c.Identifier())
}

// Identifier returns the digest when present, otherwise the tag.
func (c Container) Identifier() string {
	if c.Digest != "" {
		return c.Digest
	}
	return c.Tag
}

// DigestStr implements Ref.
func (c Container) DigestStr() string {
	return c.Digest
}

// TagStr implements Ref.
func (c Container) TagStr() string {
	return c.Tag
}

// Name implements Ref.
func (c Container) Name() string {
	return c.RepositoryStr()
}

// Algorithm returns the digest algorithm implied by the reference.
func (c Container) Algorithm() string {
	return algorithmOf(c.Digest)
}

// WithDigest returns a copy of the reference pinned to the given digest.
func (c Container) WithDigest(digest string) Container {
	c.Digest = digest
	return c
}

// WithTag returns a copy of the reference with the given tag and no digest.
func (c Container) WithTag(tag string) Container {
	c.Tag = tag
	c.Digest = ""
	return c
}

// WithRegistry returns a qualified copy of the reference on the given
// registry.
func (c Container) WithRegistry(registry string) Container {
	c.Registry = registry
	c.Unqualified = false
	return c
}

// Scope returns the auth scope string for the given action on this
// repository, e.g. "repository:library/alpine:pull".
func (c Container) Scope(actions string) string {
	return fmt.Sprintf("repository:%s:%s", c.RepositoryStr(), actions)
}

func algorithmOf(digest string) string {
	if digest == "" {
		return v1.DefaultAlgorithm
	}
	if i := strings.IndexByte(digest, ':'); i > 0 {
		return digest[:i]
	}
	return v1.DefaultAlgorithm
}
