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
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// Platform represents the target os/arch for an artifact.
type Platform struct {
	Architecture string   `json:"architecture"`
	OS           string   `json:"os"`
	OSVersion    string   `json:"os.version,omitempty"`
	OSFeatures   []string `json:"os.features,omitempty"`
	Variant      string   `json:"variant,omitempty"`
	Features     []string `json:"features,omitempty"`
}

// String returns the short inline form, e.g. linux/arm64/v8.
func (p Platform) String() string {
	if p.OS == "" {
		return ""
	}
	var b strings.Builder
	b.WriteString(p.OS)
	if p.Architecture != "" {
		b.WriteString("/")
		b.WriteString(p.Architecture)
	}
	if p.Variant != "" {
		b.WriteString("/")
		b.WriteString(p.Variant)
	}
	return b.String()
}

// ParsePlatform builds a structured Platform object based on either:
// JSON string: {"os":"windows","architecture":"amd64","os.version":"10.0.14393.1066"}
// Inline short format: linux/amd64 or linux/arm64/v8
func ParsePlatform(p string) (*Platform, error) {
	p = strings.TrimSpace(p)
	if strings.HasPrefix(p, "{") {
		var platform Platform
		if err := json.Unmarshal([]byte(p), &platform); err != nil {
			return nil, err
		}
		return &platform, nil
	}

	parts := strings.Split(p, "/")
	if len(parts) < 2 || len(parts) > 3 {
		return nil, fmt.Errorf("unable to parse platform: '%s', expected format is OS/ARCH(/VARIANT)", p)
	}

	platform := Platform{
		OS:           parts[0],
		Architecture: parts[1],
	}
	if len(parts) == 3 {
		platform.Variant = parts[2]
	}
	return &platform, nil
}

// Matches reports whether o targets the same os/arch/variant as p. When
// includeVersion is set, os.version must also agree; an unset version and an
// empty version compare equal.
func (p Platform) Matches(o Platform, includeVersion bool) bool {
	if p.OS != o.OS || p.Architecture != o.Architecture || p.Variant != o.Variant {
		return false
	}
	if includeVersion && p.OSVersion != o.OSVersion {
		return false
	}
	return true
}

// Equals returns true if the given platform is semantically equivalent to this one.
// The order of Features and OSFeatures is not important.
func (p Platform) Equals(o Platform) bool {
	return p.Matches(o, true) &&
		stringSliceEqualIgnoreOrder(p.OSFeatures, o.OSFeatures) &&
		stringSliceEqualIgnoreOrder(p.Features, o.Features)
}

func stringSliceEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i, elm := range a {
		if elm != b[i] {
			return false
		}
	}
	return true
}

func stringSliceEqualIgnoreOrder(a, b []string) bool {
	if a != nil && b != nil {
		a, b = append([]string{}, a...), append([]string{}, b...)
		sort.Strings(a)
		sort.Strings(b)
	}
	return stringSliceEqual(a, b)
}
