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
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestAnnotationsRoundTrip(t *testing.T) {
	for _, a := range []Annotations{
		{},
		{Manifest: map[string]string{"org.example.key": "value"}},
		{Config: map[string]string{"a": "b"}},
		{
			Manifest: map[string]string{"m": "1"},
			Config:   map[string]string{"c": "2"},
			Files: map[string]map[string]string{
				"artifact.txt": {"org.example.note": "hi"},
				"other.bin":    {"x": "y"},
			},
		},
	} {
		b, err := json.Marshal(a)
		if err != nil {
			t.Fatalf("Marshal(%+v): %v", a, err)
		}
		got, err := ParseAnnotations(b)
		if err != nil {
			t.Fatalf("ParseAnnotations(%s): %v", b, err)
		}
		if diff := cmp.Diff(a, *got); diff != "" {
			t.Errorf("round trip (-want +got):\n%s", diff)
		}
	}
}

func TestAnnotationsReservedKeys(t *testing.T) {
	in := `{
		"$manifest": {"org.example.m": "1"},
		"$config": {"org.example.c": "2"},
		"file.txt": {"org.example.f": "3"}
	}`
	a, err := ParseAnnotations([]byte(in))
	if err != nil {
		t.Fatal(err)
	}
	if got := a.Manifest["org.example.m"]; got != "1" {
		t.Errorf("Manifest[org.example.m] = %q, want 1", got)
	}
	if got := a.Config["org.example.c"]; got != "2" {
		t.Errorf("Config[org.example.c] = %q, want 2", got)
	}
	if got := a.ForFile("file.txt")["org.example.f"]; got != "3" {
		t.Errorf("ForFile(file.txt)[org.example.f] = %q, want 3", got)
	}
	if a.ForFile("missing.txt") != nil {
		t.Error("ForFile(missing.txt) != nil")
	}
}

func TestAnnotationsEmptyBucketsOmitted(t *testing.T) {
	b, err := json.Marshal(Annotations{Files: map[string]map[string]string{"empty.txt": {}}})
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != "{}" {
		t.Errorf("Marshal = %s, want {}", b)
	}
}
