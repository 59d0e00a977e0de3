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

// Package registrytest implements an in-memory registry speaking enough of
// the OCI distribution spec for this library's tests: blobs, two upload
// flows, manifests with subject handling, the referrers API, tag listing,
// the catalog, and an optional bearer-token handshake.
package registrytest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	v1 "github.com/oras-community/go-oras/pkg/v1"
	"github.com/oras-community/go-oras/pkg/v1/types"
)

// Option configures the registry.
type Option func(*Registry)

// WithTwoStepUpload makes POST-with-digest answer 202 + Location, forcing
// clients through the POST-then-PUT flow.
func WithTwoStepUpload() Option {
	return func(r *Registry) { r.twoStep = true }
}

// WithToken requires a bearer token obtained from the /token endpoint with
// the given credentials.
func WithToken(username, password, token string) Option {
	return func(r *Registry) {
		r.username, r.password, r.token = username, password, token
	}
}

// WithoutSubjectSupport drops the OCI-Subject response header, emulating a
// registry that stores subject manifests without a referrers index.
func WithoutSubjectSupport() Option {
	return func(r *Registry) { r.noSubject = true }
}

// WithBlobRedirect serves blob GETs as a redirect to a /cdn/ path, like
// registries fronted by a CDN. Set CDNBase to point the redirect at a
// different server.
func WithBlobRedirect() Option {
	return func(r *Registry) { r.blobRedirect = true }
}

type storedManifest struct {
	contentType string
	body        []byte
}

// Registry is the in-memory registry. Use its Handler with httptest.
type Registry struct {
	mu        sync.Mutex
	blobs     map[string][]byte                    // digest -> content
	manifests map[string]map[string]storedManifest // repo -> reference -> manifest
	uploads   map[string]bool

	twoStep      bool
	noSubject    bool
	blobRedirect bool

	// CDNBase prefixes blob redirect locations, so tests can host the
	// "CDN" on a second server.
	CDNBase string

	username, password, token string

	// Requests counts hits per path, for assertions about the auth flow.
	Requests map[string]int
}

// New returns an empty Registry.
func New(opts ...Option) *Registry {
	r := &Registry{
		blobs:     map[string][]byte{},
		manifests: map[string]map[string]storedManifest{},
		uploads:   map[string]bool{},
		Requests:  map[string]int{},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Handler returns the http.Handler for the registry.
func (r *Registry) Handler() http.Handler {
	return http.HandlerFunc(r.serve)
}

// BlobCount returns the number of stored blobs.
func (r *Registry) BlobCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.blobs)
}

func (r *Registry) serve(w http.ResponseWriter, req *http.Request) {
	r.mu.Lock()
	r.Requests[req.URL.Path]++
	r.mu.Unlock()

	if req.URL.Path == "/token" {
		r.serveToken(w, req)
		return
	}
	if r.blobRedirect && strings.HasPrefix(req.URL.Path, "/cdn/") {
		r.serveCDN(w, req)
		return
	}
	if !strings.HasPrefix(req.URL.Path, "/v2") {
		http.NotFound(w, req)
		return
	}
	if !r.authorized(req) {
		realm := fmt.Sprintf("http://%s/token", req.Host)
		w.Header().Set("WWW-Authenticate",
			fmt.Sprintf(`Bearer realm=%q,service="registrytest",scope="repository:*:pull"`, realm))
		regError(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required")
		return
	}

	path := strings.TrimPrefix(req.URL.Path, "/v2")
	path = strings.TrimPrefix(path, "/")
	switch {
	case path == "" || path == "/":
		w.WriteHeader(http.StatusOK)
	case path == "_catalog":
		r.serveCatalog(w)
	case strings.HasSuffix(path, "/tags/list"):
		r.serveTags(w, strings.TrimSuffix(path, "/tags/list"))
	case strings.Contains(path, "/blobs/uploads"):
		r.serveUpload(w, req)
	case strings.Contains(path, "/blobs/"):
		r.serveBlob(w, req)
	case strings.Contains(path, "/manifests/"):
		r.serveManifest(w, req)
	case strings.Contains(path, "/referrers/"):
		r.serveReferrers(w, req)
	default:
		regError(w, http.StatusNotFound, "NAME_UNKNOWN", "unknown endpoint")
	}
}

func (r *Registry) authorized(req *http.Request) bool {
	if r.token == "" {
		return true
	}
	return req.Header.Get("Authorization") == "Bearer "+r.token
}

func (r *Registry) serveToken(w http.ResponseWriter, req *http.Request) {
	user, pass, ok := req.BasicAuth()
	if r.username != "" && (!ok || user != r.username || pass != r.password) {
		regError(w, http.StatusUnauthorized, "UNAUTHORIZED", "bad credentials")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	fmt.Fprintf(w, `{"token":%q,"expires_in":300}`, r.token)
}

func (r *Registry) serveCatalog(w http.ResponseWriter) {
	r.mu.Lock()
	repos := make([]string, 0, len(r.manifests))
	for repo := range r.manifests {
		repos = append(repos, repo)
	}
	r.mu.Unlock()
	json.NewEncoder(w).Encode(map[string][]string{"repositories": repos})
}

func (r *Registry) serveTags(w http.ResponseWriter, repo string) {
	r.mu.Lock()
	var tags []string
	for ref := range r.manifests[repo] {
		if !strings.Contains(ref, ":") {
			tags = append(tags, ref)
		}
	}
	r.mu.Unlock()
	json.NewEncoder(w).Encode(map[string]any{"name": repo, "tags": tags})
}

// blob path: /v2/<repo>/blobs/<digest>
func splitPath(path, sep string) (repo, rest string) {
	trimmed := strings.TrimPrefix(path, "/v2/")
	i := strings.Index(trimmed, sep)
	return trimmed[:i], trimmed[i+len(sep):]
}

func (r *Registry) serveBlob(w http.ResponseWriter, req *http.Request) {
	_, digest := splitPath(req.URL.Path, "/blobs/")

	r.mu.Lock()
	b, ok := r.blobs[digest]
	r.mu.Unlock()
	if !ok {
		regError(w, http.StatusNotFound, "BLOB_UNKNOWN", "unknown blob")
		return
	}

	switch req.Method {
	case http.MethodHead:
		w.Header().Set("Content-Length", fmt.Sprint(len(b)))
		w.Header().Set("Docker-Content-Digest", digest)
		w.WriteHeader(http.StatusOK)
	case http.MethodGet:
		if r.blobRedirect {
			http.Redirect(w, req, r.CDNBase+"/cdn/"+digest, http.StatusTemporaryRedirect)
			return
		}
		w.Header().Set("Content-Length", fmt.Sprint(len(b)))
		w.Header().Set("Docker-Content-Digest", digest)
		w.Write(b)
	default:
		regError(w, http.StatusMethodNotAllowed, "UNSUPPORTED", "method not allowed")
	}
}

func (r *Registry) serveCDN(w http.ResponseWriter, req *http.Request) {
	if req.Header.Get("Authorization") != "" {
		regError(w, http.StatusBadRequest, "DENIED", "credentials forwarded to CDN")
		return
	}
	digest := strings.TrimPrefix(req.URL.Path, "/cdn/")
	r.mu.Lock()
	b, ok := r.blobs[digest]
	r.mu.Unlock()
	if !ok {
		http.NotFound(w, req)
		return
	}
	w.Header().Set("Content-Length", fmt.Sprint(len(b)))
	w.Write(b)
}

func (r *Registry) serveUpload(w http.ResponseWriter, req *http.Request) {
	repo, _ := splitPath(req.URL.Path, "/blobs/uploads")
	digest := req.URL.Query().Get("digest")

	switch req.Method {
	case http.MethodPost:
		if digest != "" && !r.twoStep {
			// Monolithic upload.
			b, err := io.ReadAll(req.Body)
			if err != nil {
				regError(w, http.StatusBadRequest, "BLOB_UPLOAD_INVALID", err.Error())
				return
			}
			r.putBlob(digest, b)
			w.Header().Set("Docker-Content-Digest", digest)
			w.WriteHeader(http.StatusCreated)
			return
		}
		// Two-step: hand out an upload location, draining any body sent
		// with the monolithic attempt.
		io.Copy(io.Discard, req.Body)
		loc := fmt.Sprintf("/v2/%s/blobs/uploads/session-1?session=abc", repo)
		r.mu.Lock()
		r.uploads[repo] = true
		r.mu.Unlock()
		w.Header().Set("Location", loc)
		w.WriteHeader(http.StatusAccepted)
	case http.MethodPut:
		if digest == "" {
			regError(w, http.StatusBadRequest, "DIGEST_INVALID", "missing digest")
			return
		}
		b, err := io.ReadAll(req.Body)
		if err != nil {
			regError(w, http.StatusBadRequest, "BLOB_UPLOAD_INVALID", err.Error())
			return
		}
		r.putBlob(digest, b)
		w.Header().Set("Docker-Content-Digest", digest)
		w.WriteHeader(http.StatusCreated)
	default:
		regError(w, http.StatusMethodNotAllowed, "UNSUPPORTED", "method not allowed")
	}
}

func (r *Registry) putBlob(digest string, b []byte) {
	r.mu.Lock()
	r.blobs[digest] = b
	r.mu.Unlock()
}

func (r *Registry) serveManifest(w http.ResponseWriter, req *http.Request) {
	repo, reference := splitPath(req.URL.Path, "/manifests/")

	switch req.Method {
	case http.MethodHead, http.MethodGet:
		r.mu.Lock()
		m, ok := r.manifests[repo][reference]
		r.mu.Unlock()
		if !ok {
			regError(w, http.StatusNotFound, "MANIFEST_UNKNOWN", "unknown manifest")
			return
		}
		digest, _, _ := v1.Compute(v1.DefaultAlgorithm, bytes.NewReader(m.body))
		w.Header().Set("Content-Type", m.contentType)
		w.Header().Set("Content-Length", fmt.Sprint(len(m.body)))
		w.Header().Set("Docker-Content-Digest", digest.String())
		if req.Method == http.MethodGet {
			w.Write(m.body)
		}
	case http.MethodPut:
		body, err := io.ReadAll(req.Body)
		if err != nil {
			regError(w, http.StatusBadRequest, "MANIFEST_INVALID", err.Error())
			return
		}
		digest, _, _ := v1.Compute(v1.DefaultAlgorithm, bytes.NewReader(body))
		sm := storedManifest{
			contentType: req.Header.Get("Content-Type"),
			body:        body,
		}
		r.mu.Lock()
		if r.manifests[repo] == nil {
			r.manifests[repo] = map[string]storedManifest{}
		}
		r.manifests[repo][reference] = sm
		r.manifests[repo][digest.String()] = sm
		r.mu.Unlock()

		var parsed struct {
			Subject *v1.Descriptor `json:"subject"`
		}
		if err := json.Unmarshal(body, &parsed); err == nil && parsed.Subject != nil && !r.noSubject {
			w.Header().Set("OCI-Subject", parsed.Subject.Digest.String())
		}
		w.Header().Set("Docker-Content-Digest", digest.String())
		w.Header().Set("Location", req.URL.Path)
		w.WriteHeader(http.StatusCreated)
	case http.MethodDelete:
		r.mu.Lock()
		delete(r.manifests[repo], reference)
		r.mu.Unlock()
		w.WriteHeader(http.StatusAccepted)
	default:
		regError(w, http.StatusMethodNotAllowed, "UNSUPPORTED", "method not allowed")
	}
}

// serveReferrers scans stored manifests for subjects matching the digest.
func (r *Registry) serveReferrers(w http.ResponseWriter, req *http.Request) {
	repo, digest := splitPath(req.URL.Path, "/referrers/")
	filter := req.URL.Query().Get("artifactType")

	r.mu.Lock()
	seen := map[string]bool{}
	out := []v1.Descriptor{}
	for ref, m := range r.manifests[repo] {
		if !strings.Contains(ref, ":") {
			// Tags alias a digest entry; skip to avoid duplicates.
			continue
		}
		if seen[ref] {
			continue
		}
		seen[ref] = true
		var parsed struct {
			ArtifactType string            `json:"artifactType"`
			Config       *v1.Descriptor    `json:"config"`
			Subject      *v1.Descriptor    `json:"subject"`
			Annotations  map[string]string `json:"annotations"`
		}
		if err := json.Unmarshal(m.body, &parsed); err != nil || parsed.Subject == nil {
			continue
		}
		if parsed.Subject.Digest.String() != digest {
			continue
		}
		at := parsed.ArtifactType
		if at == "" && parsed.Config != nil {
			at = string(parsed.Config.MediaType)
		}
		if filter != "" && at != filter {
			continue
		}
		h, _ := v1.NewHash(ref)
		out = append(out, v1.Descriptor{
			MediaType:    types.MediaType(m.contentType),
			Digest:       h,
			Size:         int64(len(m.body)),
			ArtifactType: at,
			Annotations:  parsed.Annotations,
		})
	}
	r.mu.Unlock()

	idx := map[string]any{
		"schemaVersion": 2,
		"mediaType":     string(types.OCIImageIndex),
		"manifests":     out,
	}
	w.Header().Set("Content-Type", string(types.OCIImageIndex))
	if filter != "" {
		w.Header().Set("OCI-Filters-Applied", "artifactType")
	}
	json.NewEncoder(w).Encode(idx)
}

func regError(w http.ResponseWriter, status int, code, message string) {
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]any{
		"errors": []map[string]string{{"code": code, "message": message}},
	})
}
