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

// Package errdef defines the error kinds surfaced by this library.
package errdef

import (
	"errors"
	"fmt"
)

// Kind classifies an error for callers that need to branch on failure mode
// rather than on message text.
type Kind string

const (
	// KindParse indicates a malformed reference, digest, or JSON document.
	KindParse Kind = "parse"
	// KindInvalidState indicates an operation was attempted on a value that
	// is missing required information, e.g. a digest-less reference where a
	// digest is mandatory.
	KindInvalidState Kind = "invalid state"
	// KindNotFound indicates a missing blob, manifest, or tag.
	KindNotFound Kind = "not found"
	// KindAuth indicates an authentication or authorization failure that
	// survived the single token refresh retry.
	KindAuth Kind = "auth"
	// KindBadRequest indicates the registry rejected the request (4xx other
	// than 401/403).
	KindBadRequest Kind = "bad request"
	// KindTransport indicates a 5xx or an I/O failure.
	KindTransport Kind = "transport"
	// KindDigestMismatch indicates content whose computed digest does not
	// match the expected digest.
	KindDigestMismatch Kind = "digest mismatch"
	// KindPathTraversal indicates an archive entry that escapes the
	// extraction root.
	KindPathTraversal Kind = "path traversal"
)

// Error is the single error shape surfaced by this library. StatusCode is
// zero for errors that did not originate from an HTTP response.
type Error struct {
	Kind       Kind
	Message    string
	Cause      error
	StatusCode int
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target is an *Error of the same Kind, so that callers
// can match with errors.Is(err, &errdef.Error{Kind: errdef.KindNotFound}).
func (e *Error) Is(target error) bool {
	var te *Error
	if !errors.As(target, &te) {
		return false
	}
	return te.Kind == e.Kind && (te.Message == "" || te.Message == e.Message)
}

// New returns an Error of the given kind.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap returns an Error of the given kind wrapping cause.
func Wrap(kind Kind, cause error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// Kinder is implemented by error types that classify themselves, such as
// the transport's HTTP error.
type Kinder interface {
	ErrorKind() Kind
}

// IsKind reports whether err is or wraps an error of the given kind.
func IsKind(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) && e.Kind == kind {
		return true
	}
	var k Kinder
	return errors.As(err, &k) && k.ErrorKind() == kind
}
