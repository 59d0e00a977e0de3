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

// Package retry implements bounded retries with exponential backoff.
package retry

import (
	"errors"
	"math/rand"
	"time"
)

// Backoff describes the retry schedule: an initial Duration grown by Factor
// each step, with proportional random Jitter, for at most Steps attempts.
type Backoff struct {
	Duration time.Duration
	Factor   float64
	Jitter   float64
	Steps    int
}

// Predicate decides whether an error is worth retrying.
type Predicate func(error) bool

// temporary matches errors exposing a Temporary() bool, the convention used
// by net and by this library's transport errors.
type temporary interface {
	Temporary() bool
}

// IsTemporary returns true if err implements Temporary() and it returns true.
func IsTemporary(err error) bool {
	var t temporary
	return errors.As(err, &t) && t.Temporary()
}

// IsNotNil returns true if err is not nil.
func IsNotNil(err error) bool {
	return err != nil
}

// Retry calls f repeatedly per the backoff schedule until it succeeds, the
// schedule is exhausted, or the predicate rejects the error. The last error
// is returned.
func Retry(f func() error, p Predicate, backoff Backoff) error {
	if f == nil {
		return errors.New("nil f passed to retry")
	}
	if p == nil {
		return errors.New("nil p passed to retry")
	}

	var err error
	wait := backoff.Duration
	for i := 0; i < backoff.Steps; i++ {
		if err = f(); err == nil || !p(err) {
			return err
		}
		if i == backoff.Steps-1 {
			break
		}
		sleep := wait
		if backoff.Jitter > 0 {
			sleep += time.Duration(rand.Float64() * backoff.Jitter * float64(wait))
		}
		time.Sleep(sleep)
		wait = time.Duration(float64(wait) * backoff.Factor)
	}
	return err
}
