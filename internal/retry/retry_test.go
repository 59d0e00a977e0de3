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

package retry

import (
	"errors"
	"testing"
	"time"
)

type tempErr struct{}

func (tempErr) Error() string   { return "temporary" }
func (tempErr) Temporary() bool { return true }

var fastBackoff = Backoff{
	Duration: time.Millisecond,
	Factor:   1.0,
	Steps:    3,
}

func TestRetryEventualSuccess(t *testing.T) {
	calls := 0
	err := Retry(func() error {
		calls++
		if calls < 3 {
			return tempErr{}
		}
		return nil
	}, IsTemporary, fastBackoff)
	if err != nil {
		t.Errorf("Retry = %v, want nil", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestRetryStopsOnPermanentError(t *testing.T) {
	permanent := errors.New("permanent")
	calls := 0
	err := Retry(func() error {
		calls++
		return permanent
	}, IsTemporary, fastBackoff)
	if !errors.Is(err, permanent) {
		t.Errorf("Retry = %v, want %v", err, permanent)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestRetryExhaustsSteps(t *testing.T) {
	calls := 0
	err := Retry(func() error {
		calls++
		return tempErr{}
	}, IsTemporary, fastBackoff)
	if err == nil {
		t.Error("Retry = nil, want error")
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestIsTemporary(t *testing.T) {
	if IsTemporary(errors.New("nope")) {
		t.Error("IsTemporary(plain error) = true")
	}
	if !IsTemporary(tempErr{}) {
		t.Error("IsTemporary(tempErr) = false")
	}
}
