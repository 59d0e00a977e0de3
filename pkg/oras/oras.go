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

package oras

import (
	"github.com/oras-community/go-oras/pkg/name"
	"github.com/oras-community/go-oras/pkg/store"
	"github.com/oras-community/go-oras/pkg/v1/layout"
	"github.com/oras-community/go-oras/pkg/v1/remote"
)

// Both transports satisfy the store contract over their own reference type.
var (
	_ store.Store[name.Container] = (*remote.Registry)(nil)
	_ store.Store[name.Layout]    = (*layout.Store)(nil)
)
