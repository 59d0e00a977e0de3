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

// Tags is the response of the tag listing endpoint.
type Tags struct {
	Name string   `json:"name"`
	Tags []string `json:"tags"`
}

// Repositories is the response of the catalog endpoint.
type Repositories struct {
	Repositories []string `json:"repositories"`
}
