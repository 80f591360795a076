// Copyright 2025 The Fluxion Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package util

// Ref returns a pointer to the given value.
func Ref[k any](input k) *k {
	return &input
}

// DerefOr dereferences the pointer or falls back to the default.
func DerefOr[k any](input *k, def k) k {
	if input == nil {
		return def
	}
	return *input
}
