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

package utils

import (
	"strconv"
	"strings"
)

// TryParseJsonValue attempts to convert an input string into a simple JSON value (string, number, boolean, or null).
//
// Complex values (arrays and objects) are not supported and treated as strings.
// Quoted values are always treated as strings.
//
// Conversion rules:
//
//	null    -> nil
//	123     -> float64
//	"123"   -> string
//	false   -> boolean
//	"false" -> string
//	abc     -> string
//	"abc"   -> string
func TryParseJsonValue(str string) interface{} {
	if str == "null" {
		return nil
	} else if strings.HasPrefix(str, "\"") {
		return strings.Trim(str, "\"")
	}

	if val, err := strconv.ParseFloat(str, 64); err == nil {
		return val
	} else if val, err := strconv.ParseBool(str); err == nil {
		return val
	}

	return str
}
