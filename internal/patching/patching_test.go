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

package patching

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func exampleDoc() map[string]interface{} {
	return map[string]interface{}{
		"module": "demo",
		"inputs": []interface{}{
			map[string]interface{}{"name": "base", "value": 6},
		},
	}
}

func TestPatchManifest_emptyTemplate(t *testing.T) {
	doc := exampleDoc()
	out, err := PatchManifest(doc, "")
	require.NoError(t, err)
	assert.Equal(t, doc, out)
}

func TestPatchManifest_setAndDelete(t *testing.T) {
	out, err := PatchManifest(exampleDoc(), `
- op: set
  path: inputs.0.value
  value: 10
- op: set
  path: module
  value: other
`)
	require.NoError(t, err)
	assert.Equal(t, "other", out["module"])
	assert.Equal(t, 10.0, out["inputs"].([]interface{})[0].(map[string]interface{})["value"])

	out, err = PatchManifest(exampleDoc(), `
- op: delete
  path: inputs
`)
	require.NoError(t, err)
	assert.NotContains(t, out, "inputs")
}

func TestPatchManifest_templateSeesManifest(t *testing.T) {
	out, err := PatchManifest(exampleDoc(), `
- op: set
  path: module
  value: {{ .Manifest.module }}-patched
`)
	require.NoError(t, err)
	assert.Equal(t, "demo-patched", out["module"])
}

func TestPatchManifest_unknownOp(t *testing.T) {
	_, err := PatchManifest(exampleDoc(), `
- op: replace
  path: module
  value: x
`)
	assert.ErrorContains(t, err, "unknown operation: replace")
}

func TestPatchManifest_badPatchShape(t *testing.T) {
	_, err := PatchManifest(exampleDoc(), `
- op: set
  path: module
  bananas: true
`)
	assert.ErrorContains(t, err, "failed to unmarshal patches")
}

func TestValidatePatchTemplate(t *testing.T) {
	assert.NoError(t, ValidatePatchTemplate(`- op: set`))
	assert.Error(t, ValidatePatchTemplate(`{{ nosuchfunc }}`))
}
