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

package command

import (
	"context"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRootHelp(t *testing.T) {
	stdout, stderr, err := executeAndResetCommand(context.Background(), rootCmd, []string{"--help"})
	assert.NoError(t, err)
	assert.Contains(t, stdout, "Usage:\n  fluxion [command]")
	assert.Contains(t, stdout, "eval")
	assert.Contains(t, stdout, "resources")
	assert.Contains(t, stdout, "--quiet")
	assert.Contains(t, stdout, "-v, --verbose count")
	assert.Equal(t, "", stderr)
}

func TestRootVersion(t *testing.T) {
	stdout, stderr, err := executeAndResetCommand(context.Background(), rootCmd, []string{"--version"})
	assert.NoError(t, err)
	assert.Regexp(t, regexp.MustCompile(`^fluxion \d+\.\d+\.\d+ \(build: .+, sha: .+\)\n$`), stdout)
	assert.Equal(t, "", stderr)
}

func TestRootUnknownCommand(t *testing.T) {
	_, _, err := executeAndResetCommand(context.Background(), rootCmd, []string{"bananas"})
	assert.EqualError(t, err, "unknown command \"bananas\" for \"fluxion\"")
}
