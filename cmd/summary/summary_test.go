/*
Copyright 2026 The Kubernetes Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package summary

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"k8s.io/gcovage/pkg/gcov/gcovtest"
)

func writeTree(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	sample := gcovtest.Sample()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "obj"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "obj", "sample.gcno"), sample.Graph(binary.LittleEndian), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "obj", "sample.gcda"), sample.Counters(binary.LittleEndian), 0644))
	return root
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := MakeCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(append(args, "--log-level", "error"))
	err := cmd.Execute()
	return out.String(), err
}

func TestSummary(t *testing.T) {
	out, err := execute(t, "--root", writeTree(t))
	require.NoError(t, err)
	assert.Equal(t, "sample.c\t94.4% (17 of 18 lines) covered\nOVERALL\t94.4% (17 of 18 lines) covered\n", out)
}

func TestSummaryFunctions(t *testing.T) {
	out, err := execute(t, "--root", writeTree(t), "--functions")
	require.NoError(t, err)
	assert.Contains(t, out, "function main (sample.c:5) called 2 blocks executed 87.5%\n")
}

func TestSummaryFailBelowThreshold(t *testing.T) {
	root := writeTree(t)
	_, err := execute(t, "--root", root, "--fail-below-threshold", "-t", "0.95")
	assert.Error(t, err)
	_, err = execute(t, "--root", root, "--fail-below-threshold", "-t", "0.9")
	assert.NoError(t, err)
}

func TestSummaryRequiresRoot(t *testing.T) {
	_, err := execute(t)
	assert.Error(t, err)
}
