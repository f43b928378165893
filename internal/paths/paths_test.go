// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package paths

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetConfigDir_Override(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("STRADA_CHECK_CONFIG_DIR", dir)

	assert.Equal(t, dir, GetConfigDir())
	assert.Equal(t, filepath.Join(dir, "config.yaml"), GetConfigFile())
	assert.Equal(t, filepath.Join(dir, "suppressions.yaml"), GetSuppressionsFile())
	assert.Equal(t, filepath.Join(dir, "runs.db"), GetDatabaseFile())
}

func TestNormalizePath(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	assert.Equal(t, "", NormalizePath(""))
	assert.Equal(t, filepath.Join(home, "data"), NormalizePath("~/data/"))
	assert.Equal(t, filepath.Clean("a/b"), NormalizePath("a/./b"))
}

func TestResolvePath(t *testing.T) {
	abs, err := ResolvePath("x.csv")
	require.NoError(t, err)
	assert.True(t, filepath.IsAbs(abs))

	empty, err := ResolvePath("")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestValidatePath(t *testing.T) {
	assert.NoError(t, ValidatePath("/tmp/ok.csv"))
	err := ValidatePath("bad\x00path")
	var pve *PathValidationError
	require.ErrorAs(t, err, &pve)
	assert.Contains(t, err.Error(), "null byte")
}
