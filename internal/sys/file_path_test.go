// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package sys_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/aibor/vmrun/internal/sys"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFilePath_Set(t *testing.T) {
	var path sys.FilePath

	require.ErrorIs(t, path.Set(""), sys.ErrEmptyFilePath)

	require.NoError(t, path.Set("kernel.elf"))
	assert.True(t, filepath.IsAbs(path.String()))
}

func TestFilePath_Check(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "kernel")
	require.NoError(t, os.WriteFile(file, []byte{0x7f}, 0o600))

	require.NoError(t, sys.FilePath(file).Check())
	require.ErrorIs(t, sys.FilePath(dir).Check(), sys.ErrNotRegularFile)
	require.ErrorIs(t, sys.FilePath(dir+"/missing").Check(), os.ErrNotExist)
}
