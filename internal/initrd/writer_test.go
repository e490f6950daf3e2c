// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package initrd_test

import (
	"bytes"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/aibor/vmrun/internal/initrd"
	"github.com/cavaliergopher/cpio"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readArchive(t *testing.T, r io.Reader) map[string]*cpio.Header {
	t.Helper()

	headers := map[string]*cpio.Header{}
	reader := cpio.NewReader(r)

	for {
		hdr, err := reader.Next()
		if errors.Is(err, io.EOF) {
			return headers
		}

		require.NoError(t, err)

		headers[hdr.Name] = hdr
	}
}

func TestWriter_WriteRegular(t *testing.T) {
	testFS := fstest.MapFS{
		"regular": &fstest.MapFile{Data: []byte("\x7fELF")},
		"dir":     &fstest.MapFile{Mode: fs.ModeDir},
	}

	tests := []struct {
		name        string
		source      string
		close       bool
		expectedErr error
	}{
		{
			name:   "regular",
			source: "regular",
		},
		{
			name:        "directory",
			source:      "dir",
			expectedErr: initrd.ErrNotRegularFile,
		},
		{
			name:        "closed",
			source:      "regular",
			close:       true,
			expectedErr: cpio.ErrWriteAfterClose,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var archive bytes.Buffer

			w := initrd.NewWriter(&archive)

			if tt.close {
				require.NoError(t, w.Close())
			}

			file, err := testFS.Open(tt.source)
			require.NoError(t, err)

			err = w.WriteRegular("test", file, 0o700)
			require.ErrorIs(t, err, tt.expectedErr)

			if tt.expectedErr != nil {
				return
			}

			require.NoError(t, w.Close())

			reader := cpio.NewReader(&archive)

			hdr, err := reader.Next()
			require.NoError(t, err)
			assert.Equal(t, "test", hdr.Name)
			assert.EqualValues(t, 0o700|cpio.TypeReg, hdr.Mode)

			body, err := io.ReadAll(reader)
			require.NoError(t, err)
			assert.Equal(t, []byte("\x7fELF"), body)
		})
	}
}

func TestCreateFile(t *testing.T) {
	dir := t.TempDir()
	appPath := filepath.Join(dir, "app.elf")

	require.NoError(t, os.WriteFile(appPath, []byte("application"), 0o644))

	path, err := initrd.CreateFile(dir, appPath)
	require.NoError(t, err)
	assert.Equal(t, dir, filepath.Dir(path))

	file, err := os.Open(path)
	require.NoError(t, err)

	t.Cleanup(func() { _ = file.Close() })

	headers := readArchive(t, file)
	require.Contains(t, headers, initrd.AppPath)
	assert.EqualValues(t, len("application"), headers[initrd.AppPath].Size)
	assert.EqualValues(t, 0o755|cpio.TypeReg, headers[initrd.AppPath].Mode)
}

func TestCreateFile_MissingApp(t *testing.T) {
	dir := t.TempDir()

	_, err := initrd.CreateFile(dir, filepath.Join(dir, "missing"))
	require.ErrorIs(t, err, fs.ErrNotExist)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}
