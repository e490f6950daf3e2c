// SPDX-FileCopyrightText: 2024 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package sys

import (
	"fmt"
	"os"
	"path/filepath"
)

// FilePath is an absolute path to a file.
type FilePath string

// String implements [flag.Value].
func (f *FilePath) String() string {
	return string(*f)
}

// Set implements [flag.Value].
func (f *FilePath) Set(s string) error {
	path, err := AbsoluteFilePath(s)
	if err != nil {
		return err
	}

	*f = path

	return nil
}

// Check returns an error if the path is not a regular file.
func (f FilePath) Check() error {
	stat, err := os.Stat(string(f))
	if err != nil {
		return fmt.Errorf("stat: %w", err)
	}

	if !stat.Mode().IsRegular() {
		return ErrNotRegularFile
	}

	return nil
}

// AbsoluteFilePath returns the absolute path for the given path.
func AbsoluteFilePath(path string) (FilePath, error) {
	if path == "" {
		return "", ErrEmptyFilePath
	}

	path, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("ensure absolute path: %w", err)
	}

	return FilePath(path), nil
}
