// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

// Package initrd packs the application into a cpio archive that is passed to
// QEMU as initrd.
package initrd

import (
	"errors"
	"fmt"
	"io"
	"io/fs"

	"github.com/cavaliergopher/cpio"
)

// AppPath is the path of the application in the archive.
const AppPath = "app"

// ErrNotRegularFile is returned if a source is not a regular file.
var ErrNotRegularFile = errors.New("not a regular file")

// Writer writes files into a cpio archive.
type Writer struct {
	cpioWriter *cpio.Writer
}

// NewWriter creates a new archive [Writer].
func NewWriter(w io.Writer) *Writer {
	return &Writer{cpio.NewWriter(w)}
}

// Close writes the archive trailer and flushes the data to the underlying
// [io.Writer].
func (w *Writer) Close() error {
	err := w.cpioWriter.Close()
	if err != nil {
		return fmt.Errorf("close: %w", err)
	}

	return nil
}

// WriteRegular copies the regular file source into the archive at path.
func (w *Writer) WriteRegular(path string, source fs.File, mode fs.FileMode) error {
	info, err := source.Stat()
	if err != nil {
		return fmt.Errorf("read info: %w", err)
	}

	if !info.Mode().IsRegular() {
		return fmt.Errorf("%w: %s", ErrNotRegularFile, info.Name())
	}

	hdr, err := cpio.FileInfoHeader(info, "")
	if err != nil {
		return fmt.Errorf("create header: %w", err)
	}

	hdr.Name = path
	hdr.Mode = cpio.TypeReg | cpio.FileMode(mode.Perm())

	err = w.cpioWriter.WriteHeader(hdr)
	if err != nil {
		return fmt.Errorf("write header for %s: %w", path, err)
	}

	_, err = io.Copy(w.cpioWriter, source)
	if err != nil {
		return fmt.Errorf("write body for %s: %w", path, err)
	}

	return nil
}

// WriteApp writes an archive containing only the application at [AppPath].
func WriteApp(w io.Writer, app fs.File) error {
	archive := NewWriter(w)

	err := archive.WriteRegular(AppPath, app, 0o755)
	if err != nil {
		return err
	}

	return archive.Close()
}
