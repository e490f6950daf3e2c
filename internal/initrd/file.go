// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package initrd

import (
	"errors"
	"fmt"
	"os"
)

// CreateFile writes an archive with the application at appPath into a new
// file in dir and returns its path. The caller is responsible for removing it.
func CreateFile(dir, appPath string) (string, error) {
	app, err := os.Open(appPath)
	if err != nil {
		return "", fmt.Errorf("open app: %w", err)
	}
	defer app.Close()

	file, err := os.CreateTemp(dir, "vmrun-initrd-*.cpio")
	if err != nil {
		return "", fmt.Errorf("create initrd: %w", err)
	}

	err = WriteApp(file, app)
	if err != nil {
		err = errors.Join(err, file.Close(), os.Remove(file.Name()))
		return "", err
	}

	err = file.Close()
	if err != nil {
		return "", errors.Join(fmt.Errorf("close initrd: %w", err), os.Remove(file.Name()))
	}

	return file.Name(), nil
}
