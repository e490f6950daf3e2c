// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

//go:build linux

package guestmem

import (
	"fmt"

	"github.com/aibor/vmrun/internal/sys"
	"golang.org/x/sys/unix"
)

// Allocate maps size bytes of private anonymous host memory suitable for
// backing guest memory. Transparent huge pages are disabled for it.
func Allocate(size uint64) ([]byte, error) {
	mem, err := unix.Mmap(
		-1,
		0,
		int(size),
		unix.PROT_READ|unix.PROT_WRITE,
		unix.MAP_PRIVATE|unix.MAP_ANONYMOUS|unix.MAP_NORESERVE,
	)
	if err != nil {
		return nil, sys.NewError(sys.ErrMmapFailed, fmt.Errorf("%d bytes: %w", size, err))
	}

	err = unix.Madvise(mem, unix.MADV_NOHUGEPAGE)
	if err != nil {
		_ = unix.Munmap(mem)
		return nil, sys.NewError(sys.ErrMadviseFailed, err)
	}

	return mem, nil
}

// Release unmaps memory obtained by [Allocate].
func Release(mem []byte) error {
	err := unix.Munmap(mem)
	if err != nil {
		return fmt.Errorf("munmap: %w", err)
	}

	return nil
}
