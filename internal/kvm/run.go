// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package kvm

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// Offsets into the struct kvm_run shared with the kernel.
const (
	runExitReasonOffset = 8
	runExitDataOffset   = 32

	ioDirectionOffset  = runExitDataOffset
	ioSizeOffset       = runExitDataOffset + 1
	ioPortOffset       = runExitDataOffset + 2
	ioCountOffset      = runExitDataOffset + 4
	ioDataOffsetOffset = runExitDataOffset + 8

	runMinSize = runExitDataOffset + 16
)

// ErrInvalidRunData is returned if the shared run structure is inconsistent.
var ErrInvalidRunData = errors.New("invalid kvm_run data")

// DecodeExit decodes the exit state from the given kvm_run mapping.
//
// The data slice of an I/O exit references the given buffer.
func DecodeExit(run []byte) (Exit, error) {
	if len(run) < runMinSize {
		return Exit{}, fmt.Errorf("%w: size %d", ErrInvalidRunData, len(run))
	}

	le := binary.LittleEndian
	exit := Exit{
		Reason: ExitReason(le.Uint32(run[runExitReasonOffset:])),
	}

	switch exit.Reason {
	case ExitIO:
		io := IOExit{
			Direction: IODirection(run[ioDirectionOffset]),
			Size:      run[ioSizeOffset],
			Port:      le.Uint16(run[ioPortOffset:]),
			Count:     le.Uint32(run[ioCountOffset:]),
		}

		offset := le.Uint64(run[ioDataOffsetOffset:])
		size := uint64(io.Size) * uint64(io.Count)

		if offset > uint64(len(run)) || size > uint64(len(run))-offset {
			return Exit{}, fmt.Errorf(
				"%w: io data [%#x, %#x)", ErrInvalidRunData, offset, offset+size)
		}

		io.Data = run[offset : offset+size : offset+size]
		exit.IO = io
	case ExitFailEntry, ExitInternalError:
		exit.HardwareReason = le.Uint64(run[runExitDataOffset:])
	}

	return exit, nil
}
