// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package exitcode

// Payloads the guest writes to the debug exit port.
const (
	DebugExitSuccess = 0x10
	DebugExitFailure = 0x11
)

// QEMUSuccess is the exit status of QEMU's isa-debug-exit device for
// [DebugExitSuccess]. The device exits with (payload << 1) | 1.
const QEMUSuccess = DebugExitSuccess<<1 | 1

// FromDebugExit returns the result for the given debug exit port payload.
//
// [DebugExitSuccess] results in nil and [DebugExitFailure] in exit code 1. Any
// other payload is used as exit code as is.
func FromDebugExit(payload uint32) error {
	switch payload {
	case DebugExitSuccess:
		return nil
	case DebugExitFailure:
		return Error(1)
	default:
		return Error(payload)
	}
}

// FromQEMU returns the result for the given exit status of a QEMU process
// running a guest with isa-debug-exit device.
func FromQEMU(status int) error {
	if status == QEMUSuccess || status == 0 {
		return nil
	}

	return Error(status)
}
