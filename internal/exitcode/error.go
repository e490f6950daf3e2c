// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

// Package exitcode maps guest results to process exit codes.
package exitcode

import (
	"errors"
	"fmt"
)

// Error is a non-zero exit code of a guest.
type Error int

func (e Error) Error() string {
	return fmt.Sprintf("guest exited with code %d", int(e))
}

// Is matches any [Error].
func (Error) Is(other error) bool {
	_, ok := other.(Error)
	return ok
}

// Code returns the exit code as basic int type.
func (e Error) Code() int {
	return int(e)
}

// From returns the process exit code for the result of a guest run and whether
// it was reported by the guest.
//
// A nil error is exit code 0. An [Error] anywhere in the chain provides its
// code. Any other error is a failure of the hypervisor and results in -1.
func From(err error) (int, bool) {
	var exitErr Error

	switch {
	case err == nil:
		return 0, false
	case errors.As(err, &exitErr):
		return exitErr.Code(), true
	default:
		return -1, false
	}
}
