// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package sys

import (
	"fmt"
	"path/filepath"
	"runtime"
)

// Error is a hypervisor error of a specific kind.
//
// It matches its Kind with [errors.Is] and unwraps to the underlying cause.
type Error struct {
	// Kind is one of the error kind sentinels of this package.
	Kind error
	// Err is the optional underlying cause.
	Err error
	// Context is an optional "file:line" location of where the error was
	// created.
	Context string
}

// NewError creates a new [Error] with the caller's location as context.
func NewError(kind, err error) *Error {
	e := &Error{Kind: kind, Err: err}

	if _, file, line, ok := runtime.Caller(1); ok {
		e.Context = fmt.Sprintf("%s:%d", filepath.Base(file), line)
	}

	return e
}

// Error implements the [error] interface.
func (e *Error) Error() string {
	msg := e.Kind.Error()
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}

	if e.Context != "" {
		msg += " (" + e.Context + ")"
	}

	return msg
}

// Is implements the [errors.Is] interface.
func (e *Error) Is(other error) bool {
	if _, ok := other.(*Error); ok {
		return true
	}

	return e.Kind == other
}

// Unwrap implements the [errors.Unwrap] interface.
func (e *Error) Unwrap() error {
	return e.Err
}
