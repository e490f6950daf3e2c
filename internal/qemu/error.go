// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package qemu

import (
	"errors"
	"fmt"
)

var (
	// ErrArgumentCollision is returned if two [Argument]s can not be used
	// together.
	ErrArgumentCollision = errors.New("colliding args")

	// ErrNoKernel is returned if no kernel is given.
	ErrNoKernel = errors.New("no kernel given")
)

// ArgumentError indicates an issue with an input argument.
type ArgumentError struct {
	msg string
}

// Error implements the [error] interface.
func (e *ArgumentError) Error() string {
	return "argument error: " + e.msg
}

// Is implements the [errors.Is] interface.
func (*ArgumentError) Is(other error) bool {
	_, ok := other.(*ArgumentError)
	return ok
}

// CommandError wraps any error occurred during Command execution.
type CommandError struct {
	Err      error
	Guest    bool
	ExitCode int
}

// Error implements the [error] interface.
func (e *CommandError) Error() string {
	scope := "host"
	if e.Guest {
		scope = "guest"
	}

	return "qemu " + scope + ": " + e.Err.Error()
}

// Is implements the [errors.Is] interface.
func (*CommandError) Is(other error) bool {
	_, ok := other.(*CommandError)
	return ok
}

// Unwrap implements the [errors.Unwrap] interface.
func (e *CommandError) Unwrap() error {
	return e.Err
}

// ConsoleError wraps any error occurring while copying console output.
type ConsoleError struct {
	Name string
	Err  error
}

// Error implements the [error] interface.
func (e *ConsoleError) Error() string {
	return fmt.Sprintf("console %s: %v", e.Name, e.Err)
}

// Unwrap implements the [errors.Unwrap] interface.
func (e *ConsoleError) Unwrap() error {
	return e.Err
}
