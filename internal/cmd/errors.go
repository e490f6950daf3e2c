// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package cmd

import (
	"errors"
	"flag"
	"fmt"
)

var (
	// ErrHelp is returned when help is requested.
	ErrHelp = flag.ErrHelp

	// ErrReadBuildInfo is returned if the build info of the binary can not
	// be read.
	ErrReadBuildInfo = errors.New("failed to read build info")

	// ErrKVMNotAvailable is returned if KVM can not be used on the host.
	ErrKVMNotAvailable = errors.New("kvm not available (use -fallback-qemu)")
)

// ParseArgsError wraps errors that occur during argument parsing.
type ParseArgsError struct {
	msg string
	err error
}

func (e *ParseArgsError) Error() string {
	if e.err == nil {
		return e.msg
	}

	return fmt.Sprintf("%s: %v", e.msg, e.err)
}

func (*ParseArgsError) Is(other error) bool {
	_, ok := other.(*ParseArgsError)
	return ok
}

func (e *ParseArgsError) Unwrap() error {
	return e.err
}
