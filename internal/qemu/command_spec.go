// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package qemu

import (
	"fmt"
	"strconv"

	"github.com/aibor/vmrun/internal/bootinfo"
)

// DefaultExecutable is the QEMU binary used if none is given.
const DefaultExecutable = "qemu-system-x86_64"

// debugExitIOSize is the width of the debug exit port in bytes.
const debugExitIOSize = 4

// CommandSpec defines the parameters for a [Command].
type CommandSpec struct {
	// Path to the qemu-system binary. [DefaultExecutable] if empty.
	Executable string

	// Path to the kernel to boot.
	Kernel string

	// Path to an optional initrd, used to pass the application.
	Initrd string

	// Memory for the machine in MiB.
	Memory uint64

	// Disable KVM support.
	NoKVM bool

	// ExtraArgs are extra arguments that are passed to the QEMU command. They
	// must not interfere with the essential arguments set by the command
	// itself or an error will be returned by [NewCommand].
	ExtraArgs []Argument
}

// executable returns the QEMU binary to run.
func (s *CommandSpec) executable() string {
	if s.Executable == "" {
		return DefaultExecutable
	}

	return s.Executable
}

// Arguments compiles the argument list for the QEMU command.
func (s *CommandSpec) Arguments() []Argument {
	args := []Argument{
		UniqueArg("kernel", s.Kernel),
	}

	if s.Initrd != "" {
		args = append(args, UniqueArg("initrd", s.Initrd))
	}

	if s.Memory != 0 {
		args = append(args, UniqueArg("m", strconv.FormatUint(s.Memory, 10)))
	}

	if !s.NoKVM {
		args = append(args, UniqueArg("enable-kvm"))
	}

	args = append(args,
		// Guest reports its result via the debug exit port.
		RepeatableArg("device",
			"isa-debug-exit",
			fmt.Sprintf("iobase=%#x", bootinfo.DebugExitPort),
			fmt.Sprintf("iosize=%#04x", debugExitIOSize),
		),
		// Guest output is written to the first serial port.
		RepeatableArg("serial", "stdio"),
		// Disable video output.
		UniqueArg("display", "none"),
		// Disable QEMU monitor.
		UniqueArg("monitor", "none"),
		// Guest must not reboot.
		UniqueArg("no-reboot"),
		// Disable all default devices.
		UniqueArg("nodefaults"),
		// Do not load any user config files.
		UniqueArg("no-user-config"),
	)

	return append(args, s.ExtraArgs...)
}
