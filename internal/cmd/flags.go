// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package cmd

import (
	"flag"
	"fmt"
	"io"

	"github.com/aibor/vmrun/internal/qemu"
	"github.com/aibor/vmrun/internal/sys"
	"github.com/aibor/vmrun/internal/vm"
)

const (
	name = "vmrun"

	memDefault = 512
	memMin     = vm.MinMemorySize >> 20
	memMax     = vm.MaxMemorySize >> 20

	usageMessage = `Usage of 'vmrun':
    vmrun [flags...] kernel
    vmrun -fallback-qemu [flags...] kernel [-- qemu-args...]

Running a kernel with an application:
	vmrun -app=./my_app ./kernel

All vmrun flags can also be provided via environment variable VMRUN_ARGS:
	VMRUN_ARGS="-debug -memory=256" vmrun ./kernel

All vmrun flags can also be provided via file ./.vmrun-args, with one
argument per line.
`
)

type flags struct {
	KernelPath   sys.FilePath
	AppPath      sys.FilePath
	EntrySymbol  string
	Memory       uint64
	FallbackQEMU bool
	QemuBin      string
	QemuArgs     []qemu.Argument
	NoKVM        bool
	Debug        bool
	Version      bool
}

func newFlagset(cfg *flags, output io.Writer) *flag.FlagSet {
	fsName := name + " [flags...] kernel"
	flagSet := flag.NewFlagSet(fsName, flag.ContinueOnError)
	flagSet.SetOutput(output)
	flagSet.Usage = func() {
		fmt.Fprint(flagSet.Output(), usageMessage)
		fmt.Fprintln(flagSet.Output(), "\nFlags:")
		flagSet.PrintDefaults()
	}

	flagSet.Var(
		&cfg.AppPath,
		"app",
		"path to the application ELF to load along with the kernel",
	)

	flagSet.StringVar(
		&cfg.EntrySymbol,
		"entry",
		cfg.EntrySymbol,
		"symbol of the kernel to start at instead of the ELF entry point",
	)

	flagSet.Var(
		&LimitedUintValue{
			Value: &cfg.Memory,
			Lower: memMin,
			Upper: memMax,
		},
		"memory",
		fmt.Sprintf("memory (in MiB) for the VM (%d-%d)", memMin, memMax),
	)

	flagSet.BoolVar(
		&cfg.FallbackQEMU,
		"fallback-qemu",
		cfg.FallbackQEMU,
		"run the kernel with QEMU instead of the built-in hypervisor",
	)

	flagSet.StringVar(
		&cfg.QemuBin,
		"qemu-bin",
		qemu.DefaultExecutable,
		"QEMU binary to use with -fallback-qemu",
	)

	flagSet.BoolVar(
		&cfg.NoKVM,
		"nokvm",
		cfg.NoKVM,
		"disable hardware support for QEMU (default is enabled if present)",
	)

	flagSet.BoolVar(
		&cfg.Debug,
		"debug",
		cfg.Debug,
		"enable debug output",
	)

	flagSet.BoolVar(
		&cfg.Version,
		"version",
		cfg.Version,
		"show version and exit",
	)

	return flagSet
}

// parseArgs parses the given arguments. The first element is the program
// name.
func parseArgs(args []string, output io.Writer) (*flags, error) {
	cfg := &flags{
		Memory: memDefault,
	}

	flagSet := newFlagset(cfg, output)

	// Parses arguments up to the first one that is not prefixed with a "-" or
	// is "--".
	err := flagSet.Parse(args[1:])
	if err != nil {
		return nil, &ParseArgsError{msg: "flag parse", err: err}
	}

	// With version flag, no further arguments are required.
	if cfg.Version {
		return cfg, nil
	}

	fail := func(msg string, err error) (*flags, error) {
		err = &ParseArgsError{msg: msg, err: err}
		fmt.Fprintln(flagSet.Output(), err.Error())
		flagSet.Usage()

		return nil, err
	}

	positionalArgs := flagSet.Args()

	// First positional argument is supposed to be the kernel.
	if len(positionalArgs) < 1 {
		return fail("no kernel given", nil)
	}

	err = cfg.KernelPath.Set(positionalArgs[0])
	if err != nil {
		return fail("kernel path", err)
	}

	// Everything after the kernel is passed to QEMU.
	extraArgs := positionalArgs[1:]
	if len(extraArgs) > 0 && extraArgs[0] == "--" {
		extraArgs = extraArgs[1:]
	}

	if len(extraArgs) > 0 && !cfg.FallbackQEMU {
		return fail("extra arguments require -fallback-qemu", nil)
	}

	cfg.QemuArgs, err = qemu.ParseArgs(extraArgs)
	if err != nil {
		return fail("qemu args", err)
	}

	return cfg, nil
}
