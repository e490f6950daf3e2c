// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime/debug"

	"github.com/aibor/vmrun/internal/exitcode"
	"github.com/aibor/vmrun/internal/initrd"
	"github.com/aibor/vmrun/internal/qemu"
	"github.com/aibor/vmrun/internal/sys"
	"github.com/aibor/vmrun/internal/vm"
	"github.com/aibor/vmrun/internal/vmexit"
	"github.com/aibor/vmrun/internal/vmsyscall"
)

const localConfigFile = ".vmrun-args"

// IO provides input and output details for the command.
type IO struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

func newFlags(args []string, cfg IO) (*flags, error) {
	args, err := MergedArgs(args, os.DirFS("."), localConfigFile)
	if err != nil {
		return nil, err
	}

	return parseArgs(args, cfg.Stderr)
}

func openFile(path sys.FilePath) (*os.File, error) {
	err := path.Check()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	file, err := os.Open(string(path))
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}

	return file, nil
}

// runKVM boots the kernel with the built-in hypervisor and serves it until it
// halts or exits.
func runKVM(ctx context.Context, flags *flags, cfg IO) error {
	if !sys.AMD64.KVMAvailable() {
		return ErrKVMNotAvailable
	}

	kernel, err := openFile(flags.KernelPath)
	if err != nil {
		return fmt.Errorf("kernel: %w", err)
	}
	defer kernel.Close()

	vmCfg := vm.Config{
		MemorySize:  flags.Memory << 20,
		Kernel:      kernel,
		EntrySymbol: flags.EntrySymbol,
	}

	if flags.AppPath != "" {
		app, err := openFile(flags.AppPath)
		if err != nil {
			return fmt.Errorf("app: %w", err)
		}
		defer app.Close()

		vmCfg.App = app
	}

	hypervisor, err := vm.OpenKVM()
	if err != nil {
		return fmt.Errorf("open kvm: %w", err)
	}
	defer hypervisor.Close()

	builder := vm.Builder{Hypervisor: hypervisor}

	machine, err := builder.Build(vmCfg)
	if err != nil {
		return fmt.Errorf("build vm: %w", err)
	}

	defer func() {
		err := machine.Close()
		if err != nil {
			slog.Error("Failed to close VM", slog.Any("error", err))
		}
	}()

	page, err := machine.SyscallPage()
	if err != nil {
		return fmt.Errorf("syscall page: %w", err)
	}

	loop := vmexit.Loop{
		VCPU:   machine.VCPU,
		Serial: cfg.Stdout,
		Syscalls: &vmsyscall.Handler{
			Mem:        machine.Mem,
			Map:        machine.Map,
			Translator: machine.Walker(),
			Stdin:      cfg.Stdin,
			Stdout:     cfg.Stdout,
			Stderr:     cfg.Stderr,
		},
		Page: page,
	}

	return loop.Run(ctx)
}

// runQEMU boots the kernel with QEMU. The application is passed as initrd.
func runQEMU(ctx context.Context, flags *flags, cfg IO) error {
	err := flags.KernelPath.Check()
	if err != nil {
		return fmt.Errorf("kernel: %w", err)
	}

	spec := qemu.CommandSpec{
		Executable: flags.QemuBin,
		Kernel:     string(flags.KernelPath),
		Memory:     flags.Memory,
		NoKVM:      flags.NoKVM || !sys.AMD64.KVMAvailable(),
		ExtraArgs:  flags.QemuArgs,
	}

	if flags.AppPath != "" {
		spec.Initrd, err = initrd.CreateFile("", string(flags.AppPath))
		if err != nil {
			return fmt.Errorf("initrd: %w", err)
		}

		slog.Debug("Created initrd", slog.String("path", spec.Initrd))

		defer removeInitrd(spec.Initrd)
	}

	cmd, err := qemu.NewCommand(spec)
	if err != nil {
		return fmt.Errorf("new qemu command: %w", err)
	}

	return cmd.Run(ctx, cfg.Stdin, cfg.Stdout, cfg.Stderr)
}

func removeInitrd(path string) {
	slog.Debug("Removing initrd", slog.String("path", path))

	err := os.Remove(path)
	if err != nil {
		slog.Error(
			"Failed to remove initrd",
			slog.String("path", path),
			slog.Any("error", err),
		)
	}
}

func run(ctx context.Context, flags *flags, cfg IO) error {
	if flags.FallbackQEMU {
		return runQEMU(ctx, flags, cfg)
	}

	return runKVM(ctx, flags, cfg)
}

func handleParseArgsError(err error) int {
	// [ErrHelp] is returned when help is requested. So exit without error
	// in this case.
	if errors.Is(err, ErrHelp) {
		return 0
	}

	// parseArgs already prints its errors.
	if !errors.Is(err, &ParseArgsError{}) {
		slog.Error(err.Error())
	}

	return -1
}

func handleRunError(err error) int {
	exitCode, fromGuest := exitcode.From(err)

	// Do not print the error in case the guest properly communicated a
	// non-zero exit code.
	if err != nil && !fromGuest {
		slog.Error(err.Error())
	}

	return exitCode
}

// Run is the main entry point for the CLI command. args contains the program
// name as first element.
func Run(ctx context.Context, args []string, cfg IO) int {
	setupLogging(cfg.Stderr, false)

	flags, err := newFlags(args, cfg)
	if err != nil {
		return handleParseArgsError(err)
	}

	setupLogging(cfg.Stderr, flags.Debug)

	if flags.Version {
		buildInfo, err := getBuildInfo()
		if err != nil {
			slog.Error(err.Error())
			return -1
		}

		fmt.Fprintf(cfg.Stdout, "Version: %s\n", buildInfo.Main.Version)

		return 0
	}

	return handleRunError(run(ctx, flags, cfg))
}

func getBuildInfo() (*debug.BuildInfo, error) {
	buildInfo, ok := debug.ReadBuildInfo()
	if !ok {
		return nil, ErrReadBuildInfo
	}

	return buildInfo, nil
}
