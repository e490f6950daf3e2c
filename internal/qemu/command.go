// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package qemu

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strings"

	"github.com/aibor/vmrun/internal/exitcode"
	"golang.org/x/sync/errgroup"
)

// Command is a QEMU command ready to run.
type Command struct {
	name string
	args []string
}

// NewCommand builds a new [Command] from the given [CommandSpec].
func NewCommand(spec CommandSpec) (*Command, error) {
	if spec.Kernel == "" {
		return nil, ErrNoKernel
	}

	args, err := BuildArgumentStrings(spec.Arguments())
	if err != nil {
		return nil, err
	}

	cmd := &Command{
		name: spec.executable(),
		args: args,
	}

	return cmd, nil
}

// Name returns the QEMU binary the command runs.
func (c *Command) Name() string {
	return c.name
}

// Args returns the arguments passed to QEMU.
func (c *Command) Args() []string {
	return c.args
}

// String returns the complete command line.
func (c *Command) String() string {
	return c.name + " " + strings.Join(c.args, " ")
}

// Run runs the command and copies the guest's console to stdout and QEMU's
// own error output to stderr.
//
// It returns nil if the guest reported success via the debug exit port. If the
// guest reported a failure, a [CommandError] with Guest flag set wraps an
// [exitcode.Error]. Any other failure results in a [CommandError] for the
// host.
func (c *Command) Run(ctx context.Context, stdin io.Reader, stdout, stderr io.Writer) error {
	cmd := exec.CommandContext(ctx, c.name, c.args...)
	cmd.Stdin = stdin

	slog.Debug("QEMU command", slog.String("command", cmd.String()))

	stdoutPipe, err := cmd.StdoutPipe()
	if err != nil {
		return &CommandError{Err: fmt.Errorf("stdout pipe: %w", err)}
	}

	stderrPipe, err := cmd.StderrPipe()
	if err != nil {
		return &CommandError{Err: fmt.Errorf("stderr pipe: %w", err)}
	}

	err = cmd.Start()
	if err != nil {
		return &CommandError{Err: fmt.Errorf("start: %w", err)}
	}

	consoleGroup := errgroup.Group{}
	consoleGroup.Go(copyConsole("stdout", stdout, stdoutPipe))
	consoleGroup.Go(copyConsole("stderr", stderr, stderrPipe))

	// All reads must be finished before calling Wait.
	consoleErr := consoleGroup.Wait()
	waitErr := cmd.Wait()

	return errors.Join(consoleErr, exitStatusError(waitErr))
}

// exitStatusError converts the error returned by [exec.Cmd.Wait] into the
// result reported by the guest.
func exitStatusError(err error) error {
	var exitErr *exec.ExitError

	switch {
	case err == nil:
		return nil
	case errors.As(err, &exitErr) && exitErr.Exited():
		code := exitErr.ExitCode()

		guestErr := exitcode.FromQEMU(code)
		if guestErr == nil {
			return nil
		}

		return &CommandError{Err: guestErr, Guest: true, ExitCode: code}
	default:
		return &CommandError{Err: fmt.Errorf("wait: %w", err)}
	}
}

func copyConsole(name string, dst io.Writer, src io.Reader) func() error {
	return func() error {
		_, err := io.Copy(dst, src)
		if err != nil {
			// Keep draining so QEMU does not block on a full pipe.
			_, _ = io.Copy(io.Discard, src)

			return &ConsoleError{Name: name, Err: err}
		}

		return nil
	}
}
