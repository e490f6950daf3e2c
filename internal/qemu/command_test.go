// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package qemu_test

import (
	"bytes"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/aibor/vmrun/internal/exitcode"
	"github.com/aibor/vmrun/internal/qemu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestCommandSpec_Arguments(t *testing.T) {
	tests := []struct {
		name      string
		spec      qemu.CommandSpec
		argName   string
		assertion assert.ComparisonAssertionFunc
		expected  any
	}{
		{
			name:      "kernel",
			spec:      qemu.CommandSpec{Kernel: "kernel.elf"},
			argName:   "kernel",
			assertion: assert.Equal,
			expected:  "kernel.elf",
		},
		{
			name:      "initrd",
			spec:      qemu.CommandSpec{Initrd: "app.cpio"},
			argName:   "initrd",
			assertion: assert.Equal,
			expected:  "app.cpio",
		},
		{
			name:      "memory",
			spec:      qemu.CommandSpec{Memory: 512},
			argName:   "m",
			assertion: assert.Equal,
			expected:  "512",
		},
		{
			name:      "debug exit device",
			argName:   "device",
			assertion: assert.Equal,
			expected:  "isa-debug-exit,iobase=0xf4,iosize=0x04",
		},
		{
			name:      "serial",
			argName:   "serial",
			assertion: assert.Equal,
			expected:  "stdio",
		},
		{
			name:      "kvm",
			argName:   "enable-kvm",
			assertion: assert.Equal,
			expected:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assertFunc := qemu.ArgumentValueAssertionFunc(tt.argName, tt.assertion)
			assertFunc(t, tt.spec.Arguments(), tt.expected)
		})
	}
}

func TestCommandSpec_Arguments_Omitted(t *testing.T) {
	spec := qemu.CommandSpec{NoKVM: true}

	for _, arg := range spec.Arguments() {
		assert.NotContains(t, []string{"initrd", "m", "enable-kvm"}, arg.Name())
	}
}

func TestNewCommand(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		cmd, err := qemu.NewCommand(qemu.CommandSpec{Kernel: "kernel.elf"})
		require.NoError(t, err)

		assert.Equal(t, qemu.DefaultExecutable, cmd.Name())
		assert.Equal(t, []string{"-kernel", "kernel.elf"}, cmd.Args()[:2])
		assert.Contains(t, cmd.String(), "-nodefaults")
	})

	t.Run("extra args appended", func(t *testing.T) {
		cmd, err := qemu.NewCommand(qemu.CommandSpec{
			Executable: "/usr/local/bin/qemu",
			Kernel:     "kernel.elf",
			ExtraArgs:  []qemu.Argument{qemu.RepeatableArg("d", "int")},
		})
		require.NoError(t, err)

		args := cmd.Args()
		assert.Equal(t, "/usr/local/bin/qemu", cmd.Name())
		assert.Equal(t, []string{"-d", "int"}, args[len(args)-2:])
	})

	t.Run("no kernel", func(t *testing.T) {
		_, err := qemu.NewCommand(qemu.CommandSpec{})
		require.ErrorIs(t, err, qemu.ErrNoKernel)
	})

	t.Run("colliding extra args", func(t *testing.T) {
		_, err := qemu.NewCommand(qemu.CommandSpec{
			Kernel:    "kernel.elf",
			ExtraArgs: []qemu.Argument{qemu.RepeatableArg("no-reboot")},
		})
		require.ErrorIs(t, err, qemu.ErrArgumentCollision)
	})
}

// fakeQEMU writes a shell script that ignores its arguments, prints to stdout
// and stderr and exits with the given status.
func fakeQEMU(t *testing.T, status int) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "qemu")
	script := "#!/bin/sh\nprintf 'guest output'\nprintf 'qemu warning' >&2\n" +
		"exit " + strconv.Itoa(status) + "\n"

	require.NoError(t, os.WriteFile(path, []byte(script), 0o755))

	return path
}

func TestCommand_Run(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		exitCode int
	}{
		{
			name:   "debug exit success",
			status: exitcode.QEMUSuccess,
		},
		{
			name:   "regular exit",
			status: 0,
		},
		{
			name:     "debug exit failure",
			status:   0x11<<1 | 1,
			exitCode: 35,
		},
		{
			name:     "qemu failure",
			status:   1,
			exitCode: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd, err := qemu.NewCommand(qemu.CommandSpec{
				Executable: fakeQEMU(t, tt.status),
				Kernel:     "kernel.elf",
			})
			require.NoError(t, err)

			var stdout, stderr bytes.Buffer

			err = cmd.Run(t.Context(), nil, &stdout, &stderr)

			assert.Equal(t, "guest output", stdout.String())
			assert.Equal(t, "qemu warning", stderr.String())

			if tt.exitCode == 0 {
				require.NoError(t, err)
				return
			}

			var cmdErr *qemu.CommandError

			require.ErrorAs(t, err, &cmdErr)
			assert.True(t, cmdErr.Guest)
			assert.Equal(t, tt.exitCode, cmdErr.ExitCode)

			code, fromGuest := exitcode.From(err)
			assert.True(t, fromGuest)
			assert.Equal(t, tt.exitCode, code)
		})
	}
}

func TestCommand_Run_Missing(t *testing.T) {
	cmd, err := qemu.NewCommand(qemu.CommandSpec{
		Executable: filepath.Join(t.TempDir(), "missing"),
		Kernel:     "kernel.elf",
	})
	require.NoError(t, err)

	err = cmd.Run(t.Context(), nil, &bytes.Buffer{}, &bytes.Buffer{})

	var cmdErr *qemu.CommandError

	require.ErrorAs(t, err, &cmdErr)
	assert.False(t, cmdErr.Guest)
}
