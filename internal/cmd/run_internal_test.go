// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package cmd

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/aibor/vmrun/internal/exitcode"
	"github.com/aibor/vmrun/internal/qemu"
	"github.com/aibor/vmrun/internal/sys"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandleRunError(t *testing.T) {
	tests := []struct {
		name             string
		err              error
		expectedExitCode int
		expectedOutput   string
	}{
		{
			name: "no error",
		},
		{
			name:             "guest exit code",
			err:              exitcode.Error(3),
			expectedExitCode: 3,
		},
		{
			name: "qemu guest exit code",
			err: &qemu.CommandError{
				Err:      exitcode.Error(35),
				Guest:    true,
				ExitCode: 35,
			},
			expectedExitCode: 35,
		},
		{
			name:             "qemu host error",
			err:              &qemu.CommandError{Err: assert.AnError},
			expectedExitCode: -1,
			expectedOutput:   "qemu host: assert.AnError general error for testing",
		},
		{
			name:             "any error",
			err:              fmt.Errorf("build vm: %w", assert.AnError),
			expectedExitCode: -1,
			expectedOutput:   "build vm: assert.AnError general error for testing",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stderr bytes.Buffer

			setupLogging(&stderr, false)

			actualExitCode := handleRunError(tt.err)

			assert.Equal(t, tt.expectedExitCode, actualExitCode,
				"exit code should be as expected")

			if tt.expectedOutput == "" {
				assert.Empty(t, stderr.String())
			} else {
				assert.Contains(t, stderr.String(), tt.expectedOutput)
			}
		})
	}
}

func TestHandleParseArgsError(t *testing.T) {
	assert.Equal(t, 0, handleParseArgsError(&ParseArgsError{err: ErrHelp}))
	assert.Equal(t, -1, handleParseArgsError(&ParseArgsError{msg: "no kernel given"}))
	assert.Equal(t, -1, handleParseArgsError(assert.AnError))
}

func writeFile(t *testing.T, name, content string, perm os.FileMode) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), perm))

	return path
}

func TestRunQEMU(t *testing.T) {
	kernel := writeFile(t, "kernel.elf", "kernel", 0o644)
	app := writeFile(t, "app.elf", "app", 0o644)

	tests := []struct {
		name             string
		status           int
		app              string
		expectedExitCode int
	}{
		{
			name:   "success",
			status: exitcode.QEMUSuccess,
		},
		{
			name:             "failure",
			status:           exitcode.DebugExitFailure<<1 | 1,
			expectedExitCode: 35,
		},
		{
			name:   "with app",
			status: exitcode.QEMUSuccess,
			app:    app,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// The script checks it got an existing initrd if an app is given.
			script := "#!/bin/sh\n" +
				"while [ $# -gt 0 ]; do\n" +
				"  if [ \"$1\" = -initrd ]; then test -s \"$2\" || exit 99; fi\n" +
				"  shift\n" +
				"done\n" +
				"echo booted\n" +
				"exit " + strconv.Itoa(tt.status) + "\n"

			cfg := &flags{
				KernelPath:   sys.FilePath(kernel),
				AppPath:      sys.FilePath(tt.app),
				Memory:       memDefault,
				FallbackQEMU: true,
				QemuBin:      writeFile(t, "qemu", script, 0o755),
			}

			var stdout, stderr bytes.Buffer

			err := run(t.Context(), cfg, IO{Stdout: &stdout, Stderr: &stderr})

			exitCode, _ := exitcode.From(err)
			assert.Equal(t, tt.expectedExitCode, exitCode)
			assert.Equal(t, "booted\n", stdout.String())
		})
	}
}

func TestRun(t *testing.T) {
	tests := []struct {
		name             string
		args             []string
		expectedExitCode int
		expectedStdout   string
	}{
		{
			name:           "version",
			args:           []string{"-version"},
			expectedStdout: "Version: ",
		},
		{
			name: "help",
			args: []string{"-help"},
		},
		{
			name:             "no kernel",
			args:             []string{},
			expectedExitCode: -1,
		},
		{
			name:             "missing kernel",
			args:             []string{"-fallback-qemu", "/nonexistent/kernel"},
			expectedExitCode: -1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(EnvVar, "")

			var stdout, stderr bytes.Buffer

			args := append([]string{name}, tt.args...)
			exitCode := Run(t.Context(), args, IO{
				Stdin:  &bytes.Buffer{},
				Stdout: &stdout,
				Stderr: &stderr,
			})

			assert.Equal(t, tt.expectedExitCode, exitCode)
			assert.Contains(t, stdout.String(), tt.expectedStdout)
		})
	}
}
