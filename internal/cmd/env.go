// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
)

// EnvVar is the environment variable arguments are read from.
const EnvVar = "VMRUN_ARGS"

// EnvArgs returns vmrun arguments from the environment.
func EnvArgs() []string {
	return strings.Fields(os.Getenv(EnvVar))
}

// LocalConfigArgs returns vmrun arguments from a local config file.
//
// The file's format is one argument per line. Environment variables may be
// used and are expanded with [os.ExpandEnv]. A missing file results in no
// arguments.
func LocalConfigArgs(fsys fs.FS, file string) ([]string, error) {
	conf, err := fs.ReadFile(fsys, file)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}

		return nil, fmt.Errorf("read file: %w", err)
	}

	args := []string{}

	expandedConf := os.ExpandEnv(string(conf))
	for line := range strings.SplitSeq(expandedConf, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			args = append(args, line)
		}
	}

	return args, nil
}

// MergedArgs returns the arguments from the local config file, the
// environment and the given command line, in that order. The first element of
// args is the program name and stays first.
func MergedArgs(args []string, fsys fs.FS, file string) ([]string, error) {
	localArgs, err := LocalConfigArgs(fsys, file)
	if err != nil {
		return nil, fmt.Errorf("local config args: %w", err)
	}

	envArgs := EnvArgs()

	merged := make([]string, 0, len(localArgs)+len(envArgs)+len(args))
	merged = append(merged, args[:1]...)
	merged = append(merged, localArgs...)
	merged = append(merged, envArgs...)
	merged = append(merged, args[1:]...)

	return merged, nil
}
