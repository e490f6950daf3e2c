// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package cmd

import (
	"io"
	"log/slog"
)

// setupLogging installs the default logger. With debug enabled, records of
// the exit loop and syscall proxy are included and carry their source
// location.
func setupLogging(writer io.Writer, debug bool) {
	opts := &slog.HandlerOptions{
		Level: slog.LevelWarn,
	}

	if debug {
		opts.Level = slog.LevelDebug
		opts.AddSource = true
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(writer, opts)).With(
		slog.String("prog", name),
	))
}
