// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package cmd

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSetupLogging(t *testing.T) {
	tests := []struct {
		name       string
		debug      bool
		logged     bool
		withSource bool
	}{
		{
			name:   "default",
			debug:  false,
			logged: false,
		},
		{
			name:       "debug",
			debug:      true,
			logged:     true,
			withSource: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			previous := slog.Default()
			t.Cleanup(func() { slog.SetDefault(previous) })

			var buf bytes.Buffer

			setupLogging(&buf, tt.debug)
			slog.Debug("vm exit", slog.String("reason", "hlt"))
			slog.Warn("serial write failed")

			out := buf.String()
			assert.Contains(t, out, "msg=\"serial write failed\"")
			assert.Contains(t, out, "prog=vmrun")
			assert.Equal(t, tt.logged, bytes.Contains(buf.Bytes(), []byte("reason=hlt")))
			assert.Equal(t, tt.withSource, bytes.Contains(buf.Bytes(), []byte("source=")))
		})
	}
}
