// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package exitcode_test

import (
	"testing"

	"github.com/aibor/vmrun/internal/exitcode"
	"github.com/stretchr/testify/assert"
)

func TestFromDebugExit(t *testing.T) {
	tests := []struct {
		name     string
		payload  uint32
		expected error
	}{
		{
			name:    "success",
			payload: 0x10,
		},
		{
			name:     "failure",
			payload:  0x11,
			expected: exitcode.Error(1),
		},
		{
			name:     "other",
			payload:  3,
			expected: exitcode.Error(3),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, exitcode.FromDebugExit(tt.payload))
		})
	}
}

func TestFromQEMU(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		expected error
	}{
		{
			name:   "debug exit success",
			status: 33,
		},
		{
			name:   "zero",
			status: 0,
		},
		{
			name:     "debug exit failure",
			status:   35,
			expected: exitcode.Error(35),
		},
		{
			name:     "other",
			status:   1,
			expected: exitcode.Error(1),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, exitcode.FromQEMU(tt.status))
		})
	}
}
