// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package cmd_test

import (
	"testing"
	"testing/fstest"

	"github.com/aibor/vmrun/internal/cmd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnvArgs(t *testing.T) {
	tests := []struct {
		name   string
		env    string
		output []string
	}{
		{
			name:   "empty",
			env:    "",
			output: []string{},
		},
		{
			name:   "multiple args",
			env:    "-memory 256  -debug",
			output: []string{"-memory", "256", "-debug"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(cmd.EnvVar, tt.env)
			assert.Equal(t, tt.output, cmd.EnvArgs())
		})
	}
}

func TestLocalConfigArgs(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		env      map[string]string
		expected []string
	}{
		{
			name:     "empty",
			content:  "",
			expected: []string{},
		},
		{
			name:     "single line",
			content:  "-arg1=3\n-arg2=4 5",
			expected: []string{"-arg1=3", "-arg2=4 5"},
		},
		{
			name:     "multiple lines",
			content:  "-arg1\n3\n\n-arg2\n4\n",
			expected: []string{"-arg1", "3", "-arg2", "4"},
		},
		{
			name:     "with env vars",
			content:  "-app=${APP}\n-entry=$ENTRY\n-arg3=${UNSET_VAR}/more\n",
			env:      map[string]string{"APP": "/bin/app", "ENTRY": "_start_kernel"},
			expected: []string{"-app=/bin/app", "-entry=_start_kernel", "-arg3=/more"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			testFS := fstest.MapFS{
				"conf": &fstest.MapFile{
					Data: []byte(tt.content),
				},
			}

			for key, value := range tt.env {
				t.Setenv(key, value)
			}

			content, err := cmd.LocalConfigArgs(testFS, "conf")
			require.NoError(t, err)

			assert.Equal(t, tt.expected, content)
		})
	}
}

func TestLocalConfigArgs_Missing(t *testing.T) {
	args, err := cmd.LocalConfigArgs(fstest.MapFS{}, "conf")
	require.NoError(t, err)
	assert.Nil(t, args)
}

func TestMergedArgs(t *testing.T) {
	t.Setenv(cmd.EnvVar, "-memory=128")

	testFS := fstest.MapFS{
		"conf": &fstest.MapFile{Data: []byte("-debug\n")},
	}

	args, err := cmd.MergedArgs([]string{"vmrun", "-memory=256", "kernel"}, testFS, "conf")
	require.NoError(t, err)

	expected := []string{"vmrun", "-debug", "-memory=128", "-memory=256", "kernel"}
	assert.Equal(t, expected, args)
}
