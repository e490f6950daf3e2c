// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package guestmem_test

import (
	"testing"

	"github.com/aibor/vmrun/internal/guestmem"
	"github.com/aibor/vmrun/internal/sys"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMemory(t *testing.T) *guestmem.Memory {
	t.Helper()

	var mem guestmem.Memory

	_, err := mem.Add(0, 0, make([]byte, 0x4000))
	require.NoError(t, err)

	_, err = mem.Add(1, 0x10000, make([]byte, 0x1000))
	require.NoError(t, err)

	return &mem
}

func TestMemory_Add(t *testing.T) {
	tests := []struct {
		name string
		slot uint32
		gpa  uint64
		size int
		err  error
	}{
		{
			name: "free slot and range",
			slot: 2,
			gpa:  0x20000,
			size: 0x1000,
		},
		{
			name: "adjacent",
			slot: 2,
			gpa:  0x4000,
			size: 0x1000,
		},
		{
			name: "slot in use",
			slot: 1,
			gpa:  0x20000,
			size: 0x1000,
			err:  sys.ErrMemRegionWithSlotAlreadyExists,
		},
		{
			name: "overlapping",
			slot: 2,
			gpa:  0x3000,
			size: 0x2000,
			err:  sys.ErrOverlappingUserspaceMemRegionExists,
		},
		{
			name: "enclosing",
			slot: 2,
			gpa:  0xf000,
			size: 0x3000,
			err:  sys.ErrOverlappingUserspaceMemRegionExists,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mem := newMemory(t)

			_, err := mem.Add(tt.slot, tt.gpa, make([]byte, tt.size))
			require.ErrorIs(t, err, tt.err)
		})
	}
}

func TestMemory_Region(t *testing.T) {
	mem := newMemory(t)

	region, err := mem.Region(1)
	require.NoError(t, err)
	assert.Equal(t, uint64(0x10000), region.GuestPhysAddr)
	assert.Equal(t, uint64(0x11000), region.End())

	_, err = mem.Region(5)
	require.ErrorIs(t, err, sys.ErrNoMemRegionWithSlotFound)
}

func TestMemory_GPA2HVA(t *testing.T) {
	mem := newMemory(t)

	region, err := mem.Region(1)
	require.NoError(t, err)

	tests := []struct {
		name     string
		gpa      uint64
		expected uintptr
		err      error
	}{
		{
			name:     "region start",
			gpa:      0x10000,
			expected: region.HostAddr(),
		},
		{
			name:     "region last byte",
			gpa:      0x10fff,
			expected: region.HostAddr() + 0xfff,
		},
		{
			name: "region end",
			gpa:  0x11000,
			err:  sys.ErrNoMappingForVirtualAddress,
		},
		{
			name: "gap",
			gpa:  0x8000,
			err:  sys.ErrNoMappingForVirtualAddress,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			actual, err := mem.GPA2HVA(tt.gpa)
			require.ErrorIs(t, err, tt.err)
			assert.Equal(t, tt.expected, actual)
		})
	}
}

func TestMemory_ReadWrite(t *testing.T) {
	mem := newMemory(t)

	require.NoError(t, mem.Write(0x1ff8, []byte{1, 2, 3, 4, 5, 6, 7, 8}))

	value, err := mem.Uint64(0x1ff8)
	require.NoError(t, err)
	assert.Equal(t, uint64(0x0807060504030201), value)

	buf := make([]byte, 4)
	require.NoError(t, mem.Read(0x1ffa, buf))
	assert.Equal(t, []byte{3, 4, 5, 6}, buf)

	require.NoError(t, mem.Zero(0x1ff8, 8))
	value, err = mem.Uint64(0x1ff8)
	require.NoError(t, err)
	assert.Zero(t, value)
}

func TestMemory_Slice_Bounds(t *testing.T) {
	mem := newMemory(t)

	_, err := mem.Slice(0x3ff0, 0x20)
	require.ErrorIs(t, err, sys.ErrNoMappingForVirtualAddress)

	_, err = mem.Slice(0x10000, 0x1000)
	require.NoError(t, err)

	err = mem.Write(0x10ffc, make([]byte, 8))
	require.ErrorIs(t, err, sys.ErrNoMappingForVirtualAddress)
}
