// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package paging_test

import (
	"encoding/binary"
	"testing"

	"github.com/aibor/vmrun/internal/bootinfo"
	"github.com/aibor/vmrun/internal/guestmem"
	"github.com/aibor/vmrun/internal/paging"
	"github.com/aibor/vmrun/internal/sys"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupMemory(t *testing.T) *guestmem.Memory {
	t.Helper()

	var mem guestmem.Memory

	_, err := mem.Add(0, 0, make([]byte, bootinfo.HiMemStart))
	require.NoError(t, err)

	require.NoError(t, paging.Setup(&mem, bootinfo.PhysicalMemoryOffset))

	return &mem
}

func TestBuild(t *testing.T) {
	blob, err := paging.Build(bootinfo.PhysicalMemoryOffset)
	require.NoError(t, err)
	require.Len(t, blob, paging.BlobSize)

	entry := func(gpa uint64, idx uint64) uint64 {
		return binary.LittleEndian.Uint64(blob[gpa-bootinfo.PML4Start+idx*8:])
	}

	tests := []struct {
		name     string
		gpa      uint64
		idx      uint64
		expected uint64
	}{
		{"pml4 identity", bootinfo.PML4Start, 0, 0xa003},
		{"pml4 offset", bootinfo.PML4Start, 16, 0xf003},
		{"pml4 unused", bootinfo.PML4Start, 1, 0},
		{"identity pdpt first", bootinfo.PDPTEStart, 0, 0xb003},
		{"identity pdpt last", bootinfo.PDPTEStart, 3, 0xe003},
		{"identity pdpt unused", bootinfo.PDPTEStart, 4, 0},
		{"offset pdpt first", bootinfo.PDPTEOffsetStart, 0, 0xb003},
		{"offset pdpt last", bootinfo.PDPTEOffsetStart, 3, 0xe003},
		{"pd first", bootinfo.PDEStart, 0, 0x83},
		{"pd second", bootinfo.PDEStart, 1, 0x200083},
		{"pd last", bootinfo.PDEStart, 2047, 0xffe00083},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, entry(tt.gpa, tt.idx))
		})
	}
}

func TestBuild_InvalidOffset(t *testing.T) {
	for _, offset := range []uint64{0, 1 << 30, bootinfo.PhysicalMemoryOffset + 1} {
		_, err := paging.Build(offset)
		require.ErrorIs(t, err, paging.ErrInvalidOffset, "offset %#x", offset)
	}
}

func TestWalker_Translate(t *testing.T) {
	walker := paging.Walker{
		Mem:  setupMemory(t),
		Root: bootinfo.PML4Start,
	}

	frames := []uint64{0, 1, 9, 0x10, 0x1ff, 0x200, 0x12345, 0xfffff}

	for _, frame := range frames {
		phys := frame * bootinfo.PageSize

		actual, err := walker.Translate(phys + bootinfo.PhysicalMemoryOffset)
		require.NoError(t, err)
		assert.Equal(t, phys, actual, "offset mapping frame %#x", frame)

		actual, err = walker.Translate(phys + 0x123)
		require.NoError(t, err)
		assert.Equal(t, phys+0x123, actual, "identity mapping frame %#x", frame)
	}
}

func TestWalker_Translate_NotMapped(t *testing.T) {
	walker := paging.Walker{
		Mem:  setupMemory(t),
		Root: bootinfo.PML4Start,
	}

	tests := []struct {
		name string
		virt uint64
	}{
		{"pml4 entry missing", 1 << 39},
		{"pdpt entry missing", 4 << 30},
		{"offset pdpt entry missing", bootinfo.PhysicalMemoryOffset + 5<<30},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := walker.Translate(tt.virt)
			require.ErrorIs(t, err, sys.ErrNoMappingForVirtualAddress)
		})
	}
}

func TestWalker_Translate_SmallPages(t *testing.T) {
	var mem guestmem.Memory

	_, err := mem.Add(0, 0, make([]byte, 0x10000))
	require.NoError(t, err)

	// Chain of single tables: PML4 0x1000 -> PDPT 0x2000 -> PD 0x3000 ->
	// PT 0x4000 mapping virtual page 0x5000 to physical 0x8000.
	virt := uint64(0x5000)
	links := []struct {
		table uint64
		level int
		entry paging.Entry
	}{
		{0x1000, paging.LevelPML4, 0x2003},
		{0x2000, paging.LevelPDPT, 0x3003},
		{0x3000, paging.LevelPD, 0x4003},
		{0x4000, paging.LevelPT, 0x8003},
	}

	for _, link := range links {
		data, err := mem.Slice(link.table, paging.TableSize)
		require.NoError(t, err)

		table, err := paging.NewTable(data)
		require.NoError(t, err)

		require.NoError(t, table.SetEntry(paging.Index(virt, link.level), link.entry))
	}

	walker := paging.Walker{Mem: &mem, Root: 0x1000}

	actual, err := walker.Translate(virt + 0x42)
	require.NoError(t, err)
	assert.Equal(t, uint64(0x8042), actual)

	_, err = walker.Translate(virt + paging.TableSize)
	require.ErrorIs(t, err, sys.ErrNoMappingForVirtualAddress)
}

func TestTable(t *testing.T) {
	_, err := paging.NewTable(make([]byte, 8))
	require.ErrorIs(t, err, paging.ErrTableSize)

	table, err := paging.NewTable(make([]byte, paging.TableSize))
	require.NoError(t, err)

	require.NoError(t, table.SetEntry(511, 0xabc000|paging.FlagPresent))
	require.ErrorIs(t, table.SetEntry(512, 0), paging.ErrIndexOutOfRange)

	entry, err := table.Entry(511)
	require.NoError(t, err)
	assert.True(t, entry.Present())
	assert.False(t, entry.Huge())
	assert.Equal(t, uint64(0xabc000), entry.Addr())

	_, err = table.Entry(512)
	require.ErrorIs(t, err, paging.ErrIndexOutOfRange)
}

func TestIndex(t *testing.T) {
	virt := uint64(0x0000_7fab_cdef_1234)

	assert.Equal(t, uint(virt>>39&0x1ff), paging.Index(virt, paging.LevelPML4))
	assert.Equal(t, uint(virt>>30&0x1ff), paging.Index(virt, paging.LevelPDPT))
	assert.Equal(t, uint(virt>>21&0x1ff), paging.Index(virt, paging.LevelPD))
	assert.Equal(t, uint(virt>>12&0x1ff), paging.Index(virt, paging.LevelPT))
}
