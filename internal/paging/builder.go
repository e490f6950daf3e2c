// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package paging

import (
	"errors"
	"fmt"

	"github.com/aibor/vmrun/internal/bootinfo"
)

const (
	// BlobSize is the size of all boot page tables together.
	BlobSize = bootinfo.PageTablesEnd - bootinfo.PML4Start

	numPDs   = (bootinfo.PDEEnd - bootinfo.PDEStart) / TableSize
	hugeSize = 1 << 21

	pml4Alignment = 1 << 39

	tableFlags = FlagPresent | FlagWritable
	leafFlags  = FlagPresent | FlagWritable | FlagHuge
)

// ErrInvalidOffset is returned for physical memory offsets that can not be
// mapped by a dedicated PML4 entry.
var ErrInvalidOffset = errors.New("invalid physical memory offset")

type tableEntry struct {
	table Table
	idx   uint
	entry Entry
}

// Writer writes data to guest physical memory.
type Writer interface {
	Write(gpa uint64, data []byte) error
}

// Build returns the boot page tables as one blob to be placed at
// [bootinfo.PML4Start].
func Build(physicalMemoryOffset uint64) ([]byte, error) {
	offsetIdx := Index(physicalMemoryOffset, 4)
	if physicalMemoryOffset%pml4Alignment != 0 || offsetIdx == 0 {
		return nil, fmt.Errorf("%w: %#x", ErrInvalidOffset, physicalMemoryOffset)
	}

	blob := make([]byte, BlobSize)

	table := func(gpa uint64) Table {
		off := gpa - bootinfo.PML4Start
		return Table{data: blob[off : off+TableSize]}
	}

	pml4 := table(bootinfo.PML4Start)
	identPDPT := table(bootinfo.PDPTEStart)
	offsetPDPT := table(bootinfo.PDPTEOffsetStart)

	entries := []tableEntry{
		{pml4, 0, Entry(bootinfo.PDPTEStart) | tableFlags},
		{pml4, offsetIdx, Entry(bootinfo.PDPTEOffsetStart) | tableFlags},
	}

	// Both PDPTs reference the same PDs.
	for idx := range uint(numPDs) {
		pd := Entry(bootinfo.PDEStart+idx*TableSize) | tableFlags
		entries = append(entries,
			tableEntry{identPDPT, idx, pd},
			tableEntry{offsetPDPT, idx, pd},
		)
	}

	for _, e := range entries {
		if err := e.table.SetEntry(e.idx, e.entry); err != nil {
			return nil, err
		}
	}

	for pdIdx := range uint64(numPDs) {
		pd := table(bootinfo.PDEStart + pdIdx*TableSize)

		for idx := range uint(EntriesPerTable) {
			addr := (pdIdx*EntriesPerTable + uint64(idx)) * hugeSize
			if err := pd.SetEntry(idx, Entry(addr)|leafFlags); err != nil {
				return nil, err
			}
		}
	}

	return blob, nil
}

// Setup writes the boot page tables into guest memory.
func Setup(mem Writer, physicalMemoryOffset uint64) error {
	blob, err := Build(physicalMemoryOffset)
	if err != nil {
		return err
	}

	err = mem.Write(bootinfo.PML4Start, blob)
	if err != nil {
		return fmt.Errorf("write page tables: %w", err)
	}

	return nil
}
