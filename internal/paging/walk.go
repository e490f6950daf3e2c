// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package paging

import (
	"fmt"

	"github.com/aibor/vmrun/internal/sys"
)

// Levels of the x86-64 4-level paging hierarchy.
const (
	LevelPT   = 1
	LevelPD   = 2
	LevelPDPT = 3
	LevelPML4 = 4
)

// Index returns the 9 bit table index of the virtual address for the given
// level.
func Index(virt uint64, level int) uint {
	return uint(virt>>levelShift(level)) & (EntriesPerTable - 1)
}

func levelShift(level int) uint {
	return 12 + 9*uint(level-1)
}

// Reader provides access to guest physical memory.
type Reader interface {
	Slice(gpa, size uint64) ([]byte, error)
}

// Walker translates guest virtual addresses by walking the page tables rooted
// at Root.
type Walker struct {
	Mem  Reader
	Root uint64
}

// Translate returns the guest physical address the guest virtual address is
// mapped to.
func (w Walker) Translate(virt uint64) (uint64, error) {
	tableAddr := w.Root

	for level := LevelPML4; level >= LevelPT; level-- {
		data, err := w.Mem.Slice(tableAddr, TableSize)
		if err != nil {
			return 0, fmt.Errorf("level %d table: %w", level, err)
		}

		table, err := NewTable(data)
		if err != nil {
			return 0, err
		}

		entry, err := table.Entry(Index(virt, level))
		if err != nil {
			return 0, err
		}

		if !entry.Present() {
			return 0, sys.NewError(
				sys.ErrNoMappingForVirtualAddress,
				fmt.Errorf("%#x: level %d entry not present", virt, level),
			)
		}

		isLeaf := level == LevelPT ||
			(entry.Huge() && (level == LevelPD || level == LevelPDPT))
		if isLeaf {
			pageMask := uint64(1)<<levelShift(level) - 1
			return entry.Addr()&^pageMask | virt&pageMask, nil
		}

		tableAddr = entry.Addr()
	}

	// Unreachable, the loop always returns at the last level.
	return 0, sys.NewError(sys.ErrNoMappingForVirtualAddress, nil)
}
