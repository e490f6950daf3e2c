// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package paging

import (
	"encoding/binary"
	"errors"
	"fmt"
)

const (
	// TableSize is the size of a page table in bytes.
	TableSize = 0x1000

	// EntriesPerTable is the number of entries in a page table.
	EntriesPerTable = TableSize / entrySize

	entrySize = 8
)

// Entry flags.
const (
	FlagPresent  Entry = 1 << 0
	FlagWritable Entry = 1 << 1
	FlagHuge     Entry = 1 << 7
)

const addrMask = 0x000f_ffff_ffff_f000

var (
	// ErrIndexOutOfRange is returned for table indices beyond 511.
	ErrIndexOutOfRange = errors.New("table index out of range")

	// ErrTableSize is returned if a table view is created for a buffer of the
	// wrong size.
	ErrTableSize = errors.New("invalid table size")
)

// Entry is a page table entry.
type Entry uint64

// Present returns true if the present bit is set.
func (e Entry) Present() bool {
	return e&FlagPresent != 0
}

// Huge returns true if the entry maps a large page instead of referencing the
// next level table.
func (e Entry) Huge() bool {
	return e&FlagHuge != 0
}

// Addr returns the physical address the entry points to.
func (e Entry) Addr() uint64 {
	return uint64(e) & addrMask
}

// Table is a bounds checked view on a single page table.
type Table struct {
	data []byte
}

// NewTable creates a [Table] view on the given buffer.
func NewTable(data []byte) (Table, error) {
	if len(data) != TableSize {
		return Table{}, fmt.Errorf("%w: %d", ErrTableSize, len(data))
	}

	return Table{data: data}, nil
}

// Entry returns the entry at the given index.
func (t Table) Entry(idx uint) (Entry, error) {
	if idx >= EntriesPerTable {
		return 0, fmt.Errorf("%w: %d", ErrIndexOutOfRange, idx)
	}

	return Entry(binary.LittleEndian.Uint64(t.data[idx*entrySize:])), nil
}

// SetEntry sets the entry at the given index.
func (t Table) SetEntry(idx uint, entry Entry) error {
	if idx >= EntriesPerTable {
		return fmt.Errorf("%w: %d", ErrIndexOutOfRange, idx)
	}

	binary.LittleEndian.PutUint64(t.data[idx*entrySize:], uint64(entry))

	return nil
}
