// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package bootinfo

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/aibor/vmrun/internal/memmap"
)

// MaxMemoryMapEntries is the capacity of the memory map in the boot info.
const MaxMemoryMapEntries = 64

const (
	entrySize = 3 * 8
	numFields = 6

	// Size is the size of the encoded boot info in bytes.
	Size = 8 + MaxMemoryMapEntries*entrySize + numFields*8
)

var (
	// ErrTooManyRegions is returned if the memory map does not fit.
	ErrTooManyRegions = errors.New("too many memory regions")

	// ErrShortBuffer is returned if the data is too short to decode.
	ErrShortBuffer = errors.New("short buffer")
)

// BootInfo is handed to the guest kernel's entry point.
type BootInfo struct {
	MemoryMap            []memmap.Region
	EntryPoint           uint64
	LoadAddr             uint64
	ELFPhnum             uint64
	SyscallTriggerPort   uint64
	PhysicalMemoryOffset uint64
	PGD                  uint64
}

// MarshalBinary implements [encoding.BinaryMarshaler].
func (b *BootInfo) MarshalBinary() ([]byte, error) {
	if len(b.MemoryMap) > MaxMemoryMapEntries {
		return nil, fmt.Errorf("%w: %d", ErrTooManyRegions, len(b.MemoryMap))
	}

	data := make([]byte, 0, Size)
	data = binary.LittleEndian.AppendUint64(data, uint64(len(b.MemoryMap)))

	for _, r := range b.MemoryMap {
		data = binary.LittleEndian.AppendUint64(data, r.Range.StartAddr())
		data = binary.LittleEndian.AppendUint64(data, r.Range.EndAddr())
		data = binary.LittleEndian.AppendUint64(data, uint64(r.Type))
	}

	data = data[:8+MaxMemoryMapEntries*entrySize]

	for _, v := range []uint64{
		b.EntryPoint,
		b.LoadAddr,
		b.ELFPhnum,
		b.SyscallTriggerPort,
		b.PhysicalMemoryOffset,
		b.PGD,
	} {
		data = binary.LittleEndian.AppendUint64(data, v)
	}

	return data, nil
}

// UnmarshalBinary implements [encoding.BinaryUnmarshaler].
func (b *BootInfo) UnmarshalBinary(data []byte) error {
	if len(data) < Size {
		return fmt.Errorf("%w: %d < %d", ErrShortBuffer, len(data), Size)
	}

	le := binary.LittleEndian

	num := le.Uint64(data)
	if num > MaxMemoryMapEntries {
		return fmt.Errorf("%w: %d", ErrTooManyRegions, num)
	}

	b.MemoryMap = make([]memmap.Region, 0, num)

	for idx := range num {
		entry := data[8+idx*entrySize:]
		b.MemoryMap = append(b.MemoryMap, memmap.Region{
			Range: memmap.AddrRange(le.Uint64(entry), le.Uint64(entry[8:])),
			Type:  memmap.RegionType(le.Uint64(entry[16:])),
		})
	}

	fields := data[8+MaxMemoryMapEntries*entrySize:]
	b.EntryPoint = le.Uint64(fields)
	b.LoadAddr = le.Uint64(fields[8:])
	b.ELFPhnum = le.Uint64(fields[16:])
	b.SyscallTriggerPort = le.Uint64(fields[24:])
	b.PhysicalMemoryOffset = le.Uint64(fields[32:])
	b.PGD = le.Uint64(fields[40:])

	return nil
}
