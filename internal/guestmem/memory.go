// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package guestmem

import (
	"encoding/binary"
	"fmt"
	"unsafe"

	"github.com/aibor/vmrun/internal/sys"
)

// Region is a guest physical address range backed by host memory.
type Region struct {
	Slot          uint32
	GuestPhysAddr uint64
	Mem           []byte
}

// Size returns the size of the region in bytes.
func (r *Region) Size() uint64 {
	return uint64(len(r.Mem))
}

// End returns the guest physical address right after the region.
func (r *Region) End() uint64 {
	return r.GuestPhysAddr + r.Size()
}

// Contains returns true if the guest physical address lies in the region.
func (r *Region) Contains(gpa uint64) bool {
	return r.GuestPhysAddr <= gpa && gpa < r.End()
}

// HostAddr returns the host virtual address of the start of the region.
func (r *Region) HostAddr() uintptr {
	if len(r.Mem) == 0 {
		return 0
	}

	return uintptr(unsafe.Pointer(&r.Mem[0]))
}

// Memory is the set of all memory regions of a guest.
type Memory struct {
	regions []*Region
}

// Add registers host memory for the given slot at the given guest physical
// address.
func (m *Memory) Add(slot uint32, gpa uint64, mem []byte) (*Region, error) {
	region := &Region{
		Slot:          slot,
		GuestPhysAddr: gpa,
		Mem:           mem,
	}

	for _, r := range m.regions {
		if r.Slot == slot {
			return nil, sys.NewError(
				sys.ErrMemRegionWithSlotAlreadyExists,
				fmt.Errorf("slot %d", slot),
			)
		}

		if region.GuestPhysAddr < r.End() && r.GuestPhysAddr < region.End() {
			return nil, sys.NewError(
				sys.ErrOverlappingUserspaceMemRegionExists,
				fmt.Errorf("[%#x, %#x) overlaps slot %d", gpa, region.End(), r.Slot),
			)
		}
	}

	m.regions = append(m.regions, region)

	return region, nil
}

// Region returns the region registered for the given slot.
func (m *Memory) Region(slot uint32) (*Region, error) {
	for _, r := range m.regions {
		if r.Slot == slot {
			return r, nil
		}
	}

	return nil, sys.NewError(
		sys.ErrNoMemRegionWithSlotFound,
		fmt.Errorf("slot %d", slot),
	)
}

// Regions returns all registered regions.
func (m *Memory) Regions() []*Region {
	return m.regions
}

func (m *Memory) lookup(gpa uint64) (*Region, error) {
	for _, r := range m.regions {
		if r.Contains(gpa) {
			return r, nil
		}
	}

	return nil, sys.NewError(
		sys.ErrNoMappingForVirtualAddress,
		fmt.Errorf("guest physical address %#x", gpa),
	)
}

// GPA2HVA translates a guest physical address into the host virtual address
// backing it.
func (m *Memory) GPA2HVA(gpa uint64) (uintptr, error) {
	region, err := m.lookup(gpa)
	if err != nil {
		return 0, err
	}

	return region.HostAddr() + uintptr(gpa-region.GuestPhysAddr), nil
}

// Slice returns the host memory backing size bytes starting at the given
// guest physical address. The range must not cross region boundaries.
func (m *Memory) Slice(gpa, size uint64) ([]byte, error) {
	region, err := m.lookup(gpa)
	if err != nil {
		return nil, err
	}

	offset := gpa - region.GuestPhysAddr
	if size > region.Size()-offset {
		return nil, sys.NewError(
			sys.ErrNoMappingForVirtualAddress,
			fmt.Errorf("guest physical range [%#x, %#x)", gpa, gpa+size),
		)
	}

	return region.Mem[offset : offset+size : offset+size], nil
}

// Read copies guest memory at the given guest physical address into buf.
func (m *Memory) Read(gpa uint64, buf []byte) error {
	mem, err := m.Slice(gpa, uint64(len(buf)))
	if err != nil {
		return err
	}

	copy(buf, mem)

	return nil
}

// Write copies data into guest memory at the given guest physical address.
func (m *Memory) Write(gpa uint64, data []byte) error {
	mem, err := m.Slice(gpa, uint64(len(data)))
	if err != nil {
		return err
	}

	copy(mem, data)

	return nil
}

// Zero clears size bytes of guest memory.
func (m *Memory) Zero(gpa, size uint64) error {
	mem, err := m.Slice(gpa, size)
	if err != nil {
		return err
	}

	clear(mem)

	return nil
}

// Uint64 reads a little endian 64 bit value at the given guest physical
// address.
func (m *Memory) Uint64(gpa uint64) (uint64, error) {
	mem, err := m.Slice(gpa, 8)
	if err != nil {
		return 0, err
	}

	return binary.LittleEndian.Uint64(mem), nil
}
