// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package memmap

import "fmt"

// RegionType classifies the purpose of a [Region].
//
// The numeric values are part of the boot info ABI shared with the guest.
type RegionType uint64

// Region types. 0 is not a valid type.
const (
	Usable RegionType = iota + 1
	Reserved
	PageTable
	BootInfo
	SysCall
	Kernel
	KernelStack
	App
	FrameZero
)

var regionTypeNames = map[RegionType]string{
	Usable:      "Usable",
	Reserved:    "Reserved",
	PageTable:   "PageTable",
	BootInfo:    "BootInfo",
	SysCall:     "SysCall",
	Kernel:      "Kernel",
	KernelStack: "KernelStack",
	App:         "App",
	FrameZero:   "FrameZero",
}

// String implements [fmt.Stringer].
func (t RegionType) String() string {
	name, exists := regionTypeNames[t]
	if !exists {
		return fmt.Sprintf("RegionType(%d)", uint64(t))
	}

	return name
}

// IsValid returns true for all known region types.
func (t RegionType) IsValid() bool {
	_, exists := regionTypeNames[t]
	return exists
}

// Region is a typed range of physical frames.
type Region struct {
	Range FrameRange
	Type  RegionType
}

// String implements [fmt.Stringer].
func (r Region) String() string {
	return r.Range.String() + "=" + r.Type.String()
}
