// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package bootinfo

// Fixed guest physical memory layout.
const (
	PageSize = 0x1000

	BootGDTOffset = 0x500
	BootIDTOffset = 0x530
	BootTSSOffset = 0x600

	PML4Start        = 0x9000
	PDPTEStart       = 0xa000
	PDEStart         = 0xb000
	PDEEnd           = 0xf000
	PDPTEOffsetStart = 0xf000
	PageTablesEnd    = 0x10000

	PhysAddr        = 0x10000
	SyscallPhysAddr = 0x11000
	StackStart      = 0x12000

	HiMemStart       = 0x100000
	BootStackPointer = HiMemStart - PageSize

	// PhysicalMemoryOffset is the virtual address all of the guest physical
	// memory is mapped at in addition to the identity mapping.
	PhysicalMemoryOffset = 0x800_0000_0000
)

// I/O ports trapped by the hypervisor.
const (
	SerialPort         = 0x3f8
	DebugExitPort      = 0xf4
	SyscallTriggerPort = 0xff
)
