// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

// Package bootinfo defines the fixed guest physical memory layout and the
// boot info structure handed to the guest kernel.
//
// The boot info is written once by the hypervisor before the vCPU runs for the
// first time. Its binary layout is little endian:
//
//	offset  size    field
//	0x000   8       number of memory map entries
//	0x008   64*24   entries (start address, end address, region type)
//	0x608   8       entry point
//	0x610   8       load address
//	0x618   8       number of program headers
//	0x620   8       syscall trigger port
//	0x628   8       physical memory offset
//	0x630   8       physical address of the PML4
package bootinfo
