// SPDX-FileCopyrightText: 2024 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package sys

import "errors"

var (
	// ErrNotELFFile is returned if the file does not have an ELF magic number.
	ErrNotELFFile = errors.New("is not an ELF file")

	// ErrOSABINotSupported is returned if the OS ABI of an ELF file is not
	// supported.
	ErrOSABINotSupported = errors.New("OSABI not supported")

	// ErrMachineNotSupported is returned if the machine type of an ELF file
	// is not supported.
	ErrMachineNotSupported = errors.New("machine type not supported")

	// ErrEmptyFilePath is returned if an empty path is given.
	ErrEmptyFilePath = errors.New("file path must not be empty")

	// ErrNotRegularFile is returned if a path is not a regular file.
	ErrNotRegularFile = errors.New("not a regular file")
)

// Error kinds of the hypervisor. They are used as [Error.Kind].
var (
	// ErrOverlappingUserspaceMemRegionExists is returned if a new memory
	// region overlaps an existing one in guest physical address space.
	ErrOverlappingUserspaceMemRegionExists = errors.New("overlapping userspace memory region exists")

	// ErrMemRegionWithSlotAlreadyExists is returned if a memory region slot
	// is used twice.
	ErrMemRegionWithSlotAlreadyExists = errors.New("memory region with slot already exists")

	// ErrNoMemRegionWithSlotFound is returned if no memory region uses the
	// requested slot.
	ErrNoMemRegionWithSlotFound = errors.New("no memory region with slot found")

	// ErrNoMemFree is returned if the guest memory is exhausted.
	ErrNoMemFree = errors.New("no free memory")

	// ErrMmapFailed is returned if host memory could not be mapped.
	ErrMmapFailed = errors.New("mmap failed")

	// ErrMadviseFailed is returned if advice on host memory failed.
	ErrMadviseFailed = errors.New("madvise failed")

	// ErrVMModeUnsupported is returned for guest images that can not run in
	// 64-bit long mode.
	ErrVMModeUnsupported = errors.New("vm mode unsupported")

	// ErrNoMappingForVirtualAddress is returned if an address can not be
	// translated.
	ErrNoMappingForVirtualAddress = errors.New("no mapping for virtual address")

	// ErrNoVirtualAddressAvailable is returned if no guest virtual address
	// range is left.
	ErrNoVirtualAddressAvailable = errors.New("no virtual address available")

	// ErrGuestCodeNotFound is returned if the guest entry point can not be
	// found.
	ErrGuestCodeNotFound = errors.New("guest code not found")

	// ErrIO is returned for I/O failures on the host.
	ErrIO = errors.New("io error")

	// ErrKVM is returned for failed KVM ioctls.
	ErrKVM = errors.New("kvm error")

	// ErrGeneric is returned for anything else.
	ErrGeneric = errors.New("generic error")
)
