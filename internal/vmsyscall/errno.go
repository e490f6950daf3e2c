// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package vmsyscall

// Linux x86-64 error numbers used on the wire. They are fixed by the guest ABI
// and independent of the host.
const (
	EBADF  = 9
	EIO    = 5
	ENOMEM = 12
	EFAULT = 14
	EINVAL = 22
	ENOSYS = 38
)

// Linux x86-64 memory protection and mapping flags.
const (
	ProtRead  = 0x1
	ProtWrite = 0x2
	ProtExec  = 0x4

	MapPrivate   = 0x02
	MapFixed     = 0x10
	MapAnonymous = 0x20

	MadvNormal   = 0
	MadvDontNeed = 4
)
