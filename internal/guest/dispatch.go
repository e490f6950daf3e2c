// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package guest

import (
	"log/slog"

	"github.com/aibor/vmrun/internal/vmsyscall"
)

// Linux x86-64 syscall numbers served by the kernel.
const (
	SysRead      = 0
	SysWrite     = 1
	SysMmap      = 9
	SysMprotect  = 10
	SysMunmap    = 11
	SysMremap    = 25
	SysMadvise   = 28
	SysExit      = 60
	SysExitGroup = 231
)

// maxErrno is the largest error number a syscall result can carry.
const maxErrno = 4095

// Result is the value a syscall returns to the application in rax.
type Result int64

// IsError returns true if the result is a negated error number.
func (r Result) IsError() bool {
	return r < 0 && r >= -maxErrno
}

// Errno returns the error number of an error result and 0 otherwise.
func (r Result) Errno() int32 {
	if !r.IsError() {
		return 0
	}

	return int32(-r)
}

// Syscall dispatches the syscall with the given number and arguments as passed
// in rax and rdi, rsi, rdx, r10, r8, r9.
func (c *Context) Syscall(nr uint64, args [6]uint64) Result {
	var req vmsyscall.Request

	switch nr {
	case SysRead:
		req = vmsyscall.Read{FD: int32(args[0]), Addr: args[1], Count: args[2]}
	case SysWrite:
		req = vmsyscall.Write{FD: int32(args[0]), Addr: args[1], Count: args[2]}
	case SysMmap:
		// There are no files in the guest.
		if args[3]&vmsyscall.MapAnonymous == 0 {
			return -vmsyscall.EBADF
		}

		req = vmsyscall.Mmap{
			Addr:  args[0],
			Len:   args[1],
			Prot:  int32(args[2]),
			Flags: int32(args[3]),
		}
	case SysMprotect:
		req = vmsyscall.Mprotect{Addr: args[0], Len: args[1], Prot: int32(args[2])}
	case SysMunmap:
		req = vmsyscall.Munmap{Addr: args[0], Len: args[1]}
	case SysMremap:
		req = vmsyscall.Mremap{
			Addr:   args[0],
			Len:    args[1],
			NewLen: args[2],
			Flags:  int32(args[3]),
		}
	case SysMadvise:
		req = vmsyscall.Madvise{Addr: args[0], Len: args[1], Advice: int32(args[2])}
	case SysExit, SysExitGroup:
		c.Exit(int(int32(args[0])))
		return 0
	default:
		slog.Debug("Unsupported syscall", slog.Uint64("nr", nr))
		return -vmsyscall.ENOSYS
	}

	return Result(c.client.Syscall(req))
}
