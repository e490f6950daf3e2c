// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package kvm

import "fmt"

const numInterrupts = 256

// Regs holds a vCPU's general purpose registers.
// It has the same layout as the C struct kvm_regs.
type Regs struct {
	RAX, RBX, RCX, RDX uint64
	RSI, RDI, RSP, RBP uint64
	R8, R9, R10, R11   uint64
	R12, R13, R14, R15 uint64
	RIP, RFlags        uint64
}

// Sregs holds a vCPU's special registers.
// It has the same layout as the C struct kvm_sregs.
type Sregs struct {
	CS, DS, ES, FS, GS, SS  Segment
	TR, LDT                 Segment
	GDT, IDT                Dtable
	CR0, CR2, CR3, CR4, CR8 uint64
	EFER                    uint64
	APICBase                uint64
	InterruptBitmap         [(numInterrupts + 63) / 64]uint64
}

// Segment has the same layout as the C struct kvm_segment.
type Segment struct {
	Base                           uint64
	Limit                          uint32
	Selector                       uint16
	Type                           uint8
	Present, DPL, DB, S, L, G, Avl uint8
	Unusable                       uint8
	_                              byte
}

// Dtable has the same layout as the C struct kvm_dtable.
type Dtable struct {
	Base  uint64
	Limit uint16
	_     [6]byte
}

// CPUIDEntry2 has the same layout as the C struct kvm_cpuid_entry2.
type CPUIDEntry2 struct {
	Function uint32
	Index    uint32
	Flags    uint32
	EAX      uint32
	EBX      uint32
	ECX      uint32
	EDX      uint32
	_        [3]uint32
}

// MPState is the multiprocessing state of a vCPU.
type MPState uint32

// MPStateRunnable is the state of a vCPU that may run.
const MPStateRunnable MPState = 0

// ExitReason is the reason a vCPU returned from KVM_RUN.
type ExitReason uint32

// Exit reasons as defined in linux/kvm.h.
const (
	ExitUnknown       ExitReason = 0
	ExitException     ExitReason = 1
	ExitIO            ExitReason = 2
	ExitHypercall     ExitReason = 3
	ExitDebug         ExitReason = 4
	ExitHlt           ExitReason = 5
	ExitMMIO          ExitReason = 6
	ExitIRQWindowOpen ExitReason = 7
	ExitShutdown      ExitReason = 8
	ExitFailEntry     ExitReason = 9
	ExitIntr          ExitReason = 10
	ExitInternalError ExitReason = 17
)

var exitReasonNames = map[ExitReason]string{
	ExitUnknown:       "UNKNOWN",
	ExitException:     "EXCEPTION",
	ExitIO:            "IO",
	ExitHypercall:     "HYPERCALL",
	ExitDebug:         "DEBUG",
	ExitHlt:           "HLT",
	ExitMMIO:          "MMIO",
	ExitIRQWindowOpen: "IRQ_WINDOW_OPEN",
	ExitShutdown:      "SHUTDOWN",
	ExitFailEntry:     "FAIL_ENTRY",
	ExitIntr:          "INTR",
	ExitInternalError: "INTERNAL_ERROR",
}

// String implements [fmt.Stringer].
func (r ExitReason) String() string {
	name, exists := exitReasonNames[r]
	if !exists {
		return fmt.Sprintf("ExitReason(%d)", uint32(r))
	}

	return name
}

// IODirection is the direction of a port I/O exit.
type IODirection uint8

// Port I/O directions as seen from the guest.
const (
	IOIn  IODirection = 0
	IOOut IODirection = 1
)

// String implements [fmt.Stringer].
func (d IODirection) String() string {
	if d == IOOut {
		return "out"
	}

	return "in"
}

// IOExit is a decoded KVM_EXIT_IO.
type IOExit struct {
	Direction IODirection
	Size      uint8
	Port      uint16
	Count     uint32
	// Data is the data buffer of the exit. For [IOOut] it holds the bytes
	// written by the guest. For [IOIn] the bytes written to it are returned
	// to the guest on the next run.
	Data []byte
}

// Exit is the decoded state of a vCPU after KVM_RUN returned.
type Exit struct {
	Reason ExitReason
	IO     IOExit
	// HardwareReason is the hardware entry failure reason for
	// [ExitFailEntry] and the suberror for [ExitInternalError].
	HardwareReason uint64
}
