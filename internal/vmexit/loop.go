// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

// Package vmexit drives a vCPU and serves the exits the guest triggers.
package vmexit

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"runtime"

	"github.com/aibor/vmrun/internal/bootinfo"
	"github.com/aibor/vmrun/internal/exitcode"
	"github.com/aibor/vmrun/internal/kvm"
)

// Serial port registers relative to [bootinfo.SerialPort].
const (
	serialRegisters = 8
	serialLSR       = 5

	// lsrTransmitterEmpty signals the guest it may write the next byte.
	lsrTransmitterEmpty = 0x20
)

var (
	// ErrUnhandledExit is returned for exits the loop does not serve.
	ErrUnhandledExit = errors.New("unhandled vcpu exit")

	// ErrUnhandledPort is returned for I/O on unknown ports.
	ErrUnhandledPort = errors.New("unhandled io port")

	// ErrNoPendingReply is returned if the guest reads the syscall port
	// without a request sent before.
	ErrNoPendingReply = errors.New("no pending syscall reply")
)

// VCPU is a virtual CPU that can be run.
type VCPU interface {
	Run() (kvm.Exit, error)
	Regs() (kvm.Regs, error)
}

// SyscallHandler executes a syscall request in the shared page and returns
// the length of the reply written into the page.
type SyscallHandler interface {
	HandlePage(page []byte, reqLen int) int
}

// Loop runs a vCPU until the guest halts or exits.
type Loop struct {
	VCPU     VCPU
	Serial   io.Writer
	Syscalls SyscallHandler
	// Page is the host memory backing the shared syscall page.
	Page []byte

	replyLen   uint16
	hasPending bool
}

// Run runs the vCPU and serves its exits.
//
// It returns nil if the guest halts or signals success via the debug exit
// port. An [exitcode.Error] is returned if the guest signals failure. The
// context is checked between runs of the vCPU only.
func (l *Loop) Run(ctx context.Context) error {
	// KVM requires all vCPU ioctls to be issued by the same thread.
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	for {
		if err := ctx.Err(); err != nil {
			return err //nolint:wrapcheck
		}

		exit, err := l.VCPU.Run()
		if err != nil {
			return fmt.Errorf("run vcpu: %w", err)
		}

		done, err := l.handle(exit)
		if done || err != nil {
			return err
		}
	}
}

func (l *Loop) handle(exit kvm.Exit) (bool, error) {
	switch exit.Reason {
	case kvm.ExitIO:
		return l.handleIO(exit.IO)
	case kvm.ExitHlt:
		slog.Debug("Guest halted")
		return true, nil
	case kvm.ExitIntr:
		return false, nil
	default:
		l.dumpRegs()

		return true, fmt.Errorf("%w: %s (hardware reason %#x)",
			ErrUnhandledExit, exit.Reason, exit.HardwareReason)
	}
}

func (l *Loop) handleIO(exit kvm.IOExit) (bool, error) {
	switch {
	case exit.Port == bootinfo.DebugExitPort && exit.Direction == kvm.IOOut:
		payload := uint32(littleEndian(exit.Data))
		slog.Debug("Guest debug exit", slog.Any("payload", payload))

		return true, exitcode.FromDebugExit(payload)
	case exit.Port == bootinfo.SyscallTriggerPort:
		return false, l.handleSyscall(exit)
	case exit.Port >= bootinfo.SerialPort &&
		exit.Port < bootinfo.SerialPort+serialRegisters:
		return false, l.handleSerial(exit)
	default:
		l.dumpRegs()

		return true, fmt.Errorf("%w: %s %#x", ErrUnhandledPort, exit.Direction, exit.Port)
	}
}

func (l *Loop) handleSyscall(exit kvm.IOExit) error {
	if exit.Direction == kvm.IOOut {
		reqLen := int(littleEndian(exit.Data))
		l.replyLen = uint16(l.Syscalls.HandlePage(l.Page, reqLen))
		l.hasPending = true

		return nil
	}

	if !l.hasPending {
		l.dumpRegs()
		return ErrNoPendingReply
	}

	var length [2]byte

	binary.LittleEndian.PutUint16(length[:], l.replyLen)
	copy(exit.Data, length[:])

	l.hasPending = false

	return nil
}

// handleSerial emulates the minimum of a 16550 UART a polling guest needs.
// Writes to the transmit register are copied to the serial writer, all other
// writes are ignored.
func (l *Loop) handleSerial(exit kvm.IOExit) error {
	register := exit.Port - bootinfo.SerialPort

	if exit.Direction == kvm.IOIn {
		clear(exit.Data)

		if register == serialLSR {
			for idx := range exit.Data {
				exit.Data[idx] = lsrTransmitterEmpty
			}
		}

		return nil
	}

	if register != 0 {
		return nil
	}

	if _, err := l.Serial.Write(exit.Data); err != nil {
		return fmt.Errorf("write serial output: %w", err)
	}

	return nil
}

func (l *Loop) dumpRegs() {
	if !slog.Default().Enabled(context.Background(), slog.LevelDebug) {
		return
	}

	regs, err := l.VCPU.Regs()
	if err != nil {
		slog.Debug("Get registers", slog.Any("error", err))
		return
	}

	slog.Debug("Registers",
		slog.String("rip", fmt.Sprintf("%#x", regs.RIP)),
		slog.String("rsp", fmt.Sprintf("%#x", regs.RSP)),
		slog.String("rflags", fmt.Sprintf("%#x", regs.RFlags)),
		slog.String("rax", fmt.Sprintf("%#x", regs.RAX)),
		slog.String("rbx", fmt.Sprintf("%#x", regs.RBX)),
		slog.String("rcx", fmt.Sprintf("%#x", regs.RCX)),
		slog.String("rdx", fmt.Sprintf("%#x", regs.RDX)),
		slog.String("rsi", fmt.Sprintf("%#x", regs.RSI)),
		slog.String("rdi", fmt.Sprintf("%#x", regs.RDI)),
	)
}

// littleEndian decodes up to 8 bytes of port I/O data.
func littleEndian(data []byte) uint64 {
	var buf [8]byte

	copy(buf[:], data)

	return binary.LittleEndian.Uint64(buf[:])
}
