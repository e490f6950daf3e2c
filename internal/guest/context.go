// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package guest

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/aibor/vmrun/internal/bootinfo"
	"github.com/aibor/vmrun/internal/exitcode"
	"github.com/aibor/vmrun/internal/segment"
	"github.com/aibor/vmrun/internal/vmsyscall"
)

// Selectors of the kernel GDT. The user segments are ordered as SYSRET
// expects them: data right before code.
const (
	KernelCodeSelector = 0x08
	KernelDataSelector = 0x10
	UserDataSelector   = 0x18
	UserCodeSelector   = 0x20
	TSSSelector        = 0x28
)

// ErrInvalidBootInfo is returned if the hypervisor passed unusable boot
// information.
var ErrInvalidBootInfo = errors.New("invalid boot info")

// FMASK clears the trap and interrupt flag on syscall entry.
const syscallFlagMask = 0x300

// GDT returns the kernel's descriptor table with user segments and a TSS at
// the given address.
func GDT(tssBase uint64) ([]byte, error) {
	return segment.EncodeGDT(
		segment.Code(KernelCodeSelector, 0),
		segment.Data(KernelDataSelector, 0),
		segment.Data(UserDataSelector, 3),
		segment.Code(UserCodeSelector, 3),
		segment.TSS(TSSSelector, tssBase, segment.TSSLimit),
	)
}

// Context is the state of the guest kernel.
type Context struct {
	platform Platform
	bootInfo bootinfo.BootInfo
	client   *vmsyscall.Client
}

// NewContext creates the kernel context from the boot info the hypervisor
// passed and the shared syscall page.
func NewContext(platform Platform, bootInfo, syscallPage []byte) (*Context, error) {
	ctx := &Context{platform: platform}

	if err := ctx.bootInfo.UnmarshalBinary(bootInfo); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidBootInfo, err)
	}

	if len(syscallPage) != vmsyscall.PageSize {
		return nil, fmt.Errorf("%w: syscall page of %d bytes",
			ErrInvalidBootInfo, len(syscallPage))
	}

	if ctx.bootInfo.SyscallTriggerPort != uint64(vmsyscall.TriggerPort) {
		return nil, fmt.Errorf("%w: syscall port %#x",
			ErrInvalidBootInfo, ctx.bootInfo.SyscallTriggerPort)
	}

	ctx.client = &vmsyscall.Client{Port: platform, Page: syscallPage}

	return ctx, nil
}

// Boot creates the kernel context and sets up the syscall entry. It is the
// kernel's outermost entry and panics if the hypervisor passed unusable boot
// information.
func Boot(platform Platform, bootInfo, syscallPage []byte, syscallEntry, tssBase uint64) *Context {
	ctx, err := NewContext(platform, bootInfo, syscallPage)
	if err != nil {
		panic(err)
	}

	ctx.InitSyscalls(syscallEntry, tssBase)

	return ctx
}

// BootInfo returns the boot info passed by the hypervisor.
func (c *Context) BootInfo() bootinfo.BootInfo {
	return c.bootInfo
}

// Client returns the guest side of the syscall proxy.
func (c *Context) Client() *vmsyscall.Client {
	return c.client
}

// InitSyscalls programs the MSRs for SYSCALL to enter the kernel at the given
// address.
func (c *Context) InitSyscalls(entry, tssBase uint64) {
	star := uint64(KernelCodeSelector)<<32 | uint64(UserDataSelector-8|3)<<48

	c.platform.WriteMSR(MSRSTAR, star)
	c.platform.WriteMSR(MSRLSTAR, entry)
	c.platform.WriteMSR(MSRFMASK, syscallFlagMask)
	c.platform.WriteMSR(MSRKernelGSBase, tssBase)

	efer := c.platform.ReadMSR(MSREFER)
	c.platform.WriteMSR(MSREFER, efer|
		segment.EFERLME|segment.EFERLMA|segment.EFERNXE|segment.EFERSCE)
}

// StartApp enters the application in ring 3.
func (c *Context) StartApp(entry, stack uint64) {
	c.platform.EnterUsermode(entry, stack, c.bootInfo.LoadAddr)
}

// Exit signals the hypervisor to terminate the guest. Code 0 is reported as
// success, everything else as failure.
func (c *Context) Exit(code int) {
	payload := uint32(exitcode.DebugExitFailure)
	if code == 0 {
		payload = exitcode.DebugExitSuccess
	}

	var data [4]byte

	binary.LittleEndian.PutUint32(data[:], payload)
	c.platform.Out(bootinfo.DebugExitPort, data[:])
}
