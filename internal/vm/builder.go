// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package vm

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/aibor/vmrun/internal/bootinfo"
	"github.com/aibor/vmrun/internal/elfload"
	"github.com/aibor/vmrun/internal/guestmem"
	"github.com/aibor/vmrun/internal/kvm"
	"github.com/aibor/vmrun/internal/memmap"
	"github.com/aibor/vmrun/internal/paging"
	"github.com/aibor/vmrun/internal/segment"
	"github.com/aibor/vmrun/internal/sys"
)

// Guest memory size limits. The fixed boot layout occupies the first MiB. The
// upper limit keeps guest memory below [TSSAddr].
const (
	MinMemorySize = 2 * bootinfo.HiMemStart
	MaxMemorySize = 3 << 30
)

// TSSAddr is the guest physical address of the three pages KVM reserves for
// the real mode TSS.
const TSSAddr = 0xfffbd000

// Fixed regions of the boot layout in frames.
var fixedRegions = []memmap.Region{
	{Range: memmap.AddrRange(bootinfo.PML4Start, bootinfo.PageTablesEnd), Type: memmap.PageTable},
	{Range: memmap.AddrRange(bootinfo.PhysAddr, bootinfo.SyscallPhysAddr), Type: memmap.BootInfo},
	{Range: memmap.AddrRange(bootinfo.SyscallPhysAddr, bootinfo.StackStart), Type: memmap.SysCall},
	{Range: memmap.AddrRange(bootinfo.StackStart, bootinfo.HiMemStart), Type: memmap.KernelStack},
}

// Config is the guest to build.
type Config struct {
	// MemorySize is the guest memory size in bytes. It is rounded up to full
	// frames.
	MemorySize uint64
	// Kernel is the ELF executable that runs in ring 0.
	Kernel io.ReaderAt
	// EntrySymbol optionally names the kernel symbol to start at instead of
	// the ELF entry point.
	EntrySymbol string
	// App is an optional ELF executable that is loaded for the kernel.
	App io.ReaderAt
}

// Builder builds virtual machines.
type Builder struct {
	Hypervisor Hypervisor

	// Allocate and Release manage the host memory backing the guest. They
	// default to [guestmem.Allocate] and [guestmem.Release].
	Allocate func(size uint64) ([]byte, error)
	Release  func(mem []byte) error
}

// Build creates a virtual machine for the given configuration with its vCPU
// ready to run the kernel.
//
// All returned errors carry a [*sys.Error].
func (b *Builder) Build(cfg Config) (_ *VM, err error) {
	if cfg.MemorySize < MinMemorySize || cfg.MemorySize > MaxMemorySize {
		return nil, sys.NewError(sys.ErrNoMemFree,
			fmt.Errorf("memory size %#x not in [%#x, %#x]",
				cfg.MemorySize, MinMemorySize, MaxMemorySize))
	}

	allocate, release := b.Allocate, b.Release
	if allocate == nil {
		allocate, release = guestmem.Allocate, guestmem.Release
	}

	vm := &VM{
		Mem:     &guestmem.Memory{},
		release: release,
	}

	defer func() {
		if err != nil {
			_ = vm.Close()
		}
	}()

	vm.Machine, err = b.Hypervisor.CreateVM()
	if err != nil {
		return nil, asError(sys.ErrKVM, err)
	}

	if err := vm.Machine.SetTSSAddr(TSSAddr); err != nil {
		return nil, asError(sys.ErrKVM, err)
	}

	if err := vm.Machine.CreateIRQChip(); err != nil {
		return nil, asError(sys.ErrKVM, err)
	}

	mem, err := allocate(memmap.FramesFor(cfg.MemorySize) * memmap.FrameSize)
	if err != nil {
		return nil, asError(sys.ErrMmapFailed, err)
	}

	if err := addMemRegion(vm, 0, 0, mem); err != nil {
		return nil, err
	}

	for _, region := range fixedRegions {
		vm.Map.MarkAllocatedRegion(region)
	}

	if err := loadImages(vm, cfg); err != nil {
		return nil, err
	}

	if err := paging.Setup(vm.Mem, bootinfo.PhysicalMemoryOffset); err != nil {
		return nil, asError(sys.ErrGeneric, err)
	}

	vm.VCPU, err = vm.Machine.CreateVCPU(0)
	if err != nil {
		return nil, asError(sys.ErrKVM, err)
	}

	if err := b.setupVCPU(vm); err != nil {
		return nil, err
	}

	if err := writeBootInfo(vm); err != nil {
		return nil, err
	}

	regs := kvm.Regs{
		RIP:    vm.BootInfo.EntryPoint,
		RSP:    bootinfo.BootStackPointer,
		RDI:    bootinfo.PhysAddr,
		RFlags: 0x2,
	}

	if err := vm.VCPU.SetRegs(regs); err != nil {
		return nil, asError(sys.ErrKVM, err)
	}

	if err := vm.VCPU.SetMPState(kvm.MPStateRunnable); err != nil {
		return nil, asError(sys.ErrKVM, err)
	}

	slog.Debug("VM ready",
		slog.String("entry", fmt.Sprintf("%#x", regs.RIP)),
		slog.String("memory_map", vm.Map.String()),
	)

	return vm, nil
}

// addMemRegion maps the host memory into the guest at the given guest physical
// address and adds it to the memory map. Frame zero is never handed out.
func addMemRegion(vm *VM, slot uint32, gpa uint64, mem []byte) error {
	// Registered first, so it is released with the VM in any case.
	if _, err := vm.Mem.Add(slot, gpa, mem); err != nil {
		if vm.release != nil {
			_ = vm.release(mem)
		}

		return err //nolint:wrapcheck
	}

	if err := vm.Machine.SetUserMemoryRegion(slot, gpa, mem); err != nil {
		return asError(sys.ErrKVM, err)
	}

	region := memmap.Region{
		Range: memmap.AddrRange(gpa, gpa+uint64(len(mem))),
		Type:  memmap.Usable,
	}

	if vm.Map == nil {
		vm.Map = memmap.New(region)
	} else {
		vm.Map.AddRegion(region)
	}

	if gpa == 0 {
		vm.Map.MarkAllocatedRegion(memmap.Region{
			Range: memmap.FrameRange{Start: 0, End: 1},
			Type:  memmap.FrameZero,
		})
	}

	return nil
}

func loadImages(vm *VM, cfg Config) error {
	loader := elfload.Loader{Mem: vm.Mem, Map: vm.Map}

	kernel, err := loader.Load(cfg.Kernel, memmap.Kernel, cfg.EntrySymbol)
	if err != nil {
		return asError(sys.ErrGeneric, fmt.Errorf("kernel: %w", err))
	}

	vm.BootInfo = bootinfo.BootInfo{
		EntryPoint:           kernel.Entry,
		LoadAddr:             kernel.LoadAddr,
		ELFPhnum:             kernel.Phnum,
		SyscallTriggerPort:   bootinfo.SyscallTriggerPort,
		PhysicalMemoryOffset: bootinfo.PhysicalMemoryOffset,
		PGD:                  bootinfo.PML4Start,
	}

	if cfg.App == nil {
		return nil
	}

	app, err := loader.Load(cfg.App, memmap.App, "")
	if err != nil {
		return asError(sys.ErrGeneric, fmt.Errorf("app: %w", err))
	}

	vm.BootInfo.LoadAddr = app.LoadAddr
	vm.BootInfo.ELFPhnum = app.Phnum

	return nil
}

func (b *Builder) setupVCPU(vm *VM) error {
	sregs, err := vm.VCPU.Sregs()
	if err != nil {
		return asError(sys.ErrKVM, err)
	}

	if err := segment.Setup(vm.Mem, &sregs); err != nil {
		return asError(sys.ErrGeneric, err)
	}

	if err := vm.VCPU.SetSregs(sregs); err != nil {
		return asError(sys.ErrKVM, err)
	}

	cpuid, err := b.Hypervisor.SupportedCPUID()
	if err != nil {
		return asError(sys.ErrKVM, err)
	}

	if err := vm.VCPU.SetCPUID(cpuid); err != nil {
		return asError(sys.ErrKVM, err)
	}

	return nil
}

func writeBootInfo(vm *VM) error {
	vm.Map.Sort()
	vm.BootInfo.MemoryMap = vm.Map.Regions()

	data, err := vm.BootInfo.MarshalBinary()
	if err != nil {
		return asError(sys.ErrGeneric, err)
	}

	if err := vm.Mem.Write(bootinfo.PhysAddr, data); err != nil {
		return asError(sys.ErrIO, err)
	}

	return nil
}

// asError returns err if it already is a [*sys.Error]. Otherwise it is wrapped
// into one of the given kind.
func asError(kind, err error) error {
	var sysErr *sys.Error
	if errors.As(err, &sysErr) {
		return err
	}

	return sys.NewError(kind, err)
}
