// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

// Package vm builds a single vCPU virtual machine that runs a 64-bit ELF
// kernel in long mode.
package vm

import (
	"errors"

	"github.com/aibor/vmrun/internal/bootinfo"
	"github.com/aibor/vmrun/internal/guestmem"
	"github.com/aibor/vmrun/internal/kvm"
	"github.com/aibor/vmrun/internal/memmap"
	"github.com/aibor/vmrun/internal/paging"
)

// Hypervisor creates virtual machines.
type Hypervisor interface {
	CreateVM() (Machine, error)
	SupportedCPUID() ([]kvm.CPUIDEntry2, error)
}

// Machine is a virtual machine without any vCPUs running.
type Machine interface {
	SetTSSAddr(addr uint64) error
	CreateIRQChip() error
	SetUserMemoryRegion(slot uint32, gpa uint64, mem []byte) error
	CreateVCPU(id int) (VCPU, error)
	Close() error
}

// VCPU is a virtual CPU.
type VCPU interface {
	Run() (kvm.Exit, error)
	Regs() (kvm.Regs, error)
	SetRegs(regs kvm.Regs) error
	Sregs() (kvm.Sregs, error)
	SetSregs(sregs kvm.Sregs) error
	SetCPUID(entries []kvm.CPUIDEntry2) error
	SetMPState(state kvm.MPState) error
	Close() error
}

// VM is a virtual machine ready to run.
type VM struct {
	Machine  Machine
	VCPU     VCPU
	Mem      *guestmem.Memory
	Map      *memmap.Map
	BootInfo bootinfo.BootInfo

	release func([]byte) error
}

// SyscallPage returns the host memory backing the shared syscall page.
func (v *VM) SyscallPage() ([]byte, error) {
	return v.Mem.Slice(bootinfo.SyscallPhysAddr, bootinfo.PageSize)
}

// Walker returns a page table walker for the guest's boot page tables.
func (v *VM) Walker() paging.Walker {
	return paging.Walker{Mem: v.Mem, Root: bootinfo.PML4Start}
}

// Close releases all resources of the virtual machine.
func (v *VM) Close() error {
	var errs []error

	if v.VCPU != nil {
		errs = append(errs, v.VCPU.Close())
	}

	if v.Machine != nil {
		errs = append(errs, v.Machine.Close())
	}

	if v.Mem != nil && v.release != nil {
		for _, region := range v.Mem.Regions() {
			errs = append(errs, v.release(region.Mem))
		}
	}

	return errors.Join(errs...)
}
