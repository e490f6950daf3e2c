// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

//go:build linux

package kvm

import (
	"errors"
	"fmt"
	"os"
	"unsafe"

	"github.com/aibor/vmrun/internal/sys"
	"golang.org/x/sys/unix"
)

const (
	ioctlGetAPIVersion       = 0xae00
	ioctlCreateVM            = 0xae01
	ioctlGetVCPUMmapSize     = 0xae04
	ioctlGetSupportedCPUID   = 0xc008ae05
	ioctlCreateVCPU          = 0xae41
	ioctlSetUserMemoryRegion = 0x4020ae46
	ioctlSetTSSAddr          = 0xae47
	ioctlCreateIRQChip       = 0xae60
	ioctlRun                 = 0xae80
	ioctlGetRegs             = 0x8090ae81
	ioctlSetRegs             = 0x4090ae82
	ioctlGetSregs            = 0x8138ae83
	ioctlSetSregs            = 0x4138ae84
	ioctlSetCPUID2           = 0x4008ae90
	ioctlSetMPState          = 0x4004ae99
)

const (
	apiVersion      = 12
	maxCPUIDEntries = 256
)

// ErrAPIVersion is returned if the host's KVM API version is not supported.
var ErrAPIVersion = errors.New("unsupported KVM API version")

type userspaceMemoryRegion struct {
	Slot          uint32
	Flags         uint32
	GuestPhysAddr uint64
	MemorySize    uint64
	UserspaceAddr uint64
}

type cpuid2 struct {
	nent    uint32
	_       uint32
	entries [maxCPUIDEntries]CPUIDEntry2
}

func ioctl(file *os.File, name string, req uintptr, arg uintptr) (uintptr, error) {
	ret, _, errno := unix.Syscall(unix.SYS_IOCTL, file.Fd(), req, arg)
	if errno != 0 {
		return 0, sys.NewError(sys.ErrKVM, fmt.Errorf("%s: %w", name, errno))
	}

	return ret, nil
}

// System is the handle of the KVM device.
type System struct {
	file *os.File
}

// Open opens the KVM device and checks the API version.
func Open() (*System, error) {
	file, err := os.OpenFile(sys.KVMDevice, os.O_RDWR, 0)
	if err != nil {
		return nil, sys.NewError(sys.ErrKVM, err)
	}

	s := &System{file: file}

	version, err := ioctl(file, "KVM_GET_API_VERSION", ioctlGetAPIVersion, 0)
	if err != nil {
		_ = file.Close()
		return nil, err
	}

	if version != apiVersion {
		_ = file.Close()
		return nil, sys.NewError(sys.ErrKVM, fmt.Errorf("%w: %d", ErrAPIVersion, version))
	}

	return s, nil
}

// Close closes the KVM device.
func (s *System) Close() error {
	return s.file.Close() //nolint:wrapcheck
}

// SupportedCPUID returns the CPUID entries supported by KVM on this host.
func (s *System) SupportedCPUID() ([]CPUIDEntry2, error) {
	cpuid := cpuid2{nent: maxCPUIDEntries}

	_, err := ioctl(s.file, "KVM_GET_SUPPORTED_CPUID",
		ioctlGetSupportedCPUID, uintptr(unsafe.Pointer(&cpuid)))
	if err != nil {
		return nil, err
	}

	return append([]CPUIDEntry2(nil), cpuid.entries[:cpuid.nent]...), nil
}

// CreateVM creates a new virtual machine.
func (s *System) CreateVM() (*VM, error) {
	mmapSize, err := ioctl(s.file, "KVM_GET_VCPU_MMAP_SIZE", ioctlGetVCPUMmapSize, 0)
	if err != nil {
		return nil, err
	}

	fd, err := ioctl(s.file, "KVM_CREATE_VM", ioctlCreateVM, 0)
	if err != nil {
		return nil, err
	}

	return &VM{
		file:     os.NewFile(fd, "kvm-vm"),
		mmapSize: int(mmapSize),
	}, nil
}

// VM is a KVM virtual machine.
type VM struct {
	file     *os.File
	mmapSize int
}

// Close closes the virtual machine.
func (v *VM) Close() error {
	return v.file.Close() //nolint:wrapcheck
}

// SetTSSAddr sets the guest physical address of the three pages KVM needs for
// the real mode TSS on Intel hosts.
func (v *VM) SetTSSAddr(addr uint64) error {
	_, err := ioctl(v.file, "KVM_SET_TSS_ADDR", ioctlSetTSSAddr, uintptr(addr))
	return err
}

// CreateIRQChip creates the in kernel interrupt controller model.
func (v *VM) CreateIRQChip() error {
	_, err := ioctl(v.file, "KVM_CREATE_IRQCHIP", ioctlCreateIRQChip, 0)
	return err
}

// SetUserMemoryRegion maps the given host memory into the guest at the given
// guest physical address.
func (v *VM) SetUserMemoryRegion(slot uint32, gpa uint64, mem []byte) error {
	if len(mem) == 0 {
		return sys.NewError(sys.ErrGeneric, errors.New("empty memory region"))
	}

	region := userspaceMemoryRegion{
		Slot:          slot,
		GuestPhysAddr: gpa,
		MemorySize:    uint64(len(mem)),
		UserspaceAddr: uint64(uintptr(unsafe.Pointer(&mem[0]))),
	}

	_, err := ioctl(v.file, "KVM_SET_USER_MEMORY_REGION",
		ioctlSetUserMemoryRegion, uintptr(unsafe.Pointer(&region)))

	return err
}

// CreateVCPU creates a new vCPU with the given ID.
func (v *VM) CreateVCPU(id int) (*VCPU, error) {
	fd, err := ioctl(v.file, "KVM_CREATE_VCPU", ioctlCreateVCPU, uintptr(id))
	if err != nil {
		return nil, err
	}

	file := os.NewFile(fd, fmt.Sprintf("kvm-vcpu:%d", id))

	run, err := unix.Mmap(int(fd), 0, v.mmapSize,
		unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		_ = file.Close()
		return nil, sys.NewError(sys.ErrMmapFailed, fmt.Errorf("kvm_run: %w", err))
	}

	return &VCPU{file: file, run: run}, nil
}

// VCPU is a virtual CPU of a [VM].
type VCPU struct {
	file *os.File
	run  []byte
}

// Close unmaps the run structure and closes the vCPU.
func (c *VCPU) Close() error {
	return errors.Join(unix.Munmap(c.run), c.file.Close())
}

// Run runs the vCPU until the next exit and returns the exit state.
//
// Interrupted runs are reported as [ExitIntr].
func (c *VCPU) Run() (Exit, error) {
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, c.file.Fd(), ioctlRun, 0)

	switch errno {
	case 0:
		return DecodeExit(c.run)
	case unix.EINTR, unix.EAGAIN:
		return Exit{Reason: ExitIntr}, nil
	default:
		return Exit{}, sys.NewError(sys.ErrKVM, fmt.Errorf("KVM_RUN: %w", errno))
	}
}

// Regs returns the general purpose registers.
func (c *VCPU) Regs() (Regs, error) {
	var regs Regs

	_, err := ioctl(c.file, "KVM_GET_REGS",
		ioctlGetRegs, uintptr(unsafe.Pointer(&regs)))

	return regs, err
}

// SetRegs sets the general purpose registers.
func (c *VCPU) SetRegs(regs Regs) error {
	_, err := ioctl(c.file, "KVM_SET_REGS",
		ioctlSetRegs, uintptr(unsafe.Pointer(&regs)))

	return err
}

// Sregs returns the special registers.
func (c *VCPU) Sregs() (Sregs, error) {
	var sregs Sregs

	_, err := ioctl(c.file, "KVM_GET_SREGS",
		ioctlGetSregs, uintptr(unsafe.Pointer(&sregs)))

	return sregs, err
}

// SetSregs sets the special registers.
func (c *VCPU) SetSregs(sregs Sregs) error {
	_, err := ioctl(c.file, "KVM_SET_SREGS",
		ioctlSetSregs, uintptr(unsafe.Pointer(&sregs)))

	return err
}

// SetCPUID sets the CPUID entries the guest sees.
func (c *VCPU) SetCPUID(entries []CPUIDEntry2) error {
	if len(entries) > maxCPUIDEntries {
		return sys.NewError(sys.ErrKVM, fmt.Errorf("too many cpuid entries: %d", len(entries)))
	}

	cpuid := cpuid2{nent: uint32(len(entries))}
	copy(cpuid.entries[:], entries)

	_, err := ioctl(c.file, "KVM_SET_CPUID2",
		ioctlSetCPUID2, uintptr(unsafe.Pointer(&cpuid)))

	return err
}

// SetMPState sets the multiprocessing state.
func (c *VCPU) SetMPState(state MPState) error {
	_, err := ioctl(c.file, "KVM_SET_MP_STATE",
		ioctlSetMPState, uintptr(unsafe.Pointer(&state)))

	return err
}
