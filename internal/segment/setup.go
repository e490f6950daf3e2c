// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package segment

import (
	"fmt"

	"github.com/aibor/vmrun/internal/bootinfo"
	"github.com/aibor/vmrun/internal/kvm"
)

// Selectors of the boot GDT.
const (
	SelectorCode = 0x08
	SelectorData = 0x10
	SelectorTSS  = 0x18
)

// TSSLimit is the limit of a 64-bit TSS without I/O permission bitmap.
const TSSLimit = 0x67

// Control register bits.
const (
	CR0PE = 1 << 0
	CR0NE = 1 << 5
	CR0PG = 1 << 31

	CR4PAE    = 1 << 5
	CR4OSFXSR = 1 << 9

	EFERSCE = 1 << 0
	EFERLME = 1 << 8
	EFERLMA = 1 << 10
	EFERNXE = 1 << 11
)

// Writer writes data to guest physical memory.
type Writer interface {
	Write(gpa uint64, data []byte) error
	Zero(gpa, size uint64) error
}

// BootSegments returns the segments of the boot GDT.
func BootSegments() (code, data, tss kvm.Segment) {
	return Code(SelectorCode, 0),
		Data(SelectorData, 0),
		TSS(SelectorTSS, bootinfo.BootTSSOffset, TSSLimit)
}

// Setup writes the boot GDT and TSS into guest memory and then configures the
// given special registers for 64-bit long mode with paging rooted at
// [bootinfo.PML4Start].
func Setup(mem Writer, sregs *kvm.Sregs) error {
	code, data, tss := BootSegments()

	gdt, err := EncodeGDT(code, data, tss)
	if err != nil {
		return err
	}

	if err := mem.Write(bootinfo.BootGDTOffset, gdt); err != nil {
		return fmt.Errorf("write gdt: %w", err)
	}

	if err := mem.Zero(bootinfo.BootTSSOffset, TSSLimit+1); err != nil {
		return fmt.Errorf("clear tss: %w", err)
	}

	sregs.GDT = kvm.Dtable{
		Base:  bootinfo.BootGDTOffset,
		Limit: uint16(len(gdt) - 1),
	}
	sregs.IDT = kvm.Dtable{
		Base:  bootinfo.BootIDTOffset,
		Limit: 0,
	}

	sregs.CS = code
	sregs.DS = data
	sregs.ES = data
	sregs.FS = data
	sregs.GS = data
	sregs.SS = data
	sregs.TR = tss
	sregs.LDT = Unusable()

	sregs.CR0 = CR0PE | CR0NE | CR0PG
	sregs.CR3 = bootinfo.PML4Start
	sregs.CR4 |= CR4PAE | CR4OSFXSR
	sregs.EFER |= EFERLME | EFERLMA | EFERNXE

	return nil
}
