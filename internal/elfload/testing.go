// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package elfload

import (
	"bytes"
	"debug/elf"
	"encoding/binary"
	"testing"
)

// TestSegment is a program header of an executable built by [BuildTestELF].
type TestSegment struct {
	Type  elf.ProgType
	Paddr uint64
	Data  []byte
	Memsz uint64
}

// TestSymbol is a symbol table entry of an executable built by
// [BuildTestELF].
type TestSymbol struct {
	Name  string
	Value uint64
}

const (
	testHeaderSize  = 64
	testProgSize    = 56
	testSectionSize = 64
	testSymSize     = 24
	testDataAlign   = 0x1000
)

// BuildTestELF assembles a minimal executable for the given machine. Segment
// data is placed at page aligned file offsets starting at 0x1000. A symbol
// table is only added if symbols are given.
func BuildTestELF(
	tb testing.TB,
	machine elf.Machine,
	entry uint64,
	segments []TestSegment,
	symbols []TestSymbol,
) []byte {
	tb.Helper()

	offset := uint64(testDataAlign)
	progs := make([]elf.Prog64, 0, len(segments))

	for _, seg := range segments {
		progs = append(progs, elf.Prog64{
			Type:   uint32(seg.Type),
			Flags:  uint32(elf.PF_R | elf.PF_X),
			Off:    offset,
			Vaddr:  seg.Paddr,
			Paddr:  seg.Paddr,
			Filesz: uint64(len(seg.Data)),
			Memsz:  seg.Memsz,
			Align:  testDataAlign,
		})
		offset += (uint64(len(seg.Data)) + testDataAlign - 1) / testDataAlign * testDataAlign
	}

	body := make([]byte, offset-testDataAlign)

	for idx, seg := range segments {
		copy(body[progs[idx].Off-testDataAlign:], seg.Data)
	}

	header := elf.Header64{
		Type:      uint16(elf.ET_EXEC),
		Machine:   uint16(machine),
		Version:   uint32(elf.EV_CURRENT),
		Entry:     entry,
		Phoff:     testHeaderSize,
		Ehsize:    testHeaderSize,
		Phentsize: testProgSize,
		Phnum:     uint16(len(progs)),
		Shentsize: testSectionSize,
	}
	copy(header.Ident[:], elf.ELFMAG)
	header.Ident[elf.EI_CLASS] = byte(elf.ELFCLASS64)
	header.Ident[elf.EI_DATA] = byte(elf.ELFDATA2LSB)
	header.Ident[elf.EI_VERSION] = byte(elf.EV_CURRENT)

	var (
		sections []elf.Section64
		tail     bytes.Buffer
	)

	if len(symbols) > 0 {
		strtab := []byte{0}
		symtab := make([]elf.Sym64, 1, len(symbols)+1)

		for _, sym := range symbols {
			symtab = append(symtab, elf.Sym64{
				Name:  uint32(len(strtab)),
				Info:  elf.ST_INFO(elf.STB_GLOBAL, elf.STT_FUNC),
				Shndx: uint16(elf.SHN_ABS),
				Value: sym.Value,
			})
			strtab = append(strtab, append([]byte(sym.Name), 0)...)
		}

		var symData bytes.Buffer

		err := binary.Write(&symData, binary.LittleEndian, symtab)
		if err != nil {
			tb.Fatalf("encode symbol table: %v", err)
		}

		shstrtab := []byte("\x00.symtab\x00.strtab\x00.shstrtab\x00")
		symOff := offset
		strOff := symOff + uint64(symData.Len())
		shstrOff := strOff + uint64(len(strtab))

		sections = []elf.Section64{
			{},
			{
				Name:      1,
				Type:      uint32(elf.SHT_SYMTAB),
				Off:       symOff,
				Size:      uint64(symData.Len()),
				Link:      2,
				Info:      1,
				Addralign: 8,
				Entsize:   testSymSize,
			},
			{
				Name:      9,
				Type:      uint32(elf.SHT_STRTAB),
				Off:       strOff,
				Size:      uint64(len(strtab)),
				Addralign: 1,
			},
			{
				Name:      17,
				Type:      uint32(elf.SHT_STRTAB),
				Off:       shstrOff,
				Size:      uint64(len(shstrtab)),
				Addralign: 1,
			},
		}

		tail.Write(symData.Bytes())
		tail.Write(strtab)
		tail.Write(shstrtab)

		header.Shoff = shstrOff + uint64(len(shstrtab))
		header.Shnum = uint16(len(sections))
		header.Shstrndx = 3
	}

	var buf bytes.Buffer

	for _, v := range []any{header, progs} {
		err := binary.Write(&buf, binary.LittleEndian, v)
		if err != nil {
			tb.Fatalf("encode headers: %v", err)
		}
	}

	buf.Write(make([]byte, testDataAlign-buf.Len()))
	buf.Write(body)
	buf.Write(tail.Bytes())

	if len(sections) > 0 {
		err := binary.Write(&buf, binary.LittleEndian, sections)
		if err != nil {
			tb.Fatalf("encode section headers: %v", err)
		}
	}

	return buf.Bytes()
}
