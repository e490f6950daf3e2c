// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

// Package elfload loads ELF executables into guest memory.
package elfload

import (
	"debug/elf"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/aibor/vmrun/internal/memmap"
	"github.com/aibor/vmrun/internal/sys"
)

var (
	// ErrInterpreterNotSupported is returned for dynamically linked
	// executables.
	ErrInterpreterNotSupported = errors.New("program interpreter not supported")

	// ErrNoLoadableSegments is returned if an ELF file has nothing to load.
	ErrNoLoadableSegments = errors.New("no loadable segments")

	// ErrSegmentConflict is returned if a segment overlaps memory that is not
	// available for it.
	ErrSegmentConflict = errors.New("segment conflicts with memory map")
)

// Memory provides access to guest physical memory.
type Memory interface {
	Slice(gpa, size uint64) ([]byte, error)
}

// Image describes a loaded executable.
type Image struct {
	// Entry is the address execution starts at.
	Entry uint64
	// LoadAddr is the address the ELF header is mapped at.
	LoadAddr uint64
	// Phnum is the number of program headers.
	Phnum uint64
}

// Loader loads executables into guest memory and records the frames they
// occupy in the memory map.
type Loader struct {
	Mem Memory
	Map *memmap.Map
}

// Load copies all loadable segments of the ELF executable into guest memory at
// their physical addresses and marks their frames with the given region type.
//
// If entrySymbol is not empty, the value of the symbol with that name is used
// as entry point instead of the one in the ELF header.
func (l *Loader) Load(
	r io.ReaderAt,
	regionType memmap.RegionType,
	entrySymbol string,
) (Image, error) {
	file, err := elf.NewFile(r)
	if err != nil {
		return Image{}, fmt.Errorf("%w: %w", sys.ErrNotELFFile, err)
	}
	defer file.Close()

	err = sys.ValidateELF(file.FileHeader, sys.AMD64)
	if err != nil {
		return Image{}, sys.NewError(sys.ErrVMModeUnsupported, err)
	}

	image := Image{
		Entry: file.Entry,
		Phnum: uint64(len(file.Progs)),
	}

	if entrySymbol != "" {
		image.Entry, err = lookupSymbol(file, entrySymbol)
		if err != nil {
			return Image{}, err
		}
	}

	err = checkOverlap(file.Progs)
	if err != nil {
		return Image{}, err
	}

	var loaded int

	for _, prog := range file.Progs {
		switch prog.Type {
		case elf.PT_INTERP:
			return Image{}, ErrInterpreterNotSupported
		case elf.PT_LOAD:
		default:
			continue
		}

		if loaded == 0 {
			image.LoadAddr = prog.Vaddr - prog.Off
		}

		err := l.loadSegment(prog, regionType)
		if err != nil {
			return Image{}, fmt.Errorf("segment %d: %w", loaded, err)
		}

		loaded++
	}

	if loaded == 0 {
		return Image{}, ErrNoLoadableSegments
	}

	return image, nil
}

func (l *Loader) loadSegment(prog *elf.Prog, regionType memmap.RegionType) error {
	if prog.Memsz == 0 {
		return nil
	}

	if prog.Filesz > prog.Memsz {
		return fmt.Errorf("%w: file size %#x exceeds memory size %#x",
			sys.ErrNotELFFile, prog.Filesz, prog.Memsz)
	}

	frames := memmap.AddrRange(prog.Paddr, prog.Paddr+prog.Memsz)

	usable, err := l.usableRuns(frames, regionType)
	if err != nil {
		return err
	}

	mem, err := l.Mem.Slice(prog.Paddr, prog.Memsz)
	if err != nil {
		return err //nolint:wrapcheck
	}

	for _, run := range usable {
		l.Map.MarkAllocatedRegion(memmap.Region{Range: run, Type: regionType})
	}

	clear(mem)

	_, err = io.ReadFull(prog.Open(), mem[:prog.Filesz])
	if err != nil {
		return sys.NewError(sys.ErrIO, err)
	}

	slog.Debug("Loaded segment",
		slog.String("type", regionType.String()),
		slog.String("paddr", fmt.Sprintf("%#x", prog.Paddr)),
		slog.Uint64("filesz", prog.Filesz),
		slog.Uint64("memsz", prog.Memsz),
	)

	return nil
}

// usableRuns verifies the frames are either usable or already of the given
// type and returns the contiguous runs of usable frames. Frames shared with
// other segments of the same type are already marked and stay as they are.
func (l *Loader) usableRuns(
	frames memmap.FrameRange,
	regionType memmap.RegionType,
) ([]memmap.FrameRange, error) {
	var runs []memmap.FrameRange

	for frame := frames.Start; frame < frames.End; frame++ {
		region, found := l.Map.Lookup(frame)
		if !found {
			return nil, fmt.Errorf("%w: frame %#x not mapped", ErrSegmentConflict, frame)
		}

		switch region.Type {
		case memmap.Usable:
			if last := len(runs) - 1; last >= 0 && runs[last].End == frame {
				runs[last].End++
			} else {
				runs = append(runs, memmap.FrameRange{Start: frame, End: frame + 1})
			}
		case regionType:
		default:
			return nil, fmt.Errorf("%w: frame %#x used by %s", ErrSegmentConflict, frame, region)
		}
	}

	return runs, nil
}

// checkOverlap fails if any two loadable segments share bytes. Sharing a frame
// is fine.
func checkOverlap(progs []*elf.Prog) error {
	var loads []*elf.Prog

	for _, prog := range progs {
		if prog.Type != elf.PT_LOAD || prog.Memsz == 0 {
			continue
		}

		for _, other := range loads {
			if prog.Paddr < other.Paddr+other.Memsz && other.Paddr < prog.Paddr+prog.Memsz {
				return fmt.Errorf("%w: segments at %#x and %#x overlap",
					ErrSegmentConflict, other.Paddr, prog.Paddr)
			}
		}

		loads = append(loads, prog)
	}

	return nil
}

func lookupSymbol(file *elf.File, name string) (uint64, error) {
	symbols, err := file.Symbols()
	if err != nil && !errors.Is(err, elf.ErrNoSymbols) {
		return 0, fmt.Errorf("read symbols: %w", err)
	}

	for _, symbol := range symbols {
		if symbol.Name == name {
			return symbol.Value, nil
		}
	}

	return 0, sys.NewError(sys.ErrGuestCodeNotFound, fmt.Errorf("symbol %q", name))
}
