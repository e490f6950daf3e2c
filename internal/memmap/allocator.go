// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package memmap

import (
	"fmt"
	"slices"
)

// MarkAllocatedRegion carves the given region out of the usable space.
//
// If a region of the same type already contains the given one, nothing
// happens. If a region of the same type reaches up to the start of the given
// one, it is extended. Otherwise the usable regions covering it are split.
//
// It panics if any frame of the region belongs to a non usable region of a
// different type or is not covered by the map at all.
func (m *Map) MarkAllocatedRegion(region Region) {
	if region.Range.IsEmpty() || !region.Type.IsValid() ||
		region.Type == Usable {
		panic(fmt.Errorf("%w: %s", ErrInvalidRegion, region))
	}

	for _, r := range m.regions {
		if r.Type == region.Type && r.Range.Contains(region.Range) {
			return
		}
	}

	for _, r := range m.regions {
		if r.Type != region.Type ||
			r.Range.Start > region.Range.Start ||
			r.Range.End < region.Range.Start {
			continue
		}

		m.take(FrameRange{Start: r.Range.End, End: region.Range.End})
		m.extend(r, region.Range.End)

		return
	}

	m.take(region.Range)
	m.regions = append(m.regions, region)
}

// AllocateFrames allocates num contiguous frames of the given type and returns
// their range.
//
// An existing region of the same type is extended if it is directly followed
// by enough usable frames. Otherwise the frames are split off the first usable
// region large enough. Page tables are taken from the last fitting usable
// region to keep them clustered away from other allocations.
func (m *Map) AllocateFrames(num uint64, regionType RegionType) (FrameRange, error) {
	if num == 0 {
		return FrameRange{}, ErrZeroFrames
	}

	if !regionType.IsValid() || regionType == Usable {
		return FrameRange{}, fmt.Errorf("%w: type %s", ErrInvalidRegion, regionType)
	}

	for _, r := range m.regions {
		if r.Type != regionType {
			continue
		}

		next, found := m.usableAt(r.Range.End)
		if !found || next.Range.Len() < num {
			continue
		}

		frames := FrameRange{Start: r.Range.End, End: r.Range.End + num}
		m.take(frames)
		m.extend(r, frames.End)

		return frames, nil
	}

	candidates := slices.Clone(m.regions)
	if regionType == PageTable {
		slices.Reverse(candidates)
	}

	for _, r := range candidates {
		if r.Type != Usable || r.Range.Len() < num {
			continue
		}

		frames := FrameRange{Start: r.Range.Start, End: r.Range.Start + num}
		m.take(frames)
		m.regions = append(m.regions, Region{Range: frames, Type: regionType})

		return frames, nil
	}

	return FrameRange{}, fmt.Errorf("%d frames of type %s: %w", num, regionType, ErrNoSpace)
}

// usableAt returns the usable region starting at the given frame.
func (m *Map) usableAt(frame uint64) (Region, bool) {
	for _, r := range m.regions {
		if r.Type == Usable && r.Range.Start == frame {
			return r, true
		}
	}

	return Region{}, false
}

// extend sets the end of the given region to end.
func (m *Map) extend(region Region, end uint64) {
	idx := slices.Index(m.regions, region)
	if idx < 0 {
		panic(fmt.Errorf("%w: %s vanished", ErrInvalidRegion, region))
	}

	m.regions[idx].Range.End = end
}

// take removes the given frames from the usable regions. The map is only
// modified if all frames are usable.
func (m *Map) take(frames FrameRange) {
	if frames.IsEmpty() {
		return
	}

	var covered uint64

	regions := make([]Region, 0, len(m.regions)+1)

	for _, r := range m.regions {
		overlap := r.Range.Intersection(frames)
		if overlap.IsEmpty() {
			regions = append(regions, r)
			continue
		}

		if r.Type != Usable {
			panic(fmt.Errorf("%w: %s overlaps %s", ErrRegionConflict, frames, r))
		}

		covered += overlap.Len()

		if r.Range.Start < overlap.Start {
			regions = append(regions, Region{
				Range: FrameRange{Start: r.Range.Start, End: overlap.Start},
				Type:  Usable,
			})
		}

		if overlap.End < r.Range.End {
			regions = append(regions, Region{
				Range: FrameRange{Start: overlap.End, End: r.Range.End},
				Type:  Usable,
			})
		}
	}

	if covered != frames.Len() {
		panic(fmt.Errorf("%w: %s", ErrOutsideMap, frames))
	}

	m.regions = regions
}
