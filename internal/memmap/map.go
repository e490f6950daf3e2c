// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package memmap

import (
	"cmp"
	"fmt"
	"slices"
	"strings"
)

// Map is the list of physical memory regions of a guest.
type Map struct {
	regions []Region
}

// New returns a [Map] with the given regions added.
func New(regions ...Region) *Map {
	m := &Map{}

	for _, r := range regions {
		m.AddRegion(r)
	}

	return m
}

// AddRegion appends a region to the map.
//
// It panics if the region is invalid or overlaps any existing region.
func (m *Map) AddRegion(region Region) {
	if region.Range.IsEmpty() || !region.Type.IsValid() {
		panic(fmt.Errorf("%w: %s", ErrInvalidRegion, region))
	}

	for _, r := range m.regions {
		if r.Range.Intersects(region.Range) {
			panic(fmt.Errorf("%w: %s overlaps %s", ErrRegionConflict, region, r))
		}
	}

	m.regions = append(m.regions, region)
}

// Regions returns a copy of the current regions in map order.
func (m *Map) Regions() []Region {
	return slices.Clone(m.regions)
}

// Len returns the number of regions.
func (m *Map) Len() int {
	return len(m.regions)
}

// Sort orders the regions by start frame.
func (m *Map) Sort() {
	slices.SortFunc(m.regions, func(a, b Region) int {
		return cmp.Compare(a.Range.Start, b.Range.Start)
	})
}

// Frames returns the number of frames of the given type.
func (m *Map) Frames(regionType RegionType) uint64 {
	var num uint64

	for _, r := range m.regions {
		if r.Type == regionType {
			num += r.Range.Len()
		}
	}

	return num
}

// Covered returns the frame spans covered by any region, sorted and with
// adjacent spans joined.
func (m *Map) Covered() []FrameRange {
	ranges := make([]FrameRange, 0, len(m.regions))
	for _, r := range m.regions {
		ranges = append(ranges, r.Range)
	}

	slices.SortFunc(ranges, func(a, b FrameRange) int {
		return cmp.Compare(a.Start, b.Start)
	})

	spans := make([]FrameRange, 0, len(ranges))

	for _, r := range ranges {
		last := len(spans) - 1
		if last >= 0 && spans[last].End >= r.Start {
			spans[last].End = max(spans[last].End, r.End)
			continue
		}

		spans = append(spans, r)
	}

	return spans
}

// Lookup returns the region containing the given frame.
func (m *Map) Lookup(frame uint64) (Region, bool) {
	for _, r := range m.regions {
		if r.Range.Start <= frame && frame < r.Range.End {
			return r, true
		}
	}

	return Region{}, false
}

// String implements [fmt.Stringer].
func (m *Map) String() string {
	parts := make([]string, 0, len(m.regions))
	for _, r := range m.regions {
		parts = append(parts, r.String())
	}

	return "{" + strings.Join(parts, ", ") + "}"
}
