// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package memmap

import "fmt"

// FrameSize is the size of a single physical frame in bytes.
const FrameSize = 4096

// FrameRange is a half open range of frame numbers.
type FrameRange struct {
	Start uint64
	End   uint64
}

// FramesFor returns the number of frames required to hold size bytes.
func FramesFor(size uint64) uint64 {
	return (size + FrameSize - 1) / FrameSize
}

// AddrRange returns the [FrameRange] covering the address range [start, end).
// Start is rounded down and end is rounded up to frame boundaries.
func AddrRange(start, end uint64) FrameRange {
	return FrameRange{
		Start: start / FrameSize,
		End:   FramesFor(end),
	}
}

// Len returns the number of frames in the range.
func (r FrameRange) Len() uint64 {
	if r.End <= r.Start {
		return 0
	}

	return r.End - r.Start
}

// IsEmpty returns true if the range does not contain any frames.
func (r FrameRange) IsEmpty() bool {
	return r.Len() == 0
}

// StartAddr returns the physical address of the first frame.
func (r FrameRange) StartAddr() uint64 {
	return r.Start * FrameSize
}

// EndAddr returns the physical address right after the last frame.
func (r FrameRange) EndAddr() uint64 {
	return r.End * FrameSize
}

// Contains returns true if other lies completely within r.
func (r FrameRange) Contains(other FrameRange) bool {
	return r.Start <= other.Start && other.End <= r.End
}

// Intersects returns true if r and other share at least one frame.
func (r FrameRange) Intersects(other FrameRange) bool {
	return !r.IsEmpty() && !other.IsEmpty() &&
		r.Start < other.End && other.Start < r.End
}

// Intersection returns the frames present in both ranges. The result is empty
// if they do not intersect.
func (r FrameRange) Intersection(other FrameRange) FrameRange {
	if !r.Intersects(other) {
		return FrameRange{}
	}

	return FrameRange{
		Start: max(r.Start, other.Start),
		End:   min(r.End, other.End),
	}
}

// String implements [fmt.Stringer].
func (r FrameRange) String() string {
	return fmt.Sprintf("[%#x, %#x)", r.Start, r.End)
}
