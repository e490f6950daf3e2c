// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package memmap

import "errors"

var (
	// ErrNoSpace is returned if no usable region is large enough for an
	// allocation.
	ErrNoSpace = errors.New("no usable frames left")

	// ErrZeroFrames is returned if an allocation of zero frames is requested.
	ErrZeroFrames = errors.New("zero frames requested")

	// ErrRegionConflict is the panic value if a region would overlap with a
	// region of a different, non usable type.
	ErrRegionConflict = errors.New("region conflicts with allocated region")

	// ErrOutsideMap is the panic value if a region is not covered by the map.
	ErrOutsideMap = errors.New("region outside of memory map")

	// ErrInvalidRegion is the panic value for empty or untyped regions.
	ErrInvalidRegion = errors.New("invalid region")
)
