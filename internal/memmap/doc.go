// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

// Package memmap provides the guest physical memory map and the frame
// allocator working on it.
//
// The map is a list of typed, frame granular regions. Only [Usable] regions
// are carved into other types. Regions of different types never overlap. Any
// attempt to violate this is considered a programming error and panics.
//
// A [Map] is not safe for concurrent use.
package memmap
