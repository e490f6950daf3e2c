// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

// Package paging builds the initial x86-64 page tables of a guest and walks
// them in software to translate guest virtual into guest physical addresses.
//
// The boot page tables map the first 4 GiB of guest physical memory twice
// with 2 MiB pages: once identity mapped and once at a fixed offset.
package paging
