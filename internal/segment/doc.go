// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

// Package segment builds the global descriptor table and configures the
// segment and control registers of a vCPU for 64-bit long mode.
//
// The descriptors written into guest memory and the segment registers loaded
// into the vCPU are derived from the same [kvm.Segment] values, so they always
// match.
package segment
