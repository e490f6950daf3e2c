// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

// Package kvm provides a minimal interface to the Linux KVM API for a single
// x86-64 vCPU.
//
// The register structures have the same memory layout as their C
// counterparts and can be used on any platform. The ioctl wrappers are only
// available on Linux.
package kvm
