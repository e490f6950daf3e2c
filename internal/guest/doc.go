// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

// Package guest implements the kernel side of the hypervisor interface: the
// boot time CPU setup a guest kernel performs and the dispatch of application
// syscalls to the host via the syscall proxy.
//
// Privileged instructions are abstracted by [Platform]. This module ships no
// bare metal implementation of it: the kernel binary that boots in the VM
// provides one with the actual port and MSR instructions and is built outside
// this module. [MockPlatform] implements it in software and connects the port
// I/O to a host side syscall handler, which is how the package is exercised.
package guest
