// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

// Package qemu runs a guest kernel with QEMU instead of the built-in
// hypervisor. It expects the required QEMU binary to be present on the system.
//
// The guest signals its result via the isa-debug-exit device at the same port
// the built-in hypervisor uses. Its serial console is connected to stdio, so
// output of the guest is copied to the writers of the [Command].
package qemu
