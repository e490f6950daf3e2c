// SPDX-FileCopyrightText: 2024 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package sys

import (
	"os"
	"runtime"
)

// Arch is a CPU architecture as named by GOARCH.
type Arch string

// The only architecture guests are supported for.
const AMD64 Arch = "amd64"

// Native is the architecture of the host.
const Native Arch = Arch(runtime.GOARCH)

// KVMDevice is the path of the KVM device.
const KVMDevice = "/dev/kvm"

func (a Arch) String() string {
	return string(a)
}

// IsNative returns true if the architecture matches the host.
func (a Arch) IsNative() bool {
	return Native == a
}

// KVMAvailable checks if KVM support is available for the given architecture.
func (a Arch) KVMAvailable() bool {
	if !a.IsNative() {
		return false
	}

	f, err := os.OpenFile(KVMDevice, os.O_RDWR, 0)
	if err != nil {
		return false
	}

	_ = f.Close()

	return true
}
