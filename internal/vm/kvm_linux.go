// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

//go:build linux

package vm

import (
	"github.com/aibor/vmrun/internal/kvm"
)

// KVM is the [Hypervisor] backed by the host's KVM device.
type KVM struct {
	*kvm.System
}

// OpenKVM opens the host's KVM device.
func OpenKVM() (*KVM, error) {
	system, err := kvm.Open()
	if err != nil {
		return nil, err //nolint:wrapcheck
	}

	return &KVM{System: system}, nil
}

// CreateVM implements [Hypervisor].
func (k *KVM) CreateVM() (Machine, error) {
	machine, err := k.System.CreateVM()
	if err != nil {
		return nil, err //nolint:wrapcheck
	}

	return &kvmMachine{VM: machine}, nil
}

type kvmMachine struct {
	*kvm.VM
}

func (m *kvmMachine) CreateVCPU(id int) (VCPU, error) {
	vcpu, err := m.VM.CreateVCPU(id)
	if err != nil {
		return nil, err //nolint:wrapcheck
	}

	return vcpu, nil
}
