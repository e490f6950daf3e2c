// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

//go:build linux

package kvm_test

import (
	"testing"

	"github.com/aibor/vmrun/internal/kvm"
	"github.com/aibor/vmrun/internal/sys"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen(t *testing.T) {
	if !sys.AMD64.KVMAvailable() {
		t.Skip("KVM not available")
	}

	system, err := kvm.Open()
	require.NoError(t, err)

	t.Cleanup(func() { _ = system.Close() })

	cpuid, err := system.SupportedCPUID()
	require.NoError(t, err)
	assert.NotEmpty(t, cpuid)

	vm, err := system.CreateVM()
	require.NoError(t, err)

	t.Cleanup(func() { _ = vm.Close() })

	vcpu, err := vm.CreateVCPU(0)
	require.NoError(t, err)

	t.Cleanup(func() { _ = vcpu.Close() })

	_, err = vcpu.Sregs()
	require.NoError(t, err)
}
