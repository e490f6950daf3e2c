// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

//go:build linux

package vmexit_test

import (
	"bytes"
	"context"
	"debug/elf"
	"testing"

	"github.com/aibor/vmrun/internal/elfload"
	"github.com/aibor/vmrun/internal/exitcode"
	"github.com/aibor/vmrun/internal/sys"
	"github.com/aibor/vmrun/internal/vm"
	"github.com/aibor/vmrun/internal/vmexit"
	"github.com/aibor/vmrun/internal/vmsyscall"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// guestCode prints "ok" to the serial port and writes the given payload to the
// debug exit port.
func guestCode(payload byte) []byte {
	return []byte{
		0x66, 0xba, 0xf8, 0x03, // mov dx, 0x3f8
		0xb0, 'o',              // mov al, 'o'
		0xee,                   // out dx, al
		0xb0, 'k',              // mov al, 'k'
		0xee,                   // out dx, al
		0x66, 0xba, 0xf4, 0x00, // mov dx, 0xf4
		0xb8, payload, 0, 0, 0, // mov eax, payload
		0xef,                   // out dx, eax
		0xf4,                   // hlt
	}
}

func TestLoop_Run_KVM(t *testing.T) {
	if !sys.AMD64.KVMAvailable() {
		t.Skip("KVM not available")
	}

	tests := []struct {
		name     string
		payload  byte
		expected int
	}{
		{
			name:     "success",
			payload:  0x10,
			expected: 0,
		},
		{
			name:     "failure",
			payload:  0x11,
			expected: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hypervisor, err := vm.OpenKVM()
			require.NoError(t, err)

			t.Cleanup(func() { _ = hypervisor.Close() })

			kernel := elfload.BuildTestELF(t, elf.EM_X86_64, 0x200000,
				[]elfload.TestSegment{{
					Type:  elf.PT_LOAD,
					Paddr: 0x200000,
					Data:  guestCode(tt.payload),
					Memsz: 0x1000,
				}},
				nil,
			)

			builder := vm.Builder{Hypervisor: hypervisor}

			machine, err := builder.Build(vm.Config{
				MemorySize: vm.MinMemorySize * 2,
				Kernel:     bytes.NewReader(kernel),
			})
			require.NoError(t, err)

			t.Cleanup(func() { _ = machine.Close() })

			page, err := machine.SyscallPage()
			require.NoError(t, err)

			var serial bytes.Buffer

			loop := vmexit.Loop{
				VCPU:   machine.VCPU,
				Serial: &serial,
				Syscalls: &vmsyscall.Handler{
					Mem:        machine.Mem,
					Map:        machine.Map,
					Translator: machine.Walker(),
				},
				Page: page,
			}

			code, _ := exitcode.From(loop.Run(context.Background()))
			assert.Equal(t, tt.expected, code)
			assert.Equal(t, "ok", serial.String())
		})
	}
}
