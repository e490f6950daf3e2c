// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package guest

// Model specific registers.
const (
	MSREFER         = 0xc0000080
	MSRSTAR         = 0xc0000081
	MSRLSTAR        = 0xc0000082
	MSRFMASK        = 0xc0000084
	MSRKernelGSBase = 0xc0000102
)

// Platform provides the privileged operations of the CPU the guest kernel
// runs on.
type Platform interface {
	ReadMSR(msr uint32) uint64
	WriteMSR(msr uint32, value uint64)
	// EnterUsermode switches to ring 3 and continues at entry with the given
	// stack. On real hardware it does not return.
	EnterUsermode(entry, stack, arg uint64)
	Out(port uint16, data []byte)
	In(port uint16, data []byte)
}

// PortAccess is a single port I/O operation.
type PortAccess struct {
	Port uint16
	Data []byte
}

// MockPlatform is a [Platform] that records all operations.
//
// OnOut and OnIn are called for port I/O if set. The data passed to OnIn is
// returned to the caller of In.
type MockPlatform struct {
	MSRs      map[uint32]uint64
	Outs      []PortAccess
	UserEntry uint64
	UserStack uint64
	UserArg   uint64

	OnOut func(port uint16, data []byte)
	OnIn  func(port uint16, data []byte)
}

// ReadMSR implements [Platform].
func (m *MockPlatform) ReadMSR(msr uint32) uint64 {
	return m.MSRs[msr]
}

// WriteMSR implements [Platform].
func (m *MockPlatform) WriteMSR(msr uint32, value uint64) {
	if m.MSRs == nil {
		m.MSRs = make(map[uint32]uint64)
	}

	m.MSRs[msr] = value
}

// EnterUsermode implements [Platform].
func (m *MockPlatform) EnterUsermode(entry, stack, arg uint64) {
	m.UserEntry = entry
	m.UserStack = stack
	m.UserArg = arg
}

// Out implements [Platform].
func (m *MockPlatform) Out(port uint16, data []byte) {
	m.Outs = append(m.Outs, PortAccess{Port: port, Data: append([]byte(nil), data...)})

	if m.OnOut != nil {
		m.OnOut(port, data)
	}
}

// In implements [Platform].
func (m *MockPlatform) In(port uint16, data []byte) {
	if m.OnIn != nil {
		m.OnIn(port, data)
	}
}
