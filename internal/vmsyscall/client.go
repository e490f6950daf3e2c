// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package vmsyscall

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/aibor/vmrun/internal/bootinfo"
)

// TriggerPort is the I/O port the guest uses to signal requests to the host
// and to receive the reply length.
const TriggerPort uint16 = bootinfo.SyscallTriggerPort

// ErrCallMismatch is returned if the reply does not match the request.
var ErrCallMismatch = errors.New("reply does not match request")

// PortIO performs port I/O. In a guest each operation traps to the host.
type PortIO interface {
	Out(port uint16, data []byte)
	In(port uint16, data []byte)
}

// Client is the guest side of the syscall proxy.
//
// Page is the shared syscall page as seen by the guest. Client is not safe for
// concurrent use.
type Client struct {
	Port PortIO
	Page []byte
}

// Call sends the request to the host and waits for the reply.
//
// The returned error is set for protocol failures only. Errors reported by
// the host for the executed request are part of the reply's [Result].
func (c *Client) Call(req Request) (Reply, error) {
	clear(c.Page)

	data, err := EncodeRequest(req)
	if err != nil {
		return Reply{}, err
	}

	if len(data) > len(c.Page) {
		return Reply{}, fmt.Errorf("%w: %d bytes", ErrTooLarge, len(data))
	}

	copy(c.Page, data)

	var length [2]byte

	binary.LittleEndian.PutUint16(length[:], uint16(len(data)))
	c.Port.Out(TriggerPort, length[:])

	clear(length[:])
	c.Port.In(TriggerPort, length[:])

	replyLen := int(binary.LittleEndian.Uint16(length[:]))
	if replyLen > len(c.Page) {
		return Reply{}, fmt.Errorf("%w: reply of %d bytes", ErrTooLarge, replyLen)
	}

	reply, err := DecodeReply(c.Page[:replyLen])
	if err != nil {
		return Reply{}, fmt.Errorf("%s: %w", req.Call(), err)
	}

	if reply.Result.Err == nil && reply.Call != req.Call() {
		return reply, fmt.Errorf("%w: %s for %s", ErrCallMismatch, reply.Call, req.Call())
	}

	return reply, nil
}

// Syscall sends the request and returns the result the way a syscall does:
// the value on success, the negated error number otherwise. Protocol failures
// are returned as -EIO.
func (c *Client) Syscall(req Request) int64 {
	reply, err := c.Call(req)
	if err != nil {
		return -EIO
	}

	return reply.Result.Int64()
}
