// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package vmsyscall

import (
	"fmt"
)

// Call is the name of a proxied syscall. It is the variant name of requests
// and replies on the wire.
type Call string

// Known calls.
const (
	CallMadvise  Call = "Madvise"
	CallMmap     Call = "Mmap"
	CallMremap   Call = "Mremap"
	CallMunmap   Call = "Munmap"
	CallMprotect Call = "Mprotect"
	CallWrite    Call = "Write"
	CallRead     Call = "Read"

	// CallInvalid tags replies to requests that could not be decoded.
	CallInvalid Call = "Invalid"
)

// Request is a syscall request sent by the guest.
type Request interface {
	Call() Call
}

// Madvise requests madvise(2).
type Madvise struct {
	Addr   uint64 `cbor:"addr"`
	Len    uint64 `cbor:"len"`
	Advice int32  `cbor:"advice"`
}

// Mmap requests mmap(2).
type Mmap struct {
	Addr  uint64 `cbor:"addr"`
	Len   uint64 `cbor:"len"`
	Prot  int32  `cbor:"prot"`
	Flags int32  `cbor:"flags"`
}

// Mremap requests mremap(2).
type Mremap struct {
	Addr   uint64 `cbor:"addr"`
	Len    uint64 `cbor:"len"`
	NewLen uint64 `cbor:"new_len"`
	Flags  int32  `cbor:"flags"`
}

// Munmap requests munmap(2).
type Munmap struct {
	Addr uint64 `cbor:"addr"`
	Len  uint64 `cbor:"len"`
}

// Mprotect requests mprotect(2).
type Mprotect struct {
	Addr uint64 `cbor:"addr"`
	Len  uint64 `cbor:"len"`
	Prot int32  `cbor:"prot"`
}

// Write requests write(2) of count bytes at guest virtual address addr.
type Write struct {
	FD    int32  `cbor:"fd"`
	Addr  uint64 `cbor:"addr"`
	Count uint64 `cbor:"count"`
}

// Read requests read(2) of up to count bytes into guest virtual address addr.
type Read struct {
	FD    int32  `cbor:"fd"`
	Addr  uint64 `cbor:"addr"`
	Count uint64 `cbor:"count"`
}

func (Madvise) Call() Call  { return CallMadvise }
func (Mmap) Call() Call     { return CallMmap }
func (Mremap) Call() Call   { return CallMremap }
func (Munmap) Call() Call   { return CallMunmap }
func (Mprotect) Call() Call { return CallMprotect }
func (Write) Call() Call    { return CallWrite }
func (Read) Call() Call     { return CallRead }

// requestUnion is the wire form of a [Request].
type requestUnion struct {
	Madvise  *Madvise  `cbor:"Madvise,omitempty"`
	Mmap     *Mmap     `cbor:"Mmap,omitempty"`
	Mremap   *Mremap   `cbor:"Mremap,omitempty"`
	Munmap   *Munmap   `cbor:"Munmap,omitempty"`
	Mprotect *Mprotect `cbor:"Mprotect,omitempty"`
	Write    *Write    `cbor:"Write,omitempty"`
	Read     *Read     `cbor:"Read,omitempty"`
}

// EncodeRequest encodes the request.
func EncodeRequest(req Request) ([]byte, error) {
	var union requestUnion

	switch r := req.(type) {
	case Madvise:
		union.Madvise = &r
	case Mmap:
		union.Mmap = &r
	case Mremap:
		union.Mremap = &r
	case Munmap:
		union.Munmap = &r
	case Mprotect:
		union.Mprotect = &r
	case Write:
		union.Write = &r
	case Read:
		union.Read = &r
	default:
		return nil, fmt.Errorf("%w: request type %T", ErrInvalidUnion, req)
	}

	data, err := encMode.Marshal(union)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", req.Call(), err)
	}

	return data, nil
}

// DecodeRequest decodes a request.
func DecodeRequest(data []byte) (Request, error) {
	var union requestUnion

	err := decMode.Unmarshal(data, &union)
	if err != nil {
		return nil, fmt.Errorf("decode request: %w", err)
	}

	var reqs []Request

	if union.Madvise != nil {
		reqs = append(reqs, *union.Madvise)
	}

	if union.Mmap != nil {
		reqs = append(reqs, *union.Mmap)
	}

	if union.Mremap != nil {
		reqs = append(reqs, *union.Mremap)
	}

	if union.Munmap != nil {
		reqs = append(reqs, *union.Munmap)
	}

	if union.Mprotect != nil {
		reqs = append(reqs, *union.Mprotect)
	}

	if union.Write != nil {
		reqs = append(reqs, *union.Write)
	}

	if union.Read != nil {
		reqs = append(reqs, *union.Read)
	}

	if len(reqs) != 1 {
		return nil, fmt.Errorf("%w: %d request variants", ErrInvalidUnion, len(reqs))
	}

	return reqs[0], nil
}
