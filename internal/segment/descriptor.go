// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package segment

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/aibor/vmrun/internal/kvm"
)

// Segment types.
const (
	TypeCode    = 0x08 | 0x02 | 0x01 // execute, readable, accessed
	TypeData    = 0x02 | 0x01        // writable, accessed
	TypeTSSBusy = 0x0b
)

const descriptorSize = 8

var (
	// ErrNullSelector is returned if a segment uses the null selector.
	ErrNullSelector = errors.New("null selector")

	// ErrSelectorCollision is returned if two segments use the same GDT slot.
	ErrSelectorCollision = errors.New("colliding selectors")
)

// Code returns a flat 64-bit code segment.
func Code(selector uint16, dpl uint8) kvm.Segment {
	return kvm.Segment{
		Limit:    0xffffffff,
		Selector: selector | uint16(dpl),
		Type:     TypeCode,
		Present:  1,
		DPL:      dpl,
		S:        1,
		L:        1,
		G:        1,
	}
}

// Data returns a flat data segment.
func Data(selector uint16, dpl uint8) kvm.Segment {
	return kvm.Segment{
		Limit:    0xffffffff,
		Selector: selector | uint16(dpl),
		Type:     TypeData,
		Present:  1,
		DPL:      dpl,
		S:        1,
		G:        1,
	}
}

// TSS returns a 64-bit task state segment.
func TSS(selector uint16, base uint64, limit uint32) kvm.Segment {
	return kvm.Segment{
		Base:     base,
		Limit:    limit,
		Selector: selector,
		Type:     TypeTSSBusy,
		Present:  1,
	}
}

// Unusable returns a segment marked unusable.
func Unusable() kvm.Segment {
	return kvm.Segment{Unusable: 1}
}

// Descriptor encodes the segment into its descriptor words. System segments
// (S == 0) occupy two words, all others one.
func Descriptor(seg kvm.Segment) []uint64 {
	limit := seg.Limit
	if seg.G != 0 {
		limit >>= 12
	}

	desc := uint64(limit & 0xffff)
	desc |= (seg.Base & 0xffff) << 16
	desc |= (seg.Base >> 16 & 0xff) << 32
	desc |= uint64(seg.Type&0xf) << 40
	desc |= uint64(seg.S&1) << 44
	desc |= uint64(seg.DPL&3) << 45
	desc |= uint64(seg.Present&1) << 47
	desc |= uint64(limit>>16&0xf) << 48
	desc |= uint64(seg.Avl&1) << 52
	desc |= uint64(seg.L&1) << 53
	desc |= uint64(seg.DB&1) << 54
	desc |= uint64(seg.G&1) << 55
	desc |= (seg.Base >> 24 & 0xff) << 56

	if seg.S != 0 {
		return []uint64{desc}
	}

	return []uint64{desc, seg.Base >> 32}
}

// Decode decodes descriptor words into a segment. The selector is not part of
// a descriptor and stays zero. high is only used for system segments.
//
// With page granularity the limit is returned in bytes, as KVM expects it.
func Decode(low, high uint64) kvm.Segment {
	seg := kvm.Segment{
		Base:    low>>16&0xffff | (low>>32&0xff)<<16 | (low>>56&0xff)<<24,
		Limit:   uint32(low&0xffff | (low>>48&0xf)<<16),
		Type:    uint8(low >> 40 & 0xf),
		S:       uint8(low >> 44 & 1),
		DPL:     uint8(low >> 45 & 3),
		Present: uint8(low >> 47 & 1),
		Avl:     uint8(low >> 52 & 1),
		L:       uint8(low >> 53 & 1),
		DB:      uint8(low >> 54 & 1),
		G:       uint8(low >> 55 & 1),
	}

	if seg.G != 0 {
		seg.Limit = seg.Limit<<12 | 0xfff
	}

	if seg.S == 0 {
		seg.Base |= (high & 0xffffffff) << 32
	}

	return seg
}

// EncodeGDT encodes the given segments into a descriptor table. Each segment
// is placed at the slot its selector refers to. Slot 0 is the null
// descriptor.
func EncodeGDT(segments ...kvm.Segment) ([]byte, error) {
	words := []uint64{0}
	used := []bool{true}

	for _, seg := range segments {
		idx := int(seg.Selector >> 3)
		if idx == 0 {
			return nil, fmt.Errorf("%w: %#x", ErrNullSelector, seg.Selector)
		}

		desc := Descriptor(seg)
		for len(words) < idx+len(desc) {
			words = append(words, 0)
			used = append(used, false)
		}

		for i, w := range desc {
			if used[idx+i] {
				return nil, fmt.Errorf("%w: %#x", ErrSelectorCollision, seg.Selector)
			}

			words[idx+i] = w
			used[idx+i] = true
		}
	}

	gdt := make([]byte, 0, len(words)*descriptorSize)
	for _, w := range words {
		gdt = binary.LittleEndian.AppendUint64(gdt, w)
	}

	return gdt, nil
}
