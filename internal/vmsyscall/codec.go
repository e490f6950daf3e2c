// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package vmsyscall

import (
	"errors"

	"github.com/fxamacker/cbor/v2"
)

// PageSize is the size of the shared syscall page.
const PageSize = 4096

var (
	// ErrInvalidUnion is returned if an encoded union does not have exactly
	// one variant set.
	ErrInvalidUnion = errors.New("invalid union encoding")

	// ErrTooLarge is returned if an encoded value does not fit into the
	// syscall page.
	ErrTooLarge = errors.New("encoded value exceeds syscall page")
)

var (
	encMode = mustEncMode()
	decMode = mustDecMode()
)

func mustEncMode() cbor.EncMode {
	mode, err := cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic(err)
	}

	return mode
}

func mustDecMode() cbor.DecMode {
	mode, err := cbor.DecOptions{
		DupMapKey:         cbor.DupMapKeyEnforcedAPF,
		ExtraReturnErrors: cbor.ExtraDecErrorUnknownField,
		MaxNestedLevels:   8,
	}.DecMode()
	if err != nil {
		panic(err)
	}

	return mode
}
