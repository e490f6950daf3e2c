// SPDX-FileCopyrightText: 2024 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package sys

import (
	"debug/elf"
	"fmt"
)

// ValidateELF validates that ELF attributes match the requested architecture.
func ValidateELF(hdr elf.FileHeader, arch Arch) error {
	switch hdr.OSABI {
	case elf.ELFOSABI_NONE, elf.ELFOSABI_LINUX:
		// supported, pass
	default:
		return fmt.Errorf("%w: %s", ErrOSABINotSupported, hdr.OSABI)
	}

	if hdr.Class != elf.ELFCLASS64 {
		return fmt.Errorf("%w: %s", ErrMachineNotSupported, hdr.Class)
	}

	var archReq Arch

	switch hdr.Machine {
	case elf.EM_X86_64:
		archReq = AMD64
	default:
		return fmt.Errorf("%w: %s", ErrMachineNotSupported, hdr.Machine)
	}

	if archReq != arch {
		return fmt.Errorf(
			"%w: %s on %s",
			ErrMachineNotSupported,
			hdr.Machine,
			arch,
		)
	}

	return nil
}
