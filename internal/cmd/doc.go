// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

// Package cmd provides the CLI entry point for vmrun. It handles flag
// parsing, the choice of the hypervisor backend and exit code handling.
package cmd
