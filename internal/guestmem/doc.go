// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

// Package guestmem binds guest physical address ranges to host memory and
// translates between both address spaces.
package guestmem
