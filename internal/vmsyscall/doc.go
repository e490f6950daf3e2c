// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

// Package vmsyscall implements the syscall proxy protocol between a guest and
// the hypervisor.
//
// The guest serializes a [Request] into the shared syscall page and writes the
// length of the encoded request as 2 byte little endian value to the syscall
// trigger port. The host decodes and executes the request, encodes the
// [Reply] into the same page, overwriting the request, and returns the reply
// length on the guest's next read from the trigger port.
//
// Values are encoded as CBOR. Unions are encoded as single entry maps keyed
// by the variant name, unit variants as plain strings:
//
//	{"Madvise": {"addr": 0, "len": 0, "advice": 0}}
//	{"Madvise": {"Err": {"Errno": 38}}}
//	{"Mmap": {"Ok": 140737488355328}}
//	{"Invalid": {"Err": "DeSerializeError"}}
package vmsyscall
