// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package vmsyscall

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/aibor/vmrun/internal/bootinfo"
	"github.com/aibor/vmrun/internal/memmap"
)

// File descriptors the host serves for the guest.
const (
	Stdin  = 0
	Stdout = 1
	Stderr = 2
)

// Memory provides access to guest physical memory.
type Memory interface {
	Slice(gpa, size uint64) ([]byte, error)
	Zero(gpa, size uint64) error
}

// Translator translates guest virtual addresses into guest physical addresses.
type Translator interface {
	Translate(virt uint64) (uint64, error)
}

// Handler is the host side of the syscall proxy. It executes requests against
// the guest's memory and the host's standard I/O.
type Handler struct {
	Mem        Memory
	Map        *memmap.Map
	Translator Translator
	Stdin      io.Reader
	Stdout     io.Writer
	Stderr     io.Writer
}

// HandlePage decodes the request of reqLen bytes from the shared page,
// executes it and writes the encoded reply back into the page. It returns the
// length of the reply.
func (h *Handler) HandlePage(page []byte, reqLen int) int {
	var reply Reply

	if reqLen > len(page) {
		slog.Debug("Syscall request exceeds page", slog.Int("length", reqLen))

		reply = Reply{Call: CallInvalid, Result: Err(DeSerializeError)}
	} else {
		reply = h.Handle(page[:reqLen])
	}

	data, err := EncodeReply(reply)
	if err == nil && len(data) > len(page) {
		err = fmt.Errorf("%w: %d bytes", ErrTooLarge, len(data))
	}

	if err != nil {
		slog.Debug("Encode syscall reply", slog.Any("error", err))

		data, err = EncodeReply(Reply{Call: reply.Call, Result: Err(SerializeError)})
		if err != nil {
			// Encoding of fixed values does not fail.
			panic(err)
		}
	}

	clear(page)
	copy(page, data)

	return len(data)
}

// Handle decodes and executes a single raw request.
func (h *Handler) Handle(raw []byte) Reply {
	req, err := DecodeRequest(raw)
	if err != nil {
		slog.Debug("Decode syscall request", slog.Any("error", err))

		return Reply{Call: CallInvalid, Result: Err(DeSerializeError)}
	}

	result := h.execute(req)

	slog.Debug("Syscall",
		slog.String("call", string(req.Call())),
		slog.Any("request", req),
		slog.Int64("result", result.Int64()),
	)

	return Reply{Call: req.Call(), Result: result}
}

func (h *Handler) execute(req Request) Result {
	switch r := req.(type) {
	case Mmap:
		return h.mmap(r)
	case Write:
		return h.write(r)
	case Read:
		return h.read(r)
	default:
		return Err(Errno(ENOSYS))
	}
}

func (h *Handler) mmap(req Mmap) Result {
	if req.Len == 0 {
		return Err(Errno(EINVAL))
	}

	frames, err := h.Map.AllocateFrames(memmap.FramesFor(req.Len), memmap.App)
	if err != nil {
		if !errors.Is(err, memmap.ErrNoSpace) {
			slog.Debug("Allocate frames", slog.Any("error", err))
		}

		return Err(Errno(ENOMEM))
	}

	err = h.Mem.Zero(frames.StartAddr(), frames.Len()*memmap.FrameSize)
	if err != nil {
		return Err(Errno(EFAULT))
	}

	return Ok(frames.StartAddr() + bootinfo.PhysicalMemoryOffset)
}

func (h *Handler) write(req Write) Result {
	var out io.Writer

	switch req.FD {
	case Stdout:
		out = h.Stdout
	case Stderr:
		out = h.Stderr
	default:
		return Err(Errno(EBADF))
	}

	var written uint64

	err := h.forEachChunk(req.Addr, req.Count, func(chunk []byte) (bool, error) {
		n, err := out.Write(chunk)
		written += uint64(n)

		return true, err
	})
	if err != nil {
		return h.ioError(err, written)
	}

	return Ok(written)
}

func (h *Handler) read(req Read) Result {
	if req.FD != Stdin {
		return Err(Errno(EBADF))
	}

	var read uint64

	err := h.forEachChunk(req.Addr, req.Count, func(chunk []byte) (bool, error) {
		n, err := h.Stdin.Read(chunk)
		read += uint64(n)

		if errors.Is(err, io.EOF) {
			return false, nil
		}

		return n == len(chunk), err
	})
	if err != nil {
		return h.ioError(err, read)
	}

	return Ok(read)
}

func (h *Handler) ioError(err error, done uint64) Result {
	slog.Debug("Syscall I/O", slog.Any("error", err))

	var fault *faultError
	if errors.As(err, &fault) {
		if done > 0 {
			return Ok(done)
		}

		return Err(Errno(EFAULT))
	}

	return Err(Errno(EIO))
}

type faultError struct {
	addr uint64
	err  error
}

func (e *faultError) Error() string {
	return fmt.Sprintf("guest address %#x: %v", e.addr, e.err)
}

func (e *faultError) Unwrap() error {
	return e.err
}

// forEachChunk calls fn with the host memory backing the guest virtual range
// page by page until fn returns false or an error.
func (h *Handler) forEachChunk(
	addr, count uint64,
	fn func(chunk []byte) (bool, error),
) error {
	for count > 0 {
		size := min(count, PageSize-addr%PageSize)

		gpa, err := h.Translator.Translate(addr)
		if err != nil {
			return &faultError{addr, err}
		}

		chunk, err := h.Mem.Slice(gpa, size)
		if err != nil {
			return &faultError{addr, err}
		}

		next, err := fn(chunk)
		if err != nil || !next {
			return err
		}

		addr += size
		count -= size
	}

	return nil
}
