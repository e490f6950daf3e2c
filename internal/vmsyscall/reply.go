// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package vmsyscall

import (
	"fmt"
)

// ErrorKind distinguishes errors reported by the host for an executed request
// from failures of the protocol itself.
type ErrorKind uint8

// Error kinds.
const (
	KindErrno ErrorKind = iota
	KindSerialize
	KindDeSerialize
)

const (
	serializeErrorName   = "SerializeError"
	deSerializeErrorName = "DeSerializeError"
)

// Error is the error of a [Result].
type Error struct {
	Kind  ErrorKind
	Errno int32
}

// Errno returns an [Error] for the given error number.
func Errno(errno int32) Error {
	return Error{Kind: KindErrno, Errno: errno}
}

// Protocol errors.
var (
	SerializeError   = Error{Kind: KindSerialize}   //nolint:errname
	DeSerializeError = Error{Kind: KindDeSerialize} //nolint:errname
)

// Error implements the [error] interface.
func (e Error) Error() string {
	switch e.Kind {
	case KindErrno:
		return fmt.Sprintf("errno %d", e.Errno)
	case KindSerialize:
		return "serialize error"
	default:
		return "deserialize error"
	}
}

// IsProtocolError returns true if the error is caused by the protocol rather
// than by the executed syscall.
func (e Error) IsProtocolError() bool {
	return e.Kind != KindErrno
}

type errnoUnion struct {
	Errno *int32 `cbor:"Errno"`
}

// MarshalCBOR implements [cbor.Marshaler].
func (e Error) MarshalCBOR() ([]byte, error) {
	switch e.Kind {
	case KindErrno:
		return encMode.Marshal(errnoUnion{Errno: &e.Errno}) //nolint:wrapcheck
	case KindSerialize:
		return encMode.Marshal(serializeErrorName) //nolint:wrapcheck
	case KindDeSerialize:
		return encMode.Marshal(deSerializeErrorName) //nolint:wrapcheck
	default:
		return nil, fmt.Errorf("%w: error kind %d", ErrInvalidUnion, e.Kind)
	}
}

// UnmarshalCBOR implements [cbor.Unmarshaler].
func (e *Error) UnmarshalCBOR(data []byte) error {
	var name string
	if err := decMode.Unmarshal(data, &name); err == nil {
		switch name {
		case serializeErrorName:
			*e = SerializeError
		case deSerializeErrorName:
			*e = DeSerializeError
		default:
			return fmt.Errorf("%w: error variant %q", ErrInvalidUnion, name)
		}

		return nil
	}

	var union errnoUnion
	if err := decMode.Unmarshal(data, &union); err != nil {
		return fmt.Errorf("decode error: %w", err)
	}

	if union.Errno == nil {
		return fmt.Errorf("%w: no error variant", ErrInvalidUnion)
	}

	*e = Errno(*union.Errno)

	return nil
}

// Result is either a value or an [Error].
type Result struct {
	Value uint64
	Err   *Error
}

// Ok returns a successful [Result].
func Ok(value uint64) Result {
	return Result{Value: value}
}

// Err returns a failed [Result].
func Err(err Error) Result {
	return Result{Err: &err}
}

// Int64 returns the result the way a syscall returns it: the value or the
// negated error number. Protocol errors are returned as -EIO.
func (r Result) Int64() int64 {
	switch {
	case r.Err == nil:
		return int64(r.Value)
	case r.Err.IsProtocolError():
		return -EIO
	default:
		return -int64(r.Err.Errno)
	}
}

type resultUnion struct {
	Ok  *uint64 `cbor:"Ok,omitempty"`
	Err *Error  `cbor:"Err,omitempty"`
}

// MarshalCBOR implements [cbor.Marshaler].
func (r Result) MarshalCBOR() ([]byte, error) {
	union := resultUnion{Err: r.Err}
	if r.Err == nil {
		union.Ok = &r.Value
	}

	return encMode.Marshal(union) //nolint:wrapcheck
}

// UnmarshalCBOR implements [cbor.Unmarshaler].
func (r *Result) UnmarshalCBOR(data []byte) error {
	var union resultUnion
	if err := decMode.Unmarshal(data, &union); err != nil {
		return fmt.Errorf("decode result: %w", err)
	}

	switch {
	case union.Ok != nil && union.Err == nil:
		*r = Ok(*union.Ok)
	case union.Ok == nil && union.Err != nil:
		*r = Err(*union.Err)
	default:
		return fmt.Errorf("%w: result", ErrInvalidUnion)
	}

	return nil
}

// Reply is the host's answer to a [Request].
type Reply struct {
	Call   Call
	Result Result
}

// MarshalCBOR implements [cbor.Marshaler].
func (r Reply) MarshalCBOR() ([]byte, error) {
	return encMode.Marshal(map[Call]Result{r.Call: r.Result}) //nolint:wrapcheck
}

// UnmarshalCBOR implements [cbor.Unmarshaler].
func (r *Reply) UnmarshalCBOR(data []byte) error {
	var union map[Call]Result
	if err := decMode.Unmarshal(data, &union); err != nil {
		return fmt.Errorf("decode reply: %w", err)
	}

	if len(union) != 1 {
		return fmt.Errorf("%w: %d reply variants", ErrInvalidUnion, len(union))
	}

	for call, result := range union {
		r.Call = call
		r.Result = result
	}

	return nil
}

// EncodeReply encodes the reply.
func EncodeReply(reply Reply) ([]byte, error) {
	data, err := encMode.Marshal(reply)
	if err != nil {
		return nil, fmt.Errorf("encode reply: %w", err)
	}

	return data, nil
}

// DecodeReply decodes a reply.
func DecodeReply(data []byte) (Reply, error) {
	var reply Reply

	err := decMode.Unmarshal(data, &reply)
	if err != nil {
		return Reply{}, err //nolint:wrapcheck
	}

	return reply, nil
}
