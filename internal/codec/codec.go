// Package codec binds user value types to the byte records stored in a queue.
//
// A Codec is stateless. The structural default is MessagePack; a type that
// implements encoding.BinaryMarshaler and encoding.BinaryUnmarshaler on its
// pointer opts into its own binary form instead (see Default).
package codec

import (
	"bytes"
	"encoding"
	"errors"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

var (
	// ErrEncode is returned when a value cannot be converted to bytes.
	ErrEncode = errors.New("codec: encode failed")

	// ErrDecode is returned when bytes cannot be converted back to a value.
	ErrDecode = errors.New("codec: decode failed")
)

// Codec converts values of type T to and from byte records.
// Decode must not panic on arbitrary input.
type Codec[T any] interface {
	Encode(v T) ([]byte, error)
	Decode(data []byte) (T, error)
}

// Default returns the Binary codec when *T implements the binary marshaling
// interfaces and the Msgpack codec otherwise.
func Default[T any]() Codec[T] {
	var zero T
	if _, ok := any(&zero).(binaryValue); ok {
		return binaryCodec[T]{}
	}
	return Msgpack[T]()
}

// Name returns a short description of c for logs.
func Name[T any](c Codec[T]) string {
	switch any(c).(type) {
	case msgpackCodec[T]:
		return "msgpack"
	case binaryCodec[T]:
		return "binary"
	case rawCodec:
		return "raw"
	default:
		return fmt.Sprintf("%T", c)
	}
}

// Msgpack returns a codec that encodes values structurally with MessagePack.
// Struct fields honor `msgpack` tags.
//
// Decoding is strict: a map key with no matching struct field, or bytes left
// over after one value, is a decode error. Records written for a different
// type fail instead of decoding as zero values.
func Msgpack[T any]() Codec[T] {
	return msgpackCodec[T]{}
}

type msgpackCodec[T any] struct{}

func (msgpackCodec[T]) Encode(v T) ([]byte, error) {
	data, err := msgpack.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEncode, err)
	}
	return data, nil
}

func (msgpackCodec[T]) Decode(data []byte) (v T, err error) {
	// The decoder reports malformed input as errors, but a hostile record can
	// still trip a panic inside a user type's custom decoder.
	defer func() {
		if r := recover(); r != nil {
			var zero T
			v, err = zero, fmt.Errorf("%w: %v", ErrDecode, r)
		}
	}()

	r := bytes.NewReader(data)
	dec := msgpack.NewDecoder(r)
	dec.DisallowUnknownFields(true)
	if err := dec.Decode(&v); err != nil {
		var zero T
		return zero, fmt.Errorf("%w: %w", ErrDecode, err)
	}
	if r.Len() != 0 {
		var zero T
		return zero, fmt.Errorf("%w: %d trailing bytes", ErrDecode, r.Len())
	}
	return v, nil
}

// BinaryValue is the capability a type declares to use its own encoding.
type BinaryValue[T any] interface {
	*T
	encoding.BinaryMarshaler
	encoding.BinaryUnmarshaler
}

type binaryValue interface {
	encoding.BinaryMarshaler
	encoding.BinaryUnmarshaler
}

// Binary returns a codec that delegates to the type's own MarshalBinary and
// UnmarshalBinary methods.
func Binary[T any, PT BinaryValue[T]]() Codec[T] {
	return binaryCodec[T]{}
}

type binaryCodec[T any] struct{}

func (binaryCodec[T]) Encode(v T) ([]byte, error) {
	m, ok := any(&v).(encoding.BinaryMarshaler)
	if !ok {
		return nil, fmt.Errorf("%w: %T does not implement encoding.BinaryMarshaler", ErrEncode, v)
	}
	data, err := m.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEncode, err)
	}
	return data, nil
}

func (binaryCodec[T]) Decode(data []byte) (v T, err error) {
	defer func() {
		if r := recover(); r != nil {
			var zero T
			v, err = zero, fmt.Errorf("%w: %v", ErrDecode, r)
		}
	}()

	u, ok := any(&v).(encoding.BinaryUnmarshaler)
	if !ok {
		return v, fmt.Errorf("%w: %T does not implement encoding.BinaryUnmarshaler", ErrDecode, v)
	}
	if err := u.UnmarshalBinary(data); err != nil {
		var zero T
		return zero, fmt.Errorf("%w: %w", ErrDecode, err)
	}
	return v, nil
}

// Raw returns the identity codec over byte slices.
func Raw() Codec[[]byte] {
	return rawCodec{}
}

type rawCodec struct{}

func (rawCodec) Encode(v []byte) ([]byte, error) {
	return v, nil
}

func (rawCodec) Decode(data []byte) ([]byte, error) {
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}
