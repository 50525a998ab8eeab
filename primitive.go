package untrusted

import (
	"encoding/binary"
	"math"
)

// Primitive decodes a fixed-width value.
//
// The Reader checks that Width bytes are available before calling Decode, so
// a primitive never sees a short slice and only judges validity.
type Primitive[T any] interface {
	// Width is the number of bytes the value occupies.
	Width() int

	// Name describes the value in errors, e.g. "u24".
	Name() string

	// Decode interprets exactly Width bytes. It reports false when the bytes
	// do not form a valid value.
	Decode(b []byte) (T, bool)
}

// Read consumes a value decoded by p.
func Read[T any](r *Reader, p Primitive[T]) (T, error) {
	var zero T
	n := p.Width()
	if n < 0 || n > r.in.Len() {
		return zero, r.require("read "+p.Name(), n)
	}
	v, ok := p.Decode(r.split(n).Bytes())
	if !ok {
		return zero, r.in.fail(failure{
			kind:     KindValid,
			op:       "read " + p.Name(),
			expected: "valid " + p.Name(),
			span:     Span{Start: r.in.start, Len: n},
		})
	}
	r.advance(n)
	return v, nil
}

// fixed consumes n bytes for a built-in number. name is only used to
// describe a failure.
func (r *Reader) fixed(name string, n int) ([]byte, error) {
	if n > r.in.Len() {
		return nil, r.in.short(name, n)
	}
	b := r.split(n).Bytes()
	r.advance(n)
	return b, nil
}

// ReadU8 consumes one unsigned byte.
func (r *Reader) ReadU8() (uint8, error) {
	b, err := r.fixed("read u8", 1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

// ReadI8 consumes one signed byte.
func (r *Reader) ReadI8() (int8, error) {
	b, err := r.fixed("read i8", 1)
	if err != nil {
		return 0, err
	}
	return int8(b[0]), nil
}

func (r *Reader) ReadU16(order binary.ByteOrder) (uint16, error) {
	b, err := r.fixed("read u16", 2)
	if err != nil {
		return 0, err
	}
	return order.Uint16(b), nil
}

func (r *Reader) ReadU32(order binary.ByteOrder) (uint32, error) {
	b, err := r.fixed("read u32", 4)
	if err != nil {
		return 0, err
	}
	return order.Uint32(b), nil
}

func (r *Reader) ReadU64(order binary.ByteOrder) (uint64, error) {
	b, err := r.fixed("read u64", 8)
	if err != nil {
		return 0, err
	}
	return order.Uint64(b), nil
}

func (r *Reader) ReadI16(order binary.ByteOrder) (int16, error) {
	v, err := r.ReadU16(order)
	return int16(v), err
}

func (r *Reader) ReadI32(order binary.ByteOrder) (int32, error) {
	v, err := r.ReadU32(order)
	return int32(v), err
}

func (r *Reader) ReadI64(order binary.ByteOrder) (int64, error) {
	v, err := r.ReadU64(order)
	return int64(v), err
}

func (r *Reader) ReadF32(order binary.ByteOrder) (float32, error) {
	v, err := r.ReadU32(order)
	return math.Float32frombits(v), err
}

func (r *Reader) ReadF64(order binary.ByteOrder) (float64, error) {
	v, err := r.ReadU64(order)
	return math.Float64frombits(v), err
}

// ReadUvarint consumes an unsigned LEB128 varint.
//
// A varint whose continuation bit runs off the end of a stream-able view is
// Incomplete and needs one more byte. Values that overflow 64 bits are Fatal.
func (r *Reader) ReadUvarint() (uint64, error) {
	b := r.in.Bytes()
	var x uint64
	var s uint
	for i, c := range b {
		if i == binary.MaxVarintLen64 {
			return 0, r.overflow(i)
		}
		if c < 0x80 {
			if i == binary.MaxVarintLen64-1 && c > 1 {
				return 0, r.overflow(i + 1)
			}
			r.advance(i + 1)
			return x | uint64(c)<<s, nil
		}
		x |= uint64(c&0x7f) << s
		s += 7
	}
	if len(b) >= binary.MaxVarintLen64 {
		return 0, r.overflow(binary.MaxVarintLen64)
	}

	f := failure{
		kind:     KindLength,
		op:       "read uvarint",
		expected: "varint terminator",
		span:     r.in.Span(),
		length:   Length{Min: len(b) + 1, Max: binary.MaxVarintLen64},
	}
	if !r.in.bound {
		f.retry = 1
	}
	return 0, r.in.fail(f)
}

func (r *Reader) overflow(n int) error {
	return r.in.fail(failure{
		kind:     KindValid,
		op:       "read uvarint",
		expected: "valid uvarint",
		span:     Span{Start: r.in.start, Len: n},
	})
}
