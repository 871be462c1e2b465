// Copyright 2025 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package dtype

import (
	"math/bits"

	"github.com/cockroachdb/errors"
)

// PType is the physical type of a fixed-width primitive value.
type PType uint8

const (
	U8 PType = iota
	U16
	U32
	U64
	I8
	I16
	I32
	I64
	F16
	F32
	F64

	numPTypes
)

var ptypeNames = [numPTypes]string{
	U8:  "u8",
	U16: "u16",
	U32: "u32",
	U64: "u64",
	I8:  "i8",
	I16: "i16",
	I32: "i32",
	I64: "i64",
	F16: "f16",
	F32: "f32",
	F64: "f64",
}

var ptypeWidths = [numPTypes]int{
	U8: 1, U16: 2, U32: 4, U64: 8,
	I8: 1, I16: 2, I32: 4, I64: 8,
	F16: 2, F32: 4, F64: 8,
}

// AllPTypes lists every primitive type in declaration order.
var AllPTypes = []PType{U8, U16, U32, U64, I8, I16, I32, I64, F16, F32, F64}

// String returns the short name of the primitive type (e.g. "i32").
func (p PType) String() string {
	if p >= numPTypes {
		return "unknown"
	}
	return ptypeNames[p]
}

// SafeValue implements redact.SafeValue.
func (p PType) SafeValue() {}

// ParsePType parses the short name of a primitive type.
func ParsePType(s string) (PType, error) {
	for i, n := range ptypeNames {
		if n == s {
			return PType(i), nil
		}
	}
	return 0, errors.Newf("unknown primitive type %q", s)
}

// ByteWidth returns the number of bytes used to store one value.
func (p PType) ByteWidth() int { return ptypeWidths[p] }

// BitWidth returns the number of bits used to store one value.
func (p PType) BitWidth() int { return ptypeWidths[p] * 8 }

// IsInt returns true for the signed and unsigned integer types.
func (p PType) IsInt() bool { return p <= I64 }

// IsUnsigned returns true for the unsigned integer types.
func (p PType) IsUnsigned() bool { return p <= U64 }

// IsSigned returns true for the signed integer types.
func (p PType) IsSigned() bool { return p >= I8 && p <= I64 }

// IsFloat returns true for the floating point types.
func (p PType) IsFloat() bool { return p >= F16 && p <= F64 }

// ToUnsigned returns the unsigned integer type of the same width. Floats map to
// the unsigned type holding their bit pattern.
func (p PType) ToUnsigned() PType {
	switch p.ByteWidth() {
	case 1:
		return U8
	case 2:
		return U16
	case 4:
		return U32
	default:
		return U64
	}
}

// ToSigned returns the signed integer type of the same width.
func (p PType) ToSigned() PType {
	switch p.ByteWidth() {
	case 1:
		return I8
	case 2:
		return I16
	case 4:
		return I32
	default:
		return I64
	}
}

// MinUnsignedFor returns the narrowest unsigned type able to hold max.
func MinUnsignedFor(max uint64) PType {
	switch w := bits.Len64(max); {
	case w <= 8:
		return U8
	case w <= 16:
		return U16
	case w <= 32:
		return U32
	default:
		return U64
	}
}
