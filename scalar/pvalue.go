// Copyright 2025 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package scalar

import (
	"cmp"
	"math"
	"strconv"

	"github.com/apache/arrow-go/v18/arrow/float16"
	"github.com/cockroachdb/colenc/dtype"
	"github.com/cockroachdb/errors"
)

// PValue is a primitive numeric value tagged with its PType.
//
// Integers are held as their 64-bit two's complement representation (signed
// values sign-extended). Floats of every width are held as the bits of the
// equivalent float64, which represents f16 and f32 values exactly.
type PValue struct {
	ptype dtype.PType
	bits  uint64
}

// PValueOf returns the PValue of a native Go value.
func PValueOf[T dtype.Native](v T) PValue {
	p := dtype.PTypeOf[T]()
	switch {
	case p.IsUnsigned():
		return PValue{ptype: p, bits: uint64(v)}
	case p.IsSigned():
		return PValue{ptype: p, bits: uint64(int64(v))}
	default:
		return PValue{ptype: p, bits: math.Float64bits(float64(v))}
	}
}

// PValueF16 returns the PValue of a half precision float.
func PValueF16(v float16.Num) PValue {
	return PValue{ptype: dtype.F16, bits: math.Float64bits(float64(v.Float32()))}
}

// PValueFromBits reinterprets raw little-endian storage bits (as read from a
// primitive buffer, zero-extended to 64 bits) as a value of type p.
func PValueFromBits(p dtype.PType, raw uint64) PValue {
	switch p {
	case dtype.I8:
		return PValue{ptype: p, bits: uint64(int64(int8(raw)))}
	case dtype.I16:
		return PValue{ptype: p, bits: uint64(int64(int16(raw)))}
	case dtype.I32:
		return PValue{ptype: p, bits: uint64(int64(int32(raw)))}
	case dtype.F16:
		return PValueF16(float16.FromBits(uint16(raw)))
	case dtype.F32:
		return PValue{ptype: p, bits: math.Float64bits(float64(math.Float32frombits(uint32(raw))))}
	default:
		return PValue{ptype: p, bits: raw}
	}
}

// PValueInt returns an integer PValue of type p holding v. The value is
// truncated to the width of p.
func PValueInt(p dtype.PType, v int64) PValue {
	return PValueFromBits(p, uint64(v)&widthMask(p))
}

func widthMask(p dtype.PType) uint64 {
	if p.BitWidth() == 64 {
		return math.MaxUint64
	}
	return uint64(1)<<uint(p.BitWidth()) - 1
}

// PType returns the primitive type of the value.
func (p PValue) PType() dtype.PType { return p.ptype }

// StorageBits returns the bit pattern the value has in a primitive buffer of
// its type, zero-extended to 64 bits.
func (p PValue) StorageBits() uint64 {
	switch p.ptype {
	case dtype.F16:
		return uint64(float16.New(float32(math.Float64frombits(p.bits))).Uint16())
	case dtype.F32:
		return uint64(math.Float32bits(float32(math.Float64frombits(p.bits))))
	default:
		return p.bits & widthMask(p.ptype)
	}
}

// Int64 returns the value as an int64. Floats are truncated.
func (p PValue) Int64() int64 {
	switch {
	case p.ptype.IsFloat():
		return int64(math.Float64frombits(p.bits))
	default:
		return int64(p.bits)
	}
}

// Uint64 returns the value as a uint64. Negative integers wrap and floats are
// truncated.
func (p PValue) Uint64() uint64 {
	if p.ptype.IsFloat() {
		return uint64(math.Float64frombits(p.bits))
	}
	return p.bits
}

// Float64 returns the value as a float64.
func (p PValue) Float64() float64 {
	switch {
	case p.ptype.IsUnsigned():
		return float64(p.bits)
	case p.ptype.IsSigned():
		return float64(int64(p.bits))
	default:
		return math.Float64frombits(p.bits)
	}
}

// As converts the value to the native type T with Go conversion semantics.
func As[T dtype.Native](p PValue) T {
	switch {
	case p.ptype.IsUnsigned():
		return T(p.bits)
	case p.ptype.IsSigned():
		return T(int64(p.bits))
	default:
		return T(math.Float64frombits(p.bits))
	}
}

// Equal returns true if both values have the same type and bit pattern. NaNs
// with equal payloads are equal and -0.0 differs from +0.0.
func (p PValue) Equal(o PValue) bool {
	return p.ptype == o.ptype && p.bits == o.bits
}

// Compare orders two values of the same PType. NaN sorts before every other
// float, matching cmp.Compare.
func (p PValue) Compare(o PValue) int {
	switch {
	case p.ptype.IsUnsigned() && o.ptype.IsUnsigned():
		return cmp.Compare(p.bits, o.bits)
	case p.ptype.IsSigned() && o.ptype.IsSigned():
		return cmp.Compare(int64(p.bits), int64(o.bits))
	case p.ptype.IsInt() && o.ptype.IsInt():
		// Mixed signedness: a negative signed value is below every unsigned.
		if p.ptype.IsSigned() {
			if int64(p.bits) < 0 {
				return -1
			}
			return cmp.Compare(p.bits, o.bits)
		}
		if int64(o.bits) < 0 {
			return 1
		}
		return cmp.Compare(p.bits, o.bits)
	default:
		return cmp.Compare(p.Float64(), o.Float64())
	}
}

// IsZero returns true if the value is numerically zero.
func (p PValue) IsZero() bool {
	if p.ptype.IsFloat() {
		return p.Float64() == 0
	}
	return p.bits == 0
}

// Cast converts the value to another primitive type, failing if the value is
// not representable in the target type.
func (p PValue) Cast(to dtype.PType) (PValue, error) {
	if p.ptype == to {
		return p, nil
	}
	switch {
	case to.IsFloat():
		f := p.Float64()
		switch to {
		case dtype.F32:
			f = float64(float32(f))
		case dtype.F16:
			f = float64(float16.New(float32(f)).Float32())
		}
		if p.ptype.IsInt() && to != dtype.F64 && f != p.Float64() {
			return PValue{}, errors.Newf("cannot cast %s to %s without loss", p, to)
		}
		return PValue{ptype: to, bits: math.Float64bits(f)}, nil
	case p.ptype.IsFloat():
		f := math.Float64frombits(p.bits)
		if f != math.Trunc(f) || math.IsNaN(f) || math.IsInf(f, 0) {
			return PValue{}, errors.Newf("cannot cast %s to %s without loss", p, to)
		}
		if to.IsUnsigned() {
			if f < 0 || f > float64(maxUnsigned(to)) {
				return PValue{}, errors.Newf("%s out of range for %s", p, to)
			}
			return PValue{ptype: to, bits: uint64(f)}, nil
		}
		lo, hi := signedRange(to)
		if f < float64(lo) || f > float64(hi) {
			return PValue{}, errors.Newf("%s out of range for %s", p, to)
		}
		return PValue{ptype: to, bits: uint64(int64(f))}, nil
	case to.IsUnsigned():
		if p.ptype.IsSigned() && int64(p.bits) < 0 {
			return PValue{}, errors.Newf("%s out of range for %s", p, to)
		}
		if p.bits > maxUnsigned(to) {
			return PValue{}, errors.Newf("%s out of range for %s", p, to)
		}
		return PValue{ptype: to, bits: p.bits}, nil
	default:
		lo, hi := signedRange(to)
		if p.ptype.IsUnsigned() {
			if p.bits > uint64(hi) {
				return PValue{}, errors.Newf("%s out of range for %s", p, to)
			}
			return PValue{ptype: to, bits: p.bits}, nil
		}
		v := int64(p.bits)
		if v < lo || v > hi {
			return PValue{}, errors.Newf("%s out of range for %s", p, to)
		}
		return PValue{ptype: to, bits: p.bits}, nil
	}
}

func maxUnsigned(p dtype.PType) uint64 { return widthMask(p) }

func signedRange(p dtype.PType) (lo, hi int64) {
	w := uint(p.BitWidth())
	return int64(-1) << (w - 1), int64(1)<<(w-1) - 1
}

// String formats the value in decimal.
func (p PValue) String() string {
	switch {
	case p.ptype.IsUnsigned():
		return strconv.FormatUint(p.bits, 10)
	case p.ptype.IsSigned():
		return strconv.FormatInt(int64(p.bits), 10)
	default:
		bitSize := 64
		if p.ptype != dtype.F64 {
			bitSize = 32
		}
		return strconv.FormatFloat(math.Float64frombits(p.bits), 'g', -1, bitSize)
	}
}
