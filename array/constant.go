// Copyright 2025 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package array

import (
	"github.com/apache/arrow-go/v18/arrow/bitutil"
	"github.com/cockroachdb/colenc/dtype"
	"github.com/cockroachdb/colenc/internal/metabuf"
	"github.com/cockroachdb/colenc/scalar"
	"github.com/cockroachdb/errors"
)

// ConstantID identifies the constant encoding: a single scalar, held in
// metadata, repeated for the array's length.
const ConstantID EncodingID = "colenc.constant"

type constantEncoding struct{}

// ConstantEncoding is the constant encoding.
var ConstantEncoding Encoding = constantEncoding{}

func init() { Register(ConstantEncoding) }

// NewConstant returns an array of n copies of s.
func NewConstant(s scalar.Scalar, n int) *Array {
	a := New(ConstantEncoding, s.DType(), n, s, nil, nil)
	return a
}

// ConstantScalar returns the scalar of a constant array.
func ConstantScalar(a *Array) scalar.Scalar {
	mustBeOfEncoding(a, ConstantID)
	return a.md.(scalar.Scalar)
}

func (constantEncoding) ID() EncodingID { return ConstantID }

func (constantEncoding) Canonicalize(a *Array) (*Array, error) {
	return repeatScalar(a.md.(scalar.Scalar), a.length)
}

func (constantEncoding) MarshalMetadata(a *Array) []byte {
	var w metabuf.Writer
	scalar.Write(&w, a.md.(scalar.Scalar))
	return w.Finish()
}

func (constantEncoding) Build(p Parts) (*Array, error) {
	if len(p.Buffers) != 0 || len(p.Children) != 0 {
		return nil, InvalidArgumentf("constant array with %d buffers and %d children",
			errors.Safe(len(p.Buffers)), errors.Safe(len(p.Children)))
	}
	s, err := scalar.Unmarshal(p.DType, p.Metadata)
	if err != nil {
		return nil, errors.Mark(err, ErrInvalidArgument)
	}
	if s.IsNull() && !p.DType.IsNullable() {
		return nil, InvalidArgumentf("null constant of non-nullable %s", p.DType)
	}
	return NewConstant(s.WithNullability(p.DType.Nullability()), p.Len), nil
}

func (constantEncoding) NBytes(a *Array) int { return a.md.(scalar.Scalar).NBytes() }

func (constantEncoding) ScalarAt(a *Array, _ int) (scalar.Scalar, error) {
	return a.md.(scalar.Scalar), nil
}

func (constantEncoding) Slice(a *Array, start, stop int) (*Array, error) {
	return NewConstant(a.md.(scalar.Scalar), stop-start), nil
}

func (constantEncoding) Take(a *Array, indices *Array) (*Array, error) {
	s := a.md.(scalar.Scalar)
	if !indices.DType().IsNullable() {
		return NewConstant(s, indices.Len()), nil
	}
	iv := canonicalValidity(indices)
	switch {
	case iv.kind == AllValid:
		return NewConstant(s.WithNullability(dtype.Nullable), indices.Len()), nil
	case iv.kind == AllInvalid || s.IsNull():
		return NewConstant(scalar.Null(s.DType()), indices.Len()), nil
	}
	// Mixed validity: materialize and take.
	c, err := repeatScalar(s, a.length)
	if err != nil {
		return nil, err
	}
	return Take(c, indices)
}

func (constantEncoding) Filter(a *Array, mask *Array) (*Array, error) {
	return NewConstant(a.md.(scalar.Scalar), trueCountOf(mask)), nil
}

func (constantEncoding) CompareScalar(a *Array, s scalar.Scalar, op Operator) (*Array, error) {
	c := a.md.(scalar.Scalar)
	dt := compareResultDType(a.dtype, s)
	if c.IsNull() || s.IsNull() {
		return NewConstant(scalar.Null(dt), a.length), nil
	}
	r, err := c.Compare(s)
	if err != nil {
		return nil, err
	}
	return NewConstant(scalar.Bool(op.Eval(r), dt.Nullability()), a.length), nil
}

func (constantEncoding) SearchSorted(a *Array, v scalar.Scalar, side SearchSide) (int, error) {
	c := a.md.(scalar.Scalar)
	r, err := c.Compare(v)
	if err != nil {
		return 0, err
	}
	switch {
	case r < 0:
		return a.length, nil
	case r > 0:
		return 0, nil
	case side == SearchLeft:
		return 0, nil
	default:
		return a.length, nil
	}
}

func (constantEncoding) IsValid(a *Array, _ int) bool {
	return !a.md.(scalar.Scalar).IsNull()
}

func (constantEncoding) LogicalValidity(a *Array) (Validity, error) {
	s := a.md.(scalar.Scalar)
	switch {
	case !a.dtype.IsNullable():
		return ValidityNonNullable(), nil
	case s.IsNull():
		return ValidityAllInvalid(), nil
	default:
		return ValidityAllValid(), nil
	}
}

func (constantEncoding) ComputeStat(a *Array, st Stat) (scalar.Scalar, bool) {
	s := a.md.(scalar.Scalar)
	n := a.length
	switch st {
	case StatIsConstant, StatIsSorted:
		return BoolScalar(true), true
	case StatIsStrictSorted:
		return BoolScalar(n <= 1), true
	case StatRunCount:
		return CountScalar(min(n, 1)), true
	case StatNullCount:
		if s.IsNull() {
			return CountScalar(n), true
		}
		return CountScalar(0), true
	case StatMin, StatMax:
		if s.IsNull() || n == 0 {
			return scalar.Scalar{}, false
		}
		return s, true
	case StatTrueCount:
		if b, ok := s.AsBool(); ok && b {
			return CountScalar(n), true
		}
		if s.DType().IsBool() {
			return CountScalar(0), true
		}
	}
	return scalar.Scalar{}, false
}

// repeatScalar returns a canonical array of n copies of s.
func repeatScalar(s scalar.Scalar, n int) (*Array, error) {
	dt := s.DType()
	v := ValidityFor(dt.Nullability())
	if s.IsNull() {
		v = ValidityAllInvalid()
	}
	switch dt.Kind() {
	case dtype.KindNull:
		return NewNull(n), nil
	case dtype.KindBool:
		buf := make([]byte, bitutil.BytesForBits(int64(n)))
		if b, _ := s.AsBool(); b {
			for i := 0; i < n; i++ {
				bitutil.SetBit(buf, i)
			}
		}
		return newBoolArray(NewBuffer(buf), 0, n, v), nil
	case dtype.KindPrimitive:
		var raw uint64
		if p, ok := s.AsPValue(); ok {
			raw = p.StorageBits()
		}
		return newPrimitiveArray(dt.PType(), repeatRaw(raw, dt.PType().ByteWidth(), n), n, v), nil
	case dtype.KindUtf8, dtype.KindBinary:
		val, _ := s.AsBytes()
		b := NewVarBinBuilder(dt, n)
		for i := 0; i < n; i++ {
			if s.IsNull() {
				b.AppendNull()
			} else {
				b.Append(val)
			}
		}
		return b.Finish(), nil
	case dtype.KindStruct:
		fields := make([]*Array, dt.NumFields())
		for i := range fields {
			fs := s.Field(i)
			if fs.IsNull() && !dt.Field(i).IsNullable() {
				fs = ZeroScalar(dt.Field(i))
			}
			fs = coerceNullability(fs, dt.Field(i).Nullability())
			f, err := repeatScalar(fs, n)
			if err != nil {
				return nil, err
			}
			fields[i] = f
		}
		return newStructArray(dt, fields, n, v), nil
	case dtype.KindExtension:
		st, err := repeatScalar(coerceNullability(s.Storage(), dt.Nullability()), n)
		if err != nil {
			return nil, err
		}
		return NewExtension(dt, st)
	}
	return nil, Unsupportedf("cannot materialize %s arrays", dt)
}

func repeatRaw(raw uint64, width, n int) Buffer {
	switch width {
	case 1:
		out := make([]uint8, n)
		for i := range out {
			out[i] = uint8(raw)
		}
		return WrapValues(out)
	case 2:
		out := make([]uint16, n)
		for i := range out {
			out[i] = uint16(raw)
		}
		return WrapValues(out)
	case 4:
		out := make([]uint32, n)
		for i := range out {
			out[i] = uint32(raw)
		}
		return WrapValues(out)
	default:
		out := make([]uint64, n)
		for i := range out {
			out[i] = raw
		}
		return WrapValues(out)
	}
}

// coerceNullability returns s with DType nullability n. Null scalars are
// returned unchanged.
func coerceNullability(s scalar.Scalar, n dtype.Nullability) scalar.Scalar {
	if s.IsNull() {
		return s
	}
	return s.WithNullability(n)
}
