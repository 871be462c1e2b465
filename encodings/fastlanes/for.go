// Copyright 2025 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package fastlanes

import (
	"github.com/cockroachdb/colenc/array"
	"github.com/cockroachdb/colenc/dtype"
	"github.com/cockroachdb/colenc/internal/metabuf"
	"github.com/cockroachdb/colenc/scalar"
	"github.com/cockroachdb/errors"
)

// FoRID identifies the frame-of-reference encoding. Element i decodes as
// reference + encoded[i]<<shift in the wrapping arithmetic of the array's
// type, where encoded is an unsigned child of the same width.
const FoRID array.EncodingID = "fastlanes.for"

type forMeta struct {
	reference scalar.Scalar
	shift     uint8
}

type forEncoding struct{}

// FoREncoding is the frame-of-reference encoding.
var FoREncoding array.Encoding = forEncoding{}

func init() { array.Register(FoREncoding) }

// NewFoR returns a frame-of-reference array over encoded. The reference must
// be a non-null integer scalar; the array has its type and the nullability of
// encoded, which must be unsigned of the same width. Decoded values must not
// wrap around for statistics derived from the child to hold.
func NewFoR(encoded *array.Array, reference scalar.Scalar, shift uint8) (*array.Array, error) {
	if reference.IsNull() || !reference.DType().IsInt() {
		return nil, array.InvalidArgumentf("frame-of-reference reference must be a non-null integer, got %s",
			reference.DType())
	}
	p := reference.DType().PType()
	if !encoded.DType().IsUnsignedInt() || encoded.DType().PType() != p.ToUnsigned() {
		return nil, array.TypeMismatchf("frame-of-reference child %s for reference %s", encoded.DType(), p)
	}
	if int(shift) >= p.BitWidth() {
		return nil, array.InvalidArgumentf("shift %d out of range for %s", errors.Safe(shift), p)
	}
	return newFoR(encoded, reference.WithNullability(dtype.NonNullable), shift), nil
}

func newFoR(encoded *array.Array, reference scalar.Scalar, shift uint8) *array.Array {
	dt := dtype.Primitive(reference.DType().PType(), encoded.DType().Nullability())
	return array.New(FoREncoding, dt, encoded.Len(), forMeta{reference: reference, shift: shift},
		nil, []*array.Array{encoded})
}

// Encoded returns the unsigned child of a frame-of-reference array.
func Encoded(a *array.Array) *array.Array { return a.Child(0) }

// Reference returns the reference value of a frame-of-reference array.
func Reference(a *array.Array) scalar.Scalar { return a.Meta().(forMeta).reference }

// Shift returns the shift of a frame-of-reference array.
func Shift(a *array.Array) uint8 { return a.Meta().(forMeta).shift }

// FoR encodes an integer array relative to its minimum. The shift is the
// number of trailing zero bits common to every value.
func FoR(a *array.Array) (*array.Array, error) {
	if !a.DType().IsInt() {
		return nil, array.TypeMismatchf("cannot frame-of-reference encode %s", a.DType())
	}
	c, err := array.Canonicalize(a)
	if err != nil {
		return nil, err
	}
	p := a.DType().PType()
	ref := scalar.Primitive(scalar.PValueFromBits(p, 0), dtype.NonNullable)
	if mn, ok := c.Statistics().Compute(array.StatMin); ok {
		ref = mn.WithNullability(dtype.NonNullable)
	}
	var shift uint8
	if tz, ok := c.Statistics().ComputeFreq(array.StatTrailingZeroFreq); ok {
		for k, f := range tz {
			if f > 0 {
				shift = uint8(k)
				break
			}
		}
	}
	if int(shift) >= p.BitWidth() {
		shift = 0
	}
	pv, _ := ref.AsPValue()
	base := pv.StorageBits()
	mask := widthMask(p)
	v := array.PrimitiveValidity(c)
	raw := array.RawValues(c)
	for i, x := range raw {
		if v.IsValid(i) {
			raw[i] = ((x - base) & mask) >> shift
		} else {
			raw[i] = 0
		}
	}
	return newFoR(array.PrimitiveFromRaw(p.ToUnsigned(), raw, v), ref, shift), nil
}

func widthMask(p dtype.PType) uint64 {
	if p.BitWidth() == 64 {
		return ^uint64(0)
	}
	return 1<<uint(p.BitWidth()) - 1
}

func (m forMeta) decode(enc uint64) uint64 {
	pv, _ := m.reference.AsPValue()
	return ((enc << m.shift) + pv.StorageBits()) & widthMask(pv.PType())
}

func (m forMeta) decodeScalar(enc scalar.Scalar, dt dtype.DType) scalar.Scalar {
	pv, ok := enc.AsPValue()
	if !ok {
		return scalar.Null(dt)
	}
	return scalar.Primitive(scalar.PValueFromBits(dt.PType(), m.decode(pv.StorageBits())), dt.Nullability())
}

func (forEncoding) ID() array.EncodingID { return FoRID }

func (forEncoding) Canonicalize(a *array.Array) (*array.Array, error) {
	m := a.Meta().(forMeta)
	c, err := array.Canonicalize(Encoded(a))
	if err != nil {
		return nil, err
	}
	raw := array.RawValues(c)
	for i, x := range raw {
		raw[i] = m.decode(x)
	}
	return array.PrimitiveFromRaw(a.DType().PType(), raw, array.PrimitiveValidity(c)), nil
}

func (forEncoding) NBytes(a *array.Array) int {
	return Reference(a).NBytes() + Encoded(a).NBytes()
}

func (forEncoding) MarshalMetadata(a *array.Array) []byte {
	m := a.Meta().(forMeta)
	var w metabuf.Writer
	scalar.Write(&w, m.reference)
	w.Byte(m.shift)
	return w.Finish()
}

func (forEncoding) Build(p array.Parts) (*array.Array, error) {
	if !p.DType.IsInt() {
		return nil, array.TypeMismatchf("frame-of-reference array with dtype %s", p.DType)
	}
	if len(p.Buffers) != 0 || len(p.Children) != 1 {
		return nil, array.InvalidArgumentf("frame-of-reference array with %d buffers and %d children",
			errors.Safe(len(p.Buffers)), errors.Safe(len(p.Children)))
	}
	r := metabuf.NewReader(p.Metadata)
	ref, err := scalar.Read(p.DType.AsNonNullable(), r)
	if err != nil {
		return nil, errors.Mark(err, array.ErrInvalidArgument)
	}
	shift := r.Byte()
	if err := r.Done(); err != nil {
		return nil, errors.Mark(err, array.ErrInvalidArgument)
	}
	return NewFoR(p.Children[0], ref, shift)
}

func (forEncoding) ScalarAt(a *array.Array, i int) (scalar.Scalar, error) {
	enc, err := array.ScalarAt(Encoded(a), i)
	if err != nil {
		return scalar.Scalar{}, err
	}
	return a.Meta().(forMeta).decodeScalar(enc, a.DType()), nil
}

func (forEncoding) Slice(a *array.Array, start, stop int) (*array.Array, error) {
	enc, err := array.Slice(Encoded(a), start, stop)
	if err != nil {
		return nil, err
	}
	m := a.Meta().(forMeta)
	return newFoR(enc, m.reference, m.shift), nil
}

func (forEncoding) Take(a *array.Array, indices *array.Array) (*array.Array, error) {
	enc, err := array.Take(Encoded(a), indices)
	if err != nil {
		return nil, err
	}
	m := a.Meta().(forMeta)
	return newFoR(enc, m.reference, m.shift), nil
}

func (forEncoding) Filter(a *array.Array, mask *array.Array) (*array.Array, error) {
	enc, err := array.Filter(Encoded(a), mask)
	if err != nil {
		return nil, err
	}
	m := a.Meta().(forMeta)
	return newFoR(enc, m.reference, m.shift), nil
}

func (forEncoding) IsValid(a *array.Array, i int) bool {
	ok, err := array.IsValid(Encoded(a), i)
	return err == nil && ok
}

func (forEncoding) LogicalValidity(a *array.Array) (array.Validity, error) {
	return array.LogicalValidity(Encoded(a))
}

// ComputeStat derives order statistics from the encoded child, which decodes
// monotonically.
func (forEncoding) ComputeStat(a *array.Array, s array.Stat) (scalar.Scalar, bool) {
	m := a.Meta().(forMeta)
	enc := Encoded(a)
	switch s {
	case array.StatNullCount, array.StatIsConstant, array.StatIsSorted,
		array.StatIsStrictSorted, array.StatRunCount:
		return enc.Statistics().Compute(s)
	case array.StatMin, array.StatMax:
		v, ok := enc.Statistics().Compute(s)
		if !ok {
			return scalar.Scalar{}, false
		}
		return m.decodeScalar(v, a.DType()), true
	case array.StatTrailingZeroFreq:
		// Encoded zeros decode to the reference; only a zero reference keeps
		// the histograms aligned.
		pv, _ := m.reference.AsPValue()
		if m.shift != 0 || pv.StorageBits() != 0 {
			return scalar.Scalar{}, false
		}
		return enc.Statistics().Compute(s)
	}
	return scalar.Scalar{}, false
}
