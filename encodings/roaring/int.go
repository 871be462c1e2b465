// Copyright 2025 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package roaring

import (
	"math"

	"github.com/RoaringBitmap/roaring"
	"github.com/cockroachdb/colenc/array"
	"github.com/cockroachdb/colenc/dtype"
	"github.com/cockroachdb/colenc/internal/metabuf"
	"github.com/cockroachdb/colenc/scalar"
	"github.com/cockroachdb/errors"
)

// IntID identifies the roaring int encoding. The array's elements are the
// members of the bitmap in increasing order.
const IntID array.EncodingID = "colenc.roaring_int"

type intEncoding struct{}

// IntEncoding is the roaring int encoding.
var IntEncoding array.Encoding = intEncoding{}

func init() { array.Register(IntEncoding) }

// NewInt returns a non-nullable array of unsigned type p holding the members
// of bm in increasing order. Every member must fit in p.
func NewInt(p dtype.PType, bm *roaring.Bitmap) (*array.Array, error) {
	if !p.IsUnsigned() {
		return nil, array.TypeMismatchf("cannot roaring encode %s", p)
	}
	if !bm.IsEmpty() && p.BitWidth() < 32 && uint64(bm.Maximum()) >= 1<<uint(p.BitWidth()) {
		return nil, array.InvalidArgumentf("roaring member %d does not fit %s", errors.Safe(bm.Maximum()), p)
	}
	buf, err := serialize(bm)
	if err != nil {
		return nil, err
	}
	n := int(bm.GetCardinality())
	return array.New(IntEncoding, dtype.Primitive(p, dtype.NonNullable), n, bm, []array.Buffer{buf}, nil), nil
}

// CanEncodeInt returns true if a is a non-nullable unsigned integer array
// that is strictly sorted with a maximum below 2^32.
func CanEncodeInt(a *array.Array) bool {
	if !a.DType().IsUnsignedInt() || a.DType().IsNullable() {
		return false
	}
	if strict, ok := a.Statistics().ComputeBool(array.StatIsStrictSorted); !ok || !strict {
		return false
	}
	if mx, ok := a.Statistics().Compute(array.StatMax); ok {
		v, _ := mx.AsUint64()
		return v <= math.MaxUint32
	}
	return true
}

// EncodeInt encodes a strictly sorted, non-nullable unsigned integer array
// whose values fit in 32 bits.
func EncodeInt(a *array.Array) (*array.Array, error) {
	if !CanEncodeInt(a) {
		return nil, array.InvalidArgumentf("cannot roaring encode %s: not strictly sorted 32-bit unsigned values",
			a.DType())
	}
	c, err := array.Canonicalize(a)
	if err != nil {
		return nil, err
	}
	bm := roaring.New()
	for _, v := range array.RawValues(c) {
		bm.Add(uint32(v))
	}
	return NewInt(a.DType().PType(), bm)
}

func (intEncoding) ID() array.EncodingID { return IntID }

func (intEncoding) Canonicalize(a *array.Array) (*array.Array, error) {
	members := Bitmap(a).ToArray()
	raw := make([]uint64, len(members))
	for i, v := range members {
		raw[i] = uint64(v)
	}
	return array.PrimitiveFromRaw(a.DType().PType(), raw, array.ValidityNonNullable()), nil
}

func (intEncoding) MarshalMetadata(a *array.Array) []byte {
	var w metabuf.Writer
	w.Byte(byte(a.DType().PType()))
	return w.Finish()
}

func (intEncoding) Build(p array.Parts) (*array.Array, error) {
	if len(p.Buffers) != 1 || len(p.Children) != 0 {
		return nil, array.InvalidArgumentf("roaring int array with %d buffers and %d children",
			errors.Safe(len(p.Buffers)), errors.Safe(len(p.Children)))
	}
	r := metabuf.NewReader(p.Metadata)
	pt := dtype.PType(r.Byte())
	if err := r.Done(); err != nil {
		return nil, errors.Mark(err, array.ErrInvalidArgument)
	}
	if !p.DType.Equal(dtype.Primitive(pt, dtype.NonNullable)) {
		return nil, array.TypeMismatchf("roaring int array of %s with dtype %s", pt, p.DType)
	}
	bm, err := deserialize(p.Buffers[0])
	if err != nil {
		return nil, err
	}
	a, err := NewInt(pt, bm)
	if err != nil {
		return nil, err
	}
	if a.Len() != p.Len {
		return nil, array.InvalidArgumentf("roaring int array of %d members with length %d",
			errors.Safe(a.Len()), errors.Safe(p.Len))
	}
	return a, nil
}

func (intEncoding) ScalarAt(a *array.Array, i int) (scalar.Scalar, error) {
	v, err := Bitmap(a).Select(uint32(i))
	if err != nil {
		return scalar.Scalar{}, errors.Wrapf(err, "selecting member %d", errors.Safe(i))
	}
	return scalar.Primitive(scalar.PValueFromBits(a.DType().PType(), uint64(v)), dtype.NonNullable), nil
}

// SearchSorted answers from the rank of the value.
func (intEncoding) SearchSorted(a *array.Array, v scalar.Scalar, side array.SearchSide) (int, error) {
	x, ok := v.AsUint64()
	if !ok || x > math.MaxUint32 {
		return a.Len(), nil
	}
	bm := Bitmap(a)
	rank := int(bm.Rank(uint32(x)))
	if side == array.SearchLeft && bm.Contains(uint32(x)) {
		rank--
	}
	return rank, nil
}

func (intEncoding) ComputeStat(a *array.Array, s array.Stat) (scalar.Scalar, bool) {
	bm := Bitmap(a)
	n := a.Len()
	p := a.DType().PType()
	switch s {
	case array.StatNullCount:
		return array.CountScalar(0), true
	case array.StatIsSorted, array.StatIsStrictSorted:
		return array.BoolScalar(true), true
	case array.StatIsConstant:
		return array.BoolScalar(n <= 1), true
	case array.StatRunCount:
		return array.CountScalar(n), true
	case array.StatMin:
		if n == 0 {
			return scalar.Scalar{}, false
		}
		return scalar.Primitive(scalar.PValueFromBits(p, uint64(bm.Minimum())), dtype.NonNullable), true
	case array.StatMax:
		if n == 0 {
			return scalar.Scalar{}, false
		}
		return scalar.Primitive(scalar.PValueFromBits(p, uint64(bm.Maximum())), dtype.NonNullable), true
	}
	return scalar.Scalar{}, false
}
