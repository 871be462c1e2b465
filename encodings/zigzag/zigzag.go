// Copyright 2025 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

// Package zigzag implements zigzag encoding of signed integers. Values of
// small magnitude map to small unsigned values (0, -1, 1, -2, ... encode as
// 0, 1, 2, 3, ...) so that the unsigned child bit-packs well.
package zigzag

import (
	"github.com/cockroachdb/colenc/array"
	"github.com/cockroachdb/colenc/dtype"
	"github.com/cockroachdb/colenc/scalar"
	"github.com/cockroachdb/errors"
)

// ID identifies the zigzag encoding.
const ID array.EncodingID = "colenc.zigzag"

type encoding struct{}

// Encoding is the zigzag encoding.
var Encoding array.Encoding = encoding{}

func init() { array.Register(Encoding) }

// New returns a zigzag array decoding the unsigned encoded child to the signed
// type of the same width.
func New(encoded *array.Array) (*array.Array, error) {
	if !encoded.DType().IsUnsignedInt() {
		return nil, array.TypeMismatchf("zigzag child must be unsigned, got %s", encoded.DType())
	}
	return newZigZag(encoded), nil
}

func newZigZag(encoded *array.Array) *array.Array {
	dt := dtype.Primitive(encoded.DType().PType().ToSigned(), encoded.DType().Nullability())
	return array.New(Encoding, dt, encoded.Len(), nil, nil, []*array.Array{encoded})
}

// Encoded returns the unsigned child.
func Encoded(a *array.Array) *array.Array { return a.Child(0) }

// Encode zigzag encodes a signed integer array.
func Encode(a *array.Array) (*array.Array, error) {
	if !a.DType().IsSignedInt() {
		return nil, array.TypeMismatchf("cannot zigzag encode %s", a.DType())
	}
	c, err := array.Canonicalize(a)
	if err != nil {
		return nil, err
	}
	w := a.DType().PType().BitWidth()
	raw := array.RawValues(c)
	for i, x := range raw {
		raw[i] = encode(x, w)
	}
	return newZigZag(array.PrimitiveFromRaw(a.DType().PType().ToUnsigned(), raw, array.PrimitiveValidity(c))), nil
}

func mask(w int) uint64 {
	if w == 64 {
		return ^uint64(0)
	}
	return 1<<uint(w) - 1
}

func encode(x uint64, w int) uint64 {
	s := int64(x<<(64-w)) >> (64 - w)
	return uint64((s<<1)^(s>>63)) & mask(w)
}

func decode(u uint64, w int) uint64 {
	return ((u >> 1) ^ -(u & 1)) & mask(w)
}

func (encoding) ID() array.EncodingID { return ID }

func (encoding) Canonicalize(a *array.Array) (*array.Array, error) {
	c, err := array.Canonicalize(Encoded(a))
	if err != nil {
		return nil, err
	}
	w := a.DType().PType().BitWidth()
	raw := array.RawValues(c)
	for i, u := range raw {
		raw[i] = decode(u, w)
	}
	return array.PrimitiveFromRaw(a.DType().PType(), raw, array.PrimitiveValidity(c)), nil
}

func (encoding) MarshalMetadata(*array.Array) []byte { return nil }

func (encoding) Build(p array.Parts) (*array.Array, error) {
	if len(p.Buffers) != 0 || len(p.Children) != 1 || len(p.Metadata) != 0 {
		return nil, array.InvalidArgumentf("zigzag array with %d buffers and %d children",
			errors.Safe(len(p.Buffers)), errors.Safe(len(p.Children)))
	}
	a, err := New(p.Children[0])
	if err != nil {
		return nil, err
	}
	if !a.DType().Equal(p.DType) {
		return nil, array.TypeMismatchf("zigzag array of %s with dtype %s", a.DType(), p.DType)
	}
	return a, nil
}

func (encoding) ScalarAt(a *array.Array, i int) (scalar.Scalar, error) {
	s, err := array.ScalarAt(Encoded(a), i)
	if err != nil {
		return scalar.Scalar{}, err
	}
	pv, ok := s.AsPValue()
	if !ok {
		return scalar.Null(a.DType()), nil
	}
	p := a.DType().PType()
	return scalar.Primitive(scalar.PValueFromBits(p, decode(pv.StorageBits(), p.BitWidth())),
		a.DType().Nullability()), nil
}

func (encoding) Slice(a *array.Array, start, stop int) (*array.Array, error) {
	enc, err := array.Slice(Encoded(a), start, stop)
	if err != nil {
		return nil, err
	}
	return newZigZag(enc), nil
}

func (encoding) Take(a *array.Array, indices *array.Array) (*array.Array, error) {
	enc, err := array.Take(Encoded(a), indices)
	if err != nil {
		return nil, err
	}
	return newZigZag(enc), nil
}

func (encoding) Filter(a *array.Array, mask *array.Array) (*array.Array, error) {
	enc, err := array.Filter(Encoded(a), mask)
	if err != nil {
		return nil, err
	}
	return newZigZag(enc), nil
}

func (encoding) IsValid(a *array.Array, i int) bool {
	ok, err := array.IsValid(Encoded(a), i)
	return err == nil && ok
}

func (encoding) LogicalValidity(a *array.Array) (array.Validity, error) {
	return array.LogicalValidity(Encoded(a))
}

// ComputeStat answers the statistics preserved by a bijection. Order is not
// preserved.
func (encoding) ComputeStat(a *array.Array, s array.Stat) (scalar.Scalar, bool) {
	switch s {
	case array.StatNullCount, array.StatIsConstant, array.StatRunCount:
		return Encoded(a).Statistics().Compute(s)
	}
	return scalar.Scalar{}, false
}
