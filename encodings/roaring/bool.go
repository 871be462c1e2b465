// Copyright 2025 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

// Package roaring implements encodings backed by roaring bitmaps: a bool
// encoding storing the positions of the true elements, and an integer
// encoding for strictly increasing unsigned values of at most 32 bits. The
// single buffer of both holds the bitmap in the portable serialization
// format.
package roaring

import (
	"math"

	"github.com/RoaringBitmap/roaring"
	"github.com/apache/arrow-go/v18/arrow/bitutil"
	"github.com/cockroachdb/colenc/array"
	"github.com/cockroachdb/colenc/dtype"
	"github.com/cockroachdb/colenc/scalar"
	"github.com/cockroachdb/errors"
)

// BoolID identifies the roaring bool encoding.
const BoolID array.EncodingID = "colenc.roaring_bool"

type boolEncoding struct{}

// BoolEncoding is the roaring bool encoding.
var BoolEncoding array.Encoding = boolEncoding{}

func init() { array.Register(BoolEncoding) }

// serialize returns the buffer holding bm, run-optimized.
func serialize(bm *roaring.Bitmap) (array.Buffer, error) {
	bm.RunOptimize()
	b, err := bm.ToBytes()
	if err != nil {
		return array.Buffer{}, errors.Wrap(err, "serializing roaring bitmap")
	}
	return array.NewBuffer(b), nil
}

func deserialize(buf array.Buffer) (*roaring.Bitmap, error) {
	bm := roaring.New()
	if err := bm.UnmarshalBinary(buf.Bytes()); err != nil {
		return nil, errors.Mark(errors.Wrap(err, "deserializing roaring bitmap"), array.ErrInvalidArgument)
	}
	return bm, nil
}

// NewBool returns a non-nullable bool array of length n whose true elements
// are the members of bm, which must all be below n.
func NewBool(bm *roaring.Bitmap, n int) (*array.Array, error) {
	if n < 0 || uint64(n) > math.MaxUint32 {
		return nil, array.InvalidArgumentf("roaring bool length %d out of range", errors.Safe(n))
	}
	if !bm.IsEmpty() && uint64(bm.Maximum()) >= uint64(n) {
		return nil, array.InvalidArgumentf("roaring bool member %d out of range for length %d",
			errors.Safe(bm.Maximum()), errors.Safe(n))
	}
	buf, err := serialize(bm)
	if err != nil {
		return nil, err
	}
	return array.New(BoolEncoding, dtype.Bool(dtype.NonNullable), n, bm, []array.Buffer{buf}, nil), nil
}

// Bitmap returns the bitmap of a roaring bool or roaring int array. It must
// not be modified.
func Bitmap(a *array.Array) *roaring.Bitmap { return a.Meta().(*roaring.Bitmap) }

// EncodeBool encodes a non-nullable bool array of fewer than 2^32 elements.
func EncodeBool(a *array.Array) (*array.Array, error) {
	if !a.DType().Equal(dtype.Bool(dtype.NonNullable)) {
		return nil, array.TypeMismatchf("cannot roaring encode %s", a.DType())
	}
	c, err := array.Canonicalize(a)
	if err != nil {
		return nil, err
	}
	bm := roaring.New()
	for i, v := range array.BoolValues(c) {
		if v {
			bm.Add(uint32(i))
		}
	}
	return NewBool(bm, a.Len())
}

func (boolEncoding) ID() array.EncodingID { return BoolID }

func (boolEncoding) Canonicalize(a *array.Array) (*array.Array, error) {
	bm := Bitmap(a)
	buf := make([]byte, bitutil.BytesForBits(int64(a.Len())))
	it := bm.Iterator()
	for it.HasNext() {
		bitutil.SetBit(buf, int(it.Next()))
	}
	return array.BoolFromBitmap(buf, a.Len()), nil
}

func (boolEncoding) MarshalMetadata(*array.Array) []byte { return nil }

func (boolEncoding) Build(p array.Parts) (*array.Array, error) {
	if !p.DType.Equal(dtype.Bool(dtype.NonNullable)) {
		return nil, array.TypeMismatchf("roaring bool array with dtype %s", p.DType)
	}
	if len(p.Buffers) != 1 || len(p.Children) != 0 || len(p.Metadata) != 0 {
		return nil, array.InvalidArgumentf("roaring bool array with %d buffers and %d children",
			errors.Safe(len(p.Buffers)), errors.Safe(len(p.Children)))
	}
	bm, err := deserialize(p.Buffers[0])
	if err != nil {
		return nil, err
	}
	return NewBool(bm, p.Len)
}

func (boolEncoding) ScalarAt(a *array.Array, i int) (scalar.Scalar, error) {
	return scalar.Bool(Bitmap(a).Contains(uint32(i)), dtype.NonNullable), nil
}

// Slice copies the members in range into a new bitmap.
func (boolEncoding) Slice(a *array.Array, start, stop int) (*array.Array, error) {
	bm := Bitmap(a)
	out := roaring.New()
	it := bm.Iterator()
	it.AdvanceIfNeeded(uint32(start))
	for it.HasNext() {
		v := it.Next()
		if int(v) >= stop {
			break
		}
		out.Add(v - uint32(start))
	}
	return NewBool(out, stop-start)
}

// ComputeStat answers every statistic from the cardinality and extent of the
// bitmap.
func (boolEncoding) ComputeStat(a *array.Array, s array.Stat) (scalar.Scalar, bool) {
	bm := Bitmap(a)
	n := uint64(a.Len())
	card := bm.GetCardinality()
	allTrue := card == n
	switch s {
	case array.StatNullCount:
		return array.CountScalar(0), true
	case array.StatTrueCount:
		return array.CountScalar(int(card)), true
	case array.StatIsConstant:
		return array.BoolScalar(card == 0 || allTrue), true
	case array.StatIsSorted:
		// Sorted when the true elements form a suffix.
		return array.BoolScalar(card == 0 || uint64(bm.Minimum()) == n-card), true
	case array.StatIsStrictSorted:
		return array.BoolScalar(n <= 1 || (n == 2 && card == 1 && bm.Contains(1))), true
	case array.StatMin:
		if n == 0 {
			return scalar.Scalar{}, false
		}
		return scalar.Bool(allTrue, dtype.NonNullable), true
	case array.StatMax:
		if n == 0 {
			return scalar.Scalar{}, false
		}
		return scalar.Bool(card > 0, dtype.NonNullable), true
	case array.StatRunCount:
		return array.CountScalar(boolRunCount(bm, n)), true
	}
	return scalar.Scalar{}, false
}

// boolRunCount counts the runs of a bool array of length n with the given
// true elements.
func boolRunCount(bm *roaring.Bitmap, n uint64) int {
	if n == 0 {
		return 0
	}
	if bm.IsEmpty() {
		return 1
	}
	trueRuns := 0
	prev := int64(-2)
	it := bm.Iterator()
	for it.HasNext() {
		v := int64(it.Next())
		if v != prev+1 {
			trueRuns++
		}
		prev = v
	}
	falseRuns := trueRuns + 1
	if bm.Minimum() == 0 {
		falseRuns--
	}
	if uint64(bm.Maximum()) == n-1 {
		falseRuns--
	}
	return trueRuns + falseRuns
}
