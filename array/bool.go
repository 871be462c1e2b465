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

// BoolID identifies the canonical boolean encoding: a bitmap with one bit per
// element (least significant bit first) starting at a bit offset, and an
// optional validity child.
const BoolID EncodingID = "colenc.bool"

type boolMeta struct {
	offset   int
	validity Validity
}

type boolEncoding struct{}

// BoolEncoding is the canonical boolean encoding.
var BoolEncoding Encoding = boolEncoding{}

func init() { Register(BoolEncoding) }

// NewBool returns a bool array of n elements whose values are bits
// [offset, offset+n) of buf.
func NewBool(buf Buffer, offset, n int, v Validity) (*Array, error) {
	if offset < 0 || n < 0 || int64(buf.Len()) < bitutil.BytesForBits(int64(offset+n)) {
		return nil, InvalidArgumentf("bool buffer of %d bytes too small for %d bits at offset %d",
			errors.Safe(buf.Len()), errors.Safe(n), errors.Safe(offset))
	}
	if err := checkValidity(v, v.Nullability(), n); err != nil {
		return nil, err
	}
	return newBoolArray(buf, offset, n, v), nil
}

func newBoolArray(buf Buffer, offset, n int, v Validity) *Array {
	return New(BoolEncoding, dtype.Bool(v.Nullability()), n,
		boolMeta{offset: offset, validity: v}, []Buffer{buf}, v.children())
}

// BoolFromSlice returns a bool array holding vals. Nullable arrays are all
// valid.
func BoolFromSlice(vals []bool, n dtype.Nullability) *Array {
	buf := make([]byte, bitutil.BytesForBits(int64(len(vals))))
	for i, v := range vals {
		if v {
			bitutil.SetBit(buf, i)
		}
	}
	return newBoolArray(NewBuffer(buf), 0, len(vals), ValidityFor(n))
}

// BoolFromBitmap returns a non-nullable bool array over the first n bits of
// bitmap.
func BoolFromBitmap(bitmap []byte, n int) *Array {
	return newBoolArray(NewBuffer(bitmap), 0, n, ValidityNonNullable())
}

// BoolBitmap returns the bitmap and bit offset of a canonical bool array.
func BoolBitmap(a *Array) (bitmap []byte, offset int) {
	mustBeOfEncoding(a, BoolID)
	return a.buffers[0].Bytes(), a.md.(boolMeta).offset
}

// BoolValues returns the values of a canonical bool array. Null elements
// report the value stored in the bitmap.
func BoolValues(a *Array) []bool {
	out := make([]bool, a.Len())
	for i := range out {
		out[i] = boolValue(a, i)
	}
	return out
}

func boolValue(a *Array, i int) bool {
	return bitutil.BitIsSet(a.buffers[0].Bytes(), a.md.(boolMeta).offset+i)
}

// boolTrueCount counts set bits, regardless of validity.
func boolTrueCount(a *Array) int {
	return bitutil.CountSetBits(a.buffers[0].Bytes(), a.md.(boolMeta).offset, a.length)
}

func sliceBool(a *Array, start, stop int) *Array {
	m := a.md.(boolMeta)
	off := m.offset + start
	// Rebase onto the first referenced byte so the buffer doesn't pin unneeded
	// leading bytes.
	byteOff := off / 8
	end := int(bitutil.BytesForBits(int64(off + stop - start)))
	buf := a.buffers[0].Slice(byteOff, end-byteOff)
	return newBoolArray(buf, off%8, stop-start, m.validity.Slice(start, stop))
}

func filterBool(a *Array, mask *Array) *Array {
	m := a.md.(boolMeta)
	n := trueCountOf(mask)
	out := make([]byte, bitutil.BytesForBits(int64(n)))
	j := 0
	forEachSet(mask, func(i int) {
		if boolValue(a, i) {
			bitutil.SetBit(out, j)
		}
		j++
	})
	return newBoolArray(NewBuffer(out), 0, n, m.validity.Filter(mask))
}

func (boolEncoding) ID() EncodingID { return BoolID }

func (boolEncoding) Canonicalize(a *Array) (*Array, error) { return a, nil }

func (boolEncoding) MarshalMetadata(a *Array) []byte {
	m := a.md.(boolMeta)
	var w metabuf.Writer
	w.Uvarint(uint64(m.offset))
	m.validity.write(&w)
	return w.Finish()
}

func (boolEncoding) Build(p Parts) (*Array, error) {
	r := metabuf.NewReader(p.Metadata)
	off := int(r.Uvarint())
	v, err := readValidity(r, p.Children, p.Len)
	if err != nil {
		return nil, err
	}
	if err := r.Done(); err != nil {
		return nil, err
	}
	if len(p.Buffers) != 1 || len(p.Children) != len(v.children()) {
		return nil, InvalidArgumentf("bool array with %d buffers and %d children",
			errors.Safe(len(p.Buffers)), errors.Safe(len(p.Children)))
	}
	if !p.DType.Equal(dtype.Bool(v.Nullability())) {
		return nil, TypeMismatchf("bool array with dtype %s", p.DType)
	}
	return NewBool(p.Buffers[0], off, p.Len, v)
}

func (boolEncoding) ScalarAt(a *Array, i int) (scalar.Scalar, error) {
	m := a.md.(boolMeta)
	if !m.validity.IsValid(i) {
		return scalar.Null(a.dtype), nil
	}
	return scalar.Bool(boolValue(a, i), a.dtype.Nullability()), nil
}

func (boolEncoding) Slice(a *Array, start, stop int) (*Array, error) {
	return sliceBool(a, start, stop), nil
}

func (boolEncoding) Take(a *Array, indices *Array) (*Array, error) {
	idx := IndicesOf(indices)
	out := make([]byte, bitutil.BytesForBits(int64(len(idx))))
	for i, j := range idx {
		if j < uint64(a.length) && boolValue(a, int(j)) {
			bitutil.SetBit(out, i)
		}
	}
	v := a.md.(boolMeta).validity.Take(indices)
	return newBoolArray(NewBuffer(out), 0, len(idx), v), nil
}

func (boolEncoding) Filter(a *Array, mask *Array) (*Array, error) {
	return filterBool(a, mask), nil
}

func (boolEncoding) IsValid(a *Array, i int) bool {
	return a.md.(boolMeta).validity.IsValid(i)
}

func (boolEncoding) LogicalValidity(a *Array) (Validity, error) {
	return a.md.(boolMeta).validity, nil
}

func (boolEncoding) ComputeStat(a *Array, s Stat) (scalar.Scalar, bool) {
	m := a.md.(boolMeta)
	switch s {
	case StatTrueCount:
		if m.validity.kind != ArrayValidity {
			if m.validity.kind == AllInvalid {
				return scalar.Of(uint64(0)), true
			}
			return scalar.Of(uint64(boolTrueCount(a))), true
		}
		var n uint64
		for i := 0; i < a.length; i++ {
			if m.validity.IsValid(i) && boolValue(a, i) {
				n++
			}
		}
		return scalar.Of(n), true
	case StatNullCount:
		return scalar.Of(uint64(m.validity.NullCount(a.length))), true
	}
	return scalar.Scalar{}, false
}
