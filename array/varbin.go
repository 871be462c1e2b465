// Copyright 2025 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package array

import (
	"github.com/cockroachdb/colenc/dtype"
	"github.com/cockroachdb/colenc/internal/metabuf"
	"github.com/cockroachdb/colenc/scalar"
	"github.com/cockroachdb/errors"
)

// VarBinID identifies the canonical variable-length encoding of utf8 and
// binary values: a data buffer, an offsets child of n+1 non-decreasing
// integers delimiting each value within the data buffer, and an optional
// validity child.
const VarBinID EncodingID = "colenc.varbin"

type varBinMeta struct {
	validity Validity
}

type varBinEncoding struct{}

// VarBinEncoding is the canonical variable-length encoding.
var VarBinEncoding Encoding = varBinEncoding{}

func init() { Register(VarBinEncoding) }

// NewVarBin returns a varbin array of DType dt. The offsets array must be a
// non-nullable integer array with one more element than the result.
func NewVarBin(dt dtype.DType, offsets *Array, data Buffer, v Validity) (*Array, error) {
	if !dt.IsBinaryLike() {
		return nil, TypeMismatchf("varbin array with dtype %s", dt)
	}
	if !offsets.DType().IsInt() || offsets.DType().IsNullable() {
		return nil, InvalidArgumentf("varbin offsets must be non-nullable integers, got %s", offsets.DType())
	}
	if offsets.Len() < 1 {
		return nil, InvalidArgumentf("varbin offsets must not be empty")
	}
	n := offsets.Len() - 1
	if err := checkValidity(v, dt.Nullability(), n); err != nil {
		return nil, err
	}
	if offsets.IsCanonical() {
		prev := uint64(0)
		for i := 0; i <= n; i++ {
			o := primitiveRaw(offsets, i)
			if (i > 0 && o < prev) || o > uint64(data.Len()) {
				return nil, InvalidArgumentf("varbin offset %d at %d out of order or past %d data bytes",
					errors.Safe(o), errors.Safe(i), errors.Safe(data.Len()))
			}
			prev = o
		}
	}
	return newVarBinArray(dt, offsets, data, v), nil
}

func newVarBinArray(dt dtype.DType, offsets *Array, data Buffer, v Validity) *Array {
	children := append([]*Array{offsets}, v.children()...)
	return New(VarBinEncoding, dt, offsets.Len()-1, varBinMeta{validity: v}, []Buffer{data}, children)
}

// VarBinOffsets returns the offsets child of a varbin array.
func VarBinOffsets(a *Array) *Array {
	mustBeOfEncoding(a, VarBinID)
	return a.children[0]
}

// VarBinData returns the data buffer of a varbin array.
func VarBinData(a *Array) Buffer {
	mustBeOfEncoding(a, VarBinID)
	return a.buffers[0]
}

// VarBinValidity returns the validity of a varbin array.
func VarBinValidity(a *Array) Validity {
	mustBeOfEncoding(a, VarBinID)
	return a.md.(varBinMeta).validity
}

// VarBinBytes returns the bytes of element i of a varbin array with canonical
// offsets. Null elements return an unspecified, usually empty, value. The
// result must not be modified.
func VarBinBytes(a *Array, i int) []byte {
	off := a.children[0]
	start, end := primitiveRaw(off, i), primitiveRaw(off, i+1)
	return a.buffers[0].Bytes()[start:end]
}

// VarBinBuilder accumulates values for a canonical varbin array.
type VarBinBuilder struct {
	dt      dtype.DType
	data    []byte
	offsets []uint64
	valid   []bool
	nulls   int
}

// NewVarBinBuilder returns a builder of arrays of DType dt, which must be
// utf8 or binary.
func NewVarBinBuilder(dt dtype.DType, capacity int) *VarBinBuilder {
	b := &VarBinBuilder{dt: dt, offsets: make([]uint64, 1, capacity+1)}
	if dt.IsNullable() {
		b.valid = make([]bool, 0, capacity)
	}
	return b
}

// Append adds a non-null value.
func (b *VarBinBuilder) Append(v []byte) {
	b.data = append(b.data, v...)
	b.offsets = append(b.offsets, uint64(len(b.data)))
	if b.dt.IsNullable() {
		b.valid = append(b.valid, true)
	}
}

// AppendString adds a non-null string value.
func (b *VarBinBuilder) AppendString(v string) {
	b.data = append(b.data, v...)
	b.offsets = append(b.offsets, uint64(len(b.data)))
	if b.dt.IsNullable() {
		b.valid = append(b.valid, true)
	}
}

// AppendNull adds a null. The builder's DType must be nullable.
func (b *VarBinBuilder) AppendNull() {
	if !b.dt.IsNullable() {
		panic(errors.AssertionFailedf("null appended to non-nullable %s builder", b.dt))
	}
	b.offsets = append(b.offsets, uint64(len(b.data)))
	b.valid = append(b.valid, false)
	b.nulls++
}

// Len returns the number of values appended.
func (b *VarBinBuilder) Len() int { return len(b.offsets) - 1 }

// Finish returns the built array. Offsets use 32-bit integers when the data
// fits.
func (b *VarBinBuilder) Finish() *Array {
	var offsets *Array
	if len(b.data) <= 1<<31-1 {
		o32 := make([]uint32, len(b.offsets))
		for i, o := range b.offsets {
			o32[i] = uint32(o)
		}
		offsets = FromSlice(o32)
	} else {
		offsets = FromSlice(b.offsets)
	}
	var v Validity
	switch {
	case !b.dt.IsNullable():
		v = ValidityNonNullable()
	case b.nulls == 0:
		v = ValidityAllValid()
	case b.nulls == b.Len():
		v = ValidityAllInvalid()
	default:
		v = ValidityFromBools(b.valid)
	}
	return newVarBinArray(b.dt, offsets, NewBuffer(b.data), v)
}

// VarBinFromStrings returns a utf8 array holding vals.
func VarBinFromStrings(vals []string, n dtype.Nullability) *Array {
	b := NewVarBinBuilder(dtype.Utf8(n), len(vals))
	for _, v := range vals {
		b.AppendString(v)
	}
	return b.Finish()
}

// VarBinFromBytes returns an array of DType dt holding vals. Nil entries are
// null when dt is nullable.
func VarBinFromBytes(dt dtype.DType, vals [][]byte) *Array {
	b := NewVarBinBuilder(dt, len(vals))
	for _, v := range vals {
		if v == nil && dt.IsNullable() {
			b.AppendNull()
		} else {
			b.Append(v)
		}
	}
	return b.Finish()
}

func (varBinEncoding) ID() EncodingID { return VarBinID }

func (varBinEncoding) Canonicalize(a *Array) (*Array, error) {
	off := a.children[0]
	if off.IsCanonical() {
		return a, nil
	}
	c, err := Canonicalize(off)
	if err != nil {
		return nil, err
	}
	return newVarBinArray(a.dtype, c, a.buffers[0], a.md.(varBinMeta).validity), nil
}

func (varBinEncoding) MarshalMetadata(a *Array) []byte {
	var w metabuf.Writer
	a.md.(varBinMeta).validity.write(&w)
	return w.Finish()
}

func (varBinEncoding) Build(p Parts) (*Array, error) {
	r := metabuf.NewReader(p.Metadata)
	v, err := readValidity(r, p.Children, p.Len)
	if err != nil {
		return nil, err
	}
	if err := r.Done(); err != nil {
		return nil, err
	}
	if len(p.Buffers) != 1 || len(p.Children) != 1+len(v.children()) {
		return nil, InvalidArgumentf("varbin array with %d buffers and %d children",
			errors.Safe(len(p.Buffers)), errors.Safe(len(p.Children)))
	}
	if p.Children[0].Len() != p.Len+1 {
		return nil, InvalidArgumentf("varbin offsets of length %d for %d values",
			errors.Safe(p.Children[0].Len()), errors.Safe(p.Len))
	}
	return NewVarBin(p.DType, p.Children[0], p.Buffers[0], v)
}

func (varBinEncoding) ScalarAt(a *Array, i int) (scalar.Scalar, error) {
	if !a.md.(varBinMeta).validity.IsValid(i) {
		return scalar.Null(a.dtype), nil
	}
	off := a.children[0]
	if off.IsCanonical() {
		return scalar.BufferOf(a.dtype, VarBinBytes(a, i)), nil
	}
	s, err := ScalarAt(off, i)
	if err != nil {
		return scalar.Scalar{}, err
	}
	e, err := ScalarAt(off, i+1)
	if err != nil {
		return scalar.Scalar{}, err
	}
	start, _ := s.AsUint64()
	end, _ := e.AsUint64()
	return scalar.BufferOf(a.dtype, a.buffers[0].Bytes()[start:end]), nil
}

func (varBinEncoding) Slice(a *Array, start, stop int) (*Array, error) {
	off, err := Slice(a.children[0], start, stop+1)
	if err != nil {
		return nil, err
	}
	return newVarBinArray(a.dtype, off, a.buffers[0], a.md.(varBinMeta).validity.Slice(start, stop)), nil
}

func (e varBinEncoding) Take(a *Array, indices *Array) (*Array, error) {
	c, err := e.Canonicalize(a)
	if err != nil {
		return nil, err
	}
	idx := IndicesOf(indices)
	v := c.md.(varBinMeta).validity.Take(indices)
	b := NewVarBinBuilder(a.dtype.WithNullability(v.Nullability()), len(idx))
	for i, j := range idx {
		if v.IsValid(i) {
			b.Append(VarBinBytes(c, int(j)))
		} else {
			b.AppendNull()
		}
	}
	return b.Finish(), nil
}

func (e varBinEncoding) Filter(a *Array, mask *Array) (*Array, error) {
	c, err := e.Canonicalize(a)
	if err != nil {
		return nil, err
	}
	v := c.md.(varBinMeta).validity
	b := NewVarBinBuilder(a.dtype, trueCountOf(mask))
	forEachSet(mask, func(i int) {
		if v.IsValid(i) {
			b.Append(VarBinBytes(c, i))
		} else {
			b.AppendNull()
		}
	})
	return b.Finish(), nil
}

func (varBinEncoding) IsValid(a *Array, i int) bool {
	return a.md.(varBinMeta).validity.IsValid(i)
}

func (varBinEncoding) LogicalValidity(a *Array) (Validity, error) {
	return a.md.(varBinMeta).validity, nil
}
