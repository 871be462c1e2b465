// Copyright 2025 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package array

import (
	"encoding/binary"
	"unsafe"

	"github.com/cockroachdb/colenc/dtype"
	"github.com/cockroachdb/colenc/internal/metabuf"
	"github.com/cockroachdb/colenc/scalar"
	"github.com/cockroachdb/errors"
)

// PrimitiveID identifies the canonical fixed-width encoding: one buffer of
// little-endian values and an optional validity child.
const PrimitiveID EncodingID = "colenc.primitive"

type primitiveMeta struct {
	validity Validity
}

type primitiveEncoding struct{}

// PrimitiveEncoding is the canonical fixed-width encoding.
var PrimitiveEncoding Encoding = primitiveEncoding{}

func init() { Register(PrimitiveEncoding) }

// NewPrimitive returns a primitive array of n values of type p held in buf.
func NewPrimitive(p dtype.PType, buf Buffer, n int, v Validity) (*Array, error) {
	if n < 0 || buf.Len() < n*p.ByteWidth() {
		return nil, InvalidArgumentf("buffer of %d bytes too small for %d %s values",
			errors.Safe(buf.Len()), errors.Safe(n), p)
	}
	if err := checkValidity(v, v.Nullability(), n); err != nil {
		return nil, err
	}
	return newPrimitiveArray(p, buf, n, v), nil
}

func newPrimitiveArray(p dtype.PType, buf Buffer, n int, v Validity) *Array {
	return New(PrimitiveEncoding, dtype.Primitive(p, v.Nullability()), n,
		primitiveMeta{validity: v}, []Buffer{buf}, v.children())
}

// FromSlice returns a non-nullable primitive array holding vals. The array
// aliases vals, which must not be modified afterwards.
func FromSlice[T dtype.Native](vals []T) *Array {
	return newPrimitiveArray(dtype.PTypeOf[T](), WrapValues(vals), len(vals), ValidityNonNullable())
}

// FromSliceWithValidity returns a primitive array holding vals with the given
// validity. The array aliases vals.
func FromSliceWithValidity[T dtype.Native](vals []T, v Validity) *Array {
	if err := checkValidity(v, v.Nullability(), len(vals)); err != nil {
		panic(errors.NewAssertionErrorWithWrappedErrf(err, "invalid validity"))
	}
	return newPrimitiveArray(dtype.PTypeOf[T](), WrapValues(vals), len(vals), v)
}

// FromNullable returns a nullable primitive array holding vals, where
// valid[i] reports whether element i is non-null.
func FromNullable[T dtype.Native](vals []T, valid []bool) *Array {
	return FromSliceWithValidity(vals, ValidityFromBools(valid))
}

// PrimitiveValues returns the values of a canonical primitive array. T must
// have the byte width of the array's PType; f16 arrays are read as uint16.
// Null elements hold unspecified values. The result must not be modified.
func PrimitiveValues[T dtype.Native](a *Array) []T {
	mustBeOfEncoding(a, PrimitiveID)
	var z T
	if int(unsafe.Sizeof(z)) != a.dtype.PType().ByteWidth() {
		panic(errors.AssertionFailedf("reading %s array as %T", a.dtype, z))
	}
	return Values[T](a.buffers[0], a.length)
}

// PrimitiveValidity returns the validity of a canonical primitive array.
func PrimitiveValidity(a *Array) Validity {
	mustBeOfEncoding(a, PrimitiveID)
	return a.md.(primitiveMeta).validity
}

// IndicesOf returns the values of a canonical integer array as uint64s.
// Negative values wrap to large unsigned values. Null elements hold
// unspecified values.
func IndicesOf(a *Array) []uint64 {
	mustBeOfEncoding(a, PrimitiveID)
	p := a.dtype.PType()
	if p == dtype.U64 || p == dtype.I64 {
		v := Values[uint64](a.buffers[0], a.length)
		return v
	}
	out := make([]uint64, a.length)
	switch p {
	case dtype.U8:
		for i, x := range Values[uint8](a.buffers[0], a.length) {
			out[i] = uint64(x)
		}
	case dtype.U16:
		for i, x := range Values[uint16](a.buffers[0], a.length) {
			out[i] = uint64(x)
		}
	case dtype.U32:
		for i, x := range Values[uint32](a.buffers[0], a.length) {
			out[i] = uint64(x)
		}
	case dtype.I8:
		for i, x := range Values[int8](a.buffers[0], a.length) {
			out[i] = uint64(int64(x))
		}
	case dtype.I16:
		for i, x := range Values[int16](a.buffers[0], a.length) {
			out[i] = uint64(int64(x))
		}
	case dtype.I32:
		for i, x := range Values[int32](a.buffers[0], a.length) {
			out[i] = uint64(int64(x))
		}
	default:
		panic(errors.AssertionFailedf("indices of type %s", a.dtype))
	}
	return out
}

// primitiveRaw returns the storage bits of element i zero-extended to 64 bits.
func primitiveRaw(a *Array, i int) uint64 {
	b := a.buffers[0].Bytes()
	switch a.dtype.PType().ByteWidth() {
	case 1:
		return uint64(b[i])
	case 2:
		return uint64(binary.LittleEndian.Uint16(b[i*2:]))
	case 4:
		return uint64(binary.LittleEndian.Uint32(b[i*4:]))
	default:
		return binary.LittleEndian.Uint64(b[i*8:])
	}
}

func (primitiveEncoding) ID() EncodingID { return PrimitiveID }

func (primitiveEncoding) Canonicalize(a *Array) (*Array, error) { return a, nil }

func (primitiveEncoding) MarshalMetadata(a *Array) []byte {
	var w metabuf.Writer
	a.md.(primitiveMeta).validity.write(&w)
	return w.Finish()
}

func (primitiveEncoding) Build(p Parts) (*Array, error) {
	if !p.DType.IsPrimitive() {
		return nil, TypeMismatchf("primitive array with dtype %s", p.DType)
	}
	r := metabuf.NewReader(p.Metadata)
	v, err := readValidity(r, p.Children, p.Len)
	if err != nil {
		return nil, err
	}
	if err := r.Done(); err != nil {
		return nil, err
	}
	if len(p.Buffers) != 1 || len(p.Children) != len(v.children()) {
		return nil, InvalidArgumentf("primitive array with %d buffers and %d children",
			errors.Safe(len(p.Buffers)), errors.Safe(len(p.Children)))
	}
	if p.DType.Nullability() != v.Nullability() {
		return nil, InvalidArgumentf("validity does not match dtype %s", p.DType)
	}
	buf := p.Buffers[0]
	if !buf.Aligned(p.DType.PType().ByteWidth()) && !buf.IsView() {
		// Owned buffers are always read in place; realign them once.
		cp := alignedBytes(buf.Len())
		copy(cp, buf.Bytes())
		buf = NewBuffer(cp)
	}
	return NewPrimitive(p.DType.PType(), buf, p.Len, v)
}

func (primitiveEncoding) ScalarAt(a *Array, i int) (scalar.Scalar, error) {
	if !a.md.(primitiveMeta).validity.IsValid(i) {
		return scalar.Null(a.dtype), nil
	}
	p := scalar.PValueFromBits(a.dtype.PType(), primitiveRaw(a, i))
	return scalar.Primitive(p, a.dtype.Nullability()), nil
}

func (primitiveEncoding) Slice(a *Array, start, stop int) (*Array, error) {
	w := a.dtype.PType().ByteWidth()
	buf := a.buffers[0].Slice(start*w, (stop-start)*w)
	v := a.md.(primitiveMeta).validity.Slice(start, stop)
	return newPrimitiveArray(a.dtype.PType(), buf, stop-start, v), nil
}

func (primitiveEncoding) Take(a *Array, indices *Array) (*Array, error) {
	idx := IndicesOf(indices)
	var buf Buffer
	switch a.dtype.PType().ByteWidth() {
	case 1:
		buf = gather(Values[uint8](a.buffers[0], a.length), idx)
	case 2:
		buf = gather(Values[uint16](a.buffers[0], a.length), idx)
	case 4:
		buf = gather(Values[uint32](a.buffers[0], a.length), idx)
	default:
		buf = gather(Values[uint64](a.buffers[0], a.length), idx)
	}
	v := a.md.(primitiveMeta).validity.Take(indices)
	return newPrimitiveArray(a.dtype.PType(), buf, len(idx), v), nil
}

// gather returns src[idx[i]] for each i. Out of range indices, which only
// occur at null index positions, produce zero.
func gather[T dtype.Native](src []T, idx []uint64) Buffer {
	out := make([]T, len(idx))
	for i, j := range idx {
		if j < uint64(len(src)) {
			out[i] = src[j]
		}
	}
	return WrapValues(out)
}

func (primitiveEncoding) Filter(a *Array, mask *Array) (*Array, error) {
	var buf Buffer
	n := trueCountOf(mask)
	switch a.dtype.PType().ByteWidth() {
	case 1:
		buf = filterValues(Values[uint8](a.buffers[0], a.length), mask, n)
	case 2:
		buf = filterValues(Values[uint16](a.buffers[0], a.length), mask, n)
	case 4:
		buf = filterValues(Values[uint32](a.buffers[0], a.length), mask, n)
	default:
		buf = filterValues(Values[uint64](a.buffers[0], a.length), mask, n)
	}
	v := a.md.(primitiveMeta).validity.Filter(mask)
	return newPrimitiveArray(a.dtype.PType(), buf, n, v), nil
}

func filterValues[T dtype.Native](src []T, mask *Array, n int) Buffer {
	out := make([]T, 0, n)
	forEachSet(mask, func(i int) { out = append(out, src[i]) })
	return WrapValues(out)
}

func (primitiveEncoding) CompareScalar(a *Array, s scalar.Scalar, op Operator) (*Array, error) {
	return comparePrimitive(a, s, op), nil
}

func (primitiveEncoding) IsValid(a *Array, i int) bool {
	return a.md.(primitiveMeta).validity.IsValid(i)
}

func (primitiveEncoding) LogicalValidity(a *Array) (Validity, error) {
	return a.md.(primitiveMeta).validity, nil
}
