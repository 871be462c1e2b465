// Copyright 2025 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package array

import (
	"sort"

	"github.com/cockroachdb/colenc/internal/metabuf"
	"github.com/cockroachdb/colenc/scalar"
	"github.com/cockroachdb/errors"
)

// SparseID identifies the sparse encoding: a fill scalar overlaid with
// exceptions. The indices child holds strictly increasing u64 positions
// (shifted by an index offset carried in metadata so slices can share the
// child) and the values child holds the exception at each position.
const SparseID EncodingID = "colenc.sparse"

type sparseMeta struct {
	indexOffset uint64
	fill        scalar.Scalar
	// indices caches the decoded indices child.
	indices []uint64
}

type sparseEncoding struct{}

// SparseEncoding is the sparse encoding.
var SparseEncoding Encoding = sparseEncoding{}

func init() { Register(SparseEncoding) }

// NewSparse returns a sparse array of length n. The indices must be a
// non-nullable unsigned integer array of strictly increasing positions in
// [indexOffset, indexOffset+n); values must have the array's DType, which is
// the DType of fill.
func NewSparse(indices, values *Array, fill scalar.Scalar, n int, indexOffset uint64) (*Array, error) {
	dt := values.DType()
	if !fill.DType().EqualIgnoringNullability(dt) && !fill.IsNull() {
		return nil, TypeMismatchf("sparse fill %s does not match values %s", fill.DType(), dt)
	}
	if fill.IsNull() && !dt.IsNullable() {
		return nil, InvalidArgumentf("null fill for non-nullable values %s", dt)
	}
	if !indices.DType().IsUnsignedInt() || indices.DType().IsNullable() {
		return nil, InvalidArgumentf("sparse indices must be non-nullable unsigned integers, got %s", indices.DType())
	}
	if indices.Len() != values.Len() {
		return nil, InvalidArgumentf("%d sparse indices for %d values",
			errors.Safe(indices.Len()), errors.Safe(values.Len()))
	}
	ci, err := Canonicalize(indices)
	if err != nil {
		return nil, err
	}
	idx := IndicesOf(ci)
	for i, j := range idx {
		if j < indexOffset || j-indexOffset >= uint64(n) || (i > 0 && j <= idx[i-1]) {
			return nil, InvalidArgumentf("sparse index %d at %d out of order or outside [%d, %d)",
				errors.Safe(j), errors.Safe(i), errors.Safe(indexOffset), errors.Safe(indexOffset+uint64(n)))
		}
	}
	if fill.IsNull() {
		fill = scalar.Null(dt)
	} else {
		fill = fill.WithNullability(dt.Nullability())
	}
	md := sparseMeta{indexOffset: indexOffset, fill: fill, indices: idx}
	return New(SparseEncoding, dt, n, md, nil, []*Array{indices, values}), nil
}

// SparseFill returns the fill scalar of a sparse array.
func SparseFill(a *Array) scalar.Scalar {
	mustBeOfEncoding(a, SparseID)
	return a.md.(sparseMeta).fill
}

// SparsePositions returns the positions of the exceptions of a sparse array,
// relative to the start of the array.
func SparsePositions(a *Array) []uint64 {
	mustBeOfEncoding(a, SparseID)
	m := a.md.(sparseMeta)
	out := make([]uint64, len(m.indices))
	for i, j := range m.indices {
		out[i] = j - m.indexOffset
	}
	return out
}

// SparseValues returns the exception values of a sparse array.
func SparseValues(a *Array) *Array {
	mustBeOfEncoding(a, SparseID)
	return a.children[1]
}

// search returns the exception index holding element i, if any.
func (m sparseMeta) search(i int) (int, bool) {
	target := uint64(i) + m.indexOffset
	j := sort.Search(len(m.indices), func(k int) bool { return m.indices[k] >= target })
	return j, j < len(m.indices) && m.indices[j] == target
}

func (sparseEncoding) ID() EncodingID { return SparseID }

func (sparseEncoding) Canonicalize(a *Array) (*Array, error) {
	m := a.md.(sparseMeta)
	base, err := repeatScalar(m.fill, a.length)
	if err != nil {
		return nil, err
	}
	return ApplyPatches(base, SparsePositions(a), a.children[1])
}

func (sparseEncoding) NBytes(a *Array) int {
	return a.md.(sparseMeta).fill.NBytes() + a.children[0].NBytes() + a.children[1].NBytes()
}

func (sparseEncoding) MarshalMetadata(a *Array) []byte {
	m := a.md.(sparseMeta)
	var w metabuf.Writer
	w.Uvarint(m.indexOffset)
	scalar.Write(&w, m.fill)
	return w.Finish()
}

func (sparseEncoding) Build(p Parts) (*Array, error) {
	if len(p.Buffers) != 0 || len(p.Children) != 2 {
		return nil, InvalidArgumentf("sparse array with %d buffers and %d children",
			errors.Safe(len(p.Buffers)), errors.Safe(len(p.Children)))
	}
	if !p.Children[1].DType().Equal(p.DType) {
		return nil, TypeMismatchf("sparse values %s for dtype %s", p.Children[1].DType(), p.DType)
	}
	r := metabuf.NewReader(p.Metadata)
	off := r.Uvarint()
	fill, err := scalar.Read(p.DType, r)
	if err != nil {
		return nil, errors.Mark(err, ErrInvalidArgument)
	}
	if err := r.Done(); err != nil {
		return nil, errors.Mark(err, ErrInvalidArgument)
	}
	return NewSparse(p.Children[0], p.Children[1], fill, p.Len, off)
}

func (sparseEncoding) ScalarAt(a *Array, i int) (scalar.Scalar, error) {
	m := a.md.(sparseMeta)
	if j, ok := m.search(i); ok {
		return ScalarAt(a.children[1], j)
	}
	return m.fill, nil
}

func (sparseEncoding) Slice(a *Array, start, stop int) (*Array, error) {
	m := a.md.(sparseMeta)
	lo, _ := m.search(start)
	hi, _ := m.search(stop)
	idx, err := Slice(a.children[0], lo, hi)
	if err != nil {
		return nil, err
	}
	vals, err := Slice(a.children[1], lo, hi)
	if err != nil {
		return nil, err
	}
	return New(SparseEncoding, a.dtype, stop-start, sparseMeta{
		indexOffset: m.indexOffset + uint64(start),
		fill:        m.fill,
		indices:     m.indices[lo:hi],
	}, nil, []*Array{idx, vals}), nil
}

func (sparseEncoding) IsValid(a *Array, i int) bool {
	m := a.md.(sparseMeta)
	if j, ok := m.search(i); ok {
		v, err := IsValid(a.children[1], j)
		return err == nil && v
	}
	return !m.fill.IsNull()
}

func (e sparseEncoding) LogicalValidity(a *Array) (Validity, error) {
	c, err := e.Canonicalize(a)
	if err != nil {
		return Validity{}, err
	}
	return canonicalValidity(c), nil
}

func (sparseEncoding) ComputeStat(a *Array, s Stat) (scalar.Scalar, bool) {
	m := a.md.(sparseMeta)
	if s != StatNullCount {
		return scalar.Scalar{}, false
	}
	valueNulls, ok := a.children[1].Statistics().ComputeUint64(StatNullCount)
	if !ok {
		return scalar.Scalar{}, false
	}
	if !m.fill.IsNull() {
		return scalar.Of(valueNulls), true
	}
	return scalar.Of(uint64(a.length-len(m.indices)) + valueNulls), true
}

// ApplyPatches returns a canonical copy of base with the element at each
// position replaced by the corresponding element of values. Values must have
// base's DType, ignoring nullability when base is nullable.
func ApplyPatches(base *Array, positions []uint64, values *Array) (*Array, error) {
	if len(positions) != values.Len() {
		return nil, InvalidArgumentf("%d patch positions for %d values",
			errors.Safe(len(positions)), errors.Safe(values.Len()))
	}
	if len(positions) == 0 {
		return Canonicalize(base)
	}
	base, err := Canonicalize(base)
	if err != nil {
		return nil, err
	}
	vals, err := Canonicalize(values)
	if err != nil {
		return nil, err
	}
	if base.Is(PrimitiveID) && vals.Is(PrimitiveID) &&
		base.dtype.PType() == vals.dtype.PType() {
		return patchPrimitive(base, positions, vals), nil
	}
	scalars := make([]scalar.Scalar, base.length)
	for i := range scalars {
		if scalars[i], err = ScalarAt(base, i); err != nil {
			return nil, err
		}
	}
	for k, p := range positions {
		s, err := ScalarAt(vals, k)
		if err != nil {
			return nil, err
		}
		scalars[p] = s
	}
	return FromScalars(base.dtype, scalars)
}

func patchPrimitive(base *Array, positions []uint64, vals *Array) *Array {
	n := base.length
	w := base.dtype.PType().ByteWidth()
	buf := alignedBytes(n * w)
	copy(buf, base.buffers[0].Bytes()[:n*w])
	src := vals.buffers[0].Bytes()
	for k, p := range positions {
		copy(buf[int(p)*w:int(p+1)*w], src[k*w:(k+1)*w])
	}
	bv := canonicalValidity(base)
	vv := canonicalValidity(vals)
	v := bv
	if vv.kind != NonNullableValidity && vv.kind != AllValid || bv.kind == ArrayValidity || bv.kind == AllInvalid {
		valid := make([]bool, n)
		for i := range valid {
			valid[i] = bv.IsValid(i)
		}
		for k, p := range positions {
			valid[p] = vv.IsValid(k)
		}
		if base.dtype.IsNullable() {
			v = ValidityFromBools(valid)
		}
	}
	return newPrimitiveArray(base.dtype.PType(), NewBuffer(buf), n, v)
}
