// Copyright 2025 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package array

import (
	"sort"

	"github.com/apache/arrow-go/v18/arrow/bitutil"
	"github.com/cockroachdb/colenc/dtype"
	"github.com/cockroachdb/colenc/internal/invariants"
	"github.com/cockroachdb/colenc/scalar"
	"github.com/cockroachdb/errors"
)

// Canonicalize returns an equivalent array in a canonical encoding. Canonical
// arrays are returned as is.
func Canonicalize(a *Array) (*Array, error) {
	if a.IsCanonical() {
		return a, nil
	}
	c, err := a.enc.Canonicalize(a)
	if err != nil {
		return nil, errors.Wrapf(err, "canonicalizing %s", a.enc.ID())
	}
	if !c.IsCanonical() || c.length != a.length || !c.dtype.Equal(a.dtype) {
		panic(errors.AssertionFailedf("%s canonicalized to %s(%s, len=%d), expected dtype %s len %d",
			a.enc.ID(), c.enc.ID(), c.dtype, c.length, a.dtype, a.length))
	}
	return c, nil
}

// canonicalFallback canonicalizes a for an operation its encoding has no
// kernel for. A canonical encoding missing a kernel is a bug.
func canonicalFallback(a *Array, op string) (*Array, error) {
	if a.IsCanonical() {
		panic(errors.AssertionFailedf("canonical encoding %s lacks %s", a.enc.ID(), errors.Safe(op)))
	}
	return Canonicalize(a)
}

// ScalarAt returns element i of a.
func ScalarAt(a *Array, i int) (scalar.Scalar, error) {
	if err := checkIndex(i, a.length); err != nil {
		return scalar.Scalar{}, err
	}
	if f, ok := a.enc.(ScalarAtFn); ok {
		return f.ScalarAt(a, i)
	}
	c, err := canonicalFallback(a, "scalar_at")
	if err != nil {
		return scalar.Scalar{}, err
	}
	return ScalarAt(c, i)
}

// Slice returns elements [start, stop) of a.
func Slice(a *Array, start, stop int) (*Array, error) {
	if err := checkRange(start, stop, a.length); err != nil {
		return nil, err
	}
	if start == 0 && stop == a.length {
		return a, nil
	}
	if f, ok := a.enc.(SliceFn); ok {
		return f.Slice(a, start, stop)
	}
	c, err := canonicalFallback(a, "slice")
	if err != nil {
		return nil, err
	}
	return Slice(c, start, stop)
}

// Take gathers the elements of a at the given indices, which must be an
// integer array. Null indices produce nulls, and a nullable index array makes
// the result nullable.
func Take(a *Array, indices *Array) (*Array, error) {
	if !indices.DType().IsInt() {
		return nil, TypeMismatchf("take indices must be integers, got %s", indices.DType())
	}
	indices, err := Canonicalize(indices)
	if err != nil {
		return nil, err
	}
	iv := canonicalValidity(indices)
	for i, j := range IndicesOf(indices) {
		if j >= uint64(a.length) && iv.IsValid(i) {
			if indices.DType().IsSignedInt() && int64(j) < 0 {
				return nil, OutOfBoundsf("negative take index %d", errors.Safe(int64(j)))
			}
			return nil, OutOfBoundsf("take index %d out of bounds [0, %d)", errors.Safe(j), errors.Safe(a.length))
		}
	}
	want := a.dtype
	if indices.DType().IsNullable() {
		want = want.AsNullable()
	}
	var out *Array
	takeFn, hasTake := a.enc.(TakeFn)
	switch {
	case indices.Len() == 0:
		if out, err = Slice(a, 0, 0); err != nil {
			return nil, err
		}
	case hasTake:
		if out, err = takeFn.Take(a, indices); err != nil {
			return nil, err
		}
	default:
		c, err := canonicalFallback(a, "take")
		if err != nil {
			return nil, err
		}
		return Take(c, indices)
	}
	if !out.dtype.Equal(want) {
		if invariants.Enabled && !out.dtype.EqualIgnoringNullability(want) {
			panic(errors.AssertionFailedf("take on %s returned %s", a.enc.ID(), out.dtype))
		}
		return Cast(out, want)
	}
	return out, nil
}

// Filter returns the elements of a where mask, a bool array of the same
// length, is true. Null mask entries are treated as false.
func Filter(a *Array, mask *Array) (*Array, error) {
	if !mask.DType().IsBool() {
		return nil, TypeMismatchf("filter mask must be bool, got %s", mask.DType())
	}
	if mask.Len() != a.length {
		return nil, InvalidArgumentf("filter mask of length %d for array of length %d",
			errors.Safe(mask.Len()), errors.Safe(a.length))
	}
	m, err := normalizeMask(mask)
	if err != nil {
		return nil, err
	}
	switch trueCountOf(m) {
	case a.length:
		return a, nil
	case 0:
		return Slice(a, 0, 0)
	}
	if f, ok := a.enc.(FilterFn); ok {
		return f.Filter(a, m)
	}
	c, err := canonicalFallback(a, "filter")
	if err != nil {
		return nil, err
	}
	return Filter(c, m)
}

// normalizeMask returns a canonical non-nullable bool array equivalent to
// mask with nulls treated as false.
func normalizeMask(mask *Array) (*Array, error) {
	m, err := Canonicalize(mask)
	if err != nil {
		return nil, err
	}
	v := canonicalValidity(m)
	switch v.kind {
	case NonNullableValidity:
		return m, nil
	case AllValid:
		bm, off := BoolBitmap(m)
		return newBoolArray(NewBuffer(bm), off, m.length, ValidityNonNullable()), nil
	}
	out := make([]byte, bitutil.BytesForBits(int64(m.length)))
	for i := 0; i < m.length; i++ {
		if v.IsValid(i) && boolValue(m, i) {
			bitutil.SetBit(out, i)
		}
	}
	return BoolFromBitmap(out, m.length), nil
}

// CompareScalar compares every element of a with s. The result is a bool
// array, nullable if a is nullable or s is null; null elements compare to
// null.
func CompareScalar(a *Array, s scalar.Scalar, op Operator) (*Array, error) {
	if err := checkComparable(a.dtype, s); err != nil {
		return nil, err
	}
	if s.IsNull() && s.DType().Kind() == dtype.KindNull {
		s = scalar.Null(a.dtype)
	}
	want := compareResultDType(a.dtype, s)
	var out *Array
	if f, ok := a.enc.(CompareFn); ok {
		r, err := f.CompareScalar(a, s, op)
		if err != nil {
			return nil, err
		}
		out = r
	}
	if out == nil {
		c, err := Canonicalize(a)
		if err != nil {
			return nil, err
		}
		r, err := compareCanonical(c, s, op)
		if err != nil {
			return nil, err
		}
		out = r
	}
	if !out.dtype.Equal(want) {
		return Cast(out, want)
	}
	return out, nil
}

// Compare compares a and b element-wise. Both must have the same length and
// DType, ignoring nullability.
func Compare(a, b *Array, op Operator) (*Array, error) {
	if a.length != b.length {
		return nil, InvalidArgumentf("comparing arrays of length %d and %d",
			errors.Safe(a.length), errors.Safe(b.length))
	}
	if !a.dtype.EqualIgnoringNullability(b.dtype) {
		return nil, TypeMismatchf("cannot compare %s with %s", a.dtype, b.dtype)
	}
	if b.Is(ConstantID) {
		return CompareScalar(a, ConstantScalar(b), op)
	}
	if a.Is(ConstantID) {
		return CompareScalar(b, ConstantScalar(a), op.Swap())
	}
	if err := checkComparable(a.dtype, scalar.Null(b.dtype)); err != nil {
		return nil, err
	}
	ca, err := Canonicalize(a)
	if err != nil {
		return nil, err
	}
	cb, err := Canonicalize(b)
	if err != nil {
		return nil, err
	}
	nullable := a.dtype.IsNullable() || b.dtype.IsNullable()
	vals := make([]byte, bitutil.BytesForBits(int64(a.length)))
	valid := make([]bool, a.length)
	nulls := 0
	for i := 0; i < a.length; i++ {
		sa, err := ScalarAt(ca, i)
		if err != nil {
			return nil, err
		}
		sb, err := ScalarAt(cb, i)
		if err != nil {
			return nil, err
		}
		if sa.IsNull() || sb.IsNull() {
			nulls++
			continue
		}
		valid[i] = true
		c, err := sa.Compare(sb)
		if err != nil {
			return nil, err
		}
		if op.Eval(c) {
			bitutil.SetBit(vals, i)
		}
	}
	v := ValidityNonNullable()
	if nullable {
		v = ValidityAllValid()
		if nulls > 0 {
			v = ValidityFromBools(valid)
		}
	}
	return newBoolArray(NewBuffer(vals), 0, a.length, v), nil
}

// SearchSide selects which end of a run of equal values SearchSorted reports.
type SearchSide uint8

const (
	// SearchLeft returns the first index whose element is >= the value.
	SearchLeft SearchSide = iota
	// SearchRight returns the first index whose element is > the value.
	SearchRight
)

// SearchSorted returns the insertion point of v in a, whose elements must be
// sorted with nulls last.
func SearchSorted(a *Array, v scalar.Scalar, side SearchSide) (int, error) {
	if !a.dtype.EqualIgnoringNullability(v.DType()) {
		return 0, TypeMismatchf("cannot search %s in %s", v.DType(), a.dtype)
	}
	if f, ok := a.enc.(SearchSortedFn); ok {
		return f.SearchSorted(a, v, side)
	}
	var searchErr error
	i := sort.Search(a.length, func(i int) bool {
		s, err := ScalarAt(a, i)
		if err != nil {
			searchErr = err
			return true
		}
		c, err := s.Compare(v)
		if err != nil {
			searchErr = err
			return true
		}
		if side == SearchLeft {
			return c >= 0
		}
		return c > 0
	})
	return i, searchErr
}
