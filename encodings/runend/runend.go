// Copyright 2025 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

// Package runend implements run-end encoding: an array is stored as the
// exclusive end position of every run of equal values together with one value
// per run.
//
// The ends child holds absolute positions. Slicing keeps the ends child shared
// and records the logical start of the slice in an offset carried in the
// metadata, so element i of an array lives in the first run whose end exceeds
// offset+i.
package runend

import (
	"sort"

	"github.com/cockroachdb/colenc/array"
	"github.com/cockroachdb/colenc/dtype"
	"github.com/cockroachdb/colenc/internal/invariants"
	"github.com/cockroachdb/colenc/internal/metabuf"
	"github.com/cockroachdb/colenc/scalar"
	"github.com/cockroachdb/errors"
)

// ID identifies the run-end encoding.
const ID array.EncodingID = "colenc.runend"

type meta struct {
	offset uint64
	// ends caches the decoded ends child.
	ends []uint64
}

type encoding struct{}

// Encoding is the run-end encoding.
var Encoding array.Encoding = encoding{}

func init() { array.Register(Encoding) }

// New returns a run-end array of length n. The ends must be a non-nullable
// unsigned integer array of strictly increasing positions, the first greater
// than offset and the last at least offset+n. Values holds one element per run
// and determines the DType of the array.
func New(ends, values *array.Array, offset uint64, n int) (*array.Array, error) {
	if !ends.DType().IsUnsignedInt() || ends.DType().IsNullable() {
		return nil, array.InvalidArgumentf("run ends must be non-nullable unsigned integers, got %s", ends.DType())
	}
	if ends.Len() != values.Len() {
		return nil, array.InvalidArgumentf("%d run ends for %d values",
			errors.Safe(ends.Len()), errors.Safe(values.Len()))
	}
	ce, err := array.Canonicalize(ends)
	if err != nil {
		return nil, err
	}
	e := array.IndicesOf(ce)
	for i := range e {
		if (i == 0 && e[i] <= offset) || (i > 0 && e[i] <= e[i-1]) {
			return nil, array.InvalidArgumentf("run end %d at %d is not increasing past offset %d",
				errors.Safe(e[i]), errors.Safe(i), errors.Safe(offset))
		}
	}
	if n > 0 && (len(e) == 0 || e[len(e)-1] < offset+uint64(n)) {
		return nil, array.InvalidArgumentf("runs do not cover %d elements from offset %d",
			errors.Safe(n), errors.Safe(offset))
	}
	return newRunEnd(ends, values, offset, n, e), nil
}

func newRunEnd(ends, values *array.Array, offset uint64, n int, e []uint64) *array.Array {
	return array.New(Encoding, values.DType(), n, meta{offset: offset, ends: e},
		nil, []*array.Array{ends, values})
}

// Ends returns the ends child of a run-end array.
func Ends(a *array.Array) *array.Array { return a.Child(0) }

// Values returns the values child of a run-end array.
func Values(a *array.Array) *array.Array { return a.Child(1) }

// Offset returns the logical offset of a run-end array into its ends.
func Offset(a *array.Array) uint64 { return a.Meta().(meta).offset }

// Encode run-end encodes a. Adjacent elements that are equal, including
// adjacent nulls, share a run.
func Encode(a *array.Array) (*array.Array, error) {
	c, err := array.Canonicalize(a)
	if err != nil {
		return nil, err
	}
	n := c.Len()
	var ends []uint64
	var starts []uint64
	if c.Is(array.PrimitiveID) {
		raw := array.RawValues(c)
		v := array.PrimitiveValidity(c)
		for i := 0; i < n; i++ {
			if i == 0 || v.IsValid(i) != v.IsValid(i-1) || (v.IsValid(i) && raw[i] != raw[i-1]) {
				if i > 0 {
					ends = append(ends, uint64(i))
				}
				starts = append(starts, uint64(i))
			}
		}
	} else {
		var prev scalar.Scalar
		for i := 0; i < n; i++ {
			s, err := array.ScalarAt(c, i)
			if err != nil {
				return nil, err
			}
			if i == 0 || !s.Equal(prev) {
				if i > 0 {
					ends = append(ends, uint64(i))
				}
				starts = append(starts, uint64(i))
			}
			prev = s
		}
	}
	if n > 0 {
		ends = append(ends, uint64(n))
	}
	values, err := array.Take(c, array.FromSlice(starts))
	if err != nil {
		return nil, err
	}
	return newRunEnd(narrowEnds(ends, uint64(n)), values, 0, n, ends), nil
}

// narrowEnds returns ends as an array of the narrowest unsigned type holding
// max.
func narrowEnds(ends []uint64, max uint64) *array.Array {
	return array.PrimitiveFromRaw(dtype.MinUnsignedFor(max), ends, array.ValidityNonNullable())
}

// find returns the index of the run holding element i.
func (m meta) find(i int) int {
	target := m.offset + uint64(i)
	return sort.Search(len(m.ends), func(k int) bool { return m.ends[k] > target })
}

// runBounds returns the logical range of run j of an array of length n.
func (m meta) runBounds(j, n int) (start, stop int) {
	if j > 0 {
		start = int(max(m.ends[j-1], m.offset) - m.offset)
	}
	stop = int(min(invariants.SafeSub(m.ends[j], m.offset), uint64(n)))
	return start, stop
}

// physicalIndices returns, for each logical element, the index of its run.
func physicalIndices(a *array.Array) []uint64 {
	m := a.Meta().(meta)
	out := make([]uint64, a.Len())
	for j := range m.ends {
		start, stop := m.runBounds(j, a.Len())
		for i := start; i < stop; i++ {
			out[i] = uint64(j)
		}
	}
	return out
}

func (encoding) ID() array.EncodingID { return ID }

func (encoding) Canonicalize(a *array.Array) (*array.Array, error) {
	if a.Len() == 0 {
		empty, err := array.Slice(Values(a), 0, 0)
		if err != nil {
			return nil, err
		}
		return array.Canonicalize(empty)
	}
	t, err := array.Take(Values(a), array.FromSlice(physicalIndices(a)))
	if err != nil {
		return nil, err
	}
	return array.Canonicalize(t)
}

func (encoding) MarshalMetadata(a *array.Array) []byte {
	var w metabuf.Writer
	w.Uvarint(a.Meta().(meta).offset)
	return w.Finish()
}

func (encoding) Build(p array.Parts) (*array.Array, error) {
	if len(p.Buffers) != 0 || len(p.Children) != 2 {
		return nil, array.InvalidArgumentf("run-end array with %d buffers and %d children",
			errors.Safe(len(p.Buffers)), errors.Safe(len(p.Children)))
	}
	if !p.Children[1].DType().Equal(p.DType) {
		return nil, array.TypeMismatchf("run-end values %s for dtype %s", p.Children[1].DType(), p.DType)
	}
	r := metabuf.NewReader(p.Metadata)
	off := r.Uvarint()
	if err := r.Done(); err != nil {
		return nil, errors.Mark(err, array.ErrInvalidArgument)
	}
	return New(p.Children[0], p.Children[1], off, p.Len)
}

func (encoding) ScalarAt(a *array.Array, i int) (scalar.Scalar, error) {
	return array.ScalarAt(Values(a), a.Meta().(meta).find(i))
}

func (encoding) Slice(a *array.Array, start, stop int) (*array.Array, error) {
	m := a.Meta().(meta)
	lo := m.find(start)
	hi := lo
	if stop > start {
		hi = m.find(stop-1) + 1
	}
	ends, err := array.Slice(Ends(a), lo, hi)
	if err != nil {
		return nil, err
	}
	values, err := array.Slice(Values(a), lo, hi)
	if err != nil {
		return nil, err
	}
	return newRunEnd(ends, values, m.offset+uint64(start), stop-start, m.ends[lo:hi]), nil
}

func (encoding) Take(a *array.Array, indices *array.Array) (*array.Array, error) {
	m := a.Meta().(meta)
	iv := array.PrimitiveValidity(indices)
	idx := array.IndicesOf(indices)
	phys := make([]uint64, len(idx))
	for k, i := range idx {
		if iv.IsValid(k) {
			phys[k] = uint64(m.find(int(i)))
		}
	}
	return array.Take(Values(a), array.PrimitiveFromRaw(dtype.U64, phys, iv))
}

// Filter keeps the result run-end encoded: consecutive kept elements of the
// same run form one run of the result.
func (encoding) Filter(a *array.Array, mask *array.Array) (*array.Array, error) {
	m := a.Meta().(meta)
	var ends, runs []uint64
	n := 0
	for _, i := range array.SetIndices(mask) {
		j := uint64(m.find(i))
		if len(runs) == 0 || runs[len(runs)-1] != j {
			if n > 0 {
				ends = append(ends, uint64(n))
			}
			runs = append(runs, j)
		}
		n++
	}
	ends = append(ends, uint64(n))
	values, err := array.Take(Values(a), array.FromSlice(runs))
	if err != nil {
		return nil, err
	}
	return newRunEnd(narrowEnds(ends, uint64(n)), values, 0, n, ends), nil
}

func (encoding) CompareScalar(
	a *array.Array, s scalar.Scalar, op array.Operator,
) (*array.Array, error) {
	m := a.Meta().(meta)
	values, err := array.CompareScalar(Values(a), s, op)
	if err != nil {
		return nil, err
	}
	return newRunEnd(Ends(a), values, m.offset, a.Len(), m.ends), nil
}

func (encoding) SearchSorted(a *array.Array, v scalar.Scalar, side array.SearchSide) (int, error) {
	m := a.Meta().(meta)
	j, err := array.SearchSorted(Values(a), v, side)
	if err != nil || j == 0 {
		return 0, err
	}
	_, stop := m.runBounds(j-1, a.Len())
	return stop, nil
}

func (encoding) IsValid(a *array.Array, i int) bool {
	ok, err := array.IsValid(Values(a), a.Meta().(meta).find(i))
	return err == nil && ok
}

func (e encoding) LogicalValidity(a *array.Array) (array.Validity, error) {
	if nulls, ok := Values(a).Statistics().ComputeUint64(array.StatNullCount); ok && nulls == 0 {
		return array.ValidityAllValid(), nil
	}
	c, err := e.Canonicalize(a)
	if err != nil {
		return array.Validity{}, err
	}
	return array.LogicalValidity(c)
}

func (encoding) ComputeStat(a *array.Array, s array.Stat) (scalar.Scalar, bool) {
	m := a.Meta().(meta)
	values := Values(a)
	switch s {
	case array.StatIsConstant, array.StatIsSorted, array.StatRunCount,
		array.StatMin, array.StatMax:
		// Every run holds at least one element, so these follow from the values.
		return values.Statistics().Compute(s)
	case array.StatIsStrictSorted:
		if len(m.ends) != a.Len() {
			return array.BoolScalar(false), true
		}
		return values.Statistics().Compute(s)
	case array.StatNullCount, array.StatTrueCount:
		if s == array.StatTrueCount && !a.DType().IsBool() {
			return scalar.Scalar{}, false
		}
		count := 0
		for j := range m.ends {
			sv, err := array.ScalarAt(values, j)
			if err != nil {
				return scalar.Scalar{}, false
			}
			hit := sv.IsNull()
			if s == array.StatTrueCount {
				b, ok := sv.AsBool()
				hit = ok && b
			}
			if hit {
				start, stop := m.runBounds(j, a.Len())
				count += stop - start
			}
		}
		return array.CountScalar(count), true
	}
	return scalar.Scalar{}, false
}
