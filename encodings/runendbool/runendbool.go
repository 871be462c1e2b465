// Copyright 2025 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

// Package runendbool implements run-end encoding specialized for booleans.
// Consecutive runs alternate between true and false, so only the run ends and
// the value of the first run are stored.
package runendbool

import (
	"sort"

	"github.com/apache/arrow-go/v18/arrow/bitutil"
	"github.com/cockroachdb/colenc/array"
	"github.com/cockroachdb/colenc/dtype"
	"github.com/cockroachdb/colenc/internal/metabuf"
	"github.com/cockroachdb/colenc/scalar"
	"github.com/cockroachdb/errors"
)

// ID identifies the boolean run-end encoding.
const ID array.EncodingID = "colenc.runend_bool"

type meta struct {
	offset   uint64
	start    bool
	validity array.Validity
	ends     []uint64
}

type encoding struct{}

// Encoding is the boolean run-end encoding.
var Encoding array.Encoding = encoding{}

func init() { array.Register(Encoding) }

// New returns a boolean run-end array of length n whose first run holds start.
// The ends follow the rules of the run-end encoding: strictly increasing
// non-nullable unsigned positions, the first past offset and the last at least
// offset+n.
func New(ends *array.Array, start bool, offset uint64, n int, v array.Validity) (*array.Array, error) {
	if !ends.DType().IsUnsignedInt() || ends.DType().IsNullable() {
		return nil, array.InvalidArgumentf("run ends must be non-nullable unsigned integers, got %s", ends.DType())
	}
	if err := array.CheckValidity(v, v.Nullability(), n); err != nil {
		return nil, err
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
	return newRunEndBool(ends, meta{offset: offset, start: start, validity: v, ends: e}, n), nil
}

func newRunEndBool(ends *array.Array, m meta, n int) *array.Array {
	children := append([]*array.Array{ends}, m.validity.Children()...)
	return array.New(Encoding, dtype.Bool(m.validity.Nullability()), n, m, nil, children)
}

// Ends returns the ends child.
func Ends(a *array.Array) *array.Array { return a.Child(0) }

// Start returns the value of the first run.
func Start(a *array.Array) bool { return a.Meta().(meta).start }

// Encode run-end encodes a bool array. Validity is carried alongside the runs;
// the values under nulls take part in the runs as stored.
func Encode(a *array.Array) (*array.Array, error) {
	if !a.DType().IsBool() {
		return nil, array.TypeMismatchf("cannot run-end encode %s as bool", a.DType())
	}
	c, err := array.Canonicalize(a)
	if err != nil {
		return nil, err
	}
	v, err := array.LogicalValidity(c)
	if err != nil {
		return nil, err
	}
	vals := array.BoolValues(c)
	var ends []uint64
	for i := 1; i < len(vals); i++ {
		if vals[i] != vals[i-1] {
			ends = append(ends, uint64(i))
		}
	}
	if len(vals) > 0 {
		ends = append(ends, uint64(len(vals)))
	}
	start := len(vals) > 0 && vals[0]
	endsArr := array.PrimitiveFromRaw(dtype.MinUnsignedFor(uint64(len(vals))), ends, array.ValidityNonNullable())
	return newRunEndBool(endsArr, meta{start: start, validity: v, ends: ends}, len(vals)), nil
}

func (m meta) find(i int) int {
	target := m.offset + uint64(i)
	return sort.Search(len(m.ends), func(k int) bool { return m.ends[k] > target })
}

func (m meta) value(j int) bool { return m.start != (j%2 == 1) }

func (m meta) runBounds(j, n int) (start, stop int) {
	if j > 0 {
		start = int(max(m.ends[j-1], m.offset) - m.offset)
	}
	return start, int(min(m.ends[j]-m.offset, uint64(n)))
}

func (encoding) ID() array.EncodingID { return ID }

func (encoding) Canonicalize(a *array.Array) (*array.Array, error) {
	m := a.Meta().(meta)
	n := a.Len()
	buf := make([]byte, bitutil.BytesForBits(int64(n)))
	for j := range m.ends {
		if !m.value(j) {
			continue
		}
		start, stop := m.runBounds(j, n)
		bitutil.SetBitsTo(buf, int64(start), int64(stop-start), true)
	}
	return array.NewBool(array.NewBuffer(buf), 0, n, m.validity)
}

func (encoding) MarshalMetadata(a *array.Array) []byte {
	m := a.Meta().(meta)
	var w metabuf.Writer
	w.Uvarint(m.offset)
	w.Bool(m.start)
	array.WriteValidity(&w, m.validity)
	return w.Finish()
}

func (encoding) Build(p array.Parts) (*array.Array, error) {
	if !p.DType.IsBool() {
		return nil, array.TypeMismatchf("bool run-end array with dtype %s", p.DType)
	}
	if len(p.Buffers) != 0 || len(p.Children) < 1 {
		return nil, array.InvalidArgumentf("bool run-end array with %d buffers and %d children",
			errors.Safe(len(p.Buffers)), errors.Safe(len(p.Children)))
	}
	r := metabuf.NewReader(p.Metadata)
	off := r.Uvarint()
	start := r.Bool()
	v, err := array.ReadValidity(r, p.Children[1:], p.Len)
	if err != nil {
		return nil, errors.Mark(err, array.ErrInvalidArgument)
	}
	if err := r.Done(); err != nil {
		return nil, errors.Mark(err, array.ErrInvalidArgument)
	}
	if len(p.Children) != 1+len(v.Children()) || v.Nullability() != p.DType.Nullability() {
		return nil, array.InvalidArgumentf("bool run-end validity does not match dtype %s", p.DType)
	}
	return New(p.Children[0], start, off, p.Len, v)
}

func (encoding) ScalarAt(a *array.Array, i int) (scalar.Scalar, error) {
	m := a.Meta().(meta)
	if !m.validity.IsValid(i) {
		return scalar.Null(a.DType()), nil
	}
	return scalar.Bool(m.value(m.find(i)), a.DType().Nullability()), nil
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
	return newRunEndBool(ends, meta{
		offset:   m.offset + uint64(start),
		start:    m.value(lo),
		validity: m.validity.Slice(start, stop),
		ends:     m.ends[lo:hi],
	}, stop-start), nil
}

func (encoding) IsValid(a *array.Array, i int) bool {
	return a.Meta().(meta).validity.IsValid(i)
}

func (encoding) LogicalValidity(a *array.Array) (array.Validity, error) {
	return a.Meta().(meta).validity, nil
}

func (encoding) ComputeStat(a *array.Array, s array.Stat) (scalar.Scalar, bool) {
	m := a.Meta().(meta)
	n := a.Len()
	if s == array.StatNullCount {
		return array.CountScalar(m.validity.NullCount(n)), true
	}
	if k := m.validity.Kind(); k == array.ArrayValidity || k == array.AllInvalid {
		return scalar.Scalar{}, false
	}
	runs := len(m.ends)
	switch s {
	case array.StatTrueCount:
		count := 0
		for j := range m.ends {
			if m.value(j) {
				start, stop := m.runBounds(j, n)
				count += stop - start
			}
		}
		return array.CountScalar(count), true
	case array.StatRunCount:
		// Adjacent runs always differ.
		return array.CountScalar(runs), true
	case array.StatIsConstant:
		return array.BoolScalar(runs <= 1), true
	case array.StatIsSorted:
		return array.BoolScalar(runs <= 1 || (runs == 2 && !m.start)), true
	case array.StatIsStrictSorted:
		return array.BoolScalar(n <= 1 || (n == 2 && runs == 2 && !m.start)), true
	case array.StatMin, array.StatMax:
		if n == 0 {
			return scalar.Scalar{}, false
		}
		v := m.start
		if runs > 1 {
			v = s == array.StatMax
		}
		return scalar.Bool(v, a.DType().Nullability()), true
	}
	return scalar.Scalar{}, false
}
