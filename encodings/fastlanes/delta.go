// Copyright 2025 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package fastlanes

import (
	"github.com/cockroachdb/colenc/array"
	"github.com/cockroachdb/colenc/dtype"
	"github.com/cockroachdb/colenc/internal/metabuf"
	"github.com/cockroachdb/colenc/scalar"
	"github.com/cockroachdb/errors"
)

// DeltaID identifies the delta encoding. Values are split into blocks of
// DeltaBlockSize. Each block stores its first value in the bases child and the
// wrapping difference of each value from its predecessor in the deltas child;
// the delta at the start of a block is zero.
const DeltaID array.EncodingID = "fastlanes.delta"

// DeltaBlockSize is the number of values sharing a base.
const DeltaBlockSize = 1024

type deltaMeta struct {
	// offset is the position of the first element within the first block.
	offset   int
	validity array.Validity
}

type deltaEncoding struct{}

// DeltaEncoding is the delta encoding.
var DeltaEncoding array.Encoding = deltaEncoding{}

func init() { array.Register(DeltaEncoding) }

// NewDelta returns a delta array of n values starting at position offset of
// the first block. Bases and deltas must be non-nullable and of the same
// unsigned type; there must be one base per block of deltas.
func NewDelta(bases, deltas *array.Array, offset, n int, v array.Validity) (*array.Array, error) {
	dt := bases.DType()
	if !dt.IsUnsignedInt() || dt.IsNullable() || !deltas.DType().Equal(dt) {
		return nil, array.TypeMismatchf("delta bases %s and deltas %s must be the same non-nullable unsigned type",
			dt, deltas.DType())
	}
	if offset < 0 || (n > 0 && offset >= DeltaBlockSize) || deltas.Len() < offset+n {
		return nil, array.InvalidArgumentf("%d deltas cannot hold %d values at offset %d",
			errors.Safe(deltas.Len()), errors.Safe(n), errors.Safe(offset))
	}
	if blocks := numBlocks(deltas.Len()); bases.Len() != blocks {
		return nil, array.InvalidArgumentf("%d bases for %d blocks", errors.Safe(bases.Len()), errors.Safe(blocks))
	}
	if err := array.CheckValidity(v, v.Nullability(), n); err != nil {
		return nil, err
	}
	return newDelta(bases, deltas, n, deltaMeta{offset: offset, validity: v}), nil
}

func newDelta(bases, deltas *array.Array, n int, m deltaMeta) *array.Array {
	children := append([]*array.Array{bases, deltas}, m.validity.Children()...)
	dt := dtype.Primitive(bases.DType().PType(), m.validity.Nullability())
	return array.New(DeltaEncoding, dt, n, m, nil, children)
}

func numBlocks(n int) int { return (n + DeltaBlockSize - 1) / DeltaBlockSize }

// Bases returns the bases child of a delta array.
func Bases(a *array.Array) *array.Array { return a.Child(0) }

// Deltas returns the deltas child of a delta array.
func Deltas(a *array.Array) *array.Array { return a.Child(1) }

// Delta encodes an unsigned integer array. Null elements repeat the preceding
// value of their block so that they contribute a zero delta.
func Delta(a *array.Array) (*array.Array, error) {
	if !a.DType().IsUnsignedInt() {
		return nil, array.TypeMismatchf("cannot delta encode %s", a.DType())
	}
	c, err := array.Canonicalize(a)
	if err != nil {
		return nil, err
	}
	p := a.DType().PType()
	mask := widthMask(p)
	v := array.PrimitiveValidity(c)
	raw := array.RawValues(c)
	bases := make([]uint64, numBlocks(len(raw)))
	var prev uint64
	for i, x := range raw {
		if i%DeltaBlockSize == 0 {
			prev = 0
			if v.IsValid(i) {
				prev = x
			}
			bases[i/DeltaBlockSize] = prev
			raw[i] = 0
			continue
		}
		if !v.IsValid(i) {
			raw[i] = 0
			continue
		}
		raw[i] = (x - prev) & mask
		prev = x
	}
	return newDelta(
		array.PrimitiveFromRaw(p, bases, array.ValidityNonNullable()),
		array.PrimitiveFromRaw(p, raw, array.ValidityNonNullable()),
		len(raw), deltaMeta{validity: v},
	), nil
}

func (deltaEncoding) ID() array.EncodingID { return DeltaID }

func (deltaEncoding) Canonicalize(a *array.Array) (*array.Array, error) {
	m := a.Meta().(deltaMeta)
	p := a.DType().PType()
	cb, err := array.Canonicalize(Bases(a))
	if err != nil {
		return nil, err
	}
	cd, err := array.Canonicalize(Deltas(a))
	if err != nil {
		return nil, err
	}
	bases, deltas := array.RawValues(cb), array.RawValues(cd)
	mask := widthMask(p)
	var cur uint64
	for i := range deltas[:m.offset+a.Len()] {
		if i%DeltaBlockSize == 0 {
			cur = bases[i/DeltaBlockSize]
		} else {
			cur = (cur + deltas[i]) & mask
		}
		deltas[i] = cur
	}
	return array.PrimitiveFromRaw(p, deltas[m.offset:m.offset+a.Len()], m.validity), nil
}

func (deltaEncoding) MarshalMetadata(a *array.Array) []byte {
	m := a.Meta().(deltaMeta)
	var w metabuf.Writer
	w.Uvarint(uint64(m.offset))
	array.WriteValidity(&w, m.validity)
	return w.Finish()
}

func (deltaEncoding) Build(p array.Parts) (*array.Array, error) {
	if len(p.Buffers) != 0 || len(p.Children) < 2 {
		return nil, array.InvalidArgumentf("delta array with %d buffers and %d children",
			errors.Safe(len(p.Buffers)), errors.Safe(len(p.Children)))
	}
	r := metabuf.NewReader(p.Metadata)
	offset := int(r.Uvarint())
	v, err := array.ReadValidity(r, p.Children[2:], p.Len)
	if err != nil {
		return nil, errors.Mark(err, array.ErrInvalidArgument)
	}
	if err := r.Done(); err != nil {
		return nil, errors.Mark(err, array.ErrInvalidArgument)
	}
	if len(p.Children) != 2+len(v.Children()) || v.Nullability() != p.DType.Nullability() {
		return nil, array.InvalidArgumentf("delta validity does not match dtype %s", p.DType)
	}
	a, err := NewDelta(p.Children[0], p.Children[1], offset, p.Len, v)
	if err != nil {
		return nil, err
	}
	if !a.DType().Equal(p.DType) {
		return nil, array.TypeMismatchf("delta array of %s with dtype %s", a.DType(), p.DType)
	}
	return a, nil
}

// ScalarAt sums the deltas from the start of the element's block.
func (deltaEncoding) ScalarAt(a *array.Array, i int) (scalar.Scalar, error) {
	m := a.Meta().(deltaMeta)
	if !m.validity.IsValid(i) {
		return scalar.Null(a.DType()), nil
	}
	pos := m.offset + i
	block := pos / DeltaBlockSize
	base, err := array.ScalarAt(Bases(a), block)
	if err != nil {
		return scalar.Scalar{}, err
	}
	pv, _ := base.AsPValue()
	cur := pv.StorageBits()
	if start := block * DeltaBlockSize; pos > start {
		d, err := array.Slice(Deltas(a), start+1, pos+1)
		if err != nil {
			return scalar.Scalar{}, err
		}
		if d, err = array.Canonicalize(d); err != nil {
			return scalar.Scalar{}, err
		}
		for _, x := range array.RawValues(d) {
			cur += x
		}
	}
	p := a.DType().PType()
	return scalar.Primitive(scalar.PValueFromBits(p, cur&widthMask(p)), a.DType().Nullability()), nil
}

// Slice keeps the blocks overlapping [start, stop).
func (deltaEncoding) Slice(a *array.Array, start, stop int) (*array.Array, error) {
	m := a.Meta().(deltaMeta)
	bases, deltas := Bases(a), Deltas(a)
	lo := (m.offset + start) / DeltaBlockSize
	hi := lo
	if stop > start {
		hi = numBlocks(m.offset + stop)
	}
	nb, err := array.Slice(bases, lo, hi)
	if err != nil {
		return nil, err
	}
	nd, err := array.Slice(deltas, lo*DeltaBlockSize, min(hi*DeltaBlockSize, deltas.Len()))
	if err != nil {
		return nil, err
	}
	out := deltaMeta{validity: m.validity.Slice(start, stop)}
	if stop > start {
		out.offset = m.offset + start - lo*DeltaBlockSize
	}
	return newDelta(nb, nd, stop-start, out), nil
}

func (deltaEncoding) IsValid(a *array.Array, i int) bool {
	return a.Meta().(deltaMeta).validity.IsValid(i)
}

func (deltaEncoding) LogicalValidity(a *array.Array) (array.Validity, error) {
	return a.Meta().(deltaMeta).validity, nil
}

func (deltaEncoding) ComputeStat(a *array.Array, s array.Stat) (scalar.Scalar, bool) {
	if s == array.StatNullCount {
		return array.CountScalar(a.Meta().(deltaMeta).validity.NullCount(a.Len())), true
	}
	return scalar.Scalar{}, false
}
