// Copyright 2025 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package array

import (
	"sort"

	"github.com/cockroachdb/colenc/dtype"
	"github.com/cockroachdb/colenc/scalar"
	"github.com/cockroachdb/errors"
)

// ChunkedID identifies the chunked encoding: a sequence of child arrays of the
// same DType, concatenated logically.
const ChunkedID EncodingID = "colenc.chunked"

type chunkedMeta struct {
	// ends[i] is the logical end offset of chunk i.
	ends []int
}

type chunkedEncoding struct{}

// ChunkedEncoding is the chunked encoding.
var ChunkedEncoding Encoding = chunkedEncoding{}

func init() { Register(ChunkedEncoding) }

// NewChunked returns a chunked array of DType dt. Every chunk must have DType
// dt.
func NewChunked(dt dtype.DType, chunks []*Array) (*Array, error) {
	ends := make([]int, len(chunks))
	n := 0
	for i, c := range chunks {
		if !c.DType().Equal(dt) {
			return nil, TypeMismatchf("chunk %d has dtype %s, expected %s", errors.Safe(i), c.DType(), dt)
		}
		n += c.Len()
		ends[i] = n
	}
	return New(ChunkedEncoding, dt, n, chunkedMeta{ends: ends}, nil, chunks), nil
}

// Chunks returns the chunks of a chunked array.
func Chunks(a *Array) []*Array {
	mustBeOfEncoding(a, ChunkedID)
	return a.children
}

// findChunk returns the chunk holding element i and the index within it.
func findChunk(a *Array, i int) (chunk, j int) {
	ends := a.md.(chunkedMeta).ends
	chunk = sort.Search(len(ends), func(k int) bool { return ends[k] > i })
	if chunk > 0 {
		return chunk, i - ends[chunk-1]
	}
	return chunk, i
}

func chunkStart(a *Array, chunk int) int {
	if chunk == 0 {
		return 0
	}
	return a.md.(chunkedMeta).ends[chunk-1]
}

func (chunkedEncoding) ID() EncodingID { return ChunkedID }

func (chunkedEncoding) Canonicalize(a *Array) (*Array, error) {
	return Concat(a.dtype, a.children)
}

func (chunkedEncoding) MarshalMetadata(*Array) []byte { return nil }

func (chunkedEncoding) Build(p Parts) (*Array, error) {
	if len(p.Buffers) != 0 || len(p.Metadata) != 0 {
		return nil, InvalidArgumentf("chunked array with %d buffers", errors.Safe(len(p.Buffers)))
	}
	a, err := NewChunked(p.DType, p.Children)
	if err != nil {
		return nil, err
	}
	if a.Len() != p.Len {
		return nil, InvalidArgumentf("chunks hold %d elements, expected %d", errors.Safe(a.Len()), errors.Safe(p.Len))
	}
	return a, nil
}

func (chunkedEncoding) ScalarAt(a *Array, i int) (scalar.Scalar, error) {
	c, j := findChunk(a, i)
	return ScalarAt(a.children[c], j)
}

func (chunkedEncoding) Slice(a *Array, start, stop int) (*Array, error) {
	var out []*Array
	for c, chunk := range a.children {
		cs := chunkStart(a, c)
		ce := cs + chunk.Len()
		if ce <= start || cs >= stop || chunk.Len() == 0 {
			continue
		}
		s, err := Slice(chunk, max(start, cs)-cs, min(stop, ce)-cs)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return NewChunked(a.dtype, out)
}

// Take groups consecutive indices that fall into the same chunk and gathers
// each group from its chunk.
func (chunkedEncoding) Take(a *Array, indices *Array) (*Array, error) {
	idx := IndicesOf(indices)
	iv := canonicalValidity(indices)
	if iv.NullCount(len(idx)) > 0 {
		c, err := Canonicalize(a)
		if err != nil {
			return nil, err
		}
		return Take(c, indices)
	}
	var out []*Array
	for i := 0; i < len(idx); {
		c, _ := findChunk(a, int(idx[i]))
		cs := chunkStart(a, c)
		ce := cs + a.children[c].Len()
		j := i
		local := make([]uint64, 0)
		for j < len(idx) && int(idx[j]) >= cs && int(idx[j]) < ce {
			local = append(local, idx[j]-uint64(cs))
			j++
		}
		t, err := Take(a.children[c], FromSlice(local))
		if err != nil {
			return nil, err
		}
		out = append(out, t)
		i = j
	}
	return NewChunked(a.dtype, out)
}

func (chunkedEncoding) Filter(a *Array, mask *Array) (*Array, error) {
	var out []*Array
	for c, chunk := range a.children {
		cs := chunkStart(a, c)
		m := sliceBool(mask, cs, cs+chunk.Len())
		if trueCountOf(m) == 0 {
			continue
		}
		f, err := Filter(chunk, m)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return NewChunked(a.dtype, out)
}

func (chunkedEncoding) CompareScalar(a *Array, s scalar.Scalar, op Operator) (*Array, error) {
	out := make([]*Array, len(a.children))
	for i, chunk := range a.children {
		c, err := CompareScalar(chunk, s, op)
		if err != nil {
			return nil, err
		}
		out[i] = c
	}
	return NewChunked(compareResultDType(a.dtype, s), out)
}

func (chunkedEncoding) ComputeStat(a *Array, s Stat) (scalar.Scalar, bool) {
	switch s {
	case StatNullCount, StatTrueCount:
		var n uint64
		for _, c := range a.children {
			v, ok := c.Statistics().ComputeUint64(s)
			if !ok {
				return scalar.Scalar{}, false
			}
			n += v
		}
		return scalar.Of(n), true
	case StatMin, StatMax:
		var best scalar.Scalar
		found := false
		for _, c := range a.children {
			v, ok := c.Statistics().Compute(s)
			if !ok {
				continue
			}
			if !found || (s == StatMin && v.Less(best)) || (s == StatMax && best.Less(v)) {
				best, found = v, true
			}
		}
		return best, found
	}
	return scalar.Scalar{}, false
}
