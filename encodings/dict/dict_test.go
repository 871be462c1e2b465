// Copyright 2025 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package dict

import (
	"fmt"
	"testing"

	"github.com/cockroachdb/colenc/array"
	"github.com/cockroachdb/colenc/dtype"
	"github.com/cockroachdb/colenc/scalar"
	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/rand"
)

func TestEncodePrimitive(t *testing.T) {
	src := array.FromNullable([]int32{7, 3, 7, 0, 3, 9}, []bool{true, true, true, false, true, true})
	d, err := Encode(src)
	require.NoError(t, err)
	require.Equal(t, ID, d.EncodingID())
	require.Equal(t, src.DType(), d.DType())
	require.Equal(t, dtype.Primitive(dtype.U8, dtype.Nullable), Codes(d).DType())

	vals, err := array.Canonicalize(Values(d))
	require.NoError(t, err)
	require.Equal(t, []int32{7, 3, 9}, array.PrimitiveValues[int32](vals))

	for i := 0; i < src.Len(); i++ {
		want, err := array.ScalarAt(src, i)
		require.NoError(t, err)
		got, err := array.ScalarAt(d, i)
		require.NoError(t, err)
		require.True(t, want.Equal(got), "%d: %s != %s", i, want, got)
	}
	nulls, ok := d.Statistics().ComputeUint64(array.StatNullCount)
	require.True(t, ok)
	require.Equal(t, uint64(1), nulls)

	rt, err := array.RebuildTree(d)
	require.NoError(t, err)
	require.Equal(t, d.String(), rt.String())
	s, err := array.ScalarAt(rt, 5)
	require.NoError(t, err)
	require.Equal(t, "9", s.String())
}

func TestEncodeStrings(t *testing.T) {
	words := []string{"pear", "apple", "pear", "fig", "apple", "pear"}
	d, err := Encode(array.VarBinFromStrings(words, dtype.NonNullable))
	require.NoError(t, err)
	require.Equal(t, 3, Values(d).Len())
	for i, w := range words {
		s, err := array.ScalarAt(d, i)
		require.NoError(t, err)
		b, _ := s.AsBytes()
		require.Equal(t, w, string(b))
	}

	eq, err := array.CompareScalar(d, scalar.Utf8("pear", dtype.NonNullable), array.OpEq)
	require.NoError(t, err)
	require.Equal(t, ID, eq.EncodingID())
	tc, ok := eq.Statistics().ComputeUint64(array.StatTrueCount)
	require.True(t, ok)
	require.Equal(t, uint64(3), tc)

	f, err := array.Filter(d, array.BoolFromSlice([]bool{false, true, false, true, false, false}, dtype.NonNullable))
	require.NoError(t, err)
	require.Equal(t, ID, f.EncodingID())
	s, err := array.ScalarAt(f, 1)
	require.NoError(t, err)
	b, _ := s.AsBytes()
	require.Equal(t, "fig", string(b))
}

func TestTakeNullable(t *testing.T) {
	d, err := Encode(array.FromSlice([]uint64{10, 20, 10}))
	require.NoError(t, err)
	got, err := array.Take(d, array.FromNullable([]int32{1, 0, 2}, []bool{true, false, true}))
	require.NoError(t, err)
	require.Equal(t, ID, got.EncodingID())
	require.True(t, got.DType().IsNullable())
	s, err := array.ScalarAt(got, 1)
	require.NoError(t, err)
	require.True(t, s.IsNull())
	s, err = array.ScalarAt(got, 0)
	require.NoError(t, err)
	require.Equal(t, "20", s.String())
}

func TestSortedValuesStats(t *testing.T) {
	values := array.FromSlice([]int64{-4, 0, 12})
	for _, codes := range [][]uint8{{0, 0, 1, 2, 2}, {0, 2, 1}, {1, 1, 1}} {
		t.Run(fmt.Sprint(codes), func(t *testing.T) {
			c := array.FromSlice(codes)
			d, err := New(c, values)
			require.NoError(t, err)
			for _, s := range []array.Stat{array.StatIsSorted, array.StatIsStrictSorted} {
				want, ok := c.Statistics().ComputeBool(s)
				require.True(t, ok)
				got, ok := d.Statistics().ComputeBool(s)
				require.True(t, ok)
				require.Equal(t, want, got, "%s", s)
			}
		})
	}
}

func TestCodeOutOfRange(t *testing.T) {
	_, err := New(array.FromSlice([]uint8{0, 3}), array.FromSlice([]int64{1, 2}))
	require.True(t, errors.Is(err, array.ErrInvalidArgument))
	_, err = New(array.FromSlice([]int8{0}), array.FromSlice([]int64{1}))
	require.True(t, errors.Is(err, array.ErrInvalidArgument))
}

func TestEncodeLarge(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	vals := make([]int64, 100_000)
	for i := range vals {
		vals[i] = int64(rng.Intn(10_001)) - 5000
	}
	src := array.FromSlice(vals)
	d, err := Encode(src)
	require.NoError(t, err)
	require.LessOrEqual(t, Values(d).Len(), 10_001)
	require.Equal(t, dtype.U16, Codes(d).DType().PType())
	require.Less(t, d.NBytes(), src.NBytes())

	est, err := EstimateCardinality(src)
	require.NoError(t, err)
	require.InDelta(t, float64(Values(d).Len()), float64(est), 0.05*float64(Values(d).Len()))

	for i := 0; i < 1000; i++ {
		j := rng.Intn(len(vals))
		s, err := array.ScalarAt(d, j)
		require.NoError(t, err)
		require.True(t, s.Equal(scalar.Of(vals[j])))
	}
}
