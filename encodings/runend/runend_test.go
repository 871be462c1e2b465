// Copyright 2025 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package runend

import (
	"testing"

	"github.com/cockroachdb/colenc/array"
	"github.com/cockroachdb/colenc/dtype"
	"github.com/cockroachdb/colenc/scalar"
	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/rand"
)

func requireValues[T dtype.Native](t *testing.T, want []T, a *array.Array) {
	t.Helper()
	c, err := array.Canonicalize(a)
	require.NoError(t, err)
	got := array.PrimitiveValues[T](c)
	require.Len(t, got, len(want))
	for i := range want {
		require.Equal(t, want[i], got[i], "element %d", i)
	}
}

func TestEncodeTake(t *testing.T) {
	a, err := Encode(array.FromSlice([]int32{1, 1, 1, 4, 4, 4, 2, 2, 5, 5, 5, 5}))
	require.NoError(t, err)
	require.Equal(t, ID, a.EncodingID())
	require.Equal(t, []uint64{3, 6, 8, 12}, array.RawValues(Ends(a)))
	requireValues(t, []int32{1, 4, 2, 5}, Values(a))

	got, err := array.Take(a, array.FromSlice([]int64{9, 8, 1, 3}))
	require.NoError(t, err)
	requireValues(t, []int32{5, 5, 1, 4}, got)

	_, err = array.Take(a, array.FromSlice([]int64{12}))
	require.True(t, errors.Is(err, array.ErrOutOfBounds))
}

func TestSliceAndFilter(t *testing.T) {
	vals := []uint16{7, 7, 3, 3, 3, 9, 1, 1, 1, 1}
	a, err := Encode(array.FromSlice(vals))
	require.NoError(t, err)

	s, err := array.Slice(a, 3, 8)
	require.NoError(t, err)
	require.Equal(t, ID, s.EncodingID())
	require.Equal(t, uint64(3), Offset(s))
	requireValues(t, vals[3:8], s)

	// Slices of slices resolve against the shared ends.
	s2, err := array.Slice(s, 1, 4)
	require.NoError(t, err)
	requireValues(t, vals[4:7], s2)
	v, err := array.ScalarAt(s2, 2)
	require.NoError(t, err)
	require.Equal(t, "1", v.String())

	f, err := array.Filter(a, array.BoolFromSlice(
		[]bool{true, false, true, false, false, true, true, true, false, false}, dtype.NonNullable))
	require.NoError(t, err)
	require.Equal(t, ID, f.EncodingID())
	requireValues(t, []uint16{7, 3, 9, 1, 1}, f)
	require.Equal(t, 4, Values(f).Len())

	rt, err := array.RebuildTree(s)
	require.NoError(t, err)
	requireValues(t, vals[3:8], rt)
}

func TestNullsAndStats(t *testing.T) {
	src := array.FromNullable([]int64{5, 5, 0, 0, 8, 8, 8}, []bool{true, true, false, false, true, true, true})
	a, err := Encode(src)
	require.NoError(t, err)
	require.Equal(t, 3, Values(a).Len())

	nulls, ok := a.Statistics().ComputeUint64(array.StatNullCount)
	require.True(t, ok)
	require.Equal(t, uint64(2), nulls)
	runs, ok := a.Statistics().ComputeUint64(array.StatRunCount)
	require.True(t, ok)
	require.Equal(t, uint64(3), runs)
	mx, ok := a.Statistics().Compute(array.StatMax)
	require.True(t, ok)
	require.Equal(t, "8", mx.String())

	valid, err := array.IsValid(a, 3)
	require.NoError(t, err)
	require.False(t, valid)

	cmp, err := array.CompareScalar(a, scalar.Of(int64(5)), array.OpEq)
	require.NoError(t, err)
	require.Equal(t, ID, cmp.EncodingID())
	require.Equal(t, dtype.Bool(dtype.Nullable), cmp.DType())
	tc, ok := cmp.Statistics().ComputeUint64(array.StatTrueCount)
	require.True(t, ok)
	require.Equal(t, uint64(2), tc)
}

func TestSearchSorted(t *testing.T) {
	a, err := Encode(array.FromSlice([]uint32{1, 1, 4, 4, 4, 9}))
	require.NoError(t, err)
	for _, tc := range []struct {
		v           uint32
		left, right int
	}{
		{0, 0, 0},
		{1, 0, 2},
		{4, 2, 5},
		{5, 5, 5},
		{9, 5, 6},
		{10, 6, 6},
	} {
		l, err := array.SearchSorted(a, scalar.Of(tc.v), array.SearchLeft)
		require.NoError(t, err)
		r, err := array.SearchSorted(a, scalar.Of(tc.v), array.SearchRight)
		require.NoError(t, err)
		require.Equal(t, [2]int{tc.left, tc.right}, [2]int{l, r}, "%d", tc.v)
	}
}

func TestRandomized(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	vals := make([]int8, 500)
	for i := range vals {
		if i > 0 && rng.Intn(4) != 0 {
			vals[i] = vals[i-1]
		} else {
			vals[i] = int8(rng.Intn(10))
		}
	}
	a, err := Encode(array.FromSlice(vals))
	require.NoError(t, err)
	for i := 0; i < 100; i++ {
		start := rng.Intn(len(vals))
		stop := start + rng.Intn(len(vals)-start+1)
		s, err := array.Slice(a, start, stop)
		require.NoError(t, err)
		requireValues(t, vals[start:stop], s)
		if stop > start {
			j := rng.Intn(stop - start)
			v, err := array.ScalarAt(s, j)
			require.NoError(t, err)
			require.True(t, v.Equal(scalar.Of(vals[start+j])))
		}
	}
}

func TestBuildErrors(t *testing.T) {
	_, err := New(array.FromSlice([]uint8{3, 2}), array.FromSlice([]int32{1, 2}), 0, 3)
	require.True(t, errors.Is(err, array.ErrInvalidArgument))
	_, err = New(array.FromSlice([]uint8{2}), array.FromSlice([]int32{1}), 0, 3)
	require.True(t, errors.Is(err, array.ErrInvalidArgument))
	_, err = New(array.FromSlice([]int8{3}), array.FromSlice([]int32{1}), 0, 3)
	require.True(t, errors.Is(err, array.ErrInvalidArgument))
}
