// Copyright 2025 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package runendbool

import (
	"fmt"
	"testing"

	"github.com/cockroachdb/colenc/array"
	"github.com/cockroachdb/colenc/dtype"
	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/rand"
)

func requireBools(t *testing.T, want []bool, a *array.Array) {
	t.Helper()
	c, err := array.Canonicalize(a)
	require.NoError(t, err)
	require.Equal(t, array.BoolID, c.EncodingID())
	require.Equal(t, want, array.BoolValues(c))
	for i, w := range want {
		s, err := array.ScalarAt(a, i)
		require.NoError(t, err)
		b, ok := s.AsBool()
		require.True(t, ok)
		require.Equal(t, w, b, "%d", i)
	}
}

func TestEncode(t *testing.T) {
	vals := []bool{true, true, false, false, false, true, false, false}
	a, err := Encode(array.BoolFromSlice(vals, dtype.NonNullable))
	require.NoError(t, err)
	require.Equal(t, ID, a.EncodingID())
	require.True(t, Start(a))
	require.Equal(t, []uint64{2, 5, 6, 8}, array.RawValues(Ends(a)))
	requireBools(t, vals, a)

	tc, ok := a.Statistics().ComputeUint64(array.StatTrueCount)
	require.True(t, ok)
	require.Equal(t, uint64(3), tc)
	runs, ok := a.Statistics().ComputeUint64(array.StatRunCount)
	require.True(t, ok)
	require.Equal(t, uint64(4), runs)

	rt, err := array.RebuildTree(a)
	require.NoError(t, err)
	requireBools(t, vals, rt)

	_, err = Encode(array.FromSlice([]int32{1}))
	require.True(t, errors.Is(err, array.ErrTypeMismatch))
}

func TestSlice(t *testing.T) {
	vals := []bool{false, false, true, true, true, false, true, true, false, false}
	a, err := Encode(array.BoolFromSlice(vals, dtype.NonNullable))
	require.NoError(t, err)
	for _, r := range [][2]int{{0, 10}, {3, 7}, {2, 5}, {5, 6}, {4, 4}, {9, 10}} {
		t.Run(fmt.Sprint(r), func(t *testing.T) {
			s, err := array.Slice(a, r[0], r[1])
			require.NoError(t, err)
			require.Equal(t, ID, s.EncodingID())
			requireBools(t, vals[r[0]:r[1]], s)

			want := 0
			for _, v := range vals[r[0]:r[1]] {
				if v {
					want++
				}
			}
			tc, ok := s.Statistics().ComputeUint64(array.StatTrueCount)
			require.True(t, ok)
			require.Equal(t, uint64(want), tc)
		})
	}
}

func TestSortedStats(t *testing.T) {
	for _, tc := range []struct {
		vals                     []bool
		constant, sorted, strict bool
	}{
		{vals: []bool{false, false, true}, sorted: true},
		{vals: []bool{false, true}, sorted: true, strict: true},
		{vals: []bool{true, false}},
		{vals: []bool{true, true}, constant: true, sorted: true},
		{vals: []bool{false, true, false}},
	} {
		t.Run(fmt.Sprint(tc.vals), func(t *testing.T) {
			a, err := Encode(array.BoolFromSlice(tc.vals, dtype.NonNullable))
			require.NoError(t, err)
			for s, want := range map[array.Stat]bool{
				array.StatIsConstant:     tc.constant,
				array.StatIsSorted:       tc.sorted,
				array.StatIsStrictSorted: tc.strict,
			} {
				got, ok := a.Statistics().ComputeBool(s)
				require.True(t, ok)
				require.Equal(t, want, got, "%s", s)
			}
		})
	}
}

func TestNulls(t *testing.T) {
	src := array.BoolFromSlice([]bool{true, false, true, true}, dtype.Nullable)
	src, err := array.Take(src, array.FromNullable([]uint8{0, 1, 2, 3}, []bool{true, true, false, true}))
	require.NoError(t, err)
	a, err := Encode(src)
	require.NoError(t, err)
	require.True(t, a.DType().IsNullable())
	s, err := array.ScalarAt(a, 2)
	require.NoError(t, err)
	require.True(t, s.IsNull())
	nulls, ok := a.Statistics().ComputeUint64(array.StatNullCount)
	require.True(t, ok)
	require.Equal(t, uint64(1), nulls)
	tc, ok := a.Statistics().ComputeUint64(array.StatTrueCount)
	require.True(t, ok)
	require.Equal(t, uint64(2), tc)

	rt, err := array.RebuildTree(a)
	require.NoError(t, err)
	require.Equal(t, a.String(), rt.String())
}

func TestRandomized(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	vals := make([]bool, 2000)
	cur := false
	for i := range vals {
		if rng.Intn(40) == 0 {
			cur = !cur
		}
		vals[i] = cur
	}
	a, err := Encode(array.BoolFromSlice(vals, dtype.NonNullable))
	require.NoError(t, err)
	requireBools(t, vals, a)
	for i := 0; i < 20; i++ {
		start := rng.Intn(len(vals))
		stop := start + rng.Intn(len(vals)-start+1)
		s, err := array.Slice(a, start, stop)
		require.NoError(t, err)
		requireBools(t, vals[start:stop], s)
	}
}

func TestBuildErrors(t *testing.T) {
	v := array.ValidityNonNullable()
	_, err := New(array.FromSlice([]uint8{2, 2}), true, 0, 2, v)
	require.True(t, errors.Is(err, array.ErrInvalidArgument))
	_, err = New(array.FromSlice([]uint8{1, 3}), true, 0, 4, v)
	require.True(t, errors.Is(err, array.ErrInvalidArgument))
	_, err = New(array.FromSlice([]int8{4}), true, 0, 4, v)
	require.True(t, errors.Is(err, array.ErrInvalidArgument))
	a, err := New(array.FromSlice([]uint8{3, 6}), false, 2, 3, v)
	require.NoError(t, err)
	requireBools(t, []bool{false, true, true}, a)
}
