// Copyright 2025 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package roaring

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

func TestBool(t *testing.T) {
	vals := []bool{false, true, true, false, false, false, true, false}
	a, err := EncodeBool(array.BoolFromSlice(vals, dtype.NonNullable))
	require.NoError(t, err)
	require.Equal(t, BoolID, a.EncodingID())
	require.Equal(t, uint64(3), Bitmap(a).GetCardinality())

	c, err := array.Canonicalize(a)
	require.NoError(t, err)
	require.Equal(t, vals, array.BoolValues(c))

	for st, want := range map[array.Stat]string{
		array.StatTrueCount:      "3",
		array.StatRunCount:       "5",
		array.StatIsConstant:     "false",
		array.StatIsSorted:       "false",
		array.StatIsStrictSorted: "false",
		array.StatMin:            "false",
		array.StatMax:            "true",
	} {
		v, ok := a.Statistics().Compute(st)
		require.True(t, ok, "%s", st)
		require.Equal(t, want, v.String(), "%s", st)
	}

	s, err := array.Slice(a, 2, 7)
	require.NoError(t, err)
	require.Equal(t, BoolID, s.EncodingID())
	c, err = array.Canonicalize(s)
	require.NoError(t, err)
	require.Equal(t, vals[2:7], array.BoolValues(c))

	rt, err := array.RebuildTree(a)
	require.NoError(t, err)
	c, err = array.Canonicalize(rt)
	require.NoError(t, err)
	require.Equal(t, vals, array.BoolValues(c))

	_, err = EncodeBool(array.BoolFromSlice(vals, dtype.Nullable))
	require.True(t, errors.Is(err, array.ErrTypeMismatch))
}

func TestBoolStatsMatchCanonical(t *testing.T) {
	rng := rand.New(rand.NewSource(9))
	for iter := 0; iter < 50; iter++ {
		n := rng.Intn(12)
		vals := make([]bool, n)
		for i := range vals {
			vals[i] = rng.Intn(2) == 0
		}
		t.Run(fmt.Sprint(vals), func(t *testing.T) {
			src := array.BoolFromSlice(vals, dtype.NonNullable)
			a, err := EncodeBool(src)
			require.NoError(t, err)
			for _, st := range []array.Stat{
				array.StatTrueCount, array.StatRunCount, array.StatIsConstant,
				array.StatIsSorted, array.StatIsStrictSorted, array.StatMin, array.StatMax,
			} {
				want, wantOK := src.Statistics().Compute(st)
				got, ok := a.Statistics().Compute(st)
				require.Equal(t, wantOK, ok, "%s", st)
				if ok {
					require.True(t, want.Equal(got), "%s: %s != %s", st, want, got)
				}
			}
		})
	}
}

func TestInt(t *testing.T) {
	src := array.FromSlice([]uint32{3, 9, 10, 400, 70000})
	require.True(t, CanEncodeInt(src))
	a, err := EncodeInt(src)
	require.NoError(t, err)
	require.Equal(t, IntID, a.EncodingID())
	require.Equal(t, 5, a.Len())

	v, err := array.ScalarAt(a, 3)
	require.NoError(t, err)
	require.Equal(t, "400", v.String())
	_, err = array.ScalarAt(a, 5)
	require.True(t, errors.Is(err, array.ErrOutOfBounds))

	mx, ok := a.Statistics().Compute(array.StatMax)
	require.True(t, ok)
	require.Equal(t, "70000", mx.String())

	for _, tc := range []struct {
		v           uint32
		left, right int
	}{
		{0, 0, 0}, {3, 0, 1}, {5, 1, 1}, {10, 2, 3}, {70000, 4, 5}, {80000, 5, 5},
	} {
		l, err := array.SearchSorted(a, scalar.Of(tc.v), array.SearchLeft)
		require.NoError(t, err)
		require.Equal(t, tc.left, l, "left %d", tc.v)
		r, err := array.SearchSorted(a, scalar.Of(tc.v), array.SearchRight)
		require.NoError(t, err)
		require.Equal(t, tc.right, r, "right %d", tc.v)
	}

	rt, err := array.RebuildTree(a)
	require.NoError(t, err)
	c, err := array.Canonicalize(rt)
	require.NoError(t, err)
	require.Equal(t, []uint32{3, 9, 10, 400, 70000}, array.PrimitiveValues[uint32](c))

	require.False(t, CanEncodeInt(array.FromSlice([]uint32{3, 3})))
	require.False(t, CanEncodeInt(array.FromSlice([]int32{1, 2})))
	require.False(t, CanEncodeInt(array.FromSlice([]uint64{1, 1 << 40})))
	_, err = EncodeInt(array.FromSlice([]uint8{2, 1}))
	require.True(t, errors.Is(err, array.ErrInvalidArgument))
}
