// Copyright 2025 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package datetimeparts

import (
	"testing"

	"github.com/cockroachdb/colenc/array"
	"github.com/cockroachdb/colenc/dtype"
	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/require"
)

func timestamps(t *testing.T, unit dtype.TimeUnit, vals []int64, valid []bool) *array.Array {
	t.Helper()
	n := dtype.NonNullable
	storage := array.FromSlice(vals)
	if valid != nil {
		n = dtype.Nullable
		storage = array.FromNullable(vals, valid)
	}
	a, err := array.NewExtension(dtype.Timestamp(unit, "UTC", n), storage)
	require.NoError(t, err)
	return a
}

func requireSameValues(t *testing.T, expected, actual *array.Array) {
	t.Helper()
	require.Equal(t, expected.Len(), actual.Len())
	require.True(t, expected.DType().Equal(actual.DType()), "%s != %s", expected.DType(), actual.DType())
	c, err := array.Canonicalize(actual)
	require.NoError(t, err)
	for i := 0; i < expected.Len(); i++ {
		e, err := array.ScalarAt(expected, i)
		require.NoError(t, err)
		a, err := array.ScalarAt(actual, i)
		require.NoError(t, err)
		require.True(t, e.Equal(a), "%d: expected %s, got %s", i, e, a)
		a, err = array.ScalarAt(c, i)
		require.NoError(t, err)
		require.True(t, e.Equal(a), "canonical %d: expected %s, got %s", i, e, a)
	}
}

func TestSplit(t *testing.T) {
	for _, tc := range []struct {
		v, perSecond     int64
		days, secs, subs int64
	}{
		{0, 1000, 0, 0, 0},
		{86_400_000 + 1_500, 1000, 1, 1, 500},
		{-1, 1000, -1, 86399, 999},
		{-86_400, 1, -1, 0, 0},
		{1_700_000_000_123_456, 1_000_000, 19675, 80000, 123456},
	} {
		d, s, sub := split(tc.v, tc.perSecond)
		require.Equal(t, [3]int64{tc.days, tc.secs, tc.subs}, [3]int64{d, s, sub}, "%d", tc.v)
		require.Equal(t, tc.v, join(d, s, sub, tc.perSecond))
	}
}

func TestEncode(t *testing.T) {
	vals := []int64{
		1_700_000_000_000, 1_700_000_000_250, 1_700_000_060_000, -5, 0, 1_700_086_400_000,
	}
	src := timestamps(t, dtype.Milliseconds, vals, nil)
	a, err := Encode(src)
	require.NoError(t, err)
	require.Equal(t, ID, a.EncodingID())
	requireSameValues(t, src, a)

	days, err := array.Canonicalize(Days(a))
	require.NoError(t, err)
	require.Equal(t, []int64{19675, 19675, 19675, -1, 0, 19676}, array.PrimitiveValues[int64](days))
	subs, err := array.Canonicalize(Subseconds(a))
	require.NoError(t, err)
	require.Equal(t, []int64{0, 250, 0, 995, 0, 0}, array.PrimitiveValues[int64](subs))

	s, err := array.Slice(a, 1, 4)
	require.NoError(t, err)
	require.Equal(t, ID, s.EncodingID())
	exp, err := array.Slice(src, 1, 4)
	require.NoError(t, err)
	requireSameValues(t, exp, s)

	rt, err := array.RebuildTree(a)
	require.NoError(t, err)
	requireSameValues(t, src, rt)
}

func TestNulls(t *testing.T) {
	vals := []int64{3_600_000_000, 0, 7_200_000_001, 42}
	valid := []bool{true, false, true, true}
	src := timestamps(t, dtype.Microseconds, vals, valid)
	a, err := Encode(src)
	require.NoError(t, err)
	requireSameValues(t, src, a)

	nulls, ok := a.Statistics().ComputeUint64(array.StatNullCount)
	require.True(t, ok)
	require.Equal(t, uint64(1), nulls)

	indices := array.FromNullable([]uint32{2, 1, 0, 3}, []bool{true, true, false, true})
	tk, err := array.Take(a, indices)
	require.NoError(t, err)
	require.Equal(t, ID, tk.EncodingID())
	exp, err := array.Take(src, indices)
	require.NoError(t, err)
	requireSameValues(t, exp, tk)

	// Take with non-nullable indices keeps the nullability of the source.
	tk, err = array.Take(a, array.FromSlice([]uint8{3, 3}))
	require.NoError(t, err)
	require.True(t, tk.DType().IsNullable())
}

func TestErrors(t *testing.T) {
	_, err := Encode(array.FromSlice([]int64{1}))
	require.True(t, errors.Is(err, array.ErrTypeMismatch))

	dt := dtype.Timestamp(dtype.Seconds, "", dtype.NonNullable)
	_, err = New(dt, array.FromSlice([]int64{1}), array.FromSlice([]int32{1}), array.FromSlice([]int64{0}))
	require.True(t, errors.Is(err, array.ErrTypeMismatch))
	_, err = New(dt, array.FromSlice([]int64{1}), array.FromSlice([]int64{1, 2}), array.FromSlice([]int64{0}))
	require.True(t, errors.Is(err, array.ErrInvalidArgument))
	_, err = New(dt, array.FromNullable([]int64{1}, []bool{true}), array.FromSlice([]int64{1}),
		array.FromSlice([]int64{0}))
	require.True(t, errors.Is(err, array.ErrTypeMismatch))
}
