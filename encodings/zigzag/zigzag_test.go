// Copyright 2025 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package zigzag

import (
	"math"
	"testing"

	"github.com/cockroachdb/colenc/array"
	"github.com/cockroachdb/colenc/dtype"
	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/require"
)

func TestEncode(t *testing.T) {
	src := array.FromSlice([]int8{0, -1, 1, -2, 2, math.MinInt8, math.MaxInt8})
	a, err := Encode(src)
	require.NoError(t, err)
	require.Equal(t, ID, a.EncodingID())
	require.Equal(t, src.DType(), a.DType())

	enc, err := array.Canonicalize(Encoded(a))
	require.NoError(t, err)
	require.Equal(t, []uint8{0, 1, 2, 3, 4, 255, 254}, array.PrimitiveValues[uint8](enc))

	c, err := array.Canonicalize(a)
	require.NoError(t, err)
	require.Equal(t, array.PrimitiveValues[int8](src), array.PrimitiveValues[int8](c))

	s, err := array.ScalarAt(a, 3)
	require.NoError(t, err)
	require.Equal(t, "-2", s.String())

	rt, err := array.RebuildTree(a)
	require.NoError(t, err)
	c, err = array.Canonicalize(rt)
	require.NoError(t, err)
	require.Equal(t, array.PrimitiveValues[int8](src), array.PrimitiveValues[int8](c))
}

func TestWide(t *testing.T) {
	vals := []int64{math.MinInt64, -3, 0, 3, math.MaxInt64}
	a, err := Encode(array.FromNullable(vals, []bool{true, true, false, true, true}))
	require.NoError(t, err)
	require.True(t, a.DType().IsNullable())
	for i, v := range vals {
		s, err := array.ScalarAt(a, i)
		require.NoError(t, err)
		if i == 2 {
			require.True(t, s.IsNull())
			continue
		}
		got, ok := s.AsInt64()
		require.True(t, ok)
		require.Equal(t, v, got)
	}

	tk, err := array.Take(a, array.FromSlice([]uint32{4, 1}))
	require.NoError(t, err)
	require.Equal(t, ID, tk.EncodingID())
	c, err := array.Canonicalize(tk)
	require.NoError(t, err)
	require.Equal(t, []int64{math.MaxInt64, -3}, array.PrimitiveValues[int64](c))

	f, err := array.Filter(a, array.BoolFromSlice([]bool{false, true, true, false, false}, dtype.NonNullable))
	require.NoError(t, err)
	nulls, ok := f.Statistics().ComputeUint64(array.StatNullCount)
	require.True(t, ok)
	require.Equal(t, uint64(1), nulls)
}

func TestErrors(t *testing.T) {
	_, err := Encode(array.FromSlice([]uint16{1}))
	require.True(t, errors.Is(err, array.ErrTypeMismatch))
	_, err = New(array.FromSlice([]int16{1}))
	require.True(t, errors.Is(err, array.ErrTypeMismatch))
}
