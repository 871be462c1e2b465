// Copyright 2025 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package arrowconv

import (
	"testing"

	"github.com/apache/arrow-go/v18/arrow"
	arrowarray "github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/cockroachdb/colenc/array"
	"github.com/cockroachdb/colenc/compress"
	"github.com/cockroachdb/colenc/dtype"
	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/require"
)

func requireSameValues(t *testing.T, expected, actual *array.Array) {
	t.Helper()
	require.Equal(t, expected.Len(), actual.Len())
	require.True(t, expected.DType().Equal(actual.DType()), "%s != %s", expected.DType(), actual.DType())
	for i := 0; i < expected.Len(); i++ {
		e, err := array.ScalarAt(expected, i)
		require.NoError(t, err)
		a, err := array.ScalarAt(actual, i)
		require.NoError(t, err)
		require.True(t, e.Equal(a), "%d: expected %s, got %s", i, e, a)
	}
}

func TestRoundTrip(t *testing.T) {
	ts, err := array.NewExtension(dtype.Timestamp(dtype.Microseconds, "UTC", dtype.Nullable),
		array.FromNullable([]int64{1_700_000_000_000_000, 0, -5}, []bool{true, false, true}))
	require.NoError(t, err)
	st, err := array.NewStruct(
		dtype.Struct([]string{"a", "b"},
			[]dtype.DType{dtype.Primitive(dtype.U16, dtype.NonNullable), dtype.Utf8(dtype.Nullable)},
			dtype.NonNullable),
		[]*array.Array{
			array.FromSlice([]uint16{1, 2, 3}),
			array.VarBinFromBytes(dtype.Utf8(dtype.Nullable), [][]byte{[]byte("x"), nil, []byte("zz")}),
		}, 3, array.ValidityNonNullable())
	require.NoError(t, err)

	for name, a := range map[string]*array.Array{
		"i32":       array.FromSlice([]int32{-1, 0, 7}),
		"f64?":      array.FromNullable([]float64{1.5, 0, 3}, []bool{true, false, true}),
		"u8":        array.FromSlice([]uint8{0, 255}),
		"bool":      array.BoolFromSlice([]bool{true, false, false, true, true}, dtype.NonNullable),
		"utf8":      array.VarBinFromStrings([]string{"a", "", "ccc"}, dtype.NonNullable),
		"binary?":   array.VarBinFromBytes(dtype.Binary(dtype.Nullable), [][]byte{{1, 2}, nil, {}}),
		"timestamp": ts,
		"struct":    st,
		"null":      array.NewNull(4),
		"empty":     array.FromSlice([]int64{}),
	} {
		t.Run(name, func(t *testing.T) {
			mem := memory.NewCheckedAllocator(memory.NewGoAllocator())
			defer mem.AssertSize(t, 0)
			arr, err := ToArrow(a, mem)
			require.NoError(t, err)
			defer arr.Release()
			require.Equal(t, a.Len(), arr.Len())
			want, err := ArrowType(a.DType())
			require.NoError(t, err)
			require.True(t, arrow.TypeEqual(want, arr.DataType()), "%s != %s", want, arr.DataType())

			back, err := FromArrow(arr)
			require.NoError(t, err)
			// Arrays without nulls come back non-nullable.
			if a.DType().IsNullable() && arr.NullN() == 0 && a.DType().Kind() != dtype.KindNull {
				c, err := array.Cast(a, a.DType().AsNonNullable())
				require.NoError(t, err)
				a = c
			}
			requireSameValues(t, a, back)
		})
	}
}

func TestCompressedToArrow(t *testing.T) {
	vals := make([]int64, 5000)
	for i := range vals {
		vals[i] = int64(i % 17)
	}
	a := array.FromSlice(vals)
	s, err := compress.NewSamplingCompressor(compress.Config{}, compress.DefaultCompressors()...)
	require.NoError(t, err)
	r, err := s.Compress(a, nil)
	require.NoError(t, err)
	require.False(t, r.Array.IsCanonical())

	arr, err := ToArrow(r.Array, memory.DefaultAllocator)
	require.NoError(t, err)
	defer arr.Release()
	got := arr.(*arrowarray.Int64).Int64Values()
	require.Equal(t, vals, got)
}

func TestFromArrowBuilder(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.NewGoAllocator())
	defer mem.AssertSize(t, 0)

	b := arrowarray.NewInt64Builder(mem)
	defer b.Release()
	b.AppendValues([]int64{4, 5, 6, 7}, []bool{true, true, false, true})
	arr := b.NewInt64Array()
	defer arr.Release()

	sl := arrowarray.NewSlice(arr, 1, 4)
	defer sl.Release()
	a, err := FromArrow(sl)
	require.NoError(t, err)
	require.Equal(t, 3, a.Len())
	require.True(t, a.DType().IsNullable())
	valid, err := array.IsValid(a, 1)
	require.NoError(t, err)
	require.False(t, valid)
	s, err := array.ScalarAt(a, 2)
	require.NoError(t, err)
	v, _ := s.AsInt64()
	require.Equal(t, int64(7), v)
}

func TestUnsupported(t *testing.T) {
	_, err := ArrowType(dtype.List(dtype.Bool(dtype.NonNullable), dtype.NonNullable))
	require.True(t, errors.Is(err, array.ErrUnsupported))
}

func TestToArrowReleasesBuffers(t *testing.T) {
	for name, tc := range map[string]struct {
		a     *array.Array
		bytes int
	}{
		"bool":    {array.BoolFromSlice([]bool{true, false, true, true, false}, dtype.NonNullable), 1},
		"i32?":    {array.FromNullable([]int32{1, 0, 3}, []bool{true, false, true}), 1},
		"utf8":    {array.VarBinFromStrings([]string{"a", "bb", "ccc"}, dtype.NonNullable), 16},
		"binary?": {array.VarBinFromBytes(dtype.Binary(dtype.Nullable), [][]byte{{1}, nil}), 1 + 12},
		"i64":     {array.FromSlice([]int64{1, 2, 3}), 0},
	} {
		t.Run(name, func(t *testing.T) {
			mem := memory.NewCheckedAllocator(memory.NewGoAllocator())
			arr, err := ToArrow(tc.a, mem)
			require.NoError(t, err)
			require.Equal(t, tc.bytes, mem.CurrentAlloc())
			arr.Release()
			mem.AssertSize(t, 0)
		})
	}
}
