// Copyright 2025 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package array

import (
	"encoding/binary"
	"math"
	"slices"
	"testing"
	"time"

	"github.com/cockroachdb/colenc/dtype"
	"github.com/cockroachdb/colenc/scalar"
	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/rand"
)

// requireSameValues asserts that two arrays hold equal logical values.
func requireSameValues(t *testing.T, expected, actual *Array) {
	t.Helper()
	require.Equal(t, expected.Len(), actual.Len())
	es, err := ToScalars(expected)
	require.NoError(t, err)
	as, err := ToScalars(actual)
	require.NoError(t, err)
	for i := range es {
		require.True(t, es[i].Equal(as[i]), "element %d: %s != %s", i, es[i], as[i])
	}
}

func testArrays(t *testing.T) map[string]*Array {
	i32 := FromNullable([]int32{5, -1, 0, 9, 9, 3}, []bool{true, true, false, true, true, true})
	bools, err := Slice(BoolFromSlice([]bool{true, false, false, true, true, false, true, true, false, true},
		dtype.Nullable), 3, 10)
	require.NoError(t, err)
	strs := VarBinFromBytes(dtype.Utf8(dtype.Nullable), [][]byte{[]byte("apple"), nil, []byte(""), []byte("kiwi")})
	st, err := StructFromFields([]string{"id", "name"}, []*Array{
		FromSlice([]uint16{1, 2, 3, 4}), strs,
	})
	require.NoError(t, err)
	chunked, err := NewChunked(i32.DType(), []*Array{i32, i32})
	require.NoError(t, err)
	sparse, err := NewSparse(FromSlice([]uint64{12, 15}), FromSlice([]int64{-7, 7}), scalar.Of(int64(100)), 6, 10)
	require.NoError(t, err)
	ts := dtype.Timestamp(dtype.Microseconds, "", dtype.NonNullable)
	ext, err := NewExtension(ts, FromSlice([]int64{1, 2, 3}))
	require.NoError(t, err)
	views := VarBinViewFromBytes(dtype.Binary(dtype.Nullable), [][]byte{
		[]byte("short"), []byte("a value longer than twelve bytes"), nil,
	})
	return map[string]*Array{
		"primitive":  i32,
		"bool":       bools,
		"varbin":     strs,
		"struct":     st,
		"chunked":    chunked,
		"constant":   NewConstant(scalar.Utf8("x", dtype.Nullable), 5),
		"null":       NewNull(3),
		"sparse":     sparse,
		"extension":  ext,
		"varbinview": views,
	}
}

func TestRebuildTreeRoundTrip(t *testing.T) {
	for name, a := range testArrays(t) {
		t.Run(name, func(t *testing.T) {
			b, err := RebuildTree(a)
			require.NoError(t, err)
			require.Equal(t, a.EncodingID(), b.EncodingID())
			require.True(t, a.DType().Equal(b.DType()))
			requireSameValues(t, a, b)
		})
	}
}

func TestNBytesCountsMetadataScalars(t *testing.T) {
	idx := FromSlice([]uint64{12, 15})
	vals := FromSlice([]int64{-7, 7})
	sparse, err := NewSparse(idx, vals, scalar.Of(int64(100)), 6, 10)
	require.NoError(t, err)
	require.Equal(t, 8+idx.NBytes()+vals.NBytes(), sparse.NBytes())

	empty, err := NewSparse(FromSlice([]uint64{}), FromSlice([]int64{}), scalar.Of(int64(100)), 1000, 0)
	require.NoError(t, err)
	require.Greater(t, empty.NBytes(), 0)

	require.Equal(t, 3, NewConstant(scalar.Utf8("abc", dtype.NonNullable), 1000).NBytes())
}

func TestCanonicalize(t *testing.T) {
	for name, a := range testArrays(t) {
		t.Run(name, func(t *testing.T) {
			c, err := Canonicalize(a)
			require.NoError(t, err)
			require.True(t, c.IsCanonical())
			requireSameValues(t, a, c)
			c2, err := Canonicalize(c)
			require.NoError(t, err)
			require.Same(t, c, c2)
		})
	}
}

func TestBoundsErrors(t *testing.T) {
	for name, a := range testArrays(t) {
		t.Run(name, func(t *testing.T) {
			n := a.Len()
			_, err := ScalarAt(a, n)
			require.True(t, errors.Is(err, ErrOutOfBounds), "%v", err)
			_, err = ScalarAt(a, -1)
			require.True(t, errors.Is(err, ErrOutOfBounds), "%v", err)
			_, err = Slice(a, 0, n+1)
			require.True(t, errors.Is(err, ErrOutOfBounds), "%v", err)
			_, err = Take(a, FromSlice([]uint32{0, uint32(n)}))
			require.True(t, errors.Is(err, ErrOutOfBounds), "%v", err)
			_, err = Filter(a, BoolFromSlice(make([]bool, n+1), dtype.NonNullable))
			require.True(t, errors.Is(err, ErrInvalidArgument), "%v", err)
		})
	}
}

func TestSliceTakeComposition(t *testing.T) {
	rng := rand.New(rand.NewSource(uint64(time.Now().UnixNano())))
	for name, a := range testArrays(t) {
		t.Run(name, func(t *testing.T) {
			all, err := ToScalars(a)
			require.NoError(t, err)
			for iter := 0; iter < 20; iter++ {
				start := rng.Intn(a.Len() + 1)
				stop := start + rng.Intn(a.Len()-start+1)
				s, err := Slice(a, start, stop)
				require.NoError(t, err)
				require.Equal(t, stop-start, s.Len())
				if s.Len() == 0 {
					continue
				}
				idx := make([]uint32, rng.Intn(8))
				for i := range idx {
					idx[i] = uint32(rng.Intn(s.Len()))
				}
				got, err := Take(s, FromSlice(idx))
				require.NoError(t, err)
				require.Equal(t, len(idx), got.Len())
				for i, j := range idx {
					v, err := ScalarAt(got, i)
					require.NoError(t, err)
					require.True(t, all[start+int(j)].Equal(v), "%s: slice [%d,%d) take %v", name, start, stop, idx)
				}

				mask := make([]bool, s.Len())
				var want []scalar.Scalar
				for i := range mask {
					mask[i] = rng.Intn(2) == 0
					if mask[i] {
						want = append(want, all[start+i])
					}
				}
				f, err := Filter(s, BoolFromSlice(mask, dtype.NonNullable))
				require.NoError(t, err)
				require.Equal(t, len(want), f.Len())
				for i := range want {
					v, err := ScalarAt(f, i)
					require.NoError(t, err)
					require.True(t, want[i].Equal(v))
				}
			}
		})
	}
}

func TestTakeNullableIndices(t *testing.T) {
	a := FromSlice([]int32{10, 20, 30})
	idx := FromNullable([]int32{1, 99, 0}, []bool{true, false, true})
	out, err := Take(a, idx)
	require.NoError(t, err)
	require.Equal(t, "i32?", out.DType().String())
	require.Equal(t, "[20, null, 10]", formatValues(out))

	// Null indices are not bounds checked.
	st, err := StructFromFields([]string{"a"}, []*Array{a})
	require.NoError(t, err)
	out, err = Take(st, idx)
	require.NoError(t, err)
	require.Equal(t, "[{a=20}, null, {a=10}]", formatValues(out))
}

func TestFilterNullableMask(t *testing.T) {
	a := BoolFromSlice([]bool{true, true, false, false, true}, dtype.NonNullable)
	mask := mustFromScalars(t, dtype.Bool(dtype.Nullable), []scalar.Scalar{
		scalar.Bool(true, dtype.Nullable), scalar.Null(dtype.Bool(dtype.Nullable)),
		scalar.Bool(true, dtype.Nullable), scalar.Bool(false, dtype.Nullable),
		scalar.Bool(true, dtype.Nullable),
	})
	out, err := Filter(a, mask)
	require.NoError(t, err)
	require.Equal(t, "[true, false, true]", formatValues(out))

	_, err = Filter(a, FromSlice([]uint8{1, 0, 1, 0, 1}))
	require.True(t, errors.Is(err, ErrTypeMismatch))
}

func mustFromScalars(t *testing.T, dt dtype.DType, vals []scalar.Scalar) *Array {
	a, err := FromScalars(dt, vals)
	require.NoError(t, err)
	return a
}

func TestRegionViews(t *testing.T) {
	data := make([]byte, 17)
	for i := 0; i < 4; i++ {
		binary.LittleEndian.PutUint32(data[1+4*i:], uint32(1000+i))
	}
	r := NewRegion(data, 8)
	buf, err := r.View(1, 16)
	require.NoError(t, err)
	require.True(t, buf.IsView())

	a, err := NewPrimitive(dtype.U32, buf, 4, ValidityNonNullable())
	require.NoError(t, err)
	require.True(t, a.IsView())
	require.Equal(t, []uint32{1000, 1001, 1002, 1003}, PrimitiveValues[uint32](a))

	s, err := Slice(a, 1, 3)
	require.NoError(t, err)
	require.True(t, s.IsView())
	require.Equal(t, "[1001, 1002]", formatValues(s))

	owned := FromSlice([]uint32{1, 2})
	require.False(t, owned.IsView())

	_, err = r.View(10, 8)
	require.True(t, errors.Is(err, ErrOutOfBounds))
}

func TestCast(t *testing.T) {
	a := FromSlice([]int32{1, -2, 300})
	out, err := Cast(a, dtype.Primitive(dtype.I64, dtype.Nullable))
	require.NoError(t, err)
	require.Equal(t, "i64?", out.DType().String())
	require.Equal(t, "[1, -2, 300]", formatValues(out))

	_, err = Cast(a, dtype.Primitive(dtype.U8, dtype.NonNullable))
	require.Error(t, err)
	_, err = Cast(a, dtype.Utf8(dtype.NonNullable))
	require.True(t, errors.Is(err, ErrTypeMismatch))

	withNulls := FromNullable([]int32{1, 0}, []bool{true, false})
	_, err = Cast(withNulls, dtype.Primitive(dtype.I32, dtype.NonNullable))
	require.Error(t, err)
	noNulls := FromNullable([]int32{1, 2}, []bool{true, true})
	out, err = Cast(noNulls, dtype.Primitive(dtype.I32, dtype.NonNullable))
	require.NoError(t, err)
	require.False(t, out.DType().IsNullable())

	s := VarBinFromStrings([]string{"a", "b"}, dtype.NonNullable)
	out, err = Cast(s, dtype.Binary(dtype.NonNullable))
	require.NoError(t, err)
	require.Equal(t, "[0x61, 0x62]", formatValues(out))

	ts := dtype.Timestamp(dtype.Seconds, "UTC", dtype.NonNullable)
	out, err = Cast(FromSlice([]int64{7}), ts)
	require.NoError(t, err)
	require.True(t, out.Is(ExtensionID))
	back, err := Cast(out, dtype.Primitive(dtype.I64, dtype.NonNullable))
	require.NoError(t, err)
	require.Equal(t, "[7]", formatValues(back))

	c, err := Cast(NewConstant(scalar.Of(uint8(3)), 4), dtype.Primitive(dtype.U32, dtype.NonNullable))
	require.NoError(t, err)
	require.True(t, c.Is(ConstantID))
}

func TestConcat(t *testing.T) {
	dt := dtype.Primitive(dtype.I32, dtype.Nullable)
	a := FromSliceWithValidity([]int32{1, 2}, ValidityAllValid())
	b := FromNullable([]int32{0, 4}, []bool{false, true})
	out, err := Concat(dt, []*Array{a, NewConstant(scalar.Null(dt), 1), b})
	require.NoError(t, err)
	require.Equal(t, "[1, 2, null, null, 4]", formatValues(out))

	bools := BoolFromSlice([]bool{true, false, true, true, false}, dtype.NonNullable)
	s1, err := Slice(bools, 1, 4)
	require.NoError(t, err)
	out, err = Concat(bools.DType(), []*Array{s1, bools})
	require.NoError(t, err)
	require.Equal(t, "[false, true, true, true, false, true, true, false]", formatValues(out))

	out, err = Concat(dt, nil)
	require.NoError(t, err)
	require.Equal(t, 0, out.Len())
	require.True(t, out.IsCanonical())

	_, err = Concat(dt, []*Array{FromSlice([]int64{1})})
	require.True(t, errors.Is(err, ErrTypeMismatch))
}

func TestStatisticsProperties(t *testing.T) {
	rng := rand.New(rand.NewSource(uint64(time.Now().UnixNano())))
	for iter := 0; iter < 50; iter++ {
		n := 1 + rng.Intn(200)
		vals := make([]uint64, n)
		var v uint64
		for i := range vals {
			v += 1 + uint64(rng.Intn(1000))
			vals[i] = v
		}
		a := FromSlice(vals)
		strict, ok := a.Statistics().ComputeBool(StatIsStrictSorted)
		require.True(t, ok)
		require.True(t, strict)
		sorted, ok := a.Statistics().ComputeBool(StatIsSorted)
		require.True(t, ok)
		require.True(t, sorted)
		runs, ok := a.Statistics().ComputeUint64(StatRunCount)
		require.True(t, ok)
		require.Equal(t, uint64(n), runs)
		mn, _ := a.Statistics().Compute(StatMin)
		mx, _ := a.Statistics().Compute(StatMax)
		require.True(t, mn.Equal(scalar.Of(vals[0])))
		require.True(t, mx.Equal(scalar.Of(vals[n-1])))

		// Shuffling a strictly sorted array leaves min and max alone.
		shuffled := slices.Clone(vals)
		rng.Shuffle(n, func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })
		b := FromSlice(shuffled)
		mn2, _ := b.Statistics().Compute(StatMin)
		require.True(t, mn.Equal(mn2))
		bw, ok := b.Statistics().ComputeFreq(StatBitWidthFreq)
		require.True(t, ok)
		var total uint64
		for _, c := range bw {
			total += c
		}
		require.Equal(t, uint64(n), total)
	}
}

func TestStatisticsFloats(t *testing.T) {
	// Runs compare bit patterns, ordering compares values.
	a := FromSlice([]float64{0, math.Copysign(0, -1), 1.5})
	runs, ok := a.Statistics().ComputeUint64(StatRunCount)
	require.True(t, ok)
	require.Equal(t, uint64(3), runs)
	sorted, _ := a.Statistics().ComputeBool(StatIsSorted)
	require.True(t, sorted)
	strict, _ := a.Statistics().ComputeBool(StatIsStrictSorted)
	require.False(t, strict)
	constant, _ := a.Statistics().ComputeBool(StatIsConstant)
	require.False(t, constant)
}

func TestStatisticsInherit(t *testing.T) {
	a := FromSlice([]int64{3, 1, 2})
	a.Statistics().ComputeAll()
	b := FromSlice([]int64{0})
	b.Statistics().Inherit(a.Statistics(), StatMin, StatMax)
	mn, ok := b.Statistics().Get(StatMin)
	require.True(t, ok)
	require.Equal(t, "1", mn.String())
	_, ok = b.Statistics().Get(StatRunCount)
	require.False(t, ok)
}
