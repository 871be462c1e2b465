// Copyright 2025 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package compress

import (
	"fmt"
	"strings"
	"testing"

	"github.com/cockroachdb/colenc/array"
	"github.com/cockroachdb/colenc/dtype"
	"github.com/cockroachdb/colenc/internal/base"
	"github.com/cockroachdb/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/rand"
)

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

func newCompressor(t *testing.T, cfg Config, compressors ...Compressor) *SamplingCompressor {
	t.Helper()
	if len(compressors) == 0 {
		compressors = DefaultCompressors()
	}
	s, err := NewSamplingCompressor(cfg, compressors...)
	require.NoError(t, err)
	return s
}

func runs(n, runLen int) []int32 {
	vals := make([]int32, n)
	for i := range vals {
		vals[i] = int32((i / runLen) % 7)
	}
	return vals
}

func TestPartitions(t *testing.T) {
	require.Equal(t, [][2]int{{0, 4}, {4, 7}, {7, 10}}, partitions(10, 3))
	require.Equal(t, [][2]int{{0, 2}, {2, 4}}, partitions(4, 2))
}

func TestObjective(t *testing.T) {
	require.Equal(t, 0.5, objective(50, 100, 0))
	require.Equal(t, 1.0, objective(50, 100, costDivisor))
	// A costlier compressor must compress relatively better to win.
	require.Less(t, objective(40, 100, 0), objective(39, 100, 3))
}

func TestSample(t *testing.T) {
	s := newCompressor(t, Config{SampleSize: 4, SampleCount: 3})
	vals := make([]int64, 100)
	for i := range vals {
		vals[i] = int64(i)
	}
	a := array.FromSlice(vals)
	sample, err := s.sample(a, &Ctx{s: s, path: "root"})
	require.NoError(t, err)
	require.Equal(t, 12, sample.Len())
	c, err := array.Canonicalize(sample)
	require.NoError(t, err)
	got := array.PrimitiveValues[int64](c)
	for k, p := range partitions(100, 3) {
		slice := got[k*4 : k*4+4]
		for j := 1; j < len(slice); j++ {
			require.Equal(t, slice[j-1]+1, slice[j])
		}
		require.GreaterOrEqual(t, slice[0], int64(p[0]))
		require.Less(t, slice[3], int64(p[1]))
	}

	// The same path samples the same slices.
	again, err := s.sample(a, &Ctx{s: s, path: "root"})
	require.NoError(t, err)
	requireSameValues(t, sample, again)

	short := array.FromSlice(vals[:12])
	sample, err = s.sample(short, &Ctx{s: s, path: "root"})
	require.NoError(t, err)
	require.True(t, sample == short)
}

func TestNewSamplingCompressor(t *testing.T) {
	_, err := NewSamplingCompressor(Config{}, RunEnd, Dict, RunEnd)
	require.Error(t, err)
	require.Contains(t, err.Error(), "duplicate compressor")

	_, err = NewSamplingCompressor(Config{ByteAlgorithm: "lz77"})
	require.Error(t, err)

	s := newCompressor(t, Config{})
	require.Equal(t, 64, s.Config().SampleSize)
	require.Equal(t, 16, s.Config().SampleCount)
	require.Equal(t, len(DefaultCompressors()), len(s.Compressors()))
}

func TestIdentity(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	vals := make([]uint64, 200)
	for i := range vals {
		vals[i] = rng.Uint64()
	}
	a := array.FromSlice(vals)

	// Without runs, run-end encoding only makes the array larger.
	r, err := newCompressor(t, Config{}, RunEnd, Dict).Compress(a, nil)
	require.NoError(t, err)
	require.Nil(t, r.Tree)
	require.True(t, r.Array == a)

	empty := array.FromSlice([]int32{})
	r, err = newCompressor(t, Config{}).Compress(empty, nil)
	require.NoError(t, err)
	require.Nil(t, r.Tree)
}

func TestConstant(t *testing.T) {
	vals := make([]int32, 100)
	for i := range vals {
		vals[i] = 42
	}
	a := array.FromSlice(vals)
	r, err := newCompressor(t, Config{}).Compress(a, nil)
	require.NoError(t, err)
	require.Equal(t, "constant", r.Tree.ID)
	require.Equal(t, array.ConstantID, r.Array.EncodingID())
	requireSameValues(t, a, r.Array)

	r, err = newCompressor(t, Config{Disabled: []string{"constant"}}).Compress(a, nil)
	require.NoError(t, err)
	require.True(t, r.Tree == nil || r.Tree.ID != "constant")
	requireSameValues(t, a, r.Array)
}

func TestMaxDepth(t *testing.T) {
	a := array.FromSlice(runs(200, 20))
	r, err := newCompressor(t, Config{MaxDepth: 1}, RunEnd).Compress(a, nil)
	require.NoError(t, err)
	require.Equal(t, "runend\n  -\n  -\n", r.Tree.String())
	requireSameValues(t, a, r.Array)
}

func TestDeterministic(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	vals := make([]int64, 50_000)
	v := int64(1000)
	for i := range vals {
		v += int64(rng.Intn(21) - 10)
		vals[i] = v
	}
	a := array.FromSlice(vals)
	cfg := Config{Seed: 7}
	r1, err := newCompressor(t, cfg).Compress(a, nil)
	require.NoError(t, err)
	r2, err := newCompressor(t, cfg).Compress(a, nil)
	require.NoError(t, err)
	require.NotNil(t, r1.Tree)
	require.Equal(t, r1.Tree.String(), r2.Tree.String())
	require.Equal(t, r1.NBytes(), r2.NBytes())
	require.Less(t, r1.NBytes(), a.NBytes())
	requireSameValues(t, a, r1.Array)
}

func TestLikeReusesParameters(t *testing.T) {
	s := newCompressor(t, Config{}, ALP, FoR, BitPacked)
	first := make([]float64, 1000)
	second := make([]float64, 1000)
	for i := range first {
		first[i] = float64(i) * 0.25
		second[i] = float64(i+3) * 0.5
	}
	r1, err := s.Compress(array.FromSlice(first), nil)
	require.NoError(t, err)
	require.Equal(t, "alp", r1.Tree.ID)

	r2, err := s.Compress(array.FromSlice(second), r1.Tree)
	require.NoError(t, err)
	require.Equal(t, "alp", r2.Tree.ID)
	require.Equal(t, r1.Tree.Metadata, r2.Tree.Metadata)
	requireSameValues(t, array.FromSlice(second), r2.Array)
}

func TestLikeFallsBackToSearch(t *testing.T) {
	var logger base.InMemLogger
	s := newCompressor(t, Config{Logger: &logger}, RunEnd, FoR, BitPacked)
	vals := make([]int32, 300)
	for i := range vals {
		vals[i] = int32(i)
	}
	a := array.FromSlice(vals)
	// The run-end tree does not apply to an array without runs.
	r, err := s.Compress(a, &Tree{ID: "runend"})
	require.NoError(t, err)
	require.Equal(t, "for", r.Tree.ID)
	requireSameValues(t, a, r.Array)

	var found bool
	for _, l := range logger.Lines() {
		if strings.HasPrefix(l, "root: reusing runend failed") {
			found = true
		}
	}
	require.True(t, found, "%v", logger.Lines())
}

func TestMostlyConstant(t *testing.T) {
	vals := make([]uint32, 1000)
	for i := range vals {
		vals[i] = 7
	}
	vals[3], vals[500], vals[999] = 1, 90000, 2
	a := array.FromSlice(vals)
	r, err := newCompressor(t, Config{}, MostlyConstant).Compress(a, nil)
	require.NoError(t, err)
	require.Equal(t, "mostly_constant", r.Tree.ID)
	require.Equal(t, array.SparseID, r.Array.EncodingID())
	requireSameValues(t, a, r.Array)

	// Too many exceptions.
	b := array.FromSlice([]uint32{1, 2, 3, 1, 2, 3})
	r, err = newCompressor(t, Config{}, MostlyConstant).Compress(b, nil)
	require.NoError(t, err)
	require.Nil(t, r.Tree)
}

func TestMostFrequent(t *testing.T) {
	v := array.ValidityFromBools([]bool{true, true, true, true, false, false})
	top, count, ok := mostFrequent([]uint64{5, 3, 5, 3, 9, 9}, v)
	require.True(t, ok)
	require.Equal(t, uint64(3), top)
	require.Equal(t, 2, count)

	_, _, ok = mostFrequent([]uint64{1}, array.ValidityAllInvalid())
	require.False(t, ok)
}

func TestSparse(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	vals := make([]int64, 1000)
	valid := make([]bool, 1000)
	for i := range vals {
		vals[i] = rng.Int63()
		valid[i] = rng.Intn(10) == 0
	}
	a := array.FromNullable(vals, valid)
	r, err := newCompressor(t, Config{}, Sparse).Compress(a, nil)
	require.NoError(t, err)
	require.Equal(t, "sparse", r.Tree.ID)
	require.Len(t, r.Tree.Children, 2)
	requireSameValues(t, a, r.Array)
}

func TestByteComp(t *testing.T) {
	words := []string{"alpha", "bravo", "charlie", "delta", "echo"}
	vals := make([]string, 2000)
	for i := range vals {
		vals[i] = fmt.Sprintf("%s-%s", words[i%5], words[(i/5)%5])
	}
	a := array.VarBinFromStrings(vals, dtype.NonNullable)
	for _, alg := range []string{"snappy", "zstd3", AdaptiveByteAlgorithm} {
		t.Run(alg, func(t *testing.T) {
			r, err := newCompressor(t, Config{ByteAlgorithm: alg}, ByteComp).Compress(a, nil)
			require.NoError(t, err)
			require.Equal(t, "bytecomp", r.Tree.ID)
			if alg != AdaptiveByteAlgorithm {
				require.Equal(t, alg, fmt.Sprint(r.Tree.Metadata))
			}
			requireSameValues(t, a, r.Array)
		})
	}
}

func TestStruct(t *testing.T) {
	n := 500
	ids := make([]int32, n)
	names := make([]string, n)
	for i := range ids {
		ids[i] = 9
		names[i] = []string{"x", "y"}[i%2]
	}
	dt := dtype.Struct([]string{"id", "name"},
		[]dtype.DType{dtype.Primitive(dtype.I32, dtype.NonNullable), dtype.Utf8(dtype.NonNullable)},
		dtype.NonNullable)
	a, err := array.NewStruct(dt,
		[]*array.Array{array.FromSlice(ids), array.VarBinFromStrings(names, dtype.NonNullable)},
		n, array.ValidityNonNullable())
	require.NoError(t, err)

	r, err := newCompressor(t, Config{Parallelism: 2}).Compress(a, nil)
	require.NoError(t, err)
	require.Equal(t, "struct", r.Tree.ID)
	require.Len(t, r.Tree.Children, 2)
	require.Equal(t, "constant", r.Tree.Child(0).ID)
	require.NotNil(t, r.Tree.Child(1))
	requireSameValues(t, a, r.Array)

	// Recompressing with the tree as a hint makes the same choices.
	again, err := newCompressor(t, Config{}).Compress(a, r.Tree)
	require.NoError(t, err)
	require.Equal(t, r.Tree.String(), again.Tree.String())
}

func TestChunked(t *testing.T) {
	var chunks []*array.Array
	for i := 0; i < 4; i++ {
		chunks = append(chunks, array.FromSlice(runs(200, 20)))
	}
	a, err := array.NewChunked(dtype.Primitive(dtype.I32, dtype.NonNullable), chunks)
	require.NoError(t, err)
	r, err := newCompressor(t, Config{}, Chunked, RunEnd).Compress(a, nil)
	require.NoError(t, err)
	require.Equal(t, "chunked", r.Tree.ID)
	require.Len(t, r.Tree.Children, 4)
	for _, c := range r.Tree.Children {
		require.Equal(t, "runend", c.ID)
	}
	requireSameValues(t, a, r.Array)
}

func TestPreservesValues(t *testing.T) {
	rng := rand.New(rand.NewSource(4))
	n := 3000
	gen := []struct {
		name string
		gen  func() *array.Array
	}{
		{"i32-small", func() *array.Array {
			vals := make([]int32, n)
			for i := range vals {
				vals[i] = int32(rng.Intn(100) - 50)
			}
			return array.FromSlice(vals)
		}},
		{"u16-sorted", func() *array.Array {
			vals := make([]uint16, n)
			for i := 1; i < n; i++ {
				vals[i] = vals[i-1] + uint16(rng.Intn(3))
			}
			return array.FromSlice(vals)
		}},
		{"u64-runs", func() *array.Array {
			vals := make([]uint64, n)
			for i := range vals {
				vals[i] = uint64(i/50) * 1000
			}
			return array.FromSlice(vals)
		}},
		{"f64-decimal", func() *array.Array {
			vals := make([]float64, n)
			for i := range vals {
				vals[i] = float64(rng.Intn(100000)) / 100
			}
			return array.FromSlice(vals)
		}},
		{"f64-random", func() *array.Array {
			vals := make([]float64, n)
			for i := range vals {
				vals[i] = rng.Float64()
			}
			return array.FromSlice(vals)
		}},
		{"i64-nullable", func() *array.Array {
			vals := make([]int64, n)
			valid := make([]bool, n)
			for i := range vals {
				vals[i] = int64(rng.Intn(1 << 20))
				valid[i] = rng.Intn(4) != 0
			}
			return array.FromNullable(vals, valid)
		}},
		{"bool-runs", func() *array.Array {
			vals := make([]bool, n)
			for i := range vals {
				vals[i] = (i/100)%2 == 0
			}
			return array.BoolFromSlice(vals, dtype.NonNullable)
		}},
		{"utf8-dict", func() *array.Array {
			vals := make([]string, n)
			for i := range vals {
				vals[i] = fmt.Sprintf("value-%d", rng.Intn(20))
			}
			return array.VarBinFromStrings(vals, dtype.Nullable)
		}},
		{"timestamp", func() *array.Array {
			vals := make([]int64, n)
			for i := range vals {
				vals[i] = 1_700_000_000_000 + int64(i)*60_000
			}
			ts, err := array.NewExtension(dtype.Timestamp(dtype.Milliseconds, "", dtype.NonNullable),
				array.FromSlice(vals))
			require.NoError(t, err)
			return ts
		}},
	}
	s := newCompressor(t, Config{Seed: 11})
	for _, g := range gen {
		t.Run(g.name, func(t *testing.T) {
			a := g.gen()
			r, err := s.Compress(a, nil)
			require.NoError(t, err)
			require.LessOrEqual(t, r.NBytes(), a.NBytes())
			requireSameValues(t, a, r.Array)
			if r.Tree != nil {
				rt, err := array.RebuildTree(r.Array)
				require.NoError(t, err)
				requireSameValues(t, a, rt)
			}
		})
	}
}

func TestBinaryColumns(t *testing.T) {
	rng := rand.New(rand.NewSource(9))
	n := 3000
	repeated := make([]string, n)
	unique := make([]string, n)
	nullable := array.NewVarBinBuilder(dtype.Binary(dtype.Nullable), n)
	for i := range repeated {
		repeated[i] = fmt.Sprintf("host-%02d.example.com", rng.Intn(20))
		unique[i] = fmt.Sprintf("%08x-%d", rng.Uint32(), i)
		if rng.Intn(3) == 0 {
			nullable.AppendNull()
		} else {
			nullable.Append([]byte(repeated[i]))
		}
	}
	for _, tc := range []struct {
		name string
		a    *array.Array
	}{
		{"repeated", array.VarBinFromStrings(repeated, dtype.NonNullable)},
		{"unique", array.VarBinFromStrings(unique, dtype.NonNullable)},
		{"nullable", nullable.Finish()},
	} {
		t.Run(tc.name, func(t *testing.T) {
			r, err := newCompressor(t, Config{Seed: 5}).Compress(tc.a, nil)
			require.NoError(t, err)
			requireSameValues(t, tc.a, r.Array)

			idx := []uint64{uint64(n - 1), 0, 17, 17}
			taken, err := array.Take(r.Array, array.FromSlice(idx))
			require.NoError(t, err)
			for i, j := range idx {
				e, err := array.ScalarAt(tc.a, int(j))
				require.NoError(t, err)
				g, err := array.ScalarAt(taken, i)
				require.NoError(t, err)
				require.True(t, e.Equal(g), "%d: expected %s, got %s", j, e, g)
			}

			mask := make([]bool, n)
			for i := range mask {
				mask[i] = i%3 == 0
			}
			filtered, err := array.Filter(r.Array, array.BoolFromSlice(mask, dtype.NonNullable))
			require.NoError(t, err)
			require.Equal(t, n/3, filtered.Len())
		})
	}
}

func TestMetrics(t *testing.T) {
	m := NewMetrics()
	reg := prometheus.NewRegistry()
	require.NoError(t, m.Register(reg))
	require.Error(t, m.Register(reg))

	s := newCompressor(t, Config{Metrics: m})
	vals := make([]int32, 100)
	_, err := s.Compress(array.FromSlice(vals), nil)
	require.NoError(t, err)
	require.Equal(t, 1.0, testutil.ToFloat64(m.Chosen.WithLabelValues("constant")))
	require.Equal(t, 0.0, testutil.ToFloat64(m.SampledElements))

	_, err = newCompressor(t, Config{Metrics: m}, RunEnd).Compress(array.FromSlice([]int32{1, 2, 3}), nil)
	require.NoError(t, err)
	require.Equal(t, 1.0, testutil.ToFloat64(m.Chosen.WithLabelValues("none")))
	require.Equal(t, 3.0, testutil.ToFloat64(m.SampledElements))
}

func TestTreeString(t *testing.T) {
	tr := &Tree{ID: "dict", Children: []*Tree{
		{ID: "bitpacked", Metadata: 3},
		nil,
	}}
	require.Equal(t, "dict\n  bitpacked 3\n  -\n", tr.String())
	require.Nil(t, tr.Child(2))
	var nilTree *Tree
	require.Nil(t, nilTree.Child(0))
}

func TestNotApplicable(t *testing.T) {
	_, err := RunEnd.Compress(array.FromSlice([]int32{1, 2, 3, 4}), nil,
		&Ctx{s: newCompressor(t, Config{}), path: "root"})
	require.True(t, errors.Is(err, ErrNotApplicable))
}

func TestVerifyResult(t *testing.T) {
	orig := array.FromSlice([]int64{1, 2, 3, 4})
	require.NoError(t, verifyResult(orig, orig))
	require.Error(t, verifyResult(orig, array.FromSlice([]int64{1, 2, 3})))
	require.Error(t, verifyResult(orig, array.FromSlice([]int32{1, 2, 3, 4})))
	require.Error(t, verifyResult(orig, array.FromSlice([]int64{1, 2, 9, 4})))
	require.NoError(t, verifyResult(array.FromSlice([]int64{}), array.FromSlice([]int64{})))
}
