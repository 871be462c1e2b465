// Copyright 2025 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package array

import (
	"bytes"
	"cmp"
	"math"
	"math/bits"

	"github.com/apache/arrow-go/v18/arrow/float16"
	"github.com/cockroachdb/colenc/dtype"
	"github.com/cockroachdb/colenc/scalar"
)

// scanResult holds the order statistics gathered in one pass over an array.
type scanResult struct {
	sorted, strict, constant bool
	runs                     int
	minIdx, maxIdx           int
	nulls                    int
}

// scan walks n elements comparing neighbours. Nulls sort after every value,
// and two nulls are equal.
func scan(
	n int, valid func(int) bool, compare func(i, j int) int, equal func(i, j int) bool,
) scanResult {
	r := scanResult{sorted: true, strict: true, constant: true, minIdx: -1, maxIdx: -1}
	prevValid := false
	for i := 0; i < n; i++ {
		ok := valid(i)
		if !ok {
			r.nulls++
		}
		if i == 0 {
			r.runs = 1
		} else {
			switch {
			case prevValid && ok:
				if !equal(i-1, i) {
					r.runs++
					r.constant = false
				}
				c := compare(i-1, i)
				if c > 0 {
					r.sorted = false
				}
				if c >= 0 {
					r.strict = false
				}
			case prevValid:
				r.runs++
				r.constant = false
			case ok:
				r.runs++
				r.constant = false
				r.sorted = false
				r.strict = false
			default:
				r.strict = false
			}
		}
		if ok {
			if r.minIdx < 0 || compare(i, r.minIdx) < 0 {
				r.minIdx = i
			}
			if r.maxIdx < 0 || compare(i, r.maxIdx) > 0 {
				r.maxIdx = i
			}
		}
		prevValid = ok
	}
	return r
}

func (r scanResult) stats(at func(i int) scalar.Scalar) map[Stat]scalar.Scalar {
	m := map[Stat]scalar.Scalar{
		StatIsConstant:     BoolScalar(r.constant),
		StatIsSorted:       BoolScalar(r.sorted),
		StatIsStrictSorted: BoolScalar(r.strict),
		StatRunCount:       CountScalar(r.runs),
		StatNullCount:      CountScalar(r.nulls),
	}
	if r.minIdx >= 0 {
		m[StatMin] = at(r.minIdx)
		m[StatMax] = at(r.maxIdx)
	}
	return m
}

// computeCanonicalStats computes stat over a canonical array. It may compute
// and return other statistics gathered in the same pass.
func computeCanonicalStats(a *Array, stat Stat) map[Stat]scalar.Scalar {
	switch a.enc.ID() {
	case NullID:
		m := map[Stat]scalar.Scalar{
			StatNullCount:      CountScalar(a.length),
			StatIsConstant:     BoolScalar(true),
			StatIsSorted:       BoolScalar(true),
			StatIsStrictSorted: BoolScalar(a.length <= 1),
			StatRunCount:       CountScalar(min(a.length, 1)),
		}
		return m
	case BoolID:
		v := canonicalValidity(a)
		m := scan(a.length, v.IsValid,
			func(i, j int) int { return cmpBool(boolValue(a, i), boolValue(a, j)) },
			func(i, j int) bool { return boolValue(a, i) == boolValue(a, j) },
		).stats(func(i int) scalar.Scalar { return scalar.Bool(boolValue(a, i), a.dtype.Nullability()) })
		if tc, ok := (boolEncoding{}).ComputeStat(a, StatTrueCount); ok {
			m[StatTrueCount] = tc
		}
		return m
	case PrimitiveID:
		if stat == StatBitWidthFreq || stat == StatTrailingZeroFreq {
			if !a.dtype.IsInt() {
				return nil
			}
			bw, tz := intFreqs(a)
			return map[Stat]scalar.Scalar{
				StatBitWidthFreq:     FreqScalar(bw),
				StatTrailingZeroFreq: FreqScalar(tz),
			}
		}
		return primitiveStats(a)
	case VarBinID:
		v := canonicalValidity(a)
		return scan(a.length, v.IsValid,
			func(i, j int) int { return bytes.Compare(VarBinBytes(a, i), VarBinBytes(a, j)) },
			func(i, j int) bool { return bytes.Equal(VarBinBytes(a, i), VarBinBytes(a, j)) },
		).stats(func(i int) scalar.Scalar { return scalar.BufferOf(a.dtype, bytes.Clone(VarBinBytes(a, i))) })
	case StructID:
		return map[Stat]scalar.Scalar{
			StatNullCount: CountScalar(canonicalValidity(a).NullCount(a.length)),
		}
	case ExtensionID:
		st := a.children[0]
		v, ok := st.Statistics().Compute(stat)
		if !ok {
			return nil
		}
		if stat == StatMin || stat == StatMax {
			v = scalar.Extension(a.dtype, v)
		}
		return map[Stat]scalar.Scalar{stat: v}
	}
	return nil
}

func cmpBool(a, b bool) int {
	switch {
	case a == b:
		return 0
	case !a:
		return -1
	default:
		return 1
	}
}

func primitiveStats(a *Array) map[Stat]scalar.Scalar {
	switch a.dtype.PType() {
	case dtype.U8:
		return primitiveScan[uint8](a)
	case dtype.U16:
		return primitiveScan[uint16](a)
	case dtype.U32:
		return primitiveScan[uint32](a)
	case dtype.U64:
		return primitiveScan[uint64](a)
	case dtype.I8:
		return primitiveScan[int8](a)
	case dtype.I16:
		return primitiveScan[int16](a)
	case dtype.I32:
		return primitiveScan[int32](a)
	case dtype.I64:
		return primitiveScan[int64](a)
	case dtype.F16:
		raw := Uint16s(a.buffers[0], a.length)
		vals := make([]float32, len(raw))
		for i, r := range raw {
			vals[i] = float16.FromBits(r).Float32()
		}
		return scanFloats(a, vals, func(i int) scalar.Scalar {
			return scalar.F16(float16.FromBits(raw[i]), a.dtype.Nullability())
		})
	case dtype.F32:
		vals := Values[float32](a.buffers[0], a.length)
		return scanFloats(a, vals, func(i int) scalar.Scalar {
			return scalar.Primitive(scalar.PValueOf(vals[i]), a.dtype.Nullability())
		})
	default:
		vals := Values[float64](a.buffers[0], a.length)
		return scanFloats(a, vals, func(i int) scalar.Scalar {
			return scalar.Primitive(scalar.PValueOf(vals[i]), a.dtype.Nullability())
		})
	}
}

func primitiveScan[T dtype.NativeInt](a *Array) map[Stat]scalar.Scalar {
	vals := Values[T](a.buffers[0], a.length)
	v := canonicalValidity(a)
	return scan(len(vals), v.IsValid,
		func(i, j int) int { return cmp.Compare(vals[i], vals[j]) },
		func(i, j int) bool { return vals[i] == vals[j] },
	).stats(func(i int) scalar.Scalar {
		return scalar.Primitive(scalar.PValueOf(vals[i]), a.dtype.Nullability())
	})
}

// scanFloats compares floats by value for ordering and by bit pattern for
// equality, so that runs never merge -0 with +0 or distinct NaNs.
func scanFloats[T dtype.NativeFloat](
	a *Array, vals []T, at func(i int) scalar.Scalar,
) map[Stat]scalar.Scalar {
	v := canonicalValidity(a)
	return scan(len(vals), v.IsValid,
		func(i, j int) int { return cmp.Compare(vals[i], vals[j]) },
		func(i, j int) bool {
			return math.Float64bits(float64(vals[i])) == math.Float64bits(float64(vals[j]))
		},
	).stats(at)
}

// intFreqs computes the bit width and trailing zero histograms of a canonical
// integer array. Nulls count as zero.
func intFreqs(a *Array) (bitWidth, trailingZeros []uint64) {
	w := a.dtype.PType().BitWidth()
	bitWidth = make([]uint64, w+1)
	trailingZeros = make([]uint64, w+1)
	v := canonicalValidity(a)
	forEachRawUint(a, func(i int, u uint64) {
		if !v.IsValid(i) {
			u = 0
		}
		bitWidth[bits.Len64(u)]++
		if u == 0 {
			trailingZeros[w]++
		} else {
			trailingZeros[bits.TrailingZeros64(u)]++
		}
	})
	return bitWidth, trailingZeros
}

// forEachRawUint calls fn with the zero-extended storage bits of every element
// of a canonical integer array.
func forEachRawUint(a *Array, fn func(i int, u uint64)) {
	switch a.dtype.PType().ByteWidth() {
	case 1:
		for i, x := range Values[uint8](a.buffers[0], a.length) {
			fn(i, uint64(x))
		}
	case 2:
		for i, x := range Values[uint16](a.buffers[0], a.length) {
			fn(i, uint64(x))
		}
	case 4:
		for i, x := range Values[uint32](a.buffers[0], a.length) {
			fn(i, uint64(x))
		}
	default:
		for i, x := range Values[uint64](a.buffers[0], a.length) {
			fn(i, x)
		}
	}
}
