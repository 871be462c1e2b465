// Copyright 2025 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package array

import (
	"strings"
	"sync"

	"github.com/cockroachdb/colenc/dtype"
	"github.com/cockroachdb/colenc/scalar"
	"github.com/cockroachdb/redact"
)

// Stat enumerates the statistics an array can carry.
type Stat uint8

const (
	// StatBitWidthFreq is a list of u64 counts: entry w counts the integers
	// whose minimal unsigned bit width is w. Nulls count as zero.
	StatBitWidthFreq Stat = iota
	// StatTrailingZeroFreq is a list of u64 counts: entry z counts the integers
	// with z trailing zero bits. Zero counts as having the full bit width of
	// trailing zeros.
	StatTrailingZeroFreq
	// StatIsConstant is true when every element, nulls included, is equal.
	StatIsConstant
	// StatIsSorted is true when elements are non-decreasing, nulls sorting
	// last.
	StatIsSorted
	// StatIsStrictSorted is true when elements are strictly increasing.
	StatIsStrictSorted
	// StatMax is the largest non-null value.
	StatMax
	// StatMin is the smallest non-null value.
	StatMin
	// StatRunCount is the number of runs of consecutive equal elements.
	StatRunCount
	// StatTrueCount is the number of valid true elements of a bool array.
	StatTrueCount
	// StatNullCount is the number of null elements.
	StatNullCount
	numStats
)

var statNames = [numStats]string{
	StatBitWidthFreq:     "bit_width_freq",
	StatTrailingZeroFreq: "trailing_zero_freq",
	StatIsConstant:       "is_constant",
	StatIsSorted:         "is_sorted",
	StatIsStrictSorted:   "is_strict_sorted",
	StatMax:              "max",
	StatMin:              "min",
	StatRunCount:         "run_count",
	StatTrueCount:        "true_count",
	StatNullCount:        "null_count",
}

// AllStats lists every statistic.
var AllStats = func() []Stat {
	s := make([]Stat, numStats)
	for i := range s {
		s[i] = Stat(i)
	}
	return s
}()

// String implements fmt.Stringer.
func (s Stat) String() string {
	if s < numStats {
		return statNames[s]
	}
	return "unknown"
}

// SafeValue implements redact.SafeValue.
func (Stat) SafeValue() {}

var _ redact.SafeValue = Stat(0)

// Statistics is the memoized set of statistics of one array. It is safe for
// concurrent use. Values are computed on first request; concurrent
// computations of the same statistic produce equal values, so the last writer
// winning is harmless.
type Statistics struct {
	a  *Array
	mu struct {
		sync.RWMutex
		vals [numStats]scalar.Scalar
		set  [numStats]bool
	}
}

func newStatistics(a *Array) *Statistics {
	return &Statistics{a: a}
}

// Get returns the statistic if it has been computed or set.
func (s *Statistics) Get(stat Stat) (scalar.Scalar, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.mu.vals[stat], s.mu.set[stat]
}

// Set records the value of a statistic, for example to seed a freshly encoded
// array with facts known about its source.
func (s *Statistics) Set(stat Stat, v scalar.Scalar) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mu.vals[stat] = v
	s.mu.set[stat] = true
}

func (s *Statistics) setAll(vals map[Stat]scalar.Scalar) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, v := range vals {
		s.mu.vals[k] = v
		s.mu.set[k] = true
	}
}

// Inherit copies the listed statistics present in other.
func (s *Statistics) Inherit(other *Statistics, stats ...Stat) {
	for _, st := range stats {
		if v, ok := other.Get(st); ok {
			s.Set(st, v)
		}
	}
}

// Compute returns the statistic, computing and caching it if absent. It
// returns false if the statistic is undefined for the array, for example the
// minimum of an array of nulls or the run count of a struct array.
func (s *Statistics) Compute(stat Stat) (scalar.Scalar, bool) {
	if v, ok := s.Get(stat); ok {
		return v, true
	}
	a := s.a
	if f, ok := a.enc.(StatsFn); ok {
		if v, ok := f.ComputeStat(a, stat); ok {
			s.Set(stat, v)
			return v, true
		}
	}
	var vals map[Stat]scalar.Scalar
	if a.IsCanonical() {
		vals = computeCanonicalStats(a, stat)
	} else {
		c, err := Canonicalize(a)
		if err != nil {
			return scalar.Scalar{}, false
		}
		v, ok := c.Statistics().Compute(stat)
		if !ok {
			return scalar.Scalar{}, false
		}
		vals = map[Stat]scalar.Scalar{stat: v}
	}
	s.setAll(vals)
	v, ok := vals[stat]
	return v, ok
}

// ComputeBool computes a boolean statistic.
func (s *Statistics) ComputeBool(stat Stat) (v bool, ok bool) {
	sc, ok := s.Compute(stat)
	if !ok {
		return false, false
	}
	return sc.AsBool()
}

// ComputeUint64 computes a count statistic.
func (s *Statistics) ComputeUint64(stat Stat) (uint64, bool) {
	sc, ok := s.Compute(stat)
	if !ok {
		return 0, false
	}
	return sc.AsUint64()
}

// ComputeFreq computes a frequency list statistic.
func (s *Statistics) ComputeFreq(stat Stat) ([]uint64, bool) {
	sc, ok := s.Compute(stat)
	if !ok || sc.IsNull() {
		return nil, false
	}
	elems := sc.Elements()
	out := make([]uint64, len(elems))
	for i, e := range elems {
		out[i], _ = e.AsUint64()
	}
	return out, true
}

// ComputeAll computes every statistic defined for the array.
func (s *Statistics) ComputeAll() {
	for _, st := range AllStats {
		s.Compute(st)
	}
}

// String formats the statistics that are currently present.
func (s *Statistics) String() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var sb strings.Builder
	for i := Stat(0); i < numStats; i++ {
		if !s.mu.set[i] {
			continue
		}
		if sb.Len() > 0 {
			sb.WriteString(" ")
		}
		sb.WriteString(i.String())
		sb.WriteString("=")
		sb.WriteString(s.mu.vals[i].String())
	}
	return sb.String()
}

var freqDType = dtype.List(dtype.Primitive(dtype.U64, dtype.NonNullable), dtype.NonNullable)

// FreqScalar returns the list scalar holding a frequency statistic.
func FreqScalar(freq []uint64) scalar.Scalar {
	elems := make([]scalar.Scalar, len(freq))
	for i, f := range freq {
		elems[i] = scalar.Of(f)
	}
	s, err := scalar.List(freqDType, elems)
	if err != nil {
		panic(err)
	}
	return s
}

// CountScalar returns the scalar holding a count statistic.
func CountScalar(n int) scalar.Scalar { return scalar.Of(uint64(n)) }

// BoolScalar returns the scalar holding a boolean statistic.
func BoolScalar(b bool) scalar.Scalar { return scalar.Bool(b, dtype.NonNullable) }
