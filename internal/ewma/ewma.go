// Copyright 2025 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

// Package ewma implements an exponentially weighted moving average over a
// stream of weighted observations.
package ewma

import (
	"math"

	"github.com/cockroachdb/colenc/internal/invariants"
)

// Estimator averages values observed over consecutive spans of a stream,
// weighting each unit of a span (a byte of a block, an element of a chunk) by
// how recently it was seen. Let pos_i and val_i be the position and value of
// each observed unit; the estimate at position p is:
//
//		Sum_i val_i*(1-alpha)^(p-pos_i)
//	  -------------------------------
//	     Sum_i (1-alpha)^(p-pos_i)
//
// Spans that were skipped still age the earlier observations.
type Estimator struct {
	alpha       float64
	sum         float64
	totalWeight float64
	gap         int64
}

// Init resets the estimator such that a unit observed halfLife units ago has
// half the weight of a unit observed now.
func (e *Estimator) Init(halfLife int64) {
	*e = Estimator{}
	// 1 - 2^(-1/H) computed as -expm1(-ln(2)/H), which stays precise for large
	// H.
	e.alpha = -math.Expm1(-math.Ln2 / float64(halfLife))
}

// Estimate returns the current estimate, or NaN before the first
// observation.
func (e *Estimator) Estimate() float64 {
	return e.sum / e.totalWeight
}

// Observed returns true once at least one span has been observed.
func (e *Estimator) Observed() bool { return e.totalWeight > 0 }

// Skip advances the stream by n units without an observation.
func (e *Estimator) Skip(n int64) {
	if n < 0 {
		if invariants.Enabled {
			panic("ewma: negative skip")
		}
		return
	}
	e.gap += n
}

// Observe records value for a span of n units.
func (e *Estimator) Observe(n int64, value float64) {
	if n < 1 {
		if invariants.Enabled {
			panic("ewma: empty span")
		}
		return
	}
	d := e.decay(e.gap + n)
	e.sum *= d
	e.totalWeight *= d
	e.gap = 0

	// The n new units weigh Sum_{0<=i<n} (1-alpha)^i = (1-(1-alpha)^n)/alpha;
	// the 1/alpha factor is common to every weight and dropped.
	w := 1 - e.decay(n)
	e.sum += value * w
	e.totalWeight += w
}

// Drifted returns true if value differs from the current estimate by more than
// the relative tolerance. It returns false before the first observation.
func (e *Estimator) Drifted(value, tolerance float64) bool {
	if !e.Observed() {
		return false
	}
	est := e.Estimate()
	if est == 0 {
		return value != 0
	}
	return math.Abs(value-est)/math.Abs(est) > tolerance
}

// decay returns (1 - alpha)^n.
func (e *Estimator) decay(n int64) float64 {
	return math.Exp(float64(n) * math.Log1p(-e.alpha))
}
