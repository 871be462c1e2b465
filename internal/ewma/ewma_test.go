// Copyright 2025 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package ewma

import (
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEstimator(t *testing.T) {
	const eps = 0.1
	var e Estimator
	e.Init(1000)
	require.True(t, math.IsNaN(e.Estimate()))
	require.False(t, e.Observed())
	require.False(t, e.Drifted(5, 0.1))

	e.Observe(100, 4.0)
	require.InEpsilon(t, 4.0, e.Estimate(), eps)
	require.False(t, e.Drifted(4.2, 0.1))
	require.True(t, e.Drifted(6, 0.1))

	e.Skip(10000)
	require.InEpsilon(t, 4.0, e.Estimate(), eps)
	e.Observe(100, 8.0)
	require.InEpsilon(t, 8.0, e.Estimate(), eps)

	e.Init(1000)
	e.Observe(1, 0.0)
	e.Skip(1000)
	e.Observe(1, 1.0)
	// The unit one half-life ago weighs half as much.
	require.InEpsilon(t, 0.66, e.Estimate(), eps)
}

func TestEstimatorHalfLife(t *testing.T) {
	for _, n := range []int64{1, 3, 100, 10_000, 1 << 20, 1 << 30} {
		t.Run(fmt.Sprint(n), func(t *testing.T) {
			var e Estimator
			e.Init(n)
			const eps = 1e-8
			require.InEpsilon(t, 1.0/2, e.decay(n), eps)
			require.InDelta(t, 1.0/4, e.decay(2*n), eps)
			require.InDelta(t, 1.0/8, e.decay(3*n), eps)
		})
	}
}
