// Copyright 2025 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package compression

import (
	"math"
	"math/rand/v2"

	"github.com/cockroachdb/colenc/internal/ewma"
)

// AdaptiveCompressor chooses between a fast and a slow setting per block. It
// uses the slow setting as long as it reduces the compressed size, relative to
// the fast setting, by at least a cutoff. The reduction is estimated from a
// sample of blocks compressed both ways.
type AdaptiveCompressor struct {
	fast Compressor
	slow Compressor

	reductionCutoff float64
	sampleEvery     int
	// estimator of the relative size reduction of the slow setting, per byte.
	estimator ewma.Estimator
	rng       rand.PCG

	buf []byte
}

// AdaptiveCompressorParams configures an AdaptiveCompressor.
type AdaptiveCompressorParams struct {
	Fast Setting
	Slow Setting
	// ReductionCutoff is the relative size reduction of Slow over Fast below
	// which Fast is used. A cutoff of 0.3 uses Slow only if it produces blocks
	// at least 30% smaller.
	ReductionCutoff float64
	// SampleEvery is the inverse probability of sampling a block.
	SampleEvery int
	// SampleHalfLife is the half-life, in bytes, of the reduction estimate.
	SampleHalfLife int64
	SamplingSeed   uint64
}

// NewAdaptiveCompressor returns an adaptive compressor. The caller must Close
// it.
func NewAdaptiveCompressor(p AdaptiveCompressorParams) *AdaptiveCompressor {
	ac := &AdaptiveCompressor{
		fast:            GetCompressor(p.Fast),
		slow:            GetCompressor(p.Slow),
		reductionCutoff: p.ReductionCutoff,
		sampleEvery:     max(p.SampleEvery, 1),
	}
	ac.estimator.Init(p.SampleHalfLife)
	ac.rng.Seed(p.SamplingSeed, p.SamplingSeed)
	return ac
}

var _ Compressor = (*AdaptiveCompressor)(nil)

// Compress implements Compressor.
func (ac *AdaptiveCompressor) Compress(dst, src []byte) ([]byte, Setting) {
	estimate := ac.estimator.Estimate()
	sample := math.IsNaN(estimate) || ac.rng.Uint64()%uint64(ac.sampleEvery) == 0
	if !sample {
		ac.estimator.Skip(int64(len(src)))
		if estimate < ac.reductionCutoff {
			return ac.fast.Compress(dst, src)
		}
		return ac.slow.Compress(dst, src)
	}
	bufFast, fastSetting := ac.fast.Compress(ac.buf[:0], src)
	ac.buf = bufFast[:0]
	dst, slowSetting := ac.slow.Compress(dst, src)
	reduction := 0.0
	if len(bufFast) > 0 {
		reduction = 1 - float64(len(dst))/float64(len(bufFast))
	}
	if len(src) > 0 {
		ac.estimator.Observe(int64(len(src)), reduction)
	}
	if reduction < ac.reductionCutoff {
		return append(dst[:0], bufFast...), fastSetting
	}
	return dst, slowSetting
}

// Close implements Compressor.
func (ac *AdaptiveCompressor) Close() {
	ac.fast.Close()
	ac.slow.Close()
	ac.buf = nil
}
