// Copyright 2025 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package compress

import (
	"runtime"
	"slices"

	"github.com/cockroachdb/colenc/internal/base"
	"github.com/cockroachdb/colenc/internal/compression"
	"github.com/cockroachdb/errors"
)

// Logger defines an interface for writing log messages.
type Logger = base.Logger

// DefaultLogger logs to the Go stdlib logs.
type DefaultLogger = base.DefaultLogger

// AdaptiveByteAlgorithm selects, block by block, between a fast and a slow
// general purpose compression setting for byte compressed arrays.
const AdaptiveByteAlgorithm = "adaptive"

// Config holds the parameters of a SamplingCompressor. The zero value is
// usable once EnsureDefaults has been called.
type Config struct {
	// SampleSize is the number of consecutive elements in each sampled slice.
	SampleSize int
	// SampleCount is the number of slices sampled. Arrays no longer than
	// SampleSize*SampleCount are compressed whole when searching for an
	// encoding.
	SampleCount int
	// MaxDepth bounds the nesting of compressed encodings. An array at depth
	// MaxDepth is left as is.
	MaxDepth int
	// Disabled lists the IDs of compressors that are never used.
	Disabled []string
	// CostOverrides replaces the relative cost of the compressors with the
	// given IDs.
	CostOverrides map[string]uint8
	// RunEndThreshold is the minimum average run length of arrays that are
	// run-end encoded.
	RunEndThreshold float64
	// Parallelism is the number of struct fields compressed concurrently.
	Parallelism int
	// Seed seeds the sampling. Compression is deterministic for a given input,
	// configuration and seed.
	Seed uint64
	// ChunkRatioTolerance is the relative deviation of a chunk's compression
	// ratio from the average of the preceding chunks above which the encoding
	// of the previous chunk is no longer reused and a new one is searched for.
	ChunkRatioTolerance float64
	// ByteAlgorithm is the general purpose compression setting of byte
	// compressed arrays, in the form accepted by compression.ParseSetting
	// ("snappy", "minlz1", "zstd3", ...), or AdaptiveByteAlgorithm.
	ByteAlgorithm string
	// Logger for logging chosen encodings. Defaults to discarding.
	Logger Logger
	// Metrics, if set, records the chosen compressors and achieved ratios.
	Metrics *Metrics
}

// EnsureDefaults fills in the zero fields of c with their default values.
func (c *Config) EnsureDefaults() *Config {
	if c.SampleSize <= 0 {
		c.SampleSize = 64
	}
	if c.SampleCount <= 0 {
		c.SampleCount = 16
	}
	if c.MaxDepth <= 0 {
		c.MaxDepth = 6
	}
	if c.RunEndThreshold <= 0 {
		c.RunEndThreshold = 2
	}
	if c.Parallelism <= 0 {
		c.Parallelism = runtime.GOMAXPROCS(0)
	}
	if c.ChunkRatioTolerance <= 0 {
		c.ChunkRatioTolerance = 0.25
	}
	if c.ByteAlgorithm == "" {
		c.ByteAlgorithm = compression.ZstdLevel1.String()
	}
	if c.Logger == nil {
		c.Logger = base.NoopLogger{}
	}
	return c
}

// Validate returns an error if the configuration is unusable.
func (c *Config) Validate() error {
	if c.SampleSize <= 0 || c.SampleCount <= 0 {
		return errors.Newf("invalid sampling of %d slices of %d elements",
			errors.Safe(c.SampleCount), errors.Safe(c.SampleSize))
	}
	if c.MaxDepth <= 0 {
		return errors.Newf("invalid max depth %d", errors.Safe(c.MaxDepth))
	}
	if c.ByteAlgorithm != AdaptiveByteAlgorithm {
		if _, err := compression.ParseSetting(c.ByteAlgorithm); err != nil {
			return err
		}
	}
	return nil
}

// byteCompressor returns a new block compressor for ByteAlgorithm. The caller
// must Close it.
func (c *Config) byteCompressor() compression.Compressor {
	if c.ByteAlgorithm == AdaptiveByteAlgorithm {
		return compression.NewAdaptiveCompressor(compression.AdaptiveCompressorParams{
			Fast:            compression.MinLZFastest,
			Slow:            compression.ZstdLevel3,
			ReductionCutoff: 0.2,
			SampleEvery:     4,
			SampleHalfLife:  1 << 20,
			SamplingSeed:    c.Seed,
		})
	}
	s, err := compression.ParseSetting(c.ByteAlgorithm)
	if err != nil {
		panic(errors.NewAssertionErrorWithWrappedErrf(err, "unvalidated config"))
	}
	return compression.GetCompressor(s)
}

func (c *Config) disabled(id string) bool { return slices.Contains(c.Disabled, id) }

func (c *Config) cost(comp Compressor) uint8 {
	if v, ok := c.CostOverrides[comp.ID()]; ok {
		return v
	}
	return comp.Cost()
}
