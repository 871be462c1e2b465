// Copyright 2025 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

// Package compress implements the adaptive compression engine. A
// SamplingCompressor chooses an encoding for an array by compressing a small
// stratified sample of it with every applicable Compressor and keeping the one
// with the best size to cost trade-off. The chosen compressor then compresses
// the whole array, recursively compressing the children of the encoding it
// produces through the same engine.
//
// The result of a compression is the compressed array together with a Tree
// recording the choices made at every level. Passing a Tree back as a hint
// compresses a similar array, such as the next chunk of a column, the same
// way without searching again.
package compress

import (
	"math"
	"math/rand/v2"
	"slices"

	"github.com/cespare/xxhash/v2"
	"github.com/cockroachdb/colenc/array"
	"github.com/cockroachdb/colenc/internal/invariants"
	"github.com/cockroachdb/errors"
)

// Compressor produces one encoding. Compressors are stateless and safe for
// concurrent use.
type Compressor interface {
	// ID returns the identifier recorded in Trees.
	ID() string
	// Cost returns the relative decoding cost of the encoding, from 0 for
	// encodings as cheap to read as canonical arrays upward.
	Cost() uint8
	// CanCompress returns true if the compressor applies to a. It should be
	// answered from the DType and statistics of a.
	CanCompress(a *array.Array) bool
	// Compress encodes a, compressing the children of the encoding through
	// c. If like is non-nil it is a tree this compressor produced for a
	// similar array and its trained parameters should be reused.
	Compress(a *array.Array, like *Tree, c *Ctx) (Result, error)
	// UsedEncodings returns the encodings the compressor may produce.
	UsedEncodings() []array.EncodingID
}

// costDivisor scales compressor costs into the objective: a compressor of
// cost k must achieve a size k/costDivisor smaller, relatively, than one of
// cost 0 to be preferred.
const costDivisor = 32

// objective is minimized over the candidate compressors.
func objective(compressed, original int, cost uint8) float64 {
	ratio := float64(compressed) / float64(max(original, 1))
	return ratio * (1 + float64(cost)/costDivisor)
}

// SamplingCompressor is the compression engine.
type SamplingCompressor struct {
	cfg         Config
	compressors []Compressor
	byID        map[string]Compressor
	constant    Compressor
}

// NewSamplingCompressor returns an engine choosing among compressors, in
// order of preference on ties. The configuration is defaulted and validated.
func NewSamplingCompressor(cfg Config, compressors ...Compressor) (*SamplingCompressor, error) {
	cfg.EnsureDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	s := &SamplingCompressor{
		cfg:         cfg,
		compressors: compressors,
		byID:        make(map[string]Compressor, len(compressors)),
	}
	for _, c := range compressors {
		if _, ok := s.byID[c.ID()]; ok {
			return nil, errors.Newf("duplicate compressor %q", c.ID())
		}
		s.byID[c.ID()] = c
		if c.ID() == Constant.ID() {
			s.constant = c
		}
	}
	return s, nil
}

// Config returns the defaulted configuration of the engine.
func (s *SamplingCompressor) Config() *Config { return &s.cfg }

// Compressors returns the compressors of the engine.
func (s *SamplingCompressor) Compressors() []Compressor { return s.compressors }

// Compress compresses a. If like is non-nil it is the tree of a previous
// compression of a similar array, whose choices are reused where they still
// apply. Compressing never changes the DType, the length or the elements of
// a; if no encoding makes a smaller, a is returned as is with a nil tree.
func (s *SamplingCompressor) Compress(a *array.Array, like *Tree) (Result, error) {
	r, err := s.compress(a, like, &Ctx{s: s, path: "root"})
	if err != nil {
		return Result{}, err
	}
	s.cfg.Metrics.recordRatio(r.NBytes(), a.NBytes())
	if invariants.Sometimes(10) {
		if err := verifyResult(a, r.Array); err != nil {
			panic(err)
		}
	}
	return r, nil
}

// verifyResult checks that compressed holds the values of orig at a few
// positions.
func verifyResult(orig, compressed *array.Array) error {
	if orig.Len() != compressed.Len() || !orig.DType().Equal(compressed.DType()) {
		return errors.AssertionFailedf("compressed %s[%d] from %s[%d]",
			compressed.DType(), errors.Safe(compressed.Len()), orig.DType(), errors.Safe(orig.Len()))
	}
	if orig.Len() == 0 {
		return nil
	}
	for _, i := range []int{0, orig.Len() / 2, orig.Len() - 1} {
		want, err := array.ScalarAt(orig, i)
		if err != nil {
			return err
		}
		got, err := array.ScalarAt(compressed, i)
		if err != nil {
			return err
		}
		if !want.Equal(got) {
			return errors.AssertionFailedf("value %d: compressed to %s, was %s", errors.Safe(i), got, want)
		}
	}
	return nil
}

func (s *SamplingCompressor) compress(a *array.Array, like *Tree, c *Ctx) (Result, error) {
	if a.Len() == 0 || c.depth >= s.cfg.MaxDepth {
		return uncompressed(a), nil
	}
	if like != nil {
		if comp, ok := s.byID[like.ID]; ok && c.allowed(comp) && comp.CanCompress(a) {
			r, err := comp.Compress(a, like, c)
			if err == nil {
				s.cfg.Metrics.recordChosen(comp.ID())
				return r, nil
			}
			s.cfg.Logger.Infof("%s: reusing %s failed, searching: %v", c.path, like.ID, err)
		}
	}
	if s.constant != nil && c.allowed(s.constant) && s.constant.CanCompress(a) {
		r, err := s.constant.Compress(a, nil, c)
		if err != nil {
			return Result{}, err
		}
		s.cfg.Metrics.recordChosen(s.constant.ID())
		return r, nil
	}

	var candidates []Compressor
	for _, comp := range s.compressors {
		if c.allowed(comp) && comp.CanCompress(a) {
			candidates = append(candidates, comp)
		}
	}
	if len(candidates) == 0 {
		s.cfg.Metrics.recordChosen("")
		return uncompressed(a), nil
	}

	sample, err := s.sample(a, c)
	if err != nil {
		return Result{}, err
	}
	best, bestResult, ok := s.search(sample, candidates, c)
	if !ok {
		s.cfg.Metrics.recordChosen("")
		return uncompressed(a), nil
	}
	r := bestResult
	if sample != a {
		r, err = best.Compress(a, bestResult.Tree, c)
		if err != nil {
			return Result{}, errors.Wrapf(err, "compressing %s with %s", c.path, best.ID())
		}
	}
	if r.NBytes() >= a.NBytes() {
		s.cfg.Logger.Infof("%s: %s does not reduce %d bytes", c.path, best.ID(), a.NBytes())
		s.cfg.Metrics.recordChosen("")
		return uncompressed(a), nil
	}
	s.cfg.Metrics.recordChosen(best.ID())
	return r, nil
}

// search compresses sample with every candidate and returns the one
// minimizing the objective. It returns ok=false if no candidate makes the
// sample smaller.
func (s *SamplingCompressor) search(
	sample *array.Array, candidates []Compressor, c *Ctx,
) (best Compressor, bestResult Result, ok bool) {
	original := sample.NBytes()
	bestObjective := math.Inf(1)
	for _, comp := range candidates {
		s.cfg.Metrics.recordSample(sample.Len())
		r, err := comp.Compress(sample, nil, c)
		if err != nil {
			s.cfg.Logger.Infof("%s: %s failed on sample: %v", c.path, comp.ID(), err)
			continue
		}
		if r.NBytes() >= original {
			continue
		}
		obj := objective(r.NBytes(), original, s.cfg.cost(comp))
		s.cfg.Logger.Infof("%s: %s compresses sample of %d to %d bytes, objective %.4f",
			c.path, comp.ID(), original, r.NBytes(), obj)
		if obj < bestObjective {
			best, bestResult, bestObjective = comp, r, obj
		}
	}
	return best, bestResult, best != nil
}

// sample returns a if it is short, and otherwise the concatenation of
// SampleCount slices of SampleSize elements, one chosen at random from each
// of SampleCount equal partitions of a. The random source is seeded from the
// configured seed and the position of a in the tree being compressed, so that
// concurrent compressions of siblings are deterministic.
func (s *SamplingCompressor) sample(a *array.Array, c *Ctx) (*array.Array, error) {
	size, count := s.cfg.SampleSize, s.cfg.SampleCount
	n := a.Len()
	if n <= size*count {
		return a, nil
	}
	rng := rand.New(rand.NewPCG(s.cfg.Seed, xxhash.Sum64String(c.path)))
	parts := make([]*array.Array, 0, count)
	for _, p := range partitions(n, count) {
		start := p[0]
		if span := p[1] - p[0] - size; span > 0 {
			start += rng.IntN(span + 1)
		}
		stop := min(start+size, p[1])
		sl, err := array.Slice(a, start, stop)
		if err != nil {
			return nil, err
		}
		parts = append(parts, sl)
	}
	return array.Concat(a.DType(), parts)
}

// partitions splits [0, n) into count contiguous ranges whose lengths differ
// by at most one.
func partitions(n, count int) [][2]int {
	out := make([][2]int, count)
	q, r := n/count, n%count
	start := 0
	for i := range out {
		l := q
		if i < r {
			l++
		}
		out[i] = [2]int{start, start + l}
		start += l
	}
	return out
}

// Ctx is the position of an array within a compression: its depth, its path
// from the root for logging and seeding, and the compressors excluded for it
// and its descendants.
type Ctx struct {
	s        *SamplingCompressor
	depth    int
	path     string
	excluded []string
}

// Config returns the configuration of the engine.
func (c *Ctx) Config() *Config { return &c.s.cfg }

// Depth returns the nesting depth of the array being compressed.
func (c *Ctx) Depth() int { return c.depth }

// Named returns a context for the child called name.
func (c *Ctx) Named(name string) *Ctx {
	n := *c
	n.path = c.path + "." + name
	return &n
}

// Excluding returns a context in which the given compressors are not used.
func (c *Ctx) Excluding(ids ...string) *Ctx {
	n := *c
	n.excluded = append(append([]string(nil), c.excluded...), ids...)
	return &n
}

// Compress compresses a child of the array being compressed, one level
// deeper.
func (c *Ctx) Compress(a *array.Array, like *Tree) (Result, error) {
	n := *c
	n.depth++
	return c.s.compress(a, like, &n)
}

func (c *Ctx) allowed(comp Compressor) bool {
	return !c.s.cfg.disabled(comp.ID()) && !slices.Contains(c.excluded, comp.ID())
}
