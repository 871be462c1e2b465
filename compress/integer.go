// Copyright 2025 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package compress

import (
	"github.com/cockroachdb/colenc/array"
	"github.com/cockroachdb/colenc/encodings/dict"
	"github.com/cockroachdb/colenc/encodings/fastlanes"
	"github.com/cockroachdb/colenc/encodings/roaring"
	"github.com/cockroachdb/colenc/encodings/runend"
	"github.com/cockroachdb/colenc/encodings/zigzag"
)

// Integer and general purpose compressors.
var (
	BitPacked  Compressor = bitPackedCompressor{}
	FoR        Compressor = forCompressor{}
	ZigZag     Compressor = zigzagCompressor{}
	Delta      Compressor = deltaCompressor{}
	RunEnd     Compressor = runEndCompressor{}
	Dict       Compressor = dictCompressor{}
	RoaringInt Compressor = roaringIntCompressor{}
)

type bitPackedCompressor struct{}

func (bitPackedCompressor) ID() string  { return "bitpacked" }
func (bitPackedCompressor) Cost() uint8 { return 0 }

func (bitPackedCompressor) UsedEncodings() []array.EncodingID {
	return []array.EncodingID{fastlanes.BitPackedID, array.SparseID}
}

// CanCompress returns true for unsigned integers that pack narrower than
// their type.
func (bitPackedCompressor) CanCompress(a *array.Array) bool {
	if !a.DType().IsUnsignedInt() {
		return false
	}
	_, ok := bestBitWidth(a)
	return ok
}

func bestBitWidth(a *array.Array) (int, bool) {
	freq, ok := a.Statistics().ComputeFreq(array.StatBitWidthFreq)
	if !ok {
		return 0, false
	}
	p := a.DType().PType()
	w := fastlanes.BestBitWidth(p, freq)
	return w, w < p.BitWidth()
}

func (c bitPackedCompressor) Compress(a *array.Array, _ *Tree, _ *Ctx) (Result, error) {
	w, ok := bestBitWidth(a)
	if !ok {
		w = a.DType().PType().BitWidth()
	}
	bp, err := fastlanes.BitPack(a, w)
	if err != nil {
		return Result{}, err
	}
	return leaf(c.ID(), a, bp, w), nil
}

type forCompressor struct{}

func (forCompressor) ID() string  { return "for" }
func (forCompressor) Cost() uint8 { return 1 }

func (forCompressor) UsedEncodings() []array.EncodingID {
	return []array.EncodingID{fastlanes.FoRID}
}

// CanCompress returns true for integers that are signed or whose minimum or
// common trailing zero bits can be factored out.
func (forCompressor) CanCompress(a *array.Array) bool {
	dt := a.DType()
	if !dt.IsInt() {
		return false
	}
	mn, ok := a.Statistics().Compute(array.StatMin)
	if !ok {
		return false
	}
	if dt.IsSignedInt() {
		return true
	}
	if v, _ := mn.AsUint64(); v != 0 {
		return true
	}
	tz, ok := a.Statistics().ComputeFreq(array.StatTrailingZeroFreq)
	return ok && len(tz) > 0 && tz[0] == 0
}

func (c forCompressor) Compress(a *array.Array, like *Tree, ctx *Ctx) (Result, error) {
	f, err := fastlanes.FoR(a)
	if err != nil {
		return Result{}, err
	}
	return compressChildren(c.ID(), a, f, like, nil, ctx.Excluding(c.ID()),
		childSpec{0, "encoded"})
}

type zigzagCompressor struct{}

func (zigzagCompressor) ID() string  { return "zigzag" }
func (zigzagCompressor) Cost() uint8 { return 0 }

func (zigzagCompressor) UsedEncodings() []array.EncodingID {
	return []array.EncodingID{zigzag.ID}
}

// CanCompress returns true for signed integers with negative values.
func (zigzagCompressor) CanCompress(a *array.Array) bool {
	if !a.DType().IsSignedInt() {
		return false
	}
	mn, ok := a.Statistics().Compute(array.StatMin)
	if !ok {
		return false
	}
	v, _ := mn.AsInt64()
	return v < 0
}

func (c zigzagCompressor) Compress(a *array.Array, like *Tree, ctx *Ctx) (Result, error) {
	z, err := zigzag.Encode(a)
	if err != nil {
		return Result{}, err
	}
	return compressChildren(c.ID(), a, z, like, nil, ctx.Excluding(c.ID()),
		childSpec{0, "encoded"})
}

type deltaCompressor struct{}

func (deltaCompressor) ID() string  { return "delta" }
func (deltaCompressor) Cost() uint8 { return 2 }

func (deltaCompressor) UsedEncodings() []array.EncodingID {
	return []array.EncodingID{fastlanes.DeltaID}
}

// CanCompress returns true for sorted unsigned integers.
func (deltaCompressor) CanCompress(a *array.Array) bool {
	return a.DType().IsUnsignedInt() && a.Len() > 1 && isTrue(a, array.StatIsSorted)
}

func (c deltaCompressor) Compress(a *array.Array, like *Tree, ctx *Ctx) (Result, error) {
	d, err := fastlanes.Delta(a)
	if err != nil {
		return Result{}, err
	}
	return compressChildren(c.ID(), a, d, like, nil, ctx.Excluding(c.ID()),
		childSpec{0, "bases"}, childSpec{1, "deltas"})
}

type runEndCompressor struct{}

func (runEndCompressor) ID() string  { return "runend" }
func (runEndCompressor) Cost() uint8 { return 2 }

func (runEndCompressor) UsedEncodings() []array.EncodingID {
	return []array.EncodingID{runend.ID}
}

// CanCompress returns true for primitive and variable-length arrays whose
// average run length reaches the configured threshold. The threshold is
// checked by Compress, which sees the configuration.
func (runEndCompressor) CanCompress(a *array.Array) bool {
	dt := a.DType()
	if !dt.IsPrimitive() && !dt.IsBinaryLike() {
		return false
	}
	_, ok := avgRunLength(a)
	return ok
}

func (c runEndCompressor) Compress(a *array.Array, like *Tree, ctx *Ctx) (Result, error) {
	if l, _ := avgRunLength(a); l < ctx.Config().RunEndThreshold {
		return Result{}, errNotApplicable(c, "average run length %.2f", l)
	}
	r, err := runend.Encode(a)
	if err != nil {
		return Result{}, err
	}
	ctx = ctx.Excluding(c.ID())
	return compressChildren(c.ID(), a, r, like, nil, ctx,
		childSpec{0, "ends"}, childSpec{1, "values"})
}

type dictCompressor struct{}

func (dictCompressor) ID() string  { return "dict" }
func (dictCompressor) Cost() uint8 { return 2 }

func (dictCompressor) UsedEncodings() []array.EncodingID {
	return []array.EncodingID{dict.ID}
}

// CanCompress returns true for primitive and variable-length arrays that are
// not known to be unique and whose estimated cardinality is at most half
// their length.
func (dictCompressor) CanCompress(a *array.Array) bool {
	dt := a.DType()
	if (!dt.IsPrimitive() && !dt.IsBinaryLike()) || a.Len() < 2 {
		return false
	}
	if v, ok := a.Statistics().Get(array.StatIsStrictSorted); ok {
		if strict, _ := v.AsBool(); strict {
			return false
		}
	}
	card, err := dict.EstimateCardinality(a)
	return err == nil && card*2 <= uint64(a.Len())
}

func (c dictCompressor) Compress(a *array.Array, like *Tree, ctx *Ctx) (Result, error) {
	d, err := dict.Encode(a)
	if err != nil {
		return Result{}, err
	}
	return compressChildren(c.ID(), a, d, like, nil, ctx.Excluding(c.ID()),
		childSpec{0, "codes"}, childSpec{1, "values"})
}

type roaringIntCompressor struct{}

func (roaringIntCompressor) ID() string  { return "roaring_int" }
func (roaringIntCompressor) Cost() uint8 { return 3 }

func (roaringIntCompressor) UsedEncodings() []array.EncodingID {
	return []array.EncodingID{roaring.IntID}
}

func (roaringIntCompressor) CanCompress(a *array.Array) bool { return roaring.CanEncodeInt(a) }

func (c roaringIntCompressor) Compress(a *array.Array, _ *Tree, _ *Ctx) (Result, error) {
	r, err := roaring.EncodeInt(a)
	if err != nil {
		return Result{}, err
	}
	return leaf(c.ID(), a, r, nil), nil
}
