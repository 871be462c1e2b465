// Copyright 2025 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package compress

import (
	"math"

	"github.com/cockroachdb/colenc/array"
	"github.com/cockroachdb/colenc/dtype"
	"github.com/cockroachdb/colenc/encodings/roaring"
	"github.com/cockroachdb/colenc/encodings/runendbool"
)

// Bool compressors.
var (
	RunEndBool  Compressor = runEndBoolCompressor{}
	RoaringBool Compressor = roaringBoolCompressor{}
)

type runEndBoolCompressor struct{}

func (runEndBoolCompressor) ID() string  { return "runend_bool" }
func (runEndBoolCompressor) Cost() uint8 { return 1 }

func (runEndBoolCompressor) UsedEncodings() []array.EncodingID {
	return []array.EncodingID{runendbool.ID}
}

func (runEndBoolCompressor) CanCompress(a *array.Array) bool {
	if !a.DType().IsBool() {
		return false
	}
	_, ok := avgRunLength(a)
	return ok
}

func (c runEndBoolCompressor) Compress(a *array.Array, like *Tree, ctx *Ctx) (Result, error) {
	if l, _ := avgRunLength(a); l < ctx.Config().RunEndThreshold {
		return Result{}, errNotApplicable(c, "average run length %.2f", l)
	}
	r, err := runendbool.Encode(a)
	if err != nil {
		return Result{}, err
	}
	return compressChildren(c.ID(), a, r, like, nil, ctx, childSpec{0, "ends"})
}

type roaringBoolCompressor struct{}

func (roaringBoolCompressor) ID() string  { return "roaring_bool" }
func (roaringBoolCompressor) Cost() uint8 { return 3 }

func (roaringBoolCompressor) UsedEncodings() []array.EncodingID {
	return []array.EncodingID{roaring.BoolID}
}

func (roaringBoolCompressor) CanCompress(a *array.Array) bool {
	return a.DType().Equal(dtype.Bool(dtype.NonNullable)) && uint64(a.Len()) <= math.MaxUint32
}

func (c roaringBoolCompressor) Compress(a *array.Array, _ *Tree, _ *Ctx) (Result, error) {
	r, err := roaring.EncodeBool(a)
	if err != nil {
		return Result{}, err
	}
	return leaf(c.ID(), a, r, nil), nil
}
