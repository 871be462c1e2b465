// Copyright 2025 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package compress

import (
	"github.com/cockroachdb/colenc/array"
	"github.com/cockroachdb/colenc/dtype"
	"github.com/cockroachdb/colenc/encodings/alp"
)

// Floating point compressors.
var (
	ALP   Compressor = alpCompressor{}
	ALPRD Compressor = alpRDCompressor{}
)

func isALPFloat(a *array.Array) bool {
	dt := a.DType()
	return dt.IsFloat() && dt.PType() != dtype.F16
}

type alpCompressor struct{}

func (alpCompressor) ID() string  { return "alp" }
func (alpCompressor) Cost() uint8 { return 1 }

func (alpCompressor) UsedEncodings() []array.EncodingID {
	return []array.EncodingID{alp.ID, array.SparseID}
}

func (alpCompressor) CanCompress(a *array.Array) bool { return isALPFloat(a) }

// Compress reuses the exponents of like, if any.
func (c alpCompressor) Compress(a *array.Array, like *Tree, ctx *Ctx) (Result, error) {
	var exps *alp.Exponents
	if like != nil {
		if e, ok := like.Metadata.(alp.Exponents); ok {
			exps = &e
		}
	}
	enc, err := alp.Encode(a, exps)
	if err != nil {
		return Result{}, err
	}
	return compressChildren(c.ID(), a, enc, like, alp.ExponentsOf(enc), ctx.Excluding(c.ID()),
		childSpec{0, "encoded"})
}

type alpRDCompressor struct{}

func (alpRDCompressor) ID() string  { return "alprd" }
func (alpRDCompressor) Cost() uint8 { return 2 }

func (alpRDCompressor) UsedEncodings() []array.EncodingID {
	return []array.EncodingID{alp.RDID, array.SparseID}
}

func (alpRDCompressor) CanCompress(a *array.Array) bool { return isALPFloat(a) }

// Compress reuses the dictionary of like, if any.
func (c alpRDCompressor) Compress(a *array.Array, like *Tree, ctx *Ctx) (Result, error) {
	var d *alp.Dict
	if like != nil {
		if ld, ok := like.Metadata.(alp.Dict); ok {
			d = &ld
		}
	}
	enc, err := alp.EncodeRD(a, d)
	if err != nil {
		return Result{}, err
	}
	return compressChildren(c.ID(), a, enc, like, alp.DictOf(enc), ctx.Excluding(c.ID(), ALP.ID()),
		childSpec{0, "left"}, childSpec{1, "right"})
}
