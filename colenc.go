// Copyright 2025 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

// Package colenc provides a columnar in-memory array format with composable
// compressed encodings.
//
// Arrays (package array) have a logical DType (package dtype) and a physical
// encoding. Every array, whatever its encoding, supports the same operations:
// ScalarAt, Slice, Take, Filter and Compare, and can be canonicalized into an
// uncompressed array. Encodings nest: the children of an encoded array are
// arrays themselves and may be encoded in turn.
//
// Compress chooses encodings for an array with the adaptive sampling engine
// of package compress, which compresses a small sample of the array with
// every applicable compressor and keeps the best one:
//
//	r, err := colenc.Compress(a, nil)
//	if err != nil {
//		return err
//	}
//	fmt.Print(r.Tree)
//
// The returned tree can be passed back as a hint to compress similar arrays
// the same way.
package colenc // import "github.com/cockroachdb/colenc"

import (
	"sync"

	"github.com/cockroachdb/colenc/array"
	"github.com/cockroachdb/colenc/compress"
	"github.com/cockroachdb/errors"
)

// Result is the result of a compression: the compressed array and the tree
// of choices that produced it.
type Result = compress.Result

// Tree records the compressors chosen for an array and its children.
type Tree = compress.Tree

// Config configures compression.
type Config = compress.Config

var defaultCompressor struct {
	once sync.Once
	c    *compress.SamplingCompressor
	err  error
}

// Compress compresses a with every compressor and the default
// configuration. If like is non-nil it is the tree of a previous compression
// of a similar array.
func Compress(a *array.Array, like *Tree) (Result, error) {
	defaultCompressor.once.Do(func() {
		defaultCompressor.c, defaultCompressor.err = NewCompressor(Config{})
	})
	if defaultCompressor.err != nil {
		return Result{}, defaultCompressor.err
	}
	return defaultCompressor.c.Compress(a, like)
}

// NewCompressor returns a compression engine with every compressor, except
// those disabled by cfg.
func NewCompressor(cfg Config) (*compress.SamplingCompressor, error) {
	c, err := compress.NewSamplingCompressor(cfg, compress.DefaultCompressors()...)
	if err != nil {
		return nil, errors.Wrap(err, "colenc: invalid compression config")
	}
	return c, nil
}
