// Copyright 2025 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package compress

import (
	"slices"

	"github.com/cockroachdb/colenc/array"
	"github.com/cockroachdb/errors"
)

// DefaultCompressors returns every compressor, in order of preference on
// ties.
func DefaultCompressors() []Compressor {
	return []Compressor{
		Constant,
		Struct,
		Chunked,
		DateTimeParts,
		BitPacked,
		FoR,
		ZigZag,
		Delta,
		RunEnd,
		Dict,
		ALP,
		ALPRD,
		RunEndBool,
		RoaringBool,
		RoaringInt,
		Sparse,
		MostlyConstant,
		ByteComp,
	}
}

// childSpec names a child of an encoding compressed through the engine.
type childSpec struct {
	index int
	name  string
}

// compressChildren compresses the given children of a, in order, with the
// corresponding children of like as hints, and reassembles a around them. The
// resulting tree has ID id, metadata md and one child per childSpec. Statistics
// computed on orig, the array a was encoded from, carry over.
func compressChildren(
	id string, orig, a *array.Array, like *Tree, md any, c *Ctx, specs ...childSpec,
) (Result, error) {
	encID, p := array.Decompose(a)
	children := slices.Clone(p.Children)
	t := &Tree{ID: id, Metadata: md, Children: make([]*Tree, len(specs))}
	for k, s := range specs {
		r, err := c.Named(s.name).Compress(children[s.index], like.Child(k))
		if err != nil {
			return Result{}, err
		}
		children[s.index] = r.Array
		t.Children[k] = r.Tree
	}
	p.Children = children
	out, err := array.Rebuild(encID, p)
	if err != nil {
		return Result{}, errors.NewAssertionErrorWithWrappedErrf(err, "reassembling %s array", encID)
	}
	out.Statistics().Inherit(orig.Statistics(), array.AllStats...)
	return Result{Array: out, Tree: t}, nil
}

// leaf returns the result of an encoding without compressed children.
func leaf(id string, orig, a *array.Array, md any) Result {
	a.Statistics().Inherit(orig.Statistics(), array.AllStats...)
	return Result{Array: a, Tree: &Tree{ID: id, Metadata: md}}
}

// avgRunLength returns the average run length of a, if its run count can be
// computed.
func avgRunLength(a *array.Array) (float64, bool) {
	runs, ok := a.Statistics().ComputeUint64(array.StatRunCount)
	if !ok || runs == 0 {
		return 0, false
	}
	return float64(a.Len()) / float64(runs), true
}

func isTrue(a *array.Array, s array.Stat) bool {
	v, ok := a.Statistics().ComputeBool(s)
	return ok && v
}

// ErrNotApplicable marks errors of compressors asked to compress an array
// they do not apply to. The engine treats them like any failed candidate.
var ErrNotApplicable = errors.New("compressor not applicable")

func errNotApplicable(c Compressor, format string, args ...interface{}) error {
	return errors.Mark(errors.Wrapf(errors.Newf(format, args...), "%s", errors.Safe(c.ID())), ErrNotApplicable)
}
