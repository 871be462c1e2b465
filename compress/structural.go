// Copyright 2025 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package compress

import (
	"fmt"

	"github.com/cockroachdb/colenc/array"
	"github.com/cockroachdb/colenc/dtype"
	"github.com/cockroachdb/colenc/encodings/bytecomp"
	"github.com/cockroachdb/colenc/encodings/datetimeparts"
	"github.com/cockroachdb/colenc/internal/ewma"
	"github.com/cockroachdb/colenc/scalar"
	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/swiss"
	"golang.org/x/sync/errgroup"
)

// Compressors of nested, sparse and opaque layouts.
var (
	Constant       Compressor = constantCompressor{}
	Struct         Compressor = structCompressor{}
	Chunked        Compressor = chunkedCompressor{}
	Sparse         Compressor = sparseCompressor{}
	MostlyConstant Compressor = mostlyConstantCompressor{}
	DateTimeParts  Compressor = dateTimePartsCompressor{}
	ByteComp       Compressor = byteCompCompressor{}
)

type constantCompressor struct{}

func (constantCompressor) ID() string  { return "constant" }
func (constantCompressor) Cost() uint8 { return 0 }

func (constantCompressor) UsedEncodings() []array.EncodingID {
	return []array.EncodingID{array.ConstantID}
}

func (constantCompressor) CanCompress(a *array.Array) bool {
	return a.Len() > 0 && isTrue(a, array.StatIsConstant)
}

func (c constantCompressor) Compress(a *array.Array, _ *Tree, _ *Ctx) (Result, error) {
	s, err := array.ScalarAt(a, 0)
	if err != nil {
		return Result{}, err
	}
	return leaf(c.ID(), a, array.NewConstant(s, a.Len()), nil), nil
}

type structCompressor struct{}

func (structCompressor) ID() string  { return "struct" }
func (structCompressor) Cost() uint8 { return 0 }

func (structCompressor) UsedEncodings() []array.EncodingID {
	return []array.EncodingID{array.StructID}
}

func (structCompressor) CanCompress(a *array.Array) bool { return a.Is(array.StructID) }

// Compress compresses the fields concurrently, at most Parallelism at a time.
func (c structCompressor) Compress(a *array.Array, like *Tree, ctx *Ctx) (Result, error) {
	fields := array.StructFields(a)
	dt := a.DType()
	out := make([]*array.Array, len(fields))
	t := &Tree{ID: c.ID(), Children: make([]*Tree, len(fields))}
	var g errgroup.Group
	g.SetLimit(ctx.Config().Parallelism)
	for i, f := range fields {
		g.Go(func() error {
			r, err := ctx.Named(dt.FieldName(i)).Compress(f, like.Child(i))
			if err != nil {
				return errors.Wrapf(err, "compressing field %q", dt.FieldName(i))
			}
			out[i], t.Children[i] = r.Array, r.Tree
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Result{}, err
	}
	s, err := array.NewStruct(dt, out, a.Len(), array.StructValidity(a))
	if err != nil {
		return Result{}, err
	}
	return Result{Array: s, Tree: t}, nil
}

type chunkedCompressor struct{}

func (chunkedCompressor) ID() string  { return "chunked" }
func (chunkedCompressor) Cost() uint8 { return 0 }

func (chunkedCompressor) UsedEncodings() []array.EncodingID {
	return []array.EncodingID{array.ChunkedID}
}

func (chunkedCompressor) CanCompress(a *array.Array) bool { return a.Is(array.ChunkedID) }

// Compress compresses the chunks in order, each with the tree of the previous
// one as a hint. The compression ratio of every chunk is tracked by an
// exponentially weighted average over elements; a chunk whose ratio drifts
// from the average beyond ChunkRatioTolerance is compressed again without the
// hint and the smaller of the two results is kept. The tree of a chunked
// array has one child per chunk.
func (c chunkedCompressor) Compress(a *array.Array, like *Tree, ctx *Ctx) (Result, error) {
	chunks := array.Chunks(a)
	cfg := ctx.Config()
	var est ewma.Estimator
	est.Init(int64(max(a.Len()/max(len(chunks), 1), 1)) * 4)

	out := make([]*array.Array, len(chunks))
	t := &Tree{ID: c.ID(), Children: make([]*Tree, len(chunks))}
	hint := like.Child(0)
	for i, chunk := range chunks {
		cctx := ctx.Named(fmt.Sprintf("chunk%d", i))
		r, err := cctx.Compress(chunk, hint)
		if err != nil {
			return Result{}, errors.Wrapf(err, "compressing chunk %d", errors.Safe(i))
		}
		if orig := chunk.NBytes(); orig > 0 && chunk.Len() > 0 {
			ratio := float64(r.NBytes()) / float64(orig)
			if hint != nil && est.Drifted(ratio, cfg.ChunkRatioTolerance) {
				fresh, err := cctx.Compress(chunk, nil)
				if err != nil {
					return Result{}, errors.Wrapf(err, "compressing chunk %d", errors.Safe(i))
				}
				cfg.Logger.Infof("%s: chunk %d ratio %.3f drifted from %.3f, searched again: %d -> %d bytes",
					ctx.path, i, ratio, est.Estimate(), r.NBytes(), fresh.NBytes())
				if fresh.NBytes() < r.NBytes() {
					r = fresh
					ratio = float64(r.NBytes()) / float64(orig)
				}
			}
			est.Observe(int64(chunk.Len()), ratio)
		}
		out[i], t.Children[i] = r.Array, r.Tree
		if r.Tree != nil {
			hint = r.Tree
		}
	}
	ch, err := array.NewChunked(a.DType(), out)
	if err != nil {
		return Result{}, err
	}
	return Result{Array: ch, Tree: t}, nil
}

type sparseCompressor struct{}

func (sparseCompressor) ID() string  { return "sparse" }
func (sparseCompressor) Cost() uint8 { return 1 }

func (sparseCompressor) UsedEncodings() []array.EncodingID {
	return []array.EncodingID{array.SparseID}
}

// CanCompress returns true for arrays of which more than half, but not all,
// of the elements are null.
func (sparseCompressor) CanCompress(a *array.Array) bool {
	if !a.DType().IsNullable() || a.DType().IsStruct() {
		return false
	}
	nulls, ok := a.Statistics().ComputeUint64(array.StatNullCount)
	n := uint64(a.Len())
	return ok && nulls*2 > n && nulls < n
}

// Compress stores the non-null elements as exceptions to a null fill.
func (c sparseCompressor) Compress(a *array.Array, like *Tree, ctx *Ctx) (Result, error) {
	v, err := array.LogicalValidity(a)
	if err != nil {
		return Result{}, err
	}
	var positions []uint64
	for i := 0; i < a.Len(); i++ {
		if v.IsValid(i) {
			positions = append(positions, uint64(i))
		}
	}
	sp, err := exceptions(a, positions, scalar.Null(a.DType()))
	if err != nil {
		return Result{}, err
	}
	return compressChildren(c.ID(), a, sp, like, nil, ctx.Excluding(c.ID()),
		childSpec{0, "indices"}, childSpec{1, "values"})
}

// exceptions returns a sparse array holding the elements of a at positions
// over fill.
func exceptions(a *array.Array, positions []uint64, fill scalar.Scalar) (*array.Array, error) {
	values, err := array.Take(a, array.FromSlice(positions))
	if err != nil {
		return nil, err
	}
	n := a.Len()
	indices := array.PrimitiveFromRaw(dtype.MinUnsignedFor(uint64(max(n-1, 0))), positions,
		array.ValidityNonNullable())
	return array.NewSparse(indices, values, fill, n, 0)
}

type mostlyConstantCompressor struct{}

func (mostlyConstantCompressor) ID() string  { return "mostly_constant" }
func (mostlyConstantCompressor) Cost() uint8 { return 1 }

func (mostlyConstantCompressor) UsedEncodings() []array.EncodingID {
	return []array.EncodingID{array.SparseID}
}

// CanCompress returns true for primitive arrays that are not constant.
func (mostlyConstantCompressor) CanCompress(a *array.Array) bool {
	if !a.DType().IsPrimitive() || a.Len() < 2 {
		return false
	}
	v, ok := a.Statistics().ComputeBool(array.StatIsConstant)
	return ok && !v
}

// Compress stores the elements differing from the most frequent non-null
// value as exceptions to it. It declines if they are more than half of the
// array.
func (c mostlyConstantCompressor) Compress(a *array.Array, like *Tree, ctx *Ctx) (Result, error) {
	canon, err := array.Canonicalize(a)
	if err != nil {
		return Result{}, err
	}
	raw := array.RawValues(canon)
	v := array.PrimitiveValidity(canon)
	top, count, ok := mostFrequent(raw, v)
	if !ok || count*2 < len(raw) {
		return Result{}, errNotApplicable(c, "most frequent value covers %d of %d elements",
			errors.Safe(count), errors.Safe(len(raw)))
	}
	var positions []uint64
	for i, x := range raw {
		if !v.IsValid(i) || x != top {
			positions = append(positions, uint64(i))
		}
	}
	p := a.DType().PType()
	fill := scalar.Primitive(scalar.PValueFromBits(p, top), a.DType().Nullability())
	sp, err := exceptions(canon, positions, fill)
	if err != nil {
		return Result{}, err
	}
	return compressChildren(c.ID(), a, sp, like, nil, ctx.Excluding(c.ID()),
		childSpec{0, "indices"}, childSpec{1, "values"})
}

// mostFrequent returns the most frequent valid raw value, the smallest on
// ties, and its count.
func mostFrequent(raw []uint64, v array.Validity) (top uint64, count int, ok bool) {
	var counts swiss.Map[uint64, int]
	counts.Init(16)
	for i, x := range raw {
		if !v.IsValid(i) {
			continue
		}
		n, _ := counts.Get(x)
		n++
		counts.Put(x, n)
		if n > count || (n == count && x < top) {
			top, count, ok = x, n, true
		}
	}
	return top, count, ok
}

type dateTimePartsCompressor struct{}

func (dateTimePartsCompressor) ID() string  { return "datetimeparts" }
func (dateTimePartsCompressor) Cost() uint8 { return 1 }

func (dateTimePartsCompressor) UsedEncodings() []array.EncodingID {
	return []array.EncodingID{datetimeparts.ID}
}

func (dateTimePartsCompressor) CanCompress(a *array.Array) bool {
	return dtype.IsTimestamp(a.DType())
}

func (c dateTimePartsCompressor) Compress(a *array.Array, like *Tree, ctx *Ctx) (Result, error) {
	d, err := datetimeparts.Encode(a)
	if err != nil {
		return Result{}, err
	}
	return compressChildren(c.ID(), a, d, like, nil, ctx,
		childSpec{0, "days"}, childSpec{1, "seconds"}, childSpec{2, "subseconds"})
}

type byteCompCompressor struct{}

func (byteCompCompressor) ID() string  { return "bytecomp" }
func (byteCompCompressor) Cost() uint8 { return 3 }

func (byteCompCompressor) UsedEncodings() []array.EncodingID {
	return []array.EncodingID{bytecomp.ID}
}

func (byteCompCompressor) CanCompress(a *array.Array) bool { return a.DType().IsBinaryLike() }

// Compress compresses the data buffer with the configured ByteAlgorithm.
func (c byteCompCompressor) Compress(a *array.Array, like *Tree, ctx *Ctx) (Result, error) {
	bc := ctx.Config().byteCompressor()
	defer bc.Close()
	b, err := bytecomp.Encode(a, bc)
	if err != nil {
		return Result{}, err
	}
	return compressChildren(c.ID(), a, b, like, bytecomp.SettingOf(b), ctx, childSpec{0, "offsets"})
}
