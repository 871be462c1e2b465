// Copyright 2025 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

// Package alp implements the adaptive lossless floating point encodings.
//
// ALP encodes a float v as the integer round(v * 10^e * 10^-f) for a pair of
// exponents chosen per array, which is exact for values that were decimals
// with few digits. Values that do not round trip bit-exactly are patched.
//
// ALP-RD handles the floats ALP cannot: it splits each value's bits into a
// right part of fixed width, stored as is, and a left part, which has few
// distinct values and is dictionary encoded.
package alp

import (
	"math"
	"math/bits"
	"sort"

	"github.com/cockroachdb/colenc/array"
	"github.com/cockroachdb/colenc/dtype"
	"github.com/cockroachdb/colenc/internal/metabuf"
	"github.com/cockroachdb/colenc/scalar"
	"github.com/cockroachdb/errors"
)

// ID identifies the ALP encoding.
const ID array.EncodingID = "colenc.alp"

// Exponents are the ALP exponents: values are multiplied by 10^E and divided
// by 10^F before rounding.
type Exponents struct {
	E, F uint8
}

// maxExponent returns the largest useful exponent for a float type.
func maxExponent(p dtype.PType) uint8 {
	if p == dtype.F32 {
		return 10
	}
	return 18
}

var (
	pow10 = func() (p [19]float64) {
		p[0] = 1
		for i := 1; i < len(p); i++ {
			p[i] = p[i-1] * 10
		}
		return p
	}()
	invPow10 = func() (p [19]float64) {
		for i := range p {
			p[i] = 1 / pow10[i]
		}
		return p
	}()
)

func (e Exponents) encode(v float64) float64 {
	return math.Round(v * pow10[e.E] * invPow10[e.F])
}

func (e Exponents) decode(d int64) float64 {
	return float64(d) * pow10[e.F] * invPow10[e.E]
}

// encodedType returns the integer type floats of type p encode to.
func encodedType(p dtype.PType) dtype.PType {
	if p == dtype.F32 {
		return dtype.I32
	}
	return dtype.I64
}

type meta struct {
	exps    Exponents
	patches *array.Array
	// positions caches the patch positions.
	positions []uint64
}

type encoding struct{}

// Encoding is the ALP encoding.
var Encoding array.Encoding = encoding{}

func init() { array.Register(Encoding) }

// New returns an ALP array decoding the integer encoded child with the given
// exponents. Patches, if not nil, must be a sparse float array of the same
// length overriding the decoded values.
func New(encoded *array.Array, exps Exponents, patches *array.Array) (*array.Array, error) {
	var p dtype.PType
	switch {
	case encoded.DType().Equal(dtype.Primitive(dtype.I32, encoded.DType().Nullability())):
		p = dtype.F32
	case encoded.DType().Equal(dtype.Primitive(dtype.I64, encoded.DType().Nullability())):
		p = dtype.F64
	default:
		return nil, array.TypeMismatchf("ALP child must be i32 or i64, got %s", encoded.DType())
	}
	if exps.F > exps.E || exps.E > maxExponent(p) {
		return nil, array.InvalidArgumentf("invalid ALP exponents e=%d f=%d for %s",
			errors.Safe(exps.E), errors.Safe(exps.F), p)
	}
	m := meta{exps: exps}
	if patches != nil {
		dt := dtype.Primitive(p, encoded.DType().Nullability())
		if !patches.Is(array.SparseID) || !patches.DType().Equal(dt) || patches.Len() != encoded.Len() {
			return nil, array.InvalidArgumentf("ALP patches must be a sparse %s array of length %d, got %s",
				dt, errors.Safe(encoded.Len()), patches)
		}
		m.patches, m.positions = patches, array.SparsePositions(patches)
	}
	return newALP(encoded, p, m), nil
}

func newALP(encoded *array.Array, p dtype.PType, m meta) *array.Array {
	children := []*array.Array{encoded}
	if m.patches != nil {
		children = append(children, m.patches)
	}
	dt := dtype.Primitive(p, encoded.DType().Nullability())
	return array.New(Encoding, dt, encoded.Len(), m, nil, children)
}

// Encoded returns the integer child of an ALP array.
func Encoded(a *array.Array) *array.Array { return a.Child(0) }

// Patches returns the patches of an ALP array, or nil.
func Patches(a *array.Array) *array.Array { return a.Meta().(meta).patches }

// ExponentsOf returns the exponents of an ALP array.
func ExponentsOf(a *array.Array) Exponents { return a.Meta().(meta).exps }

// sampleSize is the number of values exponents are chosen from.
const sampleSize = 256

// FindExponents returns the exponents minimizing the estimated encoded size of
// a sample of the float array a.
func FindExponents(a *array.Array) (Exponents, error) {
	if !a.DType().IsFloat() || a.DType().PType() == dtype.F16 {
		return Exponents{}, array.TypeMismatchf("cannot ALP encode %s", a.DType())
	}
	c, err := array.Canonicalize(a)
	if err != nil {
		return Exponents{}, err
	}
	p := a.DType().PType()
	vals, valid := floatValues(c)
	step := max(1, len(vals)/sampleSize)
	var sample []float64
	for i := 0; i < len(vals); i += step {
		if valid.IsValid(i) {
			sample = append(sample, vals[i])
		}
	}
	best, bestCost := Exponents{}, uint64(math.MaxUint64)
	for e := uint8(0); e <= maxExponent(p); e++ {
		for f := uint8(0); f <= e; f++ {
			exps := Exponents{E: e, F: f}
			var lo, hi int64
			var exceptions, n uint64
			for _, v := range sample {
				d, ok := exps.encodeExact(p, v)
				if !ok {
					exceptions++
					continue
				}
				if n == 0 || d < lo {
					lo = d
				}
				if n == 0 || d > hi {
					hi = d
				}
				n++
			}
			width := uint64(0)
			if n > 0 {
				width = uint64(bits.Len64(uint64(hi - lo)))
			}
			cost := width*uint64(len(sample)) + exceptions*uint64(p.BitWidth()+32)
			if cost < bestCost {
				best, bestCost = exps, cost
			}
		}
	}
	return best, nil
}

// encodeExact returns the encoding of v and whether it decodes back to
// exactly v as a value of type p.
func (e Exponents) encodeExact(p dtype.PType, v float64) (int64, bool) {
	d := e.encode(v)
	limit := float64(math.MaxInt64 >> 1)
	if p == dtype.F32 {
		limit = math.MaxInt32
	}
	if math.IsNaN(d) || math.Abs(d) > limit {
		return 0, false
	}
	enc := int64(d)
	dec := e.decode(enc)
	if p == dtype.F32 {
		return enc, math.Float32bits(float32(dec)) == math.Float32bits(float32(v))
	}
	return enc, math.Float64bits(dec) == math.Float64bits(v)
}

// floatValues widens the values of a canonical f32 or f64 array.
func floatValues(c *array.Array) ([]float64, array.Validity) {
	v := array.PrimitiveValidity(c)
	if c.DType().PType() == dtype.F64 {
		return array.PrimitiveValues[float64](c), v
	}
	f32 := array.PrimitiveValues[float32](c)
	out := make([]float64, len(f32))
	for i, x := range f32 {
		out[i] = float64(x)
	}
	return out, v
}

// Encode ALP encodes an f32 or f64 array with the given exponents, or with
// exponents found by FindExponents if exps is nil.
func Encode(a *array.Array, exps *Exponents) (*array.Array, error) {
	if !a.DType().IsFloat() || a.DType().PType() == dtype.F16 {
		return nil, array.TypeMismatchf("cannot ALP encode %s", a.DType())
	}
	var e Exponents
	if exps != nil {
		e = *exps
	} else {
		var err error
		if e, err = FindExponents(a); err != nil {
			return nil, err
		}
	}
	c, err := array.Canonicalize(a)
	if err != nil {
		return nil, err
	}
	p := a.DType().PType()
	vals, valid := floatValues(c)
	enc := make([]uint64, len(vals))
	var positions []uint64
	var fill uint64
	haveFill := false
	for i, v := range vals {
		if !valid.IsValid(i) {
			continue
		}
		d, ok := e.encodeExact(p, v)
		if !ok {
			positions = append(positions, uint64(i))
			continue
		}
		enc[i] = uint64(d)
		if !haveFill {
			fill, haveFill = uint64(d), true
		}
	}
	// Exceptions take a neighbouring value so as not to widen the encoded
	// range.
	for _, i := range positions {
		enc[i] = fill
	}
	m := meta{exps: e}
	if len(positions) > 0 {
		if m.patches, err = newPatches(c, positions); err != nil {
			return nil, err
		}
		m.positions = positions
	}
	return newALP(array.PrimitiveFromRaw(encodedType(p), enc, valid), p, m), nil
}

// newPatches returns a sparse array over the elements of the canonical array
// c at the given positions.
func newPatches(c *array.Array, positions []uint64) (*array.Array, error) {
	values, err := array.Take(c, array.FromSlice(positions))
	if err != nil {
		return nil, err
	}
	indices := array.PrimitiveFromRaw(dtype.MinUnsignedFor(uint64(c.Len())), positions, array.ValidityNonNullable())
	return array.NewSparse(indices, values, array.ZeroScalar(c.DType()), c.Len(), 0)
}

// selectPatches returns the patches of the elements at the given source
// positions, in order, as a sparse array of length len(sel). It returns nil
// if none of them are patched.
func selectPatches(patches *array.Array, positions []uint64, sel []uint64, valid func(k int) bool) (*array.Array, error) {
	if patches == nil {
		return nil, nil
	}
	var out, from []uint64
	for k, i := range sel {
		if !valid(k) {
			continue
		}
		if j, ok := findPosition(positions, i); ok {
			out = append(out, uint64(k))
			from = append(from, uint64(j))
		}
	}
	if len(out) == 0 {
		return nil, nil
	}
	values, err := array.Take(array.SparseValues(patches), array.FromSlice(from))
	if err != nil {
		return nil, err
	}
	indices := array.PrimitiveFromRaw(dtype.MinUnsignedFor(uint64(len(sel))), out, array.ValidityNonNullable())
	return array.NewSparse(indices, values, array.ZeroScalar(patches.DType()), len(sel), 0)
}

func findPosition(positions []uint64, i uint64) (int, bool) {
	j := sort.Search(len(positions), func(k int) bool { return positions[k] >= i })
	return j, j < len(positions) && positions[j] == i
}

func (encoding) ID() array.EncodingID { return ID }

func (encoding) Canonicalize(a *array.Array) (*array.Array, error) {
	m := a.Meta().(meta)
	c, err := array.Canonicalize(Encoded(a))
	if err != nil {
		return nil, err
	}
	v := array.PrimitiveValidity(c)
	var base *array.Array
	switch a.DType().PType() {
	case dtype.F32:
		enc := array.PrimitiveValues[int32](c)
		out := make([]float32, len(enc))
		for i, d := range enc {
			out[i] = float32(m.exps.decode(int64(d)))
		}
		base = array.FromSliceWithValidity(out, v)
	default:
		enc := array.PrimitiveValues[int64](c)
		out := make([]float64, len(enc))
		for i, d := range enc {
			out[i] = m.exps.decode(d)
		}
		base = array.FromSliceWithValidity(out, v)
	}
	if m.patches == nil {
		return base, nil
	}
	return array.ApplyPatches(base, m.positions, array.SparseValues(m.patches))
}

func (encoding) MarshalMetadata(a *array.Array) []byte {
	m := a.Meta().(meta)
	var w metabuf.Writer
	w.Byte(m.exps.E)
	w.Byte(m.exps.F)
	w.Bool(m.patches != nil)
	return w.Finish()
}

func (encoding) Build(p array.Parts) (*array.Array, error) {
	r := metabuf.NewReader(p.Metadata)
	exps := Exponents{E: r.Byte(), F: r.Byte()}
	hasPatches := r.Bool()
	if err := r.Done(); err != nil {
		return nil, errors.Mark(err, array.ErrInvalidArgument)
	}
	want := 1
	if hasPatches {
		want++
	}
	if len(p.Buffers) != 0 || len(p.Children) != want {
		return nil, array.InvalidArgumentf("ALP array with %d buffers and %d children",
			errors.Safe(len(p.Buffers)), errors.Safe(len(p.Children)))
	}
	var patches *array.Array
	if hasPatches {
		patches = p.Children[1]
	}
	a, err := New(p.Children[0], exps, patches)
	if err != nil {
		return nil, err
	}
	if !a.DType().Equal(p.DType) {
		return nil, array.TypeMismatchf("ALP array of %s with dtype %s", a.DType(), p.DType)
	}
	return a, nil
}

func (encoding) ScalarAt(a *array.Array, i int) (scalar.Scalar, error) {
	m := a.Meta().(meta)
	if _, ok := findPosition(m.positions, uint64(i)); ok {
		return array.ScalarAt(m.patches, i)
	}
	s, err := array.ScalarAt(Encoded(a), i)
	if err != nil {
		return scalar.Scalar{}, err
	}
	return m.decodeScalar(s, a.DType()), nil
}

func (m meta) decodeScalar(s scalar.Scalar, dt dtype.DType) scalar.Scalar {
	d, ok := s.AsInt64()
	if !ok {
		return scalar.Null(dt)
	}
	f := m.exps.decode(d)
	if dt.PType() == dtype.F32 {
		return scalar.Primitive(scalar.PValueOf(float32(f)), dt.Nullability())
	}
	return scalar.Primitive(scalar.PValueOf(f), dt.Nullability())
}

func (encoding) Slice(a *array.Array, start, stop int) (*array.Array, error) {
	m := a.Meta().(meta)
	enc, err := array.Slice(Encoded(a), start, stop)
	if err != nil {
		return nil, err
	}
	out := meta{exps: m.exps}
	lo, _ := findPosition(m.positions, uint64(start))
	hi, _ := findPosition(m.positions, uint64(stop))
	if lo < hi {
		if out.patches, err = array.Slice(m.patches, start, stop); err != nil {
			return nil, err
		}
		out.positions = array.SparsePositions(out.patches)
	}
	return newALP(enc, a.DType().PType(), out), nil
}

func (encoding) Take(a *array.Array, indices *array.Array) (*array.Array, error) {
	m := a.Meta().(meta)
	enc, err := array.Take(Encoded(a), indices)
	if err != nil {
		return nil, err
	}
	iv := array.PrimitiveValidity(indices)
	patches, err := selectPatches(m.patches, m.positions, array.IndicesOf(indices), iv.IsValid)
	if err != nil {
		return nil, err
	}
	return withPatches(enc, a.DType().PType(), m.exps, patches)
}

func (encoding) Filter(a *array.Array, mask *array.Array) (*array.Array, error) {
	m := a.Meta().(meta)
	enc, err := array.Filter(Encoded(a), mask)
	if err != nil {
		return nil, err
	}
	set := array.SetIndices(mask)
	sel := make([]uint64, len(set))
	for k, i := range set {
		sel[k] = uint64(i)
	}
	patches, err := selectPatches(m.patches, m.positions, sel, func(int) bool { return true })
	if err != nil {
		return nil, err
	}
	return withPatches(enc, a.DType().PType(), m.exps, patches)
}

// withPatches returns an ALP array over enc. The patches, taken from an array
// of possibly different nullability, are cast to match enc.
func withPatches(enc *array.Array, p dtype.PType, exps Exponents, patches *array.Array) (*array.Array, error) {
	m := meta{exps: exps}
	if patches != nil {
		dt := dtype.Primitive(p, enc.DType().Nullability())
		if !patches.DType().Equal(dt) {
			values, err := array.Cast(array.SparseValues(patches), dt)
			if err != nil {
				return nil, err
			}
			if patches, err = array.NewSparse(patches.Child(0), values, array.ZeroScalar(dt),
				patches.Len(), 0); err != nil {
				return nil, err
			}
		}
		m.patches, m.positions = patches, array.SparsePositions(patches)
	}
	return newALP(enc, p, m), nil
}

func (encoding) IsValid(a *array.Array, i int) bool {
	ok, err := array.IsValid(Encoded(a), i)
	return err == nil && ok
}

func (encoding) LogicalValidity(a *array.Array) (array.Validity, error) {
	return array.LogicalValidity(Encoded(a))
}

// ComputeStat derives statistics from the encoded child when nothing is
// patched; decoding is monotonic.
func (encoding) ComputeStat(a *array.Array, s array.Stat) (scalar.Scalar, bool) {
	m := a.Meta().(meta)
	enc := Encoded(a)
	if s == array.StatNullCount {
		return enc.Statistics().Compute(s)
	}
	if m.patches != nil {
		return scalar.Scalar{}, false
	}
	switch s {
	case array.StatIsConstant, array.StatIsSorted, array.StatIsStrictSorted, array.StatRunCount:
		return enc.Statistics().Compute(s)
	case array.StatMin, array.StatMax:
		v, ok := enc.Statistics().Compute(s)
		if !ok {
			return scalar.Scalar{}, false
		}
		return m.decodeScalar(v, a.DType()), true
	}
	return scalar.Scalar{}, false
}
