// Copyright 2025 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package alp

import (
	"cmp"
	"math"
	"math/bits"
	"slices"

	"github.com/cockroachdb/colenc/array"
	"github.com/cockroachdb/colenc/dtype"
	"github.com/cockroachdb/colenc/internal/metabuf"
	"github.com/cockroachdb/colenc/scalar"
	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/swiss"
)

// RDID identifies the ALP-RD encoding.
const RDID array.EncodingID = "colenc.alprd"

// MaxDictSize is the maximum number of left parts an ALP-RD dictionary holds.
const MaxDictSize = 8

// maxLeftWidth bounds the width of the left parts, which are stored as u16.
const maxLeftWidth = 16

// Dict is the ALP-RD split of a float's bits: the low RightWidth bits are
// stored as is, and the remaining left bits are replaced by their index in
// Left when present there.
type Dict struct {
	RightWidth uint8
	Left       []uint16
}

func (d Dict) code(left uint16) (uint16, bool) {
	for i, l := range d.Left {
		if l == left {
			return uint16(i), true
		}
	}
	return 0, false
}

type rdMeta struct {
	dict    Dict
	patches *array.Array
	// positions caches the patch positions.
	positions []uint64
}

type rdEncoding struct{}

// RDEncoding is the ALP-RD encoding.
var RDEncoding array.Encoding = rdEncoding{}

func init() { array.Register(RDEncoding) }

// rightType returns the unsigned type holding the bits of floats of type p.
func rightType(p dtype.PType) dtype.PType {
	if p == dtype.F32 {
		return dtype.U32
	}
	return dtype.U64
}

// NewRD returns an ALP-RD array of type p. Left codes are u16 indexes into the
// dictionary and carry the validity; right parts are non-nullable unsigned
// integers as wide as p. Patches, if not nil, are a sparse u16 array of the
// left parts that are not in the dictionary.
func NewRD(
	p dtype.PType, leftCodes, rightParts *array.Array, dict Dict, patches *array.Array,
) (*array.Array, error) {
	if p != dtype.F32 && p != dtype.F64 {
		return nil, array.TypeMismatchf("cannot ALP-RD encode %s", p)
	}
	if !leftCodes.DType().EqualIgnoringNullability(dtype.Primitive(dtype.U16, dtype.NonNullable)) {
		return nil, array.TypeMismatchf("ALP-RD left codes must be u16, got %s", leftCodes.DType())
	}
	if !rightParts.DType().Equal(dtype.Primitive(rightType(p), dtype.NonNullable)) {
		return nil, array.TypeMismatchf("ALP-RD right parts must be non-nullable %s, got %s",
			rightType(p), rightParts.DType())
	}
	if rightParts.Len() != leftCodes.Len() {
		return nil, array.InvalidArgumentf("%d left codes for %d right parts",
			errors.Safe(leftCodes.Len()), errors.Safe(rightParts.Len()))
	}
	if int(dict.RightWidth) >= p.BitWidth() || p.BitWidth()-int(dict.RightWidth) > maxLeftWidth ||
		len(dict.Left) == 0 || len(dict.Left) > MaxDictSize {
		return nil, array.InvalidArgumentf("invalid ALP-RD dictionary of %d entries with right width %d",
			errors.Safe(len(dict.Left)), errors.Safe(dict.RightWidth))
	}
	if mx, ok := leftCodes.Statistics().Compute(array.StatMax); ok {
		if v, _ := mx.AsUint64(); v >= uint64(len(dict.Left)) {
			return nil, array.InvalidArgumentf("ALP-RD left code %d out of range", errors.Safe(v))
		}
	}
	m := rdMeta{dict: dict}
	if patches != nil {
		dt := dtype.Primitive(dtype.U16, dtype.NonNullable)
		if !patches.Is(array.SparseID) || !patches.DType().Equal(dt) || patches.Len() != leftCodes.Len() {
			return nil, array.InvalidArgumentf("ALP-RD patches must be a sparse u16 array of length %d, got %s",
				errors.Safe(leftCodes.Len()), patches)
		}
		m.patches, m.positions = patches, array.SparsePositions(patches)
	}
	return newRD(p, leftCodes, rightParts, m), nil
}

func newRD(p dtype.PType, leftCodes, rightParts *array.Array, m rdMeta) *array.Array {
	children := []*array.Array{leftCodes, rightParts}
	if m.patches != nil {
		children = append(children, m.patches)
	}
	dt := dtype.Primitive(p, leftCodes.DType().Nullability())
	return array.New(RDEncoding, dt, leftCodes.Len(), m, nil, children)
}

// LeftCodes returns the left codes child of an ALP-RD array.
func LeftCodes(a *array.Array) *array.Array { return a.Child(0) }

// RightParts returns the right parts child of an ALP-RD array.
func RightParts(a *array.Array) *array.Array { return a.Child(1) }

// LeftPatches returns the left part patches of an ALP-RD array, or nil.
func LeftPatches(a *array.Array) *array.Array { return a.Meta().(rdMeta).patches }

// DictOf returns the dictionary of an ALP-RD array.
func DictOf(a *array.Array) Dict { return a.Meta().(rdMeta).dict }

// FindDict chooses the right width and left dictionary minimizing the
// estimated encoded size of a sample of the float array a.
func FindDict(a *array.Array) (Dict, error) {
	if !a.DType().IsFloat() || a.DType().PType() == dtype.F16 {
		return Dict{}, array.TypeMismatchf("cannot ALP-RD encode %s", a.DType())
	}
	p := a.DType().PType()
	c, err := array.Canonicalize(a)
	if err != nil {
		return Dict{}, err
	}
	raw := array.RawValues(c)
	valid := array.PrimitiveValidity(c)
	step := max(1, len(raw)/sampleSize)
	var sample []uint64
	for i := 0; i < len(raw); i += step {
		if valid.IsValid(i) {
			sample = append(sample, raw[i])
		}
	}
	w := p.BitWidth()
	var best Dict
	bestCost := uint64(math.MaxUint64)
	for r := w - maxLeftWidth; r < w; r++ {
		d, exceptions := buildDict(sample, uint8(r))
		codeWidth := bits.Len(uint(len(d.Left) - 1))
		cost := uint64(len(sample))*uint64(r+codeWidth) + exceptions*(maxLeftWidth+32)
		if cost < bestCost {
			best, bestCost = d, cost
		}
	}
	return best, nil
}

// buildDict returns the dictionary of the MaxDictSize most frequent left parts
// of vals split at the given right width, and the number of values whose left
// part it misses.
func buildDict(vals []uint64, rightWidth uint8) (Dict, uint64) {
	var counts swiss.Map[uint16, uint64]
	counts.Init(MaxDictSize)
	var lefts []uint16
	for _, v := range vals {
		l := uint16(v >> rightWidth)
		n, ok := counts.Get(l)
		if !ok {
			lefts = append(lefts, l)
		}
		counts.Put(l, n+1)
	}
	slices.SortFunc(lefts, func(a, b uint16) int {
		na, _ := counts.Get(a)
		nb, _ := counts.Get(b)
		if c := cmp.Compare(nb, na); c != 0 {
			return c
		}
		return cmp.Compare(a, b)
	})
	k := min(len(lefts), MaxDictSize)
	d := Dict{RightWidth: rightWidth, Left: slices.Clone(lefts[:k])}
	if k == 0 {
		d.Left = []uint16{0}
	}
	var exceptions uint64
	for _, l := range lefts[k:] {
		n, _ := counts.Get(l)
		exceptions += n
	}
	return d, exceptions
}

// EncodeRD ALP-RD encodes an f32 or f64 array with the given dictionary, or
// with one found by FindDict if d is nil.
func EncodeRD(a *array.Array, d *Dict) (*array.Array, error) {
	if !a.DType().IsFloat() || a.DType().PType() == dtype.F16 {
		return nil, array.TypeMismatchf("cannot ALP-RD encode %s", a.DType())
	}
	p := a.DType().PType()
	var dict Dict
	if d != nil {
		dict = *d
	} else {
		var err error
		if dict, err = FindDict(a); err != nil {
			return nil, err
		}
	}
	c, err := array.Canonicalize(a)
	if err != nil {
		return nil, err
	}
	raw := array.RawValues(c)
	valid := array.PrimitiveValidity(c)
	codes := make([]uint64, len(raw))
	rights := make([]uint64, len(raw))
	rmask := uint64(1)<<dict.RightWidth - 1
	var positions, lefts []uint64
	for i, v := range raw {
		if !valid.IsValid(i) {
			continue
		}
		rights[i] = v & rmask
		l := uint16(v >> dict.RightWidth)
		code, ok := dict.code(l)
		if !ok {
			positions = append(positions, uint64(i))
			lefts = append(lefts, uint64(l))
		}
		codes[i] = uint64(code)
	}
	m := rdMeta{dict: dict}
	if len(positions) > 0 {
		indices := array.PrimitiveFromRaw(dtype.MinUnsignedFor(uint64(len(raw))), positions, array.ValidityNonNullable())
		values := array.PrimitiveFromRaw(dtype.U16, lefts, array.ValidityNonNullable())
		if m.patches, err = array.NewSparse(indices, values, array.ZeroScalar(values.DType()), len(raw), 0); err != nil {
			return nil, err
		}
		m.positions = positions
	}
	return newRD(p,
		array.PrimitiveFromRaw(dtype.U16, codes, valid),
		array.PrimitiveFromRaw(rightType(p), rights, array.ValidityNonNullable()),
		m), nil
}

func (rdEncoding) ID() array.EncodingID { return RDID }

func (rdEncoding) Canonicalize(a *array.Array) (*array.Array, error) {
	m := a.Meta().(rdMeta)
	cc, err := array.Canonicalize(LeftCodes(a))
	if err != nil {
		return nil, err
	}
	cr, err := array.Canonicalize(RightParts(a))
	if err != nil {
		return nil, err
	}
	codes, out := array.RawValues(cc), array.RawValues(cr)
	for i, code := range codes {
		if int(code) < len(m.dict.Left) {
			out[i] |= uint64(m.dict.Left[code]) << m.dict.RightWidth
		}
	}
	if m.patches != nil {
		vals, err := array.Canonicalize(array.SparseValues(m.patches))
		if err != nil {
			return nil, err
		}
		rmask := uint64(1)<<m.dict.RightWidth - 1
		for k, l := range array.RawValues(vals) {
			i := m.positions[k]
			out[i] = out[i]&rmask | l<<m.dict.RightWidth
		}
	}
	return array.PrimitiveFromRaw(a.DType().PType(), out, array.PrimitiveValidity(cc)), nil
}

func (rdEncoding) MarshalMetadata(a *array.Array) []byte {
	m := a.Meta().(rdMeta)
	var w metabuf.Writer
	w.Byte(m.dict.RightWidth)
	w.Uvarint(uint64(len(m.dict.Left)))
	for _, l := range m.dict.Left {
		w.Uvarint(uint64(l))
	}
	w.Bool(m.patches != nil)
	return w.Finish()
}

func (rdEncoding) Build(p array.Parts) (*array.Array, error) {
	if !p.DType.IsFloat() {
		return nil, array.TypeMismatchf("ALP-RD array with dtype %s", p.DType)
	}
	r := metabuf.NewReader(p.Metadata)
	d := Dict{RightWidth: r.Byte()}
	n := r.Uvarint()
	if n > MaxDictSize {
		return nil, array.InvalidArgumentf("ALP-RD dictionary of %d entries", errors.Safe(n))
	}
	for i := uint64(0); i < n && r.Err() == nil; i++ {
		d.Left = append(d.Left, uint16(r.Uvarint()))
	}
	hasPatches := r.Bool()
	if err := r.Done(); err != nil {
		return nil, errors.Mark(err, array.ErrInvalidArgument)
	}
	want := 2
	if hasPatches {
		want++
	}
	if len(p.Buffers) != 0 || len(p.Children) != want {
		return nil, array.InvalidArgumentf("ALP-RD array with %d buffers and %d children",
			errors.Safe(len(p.Buffers)), errors.Safe(len(p.Children)))
	}
	var patches *array.Array
	if hasPatches {
		patches = p.Children[2]
	}
	a, err := NewRD(p.DType.PType(), p.Children[0], p.Children[1], d, patches)
	if err != nil {
		return nil, err
	}
	if !a.DType().Equal(p.DType) {
		return nil, array.TypeMismatchf("ALP-RD array of %s with dtype %s", a.DType(), p.DType)
	}
	return a, nil
}

func (rdEncoding) ScalarAt(a *array.Array, i int) (scalar.Scalar, error) {
	m := a.Meta().(rdMeta)
	cs, err := array.ScalarAt(LeftCodes(a), i)
	if err != nil {
		return scalar.Scalar{}, err
	}
	code, ok := cs.AsUint64()
	if !ok {
		return scalar.Null(a.DType()), nil
	}
	rs, err := array.ScalarAt(RightParts(a), i)
	if err != nil {
		return scalar.Scalar{}, err
	}
	right, _ := rs.AsUint64()
	left := uint64(m.dict.Left[code])
	if _, ok := findPosition(m.positions, uint64(i)); ok {
		ls, err := array.ScalarAt(m.patches, i)
		if err != nil {
			return scalar.Scalar{}, err
		}
		left, _ = ls.AsUint64()
	}
	raw := left<<m.dict.RightWidth | right
	return scalar.Primitive(scalar.PValueFromBits(a.DType().PType(), raw), a.DType().Nullability()), nil
}

func (rdEncoding) Slice(a *array.Array, start, stop int) (*array.Array, error) {
	m := a.Meta().(rdMeta)
	codes, err := array.Slice(LeftCodes(a), start, stop)
	if err != nil {
		return nil, err
	}
	rights, err := array.Slice(RightParts(a), start, stop)
	if err != nil {
		return nil, err
	}
	out := rdMeta{dict: m.dict}
	lo, _ := findPosition(m.positions, uint64(start))
	hi, _ := findPosition(m.positions, uint64(stop))
	if lo < hi {
		if out.patches, err = array.Slice(m.patches, start, stop); err != nil {
			return nil, err
		}
		out.positions = array.SparsePositions(out.patches)
	}
	return newRD(a.DType().PType(), codes, rights, out), nil
}

func (rdEncoding) IsValid(a *array.Array, i int) bool {
	ok, err := array.IsValid(LeftCodes(a), i)
	return err == nil && ok
}

func (rdEncoding) LogicalValidity(a *array.Array) (array.Validity, error) {
	return array.LogicalValidity(LeftCodes(a))
}

func (rdEncoding) ComputeStat(a *array.Array, s array.Stat) (scalar.Scalar, bool) {
	if s == array.StatNullCount {
		return LeftCodes(a).Statistics().Compute(s)
	}
	return scalar.Scalar{}, false
}
