// Copyright 2025 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

// Package fastlanes implements the lightweight integer encodings: bit-packing,
// frame-of-reference and delta. They compose: frame-of-reference and delta
// produce unsigned children that are then bit-packed.
package fastlanes

import (
	"sort"

	"github.com/cockroachdb/colenc/array"
	"github.com/cockroachdb/colenc/dtype"
	"github.com/cockroachdb/colenc/internal/bitpack"
	"github.com/cockroachdb/colenc/internal/metabuf"
	"github.com/cockroachdb/colenc/scalar"
	"github.com/cockroachdb/errors"
)

// BitPackedID identifies the bit-packed encoding. Values are packed at a fixed
// bit width into a stream of 64-bit words. Values too wide for the width are
// stored in a sparse patches child and packed as zero.
const BitPackedID array.EncodingID = "fastlanes.bitpacked"

type bitPackedMeta struct {
	width int
	// offset is the position of the first element in the packed stream.
	offset   int
	validity array.Validity
	// patches is the patches child, or nil.
	patches *array.Array
	// positions caches the patch positions.
	positions []uint64
}

type bitPackedEncoding struct{}

// BitPackedEncoding is the bit-packed encoding.
var BitPackedEncoding array.Encoding = bitPackedEncoding{}

func init() { array.Register(BitPackedEncoding) }

// NewBitPacked returns a bit-packed array of n values of type p, starting at
// position offset of the packed words held in buf. Patches, if not nil, must
// be a sparse array of the same DType and length.
func NewBitPacked(
	p dtype.PType, buf array.Buffer, width, offset, n int, v array.Validity, patches *array.Array,
) (*array.Array, error) {
	if !p.IsUnsigned() {
		return nil, array.InvalidArgumentf("cannot bit-pack %s values", p)
	}
	if width < 0 || width > p.BitWidth() {
		return nil, array.InvalidArgumentf("bit width %d out of range for %s", errors.Safe(width), p)
	}
	if words := bitpack.Words(offset+n, width); offset < 0 || buf.Len() < words*8 {
		return nil, array.InvalidArgumentf("%d bytes too small for %d values of width %d",
			errors.Safe(buf.Len()), errors.Safe(offset+n), errors.Safe(width))
	}
	if err := array.CheckValidity(v, v.Nullability(), n); err != nil {
		return nil, err
	}
	m := bitPackedMeta{width: width, offset: offset, validity: v}
	if patches != nil {
		dt := dtype.Primitive(p, v.Nullability())
		if !patches.Is(array.SparseID) || !patches.DType().Equal(dt) || patches.Len() != n {
			return nil, array.InvalidArgumentf("bit-packing patches must be a sparse %s array of length %d, got %s",
				dt, errors.Safe(n), patches)
		}
		m.patches = patches
		m.positions = array.SparsePositions(patches)
	}
	return newBitPacked(p, buf, n, m), nil
}

func newBitPacked(p dtype.PType, buf array.Buffer, n int, m bitPackedMeta) *array.Array {
	var children []*array.Array
	if m.patches != nil {
		children = append(children, m.patches)
	}
	children = append(children, m.validity.Children()...)
	return array.New(BitPackedEncoding, dtype.Primitive(p, m.validity.Nullability()), n, m,
		[]array.Buffer{buf}, children)
}

// BitWidth returns the width values of a bit-packed array are packed at.
func BitWidth(a *array.Array) int { return a.Meta().(bitPackedMeta).width }

// Patches returns the patches of a bit-packed array, or nil.
func Patches(a *array.Array) *array.Array { return a.Meta().(bitPackedMeta).patches }

// BestBitWidth returns the packing width minimizing the encoded size of
// values of type p with the given bit width histogram, where freq[w] counts
// the values needing exactly w bits. Values wider than the chosen width are
// patched.
func BestBitWidth(p dtype.PType, freq []uint64) int {
	var n uint64
	for _, f := range freq {
		n += f
	}
	// A patch costs its value plus a position.
	patchCost := uint64(p.ByteWidth() + 4)
	best, bestCost := p.BitWidth(), uint64(bitpack.Words(int(n), p.BitWidth())*8)
	patched := n
	for w := 0; w < len(freq) && w < p.BitWidth(); w++ {
		patched -= freq[w]
		cost := uint64(bitpack.Words(int(n), w)*8) + patched*patchCost
		if cost < bestCost {
			best, bestCost = w, cost
		}
	}
	return best
}

// BitPack packs an unsigned integer array at the given width, patching the
// values that do not fit.
func BitPack(a *array.Array, width int) (*array.Array, error) {
	if !a.DType().IsUnsignedInt() {
		return nil, array.TypeMismatchf("cannot bit-pack %s", a.DType())
	}
	p := a.DType().PType()
	if width < 0 || width > p.BitWidth() {
		return nil, array.InvalidArgumentf("bit width %d out of range for %s", errors.Safe(width), p)
	}
	c, err := array.Canonicalize(a)
	if err != nil {
		return nil, err
	}
	v := array.PrimitiveValidity(c)
	raw := array.RawValues(c)
	var positions []uint64
	for i, x := range raw {
		switch {
		case !v.IsValid(i):
			raw[i] = 0
		case bitpack.Width(x) > width:
			positions = append(positions, uint64(i))
			raw[i] = 0
		}
	}
	m := bitPackedMeta{width: width, validity: v}
	if len(positions) > 0 {
		values, err := array.Take(c, array.FromSlice(positions))
		if err != nil {
			return nil, err
		}
		indices := array.PrimitiveFromRaw(dtype.MinUnsignedFor(uint64(len(raw))), positions, array.ValidityNonNullable())
		patches, err := array.NewSparse(indices, values, array.ZeroScalar(c.DType()), len(raw), 0)
		if err != nil {
			return nil, err
		}
		m.patches, m.positions = patches, positions
	}
	words := bitpack.Pack(raw, width)
	return newBitPacked(p, array.WrapValues(words), len(raw), m), nil
}

func (m bitPackedMeta) words(a *array.Array) []uint64 {
	return array.Values[uint64](a.Buffer(0), bitpack.Words(m.offset+a.Len(), m.width))
}

func (m bitPackedMeta) patched(i int) (int, bool) {
	j := sort.Search(len(m.positions), func(k int) bool { return m.positions[k] >= uint64(i) })
	return j, j < len(m.positions) && m.positions[j] == uint64(i)
}

func (bitPackedEncoding) ID() array.EncodingID { return BitPackedID }

func (bitPackedEncoding) Canonicalize(a *array.Array) (*array.Array, error) {
	m := a.Meta().(bitPackedMeta)
	raw := bitpack.Unpack(m.words(a), m.width, m.offset, a.Len(), make([]uint64, a.Len()))
	base := array.PrimitiveFromRaw(a.DType().PType(), raw, m.validity)
	if m.patches == nil {
		return base, nil
	}
	return array.ApplyPatches(base, m.positions, array.SparseValues(m.patches))
}

func (bitPackedEncoding) MarshalMetadata(a *array.Array) []byte {
	m := a.Meta().(bitPackedMeta)
	var w metabuf.Writer
	w.Byte(byte(m.width))
	w.Uvarint(uint64(m.offset))
	w.Bool(m.patches != nil)
	array.WriteValidity(&w, m.validity)
	return w.Finish()
}

func (bitPackedEncoding) Build(p array.Parts) (*array.Array, error) {
	if !p.DType.IsUnsignedInt() {
		return nil, array.TypeMismatchf("bit-packed array with dtype %s", p.DType)
	}
	r := metabuf.NewReader(p.Metadata)
	width := int(r.Byte())
	offset := int(r.Uvarint())
	hasPatches := r.Bool()
	var patches *array.Array
	children := p.Children
	if hasPatches && len(children) > 0 {
		patches, children = children[0], children[1:]
	}
	v, err := array.ReadValidity(r, children, p.Len)
	if err != nil {
		return nil, errors.Mark(err, array.ErrInvalidArgument)
	}
	if err := r.Done(); err != nil {
		return nil, errors.Mark(err, array.ErrInvalidArgument)
	}
	if len(p.Buffers) != 1 || (hasPatches && patches == nil) || len(children) != len(v.Children()) ||
		v.Nullability() != p.DType.Nullability() {
		return nil, array.InvalidArgumentf("bit-packed array with %d buffers and %d children",
			errors.Safe(len(p.Buffers)), errors.Safe(len(p.Children)))
	}
	return NewBitPacked(p.DType.PType(), p.Buffers[0], width, offset, p.Len, v, patches)
}

func (bitPackedEncoding) ScalarAt(a *array.Array, i int) (scalar.Scalar, error) {
	m := a.Meta().(bitPackedMeta)
	if !m.validity.IsValid(i) {
		return scalar.Null(a.DType()), nil
	}
	if _, ok := m.patched(i); ok {
		return array.ScalarAt(m.patches, i)
	}
	raw := bitpack.Get(m.words(a), m.width, m.offset+i)
	return scalar.Primitive(scalar.PValueFromBits(a.DType().PType(), raw), a.DType().Nullability()), nil
}

func (bitPackedEncoding) Slice(a *array.Array, start, stop int) (*array.Array, error) {
	m := a.Meta().(bitPackedMeta)
	out := bitPackedMeta{
		width:    m.width,
		offset:   m.offset + start,
		validity: m.validity.Slice(start, stop),
	}
	if m.patches != nil {
		lo, _ := m.patched(start)
		hi, _ := m.patched(stop)
		if lo < hi {
			patches, err := array.Slice(m.patches, start, stop)
			if err != nil {
				return nil, err
			}
			out.patches = patches
			out.positions = array.SparsePositions(patches)
		}
	}
	return newBitPacked(a.DType().PType(), a.Buffer(0), stop-start, out), nil
}

func (bitPackedEncoding) Take(a *array.Array, indices *array.Array) (*array.Array, error) {
	m := a.Meta().(bitPackedMeta)
	words := m.words(a)
	iv := array.PrimitiveValidity(indices)
	idx := array.IndicesOf(indices)
	raw := make([]uint64, len(idx))
	for k, i := range idx {
		if !iv.IsValid(k) {
			continue
		}
		if _, ok := m.patched(int(i)); ok {
			s, err := array.ScalarAt(m.patches, int(i))
			if err != nil {
				return nil, err
			}
			if pv, ok := s.AsPValue(); ok {
				raw[k] = pv.StorageBits()
			}
			continue
		}
		raw[k] = bitpack.Get(words, m.width, m.offset+int(i))
	}
	return array.PrimitiveFromRaw(a.DType().PType(), raw, m.validity.Take(indices)), nil
}

func (bitPackedEncoding) IsValid(a *array.Array, i int) bool {
	return a.Meta().(bitPackedMeta).validity.IsValid(i)
}

func (bitPackedEncoding) LogicalValidity(a *array.Array) (array.Validity, error) {
	return a.Meta().(bitPackedMeta).validity, nil
}

func (bitPackedEncoding) ComputeStat(a *array.Array, s array.Stat) (scalar.Scalar, bool) {
	if s == array.StatNullCount {
		return array.CountScalar(a.Meta().(bitPackedMeta).validity.NullCount(a.Len())), true
	}
	return scalar.Scalar{}, false
}
