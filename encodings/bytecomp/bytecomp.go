// Copyright 2025 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

// Package bytecomp implements an encoding of variable-length arrays whose data
// buffer is compressed with a general-purpose block compression algorithm
// (snappy, minlz or zstd). The offsets and validity are kept as children so
// they may be compressed further; the values are only reachable by
// canonicalizing the array.
package bytecomp

import (
	"github.com/cockroachdb/colenc/array"
	"github.com/cockroachdb/colenc/dtype"
	"github.com/cockroachdb/colenc/internal/compression"
	"github.com/cockroachdb/colenc/internal/metabuf"
	"github.com/cockroachdb/colenc/scalar"
	"github.com/cockroachdb/errors"
)

// ID identifies the byte compression encoding.
const ID array.EncodingID = "colenc.bytecomp"

type meta struct {
	setting  compression.Setting
	validity array.Validity
}

type encoding struct{}

// Encoding is the byte compression encoding.
var Encoding array.Encoding = encoding{}

func init() { array.Register(Encoding) }

// New returns an array of the binary-like DType dt whose data was compressed
// with setting s. The offsets index the decompressed data.
func New(
	dt dtype.DType, offsets *array.Array, compressed array.Buffer, s compression.Setting, v array.Validity,
) (*array.Array, error) {
	if !dt.IsBinaryLike() {
		return nil, array.TypeMismatchf("bytecomp array with dtype %s", dt)
	}
	if !offsets.DType().IsInt() || offsets.DType().IsNullable() {
		return nil, array.InvalidArgumentf("bytecomp offsets must be non-nullable integers, got %s",
			offsets.DType())
	}
	if offsets.Len() < 1 {
		return nil, array.InvalidArgumentf("bytecomp offsets must not be empty")
	}
	n := offsets.Len() - 1
	if err := array.CheckValidity(v, dt.Nullability(), n); err != nil {
		return nil, err
	}
	children := append([]*array.Array{offsets}, v.Children()...)
	return array.New(Encoding, dt, n, meta{setting: s, validity: v}, []array.Buffer{compressed}, children), nil
}

// Offsets returns the offsets child.
func Offsets(a *array.Array) *array.Array { return a.Child(0) }

// SettingOf returns the compression setting of the data buffer.
func SettingOf(a *array.Array) compression.Setting { return a.Meta().(meta).setting }

// Encode compresses the data buffer of a binary-like array with c. The
// setting recorded is the one c reports, which may differ from call to call
// for an adaptive compressor.
func Encode(a *array.Array, c compression.Compressor) (*array.Array, error) {
	if !a.DType().IsBinaryLike() {
		return nil, array.TypeMismatchf("cannot byte compress %s", a.DType())
	}
	vb, err := array.Canonicalize(a)
	if err != nil {
		return nil, err
	}
	compressed, s := c.Compress(nil, array.VarBinData(vb).Bytes())
	return New(a.DType(), array.VarBinOffsets(vb), array.NewBuffer(compressed), s, array.VarBinValidity(vb))
}

func (encoding) ID() array.EncodingID { return ID }

func (encoding) Canonicalize(a *array.Array) (*array.Array, error) {
	m := a.Meta().(meta)
	data, err := compression.Decompress(m.setting.Algorithm, a.Buffer(0).Bytes())
	if err != nil {
		return nil, errors.Wrapf(err, "decompressing %s data", m.setting)
	}
	// The offsets child is usually compressed further. Validity arrays are
	// always canonical.
	offsets, err := array.Canonicalize(Offsets(a))
	if err != nil {
		return nil, err
	}
	return array.NewVarBin(a.DType(), offsets, array.NewBuffer(data), m.validity)
}

func (encoding) MarshalMetadata(a *array.Array) []byte {
	m := a.Meta().(meta)
	var w metabuf.Writer
	w.Byte(byte(m.setting.Algorithm))
	w.Byte(m.setting.Level)
	array.WriteValidity(&w, m.validity)
	return w.Finish()
}

func (encoding) Build(p array.Parts) (*array.Array, error) {
	if len(p.Buffers) != 1 || len(p.Children) < 1 {
		return nil, array.InvalidArgumentf("bytecomp array with %d buffers and %d children",
			errors.Safe(len(p.Buffers)), errors.Safe(len(p.Children)))
	}
	r := metabuf.NewReader(p.Metadata)
	s := compression.Setting{Algorithm: compression.Algorithm(r.Byte()), Level: r.Byte()}
	v, err := array.ReadValidity(r, p.Children[1:], p.Len)
	if err != nil {
		return nil, err
	}
	if err := r.Done(); err != nil {
		return nil, errors.Mark(err, array.ErrInvalidArgument)
	}
	d, err := compression.GetDecompressor(s.Algorithm)
	if err != nil {
		return nil, errors.Mark(err, array.ErrInvalidArgument)
	}
	d.Close()
	if p.Children[0].Len() != p.Len+1 {
		return nil, array.InvalidArgumentf("bytecomp offsets of length %d for %d values",
			errors.Safe(p.Children[0].Len()), errors.Safe(p.Len))
	}
	return New(p.DType, p.Children[0], p.Buffers[0], s, v)
}

func (encoding) IsValid(a *array.Array, i int) bool {
	return a.Meta().(meta).validity.IsValid(i)
}

func (encoding) LogicalValidity(a *array.Array) (array.Validity, error) {
	return a.Meta().(meta).validity, nil
}

func (encoding) ComputeStat(a *array.Array, s array.Stat) (scalar.Scalar, bool) {
	if s == array.StatNullCount {
		return array.CountScalar(a.Meta().(meta).validity.NullCount(a.Len())), true
	}
	return scalar.Scalar{}, false
}
