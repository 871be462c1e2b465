// Copyright 2025 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package array

import (
	"encoding/binary"

	"github.com/cockroachdb/colenc/dtype"
	"github.com/cockroachdb/colenc/internal/metabuf"
	"github.com/cockroachdb/colenc/scalar"
	"github.com/cockroachdb/errors"
)

// VarBinViewID identifies the view layout of utf8 and binary values. The
// first buffer holds one 16-byte view per element; the remaining buffers hold
// out-of-line value bytes. A view starts with the value's length as a
// little-endian uint32. Values of at most 12 bytes are stored inline in the
// remaining 12 bytes. Longer values store their 4-byte prefix, the index of
// the data buffer and the offset within it.
const VarBinViewID EncodingID = "colenc.varbinview"

const (
	viewSize      = 16
	maxInlineView = 12
)

type varBinViewMeta struct {
	validity Validity
}

type varBinViewEncoding struct{}

// VarBinViewEncoding is the view layout of variable-length values.
var VarBinViewEncoding Encoding = varBinViewEncoding{}

func init() { Register(VarBinViewEncoding) }

// NewVarBinView returns a varbinview array of n elements.
func NewVarBinView(dt dtype.DType, views Buffer, data []Buffer, n int, v Validity) (*Array, error) {
	if !dt.IsBinaryLike() {
		return nil, TypeMismatchf("varbinview array with dtype %s", dt)
	}
	if views.Len() < n*viewSize {
		return nil, InvalidArgumentf("views buffer of %d bytes for %d values",
			errors.Safe(views.Len()), errors.Safe(n))
	}
	if err := checkValidity(v, dt.Nullability(), n); err != nil {
		return nil, err
	}
	vb := views.Bytes()
	for i := 0; i < n; i++ {
		view := vb[i*viewSize : (i+1)*viewSize]
		l := binary.LittleEndian.Uint32(view)
		if l <= maxInlineView {
			continue
		}
		bi := binary.LittleEndian.Uint32(view[8:])
		off := binary.LittleEndian.Uint32(view[12:])
		if int(bi) >= len(data) || uint64(off)+uint64(l) > uint64(data[bi].Len()) {
			return nil, InvalidArgumentf("view %d references bytes outside data buffer %d",
				errors.Safe(i), errors.Safe(bi))
		}
	}
	return newVarBinViewArray(dt, views, data, n, v), nil
}

func newVarBinViewArray(dt dtype.DType, views Buffer, data []Buffer, n int, v Validity) *Array {
	bufs := append([]Buffer{views}, data...)
	return New(VarBinViewEncoding, dt, n, varBinViewMeta{validity: v}, bufs, v.children())
}

// VarBinViewFromBytes returns a varbinview array of DType dt holding vals in
// a single data buffer. Nil entries are null when dt is nullable.
func VarBinViewFromBytes(dt dtype.DType, vals [][]byte) *Array {
	views := alignedBytes(len(vals) * viewSize)
	var data []byte
	valid := make([]bool, len(vals))
	nulls := 0
	for i, val := range vals {
		valid[i] = val != nil || !dt.IsNullable()
		if !valid[i] {
			nulls++
			continue
		}
		view := views[i*viewSize : (i+1)*viewSize]
		binary.LittleEndian.PutUint32(view, uint32(len(val)))
		if len(val) <= maxInlineView {
			copy(view[4:], val)
			continue
		}
		copy(view[4:8], val)
		binary.LittleEndian.PutUint32(view[8:], 0)
		binary.LittleEndian.PutUint32(view[12:], uint32(len(data)))
		data = append(data, val...)
	}
	v := ValidityFor(dt.Nullability())
	if nulls > 0 {
		v = ValidityFromBools(valid)
	}
	return newVarBinViewArray(dt, NewBuffer(views), []Buffer{NewBuffer(data)}, len(vals), v)
}

func viewBytes(a *Array, i int) []byte {
	view := a.buffers[0].Bytes()[i*viewSize : (i+1)*viewSize]
	l := binary.LittleEndian.Uint32(view)
	if l <= maxInlineView {
		return view[4 : 4+l]
	}
	bi := binary.LittleEndian.Uint32(view[8:])
	off := binary.LittleEndian.Uint32(view[12:])
	return a.buffers[1+bi].Bytes()[off : off+l]
}

func (varBinViewEncoding) ID() EncodingID { return VarBinViewID }

func (varBinViewEncoding) Canonicalize(a *Array) (*Array, error) {
	v := a.md.(varBinViewMeta).validity
	b := NewVarBinBuilder(a.dtype, a.length)
	for i := 0; i < a.length; i++ {
		if v.IsValid(i) {
			b.Append(viewBytes(a, i))
		} else {
			b.AppendNull()
		}
	}
	return b.Finish(), nil
}

func (varBinViewEncoding) MarshalMetadata(a *Array) []byte {
	var w metabuf.Writer
	a.md.(varBinViewMeta).validity.write(&w)
	return w.Finish()
}

func (varBinViewEncoding) Build(p Parts) (*Array, error) {
	r := metabuf.NewReader(p.Metadata)
	v, err := readValidity(r, p.Children, p.Len)
	if err != nil {
		return nil, err
	}
	if err := r.Done(); err != nil {
		return nil, err
	}
	if len(p.Buffers) < 1 || len(p.Children) != len(v.children()) {
		return nil, InvalidArgumentf("varbinview array with %d buffers and %d children",
			errors.Safe(len(p.Buffers)), errors.Safe(len(p.Children)))
	}
	return NewVarBinView(p.DType, p.Buffers[0], p.Buffers[1:], p.Len, v)
}

func (varBinViewEncoding) ScalarAt(a *Array, i int) (scalar.Scalar, error) {
	if !a.md.(varBinViewMeta).validity.IsValid(i) {
		return scalar.Null(a.dtype), nil
	}
	return scalar.BufferOf(a.dtype, viewBytes(a, i)), nil
}

func (varBinViewEncoding) Slice(a *Array, start, stop int) (*Array, error) {
	views := a.buffers[0].Slice(start*viewSize, (stop-start)*viewSize)
	v := a.md.(varBinViewMeta).validity.Slice(start, stop)
	return newVarBinViewArray(a.dtype, views, a.buffers[1:], stop-start, v), nil
}

func (varBinViewEncoding) IsValid(a *Array, i int) bool {
	return a.md.(varBinViewMeta).validity.IsValid(i)
}

func (varBinViewEncoding) LogicalValidity(a *Array) (Validity, error) {
	return a.md.(varBinViewMeta).validity, nil
}
