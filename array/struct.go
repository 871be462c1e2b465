// Copyright 2025 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package array

import (
	"github.com/cockroachdb/colenc/dtype"
	"github.com/cockroachdb/colenc/internal/metabuf"
	"github.com/cockroachdb/colenc/scalar"
	"github.com/cockroachdb/errors"
)

// StructID identifies the canonical struct encoding: one child per field,
// followed by an optional validity child.
const StructID EncodingID = "colenc.struct"

type structMeta struct {
	validity Validity
}

type structEncoding struct{}

// StructEncoding is the canonical struct encoding.
var StructEncoding Encoding = structEncoding{}

func init() { Register(StructEncoding) }

// NewStruct returns a struct array of n rows. Each field array must have the
// corresponding field DType of dt and length n.
func NewStruct(dt dtype.DType, fields []*Array, n int, v Validity) (*Array, error) {
	if !dt.IsStruct() {
		return nil, TypeMismatchf("struct array with dtype %s", dt)
	}
	if len(fields) != dt.NumFields() {
		return nil, InvalidArgumentf("struct %s with %d fields", dt, errors.Safe(len(fields)))
	}
	for i, f := range fields {
		if !f.DType().Equal(dt.Field(i)) {
			return nil, TypeMismatchf("field %q: expected %s, got %s", dt.FieldName(i), dt.Field(i), f.DType())
		}
		if f.Len() != n {
			return nil, InvalidArgumentf("field %q has length %d, expected %d",
				dt.FieldName(i), errors.Safe(f.Len()), errors.Safe(n))
		}
	}
	if err := checkValidity(v, dt.Nullability(), n); err != nil {
		return nil, err
	}
	return newStructArray(dt, fields, n, v), nil
}

func newStructArray(dt dtype.DType, fields []*Array, n int, v Validity) *Array {
	children := make([]*Array, 0, len(fields)+1)
	children = append(children, fields...)
	children = append(children, v.children()...)
	return New(StructEncoding, dt, n, structMeta{validity: v}, nil, children)
}

// StructFromFields returns a non-nullable struct array with the given field
// names and arrays.
func StructFromFields(names []string, fields []*Array) (*Array, error) {
	if len(names) != len(fields) {
		return nil, InvalidArgumentf("%d names for %d fields", errors.Safe(len(names)), errors.Safe(len(fields)))
	}
	n := 0
	types := make([]dtype.DType, len(fields))
	for i, f := range fields {
		types[i] = f.DType()
		n = f.Len()
	}
	return NewStruct(dtype.Struct(names, types, dtype.NonNullable), fields, n, ValidityNonNullable())
}

// StructFields returns the field arrays of a struct array.
func StructFields(a *Array) []*Array {
	mustBeOfEncoding(a, StructID)
	return a.children[:a.dtype.NumFields()]
}

// StructValidity returns the validity of a struct array.
func StructValidity(a *Array) Validity {
	mustBeOfEncoding(a, StructID)
	return a.md.(structMeta).validity
}

func (structEncoding) ID() EncodingID { return StructID }

func (structEncoding) Canonicalize(a *Array) (*Array, error) {
	fields := StructFields(a)
	out := make([]*Array, len(fields))
	changed := false
	for i, f := range fields {
		c, err := Canonicalize(f)
		if err != nil {
			return nil, err
		}
		out[i] = c
		changed = changed || c != f
	}
	if !changed {
		return a, nil
	}
	return newStructArray(a.dtype, out, a.length, a.md.(structMeta).validity), nil
}

func (structEncoding) MarshalMetadata(a *Array) []byte {
	var w metabuf.Writer
	a.md.(structMeta).validity.write(&w)
	return w.Finish()
}

func (structEncoding) Build(p Parts) (*Array, error) {
	if !p.DType.IsStruct() {
		return nil, TypeMismatchf("struct array with dtype %s", p.DType)
	}
	r := metabuf.NewReader(p.Metadata)
	v, err := readValidity(r, p.Children, p.Len)
	if err != nil {
		return nil, err
	}
	if err := r.Done(); err != nil {
		return nil, err
	}
	nf := p.DType.NumFields()
	if len(p.Buffers) != 0 || len(p.Children) != nf+len(v.children()) {
		return nil, InvalidArgumentf("struct array with %d buffers and %d children",
			errors.Safe(len(p.Buffers)), errors.Safe(len(p.Children)))
	}
	return NewStruct(p.DType, p.Children[:nf], p.Len, v)
}

func (structEncoding) ScalarAt(a *Array, i int) (scalar.Scalar, error) {
	if !a.md.(structMeta).validity.IsValid(i) {
		return scalar.Null(a.dtype), nil
	}
	fields := StructFields(a)
	vals := make([]scalar.Scalar, len(fields))
	for j, f := range fields {
		s, err := ScalarAt(f, i)
		if err != nil {
			return scalar.Scalar{}, err
		}
		vals[j] = s
	}
	return scalar.Struct(a.dtype, vals)
}

func (structEncoding) Slice(a *Array, start, stop int) (*Array, error) {
	fields := StructFields(a)
	out := make([]*Array, len(fields))
	for i, f := range fields {
		s, err := Slice(f, start, stop)
		if err != nil {
			return nil, err
		}
		out[i] = s
	}
	return newStructArray(a.dtype, out, stop-start, a.md.(structMeta).validity.Slice(start, stop)), nil
}

func (structEncoding) Take(a *Array, indices *Array) (*Array, error) {
	v := a.md.(structMeta).validity.Take(indices)
	dt := a.dtype.WithNullability(v.Nullability())
	fieldIdx := indices
	if indices.DType().IsNullable() {
		if a.length == 0 {
			// Every index is null.
			return FromScalars(dt, nullScalars(dt, indices.Len()))
		}
		fieldIdx = fillNullIndices(indices)
	}
	fields := StructFields(a)
	out := make([]*Array, len(fields))
	for i, f := range fields {
		t, err := Take(f, fieldIdx)
		if err != nil {
			return nil, err
		}
		out[i] = t
	}
	return newStructArray(dt, out, indices.Len(), v), nil
}

func (structEncoding) Filter(a *Array, mask *Array) (*Array, error) {
	fields := StructFields(a)
	out := make([]*Array, len(fields))
	for i, f := range fields {
		t, err := Filter(f, mask)
		if err != nil {
			return nil, err
		}
		out[i] = t
	}
	return newStructArray(a.dtype, out, trueCountOf(mask), a.md.(structMeta).validity.Filter(mask)), nil
}

func (structEncoding) IsValid(a *Array, i int) bool {
	return a.md.(structMeta).validity.IsValid(i)
}

func (structEncoding) LogicalValidity(a *Array) (Validity, error) {
	return a.md.(structMeta).validity, nil
}

// fillNullIndices returns a non-nullable copy of a canonical index array with
// null positions replaced by zero.
func fillNullIndices(indices *Array) *Array {
	idx := IndicesOf(indices)
	v := canonicalValidity(indices)
	out := make([]uint64, len(idx))
	for i, j := range idx {
		if v.IsValid(i) {
			out[i] = j
		}
	}
	return FromSlice(out)
}

func nullScalars(dt dtype.DType, n int) []scalar.Scalar {
	out := make([]scalar.Scalar, n)
	for i := range out {
		out[i] = scalar.Null(dt)
	}
	return out
}
