// Copyright 2025 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

// Package scalar implements Scalar, a single typed logical value. Scalars are
// used for constants, statistics, predicate literals and the results of
// random access into arrays.
package scalar

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/apache/arrow-go/v18/arrow/float16"
	"github.com/cockroachdb/colenc/dtype"
	"github.com/cockroachdb/errors"
)

type valueKind uint8

const (
	kindNull valueKind = iota
	kindBool
	kindPrimitive
	kindBuffer
	kindList
	kindExtension
)

// Scalar is a single logical value together with its DType. The value is one
// of: null, bool, primitive, byte buffer (binary and utf8), ordered list of
// scalars (lists and struct fields) or an extension payload wrapping a storage
// scalar. Scalars are immutable.
type Scalar struct {
	dtype dtype.DType
	kind  valueKind
	b     bool
	p     PValue
	buf   []byte
	elems []Scalar
}

// Null returns the null scalar of the given DType, made nullable.
func Null(dt dtype.DType) Scalar {
	return Scalar{dtype: dt.AsNullable(), kind: kindNull}
}

// Bool returns a boolean scalar.
func Bool(v bool, n dtype.Nullability) Scalar {
	return Scalar{dtype: dtype.Bool(n), kind: kindBool, b: v}
}

// Primitive returns a primitive scalar.
func Primitive(v PValue, n dtype.Nullability) Scalar {
	return Scalar{dtype: dtype.Primitive(v.ptype, n), kind: kindPrimitive, p: v}
}

// Of returns the non-nullable primitive scalar of a native Go value.
func Of[T dtype.Native](v T) Scalar {
	return Primitive(PValueOf(v), dtype.NonNullable)
}

// F16 returns a half precision float scalar.
func F16(v float16.Num, n dtype.Nullability) Scalar {
	return Primitive(PValueF16(v), n)
}

// Utf8 returns a string scalar.
func Utf8(s string, n dtype.Nullability) Scalar {
	return Scalar{dtype: dtype.Utf8(n), kind: kindBuffer, buf: []byte(s)}
}

// Binary returns a byte string scalar. The bytes are copied.
func Binary(b []byte, n dtype.Nullability) Scalar {
	return Scalar{dtype: dtype.Binary(n), kind: kindBuffer, buf: bytes.Clone(b)}
}

// BufferOf returns a utf8 or binary scalar of dt holding b without copying.
func BufferOf(dt dtype.DType, b []byte) Scalar {
	if !dt.IsBinaryLike() {
		panic(errors.AssertionFailedf("BufferOf called with %s", dt))
	}
	return Scalar{dtype: dt, kind: kindBuffer, buf: b}
}

// Struct returns a struct scalar. The field scalars must match the field
// DTypes of dt, ignoring nullability of null fields.
func Struct(dt dtype.DType, fields []Scalar) (Scalar, error) {
	if !dt.IsStruct() {
		return Scalar{}, errors.Newf("struct scalar with non-struct dtype %s", dt)
	}
	if len(fields) != dt.NumFields() {
		return Scalar{}, errors.Newf("struct scalar of %s with %d fields", dt, len(fields))
	}
	for i, f := range fields {
		if !f.dtype.EqualIgnoringNullability(dt.Field(i)) {
			return Scalar{}, errors.Newf("struct field %q: expected %s, got %s",
				dt.FieldName(i), dt.Field(i), f.dtype)
		}
		if f.IsNull() && !dt.Field(i).IsNullable() {
			return Scalar{}, errors.Newf("struct field %q: null in non-nullable field", dt.FieldName(i))
		}
	}
	return Scalar{dtype: dt, kind: kindList, elems: slices.Clone(fields)}, nil
}

// List returns a list scalar with the given elements.
func List(dt dtype.DType, elems []Scalar) (Scalar, error) {
	if dt.Kind() != dtype.KindList {
		return Scalar{}, errors.Newf("list scalar with non-list dtype %s", dt)
	}
	for _, e := range elems {
		if !e.dtype.EqualIgnoringNullability(dt.Elem()) {
			return Scalar{}, errors.Newf("list element: expected %s, got %s", dt.Elem(), e.dtype)
		}
	}
	return Scalar{dtype: dt, kind: kindList, elems: slices.Clone(elems)}, nil
}

// Extension wraps a storage scalar as a value of an extension DType.
func Extension(dt dtype.DType, storage Scalar) Scalar {
	if storage.IsNull() {
		return Null(dt)
	}
	return Scalar{dtype: dt, kind: kindExtension, elems: []Scalar{storage}}
}

// DType returns the DType of the scalar.
func (s Scalar) DType() dtype.DType { return s.dtype }

// IsNull returns true if the scalar is null.
func (s Scalar) IsNull() bool { return s.kind == kindNull }

// WithNullability returns the scalar with its DType's nullability replaced.
// Making a null scalar non-nullable is invalid and panics.
func (s Scalar) WithNullability(n dtype.Nullability) Scalar {
	if s.IsNull() && n == dtype.NonNullable {
		panic(errors.AssertionFailedf("null scalar cannot be non-nullable"))
	}
	s.dtype = s.dtype.WithNullability(n)
	if s.kind == kindExtension {
		s.elems = []Scalar{s.elems[0].WithNullability(n)}
	}
	return s
}

// AsBool returns the value of a non-null boolean scalar.
func (s Scalar) AsBool() (v bool, ok bool) {
	return s.b, s.kind == kindBool
}

// AsPValue returns the value of a non-null primitive scalar.
func (s Scalar) AsPValue() (PValue, bool) {
	return s.p, s.kind == kindPrimitive
}

// AsInt64 returns the value of a non-null integer scalar as an int64.
func (s Scalar) AsInt64() (int64, bool) {
	if s.kind != kindPrimitive || !s.p.ptype.IsInt() {
		return 0, false
	}
	return s.p.Int64(), true
}

// AsUint64 returns the value of a non-null, non-negative integer scalar.
func (s Scalar) AsUint64() (uint64, bool) {
	if s.kind != kindPrimitive || !s.p.ptype.IsInt() {
		return 0, false
	}
	if s.p.ptype.IsSigned() && s.p.Int64() < 0 {
		return 0, false
	}
	return s.p.Uint64(), true
}

// AsFloat64 returns the value of a non-null primitive scalar as a float64.
func (s Scalar) AsFloat64() (float64, bool) {
	if s.kind != kindPrimitive {
		return 0, false
	}
	return s.p.Float64(), true
}

// AsBytes returns the bytes of a non-null utf8 or binary scalar. The result
// must not be modified.
func (s Scalar) AsBytes() ([]byte, bool) {
	return s.buf, s.kind == kindBuffer
}

// AsString returns the value of a non-null utf8 or binary scalar as a string.
func (s Scalar) AsString() (string, bool) {
	return string(s.buf), s.kind == kindBuffer
}

// Fields returns the field scalars of a non-null struct scalar.
func (s Scalar) Fields() []Scalar {
	if !s.dtype.IsStruct() {
		return nil
	}
	return s.elems
}

// Field returns the i'th field of a struct scalar. Fields of a null struct are
// null.
func (s Scalar) Field(i int) Scalar {
	if s.IsNull() {
		return Null(s.dtype.Field(i))
	}
	return s.elems[i]
}

// Elements returns the elements of a non-null list scalar.
func (s Scalar) Elements() []Scalar {
	if s.dtype.Kind() != dtype.KindList {
		return nil
	}
	return s.elems
}

// Storage returns the storage scalar of an extension scalar.
func (s Scalar) Storage() Scalar {
	if !s.dtype.IsExtension() {
		panic(errors.AssertionFailedf("Storage called on %s scalar", s.dtype))
	}
	if s.IsNull() {
		return Null(s.dtype.Ext().Storage)
	}
	return s.elems[0]
}

// NBytes returns the approximate number of bytes needed to hold the value.
func (s Scalar) NBytes() int {
	switch s.kind {
	case kindBool:
		return 1
	case kindPrimitive:
		return s.p.ptype.ByteWidth()
	case kindBuffer:
		return len(s.buf)
	case kindList, kindExtension:
		n := 0
		for _, e := range s.elems {
			n += e.NBytes()
		}
		return n
	default:
		return 0
	}
}

// String formats the scalar for humans.
func (s Scalar) String() string {
	var sb strings.Builder
	s.format(&sb)
	return sb.String()
}

func (s Scalar) format(sb *strings.Builder) {
	switch s.kind {
	case kindNull:
		sb.WriteString("null")
	case kindBool:
		sb.WriteString(strconv.FormatBool(s.b))
	case kindPrimitive:
		sb.WriteString(s.p.String())
	case kindBuffer:
		if s.dtype.Kind() == dtype.KindUtf8 {
			sb.WriteString(strconv.Quote(string(s.buf)))
		} else {
			sb.WriteString("0x")
			sb.WriteString(hex.EncodeToString(s.buf))
		}
	case kindList:
		open, close := "[", "]"
		if s.dtype.IsStruct() {
			open, close = "{", "}"
		}
		sb.WriteString(open)
		for i, e := range s.elems {
			if i > 0 {
				sb.WriteString(", ")
			}
			if s.dtype.IsStruct() {
				sb.WriteString(s.dtype.FieldName(i))
				sb.WriteString("=")
			}
			e.format(sb)
		}
		sb.WriteString(close)
	case kindExtension:
		fmt.Fprintf(sb, "%s(", s.dtype.Ext().ID)
		s.elems[0].format(sb)
		sb.WriteString(")")
	}
}
