// Copyright 2025 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

// Package dtype defines the logical types of columns. A DType describes what
// values mean (integers, strings, structs, ...) independently of how they are
// physically laid out, which is the job of an array encoding.
package dtype

import (
	"bytes"
	"fmt"
	"slices"
	"strings"

	"github.com/cockroachdb/redact"
)

// Kind enumerates the variants of DType.
type Kind uint8

const (
	KindNull Kind = iota
	KindBool
	KindPrimitive
	KindUtf8
	KindBinary
	KindStruct
	KindList
	KindExtension
)

var kindNames = [...]string{
	KindNull:      "null",
	KindBool:      "bool",
	KindPrimitive: "primitive",
	KindUtf8:      "utf8",
	KindBinary:    "binary",
	KindStruct:    "struct",
	KindList:      "list",
	KindExtension: "ext",
}

// String implements fmt.Stringer.
func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// Nullability is orthogonal to every DType variant and indicates whether
// values may be null.
type Nullability bool

const (
	// NonNullable values are never null.
	NonNullable Nullability = false
	// Nullable values may be null.
	Nullable Nullability = true
)

// ExtDType describes an opaque extension type: an identifier, serialized
// parameters and the DType of the values that store it.
type ExtDType struct {
	ID       string
	Metadata []byte
	Storage  DType
}

type structType struct {
	names []string
	types []DType
}

// DType is the logical type of a column. DTypes are immutable values compared
// by structural equality (see Equal). The zero value is the Null type.
type DType struct {
	kind     Kind
	nullable Nullability
	ptype    PType
	st       *structType
	elem     *DType
	ext      *ExtDType
}

// Null returns the DType of the null type. It is always nullable.
func Null() DType { return DType{kind: KindNull, nullable: Nullable} }

// Bool returns the boolean DType.
func Bool(n Nullability) DType { return DType{kind: KindBool, nullable: n} }

// Primitive returns the DType of a fixed-width numeric type.
func Primitive(p PType, n Nullability) DType {
	return DType{kind: KindPrimitive, nullable: n, ptype: p}
}

// Utf8 returns the DType of UTF-8 strings.
func Utf8(n Nullability) DType { return DType{kind: KindUtf8, nullable: n} }

// Binary returns the DType of arbitrary byte strings.
func Binary(n Nullability) DType { return DType{kind: KindBinary, nullable: n} }

// Struct returns the DType of a struct with the given ordered fields. The
// names and types slices must have the same length; they are copied.
func Struct(names []string, types []DType, n Nullability) DType {
	if len(names) != len(types) {
		panic(fmt.Sprintf("struct dtype: %d names but %d types", len(names), len(types)))
	}
	return DType{
		kind:     KindStruct,
		nullable: n,
		st:       &structType{names: slices.Clone(names), types: slices.Clone(types)},
	}
}

// List returns the DType of a variable-length list of elem values.
func List(elem DType, n Nullability) DType {
	e := elem
	return DType{kind: KindList, nullable: n, elem: &e}
}

// Extension returns the DType of an extension type. The nullability of the
// storage type is overridden by n.
func Extension(ext ExtDType, n Nullability) DType {
	e := ExtDType{
		ID:       ext.ID,
		Metadata: slices.Clone(ext.Metadata),
		Storage:  ext.Storage.WithNullability(n),
	}
	return DType{kind: KindExtension, nullable: n, ext: &e}
}

// Kind returns the variant of the DType.
func (d DType) Kind() Kind { return d.kind }

// Nullability returns whether values of this type may be null.
func (d DType) Nullability() Nullability { return d.nullable }

// IsNullable returns true if values of this type may be null.
func (d DType) IsNullable() bool { return bool(d.nullable) }

// PType returns the primitive type. It must only be called on primitive
// DTypes.
func (d DType) PType() PType {
	if d.kind != KindPrimitive {
		panic(fmt.Sprintf("PType called on %s dtype", d))
	}
	return d.ptype
}

// IsPrimitive returns true for primitive DTypes.
func (d DType) IsPrimitive() bool { return d.kind == KindPrimitive }

// IsInt returns true for primitive integer DTypes.
func (d DType) IsInt() bool { return d.kind == KindPrimitive && d.ptype.IsInt() }

// IsUnsignedInt returns true for primitive unsigned integer DTypes.
func (d DType) IsUnsignedInt() bool { return d.kind == KindPrimitive && d.ptype.IsUnsigned() }

// IsSignedInt returns true for primitive signed integer DTypes.
func (d DType) IsSignedInt() bool { return d.kind == KindPrimitive && d.ptype.IsSigned() }

// IsFloat returns true for primitive floating point DTypes.
func (d DType) IsFloat() bool { return d.kind == KindPrimitive && d.ptype.IsFloat() }

// IsBool returns true for the boolean DType.
func (d DType) IsBool() bool { return d.kind == KindBool }

// IsStruct returns true for struct DTypes.
func (d DType) IsStruct() bool { return d.kind == KindStruct }

// IsBinaryLike returns true for utf8 and binary DTypes.
func (d DType) IsBinaryLike() bool { return d.kind == KindUtf8 || d.kind == KindBinary }

// IsExtension returns true for extension DTypes.
func (d DType) IsExtension() bool { return d.kind == KindExtension }

// NumFields returns the number of fields of a struct DType.
func (d DType) NumFields() int {
	if d.st == nil {
		return 0
	}
	return len(d.st.names)
}

// FieldName returns the name of the i'th struct field.
func (d DType) FieldName(i int) string { return d.st.names[i] }

// Field returns the DType of the i'th struct field.
func (d DType) Field(i int) DType { return d.st.types[i] }

// FieldNames returns a copy of the struct field names.
func (d DType) FieldNames() []string {
	if d.st == nil {
		return nil
	}
	return slices.Clone(d.st.names)
}

// FieldTypes returns a copy of the struct field types.
func (d DType) FieldTypes() []DType {
	if d.st == nil {
		return nil
	}
	return slices.Clone(d.st.types)
}

// FieldIndex returns the index of the named field, or -1.
func (d DType) FieldIndex(name string) int {
	if d.st == nil {
		return -1
	}
	return slices.Index(d.st.names, name)
}

// Elem returns the element DType of a list DType.
func (d DType) Elem() DType {
	if d.elem == nil {
		panic(fmt.Sprintf("Elem called on %s dtype", d))
	}
	return *d.elem
}

// Ext returns the extension description of an extension DType.
func (d DType) Ext() ExtDType {
	if d.ext == nil {
		panic(fmt.Sprintf("Ext called on %s dtype", d))
	}
	return *d.ext
}

// WithNullability returns a copy of d with the provided nullability. The null
// type is always nullable.
func (d DType) WithNullability(n Nullability) DType {
	switch d.kind {
	case KindNull:
		return d
	case KindExtension:
		return Extension(*d.ext, n)
	}
	d.nullable = n
	return d
}

// AsNullable returns the nullable variant of d.
func (d DType) AsNullable() DType { return d.WithNullability(Nullable) }

// AsNonNullable returns the non-nullable variant of d.
func (d DType) AsNonNullable() DType { return d.WithNullability(NonNullable) }

// Equal returns true if d and o are structurally equal, including
// nullability.
func (d DType) Equal(o DType) bool {
	return d.nullable == o.nullable && d.EqualIgnoringNullability(o)
}

// EqualIgnoringNullability returns true if d and o are structurally equal
// apart from their top-level nullability.
func (d DType) EqualIgnoringNullability(o DType) bool {
	if d.kind != o.kind {
		return false
	}
	switch d.kind {
	case KindPrimitive:
		return d.ptype == o.ptype
	case KindStruct:
		if len(d.st.names) != len(o.st.names) {
			return false
		}
		for i := range d.st.names {
			if d.st.names[i] != o.st.names[i] || !d.st.types[i].Equal(o.st.types[i]) {
				return false
			}
		}
		return true
	case KindList:
		return d.elem.Equal(*o.elem)
	case KindExtension:
		return d.ext.ID == o.ext.ID &&
			bytes.Equal(d.ext.Metadata, o.ext.Metadata) &&
			d.ext.Storage.EqualIgnoringNullability(o.ext.Storage)
	default:
		return true
	}
}

// String returns a compact representation of the DType, e.g. "i32?" for a
// nullable 32-bit integer.
func (d DType) String() string {
	return redact.StringWithoutMarkers(d)
}

// SafeFormat implements redact.SafeFormatter.
func (d DType) SafeFormat(w redact.SafePrinter, _ rune) {
	var sb strings.Builder
	d.format(&sb)
	w.Print(redact.SafeString(sb.String()))
}

func (d DType) format(sb *strings.Builder) {
	switch d.kind {
	case KindNull:
		sb.WriteString("null")
		return
	case KindPrimitive:
		sb.WriteString(d.ptype.String())
	case KindStruct:
		sb.WriteString("{")
		for i := range d.st.names {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(d.st.names[i])
			sb.WriteString("=")
			d.st.types[i].format(sb)
		}
		sb.WriteString("}")
	case KindList:
		sb.WriteString("list(")
		d.elem.format(sb)
		sb.WriteString(")")
	case KindExtension:
		sb.WriteString("ext(")
		sb.WriteString(d.ext.ID)
		sb.WriteString(", ")
		d.ext.Storage.AsNonNullable().format(sb)
		sb.WriteString(")")
	default:
		sb.WriteString(d.kind.String())
	}
	if d.nullable {
		sb.WriteString("?")
	}
}
