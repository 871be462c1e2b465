// Copyright 2025 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package dtype

import (
	"math"
	"testing"

	"github.com/cockroachdb/redact"
	"github.com/stretchr/testify/require"
)

func TestString(t *testing.T) {
	point := Struct([]string{"x", "y"}, []DType{Primitive(F64, NonNullable), Primitive(F64, Nullable)}, Nullable)
	for _, tc := range []struct {
		dt   DType
		want string
	}{
		{Null(), "null"},
		{Bool(NonNullable), "bool"},
		{Bool(Nullable), "bool?"},
		{Primitive(I32, Nullable), "i32?"},
		{Primitive(U8, NonNullable), "u8"},
		{Utf8(NonNullable), "utf8"},
		{Binary(Nullable), "binary?"},
		{point, "{x=f64, y=f64?}?"},
		{List(Primitive(I64, NonNullable), NonNullable), "list(i64)"},
		{Timestamp(Microseconds, "UTC", Nullable), "ext(colenc.timestamp, i64)?"},
	} {
		require.Equal(t, tc.want, tc.dt.String())
	}

	// DTypes print without redaction markers.
	require.Equal(t, redact.RedactableString("unexpected i16?"),
		redact.Sprintf("unexpected %s", Primitive(I16, Nullable)))
}

func TestEqual(t *testing.T) {
	a := Struct([]string{"a"}, []DType{Utf8(Nullable)}, NonNullable)
	require.True(t, a.Equal(Struct([]string{"a"}, []DType{Utf8(Nullable)}, NonNullable)))
	require.False(t, a.Equal(Struct([]string{"b"}, []DType{Utf8(Nullable)}, NonNullable)))
	require.False(t, a.Equal(Struct([]string{"a"}, []DType{Utf8(NonNullable)}, NonNullable)))
	require.False(t, a.Equal(a.AsNullable()))
	require.True(t, a.EqualIgnoringNullability(a.AsNullable()))

	require.False(t, Primitive(I32, NonNullable).Equal(Primitive(U32, NonNullable)))
	require.False(t, Utf8(NonNullable).Equal(Binary(NonNullable)))
	require.False(t, Timestamp(Seconds, "", NonNullable).Equal(Timestamp(Microseconds, "", NonNullable)))
	require.True(t, Timestamp(Seconds, "", NonNullable).EqualIgnoringNullability(Timestamp(Seconds, "", Nullable)))
}

func TestNullability(t *testing.T) {
	require.True(t, Null().IsNullable())
	require.True(t, Null().AsNonNullable().IsNullable())

	ts := Timestamp(Milliseconds, "", NonNullable).AsNullable()
	require.True(t, ts.IsNullable())
	require.True(t, ts.Ext().Storage.IsNullable())
	require.False(t, ts.AsNonNullable().Ext().Storage.IsNullable())

	s := Struct([]string{"a"}, []DType{Bool(NonNullable)}, NonNullable).AsNullable()
	require.True(t, s.IsNullable())
	require.False(t, s.Field(0).IsNullable())
}

func TestStruct(t *testing.T) {
	names := []string{"id", "name"}
	types := []DType{Primitive(U64, NonNullable), Utf8(Nullable)}
	s := Struct(names, types, NonNullable)
	names[0] = "changed"
	require.Equal(t, 2, s.NumFields())
	require.Equal(t, "id", s.FieldName(0))
	require.Equal(t, []string{"id", "name"}, s.FieldNames())
	require.Equal(t, 1, s.FieldIndex("name"))
	require.Equal(t, -1, s.FieldIndex("missing"))
	require.True(t, s.Field(1).Equal(Utf8(Nullable)))

	require.Panics(t, func() { Struct([]string{"a"}, nil, NonNullable) })
	require.Panics(t, func() { Utf8(NonNullable).Ext() })
	require.Panics(t, func() { Utf8(NonNullable).PType() })
}

func TestPType(t *testing.T) {
	for _, p := range AllPTypes {
		q, err := ParsePType(p.String())
		require.NoError(t, err)
		require.Equal(t, p, q)
		require.Equal(t, p.ByteWidth(), p.ToUnsigned().ByteWidth())
		require.Equal(t, p.ByteWidth(), p.ToSigned().ByteWidth())
		require.Equal(t, 8*p.ByteWidth(), p.BitWidth())
		require.True(t, p.IsInt() != p.IsFloat())
	}
	_, err := ParsePType("i128")
	require.Error(t, err)

	require.True(t, U16.IsUnsigned())
	require.False(t, I16.IsUnsigned())
	require.True(t, I16.IsSigned())
	require.False(t, F32.IsSigned())

	require.Equal(t, U8, MinUnsignedFor(0))
	require.Equal(t, U8, MinUnsignedFor(255))
	require.Equal(t, U16, MinUnsignedFor(256))
	require.Equal(t, U32, MinUnsignedFor(math.MaxUint32))
	require.Equal(t, U64, MinUnsignedFor(math.MaxUint32+1))

	require.Equal(t, I8, PTypeOf[int8]())
	require.Equal(t, U64, PTypeOf[uint64]())
	require.Equal(t, F32, PTypeOf[float32]())
	require.Equal(t, F64, PTypeOf[float64]())
}

func TestTimestamp(t *testing.T) {
	dt := Timestamp(Nanoseconds, "Europe/Paris", NonNullable)
	require.True(t, IsTimestamp(dt))
	opts, err := ParseTimestamp(dt)
	require.NoError(t, err)
	require.Equal(t, TimestampOptions{Unit: Nanoseconds, TimeZone: "Europe/Paris"}, opts)
	require.Equal(t, int64(1_000_000_000), opts.Unit.PerSecond())
	require.Equal(t, "ns", opts.Unit.String())

	require.False(t, IsTimestamp(Primitive(I64, NonNullable)))
	_, err = ParseTimestamp(Primitive(I64, NonNullable))
	require.Error(t, err)

	bad := Extension(ExtDType{ID: TimestampID, Metadata: []byte{9}, Storage: Primitive(I64, NonNullable)}, NonNullable)
	_, err = ParseTimestamp(bad)
	require.Error(t, err)
}
