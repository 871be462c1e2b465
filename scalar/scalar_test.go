// Copyright 2025 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package scalar

import (
	"math"
	"testing"

	"github.com/apache/arrow-go/v18/arrow/float16"
	"github.com/cockroachdb/colenc/dtype"
	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/require"
)

func TestPValueRoundTrip(t *testing.T) {
	for _, p := range dtype.AllPTypes {
		var v PValue
		switch {
		case p.IsUnsigned():
			v = PValueFromBits(p, widthMask(p))
		case p.IsSigned():
			v = PValueInt(p, -3)
			require.Equal(t, int64(-3), v.Int64())
		default:
			v = PValueFromBits(p, PValueOf(float32(1.5)).bitsFor(p))
			require.Equal(t, 1.5, v.Float64())
		}
		require.Equal(t, p, v.PType())
		require.True(t, v.Equal(PValueFromBits(p, v.StorageBits())), "%s", p)
	}
}

// bitsFor is a test helper returning the storage bits of a float in type p.
func (p PValue) bitsFor(to dtype.PType) uint64 {
	c, err := p.Cast(to)
	if err != nil {
		panic(err)
	}
	return c.StorageBits()
}

func TestPValueCompare(t *testing.T) {
	require.Equal(t, -1, PValueOf(int8(-1)).Compare(PValueOf(uint8(0))))
	require.Equal(t, 1, PValueOf(uint64(math.MaxUint64)).Compare(PValueOf(int64(1))))
	require.Equal(t, 0, PValueOf(int32(7)).Compare(PValueOf(int32(7))))
	require.Equal(t, -1, PValueOf(1.0).Compare(PValueOf(2.0)))
	require.True(t, PValueOf(int16(0)).IsZero())
	require.False(t, PValueOf(0.0).Equal(PValueOf(math.Copysign(0, -1))))
}

func TestPValueCast(t *testing.T) {
	v, err := PValueOf(int64(200)).Cast(dtype.U8)
	require.NoError(t, err)
	require.Equal(t, uint64(200), v.Uint64())

	_, err = PValueOf(int64(200)).Cast(dtype.I8)
	require.Error(t, err)
	_, err = PValueOf(int32(-1)).Cast(dtype.U32)
	require.Error(t, err)
	_, err = PValueOf(1.5).Cast(dtype.I32)
	require.Error(t, err)

	v, err = PValueOf(3.0).Cast(dtype.I16)
	require.NoError(t, err)
	require.Equal(t, int64(3), v.Int64())

	_, err = PValueOf(int64(1<<40 + 1)).Cast(dtype.F32)
	require.Error(t, err)
	v, err = PValueOf(uint8(9)).Cast(dtype.F16)
	require.NoError(t, err)
	require.Equal(t, "9", v.String())
}

func TestScalarCompare(t *testing.T) {
	i32 := dtype.Primitive(dtype.I32, dtype.Nullable)
	a := Of(int32(1)).WithNullability(dtype.Nullable)
	b := Of(int32(2))
	n := Null(i32)

	c, err := a.Compare(b)
	require.NoError(t, err)
	require.Equal(t, -1, c)
	// Nulls sort last.
	c, err = n.Compare(b)
	require.NoError(t, err)
	require.Equal(t, 1, c)
	c, err = n.Compare(Null(i32))
	require.NoError(t, err)
	require.Equal(t, 0, c)

	_, err = a.Compare(Of(int64(1)))
	require.True(t, errors.Is(err, ErrTypeMismatch))
	_, err = Utf8("a", dtype.NonNullable).Compare(Bool(true, dtype.NonNullable))
	require.True(t, errors.Is(err, ErrTypeMismatch))

	require.True(t, Utf8("abc", dtype.NonNullable).Less(Utf8("abd", dtype.Nullable)))
	require.True(t, Bool(false, dtype.NonNullable).Less(Bool(true, dtype.NonNullable)))
	require.True(t, a.Equal(Of(int32(1))))
	require.False(t, a.Equal(n))
}

func TestScalarStruct(t *testing.T) {
	dt := dtype.Struct([]string{"a", "b"}, []dtype.DType{
		dtype.Primitive(dtype.I64, dtype.NonNullable),
		dtype.Utf8(dtype.Nullable),
	}, dtype.NonNullable)
	s, err := Struct(dt, []Scalar{Of(int64(4)), Null(dtype.Utf8(dtype.Nullable))})
	require.NoError(t, err)
	require.Equal(t, `{a=4, b=null}`, s.String())
	require.Equal(t, 8, s.NBytes())

	_, err = Struct(dt, []Scalar{Of(int64(4))})
	require.Error(t, err)
	_, err = Struct(dt, []Scalar{Null(dt.Field(0)), Utf8("x", dtype.Nullable)})
	require.Error(t, err)

	l, err := List(dtype.List(dtype.Primitive(dtype.U8, dtype.NonNullable), dtype.NonNullable),
		[]Scalar{Of(uint8(1)), Of(uint8(2))})
	require.NoError(t, err)
	require.Equal(t, "[1, 2]", l.String())
}

func TestScalarCast(t *testing.T) {
	s, err := Of(int32(5)).Cast(dtype.Primitive(dtype.U64, dtype.Nullable))
	require.NoError(t, err)
	require.True(t, s.DType().IsNullable())
	v, ok := s.AsUint64()
	require.True(t, ok)
	require.Equal(t, uint64(5), v)

	_, err = Of(int32(5)).Cast(dtype.Utf8(dtype.NonNullable))
	require.True(t, errors.Is(err, ErrTypeMismatch))

	_, err = Null(dtype.Bool(dtype.Nullable)).Cast(dtype.Bool(dtype.NonNullable))
	require.Error(t, err)

	ts := dtype.Timestamp(dtype.Seconds, "UTC", dtype.NonNullable)
	e, err := Of(int64(1700000000)).Cast(ts)
	require.NoError(t, err)
	require.Equal(t, "colenc.timestamp(1700000000)", e.String())
	back, err := e.Cast(dtype.Primitive(dtype.I64, dtype.NonNullable))
	require.NoError(t, err)
	require.True(t, back.Equal(Of(int64(1700000000))))
}

func TestScalarSerde(t *testing.T) {
	st := dtype.Struct([]string{"x", "y"}, []dtype.DType{
		dtype.Primitive(dtype.F16, dtype.NonNullable),
		dtype.Binary(dtype.Nullable),
	}, dtype.Nullable)
	sv, err := Struct(st, []Scalar{
		F16(float16.New(2.5), dtype.NonNullable),
		Binary([]byte{0xde, 0xad}, dtype.Nullable),
	})
	require.NoError(t, err)
	lt := dtype.List(dtype.Primitive(dtype.I8, dtype.Nullable), dtype.NonNullable)
	lv, err := List(lt, []Scalar{Of(int8(-4)).WithNullability(dtype.Nullable), Null(lt.Elem())})
	require.NoError(t, err)

	for _, s := range []Scalar{
		Null(dtype.Primitive(dtype.U16, dtype.Nullable)),
		Bool(true, dtype.NonNullable),
		Of(int16(-300)),
		Of(uint64(math.MaxUint64)),
		Of(float32(0.25)),
		Of(-1e300),
		Utf8("héllo", dtype.Nullable),
		sv,
		lv,
		Extension(dtype.Timestamp(dtype.Milliseconds, "", dtype.NonNullable), Of(int64(-1))),
	} {
		b, err := s.MarshalBinary()
		require.NoError(t, err)
		got, err := Unmarshal(s.DType(), b)
		require.NoError(t, err)
		require.True(t, s.Equal(got), "%s != %s", s, got)
		require.Equal(t, s.String(), got.String())
	}

	_, err = Unmarshal(dtype.Primitive(dtype.I64, dtype.NonNullable), []byte{1, 2})
	require.Error(t, err)
	_, err = Unmarshal(dtype.Bool(dtype.NonNullable), []byte{1, 1, 0})
	require.Error(t, err)
	_, err = Unmarshal(lt, []byte{1, 200})
	require.Error(t, err)
}
