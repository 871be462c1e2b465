// Copyright 2025 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

// Package arrowconv converts arrays to and from Apache Arrow arrays.
//
// Arrays are canonicalized before conversion. Fixed width values and
// variable-length data are shared with the Arrow array without copying;
// validity bitmaps and offsets are allocated from the given allocator.
// Timestamp extension arrays convert to Arrow timestamps, other extension
// arrays to their storage.
package arrowconv

import (
	"math"

	"github.com/apache/arrow-go/v18/arrow"
	arrowarray "github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/bitutil"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/cockroachdb/colenc/array"
	"github.com/cockroachdb/colenc/dtype"
	"github.com/cockroachdb/errors"
)

// ToArrow converts a to an Arrow array. The caller must Release it.
func ToArrow(a *array.Array, mem memory.Allocator) (arrow.Array, error) {
	data, err := toData(a, mem)
	if err != nil {
		return nil, err
	}
	defer data.Release()
	return arrowarray.MakeFromData(data), nil
}

// ArrowType returns the Arrow type arrays of DType dt convert to.
func ArrowType(dt dtype.DType) (arrow.DataType, error) {
	switch dt.Kind() {
	case dtype.KindNull:
		return arrow.Null, nil
	case dtype.KindBool:
		return arrow.FixedWidthTypes.Boolean, nil
	case dtype.KindPrimitive:
		return primitiveType(dt.PType()), nil
	case dtype.KindUtf8:
		return arrow.BinaryTypes.String, nil
	case dtype.KindBinary:
		return arrow.BinaryTypes.Binary, nil
	case dtype.KindStruct:
		fields := make([]arrow.Field, dt.NumFields())
		for i := range fields {
			t, err := ArrowType(dt.Field(i))
			if err != nil {
				return nil, err
			}
			fields[i] = arrow.Field{Name: dt.FieldName(i), Type: t, Nullable: dt.Field(i).IsNullable()}
		}
		return arrow.StructOf(fields...), nil
	case dtype.KindExtension:
		if dtype.IsTimestamp(dt) {
			opts, err := dtype.ParseTimestamp(dt)
			if err != nil {
				return nil, err
			}
			return &arrow.TimestampType{Unit: toArrowUnit(opts.Unit), TimeZone: opts.TimeZone}, nil
		}
		return ArrowType(dt.Ext().Storage)
	}
	return nil, array.Unsupportedf("no arrow type for %s", dt)
}

func primitiveType(p dtype.PType) arrow.DataType {
	switch p {
	case dtype.U8:
		return arrow.PrimitiveTypes.Uint8
	case dtype.U16:
		return arrow.PrimitiveTypes.Uint16
	case dtype.U32:
		return arrow.PrimitiveTypes.Uint32
	case dtype.U64:
		return arrow.PrimitiveTypes.Uint64
	case dtype.I8:
		return arrow.PrimitiveTypes.Int8
	case dtype.I16:
		return arrow.PrimitiveTypes.Int16
	case dtype.I32:
		return arrow.PrimitiveTypes.Int32
	case dtype.I64:
		return arrow.PrimitiveTypes.Int64
	case dtype.F16:
		return arrow.FixedWidthTypes.Float16
	case dtype.F32:
		return arrow.PrimitiveTypes.Float32
	default:
		return arrow.PrimitiveTypes.Float64
	}
}

func toArrowUnit(u dtype.TimeUnit) arrow.TimeUnit {
	switch u {
	case dtype.Seconds:
		return arrow.Second
	case dtype.Milliseconds:
		return arrow.Millisecond
	case dtype.Microseconds:
		return arrow.Microsecond
	default:
		return arrow.Nanosecond
	}
}

func fromArrowUnit(u arrow.TimeUnit) dtype.TimeUnit {
	switch u {
	case arrow.Second:
		return dtype.Seconds
	case arrow.Millisecond:
		return dtype.Milliseconds
	case arrow.Microsecond:
		return dtype.Microseconds
	default:
		return dtype.Nanoseconds
	}
}

// bufferSet collects the allocator-backed buffers of an ArrayData under
// construction. Each buffer starts with one reference owned by the set;
// release drops it once NewData has retained the buffer, so the ArrayData
// holds the only remaining reference and frees the memory on Release.
type bufferSet []*memory.Buffer

func (s *bufferSet) alloc(mem memory.Allocator, n int) *memory.Buffer {
	b := memory.NewBufferWithAllocator(mem.Allocate(n), mem)
	clear(b.Bytes())
	*s = append(*s, b)
	return b
}

func (s bufferSet) release() {
	for _, b := range s {
		b.Release()
	}
}

// validityBitmap returns the Arrow validity bitmap of c and its null count.
// The bitmap is nil if c has no nulls.
func validityBitmap(c *array.Array, mem memory.Allocator, bufs *bufferSet) (*memory.Buffer, int, error) {
	if !c.DType().IsNullable() {
		return nil, 0, nil
	}
	v, err := array.LogicalValidity(c)
	if err != nil {
		return nil, 0, err
	}
	n := c.Len()
	nulls := 0
	for i := 0; i < n; i++ {
		if !v.IsValid(i) {
			nulls++
		}
	}
	if nulls == 0 {
		return nil, 0, nil
	}
	b := bufs.alloc(mem, int(bitutil.BytesForBits(int64(n))))
	bits := b.Bytes()
	for i := 0; i < n; i++ {
		if v.IsValid(i) {
			bitutil.SetBit(bits, i)
		}
	}
	return b, nulls, nil
}

func toData(a *array.Array, mem memory.Allocator) (arrow.ArrayData, error) {
	c, err := array.Canonicalize(a)
	if err != nil {
		return nil, err
	}
	dt := c.DType()
	t, err := ArrowType(dt)
	if err != nil {
		return nil, err
	}
	n := c.Len()
	if dt.IsExtension() {
		storage, err := toData(array.ExtensionStorage(c), mem)
		if err != nil {
			return nil, err
		}
		defer storage.Release()
		return arrowarray.NewData(t, n, storage.Buffers(), storage.Children(), storage.NullN(), storage.Offset()), nil
	}

	var bufs bufferSet
	defer bufs.release()
	validity, nulls, err := validityBitmap(c, mem, &bufs)
	if err != nil {
		return nil, err
	}
	switch dt.Kind() {
	case dtype.KindNull:
		return arrowarray.NewData(t, n, []*memory.Buffer{nil}, nil, n, 0), nil

	case dtype.KindBool:
		bitmap, offset := array.BoolBitmap(c)
		values := bufs.alloc(mem, int(bitutil.BytesForBits(int64(n))))
		bitutil.CopyBitmap(bitmap, offset, n, values.Bytes(), 0)
		return arrowarray.NewData(t, n, []*memory.Buffer{validity, values}, nil, nulls, 0), nil

	case dtype.KindPrimitive:
		w := dt.PType().ByteWidth()
		values := memory.NewBufferBytes(c.Buffer(0).Bytes()[:n*w])
		return arrowarray.NewData(t, n, []*memory.Buffer{validity, values}, nil, nulls, 0), nil

	case dtype.KindUtf8, dtype.KindBinary:
		offsets, err := array.Canonicalize(array.VarBinOffsets(c))
		if err != nil {
			return nil, err
		}
		offs := array.IndicesOf(offsets)
		if len(offs) > 0 && offs[len(offs)-1] > math.MaxInt32 {
			return nil, array.Unsupportedf("%s array of %d bytes exceeds 32-bit arrow offsets",
				dt, errors.Safe(offs[len(offs)-1]))
		}
		ob := bufs.alloc(mem, len(offs)*arrow.Int32SizeBytes)
		o32 := arrow.Int32Traits.CastFromBytes(ob.Bytes())
		for i, o := range offs {
			o32[i] = int32(o)
		}
		data := memory.NewBufferBytes(array.VarBinData(c).Bytes())
		return arrowarray.NewData(t, n, []*memory.Buffer{validity, ob, data}, nil, nulls, 0), nil

	case dtype.KindStruct:
		fields := array.StructFields(c)
		children := make([]arrow.ArrayData, len(fields))
		defer func() {
			for _, ch := range children {
				if ch != nil {
					ch.Release()
				}
			}
		}()
		for i, f := range fields {
			if children[i], err = toData(f, mem); err != nil {
				return nil, errors.Wrapf(err, "converting field %q", dt.FieldName(i))
			}
		}
		return arrowarray.NewData(t, n, []*memory.Buffer{validity}, children, nulls, 0), nil
	}
	return nil, array.Unsupportedf("cannot convert %s to arrow", dt)
}

// FromArrow converts an Arrow array. Arrays with nulls convert to nullable
// DTypes and arrays without to non-nullable ones, except within structs where
// the nullability of the Arrow fields applies.
func FromArrow(arr arrow.Array) (*array.Array, error) {
	return fromArrow(arr, arr.NullN() > 0)
}

func fromArrow(arr arrow.Array, nullable bool) (*array.Array, error) {
	n := arr.Len()
	nb := dtype.Nullability(nullable)
	v := array.ValidityFor(nb)
	if arr.NullN() > 0 {
		if !nullable {
			return nil, array.InvalidArgumentf("%d nulls in non-nullable arrow array", errors.Safe(arr.NullN()))
		}
		valid := make([]bool, n)
		for i := range valid {
			valid[i] = arr.IsValid(i)
		}
		v = array.ValidityFromBools(valid)
	}
	switch t := arr.(type) {
	case *arrowarray.Null:
		return array.NewNull(n), nil
	case *arrowarray.Boolean:
		vals := make([]bool, n)
		for i := range vals {
			vals[i] = t.Value(i)
		}
		bitmap, offset := array.BoolBitmap(array.BoolFromSlice(vals, dtype.NonNullable))
		return array.NewBool(array.NewBuffer(bitmap), offset, n, v)
	case *arrowarray.Uint8:
		return array.FromSliceWithValidity(t.Uint8Values(), v), nil
	case *arrowarray.Uint16:
		return array.FromSliceWithValidity(t.Uint16Values(), v), nil
	case *arrowarray.Uint32:
		return array.FromSliceWithValidity(t.Uint32Values(), v), nil
	case *arrowarray.Uint64:
		return array.FromSliceWithValidity(t.Uint64Values(), v), nil
	case *arrowarray.Int8:
		return array.FromSliceWithValidity(t.Int8Values(), v), nil
	case *arrowarray.Int16:
		return array.FromSliceWithValidity(t.Int16Values(), v), nil
	case *arrowarray.Int32:
		return array.FromSliceWithValidity(t.Int32Values(), v), nil
	case *arrowarray.Int64:
		return array.FromSliceWithValidity(t.Int64Values(), v), nil
	case *arrowarray.Float32:
		return array.FromSliceWithValidity(t.Float32Values(), v), nil
	case *arrowarray.Float64:
		return array.FromSliceWithValidity(t.Float64Values(), v), nil
	case *arrowarray.Float16:
		vals := t.Values()
		raw := make([]uint64, len(vals))
		for i, f := range vals {
			raw[i] = uint64(f.Uint16())
		}
		return array.PrimitiveFromRaw(dtype.F16, raw, v), nil
	case *arrowarray.String:
		b := array.NewVarBinBuilder(dtype.Utf8(nb), n)
		for i := 0; i < n; i++ {
			if t.IsNull(i) {
				b.AppendNull()
			} else {
				b.AppendString(t.Value(i))
			}
		}
		return b.Finish(), nil
	case *arrowarray.Binary:
		b := array.NewVarBinBuilder(dtype.Binary(nb), n)
		for i := 0; i < n; i++ {
			if t.IsNull(i) {
				b.AppendNull()
			} else {
				b.Append(t.Value(i))
			}
		}
		return b.Finish(), nil
	case *arrowarray.Timestamp:
		tt := t.DataType().(*arrow.TimestampType)
		ts := t.TimestampValues()
		vals := make([]int64, len(ts))
		for i, x := range ts {
			vals[i] = int64(x)
		}
		return array.NewExtension(dtype.Timestamp(fromArrowUnit(tt.Unit), tt.TimeZone, nb),
			array.FromSliceWithValidity(vals, v))
	case *arrowarray.Struct:
		st := t.DataType().(*arrow.StructType)
		names := make([]string, t.NumField())
		types := make([]dtype.DType, t.NumField())
		fields := make([]*array.Array, t.NumField())
		for i := range fields {
			f := st.Field(i)
			c, err := fromArrow(t.Field(i), f.Nullable || t.Field(i).NullN() > 0)
			if err != nil {
				return nil, errors.Wrapf(err, "converting field %q", f.Name)
			}
			names[i], types[i], fields[i] = f.Name, c.DType(), c
		}
		return array.NewStruct(dtype.Struct(names, types, nb), fields, n, v)
	}
	return nil, array.Unsupportedf("cannot convert arrow %s", arr.DataType())
}
