// Copyright 2025 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package array

import (
	"encoding/binary"

	"github.com/apache/arrow-go/v18/arrow/bitutil"
	"github.com/cockroachdb/colenc/dtype"
	"github.com/cockroachdb/colenc/scalar"
	"github.com/cockroachdb/errors"
)

// FromScalars returns a canonical array of DType dt holding vals. Each scalar
// must have DType dt, ignoring nullability, and nulls require a nullable dt.
func FromScalars(dt dtype.DType, vals []scalar.Scalar) (*Array, error) {
	n := len(vals)
	valid := make([]bool, n)
	nulls := 0
	for i, s := range vals {
		if s.IsNull() {
			if !dt.IsNullable() {
				return nil, InvalidArgumentf("null at %d in non-nullable %s", errors.Safe(i), dt)
			}
			nulls++
			continue
		}
		if !s.DType().EqualIgnoringNullability(dt) {
			return nil, TypeMismatchf("scalar %d has dtype %s, expected %s", errors.Safe(i), s.DType(), dt)
		}
		valid[i] = true
	}
	var v Validity
	switch {
	case !dt.IsNullable():
		v = ValidityNonNullable()
	case nulls == 0:
		v = ValidityAllValid()
	case nulls == n:
		v = ValidityAllInvalid()
	default:
		v = ValidityFromBools(valid)
	}

	switch dt.Kind() {
	case dtype.KindNull:
		return NewNull(n), nil
	case dtype.KindBool:
		buf := make([]byte, bitutil.BytesForBits(int64(n)))
		for i, s := range vals {
			if b, ok := s.AsBool(); ok && b {
				bitutil.SetBit(buf, i)
			}
		}
		return newBoolArray(NewBuffer(buf), 0, n, v), nil
	case dtype.KindPrimitive:
		w := dt.PType().ByteWidth()
		buf := alignedBytes(n * w)
		for i, s := range vals {
			p, ok := s.AsPValue()
			if !ok {
				continue
			}
			putRaw(buf[i*w:], w, p.StorageBits())
		}
		return newPrimitiveArray(dt.PType(), NewBuffer(buf), n, v), nil
	case dtype.KindUtf8, dtype.KindBinary:
		b := NewVarBinBuilder(dt, n)
		for _, s := range vals {
			if s.IsNull() {
				b.AppendNull()
				continue
			}
			val, _ := s.AsBytes()
			b.Append(val)
		}
		return b.Finish(), nil
	case dtype.KindStruct:
		fields := make([]*Array, dt.NumFields())
		for f := range fields {
			fdt := dt.Field(f)
			fvals := make([]scalar.Scalar, n)
			for i, s := range vals {
				fs := s.Field(f)
				if fs.IsNull() && !fdt.IsNullable() {
					fs = ZeroScalar(fdt)
				}
				fvals[i] = fs
			}
			fa, err := FromScalars(fdt, fvals)
			if err != nil {
				return nil, err
			}
			fields[f] = fa
		}
		return newStructArray(dt, fields, n, v), nil
	case dtype.KindExtension:
		st := make([]scalar.Scalar, n)
		for i, s := range vals {
			if s.IsNull() {
				st[i] = scalar.Null(dt.Ext().Storage)
			} else {
				st[i] = s.Storage()
			}
		}
		sa, err := FromScalars(dt.Ext().Storage, st)
		if err != nil {
			return nil, err
		}
		return NewExtension(dt, sa)
	}
	return nil, Unsupportedf("cannot build arrays of %s", dt)
}

func putRaw(b []byte, w int, raw uint64) {
	switch w {
	case 1:
		b[0] = byte(raw)
	case 2:
		binary.LittleEndian.PutUint16(b, uint16(raw))
	case 4:
		binary.LittleEndian.PutUint32(b, uint32(raw))
	default:
		binary.LittleEndian.PutUint64(b, raw)
	}
}

// ZeroScalar returns the zero value of a DType: false, 0, empty bytes, a
// struct of zero fields, or null for the null type.
func ZeroScalar(dt dtype.DType) scalar.Scalar {
	n := dt.Nullability()
	switch dt.Kind() {
	case dtype.KindBool:
		return scalar.Bool(false, n)
	case dtype.KindPrimitive:
		return scalar.Primitive(scalar.PValueFromBits(dt.PType(), 0), n)
	case dtype.KindUtf8, dtype.KindBinary:
		return scalar.BufferOf(dt, nil)
	case dtype.KindStruct:
		fields := make([]scalar.Scalar, dt.NumFields())
		for i := range fields {
			fields[i] = ZeroScalar(dt.Field(i))
		}
		s, err := scalar.Struct(dt, fields)
		if err != nil {
			panic(err)
		}
		return s
	case dtype.KindList:
		s, err := scalar.List(dt, nil)
		if err != nil {
			panic(err)
		}
		return s
	case dtype.KindExtension:
		return scalar.Extension(dt, ZeroScalar(dt.Ext().Storage))
	}
	return scalar.Null(dt)
}

// ToScalars returns every element of a.
func ToScalars(a *Array) ([]scalar.Scalar, error) {
	c, err := Canonicalize(a)
	if err != nil {
		return nil, err
	}
	out := make([]scalar.Scalar, c.Len())
	for i := range out {
		if out[i], err = ScalarAt(c, i); err != nil {
			return nil, err
		}
	}
	return out, nil
}
