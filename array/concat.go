// Copyright 2025 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package array

import (
	"github.com/apache/arrow-go/v18/arrow/bitutil"
	"github.com/cockroachdb/colenc/dtype"
	"github.com/cockroachdb/errors"
)

// Concat returns a canonical array holding the elements of arrays in order.
// Every array must have DType dt.
func Concat(dt dtype.DType, arrays []*Array) (*Array, error) {
	cs := make([]*Array, 0, len(arrays))
	n := 0
	for i, a := range arrays {
		if !a.DType().Equal(dt) {
			return nil, TypeMismatchf("concat operand %d has dtype %s, expected %s", errors.Safe(i), a.DType(), dt)
		}
		c, err := Canonicalize(a)
		if err != nil {
			return nil, err
		}
		cs = append(cs, c)
		n += c.Len()
	}
	if len(cs) == 1 {
		return cs[0], nil
	}
	v := concatValidity(dt, cs, n)
	switch dt.Kind() {
	case dtype.KindNull:
		return NewNull(n), nil
	case dtype.KindBool:
		out := make([]byte, bitutil.BytesForBits(int64(n)))
		pos := 0
		for _, c := range cs {
			bm, off := BoolBitmap(c)
			if c.Len() > 0 {
				bitutil.CopyBitmap(bm, off, c.Len(), out, pos)
			}
			pos += c.Len()
		}
		return newBoolArray(NewBuffer(out), 0, n, v), nil
	case dtype.KindPrimitive:
		w := dt.PType().ByteWidth()
		out := alignedBytes(n * w)
		pos := 0
		for _, c := range cs {
			pos += copy(out[pos:], c.buffers[0].Bytes()[:c.Len()*w])
		}
		return newPrimitiveArray(dt.PType(), NewBuffer(out), n, v), nil
	case dtype.KindUtf8, dtype.KindBinary:
		b := NewVarBinBuilder(dt, n)
		for _, c := range cs {
			cv := canonicalValidity(c)
			for i := 0; i < c.Len(); i++ {
				if cv.IsValid(i) {
					b.Append(VarBinBytes(c, i))
				} else {
					b.AppendNull()
				}
			}
		}
		return b.Finish(), nil
	case dtype.KindStruct:
		fields := make([]*Array, dt.NumFields())
		for f := range fields {
			parts := make([]*Array, len(cs))
			for i, c := range cs {
				parts[i] = StructFields(c)[f]
			}
			fa, err := Concat(dt.Field(f), parts)
			if err != nil {
				return nil, err
			}
			fields[f] = fa
		}
		return newStructArray(dt, fields, n, v), nil
	case dtype.KindExtension:
		parts := make([]*Array, len(cs))
		for i, c := range cs {
			parts[i] = ExtensionStorage(c)
		}
		st, err := Concat(dt.Ext().Storage, parts)
		if err != nil {
			return nil, err
		}
		return NewExtension(dt, st)
	}
	return nil, Unsupportedf("cannot concatenate %s arrays", dt)
}

func concatValidity(dt dtype.DType, cs []*Array, n int) Validity {
	if !dt.IsNullable() {
		return ValidityNonNullable()
	}
	allValid, allInvalid := true, true
	for _, c := range cs {
		if c.Is(NullID) {
			allValid = false
			continue
		}
		switch canonicalValidity(c).kind {
		case AllValid:
			allInvalid = allInvalid && c.Len() == 0
		case AllInvalid:
			allValid = allValid && c.Len() == 0
		default:
			allValid, allInvalid = false, false
		}
	}
	switch {
	case allValid:
		return ValidityAllValid()
	case allInvalid:
		return ValidityAllInvalid()
	}
	valid := make([]bool, 0, n)
	for _, c := range cs {
		cv := canonicalValidity(c)
		for i := 0; i < c.Len(); i++ {
			valid = append(valid, cv.IsValid(i))
		}
	}
	return ValidityFromBools(valid)
}
