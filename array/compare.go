// Copyright 2025 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package array

import (
	"bytes"
	"cmp"

	"github.com/apache/arrow-go/v18/arrow/bitutil"
	"github.com/apache/arrow-go/v18/arrow/float16"
	"github.com/cockroachdb/colenc/dtype"
	"github.com/cockroachdb/colenc/scalar"
	"github.com/cockroachdb/errors"
)

// Operator is a comparison operator.
type Operator uint8

const (
	OpEq Operator = iota
	OpNotEq
	OpLt
	OpLte
	OpGt
	OpGte
)

var opStrings = [...]string{OpEq: "=", OpNotEq: "!=", OpLt: "<", OpLte: "<=", OpGt: ">", OpGte: ">="}

// String implements fmt.Stringer.
func (op Operator) String() string { return opStrings[op] }

// SafeValue implements redact.SafeValue.
func (Operator) SafeValue() {}

// Swap returns the operator with its operands exchanged: a op b == b op.Swap() a.
func (op Operator) Swap() Operator {
	switch op {
	case OpLt:
		return OpGt
	case OpLte:
		return OpGte
	case OpGt:
		return OpLt
	case OpGte:
		return OpLte
	}
	return op
}

// Eval applies the operator to the result of a three-way comparison.
func (op Operator) Eval(c int) bool {
	switch op {
	case OpEq:
		return c == 0
	case OpNotEq:
		return c != 0
	case OpLt:
		return c < 0
	case OpLte:
		return c <= 0
	case OpGt:
		return c > 0
	default:
		return c >= 0
	}
}

// ParseOperator parses the textual form of an operator.
func ParseOperator(s string) (Operator, error) {
	for i, o := range opStrings {
		if o == s {
			return Operator(i), nil
		}
	}
	return 0, errors.Newf("unknown operator %q", s)
}

// compareResultDType returns the DType of comparing an array of dtype dt with
// the scalar s.
func compareResultDType(dt dtype.DType, s scalar.Scalar) dtype.DType {
	return dtype.Bool(dtype.Nullability(dt.IsNullable() || s.IsNull()))
}

// checkComparable returns an error unless values of dt can be ordered against
// s.
func checkComparable(dt dtype.DType, s scalar.Scalar) error {
	if !dt.EqualIgnoringNullability(s.DType()) && !(s.IsNull() && s.DType().Kind() == dtype.KindNull) {
		return TypeMismatchf("cannot compare %s with %s", dt, s.DType())
	}
	switch dt.Kind() {
	case dtype.KindStruct, dtype.KindList:
		return Unsupportedf("cannot compare %s values", dt)
	}
	return nil
}

// compareBitmapResult builds the bool array of a comparison from a bitmap of
// outcomes and the operand's validity.
func compareBitmapResult(out []byte, n int, v Validity, s scalar.Scalar) *Array {
	if s.IsNull() {
		return newBoolArray(NewBuffer(out), 0, n, ValidityAllInvalid())
	}
	return newBoolArray(NewBuffer(out), 0, n, v)
}

func comparePrimitive(a *Array, s scalar.Scalar, op Operator) *Array {
	n := a.length
	out := make([]byte, bitutil.BytesForBits(int64(n)))
	v := a.md.(primitiveMeta).validity
	if !s.IsNull() {
		pv, _ := s.AsPValue()
		switch a.dtype.PType() {
		case dtype.U8:
			compareValues(Values[uint8](a.buffers[0], n), scalar.As[uint8](pv), op, out)
		case dtype.U16:
			compareValues(Values[uint16](a.buffers[0], n), scalar.As[uint16](pv), op, out)
		case dtype.U32:
			compareValues(Values[uint32](a.buffers[0], n), scalar.As[uint32](pv), op, out)
		case dtype.U64:
			compareValues(Values[uint64](a.buffers[0], n), scalar.As[uint64](pv), op, out)
		case dtype.I8:
			compareValues(Values[int8](a.buffers[0], n), scalar.As[int8](pv), op, out)
		case dtype.I16:
			compareValues(Values[int16](a.buffers[0], n), scalar.As[int16](pv), op, out)
		case dtype.I32:
			compareValues(Values[int32](a.buffers[0], n), scalar.As[int32](pv), op, out)
		case dtype.I64:
			compareValues(Values[int64](a.buffers[0], n), scalar.As[int64](pv), op, out)
		case dtype.F16:
			raw := Uint16s(a.buffers[0], n)
			f := float32(pv.Float64())
			for i, r := range raw {
				if op.Eval(cmp.Compare(float16.FromBits(r).Float32(), f)) {
					bitutil.SetBit(out, i)
				}
			}
		case dtype.F32:
			compareValues(Values[float32](a.buffers[0], n), scalar.As[float32](pv), op, out)
		default:
			compareValues(Values[float64](a.buffers[0], n), pv.Float64(), op, out)
		}
	}
	return compareBitmapResult(out, n, v, s)
}

func compareValues[T dtype.Native](vals []T, x T, op Operator, out []byte) {
	for i, v := range vals {
		if op.Eval(cmp.Compare(v, x)) {
			bitutil.SetBit(out, i)
		}
	}
}

// compareCanonical compares every element of a canonical array with s by
// scalar comparison.
func compareCanonical(a *Array, s scalar.Scalar, op Operator) (*Array, error) {
	switch a.enc.ID() {
	case PrimitiveID:
		return comparePrimitive(a, s, op), nil
	case NullID:
		return newBoolArray(NewBuffer(make([]byte, bitutil.BytesForBits(int64(a.length)))),
			0, a.length, ValidityAllInvalid()), nil
	case VarBinID:
		n := a.length
		out := make([]byte, bitutil.BytesForBits(int64(n)))
		if !s.IsNull() {
			b, _ := s.AsBytes()
			for i := 0; i < n; i++ {
				if op.Eval(bytes.Compare(VarBinBytes(a, i), b)) {
					bitutil.SetBit(out, i)
				}
			}
		}
		return compareBitmapResult(out, n, canonicalValidity(a), s), nil
	case BoolID:
		n := a.length
		out := make([]byte, bitutil.BytesForBits(int64(n)))
		if !s.IsNull() {
			b, _ := s.AsBool()
			for i := 0; i < n; i++ {
				if op.Eval(cmpBool(boolValue(a, i), b)) {
					bitutil.SetBit(out, i)
				}
			}
		}
		return compareBitmapResult(out, n, canonicalValidity(a), s), nil
	case ExtensionID:
		st := scalar.Null(a.children[0].dtype)
		if !s.IsNull() {
			st = s.Storage()
		}
		return compareCanonical(a.children[0], st, op)
	}
	return nil, Unsupportedf("cannot compare %s arrays", a.dtype)
}

// trueCountOf returns the number of set bits of a canonical non-nullable bool
// array.
func trueCountOf(mask *Array) int {
	return boolTrueCount(mask)
}

// forEachSet calls fn with the index of each set bit of a canonical bool
// array, in increasing order.
func forEachSet(mask *Array, fn func(i int)) {
	buf, off := BoolBitmap(mask)
	n := mask.length
	i := 0
	// Skip whole zero bytes once aligned.
	for i < n {
		if (off+i)%8 == 0 && i+8 <= n && buf[(off+i)/8] == 0 {
			i += 8
			continue
		}
		if bitutil.BitIsSet(buf, off+i) {
			fn(i)
		}
		i++
	}
}

// SetIndices returns the indices of the set bits of a canonical bool array.
func SetIndices(mask *Array) []int {
	out := make([]int, 0, trueCountOf(mask))
	forEachSet(mask, func(i int) { out = append(out, i) })
	return out
}
