// Copyright 2025 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package array

import (
	"github.com/apache/arrow-go/v18/arrow/bitutil"
	"github.com/cockroachdb/colenc/dtype"
	"github.com/cockroachdb/colenc/internal/metabuf"
	"github.com/cockroachdb/errors"
)

// ValidityKind enumerates the representations of an array's validity.
type ValidityKind uint8

const (
	// NonNullableValidity is the validity of arrays whose DType is not
	// nullable.
	NonNullableValidity ValidityKind = iota
	// AllValid is the validity of a nullable array without nulls.
	AllValid
	// AllInvalid is the validity of a nullable array of nulls only.
	AllInvalid
	// ArrayValidity holds a non-nullable bool array with one entry per element;
	// true means valid.
	ArrayValidity
)

// Validity describes which elements of an array are non-null.
type Validity struct {
	kind ValidityKind
	arr  *Array
}

// ValidityNonNullable returns the validity of a non-nullable array.
func ValidityNonNullable() Validity { return Validity{kind: NonNullableValidity} }

// ValidityAllValid returns the validity of a nullable array without nulls.
func ValidityAllValid() Validity { return Validity{kind: AllValid} }

// ValidityAllInvalid returns the validity of an array of nulls.
func ValidityAllInvalid() Validity { return Validity{kind: AllInvalid} }

// ValidityFromArray returns a validity backed by a non-nullable bool array.
func ValidityFromArray(a *Array) Validity { return Validity{kind: ArrayValidity, arr: a} }

// ValidityFromBools returns a validity where valid[i] reports whether the i'th
// element is non-null.
func ValidityFromBools(valid []bool) Validity {
	return ValidityFromArray(BoolFromSlice(valid, dtype.NonNullable))
}

// ValidityFor returns the default validity for a DType: all valid when
// nullable.
func ValidityFor(n dtype.Nullability) Validity {
	if n == dtype.Nullable {
		return ValidityAllValid()
	}
	return ValidityNonNullable()
}

// Kind returns the representation of the validity.
func (v Validity) Kind() ValidityKind { return v.kind }

// Array returns the bool array of an ArrayValidity, or nil.
func (v Validity) Array() *Array { return v.arr }

// Nullability returns the nullability implied by the validity.
func (v Validity) Nullability() dtype.Nullability {
	return dtype.Nullability(v.kind != NonNullableValidity)
}

// IsValid reports whether element i is non-null.
func (v Validity) IsValid(i int) bool {
	switch v.kind {
	case NonNullableValidity, AllValid:
		return true
	case AllInvalid:
		return false
	default:
		return boolValue(v.arr, i)
	}
}

// NullCount returns the number of null elements among n.
func (v Validity) NullCount(n int) int {
	switch v.kind {
	case NonNullableValidity, AllValid:
		return 0
	case AllInvalid:
		return n
	default:
		return n - boolTrueCount(v.arr)
	}
}

// Slice returns the validity of elements [start, stop).
func (v Validity) Slice(start, stop int) Validity {
	if v.kind != ArrayValidity {
		return v
	}
	return ValidityFromArray(sliceBool(v.arr, start, stop))
}

// Take returns the validity of the gathered elements. Null indices produce
// invalid elements.
func (v Validity) Take(indices *Array) Validity {
	idxValidity := canonicalValidity(indices)
	if v.kind == NonNullableValidity && idxValidity.kind == NonNullableValidity {
		return v
	}
	if idxValidity.kind == NonNullableValidity || idxValidity.kind == AllValid {
		switch v.kind {
		case NonNullableValidity, AllValid:
			return ValidityAllValid()
		case AllInvalid:
			return v
		}
	}
	n := indices.Len()
	idx := IndicesOf(indices)
	out := make([]byte, bitutil.BytesForBits(int64(n)))
	for i := 0; i < n; i++ {
		if idxValidity.IsValid(i) && v.IsValid(int(idx[i])) {
			bitutil.SetBit(out, i)
		}
	}
	return ValidityFromArray(newBoolArray(NewBuffer(out), 0, n, ValidityNonNullable()))
}

// Filter returns the validity of the elements selected by mask.
func (v Validity) Filter(mask *Array) Validity {
	if v.kind != ArrayValidity {
		return v
	}
	return ValidityFromArray(filterBool(v.arr, mask))
}

// Bitmap returns the validity of n elements as a bitmap with one bit set per
// valid element.
func (v Validity) Bitmap(n int) []byte {
	out := make([]byte, bitutil.BytesForBits(int64(n)))
	switch v.kind {
	case NonNullableValidity, AllValid:
		for i := 0; i < n; i++ {
			bitutil.SetBit(out, i)
		}
	case ArrayValidity:
		m := v.arr.md.(boolMeta)
		bitutil.CopyBitmap(v.arr.buffers[0].Bytes(), m.offset, n, out, 0)
	}
	return out
}

// WithNullability converts the validity to the given nullability. Dropping
// nullability from a validity with nulls is an error.
func (v Validity) WithNullability(n dtype.Nullability, length int) (Validity, error) {
	if n == dtype.Nullable {
		if v.kind == NonNullableValidity {
			return ValidityAllValid(), nil
		}
		return v, nil
	}
	if v.NullCount(length) > 0 {
		return Validity{}, InvalidArgumentf("cannot drop nullability of array with nulls")
	}
	return ValidityNonNullable(), nil
}

// children returns the children a canonical array appends for the validity.
func (v Validity) children() []*Array {
	if v.kind == ArrayValidity {
		return []*Array{v.arr}
	}
	return nil
}

func (v Validity) write(w *metabuf.Writer) { w.Byte(byte(v.kind)) }

// readValidity decodes a validity written by write. If the kind names an
// array, the array is the last element of children.
func readValidity(r *metabuf.Reader, children []*Array, length int) (Validity, error) {
	k := ValidityKind(r.Byte())
	if err := r.Err(); err != nil {
		return Validity{}, err
	}
	switch k {
	case NonNullableValidity, AllValid, AllInvalid:
		return Validity{kind: k}, nil
	case ArrayValidity:
		if len(children) == 0 {
			return Validity{}, InvalidArgumentf("validity array missing")
		}
		va := children[len(children)-1]
		if err := checkValidityArray(va, length); err != nil {
			return Validity{}, err
		}
		return ValidityFromArray(va), nil
	}
	return Validity{}, InvalidArgumentf("unknown validity kind %d", errors.Safe(k))
}

func checkValidityArray(va *Array, length int) error {
	if !va.DType().Equal(dtype.Bool(dtype.NonNullable)) {
		return InvalidArgumentf("validity must be a non-nullable bool array, got %s", va.DType())
	}
	if va.Len() != length {
		return InvalidArgumentf("validity of length %d for array of length %d",
			errors.Safe(va.Len()), errors.Safe(length))
	}
	return nil
}

// checkValidity validates v against the nullability of dt and length.
func checkValidity(v Validity, n dtype.Nullability, length int) error {
	if (v.kind == NonNullableValidity) != (n == dtype.NonNullable) {
		return InvalidArgumentf("validity kind %d does not match nullability", errors.Safe(v.kind))
	}
	if v.kind == ArrayValidity {
		if err := checkValidityArray(v.arr, length); err != nil {
			return err
		}
		if !v.arr.Is(BoolID) {
			return InvalidArgumentf("validity must be canonical bool, got %s", v.arr.EncodingID())
		}
	}
	return nil
}

// IsValid reports whether element i of a is non-null.
func IsValid(a *Array, i int) (bool, error) {
	if err := checkIndex(i, a.Len()); err != nil {
		return false, err
	}
	if !a.dtype.IsNullable() {
		return true, nil
	}
	if f, ok := a.enc.(ValidityFn); ok {
		return f.IsValid(a, i), nil
	}
	c, err := Canonicalize(a)
	if err != nil {
		return false, err
	}
	return canonicalIsValid(c, i), nil
}

// LogicalValidity returns the validity of a, canonicalizing it if the encoding
// cannot report validity directly. Array validities are canonical bool arrays.
func LogicalValidity(a *Array) (Validity, error) {
	if !a.dtype.IsNullable() {
		return ValidityNonNullable(), nil
	}
	if f, ok := a.enc.(ValidityFn); ok {
		return f.LogicalValidity(a)
	}
	c, err := Canonicalize(a)
	if err != nil {
		return Validity{}, err
	}
	return canonicalValidity(c), nil
}

// canonicalValidity returns the validity of a canonical array.
func canonicalValidity(a *Array) Validity {
	switch m := a.md.(type) {
	case boolMeta:
		return m.validity
	case primitiveMeta:
		return m.validity
	case structMeta:
		return m.validity
	case varBinMeta:
		return m.validity
	}
	switch a.enc.ID() {
	case NullID:
		return ValidityAllInvalid()
	case ExtensionID:
		return canonicalValidity(a.children[0])
	}
	panic(errors.AssertionFailedf("validity of non-canonical %s", a.enc.ID()))
}

func canonicalIsValid(a *Array, i int) bool {
	return canonicalValidity(a).IsValid(i)
}
