// Copyright 2025 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package scalar

import (
	"bytes"
	"cmp"

	"github.com/cockroachdb/colenc/dtype"
	"github.com/cockroachdb/errors"
)

// ErrTypeMismatch is returned when an operation is given values of
// incompatible DTypes.
var ErrTypeMismatch = errors.New("type mismatch")

// Equal returns true if both scalars hold the same logical value. The
// nullability of the top-level DTypes is ignored; two nulls of the same DType
// are equal.
func (s Scalar) Equal(o Scalar) bool {
	if !s.dtype.EqualIgnoringNullability(o.dtype) {
		return false
	}
	if s.IsNull() || o.IsNull() {
		return s.IsNull() && o.IsNull()
	}
	switch s.kind {
	case kindBool:
		return s.b == o.b
	case kindPrimitive:
		return s.p.Equal(o.p)
	case kindBuffer:
		return bytes.Equal(s.buf, o.buf)
	case kindList, kindExtension:
		if len(s.elems) != len(o.elems) {
			return false
		}
		for i := range s.elems {
			if !s.elems[i].Equal(o.elems[i]) {
				return false
			}
		}
		return true
	}
	return true
}

// Compare orders two scalars of the same DType (ignoring nullability). Nulls
// sort after every non-null value. Comparing scalars of different DTypes
// returns an error marked with ErrTypeMismatch.
func (s Scalar) Compare(o Scalar) (int, error) {
	if !s.dtype.EqualIgnoringNullability(o.dtype) {
		return 0, errors.Mark(
			errors.Newf("cannot compare %s with %s", s.dtype, o.dtype), ErrTypeMismatch)
	}
	return s.compare(o), nil
}

func (s Scalar) compare(o Scalar) int {
	switch {
	case s.IsNull() && o.IsNull():
		return 0
	case s.IsNull():
		return +1
	case o.IsNull():
		return -1
	}
	switch s.kind {
	case kindBool:
		switch {
		case s.b == o.b:
			return 0
		case !s.b:
			return -1
		default:
			return +1
		}
	case kindPrimitive:
		return s.p.Compare(o.p)
	case kindBuffer:
		return bytes.Compare(s.buf, o.buf)
	case kindList, kindExtension:
		for i := 0; i < min(len(s.elems), len(o.elems)); i++ {
			if c := s.elems[i].compare(o.elems[i]); c != 0 {
				return c
			}
		}
		return cmp.Compare(len(s.elems), len(o.elems))
	}
	return 0
}

// Less is a convenience wrapper around Compare that treats mismatched DTypes
// as unordered.
func (s Scalar) Less(o Scalar) bool {
	c, err := s.Compare(o)
	return err == nil && c < 0
}

// Cast converts the scalar to the target DType. Null scalars cast to the null
// of the target DType, which must be nullable. Numeric casts fail when the
// value is not representable. Any cast between different kinds other than
// utf8 <-> binary and extension <-> storage is a type mismatch.
func (s Scalar) Cast(to dtype.DType) (Scalar, error) {
	if s.IsNull() {
		if !to.IsNullable() {
			return Scalar{}, errors.Newf("cannot cast null to non-nullable %s", to)
		}
		return Null(to), nil
	}
	if s.dtype.Equal(to) {
		return s, nil
	}
	switch {
	case s.dtype.IsExtension() && !to.IsExtension():
		return s.elems[0].Cast(to)
	case to.IsExtension() && !s.dtype.IsExtension():
		st, err := s.Cast(to.Ext().Storage)
		if err != nil {
			return Scalar{}, err
		}
		return Extension(to, st), nil
	}
	mismatch := func() (Scalar, error) {
		return Scalar{}, errors.Mark(
			errors.Newf("cannot cast %s to %s", s.dtype, to), ErrTypeMismatch)
	}
	switch s.kind {
	case kindBool:
		if !to.IsBool() {
			return mismatch()
		}
		return Bool(s.b, to.Nullability()), nil
	case kindPrimitive:
		if !to.IsPrimitive() {
			return mismatch()
		}
		v, err := s.p.Cast(to.PType())
		if err != nil {
			return Scalar{}, err
		}
		return Primitive(v, to.Nullability()), nil
	case kindBuffer:
		if !to.IsBinaryLike() {
			return mismatch()
		}
		return Scalar{dtype: to, kind: kindBuffer, buf: s.buf}, nil
	case kindList:
		if s.dtype.Kind() != to.Kind() {
			return mismatch()
		}
		if to.IsStruct() {
			if to.NumFields() != len(s.elems) {
				return mismatch()
			}
			fields := make([]Scalar, len(s.elems))
			for i := range s.elems {
				f, err := s.elems[i].Cast(to.Field(i))
				if err != nil {
					return Scalar{}, err
				}
				fields[i] = f
			}
			return Scalar{dtype: to, kind: kindList, elems: fields}, nil
		}
		elems := make([]Scalar, len(s.elems))
		for i := range s.elems {
			e, err := s.elems[i].Cast(to.Elem())
			if err != nil {
				return Scalar{}, err
			}
			elems[i] = e
		}
		return Scalar{dtype: to, kind: kindList, elems: elems}, nil
	case kindExtension:
		if !to.IsExtension() || to.Ext().ID != s.dtype.Ext().ID {
			return mismatch()
		}
		st, err := s.elems[0].Cast(to.Ext().Storage)
		if err != nil {
			return Scalar{}, err
		}
		return Extension(to, st), nil
	}
	return mismatch()
}
