// Copyright 2025 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package array

import (
	"github.com/cockroachdb/colenc/dtype"
	"github.com/cockroachdb/colenc/scalar"
	"github.com/cockroachdb/errors"
)

// Cast converts a to DType dt. Supported casts change nullability (dropping
// it fails if nulls are present), convert between primitive types (failing on
// values that are not representable), exchange utf8 and binary, and wrap or
// unwrap extension storage. Other casts return an error marked with
// ErrTypeMismatch.
func Cast(a *Array, dt dtype.DType) (*Array, error) {
	if a.dtype.Equal(dt) {
		return a, nil
	}
	if a.Is(ConstantID) {
		s, err := ConstantScalar(a).Cast(dt)
		if err != nil {
			return nil, wrapCastErr(err)
		}
		return NewConstant(s, a.length), nil
	}
	switch {
	case a.dtype.IsExtension() && !dt.IsExtension():
		c, err := Canonicalize(a)
		if err != nil {
			return nil, err
		}
		return Cast(ExtensionStorage(c), dt)
	case dt.IsExtension() && !a.dtype.IsExtension():
		st, err := Cast(a, dt.Ext().Storage)
		if err != nil {
			return nil, err
		}
		return NewExtension(dt, st)
	}
	c, err := Canonicalize(a)
	if err != nil {
		return nil, err
	}
	if c.dtype.EqualIgnoringNullability(dt) {
		return withNullability(c, dt.Nullability())
	}
	switch {
	case c.dtype.IsPrimitive() && dt.IsPrimitive():
		return castPrimitive(c, dt)
	case c.dtype.IsBinaryLike() && dt.IsBinaryLike():
		v, err := canonicalValidity(c).WithNullability(dt.Nullability(), c.length)
		if err != nil {
			return nil, err
		}
		return newVarBinArray(dt, c.children[0], c.buffers[0], v), nil
	case c.dtype.IsExtension() && dt.IsExtension() && c.dtype.Ext().ID == dt.Ext().ID:
		st, err := Cast(ExtensionStorage(c), dt.Ext().Storage)
		if err != nil {
			return nil, err
		}
		return NewExtension(dt, st)
	}
	return nil, TypeMismatchf("cannot cast %s to %s", a.dtype, dt)
}

func wrapCastErr(err error) error {
	if errors.Is(err, ErrTypeMismatch) {
		return err
	}
	return errors.Mark(err, ErrInvalidArgument)
}

// withNullability returns canonical array c with its nullability replaced.
func withNullability(c *Array, n dtype.Nullability) (*Array, error) {
	if c.Is(NullID) {
		if n == dtype.NonNullable && c.length > 0 {
			return nil, InvalidArgumentf("cannot drop nullability of array with nulls")
		}
		return c, nil
	}
	if c.Is(ExtensionID) {
		st, err := withNullability(c.children[0], n)
		if err != nil {
			return nil, err
		}
		return NewExtension(c.dtype.WithNullability(n), st)
	}
	v, err := canonicalValidity(c).WithNullability(n, c.length)
	if err != nil {
		return nil, err
	}
	switch m := c.md.(type) {
	case boolMeta:
		return newBoolArray(c.buffers[0], m.offset, c.length, v), nil
	case primitiveMeta:
		return newPrimitiveArray(c.dtype.PType(), c.buffers[0], c.length, v), nil
	case varBinMeta:
		return newVarBinArray(c.dtype.WithNullability(n), c.children[0], c.buffers[0], v), nil
	case structMeta:
		return newStructArray(c.dtype.WithNullability(n), StructFields(c), c.length, v), nil
	}
	panic(errors.AssertionFailedf("withNullability on %s", c.enc.ID()))
}

func castPrimitive(c *Array, dt dtype.DType) (*Array, error) {
	v, err := canonicalValidity(c).WithNullability(dt.Nullability(), c.length)
	if err != nil {
		return nil, err
	}
	to := dt.PType()
	w := to.ByteWidth()
	out := alignedBytes(c.length * w)
	for i := 0; i < c.length; i++ {
		if !v.IsValid(i) {
			continue
		}
		p := scalar.PValueFromBits(c.dtype.PType(), primitiveRaw(c, i))
		cp, err := p.Cast(to)
		if err != nil {
			return nil, wrapCastErr(err)
		}
		putRaw(out[i*w:], w, cp.StorageBits())
	}
	return newPrimitiveArray(to, NewBuffer(out), c.length, v), nil
}
