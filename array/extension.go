// Copyright 2025 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package array

import (
	"github.com/cockroachdb/colenc/dtype"
	"github.com/cockroachdb/colenc/scalar"
	"github.com/cockroachdb/errors"
)

// ExtensionID identifies the extension encoding: a single storage child whose
// values are reinterpreted under an extension DType.
const ExtensionID EncodingID = "colenc.ext"

type extensionEncoding struct{}

// ExtensionEncoding is the extension encoding.
var ExtensionEncoding Encoding = extensionEncoding{}

func init() { Register(ExtensionEncoding) }

// NewExtension returns an extension array of DType dt over storage, which
// must have dt's storage DType.
func NewExtension(dt dtype.DType, storage *Array) (*Array, error) {
	if !dt.IsExtension() {
		return nil, TypeMismatchf("extension array with dtype %s", dt)
	}
	if !storage.DType().Equal(dt.Ext().Storage) {
		return nil, TypeMismatchf("extension %s over storage %s", dt, storage.DType())
	}
	return New(ExtensionEncoding, dt, storage.Len(), nil, nil, []*Array{storage}), nil
}

// ExtensionStorage returns the storage array of an extension array.
func ExtensionStorage(a *Array) *Array {
	mustBeOfEncoding(a, ExtensionID)
	return a.children[0]
}

func (extensionEncoding) ID() EncodingID { return ExtensionID }

func (extensionEncoding) Canonicalize(a *Array) (*Array, error) {
	st := a.children[0]
	c, err := Canonicalize(st)
	if err != nil {
		return nil, err
	}
	if c == st {
		return a, nil
	}
	return NewExtension(a.dtype, c)
}

func (extensionEncoding) MarshalMetadata(*Array) []byte { return nil }

func (extensionEncoding) Build(p Parts) (*Array, error) {
	if len(p.Buffers) != 0 || len(p.Children) != 1 || len(p.Metadata) != 0 {
		return nil, InvalidArgumentf("extension array with %d buffers and %d children",
			errors.Safe(len(p.Buffers)), errors.Safe(len(p.Children)))
	}
	if p.Children[0].Len() != p.Len {
		return nil, InvalidArgumentf("extension storage of length %d, expected %d",
			errors.Safe(p.Children[0].Len()), errors.Safe(p.Len))
	}
	return NewExtension(p.DType, p.Children[0])
}

func (extensionEncoding) ScalarAt(a *Array, i int) (scalar.Scalar, error) {
	s, err := ScalarAt(a.children[0], i)
	if err != nil {
		return scalar.Scalar{}, err
	}
	return scalar.Extension(a.dtype, s), nil
}

func (extensionEncoding) Slice(a *Array, start, stop int) (*Array, error) {
	s, err := Slice(a.children[0], start, stop)
	if err != nil {
		return nil, err
	}
	return NewExtension(a.dtype, s)
}

func (extensionEncoding) Take(a *Array, indices *Array) (*Array, error) {
	t, err := Take(a.children[0], indices)
	if err != nil {
		return nil, err
	}
	return NewExtension(a.dtype.WithNullability(t.DType().Nullability()), t)
}

func (extensionEncoding) Filter(a *Array, mask *Array) (*Array, error) {
	f, err := Filter(a.children[0], mask)
	if err != nil {
		return nil, err
	}
	return NewExtension(a.dtype, f)
}

func (extensionEncoding) CompareScalar(a *Array, s scalar.Scalar, op Operator) (*Array, error) {
	st := scalar.Null(a.children[0].dtype)
	if !s.IsNull() {
		st = s.Storage()
	}
	return CompareScalar(a.children[0], st, op)
}

func (extensionEncoding) IsValid(a *Array, i int) bool {
	v, err := IsValid(a.children[0], i)
	return err == nil && v
}

func (extensionEncoding) LogicalValidity(a *Array) (Validity, error) {
	return LogicalValidity(a.children[0])
}
