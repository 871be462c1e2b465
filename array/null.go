// Copyright 2025 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package array

import (
	"github.com/cockroachdb/colenc/dtype"
	"github.com/cockroachdb/colenc/scalar"
	"github.com/cockroachdb/errors"
)

// NullID identifies the canonical encoding of arrays of DType Null. It has no
// buffers, children or metadata.
const NullID EncodingID = "colenc.null"

type nullEncoding struct{}

// NullEncoding is the canonical encoding of null arrays.
var NullEncoding Encoding = nullEncoding{}

func init() { Register(NullEncoding) }

// NewNull returns an array of n nulls.
func NewNull(n int) *Array {
	return New(NullEncoding, dtype.Null(), n, nil, nil, nil)
}

func (nullEncoding) ID() EncodingID { return NullID }

func (nullEncoding) Canonicalize(a *Array) (*Array, error) { return a, nil }

func (nullEncoding) MarshalMetadata(*Array) []byte { return nil }

func (nullEncoding) Build(p Parts) (*Array, error) {
	if p.DType.Kind() != dtype.KindNull {
		return nil, TypeMismatchf("null array with dtype %s", p.DType)
	}
	if len(p.Buffers) != 0 || len(p.Children) != 0 || len(p.Metadata) != 0 {
		return nil, InvalidArgumentf("null array with %d buffers and %d children",
			errors.Safe(len(p.Buffers)), errors.Safe(len(p.Children)))
	}
	return NewNull(p.Len), nil
}

func (nullEncoding) ScalarAt(a *Array, _ int) (scalar.Scalar, error) {
	return scalar.Null(a.dtype), nil
}

func (nullEncoding) Slice(_ *Array, start, stop int) (*Array, error) {
	return NewNull(stop - start), nil
}

func (nullEncoding) Take(_ *Array, indices *Array) (*Array, error) {
	return NewNull(indices.Len()), nil
}

func (nullEncoding) Filter(_ *Array, mask *Array) (*Array, error) {
	return NewNull(trueCountOf(mask)), nil
}

func (nullEncoding) IsValid(*Array, int) bool { return false }

func (nullEncoding) LogicalValidity(*Array) (Validity, error) {
	return ValidityAllInvalid(), nil
}
