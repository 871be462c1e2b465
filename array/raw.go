// Copyright 2025 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package array

import (
	"github.com/cockroachdb/colenc/dtype"
	"github.com/cockroachdb/colenc/internal/metabuf"
)

// This file exports the raw value and validity plumbing used by the encodings
// living outside this package.

// RawValues returns the storage bits of every element of a canonical
// primitive array, zero-extended to 64 bits. Null elements hold unspecified
// values.
func RawValues(a *Array) []uint64 {
	mustBeOfEncoding(a, PrimitiveID)
	out := make([]uint64, a.length)
	forEachRawUint(a, func(i int, u uint64) { out[i] = u })
	return out
}

// PrimitiveFromRaw returns a primitive array of type p whose i'th element has
// the storage bits raw[i] truncated to the width of p.
func PrimitiveFromRaw(p dtype.PType, raw []uint64, v Validity) *Array {
	n := len(raw)
	w := p.ByteWidth()
	if w == 8 {
		return newPrimitiveArray(p, WrapValues(raw), n, v)
	}
	buf := alignedBytes(n * w)
	for i, r := range raw {
		putRaw(buf[i*w:], w, r)
	}
	return newPrimitiveArray(p, NewBuffer(buf), n, v)
}

// WriteValidity appends the representation kind of v to w. The validity array
// itself, if any, is carried as the last child; see Validity.Children.
func WriteValidity(w *metabuf.Writer, v Validity) { v.write(w) }

// ReadValidity decodes a validity written by WriteValidity. If the kind names
// an array, it is the last element of children.
func ReadValidity(r *metabuf.Reader, children []*Array, length int) (Validity, error) {
	return readValidity(r, children, length)
}

// Children returns the children an array appends to carry v: the validity
// array for ArrayValidity, otherwise none.
func (v Validity) Children() []*Array { return v.children() }

// CheckValidity returns an error if v cannot describe an array of the given
// nullability and length.
func CheckValidity(v Validity, n dtype.Nullability, length int) error {
	return checkValidity(v, n, length)
}
