// Copyright 2025 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

// Package array implements the columnar array model: an immutable Array
// couples a logical DType with a physical Encoding that interprets the
// array's buffers, children and metadata. Compute operations (ScalarAt,
// Slice, Take, Filter, Compare, ...) dispatch on the encoding and fall back
// to the canonical form when an encoding has no specialized kernel.
//
// The canonical encodings are null, bool, primitive, struct, varbin and
// extension (wrapping a canonical storage array). Chunked, constant, sparse
// and varbinview are core, non-canonical encodings also defined here.
package array

import (
	"fmt"
	"strings"

	"github.com/cockroachdb/colenc/dtype"
	"github.com/cockroachdb/errors"
)

// Array is an immutable column of values. Arrays are safe for concurrent use;
// the only mutable state is the memoized Statistics, which is internally
// synchronized.
type Array struct {
	dtype    dtype.DType
	enc      Encoding
	length   int
	md       any
	buffers  []Buffer
	children []*Array
	stats    *Statistics
}

// New returns an array under the given encoding. It performs no validation
// and is intended for use by Encoding implementations, whose constructors are
// responsible for checking their invariants before calling New. The metadata
// value md is the encoding's decoded metadata; it is serialized by the
// encoding's MarshalMetadata.
func New(
	enc Encoding, dt dtype.DType, length int, md any, buffers []Buffer, children []*Array,
) *Array {
	a := &Array{
		dtype:    dt,
		enc:      enc,
		length:   length,
		md:       md,
		buffers:  buffers,
		children: children,
	}
	a.stats = newStatistics(a)
	return a
}

// DType returns the logical type of the array.
func (a *Array) DType() dtype.DType { return a.dtype }

// Len returns the number of elements.
func (a *Array) Len() int { return a.length }

// Encoding returns the encoding interpreting the array.
func (a *Array) Encoding() Encoding { return a.enc }

// EncodingID returns the identifier of the array's encoding.
func (a *Array) EncodingID() EncodingID { return a.enc.ID() }

// Is returns true if the array is under the encoding with the given ID.
func (a *Array) Is(id EncodingID) bool { return a.enc.ID() == id }

// Meta returns the decoded metadata value the encoding attached to the array.
func (a *Array) Meta() any { return a.md }

// Metadata returns the serialized metadata blob.
func (a *Array) Metadata() []byte { return a.enc.MarshalMetadata(a) }

// Buffers returns the array's own buffers, not including those of children.
func (a *Array) Buffers() []Buffer { return a.buffers }

// Buffer returns the i'th buffer.
func (a *Array) Buffer(i int) Buffer { return a.buffers[i] }

// Children returns the array's child arrays.
func (a *Array) Children() []*Array { return a.children }

// Child returns the i'th child.
func (a *Array) Child(i int) *Array { return a.children[i] }

// NumChildren returns the number of children.
func (a *Array) NumChildren() int { return len(a.children) }

// Statistics returns the statistics handle of the array.
func (a *Array) Statistics() *Statistics { return a.stats }

// NBytes returns the number of bytes needed to hold the array: its buffers,
// the buffers of all descendants and any scalar held in metadata.
func (a *Array) NBytes() int {
	if f, ok := a.enc.(NBytesFn); ok {
		return f.NBytes(a)
	}
	n := 0
	for _, b := range a.buffers {
		n += b.Len()
	}
	for _, c := range a.children {
		n += c.NBytes()
	}
	return n
}

// IsView returns true if any buffer of the array or its descendants borrows
// from a Region.
func (a *Array) IsView() bool {
	for _, b := range a.buffers {
		if b.IsView() {
			return true
		}
	}
	for _, c := range a.children {
		if c.IsView() {
			return true
		}
	}
	return false
}

// IsCanonical returns true if the array is in a canonical encoding.
func (a *Array) IsCanonical() bool {
	switch a.enc.ID() {
	case NullID, BoolID, PrimitiveID:
		return true
	case VarBinID:
		return a.children[0].Is(PrimitiveID)
	case StructID:
		for _, c := range a.children {
			if !c.IsCanonical() {
				return false
			}
		}
		return true
	case ExtensionID:
		return a.children[0].IsCanonical()
	default:
		return false
	}
}

// String returns a single line description of the array's encoding tree.
func (a *Array) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s(%s, len=%d", a.enc.ID(), a.dtype, a.length)
	for _, c := range a.children {
		sb.WriteString(", ")
		sb.WriteString(c.String())
	}
	sb.WriteString(")")
	return sb.String()
}

// Tree returns a multi-line, indented description of the array's encoding
// tree including sizes.
func (a *Array) Tree() string {
	var sb strings.Builder
	a.tree(&sb, 0)
	return sb.String()
}

func (a *Array) tree(sb *strings.Builder, depth int) {
	fmt.Fprintf(sb, "%s%s(%s) len=%d nbytes=%d\n",
		strings.Repeat("  ", depth), a.enc.ID(), a.dtype, a.length, a.NBytes())
	for _, c := range a.children {
		c.tree(sb, depth+1)
	}
}

// withChildren returns a copy of a with its children replaced. Statistics are
// not carried over.
func (a *Array) withChildren(children []*Array) *Array {
	return New(a.enc, a.dtype, a.length, a.md, a.buffers, children)
}

func mustBeOfEncoding(a *Array, id EncodingID) {
	if a.enc.ID() != id {
		panic(errors.AssertionFailedf("expected %s array, got %s", id, a.enc.ID()))
	}
}
