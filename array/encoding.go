// Copyright 2025 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package array

import (
	"sort"
	"sync"

	"github.com/cockroachdb/colenc/scalar"
	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/redact"
)

// EncodingID names a physical layout, e.g. "colenc.primitive" or
// "fastlanes.bitpacked".
type EncodingID string

// SafeValue implements redact.SafeValue.
func (EncodingID) SafeValue() {}

var _ redact.SafeValue = EncodingID("")

// Encoding interprets the buffers, children and metadata of arrays that carry
// its ID. Every encoding can canonicalize and can rebuild an array from its
// decomposed Parts. All other compute operations are optional: an encoding
// opts into one by implementing the corresponding *Fn interface, and the
// package level operation falls back to canonicalizing the array when the
// encoding does not.
//
// Kernels are only invoked with arguments that have already been validated
// by the dispatching operation: indices are in bounds, ranges are well formed
// and masks have the array's length.
type Encoding interface {
	// ID returns the identifier of the encoding.
	ID() EncodingID
	// Canonicalize returns an equivalent array in one of the canonical
	// encodings.
	Canonicalize(a *Array) (*Array, error)
	// MarshalMetadata returns the serialized metadata blob of a.
	MarshalMetadata(a *Array) []byte
	// Build validates parts and returns the array they describe.
	Build(p Parts) (*Array, error)
}

// ScalarAtFn is implemented by encodings with direct random access.
type ScalarAtFn interface {
	ScalarAt(a *Array, i int) (scalar.Scalar, error)
}

// SliceFn is implemented by encodings that can slice without decoding.
type SliceFn interface {
	Slice(a *Array, start, stop int) (*Array, error)
}

// TakeFn is implemented by encodings that can gather by index without
// decoding. The indices array is a canonical, non-empty integer array whose
// non-null values are in bounds.
type TakeFn interface {
	Take(a *Array, indices *Array) (*Array, error)
}

// FilterFn is implemented by encodings that can filter without decoding. The
// mask is a canonical, non-nullable bool array of the same length as a.
type FilterFn interface {
	Filter(a *Array, mask *Array) (*Array, error)
}

// CompareFn is implemented by encodings that can compare every element with a
// scalar without decoding. A kernel returns a nil array to decline, in which
// case the comparison is evaluated on the canonical form.
type CompareFn interface {
	CompareScalar(a *Array, s scalar.Scalar, op Operator) (*Array, error)
}

// SearchSortedFn is implemented by encodings that can binary search sorted
// contents without decoding.
type SearchSortedFn interface {
	SearchSorted(a *Array, v scalar.Scalar, side SearchSide) (int, error)
}

// StatsFn is implemented by encodings that can derive statistics from their
// metadata or children. Returning ok=false falls back to computing the
// statistic over the canonical form.
type StatsFn interface {
	ComputeStat(a *Array, s Stat) (v scalar.Scalar, ok bool)
}

// ValidityFn is implemented by encodings that can report their validity
// without canonicalizing.
type ValidityFn interface {
	IsValid(a *Array, i int) bool
	LogicalValidity(a *Array) (Validity, error)
}

// NBytesFn is implemented by encodings whose size is not the sum of their
// buffers and children, such as those holding scalars in metadata.
type NBytesFn interface {
	NBytes(a *Array) int
}

var registry struct {
	sync.RWMutex
	m map[EncodingID]Encoding
}

// Register adds an encoding to the registry used by Rebuild. Registering the
// same ID twice panics.
func Register(e Encoding) {
	registry.Lock()
	defer registry.Unlock()
	if registry.m == nil {
		registry.m = make(map[EncodingID]Encoding)
	}
	if _, ok := registry.m[e.ID()]; ok {
		panic(errors.AssertionFailedf("encoding %s registered twice", e.ID()))
	}
	registry.m[e.ID()] = e
}

// Lookup returns the registered encoding with the given ID.
func Lookup(id EncodingID) (Encoding, bool) {
	registry.RLock()
	defer registry.RUnlock()
	e, ok := registry.m[id]
	return e, ok
}

// Registered returns the IDs of all registered encodings in sorted order.
func Registered() []EncodingID {
	registry.RLock()
	defer registry.RUnlock()
	ids := make([]EncodingID, 0, len(registry.m))
	for id := range registry.m {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
