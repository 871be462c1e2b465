// Copyright 2025 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package array

import (
	"github.com/cockroachdb/colenc/scalar"
	"github.com/cockroachdb/errors"
)

var (
	// ErrOutOfBounds marks errors for an index or range outside an array.
	ErrOutOfBounds = errors.New("out of bounds")
	// ErrTypeMismatch marks errors for operands of incompatible DTypes.
	ErrTypeMismatch = scalar.ErrTypeMismatch
	// ErrInvalidArgument marks errors constructing an array from children,
	// buffers or metadata that violate the encoding's invariants.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrUnsupported marks operations that are undefined for a DType, such as
	// ordering struct values.
	ErrUnsupported = errors.New("unsupported")
)

// OutOfBoundsf returns a formatted error marked with ErrOutOfBounds.
func OutOfBoundsf(format string, args ...interface{}) error {
	return errors.Mark(errors.Newf(format, args...), ErrOutOfBounds)
}

// TypeMismatchf returns a formatted error marked with ErrTypeMismatch.
func TypeMismatchf(format string, args ...interface{}) error {
	return errors.Mark(errors.Newf(format, args...), ErrTypeMismatch)
}

// InvalidArgumentf returns a formatted error marked with ErrInvalidArgument.
func InvalidArgumentf(format string, args ...interface{}) error {
	return errors.Mark(errors.Newf(format, args...), ErrInvalidArgument)
}

// Unsupportedf returns a formatted error marked with ErrUnsupported.
func Unsupportedf(format string, args ...interface{}) error {
	return errors.Mark(errors.Newf(format, args...), ErrUnsupported)
}

func checkIndex(i, n int) error {
	if i < 0 || i >= n {
		return OutOfBoundsf("index %d out of bounds [0, %d)", errors.Safe(i), errors.Safe(n))
	}
	return nil
}

func checkRange(start, stop, n int) error {
	if start < 0 || stop > n || start > stop {
		return OutOfBoundsf("range [%d, %d) out of bounds [0, %d]",
			errors.Safe(start), errors.Safe(stop), errors.Safe(n))
	}
	return nil
}
