// Copyright 2025 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package dtype

// Native is the set of Go types backing the primitive types. F16 values have
// no native Go type and are stored as their uint16 bit patterns.
type Native interface {
	uint8 | uint16 | uint32 | uint64 | int8 | int16 | int32 | int64 | float32 | float64
}

// NativeInt is the subset of Native holding integers.
type NativeInt interface {
	uint8 | uint16 | uint32 | uint64 | int8 | int16 | int32 | int64
}

// NativeUint is the subset of Native holding unsigned integers.
type NativeUint interface {
	uint8 | uint16 | uint32 | uint64
}

// NativeFloat is the subset of Native holding floats.
type NativeFloat interface {
	float32 | float64
}

// PTypeOf returns the primitive type represented by T.
func PTypeOf[T Native]() PType {
	var z T
	switch any(z).(type) {
	case uint8:
		return U8
	case uint16:
		return U16
	case uint32:
		return U32
	case uint64:
		return U64
	case int8:
		return I8
	case int16:
		return I16
	case int32:
		return I32
	case int64:
		return I64
	case float32:
		return F32
	default:
		return F64
	}
}
