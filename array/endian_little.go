// Copyright 2025 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

// NB: this list of tags is taken from encoding/binary/native_endian_little.go
//go:build 386 || amd64 || amd64p32 || alpha || arm || arm64 || loong64 || mipsle || mips64le || mips64p32le || nios2 || ppc64le || riscv || riscv64 || sh || wasm

package array

import (
	"unsafe"

	"github.com/cockroachdb/colenc/dtype"
)

// BigEndian is true if the target platform is big endian.
const BigEndian = false

func decodeValues[T dtype.Native](b []byte, n int) []T {
	out := make([]T, n)
	copy(unsafe.Slice((*byte)(unsafe.Pointer(&out[0])), n*int(unsafe.Sizeof(out[0]))), b)
	return out
}

func encodeValues[T dtype.Native](vals []T) []byte {
	panic("unreachable")
}
