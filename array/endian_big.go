// Copyright 2025 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

// NB: this list of tags is taken from encoding/binary/native_endian_big.go
//go:build armbe || arm64be || m68k || mips || mips64 || mips64p32 || ppc || ppc64 || s390 || s390x || shbe || sparc || sparc64

package array

import (
	"encoding/binary"
	"unsafe"

	"github.com/cockroachdb/colenc/dtype"
)

// BigEndian is true if the target platform is big endian.
const BigEndian = true

func decodeValues[T dtype.Native](b []byte, n int) []T {
	out := make([]T, n)
	w := int(unsafe.Sizeof(out[0]))
	for i := range out {
		var v uint64
		switch w {
		case 1:
			v = uint64(b[i])
		case 2:
			v = uint64(binary.LittleEndian.Uint16(b[i*2:]))
		case 4:
			v = uint64(binary.LittleEndian.Uint32(b[i*4:]))
		default:
			v = binary.LittleEndian.Uint64(b[i*8:])
		}
		out[i] = *(*T)(unsafe.Add(unsafe.Pointer(&v), 8-w))
	}
	return out
}

func encodeValues[T dtype.Native](vals []T) []byte {
	w := int(unsafe.Sizeof(vals[0]))
	out := alignedBytes(len(vals) * w)
	for i := range vals {
		var v uint64
		*(*T)(unsafe.Add(unsafe.Pointer(&v), 8-w)) = vals[i]
		switch w {
		case 1:
			out[i] = byte(v)
		case 2:
			binary.LittleEndian.PutUint16(out[i*2:], uint16(v))
		case 4:
			binary.LittleEndian.PutUint32(out[i*4:], uint32(v))
		default:
			binary.LittleEndian.PutUint64(out[i*8:], v)
		}
	}
	return out
}
