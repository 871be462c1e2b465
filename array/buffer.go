// Copyright 2025 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package array

import (
	"unsafe"

	"github.com/cockroachdb/colenc/dtype"
	"github.com/cockroachdb/errors"
)

// Region is an externally owned byte region, such as a mapped file or a
// decoded message, that view buffers borrow from. A Region and every Buffer
// viewing it must not be used after the owner releases the underlying memory.
type Region struct {
	data  []byte
	align int
}

// NewRegion returns a Region over data whose start is known to be aligned to
// align bytes. An align of zero is treated as one.
func NewRegion(data []byte, align int) *Region {
	if align <= 0 {
		align = 1
	}
	return &Region{data: data, align: align}
}

// Len returns the size of the region in bytes.
func (r *Region) Len() int { return len(r.data) }

// Align returns the declared alignment of the region's first byte.
func (r *Region) Align() int { return r.align }

// View returns a view buffer over bytes [off, off+n) of the region.
func (r *Region) View(off, n int) (Buffer, error) {
	if off < 0 || n < 0 || off+n > len(r.data) {
		return Buffer{}, OutOfBoundsf("view [%d, %d) outside region of %d bytes",
			errors.Safe(off), errors.Safe(off+n), errors.Safe(len(r.data)))
	}
	return Buffer{data: r.data[off : off+n : off+n], region: r}, nil
}

// Buffer is an immutable byte buffer that is either owned by the array that
// holds it or a zero-copy view into a Region. Both shapes expose the same
// bytes; only alignment guarantees differ.
type Buffer struct {
	data   []byte
	region *Region
}

// NewBuffer returns an owned buffer holding b. The caller must not modify b
// afterwards.
func NewBuffer(b []byte) Buffer { return Buffer{data: b} }

// Bytes returns the buffer contents. The result must not be modified.
func (b Buffer) Bytes() []byte { return b.data }

// Len returns the size of the buffer in bytes.
func (b Buffer) Len() int { return len(b.data) }

// IsView returns true if the buffer borrows its bytes from a Region.
func (b Buffer) IsView() bool { return b.region != nil }

// Slice returns bytes [off, off+n) of the buffer. A view stays a view of the
// same region.
func (b Buffer) Slice(off, n int) Buffer {
	return Buffer{data: b.data[off : off+n : off+n], region: b.region}
}

// Aligned returns true if the buffer's first byte is aligned to align bytes.
func (b Buffer) Aligned(align int) bool {
	if len(b.data) == 0 || align <= 1 {
		return true
	}
	return uintptr(unsafe.Pointer(&b.data[0]))%uintptr(align) == 0
}

// Values returns the first n fixed-width values of type T held by b. Owned
// buffers and aligned views are reinterpreted in place on little-endian
// platforms; misaligned views are copied.
func Values[T dtype.Native](b Buffer, n int) []T {
	w := int(unsafe.Sizeof(T(0)))
	if n*w > len(b.data) {
		panic(errors.AssertionFailedf("buffer of %d bytes holds fewer than %d values of width %d",
			len(b.data), n, w))
	}
	if n == 0 {
		return nil
	}
	if !BigEndian && b.Aligned(w) {
		return unsafe.Slice((*T)(unsafe.Pointer(&b.data[0])), n)
	}
	return decodeValues[T](b.data, n)
}

// Uint16s returns the first n uint16 values held by b. It is used to read f16
// buffers, which have no native Go type.
func Uint16s(b Buffer, n int) []uint16 { return Values[uint16](b, n) }

// BufferOf returns an owned buffer holding the little-endian encoding of vals.
func BufferOf[T dtype.Native](vals []T) Buffer {
	if len(vals) == 0 {
		return Buffer{}
	}
	w := int(unsafe.Sizeof(vals[0]))
	if BigEndian {
		return Buffer{data: encodeValues(vals)}
	}
	src := unsafe.Slice((*byte)(unsafe.Pointer(&vals[0])), len(vals)*w)
	// Copy so the buffer is independent of the caller's slice and 8-byte
	// aligned.
	words := make([]uint64, (len(src)+7)/8)
	dst := unsafe.Slice((*byte)(unsafe.Pointer(&words[0])), len(src))
	copy(dst, src)
	return Buffer{data: dst}
}

// WrapValues returns an owned buffer aliasing vals without copying. The
// caller must not modify vals afterwards.
func WrapValues[T dtype.Native](vals []T) Buffer {
	if len(vals) == 0 {
		return Buffer{}
	}
	if BigEndian {
		return Buffer{data: encodeValues(vals)}
	}
	w := int(unsafe.Sizeof(vals[0]))
	return Buffer{data: unsafe.Slice((*byte)(unsafe.Pointer(&vals[0])), len(vals)*w)}
}

// alignedBytes allocates n zeroed bytes aligned to 8 bytes.
func alignedBytes(n int) []byte {
	if n == 0 {
		return nil
	}
	words := make([]uint64, (n+7)/8)
	return unsafe.Slice((*byte)(unsafe.Pointer(&words[0])), n)
}
