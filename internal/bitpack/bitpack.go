// Copyright 2025 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

// Package bitpack packs unsigned integers into a dense little-endian stream of
// fixed-width bit fields stored in 64-bit words.
//
// Value i occupies bits [i*w, (i+1)*w) of the stream, where bit b of the
// stream is bit b%64 of word b/64. A width of zero stores nothing; every value
// unpacks as zero.
package bitpack

import (
	"math/bits"

	"github.com/cockroachdb/colenc/internal/invariants"
)

// Words returns the number of 64-bit words needed to pack n values of the
// given width.
func Words(n, width int) int {
	return (n*width + 63) / 64
}

// Width returns the number of bits needed to represent v.
func Width(v uint64) int { return bits.Len64(v) }

func mask(width int) uint64 {
	if width == 64 {
		return ^uint64(0)
	}
	return 1<<uint(width) - 1
}

// Pack packs vals into a new slice of words. Bits of each value above width
// are discarded.
func Pack(vals []uint64, width int) []uint64 {
	words := make([]uint64, Words(len(vals), width))
	if width == 0 {
		return words
	}
	m := mask(width)
	for i, v := range vals {
		if invariants.Enabled && v&^m != 0 {
			panic("bitpack: value wider than width")
		}
		Set(words, width, i, v&m)
	}
	return words
}

// Set stores v at position i. The field must be zero.
func Set(words []uint64, width, i int, v uint64) {
	if width == 0 {
		return
	}
	b := i * width
	w, off := b/64, uint(b%64)
	words[w] |= v << off
	if int(off)+width > 64 {
		words[w+1] |= v >> (64 - off)
	}
}

// Get returns the value at position i.
func Get(words []uint64, width, i int) uint64 {
	if width == 0 {
		return 0
	}
	b := i * width
	w, off := b/64, uint(b%64)
	invariants.CheckBounds(w, len(words))
	v := words[w] >> off
	if int(off)+width > 64 {
		v |= words[w+1] << (64 - off)
	}
	return v & mask(width)
}

// Unpack decodes n values starting at position start into out, which must
// have room for n values, and returns out[:n].
func Unpack(words []uint64, width, start, n int, out []uint64) []uint64 {
	out = out[:n]
	if width == 0 {
		clear(out)
		return out
	}
	m := mask(width)
	b := start * width
	for i := range out {
		w, off := b/64, uint(b%64)
		v := words[w] >> off
		if int(off)+width > 64 {
			v |= words[w+1] << (64 - off)
		}
		out[i] = v & m
		b += width
	}
	return out
}
