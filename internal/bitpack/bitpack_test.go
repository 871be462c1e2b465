// Copyright 2025 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package bitpack

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/exp/rand"
)

func TestPackUnpack(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for width := 0; width <= 64; width++ {
		t.Run(fmt.Sprint(width), func(t *testing.T) {
			n := 1 + rng.Intn(300)
			vals := make([]uint64, n)
			for i := range vals {
				if width > 0 {
					vals[i] = rng.Uint64() & mask(width)
				}
			}
			words := Pack(vals, width)
			require.Equal(t, Words(n, width), len(words))
			for i, v := range vals {
				require.Equal(t, v, Get(words, width, i))
			}
			start := rng.Intn(n)
			out := Unpack(words, width, start, n-start, make([]uint64, n))
			require.Equal(t, vals[start:], out)
		})
	}
}

func TestWidth(t *testing.T) {
	require.Equal(t, 0, Width(0))
	require.Equal(t, 1, Width(1))
	require.Equal(t, 3, Width(7))
	require.Equal(t, 4, Width(8))
	require.Equal(t, 64, Width(1<<63))
}
