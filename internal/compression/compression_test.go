// Copyright 2025 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package compression

import (
	"bytes"
	"fmt"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewPCG(0, 1))
	inputs := [][]byte{
		nil,
		[]byte("a"),
		bytes.Repeat([]byte("colenc "), 1000),
	}
	random := make([]byte, 10000)
	for i := range random {
		random[i] = byte(rng.Uint32())
	}
	inputs = append(inputs, random)

	for _, s := range []Setting{NoCompression, Snappy, MinLZFastest, MinLZBalanced, ZstdLevel1, ZstdLevel3} {
		for i, in := range inputs {
			t.Run(fmt.Sprintf("%s/%d", s, i), func(t *testing.T) {
				c := GetCompressor(s)
				defer c.Close()
				compressed, got := c.Compress(nil, in)
				require.Equal(t, s, got)
				out, err := Decompress(s.Algorithm, compressed)
				require.NoError(t, err)
				require.Equal(t, len(in), len(out))
				require.True(t, bytes.Equal(in, out))
			})
		}
	}
}

func TestParseSetting(t *testing.T) {
	for _, s := range []Setting{NoCompression, Snappy, MinLZFastest, ZstdLevel3} {
		p, err := ParseSetting(s.String())
		require.NoError(t, err)
		require.Equal(t, s, p)
	}
	_, err := ParseSetting("lz5")
	require.Error(t, err)
}

func TestAdaptiveCompressorRand(t *testing.T) {
	ac := NewAdaptiveCompressor(AdaptiveCompressorParams{
		Fast:            MinLZFastest,
		Slow:            ZstdLevel1,
		ReductionCutoff: 0.2,
		SampleEvery:     10,
		SampleHalfLife:  128 * 1024,
		SamplingSeed:    1,
	})
	defer ac.Close()
	rng := rand.New(rand.NewPCG(2, 3))
	for i := 0; i < 50; i++ {
		data := make([]byte, 10+rng.IntN(64*1024))
		for j := range data {
			data[j] = byte(rng.Uint32())
		}
		_, setting := ac.Compress(nil, data)
		require.Equal(t, MinLZFastest, setting)
	}
}

func TestAdaptiveCompressorCompressible(t *testing.T) {
	ac := NewAdaptiveCompressor(AdaptiveCompressorParams{
		Fast:            NoCompression,
		Slow:            ZstdLevel1,
		ReductionCutoff: 0.6,
		SampleEvery:     10,
		SampleHalfLife:  128 * 1024,
		SamplingSeed:    1,
	})
	defer ac.Close()
	rng := rand.New(rand.NewPCG(0, 0))
	for i := 0; i < 50; i++ {
		data := make([]byte, 512+rng.IntN(64*1024))
		for j := range data {
			data[j] = byte(j / 100)
		}
		compressed, setting := ac.Compress(nil, data)
		require.Equal(t, ZstdLevel1, setting)
		out, err := Decompress(setting.Algorithm, compressed)
		require.NoError(t, err)
		require.Equal(t, data, out)
	}
}
