// Copyright 2025 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

// Package compression wraps the general purpose block compression algorithms
// used to compress opaque byte buffers, such as the concatenated values of a
// string column.
package compression

import (
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/redact"
	"github.com/minio/minlz"
)

// Algorithm identifies a block compression algorithm.
type Algorithm uint8

const (
	NoAlgorithm Algorithm = iota
	SnappyAlgorithm
	MinLZAlgorithm
	ZstdAlgorithm

	numAlgorithms
)

var algorithmNames = [numAlgorithms]string{
	NoAlgorithm:     "none",
	SnappyAlgorithm: "snappy",
	MinLZAlgorithm:  "minlz",
	ZstdAlgorithm:   "zstd",
}

// String implements fmt.Stringer.
func (a Algorithm) String() string {
	if a < numAlgorithms {
		return algorithmNames[a]
	}
	return fmt.Sprintf("algorithm(%d)", uint8(a))
}

// SafeValue implements redact.SafeValue.
func (Algorithm) SafeValue() {}

var _ redact.SafeValue = Algorithm(0)

// Setting is an algorithm together with its level. The level is meaningful
// only for algorithms that support levels.
type Setting struct {
	Algorithm Algorithm
	Level     uint8
}

// String implements fmt.Stringer.
func (s Setting) String() string {
	if s.Level == 0 {
		return s.Algorithm.String()
	}
	return fmt.Sprintf("%s%d", s.Algorithm, s.Level)
}

var (
	NoCompression = Setting{Algorithm: NoAlgorithm}
	Snappy        = Setting{Algorithm: SnappyAlgorithm}
	MinLZFastest  = Setting{Algorithm: MinLZAlgorithm, Level: uint8(minlz.LevelFastest)}
	MinLZBalanced = Setting{Algorithm: MinLZAlgorithm, Level: uint8(minlz.LevelBalanced)}
	ZstdLevel1    = Setting{Algorithm: ZstdAlgorithm, Level: 1}
	ZstdLevel3    = Setting{Algorithm: ZstdAlgorithm, Level: 3}
)

// ParseSetting parses the String form of a Setting.
func ParseSetting(s string) (Setting, error) {
	for _, st := range []Setting{NoCompression, Snappy, MinLZFastest, MinLZBalanced, ZstdLevel1, ZstdLevel3} {
		if st.String() == s {
			return st, nil
		}
	}
	return Setting{}, errors.Newf("unknown compression setting %q", s)
}

// Compressor compresses blocks.
type Compressor interface {
	// Compress appends the compressed form of src to dst[:0] and returns it
	// together with the setting used.
	Compress(dst, src []byte) ([]byte, Setting)
	// Close releases the compressor. It must not be used afterwards.
	Close()
}

// Decompressor decompresses blocks.
type Decompressor interface {
	// DecompressInto decompresses compressed into buf, which must have exactly
	// the decompressed length.
	DecompressInto(buf, compressed []byte) error
	// DecompressedLen returns the length of the decompressed block.
	DecompressedLen(b []byte) (decompressedLen int, err error)
	// Close releases the decompressor.
	Close()
}

// GetCompressor returns a compressor for the setting. The caller must Close
// it.
func GetCompressor(s Setting) Compressor {
	switch s.Algorithm {
	case NoAlgorithm:
		return storedCompressor{}
	case SnappyAlgorithm:
		return snappyCompressor{}
	case MinLZAlgorithm:
		return getMinlzCompressor(int(s.Level))
	case ZstdAlgorithm:
		return getZstdCompressor(int(s.Level))
	default:
		panic(errors.AssertionFailedf("unknown compression algorithm %s", s.Algorithm))
	}
}

// GetDecompressor returns a decompressor for the algorithm. The caller must
// Close it.
func GetDecompressor(a Algorithm) (Decompressor, error) {
	switch a {
	case NoAlgorithm:
		return storedDecompressor{}, nil
	case SnappyAlgorithm:
		return snappyDecompressor{}, nil
	case MinLZAlgorithm:
		return minlzDecompressor{}, nil
	case ZstdAlgorithm:
		return getZstdDecompressor(), nil
	default:
		return nil, errors.Newf("unknown compression algorithm %s", a)
	}
}

// Decompress returns the decompression of compressed, which was produced with
// algorithm a.
func Decompress(a Algorithm, compressed []byte) ([]byte, error) {
	d, err := GetDecompressor(a)
	if err != nil {
		return nil, err
	}
	defer d.Close()
	n, err := d.DecompressedLen(compressed)
	if err != nil {
		return nil, err
	}
	buf := make([]byte, n)
	if err := d.DecompressInto(buf, compressed); err != nil {
		return nil, err
	}
	return buf, nil
}

// errUnexpectedBuffer is returned when a decoder did not decompress in place.
func errUnexpectedBuffer(result, buf []byte) error {
	return errors.Newf("decompressed into unexpected buffer: %d bytes, want %d",
		errors.Safe(len(result)), errors.Safe(len(buf)))
}
