// Copyright 2025 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

//go:build !cgo

package compression

import (
	"encoding/binary"

	"github.com/cockroachdb/errors"
	"github.com/klauspost/compress/zstd"
)

type zstdCompressor struct {
	level int
	enc   *zstd.Encoder
}

var _ Compressor = (*zstdCompressor)(nil)

func getZstdCompressor(level int) *zstdCompressor {
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.EncoderLevelFromZstd(level)))
	if err != nil {
		panic(errors.Wrap(err, "zstd encoder"))
	}
	return &zstdCompressor{level: level, enc: enc}
}

// UseStandardZstdLib indicates whether the zstd implementation is the
// reference C library. Tests that depend on exact compressed bytes check it.
const UseStandardZstdLib = false

// Compress prefixes the compressed payload with the uvarint decompressed
// length.
func (z *zstdCompressor) Compress(compressedBuf, b []byte) ([]byte, Setting) {
	compressedBuf = binary.AppendUvarint(compressedBuf[:0], uint64(len(b)))
	return z.enc.EncodeAll(b, compressedBuf), Setting{Algorithm: ZstdAlgorithm, Level: uint8(z.level)}
}

func (z *zstdCompressor) Close() {
	if err := z.enc.Close(); err != nil {
		panic(err)
	}
}

type zstdDecompressor struct{}

var _ Decompressor = zstdDecompressor{}

func (zstdDecompressor) DecompressInto(dst, src []byte) error {
	_, prefixLen := binary.Uvarint(src)
	src = src[prefixLen:]
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return err
	}
	defer decoder.Close()
	result, err := decoder.DecodeAll(src, dst[:0])
	if err != nil {
		return err
	}
	if len(result) != len(dst) || (len(result) > 0 && &result[0] != &dst[0]) {
		return errUnexpectedBuffer(result, dst)
	}
	return nil
}

func (zstdDecompressor) DecompressedLen(b []byte) (decompressedLen int, err error) {
	decodedLenU64, varIntLen := binary.Uvarint(b)
	if varIntLen <= 0 {
		return 0, errors.Errorf("zstd: block has invalid length prefix")
	}
	return int(decodedLenU64), nil
}

func (zstdDecompressor) Close() {}

func getZstdDecompressor() zstdDecompressor {
	return zstdDecompressor{}
}
