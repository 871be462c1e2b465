// Copyright 2025 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package compression

import "github.com/cockroachdb/errors"

// storedCompressor copies buffers verbatim.
type storedCompressor struct{}

var _ Compressor = storedCompressor{}

func (storedCompressor) Compress(dst, src []byte) ([]byte, Setting) {
	return append(dst[:0], src...), NoCompression
}

func (storedCompressor) Close() {}

type storedDecompressor struct{}

var _ Decompressor = storedDecompressor{}

func (storedDecompressor) DecompressInto(buf, compressed []byte) error {
	if len(buf) != len(compressed) {
		return errors.Newf("stored buffer of %d bytes decompressed into %d bytes",
			errors.Safe(len(compressed)), errors.Safe(len(buf)))
	}
	copy(buf, compressed)
	return nil
}

func (storedDecompressor) DecompressedLen(b []byte) (int, error) {
	return len(b), nil
}

func (storedDecompressor) Close() {}
