// Copyright 2025 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package metabuf

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestReadWrite(t *testing.T) {
	var w Writer
	w.Uvarint(300)
	w.Varint(-7)
	w.Byte(0xab)
	w.Bool(true)
	w.Uint64(math.MaxUint64 - 1)
	w.Bytes([]byte{1, 2, 3})
	w.String("colenc")

	r := NewReader(w.Finish())
	require.Equal(t, uint64(300), r.Uvarint())
	require.Equal(t, int64(-7), r.Varint())
	require.Equal(t, byte(0xab), r.Byte())
	require.True(t, r.Bool())
	require.Equal(t, uint64(math.MaxUint64-1), r.Uint64())
	require.Equal(t, []byte{1, 2, 3}, r.Bytes())
	require.Equal(t, "colenc", r.String())
	require.NoError(t, r.Done())
}

func TestTruncated(t *testing.T) {
	var w Writer
	w.Uvarint(1)
	w.Bytes([]byte("abcdef"))
	b := w.Finish()

	r := NewReader(b[:len(b)-2])
	require.Equal(t, uint64(1), r.Uvarint())
	require.Nil(t, r.Bytes())
	require.Error(t, r.Err())
	require.Contains(t, r.Err().Error(), "reading bytes")
	// Errors are sticky.
	require.Equal(t, uint64(0), r.Uint64())
	require.Contains(t, r.Done().Error(), "reading bytes")

	r = NewReader(b)
	r.Uvarint()
	require.Equal(t, []byte("abcdef")[:6], r.Bytes())
	require.NoError(t, r.Done())

	r = NewReader(append(b, 0))
	r.Uvarint()
	r.Bytes()
	require.Equal(t, []byte{0}, r.Remaining())
	require.EqualError(t, r.Done(), "metadata has 1 trailing bytes")

	r = NewReader(nil)
	r.Fail("header")
	require.Contains(t, r.Err().Error(), "reading header at offset 0 of 0")
}
