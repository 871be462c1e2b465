// Copyright 2025 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package mmap

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOpen(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "data")
	require.NoError(t, os.WriteFile(path, []byte("hello mapped world"), 0644))

	m, err := Open(path)
	require.NoError(t, err)
	require.Equal(t, "hello mapped world", string(m.Bytes()))
	require.Equal(t, 18, m.Len())
	require.NoError(t, m.Close())
	require.Nil(t, m.Bytes())
	require.NoError(t, m.Close())

	empty := filepath.Join(dir, "empty")
	require.NoError(t, os.WriteFile(empty, nil, 0644))
	m, err = Open(empty)
	require.NoError(t, err)
	require.Equal(t, 0, m.Len())
	require.NoError(t, m.Close())

	_, err = Open(filepath.Join(dir, "missing"))
	require.Error(t, err)
}
