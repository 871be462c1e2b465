// Copyright 2025 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

// Package mmap maps files read-only into memory so that arrays can be built as
// zero-copy views over their contents.
package mmap

import (
	"os"

	"github.com/cockroachdb/errors"
)

// Mapping is a read-only view of a file's contents. The bytes remain valid
// until Close.
type Mapping struct {
	data   []byte
	mapped bool
}

// Open maps the named file.
func Open(path string) (*Mapping, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	fi, err := f.Stat()
	if err != nil {
		return nil, err
	}
	size := fi.Size()
	if size == 0 {
		return &Mapping{}, nil
	}
	if int64(int(size)) != size {
		return nil, errors.Newf("mmap: %s is too large (%d bytes)", errors.Safe(path), errors.Safe(size))
	}
	data, mapped, err := mapFile(f, int(size))
	if err != nil {
		return nil, errors.Wrapf(err, "mmap %s", errors.Safe(path))
	}
	return &Mapping{data: data, mapped: mapped}, nil
}

// Bytes returns the contents of the file. The slice must not be modified or
// used after Close.
func (m *Mapping) Bytes() []byte { return m.data }

// Len returns the size of the mapping.
func (m *Mapping) Len() int { return len(m.data) }

// Close unmaps the file.
func (m *Mapping) Close() error {
	data := m.data
	m.data = nil
	if !m.mapped || len(data) == 0 {
		return nil
	}
	m.mapped = false
	return unmap(data)
}
