// Copyright 2019 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package tool

import (
	"github.com/cockroachdb/colenc/compress"
	"github.com/spf13/cobra"
)

// Compressor exports the compress.Compressor type.
type Compressor = compress.Compressor

// T is the container for all of the tools.
type T struct {
	Commands    []*cobra.Command
	arrays      *arraysT
	compressors []Compressor
}

// New creates a new set of tools using the default compressors.
func New() *T {
	t := &T{}
	for _, c := range compress.DefaultCompressors() {
		t.RegisterCompressor(c)
	}
	t.arrays = newArrays(&t.compressors)
	t.Commands = []*cobra.Command{
		t.arrays.Compress,
		t.arrays.Describe,
		t.arrays.Stats,
	}
	return t
}

// RegisterCompressor registers a compressor for use by the compress and
// describe commands. A compressor with the ID of a registered one replaces it.
func (t *T) RegisterCompressor(c Compressor) {
	for i := range t.compressors {
		if t.compressors[i].ID() == c.ID() {
			t.compressors[i] = c
			return
		}
	}
	t.compressors = append(t.compressors, c)
}
