// Copyright 2025 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package compress

import (
	"fmt"
	"strings"

	"github.com/cockroachdb/colenc/array"
)

// Tree records the compressors chosen for an array and, recursively, for its
// children. A nil *Tree stands for an array left as is. Trees are immutable
// and are passed alongside arrays as hints to compress similar arrays, such
// as consecutive chunks of a column, the same way.
type Tree struct {
	// ID is the ID of the compressor that produced the array.
	ID string
	// Children holds the trees of the children the compressor compressed, in
	// an order defined by the compressor.
	Children []*Tree
	// Metadata holds parameters trained by the compressor that can be reused
	// when compressing a similar array, such as ALP exponents.
	Metadata any
}

// Child returns the i'th child of t, or nil if t is nil or has no such child.
func (t *Tree) Child(i int) *Tree {
	if t == nil || i >= len(t.Children) {
		return nil
	}
	return t.Children[i]
}

// String returns a multi-line, indented rendition of the tree.
func (t *Tree) String() string {
	var sb strings.Builder
	t.format(&sb, 0)
	return sb.String()
}

func (t *Tree) format(sb *strings.Builder, depth int) {
	sb.WriteString(strings.Repeat("  ", depth))
	if t == nil {
		sb.WriteString("-\n")
		return
	}
	sb.WriteString(t.ID)
	if t.Metadata != nil {
		fmt.Fprintf(sb, " %v", t.Metadata)
	}
	sb.WriteString("\n")
	for _, c := range t.Children {
		c.format(sb, depth+1)
	}
}

// Result is a compressed array together with the tree describing how it was
// compressed.
type Result struct {
	Array *array.Array
	Tree  *Tree
}

// uncompressed returns the result of leaving a as is.
func uncompressed(a *array.Array) Result { return Result{Array: a} }

// NBytes returns the size of the compressed array.
func (r Result) NBytes() int { return r.Array.NBytes() }
