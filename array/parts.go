// Copyright 2025 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package array

import (
	"github.com/cockroachdb/colenc/dtype"
	"github.com/cockroachdb/errors"
)

// Parts is the decomposed form of an array: everything a serialization layer
// persists to reconstruct it. The DType is carried out of band by such a
// layer but is part of Parts for convenience.
type Parts struct {
	DType    dtype.DType
	Len      int
	Metadata []byte
	Buffers  []Buffer
	Children []*Array
}

// Decompose returns the encoding ID and parts of a.
func Decompose(a *Array) (EncodingID, Parts) {
	return a.enc.ID(), Parts{
		DType:    a.dtype,
		Len:      a.length,
		Metadata: a.Metadata(),
		Buffers:  a.buffers,
		Children: a.children,
	}
}

// Rebuild reconstructs an array from the parts produced by Decompose, using
// the encoding registered under id. The parts are validated; invalid parts
// return an error marked with ErrInvalidArgument or ErrTypeMismatch.
func Rebuild(id EncodingID, p Parts) (*Array, error) {
	enc, ok := Lookup(id)
	if !ok {
		return nil, InvalidArgumentf("unknown encoding %s", id)
	}
	if p.Len < 0 {
		return nil, InvalidArgumentf("negative length %d", errors.Safe(p.Len))
	}
	a, err := enc.Build(p)
	if err != nil {
		return nil, errors.Wrapf(err, "building %s array", id)
	}
	if a.length != p.Len || !a.dtype.Equal(p.DType) {
		return nil, InvalidArgumentf("%s parts describe %s of length %d, built %s of length %d",
			id, p.DType, errors.Safe(p.Len), a.dtype, errors.Safe(a.length))
	}
	return a, nil
}

// RebuildTree decomposes a and every descendant and rebuilds them bottom up.
// It is the identity on well-formed arrays and exercises every encoding's
// metadata round trip.
func RebuildTree(a *Array) (*Array, error) {
	id, p := Decompose(a)
	children := make([]*Array, len(p.Children))
	for i, c := range p.Children {
		rc, err := RebuildTree(c)
		if err != nil {
			return nil, err
		}
		children[i] = rc
	}
	p.Children = children
	return Rebuild(id, p)
}
