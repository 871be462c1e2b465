// Copyright 2025 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package scalar

import (
	"github.com/cockroachdb/colenc/dtype"
	"github.com/cockroachdb/colenc/internal/metabuf"
	"github.com/cockroachdb/errors"
)

// AppendBinary appends the binary form of the scalar's value to buf. The DType
// is not encoded; Unmarshal must be given the same DType.
//
// The form is a presence byte followed, for non-null values, by the
// kind-specific payload: a byte for bools, the little-endian storage word for
// primitives, a length-prefixed byte string for utf8 and binary, and the
// concatenated children for lists, structs and extensions.
func (s Scalar) AppendBinary(buf []byte) []byte {
	w := metabuf.Writer{}
	s.write(&w)
	return append(buf, w.Finish()...)
}

// MarshalBinary implements encoding.BinaryMarshaler.
func (s Scalar) MarshalBinary() ([]byte, error) {
	return s.AppendBinary(nil), nil
}

func (s Scalar) write(w *metabuf.Writer) {
	w.Bool(!s.IsNull())
	switch s.kind {
	case kindBool:
		w.Bool(s.b)
	case kindPrimitive:
		w.Uint64(s.p.StorageBits())
	case kindBuffer:
		w.Bytes(s.buf)
	case kindList:
		if !s.dtype.IsStruct() {
			w.Uvarint(uint64(len(s.elems)))
		}
		for _, e := range s.elems {
			e.write(w)
		}
	case kindExtension:
		s.elems[0].write(w)
	}
}

// Unmarshal decodes a scalar of DType dt from the output of MarshalBinary.
func Unmarshal(dt dtype.DType, b []byte) (Scalar, error) {
	r := metabuf.NewReader(b)
	s, err := Read(dt, r)
	if err != nil {
		return Scalar{}, err
	}
	if err := r.Done(); err != nil {
		return Scalar{}, err
	}
	return s, nil
}

// Read decodes one scalar of DType dt from r. It is used by encodings that
// embed scalars in their metadata.
func Read(dt dtype.DType, r *metabuf.Reader) (Scalar, error) {
	s := read(dt, r)
	if err := r.Err(); err != nil {
		return Scalar{}, errors.Wrapf(err, "decoding %s scalar", dt)
	}
	return s, nil
}

// Write encodes s into w. It is the inverse of Read.
func Write(w *metabuf.Writer, s Scalar) { s.write(w) }

func read(dt dtype.DType, r *metabuf.Reader) Scalar {
	if !r.Bool() || r.Err() != nil {
		return Null(dt)
	}
	switch dt.Kind() {
	case dtype.KindNull:
		return Null(dt)
	case dtype.KindBool:
		return Bool(r.Bool(), dt.Nullability())
	case dtype.KindPrimitive:
		return Primitive(PValueFromBits(dt.PType(), r.Uint64()), dt.Nullability())
	case dtype.KindUtf8, dtype.KindBinary:
		return Scalar{dtype: dt, kind: kindBuffer, buf: append([]byte(nil), r.Bytes()...)}
	case dtype.KindStruct:
		fields := make([]Scalar, dt.NumFields())
		for i := range fields {
			fields[i] = read(dt.Field(i), r)
		}
		return Scalar{dtype: dt, kind: kindList, elems: fields}
	case dtype.KindList:
		n := r.Uvarint()
		if n > uint64(len(r.Remaining())) {
			// Every element occupies at least one byte.
			r.Fail("list length")
			return Null(dt)
		}
		elems := make([]Scalar, n)
		for i := range elems {
			elems[i] = read(dt.Elem(), r)
		}
		return Scalar{dtype: dt, kind: kindList, elems: elems}
	case dtype.KindExtension:
		return Extension(dt, read(dt.Ext().Storage, r))
	}
	panic(errors.AssertionFailedf("unknown dtype kind %s", dt.Kind()))
}
