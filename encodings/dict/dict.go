// Copyright 2025 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

// Package dict implements dictionary encoding. A dictionary array holds a
// values child of distinct values and a codes child of unsigned integers
// indexing into it. Nulls are null codes.
package dict

import (
	"encoding/binary"

	"github.com/axiomhq/hyperloglog"
	"github.com/cespare/xxhash/v2"
	"github.com/cockroachdb/colenc/array"
	"github.com/cockroachdb/colenc/dtype"
	"github.com/cockroachdb/colenc/internal/metabuf"
	"github.com/cockroachdb/colenc/scalar"
	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/swiss"
)

// ID identifies the dictionary encoding.
const ID array.EncodingID = "colenc.dict"

type meta struct {
	// unique is set when the values are known to be distinct, which lets run
	// and constancy statistics follow from the codes.
	unique bool
}

type encoding struct{}

// Encoding is the dictionary encoding.
var Encoding array.Encoding = encoding{}

func init() { array.Register(Encoding) }

// New returns a dictionary array. The codes must be unsigned integers whose
// non-null values index into values. The array is nullable if either child
// is.
func New(codes, values *array.Array) (*array.Array, error) {
	return newChecked(codes, values, false)
}

func newChecked(codes, values *array.Array, unique bool) (*array.Array, error) {
	if !codes.DType().IsUnsignedInt() {
		return nil, array.InvalidArgumentf("dictionary codes must be unsigned integers, got %s", codes.DType())
	}
	if mx, ok := codes.Statistics().Compute(array.StatMax); ok {
		if v, _ := mx.AsUint64(); v >= uint64(values.Len()) {
			return nil, array.InvalidArgumentf("dictionary code %d out of range for %d values",
				errors.Safe(v), errors.Safe(values.Len()))
		}
	}
	return newDict(codes, values, unique), nil
}

func newDict(codes, values *array.Array, unique bool) *array.Array {
	dt := values.DType()
	if codes.DType().IsNullable() {
		dt = dt.AsNullable()
	}
	return array.New(Encoding, dt, codes.Len(), meta{unique: unique}, nil, []*array.Array{codes, values})
}

// Codes returns the codes child.
func Codes(a *array.Array) *array.Array { return a.Child(0) }

// Values returns the values child.
func Values(a *array.Array) *array.Array { return a.Child(1) }

// Encode dictionary encodes a primitive, utf8 or binary array. Values appear
// in the dictionary in order of first occurrence. Statistics already computed
// on a carry over to the result.
func Encode(a *array.Array) (*array.Array, error) {
	c, err := array.Canonicalize(a)
	if err != nil {
		return nil, err
	}
	var codes []uint64
	var first []uint64
	switch {
	case c.Is(array.PrimitiveID):
		codes, first = encodePrimitive(c)
	case c.Is(array.VarBinID):
		codes, first = encodeBytes(c)
	default:
		return nil, array.Unsupportedf("cannot dictionary encode %s", a.DType())
	}
	values, err := array.Take(c, array.FromSlice(first))
	if err != nil {
		return nil, err
	}
	v, err := array.LogicalValidity(c)
	if err != nil {
		return nil, err
	}
	codeType := dtype.MinUnsignedFor(uint64(max(len(first)-1, 0)))
	d := newDict(array.PrimitiveFromRaw(codeType, codes, v), values, true)
	d.Statistics().Inherit(a.Statistics(),
		array.StatNullCount, array.StatIsSorted, array.StatIsStrictSorted,
		array.StatIsConstant, array.StatRunCount, array.StatMin, array.StatMax)
	return d, nil
}

// EstimateCardinality estimates the number of distinct non-null values of a.
func EstimateCardinality(a *array.Array) (uint64, error) {
	c, err := array.Canonicalize(a)
	if err != nil {
		return 0, err
	}
	v, err := array.LogicalValidity(c)
	if err != nil {
		return 0, err
	}
	sk := hyperloglog.New()
	switch {
	case c.Is(array.PrimitiveID):
		var buf [8]byte
		for i, r := range array.RawValues(c) {
			if v.IsValid(i) {
				binary.LittleEndian.PutUint64(buf[:], r)
				sk.Insert(buf[:])
			}
		}
	case c.Is(array.VarBinID):
		for i := 0; i < c.Len(); i++ {
			if v.IsValid(i) {
				sk.Insert(array.VarBinBytes(c, i))
			}
		}
	default:
		return 0, array.Unsupportedf("cannot estimate cardinality of %s", a.DType())
	}
	return sk.Estimate(), nil
}

func encodePrimitive(c *array.Array) (codes, first []uint64) {
	raw := array.RawValues(c)
	v := array.PrimitiveValidity(c)
	var m swiss.Map[uint64, uint32]
	m.Init(presize(c))
	codes = make([]uint64, len(raw))
	for i, r := range raw {
		if !v.IsValid(i) {
			continue
		}
		code, ok := m.Get(r)
		if !ok {
			code = uint32(len(first))
			m.Put(r, code)
			first = append(first, uint64(i))
		}
		codes[i] = uint64(code)
	}
	return codes, first
}

func encodeBytes(c *array.Array) (codes, first []uint64) {
	v := array.VarBinValidity(c)
	var m swiss.Map[uint64, uint32]
	m.Init(presize(c))
	// Values whose hash collides with a different value.
	var collisions map[string]uint32
	codes = make([]uint64, c.Len())
	for i := range codes {
		if !v.IsValid(i) {
			continue
		}
		b := array.VarBinBytes(c, i)
		h := xxhash.Sum64(b)
		code, ok := m.Get(h)
		switch {
		case !ok:
			code = uint32(len(first))
			m.Put(h, code)
			first = append(first, uint64(i))
		case string(array.VarBinBytes(c, int(first[code]))) != string(b):
			if collisions == nil {
				collisions = make(map[string]uint32)
			}
			if code, ok = collisions[string(b)]; !ok {
				code = uint32(len(first))
				collisions[string(b)] = code
				first = append(first, uint64(i))
			}
		}
		codes[i] = uint64(code)
	}
	return codes, first
}

// presize returns the initial capacity of the table used to encode c. Large
// arrays are sized from a cardinality estimate to avoid repeated growth.
func presize(c *array.Array) int {
	const threshold = 1 << 12
	if c.Len() < threshold {
		return c.Len()
	}
	est, err := EstimateCardinality(c)
	if err != nil {
		return 0
	}
	return int(min(est, uint64(c.Len())))
}

func (encoding) ID() array.EncodingID { return ID }

func (encoding) Canonicalize(a *array.Array) (*array.Array, error) {
	t, err := array.Take(Values(a), Codes(a))
	if err != nil {
		return nil, err
	}
	if !t.DType().Equal(a.DType()) {
		if t, err = array.Cast(t, a.DType()); err != nil {
			return nil, err
		}
	}
	return array.Canonicalize(t)
}

func (encoding) MarshalMetadata(a *array.Array) []byte {
	var w metabuf.Writer
	w.Bool(a.Meta().(meta).unique)
	return w.Finish()
}

func (encoding) Build(p array.Parts) (*array.Array, error) {
	if len(p.Buffers) != 0 || len(p.Children) != 2 {
		return nil, array.InvalidArgumentf("dictionary array with %d buffers and %d children",
			errors.Safe(len(p.Buffers)), errors.Safe(len(p.Children)))
	}
	r := metabuf.NewReader(p.Metadata)
	unique := r.Bool()
	if err := r.Done(); err != nil {
		return nil, errors.Mark(err, array.ErrInvalidArgument)
	}
	return newChecked(p.Children[0], p.Children[1], unique)
}

func (encoding) ScalarAt(a *array.Array, i int) (scalar.Scalar, error) {
	c, err := array.ScalarAt(Codes(a), i)
	if err != nil {
		return scalar.Scalar{}, err
	}
	code, ok := c.AsUint64()
	if !ok {
		return scalar.Null(a.DType()), nil
	}
	s, err := array.ScalarAt(Values(a), int(code))
	if err != nil {
		return scalar.Scalar{}, err
	}
	if s.IsNull() {
		return scalar.Null(a.DType()), nil
	}
	return s.WithNullability(a.DType().Nullability()), nil
}

func (encoding) Slice(a *array.Array, start, stop int) (*array.Array, error) {
	codes, err := array.Slice(Codes(a), start, stop)
	if err != nil {
		return nil, err
	}
	return newDict(codes, Values(a), a.Meta().(meta).unique), nil
}

func (encoding) Take(a *array.Array, indices *array.Array) (*array.Array, error) {
	codes, err := array.Take(Codes(a), indices)
	if err != nil {
		return nil, err
	}
	return newDict(codes, Values(a), a.Meta().(meta).unique), nil
}

func (encoding) Filter(a *array.Array, mask *array.Array) (*array.Array, error) {
	codes, err := array.Filter(Codes(a), mask)
	if err != nil {
		return nil, err
	}
	return newDict(codes, Values(a), a.Meta().(meta).unique), nil
}

// CompareScalar compares each distinct value once and keeps the result
// dictionary encoded over the same codes.
func (encoding) CompareScalar(
	a *array.Array, s scalar.Scalar, op array.Operator,
) (*array.Array, error) {
	values, err := array.CompareScalar(Values(a), s, op)
	if err != nil {
		return nil, err
	}
	return newDict(Codes(a), values, false), nil
}

func (encoding) IsValid(a *array.Array, i int) bool {
	s, err := encoding{}.ScalarAt(a, i)
	return err == nil && !s.IsNull()
}

func (e encoding) LogicalValidity(a *array.Array) (array.Validity, error) {
	if nulls, ok := Values(a).Statistics().ComputeUint64(array.StatNullCount); ok && nulls == 0 {
		return array.LogicalValidity(Codes(a))
	}
	c, err := e.Canonicalize(a)
	if err != nil {
		return array.Validity{}, err
	}
	return array.LogicalValidity(c)
}

func (encoding) ComputeStat(a *array.Array, s array.Stat) (scalar.Scalar, bool) {
	codes, values := Codes(a), Values(a)
	unique := a.Meta().(meta).unique
	switch s {
	case array.StatNullCount:
		// Null values are not referenced by encoders; only then do the codes
		// alone determine the nulls.
		if nulls, ok := values.Statistics().ComputeUint64(array.StatNullCount); !ok || nulls != 0 {
			return scalar.Scalar{}, false
		}
		return codes.Statistics().Compute(s)
	case array.StatIsSorted, array.StatIsStrictSorted:
		// Codes into distinct sorted values order the same way as the values
		// they reference.
		vs := values.Statistics()
		if strict, ok := vs.ComputeBool(array.StatIsStrictSorted); ok && strict {
			return codes.Statistics().Compute(s)
		}
		if sorted, ok := vs.ComputeBool(array.StatIsSorted); ok && sorted && unique {
			return codes.Statistics().Compute(s)
		}
	case array.StatIsConstant, array.StatRunCount:
		if unique {
			return codes.Statistics().Compute(s)
		}
	}
	return scalar.Scalar{}, false
}
