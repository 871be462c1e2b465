// Copyright 2025 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

// Package datetimeparts implements an encoding of timestamp columns that
// splits every value into whole days since the epoch, seconds within the day
// and the remaining sub-second units. Each part lives in its own int64 child
// which typically compresses much better than the combined value: days are
// near-constant, seconds are bounded by 86400 and sub-seconds are frequently
// zero.
//
// A value v in units u decodes as
//
//	v = days*86400*u.PerSecond() + seconds*u.PerSecond() + subseconds
//
// with 0 <= seconds < 86400 and 0 <= subseconds < u.PerSecond(). The days
// child carries the validity of the array; the parts of null elements are
// zero.
package datetimeparts

import (
	"github.com/cockroachdb/colenc/array"
	"github.com/cockroachdb/colenc/dtype"
	"github.com/cockroachdb/colenc/scalar"
	"github.com/cockroachdb/errors"
)

// ID identifies the datetime parts encoding.
const ID array.EncodingID = "colenc.datetimeparts"

const secondsPerDay = 86400

type encoding struct{}

// Encoding is the datetime parts encoding.
var Encoding array.Encoding = encoding{}

func init() { array.Register(Encoding) }

// New returns a timestamp array of DType dt assembled from its parts. All
// three children must be int64 arrays of the same length, and days must have
// the nullability of dt.
func New(dt dtype.DType, days, seconds, subseconds *array.Array) (*array.Array, error) {
	opts, err := dtype.ParseTimestamp(dt)
	if err != nil {
		return nil, errors.Mark(err, array.ErrTypeMismatch)
	}
	for _, c := range []*array.Array{days, seconds, subseconds} {
		if !c.DType().IsPrimitive() || c.DType().PType() != dtype.I64 {
			return nil, array.TypeMismatchf("datetime parts child of type %s", c.DType())
		}
		if c.Len() != days.Len() {
			return nil, array.InvalidArgumentf("datetime parts of lengths %d and %d",
				errors.Safe(days.Len()), errors.Safe(c.Len()))
		}
	}
	if days.DType().Nullability() != dt.Nullability() {
		return nil, array.TypeMismatchf("datetime days of %s for %s", days.DType(), dt)
	}
	return array.New(Encoding, dt, days.Len(), opts.Unit, nil, []*array.Array{days, seconds, subseconds}), nil
}

// Days returns the child holding whole days since the epoch.
func Days(a *array.Array) *array.Array { return a.Child(0) }

// Seconds returns the child holding seconds within the day.
func Seconds(a *array.Array) *array.Array { return a.Child(1) }

// Subseconds returns the child holding units within the second.
func Subseconds(a *array.Array) *array.Array { return a.Child(2) }

func unitOf(a *array.Array) dtype.TimeUnit { return a.Meta().(dtype.TimeUnit) }

// split decomposes v so that every part but days is non-negative.
func split(v int64, perSecond int64) (days, seconds, subseconds int64) {
	perDay := secondsPerDay * perSecond
	days = v / perDay
	rem := v % perDay
	if rem < 0 {
		days--
		rem += perDay
	}
	return days, rem / perSecond, rem % perSecond
}

func join(days, seconds, subseconds int64, perSecond int64) int64 {
	return days*secondsPerDay*perSecond + seconds*perSecond + subseconds
}

// Encode splits a timestamp array into its parts.
func Encode(a *array.Array) (*array.Array, error) {
	opts, err := dtype.ParseTimestamp(a.DType())
	if err != nil {
		return nil, errors.Mark(err, array.ErrTypeMismatch)
	}
	c, err := array.Canonicalize(a)
	if err != nil {
		return nil, err
	}
	storage, err := array.Canonicalize(array.ExtensionStorage(c))
	if err != nil {
		return nil, err
	}
	vals := array.PrimitiveValues[int64](storage)
	v := array.PrimitiveValidity(storage)
	perSecond := opts.Unit.PerSecond()
	days := make([]int64, len(vals))
	seconds := make([]int64, len(vals))
	subseconds := make([]int64, len(vals))
	for i, x := range vals {
		if !v.IsValid(i) {
			continue
		}
		days[i], seconds[i], subseconds[i] = split(x, perSecond)
	}
	return New(a.DType(),
		array.FromSliceWithValidity(days, v),
		array.FromSlice(seconds),
		array.FromSlice(subseconds))
}

func (encoding) ID() array.EncodingID { return ID }

func (encoding) Canonicalize(a *array.Array) (*array.Array, error) {
	var parts [3][]int64
	var v array.Validity
	for i := range parts {
		c, err := array.Canonicalize(a.Child(i))
		if err != nil {
			return nil, err
		}
		parts[i] = array.PrimitiveValues[int64](c)
		if i == 0 {
			v = array.PrimitiveValidity(c)
		}
	}
	perSecond := unitOf(a).PerSecond()
	vals := make([]int64, a.Len())
	for i := range vals {
		if v.IsValid(i) {
			vals[i] = join(parts[0][i], parts[1][i], parts[2][i], perSecond)
		}
	}
	return array.NewExtension(a.DType(), array.FromSliceWithValidity(vals, v))
}

// MarshalMetadata writes nothing: the unit is recovered from the DType.
func (encoding) MarshalMetadata(*array.Array) []byte { return nil }

func (encoding) Build(p array.Parts) (*array.Array, error) {
	if len(p.Buffers) != 0 || len(p.Children) != 3 || len(p.Metadata) != 0 {
		return nil, array.InvalidArgumentf("datetime parts array with %d buffers and %d children",
			errors.Safe(len(p.Buffers)), errors.Safe(len(p.Children)))
	}
	a, err := New(p.DType, p.Children[0], p.Children[1], p.Children[2])
	if err != nil {
		return nil, err
	}
	if a.Len() != p.Len {
		return nil, array.InvalidArgumentf("datetime parts of length %d, expected %d",
			errors.Safe(a.Len()), errors.Safe(p.Len))
	}
	return a, nil
}

func (encoding) ScalarAt(a *array.Array, i int) (scalar.Scalar, error) {
	var parts [3]int64
	for j := range parts {
		s, err := array.ScalarAt(a.Child(j), i)
		if err != nil {
			return scalar.Scalar{}, err
		}
		v, ok := s.AsInt64()
		if !ok {
			if j == 0 {
				return scalar.Null(a.DType()), nil
			}
			continue
		}
		parts[j] = v
	}
	v := join(parts[0], parts[1], parts[2], unitOf(a).PerSecond())
	return scalar.Extension(a.DType(), scalar.Primitive(scalar.PValueOf(v), a.DType().Nullability())), nil
}

func (encoding) Slice(a *array.Array, start, stop int) (*array.Array, error) {
	var parts [3]*array.Array
	for j := range parts {
		s, err := array.Slice(a.Child(j), start, stop)
		if err != nil {
			return nil, err
		}
		parts[j] = s
	}
	return New(a.DType(), parts[0], parts[1], parts[2])
}

// Take gathers each part. Null indices make the days nullable, and with them
// the result.
func (encoding) Take(a *array.Array, indices *array.Array) (*array.Array, error) {
	var parts [3]*array.Array
	for j := range parts {
		t, err := array.Take(a.Child(j), indices)
		if err != nil {
			return nil, err
		}
		parts[j] = t
	}
	return New(a.DType().WithNullability(parts[0].DType().Nullability()), parts[0], parts[1], parts[2])
}

func (encoding) IsValid(a *array.Array, i int) bool {
	ok, err := array.IsValid(Days(a), i)
	return err == nil && ok
}

func (encoding) LogicalValidity(a *array.Array) (array.Validity, error) {
	return array.LogicalValidity(Days(a))
}

func (encoding) ComputeStat(a *array.Array, s array.Stat) (scalar.Scalar, bool) {
	if s == array.StatNullCount {
		return Days(a).Statistics().Compute(s)
	}
	return scalar.Scalar{}, false
}
