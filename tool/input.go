// Copyright 2025 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package tool

import (
	"bufio"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/colenc/array"
	"github.com/cockroachdb/colenc/dtype"
	"github.com/cockroachdb/colenc/internal/mmap"
	"github.com/cockroachdb/colenc/scalar"
	"github.com/cockroachdb/errors"
)

// readValues reads one value of type dt per line. Timestamps are given as
// RFC 3339 times or as integer microseconds since the epoch.
func readValues(r io.Reader, dt dtype.DType) (*array.Array, error) {
	parseDT := dt
	if dtype.IsTimestamp(dt) {
		parseDT = dt.Ext().Storage
	}
	var vals []scalar.Scalar
	sc := bufio.NewScanner(r)
	sc.Buffer(nil, 1<<20)
	for line := 1; sc.Scan(); line++ {
		text := sc.Text()
		if !dt.IsBinaryLike() {
			text = strings.TrimSpace(text)
			if text == "" {
				continue
			}
		}
		s, err := parseValue(parseDT, text, dtype.IsTimestamp(dt))
		if err != nil {
			return nil, errors.Wrapf(err, "line %d", errors.Safe(line))
		}
		vals = append(vals, s)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	a, err := array.FromScalars(parseDT, vals)
	if err != nil {
		return nil, err
	}
	if dtype.IsTimestamp(dt) {
		return array.NewExtension(dt, a)
	}
	return a, nil
}

func parseValue(dt dtype.DType, text string, timestamp bool) (scalar.Scalar, error) {
	if text == "null" && dt.IsNullable() {
		return scalar.Null(dt), nil
	}
	n := dt.Nullability()
	switch {
	case dt.IsBool():
		b, err := strconv.ParseBool(text)
		if err != nil {
			return scalar.Scalar{}, err
		}
		return scalar.Bool(b, n), nil
	case dt.IsBinaryLike():
		return scalar.BufferOf(dt, []byte(text)), nil
	case timestamp:
		if t, err := time.Parse(time.RFC3339Nano, text); err == nil {
			return scalar.Primitive(scalar.PValueOf(t.UnixMicro()), n), nil
		}
		v, err := strconv.ParseInt(text, 10, 64)
		if err != nil {
			return scalar.Scalar{}, errors.Newf("invalid timestamp %q", text)
		}
		return scalar.Primitive(scalar.PValueOf(v), n), nil
	case dt.IsFloat():
		f, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return scalar.Scalar{}, err
		}
		pv, err := scalar.PValueOf(f).Cast(dt.PType())
		if err != nil {
			return scalar.Scalar{}, err
		}
		return scalar.Primitive(pv, n), nil
	case dt.IsSignedInt():
		v, err := strconv.ParseInt(text, 10, dt.PType().BitWidth())
		if err != nil {
			return scalar.Scalar{}, err
		}
		return scalar.Primitive(scalar.PValueInt(dt.PType(), v), n), nil
	case dt.IsUnsignedInt():
		v, err := strconv.ParseUint(text, 10, dt.PType().BitWidth())
		if err != nil {
			return scalar.Scalar{}, err
		}
		return scalar.Primitive(scalar.PValueFromBits(dt.PType(), v), n), nil
	}
	return scalar.Scalar{}, errors.Newf("cannot read values of type %s", dt)
}

// loadRaw maps the file at path and returns a view array over the
// little-endian primitive values it holds. The returned function unmaps the
// file; the array must not be used afterwards.
func loadRaw(path string, dt dtype.DType) (*array.Array, func(), error) {
	if !dt.IsPrimitive() || dt.IsNullable() {
		return nil, nil, errors.Newf("raw files hold non-nullable primitive values, not %s", dt)
	}
	m, err := mmap.Open(path)
	if err != nil {
		return nil, nil, err
	}
	done := func() { _ = m.Close() }
	w := dt.PType().ByteWidth()
	if m.Len()%w != 0 {
		done()
		return nil, nil, errors.Newf("%s: size %d is not a multiple of %d", path, errors.Safe(m.Len()), errors.Safe(w))
	}
	n := m.Len() / w
	buf, err := array.NewRegion(m.Bytes(), os.Getpagesize()).View(0, n*w)
	if err == nil {
		var a *array.Array
		if a, err = array.NewPrimitive(dt.PType(), buf, n, array.ValidityNonNullable()); err == nil {
			return a, done, nil
		}
	}
	done()
	return nil, nil, err
}
