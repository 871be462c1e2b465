// Copyright 2025 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package array

import (
	"fmt"
	"strconv"
	"strings"
	"testing"

	"github.com/cockroachdb/colenc/dtype"
	"github.com/cockroachdb/colenc/scalar"
	"github.com/cockroachdb/datadriven"
	"github.com/stretchr/testify/require"
)

// parseDType parses the short dtype names used by tests: bool, utf8, binary
// or a primitive type name, optionally suffixed with '?'.
func parseDType(t testing.TB, s string) dtype.DType {
	n := dtype.NonNullable
	if strings.HasSuffix(s, "?") {
		n = dtype.Nullable
		s = strings.TrimSuffix(s, "?")
	}
	switch s {
	case "bool":
		return dtype.Bool(n)
	case "utf8":
		return dtype.Utf8(n)
	case "binary":
		return dtype.Binary(n)
	}
	p, err := dtype.ParsePType(s)
	require.NoError(t, err)
	return dtype.Primitive(p, n)
}

func parseScalar(t testing.TB, dt dtype.DType, s string) scalar.Scalar {
	if s == "null" {
		return scalar.Null(dt)
	}
	switch {
	case dt.IsBool():
		b, err := strconv.ParseBool(s)
		require.NoError(t, err)
		return scalar.Bool(b, dt.Nullability())
	case dt.IsBinaryLike():
		return scalar.BufferOf(dt, []byte(s))
	case dt.IsFloat():
		f, err := strconv.ParseFloat(s, 64)
		require.NoError(t, err)
		p, err := scalar.PValueOf(f).Cast(dt.PType())
		require.NoError(t, err)
		return scalar.Primitive(p, dt.Nullability())
	case dt.IsUnsignedInt():
		u, err := strconv.ParseUint(s, 10, dt.PType().BitWidth())
		require.NoError(t, err)
		return scalar.Primitive(scalar.PValueFromBits(dt.PType(), u), dt.Nullability())
	default:
		i, err := strconv.ParseInt(s, 10, dt.PType().BitWidth())
		require.NoError(t, err)
		return scalar.Primitive(scalar.PValueInt(dt.PType(), i), dt.Nullability())
	}
}

func parseArray(t testing.TB, dt dtype.DType, input string) *Array {
	var vals []scalar.Scalar
	for _, f := range strings.Fields(input) {
		vals = append(vals, parseScalar(t, dt, f))
	}
	a, err := FromScalars(dt, vals)
	require.NoError(t, err)
	return a
}

func formatValues(a *Array) string {
	var sb strings.Builder
	sb.WriteString("[")
	for i := 0; i < a.Len(); i++ {
		if i > 0 {
			sb.WriteString(", ")
		}
		s, err := ScalarAt(a, i)
		if err != nil {
			return err.Error()
		}
		sb.WriteString(s.String())
	}
	sb.WriteString("]")
	return sb.String()
}

func boolMask(vals []int) *Array {
	b := make([]bool, len(vals))
	for i, v := range vals {
		b[i] = v != 0
	}
	return BoolFromSlice(b, dtype.NonNullable)
}

func TestComputeDataDriven(t *testing.T) {
	var a *Array
	datadriven.RunTest(t, "testdata/compute", func(t *testing.T, td *datadriven.TestData) string {
		switch td.Cmd {
		case "build":
			var typ string
			td.ScanArgs(t, "type", &typ)
			a = parseArray(t, parseDType(t, typ), td.Input)
			return fmt.Sprintf("%s %s", a.DType(), formatValues(a))

		case "slice":
			var start, stop int
			td.ScanArgs(t, "start", &start)
			td.ScanArgs(t, "stop", &stop)
			out, err := Slice(a, start, stop)
			if err != nil {
				return err.Error()
			}
			return formatValues(out)

		case "take":
			var idx []int
			td.ScanArgs(t, "indices", &idx)
			vals := make([]int64, len(idx))
			for i := range idx {
				vals[i] = int64(idx[i])
			}
			out, err := Take(a, FromSlice(vals))
			if err != nil {
				return err.Error()
			}
			return formatValues(out)

		case "filter":
			var mask []int
			td.ScanArgs(t, "mask", &mask)
			out, err := Filter(a, boolMask(mask))
			if err != nil {
				return err.Error()
			}
			return formatValues(out)

		case "compare":
			var opStr, value string
			td.ScanArgs(t, "op", &opStr)
			td.ScanArgs(t, "value", &value)
			op, err := ParseOperator(opStr)
			require.NoError(t, err)
			out, err := CompareScalar(a, parseScalar(t, a.DType(), value), op)
			if err != nil {
				return err.Error()
			}
			return fmt.Sprintf("%s %s", out.DType(), formatValues(out))

		case "search-sorted":
			var value string
			td.ScanArgs(t, "value", &value)
			v := parseScalar(t, a.DType(), value)
			left, err := SearchSorted(a, v, SearchLeft)
			if err != nil {
				return err.Error()
			}
			right, err := SearchSorted(a, v, SearchRight)
			if err != nil {
				return err.Error()
			}
			return fmt.Sprintf("left=%d right=%d", left, right)

		case "stats":
			var names []string
			td.ScanArgs(t, "names", &names)
			var sb strings.Builder
			for _, name := range names {
				st := statByName(t, name)
				v, ok := a.Statistics().Compute(st)
				if !ok {
					fmt.Fprintf(&sb, "%s: undefined\n", name)
					continue
				}
				fmt.Fprintf(&sb, "%s: %s\n", name, v)
			}
			return sb.String()

		default:
			return fmt.Sprintf("unknown command: %s", td.Cmd)
		}
	})
}

func statByName(t testing.TB, name string) Stat {
	for _, s := range AllStats {
		if s.String() == name {
			return s
		}
	}
	t.Fatalf("unknown stat %q", name)
	return 0
}
