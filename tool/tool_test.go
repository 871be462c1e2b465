// Copyright 2025 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package tool

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
)

// run executes the tool with the given arguments and returns everything it
// printed.
func run(t *testing.T, args ...string) string {
	t.Helper()
	var buf bytes.Buffer
	stdout = &buf
	stderr = &buf
	osExit = func(int) {}
	defer func() {
		stdout = os.Stdout
		stderr = os.Stderr
		osExit = os.Exit
	}()

	c := &cobra.Command{}
	c.AddCommand(New().Commands...)
	c.SetArgs(args)
	c.SetOutput(&buf)
	if err := c.Execute(); err != nil {
		return err.Error()
	}
	return buf.String()
}

func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0644))
	return path
}

func lines(vals ...any) []byte {
	var sb strings.Builder
	for _, v := range vals {
		fmt.Fprintln(&sb, v)
	}
	return []byte(sb.String())
}

// treeLines returns the compressor IDs of the compression tree printed for a
// single file.
func treeLines(out string) []string {
	var ids []string
	for _, l := range strings.Split(out, "\n")[1:] {
		l = strings.TrimSpace(l)
		if l == "" || strings.HasPrefix(l, "+") || strings.HasPrefix(l, "|") {
			break
		}
		ids = append(ids, strings.Fields(l)[0])
	}
	return ids
}

func TestCompress(t *testing.T) {
	var vals []any
	for i := 0; i < 100; i++ {
		vals = append(vals, 42)
	}
	path := writeFile(t, "answers", lines(vals...))
	out := run(t, "compress", path)
	require.Contains(t, out, path)
	require.Contains(t, treeLines(out), "constant")
	require.Contains(t, out, "COMPRESSED")
	require.Contains(t, out, "i64")

	out = run(t, "compress", "--disable", "constant", "--type", "u16", path)
	require.NotContains(t, treeLines(out), "constant")
	require.Contains(t, out, "u16")
	require.NotContains(t, out, " 0B ")

	out = run(t, "describe", path)
	require.Contains(t, out, "colenc.constant(i64) len=100")
}

func TestCompressTypes(t *testing.T) {
	for _, tc := range []struct {
		typ  string
		data []byte
		want string
	}{
		{"i32?", lines(1, "null", 3, "null", 5), "i32?"},
		{"f64", lines(1.5, 2.25, 3, 4.75), "f64"},
		{"bool", lines(true, true, false, true), "bool"},
		{"utf8", lines("alpha", "beta", "alpha", "beta"), "utf8"},
		{"timestamp", lines("2024-01-02T03:04:05Z", 1_700_000_000_000_000), "ext(colenc.timestamp"},
	} {
		t.Run(tc.typ, func(t *testing.T) {
			path := writeFile(t, "values", tc.data)
			out := run(t, "compress", "--type", tc.typ, path)
			require.Contains(t, out, tc.want)
			require.NotContains(t, out, "line ")
		})
	}
}

func TestCompressRaw(t *testing.T) {
	data := make([]byte, 4*2048)
	for i := 0; i < 2048; i++ {
		binary.LittleEndian.PutUint32(data[4*i:], uint32(i%10))
	}
	path := writeFile(t, "raw", data)
	out := run(t, "compress", "--raw", "--type", "u32", "--seed", "3", path)
	require.Contains(t, out, "u32")
	require.Contains(t, out, "2048")

	out = run(t, "compress", "--raw", "--type", "u32?", path)
	require.Contains(t, out, "raw files hold non-nullable primitive values")

	odd := writeFile(t, "odd", []byte{1, 2, 3})
	out = run(t, "compress", "--raw", "--type", "u32", odd)
	require.Contains(t, out, "is not a multiple of 4")
}

func TestStats(t *testing.T) {
	path := writeFile(t, "ints", lines(1, 2, 3, 300, 3, 3))
	out := run(t, "stats", "--type", "u16", path)
	require.Contains(t, out, "run_count")
	require.Contains(t, out, "null_count")
	require.Contains(t, out, "u16 values per bit width")

	path = writeFile(t, "strings", lines("a", "b"))
	out = run(t, "stats", "--type", "utf8", path)
	require.Contains(t, out, "is_sorted")
	require.NotContains(t, out, "per bit width")
}

func TestErrors(t *testing.T) {
	out := run(t, "compress", filepath.Join(t.TempDir(), "missing"))
	require.Contains(t, out, "no such file or directory")

	path := writeFile(t, "bad", lines(1, "two"))
	out = run(t, "compress", path)
	require.Contains(t, out, "line 2")

	out = run(t, "compress", "--type", "decimal", path)
	require.Contains(t, out, `unknown type "decimal"`)

	out = run(t, "compress", "--byte-algorithm", "lz77", "--type", "utf8", path)
	require.Contains(t, out, "unknown compression setting")
}
