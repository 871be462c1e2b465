// Copyright 2019 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package tool

import (
	"io"
	"os"
	"strings"

	"github.com/cockroachdb/colenc/dtype"
	"github.com/cockroachdb/crlib/crhumanize"
	"github.com/cockroachdb/errors"
)

var stdout = io.Writer(os.Stdout)
var stderr = io.Writer(os.Stderr)
var osExit = os.Exit

// dtypeFlag is a pflag.Value holding the DType of the values read from input
// files: bool, utf8, binary, a primitive type name or "timestamp", with an
// optional trailing '?' to read "null" lines as nulls.
type dtypeFlag struct {
	name string
	dt   dtype.DType
}

func (f *dtypeFlag) String() string {
	return f.name
}

func (f *dtypeFlag) Type() string {
	return "dtype"
}

func (f *dtypeFlag) Set(name string) error {
	n := dtype.NonNullable
	s := name
	if strings.HasSuffix(s, "?") {
		n = dtype.Nullable
		s = strings.TrimSuffix(s, "?")
	}
	switch s {
	case "bool":
		f.dt = dtype.Bool(n)
	case "utf8":
		f.dt = dtype.Utf8(n)
	case "binary":
		f.dt = dtype.Binary(n)
	case "timestamp":
		f.dt = dtype.Timestamp(dtype.Microseconds, "", n)
	default:
		p, err := dtype.ParsePType(s)
		if err != nil {
			return errors.Wrapf(err, "unknown type %q", name)
		}
		f.dt = dtype.Primitive(p, n)
	}
	f.name = name
	return nil
}

func (f *dtypeFlag) mustSet(name string) {
	if err := f.Set(name); err != nil {
		panic(err)
	}
}

func formatBytes(n int) string {
	return string(crhumanize.Bytes(int64(n), crhumanize.Compact, crhumanize.OmitI))
}
