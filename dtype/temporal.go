// Copyright 2025 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package dtype

import "github.com/cockroachdb/errors"

// TimestampID is the extension identifier of timestamp columns. Timestamps
// are stored as signed 64-bit integers counting TimeUnits since the Unix
// epoch.
const TimestampID = "colenc.timestamp"

// TimeUnit is the resolution of a timestamp.
type TimeUnit uint8

const (
	Nanoseconds TimeUnit = iota
	Microseconds
	Milliseconds
	Seconds
)

// String implements fmt.Stringer.
func (u TimeUnit) String() string {
	switch u {
	case Nanoseconds:
		return "ns"
	case Microseconds:
		return "us"
	case Milliseconds:
		return "ms"
	case Seconds:
		return "s"
	default:
		return "unknown"
	}
}

// PerSecond returns how many units make up one second.
func (u TimeUnit) PerSecond() int64 {
	switch u {
	case Nanoseconds:
		return 1_000_000_000
	case Microseconds:
		return 1_000_000
	case Milliseconds:
		return 1_000
	default:
		return 1
	}
}

// TimestampOptions are the parameters of a timestamp extension type.
type TimestampOptions struct {
	Unit     TimeUnit
	TimeZone string
}

// Timestamp returns the extension DType of timestamps with the given unit and
// optional time zone.
func Timestamp(unit TimeUnit, tz string, n Nullability) DType {
	md := make([]byte, 0, 1+len(tz))
	md = append(md, byte(unit))
	md = append(md, tz...)
	return Extension(ExtDType{
		ID:       TimestampID,
		Metadata: md,
		Storage:  Primitive(I64, n),
	}, n)
}

// IsTimestamp returns true if d is a timestamp extension type.
func IsTimestamp(d DType) bool {
	return d.kind == KindExtension && d.ext.ID == TimestampID
}

// ParseTimestamp decodes the options of a timestamp extension type.
func ParseTimestamp(d DType) (TimestampOptions, error) {
	if !IsTimestamp(d) {
		return TimestampOptions{}, errors.Newf("%s is not a timestamp dtype", d)
	}
	md := d.ext.Metadata
	if len(md) < 1 || TimeUnit(md[0]) > Seconds {
		return TimestampOptions{}, errors.Newf("invalid timestamp metadata %x", md)
	}
	return TimestampOptions{Unit: TimeUnit(md[0]), TimeZone: string(md[1:])}, nil
}
