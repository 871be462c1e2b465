// Copyright 2024 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

//go:build race

// Package buildtags exposes the build tags the module was compiled with as
// constants.
package buildtags

// Race is true if we were built with the "race" build tag.
const Race = true
