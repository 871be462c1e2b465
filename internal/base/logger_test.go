// Copyright 2025 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package base

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestInMemLogger(t *testing.T) {
	var l InMemLogger
	l.Infof("chunk %d", 1)
	l.Errorf("chunk %d: %s", 2, "failed")
	require.Equal(t, []string{"chunk 1", "chunk 2: failed"}, l.Lines())

	require.Panics(t, func() { l.Fatalf("boom") })
	require.Equal(t, "boom", l.Lines()[2])

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			l.Infof("x")
		}()
	}
	wg.Wait()
	require.Len(t, l.Lines(), 11)
}

func TestNoopLogger(t *testing.T) {
	var l Logger = NoopLogger{}
	l.Infof("ignored")
	l.Errorf("ignored")
	require.PanicsWithValue(t, "fatal 3", func() { l.Fatalf("fatal %d", 3) })
}
