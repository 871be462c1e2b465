// Copyright 2025 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package compress

import "github.com/prometheus/client_golang/prometheus"

// Metrics records the decisions of a SamplingCompressor.
type Metrics struct {
	// Chosen counts, per compressor ID, the arrays compressed by it. Arrays
	// left as is are counted under "none".
	Chosen *prometheus.CounterVec
	// Ratio records the compressed size of every array compressed at the top
	// level as a fraction of its original size.
	Ratio prometheus.Histogram
	// SampledElements counts the elements compressed while searching for
	// encodings.
	SampledElements prometheus.Counter
}

// NewMetrics returns unregistered metrics.
func NewMetrics() *Metrics {
	return &Metrics{
		Chosen: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "colenc",
			Subsystem: "compress",
			Name:      "chosen_total",
			Help:      "Number of arrays compressed by each compressor.",
		}, []string{"compressor"}),
		Ratio: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "colenc",
			Subsystem: "compress",
			Name:      "ratio",
			Help:      "Compressed size as a fraction of the original size.",
			Buckets:   prometheus.LinearBuckets(0.05, 0.05, 20),
		}),
		SampledElements: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "colenc",
			Subsystem: "compress",
			Name:      "sampled_elements_total",
			Help:      "Number of elements compressed while searching for encodings.",
		}),
	}
}

// Register registers every metric with r.
func (m *Metrics) Register(r prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{m.Chosen, m.Ratio, m.SampledElements} {
		if err := r.Register(c); err != nil {
			return err
		}
	}
	return nil
}

func (m *Metrics) recordChosen(id string) {
	if m == nil {
		return
	}
	if id == "" {
		id = "none"
	}
	m.Chosen.WithLabelValues(id).Inc()
}

func (m *Metrics) recordRatio(compressed, original int) {
	if m == nil || original == 0 {
		return
	}
	m.Ratio.Observe(float64(compressed) / float64(original))
}

func (m *Metrics) recordSample(n int) {
	if m == nil {
		return
	}
	m.SampledElements.Add(float64(n))
}
