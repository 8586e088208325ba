// Copyright 2023 Matrix Origin
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package v2

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	radixPartitionRowsCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mo",
			Subsystem: "radix",
			Name:      "partition_rows_total",
			Help:      "Total number of rows scattered into buckets.",
		}, []string{"phase"})
	RadixPartitionRowsCounter   = radixPartitionRowsCounter.WithLabelValues("partition")
	RadixRepartitionRowsCounter = radixPartitionRowsCounter.WithLabelValues("repartition")

	RadixJoinPairsCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "mo",
			Subsystem: "radix",
			Name:      "join_pairs_total",
			Help:      "Total number of index pairs produced by the bucket joins.",
		})

	RadixFlattenRowsCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "mo",
			Subsystem: "radix",
			Name:      "flatten_rows_total",
			Help:      "Total number of rows copied by flatten.",
		})

	radixPhaseDurationHistogram = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "mo",
			Subsystem: "radix",
			Name:      "phase_duration_seconds",
			Help:      "Bucketed histogram of radix join phase duration.",
			Buckets:   prometheus.ExponentialBuckets(0.00005, 2.0, 20),
		}, []string{"phase"})
	RadixHashDurationHistogram        = radixPhaseDurationHistogram.WithLabelValues("hash")
	RadixPartitionDurationHistogram   = radixPhaseDurationHistogram.WithLabelValues("partition")
	RadixRepartitionDurationHistogram = radixPhaseDurationHistogram.WithLabelValues("repartition")
	RadixBuildDurationHistogram       = radixPhaseDurationHistogram.WithLabelValues("build")
	RadixFlattenDurationHistogram     = radixPhaseDurationHistogram.WithLabelValues("flatten")
)

func initRadixMetrics() {
	registry.MustRegister(radixPartitionRowsCounter)
	registry.MustRegister(RadixJoinPairsCounter)
	registry.MustRegister(RadixFlattenRowsCounter)
	registry.MustRegister(radixPhaseDurationHistogram)
}

// AddRows adds n to c when metrics are enabled.
func AddRows(c prometheus.Counter, n int) {
	if enabled.Load() {
		c.Add(float64(n))
	}
}

// ObserveSince records the time elapsed from start when metrics are enabled.
func ObserveSince(h prometheus.Observer, start time.Time) {
	if enabled.Load() {
		h.Observe(time.Since(start).Seconds())
	}
}
