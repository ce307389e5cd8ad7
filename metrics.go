// Copyright (c) 2025 hitoshi.mukai.b@gmail.com. All rights reserved.
// You are free to use this source code for any purpose. The copyright remains with the author.
// The author accepts no liability for any damages arising from the use of this source code.
//
// Last modified: 2026.10.19
//

package gnsscore

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Record kinds used as the "kind" label of store metrics
const (
	KindEph  = "eph"
	KindGeph = "geph"
	KindSeph = "seph"
	KindObs  = "obs"
)

// StoreMetrics holds the collectors updated by NavStore and ObsStore
// - All methods are no-ops on a nil receiver
type StoreMetrics struct {
	Inserted   *prometheus.CounterVec
	Duplicates *prometheus.CounterVec
	Records    *prometheus.GaugeVec
	Normalize  *prometheus.HistogramVec
}

// NewStoreMetrics creates the collectors and registers them on reg (nil: not registered)
func NewStoreMetrics(reg prometheus.Registerer) *StoreMetrics {
	m := &StoreMetrics{
		Inserted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gnsscore",
			Subsystem: "store",
			Name:      "inserted_records_total",
			Help:      "Number of records appended to the store.",
		}, []string{"kind"}),
		Duplicates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gnsscore",
			Subsystem: "store",
			Name:      "duplicate_records_total",
			Help:      "Number of duplicate records dropped by normalization.",
		}, []string{"kind"}),
		Records: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "gnsscore",
			Subsystem: "store",
			Name:      "records",
			Help:      "Current number of records in the store.",
		}, []string{"kind"}),
		Normalize: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "gnsscore",
			Subsystem: "store",
			Name:      "normalize_duration_seconds",
			Help:      "Time spent in sort, dedup and compaction.",
			Buckets:   prometheus.ExponentialBuckets(1e-5, 4, 10),
		}, []string{"kind"}),
	}
	if reg != nil {
		reg.MustRegister(m.Inserted, m.Duplicates, m.Records, m.Normalize)
	}
	return m
}

func (p *StoreMetrics) inserted(kind string, n int) {
	if p == nil {
		return
	}
	p.Inserted.WithLabelValues(kind).Add(float64(n))
	p.Records.WithLabelValues(kind).Add(float64(n))
}

func (p *StoreMetrics) normalized(kind string, dropped, count int, start time.Time) {
	if p == nil {
		return
	}
	p.Duplicates.WithLabelValues(kind).Add(float64(dropped))
	p.Records.WithLabelValues(kind).Set(float64(count))
	p.Normalize.WithLabelValues(kind).Observe(time.Since(start).Seconds())
}
