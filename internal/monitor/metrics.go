package monitor

import "github.com/prometheus/client_golang/prometheus"

// Metrics exposes pipeline health to the /metrics endpoint.
type Metrics struct {
	SnapshotsTotal *prometheus.CounterVec
	DeriveSeconds  prometheus.Histogram
	CollectionDocs *prometheus.GaugeVec
	PeopleInside   prometheus.Gauge
	FlaggedUsers   prometheus.Gauge
}

// NewMetrics registers the pipeline metrics on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		SnapshotsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "motorpass_snapshots_total",
			Help: "Snapshots received per collection.",
		}, []string{"collection"}),
		DeriveSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "motorpass_derive_seconds",
			Help:    "Time spent re-deriving dashboard state from a snapshot.",
			Buckets: prometheus.DefBuckets,
		}),
		CollectionDocs: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "motorpass_collection_docs",
			Help: "Documents in the latest snapshot per collection.",
		}, []string{"collection"}),
		PeopleInside: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "motorpass_people_inside",
			Help: "Deduplicated presence records currently IN.",
		}),
		FlaggedUsers: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "motorpass_overtime_flagged",
			Help: "Open presence records currently flagged for overtime.",
		}),
	}
	reg.MustRegister(m.SnapshotsTotal, m.DeriveSeconds, m.CollectionDocs, m.PeopleInside, m.FlaggedUsers)
	return m
}
