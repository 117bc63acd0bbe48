// Package metrics defines the Prometheus collectors recorded during an
// all-pairs run and exposes them for scraping or for a Pushgateway push.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus collectors for a run.
type Metrics struct {
	Registry *prometheus.Registry

	ChunksTotal        *prometheus.CounterVec
	ChunkDuration      prometheus.Histogram
	ChunkIndexBytes    prometheus.Histogram
	ChunksInFlight     prometheus.Gauge
	VectorsRead        *prometheus.CounterVec
	CandidatesTotal    prometheus.Counter
	ComparisonsTotal   prometheus.Counter
	PairsEmittedTotal  prometheus.Counter
	PairsFilteredTotal prometheus.Counter
	DuplicateKeysTotal prometheus.Counter
	InternedTokens     *prometheus.GaugeVec
	SinkWritesTotal    *prometheus.CounterVec
	RunDuration        prometheus.Gauge
}

// New creates all collectors and registers them on a fresh registry, so that
// several runs in one process (tests included) never collide.
func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		ChunksTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "allpairs_chunks_total",
				Help: "Total chunks processed by status (ok, error).",
			},
			[]string{"status"},
		),
		ChunkDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "allpairs_chunk_duration_seconds",
				Help:    "Time to compare one A chunk against the whole B side.",
				Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60, 300},
			},
		),
		ChunkIndexBytes: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "allpairs_chunk_index_bytes",
				Help:    "Estimated size of the inverted index built for one A chunk.",
				Buckets: prometheus.ExponentialBuckets(1<<10, 4, 10),
			},
		),
		ChunksInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "allpairs_chunks_in_flight",
				Help: "Chunks read but not yet written to the output.",
			},
		),
		VectorsRead: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "allpairs_vectors_read_total",
				Help: "Entry vectors read by side (a, b).",
			},
			[]string{"side"},
		),
		CandidatesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "allpairs_candidates_total",
				Help: "Candidate pairs produced by posting list unions.",
			},
		),
		ComparisonsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "allpairs_comparisons_total",
				Help: "Exact similarity evaluations.",
			},
		),
		PairsEmittedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "allpairs_pairs_emitted_total",
				Help: "Pairs accepted by the filter and written.",
			},
		),
		PairsFilteredTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "allpairs_pairs_filtered_total",
				Help: "Scored pairs rejected by the filter.",
			},
		),
		DuplicateKeysTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "allpairs_duplicate_keys_total",
				Help: "Duplicate keys merged while loading auxiliary statistics.",
			},
		),
		InternedTokens: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "allpairs_interned_tokens",
				Help: "Distinct strings per interning table.",
			},
			[]string{"table"},
		),
		SinkWritesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "allpairs_sink_writes_total",
				Help: "Pairs written per output sink.",
			},
			[]string{"sink"},
		),
		RunDuration: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "allpairs_run_duration_seconds",
				Help: "Wall time of the last completed run.",
			},
		),
	}

	m.Registry.MustRegister(
		m.ChunksTotal,
		m.ChunkDuration,
		m.ChunkIndexBytes,
		m.ChunksInFlight,
		m.VectorsRead,
		m.CandidatesTotal,
		m.ComparisonsTotal,
		m.PairsEmittedTotal,
		m.PairsFilteredTotal,
		m.DuplicateKeysTotal,
		m.InternedTokens,
		m.SinkWritesTotal,
		m.RunDuration,
	)

	return m
}

// Handler returns the Prometheus scrape HTTP handler for this registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}
