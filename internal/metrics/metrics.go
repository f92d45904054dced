// Package metrics exposes Prometheus instrumentation for the mesh and
// graph, grounded on the teacher's internal/escrow/metrics.go
// promauto-registered CounterVec/GaugeVec/HistogramVec pattern.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds every Prometheus collector the relay exposes on /metrics.
type Metrics struct {
	PeersConnected prometheus.Gauge
	FramesIn       *prometheus.CounterVec
	FramesOut      *prometheus.CounterVec
	FramesDropped  *prometheus.CounterVec
	MergeDuration  prometheus.Histogram
	GraphNodes     prometheus.Gauge
	DedupSize      prometheus.Gauge
}

// New creates and registers every collector.
func New() *Metrics {
	return &Metrics{
		PeersConnected: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "gun_mesh_peers_connected",
			Help: "Number of currently connected mesh peers",
		}),
		FramesIn: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gun_mesh_frames_in_total",
				Help: "Total number of DAM frames received",
			},
			[]string{"type"}, // type: data, dam_hi, dam_bye, dam_err
		),
		FramesOut: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gun_mesh_frames_out_total",
				Help: "Total number of DAM frames sent",
			},
			[]string{"type"},
		),
		FramesDropped: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gun_mesh_frames_dropped_total",
				Help: "Total number of frames dropped by dedup or size limits",
			},
			[]string{"reason"}, // reason: duplicate, too_big
		),
		MergeDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "gun_graph_merge_duration_seconds",
			Help:    "Duration of HAM merge operations",
			Buckets: prometheus.DefBuckets,
		}),
		GraphNodes: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "gun_graph_nodes",
			Help: "Approximate number of distinct souls held in the local graph",
		}),
		DedupSize: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "gun_mesh_dedup_entries",
			Help: "Current number of entries tracked by the dedup set",
		}),
	}
}

// RecordFrameIn increments the inbound frame counter for the given type.
func (m *Metrics) RecordFrameIn(frameType string) {
	m.FramesIn.WithLabelValues(frameType).Inc()
}

// RecordFrameOut increments the outbound frame counter for the given type.
func (m *Metrics) RecordFrameOut(frameType string) {
	m.FramesOut.WithLabelValues(frameType).Inc()
}

// RecordDropped increments the dropped-frame counter for the given reason.
func (m *Metrics) RecordDropped(reason string) {
	m.FramesDropped.WithLabelValues(reason).Inc()
}

// SetPeersConnected updates the connected-peer gauge.
func (m *Metrics) SetPeersConnected(n int) {
	m.PeersConnected.Set(float64(n))
}

// SetGraphNodes updates the graph-size gauge.
func (m *Metrics) SetGraphNodes(n int) {
	m.GraphNodes.Set(float64(n))
}

// SetDedupSize updates the dedup-set-size gauge.
func (m *Metrics) SetDedupSize(n int) {
	m.DedupSize.Set(float64(n))
}

// ObserveMergeDuration records a HAM merge's wall-clock duration in
// seconds.
func (m *Metrics) ObserveMergeDuration(seconds float64) {
	m.MergeDuration.Observe(seconds)
}
