// Package metrics exposes prometheus counters for engine observability.
//
// The headline consumer is sync authoring diagnostics: a sync that never
// fires is operationally indistinguishable from one that is correctly
// never applicable, so per-sync firing counters (including zero-valued
// ones, pre-registered at engine startup) are the way to spot dead rules.
//
// A nil *Metrics is a valid no-op receiver so the engine never has to
// branch on whether metrics are configured.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the engine's counters.
type Metrics struct {
	recordsAppended prometheus.Counter
	syncFirings     *prometheus.CounterVec
	framesDropped   *prometheus.CounterVec
	chainOverflows  prometheus.Counter
	chainFaults     prometheus.Counter
}

// New creates the counters and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		recordsAppended: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "concord_records_appended_total",
			Help: "Total action records appended to the log",
		}),
		syncFirings: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "concord_sync_firings_total",
			Help: "Total sync firings per sync (a firing is one frame dispatching)",
		}, []string{"sync"}),
		framesDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "concord_frames_dropped_total",
			Help: "Frames dropped during where evaluation per sync and stage",
		}, []string{"sync", "stage"}),
		chainOverflows: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "concord_chain_overflows_total",
			Help: "Causal chains aborted by the cascade depth guard",
		}),
		chainFaults: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "concord_chain_faults_total",
			Help: "Causal chains aborted by an uncaught collaborator fault",
		}),
	}
	reg.MustRegister(m.recordsAppended, m.syncFirings, m.framesDropped, m.chainOverflows, m.chainFaults)
	return m
}

// ObserveSync pre-registers a sync's firing counter at zero, so dead syncs
// show up in scrapes instead of being absent.
func (m *Metrics) ObserveSync(name string) {
	if m == nil {
		return
	}
	m.syncFirings.WithLabelValues(name)
}

// RecordAppended counts one appended record.
func (m *Metrics) RecordAppended() {
	if m == nil {
		return
	}
	m.recordsAppended.Inc()
}

// SyncFired counts one frame dispatched for a sync.
func (m *Metrics) SyncFired(name string) {
	if m == nil {
		return
	}
	m.syncFirings.WithLabelValues(name).Inc()
}

// FrameDropped counts one frame dropped at a where stage ("query_miss",
// "shape_mismatch", "filter").
func (m *Metrics) FrameDropped(sync, stage string) {
	if m == nil {
		return
	}
	m.framesDropped.WithLabelValues(sync, stage).Inc()
}

// ChainOverflow counts one chain aborted by the depth guard.
func (m *Metrics) ChainOverflow() {
	if m == nil {
		return
	}
	m.chainOverflows.Inc()
}

// ChainFault counts one chain aborted by a collaborator fault.
func (m *Metrics) ChainFault() {
	if m == nil {
		return
	}
	m.chainFaults.Inc()
}
