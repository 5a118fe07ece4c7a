// Package metrics exposes the Prometheus collectors for the engine, the
// cache and the persister. Collectors register with the default registry on
// import; `cueline run` serves them on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ticksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cueline_engine_ticks_total",
		Help: "Total number of engine ticks processed",
	})

	commandsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cueline_engine_commands_total",
		Help: "Engine commands by name and outcome",
	}, []string{"command", "outcome"}) // outcome=ok|rejected|error

	endActionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cueline_engine_end_actions_total",
		Help: "End actions fired when an event timer finished",
	}, []string{"action"})

	playback = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "cueline_runtime_playback",
		Help: "Current playback state (1 for the active state, 0 otherwise)",
	}, []string{"state"})

	offsetMs = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "cueline_runtime_offset_ms",
		Help: "Current schedule offset in milliseconds (positive is ahead)",
	})

	commitsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cueline_cache_commits_total",
		Help: "Cache commits by whether metadata was re-derived",
	}, []string{"processed"})

	rebuildsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cueline_cache_rebuilds_total",
		Help: "Cache rebuilds by reason",
	}, []string{"reason"}) // reason=stale|consistency|reload

	revision = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "cueline_cache_revision",
		Help: "Revision of the current rundown",
	})

	persistTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cueline_persist_writes_total",
		Help: "Persister writes by kind and outcome",
	}, []string{"kind", "outcome"}) // outcome=ok|skipped|error

	persistQueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "cueline_persist_queue_depth",
		Help: "Pending persister jobs after coalescing",
	})
)

var playbackStates = []string{"stop", "armed", "play", "pause"}

// IncTick records one processed tick.
func IncTick() {
	ticksTotal.Inc()
}

// IncCommand records a command outcome.
func IncCommand(command, outcome string) {
	if command == "" {
		command = "unknown"
	}
	commandsTotal.WithLabelValues(command, outcome).Inc()
}

// IncEndAction records a fired end action.
func IncEndAction(action string) {
	if action == "" {
		action = "none"
	}
	endActionsTotal.WithLabelValues(action).Inc()
}

// SetPlayback marks state as the active playback state.
func SetPlayback(state string) {
	for _, s := range playbackStates {
		v := 0.0
		if s == state {
			v = 1
		}
		playback.WithLabelValues(s).Set(v)
	}
}

// SetOffset records the current schedule offset.
func SetOffset(ms int64) {
	offsetMs.Set(float64(ms))
}

// IncCommit records a cache commit.
func IncCommit(processed bool) {
	label := "false"
	if processed {
		label = "true"
	}
	commitsTotal.WithLabelValues(label).Inc()
}

// IncRebuild records a cache rebuild.
func IncRebuild(reason string) {
	rebuildsTotal.WithLabelValues(reason).Inc()
}

// SetRevision records the revision of the current rundown.
func SetRevision(rev int64) {
	revision.Set(float64(rev))
}

// IncPersist records a persister write outcome.
func IncPersist(kind, outcome string) {
	persistTotal.WithLabelValues(kind, outcome).Inc()
}

// SetPersistQueueDepth records the persister backlog.
func SetPersistQueueDepth(n int) {
	persistQueueDepth.Set(float64(n))
}
