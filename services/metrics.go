package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// metricRoundsClosed counts rounds closed by either trigger path.
var metricRoundsClosed = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "habitbattle",
	Subsystem: "engine",
	Name:      "rounds_closed_total",
	Help:      "Total match rounds closed, by match type.",
}, []string{"match_type"})

// metricFinalizations counts settled matches by terminal outcome.
var metricFinalizations = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "habitbattle",
	Subsystem: "engine",
	Name:      "finalizations_total",
	Help:      "Total match finalizations, by match type and outcome.",
}, []string{"match_type", "outcome"})

// metricSweepDuration tracks how long the hourly progression sweep takes.
var metricSweepDuration = promauto.NewHistogram(prometheus.HistogramOpts{
	Namespace: "habitbattle",
	Subsystem: "sweeper",
	Name:      "sweep_duration_seconds",
	Help:      "Duration of a full progression sweep over active matches.",
	Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
})

// metricSweepErrors counts matches the sweep failed to advance.
var metricSweepErrors = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "habitbattle",
	Subsystem: "sweeper",
	Name:      "errors_total",
	Help:      "Total matches the sweep failed to advance, by match type.",
}, []string{"match_type"})

// metricSSEClients tracks currently connected reward stream subscribers.
var metricSSEClients = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: "habitbattle",
	Subsystem: "sse",
	Name:      "connected_clients",
	Help:      "Currently connected reward stream clients.",
})

// metricBadgesAwarded counts badge grants by badge code.
var metricBadgesAwarded = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "habitbattle",
	Subsystem: "engine",
	Name:      "badges_awarded_total",
	Help:      "Total badges awarded, by badge code.",
}, []string{"code"})
