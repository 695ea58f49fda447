package server

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/njchilds90/goquad"
)

type metrics struct {
	toolCalls    *prometheus.CounterVec
	toolDuration *prometheus.HistogramVec
	solves       *prometheus.CounterVec
	intervals    *prometheus.HistogramVec
}

func newMetrics(reg prometheus.Registerer) *metrics {
	m := &metrics{
		toolCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "goquad",
			Name:      "tool_calls_total",
			Help:      "Tool calls handled, by tool and outcome.",
		}, []string{"tool", "outcome"}),
		toolDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "goquad",
			Name:      "tool_duration_seconds",
			Help:      "Time spent handling a tool call.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 10),
		}, []string{"tool"}),
		solves: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "goquad",
			Name:      "solves_total",
			Help:      "Adaptive solves, by dimension and convergence.",
		}, []string{"kind", "converged"}),
		intervals: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "goquad",
			Name:      "solve_intervals",
			Help:      "Interval count or grid dimension at which a solve stopped.",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 13),
		}, []string{"kind"}),
	}
	reg.MustRegister(m.toolCalls, m.toolDuration, m.solves, m.intervals)
	return m
}

func (m *metrics) observeSolve(kind string, r goquad.SolverResult) {
	m.solves.WithLabelValues(kind, strconv.FormatBool(r.IsConverged)).Inc()
	m.intervals.WithLabelValues(kind).Observe(float64(r.Intervals))
}
