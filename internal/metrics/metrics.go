package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "octarcade"

// Label names
const (
	LabelModule   = "module"
	LabelResult   = "result"
	LabelGame     = "game"
	LabelKind     = "kind"
	LabelOutcome  = "outcome"
	LabelFunction = "function"
	LabelMethod   = "method"
	LabelPath     = "path"
	LabelStatus   = "status"
)

// Feed metrics
var (
	FeedPolls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "feed_polls_total",
			Help:      "Event feed polls by module and result",
		},
		[]string{LabelModule, LabelResult},
	)

	FeedGaps = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "feed_gaps_total",
			Help:      "Polls that could not page back to the last delivered event",
		},
		[]string{LabelModule},
	)
)

// Game state metrics
var (
	EventsApplied = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_applied_total",
			Help:      "Events that produced a state transition",
		},
		[]string{LabelGame, LabelKind},
	)

	EventsIgnored = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_ignored_total",
			Help:      "Events that were not a valid transition from the current state",
		},
		[]string{LabelGame, LabelKind},
	)

	Settlements = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "settlements_total",
			Help:      "Settled sessions by outcome",
		},
		[]string{LabelGame, LabelOutcome},
	)

	Submissions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "submissions_total",
			Help:      "Transaction submissions by function and result",
		},
		[]string{LabelGame, LabelFunction, LabelResult},
	)

	CrashClockRunning = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "crash_clock_running",
			Help:      "1 while the local crash multiplier clock is ticking",
		},
	)
)

// HTTP metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status",
		},
		[]string{LabelMethod, LabelPath, LabelStatus},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{LabelMethod, LabelPath},
	)
)
