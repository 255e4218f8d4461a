// Package metrics exposes the engine's Prometheus collectors
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	BidsAccepted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "auction_bids_accepted_total",
		Help: "Bids appended to a ledger, by bid type.",
	}, []string{"type"})

	BidsRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "auction_bids_rejected_total",
		Help: "Bids refused by business rules, by reason.",
	}, []string{"reason"})

	Transitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "auction_status_transitions_total",
		Help: "Auction status changes, by target status.",
	}, []string{"to"})

	AdmissionWait = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "auction_admission_wait_seconds",
		Help:    "Time spent waiting for an auction's critical section.",
		Buckets: prometheus.ExponentialBuckets(0.0001, 4, 8),
	})

	AdmissionTimeouts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "auction_admission_timeouts_total",
		Help: "Callers that gave up before being admitted.",
	})

	// DownstreamFailures flags store and notification failures that did not
	// roll back an already committed ledger change.
	DownstreamFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "auction_downstream_failures_total",
		Help: "Failed writes to external collaborators, by collaborator.",
	}, []string{"collaborator"})

	AutoBidSteps = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "auction_autobid_cascade_steps",
		Help:    "Counter-bids accepted per auto-bid cascade.",
		Buckets: []float64{0, 1, 2, 3, 5, 8, 13},
	})
)
