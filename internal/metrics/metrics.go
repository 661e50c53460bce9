// Package metrics implements Prometheus metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// FramesTotal counts received frames by ingress classification
	FramesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "u2ctl_frames_total",
			Help: "Total number of received Ethernet frames by class",
		},
		[]string{"class"},
	)

	// SubpacketsTotal counts dispatched subpackets by opcode and outcome
	SubpacketsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "u2ctl_subpackets_total",
			Help: "Total number of control subpackets dispatched",
		},
		[]string{"opcode", "result"},
	)

	// TransmitsTotal counts reply transmissions by completion status
	TransmitsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "u2ctl_transmits_total",
			Help: "Total number of reply frames handed to the buffer pool",
		},
		[]string{"status"},
	)

	// TransmitWaitSeconds measures time spent in each transmit wait state
	TransmitWaitSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "u2ctl_transmit_wait_seconds",
			Help:    "Time spent busy-waiting in transmit states",
			Buckets: prometheus.ExponentialBuckets(0.000001, 4, 10), // 1µs to ~0.26s
		},
		[]string{"state"},
	)

	// LinkUp tracks the Ethernet link state (0=down, 1=up)
	LinkUp = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "u2ctl_link_up",
			Help: "Ethernet link state reported by the PHY",
		},
	)
)

// Subpacket results.
const (
	ResultOK        = "ok"
	ResultFailed    = "failed"
	ResultNoRoom    = "no_room"
	ResultUnknown   = "unknown_opcode"
	ResultMalformed = "malformed"
)

// Frame classes.
const (
	ClassControl = "control"
	ClassData    = "data"
	ClassIgnored = "ignored"
)
