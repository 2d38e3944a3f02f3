// Package metrics exposes prometheus collectors for the join lifecycle.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "meet"

// Attempt kinds for JoinAttempts.
const (
	KindJoin    = "join"
	KindRejoin  = "rejoin"
	KindRestart = "restart"
)

type Metrics struct {
	SignatureFetches *prometheus.CounterVec
	JoinAttempts     *prometheus.CounterVec
	HelpRequests     *prometheus.CounterVec
	TabsConnected    prometheus.Gauge
}

// New builds the collectors and registers them on reg. A nil reg skips
// registration, which keeps tests independent from the default registry.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		SignatureFetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "signature_fetch_total",
			Help:      "Signature service calls by outcome.",
		}, []string{"outcome"}),
		JoinAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "join_attempts_total",
			Help:      "SDK join attempts by kind and outcome.",
		}, []string{"kind", "outcome"}),
		HelpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "help_requests_total",
			Help:      "Help signals relayed to the parent frame by outcome.",
		}, []string{"outcome"}),
		TabsConnected: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "tabs_connected",
			Help:      "Browser tabs with an open SDK bridge.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.SignatureFetches, m.JoinAttempts, m.HelpRequests, m.TabsConnected)
	}
	return m
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

func (m *Metrics) ObserveFetch(err error) {
	if m == nil {
		return
	}
	m.SignatureFetches.WithLabelValues(outcome(err)).Inc()
}

func (m *Metrics) ObserveJoin(kind string, err error) {
	if m == nil {
		return
	}
	m.JoinAttempts.WithLabelValues(kind, outcome(err)).Inc()
}

func (m *Metrics) ObserveHelp(err error) {
	if m == nil {
		return
	}
	m.HelpRequests.WithLabelValues(outcome(err)).Inc()
}

func (m *Metrics) TabOpened() {
	if m == nil {
		return
	}
	m.TabsConnected.Inc()
}

func (m *Metrics) TabClosed() {
	if m == nil {
		return
	}
	m.TabsConnected.Dec()
}
