package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"nftmarket/core/events"
)

type MarketMetrics struct {
	eventsTotal        *prometheus.CounterVec
	rpcRequests        *prometheus.CounterVec
	rpcLatency         *prometheus.HistogramVec
	settlementFailures *prometheus.CounterVec
}

var (
	marketOnce     sync.Once
	marketRegistry *MarketMetrics
)

func Market() *MarketMetrics {
	marketOnce.Do(func() {
		marketRegistry = &MarketMetrics{
			eventsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "market_events_total",
				Help: "Count of emitted marketplace events by type.",
			}, []string{"type"}),
			rpcRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "market_rpc_requests_total",
				Help: "Count of JSON-RPC requests by method and outcome.",
			}, []string{"method", "outcome"}),
			rpcLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Name:    "market_rpc_request_duration_seconds",
				Help:    "Latency distribution for JSON-RPC handlers.",
				Buckets: prometheus.DefBuckets,
			}, []string{"method"}),
			settlementFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "market_settlement_failures_total",
				Help: "Count of operations rejected by a ledger leg, by operation.",
			}, []string{"operation"}),
		}
		prometheus.MustRegister(
			marketRegistry.eventsTotal,
			marketRegistry.rpcRequests,
			marketRegistry.rpcLatency,
			marketRegistry.settlementFailures,
		)
	})
	return marketRegistry
}

// RecordEvent counts an emitted marketplace event.
func (m *MarketMetrics) RecordEvent(eventType string) {
	if m == nil || eventType == "" {
		return
	}
	m.eventsTotal.WithLabelValues(eventType).Inc()
}

// ObserveRPC records the outcome and latency of an RPC method call.
func (m *MarketMetrics) ObserveRPC(method string, failed bool, duration time.Duration) {
	if m == nil {
		return
	}
	if method == "" {
		method = "unknown"
	}
	outcome := "success"
	if failed {
		outcome = "error"
	}
	m.rpcRequests.WithLabelValues(method, outcome).Inc()
	m.rpcLatency.WithLabelValues(method).Observe(duration.Seconds())
}

// RecordSettlementFailure counts an operation rejected by a ledger leg.
func (m *MarketMetrics) RecordSettlementFailure(operation string) {
	if m == nil || operation == "" {
		return
	}
	m.settlementFailures.WithLabelValues(operation).Inc()
}

// Emitter decorates an event emitter with per-type counters.
type Emitter struct {
	next    events.Emitter
	metrics *MarketMetrics
}

// NewEmitter wraps next so every emitted event is also counted.
func NewEmitter(next events.Emitter, metrics *MarketMetrics) *Emitter {
	return &Emitter{next: next, metrics: metrics}
}

func (e *Emitter) Emit(evt events.Event) {
	if e == nil {
		return
	}
	if evt != nil {
		e.metrics.RecordEvent(evt.EventType())
	}
	if e.next != nil {
		e.next.Emit(evt)
	}
}
