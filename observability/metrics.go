package observability

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type ledgerMetrics struct {
	registry    *prometheus.Registry
	rpcRequests *prometheus.CounterVec
	rpcFailures *prometheus.CounterVec
	operations  *prometheus.CounterVec
}

var (
	metricsOnce sync.Once
	metrics     *ledgerMetrics
)

func ledgerRegistry() *ledgerMetrics {
	metricsOnce.Do(func() {
		registry := prometheus.NewRegistry()
		m := &ledgerMetrics{
			registry: registry,
			rpcRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "lumifi",
				Subsystem: "rpc",
				Name:      "requests_total",
				Help:      "Total JSON-RPC requests segmented by method.",
			}, []string{"method"}),
			rpcFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "lumifi",
				Subsystem: "rpc",
				Name:      "failures_total",
				Help:      "Total JSON-RPC requests rejected by the ledger segmented by method.",
			}, []string{"method"}),
			operations: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "lumifi",
				Subsystem: "ledger",
				Name:      "operations_total",
				Help:      "Total ledger state transitions segmented by operation and outcome.",
			}, []string{"operation", "outcome"}),
		}
		registry.MustRegister(m.rpcRequests, m.rpcFailures, m.operations)
		metrics = m
	})
	return metrics
}

// RPCServed records a dispatched JSON-RPC request.
func RPCServed(method string) {
	ledgerRegistry().rpcRequests.WithLabelValues(method).Inc()
}

// RPCFailed records a JSON-RPC request the ledger rejected.
func RPCFailed(method string) {
	ledgerRegistry().rpcFailures.WithLabelValues(method).Inc()
}

// OperationObserved records the outcome of a ledger state transition.
func OperationObserved(operation string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	ledgerRegistry().operations.WithLabelValues(operation, outcome).Inc()
}

// MetricsHandler returns the HTTP handler serving the Prometheus exposition
// endpoint for the ledger's registry.
func MetricsHandler() http.Handler {
	return promhttp.HandlerFor(ledgerRegistry().registry, promhttp.HandlerOpts{})
}
