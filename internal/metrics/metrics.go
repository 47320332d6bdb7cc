// Package metrics provides Prometheus instrumentation for the account engine.
package metrics

import (
	"bufio"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// LedgerOpsTotal counts ledger operations by operation and outcome
	// ("ok" or the error kind).
	LedgerOpsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tragent_ledger_ops_total",
		Help: "Total ledger operations applied or rejected",
	}, []string{"op", "result"})

	// LedgerOpLatency tracks time spent holding the account lock per operation.
	LedgerOpLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "tragent_ledger_op_latency_seconds",
		Help:    "Ledger operation latency in seconds",
		Buckets: []float64{0.00001, 0.0001, 0.001, 0.01, 0.1},
	}, []string{"op"})

	// AccountBalance tracks the current simulated balance.
	AccountBalance = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "tragent_account_balance",
		Help: "Current simulated account balance",
	})

	// OpenPositions tracks the number of held positions.
	OpenPositions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "tragent_open_positions",
		Help: "Number of currently held positions",
	})

	// PersistFailures counts state load and save failures. Saves never
	// fail a ledger operation, so this is the only place they show up
	// besides the log.
	PersistFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tragent_persist_failures_total",
		Help: "State persistence failures by operation",
	}, []string{"op"})

	// PersistWrites counts successful state writes.
	PersistWrites = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tragent_persist_writes_total",
		Help: "Successful state writes",
	})

	// PositionLimitRejections counts buys rejected by the exposure limiter.
	PositionLimitRejections = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tragent_position_limit_rejections_total",
		Help: "Buys rejected by the exposure limiter",
	}, []string{"limit"})

	// WebSocketClients tracks connected WebSocket clients.
	WebSocketClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "tragent_websocket_clients",
		Help: "Number of connected WebSocket clients",
	})

	// WebSocketDropped counts events dropped because the hub buffer was full.
	WebSocketDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tragent_websocket_dropped_total",
		Help: "Events dropped by the WebSocket hub",
	})

	// AutomatonRequests counts automaton provider calls by method and outcome.
	AutomatonRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tragent_automaton_requests_total",
		Help: "Automaton provider calls",
	}, []string{"method", "result"})

	// HTTPRequestsTotal counts HTTP requests by method, path, and status.
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tragent_http_requests_total",
		Help: "Total HTTP requests",
	}, []string{"method", "path", "status"})

	// HTTPRequestDuration tracks request duration by method and path.
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "tragent_http_request_duration_seconds",
		Help:    "HTTP request duration in seconds",
		Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
	}, []string{"method", "path"})
)

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware returns an HTTP middleware that records request metrics.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(wrapped, r)
		duration := time.Since(start).Seconds()

		// Route pattern keeps the path label low-cardinality.
		path := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				path = pattern
			}
		}
		HTTPRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(wrapped.status)).Inc()
		HTTPRequestDuration.WithLabelValues(r.Method, path).Observe(duration)
	})
}

// statusWriter wraps http.ResponseWriter to capture the status code.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (w *statusWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}

// Hijack passes through to the underlying writer for WebSocket upgrades.
func (w *statusWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("metrics: response writer does not support hijacking")
	}
	return h.Hijack()
}
