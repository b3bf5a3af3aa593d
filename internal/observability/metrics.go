package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce        sync.Once
	authAttemptsTotal   *prometheus.CounterVec
	gateDenialsTotal    *prometheus.CounterVec
	requestsTotal       *prometheus.CounterVec
	latencySeconds      *prometheus.HistogramVec
	codeRedemptionTotal *prometheus.CounterVec
	chatConnections     prometheus.Counter
	chatMessagesTotal   *prometheus.CounterVec
)

// RegisterMetrics initialises the Prometheus collectors used across the API.
func RegisterMetrics() {
	registerOnce.Do(func() {
		authAttemptsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "auth_verify_attempts_total",
			Help: "Token verification attempts by strategy and outcome.",
		}, []string{"strategy", "outcome"})

		gateDenialsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "auth_gate_denials_total",
			Help: "Requests rejected by the authorization gate.",
		}, []string{"kind"})

		requestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of API requests served.",
		}, []string{"method", "route", "status"})

		latencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_latency_seconds",
			Help:    "Latency distribution for API requests.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0},
		}, []string{"method", "route"})

		codeRedemptionTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "teacher_code_redemptions_total",
			Help: "Teacher-code redemption attempts by outcome.",
		}, []string{"outcome"})

		chatConnections = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "chat_connections_total",
			Help: "Websocket chat connections accepted.",
		})

		chatMessagesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "chat_messages_sent_total",
			Help: "Chat messages persisted and broadcast, by type.",
		}, []string{"type"})

		prometheus.MustRegister(authAttemptsTotal, gateDenialsTotal, requestsTotal, latencySeconds,
			codeRedemptionTotal, chatConnections, chatMessagesTotal)
	})
}

// AuthAttempts exposes the verification attempt counter.
func AuthAttempts() *prometheus.CounterVec {
	RegisterMetrics()
	return authAttemptsTotal
}

// GateDenials exposes the authorization denial counter.
func GateDenials() *prometheus.CounterVec {
	RegisterMetrics()
	return gateDenialsTotal
}

// Requests exposes the request counter.
func Requests() *prometheus.CounterVec {
	RegisterMetrics()
	return requestsTotal
}

// Latency exposes the latency histogram.
func Latency() *prometheus.HistogramVec {
	RegisterMetrics()
	return latencySeconds
}

// CodeRedemptions exposes the teacher-code redemption counter.
func CodeRedemptions() *prometheus.CounterVec {
	RegisterMetrics()
	return codeRedemptionTotal
}

// ChatConnections exposes the websocket connection counter.
func ChatConnections() prometheus.Counter {
	RegisterMetrics()
	return chatConnections
}

// ChatMessages exposes the chat message counter.
func ChatMessages() *prometheus.CounterVec {
	RegisterMetrics()
	return chatMessagesTotal
}
