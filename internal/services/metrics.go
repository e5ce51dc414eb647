package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all custom Prometheus metrics for the application
type Metrics struct {
	// WebSocket metrics
	WebSocketConnections prometheus.Gauge
	WebSocketMessages    *prometheus.CounterVec

	// Turn metrics
	Turns          prometheus.Counter
	TurnLatency    prometheus.Histogram
	TurnErrors     *prometheus.CounterVec
	ToolDispatches *prometheus.CounterVec

	// Fan-out metrics
	Broadcasts prometheus.Counter

	// Connection manager reference for dynamic metrics
	connManager *ConnectionManager
}

var globalMetrics *Metrics

// InitMetrics initializes the Prometheus metrics
func InitMetrics(connManager *ConnectionManager) *Metrics {
	if globalMetrics != nil {
		return globalMetrics
	}

	metrics := &Metrics{
		connManager: connManager,

		// WebSocket active connections (gauge - can go up and down)
		WebSocketConnections: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "taskmate_websocket_connections_active",
			Help: "Number of active WebSocket connections",
		}),

		// WebSocket messages by type (counter - only goes up)
		WebSocketMessages: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "taskmate_websocket_messages_total",
			Help: "Total number of WebSocket messages by type",
		}, []string{"type", "direction"}), // direction: "inbound" or "outbound"

		// Conversation turns counter
		Turns: promauto.NewCounter(prometheus.CounterOpts{
			Name: "taskmate_turns_total",
			Help: "Total number of conversation turns processed",
		}),

		// Turn latency histogram
		TurnLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "taskmate_turn_duration_seconds",
			Help:    "Conversation turn latency in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120}, // up to 2 minutes for model responses
		}),

		// Turn errors by type
		TurnErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "taskmate_turn_errors_total",
			Help: "Total number of turn errors by type",
		}, []string{"error_type"}),

		// Tool dispatches by tool name
		ToolDispatches: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "taskmate_tool_dispatches_total",
			Help: "Total number of tool dispatches by tool name",
		}, []string{"tool"}),

		// Snapshot broadcasts
		Broadcasts: promauto.NewCounter(prometheus.CounterOpts{
			Name: "taskmate_task_broadcasts_total",
			Help: "Total number of task snapshot broadcasts",
		}),
	}

	// Register a collector that reads the live count from the connection manager
	prometheus.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "taskmate_websocket_connections_current",
			Help: "Current number of active WebSocket connections (from connection manager)",
		},
		func() float64 {
			if connManager != nil {
				return float64(connManager.Count())
			}
			return 0
		},
	))

	globalMetrics = metrics
	return metrics
}

// GetMetrics returns the global metrics instance
func GetMetrics() *Metrics {
	return globalMetrics
}

// RecordWebSocketConnect records a new WebSocket connection
func (m *Metrics) RecordWebSocketConnect() {
	m.WebSocketConnections.Inc()
}

// RecordWebSocketDisconnect records a WebSocket disconnection
func (m *Metrics) RecordWebSocketDisconnect() {
	m.WebSocketConnections.Dec()
}

// RecordWebSocketMessage records a WebSocket message
func (m *Metrics) RecordWebSocketMessage(msgType, direction string) {
	m.WebSocketMessages.WithLabelValues(msgType, direction).Inc()
}

// RecordTurn records a processed conversation turn
func (m *Metrics) RecordTurn() {
	m.Turns.Inc()
}

// RecordTurnLatency records conversation turn latency
func (m *Metrics) RecordTurnLatency(seconds float64) {
	m.TurnLatency.Observe(seconds)
}

// RecordTurnError records a turn error
func (m *Metrics) RecordTurnError(errorType string) {
	m.TurnErrors.WithLabelValues(errorType).Inc()
}

// RecordToolDispatch records a tool dispatch
func (m *Metrics) RecordToolDispatch(tool string) {
	m.ToolDispatches.WithLabelValues(tool).Inc()
}

// RecordBroadcast records a task snapshot broadcast
func (m *Metrics) RecordBroadcast() {
	m.Broadcasts.Inc()
}
