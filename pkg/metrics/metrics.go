// Package metrics provides Prometheus metrics for the Bramble service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CharacterOperationsTotal tracks character writes by operation and status
	CharacterOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "bramble",
			Subsystem: "characters",
			Name:      "operations_total",
			Help:      "Total number of character operations by status",
		},
		[]string{"operation", "status"},
	)

	// RelationshipOperationsTotal tracks relationship pair writes
	RelationshipOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "bramble",
			Subsystem: "relationships",
			Name:      "operations_total",
			Help:      "Total number of relationship operations by status",
		},
		[]string{"operation", "status"},
	)

	// NetworkTraversalDuration tracks relationship network traversal duration
	NetworkTraversalDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "bramble",
			Subsystem: "relationships",
			Name:      "network_traversal_duration_seconds",
			Help:      "Duration of relationship network traversals in seconds",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
		[]string{"depth"},
	)

	// NetworkNodesReturned tracks the size of traversal results
	NetworkNodesReturned = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "bramble",
			Subsystem: "relationships",
			Name:      "network_nodes_returned",
			Help:      "Number of characters returned per network traversal",
			Buckets:   []float64{1, 5, 10, 25, 50, 100, 250, 500},
		},
	)

	// MCPToolCallsTotal tracks MCP tool invocations
	MCPToolCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "bramble",
			Subsystem: "mcp",
			Name:      "tool_calls_total",
			Help:      "Total number of MCP tool calls by tool and status",
		},
		[]string{"tool", "status"},
	)

	// MCPToolCallDuration tracks MCP tool call duration
	MCPToolCallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "bramble",
			Subsystem: "mcp",
			Name:      "tool_call_duration_seconds",
			Help:      "Duration of MCP tool calls in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"tool"},
	)

	// KafkaMessagesPublished tracks lifecycle events published to Kafka
	KafkaMessagesPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "bramble",
			Subsystem: "kafka",
			Name:      "messages_published_total",
			Help:      "Total number of messages published to Kafka",
		},
		[]string{"topic", "status"},
	)

	// GraphProjectionsTotal tracks graph projection writes
	GraphProjectionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "bramble",
			Subsystem: "graph",
			Name:      "projections_total",
			Help:      "Total number of graph projection writes by status",
		},
		[]string{"operation", "status"},
	)

	// ProfileGenerationsTotal tracks profile generation runs
	ProfileGenerationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "bramble",
			Subsystem: "profiles",
			Name:      "generations_total",
			Help:      "Total number of profile generation runs by status",
		},
		[]string{"status"},
	)

	// LLMRequestDuration tracks LLM completion request duration
	LLMRequestDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "bramble",
			Subsystem: "llm",
			Name:      "request_duration_seconds",
			Help:      "Duration of LLM completion requests in seconds",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
	)
)

// RecordCharacterOperation records a character write metric
func RecordCharacterOperation(operation, status string) {
	CharacterOperationsTotal.WithLabelValues(operation, status).Inc()
}

// RecordRelationshipOperation records a relationship write metric
func RecordRelationshipOperation(operation, status string) {
	RelationshipOperationsTotal.WithLabelValues(operation, status).Inc()
}

// RecordMCPToolCall records an MCP tool invocation
func RecordMCPToolCall(tool, status string, durationSeconds float64) {
	MCPToolCallsTotal.WithLabelValues(tool, status).Inc()
	MCPToolCallDuration.WithLabelValues(tool).Observe(durationSeconds)
}

// RecordKafkaPublish records a Kafka publish operation
func RecordKafkaPublish(topic, status string) {
	KafkaMessagesPublished.WithLabelValues(topic, status).Inc()
}

// RecordGraphProjection records a graph projection write
func RecordGraphProjection(operation, status string) {
	GraphProjectionsTotal.WithLabelValues(operation, status).Inc()
}
