package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics holds all application metrics
type Metrics struct {
	RequestCounter       metric.Int64Counter
	RequestDuration      metric.Float64Histogram
	LLMTokensUsed        metric.Int64Counter
	ExtractionDuration   metric.Float64Histogram
	CircuitBreakerState  metric.Int64Counter
	DocumentsIndexed     metric.Int64Counter
	ChunksWritten        metric.Int64Counter
	ToolCallDuration     metric.Float64Histogram
	PermissionProbes     metric.Int64Counter
	IndexerRunDuration   metric.Float64Histogram
}

// InitMetrics initializes all application metrics
func InitMetrics() (*Metrics, error) {
	meter := otel.Meter("knowledgeagent")

	requestCounter, err := meter.Int64Counter(
		"http.requests.total",
		metric.WithDescription("Total HTTP requests"),
	)
	if err != nil {
		return nil, err
	}

	requestDuration, err := meter.Float64Histogram(
		"http.request.duration",
		metric.WithDescription("HTTP request duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	llmTokensUsed, err := meter.Int64Counter(
		"llm.tokens.used",
		metric.WithDescription("Total LLM tokens used across chat and embedding calls"),
	)
	if err != nil {
		return nil, err
	}

	extractionDuration, err := meter.Float64Histogram(
		"document.extraction.duration",
		metric.WithDescription("Content extraction duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	circuitBreakerState, err := meter.Int64Counter(
		"circuit_breaker.state_changes",
		metric.WithDescription("Circuit breaker state changes"),
	)
	if err != nil {
		return nil, err
	}

	documentsIndexed, err := meter.Int64Counter(
		"indexer.documents.processed",
		metric.WithDescription("Documents processed by the indexer pipeline"),
	)
	if err != nil {
		return nil, err
	}

	chunksWritten, err := meter.Int64Counter(
		"indexer.chunks.written",
		metric.WithDescription("Chunks upserted into the vector store"),
	)
	if err != nil {
		return nil, err
	}

	toolCallDuration, err := meter.Float64Histogram(
		"chat.tool_call.duration",
		metric.WithDescription("Tool call duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	permissionProbes, err := meter.Int64Counter(
		"chat.permission_probes.total",
		metric.WithDescription("Permission probes issued while filtering retrieved chunks"),
	)
	if err != nil {
		return nil, err
	}

	indexerRunDuration, err := meter.Float64Histogram(
		"indexer.run.duration",
		metric.WithDescription("Full indexer pipeline pass duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	return &Metrics{
		RequestCounter:      requestCounter,
		RequestDuration:     requestDuration,
		LLMTokensUsed:       llmTokensUsed,
		ExtractionDuration:  extractionDuration,
		CircuitBreakerState: circuitBreakerState,
		DocumentsIndexed:    documentsIndexed,
		ChunksWritten:       chunksWritten,
		ToolCallDuration:    toolCallDuration,
		PermissionProbes:    permissionProbes,
		IndexerRunDuration:  indexerRunDuration,
	}, nil
}

// RecordRequest records HTTP request metrics
func (m *Metrics) RecordRequest(method, path, status string, duration float64) {
	attrs := []attribute.KeyValue{
		attribute.String("http.method", method),
		attribute.String("http.path", path),
		attribute.String("http.status", status),
	}

	m.RequestCounter.Add(context.Background(), 1, metric.WithAttributes(attrs...))
	m.RequestDuration.Record(context.Background(), duration, metric.WithAttributes(attrs...))
}

// RecordLLMTokens records token usage for a chat or embedding call
func (m *Metrics) RecordLLMTokens(tokens int64, operation string) {
	attrs := []attribute.KeyValue{
		attribute.String("llm.operation", operation),
	}

	m.LLMTokensUsed.Add(context.Background(), tokens, metric.WithAttributes(attrs...))
}

// RecordExtraction records content extraction duration
func (m *Metrics) RecordExtraction(duration float64, fileType string, status string) {
	attrs := []attribute.KeyValue{
		attribute.String("document.file_type", fileType),
		attribute.String("document.status", status),
	}

	m.ExtractionDuration.Record(context.Background(), duration, metric.WithAttributes(attrs...))
}

// RecordCircuitBreakerState records circuit breaker state changes
func (m *Metrics) RecordCircuitBreakerState(service, state string) {
	attrs := []attribute.KeyValue{
		attribute.String("service", service),
		attribute.String("state", state),
	}

	m.CircuitBreakerState.Add(context.Background(), 1, metric.WithAttributes(attrs...))
}

// RecordDocumentIndexed records a single document's terminal status from a pipeline pass
func (m *Metrics) RecordDocumentIndexed(status string) {
	attrs := []attribute.KeyValue{
		attribute.String("indexer.status", status),
	}

	m.DocumentsIndexed.Add(context.Background(), 1, metric.WithAttributes(attrs...))
}

// RecordChunksWritten records how many chunks a document contributed to the vector store
func (m *Metrics) RecordChunksWritten(count int64) {
	m.ChunksWritten.Add(context.Background(), count)
}

// RecordToolCall records a chat agent tool invocation
func (m *Metrics) RecordToolCall(toolName string, duration float64, success bool) {
	attrs := []attribute.KeyValue{
		attribute.String("tool.name", toolName),
		attribute.Bool("tool.success", success),
	}

	m.ToolCallDuration.Record(context.Background(), duration, metric.WithAttributes(attrs...))
}

// RecordPermissionProbe records the outcome of a per-user accessibility check
func (m *Metrics) RecordPermissionProbe(outcome string) {
	attrs := []attribute.KeyValue{
		attribute.String("permission.outcome", outcome),
	}

	m.PermissionProbes.Add(context.Background(), 1, metric.WithAttributes(attrs...))
}

// RecordIndexerRun records the duration of a complete pipeline pass
func (m *Metrics) RecordIndexerRun(duration float64, trigger string) {
	attrs := []attribute.KeyValue{
		attribute.String("indexer.trigger", trigger),
	}

	m.IndexerRunDuration.Record(context.Background(), duration, metric.WithAttributes(attrs...))
}
