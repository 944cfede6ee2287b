// sink.go defines the Sink interface for report destinations and the
// default sink writing to the orchestrator log store.

package warden

import "context"

// Sink is a destination for error reports.
// Implementations must be safe for concurrent use.
type Sink interface {
	// Write persists an error report. Called after redaction/enrichment.
	Write(ctx context.Context, report ErrorReport) error

	// Flush ensures any buffered reports are persisted.
	// For synchronous sinks, this may be a no-op.
	Flush(ctx context.Context) error

	// Close releases resources held by the sink.
	Close() error
}

// orchestratorSink writes the stored form of each report to the
// orchestrator error log. It is the reporter's default sink.
type orchestratorSink struct {
	conn Orchestrator
}

// NewOrchestratorSink creates a sink that writes each report's stored
// message to the orchestration framework's error log.
func NewOrchestratorSink(conn Orchestrator) Sink {
	return &orchestratorSink{conn: conn}
}

// Write logs the bounded serialized report as an error entry.
func (s *orchestratorSink) Write(ctx context.Context, report ErrorReport) error {
	return s.conn.LogError(ctx, report.StoredMessage())
}

// Flush is a no-op; log writes are synchronous.
func (s *orchestratorSink) Flush(ctx context.Context) error {
	return nil
}

// Close is a no-op for the orchestrator sink.
func (s *orchestratorSink) Close() error {
	return nil
}
