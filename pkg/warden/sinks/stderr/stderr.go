// Package stderr provides a sink that logs reports to stderr in
// human-readable format. Useful for development and attended runs.
package stderr

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/botmind/rpa-observe/pkg/warden"
)

// StderrSinkOption configures the stderr sink.
type StderrSinkOption func(*stderrSinkConfig)

type stderrSinkConfig struct {
	verbose bool
}

// WithVerbose enables full report details including stack traces.
func WithVerbose() StderrSinkOption {
	return func(c *stderrSinkConfig) {
		c.verbose = true
	}
}

// stderrSink writes reports to stderr in human-readable format.
type stderrSink struct {
	verbose bool
}

// NewStderrSink creates a sink that writes to stderr.
func NewStderrSink(opts ...StderrSinkOption) warden.Sink {
	cfg := &stderrSinkConfig{}
	for _, opt := range opts {
		opt(cfg)
	}
	return &stderrSink{
		verbose: cfg.verbose,
	}
}

// Write formats and outputs the report to stderr.
func (s *stderrSink) Write(ctx context.Context, report warden.ErrorReport) error {
	// Main line format: [WARDEN] <timestamp> <CATEGORY> in <process> (retry <n>)
	timestamp := report.Timestamp.Format("2006-01-02T15:04:05Z07:00")

	parts := []string{fmt.Sprintf("[WARDEN] %s %s", timestamp, report.Category)}
	if report.ProcessName != "" {
		parts = append(parts, fmt.Sprintf("in %s", report.ProcessName))
	}
	if report.RetryCount != "" {
		parts = append(parts, fmt.Sprintf("(retry %s)", report.RetryCount))
	}
	fmt.Fprintln(os.Stderr, strings.Join(parts, " "))

	if report.Message != "" {
		fmt.Fprintf(os.Stderr, "        Message: %s\n", report.Message)
	}
	if report.Fingerprint != "" {
		fmt.Fprintf(os.Stderr, "        Fingerprint: %s\n", report.Fingerprint)
	}
	if state := report.WorkerState; state != nil {
		fmt.Fprintf(os.Stderr, "        Worker: host=%s pid=%d goroutines=%d\n",
			state.Hostname, state.PID, state.GoroutineCount)
	}

	if s.verbose && report.StackTrace != "" {
		fmt.Fprintf(os.Stderr, "        Stack trace:\n")
		for _, line := range strings.Split(report.StackTrace, "\n") {
			fmt.Fprintf(os.Stderr, "          %s\n", line)
		}
	}

	return nil
}

// Flush is a no-op for stderr sink.
func (s *stderrSink) Flush(ctx context.Context) error {
	return nil
}

// Close is a no-op for stderr sink.
func (s *stderrSink) Close() error {
	return nil
}
