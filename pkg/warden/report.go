// report.go defines the canonical error report data structure for warden.

package warden

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Category classifies a caught failure. The values mirror the exception
// class names the orchestration framework uses in its log store.
type Category string

const (
	// CategoryBusiness marks a failure caused by breaking a business rule.
	// Business failures are logged and fail their queue element but are
	// never emailed or escalated.
	CategoryBusiness Category = "BusinessException"

	// CategoryApplication marks an application-level failure. Application
	// failures on their final retry are escalated to the ticketing system.
	CategoryApplication Category = "ApplicationException"
)

// BusinessRuleError identifies failures caused by breaking business rules.
// Wrap or return one from a step to suppress the screenshot email and any
// incident escalation.
type BusinessRuleError struct {
	Reason string
}

// NewBusinessRuleError creates a BusinessRuleError with the given reason.
func NewBusinessRuleError(reason string) *BusinessRuleError {
	return &BusinessRuleError{Reason: reason}
}

// Error implements the error interface.
func (e *BusinessRuleError) Error() string {
	return e.Reason
}

// Classify maps an error to its report category. A *BusinessRuleError
// anywhere in the chain classifies as business; everything else is an
// application-level failure.
func Classify(err error) Category {
	var businessErr *BusinessRuleError
	if errors.As(err, &businessErr) {
		return CategoryBusiness
	}
	return CategoryApplication
}

// WorkerState captures worker process metrics at the time of a failure.
type WorkerState struct {
	// Hostname is the machine the worker is running on.
	Hostname string

	// PID is the worker process ID.
	PID int

	// AllocBytes is the current heap allocation in bytes.
	AllocBytes int64

	// GoroutineCount is the number of active goroutines.
	GoroutineCount int

	// Uptime is how long the worker has been running.
	Uptime time.Duration
}

// ErrorReport is the canonical failure record. It is constructed at the
// moment a failure is caught and is not modified after the reporter has
// filled in its identity fields.
type ErrorReport struct {
	// Identity fields

	// ReportID is a unique identifier for this report (UUID).
	ReportID string

	// Timestamp is when the failure was caught.
	Timestamp time.Time

	// Fingerprint is a hash for grouping similar failures.
	Fingerprint string

	// Failure details

	// Category classifies the failure (business or application).
	Category Category

	// RetryCount is the attempt counter the orchestration framework passed
	// to the worker. Optional; empty when the process runs outside a retry
	// loop. Kept as a string because the framework stores it as one.
	RetryCount string

	// Message is the human-readable failure message.
	Message string

	// StackTrace is the stack trace at the failure site, when available.
	StackTrace string

	// Context

	// ProcessName is the orchestrator process the worker runs as.
	ProcessName string

	// WorkerState captures worker metrics at failure time.
	WorkerState *WorkerState
}

// Bounds for the stored form of a report. The log store rejects oversized
// rows, so anything past StoredHeadLength+StoredTailLength is cut out and
// replaced with TruncationMarker.
const (
	// MaxStoredLength is the serialized length above which truncation kicks in.
	MaxStoredLength = 1000

	// StoredHeadLength is how much of the start survives truncation.
	StoredHeadLength = 500

	// StoredTailLength is how much of the end survives truncation.
	StoredTailLength = 490

	// TruncationMarker joins the head and tail of a truncated report.
	TruncationMarker = "  [...] "
)

// serializedReport is the wire form persisted to the log store and queue.
type serializedReport struct {
	Type       string `json:"type"`
	ErrorCount string `json:"error_count"`
	Message    string `json:"message"`
	Trace      string `json:"trace"`
}

// Serialize renders the report in its canonical JSON form.
func (r ErrorReport) Serialize() string {
	out, err := json.Marshal(serializedReport{
		Type:       string(r.Category),
		ErrorCount: r.RetryCount,
		Message:    r.Message,
		Trace:      r.StackTrace,
	})
	if err != nil {
		// Only reachable if the runtime cannot marshal plain strings.
		return fmt.Sprintf(`{"type":%q,"message":"report serialization failed"}`, r.Category)
	}
	return string(out)
}

// StoredMessage returns the serialized report truncated to the bounds the
// log store accepts. This exact string is written to the error log and to
// the failed queue element.
func (r ErrorReport) StoredMessage() string {
	return TruncateForStore(r.Serialize())
}

// TruncateForStore bounds s for persistence: strings longer than
// MaxStoredLength are reduced to the first StoredHeadLength and last
// StoredTailLength characters joined by TruncationMarker.
func TruncateForStore(s string) string {
	if len(s) <= MaxStoredLength {
		return s
	}
	return s[:StoredHeadLength] + TruncationMarker + s[len(s)-StoredTailLength:]
}
