// reporter.go provides the central Reporter and its configuration.

package warden

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
)

// Orchestrator is the minimal interface the reporter needs from the
// orchestration framework connection. The full orchestrator.Connection
// satisfies this interface.
type Orchestrator interface {
	// ProcessName returns the name of the process the worker runs as.
	ProcessName() string

	// LogTrace writes a trace-level entry to the framework's log store.
	LogTrace(ctx context.Context, message string) error

	// LogError writes an error-level entry to the framework's log store.
	LogError(ctx context.Context, message string) error

	// FailQueueElement marks the queue element failed with the given message.
	FailQueueElement(ctx context.Context, elementID, message string) error
}

// Notification is an operator notification with an optional screenshot.
type Notification struct {
	To          string
	Subject     string
	Body        string
	Screenshot  []byte
	ProcessName string
}

// Notifier delivers failure notifications to operators.
type Notifier interface {
	Send(ctx context.Context, n Notification) error
}

// EscalationAction describes what an escalation did in the ticketing system.
type EscalationAction string

const (
	// ActionCreated means a new incident was opened.
	ActionCreated EscalationAction = "created"

	// ActionUpdated means a comment was appended to an existing open incident.
	ActionUpdated EscalationAction = "updated"
)

// EscalationResult reports the outcome of a successful escalation.
type EscalationResult struct {
	Action     EscalationAction
	IncidentID string
}

// Escalator creates or updates an external incident for a qualifying
// failure. Implementations must perform their own deduplication against
// already-open incidents.
type Escalator interface {
	Escalate(ctx context.Context, report ErrorReport) (EscalationResult, error)
}

// CaptureFunc produces a PNG screenshot of the worker's desktop.
type CaptureFunc func(ctx context.Context) ([]byte, error)

// ReporterOption configures a Reporter.
type ReporterOption func(*reporterConfig)

type reporterConfig struct {
	sink          Sink
	notifier      Notifier
	notifyAddress string
	escalator     Escalator
	maxRetryCount string
	capture       CaptureFunc
	redactor      *Redactor
	startTime     time.Time
	logger        *log.Logger
}

// WithSink replaces the reporter's sink. The default sink writes each
// report's stored message to the orchestrator error log; callers that
// replace it (for example with a multi sink) are responsible for keeping
// an orchestrator log destination in the chain.
func WithSink(sink Sink) ReporterOption {
	return func(c *reporterConfig) {
		c.sink = sink
	}
}

// WithNotifier enables operator notification for non-business failures,
// sent to the given address.
func WithNotifier(n Notifier, address string) ReporterOption {
	return func(c *reporterConfig) {
		c.notifier = n
		c.notifyAddress = address
	}
}

// WithEscalator enables incident escalation for qualifying failures.
func WithEscalator(e Escalator) ReporterOption {
	return func(c *reporterConfig) {
		c.escalator = e
	}
}

// WithMaxRetryCount sets the retry counter value at which an application
// failure escalates. Escalation is disabled while this is unset.
func WithMaxRetryCount(max string) ReporterOption {
	return func(c *reporterConfig) {
		c.maxRetryCount = max
	}
}

// WithScreenshot sets the capture function used to attach a screenshot to
// operator notifications. Capture failures are tolerated; the notification
// is sent without an attachment.
func WithScreenshot(capture CaptureFunc) ReporterOption {
	return func(c *reporterConfig) {
		c.capture = capture
	}
}

// WithRedaction redacts credentials and user paths from reports with
// production-safe defaults before they leave the worker.
func WithRedaction() ReporterOption {
	return func(c *reporterConfig) {
		c.redactor = NewRedactor(DefaultRedactorConfig())
	}
}

// WithRedactor configures the reporter with a custom redactor.
func WithRedactor(cfg RedactorConfig) ReporterOption {
	return func(c *reporterConfig) {
		c.redactor = NewRedactor(cfg)
	}
}

// WithWorkerState enables worker state capture on each report. The start
// time is used to compute uptime.
func WithWorkerState(start time.Time) ReporterOption {
	return func(c *reporterConfig) {
		c.startTime = start
	}
}

// WithLogger sets the logger for reporting-path failures that cannot reach
// the orchestrator log. Defaults to the standard logger.
func WithLogger(logger *log.Logger) ReporterOption {
	return func(c *reporterConfig) {
		c.logger = logger
	}
}

// Result records what a Report call did. Report never returns an error;
// failures inside the reporting path are absorbed and logged so a broken
// notification or ticketing integration cannot crash the worker.
type Result struct {
	// ReportID is the identifier assigned to the report.
	ReportID string

	// QueueMarked is true when the queue element was marked failed.
	QueueMarked bool

	// Notified is true when the operator notification was sent.
	Notified bool

	// Escalation holds the escalation outcome when one was performed.
	Escalation *EscalationResult

	// EscalationErr holds the absorbed escalation failure, if any.
	EscalationErr error
}

// Reporter records failures to the orchestration framework and decides
// whether to notify operators and escalate to the ticketing system.
type Reporter struct {
	conn Orchestrator
	cfg  reporterConfig
}

// NewReporter creates a Reporter bound to the given orchestrator connection.
func NewReporter(conn Orchestrator, opts ...ReporterOption) *Reporter {
	cfg := reporterConfig{
		logger: log.Default(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.sink == nil {
		cfg.sink = NewOrchestratorSink(conn)
	}
	return &Reporter{conn: conn, cfg: cfg}
}

// Report records a caught failure.
//
// It always writes the bounded serialized report to the sink (by default
// the orchestrator error log) and, when elementID is non-empty, marks that
// queue element failed with the same stored message. Unless the failure is
// a business-rule violation it notifies the configured address with a
// screenshot. It escalates to the ticketing system only when the category
// is application-level and the retry count equals the configured maximum.
func (r *Reporter) Report(ctx context.Context, report ErrorReport, elementID string) Result {
	report = r.enrich(report)
	result := Result{ReportID: report.ReportID}

	stored := report.StoredMessage()

	if err := r.cfg.sink.Write(ctx, report); err != nil {
		r.cfg.logger.Printf("warden: failed to write report %s to sink: %v", report.ReportID, err)
	}

	if elementID != "" {
		if err := r.conn.FailQueueElement(ctx, elementID, stored); err != nil {
			r.cfg.logger.Printf("warden: failed to mark queue element %s failed: %v", elementID, err)
		} else {
			result.QueueMarked = true
		}
	}

	if report.Category != CategoryBusiness && r.cfg.notifier != nil {
		result.Notified = r.notify(ctx, report)
	}

	if r.shouldEscalate(report) {
		result.Escalation, result.EscalationErr = r.escalate(ctx, report, stored)
	}

	return result
}

// enrich fills identity fields and applies redaction, mirroring what the
// framework's own error handler records.
func (r *Reporter) enrich(report ErrorReport) ErrorReport {
	if report.ReportID == "" {
		report.ReportID = uuid.NewString()
	}
	if report.Timestamp.IsZero() {
		report.Timestamp = time.Now()
	}
	if report.ProcessName == "" {
		report.ProcessName = r.conn.ProcessName()
	}
	if r.cfg.redactor != nil {
		report.Message = r.cfg.redactor.RedactMessage(report.Message)
		report.StackTrace = r.cfg.redactor.RedactStackTrace(report.StackTrace)
	}
	if report.Fingerprint == "" {
		report.Fingerprint = Fingerprint(report)
	}
	if !r.cfg.startTime.IsZero() && report.WorkerState == nil {
		report.WorkerState = CaptureWorkerState(r.cfg.startTime)
	}
	return report
}

// notify sends the screenshot email. Returns whether the send succeeded.
func (r *Reporter) notify(ctx context.Context, report ErrorReport) bool {
	var screenshot []byte
	if r.cfg.capture != nil {
		shot, err := r.cfg.capture(ctx)
		if err != nil {
			r.cfg.logger.Printf("warden: screenshot capture failed: %v", err)
		} else {
			screenshot = shot
		}
	}

	n := Notification{
		To:          r.cfg.notifyAddress,
		Subject:     fmt.Sprintf("Error screenshot: %s", report.ProcessName),
		Body:        notificationBody(report),
		Screenshot:  screenshot,
		ProcessName: report.ProcessName,
	}
	if err := r.cfg.notifier.Send(ctx, n); err != nil {
		r.cfg.logger.Printf("warden: failed to send error notification: %v", err)
		return false
	}
	return true
}

// shouldEscalate applies the escalation condition: application-level
// failure on its final retry, with an escalator configured.
func (r *Reporter) shouldEscalate(report ErrorReport) bool {
	return r.cfg.escalator != nil &&
		r.cfg.maxRetryCount != "" &&
		report.Category == CategoryApplication &&
		report.RetryCount == r.cfg.maxRetryCount
}

// escalate runs the escalator and absorbs its failure. The returned error
// is recorded on the Result for the caller's visibility but never raised.
func (r *Reporter) escalate(ctx context.Context, report ErrorReport, stored string) (*EscalationResult, error) {
	_ = r.conn.LogTrace(ctx, "ApplicationException caught. Handling ticketing incident.")

	res, err := r.cfg.escalator.Escalate(ctx, report)
	if err != nil {
		r.cfg.logger.Printf("warden: failed to handle ticketing incident: %v", err)
		_ = r.conn.LogError(ctx, fmt.Sprintf("Failed to handle ticketing incident. error_msg: %s", stored))
		return nil, err
	}

	_ = r.conn.LogTrace(ctx, fmt.Sprintf("Ticketing incident handled: %s %s.", res.Action, res.IncidentID))
	return &res, nil
}

// notificationBody renders the plain-text body of the operator email.
func notificationBody(report ErrorReport) string {
	body := fmt.Sprintf("Process: %s\nError type: %s\n", report.ProcessName, report.Category)
	if report.RetryCount != "" {
		body += fmt.Sprintf("Retry count: %s\n", report.RetryCount)
	}
	body += fmt.Sprintf("\nError message:\n%s\n", report.Message)
	if report.StackTrace != "" {
		body += fmt.Sprintf("\nError trace:\n%s\n", report.StackTrace)
	}
	if state := report.WorkerState; state != nil {
		body += fmt.Sprintf("\nWorker: host=%s pid=%d goroutines=%d uptime=%s\n",
			state.Hostname, state.PID, state.GoroutineCount, state.Uptime.Round(time.Second))
	}
	return body
}
