// runner.go implements Runner, which wraps a scripted automation step to
// capture failures and panics. This is the primary error capture mechanism;
// the step itself performs no error handling of its own.

package warden

import (
	"context"
	"fmt"
	"runtime/debug"

	"github.com/google/uuid"
)

// Step is one scripted automation action. automation.ScriptedStep
// satisfies this interface.
type Step interface {
	// Name identifies the step in log entries.
	Name() string

	// Run performs the action. Any failure propagates to the runner.
	Run(ctx context.Context) error
}

// Runner executes steps and routes their failures to a Reporter.
type Runner struct {
	conn     Orchestrator
	reporter *Reporter
}

// NewRunner creates a Runner bound to the given connection and reporter.
func NewRunner(conn Orchestrator, reporter *Reporter) *Runner {
	return &Runner{conn: conn, reporter: reporter}
}

// RunStep executes one step, capturing errors and panics.
//
// On failure the error is classified, wrapped into an ErrorReport together
// with retryCount, and handed to the reporter; the queue element (if any)
// is failed as part of reporting. A panic inside the step is converted to
// an error with its stack trace and reported the same way, not re-raised.
// The original step error is returned so the caller can decide the
// worker's exit status; reporting failures never surface here.
func (r *Runner) RunStep(ctx context.Context, step Step, elementID, retryCount string) (err error) {
	runID := uuid.NewString()
	ctx = WithRunID(ctx, runID)

	_ = r.conn.LogTrace(ctx, fmt.Sprintf("Running step %q (run %s).", step.Name(), runID))

	var trace string
	func() {
		defer func() {
			if rec := recover(); rec != nil {
				trace = string(debug.Stack())
				err = fmt.Errorf("step %q panicked: %s", step.Name(), formatRecovered(rec))
			}
		}()
		err = step.Run(ctx)
	}()

	if err == nil {
		_ = r.conn.LogTrace(ctx, fmt.Sprintf("Step %q finished (run %s).", step.Name(), runID))
		return nil
	}

	report := ErrorReport{
		Category:   Classify(err),
		RetryCount: retryCount,
		Message:    err.Error(),
		StackTrace: trace,
	}
	result := r.reporter.Report(ctx, report, elementID)

	_ = r.conn.LogTrace(ctx, fmt.Sprintf(
		"Step %q failed (run %s, report %s, queue marked: %t).",
		step.Name(), runID, result.ReportID, result.QueueMarked))

	return err
}
