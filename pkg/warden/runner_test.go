package warden

import (
	"context"
	"errors"
	"strings"
	"testing"
)

// scriptedFailure is a test step with a programmable outcome.
type scriptedFailure struct {
	name   string
	err    error
	panics bool
	ran    bool
}

func (s *scriptedFailure) Name() string { return s.name }

func (s *scriptedFailure) Run(ctx context.Context) error {
	s.ran = true
	if s.panics {
		panic("keystroke injection exploded")
	}
	return s.err
}

func newTestRunner(conn *fakeOrchestrator, sink *testSink) *Runner {
	reporter := NewReporter(conn, WithSink(sink), WithLogger(quietLogger()))
	return NewRunner(conn, reporter)
}

func TestRunner_SuccessfulStepReportsNothing(t *testing.T) {
	conn := &fakeOrchestrator{processName: "TestProcess"}
	sink := &testSink{}
	runner := newTestRunner(conn, sink)

	step := &scriptedFailure{name: "open-editor"}
	err := runner.RunStep(context.Background(), step, "", "")

	if err != nil {
		t.Fatalf("RunStep returned error: %v", err)
	}
	if !step.ran {
		t.Fatal("Step should have run")
	}
	if len(sink.reports) != 0 {
		t.Errorf("No report expected on success, got %d", len(sink.reports))
	}
}

func TestRunner_StepErrorReportedAndReturned(t *testing.T) {
	conn := &fakeOrchestrator{processName: "TestProcess"}
	sink := &testSink{}
	runner := newTestRunner(conn, sink)

	stepErr := errors.New("window not found")
	step := &scriptedFailure{name: "open-editor", err: stepErr}
	err := runner.RunStep(context.Background(), step, "qe-9", "1")

	if !errors.Is(err, stepErr) {
		t.Fatalf("RunStep should return the step error, got %v", err)
	}
	if len(sink.reports) != 1 {
		t.Fatalf("Expected 1 report, got %d", len(sink.reports))
	}
	report := sink.reports[0]
	if report.Category != CategoryApplication {
		t.Errorf("Category = %q, want application", report.Category)
	}
	if report.RetryCount != "1" {
		t.Errorf("RetryCount = %q, want 1", report.RetryCount)
	}
	if report.Message != "window not found" {
		t.Errorf("Message = %q", report.Message)
	}
	if len(conn.failedIDs) != 1 || conn.failedIDs[0] != "qe-9" {
		t.Errorf("Queue element qe-9 should be failed, got %v", conn.failedIDs)
	}
}

func TestRunner_BusinessErrorClassified(t *testing.T) {
	conn := &fakeOrchestrator{processName: "TestProcess"}
	sink := &testSink{}
	runner := newTestRunner(conn, sink)

	step := &scriptedFailure{name: "validate", err: NewBusinessRuleError("citizen is exempt")}
	if err := runner.RunStep(context.Background(), step, "", ""); err == nil {
		t.Fatal("RunStep should return the business error")
	}

	if sink.reports[0].Category != CategoryBusiness {
		t.Errorf("Category = %q, want business", sink.reports[0].Category)
	}
}

func TestRunner_PanicCapturedNotRethrown(t *testing.T) {
	conn := &fakeOrchestrator{processName: "TestProcess"}
	sink := &testSink{}
	runner := newTestRunner(conn, sink)

	step := &scriptedFailure{name: "type-text", panics: true}

	// Must not panic through.
	err := runner.RunStep(context.Background(), step, "", "")
	if err == nil {
		t.Fatal("RunStep should convert the panic into an error")
	}
	if !strings.Contains(err.Error(), "keystroke injection exploded") {
		t.Errorf("Error should carry the panic value, got %v", err)
	}

	report := sink.reports[0]
	if report.Category != CategoryApplication {
		t.Errorf("Panic should classify as application, got %q", report.Category)
	}
	if report.StackTrace == "" {
		t.Error("Panic report should carry a stack trace")
	}
	if !strings.Contains(report.StackTrace, "goroutine") {
		t.Errorf("Stack trace should be a runtime trace, got %q", report.StackTrace)
	}
}

func TestRunner_PropagatesRunID(t *testing.T) {
	conn := &fakeOrchestrator{processName: "TestProcess"}
	sink := &testSink{}
	runner := newTestRunner(conn, sink)

	var seen string
	step := &funcStep{name: "probe", fn: func(ctx context.Context) error {
		seen, _ = RunIDFromContext(ctx)
		return nil
	}}

	if err := runner.RunStep(context.Background(), step, "", ""); err != nil {
		t.Fatalf("RunStep returned error: %v", err)
	}
	if seen == "" {
		t.Error("Step should observe a run ID in its context")
	}
}

// funcStep adapts a function to the Step interface.
type funcStep struct {
	name string
	fn   func(ctx context.Context) error
}

func (s *funcStep) Name() string                  { return s.name }
func (s *funcStep) Run(ctx context.Context) error { return s.fn(ctx) }
