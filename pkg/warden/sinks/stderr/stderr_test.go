package stderr

import (
	"context"
	"io"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/botmind/rpa-observe/pkg/warden"
)

// captureStderr runs fn with os.Stderr redirected to a pipe and returns
// everything written to it.
func captureStderr(t *testing.T, fn func()) string {
	t.Helper()

	orig := os.Stderr
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("os.Pipe: %v", err)
	}
	os.Stderr = w
	defer func() { os.Stderr = orig }()

	fn()

	w.Close()
	data, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("reading captured stderr: %v", err)
	}
	return string(data)
}

func sampleReport() warden.ErrorReport {
	return warden.ErrorReport{
		Timestamp:   time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC),
		Category:    warden.CategoryApplication,
		ProcessName: "InvoiceWorker",
		RetryCount:  "2",
		Message:     "element 'Save' not found",
		Fingerprint: "abc123",
		StackTrace:  "goroutine 1 [running]:\nmain.run()",
	}
}

func TestStderrSink_WritesMainLine(t *testing.T) {
	sink := NewStderrSink()

	out := captureStderr(t, func() {
		if err := sink.Write(context.Background(), sampleReport()); err != nil {
			t.Errorf("Write returned error: %v", err)
		}
	})

	if !strings.Contains(out, "[WARDEN] 2026-03-14T09:30:00Z ApplicationException in InvoiceWorker (retry 2)") {
		t.Errorf("Main line missing or malformed:\n%s", out)
	}
	if !strings.Contains(out, "Message: element 'Save' not found") {
		t.Errorf("Message line missing:\n%s", out)
	}
	if !strings.Contains(out, "Fingerprint: abc123") {
		t.Errorf("Fingerprint line missing:\n%s", out)
	}
}

func TestStderrSink_OmitsStackTraceByDefault(t *testing.T) {
	sink := NewStderrSink()

	out := captureStderr(t, func() {
		sink.Write(context.Background(), sampleReport())
	})

	if strings.Contains(out, "Stack trace:") {
		t.Errorf("Stack trace should be omitted without verbose:\n%s", out)
	}
}

func TestStderrSink_VerboseIncludesStackTrace(t *testing.T) {
	sink := NewStderrSink(WithVerbose())

	out := captureStderr(t, func() {
		sink.Write(context.Background(), sampleReport())
	})

	if !strings.Contains(out, "Stack trace:") {
		t.Errorf("Verbose sink should print the stack trace header:\n%s", out)
	}
	if !strings.Contains(out, "main.run()") {
		t.Errorf("Verbose sink should print trace lines:\n%s", out)
	}
}

func TestStderrSink_IncludesWorkerState(t *testing.T) {
	sink := NewStderrSink()

	report := sampleReport()
	report.WorkerState = &warden.WorkerState{Hostname: "robot-01", PID: 4242, GoroutineCount: 7}

	out := captureStderr(t, func() {
		sink.Write(context.Background(), report)
	})

	if !strings.Contains(out, "Worker: host=robot-01 pid=4242 goroutines=7") {
		t.Errorf("Worker state line missing:\n%s", out)
	}
}

func TestStderrSink_SkipsEmptyOptionalFields(t *testing.T) {
	sink := NewStderrSink()

	report := warden.ErrorReport{
		Timestamp: time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC),
		Category:  warden.CategoryBusiness,
	}

	out := captureStderr(t, func() {
		sink.Write(context.Background(), report)
	})

	if strings.Contains(out, "Message:") || strings.Contains(out, "Fingerprint:") || strings.Contains(out, "Worker:") {
		t.Errorf("Empty fields should be skipped:\n%s", out)
	}
	if strings.Contains(out, "(retry") {
		t.Errorf("Retry marker should be skipped without a retry count:\n%s", out)
	}
}

func TestStderrSink_FlushAndClose(t *testing.T) {
	sink := NewStderrSink()
	if err := sink.Flush(context.Background()); err != nil {
		t.Errorf("Flush returned error: %v", err)
	}
	if err := sink.Close(); err != nil {
		t.Errorf("Close returned error: %v", err)
	}
}
