// Package warden provides failure reporting and incident escalation for
// scripted RPA workers.
//
// warden captures a failed automation step, persists a bounded error report
// to the orchestration framework's log store, marks the associated queue
// element failed, notifies operators by email, and escalates qualifying
// failures to an external ticketing system with open-incident deduplication.
//
// # Core Components
//
// The library is organized around these concepts:
//
//   - ErrorReport: The canonical failure record with category, retry count, and trace
//   - Reporter: Central abstraction that applies redaction and fingerprinting, then
//     fans the report out to the log store, queue, notifier, and escalator
//   - Sink: Additional destination for reports (orchestrator log, stderr, multi)
//   - Escalator: Creates or updates an external incident for a qualifying failure
//
// # Quick Start
//
//	reporter := warden.NewReporter(conn,
//	    warden.WithEscalator(servicenow.NewEscalator(client, cfg)),
//	    warden.WithMaxRetryCount(maxRetry),
//	)
//	runner := warden.NewRunner(conn, reporter)
//	err := runner.RunStep(ctx, step, elementID, retryCount)
//
// # Design Principles
//
//   - Reporting never aborts the worker: every failure inside the reporting
//     path is absorbed and logged
//   - Escalation is explicit: a failed incident lookup is distinguished from
//     "no open incident" and handled by a configured policy
//   - Reports are bounded before persistence so the log store never receives
//     oversized rows
package warden
