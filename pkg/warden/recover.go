// recover.go provides the Recover helper for uncaught panics outside of
// Runner.RunStep, mirroring the global exception hook the orchestration
// framework installs around a worker.

package warden

import (
	"context"
	"fmt"
	"runtime/debug"
)

// Recover captures a panic, logs it to the orchestrator error log, and
// returns the recovered value. It does NOT re-panic; the worker exits its
// current scope normally so the framework can record the run as finished.
//
// Recover must be the deferred function itself; wrapping it in another
// closure moves recover out of the deferred frame and the panic escapes:
//
//	defer warden.Recover(ctx, conn)
func Recover(ctx context.Context, conn Orchestrator) any {
	r := recover()
	if r == nil {
		return nil
	}

	msg := fmt.Sprintf("Uncaught Exception:\nType: %T\nValue: %v\nTrace: %s",
		r, formatRecovered(r), debug.Stack())

	// Ignore log errors - there is nowhere further to report them.
	_ = conn.LogError(ctx, msg)

	return r
}

// formatRecovered formats a recovered panic value as a string.
func formatRecovered(recovered any) string {
	if recovered == nil {
		return "<nil>"
	}
	if err, ok := recovered.(error); ok {
		return err.Error()
	}
	return fmt.Sprintf("%v", recovered)
}
