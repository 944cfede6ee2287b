// context.go propagates run IDs through Go context.Context so sinks and
// log lines produced during one step execution can be correlated.

package warden

import "context"

// Context key type (unexported to avoid collisions)
type runIDKey struct{}

// WithRunID returns a context with the run ID attached.
func WithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, runIDKey{}, runID)
}

// RunIDFromContext extracts the run ID from context.
// Returns empty string and false if not set or if the run ID is empty.
func RunIDFromContext(ctx context.Context) (string, bool) {
	v := ctx.Value(runIDKey{})
	id, ok := v.(string)
	return id, ok && id != ""
}
