// fingerprint.go generates stable hashes for grouping similar failures.

package warden

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"strings"
)

// Fingerprint generates a hash for grouping similar failures. It is based
// on the category, the process name, and the first three stack frames
// (function names only, normalized). Variable data such as timestamps,
// report IDs, messages, line numbers, and memory addresses is ignored, so
// repeated occurrences of the same failure hash identically across runs.
func Fingerprint(report ErrorReport) string {
	parts := []string{string(report.Category), report.ProcessName}
	parts = append(parts, topFrames(report.StackTrace, 3)...)

	sum := sha256.Sum256([]byte(strings.Join(parts, "|")))

	// Hex-encoded first 16 bytes (32 hex chars).
	return hex.EncodeToString(sum[:16])
}

var (
	// Function names like "main.doSomething" or "pkg/subpkg.Function".
	frameNamePattern = regexp.MustCompile(`^([a-zA-Z0-9_./]+\.[a-zA-Z0-9_]+)`)

	// Memory addresses and offsets like "0x1234abcd" and "+0x123".
	frameAddrPattern = regexp.MustCompile(`\+?0x[0-9a-fA-F]+`)
)

// topFrames extracts up to n function names from a runtime stack trace,
// dropping goroutine headers, file/line lines, addresses, and arguments.
func topFrames(trace string, n int) []string {
	if trace == "" {
		return nil
	}

	var frames []string
	for _, line := range strings.Split(trace, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "goroutine ") {
			continue
		}
		// File path lines start with a tab or slash in the raw trace.
		if strings.HasPrefix(line, "\t") || strings.HasPrefix(line, "/") {
			continue
		}

		line = frameAddrPattern.ReplaceAllString(line, "")
		if idx := strings.Index(line, "("); idx > 0 {
			line = line[:idx]
		}

		if name := frameNamePattern.FindString(strings.TrimSpace(line)); name != "" {
			frames = append(frames, name)
			if len(frames) >= n {
				break
			}
		}
	}
	return frames
}
