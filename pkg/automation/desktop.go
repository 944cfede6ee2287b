// Package automation provides the scripted desktop step the worker runs
// and the desktop primitives it is built on.
package automation

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"
)

// Desktop abstracts the desktop-automation primitives: launching a
// program, injecting keystrokes, and capturing the screen. The worker
// treats these as a black box so it never depends on a concrete toolkit.
type Desktop interface {
	// Launch starts a program and returns without waiting for it.
	Launch(ctx context.Context, name string, args ...string) error

	// TypeText injects text via simulated keystrokes, one key per interval.
	TypeText(ctx context.Context, text string, interval time.Duration) error

	// CaptureScreen returns a PNG screenshot of the current desktop.
	CaptureScreen(ctx context.Context) ([]byte, error)
}

// ExecDesktop implements Desktop by shelling out to configured commands
// (for example xdotool for typing and scrot for screenshots).
type ExecDesktop struct {
	// TypeCommand injects keystrokes. It is invoked with two extra
	// arguments appended: the per-key interval in milliseconds and the
	// text to type. Example: ["xdotool", "type", "--delay"].
	TypeCommand []string

	// ScreenshotCommand captures the screen. It is invoked with one extra
	// argument appended: the path of the PNG file to write.
	// Example: ["scrot", "--overwrite"].
	ScreenshotCommand []string
}

// Launch starts the program detached, like the scripted steps the worker
// replaces did with a plain process spawn.
func (d *ExecDesktop) Launch(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("launch %s: %w", name, err)
	}

	// Reap the process in the background so it never zombifies.
	go func() { _ = cmd.Wait() }()
	return nil
}

// TypeText runs the configured keystroke command.
func (d *ExecDesktop) TypeText(ctx context.Context, text string, interval time.Duration) error {
	if len(d.TypeCommand) == 0 {
		return fmt.Errorf("type text: no keystroke command configured")
	}
	args := append(append([]string{}, d.TypeCommand[1:]...),
		fmt.Sprintf("%d", interval.Milliseconds()), text)
	cmd := exec.CommandContext(ctx, d.TypeCommand[0], args...)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("type text: %w: %s", err, out)
	}
	return nil
}

// CaptureScreen runs the configured screenshot command against a temporary
// file and returns its content.
func (d *ExecDesktop) CaptureScreen(ctx context.Context) ([]byte, error) {
	if len(d.ScreenshotCommand) == 0 {
		return nil, fmt.Errorf("capture screen: no screenshot command configured")
	}

	dir, err := os.MkdirTemp("", "warden-screenshot-")
	if err != nil {
		return nil, fmt.Errorf("capture screen: %w", err)
	}
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, "screen.png")
	args := append(append([]string{}, d.ScreenshotCommand[1:]...), path)
	cmd := exec.CommandContext(ctx, d.ScreenshotCommand[0], args...)
	if out, err := cmd.CombinedOutput(); err != nil {
		return nil, fmt.Errorf("capture screen: %w: %s", err, out)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("capture screen: read %s: %w", path, err)
	}
	return data, nil
}
