// step.go defines the scripted step: launch a program, wait for it to come
// up, type a fixed string.

package automation

import (
	"context"
	"fmt"
	"time"
)

// Step is one scripted automation action.
type Step interface {
	Name() string
	Run(ctx context.Context) error
}

// ScriptConfig describes the scripted step.
type ScriptConfig struct {
	// Name identifies the step in logs. Defaults to the launched command.
	Name string

	// Command and Args are the program to launch.
	Command string
	Args    []string

	// StartupDelay is how long to wait after launch before typing.
	StartupDelay time.Duration

	// Text is typed into the launched program.
	Text string

	// TypeInterval is the per-key delay while typing.
	TypeInterval time.Duration
}

// ScriptedStep launches one fixed program, waits a fixed duration, then
// injects one fixed string via simulated keystrokes. It performs no error
// handling of its own; failures propagate to the caller.
type ScriptedStep struct {
	desktop Desktop
	cfg     ScriptConfig
}

// NewScriptedStep creates the step over the given desktop primitives.
func NewScriptedStep(desktop Desktop, cfg ScriptConfig) *ScriptedStep {
	if cfg.Name == "" {
		cfg.Name = cfg.Command
	}
	return &ScriptedStep{desktop: desktop, cfg: cfg}
}

// Name identifies the step in log entries.
func (s *ScriptedStep) Name() string {
	return s.cfg.Name
}

// Run performs the scripted action: launch, wait, type.
func (s *ScriptedStep) Run(ctx context.Context) error {
	if err := s.desktop.Launch(ctx, s.cfg.Command, s.cfg.Args...); err != nil {
		return err
	}

	if s.cfg.StartupDelay > 0 {
		timer := time.NewTimer(s.cfg.StartupDelay)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			return fmt.Errorf("waiting for %s to start: %w", s.cfg.Command, ctx.Err())
		}
	}

	if s.cfg.Text != "" {
		if err := s.desktop.TypeText(ctx, s.cfg.Text, s.cfg.TypeInterval); err != nil {
			return err
		}
	}
	return nil
}
