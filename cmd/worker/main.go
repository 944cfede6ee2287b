// Command worker runs one scripted desktop-automation step under the
// orchestration framework, reporting any failure to the framework's log
// and queue, to operators by email, and to the ticketing system.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/spf13/pflag"

	"github.com/botmind/rpa-observe/internal/config"
	"github.com/botmind/rpa-observe/pkg/automation"
	"github.com/botmind/rpa-observe/pkg/warden"
	"github.com/botmind/rpa-observe/pkg/warden/notify"
	"github.com/botmind/rpa-observe/pkg/warden/orchestrator"
	"github.com/botmind/rpa-observe/pkg/warden/servicenow"
	"github.com/botmind/rpa-observe/pkg/warden/sinks/multi"
	"github.com/botmind/rpa-observe/pkg/warden/sinks/stderr"
)

func main() {
	configPath := pflag.String("config", os.Getenv("RPA_OBSERVE_CONFIG"), "path to the worker configuration file")
	environment := pflag.String("environment", "", "override the configured environment (production or test)")
	retryCount := pflag.String("retry-count", "", "retry counter the framework dispatched this run with")
	verbose := pflag.Bool("verbose", false, "print full reports, including stack traces, to stderr")
	pflag.Parse()

	if err := run(*configPath, *environment, *retryCount, *verbose); err != nil {
		log.Fatalf("worker: %v", err)
	}
}

func run(configPath, environment, retryCount string, verbose bool) error {
	if configPath == "" {
		return errors.New("no configuration file: set --config or RPA_OBSERVE_CONFIG")
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if environment != "" {
		cfg.Environment = config.Environment(environment)
		if err := cfg.Validate(); err != nil {
			return err
		}
	}

	conn, err := orchestrator.NewSQLiteConnection(cfg.Orchestrator.Database, cfg.Process.Name)
	if err != nil {
		return err
	}
	defer conn.Close()

	ctx := context.Background()
	defer warden.Recover(ctx, conn)

	_ = conn.LogTrace(ctx, "Finalizing.")

	start := time.Now()
	desktop := &automation.ExecDesktop{
		TypeCommand:       cfg.Automation.TypeCommand,
		ScreenshotCommand: cfg.Automation.ScreenshotCommand,
	}

	opts := []warden.ReporterOption{
		warden.WithRedaction(),
		warden.WithWorkerState(start),
	}
	if verbose {
		opts = append(opts, warden.WithSink(multi.NewMultiSink(
			warden.NewOrchestratorSink(conn),
			stderr.NewStderrSink(stderr.WithVerbose()),
		)))
	}
	opts = append(opts, notifierOptions(ctx, conn, cfg, desktop)...)
	opts = append(opts, escalatorOptions(ctx, conn, cfg)...)

	reporter := warden.NewReporter(conn, opts...)
	runner := warden.NewRunner(conn, reporter)

	step := automation.NewScriptedStep(desktop, automation.ScriptConfig{
		Command:      cfg.Automation.Command,
		Args:         cfg.Automation.Args,
		StartupDelay: cfg.Automation.StartupDelay,
		Text:         cfg.Automation.Text,
		TypeInterval: cfg.Automation.TypeInterval,
	})

	var elementID string
	if cfg.Process.Queue != "" {
		element, err := conn.NextQueueElement(ctx, cfg.Process.Queue)
		if err != nil {
			return err
		}
		if element != nil {
			elementID = element.ID
		}
	}

	if err := runner.RunStep(ctx, step, elementID, retryCount); err != nil {
		// Already reported; the exit status tells the framework the run failed.
		return fmt.Errorf("step failed: %w", err)
	}

	if elementID != "" {
		if err := conn.SetQueueElementStatus(ctx, elementID, orchestrator.StatusDone, ""); err != nil {
			return err
		}
	}
	return nil
}

// notifierOptions wires the screenshot email when an address is configured.
func notifierOptions(ctx context.Context, conn *orchestrator.SQLiteConnection, cfg *config.Config, desktop automation.Desktop) []warden.ReporterOption {
	if cfg.SMTP.Host == "" {
		return nil
	}
	errorEmail, err := conn.GetConstant(ctx, cfg.Orchestrator.ErrorEmailConstant)
	if err != nil {
		_ = conn.LogTrace(ctx, fmt.Sprintf("Error email constant unavailable, notifications disabled: %v.", err))
		return nil
	}

	mailer := notify.NewSMTPMailer(notify.SMTPConfig{
		Host:     cfg.SMTP.Host,
		Port:     cfg.SMTP.Port,
		From:     cfg.SMTP.From,
		Username: cfg.SMTP.Username,
		Password: cfg.SMTP.Password,
	})
	return []warden.ReporterOption{
		warden.WithNotifier(mailer, errorEmail.Value),
		warden.WithScreenshot(desktop.CaptureScreen),
	}
}

// escalatorOptions wires the ticketing escalator when an instance is
// configured for the active environment.
func escalatorOptions(ctx context.Context, conn *orchestrator.SQLiteConnection, cfg *config.Config) []warden.ReporterOption {
	instance := cfg.Instance()
	if instance == "" {
		return nil
	}

	cred, err := conn.GetCredential(ctx, cfg.Orchestrator.ServiceNowCredential)
	if err != nil {
		_ = conn.LogTrace(ctx, fmt.Sprintf("Ticketing credential unavailable, escalation disabled: %v.", err))
		return nil
	}
	maxRetry, err := conn.GetConstant(ctx, cfg.Orchestrator.MaxRetryConstant)
	if err != nil {
		_ = conn.LogTrace(ctx, fmt.Sprintf("Max retry constant unavailable, escalation disabled: %v.", err))
		return nil
	}

	client := servicenow.NewClient(servicenow.ClientConfig{
		Instance: instance,
		Username: cred.Username,
		Password: cred.Password,
		Timeout:  cfg.ServiceNow.Timeout,
	})
	escalator := servicenow.NewEscalator(client, servicenow.EscalatorConfig{
		AssignmentGroup: cfg.ServiceNow.AssignmentGroup,
		Category:        cfg.ServiceNow.Category,
		ContactType:     cfg.ServiceNow.ContactType,
		BusinessService: cfg.ServiceNow.BusinessService,
		ServiceOffering: cfg.ServiceNow.ServiceOffering,
		AssignedTo:      cfg.ServiceNow.AssignedTo,
		OnLookupFailure: servicenow.LookupFailurePolicy(cfg.ServiceNow.OnLookupFailure),
	})
	return []warden.ReporterOption{
		warden.WithEscalator(escalator),
		warden.WithMaxRetryCount(maxRetry.Value),
	}
}
