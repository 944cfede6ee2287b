// Package config loads worker configuration from a single YAML file.
//
// The file is specified by the --config flag or the RPA_OBSERVE_CONFIG
// environment variable. There is no automatic discovery; every run states
// its configuration explicitly.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Environment selects which ServiceNow instance the worker talks to.
type Environment string

const (
	// Production targets the production ticketing instance.
	Production Environment = "production"
	// Test targets the test ticketing instance.
	Test Environment = "test"
)

// Config is the worker configuration.
type Config struct {
	// Environment selects the ticketing instance. Defaults to test.
	Environment Environment `yaml:"environment"`

	Process      ProcessConfig      `yaml:"process"`
	Orchestrator OrchestratorConfig `yaml:"orchestrator"`
	ServiceNow   ServiceNowConfig   `yaml:"servicenow"`
	Automation   AutomationConfig   `yaml:"automation"`
	SMTP         SMTPConfig         `yaml:"smtp"`
}

// ProcessConfig names the orchestrator process and its work queue.
type ProcessConfig struct {
	Name  string `yaml:"name"`
	Queue string `yaml:"queue"`
}

// OrchestratorConfig locates the framework store and names the keys the
// worker reads from it.
type OrchestratorConfig struct {
	// Database is the SQLite DSN of the orchestrator store.
	Database string `yaml:"database"`

	// ErrorEmailConstant names the constant holding the notification address.
	ErrorEmailConstant string `yaml:"error_email_constant"`

	// MaxRetryConstant names the constant holding the maximum retry count.
	MaxRetryConstant string `yaml:"max_retry_constant"`

	// ServiceNowCredential names the ticketing API credential.
	ServiceNowCredential string `yaml:"servicenow_credential"`
}

// ServiceNowConfig configures the ticketing integration.
type ServiceNowConfig struct {
	// Instances maps each environment to its instance name.
	Instances map[Environment]string `yaml:"instances"`

	AssignmentGroup string `yaml:"assignment_group"`
	Category        string `yaml:"category"`
	ContactType     string `yaml:"contact_type"`
	BusinessService string `yaml:"business_service"`
	ServiceOffering string `yaml:"service_offering"`
	AssignedTo      string `yaml:"assigned_to"`

	// OnLookupFailure is "create" or "abort". Defaults to create.
	OnLookupFailure string `yaml:"on_lookup_failure"`

	// Timeout bounds each API call.
	Timeout time.Duration `yaml:"timeout"`
}

// AutomationConfig describes the scripted step and the desktop commands.
type AutomationConfig struct {
	Command      string        `yaml:"command"`
	Args         []string      `yaml:"args"`
	StartupDelay time.Duration `yaml:"startup_delay"`
	Text         string        `yaml:"text"`
	TypeInterval time.Duration `yaml:"type_interval"`

	TypeCommand       []string `yaml:"type_command"`
	ScreenshotCommand []string `yaml:"screenshot_command"`
}

// SMTPConfig locates the mail relay for error notifications.
type SMTPConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	From     string `yaml:"from"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// Default returns the configuration defaults applied before the file is
// read.
func Default() *Config {
	return &Config{
		Environment: Test,
		Orchestrator: OrchestratorConfig{
			Database:             "file:orchestrator.db?cache=shared&mode=rwc",
			ErrorEmailConstant:   "errorEmail",
			MaxRetryConstant:     "maxRetryCount",
			ServiceNowCredential: "servicenow_api",
		},
		ServiceNow: ServiceNowConfig{
			Category:        "Fejl",
			ContactType:     "integration",
			OnLookupFailure: "create",
			Timeout:         30 * time.Second,
		},
		Automation: AutomationConfig{
			StartupDelay: 3 * time.Second,
			TypeInterval: 200 * time.Millisecond,
		},
		SMTP: SMTPConfig{
			Port: 25,
		},
	}
}

// Load reads and validates the configuration file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the configuration for contradictions and holes.
func (c *Config) Validate() error {
	switch c.Environment {
	case Production, Test:
	default:
		return fmt.Errorf("unknown environment %q", c.Environment)
	}
	if c.Process.Name == "" {
		return fmt.Errorf("process.name is required")
	}
	if c.Automation.Command == "" {
		return fmt.Errorf("automation.command is required")
	}
	if _, ok := c.ServiceNow.Instances[c.Environment]; !ok && len(c.ServiceNow.Instances) > 0 {
		return fmt.Errorf("servicenow.instances has no entry for environment %q", c.Environment)
	}
	switch c.ServiceNow.OnLookupFailure {
	case "create", "abort":
	default:
		return fmt.Errorf("servicenow.on_lookup_failure must be create or abort, got %q", c.ServiceNow.OnLookupFailure)
	}
	return nil
}

// Instance returns the ServiceNow instance name for the configured
// environment, or empty when ticketing is not configured.
func (c *Config) Instance() string {
	return c.ServiceNow.Instances[c.Environment]
}
