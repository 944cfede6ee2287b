// escalator.go decides whether a qualifying failure updates an existing
// open incident or opens a new one.

package servicenow

import (
	"context"
	"fmt"
	"log"

	"github.com/botmind/rpa-observe/pkg/warden"
)

// LookupFailurePolicy decides what the escalator does when the open-incident
// lookup itself fails. An empty lookup and a failed lookup are different
// situations; the policy makes the choice between them explicit.
type LookupFailurePolicy string

const (
	// PolicyCreate treats a failed lookup like an empty one and proceeds
	// to create a new incident. A duplicate incident is possible when the
	// ticketing system was reachable for the create but not the lookup.
	PolicyCreate LookupFailurePolicy = "create"

	// PolicyAbort skips escalation and surfaces the lookup failure, so no
	// incident is created while the true state is unknown.
	PolicyAbort LookupFailurePolicy = "abort"
)

// IncidentAPI is the minimal interface the escalator needs from the
// ServiceNow client. The real *Client satisfies this interface.
type IncidentAPI interface {
	FindOpenIncident(ctx context.Context, processName string) (*Incident, error)
	AddComment(ctx context.Context, sysID, comment string) error
	CreateIncident(ctx context.Context, incident NewIncident) (*Incident, error)
}

// EscalatorConfig configures incident creation.
type EscalatorConfig struct {
	// AssignmentGroup is the sys_id of the group new incidents go to.
	AssignmentGroup string

	// Category is the incident category. Defaults to "Fejl".
	Category string

	// ContactType is always "integration" for incidents opened over the
	// API; configurable for instances using a different convention.
	ContactType string

	// BusinessService, ServiceOffering, and AssignedTo pass straight into
	// the create payload. All three may be empty.
	BusinessService string
	ServiceOffering string
	AssignedTo      string

	// OnLookupFailure selects the policy for failed lookups.
	// Defaults to PolicyCreate.
	OnLookupFailure LookupFailurePolicy

	// Logger receives escalation diagnostics. Defaults to the standard logger.
	Logger *log.Logger
}

// Escalator implements warden.Escalator against the ServiceNow incident
// table. At most one open incident should exist per process name; matching
// failures append comments to it until it is resolved externally.
type Escalator struct {
	api IncidentAPI
	cfg EscalatorConfig
}

// NewEscalator creates an escalator using the given API and configuration.
func NewEscalator(api IncidentAPI, cfg EscalatorConfig) *Escalator {
	if cfg.Category == "" {
		cfg.Category = "Fejl"
	}
	if cfg.ContactType == "" {
		cfg.ContactType = "integration"
	}
	if cfg.OnLookupFailure == "" {
		cfg.OnLookupFailure = PolicyCreate
	}
	if cfg.Logger == nil {
		cfg.Logger = log.Default()
	}
	return &Escalator{api: api, cfg: cfg}
}

// Escalate looks up the newest open incident matching the report's process
// name and appends a comment to it, or creates a new incident when none is
// open. Exactly one write call follows the lookup on either path.
func (e *Escalator) Escalate(ctx context.Context, report warden.ErrorReport) (warden.EscalationResult, error) {
	existing, err := e.api.FindOpenIncident(ctx, report.ProcessName)
	if err != nil {
		e.cfg.Logger.Printf("servicenow: open incident lookup for %q failed: %v", report.ProcessName, err)
		if e.cfg.OnLookupFailure == PolicyAbort {
			return warden.EscalationResult{}, fmt.Errorf("open incident lookup failed: %w", err)
		}
		// PolicyCreate: fall through as if no incident is open.
		existing = nil
	}

	if existing != nil {
		if err := e.api.AddComment(ctx, existing.SysID, commentText(report)); err != nil {
			return warden.EscalationResult{}, fmt.Errorf("update incident %s: %w", existing.SysID, err)
		}
		return warden.EscalationResult{Action: warden.ActionUpdated, IncidentID: existing.SysID}, nil
	}

	created, err := e.api.CreateIncident(ctx, e.newIncident(report))
	if err != nil {
		return warden.EscalationResult{}, fmt.Errorf("create incident: %w", err)
	}
	return warden.EscalationResult{Action: warden.ActionCreated, IncidentID: created.SysID}, nil
}

// newIncident builds the create payload for a failure report.
func (e *Escalator) newIncident(report warden.ErrorReport) NewIncident {
	return NewIncident{
		ContactType: e.cfg.ContactType,
		ShortDescription: fmt.Sprintf("%s caught in process '%s'",
			report.Category, report.ProcessName),
		Description: fmt.Sprintf("Error message:\n%s\n\nFull error trace message:\n%s",
			report.Message, report.StackTrace),
		BusinessService: e.cfg.BusinessService,
		ServiceOffering: e.cfg.ServiceOffering,
		AssignmentGroup: e.cfg.AssignmentGroup,
		AssignedTo:      e.cfg.AssignedTo,
		Category:        e.cfg.Category,
	}
}

// commentText renders the comment appended to an existing open incident.
func commentText(report warden.ErrorReport) string {
	return fmt.Sprintf("The process '%s' has encountered another %s!\n\n"+
		"Exception message:\n%s\n\n"+
		"Full Exception trace:\n%s\n\n"+
		"Please investigate the source of this error, as this comment is attached "+
		"to an existing incident with the same process name.",
		report.ProcessName, report.Category, report.Message, report.StackTrace)
}
