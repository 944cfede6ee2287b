// Package servicenow provides a client for the ServiceNow incident table
// API and an escalator that deduplicates against open incidents.
package servicenow

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// lookupLimit caps how many incidents one lookup returns. The query orders
// by newest first, so the first result is always the one to update.
const lookupLimit = 50

// resolvedState is the incident state code meaning "resolved". Incidents
// in this state are never updated; a new one is created instead.
const resolvedState = "6"

// ClientConfig configures the ServiceNow client.
type ClientConfig struct {
	// Instance is the ServiceNow instance name, expanded to
	// https://<instance>.service-now.com when BaseURL is unset.
	Instance string

	// BaseURL overrides the instance-derived URL. Used for tests.
	BaseURL string

	// Username and Password authenticate every call via HTTP basic auth.
	Username string
	Password string

	// Timeout bounds each HTTP call. Defaults to 30 seconds.
	Timeout time.Duration
}

// Incident is the subset of the incident table this worker reads.
type Incident struct {
	SysID            string `json:"sys_id"`
	Number           string `json:"number"`
	ShortDescription string `json:"short_description"`
	State            string `json:"state"`
	CreatedOn        string `json:"sys_created_on"`
}

// NewIncident is the payload for creating an incident.
type NewIncident struct {
	ContactType      string `json:"contact_type"`
	ShortDescription string `json:"short_description"`
	Description      string `json:"description"`
	BusinessService  string `json:"business_service"`
	ServiceOffering  string `json:"service_offering"`
	AssignmentGroup  string `json:"assignment_group"`
	AssignedTo       string `json:"assigned_to"`
	Category         string `json:"category"`
}

// StatusError reports a non-200 response from the API.
type StatusError struct {
	StatusCode int
	Body       string
}

// Error implements the error interface.
func (e *StatusError) Error() string {
	return fmt.Sprintf("servicenow: unexpected status %d: %s", e.StatusCode, e.Body)
}

// Client calls the ServiceNow incident table API.
type Client struct {
	baseURL    string
	username   string
	password   string
	httpClient *http.Client
}

// NewClient creates a ServiceNow client.
func NewClient(cfg ClientConfig) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = fmt.Sprintf("https://%s.service-now.com", cfg.Instance)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL:  baseURL,
		username: cfg.Username,
		password: cfg.Password,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// FindOpenIncident queries for the newest open incident whose short
// description contains processName. Open means active and not in the
// resolved state. Returns (nil, nil) when no open incident matches; a
// non-200 response becomes a *StatusError so the caller can tell a failed
// lookup apart from an empty one.
func (c *Client) FindOpenIncident(ctx context.Context, processName string) (*Incident, error) {
	query := fmt.Sprintf("short_descriptionLIKE%s^active=true^state!=%s^ORDERBYDESCsys_created_on",
		processName, resolvedState)
	lookupURL := fmt.Sprintf("%s/api/now/table/incident?sysparm_limit=%d&sysparm_query=%s",
		c.baseURL, lookupLimit, url.QueryEscape(query))

	var result struct {
		Result []Incident `json:"result"`
	}
	if err := c.do(ctx, http.MethodGet, lookupURL, nil, &result); err != nil {
		return nil, err
	}
	if len(result.Result) == 0 {
		return nil, nil
	}
	return &result.Result[0], nil
}

// AddComment appends a work-note comment to an existing incident.
func (c *Client) AddComment(ctx context.Context, sysID, comment string) error {
	updateURL := fmt.Sprintf("%s/api/now/table/incident/%s", c.baseURL, sysID)
	body := map[string]string{"comments": comment}
	return c.do(ctx, http.MethodPut, updateURL, body, nil)
}

// CreateIncident opens a new incident and returns the created record.
func (c *Client) CreateIncident(ctx context.Context, incident NewIncident) (*Incident, error) {
	createURL := fmt.Sprintf("%s/api/now/table/incident", c.baseURL)
	var result struct {
		Result Incident `json:"result"`
	}
	if err := c.do(ctx, http.MethodPost, createURL, incident, &result); err != nil {
		return nil, err
	}
	return &result.Result, nil
}

// do performs one authenticated JSON call. Every call expects exactly
// HTTP 200; anything else becomes a *StatusError.
func (c *Client) do(ctx context.Context, method, callURL string, body, out any) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, callURL, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.SetBasicAuth(c.username, c.password)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, callURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &StatusError{StatusCode: resp.StatusCode, Body: string(data)}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
