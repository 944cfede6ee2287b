package servicenow

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
)

// recordedRequest captures one request to the fake API.
type recordedRequest struct {
	Method string
	Path   string
	Query  url.Values
	Body   string
	User   string
	Pass   string
}

// newFakeAPI starts an httptest server that records requests and replies
// with the given status and body.
func newFakeAPI(t *testing.T, status int, body string) (*Client, *[]recordedRequest) {
	t.Helper()

	var requests []recordedRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		user, pass, _ := r.BasicAuth()
		requests = append(requests, recordedRequest{
			Method: r.Method,
			Path:   r.URL.Path,
			Query:  r.URL.Query(),
			Body:   string(data),
			User:   user,
			Pass:   pass,
		})
		w.WriteHeader(status)
		io.WriteString(w, body)
	}))
	t.Cleanup(server.Close)

	client := NewClient(ClientConfig{
		BaseURL:  server.URL,
		Username: "api-user",
		Password: "api-pass",
	})
	return client, &requests
}

func TestClient_FindOpenIncident(t *testing.T) {
	client, requests := newFakeAPI(t, http.StatusOK,
		`{"result":[{"sys_id":"abc123","number":"INC0010001","short_description":"ApplicationException caught in process 'InvoiceWorker'","state":"2"}]}`)

	incident, err := client.FindOpenIncident(context.Background(), "InvoiceWorker")
	if err != nil {
		t.Fatalf("FindOpenIncident: %v", err)
	}
	if incident == nil || incident.SysID != "abc123" {
		t.Fatalf("incident = %+v, want sys_id abc123", incident)
	}

	req := (*requests)[0]
	if req.Method != http.MethodGet {
		t.Errorf("Method = %q, want GET", req.Method)
	}
	if req.Path != "/api/now/table/incident" {
		t.Errorf("Path = %q, want /api/now/table/incident", req.Path)
	}
	if req.User != "api-user" || req.Pass != "api-pass" {
		t.Errorf("Basic auth = %q/%q, want api-user/api-pass", req.User, req.Pass)
	}
	if req.Query.Get("sysparm_limit") != "50" {
		t.Errorf("sysparm_limit = %q, want 50", req.Query.Get("sysparm_limit"))
	}

	query := req.Query.Get("sysparm_query")
	for _, fragment := range []string{
		"short_descriptionLIKEInvoiceWorker",
		"active=true",
		"state!=6",
		"ORDERBYDESCsys_created_on",
	} {
		if !strings.Contains(query, fragment) {
			t.Errorf("sysparm_query missing %q: %q", fragment, query)
		}
	}
}

func TestClient_FindOpenIncident_EmptyResult(t *testing.T) {
	client, _ := newFakeAPI(t, http.StatusOK, `{"result":[]}`)

	incident, err := client.FindOpenIncident(context.Background(), "InvoiceWorker")
	if err != nil {
		t.Fatalf("FindOpenIncident: %v", err)
	}
	if incident != nil {
		t.Errorf("incident = %+v, want nil for empty result", incident)
	}
}

func TestClient_FindOpenIncident_TakesNewest(t *testing.T) {
	// The API orders by newest first; the client must take the first entry.
	client, _ := newFakeAPI(t, http.StatusOK,
		`{"result":[{"sys_id":"newest"},{"sys_id":"older"}]}`)

	incident, err := client.FindOpenIncident(context.Background(), "InvoiceWorker")
	if err != nil {
		t.Fatalf("FindOpenIncident: %v", err)
	}
	if incident.SysID != "newest" {
		t.Errorf("SysID = %q, want newest", incident.SysID)
	}
}

func TestClient_FindOpenIncident_NonOKStatus(t *testing.T) {
	client, _ := newFakeAPI(t, http.StatusForbidden, `{"error":"denied"}`)

	_, err := client.FindOpenIncident(context.Background(), "InvoiceWorker")

	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("error = %v, want *StatusError", err)
	}
	if statusErr.StatusCode != http.StatusForbidden {
		t.Errorf("StatusCode = %d, want 403", statusErr.StatusCode)
	}
	if !strings.Contains(statusErr.Body, "denied") {
		t.Errorf("Body = %q, want response body included", statusErr.Body)
	}
}

func TestClient_AddComment(t *testing.T) {
	client, requests := newFakeAPI(t, http.StatusOK, `{"result":{}}`)

	if err := client.AddComment(context.Background(), "abc123", "another failure"); err != nil {
		t.Fatalf("AddComment: %v", err)
	}

	req := (*requests)[0]
	if req.Method != http.MethodPut {
		t.Errorf("Method = %q, want PUT", req.Method)
	}
	if req.Path != "/api/now/table/incident/abc123" {
		t.Errorf("Path = %q, want /api/now/table/incident/abc123", req.Path)
	}

	var payload map[string]string
	if err := json.Unmarshal([]byte(req.Body), &payload); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if payload["comments"] != "another failure" {
		t.Errorf("comments = %q, want the comment text", payload["comments"])
	}
}

func TestClient_CreateIncident(t *testing.T) {
	client, requests := newFakeAPI(t, http.StatusOK,
		`{"result":{"sys_id":"new123","number":"INC0010002"}}`)

	created, err := client.CreateIncident(context.Background(), NewIncident{
		ContactType:      "integration",
		ShortDescription: "ApplicationException caught in process 'InvoiceWorker'",
		Category:         "Fejl",
		AssignmentGroup:  "group-sys-id",
	})
	if err != nil {
		t.Fatalf("CreateIncident: %v", err)
	}
	if created.SysID != "new123" {
		t.Errorf("SysID = %q, want new123", created.SysID)
	}

	req := (*requests)[0]
	if req.Method != http.MethodPost {
		t.Errorf("Method = %q, want POST", req.Method)
	}
	if req.Path != "/api/now/table/incident" {
		t.Errorf("Path = %q, want /api/now/table/incident", req.Path)
	}

	var payload map[string]string
	if err := json.Unmarshal([]byte(req.Body), &payload); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if payload["contact_type"] != "integration" {
		t.Errorf("contact_type = %q, want integration", payload["contact_type"])
	}
	if payload["category"] != "Fejl" {
		t.Errorf("category = %q, want Fejl", payload["category"])
	}
	if payload["assignment_group"] != "group-sys-id" {
		t.Errorf("assignment_group = %q, want group-sys-id", payload["assignment_group"])
	}
}

func TestClient_CreateIncident_NonOKStatus(t *testing.T) {
	// Creation replies with 201 on some instances; the client requires
	// exactly 200 and reports everything else.
	client, _ := newFakeAPI(t, http.StatusCreated, `{"result":{"sys_id":"new123"}}`)

	_, err := client.CreateIncident(context.Background(), NewIncident{})

	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("error = %v, want *StatusError", err)
	}
	if statusErr.StatusCode != http.StatusCreated {
		t.Errorf("StatusCode = %d, want 201", statusErr.StatusCode)
	}
}

func TestNewClient_InstanceURL(t *testing.T) {
	client := NewClient(ClientConfig{Instance: "example"})
	if client.baseURL != "https://example.service-now.com" {
		t.Errorf("baseURL = %q, want https://example.service-now.com", client.baseURL)
	}
}
