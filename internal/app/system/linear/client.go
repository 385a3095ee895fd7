package linear

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
)

// DefaultAPIURL is Linear's GraphQL endpoint.
const DefaultAPIURL = "https://api.linear.app/graphql"

// ErrRateLimited is returned when Linear answers 429.
var ErrRateLimited = errors.New("linear: rate limited")

// APIError describes a non-2xx response or a GraphQL error list.
type APIError struct {
	Status   int
	Messages []string
}

func (e *APIError) Error() string {
	if len(e.Messages) == 0 {
		return fmt.Sprintf("linear: http %d", e.Status)
	}
	return fmt.Sprintf("linear: %s", strings.Join(e.Messages, "; "))
}

// Client talks to the Linear GraphQL API. Every request waits on the shared
// limiter before it is sent.
type Client struct {
	endpoint string
	http     *http.Client
	limiter  *rate.Limiter
	log      *zap.Logger
}

// NewClient returns a client that authenticates with ts. A nil limiter
// disables throttling.
func NewClient(ctx context.Context, endpoint string, ts oauth2.TokenSource, limiter *rate.Limiter, logger *zap.Logger) *Client {
	if endpoint == "" {
		endpoint = DefaultAPIURL
	}
	hc := oauth2.NewClient(ctx, ts)
	hc.Timeout = 20 * time.Second
	return &Client{endpoint: endpoint, http: hc, limiter: limiter, log: logger}
}

// NewLimiter returns a limiter allowing rps requests per second with a
// burst of the same size (at least one).
func NewLimiter(rps float64) *rate.Limiter {
	if rps <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	burst := int(rps)
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(rps), burst)
}

type gqlRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

type gqlResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

func (c *Client) do(ctx context.Context, query string, vars map[string]any, out any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}
	}
	body, err := json.Marshal(gqlRequest{Query: query, Variables: vars})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("linear request: %w", err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return fmt.Errorf("linear response: %w", err)
	}
	c.log.Debug("linear api call",
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", time.Since(start)))

	if resp.StatusCode == http.StatusTooManyRequests {
		return ErrRateLimited
	}

	var gr gqlResponse
	if err := json.Unmarshal(raw, &gr); err != nil {
		if resp.StatusCode >= 300 {
			return &APIError{Status: resp.StatusCode}
		}
		return fmt.Errorf("decode linear response: %w", err)
	}
	if len(gr.Errors) > 0 || resp.StatusCode >= 300 {
		apiErr := &APIError{Status: resp.StatusCode}
		for _, e := range gr.Errors {
			apiErr.Messages = append(apiErr.Messages, e.Message)
		}
		return apiErr
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(gr.Data, out)
}

// Organization is the Linear workspace the token belongs to.
type Organization struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	URLKey string `json:"urlKey"`
}

// Team is a Linear team.
type Team struct {
	ID   string `json:"id"`
	Key  string `json:"key"`
	Name string `json:"name"`
}

// WorkflowState is one column of a team's issue workflow.
type WorkflowState struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Type string `json:"type"`
}

// Issue is the subset of a Linear issue the sync keeps.
type Issue struct {
	ID         string        `json:"id"`
	Identifier string        `json:"identifier"`
	URL        string        `json:"url"`
	Title      string        `json:"title"`
	State      WorkflowState `json:"state"`
}

// Project is the subset of a Linear project the sync keeps.
type Project struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	URL   string `json:"url"`
	State string `json:"state"`
}

// IssueInput is sent on issueCreate and issueUpdate.
type IssueInput struct {
	TeamID      string `json:"teamId,omitempty"`
	ProjectID   string `json:"projectId,omitempty"`
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	Priority    *int   `json:"priority,omitempty"`
	StateID     string `json:"stateId,omitempty"`
	DueDate     string `json:"dueDate,omitempty"`
}

// ProjectInput is sent on projectCreate and projectUpdate.
type ProjectInput struct {
	Name        string   `json:"name,omitempty"`
	Description string   `json:"description,omitempty"`
	TeamIDs     []string `json:"teamIds,omitempty"`
	State       string   `json:"state,omitempty"`
	StartDate   string   `json:"startDate,omitempty"`
	TargetDate  string   `json:"targetDate,omitempty"`
}

const (
	organizationQuery = `query { organization { id name urlKey } }`
	teamsQuery        = `query { teams(first: 100) { nodes { id key name } } }`
	statesQuery       = `query($teamId: String!) { team(id: $teamId) { states { nodes { id name type } } } }`
	issueFields       = `id identifier url title state { id name type }`
	projectFields     = `id name url state`
)

// Organization returns the organization of the authenticated token.
func (c *Client) Organization(ctx context.Context) (Organization, error) {
	var out struct {
		Organization Organization `json:"organization"`
	}
	if err := c.do(ctx, organizationQuery, nil, &out); err != nil {
		return Organization{}, err
	}
	return out.Organization, nil
}

// Teams lists the teams visible to the token.
func (c *Client) Teams(ctx context.Context) ([]Team, error) {
	var out struct {
		Teams struct {
			Nodes []Team `json:"nodes"`
		} `json:"teams"`
	}
	if err := c.do(ctx, teamsQuery, nil, &out); err != nil {
		return nil, err
	}
	if out.Teams.Nodes == nil {
		return []Team{}, nil
	}
	return out.Teams.Nodes, nil
}

// WorkflowStates lists the issue workflow states of a team.
func (c *Client) WorkflowStates(ctx context.Context, teamID string) ([]WorkflowState, error) {
	var out struct {
		Team struct {
			States struct {
				Nodes []WorkflowState `json:"nodes"`
			} `json:"states"`
		} `json:"team"`
	}
	if err := c.do(ctx, statesQuery, map[string]any{"teamId": teamID}, &out); err != nil {
		return nil, err
	}
	return out.Team.States.Nodes, nil
}

type issuePayload struct {
	Success bool  `json:"success"`
	Issue   Issue `json:"issue"`
}

// CreateIssue creates an issue.
func (c *Client) CreateIssue(ctx context.Context, in IssueInput) (Issue, error) {
	var out struct {
		IssueCreate issuePayload `json:"issueCreate"`
	}
	q := `mutation($input: IssueCreateInput!) { issueCreate(input: $input) { success issue { ` + issueFields + ` } } }`
	if err := c.do(ctx, q, map[string]any{"input": in}, &out); err != nil {
		return Issue{}, err
	}
	if !out.IssueCreate.Success {
		return Issue{}, &APIError{Status: http.StatusOK, Messages: []string{"issueCreate was not successful"}}
	}
	return out.IssueCreate.Issue, nil
}

// UpdateIssue updates an existing issue.
func (c *Client) UpdateIssue(ctx context.Context, id string, in IssueInput) (Issue, error) {
	var out struct {
		IssueUpdate issuePayload `json:"issueUpdate"`
	}
	q := `mutation($id: String!, $input: IssueUpdateInput!) { issueUpdate(id: $id, input: $input) { success issue { ` + issueFields + ` } } }`
	if err := c.do(ctx, q, map[string]any{"id": id, "input": in}, &out); err != nil {
		return Issue{}, err
	}
	if !out.IssueUpdate.Success {
		return Issue{}, &APIError{Status: http.StatusOK, Messages: []string{"issueUpdate was not successful"}}
	}
	return out.IssueUpdate.Issue, nil
}

type projectPayload struct {
	Success bool    `json:"success"`
	Project Project `json:"project"`
}

// CreateProject creates a project.
func (c *Client) CreateProject(ctx context.Context, in ProjectInput) (Project, error) {
	var out struct {
		ProjectCreate projectPayload `json:"projectCreate"`
	}
	q := `mutation($input: ProjectCreateInput!) { projectCreate(input: $input) { success project { ` + projectFields + ` } } }`
	if err := c.do(ctx, q, map[string]any{"input": in}, &out); err != nil {
		return Project{}, err
	}
	if !out.ProjectCreate.Success {
		return Project{}, &APIError{Status: http.StatusOK, Messages: []string{"projectCreate was not successful"}}
	}
	return out.ProjectCreate.Project, nil
}

// UpdateProject updates an existing project.
func (c *Client) UpdateProject(ctx context.Context, id string, in ProjectInput) (Project, error) {
	var out struct {
		ProjectUpdate projectPayload `json:"projectUpdate"`
	}
	q := `mutation($id: String!, $input: ProjectUpdateInput!) { projectUpdate(id: $id, input: $input) { success project { ` + projectFields + ` } } }`
	if err := c.do(ctx, q, map[string]any{"id": id, "input": in}, &out); err != nil {
		return Project{}, err
	}
	if !out.ProjectUpdate.Success {
		return Project{}, &APIError{Status: http.StatusOK, Messages: []string{"projectUpdate was not successful"}}
	}
	return out.ProjectUpdate.Project, nil
}

// FormatDate renders a date the way Linear's TimelessDate expects.
func FormatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format("2006-01-02")
}

// ParseDate parses a Linear TimelessDate or RFC 3339 timestamp. Empty or
// malformed input returns nil.
func ParseDate(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for _, layout := range []string{"2006-01-02", time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			u := t.UTC()
			return &u
		}
	}
	return nil
}
