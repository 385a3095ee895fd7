package linear

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"strings"
	"time"
)

const (
	// SignatureHeader carries the hex HMAC-SHA256 of the raw body.
	SignatureHeader = "Linear-Signature"
	// DeliveryHeader carries Linear's delivery id.
	DeliveryHeader = "Linear-Delivery"
	// MaxWebhookAge bounds how old a delivery's webhookTimestamp may be.
	MaxWebhookAge = 60 * time.Second
)

// Webhook actions and entity types.
const (
	ActionCreate = "create"
	ActionUpdate = "update"
	ActionRemove = "remove"

	TypeIssue   = "Issue"
	TypeProject = "Project"
)

var ErrBadPayload = errors.New("linear: malformed webhook payload")

// VerifySignature reports whether sig is the hex HMAC-SHA256 of body under secret.
func VerifySignature(secret string, body []byte, sig string) bool {
	sig = strings.TrimSpace(sig)
	if secret == "" || sig == "" {
		return false
	}
	want, err := hex.DecodeString(sig)
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hmac.Equal(mac.Sum(nil), want)
}

// Sign returns the hex signature Linear would send for body.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// WebhookPayload is the envelope of every Linear webhook delivery.
type WebhookPayload struct {
	Action           string          `json:"action"`
	Type             string          `json:"type"`
	Data             json.RawMessage `json:"data"`
	URL              string          `json:"url"`
	WebhookTimestamp int64           `json:"webhookTimestamp"`
	WebhookID        string          `json:"webhookId"`
}

// ParseWebhook decodes a delivery body.
func ParseWebhook(body []byte) (*WebhookPayload, error) {
	var p WebhookPayload
	if err := json.Unmarshal(body, &p); err != nil {
		return nil, ErrBadPayload
	}
	if p.Action == "" || p.Type == "" {
		return nil, ErrBadPayload
	}
	return &p, nil
}

// Fresh reports whether the delivery is within maxAge of now. Payloads
// without a timestamp are treated as fresh.
func (p *WebhookPayload) Fresh(now time.Time, maxAge time.Duration) bool {
	if p.WebhookTimestamp == 0 {
		return true
	}
	sent := time.UnixMilli(p.WebhookTimestamp)
	d := now.Sub(sent)
	if d < 0 {
		d = -d
	}
	return d <= maxAge
}

// IssueData is the data block of an Issue delivery.
type IssueData struct {
	ID          string   `json:"id"`
	Identifier  string   `json:"identifier"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	URL         string   `json:"url"`
	Priority    *float64 `json:"priority"`
	Estimate    *float64 `json:"estimate"`
	DueDate     string   `json:"dueDate"`
	ProjectID   string   `json:"projectId"`
	Project     *struct {
		ID string `json:"id"`
	} `json:"project"`
	State *WorkflowState `json:"state"`
}

// LinearProjectID returns the issue's project id from either field Linear uses.
func (d IssueData) LinearProjectID() string {
	if d.ProjectID != "" {
		return d.ProjectID
	}
	if d.Project != nil {
		return d.Project.ID
	}
	return ""
}

// ProjectData is the data block of a Project delivery.
type ProjectData struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	URL         string `json:"url"`
	State       string `json:"state"`
	StartDate   string `json:"startDate"`
	TargetDate  string `json:"targetDate"`
}

// Issue decodes the data block as an issue.
func (p *WebhookPayload) Issue() (IssueData, error) {
	var d IssueData
	if err := json.Unmarshal(p.Data, &d); err != nil || d.ID == "" {
		return IssueData{}, ErrBadPayload
	}
	return d, nil
}

// Project decodes the data block as a project.
func (p *WebhookPayload) Project() (ProjectData, error) {
	var d ProjectData
	if err := json.Unmarshal(p.Data, &d); err != nil || d.ID == "" {
		return ProjectData{}, ErrBadPayload
	}
	return d, nil
}
