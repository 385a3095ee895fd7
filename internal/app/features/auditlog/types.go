// internal/app/features/auditlog/types.go
package auditlog

import "github.com/dalemusser/hirehub/internal/app/store/audit"

// listItem is one audit event with actor and subject names resolved.
type listItem struct {
	audit.Event
	ActorName string `json:"actor_name,omitempty"`
	UserName  string `json:"user_name,omitempty"`
}

type listResponse struct {
	Items  []listItem `json:"items"`
	Total  int64      `json:"total"`
	Limit  int64      `json:"limit"`
	Offset int64      `json:"offset"`
}
