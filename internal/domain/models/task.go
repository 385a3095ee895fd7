// internal/domain/models/task.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Task statuses.
const (
	TaskBacklog    = "backlog"
	TaskTodo       = "todo"
	TaskInProgress = "in_progress"
	TaskInReview   = "in_review"
	TaskDone       = "done"
	TaskCancelled  = "cancelled"
)

var TaskStatuses = []string{TaskBacklog, TaskTodo, TaskInProgress, TaskInReview, TaskDone, TaskCancelled}

// Task belongs to a Project and may mirror a Linear issue.
type Task struct {
	ID            primitive.ObjectID  `bson:"_id" json:"id"`
	ProjectID     primitive.ObjectID  `bson:"project_id" json:"project_id"`
	Title         string              `bson:"title" json:"title"`
	TitleCI       string              `bson:"title_ci" json:"-"`
	Description   string              `bson:"description,omitempty" json:"description,omitempty"`
	Status        string              `bson:"status" json:"status"`
	Priority      string              `bson:"priority" json:"priority"`
	AssigneeID    *primitive.ObjectID `bson:"assignee_id,omitempty" json:"assignee_id,omitempty"`
	DueDate       *time.Time          `bson:"due_date,omitempty" json:"due_date,omitempty"`
	EstimateHours float64             `bson:"estimate_hours,omitempty" json:"estimate_hours,omitempty"`

	LinearIssueID    string     `bson:"linear_issue_id,omitempty" json:"linear_issue_id,omitempty"`
	LinearIdentifier string     `bson:"linear_identifier,omitempty" json:"linear_identifier,omitempty"`
	LinearURL        string     `bson:"linear_url,omitempty" json:"linear_url,omitempty"`
	LinearStateName  string     `bson:"linear_state_name,omitempty" json:"linear_state_name,omitempty"`
	SyncStatus       string     `bson:"sync_status" json:"sync_status"`
	LastSyncedAt     *time.Time `bson:"last_synced_at,omitempty" json:"last_synced_at,omitempty"`
	SyncError        string     `bson:"sync_error,omitempty" json:"sync_error,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}
