// internal/domain/models/project.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Project statuses.
const (
	ProjectPlanning  = "planning"
	ProjectActive    = "active"
	ProjectOnHold    = "on_hold"
	ProjectCompleted = "completed"
	ProjectCancelled = "cancelled"
)

var ProjectStatuses = []string{
	ProjectPlanning,
	ProjectActive,
	ProjectOnHold,
	ProjectCompleted,
	ProjectCancelled,
}

// Priorities shared by projects and tasks.
const (
	PriorityNone   = "none"
	PriorityUrgent = "urgent"
	PriorityHigh   = "high"
	PriorityMedium = "medium"
	PriorityLow    = "low"
)

var Priorities = []string{PriorityNone, PriorityUrgent, PriorityHigh, PriorityMedium, PriorityLow}

// Sync statuses describe whether a record matches its Linear mirror.
const (
	SyncSynced    = "synced"
	SyncPending   = "pending_sync"
	SyncFailed    = "sync_failed"
	SyncNotSynced = "not_synced"
)

var SyncStatuses = []string{SyncSynced, SyncPending, SyncFailed, SyncNotSynced}

// Project is a unit of tracked work, optionally mirrored to a Linear project.
type Project struct {
	ID           primitive.ObjectID   `bson:"_id" json:"id"`
	Name         string               `bson:"name" json:"name"`
	NameCI       string               `bson:"name_ci" json:"-"`
	Description  string               `bson:"description,omitempty" json:"description,omitempty"`
	Status       string               `bson:"status" json:"status"`
	Priority     string               `bson:"priority" json:"priority"`
	LeadID       *primitive.ObjectID  `bson:"lead_id,omitempty" json:"lead_id,omitempty"`
	MemberIDs    []primitive.ObjectID `bson:"member_ids,omitempty" json:"member_ids,omitempty"`
	DepartmentID *primitive.ObjectID  `bson:"department_id,omitempty" json:"department_id,omitempty"`
	StartDate    *time.Time           `bson:"start_date,omitempty" json:"start_date,omitempty"`
	TargetDate   *time.Time           `bson:"target_date,omitempty" json:"target_date,omitempty"`

	LinearProjectID string     `bson:"linear_project_id,omitempty" json:"linear_project_id,omitempty"`
	LinearTeamID    string     `bson:"linear_team_id,omitempty" json:"linear_team_id,omitempty"`
	LinearURL       string     `bson:"linear_url,omitempty" json:"linear_url,omitempty"`
	SyncStatus      string     `bson:"sync_status" json:"sync_status"`
	LastSyncedAt    *time.Time `bson:"last_synced_at,omitempty" json:"last_synced_at,omitempty"`
	SyncError       string     `bson:"sync_error,omitempty" json:"sync_error,omitempty"`

	CreatedBy *primitive.ObjectID `bson:"created_by,omitempty" json:"created_by,omitempty"`
	CreatedAt time.Time           `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time           `bson:"updated_at" json:"updated_at"`
}
