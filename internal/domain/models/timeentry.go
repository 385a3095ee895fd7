// internal/domain/models/timeentry.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// TimeEntry is work logged by a personnel against a project (and optionally a task).
// Once approved it is frozen for callers without the approval permission.
type TimeEntry struct {
	ID              primitive.ObjectID  `bson:"_id" json:"id"`
	PersonnelID     primitive.ObjectID  `bson:"personnel_id" json:"personnel_id"`
	ProjectID       primitive.ObjectID  `bson:"project_id" json:"project_id"`
	TaskID          *primitive.ObjectID `bson:"task_id,omitempty" json:"task_id,omitempty"`
	Description     string              `bson:"description,omitempty" json:"description,omitempty"`
	Date            time.Time           `bson:"date" json:"date"` // UTC midnight of the work day
	StartedAt       *time.Time          `bson:"started_at,omitempty" json:"started_at,omitempty"`
	EndedAt         *time.Time          `bson:"ended_at,omitempty" json:"ended_at,omitempty"`
	DurationMinutes int                 `bson:"duration_minutes" json:"duration_minutes"`
	Billable        bool                `bson:"billable" json:"billable"`

	IsApproved bool                `bson:"is_approved" json:"is_approved"`
	ApprovedBy *primitive.ObjectID `bson:"approved_by,omitempty" json:"approved_by,omitempty"`
	ApprovedAt *time.Time          `bson:"approved_at,omitempty" json:"approved_at,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}
