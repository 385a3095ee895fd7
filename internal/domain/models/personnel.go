// internal/domain/models/personnel.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Personnel statuses.
const (
	PersonnelOnboarding = "onboarding"
	PersonnelActive     = "active"
	PersonnelOnLeave    = "on_leave"
	PersonnelTerminated = "terminated"
)

var PersonnelStatuses = []string{
	PersonnelOnboarding,
	PersonnelActive,
	PersonnelOnLeave,
	PersonnelTerminated,
}

// OnboardingStep is one checklist item.
type OnboardingStep struct {
	Key         string     `bson:"key" json:"key"`
	Title       string     `bson:"title" json:"title"`
	Done        bool       `bson:"done" json:"done"`
	CompletedAt *time.Time `bson:"completed_at,omitempty" json:"completed_at,omitempty"`
}

// Onboarding carries the checklist and its derived counters.
// CompletedSteps and Percent are recomputed whenever a step changes.
type Onboarding struct {
	TotalSteps     int              `bson:"total_steps" json:"total_steps"`
	CompletedSteps int              `bson:"completed_steps" json:"completed_steps"`
	Percent        int              `bson:"percent" json:"percent"`
	Steps          []OnboardingStep `bson:"steps" json:"steps"`
	CompletedAt    *time.Time       `bson:"completed_at,omitempty" json:"completed_at,omitempty"`
}

// Recount refreshes the counters from Steps.
func (o *Onboarding) Recount() {
	o.TotalSteps = len(o.Steps)
	o.CompletedSteps = 0
	for _, s := range o.Steps {
		if s.Done {
			o.CompletedSteps++
		}
	}
	if o.TotalSteps == 0 {
		o.Percent = 0
		return
	}
	o.Percent = o.CompletedSteps * 100 / o.TotalSteps
}

type Preferences struct {
	TimeZone           string `bson:"time_zone,omitempty" json:"time_zone,omitempty"`
	EmailNotifications bool   `bson:"email_notifications" json:"email_notifications"`
	Theme              string `bson:"theme,omitempty" json:"theme,omitempty"`
}

type Profile struct {
	Bio       string   `bson:"bio,omitempty" json:"bio,omitempty"`
	Location  string   `bson:"location,omitempty" json:"location,omitempty"`
	AvatarURL string   `bson:"avatar_url,omitempty" json:"avatar_url,omitempty"`
	Links     []string `bson:"links,omitempty" json:"links,omitempty"`
}

// Personnel is an employee record created by converting an approved Application.
type Personnel struct {
	ID            primitive.ObjectID `bson:"_id" json:"id"`
	ApplicationID primitive.ObjectID `bson:"application_id" json:"application_id"`
	EmployeeID    string             `bson:"employee_id" json:"employee_id"`

	FullName   string   `bson:"full_name" json:"full_name"`
	FullNameCI string   `bson:"full_name_ci" json:"-"`
	Email      string   `bson:"email" json:"email"`
	Phone      string   `bson:"phone,omitempty" json:"phone,omitempty"`
	Skills     []string `bson:"skills" json:"skills"`

	DepartmentID *primitive.ObjectID `bson:"department_id,omitempty" json:"department_id,omitempty"`
	Department   string              `bson:"department,omitempty" json:"department,omitempty"`
	Role         string              `bson:"role,omitempty" json:"role,omitempty"` // job title
	Status       string              `bson:"status" json:"status"`
	ManagerID    *primitive.ObjectID `bson:"manager_id,omitempty" json:"manager_id,omitempty"`
	StartDate    *time.Time          `bson:"start_date,omitempty" json:"start_date,omitempty"`

	Onboarding  Onboarding  `bson:"onboarding" json:"onboarding"`
	Preferences Preferences `bson:"preferences" json:"preferences"`
	Profile     Profile     `bson:"profile" json:"profile"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}
