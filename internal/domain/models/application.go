// internal/domain/models/application.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Application statuses.
const (
	ApplicationPending   = "pending"
	ApplicationReviewing = "reviewing"
	ApplicationApproved  = "approved"
	ApplicationRejected  = "rejected"
)

// ApplicationStatuses is the canonical ordering used by validators and dashboards.
var ApplicationStatuses = []string{
	ApplicationPending,
	ApplicationReviewing,
	ApplicationApproved,
	ApplicationRejected,
}

// ApplicationLinks are the applicant's external profile URLs.
type ApplicationLinks struct {
	Portfolio string `bson:"portfolio,omitempty" json:"portfolio,omitempty"`
	LinkedIn  string `bson:"linkedin,omitempty" json:"linkedin,omitempty"`
	GitHub    string `bson:"github,omitempty" json:"github,omitempty"`
	Resume    string `bson:"resume,omitempty" json:"resume,omitempty"`
}

// Application is a job application submitted through the public form.
//
// The applicant never has an account; edits and messages are authorized
// with the edit token returned once at submission. Only its SHA-256 hash
// is stored.
type Application struct {
	ID              primitive.ObjectID `bson:"_id" json:"id"`
	FullName        string             `bson:"full_name" json:"full_name"`
	FullNameCI      string             `bson:"full_name_ci" json:"-"`
	Email           string             `bson:"email" json:"email"`
	Phone           string             `bson:"phone,omitempty" json:"phone,omitempty"`
	Position        string             `bson:"position" json:"position"`
	Skills          []string           `bson:"skills" json:"skills"`
	ExperienceYears int                `bson:"experience_years" json:"experience_years"`
	CoverLetter     string             `bson:"cover_letter,omitempty" json:"cover_letter,omitempty"`
	Links           ApplicationLinks   `bson:"links" json:"links"`
	Availability    string             `bson:"availability,omitempty" json:"availability,omitempty"`

	Status      string              `bson:"status" json:"status"`
	ReviewNotes string              `bson:"review_notes,omitempty" json:"review_notes,omitempty"`
	ReviewedBy  *primitive.ObjectID `bson:"reviewed_by,omitempty" json:"reviewed_by,omitempty"`
	ReviewedAt  *time.Time          `bson:"reviewed_at,omitempty" json:"reviewed_at,omitempty"`

	EditTokenHash string `bson:"edit_token_hash" json:"-"`
	Version       int    `bson:"version" json:"version"`

	// PersonnelID is set once the application has been converted.
	PersonnelID *primitive.ObjectID `bson:"personnel_id,omitempty" json:"personnel_id,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// FieldChange is one field-level difference between two application revisions.
type FieldChange struct {
	Field string `bson:"field" json:"field"`
	Old   string `bson:"old" json:"old"`
	New   string `bson:"new" json:"new"`
}

// ApplicationVersion records an applicant edit of a pending application.
// Version is the application's version number after the edit.
type ApplicationVersion struct {
	ID            primitive.ObjectID `bson:"_id" json:"id"`
	ApplicationID primitive.ObjectID `bson:"application_id" json:"application_id"`
	Version       int                `bson:"version" json:"version"`
	Changes       []FieldChange      `bson:"changes" json:"changes"`
	EditedBy      string             `bson:"edited_by" json:"edited_by"` // applicant | admin
	EditedAt      time.Time          `bson:"edited_at" json:"edited_at"`
}
