// internal/domain/models/user.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// User roles.
const (
	RoleAdmin     = "admin"
	RolePersonnel = "personnel"
)

// User account statuses.
const (
	UserActive   = "active"
	UserDisabled = "disabled"
)

// User is a login account. Admins manage the hiring pipeline; personnel
// accounts are linked to a Personnel record through PersonnelID.
type User struct {
	ID           primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	FullName     string              `bson:"full_name" json:"full_name"`
	FullNameCI   string              `bson:"full_name_ci" json:"-"` // lowercase, diacritics-stripped
	Email        string              `bson:"email" json:"email"`
	PasswordHash string              `bson:"password_hash" json:"-"`
	Role         string              `bson:"role" json:"role"` // admin | personnel
	Status       string              `bson:"status" json:"status"`
	PersonnelID  *primitive.ObjectID `bson:"personnel_id,omitempty" json:"personnel_id,omitempty"`

	// CanApproveTime lets a non-admin approve time entries and edit approved ones.
	CanApproveTime bool `bson:"can_approve_time" json:"can_approve_time"`

	LastLoginAt *time.Time `bson:"last_login_at,omitempty" json:"last_login_at,omitempty"`
	CreatedAt   time.Time  `bson:"created_at" json:"created_at"`
	UpdatedAt   time.Time  `bson:"updated_at" json:"updated_at"`
}
