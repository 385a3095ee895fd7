// internal/domain/models/communication.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Communication sender types.
const (
	SenderApplicant = "applicant"
	SenderAdmin     = "admin"
	SenderSystem    = "system"
)

// Communication is one message in an application's thread. Messages are
// never edited; only the read flag changes.
type Communication struct {
	ID            primitive.ObjectID  `bson:"_id" json:"id"`
	ApplicationID primitive.ObjectID  `bson:"application_id" json:"application_id"`
	SenderType    string              `bson:"sender_type" json:"sender_type"`
	SenderID      *primitive.ObjectID `bson:"sender_id,omitempty" json:"sender_id,omitempty"`
	SenderName    string              `bson:"sender_name" json:"sender_name"`
	Subject       string              `bson:"subject,omitempty" json:"subject,omitempty"`
	Body          string              `bson:"body" json:"body"`
	IsRead        bool                `bson:"is_read" json:"is_read"`
	ReadAt        *time.Time          `bson:"read_at,omitempty" json:"read_at,omitempty"`
	CreatedAt     time.Time           `bson:"created_at" json:"created_at"`
}
