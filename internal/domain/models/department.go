// internal/domain/models/department.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Department groups personnel. Name is unique case/diacritic-insensitively.
type Department struct {
	ID          primitive.ObjectID  `bson:"_id" json:"id"`
	Name        string              `bson:"name" json:"name"`
	NameCI      string              `bson:"name_ci" json:"-"`
	Description string              `bson:"description,omitempty" json:"description,omitempty"`
	HeadID      *primitive.ObjectID `bson:"head_id,omitempty" json:"head_id,omitempty"`
	Status      string              `bson:"status" json:"status"` // active | archived
	CreatedAt   time.Time           `bson:"created_at" json:"created_at"`
	UpdatedAt   time.Time           `bson:"updated_at" json:"updated_at"`
}
