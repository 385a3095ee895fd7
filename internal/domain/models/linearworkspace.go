// internal/domain/models/linearworkspace.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// LinearWorkspace holds the OAuth credentials of the single connected
// Linear organization. The document is keyed by a fixed Key so there is
// never more than one.
type LinearWorkspace struct {
	ID               primitive.ObjectID  `bson:"_id" json:"id"`
	Key              string              `bson:"key" json:"-"`
	OrganizationID   string              `bson:"organization_id" json:"organization_id"`
	OrganizationName string              `bson:"organization_name" json:"organization_name"`
	URLKey           string              `bson:"url_key,omitempty" json:"url_key,omitempty"`
	AccessToken      string              `bson:"access_token" json:"-"`
	RefreshToken     string              `bson:"refresh_token,omitempty" json:"-"`
	TokenType        string              `bson:"token_type,omitempty" json:"-"`
	Scope            string              `bson:"scope,omitempty" json:"scope,omitempty"`
	ExpiresAt        *time.Time          `bson:"expires_at,omitempty" json:"expires_at,omitempty"`
	DefaultTeamID    string              `bson:"default_team_id,omitempty" json:"default_team_id,omitempty"`
	ConnectedBy      *primitive.ObjectID `bson:"connected_by,omitempty" json:"connected_by,omitempty"`
	ConnectedAt      time.Time           `bson:"connected_at" json:"connected_at"`
	UpdatedAt        time.Time           `bson:"updated_at" json:"updated_at"`
}
