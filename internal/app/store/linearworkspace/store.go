// Package linearworkspacestore persists the credentials of the connected
// Linear organization. There is at most one document, keyed by DefaultKey.
package linearworkspacestore

import (
	"context"
	"time"

	"github.com/dalemusser/hirehub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// DefaultKey identifies the single workspace document.
const DefaultKey = "default"

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("linear_workspaces")}
}

// Get returns the connected workspace or mongo.ErrNoDocuments.
func (s *Store) Get(ctx context.Context) (*models.LinearWorkspace, error) {
	var w models.LinearWorkspace
	if err := s.c.FindOne(ctx, bson.M{"key": DefaultKey}).Decode(&w); err != nil {
		return nil, err
	}
	return &w, nil
}

// Save upserts the workspace. A reconnect replaces the credentials and
// organization but keeps the original id and the chosen default team when
// the new one is empty.
func (s *Store) Save(ctx context.Context, w models.LinearWorkspace) (*models.LinearWorkspace, error) {
	now := time.Now().UTC()
	set := bson.M{
		"organization_id":   w.OrganizationID,
		"organization_name": w.OrganizationName,
		"url_key":           w.URLKey,
		"access_token":      w.AccessToken,
		"refresh_token":     w.RefreshToken,
		"token_type":        w.TokenType,
		"scope":             w.Scope,
		"connected_at":      now,
		"updated_at":        now,
	}
	if w.ExpiresAt != nil {
		set["expires_at"] = w.ExpiresAt.UTC()
	}
	if w.ConnectedBy != nil {
		set["connected_by"] = *w.ConnectedBy
	}
	if w.DefaultTeamID != "" {
		set["default_team_id"] = w.DefaultTeamID
	}
	_, err := s.c.UpdateOne(ctx,
		bson.M{"key": DefaultKey},
		bson.M{
			"$set":         set,
			"$setOnInsert": bson.M{"_id": primitive.NewObjectID()},
		},
		options.Update().SetUpsert(true))
	if err != nil {
		return nil, err
	}
	return s.Get(ctx)
}

// UpdateToken stores refreshed OAuth tokens.
func (s *Store) UpdateToken(ctx context.Context, access, refresh, tokenType string, expiresAt *time.Time) error {
	set := bson.M{
		"access_token": access,
		"updated_at":   time.Now().UTC(),
	}
	if refresh != "" {
		set["refresh_token"] = refresh
	}
	if tokenType != "" {
		set["token_type"] = tokenType
	}
	doc := bson.M{"$set": set}
	if expiresAt != nil {
		set["expires_at"] = expiresAt.UTC()
	} else {
		doc["$unset"] = bson.M{"expires_at": ""}
	}
	res, err := s.c.UpdateOne(ctx, bson.M{"key": DefaultKey}, doc)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

// SetDefaultTeam records the Linear team new projects are created in.
func (s *Store) SetDefaultTeam(ctx context.Context, teamID string) error {
	res, err := s.c.UpdateOne(ctx, bson.M{"key": DefaultKey}, bson.M{"$set": bson.M{
		"default_team_id": teamID,
		"updated_at":      time.Now().UTC(),
	}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

// Delete disconnects the workspace. It reports whether one was connected.
func (s *Store) Delete(ctx context.Context) (bool, error) {
	res, err := s.c.DeleteOne(ctx, bson.M{"key": DefaultKey})
	if err != nil {
		return false, err
	}
	return res.DeletedCount == 1, nil
}
