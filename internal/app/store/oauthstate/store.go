// internal/app/store/oauthstate/store.go
package oauthstate

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// State represents an OAuth2 state token stored for CSRF protection.
type State struct {
	State     string    `bson:"state"`
	Provider  string    `bson:"provider"`             // e.g. "linear"
	UserID    string    `bson:"user_id,omitempty"`    // admin who started the flow
	ReturnURL string    `bson:"return_url,omitempty"` // Where to redirect after auth
	ExpiresAt time.Time `bson:"expires_at"`
	CreatedAt time.Time `bson:"created_at"`
}

// Store manages OAuth2 state tokens in MongoDB. Expired tokens are removed
// by the TTL index on expires_at (see indexes.EnsureAll) and CleanupExpired.
type Store struct {
	c *mongo.Collection
}

// New creates a new OAuth state Store.
func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("oauth_states")}
}

// Save stores a state token. CreatedAt is filled in.
func (s *Store) Save(ctx context.Context, st State) error {
	st.CreatedAt = time.Now().UTC()
	st.ExpiresAt = st.ExpiresAt.UTC()
	_, err := s.c.InsertOne(ctx, st)
	return err
}

// Validate checks if a state token exists for provider and is not expired.
// If valid, it deletes the token (one-time use) and returns it.
// Returns false if the state is invalid or expired.
func (s *Store) Validate(ctx context.Context, provider, state string) (State, bool, error) {
	var st State
	err := s.c.FindOneAndDelete(ctx, bson.M{
		"state":      state,
		"provider":   provider,
		"expires_at": bson.M{"$gt": time.Now().UTC()},
	}).Decode(&st)

	if err == mongo.ErrNoDocuments {
		return State{}, false, nil
	}
	if err != nil {
		return State{}, false, err
	}
	return st, true, nil
}

// CleanupExpired removes expired state tokens.
// This is a backup for when TTL index cleanup is delayed.
func (s *Store) CleanupExpired(ctx context.Context) (int64, error) {
	result, err := s.c.DeleteMany(ctx, bson.M{
		"expires_at": bson.M{"$lt": time.Now().UTC()},
	})
	if err != nil {
		return 0, err
	}
	return result.DeletedCount, nil
}
