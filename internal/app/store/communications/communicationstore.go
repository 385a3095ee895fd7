package communicationstore

import (
	"context"
	"time"

	"github.com/dalemusser/hirehub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("communications")}
}

// Create appends a message to an application's thread.
func (s *Store) Create(ctx context.Context, m models.Communication) (models.Communication, error) {
	m.ID = primitive.NewObjectID()
	m.IsRead = false
	m.ReadAt = nil
	m.CreatedAt = time.Now().UTC()
	if _, err := s.c.InsertOne(ctx, m); err != nil {
		return models.Communication{}, err
	}
	return m, nil
}

// List returns the thread of an application in chronological order.
func (s *Store) List(ctx context.Context, appID primitive.ObjectID) ([]models.Communication, error) {
	cur, err := s.c.Find(ctx, bson.M{"application_id": appID}, options.Find().
		SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	out := []models.Communication{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// OtherParty returns the sender types whose messages the given reader reads.
// Admins read what applicants write; applicants read admin and system messages.
func OtherParty(reader string) []string {
	if reader == models.SenderAdmin {
		return []string{models.SenderApplicant}
	}
	return []string{models.SenderAdmin, models.SenderSystem}
}

// MarkRead flags every unread message from senders as read and returns how many changed.
func (s *Store) MarkRead(ctx context.Context, appID primitive.ObjectID, senders []string) (int64, error) {
	now := time.Now().UTC()
	res, err := s.c.UpdateMany(ctx, bson.M{
		"application_id": appID,
		"sender_type":    bson.M{"$in": senders},
		"is_read":        false,
	}, bson.M{"$set": bson.M{"is_read": true, "read_at": now}})
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

// CountUnread counts unread messages from senders.
func (s *Store) CountUnread(ctx context.Context, appID primitive.ObjectID, senders []string) (int64, error) {
	return s.c.CountDocuments(ctx, bson.M{
		"application_id": appID,
		"sender_type":    bson.M{"$in": senders},
		"is_read":        false,
	})
}

// DeleteByApplication removes an application's thread.
func (s *Store) DeleteByApplication(ctx context.Context, appID primitive.ObjectID) (int64, error) {
	res, err := s.c.DeleteMany(ctx, bson.M{"application_id": appID})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}
