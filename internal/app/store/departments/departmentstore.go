package departmentstore

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/dalemusser/hirehub/internal/app/system/normalize"
	"github.com/dalemusser/hirehub/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Department statuses.
const (
	StatusActive   = "active"
	StatusArchived = "archived"
)

var (
	// ErrDuplicateName is returned when another department has the same folded name.
	ErrDuplicateName = errors.New("a department with this name already exists")
	errBadStatus     = errors.New(`status must be "active"|"archived"`)
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("departments")}
}

// Create inserts a department.
func (s *Store) Create(ctx context.Context, d models.Department) (models.Department, error) {
	d.ID = primitive.NewObjectID()
	d.Name = normalize.Name(d.Name)
	d.NameCI = text.Fold(d.Name)
	d.Description = strings.TrimSpace(d.Description)
	d.Status = normalize.Status(d.Status)
	if d.Status == "" {
		d.Status = StatusActive
	}
	if !normalize.OneOf(d.Status, []string{StatusActive, StatusArchived}) {
		return models.Department{}, errBadStatus
	}
	now := time.Now().UTC()
	d.CreatedAt = now
	d.UpdatedAt = now

	if _, err := s.c.InsertOne(ctx, d); err != nil {
		if wafflemongo.IsDup(err) {
			return models.Department{}, ErrDuplicateName
		}
		return models.Department{}, err
	}
	return d, nil
}

// GetByID loads a department by ObjectID.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Department, error) {
	var d models.Department
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&d); err != nil {
		return nil, err
	}
	return &d, nil
}

// List returns departments ordered by name. An empty status returns all.
func (s *Store) List(ctx context.Context, status string) ([]models.Department, error) {
	filter := bson.M{}
	if status != "" {
		filter["status"] = normalize.Status(status)
	}
	cur, err := s.c.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "name_ci", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	out := []models.Department{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// NameExistsForOther reports whether another department uses name.
func (s *Store) NameExistsForOther(ctx context.Context, name string, exclude primitive.ObjectID) (bool, error) {
	filter := bson.M{"name_ci": text.Fold(normalize.Name(name))}
	if !exclude.IsZero() {
		filter["_id"] = bson.M{"$ne": exclude}
	}
	err := s.c.FindOne(ctx, filter).Err()
	if err == nil {
		return true, nil
	}
	if err == mongo.ErrNoDocuments {
		return false, nil
	}
	return false, err
}

// Update holds editable department fields. Nil pointers are left unchanged.
type Update struct {
	Name        *string
	Description *string
	HeadID      *primitive.ObjectID
	ClearHead   bool
	Status      *string
}

// Update applies upd and returns the updated department.
func (s *Store) Update(ctx context.Context, id primitive.ObjectID, upd Update) (*models.Department, error) {
	set := bson.M{"updated_at": time.Now().UTC()}
	unset := bson.M{}
	if upd.Name != nil {
		name := normalize.Name(*upd.Name)
		set["name"] = name
		set["name_ci"] = text.Fold(name)
	}
	if upd.Description != nil {
		set["description"] = strings.TrimSpace(*upd.Description)
	}
	switch {
	case upd.ClearHead:
		unset["head_id"] = ""
	case upd.HeadID != nil:
		set["head_id"] = *upd.HeadID
	}
	if upd.Status != nil {
		st := normalize.Status(*upd.Status)
		if !normalize.OneOf(st, []string{StatusActive, StatusArchived}) {
			return nil, errBadStatus
		}
		set["status"] = st
	}

	doc := bson.M{"$set": set}
	if len(unset) > 0 {
		doc["$unset"] = unset
	}
	res, err := s.c.UpdateOne(ctx, bson.M{"_id": id}, doc)
	if err != nil {
		if wafflemongo.IsDup(err) {
			return nil, ErrDuplicateName
		}
		return nil, err
	}
	if res.MatchedCount == 0 {
		return nil, mongo.ErrNoDocuments
	}
	return s.GetByID(ctx, id)
}

// Delete removes a department. Returns the number of documents deleted (0 or 1).
func (s *Store) Delete(ctx context.Context, id primitive.ObjectID) (int64, error) {
	res, err := s.c.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}
