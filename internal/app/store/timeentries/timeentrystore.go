package timeentrystore

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/dalemusser/hirehub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ErrApproved is returned when an approved entry is changed without the approval permission.
var ErrApproved = errors.New("time entry is approved and can no longer be changed")

// DefaultListLimit bounds List when no limit is given.
const DefaultListLimit = 100

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("time_entries")}
}

// Day truncates t to UTC midnight.
func Day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Create inserts an unapproved time entry.
func (s *Store) Create(ctx context.Context, e models.TimeEntry) (models.TimeEntry, error) {
	e.ID = primitive.NewObjectID()
	e.Description = strings.TrimSpace(e.Description)
	e.Date = Day(e.Date)
	e.IsApproved = false
	e.ApprovedBy = nil
	e.ApprovedAt = nil
	now := time.Now().UTC()
	e.CreatedAt = now
	e.UpdatedAt = now
	if _, err := s.c.InsertOne(ctx, e); err != nil {
		return models.TimeEntry{}, err
	}
	return e, nil
}

// GetByID loads a time entry by ObjectID.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (*models.TimeEntry, error) {
	var e models.TimeEntry
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&e); err != nil {
		return nil, err
	}
	return &e, nil
}

// ListFilter narrows List. From is inclusive and To exclusive, both compared to Date.
type ListFilter struct {
	PersonnelID *primitive.ObjectID
	ProjectID   *primitive.ObjectID
	From        *time.Time
	To          *time.Time
	Approved    *bool
	Limit       int64
	Offset      int64
}

func (f ListFilter) toBSON() bson.M {
	filter := bson.M{}
	if f.PersonnelID != nil {
		filter["personnel_id"] = *f.PersonnelID
	}
	if f.ProjectID != nil {
		filter["project_id"] = *f.ProjectID
	}
	if f.From != nil || f.To != nil {
		r := bson.M{}
		if f.From != nil {
			r["$gte"] = Day(*f.From)
		}
		if f.To != nil {
			r["$lt"] = Day(*f.To)
		}
		filter["date"] = r
	}
	if f.Approved != nil {
		filter["is_approved"] = *f.Approved
	}
	return filter
}

// List returns entries newest day first.
func (s *Store) List(ctx context.Context, f ListFilter) ([]models.TimeEntry, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = DefaultListLimit
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "date", Value: -1}, {Key: "_id", Value: -1}}).
		SetLimit(limit)
	if f.Offset > 0 {
		opts.SetSkip(f.Offset)
	}
	cur, err := s.c.Find(ctx, f.toBSON(), opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	out := []models.TimeEntry{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Update holds editable fields. Nil pointers are left unchanged.
type Update struct {
	ProjectID       *primitive.ObjectID
	TaskID          *primitive.ObjectID
	ClearTask       bool
	Description     *string
	Date            *time.Time
	StartedAt       *time.Time
	EndedAt         *time.Time
	ClearTimes      bool
	DurationMinutes *int
	Billable        *bool
}

// guard narrows writes to unapproved entries unless allowApproved is set.
func guard(id primitive.ObjectID, allowApproved bool) bson.M {
	f := bson.M{"_id": id}
	if !allowApproved {
		f["is_approved"] = false
	}
	return f
}

// missOrApproved resolves a write that matched nothing.
func (s *Store) missOrApproved(ctx context.Context, id primitive.ObjectID) error {
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Err(); err != nil {
		return err
	}
	return ErrApproved
}

// Update applies upd. Without allowApproved an approved entry is refused with ErrApproved.
func (s *Store) Update(ctx context.Context, id primitive.ObjectID, upd Update, allowApproved bool) (*models.TimeEntry, error) {
	set := bson.M{"updated_at": time.Now().UTC()}
	unset := bson.M{}
	if upd.ProjectID != nil {
		set["project_id"] = *upd.ProjectID
	}
	switch {
	case upd.ClearTask:
		unset["task_id"] = ""
	case upd.TaskID != nil:
		set["task_id"] = *upd.TaskID
	}
	if upd.Description != nil {
		set["description"] = strings.TrimSpace(*upd.Description)
	}
	if upd.Date != nil {
		set["date"] = Day(*upd.Date)
	}
	switch {
	case upd.ClearTimes:
		unset["started_at"] = ""
		unset["ended_at"] = ""
	default:
		if upd.StartedAt != nil {
			set["started_at"] = upd.StartedAt.UTC()
		}
		if upd.EndedAt != nil {
			set["ended_at"] = upd.EndedAt.UTC()
		}
	}
	if upd.DurationMinutes != nil {
		set["duration_minutes"] = *upd.DurationMinutes
	}
	if upd.Billable != nil {
		set["billable"] = *upd.Billable
	}

	doc := bson.M{"$set": set}
	if len(unset) > 0 {
		doc["$unset"] = unset
	}
	res, err := s.c.UpdateOne(ctx, guard(id, allowApproved), doc)
	if err != nil {
		return nil, err
	}
	if res.MatchedCount == 0 {
		return nil, s.missOrApproved(ctx, id)
	}
	return s.GetByID(ctx, id)
}

// Delete removes an entry. Without allowApproved an approved entry is refused with ErrApproved.
func (s *Store) Delete(ctx context.Context, id primitive.ObjectID, allowApproved bool) error {
	res, err := s.c.DeleteOne(ctx, guard(id, allowApproved))
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return s.missOrApproved(ctx, id)
	}
	return nil
}

// SetApproval approves or unapproves an entry.
func (s *Store) SetApproval(ctx context.Context, id primitive.ObjectID, approved bool, by primitive.ObjectID) (*models.TimeEntry, error) {
	now := time.Now().UTC()
	doc := bson.M{}
	if approved {
		doc["$set"] = bson.M{"is_approved": true, "approved_by": by, "approved_at": now, "updated_at": now}
	} else {
		doc["$set"] = bson.M{"is_approved": false, "updated_at": now}
		doc["$unset"] = bson.M{"approved_by": "", "approved_at": ""}
	}
	res, err := s.c.UpdateOne(ctx, bson.M{"_id": id}, doc)
	if err != nil {
		return nil, err
	}
	if res.MatchedCount == 0 {
		return nil, mongo.ErrNoDocuments
	}
	return s.GetByID(ctx, id)
}

// ProjectTotal is one row of Summary.
type ProjectTotal struct {
	ProjectID       primitive.ObjectID `bson:"_id" json:"project_id"`
	TotalMinutes    int64              `bson:"total_minutes" json:"total_minutes"`
	ApprovedMinutes int64              `bson:"approved_minutes" json:"approved_minutes"`
	BillableMinutes int64              `bson:"billable_minutes" json:"billable_minutes"`
	Entries         int64              `bson:"entries" json:"entries"`
}

// Summary totals minutes per project for the entries matching f, largest first.
// Limit and Offset of f are ignored.
func (s *Store) Summary(ctx context.Context, f ListFilter) ([]ProjectTotal, error) {
	minutesIf := func(field string) bson.M {
		return bson.M{"$sum": bson.M{"$cond": bson.A{"$" + field, "$duration_minutes", 0}}}
	}
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: f.toBSON()}},
		{{Key: "$group", Value: bson.M{
			"_id":              "$project_id",
			"total_minutes":    bson.M{"$sum": "$duration_minutes"},
			"approved_minutes": minutesIf("is_approved"),
			"billable_minutes": minutesIf("billable"),
			"entries":          bson.M{"$sum": 1},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "total_minutes", Value: -1}, {Key: "_id", Value: 1}}}},
	}
	cur, err := s.c.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	out := []ProjectTotal{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// SumMinutes totals the minutes a personnel logged with Date in [from, to).
func (s *Store) SumMinutes(ctx context.Context, personnelID primitive.ObjectID, from, to time.Time) (int64, error) {
	rows, err := s.Summary(ctx, ListFilter{PersonnelID: &personnelID, From: &from, To: &to})
	if err != nil {
		return 0, err
	}
	var total int64
	for _, r := range rows {
		total += r.TotalMinutes
	}
	return total, nil
}

// CountByProject counts the entries logged against a project.
func (s *Store) CountByProject(ctx context.Context, projectID primitive.ObjectID) (int64, error) {
	return s.c.CountDocuments(ctx, bson.M{"project_id": projectID})
}

// CountPendingApproval counts entries waiting for approval.
func (s *Store) CountPendingApproval(ctx context.Context) (int64, error) {
	return s.c.CountDocuments(ctx, bson.M{"is_approved": false})
}
