package projectstore

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/dalemusser/hirehub/internal/app/system/normalize"
	"github.com/dalemusser/hirehub/internal/app/system/paging"
	"github.com/dalemusser/hirehub/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	// ErrDuplicateLinearID is returned when another project already mirrors the Linear project.
	ErrDuplicateLinearID = errors.New("a project is already linked to this Linear project")
	errBadStatus         = errors.New("invalid project status")
	errBadPriority       = errors.New("invalid priority")
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("projects")}
}

// Create inserts a project. A project created with a LinearProjectID is
// recorded as synced; otherwise it starts as not_synced.
func (s *Store) Create(ctx context.Context, p models.Project) (models.Project, error) {
	p.ID = primitive.NewObjectID()
	p.Name = normalize.Name(p.Name)
	p.NameCI = text.Fold(p.Name)
	p.Description = strings.TrimSpace(p.Description)
	p.Status = normalize.Status(p.Status)
	if p.Status == "" {
		p.Status = models.ProjectPlanning
	}
	p.Priority = normalize.Status(p.Priority)
	if p.Priority == "" {
		p.Priority = models.PriorityNone
	}
	if !normalize.OneOf(p.Status, models.ProjectStatuses) {
		return models.Project{}, errBadStatus
	}
	if !normalize.OneOf(p.Priority, models.Priorities) {
		return models.Project{}, errBadPriority
	}

	now := time.Now().UTC()
	if p.LinearProjectID != "" {
		p.SyncStatus = models.SyncSynced
		p.LastSyncedAt = &now
	} else if p.SyncStatus == "" {
		p.SyncStatus = models.SyncNotSynced
	}
	p.CreatedAt = now
	p.UpdatedAt = now

	if _, err := s.c.InsertOne(ctx, p); err != nil {
		if wafflemongo.IsDup(err) {
			return models.Project{}, ErrDuplicateLinearID
		}
		return models.Project{}, err
	}
	return p, nil
}

// GetByID loads a project by ObjectID.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Project, error) {
	var p models.Project
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&p); err != nil {
		return nil, err
	}
	return &p, nil
}

// GetByLinearID loads the project mirroring a Linear project.
func (s *Store) GetByLinearID(ctx context.Context, linearID string) (*models.Project, error) {
	var p models.Project
	if err := s.c.FindOne(ctx, bson.M{"linear_project_id": linearID}).Decode(&p); err != nil {
		return nil, err
	}
	return &p, nil
}

// ListFilter narrows List.
type ListFilter struct {
	Status       string
	DepartmentID *primitive.ObjectID
	Search       string
}

// List returns one keyset page of projects ordered by name.
func (s *Store) List(ctx context.Context, f ListFilter, p paging.Params) (paging.Page[models.Project], error) {
	filter := bson.M{}
	if f.Status != "" {
		filter["status"] = normalize.Status(f.Status)
	}
	if f.DepartmentID != nil {
		filter["department_id"] = *f.DepartmentID
	}
	if lo, hi := text.PrefixRange(f.Search); lo != "" {
		filter["name_ci"] = bson.M{"$gte": lo, "$lt": hi}
	}
	return paging.Find(ctx, s.c, filter, p, "name_ci",
		func(x models.Project) string { return x.NameCI },
		func(x models.Project) primitive.ObjectID { return x.ID })
}

// Update holds editable project fields. Nil pointers are left unchanged.
type Update struct {
	Name         *string
	Description  *string
	Status       *string
	Priority     *string
	LeadID       *primitive.ObjectID
	ClearLead    bool
	MemberIDs    *[]primitive.ObjectID
	DepartmentID *primitive.ObjectID
	StartDate    *time.Time
	TargetDate   *time.Time
	LinearTeamID *string
}

func (u Update) set() (bson.M, bson.M, error) {
	set := bson.M{}
	unset := bson.M{}
	if u.Name != nil {
		name := normalize.Name(*u.Name)
		set["name"] = name
		set["name_ci"] = text.Fold(name)
	}
	if u.Description != nil {
		set["description"] = strings.TrimSpace(*u.Description)
	}
	if u.Status != nil {
		st := normalize.Status(*u.Status)
		if !normalize.OneOf(st, models.ProjectStatuses) {
			return nil, nil, errBadStatus
		}
		set["status"] = st
	}
	if u.Priority != nil {
		pr := normalize.Status(*u.Priority)
		if !normalize.OneOf(pr, models.Priorities) {
			return nil, nil, errBadPriority
		}
		set["priority"] = pr
	}
	switch {
	case u.ClearLead:
		unset["lead_id"] = ""
	case u.LeadID != nil:
		set["lead_id"] = *u.LeadID
	}
	if u.MemberIDs != nil {
		set["member_ids"] = *u.MemberIDs
	}
	if u.DepartmentID != nil {
		set["department_id"] = *u.DepartmentID
	}
	if u.StartDate != nil {
		set["start_date"] = u.StartDate.UTC()
	}
	if u.TargetDate != nil {
		set["target_date"] = u.TargetDate.UTC()
	}
	if u.LinearTeamID != nil {
		set["linear_team_id"] = strings.TrimSpace(*u.LinearTeamID)
	}
	return set, unset, nil
}

// Update applies upd and returns the updated project. A linked project is
// flagged pending_sync until it is pushed again.
func (s *Store) Update(ctx context.Context, id primitive.ObjectID, upd Update) (*models.Project, error) {
	set, unset, err := upd.set()
	if err != nil {
		return nil, err
	}
	set["updated_at"] = time.Now().UTC()

	doc := bson.M{"$set": set}
	if len(unset) > 0 {
		doc["$unset"] = unset
	}
	res, err := s.c.UpdateOne(ctx, bson.M{"_id": id}, doc)
	if err != nil {
		return nil, err
	}
	if res.MatchedCount == 0 {
		return nil, mongo.ErrNoDocuments
	}
	_, _ = s.c.UpdateOne(ctx,
		bson.M{"_id": id, "linear_project_id": bson.M{"$type": "string", "$ne": ""}},
		bson.M{"$set": bson.M{"sync_status": models.SyncPending}})
	return s.GetByID(ctx, id)
}

// Delete removes a project. Returns the number of documents deleted (0 or 1).
func (s *Store) Delete(ctx context.Context, id primitive.ObjectID) (int64, error) {
	res, err := s.c.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// TakeTwin deletes and returns the project other than keep that mirrors the
// Linear project, or nil when there is none.
func (s *Store) TakeTwin(ctx context.Context, linearID string, keep primitive.ObjectID) (*models.Project, error) {
	var p models.Project
	err := s.c.FindOneAndDelete(ctx, bson.M{"linear_project_id": linearID, "_id": bson.M{"$ne": keep}}).Decode(&p)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// SyncInfo identifies the Linear mirror of a project after a successful push.
type SyncInfo struct {
	LinearProjectID string
	LinearTeamID    string
	LinearURL       string
}

// MarkSynced records a successful push.
func (s *Store) MarkSynced(ctx context.Context, id primitive.ObjectID, info SyncInfo) error {
	now := time.Now().UTC()
	set := bson.M{
		"linear_project_id": info.LinearProjectID,
		"sync_status":       models.SyncSynced,
		"last_synced_at":    now,
	}
	if info.LinearTeamID != "" {
		set["linear_team_id"] = info.LinearTeamID
	}
	if info.LinearURL != "" {
		set["linear_url"] = info.LinearURL
	}
	_, err := s.c.UpdateOne(ctx, bson.M{"_id": id}, bson.M{
		"$set":   set,
		"$unset": bson.M{"sync_error": ""},
	})
	if wafflemongo.IsDup(err) {
		return ErrDuplicateLinearID
	}
	return err
}

// MarkSyncFailed tags the project sync_failed. The local record is otherwise untouched.
func (s *Store) MarkSyncFailed(ctx context.Context, id primitive.ObjectID, msg string) error {
	_, err := s.c.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{
		"sync_status": models.SyncFailed,
		"sync_error":  msg,
	}})
	return err
}

// Unlink detaches a project from its Linear mirror, keeping local data.
func (s *Store) Unlink(ctx context.Context, id primitive.ObjectID) error {
	_, err := s.c.UpdateOne(ctx, bson.M{"_id": id}, bson.M{
		"$set":   bson.M{"sync_status": models.SyncNotSynced, "updated_at": time.Now().UTC()},
		"$unset": bson.M{"linear_project_id": "", "linear_url": "", "sync_error": ""},
	})
	return err
}

// UnlinkAll detaches every project, used when the workspace is disconnected.
func (s *Store) UnlinkAll(ctx context.Context) (int64, error) {
	res, err := s.c.UpdateMany(ctx, bson.M{"linear_project_id": bson.M{"$exists": true}}, bson.M{
		"$set":   bson.M{"sync_status": models.SyncNotSynced},
		"$unset": bson.M{"linear_project_id": "", "linear_url": "", "sync_error": ""},
	})
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

// ListBySyncStatus returns up to limit projects with the given sync status, oldest update first.
func (s *Store) ListBySyncStatus(ctx context.Context, status string, limit int64) ([]models.Project, error) {
	cur, err := s.c.Find(ctx, bson.M{"sync_status": status}, options.Find().
		SetSort(bson.D{{Key: "updated_at", Value: 1}}).
		SetLimit(limit))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	out := []models.Project{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// RemoteUpdate carries fields received from Linear. Empty values are ignored.
type RemoteUpdate struct {
	Name        string
	Description string
	Status      string
	TargetDate  *time.Time
	StartDate   *time.Time
	URL         string
}

// ApplyRemote writes Linear-side changes onto the project and marks it synced.
func (s *Store) ApplyRemote(ctx context.Context, id primitive.ObjectID, r RemoteUpdate) error {
	now := time.Now().UTC()
	set := bson.M{
		"sync_status":    models.SyncSynced,
		"last_synced_at": now,
		"updated_at":     now,
	}
	if name := normalize.Name(r.Name); name != "" {
		set["name"] = name
		set["name_ci"] = text.Fold(name)
	}
	if r.Description != "" {
		set["description"] = strings.TrimSpace(r.Description)
	}
	if normalize.OneOf(r.Status, models.ProjectStatuses) {
		set["status"] = normalize.Status(r.Status)
	}
	if r.TargetDate != nil {
		set["target_date"] = r.TargetDate.UTC()
	}
	if r.StartDate != nil {
		set["start_date"] = r.StartDate.UTC()
	}
	if r.URL != "" {
		set["linear_url"] = r.URL
	}
	_, err := s.c.UpdateOne(ctx, bson.M{"_id": id}, bson.M{
		"$set":   set,
		"$unset": bson.M{"sync_error": ""},
	})
	return err
}

// CountByStatus returns the number of projects per status, every status present.
func (s *Store) CountByStatus(ctx context.Context) (map[string]int64, error) {
	out := make(map[string]int64, len(models.ProjectStatuses))
	for _, st := range models.ProjectStatuses {
		out[st] = 0
	}
	cur, err := s.c.Aggregate(ctx, mongo.Pipeline{
		{{Key: "$group", Value: bson.M{"_id": "$status", "n": bson.M{"$sum": 1}}}},
	})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	for cur.Next(ctx) {
		var row struct {
			Status string `bson:"_id"`
			N      int64  `bson:"n"`
		}
		if err := cur.Decode(&row); err != nil {
			return nil, err
		}
		out[row.Status] = row.N
	}
	return out, cur.Err()
}
