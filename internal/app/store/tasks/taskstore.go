package taskstore

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
	// ErrDuplicateLinearID is returned when another task already mirrors the Linear issue.
	ErrDuplicateLinearID = errors.New("a task is already linked to this Linear issue")
	errBadStatus         = errors.New("invalid task status")
	errBadPriority       = errors.New("invalid priority")
)

// closedStatuses are the statuses that no longer count as open work.
var closedStatuses = bson.A{models.TaskDone, models.TaskCancelled}

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("tasks")}
}

// Create inserts a task. Tasks created from a Linear issue are recorded as synced.
func (s *Store) Create(ctx context.Context, t models.Task) (models.Task, error) {
	t.ID = primitive.NewObjectID()
	t.Title = normalize.Name(t.Title)
	t.TitleCI = text.Fold(t.Title)
	t.Description = strings.TrimSpace(t.Description)
	t.Status = normalize.Status(t.Status)
	if t.Status == "" {
		t.Status = models.TaskTodo
	}
	t.Priority = normalize.Status(t.Priority)
	if t.Priority == "" {
		t.Priority = models.PriorityNone
	}
	if !normalize.OneOf(t.Status, models.TaskStatuses) {
		return models.Task{}, errBadStatus
	}
	if !normalize.OneOf(t.Priority, models.Priorities) {
		return models.Task{}, errBadPriority
	}

	now := time.Now().UTC()
	if t.LinearIssueID != "" {
		t.SyncStatus = models.SyncSynced
		t.LastSyncedAt = &now
	} else if t.SyncStatus == "" {
		t.SyncStatus = models.SyncNotSynced
	}
	t.CreatedAt = now
	t.UpdatedAt = now

	if _, err := s.c.InsertOne(ctx, t); err != nil {
		if wafflemongo.IsDup(err) {
			return models.Task{}, ErrDuplicateLinearID
		}
		return models.Task{}, err
	}
	return t, nil
}

// GetByID loads a task by ObjectID.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Task, error) {
	var t models.Task
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&t); err != nil {
		return nil, err
	}
	return &t, nil
}

// GetByLinearID loads the task mirroring a Linear issue.
func (s *Store) GetByLinearID(ctx context.Context, issueID string) (*models.Task, error) {
	var t models.Task
	if err := s.c.FindOne(ctx, bson.M{"linear_issue_id": issueID}).Decode(&t); err != nil {
		return nil, err
	}
	return &t, nil
}

// ListFilter narrows List. Empty fields match everything.
type ListFilter struct {
	ProjectID  *primitive.ObjectID
	AssigneeID *primitive.ObjectID
	Status     string
	Search     string
}

// List returns one keyset page of tasks ordered by title.
func (s *Store) List(ctx context.Context, f ListFilter, p paging.Params) (paging.Page[models.Task], error) {
	filter := bson.M{}
	if f.ProjectID != nil {
		filter["project_id"] = *f.ProjectID
	}
	if f.AssigneeID != nil {
		filter["assignee_id"] = *f.AssigneeID
	}
	if f.Status != "" {
		filter["status"] = normalize.Status(f.Status)
	}
	if lo, hi := text.PrefixRange(f.Search); lo != "" {
		filter["title_ci"] = bson.M{"$gte": lo, "$lt": hi}
	}
	return paging.Find(ctx, s.c, filter, p, "title_ci",
		func(x models.Task) string { return x.TitleCI },
		func(x models.Task) primitive.ObjectID { return x.ID })
}

// Update holds editable task fields. Nil pointers are left unchanged.
type Update struct {
	Title         *string
	Description   *string
	Status        *string
	Priority      *string
	AssigneeID    *primitive.ObjectID
	ClearAssignee bool
	DueDate       *time.Time
	ClearDueDate  bool
	EstimateHours *float64
}

// StatusOnly reports whether upd changes nothing but the status.
func (u Update) StatusOnly() bool {
	return u.Status != nil && u.Title == nil && u.Description == nil && u.Priority == nil &&
		u.AssigneeID == nil && !u.ClearAssignee && u.DueDate == nil && !u.ClearDueDate &&
		u.EstimateHours == nil
}

// Update applies upd and returns the updated task. A linked task is flagged
// pending_sync until it is pushed again.
func (s *Store) Update(ctx context.Context, id primitive.ObjectID, upd Update) (*models.Task, error) {
	set := bson.M{"updated_at": time.Now().UTC()}
	unset := bson.M{}

	if upd.Title != nil {
		title := normalize.Name(*upd.Title)
		set["title"] = title
		set["title_ci"] = text.Fold(title)
	}
	if upd.Description != nil {
		set["description"] = strings.TrimSpace(*upd.Description)
	}
	if upd.Status != nil {
		st := normalize.Status(*upd.Status)
		if !normalize.OneOf(st, models.TaskStatuses) {
			return nil, errBadStatus
		}
		set["status"] = st
	}
	if upd.Priority != nil {
		pr := normalize.Status(*upd.Priority)
		if !normalize.OneOf(pr, models.Priorities) {
			return nil, errBadPriority
		}
		set["priority"] = pr
	}
	switch {
	case upd.ClearAssignee:
		unset["assignee_id"] = ""
	case upd.AssigneeID != nil:
		set["assignee_id"] = *upd.AssigneeID
	}
	switch {
	case upd.ClearDueDate:
		unset["due_date"] = ""
	case upd.DueDate != nil:
		set["due_date"] = upd.DueDate.UTC()
	}
	if upd.EstimateHours != nil {
		set["estimate_hours"] = *upd.EstimateHours
	}

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
		bson.M{"_id": id, "linear_issue_id": bson.M{"$type": "string", "$ne": ""}},
		bson.M{"$set": bson.M{"sync_status": models.SyncPending}})
	return s.GetByID(ctx, id)
}

// Delete removes a task. Returns the number of documents deleted (0 or 1).
func (s *Store) Delete(ctx context.Context, id primitive.ObjectID) (int64, error) {
	res, err := s.c.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// DeleteByProject removes every task of a project.
func (s *Store) DeleteByProject(ctx context.Context, projectID primitive.ObjectID) (int64, error) {
	res, err := s.c.DeleteMany(ctx, bson.M{"project_id": projectID})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// DeleteByLinearID removes the task mirroring a Linear issue.
func (s *Store) DeleteByLinearID(ctx context.Context, issueID string) (int64, error) {
	res, err := s.c.DeleteOne(ctx, bson.M{"linear_issue_id": issueID})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// DeleteTwin removes a task other than keep that mirrors the Linear issue.
// Linear's create webhook inserts such a copy when it lands before the
// pushing task records its issue id.
func (s *Store) DeleteTwin(ctx context.Context, issueID string, keep primitive.ObjectID) (int64, error) {
	res, err := s.c.DeleteOne(ctx, bson.M{"linear_issue_id": issueID, "_id": bson.M{"$ne": keep}})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// MoveToProject reassigns every task of one project to another.
func (s *Store) MoveToProject(ctx context.Context, from, to primitive.ObjectID) (int64, error) {
	res, err := s.c.UpdateMany(ctx, bson.M{"project_id": from}, bson.M{
		"$set": bson.M{"project_id": to, "updated_at": time.Now().UTC()},
	})
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

// SyncInfo identifies the Linear mirror of a task after a successful push.
type SyncInfo struct {
	LinearIssueID    string
	LinearIdentifier string
	LinearURL        string
	LinearStateName  string
}

// MarkSynced records a successful push.
func (s *Store) MarkSynced(ctx context.Context, id primitive.ObjectID, info SyncInfo) error {
	now := time.Now().UTC()
	set := bson.M{
		"linear_issue_id": info.LinearIssueID,
		"sync_status":     models.SyncSynced,
		"last_synced_at":  now,
	}
	if info.LinearIdentifier != "" {
		set["linear_identifier"] = info.LinearIdentifier
	}
	if info.LinearURL != "" {
		set["linear_url"] = info.LinearURL
	}
	if info.LinearStateName != "" {
		set["linear_state_name"] = info.LinearStateName
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

// MarkSyncFailed tags the task sync_failed. The local record is otherwise untouched.
func (s *Store) MarkSyncFailed(ctx context.Context, id primitive.ObjectID, msg string) error {
	_, err := s.c.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{
		"sync_status": models.SyncFailed,
		"sync_error":  msg,
	}})
	return err
}

// ListBySyncStatus returns up to limit tasks with the given sync status, oldest update first.
func (s *Store) ListBySyncStatus(ctx context.Context, status string, limit int64) ([]models.Task, error) {
	return s.find(ctx, bson.M{"sync_status": status}, options.Find().
		SetSort(bson.D{{Key: "updated_at", Value: 1}}).
		SetLimit(limit))
}

// ListUnsynced returns the tasks of a project that are not in sync with Linear.
func (s *Store) ListUnsynced(ctx context.Context, projectID primitive.ObjectID) ([]models.Task, error) {
	return s.find(ctx, bson.M{
		"project_id":  projectID,
		"sync_status": bson.M{"$ne": models.SyncSynced},
	}, options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}}))
}

// ListOpenByAssignee returns the open tasks assigned to a personnel record, by due date.
func (s *Store) ListOpenByAssignee(ctx context.Context, assigneeID primitive.ObjectID, limit int64) ([]models.Task, error) {
	return s.find(ctx, bson.M{
		"assignee_id": assigneeID,
		"status":      bson.M{"$nin": closedStatuses},
	}, options.Find().
		SetSort(bson.D{{Key: "due_date", Value: 1}, {Key: "_id", Value: 1}}).
		SetLimit(limit))
}

// CountOpenByAssignee counts the open tasks of a personnel record.
func (s *Store) CountOpenByAssignee(ctx context.Context, assigneeID primitive.ObjectID) (int64, error) {
	return s.c.CountDocuments(ctx, bson.M{
		"assignee_id": assigneeID,
		"status":      bson.M{"$nin": closedStatuses},
	})
}

// UnlinkAll detaches every task from Linear, used when the workspace is disconnected.
func (s *Store) UnlinkAll(ctx context.Context) (int64, error) {
	res, err := s.c.UpdateMany(ctx, bson.M{"linear_issue_id": bson.M{"$exists": true}}, bson.M{
		"$set":   bson.M{"sync_status": models.SyncNotSynced},
		"$unset": bson.M{"linear_issue_id": "", "linear_identifier": "", "linear_url": "", "linear_state_name": "", "sync_error": ""},
	})
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

// RemoteUpdate carries fields received from Linear. Empty values are ignored.
type RemoteUpdate struct {
	Title       string
	Description string
	Status      string
	Priority    string
	StateName   string
	Identifier  string
	URL         string
	DueDate     *time.Time
	Estimate    *float64
}

// ApplyRemote writes Linear-side changes onto the task and marks it synced.
func (s *Store) ApplyRemote(ctx context.Context, id primitive.ObjectID, r RemoteUpdate) error {
	now := time.Now().UTC()
	set := bson.M{
		"sync_status":    models.SyncSynced,
		"last_synced_at": now,
		"updated_at":     now,
	}
	if title := normalize.Name(r.Title); title != "" {
		set["title"] = title
		set["title_ci"] = text.Fold(title)
	}
	if r.Description != "" {
		set["description"] = strings.TrimSpace(r.Description)
	}
	if normalize.OneOf(r.Status, models.TaskStatuses) {
		set["status"] = normalize.Status(r.Status)
	}
	if normalize.OneOf(r.Priority, models.Priorities) {
		set["priority"] = normalize.Status(r.Priority)
	}
	if r.StateName != "" {
		set["linear_state_name"] = r.StateName
	}
	if r.Identifier != "" {
		set["linear_identifier"] = r.Identifier
	}
	if r.URL != "" {
		set["linear_url"] = r.URL
	}
	if r.DueDate != nil {
		set["due_date"] = r.DueDate.UTC()
	}
	if r.Estimate != nil {
		set["estimate_hours"] = *r.Estimate
	}
	_, err := s.c.UpdateOne(ctx, bson.M{"_id": id}, bson.M{
		"$set":   set,
		"$unset": bson.M{"sync_error": ""},
	})
	return err
}

func (s *Store) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]models.Task, error) {
	cur, err := s.c.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	out := []models.Task{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}
