package personnelstore

import (
	"context"
	"errors"
	"fmt"
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
	// ErrDuplicateEmployeeID is returned when another personnel record uses the employee id.
	ErrDuplicateEmployeeID = errors.New("employee id is already in use")
	// ErrAlreadyConverted is returned when a personnel record already exists for the application.
	ErrAlreadyConverted = errors.New("application has already been converted")
	// ErrStepNotFound is returned for an unknown onboarding step key.
	ErrStepNotFound = errors.New("onboarding step not found")
	errBadStatus    = errors.New(`status must be "onboarding"|"active"|"on_leave"|"terminated"`)
)

// maxStepRetries bounds optimistic retries of onboarding updates.
const maxStepRetries = 5

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("personnel")}
}

// FormatEmployeeID renders a sequence number as an employee id (EMP-00001).
func FormatEmployeeID(seq int64) string {
	return fmt.Sprintf("EMP-%05d", seq)
}

// NewOnboarding builds a checklist from step titles. Keys are lowercase slugs
// of the titles.
func NewOnboarding(titles []string) models.Onboarding {
	o := models.Onboarding{Steps: []models.OnboardingStep{}}
	seen := map[string]bool{}
	for _, t := range titles {
		t = normalize.Name(t)
		key := slug(t)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		o.Steps = append(o.Steps, models.OnboardingStep{Key: key, Title: t})
	}
	o.Recount()
	return o
}

func slug(s string) string {
	var b strings.Builder
	dash := false
	for _, r := range text.Fold(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			dash = false
		case b.Len() > 0 && !dash:
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}

func dupErr(err error) error {
	if strings.Contains(err.Error(), "application_id") {
		return ErrAlreadyConverted
	}
	return ErrDuplicateEmployeeID
}

// Create inserts a personnel record. The unique indexes on employee_id and
// application_id turn races into ErrDuplicateEmployeeID / ErrAlreadyConverted.
func (s *Store) Create(ctx context.Context, p models.Personnel) (models.Personnel, error) {
	p.ID = primitive.NewObjectID()
	p.EmployeeID = normalize.EmployeeID(p.EmployeeID)
	p.FullName = normalize.Name(p.FullName)
	p.FullNameCI = text.Fold(p.FullName)
	p.Email = normalize.Email(p.Email)
	p.Skills = normalize.Skills(p.Skills)
	p.Status = normalize.Status(p.Status)
	if p.Status == "" {
		p.Status = models.PersonnelOnboarding
	}
	if !normalize.OneOf(p.Status, models.PersonnelStatuses) {
		return models.Personnel{}, errBadStatus
	}
	if p.Onboarding.Steps == nil {
		p.Onboarding.Steps = []models.OnboardingStep{}
	}
	p.Onboarding.Recount()

	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now

	if _, err := s.c.InsertOne(ctx, p); err != nil {
		if wafflemongo.IsDup(err) {
			return models.Personnel{}, dupErr(err)
		}
		return models.Personnel{}, err
	}
	return p, nil
}

// GetByID loads a personnel record by ObjectID.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Personnel, error) {
	var p models.Personnel
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&p); err != nil {
		return nil, err
	}
	return &p, nil
}

// GetByApplicationID loads the personnel record converted from an application.
func (s *Store) GetByApplicationID(ctx context.Context, appID primitive.ObjectID) (*models.Personnel, error) {
	var p models.Personnel
	if err := s.c.FindOne(ctx, bson.M{"application_id": appID}).Decode(&p); err != nil {
		return nil, err
	}
	return &p, nil
}

// EmployeeIDExists checks if an employee id is used by a record other than exclude.
func (s *Store) EmployeeIDExists(ctx context.Context, employeeID string, exclude primitive.ObjectID) (bool, error) {
	filter := bson.M{"employee_id": normalize.EmployeeID(employeeID)}
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

// ListFilter narrows List. Search matches a prefix of the name or the employee id.
type ListFilter struct {
	Status       string
	DepartmentID *primitive.ObjectID
	Search       string
}

// List returns one keyset page of personnel ordered by name.
func (s *Store) List(ctx context.Context, f ListFilter, p paging.Params) (paging.Page[models.Personnel], error) {
	filter := bson.M{}
	if f.Status != "" {
		filter["status"] = normalize.Status(f.Status)
	}
	if f.DepartmentID != nil {
		filter["department_id"] = *f.DepartmentID
	}
	if lo, hi := text.PrefixRange(f.Search); lo != "" {
		filter["$or"] = bson.A{
			bson.M{"full_name_ci": bson.M{"$gte": lo, "$lt": hi}},
			bson.M{"employee_id": normalize.EmployeeID(f.Search)},
		}
	}
	return paging.Find(ctx, s.c, filter, p, "full_name_ci",
		func(x models.Personnel) string { return x.FullNameCI },
		func(x models.Personnel) primitive.ObjectID { return x.ID })
}

// DirectoryEntry is the public view of a colleague.
type DirectoryEntry struct {
	ID           primitive.ObjectID  `bson:"_id" json:"id"`
	EmployeeID   string              `bson:"employee_id" json:"employee_id"`
	FullName     string              `bson:"full_name" json:"full_name"`
	Email        string              `bson:"email" json:"email"`
	Role         string              `bson:"role,omitempty" json:"role,omitempty"`
	Department   string              `bson:"department,omitempty" json:"department,omitempty"`
	DepartmentID *primitive.ObjectID `bson:"department_id,omitempty" json:"department_id,omitempty"`
	Status       string              `bson:"status" json:"status"`
}

var directoryProjection = bson.M{
	"_id": 1, "employee_id": 1, "full_name": 1, "email": 1,
	"role": 1, "department": 1, "department_id": 1, "status": 1,
}

// Directory lists active and onboarding personnel by name, optionally for one department.
func (s *Store) Directory(ctx context.Context, deptID *primitive.ObjectID) ([]DirectoryEntry, error) {
	filter := bson.M{"status": bson.M{"$in": bson.A{models.PersonnelActive, models.PersonnelOnboarding}}}
	if deptID != nil {
		filter["department_id"] = *deptID
	}
	return s.directory(ctx, filter)
}

// Team lists the colleagues of a personnel record in the same department.
func (s *Store) Team(ctx context.Context, deptID, exclude primitive.ObjectID) ([]DirectoryEntry, error) {
	return s.directory(ctx, bson.M{
		"department_id": deptID,
		"_id":           bson.M{"$ne": exclude},
		"status":        bson.M{"$in": bson.A{models.PersonnelActive, models.PersonnelOnboarding}},
	})
}

func (s *Store) directory(ctx context.Context, filter bson.M) ([]DirectoryEntry, error) {
	cur, err := s.c.Find(ctx, filter, options.Find().
		SetProjection(directoryProjection).
		SetSort(bson.D{{Key: "full_name_ci", Value: 1}, {Key: "_id", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	out := []DirectoryEntry{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Update holds editable personnel fields. Nil pointers are left unchanged.
// Preferences and Profile are the only fields a personnel may change on
// their own record; the rest are admin-only.
type Update struct {
	EmployeeID      *string
	DepartmentID    *primitive.ObjectID
	Department      *string
	ClearDepartment bool
	Role            *string
	Status          *string
	ManagerID       *primitive.ObjectID
	ClearManager    bool
	Phone           *string
	StartDate       *time.Time

	Preferences *models.Preferences
	Profile     *models.Profile
}

// Update applies upd and returns the updated record.
func (s *Store) Update(ctx context.Context, id primitive.ObjectID, upd Update) (*models.Personnel, error) {
	set := bson.M{"updated_at": time.Now().UTC()}
	unset := bson.M{}

	if upd.EmployeeID != nil {
		set["employee_id"] = normalize.EmployeeID(*upd.EmployeeID)
	}
	switch {
	case upd.ClearDepartment:
		unset["department_id"] = ""
		unset["department"] = ""
	case upd.DepartmentID != nil:
		set["department_id"] = *upd.DepartmentID
		if upd.Department != nil {
			set["department"] = normalize.Name(*upd.Department)
		}
	}
	if upd.Role != nil {
		set["role"] = normalize.Name(*upd.Role)
	}
	if upd.Status != nil {
		st := normalize.Status(*upd.Status)
		if !normalize.OneOf(st, models.PersonnelStatuses) {
			return nil, errBadStatus
		}
		set["status"] = st
	}
	switch {
	case upd.ClearManager:
		unset["manager_id"] = ""
	case upd.ManagerID != nil:
		set["manager_id"] = *upd.ManagerID
	}
	if upd.Phone != nil {
		set["phone"] = strings.TrimSpace(*upd.Phone)
	}
	if upd.StartDate != nil {
		set["start_date"] = upd.StartDate.UTC()
	}
	if upd.Preferences != nil {
		set["preferences"] = *upd.Preferences
	}
	if upd.Profile != nil {
		set["profile"] = *upd.Profile
	}

	doc := bson.M{"$set": set}
	if len(unset) > 0 {
		doc["$unset"] = unset
	}
	res, err := s.c.UpdateOne(ctx, bson.M{"_id": id}, doc)
	if err != nil {
		if wafflemongo.IsDup(err) {
			return nil, ErrDuplicateEmployeeID
		}
		return nil, err
	}
	if res.MatchedCount == 0 {
		return nil, mongo.ErrNoDocuments
	}
	return s.GetByID(ctx, id)
}

// SetOnboardingStep marks one checklist step done or not done and recomputes
// the counters. Completing the last step of a record still in onboarding
// promotes it to active. Concurrent updates are retried against a fresh read.
func (s *Store) SetOnboardingStep(ctx context.Context, id primitive.ObjectID, key string, done bool) (*models.Personnel, error) {
	for attempt := 0; attempt < maxStepRetries; attempt++ {
		p, err := s.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}

		idx := -1
		for i := range p.Onboarding.Steps {
			if p.Onboarding.Steps[i].Key == key {
				idx = i
				break
			}
		}
		if idx < 0 {
			return nil, ErrStepNotFound
		}

		now := time.Now().UTC()
		step := &p.Onboarding.Steps[idx]
		step.Done = done
		if done {
			if step.CompletedAt == nil {
				step.CompletedAt = &now
			}
		} else {
			step.CompletedAt = nil
		}
		p.Onboarding.Recount()

		if p.Onboarding.Percent == 100 {
			if p.Onboarding.CompletedAt == nil {
				p.Onboarding.CompletedAt = &now
			}
			if p.Status == models.PersonnelOnboarding {
				p.Status = models.PersonnelActive
			}
		} else {
			p.Onboarding.CompletedAt = nil
		}

		prev := p.UpdatedAt
		p.UpdatedAt = now
		res, err := s.c.UpdateOne(ctx,
			bson.M{"_id": id, "updated_at": prev},
			bson.M{"$set": bson.M{
				"onboarding": p.Onboarding,
				"status":     p.Status,
				"updated_at": now,
			}})
		if err != nil {
			return nil, err
		}
		if res.MatchedCount == 1 {
			return p, nil
		}
	}
	return nil, fmt.Errorf("onboarding update for %s: too many concurrent modifications", id.Hex())
}

// Delete removes a personnel record and returns it.
func (s *Store) Delete(ctx context.Context, id primitive.ObjectID) (*models.Personnel, error) {
	var p models.Personnel
	if err := s.c.FindOneAndDelete(ctx, bson.M{"_id": id}).Decode(&p); err != nil {
		return nil, err
	}
	return &p, nil
}

// CountByStatus returns the number of personnel per status, every status present.
func (s *Store) CountByStatus(ctx context.Context) (map[string]int64, error) {
	out := make(map[string]int64, len(models.PersonnelStatuses))
	for _, st := range models.PersonnelStatuses {
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

// CountInDepartment counts personnel assigned to a department.
func (s *Store) CountInDepartment(ctx context.Context, deptID primitive.ObjectID) (int64, error) {
	return s.c.CountDocuments(ctx, bson.M{"department_id": deptID})
}

// RenameDepartment refreshes the denormalized department name.
func (s *Store) RenameDepartment(ctx context.Context, deptID primitive.ObjectID, name string) error {
	_, err := s.c.UpdateMany(ctx, bson.M{"department_id": deptID}, bson.M{"$set": bson.M{"department": name}})
	return err
}
