package testutil

import (
	"context"
	"testing"
	"time"

	applicationstore "github.com/dalemusser/hirehub/internal/app/store/applications"
	"github.com/dalemusser/hirehub/internal/app/system/authutil"
	"github.com/dalemusser/hirehub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// Fixtures provides helper methods for creating test data.
type Fixtures struct {
	db *mongo.Database
	t  *testing.T
}

// NewFixtures creates a new Fixtures instance for the given test database.
func NewFixtures(t *testing.T, db *mongo.Database) *Fixtures {
	t.Helper()
	return &Fixtures{db: db, t: t}
}

// DB returns the underlying database for direct access in tests.
func (f *Fixtures) DB() *mongo.Database {
	return f.db
}

func (f *Fixtures) insert(ctx context.Context, coll string, doc any) {
	f.t.Helper()
	if _, err := f.db.Collection(coll).InsertOne(ctx, doc); err != nil {
		f.t.Fatalf("failed to insert test %s: %v", coll, err)
	}
}

// CreateUser creates an active user. A non-empty password is bcrypt-hashed.
func (f *Fixtures) CreateUser(ctx context.Context, fullName, email, role, password string) models.User {
	f.t.Helper()

	now := time.Now().UTC()
	u := models.User{
		ID:             primitive.NewObjectID(),
		FullName:       fullName,
		FullNameCI:     text.Fold(fullName),
		Email:          email,
		Role:           role,
		Status:         models.UserActive,
		CanApproveTime: role == models.RoleAdmin,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if password != "" {
		hash, err := authutil.HashPassword(password)
		if err != nil {
			f.t.Fatalf("failed to hash password: %v", err)
		}
		u.PasswordHash = hash
	}
	f.insert(ctx, "users", u)
	return u
}

// CreateAdmin creates an admin user without a password.
func (f *Fixtures) CreateAdmin(ctx context.Context, fullName, email string) models.User {
	f.t.Helper()
	return f.CreateUser(ctx, fullName, email, models.RoleAdmin, "")
}

// CreatePersonnelUser creates a personnel account linked to pid.
func (f *Fixtures) CreatePersonnelUser(ctx context.Context, fullName, email string, pid primitive.ObjectID) models.User {
	f.t.Helper()

	now := time.Now().UTC()
	u := models.User{
		ID:          primitive.NewObjectID(),
		FullName:    fullName,
		FullNameCI:  text.Fold(fullName),
		Email:       email,
		Role:        models.RolePersonnel,
		Status:      models.UserActive,
		PersonnelID: &pid,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	f.insert(ctx, "users", u)
	return u
}

// CreateApplication creates an application in the given status and returns
// it with its plaintext edit token.
func (f *Fixtures) CreateApplication(ctx context.Context, fullName, email, status string) (models.Application, string) {
	f.t.Helper()

	token := applicationstore.NewEditToken()
	now := time.Now().UTC()
	a := models.Application{
		ID:            primitive.NewObjectID(),
		FullName:      fullName,
		FullNameCI:    text.Fold(fullName),
		Email:         email,
		Phone:         "+1 555 0100",
		Position:      "Software Engineer",
		Skills:        []string{"Go", "MongoDB"},
		Status:        status,
		EditTokenHash: applicationstore.HashToken(token),
		Version:       1,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	f.insert(ctx, "applications", a)
	return a, token
}

// CreatePersonnel creates a personnel record with a two-step onboarding checklist.
func (f *Fixtures) CreatePersonnel(ctx context.Context, fullName, employeeID string, deptID *primitive.ObjectID) models.Personnel {
	f.t.Helper()

	now := time.Now().UTC()
	p := models.Personnel{
		ID:            primitive.NewObjectID(),
		ApplicationID: primitive.NewObjectID(),
		EmployeeID:    employeeID,
		FullName:      fullName,
		FullNameCI:    text.Fold(fullName),
		Email:         employeeID + "@example.com",
		Skills:        []string{},
		DepartmentID:  deptID,
		Status:        models.PersonnelOnboarding,
		Onboarding: models.Onboarding{
			TotalSteps: 2,
			Steps: []models.OnboardingStep{
				{Key: "paperwork", Title: "Paperwork"},
				{Key: "equipment", Title: "Equipment"},
			},
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
	f.insert(ctx, "personnel", p)
	return p
}

// CreateDepartment creates an active department.
func (f *Fixtures) CreateDepartment(ctx context.Context, name string) models.Department {
	f.t.Helper()

	now := time.Now().UTC()
	d := models.Department{
		ID:        primitive.NewObjectID(),
		Name:      name,
		NameCI:    text.Fold(name),
		Status:    "active",
		CreatedAt: now,
		UpdatedAt: now,
	}
	f.insert(ctx, "departments", d)
	return d
}

// CreateProject creates an active project. A non-empty linearID links it to Linear.
func (f *Fixtures) CreateProject(ctx context.Context, name, linearID string) models.Project {
	f.t.Helper()

	now := time.Now().UTC()
	p := models.Project{
		ID:              primitive.NewObjectID(),
		Name:            name,
		NameCI:          text.Fold(name),
		Status:          models.ProjectActive,
		Priority:        models.PriorityNone,
		LinearProjectID: linearID,
		SyncStatus:      models.SyncNotSynced,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if linearID != "" {
		p.SyncStatus = models.SyncSynced
	}
	f.insert(ctx, "projects", p)
	return p
}

// CreateTask creates a todo task in projectID. A non-empty linearID links it to Linear.
func (f *Fixtures) CreateTask(ctx context.Context, projectID primitive.ObjectID, title string, assignee *primitive.ObjectID, linearID string) models.Task {
	f.t.Helper()

	now := time.Now().UTC()
	t := models.Task{
		ID:            primitive.NewObjectID(),
		ProjectID:     projectID,
		Title:         title,
		TitleCI:       text.Fold(title),
		Status:        models.TaskTodo,
		Priority:      models.PriorityNone,
		AssigneeID:    assignee,
		LinearIssueID: linearID,
		SyncStatus:    models.SyncNotSynced,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if linearID != "" {
		t.SyncStatus = models.SyncSynced
	}
	f.insert(ctx, "tasks", t)
	return t
}

// CreateTimeEntry creates an entry for today.
func (f *Fixtures) CreateTimeEntry(ctx context.Context, personnelID, projectID primitive.ObjectID, minutes int, approved bool) models.TimeEntry {
	f.t.Helper()

	now := time.Now().UTC()
	y, m, d := now.Date()
	e := models.TimeEntry{
		ID:              primitive.NewObjectID(),
		PersonnelID:     personnelID,
		ProjectID:       projectID,
		Date:            time.Date(y, m, d, 0, 0, 0, 0, time.UTC),
		DurationMinutes: minutes,
		IsApproved:      approved,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	f.insert(ctx, "time_entries", e)
	return e
}
