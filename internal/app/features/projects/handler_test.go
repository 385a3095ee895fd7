package projects_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dalemusser/hirehub/internal/app/features/projects"
	projectstore "github.com/dalemusser/hirehub/internal/app/store/projects"
	taskstore "github.com/dalemusser/hirehub/internal/app/store/tasks"
	"github.com/dalemusser/hirehub/internal/app/system/auth"
	"github.com/dalemusser/hirehub/internal/app/system/indexes"
	"github.com/dalemusser/hirehub/internal/app/system/linearsync"
	"github.com/dalemusser/hirehub/internal/app/system/paging"
	"github.com/dalemusser/hirehub/internal/domain/models"
	"github.com/dalemusser/hirehub/internal/testutil"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// newTestHandler wires a sync service with no connected workspace, so
// pushes of linked records fail and are recorded as sync_failed.
func newTestHandler(t *testing.T) (*projects.Handler, *testutil.Fixtures) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll: %v", err)
	}
	sync := linearsync.New(db, nil, linearsync.Config{APIURL: "http://127.0.0.1:1", RPS: 100}, zap.NewNop())
	return projects.NewHandler(db, nil, sync, zap.NewNop()), testutil.NewFixtures(t, db)
}

func call(t *testing.T, fn http.HandlerFunc, method, target string, body any, u *auth.SessionUser, id string) *httptest.ResponseRecorder {
	t.Helper()
	req := testutil.JSONRequest(t, method, target, body)
	if id != "" {
		req = testutil.WithChiURLParam(req, "id", id)
	}
	req = testutil.AsUser(req, u)
	rec := httptest.NewRecorder()
	fn(rec, req)
	return rec
}

func TestHandleCreate(t *testing.T) {
	h, fx := newTestHandler(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	lead := fx.CreatePersonnel(ctx, "Lee Lead", "EMP-00001", nil)

	tests := []struct {
		name     string
		body     map[string]any
		wantCode int
	}{
		{"minimal", map[string]any{"name": "Apollo"}, http.StatusCreated},
		{"full", map[string]any{
			"name": "Gemini", "status": "active", "priority": "high",
			"lead_id": lead.ID.Hex(), "member_ids": []string{lead.ID.Hex(), lead.ID.Hex()},
			"start_date": "2026-01-01", "target_date": "2026-06-30",
		}, http.StatusCreated},
		{"missing name", map[string]any{"status": "active"}, http.StatusBadRequest},
		{"bad status", map[string]any{"name": "X", "status": "paused"}, http.StatusBadRequest},
		{"unknown lead", map[string]any{"name": "X", "lead_id": primitive.NewObjectID().Hex()}, http.StatusBadRequest},
		{"target before start", map[string]any{"name": "X", "start_date": "2026-06-01", "target_date": "2026-01-01"}, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := call(t, h.HandleCreate, http.MethodPost, "/api/projects", tt.body, testutil.AdminUser(), "")
			if rec.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d: %s", rec.Code, tt.wantCode, rec.Body.String())
			}
			if rec.Code != http.StatusCreated {
				return
			}
			var p models.Project
			testutil.DecodeBody(t, rec, &p)
			if p.SyncStatus != models.SyncNotSynced {
				t.Errorf("sync_status = %q", p.SyncStatus)
			}
			if len(p.MemberIDs) > 1 {
				t.Errorf("member ids not deduplicated: %v", p.MemberIDs)
			}
		})
	}
}

func TestHandleDelete_CascadesTasks(t *testing.T) {
	h, fx := newTestHandler(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	p := fx.CreateProject(ctx, "Apollo", "")
	other := fx.CreateProject(ctx, "Gemini", "")
	fx.CreateTask(ctx, p.ID, "One", nil, "")
	fx.CreateTask(ctx, p.ID, "Two", nil, "")
	kept := fx.CreateTask(ctx, other.ID, "Three", nil, "")

	rec := call(t, h.HandleDelete, http.MethodDelete, "/api/projects/"+p.ID.Hex(), nil, testutil.AdminUser(), p.ID.Hex())
	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	n, err := fx.DB().Collection("tasks").CountDocuments(ctx, bson.M{"project_id": p.ID})
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 0 {
		t.Errorf("tasks left for deleted project = %d", n)
	}
	if _, err := taskstore.New(fx.DB()).GetByID(ctx, kept.ID); err != nil {
		t.Errorf("task of another project was removed: %v", err)
	}

	rec = call(t, h.HandleDelete, http.MethodDelete, "/", nil, testutil.AdminUser(), p.ID.Hex())
	if rec.Code != http.StatusNotFound {
		t.Errorf("second delete = %d, want 404", rec.Code)
	}
}

func TestHandleDelete_RefusesWithTimeEntries(t *testing.T) {
	h, fx := newTestHandler(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	p := fx.CreateProject(ctx, "Apollo", "")
	task := fx.CreateTask(ctx, p.ID, "Logged work", nil, "")
	worker := fx.CreatePersonnel(ctx, "Tim Keeper", "EMP-00009", nil)
	fx.CreateTimeEntry(ctx, worker.ID, p.ID, 90, false)

	rec := call(t, h.HandleDelete, http.MethodDelete, "/api/projects/"+p.ID.Hex(), nil, testutil.AdminUser(), p.ID.Hex())
	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409: %s", rec.Code, rec.Body.String())
	}
	if _, err := projectstore.New(fx.DB()).GetByID(ctx, p.ID); err != nil {
		t.Errorf("project should survive: %v", err)
	}
	if _, err := taskstore.New(fx.DB()).GetByID(ctx, task.ID); err != nil {
		t.Errorf("task should survive: %v", err)
	}

	rec = call(t, h.HandleDelete, http.MethodDelete, "/", nil, testutil.AdminUser(), primitive.NewObjectID().Hex())
	if rec.Code != http.StatusNotFound {
		t.Errorf("missing project = %d, want 404", rec.Code)
	}
}

func TestHandleCreateTask_SyncFailureKeepsTask(t *testing.T) {
	h, fx := newTestHandler(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	local := fx.CreateProject(ctx, "Local", "")
	linked := fx.CreateProject(ctx, "Linked", "lp-1")
	assignee := fx.CreatePersonnel(ctx, "Ada Assignee", "EMP-00002", nil)

	tests := []struct {
		name     string
		project  models.Project
		body     map[string]any
		wantCode int
		wantSync string
	}{
		{"unlinked project", local, map[string]any{"title": "Write docs", "assignee_id": assignee.ID.Hex()}, http.StatusCreated, models.SyncNotSynced},
		{"linked project without workspace", linked, map[string]any{"title": "Ship it", "priority": "urgent"}, http.StatusCreated, models.SyncFailed},
		{"missing title", local, map[string]any{"priority": "low"}, http.StatusBadRequest, ""},
		{"unknown assignee", local, map[string]any{"title": "X", "assignee_id": primitive.NewObjectID().Hex()}, http.StatusBadRequest, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := call(t, h.HandleCreateTask, http.MethodPost, "/api/projects/"+tt.project.ID.Hex()+"/tasks", tt.body, testutil.AdminUser(), tt.project.ID.Hex())
			if rec.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d: %s", rec.Code, tt.wantCode, rec.Body.String())
			}
			if tt.wantSync == "" {
				return
			}
			var got models.Task
			testutil.DecodeBody(t, rec, &got)
			if got.SyncStatus != tt.wantSync {
				t.Errorf("sync_status = %q, want %q", got.SyncStatus, tt.wantSync)
			}
			if _, err := taskstore.New(fx.DB()).GetByID(ctx, got.ID); err != nil {
				t.Errorf("task not saved: %v", err)
			}
		})
	}
}

func TestHandlePatchTask_Permissions(t *testing.T) {
	h, fx := newTestHandler(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	p := fx.CreateProject(ctx, "Apollo", "")
	owner := fx.CreatePersonnel(ctx, "Olu Owner", "EMP-00003", nil)
	task := fx.CreateTask(ctx, p.ID, "Fuel", &owner.ID, "")
	self := testutil.PersonnelUser(owner.ID)

	tests := []struct {
		name     string
		user     *auth.SessionUser
		body     map[string]any
		wantCode int
	}{
		{"assignee status", self, map[string]any{"status": "in_progress"}, http.StatusOK},
		{"assignee title", self, map[string]any{"title": "Refuel"}, http.StatusForbidden},
		{"assignee reassign", self, map[string]any{"status": "done", "assignee_id": ""}, http.StatusForbidden},
		{"stranger status", testutil.PersonnelUser(primitive.NewObjectID()), map[string]any{"status": "done"}, http.StatusForbidden},
		{"bad status", self, map[string]any{"status": "finished"}, http.StatusBadRequest},
		{"admin anything", testutil.AdminUser(), map[string]any{"title": "Refuel", "priority": "high", "due_date": "2026-12-01"}, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := call(t, h.HandlePatchTask, http.MethodPatch, "/api/tasks/"+task.ID.Hex(), tt.body, tt.user, task.ID.Hex())
			if rec.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d: %s", rec.Code, tt.wantCode, rec.Body.String())
			}
		})
	}

	got, err := taskstore.New(fx.DB()).GetByID(ctx, task.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Status != models.TaskInProgress || got.Title != "Refuel" || got.Priority != models.PriorityHigh {
		t.Errorf("task = %+v", got)
	}
}

func TestServeTasks_AssigneeMe(t *testing.T) {
	h, fx := newTestHandler(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	p := fx.CreateProject(ctx, "Apollo", "")
	me := fx.CreatePersonnel(ctx, "Mia Me", "EMP-00004", nil)
	fx.CreateTask(ctx, p.ID, "Mine", &me.ID, "")
	fx.CreateTask(ctx, p.ID, "Unassigned", nil, "")

	tests := []struct {
		name     string
		user     *auth.SessionUser
		target   string
		wantCode int
		want     int
	}{
		{"all", testutil.AdminUser(), "/api/tasks", http.StatusOK, 2},
		{"mine", testutil.PersonnelUser(me.ID), "/api/tasks?assignee=me", http.StatusOK, 1},
		{"by project", testutil.AdminUser(), "/api/tasks?project_id=" + p.ID.Hex() + "&status=todo", http.StatusOK, 2},
		{"me without personnel", testutil.AdminUser(), "/api/tasks?assignee=me", http.StatusBadRequest, 0},
		{"bad status", testutil.AdminUser(), "/api/tasks?status=someday", http.StatusBadRequest, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := call(t, h.ServeTasks, http.MethodGet, tt.target, nil, tt.user, "")
			if rec.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d: %s", rec.Code, tt.wantCode, rec.Body.String())
			}
			if rec.Code != http.StatusOK {
				return
			}
			var page paging.Page[models.Task]
			testutil.DecodeBody(t, rec, &page)
			if len(page.Items) != tt.want {
				t.Errorf("items = %d, want %d", len(page.Items), tt.want)
			}
		})
	}
}

func TestHandleSync_NotConnected(t *testing.T) {
	h, fx := newTestHandler(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	p := fx.CreateProject(ctx, "Apollo", "")

	rec := call(t, h.HandleSync, http.MethodPost, "/api/projects/"+p.ID.Hex()+"/sync", nil, testutil.AdminUser(), p.ID.Hex())
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400: %s", rec.Code, rec.Body.String())
	}
	got, err := projectstore.New(fx.DB()).GetByID(ctx, p.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.SyncStatus != models.SyncNotSynced {
		t.Errorf("sync_status = %q", got.SyncStatus)
	}
}
