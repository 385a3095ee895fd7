package timeentries_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dalemusser/hirehub/internal/app/features/timeentries"
	timeentrystore "github.com/dalemusser/hirehub/internal/app/store/timeentries"
	"github.com/dalemusser/hirehub/internal/app/system/auth"
	"github.com/dalemusser/hirehub/internal/app/system/indexes"
	"github.com/dalemusser/hirehub/internal/domain/models"
	"github.com/dalemusser/hirehub/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

func newTestHandler(t *testing.T) (*timeentries.Handler, *testutil.Fixtures) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll: %v", err)
	}
	return timeentries.NewHandler(db, nil, zap.NewNop()), testutil.NewFixtures(t, db)
}

func call(t *testing.T, fn http.HandlerFunc, method, target string, body any, u *auth.SessionUser, id string) *httptest.ResponseRecorder {
	t.Helper()
	req := testutil.JSONRequest(t, method, target, body)
	if id != "" {
		req = testutil.WithChiURLParam(req, "id", id)
	}
	rec := httptest.NewRecorder()
	fn(rec, testutil.AsUser(req, u))
	return rec
}

// approver is a non-admin personnel user holding the approval permission.
func approver(pid primitive.ObjectID) *auth.SessionUser {
	u := testutil.PersonnelUser(pid)
	u.CanApproveTime = true
	return u
}

func TestHandleCreate(t *testing.T) {
	h, fx := newTestHandler(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	me := fx.CreatePersonnel(ctx, "Mia Me", "EMP-00001", nil)
	other := fx.CreatePersonnel(ctx, "Oli Other", "EMP-00002", nil)
	proj := fx.CreateProject(ctx, "Apollo", "")
	elsewhere := fx.CreateProject(ctx, "Gemini", "")
	task := fx.CreateTask(ctx, proj.ID, "Fuel", nil, "")
	foreign := fx.CreateTask(ctx, elsewhere.ID, "Orbit", nil, "")
	self := testutil.PersonnelUser(me.ID)

	tests := []struct {
		name        string
		user        *auth.SessionUser
		body        map[string]any
		wantCode    int
		wantMinutes int
	}{
		{"duration", self, map[string]any{"project_id": proj.ID.Hex(), "duration_minutes": 90, "date": "2026-03-02"}, http.StatusCreated, 90},
		{"start and end", self, map[string]any{
			"project_id": proj.ID.Hex(), "task_id": task.ID.Hex(),
			"started_at": "2026-03-02T09:00:00Z", "ended_at": "2026-03-02T11:30:00Z",
		}, http.StatusCreated, 150},
		{"matching duration", self, map[string]any{
			"project_id": proj.ID.Hex(), "duration_minutes": 60,
			"started_at": "2026-03-03T09:00:00Z", "ended_at": "2026-03-03T10:00:00Z",
		}, http.StatusCreated, 60},
		{"admin for other", testutil.AdminUser(), map[string]any{"project_id": proj.ID.Hex(), "personnel_id": other.ID.Hex(), "duration_minutes": 30}, http.StatusCreated, 30},
		{"mismatched duration", self, map[string]any{
			"project_id": proj.ID.Hex(), "duration_minutes": 5,
			"started_at": "2026-03-03T09:00:00Z", "ended_at": "2026-03-03T10:00:00Z",
		}, http.StatusBadRequest, 0},
		{"end before start", self, map[string]any{
			"project_id": proj.ID.Hex(), "started_at": "2026-03-03T10:00:00Z", "ended_at": "2026-03-03T09:00:00Z",
		}, http.StatusBadRequest, 0},
		{"only start", self, map[string]any{"project_id": proj.ID.Hex(), "started_at": "2026-03-03T10:00:00Z"}, http.StatusBadRequest, 0},
		{"no timing", self, map[string]any{"project_id": proj.ID.Hex()}, http.StatusBadRequest, 0},
		{"over a day", self, map[string]any{"project_id": proj.ID.Hex(), "duration_minutes": 1441}, http.StatusBadRequest, 0},
		{"span over a day", self, map[string]any{
			"project_id": proj.ID.Hex(), "started_at": "2026-03-03T00:00:00Z", "ended_at": "2026-03-04T00:01:00Z",
		}, http.StatusBadRequest, 0},
		{"task of other project", self, map[string]any{"project_id": proj.ID.Hex(), "task_id": foreign.ID.Hex(), "duration_minutes": 10}, http.StatusBadRequest, 0},
		{"unknown project", self, map[string]any{"project_id": primitive.NewObjectID().Hex(), "duration_minutes": 10}, http.StatusBadRequest, 0},
		{"for someone else", self, map[string]any{"project_id": proj.ID.Hex(), "personnel_id": other.ID.Hex(), "duration_minutes": 10}, http.StatusForbidden, 0},
		{"unlinked account", &auth.SessionUser{ID: primitive.NewObjectID().Hex(), Role: models.RolePersonnel}, map[string]any{"project_id": proj.ID.Hex(), "duration_minutes": 10}, http.StatusForbidden, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := call(t, h.HandleCreate, http.MethodPost, "/api/time-entries", tt.body, tt.user, "")
			if rec.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d: %s", rec.Code, tt.wantCode, rec.Body.String())
			}
			if rec.Code != http.StatusCreated {
				return
			}
			var e models.TimeEntry
			testutil.DecodeBody(t, rec, &e)
			if e.DurationMinutes != tt.wantMinutes || e.IsApproved {
				t.Errorf("minutes=%d approved=%v, want %d false", e.DurationMinutes, e.IsApproved, tt.wantMinutes)
			}
		})
	}
}

func TestApprovedEntriesAreFrozen(t *testing.T) {
	h, fx := newTestHandler(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	me := fx.CreatePersonnel(ctx, "Mia Me", "EMP-00001", nil)
	proj := fx.CreateProject(ctx, "Apollo", "")
	open := fx.CreateTimeEntry(ctx, me.ID, proj.ID, 60, false)
	frozen := fx.CreateTimeEntry(ctx, me.ID, proj.ID, 60, true)
	self := testutil.PersonnelUser(me.ID)

	tests := []struct {
		name     string
		fn       func(*timeentries.Handler) http.HandlerFunc
		method   string
		entry    models.TimeEntry
		user     *auth.SessionUser
		body     map[string]any
		wantCode int
	}{
		{"owner edits open entry", patch, http.MethodPatch, open, self, map[string]any{"duration_minutes": 45}, http.StatusOK},
		{"owner edits approved entry", patch, http.MethodPatch, frozen, self, map[string]any{"duration_minutes": 45}, http.StatusForbidden},
		{"owner deletes approved entry", del, http.MethodDelete, frozen, self, nil, http.StatusForbidden},
		{"stranger edits open entry", patch, http.MethodPatch, open, testutil.PersonnelUser(primitive.NewObjectID()), map[string]any{"billable": true}, http.StatusForbidden},
		{"owner with permission edits approved entry", patch, http.MethodPatch, frozen, approver(me.ID), map[string]any{"description": "fixed"}, http.StatusOK},
		{"admin deletes approved entry", del, http.MethodDelete, frozen, testutil.AdminUser(), nil, http.StatusNoContent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := call(t, tt.fn(h), tt.method, "/api/time-entries/"+tt.entry.ID.Hex(), tt.body, tt.user, tt.entry.ID.Hex())
			if rec.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d: %s", rec.Code, tt.wantCode, rec.Body.String())
			}
		})
	}

	got, err := timeentrystore.New(fx.DB()).GetByID(ctx, open.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.DurationMinutes != 45 {
		t.Errorf("duration = %d, want 45", got.DurationMinutes)
	}
}

func patch(h *timeentries.Handler) http.HandlerFunc { return h.HandlePatch }
func del(h *timeentries.Handler) http.HandlerFunc   { return h.HandleDelete }

func TestHandlePatch_Timing(t *testing.T) {
	h, fx := newTestHandler(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	me := fx.CreatePersonnel(ctx, "Mia Me", "EMP-00001", nil)
	proj := fx.CreateProject(ctx, "Apollo", "")
	e := fx.CreateTimeEntry(ctx, me.ID, proj.ID, 60, false)
	self := testutil.PersonnelUser(me.ID)

	steps := []struct {
		name        string
		body        map[string]any
		wantCode    int
		wantMinutes int
		wantTimes   bool
	}{
		{"switch to times", map[string]any{"started_at": "2026-03-02T08:00:00Z", "ended_at": "2026-03-02T08:20:00Z"}, http.StatusOK, 20, true},
		{"move end only", map[string]any{"ended_at": "2026-03-02T09:00:00Z"}, http.StatusOK, 60, true},
		{"end before stored start", map[string]any{"ended_at": "2026-03-02T07:00:00Z"}, http.StatusBadRequest, 0, false},
		{"bare duration drops times", map[string]any{"duration_minutes": 15}, http.StatusOK, 15, false},
		{"zero duration", map[string]any{"duration_minutes": 0}, http.StatusBadRequest, 0, false},
	}
	for _, st := range steps {
		rec := call(t, h.HandlePatch, http.MethodPatch, "/", st.body, self, e.ID.Hex())
		if rec.Code != st.wantCode {
			t.Fatalf("%s: status = %d, want %d: %s", st.name, rec.Code, st.wantCode, rec.Body.String())
		}
		if rec.Code != http.StatusOK {
			continue
		}
		var got models.TimeEntry
		testutil.DecodeBody(t, rec, &got)
		if got.DurationMinutes != st.wantMinutes || (got.StartedAt != nil) != st.wantTimes {
			t.Errorf("%s: minutes=%d started=%v", st.name, got.DurationMinutes, got.StartedAt)
		}
	}
}

func TestApproval(t *testing.T) {
	h, fx := newTestHandler(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	me := fx.CreatePersonnel(ctx, "Mia Me", "EMP-00001", nil)
	lead := fx.CreatePersonnel(ctx, "Lee Lead", "EMP-00002", nil)
	proj := fx.CreateProject(ctx, "Apollo", "")
	e := fx.CreateTimeEntry(ctx, me.ID, proj.ID, 60, false)

	rec := call(t, h.HandleApprove, http.MethodPost, "/", nil, testutil.PersonnelUser(me.ID), e.ID.Hex())
	if rec.Code != http.StatusForbidden {
		t.Fatalf("approve without permission = %d, want 403", rec.Code)
	}

	rec = call(t, h.HandleApprove, http.MethodPost, "/", nil, approver(lead.ID), e.ID.Hex())
	if rec.Code != http.StatusOK {
		t.Fatalf("approve = %d: %s", rec.Code, rec.Body.String())
	}
	var got models.TimeEntry
	testutil.DecodeBody(t, rec, &got)
	if !got.IsApproved || got.ApprovedBy == nil || got.ApprovedAt == nil {
		t.Errorf("after approve: %+v", got)
	}

	rec = call(t, h.HandleUnapprove, http.MethodPost, "/", nil, testutil.AdminUser(), e.ID.Hex())
	if rec.Code != http.StatusOK {
		t.Fatalf("unapprove = %d", rec.Code)
	}
	testutil.DecodeBody(t, rec, &got)
	if got.IsApproved || got.ApprovedBy != nil {
		t.Errorf("after unapprove: %+v", got)
	}

	rec = call(t, h.HandleApprove, http.MethodPost, "/", nil, testutil.AdminUser(), primitive.NewObjectID().Hex())
	if rec.Code != http.StatusNotFound {
		t.Errorf("approve missing = %d, want 404", rec.Code)
	}
}

func TestServeListAndSummary(t *testing.T) {
	h, fx := newTestHandler(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	me := fx.CreatePersonnel(ctx, "Mia Me", "EMP-00001", nil)
	other := fx.CreatePersonnel(ctx, "Oli Other", "EMP-00002", nil)
	apollo := fx.CreateProject(ctx, "Apollo", "")
	gemini := fx.CreateProject(ctx, "Gemini", "")
	fx.CreateTimeEntry(ctx, me.ID, apollo.ID, 60, true)
	fx.CreateTimeEntry(ctx, me.ID, apollo.ID, 30, false)
	fx.CreateTimeEntry(ctx, me.ID, gemini.ID, 15, false)
	fx.CreateTimeEntry(ctx, other.ID, gemini.ID, 120, false)

	lists := []struct {
		name   string
		user   *auth.SessionUser
		target string
		want   int
	}{
		{"personnel sees own", testutil.PersonnelUser(me.ID), "/api/time-entries?personnel_id=" + other.ID.Hex(), 3},
		{"admin sees all", testutil.AdminUser(), "/api/time-entries", 4},
		{"admin filters approved", testutil.AdminUser(), "/api/time-entries?approved=false&project_id=" + gemini.ID.Hex(), 2},
		{"admin filters personnel", testutil.AdminUser(), "/api/time-entries?personnel_id=" + other.ID.Hex(), 1},
	}
	for _, tt := range lists {
		t.Run(tt.name, func(t *testing.T) {
			rec := call(t, h.ServeList, http.MethodGet, tt.target, nil, tt.user, "")
			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
			}
			var body struct {
				Items []models.TimeEntry `json:"items"`
			}
			testutil.DecodeBody(t, rec, &body)
			if len(body.Items) != tt.want {
				t.Errorf("items = %d, want %d", len(body.Items), tt.want)
			}
		})
	}

	rec := call(t, h.ServeSummary, http.MethodGet, "/api/time-entries/summary", nil, testutil.PersonnelUser(me.ID), "")
	if rec.Code != http.StatusOK {
		t.Fatalf("summary status = %d", rec.Code)
	}
	var sum struct {
		Items []timeentrystore.ProjectTotal `json:"items"`
		Total int64                         `json:"total_minutes"`
	}
	testutil.DecodeBody(t, rec, &sum)
	if sum.Total != 105 || len(sum.Items) != 2 {
		t.Fatalf("summary = %+v", sum)
	}
	if sum.Items[0].ProjectID != apollo.ID || sum.Items[0].TotalMinutes != 90 || sum.Items[0].ApprovedMinutes != 60 {
		t.Errorf("first row = %+v", sum.Items[0])
	}

	rec = call(t, h.ServeSummary, http.MethodGet, "/api/time-entries/summary?from=2026-05-02&to=2026-05-01", nil, testutil.AdminUser(), "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("inverted range = %d, want 400", rec.Code)
	}
}
