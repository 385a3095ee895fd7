package personnel_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dalemusser/hirehub/internal/app/features/personnel"
	applicationstore "github.com/dalemusser/hirehub/internal/app/store/applications"
	personnelstore "github.com/dalemusser/hirehub/internal/app/store/personnel"
	"github.com/dalemusser/hirehub/internal/app/system/auth"
	"github.com/dalemusser/hirehub/internal/app/system/indexes"
	"github.com/dalemusser/hirehub/internal/domain/models"
	"github.com/dalemusser/hirehub/internal/testutil"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

func newTestHandler(t *testing.T) (*personnel.Handler, *testutil.Fixtures) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll: %v", err)
	}
	return personnel.NewHandler(db, nil, []string{"Paperwork", "Equipment", "Paperwork"}, zap.NewNop()), testutil.NewFixtures(t, db)
}

func send(t *testing.T, fn http.HandlerFunc, method, target string, body any, u *auth.SessionUser, params ...string) *httptest.ResponseRecorder {
	t.Helper()
	req := testutil.JSONRequest(t, method, target, body)
	for i := 0; i+1 < len(params); i += 2 {
		req = testutil.WithChiURLParam(req, params[i], params[i+1])
	}
	if u != nil {
		req = testutil.AsUser(req, u)
	}
	rec := httptest.NewRecorder()
	fn(rec, req)
	return rec
}

func TestHandleConvert(t *testing.T) {
	h, fx := newTestHandler(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	admin := testutil.SessionUserFor(fx.CreateAdmin(ctx, "Ada Admin", "ada@example.com"))
	dept := fx.CreateDepartment(ctx, "Engineering")
	approved, _ := fx.CreateApplication(ctx, "Jamie Doe", "jamie@example.com", models.ApplicationApproved)
	second, _ := fx.CreateApplication(ctx, "Riley Roe", "riley@example.com", models.ApplicationApproved)
	third, _ := fx.CreateApplication(ctx, "Sam Poe", "sam@example.com", models.ApplicationApproved)
	pending, _ := fx.CreateApplication(ctx, "Pat Pending", "pat@example.com", models.ApplicationPending)

	convert := func(body map[string]any) *httptest.ResponseRecorder {
		return send(t, h.HandleConvert, http.MethodPost, "/api/personnel/convert", body, admin)
	}

	rec := convert(map[string]any{
		"application_id": approved.ID.Hex(),
		"department_id":  dept.ID.Hex(),
		"start_date":     "2026-11-02",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("convert status = %d: %s", rec.Code, rec.Body.String())
	}
	var p models.Personnel
	testutil.DecodeBody(t, rec, &p)
	if p.EmployeeID != "EMP-00001" {
		t.Errorf("employee_id = %q, want EMP-00001", p.EmployeeID)
	}
	if p.Status != models.PersonnelOnboarding || p.Onboarding.TotalSteps != 2 {
		t.Errorf("status=%q steps=%d", p.Status, p.Onboarding.TotalSteps)
	}
	if p.Department != "Engineering" || p.Role != "Software Engineer" || p.Email != "jamie@example.com" {
		t.Errorf("copied fields: dept=%q role=%q email=%q", p.Department, p.Role, p.Email)
	}
	app, err := applicationstore.New(fx.DB()).GetByID(ctx, approved.ID)
	if err != nil || app.PersonnelID == nil || *app.PersonnelID != p.ID {
		t.Fatalf("application not linked: %+v, %v", app, err)
	}

	rec = convert(map[string]any{"application_id": approved.ID.Hex()})
	if rec.Code != http.StatusOK {
		t.Fatalf("reconvert status = %d, want 200", rec.Code)
	}
	var again models.Personnel
	testutil.DecodeBody(t, rec, &again)
	if again.ID != p.ID {
		t.Errorf("reconvert returned %s, want existing %s", again.ID.Hex(), p.ID.Hex())
	}

	tests := []struct {
		name     string
		body     map[string]any
		wantCode int
		wantEmp  string
	}{
		{"pending", map[string]any{"application_id": pending.ID.Hex()}, http.StatusBadRequest, ""},
		{"missing application", map[string]any{"application_id": primitive.NewObjectID().Hex()}, http.StatusNotFound, ""},
		{"employee id taken", map[string]any{"application_id": second.ID.Hex(), "employee_id": "emp-00001"}, http.StatusConflict, ""},
		{"unknown department", map[string]any{"application_id": second.ID.Hex(), "department_id": primitive.NewObjectID().Hex()}, http.StatusBadRequest, ""},
		{"bad date", map[string]any{"application_id": second.ID.Hex(), "start_date": "next monday"}, http.StatusBadRequest, ""},
		{"explicit id", map[string]any{"application_id": second.ID.Hex(), "employee_id": "emp-00002"}, http.StatusCreated, "EMP-00002"},
		{"generated skips used id", map[string]any{"application_id": third.ID.Hex()}, http.StatusCreated, "EMP-00003"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := convert(tt.body)
			if rec.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d: %s", rec.Code, tt.wantCode, rec.Body.String())
			}
			if tt.wantEmp == "" {
				return
			}
			var got models.Personnel
			testutil.DecodeBody(t, rec, &got)
			if got.EmployeeID != tt.wantEmp {
				t.Errorf("employee_id = %q, want %q", got.EmployeeID, tt.wantEmp)
			}
		})
	}
}

func TestHandleOnboardingStep(t *testing.T) {
	h, fx := newTestHandler(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	p := fx.CreatePersonnel(ctx, "Pat Person", "EMP-00010", nil)
	other := fx.CreatePersonnel(ctx, "Quinn Other", "EMP-00011", nil)
	self := testutil.PersonnelUser(p.ID)
	target := "/api/personnel/" + p.ID.Hex() + "/onboarding/"

	tests := []struct {
		name        string
		user        *auth.SessionUser
		step        string
		body        map[string]any
		wantCode    int
		wantPercent int
		wantStatus  string
	}{
		{"first step", self, "paperwork", map[string]any{"done": true}, http.StatusOK, 50, models.PersonnelOnboarding},
		{"missing done", self, "equipment", map[string]any{}, http.StatusBadRequest, 0, ""},
		{"unknown step", self, "parking", map[string]any{"done": true}, http.StatusNotFound, 0, ""},
		{"someone else", testutil.PersonnelUser(other.ID), "equipment", map[string]any{"done": true}, http.StatusForbidden, 0, ""},
		{"last step promotes", self, "equipment", map[string]any{"done": true}, http.StatusOK, 100, models.PersonnelActive},
		{"unchecking keeps active", testutil.AdminUser(), "equipment", map[string]any{"done": false}, http.StatusOK, 50, models.PersonnelActive},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := send(t, h.HandleOnboardingStep, http.MethodPatch, target+tt.step, tt.body, tt.user,
				"id", p.ID.Hex(), "step", tt.step)
			if rec.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d: %s", rec.Code, tt.wantCode, rec.Body.String())
			}
			if tt.wantCode != http.StatusOK {
				return
			}
			var got models.Personnel
			testutil.DecodeBody(t, rec, &got)
			if got.Onboarding.Percent != tt.wantPercent || got.Status != tt.wantStatus {
				t.Errorf("percent=%d status=%q, want %d %q", got.Onboarding.Percent, got.Status, tt.wantPercent, tt.wantStatus)
			}
		})
	}
}

func TestHandlePatch(t *testing.T) {
	h, fx := newTestHandler(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	dept := fx.CreateDepartment(ctx, "Design")
	p := fx.CreatePersonnel(ctx, "Pat Person", "EMP-00020", nil)
	fx.CreatePersonnel(ctx, "Quinn Other", "EMP-00021", nil)
	self := testutil.PersonnelUser(p.ID)
	admin := testutil.AdminUser()

	tests := []struct {
		name     string
		user     *auth.SessionUser
		body     map[string]any
		wantCode int
	}{
		{"self preferences", self, map[string]any{"preferences": map[string]any{"time_zone": "Europe/Berlin", "theme": "dark"}}, http.StatusOK},
		{"self profile", self, map[string]any{"profile": map[string]any{"bio": "<i>Gopher</i>", "links": []string{"https://example.com"}}}, http.StatusOK},
		{"self bad zone", self, map[string]any{"preferences": map[string]any{"time_zone": "Mars/Olympus"}}, http.StatusBadRequest},
		{"self cannot change status", self, map[string]any{"status": "active"}, http.StatusForbidden},
		{"other personnel", testutil.PersonnelUser(primitive.NewObjectID()), map[string]any{"profile": map[string]any{}}, http.StatusForbidden},
		{"admin department", admin, map[string]any{"department_id": dept.ID.Hex(), "role": "Designer"}, http.StatusOK},
		{"admin duplicate employee id", admin, map[string]any{"employee_id": "emp-00021"}, http.StatusConflict},
		{"admin self manager", admin, map[string]any{"manager_id": p.ID.Hex()}, http.StatusBadRequest},
		{"admin bad status", admin, map[string]any{"status": "retired"}, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := send(t, h.HandlePatch, http.MethodPatch, "/api/personnel/"+p.ID.Hex(), tt.body, tt.user, "id", p.ID.Hex())
			if rec.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d: %s", rec.Code, tt.wantCode, rec.Body.String())
			}
		})
	}

	got, err := personnelstore.New(fx.DB()).GetByID(ctx, p.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Preferences.TimeZone != "Europe/Berlin" || got.Profile.Bio != "Gopher" {
		t.Errorf("preferences=%+v profile=%+v", got.Preferences, got.Profile)
	}
	if got.Department != "Design" || got.Role != "Designer" {
		t.Errorf("department=%q role=%q", got.Department, got.Role)
	}
}

func TestServeGetAndDirectory(t *testing.T) {
	h, fx := newTestHandler(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	dept := fx.CreateDepartment(ctx, "Ops")
	p := fx.CreatePersonnel(ctx, "Pat Person", "EMP-00030", &dept.ID)
	fx.CreatePersonnel(ctx, "Quinn Other", "EMP-00031", nil)
	gone := fx.CreatePersonnel(ctx, "Terry Gone", "EMP-00032", &dept.ID)
	terminated := models.PersonnelTerminated
	if _, err := personnelstore.New(fx.DB()).Update(ctx, gone.ID, personnelstore.Update{Status: &terminated}); err != nil {
		t.Fatalf("Update: %v", err)
	}

	if rec := send(t, h.ServeGet, http.MethodGet, "/", nil, testutil.PersonnelUser(p.ID), "id", p.ID.Hex()); rec.Code != http.StatusOK {
		t.Errorf("self get = %d", rec.Code)
	}
	if rec := send(t, h.ServeGet, http.MethodGet, "/", nil, testutil.PersonnelUser(gone.ID), "id", p.ID.Hex()); rec.Code != http.StatusForbidden {
		t.Errorf("other get = %d, want 403", rec.Code)
	}

	tests := []struct {
		target string
		want   int
	}{
		{"/api/personnel/directory", 2},
		{"/api/personnel/directory?department_id=" + dept.ID.Hex(), 1},
	}
	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			rec := send(t, h.ServeDirectory, http.MethodGet, tt.target, nil, testutil.PersonnelUser(p.ID))
			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d", rec.Code)
			}
			var body struct {
				Items []personnelstore.DirectoryEntry `json:"items"`
			}
			testutil.DecodeBody(t, rec, &body)
			if len(body.Items) != tt.want {
				t.Errorf("entries = %d, want %d", len(body.Items), tt.want)
			}
		})
	}
}

func TestHandleDelete(t *testing.T) {
	h, fx := newTestHandler(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	admin := testutil.AdminUser()
	app, _ := fx.CreateApplication(ctx, "Jamie Doe", "jamie@example.com", models.ApplicationApproved)
	rec := send(t, h.HandleConvert, http.MethodPost, "/", map[string]any{"application_id": app.ID.Hex()}, admin)
	if rec.Code != http.StatusCreated {
		t.Fatalf("convert status = %d", rec.Code)
	}
	var p models.Personnel
	testutil.DecodeBody(t, rec, &p)
	user := fx.CreatePersonnelUser(ctx, "Jamie Doe", "jamie@example.com", p.ID)

	if rec := send(t, h.HandleDelete, http.MethodDelete, "/", nil, admin, "id", p.ID.Hex()); rec.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d: %s", rec.Code, rec.Body.String())
	}
	if rec := send(t, h.HandleDelete, http.MethodDelete, "/", nil, admin, "id", p.ID.Hex()); rec.Code != http.StatusNotFound {
		t.Errorf("second delete = %d, want 404", rec.Code)
	}

	got, err := applicationstore.New(fx.DB()).GetByID(ctx, app.ID)
	if err != nil || got.PersonnelID != nil {
		t.Errorf("application still linked: %v, %v", got.PersonnelID, err)
	}
	var u models.User
	if err := fx.DB().Collection("users").FindOne(ctx, bson.M{"_id": user.ID}).Decode(&u); err != nil {
		t.Fatalf("find user: %v", err)
	}
	if u.PersonnelID != nil {
		t.Error("user still linked to deleted personnel")
	}
}
