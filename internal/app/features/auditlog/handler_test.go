package auditlog_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dalemusser/hirehub/internal/app/features/auditlog"
	"github.com/dalemusser/hirehub/internal/app/store/audit"
	"github.com/dalemusser/hirehub/internal/testutil"
	"go.uber.org/zap"
)

type listBody struct {
	Items []struct {
		EventType string `json:"event_type"`
		ActorName string `json:"actor_name"`
		UserName  string `json:"user_name"`
	} `json:"items"`
	Total int64 `json:"total"`
}

func TestServeList(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	fx := testutil.NewFixtures(t, db)

	admin := fx.CreateAdmin(ctx, "Ada Admin", "ada@example.com")
	store := audit.New(db)
	now := time.Now().UTC()
	events := []audit.Event{
		{Category: audit.CategoryAuth, EventType: audit.EventLoginSuccess, UserID: &admin.ID, Success: true, Timestamp: now.Add(-2 * time.Hour)},
		{Category: audit.CategoryAdmin, EventType: audit.EventProjectCreated, ActorID: &admin.ID, Success: true, Timestamp: now.Add(-time.Hour)},
		{Category: audit.CategoryAdmin, EventType: audit.EventDepartmentCreated, ActorID: &admin.ID, Success: true, Timestamp: now},
	}
	for _, e := range events {
		if err := store.Log(ctx, e); err != nil {
			t.Fatalf("Log: %v", err)
		}
	}

	h := auditlog.NewHandler(db, zap.NewNop())

	tests := []struct {
		name      string
		target    string
		wantCode  int
		wantTotal int64
		wantFirst string
	}{
		{"all newest first", "/api/audit", http.StatusOK, 3, audit.EventDepartmentCreated},
		{"by category", "/api/audit?category=auth", http.StatusOK, 1, audit.EventLoginSuccess},
		{"by event type", "/api/audit?event_type=project_created", http.StatusOK, 1, audit.EventProjectCreated},
		{"by user", "/api/audit?user_id=" + admin.ID.Hex(), http.StatusOK, 1, audit.EventLoginSuccess},
		{"bad user id", "/api/audit?user_id=nope", http.StatusBadRequest, 0, ""},
		{"bad date", "/api/audit?start_date=yesterday", http.StatusBadRequest, 0, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.target, nil)
			req = testutil.AsUser(req, testutil.SessionUserFor(admin))
			rec := httptest.NewRecorder()

			h.ServeList(rec, req)

			if rec.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d: %s", rec.Code, tt.wantCode, rec.Body.String())
			}
			if tt.wantCode != http.StatusOK {
				return
			}
			var body listBody
			testutil.DecodeBody(t, rec, &body)
			if body.Total != tt.wantTotal {
				t.Errorf("total = %d, want %d", body.Total, tt.wantTotal)
			}
			if len(body.Items) == 0 || body.Items[0].EventType != tt.wantFirst {
				t.Fatalf("first item = %+v, want %s", body.Items, tt.wantFirst)
			}
			first := body.Items[0]
			if first.ActorName != "Ada Admin" && first.UserName != "Ada Admin" {
				t.Errorf("names not resolved: %+v", first)
			}
		})
	}
}
