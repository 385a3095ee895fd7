package auditlog_test

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/dalemusser/hirehub/internal/app/store/audit"
	"github.com/dalemusser/hirehub/internal/app/system/auditlog"
	"github.com/dalemusser/hirehub/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestLogger_NilIsNoop(t *testing.T) {
	var logger *auditlog.Logger
	ctx, cancel := testutil.TestContext()
	defer cancel()
	req := httptest.NewRequest("POST", "/api/auth/login", nil)

	logger.Log(ctx, audit.Event{EventType: "test"})
	logger.LoginSuccess(ctx, req, primitive.NewObjectID(), "ada@example.com")
	logger.Logout(ctx, req, primitive.NewObjectID().Hex())
	logger.ApplicationStatusChanged(ctx, req, "", primitive.NewObjectID(), "pending", "approved")
}

func TestLogger_Destinations(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := audit.New(db)

	tests := []struct {
		setting string
		wantDB  int
		wantLog int
	}{
		{"off", 0, 0},
		{"db", 1, 0},
		{"log", 0, 1},
		{"all", 1, 1},
	}

	for _, tt := range tests {
		t.Run(tt.setting, func(t *testing.T) {
			ctx, cancel := testutil.TestContext()
			defer cancel()

			core, logs := observer.New(zapcore.InfoLevel)
			logger := auditlog.New(store, zap.New(core), auditlog.Config{Auth: tt.setting, Admin: "off"})

			userID := primitive.NewObjectID()
			req := httptest.NewRequest("POST", "/api/auth/login", nil)
			logger.LoginSuccess(ctx, req, userID, "ada@example.com")

			events, err := store.GetByUser(ctx, userID, 10)
			if err != nil {
				t.Fatalf("GetByUser failed: %v", err)
			}
			if len(events) != tt.wantDB {
				t.Errorf("db events = %d, want %d", len(events), tt.wantDB)
			}
			if got := logs.FilterMessage("audit event").Len(); got != tt.wantLog {
				t.Errorf("log lines = %d, want %d", got, tt.wantLog)
			}
		})
	}
}

func TestLogger_CategoriesAreIndependent(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := audit.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	logger := auditlog.New(store, zap.NewNop(), auditlog.Config{Auth: "off", Admin: "db"})
	req := httptest.NewRequest("PATCH", "/api/applications/x/status", nil)
	actor := primitive.NewObjectID()

	logger.LoginSuccess(ctx, req, actor, "admin@example.com")
	logger.ApplicationStatusChanged(ctx, req, actor.Hex(), primitive.NewObjectID(), "pending", "reviewing")

	if n, _ := store.CountByFilter(ctx, audit.QueryFilter{Category: audit.CategoryAuth}); n != 0 {
		t.Errorf("expected auth events to be dropped, got %d", n)
	}
	if n, _ := store.CountByFilter(ctx, audit.QueryFilter{Category: audit.CategoryAdmin}); n != 1 {
		t.Errorf("expected 1 admin event, got %d", n)
	}
}

func TestLogger_FailedLoginsWarn(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	logger := auditlog.New(nil, zap.New(core), auditlog.Config{Auth: "log"})
	ctx, cancel := testutil.TestContext()
	defer cancel()
	req := httptest.NewRequest("POST", "/api/auth/login", nil)

	logger.LoginFailedUserNotFound(ctx, req, "nobody@example.com")
	logger.LoginFailedWrongPassword(ctx, req, primitive.NewObjectID(), "ada@example.com")
	logger.LoginFailedUserDisabled(ctx, req, primitive.NewObjectID(), "ada@example.com")
	logger.LoginFailedRateLimit(ctx, req, "ada@example.com", "ip")

	entries := logs.AllUntimed()
	if len(entries) != 4 {
		t.Fatalf("expected 4 log lines, got %d", len(entries))
	}
	for _, e := range entries {
		if e.Level != zapcore.WarnLevel {
			t.Errorf("%v: level = %v, want warn", e.ContextMap()["event_type"], e.Level)
		}
		if _, ok := e.ContextMap()["failure_reason"]; !ok {
			t.Errorf("%v: missing failure_reason", e.ContextMap()["event_type"])
		}
	}
}

func TestLogger_ClientIP(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := audit.New(db)
	logger := auditlog.New(store, zap.NewNop(), auditlog.Config{Auth: "db"})

	tests := []struct {
		name       string
		xff        string
		realIP     string
		remoteAddr string
		want       string
	}{
		{"forwarded header not trusted", "203.0.113.195, 70.41.3.18", "192.168.1.1", "127.0.0.1:12345", "127.0.0.1"},
		{"real ip not trusted", "", "192.168.1.100", "127.0.0.1:12345", "127.0.0.1"},
		{"remote addr", "", "", "10.0.0.5:12345", "10.0.0.5"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, cancel := testutil.TestContext()
			defer cancel()

			req := httptest.NewRequest("POST", "/api/auth/login", nil)
			if tt.xff != "" {
				req.Header.Set("X-Forwarded-For", tt.xff)
			}
			if tt.realIP != "" {
				req.Header.Set("X-Real-IP", tt.realIP)
			}
			req.RemoteAddr = tt.remoteAddr

			userID := primitive.NewObjectID()
			logger.LoginSuccess(ctx, req, userID, "ada@example.com")

			events, err := store.GetByUser(ctx, userID, 10)
			if err != nil || len(events) != 1 {
				t.Fatalf("expected 1 event, got %d (%v)", len(events), err)
			}
			if events[0].IP != tt.want {
				t.Errorf("IP = %q, want %q", events[0].IP, tt.want)
			}
		})
	}
}

func TestLogger_Logout_InvalidID(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := audit.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	logger := auditlog.New(store, zap.NewNop(), auditlog.Config{Auth: "db"})
	logger.Logout(ctx, httptest.NewRequest("POST", "/api/auth/logout", nil), "not-an-id")

	events, err := store.Query(ctx, audit.QueryFilter{EventType: audit.EventLogout})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(events) != 1 || events[0].UserID != nil {
		t.Fatalf("expected one logout without a user, got %+v", events)
	}
}

func TestLogger_AdminHelpers(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := audit.New(db)
	logger := auditlog.New(store, zap.NewNop(), auditlog.Config{Admin: "db"})

	actor := primitive.NewObjectID()
	target := primitive.NewObjectID()
	personnelID := primitive.NewObjectID()
	req := httptest.NewRequest("POST", "/", nil)

	tests := []struct {
		name        string
		log         func(ctx context.Context)
		wantType    string
		wantTarget  string
		wantDetails map[string]string
		wantUser    bool
	}{
		{
			name:        "status changed",
			log:         func(ctx context.Context) { logger.ApplicationStatusChanged(ctx, req, actor.Hex(), target, "pending", "approved") },
			wantType:    audit.EventApplicationStatusChanged,
			wantTarget:  "application",
			wantDetails: map[string]string{"from": "pending", "to": "approved"},
		},
		{
			name:        "converted",
			log:         func(ctx context.Context) { logger.ApplicationConverted(ctx, req, actor.Hex(), target, personnelID, "EMP-00001") },
			wantType:    audit.EventApplicationConverted,
			wantTarget:  "application",
			wantDetails: map[string]string{"personnel_id": personnelID.Hex(), "employee_id": "EMP-00001"},
		},
		{
			name:       "time entry approved",
			log:        func(ctx context.Context) { logger.TimeEntryApproval(ctx, req, actor.Hex(), target, true) },
			wantType:   audit.EventTimeEntryApproved,
			wantTarget: "time_entry",
		},
		{
			name:       "time entry unapproved",
			log:        func(ctx context.Context) { logger.TimeEntryApproval(ctx, req, actor.Hex(), target, false) },
			wantType:   audit.EventTimeEntryUnapproved,
			wantTarget: "time_entry",
		},
		{
			name:       "user target sets user id",
			log:        func(ctx context.Context) { logger.Admin(ctx, req, actor.Hex(), audit.EventUserCreated, "user", target, nil) },
			wantType:   audit.EventUserCreated,
			wantTarget: "user",
			wantUser:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, cancel := testutil.TestContext()
			defer cancel()
			if _, err := db.Collection("audit_events").DeleteMany(ctx, map[string]any{}); err != nil {
				t.Fatalf("reset: %v", err)
			}

			tt.log(ctx)

			events, err := store.Query(ctx, audit.QueryFilter{TargetID: &target})
			if err != nil || len(events) != 1 {
				t.Fatalf("expected 1 event, got %d (%v)", len(events), err)
			}
			ev := events[0]
			if ev.EventType != tt.wantType || ev.TargetType != tt.wantTarget {
				t.Errorf("got %s/%s, want %s/%s", ev.EventType, ev.TargetType, tt.wantType, tt.wantTarget)
			}
			if ev.ActorID == nil || *ev.ActorID != actor {
				t.Error("expected ActorID to be set")
			}
			for k, v := range tt.wantDetails {
				if ev.Details[k] != v {
					t.Errorf("details[%s] = %q, want %q", k, ev.Details[k], v)
				}
			}
			if tt.wantUser != (ev.UserID != nil) {
				t.Errorf("UserID set = %v, want %v", ev.UserID != nil, tt.wantUser)
			}
		})
	}
}
