package bootstrap

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/dalemusser/hirehub/internal/domain/models"
	"github.com/dalemusser/hirehub/internal/testutil"
	"github.com/dalemusser/waffle/config"
	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"
)

func testLogger() *zap.Logger {
	return zap.NewNop()
}

func TestEnsureAdmin_CreatesOnce(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	deps := DBDeps{HireHubMongoDatabase: db}
	cfg := AppConfig{
		AdminEmail:    "admin@test.com",
		AdminPassword: "correct-horse-battery",
		AdminName:     "Site Admin",
	}

	for i := 0; i < 2; i++ {
		if err := ensureAdmin(ctx, deps, cfg, testLogger()); err != nil {
			t.Fatalf("ensureAdmin (call %d) failed: %v", i+1, err)
		}
	}

	n, err := db.Collection("users").CountDocuments(ctx, bson.M{})
	if err != nil {
		t.Fatalf("count users: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 user, got %d", n)
	}

	var user models.User
	if err := db.Collection("users").FindOne(ctx, bson.M{}).Decode(&user); err != nil {
		t.Fatalf("failed to find created user: %v", err)
	}
	if user.Role != models.RoleAdmin {
		t.Errorf("expected role %q, got %q", models.RoleAdmin, user.Role)
	}
	if user.Status != models.UserActive {
		t.Errorf("expected status %q, got %q", models.UserActive, user.Status)
	}
	if user.PasswordHash == "" || user.PasswordHash == cfg.AdminPassword {
		t.Error("expected a hashed password")
	}
}

func TestEnsureAdmin_NoEmail(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := ensureAdmin(ctx, DBDeps{HireHubMongoDatabase: db}, AppConfig{}, testLogger()); err != nil {
		t.Fatalf("ensureAdmin failed: %v", err)
	}
	n, err := db.Collection("users").CountDocuments(ctx, bson.M{})
	if err != nil {
		t.Fatalf("count users: %v", err)
	}
	if n != 0 {
		t.Errorf("expected no users, got %d", n)
	}
}

func TestValidateAppConfig(t *testing.T) {
	longKey := strings.Repeat("k", minSessionKeyLen)
	base := func() AppConfig {
		return AppConfig{MongoDatabase: "hirehub", SessionKey: longKey}
	}

	tests := []struct {
		name    string
		env     string
		mutate  func(*AppConfig)
		wantErr string
	}{
		{name: "valid", env: "prod", mutate: func(*AppConfig) {}},
		{name: "missing database", env: "prod", mutate: func(c *AppConfig) { c.MongoDatabase = "" }, wantErr: "mongo_database"},
		{name: "short key in prod", env: "prod", mutate: func(c *AppConfig) { c.SessionKey = "short" }, wantErr: "session_key"},
		{name: "short key in dev", env: "dev", mutate: func(c *AppConfig) { c.SessionKey = "short" }},
		{name: "linear id without secret", env: "prod", mutate: func(c *AppConfig) {
			c.LinearClientID = "id"
			c.BaseURL = "https://hirehub.example.com"
		}, wantErr: "linear_client_secret"},
		{name: "linear without base url", env: "prod", mutate: func(c *AppConfig) {
			c.LinearClientID = "id"
			c.LinearClientSecret = "secret"
		}, wantErr: "base_url"},
		{name: "linear fully configured", env: "prod", mutate: func(c *AppConfig) {
			c.LinearClientID = "id"
			c.LinearClientSecret = "secret"
			c.BaseURL = "https://hirehub.example.com"
		}},
		{name: "admin without password", env: "prod", mutate: func(c *AppConfig) { c.AdminEmail = "admin@test.com" }, wantErr: "admin_password"},
		{name: "trusted proxies", env: "prod", mutate: func(c *AppConfig) { c.TrustedProxies = []string{"10.0.0.0/8", "192.0.2.7"} }},
		{name: "bad trusted proxy", env: "prod", mutate: func(c *AppConfig) { c.TrustedProxies = []string{"lb.internal"} }, wantErr: "trusted_proxies"},
		{name: "negative retry", env: "prod", mutate: func(c *AppConfig) { c.LinearRetryInterval = -time.Minute }, wantErr: "linear_sync_retry_interval"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(&cfg)
			err := validateAppConfig(tt.env, cfg)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected error mentioning %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestSplitList(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"", nil},
		{" , ", nil},
		{"https://a.example.com", []string{"https://a.example.com"}},
		{"paperwork, equipment ,,accounts", []string{"paperwork", "equipment", "accounts"}},
	}
	for _, tt := range tests {
		if got := splitList(tt.in); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("splitList(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestBuildHandler_Routes(t *testing.T) {
	db := testutil.SetupTestDB(t)

	svcMu.Lock()
	svc = nil
	svcMu.Unlock()
	t.Cleanup(func() {
		svcMu.Lock()
		svc = nil
		svcMu.Unlock()
	})

	cfg := AppConfig{
		MongoDatabase: db.Name(),
		SessionKey:    strings.Repeat("s", minSessionKeyLen),
		SessionName:   "hirehub-test",
	}
	deps := DBDeps{HireHubMongoClient: db.Client(), HireHubMongoDatabase: db}

	h, err := BuildHandler(&config.CoreConfig{Env: "dev"}, cfg, deps, testLogger())
	if err != nil {
		t.Fatalf("BuildHandler failed: %v", err)
	}

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		status int
	}{
		{name: "health", method: http.MethodGet, path: "/health", status: http.StatusOK},
		{name: "unknown api path", method: http.MethodGet, path: "/api/nope", status: http.StatusNotFound},
		{name: "admin dashboard anonymous", method: http.MethodGet, path: "/api/dashboard/admin", status: http.StatusUnauthorized},
		{name: "me anonymous", method: http.MethodGet, path: "/api/auth/me", status: http.StatusUnauthorized},
		{name: "unsigned webhook", method: http.MethodPost, path: "/api/linear/webhook",
			body: `{"action":"create","type":"Comment","data":{}}`, status: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, strings.NewReader(tt.body))
			if tt.body != "" {
				req.Header.Set("Content-Type", "application/json")
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			if rec.Code != tt.status {
				t.Fatalf("%s %s: expected %d, got %d: %s", tt.method, tt.path, tt.status, rec.Code, rec.Body.String())
			}
			if !strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
				t.Errorf("expected JSON response, got %q", rec.Header().Get("Content-Type"))
			}
		})
	}
}

func TestBuildHandler_WebhookIgnoresUnknownTypes(t *testing.T) {
	db := testutil.SetupTestDB(t)

	svcMu.Lock()
	svc = nil
	svcMu.Unlock()
	t.Cleanup(func() {
		svcMu.Lock()
		svc = nil
		svcMu.Unlock()
	})

	cfg := AppConfig{MongoDatabase: db.Name(), SessionKey: strings.Repeat("s", minSessionKeyLen)}
	deps := DBDeps{HireHubMongoClient: db.Client(), HireHubMongoDatabase: db}
	h, err := BuildHandler(&config.CoreConfig{Env: "dev"}, cfg, deps, testLogger())
	if err != nil {
		t.Fatalf("BuildHandler failed: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/linear/webhook",
		strings.NewReader(`{"action":"create","type":"Comment","data":{}}`))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var resp map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp["outcome"] != "ignored" {
		t.Errorf("expected outcome ignored, got %q", resp["outcome"])
	}
}
