package linearsync_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"

	linearworkspacestore "github.com/dalemusser/hirehub/internal/app/store/linearworkspace"
	projectstore "github.com/dalemusser/hirehub/internal/app/store/projects"
	taskstore "github.com/dalemusser/hirehub/internal/app/store/tasks"
	"github.com/dalemusser/hirehub/internal/app/system/indexes"
	"github.com/dalemusser/hirehub/internal/app/system/linear"
	"github.com/dalemusser/hirehub/internal/app/system/linearsync"
	"github.com/dalemusser/hirehub/internal/domain/models"
	"github.com/dalemusser/hirehub/internal/testutil"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// fakeLinear answers the GraphQL operations the sync uses.
type fakeLinear struct {
	mu      sync.Mutex
	ops     []string
	inputs  []map[string]any
	failAll bool
	issues  int
	created int

	// onCreate runs after Linear has assigned an id and before the
	// create response is sent.
	onCreate func(kind, id string)
}

func (f *fakeLinear) handler(w http.ResponseWriter, r *http.Request) {
	b, _ := io.ReadAll(r.Body)
	var req struct {
		Query     string         `json:"query"`
		Variables map[string]any `json:"variables"`
	}
	_ = json.Unmarshal(b, &req)

	f.mu.Lock()
	defer f.mu.Unlock()
	w.Header().Set("Content-Type", "application/json")
	if f.failAll {
		io.WriteString(w, `{"errors":[{"message":"boom"}]}`)
		return
	}
	in, _ := req.Variables["input"].(map[string]any)
	switch {
	case strings.Contains(req.Query, "states"):
		f.ops = append(f.ops, "states")
		io.WriteString(w, `{"data":{"team":{"states":{"nodes":[`+
			`{"id":"st-todo","name":"Todo","type":"unstarted"},`+
			`{"id":"st-prog","name":"In Progress","type":"started"},`+
			`{"id":"st-done","name":"Done","type":"completed"}]}}}}`)
	case strings.Contains(req.Query, "issueCreate"):
		f.ops = append(f.ops, "issueCreate")
		f.inputs = append(f.inputs, in)
		f.issues++
		id := "iss-new-" + strconv.Itoa(f.issues)
		if f.onCreate != nil {
			f.onCreate("Issue", id)
		}
		io.WriteString(w, `{"data":{"issueCreate":{"success":true,"issue":{"id":"`+id+`","identifier":"ENG-7","url":"https://linear.app/i/ENG-7","title":"x","state":{"id":"st-todo","name":"Todo","type":"unstarted"}}}}}`)
	case strings.Contains(req.Query, "issueUpdate"):
		f.ops = append(f.ops, "issueUpdate")
		f.inputs = append(f.inputs, in)
		io.WriteString(w, `{"data":{"issueUpdate":{"success":true,"issue":{"id":"`+req.Variables["id"].(string)+`","identifier":"ENG-1","url":"u","title":"x","state":{"id":"st-done","name":"Done","type":"completed"}}}}}`)
	case strings.Contains(req.Query, "projectCreate"):
		f.ops = append(f.ops, "projectCreate")
		f.inputs = append(f.inputs, in)
		f.created++
		id := "lp-new-" + strconv.Itoa(f.created)
		if f.onCreate != nil {
			f.onCreate("Project", id)
		}
		io.WriteString(w, `{"data":{"projectCreate":{"success":true,"project":{"id":"`+id+`","name":"x","url":"https://linear.app/p/x","state":"started"}}}}`)
	case strings.Contains(req.Query, "projectUpdate"):
		f.ops = append(f.ops, "projectUpdate")
		f.inputs = append(f.inputs, in)
		io.WriteString(w, `{"data":{"projectUpdate":{"success":true,"project":{"id":"`+req.Variables["id"].(string)+`","name":"x","url":"u","state":"started"}}}}`)
	default:
		io.WriteString(w, `{"errors":[{"message":"unexpected query"}]}`)
	}
}

func (f *fakeLinear) count(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, o := range f.ops {
		if o == op {
			n++
		}
	}
	return n
}

func setup(t *testing.T, connect bool) (*linearsync.Service, *fakeLinear, *testutil.Fixtures, *mongo.Database) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll: %v", err)
	}

	fake := &fakeLinear{}
	srv := httptest.NewServer(http.HandlerFunc(fake.handler))
	t.Cleanup(srv.Close)

	if connect {
		_, err := linearworkspacestore.New(db).Save(ctx, models.LinearWorkspace{
			OrganizationID:   "org-1",
			OrganizationName: "Acme",
			AccessToken:      "tok",
			TokenType:        "Bearer",
			DefaultTeamID:    "team-1",
		})
		if err != nil {
			t.Fatalf("save workspace: %v", err)
		}
	}

	svc := linearsync.New(db, nil, linearsync.Config{APIURL: srv.URL, RPS: 100}, zap.NewNop())
	return svc, fake, testutil.NewFixtures(t, db), db
}

func TestPushTask_UnlinkedProjectIsSkipped(t *testing.T) {
	svc, fake, fx, db := setup(t, true)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	p := fx.CreateProject(ctx, "Local Only", "")
	task := fx.CreateTask(ctx, p.ID, "Write docs", nil, "")

	if err := svc.PushTask(ctx, task.ID); err != nil {
		t.Fatalf("PushTask: %v", err)
	}
	if fake.count("issueCreate") != 0 {
		t.Error("no issue should be created for an unlinked project")
	}
	got, _ := taskstore.New(db).GetByID(ctx, task.ID)
	if got.SyncStatus != models.SyncNotSynced {
		t.Errorf("sync status = %q", got.SyncStatus)
	}
}

func TestPushTask_CreateThenUpdate(t *testing.T) {
	svc, fake, fx, db := setup(t, true)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	tasks := taskstore.New(db)

	p := fx.CreateProject(ctx, "Apollo", "lp-1")
	task := fx.CreateTask(ctx, p.ID, "Build rocket", nil, "")

	if err := svc.PushTask(ctx, task.ID); err != nil {
		t.Fatalf("PushTask create: %v", err)
	}
	got, _ := tasks.GetByID(ctx, task.ID)
	if got.LinearIssueID != "iss-new-1" || got.LinearIdentifier != "ENG-7" || got.SyncStatus != models.SyncSynced {
		t.Errorf("after create: %+v", got)
	}
	first := fake.inputs[0]
	if first["teamId"] != "team-1" || first["projectId"] != "lp-1" || first["stateId"] != "st-todo" {
		t.Errorf("create input = %v", first)
	}

	done := models.TaskDone
	if _, err := tasks.Update(ctx, task.ID, taskstore.Update{Status: &done}); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if err := svc.PushTask(ctx, task.ID); err != nil {
		t.Fatalf("PushTask update: %v", err)
	}
	if fake.count("issueUpdate") != 1 {
		t.Errorf("issueUpdate calls = %d", fake.count("issueUpdate"))
	}
	if fake.count("states") != 1 {
		t.Errorf("workflow states should be cached, fetched %d times", fake.count("states"))
	}
	got, _ = tasks.GetByID(ctx, task.ID)
	if got.SyncStatus != models.SyncSynced || got.LinearStateName != "Done" {
		t.Errorf("after update: %+v", got)
	}
}

func TestPushTask_CreateWebhookArrivesFirst(t *testing.T) {
	svc, fake, fx, db := setup(t, true)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	tasks := taskstore.New(db)

	p := fx.CreateProject(ctx, "Apollo", "lp-1")
	task := fx.CreateTask(ctx, p.ID, "Build rocket", nil, "")

	fake.onCreate = func(kind, id string) {
		body := `{"action":"create","type":"Issue","data":{"id":"` + id + `","identifier":"ENG-7","title":"Build rocket","projectId":"lp-1"}}`
		if got, err := svc.ApplyWebhook(ctx, payload(t, body)); err != nil || got != linearsync.OutcomeCreated {
			t.Errorf("webhook during push = %q, %v", got, err)
		}
	}

	if err := svc.PushTask(ctx, task.ID); err != nil {
		t.Fatalf("PushTask: %v", err)
	}

	got, err := tasks.GetByLinearID(ctx, "iss-new-1")
	if err != nil {
		t.Fatalf("GetByLinearID: %v", err)
	}
	if got.ID != task.ID || got.SyncStatus != models.SyncSynced {
		t.Errorf("issue should belong to the pushed task, got %+v", got)
	}
	if n, _ := db.Collection("tasks").CountDocuments(ctx, map[string]any{"project_id": p.ID}); n != 1 {
		t.Errorf("tasks in project = %d, want 1", n)
	}

	// The retry job finds nothing to resend.
	fake.mu.Lock()
	fake.onCreate = nil
	fake.mu.Unlock()
	res, err := svc.RetryFailed(ctx)
	if err != nil {
		t.Fatalf("RetryFailed: %v", err)
	}
	if res.Attempted != 0 || fake.count("issueCreate") != 1 {
		t.Errorf("retry = %+v, issueCreate calls = %d", res, fake.count("issueCreate"))
	}
}

func TestPushProject_CreateWebhookArrivesFirst(t *testing.T) {
	svc, fake, fx, db := setup(t, true)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	projects := projectstore.New(db)

	p := fx.CreateProject(ctx, "Hermes", "")

	fake.onCreate = func(kind, id string) {
		steps := []string{
			`{"action":"create","type":"Project","data":{"id":"` + id + `","name":"Hermes"}}`,
			`{"action":"create","type":"Issue","data":{"id":"iss-early","title":"Filed in Linear","projectId":"` + id + `"}}`,
		}
		for _, body := range steps {
			if got, err := svc.ApplyWebhook(ctx, payload(t, body)); err != nil || got != linearsync.OutcomeCreated {
				t.Errorf("webhook during push = %q, %v", got, err)
			}
		}
	}

	if err := svc.PushProject(ctx, p.ID); err != nil {
		t.Fatalf("PushProject: %v", err)
	}

	got, err := projects.GetByLinearID(ctx, "lp-new-1")
	if err != nil {
		t.Fatalf("GetByLinearID: %v", err)
	}
	if got.ID != p.ID || got.SyncStatus != models.SyncSynced {
		t.Errorf("Linear project should belong to the pushed project, got %+v", got)
	}
	if n, _ := db.Collection("projects").CountDocuments(ctx, map[string]any{}); n != 1 {
		t.Errorf("projects = %d, want 1", n)
	}
	early, err := taskstore.New(db).GetByLinearID(ctx, "iss-early")
	if err != nil {
		t.Fatalf("task filed under the copy: %v", err)
	}
	if early.ProjectID != p.ID {
		t.Errorf("task project = %s, want %s", early.ProjectID.Hex(), p.ID.Hex())
	}
}

func TestPushTask_FailureKeepsLocalSave(t *testing.T) {
	svc, fake, fx, db := setup(t, true)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	fake.failAll = true

	p := fx.CreateProject(ctx, "Apollo", "lp-1")
	task := fx.CreateTask(ctx, p.ID, "Build rocket", nil, "")

	if err := svc.PushTask(ctx, task.ID); err == nil {
		t.Fatal("expected push error")
	}
	got, err := taskstore.New(db).GetByID(ctx, task.ID)
	if err != nil {
		t.Fatalf("task should still exist: %v", err)
	}
	if got.SyncStatus != models.SyncFailed || !strings.Contains(got.SyncError, "boom") {
		t.Errorf("sync status = %q, error = %q", got.SyncStatus, got.SyncError)
	}
}

func TestPushTask_NotConnectedMarksFailed(t *testing.T) {
	svc, _, fx, db := setup(t, false)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	p := fx.CreateProject(ctx, "Apollo", "lp-1")
	task := fx.CreateTask(ctx, p.ID, "Build rocket", nil, "")

	if err := svc.PushTask(ctx, task.ID); !errors.Is(err, linearsync.ErrNotConnected) {
		t.Fatalf("err = %v, want ErrNotConnected", err)
	}
	got, _ := taskstore.New(db).GetByID(ctx, task.ID)
	if got.SyncStatus != models.SyncFailed {
		t.Errorf("sync status = %q", got.SyncStatus)
	}
}

func TestSyncProject(t *testing.T) {
	svc, fake, fx, db := setup(t, true)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	p := fx.CreateProject(ctx, "Gemini", "")
	fx.CreateTask(ctx, p.ID, "One", nil, "")
	fx.CreateTask(ctx, p.ID, "Two", nil, "")

	res, err := svc.SyncProject(ctx, p.ID)
	if err != nil {
		t.Fatalf("SyncProject: %v", err)
	}
	if res.TasksAttempted != 2 || res.TasksSynced != 2 {
		t.Errorf("result = %+v", res)
	}
	if fake.count("projectCreate") != 1 || fake.count("issueCreate") != 2 {
		t.Errorf("ops = %v", fake.ops)
	}
	if ids, _ := fake.inputs[0]["teamIds"].([]any); len(ids) != 1 || ids[0] != "team-1" {
		t.Errorf("project input = %v", fake.inputs[0])
	}
	got, _ := projectstore.New(db).GetByID(ctx, p.ID)
	if got.LinearProjectID != "lp-new-1" || got.LinearTeamID != "team-1" || got.SyncStatus != models.SyncSynced {
		t.Errorf("project after sync: %+v", got)
	}

	// second sync updates and finds nothing left to push
	res, err = svc.SyncProject(ctx, p.ID)
	if err != nil {
		t.Fatalf("SyncProject again: %v", err)
	}
	if res.TasksAttempted != 0 || fake.count("projectUpdate") != 1 {
		t.Errorf("second sync: %+v ops=%v", res, fake.ops)
	}
}

func TestSyncProject_NotConnected(t *testing.T) {
	svc, _, fx, _ := setup(t, false)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	p := fx.CreateProject(ctx, "Gemini", "")
	if _, err := svc.SyncProject(ctx, p.ID); !errors.Is(err, linearsync.ErrNotConnected) {
		t.Errorf("err = %v", err)
	}
}

func TestRetryFailed(t *testing.T) {
	svc, fake, fx, db := setup(t, true)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	tasks := taskstore.New(db)
	projects := projectstore.New(db)

	p := fx.CreateProject(ctx, "Apollo", "lp-1")
	t1 := fx.CreateTask(ctx, p.ID, "Retry me", nil, "")
	_ = tasks.MarkSyncFailed(ctx, t1.ID, "earlier failure")
	p2 := fx.CreateProject(ctx, "Failing", "")
	_ = projects.MarkSyncFailed(ctx, p2.ID, "earlier failure")
	fx.CreateTask(ctx, p.ID, "Untouched", nil, "")

	res, err := svc.RetryFailed(ctx)
	if err != nil {
		t.Fatalf("RetryFailed: %v", err)
	}
	if res.Attempted != 2 || res.Succeeded != 2 {
		t.Errorf("result = %+v", res)
	}
	if fake.count("issueCreate") != 1 || fake.count("projectCreate") != 1 {
		t.Errorf("ops = %v", fake.ops)
	}
	got, _ := tasks.GetByID(ctx, t1.ID)
	if got.SyncStatus != models.SyncSynced || got.SyncError != "" {
		t.Errorf("task after retry: %+v", got)
	}
}

func TestRetryFailed_NotConnectedDoesNothing(t *testing.T) {
	svc, fake, fx, db := setup(t, false)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	p := fx.CreateProject(ctx, "Apollo", "lp-1")
	task := fx.CreateTask(ctx, p.ID, "Retry me", nil, "")
	_ = taskstore.New(db).MarkSyncFailed(ctx, task.ID, "x")

	res, err := svc.RetryFailed(ctx)
	if err != nil {
		t.Fatalf("RetryFailed: %v", err)
	}
	if res.Attempted != 0 || len(fake.ops) != 0 {
		t.Errorf("result = %+v ops = %v", res, fake.ops)
	}
}

func TestDisconnect(t *testing.T) {
	svc, _, fx, db := setup(t, true)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	p := fx.CreateProject(ctx, "Apollo", "lp-1")
	fx.CreateTask(ctx, p.ID, "Linked", nil, "iss-1")

	res, err := svc.Disconnect(ctx)
	if err != nil {
		t.Fatalf("Disconnect: %v", err)
	}
	if res.Projects != 1 || res.Tasks != 1 {
		t.Errorf("result = %+v", res)
	}
	got, _ := projectstore.New(db).GetByID(ctx, p.ID)
	if got.LinearProjectID != "" || got.SyncStatus != models.SyncNotSynced {
		t.Errorf("project after disconnect: %+v", got)
	}
	if _, err := svc.Disconnect(ctx); !errors.Is(err, linearsync.ErrNotConnected) {
		t.Errorf("second disconnect err = %v", err)
	}
}

func TestConnect_WithoutOAuth(t *testing.T) {
	svc, _, _, _ := setup(t, false)
	if _, err := svc.Connect(context.Background(), "code", nil); !errors.Is(err, linearsync.ErrOAuthMissing) {
		t.Errorf("err = %v", err)
	}
}

func TestConnect_ExchangesAndSaves(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	tokenSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		if r.Form.Get("code") != "the-code" {
			t.Errorf("code = %q", r.Form.Get("code"))
		}
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"access_token":"acc","token_type":"Bearer","refresh_token":"ref","expires_in":3600,"scope":"read,write"}`)
	}))
	defer tokenSrv.Close()
	apiSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer acc" {
			t.Errorf("Authorization = %q", r.Header.Get("Authorization"))
		}
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"data":{"organization":{"id":"org-9","name":"Initech","urlKey":"initech"}}}`)
	}))
	defer apiSrv.Close()

	oc := linear.OAuthConfig("cid", "sec", "http://localhost/api/linear/auth/callback")
	oc.Endpoint.TokenURL = tokenSrv.URL
	svc := linearsync.New(db, nil, linearsync.Config{APIURL: apiSrv.URL, OAuth: oc}, zap.NewNop())

	ws, err := svc.Connect(ctx, "the-code", nil)
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if ws.OrganizationName != "Initech" || ws.AccessToken != "acc" || ws.RefreshToken != "ref" || ws.ExpiresAt == nil {
		t.Errorf("workspace = %+v", ws)
	}
	if ws.Scope != "read,write" {
		t.Errorf("scope = %q", ws.Scope)
	}
}
