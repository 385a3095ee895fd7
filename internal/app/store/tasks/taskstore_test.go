package taskstore_test

import (
	"errors"
	"testing"

	taskstore "github.com/dalemusser/hirehub/internal/app/store/tasks"
	"github.com/dalemusser/hirehub/internal/app/system/indexes"
	"github.com/dalemusser/hirehub/internal/app/system/paging"
	"github.com/dalemusser/hirehub/internal/domain/models"
	"github.com/dalemusser/hirehub/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

func TestUpdate_StatusOnly(t *testing.T) {
	done := models.TaskDone
	title := "x"
	tests := []struct {
		name string
		upd  taskstore.Update
		want bool
	}{
		{"status only", taskstore.Update{Status: &done}, true},
		{"empty", taskstore.Update{}, false},
		{"status and title", taskstore.Update{Status: &done, Title: &title}, false},
		{"clear assignee", taskstore.Update{Status: &done, ClearAssignee: true}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.upd.StatusOnly(); got != tt.want {
				t.Errorf("StatusOnly = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestStore_CreateAndList(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := taskstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	proj := primitive.NewObjectID()
	other := primitive.NewObjectID()
	assignee := primitive.NewObjectID()

	for _, task := range []models.Task{
		{ProjectID: proj, Title: "Write docs", AssigneeID: &assignee},
		{ProjectID: proj, Title: "Fix bug", Status: models.TaskInProgress, AssigneeID: &assignee},
		{ProjectID: proj, Title: "Ship", Status: models.TaskDone, AssigneeID: &assignee},
		{ProjectID: other, Title: "Elsewhere"},
	} {
		if _, err := store.Create(ctx, task); err != nil {
			t.Fatalf("Create failed: %v", err)
		}
	}
	if _, err := store.Create(ctx, models.Task{ProjectID: proj, Title: "Bad", Status: "blocked"}); err == nil {
		t.Error("expected error for invalid status")
	}

	page, err := store.List(ctx, taskstore.ListFilter{ProjectID: &proj}, paging.Params{Limit: 10})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(page.Items) != 3 || page.Items[0].Title != "Fix bug" {
		t.Errorf("project tasks = %+v", page.Items)
	}
	if page.Items[0].SyncStatus != models.SyncNotSynced || page.Items[2].Status != models.TaskTodo {
		t.Errorf("defaults not applied: %+v", page.Items)
	}

	mine, err := store.List(ctx, taskstore.ListFilter{AssigneeID: &assignee, Status: models.TaskInProgress}, paging.Params{Limit: 10})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(mine.Items) != 1 || mine.Items[0].Title != "Fix bug" {
		t.Errorf("assignee filter = %+v", mine.Items)
	}

	open, err := store.CountOpenByAssignee(ctx, assignee)
	if err != nil || open != 2 {
		t.Errorf("CountOpenByAssignee = %d, %v", open, err)
	}
	openTasks, err := store.ListOpenByAssignee(ctx, assignee, 10)
	if err != nil || len(openTasks) != 2 {
		t.Errorf("ListOpenByAssignee = %d, %v", len(openTasks), err)
	}

	n, err := store.DeleteByProject(ctx, proj)
	if err != nil || n != 3 {
		t.Errorf("DeleteByProject = %d, %v", n, err)
	}
}

func TestStore_SyncLifecycle(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll: %v", err)
	}
	store := taskstore.New(db)
	proj := primitive.NewObjectID()

	task, err := store.Create(ctx, models.Task{ProjectID: proj, Title: "Sync"})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if err := store.MarkSyncFailed(ctx, task.ID, "timeout"); err != nil {
		t.Fatalf("MarkSyncFailed failed: %v", err)
	}
	unsynced, err := store.ListUnsynced(ctx, proj)
	if err != nil || len(unsynced) != 1 {
		t.Fatalf("ListUnsynced = %d, %v", len(unsynced), err)
	}

	info := taskstore.SyncInfo{LinearIssueID: "iss-1", LinearIdentifier: "ENG-1", LinearStateName: "Todo"}
	if err := store.MarkSynced(ctx, task.ID, info); err != nil {
		t.Fatalf("MarkSynced failed: %v", err)
	}
	got, err := store.GetByLinearID(ctx, "iss-1")
	if err != nil {
		t.Fatalf("GetByLinearID failed: %v", err)
	}
	if got.SyncStatus != models.SyncSynced || got.LinearIdentifier != "ENG-1" || got.SyncError != "" {
		t.Errorf("after MarkSynced: %+v", got)
	}

	_, err = store.Create(ctx, models.Task{ProjectID: proj, Title: "Dup", LinearIssueID: "iss-1"})
	if !errors.Is(err, taskstore.ErrDuplicateLinearID) {
		t.Errorf("expected ErrDuplicateLinearID, got %v", err)
	}

	status := models.TaskInReview
	got, err = store.Update(ctx, task.ID, taskstore.Update{Status: &status})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if got.SyncStatus != models.SyncPending {
		t.Errorf("sync after update = %q", got.SyncStatus)
	}

	if err := store.ApplyRemote(ctx, task.ID, taskstore.RemoteUpdate{Status: models.TaskDone, Priority: models.PriorityHigh, StateName: "Done"}); err != nil {
		t.Fatalf("ApplyRemote failed: %v", err)
	}
	got, _ = store.GetByID(ctx, task.ID)
	if got.Status != models.TaskDone || got.Priority != models.PriorityHigh || got.SyncStatus != models.SyncSynced || got.LinearStateName != "Done" {
		t.Errorf("after ApplyRemote: %+v", got)
	}

	if n, err := store.UnlinkAll(ctx); err != nil || n != 1 {
		t.Errorf("UnlinkAll = %d, %v", n, err)
	}
	if _, err := store.GetByLinearID(ctx, "iss-1"); err != mongo.ErrNoDocuments {
		t.Errorf("expected ErrNoDocuments after unlink, got %v", err)
	}

	linked, err := store.Create(ctx, models.Task{ProjectID: proj, Title: "Remote", LinearIssueID: "iss-2"})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if linked.SyncStatus != models.SyncSynced {
		t.Errorf("linked create sync = %q", linked.SyncStatus)
	}
	if n, err := store.DeleteByLinearID(ctx, "iss-2"); err != nil || n != 1 {
		t.Errorf("DeleteByLinearID = %d, %v", n, err)
	}
}

func TestStore_AdoptWebhookCopy(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll: %v", err)
	}
	store := taskstore.New(db)
	proj := primitive.NewObjectID()

	pushed, err := store.Create(ctx, models.Task{ProjectID: proj, Title: "Pushed"})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	// Linear's create webhook lands before the push records its issue id.
	if _, err := store.Create(ctx, models.Task{ProjectID: proj, Title: "Pushed", LinearIssueID: "iss-5"}); err != nil {
		t.Fatalf("Create copy failed: %v", err)
	}

	info := taskstore.SyncInfo{LinearIssueID: "iss-5", LinearIdentifier: "ENG-5"}
	if err := store.MarkSynced(ctx, pushed.ID, info); !errors.Is(err, taskstore.ErrDuplicateLinearID) {
		t.Fatalf("MarkSynced = %v, want ErrDuplicateLinearID", err)
	}
	if n, err := store.DeleteTwin(ctx, "iss-5", pushed.ID); err != nil || n != 1 {
		t.Fatalf("DeleteTwin = %d, %v", n, err)
	}
	if err := store.MarkSynced(ctx, pushed.ID, info); err != nil {
		t.Fatalf("MarkSynced after DeleteTwin: %v", err)
	}
	got, err := store.GetByLinearID(ctx, "iss-5")
	if err != nil || got.ID != pushed.ID {
		t.Fatalf("GetByLinearID = %+v, %v", got, err)
	}

	// The linked task itself is never treated as a copy.
	if n, err := store.DeleteTwin(ctx, "iss-5", pushed.ID); err != nil || n != 0 {
		t.Errorf("second DeleteTwin = %d, %v", n, err)
	}

	other := primitive.NewObjectID()
	if n, err := store.MoveToProject(ctx, proj, other); err != nil || n != 1 {
		t.Fatalf("MoveToProject = %d, %v", n, err)
	}
	got, _ = store.GetByID(ctx, pushed.ID)
	if got.ProjectID != other {
		t.Errorf("project = %s, want %s", got.ProjectID.Hex(), other.Hex())
	}
}
