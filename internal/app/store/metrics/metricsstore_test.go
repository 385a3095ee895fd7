package metricsstore_test

import (
	"testing"
	"time"

	metricsstore "github.com/dalemusser/hirehub/internal/app/store/metrics"
	"github.com/dalemusser/hirehub/internal/domain/models"
	"github.com/dalemusser/hirehub/internal/testutil"
)

func TestFetchAdminCounts_Empty(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	counts, err := metricsstore.FetchAdminCounts(ctx, db)
	if err != nil {
		t.Fatalf("FetchAdminCounts: %v", err)
	}
	for _, st := range models.ApplicationStatuses {
		if n, ok := counts.Applications[st]; !ok || n != 0 {
			t.Errorf("Applications[%s] = %d (present %v), want 0", st, n, ok)
		}
	}
	if counts.PendingApprovals != 0 {
		t.Errorf("PendingApprovals = %d, want 0", counts.PendingApprovals)
	}
	if counts.RecentApplications == nil || len(counts.RecentApplications) != 0 {
		t.Errorf("RecentApplications = %v, want empty slice", counts.RecentApplications)
	}
}

func TestFetchAdminCounts_WithData(t *testing.T) {
	db := testutil.SetupTestDB(t)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	for i := 0; i < 6; i++ {
		fx.CreateApplication(ctx, "Applicant", "a@example.com", models.ApplicationPending)
	}
	fx.CreateApplication(ctx, "Hired", "h@example.com", models.ApplicationApproved)
	p := fx.CreatePersonnel(ctx, "Pat", "EMP-00001", nil)
	proj := fx.CreateProject(ctx, "Apollo", "")
	fx.CreateTimeEntry(ctx, p.ID, proj.ID, 30, false)
	fx.CreateTimeEntry(ctx, p.ID, proj.ID, 45, false)
	fx.CreateTimeEntry(ctx, p.ID, proj.ID, 60, true)

	counts, err := metricsstore.FetchAdminCounts(ctx, db)
	if err != nil {
		t.Fatalf("FetchAdminCounts: %v", err)
	}
	if counts.Applications[models.ApplicationPending] != 6 || counts.Applications[models.ApplicationApproved] != 1 {
		t.Errorf("Applications = %v", counts.Applications)
	}
	if counts.Personnel[models.PersonnelOnboarding] != 1 {
		t.Errorf("Personnel = %v", counts.Personnel)
	}
	if counts.Projects[models.ProjectActive] != 1 {
		t.Errorf("Projects = %v", counts.Projects)
	}
	if counts.PendingApprovals != 2 {
		t.Errorf("PendingApprovals = %d, want 2", counts.PendingApprovals)
	}
	if len(counts.RecentApplications) != metricsstore.RecentApplications {
		t.Errorf("RecentApplications = %d, want %d", len(counts.RecentApplications), metricsstore.RecentApplications)
	}
}

func TestFetchPersonal(t *testing.T) {
	db := testutil.SetupTestDB(t)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	dept := fx.CreateDepartment(ctx, "Engineering")
	me := fx.CreatePersonnel(ctx, "Me", "EMP-00001", &dept.ID)
	mate := fx.CreatePersonnel(ctx, "Mate", "EMP-00002", &dept.ID)
	fx.CreatePersonnel(ctx, "Elsewhere", "EMP-00003", nil)

	proj := fx.CreateProject(ctx, "Apollo", "")
	fx.CreateTask(ctx, proj.ID, "Mine", &me.ID, "")
	fx.CreateTask(ctx, proj.ID, "Theirs", &mate.ID, "")
	fx.CreateTimeEntry(ctx, me.ID, proj.ID, 90, false)
	fx.CreateTimeEntry(ctx, me.ID, proj.ID, 30, true)
	fx.CreateTimeEntry(ctx, mate.ID, proj.ID, 600, false)

	now := time.Now().UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	got, err := metricsstore.FetchPersonal(ctx, db, &me, today)
	if err != nil {
		t.Fatalf("FetchPersonal: %v", err)
	}
	if got.OpenTaskCount != 1 || len(got.OpenTasks) != 1 || got.OpenTasks[0].Title != "Mine" {
		t.Errorf("open tasks = %d %v", got.OpenTaskCount, got.OpenTasks)
	}
	if got.MinutesToday != 120 {
		t.Errorf("MinutesToday = %d, want 120", got.MinutesToday)
	}
	if got.MinutesWeek != 120 {
		t.Errorf("MinutesWeek = %d, want 120", got.MinutesWeek)
	}
	if len(got.Team) != 1 || got.Team[0].ID != mate.ID {
		t.Errorf("Team = %+v, want only Mate", got.Team)
	}

	// Without a department there is no team.
	me.DepartmentID = nil
	got, err = metricsstore.FetchPersonal(ctx, db, &me, today)
	if err != nil {
		t.Fatalf("FetchPersonal: %v", err)
	}
	if len(got.Team) != 0 {
		t.Errorf("Team = %+v, want empty", got.Team)
	}
}
