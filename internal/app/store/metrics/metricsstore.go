// Package metricsstore gathers the totals shown on the dashboards. Each
// fetch fans its queries out in parallel and fails as a whole.
package metricsstore

import (
	"context"
	"time"

	applicationstore "github.com/dalemusser/hirehub/internal/app/store/applications"
	personnelstore "github.com/dalemusser/hirehub/internal/app/store/personnel"
	projectstore "github.com/dalemusser/hirehub/internal/app/store/projects"
	taskstore "github.com/dalemusser/hirehub/internal/app/store/tasks"
	timeentrystore "github.com/dalemusser/hirehub/internal/app/store/timeentries"
	"github.com/dalemusser/hirehub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/sync/errgroup"
)

// RecentApplications is how many of the newest applications the admin
// dashboard lists.
const RecentApplications = 5

// OpenTaskLimit caps the task list on the personal dashboard.
const OpenTaskLimit = 20

// AdminCounts is the admin dashboard payload.
type AdminCounts struct {
	Applications       map[string]int64     `json:"applications"`
	Personnel          map[string]int64     `json:"personnel"`
	Projects           map[string]int64     `json:"projects"`
	PendingApprovals   int64                `json:"pending_time_approvals"`
	RecentApplications []models.Application `json:"recent_applications"`
}

// FetchAdminCounts returns status breakdowns, the approval backlog and the
// newest applications.
func FetchAdminCounts(ctx context.Context, db *mongo.Database) (AdminCounts, error) {
	var out AdminCounts
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() (err error) {
		out.Applications, err = applicationstore.New(db).CountByStatus(ctx)
		return err
	})
	g.Go(func() (err error) {
		out.Personnel, err = personnelstore.New(db).CountByStatus(ctx)
		return err
	})
	g.Go(func() (err error) {
		out.Projects, err = projectstore.New(db).CountByStatus(ctx)
		return err
	})
	g.Go(func() (err error) {
		out.PendingApprovals, err = timeentrystore.New(db).CountPendingApproval(ctx)
		return err
	})
	g.Go(func() (err error) {
		out.RecentApplications, err = applicationstore.New(db).Recent(ctx, RecentApplications)
		return err
	})

	if err := g.Wait(); err != nil {
		return AdminCounts{}, err
	}
	if out.RecentApplications == nil {
		out.RecentApplications = []models.Application{}
	}
	return out, nil
}

// Personal is the personnel dashboard payload.
type Personal struct {
	OpenTasks     []models.Task                   `json:"open_tasks"`
	OpenTaskCount int64                           `json:"open_task_count"`
	MinutesToday  int64                           `json:"minutes_today"`
	MinutesWeek   int64                           `json:"minutes_this_week"`
	Team          []personnelstore.DirectoryEntry `json:"team"`
}

// FetchPersonal gathers the open work, logged time and teammates of one
// person. today is the person's current calendar day at UTC midnight; weeks
// start on Monday. Team is empty when the person has no department.
func FetchPersonal(ctx context.Context, db *mongo.Database, p *models.Personnel, today time.Time) (Personal, error) {
	var out Personal
	g, ctx := errgroup.WithContext(ctx)

	tasks := taskstore.New(db)
	entries := timeentrystore.New(db)
	tomorrow := today.AddDate(0, 0, 1)
	weekStart := today.AddDate(0, 0, -((int(today.Weekday()) + 6) % 7))

	g.Go(func() (err error) {
		out.OpenTasks, err = tasks.ListOpenByAssignee(ctx, p.ID, OpenTaskLimit)
		return err
	})
	g.Go(func() (err error) {
		out.OpenTaskCount, err = tasks.CountOpenByAssignee(ctx, p.ID)
		return err
	})
	g.Go(func() (err error) {
		out.MinutesToday, err = entries.SumMinutes(ctx, p.ID, today, tomorrow)
		return err
	})
	g.Go(func() (err error) {
		out.MinutesWeek, err = entries.SumMinutes(ctx, p.ID, weekStart, tomorrow)
		return err
	})
	if p.DepartmentID != nil {
		g.Go(func() error {
			all, err := personnelstore.New(db).Directory(ctx, p.DepartmentID)
			if err != nil {
				return err
			}
			out.Team = withoutSelf(all, p.ID)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return Personal{}, err
	}
	if out.OpenTasks == nil {
		out.OpenTasks = []models.Task{}
	}
	if out.Team == nil {
		out.Team = []personnelstore.DirectoryEntry{}
	}
	return out, nil
}

func withoutSelf(all []personnelstore.DirectoryEntry, self primitive.ObjectID) []personnelstore.DirectoryEntry {
	out := make([]personnelstore.DirectoryEntry, 0, len(all))
	for _, e := range all {
		if e.ID != self {
			out = append(out, e)
		}
	}
	return out
}
