// Package linearsync mirrors local projects and tasks to Linear and applies
// Linear webhook deliveries back onto them.
package linearsync

import (
	"context"
	"errors"
	"sync"
	"time"

	linearworkspacestore "github.com/dalemusser/hirehub/internal/app/store/linearworkspace"
	projectstore "github.com/dalemusser/hirehub/internal/app/store/projects"
	taskstore "github.com/dalemusser/hirehub/internal/app/store/tasks"
	"github.com/dalemusser/hirehub/internal/app/system/linear"
	"github.com/dalemusser/hirehub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
)

var (
	ErrNotConnected = errors.New("Linear is not connected")
	ErrNoTeam       = errors.New("no Linear team is configured for this project")
	ErrNotLinked    = errors.New("project is not linked to Linear")
	ErrOAuthMissing = errors.New("Linear OAuth is not configured")
)

const defaultRetryBatch = 50

// Config carries the Linear settings the service needs.
type Config struct {
	APIURL        string
	RPS           float64
	DefaultTeamID string
	OAuth         *oauth2.Config
	RetryBatch    int64
}

// Service pushes projects and tasks to the connected Linear workspace and
// applies webhook deliveries back onto the local records. It caches each
// team's workflow states until the workspace is reconnected.
type Service struct {
	projects   *projectstore.Store
	tasks      *taskstore.Store
	workspaces *linearworkspacestore.Store
	mapping    *linear.Mapping
	cfg        Config
	limiter    *rate.Limiter
	log        *zap.Logger

	mu     sync.Mutex
	states map[string][]linear.WorkflowState
}

// New builds a Service over db. A nil mapping uses linear.DefaultMapping.
func New(db *mongo.Database, mapping *linear.Mapping, cfg Config, logger *zap.Logger) *Service {
	if mapping == nil {
		mapping = linear.DefaultMapping()
	}
	if cfg.RetryBatch <= 0 {
		cfg.RetryBatch = defaultRetryBatch
	}
	return &Service{
		projects:   projectstore.New(db),
		tasks:      taskstore.New(db),
		workspaces: linearworkspacestore.New(db),
		mapping:    mapping,
		cfg:        cfg,
		limiter:    linear.NewLimiter(cfg.RPS),
		log:        logger,
		states:     map[string][]linear.WorkflowState{},
	}
}

// OAuth returns the authorization-code configuration, or nil when Linear
// OAuth is not configured.
func (s *Service) OAuth() *oauth2.Config {
	return s.cfg.OAuth
}

// Workspace returns the connected workspace or ErrNotConnected.
func (s *Service) Workspace(ctx context.Context) (*models.LinearWorkspace, error) {
	ws, err := s.workspaces.Get(ctx)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotConnected
	}
	return ws, err
}

// Client returns an API client for the connected workspace.
func (s *Service) Client(ctx context.Context) (*linear.Client, *models.LinearWorkspace, error) {
	ws, err := s.Workspace(ctx)
	if err != nil {
		return nil, nil, err
	}
	ts := linear.TokenSource(ctx, s.cfg.OAuth, ws, s.workspaces, s.log)
	return linear.NewClient(ctx, s.cfg.APIURL, ts, s.limiter, s.log), ws, nil
}

// Connect exchanges an authorization code, looks up the organization the
// token belongs to and stores the workspace.
func (s *Service) Connect(ctx context.Context, code string, connectedBy *primitive.ObjectID) (*models.LinearWorkspace, error) {
	if s.cfg.OAuth == nil {
		return nil, ErrOAuthMissing
	}
	tok, err := s.cfg.OAuth.Exchange(ctx, code)
	if err != nil {
		return nil, err
	}
	client := linear.NewClient(ctx, s.cfg.APIURL, oauth2.StaticTokenSource(tok), s.limiter, s.log)
	org, err := client.Organization(ctx)
	if err != nil {
		return nil, err
	}

	ws := models.LinearWorkspace{
		OrganizationID:   org.ID,
		OrganizationName: org.Name,
		URLKey:           org.URLKey,
		AccessToken:      tok.AccessToken,
		RefreshToken:     tok.RefreshToken,
		TokenType:        tok.TokenType,
		ConnectedBy:      connectedBy,
	}
	if scope, ok := tok.Extra("scope").(string); ok {
		ws.Scope = scope
	}
	if !tok.Expiry.IsZero() {
		exp := tok.Expiry.UTC()
		ws.ExpiresAt = &exp
	}
	s.resetStates()
	return s.workspaces.Save(ctx, ws)
}

// DisconnectResult reports how many records were detached from Linear.
type DisconnectResult struct {
	Projects int64 `json:"projects_unlinked"`
	Tasks    int64 `json:"tasks_unlinked"`
}

// Disconnect removes the workspace and unlinks every project and task.
func (s *Service) Disconnect(ctx context.Context) (DisconnectResult, error) {
	var res DisconnectResult
	found, err := s.workspaces.Delete(ctx)
	if err != nil {
		return res, err
	}
	if !found {
		return res, ErrNotConnected
	}
	s.resetStates()
	if res.Projects, err = s.projects.UnlinkAll(ctx); err != nil {
		return res, err
	}
	if res.Tasks, err = s.tasks.UnlinkAll(ctx); err != nil {
		return res, err
	}
	return res, nil
}

// Teams lists the teams of the connected workspace.
func (s *Service) Teams(ctx context.Context) ([]linear.Team, error) {
	c, _, err := s.Client(ctx)
	if err != nil {
		return nil, err
	}
	return c.Teams(ctx)
}

func (s *Service) teamFor(p *models.Project, ws *models.LinearWorkspace) string {
	if p.LinearTeamID != "" {
		return p.LinearTeamID
	}
	if ws.DefaultTeamID != "" {
		return ws.DefaultTeamID
	}
	return s.cfg.DefaultTeamID
}

func (s *Service) resetStates() {
	s.mu.Lock()
	s.states = map[string][]linear.WorkflowState{}
	s.mu.Unlock()
}

func (s *Service) stateFor(ctx context.Context, c *linear.Client, teamID, status string) (linear.WorkflowState, bool) {
	s.mu.Lock()
	states, ok := s.states[teamID]
	s.mu.Unlock()
	if !ok {
		var err error
		states, err = c.WorkflowStates(ctx, teamID)
		if err != nil {
			s.log.Warn("could not load linear workflow states",
				zap.String("team_id", teamID), zap.Error(err))
			return linear.WorkflowState{}, false
		}
		s.mu.Lock()
		s.states[teamID] = states
		s.mu.Unlock()
	}
	return s.mapping.PickState(states, status)
}

// PushTask mirrors a task to Linear when its project is linked. Tasks of
// unlinked projects are left alone. A failed push tags the task
// sync_failed and returns the error; the local record is kept.
func (s *Service) PushTask(ctx context.Context, taskID primitive.ObjectID) error {
	t, err := s.tasks.GetByID(ctx, taskID)
	if err != nil {
		return err
	}
	p, err := s.projects.GetByID(ctx, t.ProjectID)
	if err != nil {
		return err
	}
	if p.LinearProjectID == "" {
		return nil
	}
	return s.pushTask(ctx, t, p)
}

func (s *Service) pushTask(ctx context.Context, t *models.Task, p *models.Project) error {
	err := s.sendTask(ctx, t, p)
	if err == nil {
		return nil
	}
	s.log.Warn("linear task sync failed",
		zap.String("task_id", t.ID.Hex()),
		zap.String("project_id", p.ID.Hex()),
		zap.Error(err))
	if mErr := s.tasks.MarkSyncFailed(ctx, t.ID, err.Error()); mErr != nil {
		s.log.Error("failed to record task sync failure", zap.String("task_id", t.ID.Hex()), zap.Error(mErr))
	}
	return err
}

func (s *Service) sendTask(ctx context.Context, t *models.Task, p *models.Project) error {
	c, ws, err := s.Client(ctx)
	if err != nil {
		return err
	}
	team := s.teamFor(p, ws)
	if team == "" {
		return ErrNoTeam
	}

	prio := s.mapping.LinearPriority(t.Priority)
	in := linear.IssueInput{
		ProjectID:   p.LinearProjectID,
		Title:       t.Title,
		Description: t.Description,
		Priority:    &prio,
		DueDate:     linear.FormatDate(t.DueDate),
	}
	if st, ok := s.stateFor(ctx, c, team, t.Status); ok {
		in.StateID = st.ID
	}

	var iss linear.Issue
	if t.LinearIssueID == "" {
		in.TeamID = team
		iss, err = c.CreateIssue(ctx, in)
	} else {
		iss, err = c.UpdateIssue(ctx, t.LinearIssueID, in)
	}
	if err != nil {
		return err
	}
	info := taskstore.SyncInfo{
		LinearIssueID:    iss.ID,
		LinearIdentifier: iss.Identifier,
		LinearURL:        iss.URL,
		LinearStateName:  iss.State.Name,
	}
	err = s.tasks.MarkSynced(ctx, t.ID, info)
	if errors.Is(err, taskstore.ErrDuplicateLinearID) {
		return s.adoptTaskTwin(ctx, t.ID, info)
	}
	return err
}

// adoptTaskTwin drops the copy a create webhook inserted for an issue this
// task just created, then links the task to the issue.
func (s *Service) adoptTaskTwin(ctx context.Context, id primitive.ObjectID, info taskstore.SyncInfo) error {
	n, err := s.tasks.DeleteTwin(ctx, info.LinearIssueID, id)
	if err != nil {
		return err
	}
	s.log.Info("replaced webhook copy of pushed task",
		zap.String("task_id", id.Hex()),
		zap.String("linear_issue_id", info.LinearIssueID),
		zap.Int64("removed", n))
	return s.tasks.MarkSynced(ctx, id, info)
}

// PushProject mirrors a project to Linear, creating it on first push.
func (s *Service) PushProject(ctx context.Context, projectID primitive.ObjectID) error {
	p, err := s.projects.GetByID(ctx, projectID)
	if err != nil {
		return err
	}
	err = s.sendProject(ctx, p)
	if err == nil {
		return nil
	}
	s.log.Warn("linear project sync failed", zap.String("project_id", p.ID.Hex()), zap.Error(err))
	if mErr := s.projects.MarkSyncFailed(ctx, p.ID, err.Error()); mErr != nil {
		s.log.Error("failed to record project sync failure", zap.String("project_id", p.ID.Hex()), zap.Error(mErr))
	}
	return err
}

func (s *Service) sendProject(ctx context.Context, p *models.Project) error {
	c, ws, err := s.Client(ctx)
	if err != nil {
		return err
	}
	team := s.teamFor(p, ws)

	in := linear.ProjectInput{
		Name:        p.Name,
		Description: p.Description,
		State:       s.mapping.LinearProjectState(p.Status),
		StartDate:   linear.FormatDate(p.StartDate),
		TargetDate:  linear.FormatDate(p.TargetDate),
	}

	var lp linear.Project
	if p.LinearProjectID == "" {
		if team == "" {
			return ErrNoTeam
		}
		in.TeamIDs = []string{team}
		lp, err = c.CreateProject(ctx, in)
	} else {
		lp, err = c.UpdateProject(ctx, p.LinearProjectID, in)
	}
	if err != nil {
		return err
	}
	info := projectstore.SyncInfo{
		LinearProjectID: lp.ID,
		LinearTeamID:    team,
		LinearURL:       lp.URL,
	}
	err = s.projects.MarkSynced(ctx, p.ID, info)
	if errors.Is(err, projectstore.ErrDuplicateLinearID) {
		return s.adoptProjectTwin(ctx, p.ID, info)
	}
	return err
}

// adoptProjectTwin removes the project a create webhook inserted for a
// Linear project this one just created. Tasks filed under the copy move to
// the original before it is linked.
func (s *Service) adoptProjectTwin(ctx context.Context, id primitive.ObjectID, info projectstore.SyncInfo) error {
	twin, err := s.projects.TakeTwin(ctx, info.LinearProjectID, id)
	if err != nil {
		return err
	}
	var moved int64
	if twin != nil {
		if moved, err = s.tasks.MoveToProject(ctx, twin.ID, id); err != nil {
			return err
		}
	}
	s.log.Info("replaced webhook copy of pushed project",
		zap.String("project_id", id.Hex()),
		zap.String("linear_project_id", info.LinearProjectID),
		zap.Int64("tasks_moved", moved))
	return s.projects.MarkSynced(ctx, id, info)
}

// SyncResult reports a project sync.
type SyncResult struct {
	TasksAttempted int `json:"tasks_attempted"`
	TasksSynced    int `json:"tasks_synced"`
}

// SyncProject pushes the project and then each of its tasks that is not
// in sync. Task failures are counted, not returned.
func (s *Service) SyncProject(ctx context.Context, projectID primitive.ObjectID) (SyncResult, error) {
	var res SyncResult
	if _, _, err := s.Client(ctx); err != nil {
		return res, err
	}
	if err := s.PushProject(ctx, projectID); err != nil {
		return res, err
	}
	p, err := s.projects.GetByID(ctx, projectID)
	if err != nil {
		return res, err
	}
	tasks, err := s.tasks.ListUnsynced(ctx, projectID)
	if err != nil {
		return res, err
	}
	for i := range tasks {
		if ctx.Err() != nil {
			return res, ctx.Err()
		}
		res.TasksAttempted++
		if s.pushTask(ctx, &tasks[i], p) == nil {
			res.TasksSynced++
		}
	}
	return res, nil
}

// RetryResult reports a retry pass.
type RetryResult struct {
	Attempted int
	Succeeded int
}

// RetryFailed pushes projects and tasks tagged sync_failed again. Nothing
// is attempted while no workspace is connected.
func (s *Service) RetryFailed(ctx context.Context) (RetryResult, error) {
	var res RetryResult
	if _, err := s.Workspace(ctx); err != nil {
		if errors.Is(err, ErrNotConnected) {
			return res, nil
		}
		return res, err
	}

	projects, err := s.projects.ListBySyncStatus(ctx, models.SyncFailed, s.cfg.RetryBatch)
	if err != nil {
		return res, err
	}
	for _, p := range projects {
		if ctx.Err() != nil {
			return res, ctx.Err()
		}
		res.Attempted++
		if s.PushProject(ctx, p.ID) == nil {
			res.Succeeded++
		}
	}

	tasks, err := s.tasks.ListBySyncStatus(ctx, models.SyncFailed, s.cfg.RetryBatch)
	if err != nil {
		return res, err
	}
	parents := map[primitive.ObjectID]*models.Project{}
	for i := range tasks {
		if ctx.Err() != nil {
			return res, ctx.Err()
		}
		t := &tasks[i]
		p, ok := parents[t.ProjectID]
		if !ok {
			p, err = s.projects.GetByID(ctx, t.ProjectID)
			if err != nil && !errors.Is(err, mongo.ErrNoDocuments) {
				return res, err
			}
			parents[t.ProjectID] = p
		}
		if p == nil || p.LinearProjectID == "" {
			continue
		}
		res.Attempted++
		if s.pushTask(ctx, t, p) == nil {
			res.Succeeded++
		}
	}
	return res, nil
}

// PushTimeout bounds the synchronous push that follows a local save.
const PushTimeout = 15 * time.Second
