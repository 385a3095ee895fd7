package linearsync

import (
	"context"
	"errors"
	"math"

	projectstore "github.com/dalemusser/hirehub/internal/app/store/projects"
	taskstore "github.com/dalemusser/hirehub/internal/app/store/tasks"
	"github.com/dalemusser/hirehub/internal/app/system/linear"
	"github.com/dalemusser/hirehub/internal/domain/models"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Outcome describes what a webhook delivery did locally.
type Outcome string

const (
	OutcomeCreated  Outcome = "created"
	OutcomeUpdated  Outcome = "updated"
	OutcomeDeleted  Outcome = "deleted"
	OutcomeUnlinked Outcome = "unlinked"
	OutcomeNoop     Outcome = "noop"
	OutcomeIgnored  Outcome = "ignored"
)

// ApplyWebhook maps a delivery onto the local task or project it mirrors.
// Unknown entity types and actions are ignored.
func (s *Service) ApplyWebhook(ctx context.Context, p *linear.WebhookPayload) (Outcome, error) {
	var (
		out Outcome
		err error
	)
	switch p.Type {
	case linear.TypeIssue:
		out, err = s.applyIssue(ctx, p)
	case linear.TypeProject:
		out, err = s.applyProject(ctx, p)
	default:
		out = OutcomeIgnored
	}
	if err == nil {
		s.log.Info("linear webhook applied",
			zap.String("type", p.Type),
			zap.String("action", p.Action),
			zap.String("outcome", string(out)))
	}
	return out, err
}

func (s *Service) issueStatus(d linear.IssueData) string {
	if d.State == nil {
		return ""
	}
	st, _ := s.mapping.TaskStatus(d.State.Name, d.State.Type)
	return st
}

func (s *Service) issuePriority(d linear.IssueData) string {
	if d.Priority == nil {
		return ""
	}
	p, _ := s.mapping.Priority(int(math.Round(*d.Priority)))
	return p
}

func stateName(d linear.IssueData) string {
	if d.State == nil {
		return ""
	}
	return d.State.Name
}

func (s *Service) applyIssue(ctx context.Context, p *linear.WebhookPayload) (Outcome, error) {
	switch p.Action {
	case linear.ActionCreate, linear.ActionUpdate, linear.ActionRemove:
	default:
		return OutcomeIgnored, nil
	}
	d, err := p.Issue()
	if err != nil {
		return "", err
	}

	switch p.Action {
	case linear.ActionCreate:
		if _, err := s.tasks.GetByLinearID(ctx, d.ID); err == nil {
			return OutcomeNoop, nil
		} else if !errors.Is(err, mongo.ErrNoDocuments) {
			return "", err
		}
		lpid := d.LinearProjectID()
		if lpid == "" {
			return OutcomeNoop, nil
		}
		proj, err := s.projects.GetByLinearID(ctx, lpid)
		if errors.Is(err, mongo.ErrNoDocuments) {
			return OutcomeNoop, nil
		}
		if err != nil {
			return "", err
		}
		title := d.Title
		if title == "" {
			title = d.Identifier
		}
		t := models.Task{
			ProjectID:        proj.ID,
			Title:            title,
			Description:      d.Description,
			Status:           s.issueStatus(d),
			Priority:         s.issuePriority(d),
			DueDate:          linear.ParseDate(d.DueDate),
			LinearIssueID:    d.ID,
			LinearIdentifier: d.Identifier,
			LinearURL:        d.URL,
			LinearStateName:  stateName(d),
		}
		if d.Estimate != nil {
			t.EstimateHours = *d.Estimate
		}
		if _, err := s.tasks.Create(ctx, t); err != nil {
			if errors.Is(err, taskstore.ErrDuplicateLinearID) {
				return OutcomeNoop, nil
			}
			return "", err
		}
		return OutcomeCreated, nil

	case linear.ActionUpdate:
		t, err := s.tasks.GetByLinearID(ctx, d.ID)
		if errors.Is(err, mongo.ErrNoDocuments) {
			return OutcomeNoop, nil
		}
		if err != nil {
			return "", err
		}
		err = s.tasks.ApplyRemote(ctx, t.ID, taskstore.RemoteUpdate{
			Title:       d.Title,
			Description: d.Description,
			Status:      s.issueStatus(d),
			Priority:    s.issuePriority(d),
			StateName:   stateName(d),
			Identifier:  d.Identifier,
			URL:         d.URL,
			DueDate:     linear.ParseDate(d.DueDate),
			Estimate:    d.Estimate,
		})
		if err != nil {
			return "", err
		}
		return OutcomeUpdated, nil

	default:
		n, err := s.tasks.DeleteByLinearID(ctx, d.ID)
		if err != nil {
			return "", err
		}
		if n == 0 {
			return OutcomeNoop, nil
		}
		return OutcomeDeleted, nil
	}
}

func (s *Service) applyProject(ctx context.Context, p *linear.WebhookPayload) (Outcome, error) {
	switch p.Action {
	case linear.ActionCreate, linear.ActionUpdate, linear.ActionRemove:
	default:
		return OutcomeIgnored, nil
	}
	d, err := p.Project()
	if err != nil {
		return "", err
	}
	status, _ := s.mapping.ProjectStatus(d.State)

	existing, err := s.projects.GetByLinearID(ctx, d.ID)
	if err != nil && !errors.Is(err, mongo.ErrNoDocuments) {
		return "", err
	}

	switch p.Action {
	case linear.ActionCreate:
		if existing != nil {
			return OutcomeNoop, nil
		}
		_, err := s.projects.Create(ctx, models.Project{
			Name:            d.Name,
			Description:     d.Description,
			Status:          status,
			StartDate:       linear.ParseDate(d.StartDate),
			TargetDate:      linear.ParseDate(d.TargetDate),
			LinearProjectID: d.ID,
			LinearURL:       d.URL,
		})
		if errors.Is(err, projectstore.ErrDuplicateLinearID) {
			return OutcomeNoop, nil
		}
		if err != nil {
			return "", err
		}
		return OutcomeCreated, nil

	case linear.ActionUpdate:
		if existing == nil {
			return OutcomeNoop, nil
		}
		err := s.projects.ApplyRemote(ctx, existing.ID, projectstore.RemoteUpdate{
			Name:        d.Name,
			Description: d.Description,
			Status:      status,
			StartDate:   linear.ParseDate(d.StartDate),
			TargetDate:  linear.ParseDate(d.TargetDate),
			URL:         d.URL,
		})
		if err != nil {
			return "", err
		}
		return OutcomeUpdated, nil

	default:
		if existing == nil {
			return OutcomeNoop, nil
		}
		if err := s.projects.Unlink(ctx, existing.ID); err != nil {
			return "", err
		}
		return OutcomeUnlinked, nil
	}
}
