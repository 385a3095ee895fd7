// internal/app/features/linear/workspace.go
package linear

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/dalemusser/hirehub/internal/app/store/audit"
	linearworkspacestore "github.com/dalemusser/hirehub/internal/app/store/linearworkspace"
	"github.com/dalemusser/hirehub/internal/app/system/apierr"
	"github.com/dalemusser/hirehub/internal/app/system/auth"
	"github.com/dalemusser/hirehub/internal/app/system/inputval"
	"github.com/dalemusser/hirehub/internal/app/system/linearsync"
	"github.com/dalemusser/hirehub/internal/app/system/timeouts"
	"github.com/dalemusser/hirehub/internal/domain/models"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

type statusResponse struct {
	Connected       bool                    `json:"connected"`
	OAuthConfigured bool                    `json:"oauth_configured"`
	WebhookSigned   bool                    `json:"webhook_signed"`
	Workspace       *models.LinearWorkspace `json:"workspace,omitempty"`
}

// ServeStatus handles GET /api/linear/status.
func (h *Handler) ServeStatus(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "linear status")
	defer cancel()

	resp := statusResponse{
		OAuthConfigured: h.Sync.OAuth() != nil,
		WebhookSigned:   h.WebhookSecret != "",
	}
	ws, err := h.Sync.Workspace(ctx)
	switch {
	case errors.Is(err, linearsync.ErrNotConnected):
	case err != nil:
		apierr.Write(w, r, h.Log, err)
		return
	default:
		resp.Connected = true
		resp.Workspace = ws
	}
	apierr.WriteJSON(w, http.StatusOK, resp)
}

// ServeTeams handles GET /api/linear/teams.
func (h *Handler) ServeTeams(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "linear teams")
	defer cancel()

	teams, err := h.Sync.Teams(ctx)
	if errors.Is(err, linearsync.ErrNotConnected) {
		apierr.Write(w, r, h.Log, apierr.Validation(err.Error()))
		return
	}
	if err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	apierr.WriteJSON(w, http.StatusOK, map[string]any{"items": teams})
}

type teamInput struct {
	TeamID string `json:"team_id" validate:"required,max=100"`
}

// HandleSetTeam handles PUT /api/linear/workspace/team. The team becomes the
// default for projects that do not name their own.
func (h *Handler) HandleSetTeam(w http.ResponseWriter, r *http.Request) {
	var in teamInput
	if err := apierr.DecodeJSON(w, r, &in); err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	if res := inputval.Validate(in); res.HasErrors() {
		apierr.Write(w, r, h.Log, apierr.Validation(res.First()))
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "linear default team")
	defer cancel()

	store := linearworkspacestore.New(h.DB)
	if err := store.SetDefaultTeam(ctx, in.TeamID); errors.Is(err, mongo.ErrNoDocuments) {
		apierr.Write(w, r, h.Log, apierr.Validation(linearsync.ErrNotConnected.Error()))
		return
	} else if err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	ws, err := store.Get(ctx)
	if err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	apierr.WriteJSON(w, http.StatusOK, ws)
}

// HandleDisconnect handles DELETE /api/linear/workspace. Linked projects and
// tasks keep their local data and return to not_synced.
func (h *Handler) HandleDisconnect(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.CurrentUser(r)

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "linear disconnect")
	defer cancel()

	ws, err := h.Sync.Workspace(ctx)
	if errors.Is(err, linearsync.ErrNotConnected) {
		apierr.Write(w, r, h.Log, apierr.NotFound(err.Error()))
		return
	}
	if err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}

	res, err := h.Sync.Disconnect(ctx)
	if errors.Is(err, linearsync.ErrNotConnected) {
		apierr.Write(w, r, h.Log, apierr.NotFound(err.Error()))
		return
	}
	if err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}

	h.Log.Info("Linear workspace disconnected",
		zap.String("organization", ws.OrganizationName),
		zap.Int64("projects_unlinked", res.Projects),
		zap.Int64("tasks_unlinked", res.Tasks))
	h.AuditLog.Admin(ctx, r, actor.ID, audit.EventLinearDisconnected, "linear_workspace", ws.ID, map[string]string{
		"organization":      ws.OrganizationName,
		"projects_unlinked": strconv.FormatInt(res.Projects, 10),
		"tasks_unlinked":    strconv.FormatInt(res.Tasks, 10),
	})
	apierr.WriteJSON(w, http.StatusOK, res)
}
