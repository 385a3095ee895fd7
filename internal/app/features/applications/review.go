// internal/app/features/applications/review.go
package applications

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	applicationstore "github.com/dalemusser/hirehub/internal/app/store/applications"
	"github.com/dalemusser/hirehub/internal/app/store/audit"
	communicationstore "github.com/dalemusser/hirehub/internal/app/store/communications"
	"github.com/dalemusser/hirehub/internal/app/system/apierr"
	"github.com/dalemusser/hirehub/internal/app/system/auth"
	"github.com/dalemusser/hirehub/internal/app/system/authz"
	"github.com/dalemusser/hirehub/internal/app/system/inputval"
	"github.com/dalemusser/hirehub/internal/app/system/timeouts"
	"github.com/dalemusser/hirehub/internal/app/system/txn"
	"github.com/dalemusser/hirehub/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// HandleStatus handles PATCH /api/applications/{id}/status.
func (h *Handler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.CurrentUser(r)

	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		apierr.Write(w, r, h.Log, apierr.Validation("invalid application id"))
		return
	}
	var in statusInput
	if err := apierr.DecodeJSON(w, r, &in); err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	if res := inputval.Validate(in); res.HasErrors() {
		apierr.Write(w, r, h.Log, apierr.Validation(res.First()))
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "application status")
	defer cancel()

	reviewer, _ := authz.UserID(actor)
	prev, app, err := applicationstore.New(h.DB).SetStatus(ctx, id, in.Status, in.ReviewNotes, reviewer)
	if errors.Is(err, applicationstore.ErrConverted) {
		apierr.Write(w, r, h.Log, apierr.Conflict(err.Error()))
		return
	}
	if err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}

	if prev != app.Status {
		// The thread note is informational; a failure does not undo the review.
		_, err := communicationstore.New(h.DB).Create(ctx, models.Communication{
			ApplicationID: app.ID,
			SenderType:    models.SenderSystem,
			SenderName:    "HireHub",
			Subject:       "Application status updated",
			Body:          fmt.Sprintf("Your application status changed from %s to %s.", prev, app.Status),
		})
		if err != nil {
			h.Log.Warn("failed to post status message",
				zap.String("application_id", app.ID.Hex()), zap.Error(err))
		}
		h.AuditLog.ApplicationStatusChanged(ctx, r, actor.ID, app.ID, prev, app.Status)
	}

	apierr.WriteJSON(w, http.StatusOK, app)
}

// HandleDelete handles DELETE /api/applications/{id}. Converted
// applications are kept; the thread and edit history go with the application.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.CurrentUser(r)

	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		apierr.Write(w, r, h.Log, apierr.Validation("invalid application id"))
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Long(), h.Log, "application delete")
	defer cancel()

	var messages, versions int64
	err = txn.Run(ctx, h.DB, h.Log, func(ctx context.Context) error {
		if err := applicationstore.New(h.DB).Delete(ctx, id); err != nil {
			return err
		}
		var err error
		if messages, err = communicationstore.New(h.DB).DeleteByApplication(ctx, id); err != nil {
			return err
		}
		versions, err = applicationstore.New(h.DB).DeleteVersions(ctx, id)
		return err
	})
	if errors.Is(err, applicationstore.ErrConverted) {
		apierr.Write(w, r, h.Log, apierr.Conflict(err.Error()))
		return
	}
	if err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}

	h.AuditLog.Admin(ctx, r, actor.ID, audit.EventApplicationDeleted, "application", id, map[string]string{
		"messages": fmt.Sprint(messages),
		"versions": fmt.Sprint(versions),
	})
	w.WriteHeader(http.StatusNoContent)
}
