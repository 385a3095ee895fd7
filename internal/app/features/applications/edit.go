// internal/app/features/applications/edit.go
package applications

import (
	"errors"
	"net/http"

	applicationstore "github.com/dalemusser/hirehub/internal/app/store/applications"
	"github.com/dalemusser/hirehub/internal/app/system/apierr"
	"github.com/dalemusser/hirehub/internal/app/system/timeouts"
	"github.com/dalemusser/hirehub/internal/domain/models"
	"go.uber.org/zap"
)

// HandleEdit handles PUT /api/applications/{id}. Only the applicant may
// edit, and only while the application is pending.
func (h *Handler) HandleEdit(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "application edit")
	defer cancel()

	app, caller, err := h.loadForCaller(ctx, r)
	if err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	if caller != models.SenderApplicant {
		apierr.Write(w, r, h.Log, apierr.Forbidden("only the applicant can edit an application"))
		return
	}
	if app.Status != models.ApplicationPending {
		apierr.Write(w, r, h.Log, apierr.Conflict(applicationstore.ErrNotPending.Error()))
		return
	}

	in, err := decodeApplication(w, r)
	if err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}

	apps := applicationstore.New(h.DB)
	exists, err := apps.EmailExists(ctx, in.Email, app.ID)
	if err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	if exists {
		apierr.Write(w, r, h.Log, apierr.Conflict(applicationstore.ErrDuplicateEmail.Error()))
		return
	}

	updated, changes, err := apps.Edit(ctx, app.ID, in.edit(), caller)
	switch {
	case errors.Is(err, applicationstore.ErrNotPending),
		errors.Is(err, applicationstore.ErrEditConflict),
		errors.Is(err, applicationstore.ErrDuplicateEmail):
		apierr.Write(w, r, h.Log, apierr.Conflict(err.Error()))
		return
	case err != nil:
		apierr.Write(w, r, h.Log, err)
		return
	}
	if changes == nil {
		changes = []models.FieldChange{}
	}

	if len(changes) > 0 {
		h.Log.Info("application edited",
			zap.String("application_id", app.ID.Hex()),
			zap.Int("version", updated.Version),
			zap.Int("changes", len(changes)))
	}
	apierr.WriteJSON(w, http.StatusOK, editResponse{Application: updated, Changes: changes})
}
