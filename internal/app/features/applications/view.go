// internal/app/features/applications/view.go
package applications

import (
	"context"
	"net/http"

	applicationstore "github.com/dalemusser/hirehub/internal/app/store/applications"
	"github.com/dalemusser/hirehub/internal/app/system/apierr"
	"github.com/dalemusser/hirehub/internal/app/system/authz"
	"github.com/dalemusser/hirehub/internal/app/system/timeouts"
	"github.com/dalemusser/hirehub/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// loadForCaller loads the application named in the URL and authorizes the
// caller. It returns the application and the caller's sender type.
func (h *Handler) loadForCaller(ctx context.Context, r *http.Request) (*models.Application, string, error) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		return nil, "", apierr.Validation("invalid application id")
	}
	app, err := applicationstore.New(h.DB).GetByID(ctx, id)
	if err != nil {
		return nil, "", err
	}
	caller, err := authz.ApplicationCaller(r, app)
	if err != nil {
		return nil, "", err
	}
	return app, caller, nil
}

// ServeGet handles GET /api/applications/{id}.
func (h *Handler) ServeGet(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "application get")
	defer cancel()

	app, _, err := h.loadForCaller(ctx, r)
	if err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	apierr.WriteJSON(w, http.StatusOK, app)
}

// ServeVersions handles GET /api/applications/{id}/versions.
func (h *Handler) ServeVersions(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "application versions")
	defer cancel()

	app, _, err := h.loadForCaller(ctx, r)
	if err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	versions, err := applicationstore.New(h.DB).ListVersions(ctx, app.ID)
	if err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	apierr.WriteJSON(w, http.StatusOK, map[string]any{"items": versions})
}
