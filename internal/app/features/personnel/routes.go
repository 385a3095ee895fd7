// internal/app/features/personnel/routes.go
package personnel

import (
	"github.com/dalemusser/hirehub/internal/app/system/auth"
	"github.com/dalemusser/hirehub/internal/domain/models"
	"github.com/go-chi/chi/v5"
)

// Routes mounts the personnel endpoints (typically under "/api/personnel").
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()

	r.Group(func(pr chi.Router) {
		pr.Use(sm.RequireSignedIn)

		pr.Get("/directory", h.ServeDirectory)

		// Admin or the personnel themselves; checked in the handlers.
		pr.Get("/{id}", h.ServeGet)
		pr.Patch("/{id}", h.HandlePatch)
		pr.Patch("/{id}/onboarding/{step}", h.HandleOnboardingStep)
	})

	r.Group(func(pr chi.Router) {
		pr.Use(sm.RequireSignedIn)
		pr.Use(sm.RequireRole(models.RoleAdmin))

		pr.Get("/", h.ServeList)
		pr.Post("/convert", h.HandleConvert)
		pr.Delete("/{id}", h.HandleDelete)
	})

	return r
}
