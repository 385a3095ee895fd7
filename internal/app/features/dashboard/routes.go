// internal/app/features/dashboard/routes.go
package dashboard

import (
	"github.com/dalemusser/hirehub/internal/app/system/auth"
	"github.com/dalemusser/hirehub/internal/domain/models"
	"github.com/go-chi/chi/v5"
)

// Routes wires the dashboard endpoints under /api/dashboard.
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()

	// All dashboards require the user to be signed in.
	r.Group(func(pr chi.Router) {
		pr.Use(sm.RequireSignedIn)
		pr.Get("/me", h.ServeMe)
		pr.With(sm.RequireRole(models.RoleAdmin)).Get("/admin", h.ServeAdmin)
	})

	return r
}
