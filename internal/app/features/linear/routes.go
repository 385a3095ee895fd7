// internal/app/features/linear/routes.go
package linear

import (
	"github.com/dalemusser/hirehub/internal/app/system/auth"
	"github.com/dalemusser/hirehub/internal/domain/models"
	"github.com/go-chi/chi/v5"
)

// Routes mounts /api/linear. The webhook is public and authenticated by
// its signature; everything else is admin-only.
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()

	r.Post("/webhook", h.HandleWebhook)

	r.Group(func(ar chi.Router) {
		ar.Use(sm.RequireSignedIn)
		ar.Use(sm.RequireRole(models.RoleAdmin))

		ar.Get("/auth", h.ServeAuth)
		ar.Get("/auth/callback", h.ServeCallback)
		ar.Get("/status", h.ServeStatus)
		ar.Get("/teams", h.ServeTeams)
		ar.Put("/workspace/team", h.HandleSetTeam)
		ar.Delete("/workspace", h.HandleDisconnect)
	})

	return r
}
