// internal/app/features/applications/routes.go
package applications

import (
	"net/http"

	"github.com/dalemusser/hirehub/internal/app/system/auth"
	"github.com/dalemusser/hirehub/internal/app/system/ratelimit"
	"github.com/dalemusser/hirehub/internal/domain/models"
	"github.com/go-chi/chi/v5"
)

// Routes mounts the application endpoints (typically under "/api/applications").
//
// submitLimiter throttles anonymous submissions per client IP; nil disables it.
// messages, when non-nil, is mounted at "/{id}/messages".
func Routes(h *Handler, sm *auth.SessionManager, submitLimiter *ratelimit.Limiter, messages http.Handler) chi.Router {
	r := chi.NewRouter()

	// Public submission.
	r.Group(func(pr chi.Router) {
		if submitLimiter != nil {
			pr.Use(ratelimit.Middleware(submitLimiter))
		}
		pr.Post("/", h.HandleSubmit)
	})

	// Admin session or applicant token; checked per request.
	r.Get("/{id}", h.ServeGet)
	r.Put("/{id}", h.HandleEdit)
	r.Get("/{id}/versions", h.ServeVersions)
	if messages != nil {
		r.Mount("/{id}/messages", messages)
	}

	r.Group(func(pr chi.Router) {
		pr.Use(sm.RequireSignedIn)
		pr.Use(sm.RequireRole(models.RoleAdmin))

		pr.Get("/", h.ServeList)
		pr.Patch("/{id}/status", h.HandleStatus)
		pr.Delete("/{id}", h.HandleDelete)
	})

	return r
}
