// internal/app/features/timeentries/routes.go
package timeentries

import (
	"github.com/dalemusser/hirehub/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// Routes mounts /api/time-entries. Ownership and the approval permission
// are checked per entry in the handlers.
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()

	r.Group(func(pr chi.Router) {
		pr.Use(sm.RequireSignedIn)

		pr.Get("/", h.ServeList)
		pr.Post("/", h.HandleCreate)
		pr.Get("/summary", h.ServeSummary)

		pr.Get("/{id}", h.ServeGet)
		pr.Patch("/{id}", h.HandlePatch)
		pr.Delete("/{id}", h.HandleDelete)

		pr.Post("/{id}/approve", h.HandleApprove)
		pr.Post("/{id}/unapprove", h.HandleUnapprove)
	})

	return r
}
