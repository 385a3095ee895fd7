// internal/app/features/departments/routes.go
package departments

import (
	"github.com/dalemusser/hirehub/internal/app/system/auth"
	"github.com/dalemusser/hirehub/internal/domain/models"
	"github.com/go-chi/chi/v5"
)

// Routes mounts the department endpoints. Any signed-in user may read;
// only admins may write.
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()

	r.Group(func(pr chi.Router) {
		pr.Use(sm.RequireSignedIn)

		pr.Get("/", h.ServeList)
		pr.Get("/{id}", h.ServeGet)

		pr.Group(func(ar chi.Router) {
			ar.Use(sm.RequireRole(models.RoleAdmin))
			ar.Post("/", h.HandleCreate)
			ar.Patch("/{id}", h.HandlePatch)
			ar.Delete("/{id}", h.HandleDelete)
		})
	})

	return r
}
