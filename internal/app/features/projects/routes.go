// internal/app/features/projects/routes.go
package projects

import (
	"github.com/dalemusser/hirehub/internal/app/system/auth"
	"github.com/dalemusser/hirehub/internal/domain/models"
	"github.com/go-chi/chi/v5"
)

// Routes mounts /api/projects. Signed-in users read; admins write.
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()

	r.Group(func(pr chi.Router) {
		pr.Use(sm.RequireSignedIn)

		pr.Get("/", h.ServeList)
		pr.Get("/{id}", h.ServeGet)
		pr.Get("/{id}/tasks", h.ServeProjectTasks)

		pr.Group(func(ar chi.Router) {
			ar.Use(sm.RequireRole(models.RoleAdmin))
			ar.Post("/", h.HandleCreate)
			ar.Patch("/{id}", h.HandlePatch)
			ar.Delete("/{id}", h.HandleDelete)
			ar.Post("/{id}/tasks", h.HandleCreateTask)
			ar.Post("/{id}/sync", h.HandleSync)
		})
	})

	return r
}

// TaskRoutes mounts /api/tasks. Assignees may change the status of their
// own tasks; every other write is admin-only.
func TaskRoutes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()

	r.Group(func(pr chi.Router) {
		pr.Use(sm.RequireSignedIn)

		pr.Get("/", h.ServeTasks)
		pr.Get("/{id}", h.ServeTask)
		pr.Patch("/{id}", h.HandlePatchTask)

		pr.With(sm.RequireRole(models.RoleAdmin)).Delete("/{id}", h.HandleDeleteTask)
	})

	return r
}
