// internal/app/features/communications/routes.go
package communications

import "github.com/go-chi/chi/v5"

// Routes serves an application's message thread. It expects an "id" URL
// parameter from the parent route ("/api/applications/{id}/messages").
// Every endpoint accepts an admin session or the applicant's token.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.ServeList)
	r.Post("/", h.HandlePost)
	r.Post("/read", h.HandleMarkRead)
	r.Get("/unread", h.ServeUnread)
	return r
}
