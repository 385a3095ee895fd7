// internal/app/features/applications/list.go
package applications

import (
	"net/http"

	applicationstore "github.com/dalemusser/hirehub/internal/app/store/applications"
	"github.com/dalemusser/hirehub/internal/app/system/apierr"
	"github.com/dalemusser/hirehub/internal/app/system/normalize"
	"github.com/dalemusser/hirehub/internal/app/system/paging"
	"github.com/dalemusser/hirehub/internal/app/system/timeouts"
	"github.com/dalemusser/hirehub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/query"
)

// ServeList handles GET /api/applications?status=&q=&after=&before=&limit=.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	status := normalize.Status(query.Get(r, "status"))
	if status != "" && !normalize.OneOf(status, models.ApplicationStatuses) {
		apierr.Write(w, r, h.Log, apierr.Validation("unknown status"))
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "applications list")
	defer cancel()

	page, err := applicationstore.New(h.DB).List(ctx, applicationstore.ListFilter{
		Status: status,
		Search: query.Get(r, "q"),
	}, paging.ParseParams(r))
	if err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	apierr.WriteJSON(w, http.StatusOK, page)
}
