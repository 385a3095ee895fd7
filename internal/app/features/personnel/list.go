// internal/app/features/personnel/list.go
package personnel

import (
	"net/http"

	personnelstore "github.com/dalemusser/hirehub/internal/app/store/personnel"
	"github.com/dalemusser/hirehub/internal/app/system/apierr"
	"github.com/dalemusser/hirehub/internal/app/system/auth"
	"github.com/dalemusser/hirehub/internal/app/system/authz"
	"github.com/dalemusser/hirehub/internal/app/system/normalize"
	"github.com/dalemusser/hirehub/internal/app/system/paging"
	"github.com/dalemusser/hirehub/internal/app/system/timeouts"
	"github.com/dalemusser/hirehub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/query"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// departmentParam parses the optional department_id query parameter.
func departmentParam(r *http.Request) (*primitive.ObjectID, error) {
	s := query.Get(r, "department_id")
	if s == "" {
		return nil, nil
	}
	oid, err := primitive.ObjectIDFromHex(s)
	if err != nil {
		return nil, apierr.Validation("department_id must be a valid ID")
	}
	return &oid, nil
}

// ServeList handles GET /api/personnel?status=&department_id=&q=.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	status := normalize.Status(query.Get(r, "status"))
	if status != "" && !normalize.OneOf(status, models.PersonnelStatuses) {
		apierr.Write(w, r, h.Log, apierr.Validation("unknown status"))
		return
	}
	dept, err := departmentParam(r)
	if err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "personnel list")
	defer cancel()

	page, err := personnelstore.New(h.DB).List(ctx, personnelstore.ListFilter{
		Status:       status,
		DepartmentID: dept,
		Search:       query.Get(r, "q"),
	}, paging.ParseParams(r))
	if err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	apierr.WriteJSON(w, http.StatusOK, page)
}

// ServeDirectory handles GET /api/personnel/directory for any signed-in user.
func (h *Handler) ServeDirectory(w http.ResponseWriter, r *http.Request) {
	dept, err := departmentParam(r)
	if err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "personnel directory")
	defer cancel()

	entries, err := personnelstore.New(h.DB).Directory(ctx, dept)
	if err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	apierr.WriteJSON(w, http.StatusOK, map[string]any{"items": entries})
}

// ServeGet handles GET /api/personnel/{id}: admins, or the person themselves.
func (h *Handler) ServeGet(w http.ResponseWriter, r *http.Request) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		apierr.Write(w, r, h.Log, apierr.Validation("invalid personnel id"))
		return
	}
	u, _ := auth.CurrentUser(r)
	if !authz.IsAdmin(u) && !authz.IsSelf(u, id) {
		apierr.Write(w, r, h.Log, apierr.Forbidden("you can only view your own record"))
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "personnel get")
	defer cancel()

	p, err := personnelstore.New(h.DB).GetByID(ctx, id)
	if err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	apierr.WriteJSON(w, http.StatusOK, p)
}
