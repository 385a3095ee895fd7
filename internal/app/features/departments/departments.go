// internal/app/features/departments/departments.go
package departments

import (
	"context"
	"errors"
	"net/http"

	"github.com/dalemusser/hirehub/internal/app/store/audit"
	departmentstore "github.com/dalemusser/hirehub/internal/app/store/departments"
	personnelstore "github.com/dalemusser/hirehub/internal/app/store/personnel"
	"github.com/dalemusser/hirehub/internal/app/system/apierr"
	"github.com/dalemusser/hirehub/internal/app/system/auth"
	"github.com/dalemusser/hirehub/internal/app/system/htmlsanitize"
	"github.com/dalemusser/hirehub/internal/app/system/inputval"
	"github.com/dalemusser/hirehub/internal/app/system/normalize"
	"github.com/dalemusser/hirehub/internal/app/system/timeouts"
	"github.com/dalemusser/hirehub/internal/app/system/txn"
	"github.com/dalemusser/hirehub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/query"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// ServeList handles GET /api/departments?status=.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	status := normalize.Status(query.Get(r, "status"))
	if status != "" && !normalize.OneOf(status, []string{departmentstore.StatusActive, departmentstore.StatusArchived}) {
		apierr.Write(w, r, h.Log, apierr.Validation("unknown status filter"))
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "department list")
	defer cancel()

	items, err := departmentstore.New(h.DB).List(ctx, status)
	if err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	apierr.WriteJSON(w, http.StatusOK, map[string]any{"items": items})
}

// ServeGet handles GET /api/departments/{id}.
func (h *Handler) ServeGet(w http.ResponseWriter, r *http.Request) {
	id, ok := h.departmentID(w, r)
	if !ok {
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "department get")
	defer cancel()

	d, err := departmentstore.New(h.DB).GetByID(ctx, id)
	if err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	apierr.WriteJSON(w, http.StatusOK, d)
}

// HandleCreate handles POST /api/departments.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.CurrentUser(r)

	var in createInput
	if err := apierr.DecodeJSON(w, r, &in); err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	in.Name = normalize.Name(htmlsanitize.StripTags(in.Name))
	in.Description = htmlsanitize.StripTags(in.Description)
	if res := inputval.Validate(in); res.HasErrors() {
		apierr.Write(w, r, h.Log, apierr.Validation(res.First()))
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "department create")
	defer cancel()

	store := departmentstore.New(h.DB)
	if taken, err := store.NameExistsForOther(ctx, in.Name, primitive.NilObjectID); err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	} else if taken {
		apierr.Write(w, r, h.Log, apierr.Conflict(departmentstore.ErrDuplicateName.Error()))
		return
	}

	d := models.Department{Name: in.Name, Description: in.Description}
	if in.HeadID != "" {
		hid, err := h.headID(ctx, in.HeadID)
		if err != nil {
			apierr.Write(w, r, h.Log, err)
			return
		}
		d.HeadID = &hid
	}

	created, err := store.Create(ctx, d)
	if errors.Is(err, departmentstore.ErrDuplicateName) {
		apierr.Write(w, r, h.Log, apierr.Conflict(err.Error()))
		return
	}
	if err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}

	h.AuditLog.Admin(ctx, r, actor.ID, audit.EventDepartmentCreated, "department", created.ID, map[string]string{
		"name": created.Name,
	})
	apierr.WriteJSON(w, http.StatusCreated, created)
}

// HandlePatch handles PATCH /api/departments/{id}. A rename is copied onto
// the personnel records that carry the department name.
func (h *Handler) HandlePatch(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.CurrentUser(r)
	id, ok := h.departmentID(w, r)
	if !ok {
		return
	}

	var in patchInput
	if err := apierr.DecodeJSON(w, r, &in); err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	if res := inputval.Validate(in); res.HasErrors() {
		apierr.Write(w, r, h.Log, apierr.Validation(res.First()))
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "department patch")
	defer cancel()

	store := departmentstore.New(h.DB)
	upd := departmentstore.Update{Status: in.Status}
	if in.Name != nil {
		name := normalize.Name(htmlsanitize.StripTags(*in.Name))
		if name == "" {
			apierr.Write(w, r, h.Log, apierr.Validation("Name is required."))
			return
		}
		taken, err := store.NameExistsForOther(ctx, name, id)
		if err != nil {
			apierr.Write(w, r, h.Log, err)
			return
		}
		if taken {
			apierr.Write(w, r, h.Log, apierr.Conflict(departmentstore.ErrDuplicateName.Error()))
			return
		}
		upd.Name = &name
	}
	if in.Description != nil {
		desc := htmlsanitize.StripTags(*in.Description)
		upd.Description = &desc
	}
	if in.HeadID != nil {
		if *in.HeadID == "" {
			upd.ClearHead = true
		} else {
			hid, err := h.headID(ctx, *in.HeadID)
			if err != nil {
				apierr.Write(w, r, h.Log, err)
				return
			}
			upd.HeadID = &hid
		}
	}

	var d *models.Department
	err := txn.Run(ctx, h.DB, h.Log, func(ctx context.Context) error {
		var err error
		if d, err = store.Update(ctx, id, upd); err != nil {
			return err
		}
		if upd.Name != nil {
			return personnelstore.New(h.DB).RenameDepartment(ctx, id, d.Name)
		}
		return nil
	})
	if errors.Is(err, departmentstore.ErrDuplicateName) {
		apierr.Write(w, r, h.Log, apierr.Conflict(err.Error()))
		return
	}
	if err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}

	h.AuditLog.Admin(ctx, r, actor.ID, audit.EventDepartmentUpdated, "department", d.ID, map[string]string{
		"name":   d.Name,
		"status": d.Status,
	})
	apierr.WriteJSON(w, http.StatusOK, d)
}

// HandleDelete handles DELETE /api/departments/{id}. Departments that
// personnel still reference cannot be deleted; archive them instead.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.CurrentUser(r)
	id, ok := h.departmentID(w, r)
	if !ok {
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "department delete")
	defer cancel()

	n, err := personnelstore.New(h.DB).CountInDepartment(ctx, id)
	if err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	if n > 0 {
		apierr.Write(w, r, h.Log, apierr.Conflict("department still has personnel; reassign them or archive the department"))
		return
	}

	deleted, err := departmentstore.New(h.DB).Delete(ctx, id)
	if err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	if deleted == 0 {
		apierr.Write(w, r, h.Log, apierr.NotFound("department not found"))
		return
	}

	h.Log.Info("department deleted", zap.String("department_id", id.Hex()))
	h.AuditLog.Admin(ctx, r, actor.ID, audit.EventDepartmentDeleted, "department", id, nil)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) departmentID(w http.ResponseWriter, r *http.Request) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		apierr.Write(w, r, h.Log, apierr.Validation("invalid department id"))
		return primitive.NilObjectID, false
	}
	return id, true
}

// headID checks that the department head is an existing personnel record.
func (h *Handler) headID(ctx context.Context, hex string) (primitive.ObjectID, error) {
	hid, err := primitive.ObjectIDFromHex(hex)
	if err != nil {
		return primitive.NilObjectID, apierr.Validation("Head must be a valid ID.")
	}
	if _, err := personnelstore.New(h.DB).GetByID(ctx, hid); err != nil {
		if apierr.GetCode(err) == apierr.CodeNotFound {
			return primitive.NilObjectID, apierr.Validation("department head not found")
		}
		return primitive.NilObjectID, err
	}
	return hid, nil
}
