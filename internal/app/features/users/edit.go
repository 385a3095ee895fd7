// internal/app/features/users/edit.go
package users

import (
	"net/http"
	"strconv"

	"github.com/dalemusser/hirehub/internal/app/store/audit"
	personnelstore "github.com/dalemusser/hirehub/internal/app/store/personnel"
	userstore "github.com/dalemusser/hirehub/internal/app/store/users"
	"github.com/dalemusser/hirehub/internal/app/system/apierr"
	"github.com/dalemusser/hirehub/internal/app/system/auth"
	"github.com/dalemusser/hirehub/internal/app/system/authutil"
	"github.com/dalemusser/hirehub/internal/app/system/inputval"
	"github.com/dalemusser/hirehub/internal/app/system/normalize"
	"github.com/dalemusser/hirehub/internal/app/system/timeouts"
	"github.com/dalemusser/hirehub/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// HandlePatch handles PATCH /api/users/{id}.
func (h *Handler) HandlePatch(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.CurrentUser(r)

	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		apierr.Write(w, r, h.Log, apierr.Validation("invalid user id"))
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
	if in.FullName != nil && normalize.Name(*in.FullName) == "" {
		apierr.Write(w, r, h.Log, apierr.Validation("Full name is required."))
		return
	}
	if in.Password != nil {
		if err := authutil.ValidatePassword(*in.Password); err != nil {
			apierr.Write(w, r, h.Log, apierr.Validation(err.Error()))
			return
		}
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "user patch")
	defer cancel()

	users := userstore.New(h.DB)
	cur, err := users.GetByID(ctx, id)
	if err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}

	// Admins cannot lock themselves out, and the last active admin must stay one.
	isSelf := actor.ID == id.Hex()
	demoting := in.Role != nil && normalize.Role(*in.Role) != models.RoleAdmin
	disabling := in.Status != nil && normalize.Status(*in.Status) == models.UserDisabled
	if isSelf && (demoting || disabling) {
		apierr.Write(w, r, h.Log, apierr.Validation("you cannot demote or disable your own account"))
		return
	}
	if cur.Role == models.RoleAdmin && cur.Status == models.UserActive && (demoting || disabling) {
		n, err := users.CountAdmins(ctx)
		if err != nil {
			apierr.Write(w, r, h.Log, err)
			return
		}
		if n <= 1 {
			apierr.Write(w, r, h.Log, apierr.Conflict("cannot remove the last active admin"))
			return
		}
	}

	upd := userstore.Update{
		FullName:       in.FullName,
		Role:           in.Role,
		Status:         in.Status,
		CanApproveTime: in.CanApproveTime,
		Password:       in.Password,
	}
	if in.PersonnelID != nil {
		if *in.PersonnelID == "" {
			upd.ClearPersonnel = true
		} else {
			pid, err := primitive.ObjectIDFromHex(*in.PersonnelID)
			if err != nil {
				apierr.Write(w, r, h.Log, apierr.Validation("Personnel ID must be a valid ID."))
				return
			}
			if _, err := personnelstore.New(h.DB).GetByID(ctx, pid); err != nil {
				apierr.Write(w, r, h.Log, personnelLookupErr(err))
				return
			}
			upd.PersonnelID = &pid
		}
	}

	u, err := users.Update(ctx, id, upd)
	if err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}

	details := map[string]string{}
	if in.Role != nil {
		details["role"] = u.Role
	}
	if in.Status != nil {
		details["status"] = u.Status
	}
	if in.CanApproveTime != nil {
		details["can_approve_time"] = strconv.FormatBool(u.CanApproveTime)
	}
	if in.Password != nil {
		details["password"] = "changed"
	}
	h.AuditLog.Admin(ctx, r, actor.ID, audit.EventUserUpdated, "user", u.ID, details)

	apierr.WriteJSON(w, http.StatusOK, u)
}

// HandleDelete handles DELETE /api/users/{id}. Admins cannot delete themselves.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.CurrentUser(r)

	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		apierr.Write(w, r, h.Log, apierr.Validation("invalid user id"))
		return
	}
	if actor.ID == id.Hex() {
		apierr.Write(w, r, h.Log, apierr.Validation("you cannot delete your own account"))
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "user delete")
	defer cancel()

	users := userstore.New(h.DB)
	u, err := users.GetByID(ctx, id)
	if err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	if u.Role == models.RoleAdmin && u.Status == models.UserActive {
		n, err := users.CountAdmins(ctx)
		if err != nil {
			apierr.Write(w, r, h.Log, err)
			return
		}
		if n <= 1 {
			apierr.Write(w, r, h.Log, apierr.Conflict("cannot delete the last active admin"))
			return
		}
	}

	if _, err := users.Delete(ctx, id); err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	h.AuditLog.Admin(ctx, r, actor.ID, audit.EventUserDeleted, "user", id, map[string]string{
		"email": u.Email,
	})
	w.WriteHeader(http.StatusNoContent)
}
