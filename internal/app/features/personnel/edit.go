// internal/app/features/personnel/edit.go
package personnel

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/dalemusser/hirehub/internal/app/store/audit"
	departmentstore "github.com/dalemusser/hirehub/internal/app/store/departments"
	personnelstore "github.com/dalemusser/hirehub/internal/app/store/personnel"
	"github.com/dalemusser/hirehub/internal/app/system/apierr"
	"github.com/dalemusser/hirehub/internal/app/system/auth"
	"github.com/dalemusser/hirehub/internal/app/system/authz"
	"github.com/dalemusser/hirehub/internal/app/system/htmlsanitize"
	"github.com/dalemusser/hirehub/internal/app/system/inputval"
	"github.com/dalemusser/hirehub/internal/app/system/timeouts"
	"github.com/dalemusser/hirehub/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// HandlePatch handles PATCH /api/personnel/{id}.
func (h *Handler) HandlePatch(w http.ResponseWriter, r *http.Request) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		apierr.Write(w, r, h.Log, apierr.Validation("invalid personnel id"))
		return
	}
	u, _ := auth.CurrentUser(r)
	admin := authz.IsAdmin(u)
	if !admin && !authz.IsSelf(u, id) {
		apierr.Write(w, r, h.Log, apierr.Forbidden("you can only edit your own record"))
		return
	}

	var in patchInput
	if err := apierr.DecodeJSON(w, r, &in); err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	if !admin && in.hasAdminFields() {
		apierr.Write(w, r, h.Log, apierr.Forbidden("only preferences and profile can be changed on your own record"))
		return
	}
	if res := inputval.Validate(in); res.HasErrors() {
		apierr.Write(w, r, h.Log, apierr.Validation(res.First()))
		return
	}
	if in.Preferences != nil && in.Preferences.TimeZone != "" {
		if _, err := time.LoadLocation(in.Preferences.TimeZone); err != nil {
			apierr.Write(w, r, h.Log, apierr.Validation("Time zone is not a known IANA zone."))
			return
		}
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "personnel patch")
	defer cancel()

	upd, err := h.buildUpdate(ctx, id, in)
	if err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}

	p, err := personnelstore.New(h.DB).Update(ctx, id, upd)
	if errors.Is(err, personnelstore.ErrDuplicateEmployeeID) {
		apierr.Write(w, r, h.Log, apierr.Conflict(err.Error()))
		return
	}
	if err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}

	if admin {
		details := map[string]string{}
		if in.Status != nil {
			details["status"] = p.Status
		}
		if in.DepartmentID != nil {
			details["department"] = p.Department
		}
		if in.EmployeeID != nil {
			details["employee_id"] = p.EmployeeID
		}
		h.AuditLog.Admin(ctx, r, u.ID, audit.EventPersonnelUpdated, "personnel", p.ID, details)
	}

	apierr.WriteJSON(w, http.StatusOK, p)
}

// buildUpdate resolves references in the patch and returns the store update.
func (h *Handler) buildUpdate(ctx context.Context, id primitive.ObjectID, in patchInput) (personnelstore.Update, error) {
	people := personnelstore.New(h.DB)
	upd := personnelstore.Update{
		Role:   in.Role,
		Status: in.Status,
		Phone:  in.Phone,
	}
	if in.Role != nil {
		role := htmlsanitize.StripTags(*in.Role)
		upd.Role = &role
	}

	if in.EmployeeID != nil {
		eid := strings.TrimSpace(*in.EmployeeID)
		if eid == "" {
			return upd, apierr.Validation("Employee ID cannot be empty.")
		}
		taken, err := people.EmployeeIDExists(ctx, eid, id)
		if err != nil {
			return upd, err
		}
		if taken {
			return upd, apierr.Conflict(personnelstore.ErrDuplicateEmployeeID.Error())
		}
		upd.EmployeeID = &eid
	}

	if in.DepartmentID != nil {
		if *in.DepartmentID == "" {
			upd.ClearDepartment = true
		} else {
			did, err := primitive.ObjectIDFromHex(*in.DepartmentID)
			if err != nil {
				return upd, apierr.Validation("Department must be a valid ID.")
			}
			d, err := departmentstore.New(h.DB).GetByID(ctx, did)
			if err != nil {
				return upd, refErr(err, "department not found")
			}
			upd.DepartmentID = &d.ID
			upd.Department = &d.Name
		}
	}

	if in.ManagerID != nil {
		if *in.ManagerID == "" {
			upd.ClearManager = true
		} else {
			mid, err := primitive.ObjectIDFromHex(*in.ManagerID)
			if err != nil {
				return upd, apierr.Validation("Manager must be a valid ID.")
			}
			if mid == id {
				return upd, apierr.Validation("a person cannot be their own manager")
			}
			if _, err := people.GetByID(ctx, mid); err != nil {
				return upd, refErr(err, "manager not found")
			}
			upd.ManagerID = &mid
		}
	}

	if in.StartDate != nil {
		t, err := time.Parse("2006-01-02", *in.StartDate)
		if err != nil {
			return upd, apierr.Validation("Start date must be YYYY-MM-DD.")
		}
		upd.StartDate = &t
	}

	if in.Preferences != nil {
		prefs := in.Preferences.model()
		upd.Preferences = &prefs
	}
	if in.Profile != nil {
		upd.Profile = &models.Profile{
			Bio:       htmlsanitize.StripTags(in.Profile.Bio),
			Location:  htmlsanitize.StripTags(in.Profile.Location),
			AvatarURL: in.Profile.AvatarURL,
			Links:     in.Profile.Links,
		}
	}
	return upd, nil
}

// HandleOnboardingStep handles PATCH /api/personnel/{id}/onboarding/{step}.
func (h *Handler) HandleOnboardingStep(w http.ResponseWriter, r *http.Request) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		apierr.Write(w, r, h.Log, apierr.Validation("invalid personnel id"))
		return
	}
	u, _ := auth.CurrentUser(r)
	if !authz.IsAdmin(u) && !authz.IsSelf(u, id) {
		apierr.Write(w, r, h.Log, apierr.Forbidden("you can only update your own onboarding"))
		return
	}

	var in stepInput
	if err := apierr.DecodeJSON(w, r, &in); err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	if res := inputval.Validate(in); res.HasErrors() {
		apierr.Write(w, r, h.Log, apierr.Validation(res.First()))
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "onboarding step")
	defer cancel()

	p, err := personnelstore.New(h.DB).SetOnboardingStep(ctx, id, chi.URLParam(r, "step"), *in.Done)
	if errors.Is(err, personnelstore.ErrStepNotFound) {
		apierr.Write(w, r, h.Log, apierr.NotFound(err.Error()))
		return
	}
	if err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	apierr.WriteJSON(w, http.StatusOK, p)
}
