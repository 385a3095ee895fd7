// internal/app/features/users/create.go
package users

import (
	"errors"
	"net/http"

	"github.com/dalemusser/hirehub/internal/app/store/audit"
	personnelstore "github.com/dalemusser/hirehub/internal/app/store/personnel"
	userstore "github.com/dalemusser/hirehub/internal/app/store/users"
	"github.com/dalemusser/hirehub/internal/app/system/apierr"
	"github.com/dalemusser/hirehub/internal/app/system/auth"
	"github.com/dalemusser/hirehub/internal/app/system/authutil"
	"github.com/dalemusser/hirehub/internal/app/system/inputval"
	"github.com/dalemusser/hirehub/internal/app/system/timeouts"
	"github.com/dalemusser/hirehub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// HandleCreate handles POST /api/users.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.CurrentUser(r)

	var in createInput
	if err := apierr.DecodeJSON(w, r, &in); err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	if res := inputval.Validate(in); res.HasErrors() {
		apierr.Write(w, r, h.Log, apierr.Validation(res.First()))
		return
	}
	// An account without a password can exist but cannot sign in.
	if in.Password != "" {
		if err := authutil.ValidatePassword(in.Password); err != nil {
			apierr.Write(w, r, h.Log, apierr.Validation(err.Error()))
			return
		}
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "user create")
	defer cancel()

	u := models.User{
		FullName:       in.FullName,
		Email:          in.Email,
		Role:           in.Role,
		Status:         in.Status,
		CanApproveTime: in.CanApproveTime,
	}
	if in.PersonnelID != nil && *in.PersonnelID != "" {
		pid, _ := primitive.ObjectIDFromHex(*in.PersonnelID)
		if _, err := personnelstore.New(h.DB).GetByID(ctx, pid); err != nil {
			apierr.Write(w, r, h.Log, personnelLookupErr(err))
			return
		}
		u.PersonnelID = &pid
	}

	created, err := userstore.New(h.DB).Create(ctx, u, in.Password)
	if errors.Is(err, userstore.ErrDuplicateEmail) {
		apierr.Write(w, r, h.Log, apierr.Conflict(err.Error()))
		return
	}
	if err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}

	h.Log.Info("user created",
		zap.String("user_id", created.ID.Hex()),
		zap.String("role", created.Role))
	h.AuditLog.Admin(ctx, r, actor.ID, audit.EventUserCreated, "user", created.ID, map[string]string{
		"email": created.Email,
		"role":  created.Role,
	})

	apierr.WriteJSON(w, http.StatusCreated, created)
}

func personnelLookupErr(err error) error {
	if apierr.GetCode(err) == apierr.CodeNotFound {
		return apierr.Validation("personnel record not found")
	}
	return err
}
