// internal/app/features/personnel/delete.go
package personnel

import (
	"context"
	"net/http"

	applicationstore "github.com/dalemusser/hirehub/internal/app/store/applications"
	"github.com/dalemusser/hirehub/internal/app/store/audit"
	personnelstore "github.com/dalemusser/hirehub/internal/app/store/personnel"
	userstore "github.com/dalemusser/hirehub/internal/app/store/users"
	"github.com/dalemusser/hirehub/internal/app/system/apierr"
	"github.com/dalemusser/hirehub/internal/app/system/auth"
	"github.com/dalemusser/hirehub/internal/app/system/timeouts"
	"github.com/dalemusser/hirehub/internal/app/system/txn"
	"github.com/dalemusser/hirehub/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// HandleDelete handles DELETE /api/personnel/{id}. The source application
// and any linked login account lose their link; time entries stay.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.CurrentUser(r)

	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		apierr.Write(w, r, h.Log, apierr.Validation("invalid personnel id"))
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Long(), h.Log, "personnel delete")
	defer cancel()

	var deleted *models.Personnel
	err = txn.Run(ctx, h.DB, h.Log, func(ctx context.Context) error {
		var err error
		if deleted, err = personnelstore.New(h.DB).Delete(ctx, id); err != nil {
			return err
		}
		if err := applicationstore.New(h.DB).UnlinkPersonnel(ctx, deleted.ApplicationID); err != nil {
			return err
		}
		return userstore.New(h.DB).UnlinkPersonnel(ctx, id)
	})
	if err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}

	h.Log.Info("personnel deleted",
		zap.String("personnel_id", id.Hex()),
		zap.String("employee_id", deleted.EmployeeID))
	h.AuditLog.Admin(ctx, r, actor.ID, audit.EventPersonnelDeleted, "personnel", id, map[string]string{
		"employee_id": deleted.EmployeeID,
	})
	w.WriteHeader(http.StatusNoContent)
}
