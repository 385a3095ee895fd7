// internal/app/features/timeentries/approval.go
package timeentries

import (
	"net/http"

	timeentrystore "github.com/dalemusser/hirehub/internal/app/store/timeentries"
	"github.com/dalemusser/hirehub/internal/app/system/apierr"
	"github.com/dalemusser/hirehub/internal/app/system/auth"
	"github.com/dalemusser/hirehub/internal/app/system/authz"
	"github.com/dalemusser/hirehub/internal/app/system/timeouts"
	"go.uber.org/zap"
)

// HandleApprove handles POST /api/time-entries/{id}/approve.
func (h *Handler) HandleApprove(w http.ResponseWriter, r *http.Request) {
	h.setApproval(w, r, true)
}

// HandleUnapprove handles POST /api/time-entries/{id}/unapprove.
func (h *Handler) HandleUnapprove(w http.ResponseWriter, r *http.Request) {
	h.setApproval(w, r, false)
}

func (h *Handler) setApproval(w http.ResponseWriter, r *http.Request, approved bool) {
	u, _ := auth.CurrentUser(r)
	if !authz.CanApproveTime(u) {
		apierr.Write(w, r, h.Log, apierr.Forbidden("you do not have permission to approve time"))
		return
	}
	by, ok := authz.UserID(u)
	if !ok {
		apierr.Write(w, r, h.Log, apierr.Unauthorized("invalid session"))
		return
	}
	id, ok := h.entryID(w, r)
	if !ok {
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "time entry approval")
	defer cancel()

	e, err := timeentrystore.New(h.DB).SetApproval(ctx, id, approved, by)
	if err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}

	h.Log.Info("time entry approval changed",
		zap.String("entry_id", id.Hex()),
		zap.Bool("approved", approved),
		zap.String("by", u.ID))
	h.AuditLog.TimeEntryApproval(ctx, r, u.ID, id, approved)
	apierr.WriteJSON(w, http.StatusOK, e)
}
