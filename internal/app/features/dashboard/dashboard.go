// internal/app/features/dashboard/dashboard.go
package dashboard

import (
	"net/http"
	"time"

	metricsstore "github.com/dalemusser/hirehub/internal/app/store/metrics"
	personnelstore "github.com/dalemusser/hirehub/internal/app/store/personnel"
	"github.com/dalemusser/hirehub/internal/app/system/apierr"
	"github.com/dalemusser/hirehub/internal/app/system/auth"
	"github.com/dalemusser/hirehub/internal/app/system/authz"
	"github.com/dalemusser/hirehub/internal/app/system/timeouts"
	"github.com/dalemusser/hirehub/internal/domain/models"
	"go.uber.org/zap"
)

// ServeAdmin handles GET /api/dashboard/admin.
func (h *Handler) ServeAdmin(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "admin dashboard")
	defer cancel()

	counts, err := metricsstore.FetchAdminCounts(ctx, h.DB)
	if err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	apierr.WriteJSON(w, http.StatusOK, counts)
}

type meResponse struct {
	Personnel *models.Personnel `json:"personnel"`
	metricsstore.Personal
}

// ServeMe handles GET /api/dashboard/me for the caller's own personnel record.
func (h *Handler) ServeMe(w http.ResponseWriter, r *http.Request) {
	u, _ := auth.CurrentUser(r)
	pid, ok := authz.PersonnelID(u)
	if !ok {
		apierr.Write(w, r, h.Log, apierr.Forbidden("no personnel record is linked to this account"))
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "personal dashboard")
	defer cancel()

	p, err := personnelstore.New(h.DB).GetByID(ctx, pid)
	if err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}

	stats, err := metricsstore.FetchPersonal(ctx, h.DB, p, localToday(p.Preferences.TimeZone, time.Now(), h.Log))
	if err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	apierr.WriteJSON(w, http.StatusOK, meResponse{Personnel: p, Personal: stats})
}

// localToday returns the calendar day of now in the named zone, expressed
// as UTC midnight to match how time entries store their date.
func localToday(zone string, now time.Time, log *zap.Logger) time.Time {
	loc := time.UTC
	if zone != "" {
		if l, err := time.LoadLocation(zone); err == nil {
			loc = l
		} else {
			log.Debug("unknown personnel time zone", zap.String("zone", zone))
		}
	}
	y, m, d := now.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
