// internal/app/features/auditlog/list.go
package auditlog

import (
	"net/http"
	"strconv"
	"time"

	"github.com/dalemusser/hirehub/internal/app/store/audit"
	userstore "github.com/dalemusser/hirehub/internal/app/store/users"
	"github.com/dalemusser/hirehub/internal/app/system/apierr"
	"github.com/dalemusser/hirehub/internal/app/system/timeouts"
	"github.com/dalemusser/waffle/pantry/query"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

const (
	pageSize    = 50
	maxPageSize = 200
)

// ServeList handles GET /api/audit.
//
// Query parameters: category, event_type, user_id, start_date and end_date
// (YYYY-MM-DD, inclusive), limit, offset.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Long(), h.Log, "audit log list")
	defer cancel()

	filter := audit.QueryFilter{
		Category:  query.Get(r, "category"),
		EventType: query.Get(r, "event_type"),
		Limit:     pageSize,
	}
	if s := query.Get(r, "limit"); s != "" {
		if n, err := strconv.ParseInt(s, 10, 64); err == nil && n > 0 {
			filter.Limit = min(n, maxPageSize)
		}
	}
	if s := query.Get(r, "offset"); s != "" {
		if n, err := strconv.ParseInt(s, 10, 64); err == nil && n > 0 {
			filter.Offset = n
		}
	}
	if s := query.Get(r, "user_id"); s != "" {
		oid, err := primitive.ObjectIDFromHex(s)
		if err != nil {
			apierr.Write(w, r, h.Log, apierr.Validation("user_id must be a valid ID"))
			return
		}
		filter.UserID = &oid
	}
	if s := query.Get(r, "start_date"); s != "" {
		t, err := time.Parse("2006-01-02", s)
		if err != nil {
			apierr.Write(w, r, h.Log, apierr.Validation("start_date must be YYYY-MM-DD"))
			return
		}
		filter.StartTime = &t
	}
	if s := query.Get(r, "end_date"); s != "" {
		t, err := time.Parse("2006-01-02", s)
		if err != nil {
			apierr.Write(w, r, h.Log, apierr.Validation("end_date must be YYYY-MM-DD"))
			return
		}
		// end of day
		end := t.Add(24*time.Hour - time.Nanosecond)
		filter.EndTime = &end
	}

	auditStore := audit.New(h.DB)
	events, err := auditStore.Query(ctx, filter)
	if err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	total, err := auditStore.CountByFilter(ctx, filter)
	if err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}

	// Resolve actor and subject names in one batch.
	idSet := make(map[primitive.ObjectID]struct{})
	for _, e := range events {
		if e.ActorID != nil {
			idSet[*e.ActorID] = struct{}{}
		}
		if e.UserID != nil {
			idSet[*e.UserID] = struct{}{}
		}
	}
	names := make(map[primitive.ObjectID]string, len(idSet))
	if len(idSet) > 0 {
		ids := make([]primitive.ObjectID, 0, len(idSet))
		for id := range idSet {
			ids = append(ids, id)
		}
		users, err := userstore.New(h.DB).GetByIDs(ctx, ids)
		if err != nil {
			h.Log.Warn("failed to fetch user names for audit log", zap.Error(err))
		}
		for _, u := range users {
			names[u.ID] = u.FullName
		}
	}

	items := make([]listItem, 0, len(events))
	for _, e := range events {
		it := listItem{Event: e}
		if e.ActorID != nil {
			it.ActorName = names[*e.ActorID]
		}
		if e.UserID != nil {
			it.UserName = names[*e.UserID]
		}
		items = append(items, it)
	}

	apierr.WriteJSON(w, http.StatusOK, listResponse{
		Items:  items,
		Total:  total,
		Limit:  filter.Limit,
		Offset: filter.Offset,
	})
}
