// internal/app/features/timeentries/entries.go
package timeentries

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	personnelstore "github.com/dalemusser/hirehub/internal/app/store/personnel"
	projectstore "github.com/dalemusser/hirehub/internal/app/store/projects"
	taskstore "github.com/dalemusser/hirehub/internal/app/store/tasks"
	timeentrystore "github.com/dalemusser/hirehub/internal/app/store/timeentries"
	"github.com/dalemusser/hirehub/internal/app/system/apierr"
	"github.com/dalemusser/hirehub/internal/app/system/auth"
	"github.com/dalemusser/hirehub/internal/app/system/authz"
	"github.com/dalemusser/hirehub/internal/app/system/htmlsanitize"
	"github.com/dalemusser/hirehub/internal/app/system/inputval"
	"github.com/dalemusser/hirehub/internal/app/system/timeouts"
	"github.com/dalemusser/hirehub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/query"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// HandleCreate handles POST /api/time-entries. Personnel log time for
// themselves; admins may log for anyone through personnel_id.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	u, _ := auth.CurrentUser(r)

	var in createInput
	if err := apierr.DecodeJSON(w, r, &in); err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	if res := inputval.Validate(in); res.HasErrors() {
		apierr.Write(w, r, h.Log, apierr.Validation(res.First()))
		return
	}

	start, err := parseInstant(in.StartedAt, "Start time")
	if err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	end, err := parseInstant(in.EndedAt, "End time")
	if err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	sp, err := resolveSpan(start, end, in.DurationMinutes)
	if err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "time entry create")
	defer cancel()

	pid, err := h.owner(ctx, u, in.PersonnelID)
	if err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}

	projectID, _ := primitive.ObjectIDFromHex(in.ProjectID)
	var taskID *primitive.ObjectID
	if in.TaskID != "" {
		tid, _ := primitive.ObjectIDFromHex(in.TaskID)
		taskID = &tid
	}
	if err := h.checkWork(ctx, projectID, taskID); err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}

	day := time.Now().UTC()
	switch {
	case in.Date != "":
		day, _ = time.Parse(dateLayout, in.Date)
	case sp.Start != nil:
		day = *sp.Start
	}

	e, err := timeentrystore.New(h.DB).Create(ctx, models.TimeEntry{
		PersonnelID:     pid,
		ProjectID:       projectID,
		TaskID:          taskID,
		Description:     htmlsanitize.StripTags(in.Description),
		Date:            day,
		StartedAt:       sp.Start,
		EndedAt:         sp.End,
		DurationMinutes: sp.Minutes,
		Billable:        in.Billable,
	})
	if err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	apierr.WriteJSON(w, http.StatusCreated, e)
}

// owner resolves whose entry is being created.
func (h *Handler) owner(ctx context.Context, u *auth.SessionUser, requested string) (primitive.ObjectID, error) {
	self, linked := authz.PersonnelID(u)
	if !authz.IsAdmin(u) {
		if !linked {
			return primitive.NilObjectID, apierr.Forbidden("your account is not linked to a personnel record")
		}
		if requested != "" && requested != self.Hex() {
			return primitive.NilObjectID, apierr.Forbidden("you can only log time for yourself")
		}
		return self, nil
	}
	if requested == "" {
		if !linked {
			return primitive.NilObjectID, apierr.Validation("Personnel is required.")
		}
		return self, nil
	}
	pid, _ := primitive.ObjectIDFromHex(requested)
	if _, err := personnelstore.New(h.DB).GetByID(ctx, pid); err != nil {
		if apierr.GetCode(err) == apierr.CodeNotFound {
			return primitive.NilObjectID, apierr.Validation("personnel not found")
		}
		return primitive.NilObjectID, err
	}
	return pid, nil
}

// checkWork verifies the project exists and the task, when given, belongs to it.
func (h *Handler) checkWork(ctx context.Context, projectID primitive.ObjectID, taskID *primitive.ObjectID) error {
	if _, err := projectstore.New(h.DB).GetByID(ctx, projectID); err != nil {
		if apierr.GetCode(err) == apierr.CodeNotFound {
			return apierr.Validation("project not found")
		}
		return err
	}
	if taskID == nil {
		return nil
	}
	t, err := taskstore.New(h.DB).GetByID(ctx, *taskID)
	if err != nil {
		if apierr.GetCode(err) == apierr.CodeNotFound {
			return apierr.Validation("task not found")
		}
		return err
	}
	if t.ProjectID != projectID {
		return apierr.Validation("task does not belong to the project")
	}
	return nil
}

// ServeList handles GET /api/time-entries. Personnel see only their own
// entries; admins and approvers may filter by personnel_id.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	u, _ := auth.CurrentUser(r)
	f, err := h.listFilter(r, u)
	if err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	if s := query.Get(r, "approved"); s != "" {
		b, err := strconv.ParseBool(s)
		if err != nil {
			apierr.Write(w, r, h.Log, apierr.Validation("approved must be true or false"))
			return
		}
		f.Approved = &b
	}
	f.Limit = int64(intParam(r, "limit"))
	f.Offset = int64(intParam(r, "offset"))

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "time entry list")
	defer cancel()

	items, err := timeentrystore.New(h.DB).List(ctx, f)
	if err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	apierr.WriteJSON(w, http.StatusOK, map[string]any{"items": items})
}

// ServeSummary handles GET /api/time-entries/summary: minutes per project
// for the entries the list endpoint would return.
func (h *Handler) ServeSummary(w http.ResponseWriter, r *http.Request) {
	u, _ := auth.CurrentUser(r)
	f, err := h.listFilter(r, u)
	if err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "time entry summary")
	defer cancel()

	rows, err := timeentrystore.New(h.DB).Summary(ctx, f)
	if err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	var total int64
	for _, row := range rows {
		total += row.TotalMinutes
	}
	apierr.WriteJSON(w, http.StatusOK, map[string]any{
		"items":         rows,
		"total_minutes": total,
	})
}

// listFilter reads personnel_id, project_id, from and to. "to" is an
// inclusive day.
func (h *Handler) listFilter(r *http.Request, u *auth.SessionUser) (timeentrystore.ListFilter, error) {
	var f timeentrystore.ListFilter

	if authz.IsAdmin(u) || authz.CanApproveTime(u) {
		if s := query.Get(r, "personnel_id"); s != "" {
			pid, err := primitive.ObjectIDFromHex(s)
			if err != nil {
				return f, apierr.Validation("invalid personnel id")
			}
			f.PersonnelID = &pid
		}
	} else {
		pid, ok := authz.PersonnelID(u)
		if !ok {
			return f, apierr.Forbidden("your account is not linked to a personnel record")
		}
		f.PersonnelID = &pid
	}

	if s := query.Get(r, "project_id"); s != "" {
		pid, err := primitive.ObjectIDFromHex(s)
		if err != nil {
			return f, apierr.Validation("invalid project id")
		}
		f.ProjectID = &pid
	}
	if s := query.Get(r, "from"); s != "" {
		t, err := time.Parse(dateLayout, s)
		if err != nil {
			return f, apierr.Validation("from must be YYYY-MM-DD")
		}
		f.From = &t
	}
	if s := query.Get(r, "to"); s != "" {
		t, err := time.Parse(dateLayout, s)
		if err != nil {
			return f, apierr.Validation("to must be YYYY-MM-DD")
		}
		t = t.AddDate(0, 0, 1)
		f.To = &t
	}
	if f.From != nil && f.To != nil && !f.To.After(*f.From) {
		return f, apierr.Validation("to cannot be before from")
	}
	return f, nil
}

func intParam(r *http.Request, name string) int {
	n, err := strconv.Atoi(query.Get(r, name))
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// ServeGet handles GET /api/time-entries/{id}.
func (h *Handler) ServeGet(w http.ResponseWriter, r *http.Request) {
	u, _ := auth.CurrentUser(r)
	id, ok := h.entryID(w, r)
	if !ok {
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "time entry get")
	defer cancel()

	e, err := timeentrystore.New(h.DB).GetByID(ctx, id)
	if err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	if !authz.IsAdmin(u) && !authz.CanApproveTime(u) && !authz.IsSelf(u, e.PersonnelID) {
		apierr.Write(w, r, h.Log, apierr.Forbidden("you can only view your own time entries"))
		return
	}
	apierr.WriteJSON(w, http.StatusOK, e)
}

// HandlePatch handles PATCH /api/time-entries/{id}. Owners and admins may
// edit; approved entries additionally require the approval permission.
func (h *Handler) HandlePatch(w http.ResponseWriter, r *http.Request) {
	u, _ := auth.CurrentUser(r)
	id, ok := h.entryID(w, r)
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

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "time entry patch")
	defer cancel()

	store := timeentrystore.New(h.DB)
	cur, err := h.editable(ctx, u, store, id)
	if err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}

	upd, err := h.buildUpdate(ctx, cur, in)
	if err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}

	e, err := store.Update(ctx, id, upd, authz.CanApproveTime(u))
	if err != nil {
		apierr.Write(w, r, h.Log, approvedErr(err))
		return
	}
	apierr.WriteJSON(w, http.StatusOK, e)
}

// buildUpdate merges the patch onto cur and re-checks the timing and
// project/task rules against the result.
func (h *Handler) buildUpdate(ctx context.Context, cur *models.TimeEntry, in patchInput) (timeentrystore.Update, error) {
	upd := timeentrystore.Update{Billable: in.Billable}

	projectID := cur.ProjectID
	taskID := cur.TaskID
	if in.ProjectID != nil {
		projectID, _ = primitive.ObjectIDFromHex(*in.ProjectID)
		upd.ProjectID = &projectID
	}
	if in.TaskID != nil {
		if *in.TaskID == "" {
			upd.ClearTask = true
			taskID = nil
		} else {
			tid, err := primitive.ObjectIDFromHex(*in.TaskID)
			if err != nil {
				return upd, apierr.Validation("invalid task id")
			}
			upd.TaskID = &tid
			taskID = &tid
		}
	}
	if in.ProjectID != nil || in.TaskID != nil {
		if err := h.checkWork(ctx, projectID, taskID); err != nil {
			return upd, err
		}
	}

	if in.Description != nil {
		desc := htmlsanitize.StripTags(*in.Description)
		upd.Description = &desc
	}
	if in.Date != nil {
		d, _ := time.Parse(dateLayout, *in.Date)
		upd.Date = &d
	}

	if in.StartedAt != nil || in.EndedAt != nil || in.DurationMinutes != nil {
		start, end := cur.StartedAt, cur.EndedAt
		var err error
		if in.StartedAt != nil {
			if start, err = parseInstant(*in.StartedAt, "Start time"); err != nil {
				return upd, err
			}
		}
		if in.EndedAt != nil {
			if end, err = parseInstant(*in.EndedAt, "End time"); err != nil {
				return upd, err
			}
		}
		minutes := 0
		if in.DurationMinutes != nil {
			minutes = *in.DurationMinutes
			// A bare duration replaces stored start and end times.
			if in.StartedAt == nil && in.EndedAt == nil {
				start, end = nil, nil
			}
		}
		sp, err := resolveSpan(start, end, minutes)
		if err != nil {
			return upd, err
		}
		if sp.Start == nil {
			upd.ClearTimes = true
		} else {
			upd.StartedAt, upd.EndedAt = sp.Start, sp.End
		}
		upd.DurationMinutes = &sp.Minutes
	}
	return upd, nil
}

// HandleDelete handles DELETE /api/time-entries/{id}.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	u, _ := auth.CurrentUser(r)
	id, ok := h.entryID(w, r)
	if !ok {
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "time entry delete")
	defer cancel()

	store := timeentrystore.New(h.DB)
	if _, err := h.editable(ctx, u, store, id); err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	if err := store.Delete(ctx, id, authz.CanApproveTime(u)); err != nil {
		apierr.Write(w, r, h.Log, approvedErr(err))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// editable loads the entry and checks the caller owns it or is an admin.
// Approved entries are refused for callers without the approval permission.
func (h *Handler) editable(ctx context.Context, u *auth.SessionUser, store *timeentrystore.Store, id primitive.ObjectID) (*models.TimeEntry, error) {
	e, err := store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !authz.IsAdmin(u) && !authz.IsSelf(u, e.PersonnelID) {
		return nil, apierr.Forbidden("you can only change your own time entries")
	}
	if e.IsApproved && !authz.CanApproveTime(u) {
		return nil, apierr.Forbidden(timeentrystore.ErrApproved.Error())
	}
	return e, nil
}

func approvedErr(err error) error {
	if errors.Is(err, timeentrystore.ErrApproved) {
		return apierr.Forbidden(err.Error())
	}
	return err
}

func (h *Handler) entryID(w http.ResponseWriter, r *http.Request) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		apierr.Write(w, r, h.Log, apierr.Validation("invalid time entry id"))
		return primitive.NilObjectID, false
	}
	return id, true
}
