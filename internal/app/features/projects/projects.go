// internal/app/features/projects/projects.go
package projects

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/dalemusser/hirehub/internal/app/store/audit"
	departmentstore "github.com/dalemusser/hirehub/internal/app/store/departments"
	personnelstore "github.com/dalemusser/hirehub/internal/app/store/personnel"
	projectstore "github.com/dalemusser/hirehub/internal/app/store/projects"
	taskstore "github.com/dalemusser/hirehub/internal/app/store/tasks"
	timeentrystore "github.com/dalemusser/hirehub/internal/app/store/timeentries"
	"github.com/dalemusser/hirehub/internal/app/system/apierr"
	"github.com/dalemusser/hirehub/internal/app/system/auth"
	"github.com/dalemusser/hirehub/internal/app/system/htmlsanitize"
	"github.com/dalemusser/hirehub/internal/app/system/inputval"
	"github.com/dalemusser/hirehub/internal/app/system/linearsync"
	"github.com/dalemusser/hirehub/internal/app/system/normalize"
	"github.com/dalemusser/hirehub/internal/app/system/paging"
	"github.com/dalemusser/hirehub/internal/app/system/timeouts"
	"github.com/dalemusser/hirehub/internal/app/system/txn"
	"github.com/dalemusser/hirehub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/query"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

const dateLayout = "2006-01-02"

// ServeList handles GET /api/projects?status=&department_id=&q=.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	f := projectstore.ListFilter{
		Status: normalize.Status(query.Get(r, "status")),
		Search: query.Get(r, "q"),
	}
	if f.Status != "" && !normalize.OneOf(f.Status, models.ProjectStatuses) {
		apierr.Write(w, r, h.Log, apierr.Validation("unknown status filter"))
		return
	}
	if s := query.Get(r, "department_id"); s != "" {
		did, err := primitive.ObjectIDFromHex(s)
		if err != nil {
			apierr.Write(w, r, h.Log, apierr.Validation("invalid department id"))
			return
		}
		f.DepartmentID = &did
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "project list")
	defer cancel()

	page, err := projectstore.New(h.DB).List(ctx, f, paging.ParseParams(r))
	if err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	apierr.WriteJSON(w, http.StatusOK, page)
}

// ServeGet handles GET /api/projects/{id}.
func (h *Handler) ServeGet(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "project")
	if !ok {
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "project get")
	defer cancel()

	p, err := projectstore.New(h.DB).GetByID(ctx, id)
	if err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	apierr.WriteJSON(w, http.StatusOK, p)
}

// HandleCreate handles POST /api/projects.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.CurrentUser(r)

	var in projectInput
	if err := apierr.DecodeJSON(w, r, &in); err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	in.Name = normalize.Name(htmlsanitize.StripTags(in.Name))
	if res := inputval.Validate(in); res.HasErrors() {
		apierr.Write(w, r, h.Log, apierr.Validation(res.First()))
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "project create")
	defer cancel()

	p := models.Project{
		Name:         in.Name,
		Description:  htmlsanitize.StripTags(in.Description),
		Status:       in.Status,
		Priority:     in.Priority,
		LinearTeamID: in.LinearTeamID,
		MemberIDs:    objectIDs(in.MemberIDs),
		StartDate:    parseDate(in.StartDate),
		TargetDate:   parseDate(in.TargetDate),
	}
	if uid, err := primitive.ObjectIDFromHex(actor.ID); err == nil {
		p.CreatedBy = &uid
	}
	if in.LeadID != "" {
		lid, err := h.personnelRef(ctx, in.LeadID, "lead")
		if err != nil {
			apierr.Write(w, r, h.Log, err)
			return
		}
		p.LeadID = &lid
	}
	if in.DepartmentID != "" {
		did, err := h.departmentRef(ctx, in.DepartmentID)
		if err != nil {
			apierr.Write(w, r, h.Log, err)
			return
		}
		p.DepartmentID = &did
	}
	if p.StartDate != nil && p.TargetDate != nil && p.TargetDate.Before(*p.StartDate) {
		apierr.Write(w, r, h.Log, apierr.Validation("Target date cannot be before the start date."))
		return
	}

	created, err := projectstore.New(h.DB).Create(ctx, p)
	if err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}

	h.AuditLog.Admin(ctx, r, actor.ID, audit.EventProjectCreated, "project", created.ID, map[string]string{
		"name": created.Name,
	})
	apierr.WriteJSON(w, http.StatusCreated, created)
}

// HandlePatch handles PATCH /api/projects/{id}. A linked project is pushed
// to Linear after the save.
func (h *Handler) HandlePatch(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.CurrentUser(r)
	id, ok := h.pathID(w, r, "project")
	if !ok {
		return
	}

	var in projectPatch
	if err := apierr.DecodeJSON(w, r, &in); err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	if res := inputval.Validate(in); res.HasErrors() {
		apierr.Write(w, r, h.Log, apierr.Validation(res.First()))
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "project patch")
	defer cancel()

	upd := projectstore.Update{
		Status:       in.Status,
		Priority:     in.Priority,
		LinearTeamID: in.LinearTeamID,
		StartDate:    parseDatePtr(in.StartDate),
		TargetDate:   parseDatePtr(in.TargetDate),
	}
	if in.Name != nil {
		name := normalize.Name(htmlsanitize.StripTags(*in.Name))
		if name == "" {
			apierr.Write(w, r, h.Log, apierr.Validation("Name is required."))
			return
		}
		upd.Name = &name
	}
	if in.Description != nil {
		desc := htmlsanitize.StripTags(*in.Description)
		upd.Description = &desc
	}
	if in.MemberIDs != nil {
		ids := objectIDs(*in.MemberIDs)
		upd.MemberIDs = &ids
	}
	if in.LeadID != nil {
		if *in.LeadID == "" {
			upd.ClearLead = true
		} else {
			lid, err := h.personnelRef(ctx, *in.LeadID, "lead")
			if err != nil {
				apierr.Write(w, r, h.Log, err)
				return
			}
			upd.LeadID = &lid
		}
	}
	if in.DepartmentID != nil {
		did, err := h.departmentRef(ctx, *in.DepartmentID)
		if err != nil {
			apierr.Write(w, r, h.Log, err)
			return
		}
		upd.DepartmentID = &did
	}

	store := projectstore.New(h.DB)
	p, err := store.Update(ctx, id, upd)
	if err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	if p.LinearProjectID != "" {
		h.pushProject(r.Context(), p.ID)
		if fresh, err := store.GetByID(ctx, p.ID); err == nil {
			p = fresh
		}
	}

	h.AuditLog.Admin(ctx, r, actor.ID, audit.EventProjectUpdated, "project", p.ID, map[string]string{
		"name":   p.Name,
		"status": p.Status,
	})
	apierr.WriteJSON(w, http.StatusOK, p)
}

// HandleDelete handles DELETE /api/projects/{id}. The project's tasks are
// deleted with it; the Linear mirror is left untouched. Projects with
// logged time are refused with 409 so the time summary keeps its project.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.CurrentUser(r)
	id, ok := h.pathID(w, r, "project")
	if !ok {
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Long(), h.Log, "project delete")
	defer cancel()

	var tasksDeleted int64
	err := txn.Run(ctx, h.DB, h.Log, func(ctx context.Context) error {
		if _, err := projectstore.New(h.DB).GetByID(ctx, id); errors.Is(err, mongo.ErrNoDocuments) {
			return apierr.NotFound("project not found")
		} else if err != nil {
			return err
		}
		entries, err := timeentrystore.New(h.DB).CountByProject(ctx, id)
		if err != nil {
			return err
		}
		if entries > 0 {
			return apierr.Conflict("project has logged time entries; mark it completed or cancelled instead")
		}
		n, err := projectstore.New(h.DB).Delete(ctx, id)
		if err != nil {
			return err
		}
		if n == 0 {
			return apierr.NotFound("project not found")
		}
		tasksDeleted, err = taskstore.New(h.DB).DeleteByProject(ctx, id)
		return err
	})
	if err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}

	h.Log.Info("project deleted",
		zap.String("project_id", id.Hex()),
		zap.Int64("tasks_deleted", tasksDeleted))
	h.AuditLog.Admin(ctx, r, actor.ID, audit.EventProjectDeleted, "project", id, nil)
	w.WriteHeader(http.StatusNoContent)
}

// HandleSync handles POST /api/projects/{id}/sync: pushes the project and
// its unsynced tasks to Linear.
func (h *Handler) HandleSync(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "project")
	if !ok {
		return
	}
	if h.Sync == nil {
		apierr.Write(w, r, h.Log, apierr.Validation("Linear is not connected"))
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Batch(), h.Log, "project sync")
	defer cancel()

	if _, err := projectstore.New(h.DB).GetByID(ctx, id); err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	res, err := h.Sync.SyncProject(ctx, id)
	if err != nil {
		apierr.Write(w, r, h.Log, syncErr(err))
		return
	}
	p, err := projectstore.New(h.DB).GetByID(ctx, id)
	if err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	apierr.WriteJSON(w, http.StatusOK, map[string]any{
		"project":         p,
		"tasks_attempted": res.TasksAttempted,
		"tasks_synced":    res.TasksSynced,
	})
}

// syncErr maps sync failures the caller can fix to 400. Remote failures
// stay 500 and are logged.
func syncErr(err error) error {
	switch {
	case errors.Is(err, linearsync.ErrNotConnected), errors.Is(err, linearsync.ErrNoTeam):
		return apierr.Validation(err.Error())
	}
	return err
}

func (h *Handler) pathID(w http.ResponseWriter, r *http.Request, what string) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		apierr.Write(w, r, h.Log, apierr.Validation("invalid "+what+" id"))
		return primitive.NilObjectID, false
	}
	return id, true
}

// personnelRef checks that hex names an existing personnel record.
func (h *Handler) personnelRef(ctx context.Context, hex, what string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(hex)
	if err != nil {
		return primitive.NilObjectID, apierr.Validation("invalid " + what + " id")
	}
	if _, err := personnelstore.New(h.DB).GetByID(ctx, id); err != nil {
		if apierr.GetCode(err) == apierr.CodeNotFound {
			return primitive.NilObjectID, apierr.Validation(what + " not found")
		}
		return primitive.NilObjectID, err
	}
	return id, nil
}

func (h *Handler) departmentRef(ctx context.Context, hex string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(hex)
	if err != nil {
		return primitive.NilObjectID, apierr.Validation("invalid department id")
	}
	if _, err := departmentstore.New(h.DB).GetByID(ctx, id); err != nil {
		if apierr.GetCode(err) == apierr.CodeNotFound {
			return primitive.NilObjectID, apierr.Validation("department not found")
		}
		return primitive.NilObjectID, err
	}
	return id, nil
}

// objectIDs converts validated hex ids, dropping duplicates.
func objectIDs(hexes []string) []primitive.ObjectID {
	out := make([]primitive.ObjectID, 0, len(hexes))
	seen := map[primitive.ObjectID]bool{}
	for _, s := range hexes {
		id, err := primitive.ObjectIDFromHex(s)
		if err != nil || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

// parseDate parses a validated YYYY-MM-DD value; empty yields nil.
func parseDate(s string) *time.Time {
	if s == "" {
		return nil
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return nil
	}
	return &t
}

func parseDatePtr(s *string) *time.Time {
	if s == nil {
		return nil
	}
	return parseDate(*s)
}
