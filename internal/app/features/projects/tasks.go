// internal/app/features/projects/tasks.go
package projects

import (
	"net/http"
	"strings"

	projectstore "github.com/dalemusser/hirehub/internal/app/store/projects"
	taskstore "github.com/dalemusser/hirehub/internal/app/store/tasks"
	"github.com/dalemusser/hirehub/internal/app/system/apierr"
	"github.com/dalemusser/hirehub/internal/app/system/auth"
	"github.com/dalemusser/hirehub/internal/app/system/authz"
	"github.com/dalemusser/hirehub/internal/app/system/htmlsanitize"
	"github.com/dalemusser/hirehub/internal/app/system/inputval"
	"github.com/dalemusser/hirehub/internal/app/system/normalize"
	"github.com/dalemusser/hirehub/internal/app/system/paging"
	"github.com/dalemusser/hirehub/internal/app/system/timeouts"
	"github.com/dalemusser/hirehub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/query"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// ServeProjectTasks handles GET /api/projects/{id}/tasks.
func (h *Handler) ServeProjectTasks(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "project")
	if !ok {
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "project tasks")
	defer cancel()

	if _, err := projectstore.New(h.DB).GetByID(ctx, id); err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	f, err := taskFilter(r)
	if err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	f.ProjectID = &id

	page, err := taskstore.New(h.DB).List(ctx, f, paging.ParseParams(r))
	if err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	apierr.WriteJSON(w, http.StatusOK, page)
}

// ServeTasks handles GET /api/tasks?assignee=me|<id>&status=&project_id=&q=.
func (h *Handler) ServeTasks(w http.ResponseWriter, r *http.Request) {
	f, err := taskFilter(r)
	if err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	if s := query.Get(r, "project_id"); s != "" {
		pid, err := primitive.ObjectIDFromHex(s)
		if err != nil {
			apierr.Write(w, r, h.Log, apierr.Validation("invalid project id"))
			return
		}
		f.ProjectID = &pid
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "task list")
	defer cancel()

	page, err := taskstore.New(h.DB).List(ctx, f, paging.ParseParams(r))
	if err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	apierr.WriteJSON(w, http.StatusOK, page)
}

// taskFilter reads the status, search and assignee filters. assignee=me
// resolves to the caller's personnel record.
func taskFilter(r *http.Request) (taskstore.ListFilter, error) {
	f := taskstore.ListFilter{
		Status: normalize.Status(query.Get(r, "status")),
		Search: query.Get(r, "q"),
	}
	if f.Status != "" && !normalize.OneOf(f.Status, models.TaskStatuses) {
		return f, apierr.Validation("unknown status filter")
	}
	switch a := strings.TrimSpace(query.Get(r, "assignee")); a {
	case "":
	case "me":
		u, _ := auth.CurrentUser(r)
		pid, ok := authz.PersonnelID(u)
		if !ok {
			return f, apierr.Validation("your account is not linked to a personnel record")
		}
		f.AssigneeID = &pid
	default:
		pid, err := primitive.ObjectIDFromHex(a)
		if err != nil {
			return f, apierr.Validation("invalid assignee id")
		}
		f.AssigneeID = &pid
	}
	return f, nil
}

// ServeTask handles GET /api/tasks/{id}.
func (h *Handler) ServeTask(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "task")
	if !ok {
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "task get")
	defer cancel()

	t, err := taskstore.New(h.DB).GetByID(ctx, id)
	if err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	apierr.WriteJSON(w, http.StatusOK, t)
}

// HandleCreateTask handles POST /api/projects/{id}/tasks. The task is pushed
// to Linear when the project is linked.
func (h *Handler) HandleCreateTask(w http.ResponseWriter, r *http.Request) {
	projectID, ok := h.pathID(w, r, "project")
	if !ok {
		return
	}

	var in taskInput
	if err := apierr.DecodeJSON(w, r, &in); err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	in.Title = normalize.Name(htmlsanitize.StripTags(in.Title))
	if res := inputval.Validate(in); res.HasErrors() {
		apierr.Write(w, r, h.Log, apierr.Validation(res.First()))
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "task create")
	defer cancel()

	p, err := projectstore.New(h.DB).GetByID(ctx, projectID)
	if err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}

	t := models.Task{
		ProjectID:     p.ID,
		Title:         in.Title,
		Description:   htmlsanitize.StripTags(in.Description),
		Status:        in.Status,
		Priority:      in.Priority,
		DueDate:       parseDate(in.DueDate),
		EstimateHours: in.EstimateHours,
	}
	if in.AssigneeID != "" {
		aid, err := h.personnelRef(ctx, in.AssigneeID, "assignee")
		if err != nil {
			apierr.Write(w, r, h.Log, err)
			return
		}
		t.AssigneeID = &aid
	}

	store := taskstore.New(h.DB)
	created, err := store.Create(ctx, t)
	if err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	out := &created
	if p.LinearProjectID != "" {
		h.pushTask(r.Context(), created.ID)
		if fresh, err := store.GetByID(ctx, created.ID); err == nil {
			out = fresh
		}
	}

	h.Log.Info("task created",
		zap.String("task_id", created.ID.Hex()),
		zap.String("project_id", p.ID.Hex()),
		zap.String("sync_status", out.SyncStatus))
	apierr.WriteJSON(w, http.StatusCreated, out)
}

// HandlePatchTask handles PATCH /api/tasks/{id}. Admins may change every
// field; the assignee may change only the status.
func (h *Handler) HandlePatchTask(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "task")
	if !ok {
		return
	}
	u, _ := auth.CurrentUser(r)

	var in taskPatch
	if err := apierr.DecodeJSON(w, r, &in); err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	if res := inputval.Validate(in); res.HasErrors() {
		apierr.Write(w, r, h.Log, apierr.Validation(res.First()))
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "task patch")
	defer cancel()

	store := taskstore.New(h.DB)
	cur, err := store.GetByID(ctx, id)
	if err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}

	upd := taskstore.Update{
		Status:        in.Status,
		Priority:      in.Priority,
		EstimateHours: in.EstimateHours,
	}
	if in.Title != nil {
		title := normalize.Name(htmlsanitize.StripTags(*in.Title))
		if title == "" {
			apierr.Write(w, r, h.Log, apierr.Validation("Title is required."))
			return
		}
		upd.Title = &title
	}
	if in.Description != nil {
		desc := htmlsanitize.StripTags(*in.Description)
		upd.Description = &desc
	}
	if in.DueDate != nil {
		if *in.DueDate == "" {
			upd.ClearDueDate = true
		} else if upd.DueDate = parseDate(*in.DueDate); upd.DueDate == nil {
			apierr.Write(w, r, h.Log, apierr.Validation("Due date must be YYYY-MM-DD."))
			return
		}
	}

	if !authz.IsAdmin(u) {
		if cur.AssigneeID == nil || !authz.IsSelf(u, *cur.AssigneeID) {
			apierr.Write(w, r, h.Log, apierr.Forbidden("only the assignee or an admin can update this task"))
			return
		}
		if !upd.StatusOnly() || in.AssigneeID != nil {
			apierr.Write(w, r, h.Log, apierr.Forbidden("assignees can only change the task status"))
			return
		}
	}

	if in.AssigneeID != nil {
		if *in.AssigneeID == "" {
			upd.ClearAssignee = true
		} else {
			aid, err := h.personnelRef(ctx, *in.AssigneeID, "assignee")
			if err != nil {
				apierr.Write(w, r, h.Log, err)
				return
			}
			upd.AssigneeID = &aid
		}
	}

	t, err := store.Update(ctx, id, upd)
	if err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	if t.LinearIssueID != "" || t.SyncStatus == models.SyncFailed {
		h.pushTask(r.Context(), t.ID)
		if fresh, err := store.GetByID(ctx, t.ID); err == nil {
			t = fresh
		}
	}
	apierr.WriteJSON(w, http.StatusOK, t)
}

// HandleDeleteTask handles DELETE /api/tasks/{id}.
func (h *Handler) HandleDeleteTask(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "task")
	if !ok {
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "task delete")
	defer cancel()

	n, err := taskstore.New(h.DB).Delete(ctx, id)
	if err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	if n == 0 {
		apierr.Write(w, r, h.Log, apierr.NotFound("task not found"))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
