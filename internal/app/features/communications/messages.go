// internal/app/features/communications/messages.go
package communications

import (
	"net/http"

	communicationstore "github.com/dalemusser/hirehub/internal/app/store/communications"
	"github.com/dalemusser/hirehub/internal/app/system/apierr"
	"github.com/dalemusser/hirehub/internal/app/system/auth"
	"github.com/dalemusser/hirehub/internal/app/system/authz"
	"github.com/dalemusser/hirehub/internal/app/system/htmlsanitize"
	"github.com/dalemusser/hirehub/internal/app/system/inputval"
	"github.com/dalemusser/hirehub/internal/app/system/timeouts"
	"github.com/dalemusser/hirehub/internal/domain/models"
	"go.uber.org/zap"
)

type postInput struct {
	Subject string `json:"subject" validate:"max=200" label:"Subject"`
	Body    string `json:"body" validate:"required,max=10000" label:"Message"`
}

// ServeList handles GET .../messages, oldest first.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "messages list")
	defer cancel()

	app, _, err := h.thread(ctx, r)
	if err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	msgs, err := communicationstore.New(h.DB).List(ctx, app.ID)
	if err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	apierr.WriteJSON(w, http.StatusOK, map[string]any{"items": msgs})
}

// HandlePost handles POST .../messages. The sender type comes from the
// caller, never from the body.
func (h *Handler) HandlePost(w http.ResponseWriter, r *http.Request) {
	var in postInput
	if err := apierr.DecodeJSON(w, r, &in); err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	in.Subject = htmlsanitize.StripTags(in.Subject)
	in.Body = htmlsanitize.Sanitize(in.Body)
	if res := inputval.Validate(in); res.HasErrors() {
		apierr.Write(w, r, h.Log, apierr.Validation(res.First()))
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "message post")
	defer cancel()

	app, caller, err := h.thread(ctx, r)
	if err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}

	m := models.Communication{
		ApplicationID: app.ID,
		SenderType:    caller,
		Subject:       in.Subject,
		Body:          in.Body,
	}
	if caller == models.SenderAdmin {
		u, _ := auth.CurrentUser(r)
		if uid, ok := authz.UserID(u); ok {
			m.SenderID = &uid
		}
		m.SenderName = u.Name
	} else {
		m.SenderName = app.FullName
	}

	created, err := communicationstore.New(h.DB).Create(ctx, m)
	if err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	h.Log.Debug("message posted",
		zap.String("application_id", app.ID.Hex()),
		zap.String("sender_type", caller))

	apierr.WriteJSON(w, http.StatusCreated, created)
}

// HandleMarkRead handles POST .../messages/read: everything the other
// party wrote becomes read.
func (h *Handler) HandleMarkRead(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "messages mark read")
	defer cancel()

	app, caller, err := h.thread(ctx, r)
	if err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	n, err := communicationstore.New(h.DB).MarkRead(ctx, app.ID, communicationstore.OtherParty(caller))
	if err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	apierr.WriteJSON(w, http.StatusOK, map[string]int64{"marked": n})
}

// ServeUnread handles GET .../messages/unread.
func (h *Handler) ServeUnread(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "messages unread")
	defer cancel()

	app, caller, err := h.thread(ctx, r)
	if err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	n, err := communicationstore.New(h.DB).CountUnread(ctx, app.ID, communicationstore.OtherParty(caller))
	if err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	apierr.WriteJSON(w, http.StatusOK, map[string]int64{"unread": n})
}
