// internal/app/features/linear/oauth.go
package linear

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"net/http"
	"time"

	"github.com/dalemusser/hirehub/internal/app/store/audit"
	"github.com/dalemusser/hirehub/internal/app/store/oauthstate"
	"github.com/dalemusser/hirehub/internal/app/system/apierr"
	"github.com/dalemusser/hirehub/internal/app/system/auth"
	"github.com/dalemusser/hirehub/internal/app/system/authz"
	"github.com/dalemusser/hirehub/internal/app/system/linearsync"
	"github.com/dalemusser/hirehub/internal/app/system/timeouts"
	"github.com/dalemusser/waffle/pantry/query"
	"github.com/dalemusser/waffle/pantry/urlutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// stateTTL bounds how long an authorization round trip may take.
const stateTTL = 10 * time.Minute

/*─────────────────────────────────────────────────────────────────────────────*
| GET /api/linear/auth                                                         |
| Starts the authorization-code flow by redirecting to Linear's consent page. |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) ServeAuth(w http.ResponseWriter, r *http.Request) {
	cfg := h.Sync.OAuth()
	if cfg == nil {
		apierr.Write(w, r, h.Log, apierr.Validation(linearsync.ErrOAuthMissing.Error()))
		return
	}
	actor, _ := auth.CurrentUser(r)

	state, err := generateState()
	if err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "linear auth state")
	defer cancel()

	err = h.States.Save(ctx, oauthstate.State{
		State:     state,
		Provider:  provider,
		UserID:    actor.ID,
		ReturnURL: urlutil.SafeReturn(query.Get(r, "return"), "", ""),
		ExpiresAt: time.Now().Add(stateTTL),
	})
	if err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}

	url := cfg.AuthCodeURL(state)
	h.Log.Debug("initiating Linear OAuth flow", zap.String("user_id", actor.ID))
	http.Redirect(w, r, url, http.StatusTemporaryRedirect)
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET /api/linear/auth/callback                                                |
| Validates the state, exchanges the code and stores the workspace.           |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) ServeCallback(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.CurrentUser(r)

	if errParam := query.Get(r, "error"); errParam != "" {
		h.Log.Warn("Linear OAuth error",
			zap.String("error", errParam),
			zap.String("description", query.Get(r, "error_description")))
		apierr.Write(w, r, h.Log, apierr.Validation("Linear authorization was denied"))
		return
	}

	state := query.Get(r, "state")
	code := query.Get(r, "code")
	if state == "" || code == "" {
		apierr.Write(w, r, h.Log, apierr.Validation("missing state or code"))
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "linear connect")
	defer cancel()

	st, valid, err := h.States.Validate(ctx, provider, state)
	if err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	if !valid || st.UserID != actor.ID {
		h.Log.Warn("invalid or expired Linear OAuth state", zap.String("user_id", actor.ID))
		apierr.Write(w, r, h.Log, apierr.Validation("invalid or expired state"))
		return
	}

	var by *primitive.ObjectID
	if uid, ok := authz.UserID(actor); ok {
		by = &uid
	}
	ws, err := h.Sync.Connect(ctx, code, by)
	if errors.Is(err, linearsync.ErrOAuthMissing) {
		apierr.Write(w, r, h.Log, apierr.Validation(err.Error()))
		return
	}
	if err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}

	h.Log.Info("Linear workspace connected",
		zap.String("organization", ws.OrganizationName),
		zap.String("user_id", actor.ID))
	h.AuditLog.Admin(ctx, r, actor.ID, audit.EventLinearConnected, "linear_workspace", ws.ID, map[string]string{
		"organization": ws.OrganizationName,
	})

	if st.ReturnURL != "" {
		http.Redirect(w, r, urlutil.AddOrSetQueryParams(st.ReturnURL, map[string]string{"linear": "connected"}), http.StatusSeeOther)
		return
	}
	apierr.WriteJSON(w, http.StatusOK, ws)
}

// generateState creates a cryptographically secure random state string.
func generateState() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(b), nil
}
