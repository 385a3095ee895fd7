// internal/app/features/login/handler.go
package login

import (
	"errors"
	"net/http"

	userstore "github.com/dalemusser/hirehub/internal/app/store/users"
	"github.com/dalemusser/hirehub/internal/app/system/apierr"
	"github.com/dalemusser/hirehub/internal/app/system/auditlog"
	"github.com/dalemusser/hirehub/internal/app/system/auth"
	"github.com/dalemusser/hirehub/internal/app/system/authutil"
	"github.com/dalemusser/hirehub/internal/app/system/normalize"
	"github.com/dalemusser/hirehub/internal/app/system/ratelimit"
	"github.com/dalemusser/hirehub/internal/app/system/timeouts"
	"github.com/dalemusser/hirehub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

type Handler struct {
	DB         *mongo.Database
	Log        *zap.Logger
	SessionMgr *auth.SessionManager
	AuditLog   *auditlog.Logger
	Limiter    *ratelimit.LoginLimiter
}

func NewHandler(db *mongo.Database, sessionMgr *auth.SessionManager, auditLog *auditlog.Logger, limiter *ratelimit.LoginLimiter, logger *zap.Logger) *Handler {
	return &Handler{
		DB:         db,
		Log:        logger,
		SessionMgr: sessionMgr,
		AuditLog:   auditLog,
		Limiter:    limiter,
	}
}

// meResponse is the signed-in account as returned by login and /me.
type meResponse struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Email          string `json:"email"`
	Role           string `json:"role"`
	PersonnelID    string `json:"personnel_id,omitempty"`
	CanApproveTime bool   `json:"can_approve_time"`
}

func meFromUser(u *models.User) meResponse {
	me := meResponse{
		ID:             u.ID.Hex(),
		Name:           u.FullName,
		Email:          u.Email,
		Role:           u.Role,
		CanApproveTime: u.CanApproveTime || u.Role == models.RoleAdmin,
	}
	if u.PersonnelID != nil {
		me.PersonnelID = u.PersonnelID.Hex()
	}
	return me
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

const badCredentials = "invalid email or password"

// HandleLogin handles POST /api/auth/login.
func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var in loginRequest
	if err := apierr.DecodeJSON(w, r, &in); err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	email := normalize.Email(in.Email)
	if email == "" || in.Password == "" {
		apierr.Write(w, r, h.Log, apierr.Validation("email and password are required"))
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "login")
	defer cancel()

	if h.Limiter != nil {
		if ok, kind := h.Limiter.Check(r, email); !ok {
			h.AuditLog.LoginFailedRateLimit(ctx, r, email, kind)
			apierr.WriteError(w, http.StatusTooManyRequests, ratelimit.Message(kind))
			return
		}
	}

	users := userstore.New(h.DB)
	u, err := users.GetByEmail(ctx, email)
	if errors.Is(err, mongo.ErrNoDocuments) {
		h.AuditLog.LoginFailedUserNotFound(ctx, r, email)
		apierr.Write(w, r, h.Log, apierr.Unauthorized(badCredentials))
		return
	}
	if err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}

	if !authutil.CheckPassword(in.Password, u.PasswordHash) {
		h.AuditLog.LoginFailedWrongPassword(ctx, r, u.ID, email)
		apierr.Write(w, r, h.Log, apierr.Unauthorized(badCredentials))
		return
	}
	if u.Status == models.UserDisabled {
		h.AuditLog.LoginFailedUserDisabled(ctx, r, u.ID, email)
		apierr.Write(w, r, h.Log, apierr.Forbidden("this account is disabled"))
		return
	}

	if err := h.SessionMgr.SignIn(w, r, u.ID.Hex()); err != nil {
		h.Log.Error("login: save session", zap.Error(err))
		apierr.Write(w, r, h.Log, err)
		return
	}
	if err := users.TouchLogin(ctx, u.ID); err != nil {
		h.Log.Warn("login: failed to record last login", zap.String("user_id", u.ID.Hex()), zap.Error(err))
	}
	if h.Limiter != nil {
		h.Limiter.ResetEmail(email)
	}
	h.AuditLog.LoginSuccess(ctx, r, u.ID, email)

	apierr.WriteJSON(w, http.StatusOK, meFromUser(u))
}

// HandleLogout handles POST /api/auth/logout. It succeeds for anonymous
// callers too so clients can always clear a stale cookie.
func (h *Handler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	if err := h.SessionMgr.SignOut(w, r); err != nil {
		h.Log.Warn("logout: save session", zap.Error(err))
	}
	if u, ok := auth.CurrentUser(r); ok {
		h.AuditLog.Logout(r.Context(), r, u.ID)
	}
	w.WriteHeader(http.StatusNoContent)
}

// ServeMe handles GET /api/auth/me.
func (h *Handler) ServeMe(w http.ResponseWriter, r *http.Request) {
	u, ok := auth.CurrentUser(r)
	if !ok {
		apierr.Write(w, r, h.Log, apierr.Unauthorized("authentication required"))
		return
	}
	apierr.WriteJSON(w, http.StatusOK, meResponse{
		ID:             u.ID,
		Name:           u.Name,
		Email:          u.Email,
		Role:           u.Role,
		PersonnelID:    u.PersonnelID,
		CanApproveTime: u.CanApproveTime,
	})
}

type passwordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// HandleChangePassword handles POST /api/auth/password for the signed-in user.
func (h *Handler) HandleChangePassword(w http.ResponseWriter, r *http.Request) {
	su, ok := auth.CurrentUser(r)
	if !ok {
		apierr.Write(w, r, h.Log, apierr.Unauthorized("authentication required"))
		return
	}
	var in passwordRequest
	if err := apierr.DecodeJSON(w, r, &in); err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	if err := authutil.ValidatePassword(in.NewPassword); err != nil {
		apierr.Write(w, r, h.Log, apierr.Validation(err.Error()))
		return
	}
	uid, err := primitive.ObjectIDFromHex(su.ID)
	if err != nil {
		apierr.Write(w, r, h.Log, apierr.Unauthorized("authentication required"))
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "change password")
	defer cancel()

	users := userstore.New(h.DB)
	u, err := users.GetByID(ctx, uid)
	if err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	if !authutil.CheckPassword(in.CurrentPassword, u.PasswordHash) {
		apierr.Write(w, r, h.Log, apierr.Validation("current password is incorrect"))
		return
	}
	if _, err := users.Update(ctx, uid, userstore.Update{Password: &in.NewPassword}); err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
