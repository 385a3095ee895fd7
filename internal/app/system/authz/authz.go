// Package authz holds the permission checks shared by feature handlers.
package authz

import (
	"net/http"

	applicationstore "github.com/dalemusser/hirehub/internal/app/store/applications"
	"github.com/dalemusser/hirehub/internal/app/system/apierr"
	"github.com/dalemusser/hirehub/internal/app/system/auth"
	"github.com/dalemusser/hirehub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// IsAdmin reports whether u is an administrator.
func IsAdmin(u *auth.SessionUser) bool {
	return u != nil && u.Role == models.RoleAdmin
}

// CanApproveTime reports whether u may approve time entries and modify
// approved ones. Admins always can.
func CanApproveTime(u *auth.SessionUser) bool {
	if u == nil {
		return false
	}
	return IsAdmin(u) || u.CanApproveTime
}

// PersonnelID returns the personnel record linked to u, if any.
func PersonnelID(u *auth.SessionUser) (primitive.ObjectID, bool) {
	if u == nil || u.PersonnelID == "" {
		return primitive.NilObjectID, false
	}
	oid, err := primitive.ObjectIDFromHex(u.PersonnelID)
	if err != nil {
		return primitive.NilObjectID, false
	}
	return oid, true
}

// IsSelf reports whether u is linked to the given personnel record.
func IsSelf(u *auth.SessionUser, personnelID primitive.ObjectID) bool {
	pid, ok := PersonnelID(u)
	return ok && pid == personnelID
}

// UserID parses u.ID; ok is false for malformed ids.
func UserID(u *auth.SessionUser) (primitive.ObjectID, bool) {
	if u == nil {
		return primitive.NilObjectID, false
	}
	oid, err := primitive.ObjectIDFromHex(u.ID)
	return oid, err == nil
}

// ApplicationTokenHeader carries the applicant's edit token.
const ApplicationTokenHeader = "X-Application-Token"

// ApplicationCaller decides who is acting on app: an admin session or the
// applicant presenting the edit token. It returns models.SenderAdmin or
// models.SenderApplicant. A valid token wins over a non-admin session.
func ApplicationCaller(r *http.Request, app *models.Application) (string, error) {
	if tok := r.Header.Get(ApplicationTokenHeader); tok != "" {
		if applicationstore.VerifyToken(app, tok) {
			return models.SenderApplicant, nil
		}
		return "", apierr.Forbidden("invalid application token")
	}
	u, ok := auth.CurrentUser(r)
	if !ok {
		return "", apierr.Unauthorized("sign in or provide an application token")
	}
	if !IsAdmin(u) {
		return "", apierr.Forbidden("admin access required")
	}
	return models.SenderAdmin, nil
}
