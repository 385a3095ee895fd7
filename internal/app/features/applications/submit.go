// internal/app/features/applications/submit.go
package applications

import (
	"errors"
	"net/http"

	applicationstore "github.com/dalemusser/hirehub/internal/app/store/applications"
	"github.com/dalemusser/hirehub/internal/app/system/apierr"
	"github.com/dalemusser/hirehub/internal/app/system/inputval"
	"github.com/dalemusser/hirehub/internal/app/system/normalize"
	"github.com/dalemusser/hirehub/internal/app/system/timeouts"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// decodeApplication reads, validates and cleans an application body.
func decodeApplication(w http.ResponseWriter, r *http.Request) (*applicationInput, error) {
	var in applicationInput
	if err := apierr.DecodeJSON(w, r, &in); err != nil {
		return nil, err
	}
	in.clean()
	if res := inputval.Validate(in); res.HasErrors() {
		return nil, apierr.Validation(res.First())
	}
	if normalize.Name(in.FullName) == "" || normalize.Name(in.Position) == "" {
		return nil, apierr.Validation("Full name and position are required.")
	}
	return &in, nil
}

// HandleSubmit handles the public POST /api/applications.
func (h *Handler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	in, err := decodeApplication(w, r)
	if err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "application submit")
	defer cancel()

	apps := applicationstore.New(h.DB)

	// The unique index is authoritative; the pre-check gives the common
	// case a clean 409 without relying on the insert failing.
	exists, err := apps.EmailExists(ctx, in.Email, primitive.NilObjectID)
	if err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	if exists {
		apierr.Write(w, r, h.Log, apierr.Conflict(applicationstore.ErrDuplicateEmail.Error()))
		return
	}

	app, token, err := apps.Create(ctx, in.model())
	if errors.Is(err, applicationstore.ErrDuplicateEmail) {
		apierr.Write(w, r, h.Log, apierr.Conflict(err.Error()))
		return
	}
	if err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}

	h.Log.Info("application submitted",
		zap.String("application_id", app.ID.Hex()),
		zap.String("position", app.Position))

	apierr.WriteJSON(w, http.StatusCreated, submitResponse{Application: app, EditToken: token})
}
