// internal/app/features/personnel/convert.go
package personnel

import (
	"context"
	"errors"
	"net/http"
	"time"

	applicationstore "github.com/dalemusser/hirehub/internal/app/store/applications"
	counterstore "github.com/dalemusser/hirehub/internal/app/store/counters"
	departmentstore "github.com/dalemusser/hirehub/internal/app/store/departments"
	personnelstore "github.com/dalemusser/hirehub/internal/app/store/personnel"
	"github.com/dalemusser/hirehub/internal/app/system/apierr"
	"github.com/dalemusser/hirehub/internal/app/system/auth"
	"github.com/dalemusser/hirehub/internal/app/system/htmlsanitize"
	"github.com/dalemusser/hirehub/internal/app/system/inputval"
	"github.com/dalemusser/hirehub/internal/app/system/normalize"
	"github.com/dalemusser/hirehub/internal/app/system/timeouts"
	"github.com/dalemusser/hirehub/internal/app/system/txn"
	"github.com/dalemusser/hirehub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// maxGeneratedIDAttempts bounds the search for a free generated employee id
// when manually assigned ids occupy counter values.
const maxGeneratedIDAttempts = 10

// HandleConvert handles POST /api/personnel/convert.
//
// Only approved applications convert. A second conversion of the same
// application returns the existing record with 200, including when two
// requests race and the unique index on application_id decides.
func (h *Handler) HandleConvert(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.CurrentUser(r)

	var in convertInput
	if err := apierr.DecodeJSON(w, r, &in); err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	if res := inputval.Validate(in); res.HasErrors() {
		apierr.Write(w, r, h.Log, apierr.Validation(res.First()))
		return
	}
	appID, _ := primitive.ObjectIDFromHex(in.ApplicationID)

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Long(), h.Log, "personnel convert")
	defer cancel()

	apps := applicationstore.New(h.DB)
	people := personnelstore.New(h.DB)

	app, err := apps.GetByID(ctx, appID)
	if err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	if app.Status != models.ApplicationApproved {
		apierr.Write(w, r, h.Log, apierr.Validation("only approved applications can be converted"))
		return
	}
	if existing, err := people.GetByApplicationID(ctx, appID); err == nil {
		apierr.WriteJSON(w, http.StatusOK, existing)
		return
	} else if apierr.GetCode(err) != apierr.CodeNotFound {
		apierr.Write(w, r, h.Log, err)
		return
	}

	p := models.Personnel{
		ApplicationID: app.ID,
		FullName:      app.FullName,
		Email:         app.Email,
		Phone:         app.Phone,
		Skills:        app.Skills,
		Role:          normalize.Name(htmlsanitize.StripTags(in.Role)),
		Status:        models.PersonnelOnboarding,
		Onboarding:    personnelstore.NewOnboarding(h.OnboardingSteps),
	}
	if p.Role == "" {
		p.Role = app.Position
	}
	if in.StartDate != "" {
		t, _ := time.Parse("2006-01-02", in.StartDate)
		p.StartDate = &t
	}
	if in.DepartmentID != "" {
		did, _ := primitive.ObjectIDFromHex(in.DepartmentID)
		d, err := departmentstore.New(h.DB).GetByID(ctx, did)
		if err != nil {
			apierr.Write(w, r, h.Log, refErr(err, "department not found"))
			return
		}
		p.DepartmentID = &d.ID
		p.Department = d.Name
	}
	if in.ManagerID != "" {
		mid, _ := primitive.ObjectIDFromHex(in.ManagerID)
		if _, err := people.GetByID(ctx, mid); err != nil {
			apierr.Write(w, r, h.Log, refErr(err, "manager not found"))
			return
		}
		p.ManagerID = &mid
	}

	if in.EmployeeID != "" {
		p.EmployeeID = normalize.EmployeeID(in.EmployeeID)
		taken, err := people.EmployeeIDExists(ctx, p.EmployeeID, primitive.NilObjectID)
		if err != nil {
			apierr.Write(w, r, h.Log, err)
			return
		}
		if taken {
			apierr.Write(w, r, h.Log, apierr.Conflict(personnelstore.ErrDuplicateEmployeeID.Error()))
			return
		}
	} else {
		p.EmployeeID, err = h.nextEmployeeID(ctx, people)
		if err != nil {
			apierr.Write(w, r, h.Log, err)
			return
		}
	}

	var created models.Personnel
	err = txn.Run(ctx, h.DB, h.Log, func(ctx context.Context) error {
		var err error
		if created, err = people.Create(ctx, p); err != nil {
			return err
		}
		return apps.LinkPersonnel(ctx, app.ID, created.ID)
	})
	switch {
	case errors.Is(err, personnelstore.ErrAlreadyConverted):
		existing, gerr := people.GetByApplicationID(ctx, appID)
		if gerr != nil {
			apierr.Write(w, r, h.Log, gerr)
			return
		}
		apierr.WriteJSON(w, http.StatusOK, existing)
		return
	case errors.Is(err, personnelstore.ErrDuplicateEmployeeID):
		apierr.Write(w, r, h.Log, apierr.Conflict(err.Error()))
		return
	case err != nil:
		apierr.Write(w, r, h.Log, err)
		return
	}

	h.Log.Info("application converted",
		zap.String("application_id", app.ID.Hex()),
		zap.String("personnel_id", created.ID.Hex()),
		zap.String("employee_id", created.EmployeeID))
	h.AuditLog.ApplicationConverted(ctx, r, actor.ID, app.ID, created.ID, created.EmployeeID)

	apierr.WriteJSON(w, http.StatusCreated, created)
}

// nextEmployeeID draws counter values until one is not already in use.
func (h *Handler) nextEmployeeID(ctx context.Context, people *personnelstore.Store) (string, error) {
	counters := counterstore.New(h.DB)
	for i := 0; i < maxGeneratedIDAttempts; i++ {
		seq, err := counters.Next(ctx, counterstore.EmployeeSeq)
		if err != nil {
			return "", err
		}
		id := personnelstore.FormatEmployeeID(seq)
		taken, err := people.EmployeeIDExists(ctx, id, primitive.NilObjectID)
		if err != nil {
			return "", err
		}
		if !taken {
			return id, nil
		}
	}
	return "", apierr.Conflict("could not allocate an employee id; provide one explicitly")
}

// refErr turns a missing referenced record into a validation error.
func refErr(err error, msg string) error {
	if apierr.GetCode(err) == apierr.CodeNotFound {
		return apierr.Validation(msg)
	}
	return err
}
