// internal/app/features/personnel/types.go
package personnel

import "github.com/dalemusser/hirehub/internal/domain/models"

type convertInput struct {
	ApplicationID string `json:"application_id" validate:"required,objectid" label:"Application ID"`
	EmployeeID    string `json:"employee_id" validate:"max=32" label:"Employee ID"`
	DepartmentID  string `json:"department_id" validate:"omitempty,objectid" label:"Department"`
	Role          string `json:"role" validate:"max=200" label:"Role"`
	ManagerID     string `json:"manager_id" validate:"omitempty,objectid" label:"Manager"`
	StartDate     string `json:"start_date" validate:"omitempty,datetime=2006-01-02" label:"Start date"`
}

type preferencesInput struct {
	TimeZone           string `json:"time_zone" validate:"max=64" label:"Time zone"`
	EmailNotifications bool   `json:"email_notifications"`
	Theme              string `json:"theme" validate:"omitempty,oneof=light dark system" label:"Theme"`
}

type profileInput struct {
	Bio       string   `json:"bio" validate:"max=2000" label:"Bio"`
	Location  string   `json:"location" validate:"max=200" label:"Location"`
	AvatarURL string   `json:"avatar_url" validate:"omitempty,httpurl,max=500" label:"Avatar URL"`
	Links     []string `json:"links" validate:"max=10,dive,httpurl,max=500" label:"Links"`
}

// patchInput: admins may set every field; personnel editing their own
// record may only send preferences and profile. Empty department_id or
// manager_id clears the field.
type patchInput struct {
	EmployeeID   *string `json:"employee_id" validate:"omitempty,max=32" label:"Employee ID"`
	DepartmentID *string `json:"department_id" label:"Department"`
	Role         *string `json:"role" validate:"omitempty,max=200" label:"Role"`
	Status       *string `json:"status" validate:"omitempty,oneof=onboarding active on_leave terminated" label:"Status"`
	ManagerID    *string `json:"manager_id" label:"Manager"`
	Phone        *string `json:"phone" validate:"omitempty,max=50" label:"Phone"`
	StartDate    *string `json:"start_date" validate:"omitempty,datetime=2006-01-02" label:"Start date"`

	Preferences *preferencesInput `json:"preferences"`
	Profile     *profileInput     `json:"profile"`
}

func (in patchInput) hasAdminFields() bool {
	return in.EmployeeID != nil || in.DepartmentID != nil || in.Role != nil ||
		in.Status != nil || in.ManagerID != nil || in.Phone != nil || in.StartDate != nil
}

func (p preferencesInput) model() models.Preferences {
	return models.Preferences{
		TimeZone:           p.TimeZone,
		EmailNotifications: p.EmailNotifications,
		Theme:              p.Theme,
	}
}

type stepInput struct {
	Done *bool `json:"done" validate:"required" label:"Done"`
}
