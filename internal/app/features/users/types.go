// internal/app/features/users/types.go
package users

// createInput defines validation rules for creating an account.
type createInput struct {
	FullName       string  `json:"full_name" validate:"required,max=200" label:"Full name"`
	Email          string  `json:"email" validate:"required,emailaddr,max=254" label:"Email"`
	Role           string  `json:"role" validate:"required,oneof=admin personnel" label:"Role"`
	Status         string  `json:"status" validate:"omitempty,oneof=active disabled" label:"Status"`
	Password       string  `json:"password" label:"Password"`
	CanApproveTime bool    `json:"can_approve_time"`
	PersonnelID    *string `json:"personnel_id" validate:"omitempty,objectid" label:"Personnel ID"`
}

// patchInput holds the fields an admin may change. Absent fields are left alone;
// an empty personnel_id removes the link.
type patchInput struct {
	FullName       *string `json:"full_name" validate:"omitempty,max=200" label:"Full name"`
	Role           *string `json:"role" validate:"omitempty,oneof=admin personnel" label:"Role"`
	Status         *string `json:"status" validate:"omitempty,oneof=active disabled" label:"Status"`
	CanApproveTime *bool   `json:"can_approve_time"`
	Password       *string `json:"password" label:"Password"`
	PersonnelID    *string `json:"personnel_id" label:"Personnel ID"`
}
