// internal/app/features/departments/types.go
package departments

type createInput struct {
	Name        string `json:"name" validate:"required,max=200" label:"Name"`
	Description string `json:"description" validate:"max=2000" label:"Description"`
	HeadID      string `json:"head_id" validate:"omitempty,objectid" label:"Head"`
}

// patchInput: an empty head_id clears the head.
type patchInput struct {
	Name        *string `json:"name" validate:"omitempty,max=200" label:"Name"`
	Description *string `json:"description" validate:"omitempty,max=2000" label:"Description"`
	HeadID      *string `json:"head_id" label:"Head"`
	Status      *string `json:"status" validate:"omitempty,oneof=active archived" label:"Status"`
}
