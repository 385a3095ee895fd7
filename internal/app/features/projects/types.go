// internal/app/features/projects/types.go
package projects

type projectInput struct {
	Name         string   `json:"name" validate:"required,max=200" label:"Name"`
	Description  string   `json:"description" validate:"max=10000" label:"Description"`
	Status       string   `json:"status" validate:"omitempty,oneof=planning active on_hold completed cancelled" label:"Status"`
	Priority     string   `json:"priority" validate:"omitempty,oneof=none urgent high medium low" label:"Priority"`
	LeadID       string   `json:"lead_id" validate:"omitempty,objectid" label:"Lead"`
	MemberIDs    []string `json:"member_ids" validate:"max=200,dive,objectid" label:"Members"`
	DepartmentID string   `json:"department_id" validate:"omitempty,objectid" label:"Department"`
	StartDate    string   `json:"start_date" validate:"omitempty,datetime=2006-01-02" label:"Start date"`
	TargetDate   string   `json:"target_date" validate:"omitempty,datetime=2006-01-02" label:"Target date"`
	LinearTeamID string   `json:"linear_team_id" validate:"max=64" label:"Linear team"`
}

// projectPatch: absent fields are left alone; an empty lead_id clears the lead.
type projectPatch struct {
	Name         *string   `json:"name" validate:"omitempty,max=200" label:"Name"`
	Description  *string   `json:"description" validate:"omitempty,max=10000" label:"Description"`
	Status       *string   `json:"status" validate:"omitempty,oneof=planning active on_hold completed cancelled" label:"Status"`
	Priority     *string   `json:"priority" validate:"omitempty,oneof=none urgent high medium low" label:"Priority"`
	LeadID       *string   `json:"lead_id" label:"Lead"`
	MemberIDs    *[]string `json:"member_ids" validate:"omitempty,max=200,dive,objectid" label:"Members"`
	DepartmentID *string   `json:"department_id" validate:"omitempty,objectid" label:"Department"`
	StartDate    *string   `json:"start_date" validate:"omitempty,datetime=2006-01-02" label:"Start date"`
	TargetDate   *string   `json:"target_date" validate:"omitempty,datetime=2006-01-02" label:"Target date"`
	LinearTeamID *string   `json:"linear_team_id" validate:"omitempty,max=64" label:"Linear team"`
}

type taskInput struct {
	Title         string  `json:"title" validate:"required,max=300" label:"Title"`
	Description   string  `json:"description" validate:"max=10000" label:"Description"`
	Status        string  `json:"status" validate:"omitempty,oneof=backlog todo in_progress in_review done cancelled" label:"Status"`
	Priority      string  `json:"priority" validate:"omitempty,oneof=none urgent high medium low" label:"Priority"`
	AssigneeID    string  `json:"assignee_id" validate:"omitempty,objectid" label:"Assignee"`
	DueDate       string  `json:"due_date" validate:"omitempty,datetime=2006-01-02" label:"Due date"`
	EstimateHours float64 `json:"estimate_hours" validate:"gte=0,lte=1000" label:"Estimate"`
}

// taskPatch: empty assignee_id or due_date clears the field.
type taskPatch struct {
	Title         *string  `json:"title" validate:"omitempty,max=300" label:"Title"`
	Description   *string  `json:"description" validate:"omitempty,max=10000" label:"Description"`
	Status        *string  `json:"status" validate:"omitempty,oneof=backlog todo in_progress in_review done cancelled" label:"Status"`
	Priority      *string  `json:"priority" validate:"omitempty,oneof=none urgent high medium low" label:"Priority"`
	AssigneeID    *string  `json:"assignee_id" label:"Assignee"`
	DueDate       *string  `json:"due_date" label:"Due date"`
	EstimateHours *float64 `json:"estimate_hours" validate:"omitempty,gte=0,lte=1000" label:"Estimate"`
}
