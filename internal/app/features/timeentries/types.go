// internal/app/features/timeentries/types.go
package timeentries

import (
	"time"

	"github.com/dalemusser/hirehub/internal/app/system/apierr"
)

const (
	dateLayout = "2006-01-02"

	// maxMinutes caps a single entry at one day.
	maxMinutes = 24 * 60
)

type createInput struct {
	PersonnelID     string `json:"personnel_id" validate:"omitempty,objectid" label:"Personnel"`
	ProjectID       string `json:"project_id" validate:"required,objectid" label:"Project"`
	TaskID          string `json:"task_id" validate:"omitempty,objectid" label:"Task"`
	Description     string `json:"description" validate:"max=2000" label:"Description"`
	Date            string `json:"date" validate:"omitempty,datetime=2006-01-02" label:"Date"`
	StartedAt       string `json:"started_at" validate:"omitempty,datetime=2006-01-02T15:04:05Z07:00" label:"Start time"`
	EndedAt         string `json:"ended_at" validate:"omitempty,datetime=2006-01-02T15:04:05Z07:00" label:"End time"`
	DurationMinutes int    `json:"duration_minutes" validate:"gte=0,lte=1440" label:"Duration"`
	Billable        bool   `json:"billable"`
}

// patchInput: empty task_id clears the task; empty started_at and ended_at
// together switch the entry to a plain duration.
type patchInput struct {
	ProjectID       *string `json:"project_id" validate:"omitempty,objectid" label:"Project"`
	TaskID          *string `json:"task_id" label:"Task"`
	Description     *string `json:"description" validate:"omitempty,max=2000" label:"Description"`
	Date            *string `json:"date" validate:"omitempty,datetime=2006-01-02" label:"Date"`
	StartedAt       *string `json:"started_at" label:"Start time"`
	EndedAt         *string `json:"ended_at" label:"End time"`
	DurationMinutes *int    `json:"duration_minutes" validate:"omitempty,gte=0,lte=1440" label:"Duration"`
	Billable        *bool   `json:"billable"`
}

// span is the resolved timing of an entry.
type span struct {
	Start   *time.Time
	End     *time.Time
	Minutes int
}

// resolveSpan checks the timing rules: either a start and end with end after
// start, or a positive duration, never longer than a day. With a start and
// end the duration is derived; a supplied duration must agree with it.
func resolveSpan(start, end *time.Time, minutes int) (span, error) {
	switch {
	case start == nil && end == nil:
		if minutes <= 0 {
			return span{}, apierr.Validation("Provide started_at and ended_at or a positive duration_minutes.")
		}
	case start == nil || end == nil:
		return span{}, apierr.Validation("started_at and ended_at must be given together.")
	default:
		if !end.After(*start) {
			return span{}, apierr.Validation("End time must be after the start time.")
		}
		derived := int(end.Sub(*start) / time.Minute)
		if derived < 1 {
			return span{}, apierr.Validation("Entries must be at least one minute long.")
		}
		if minutes > 0 && minutes != derived {
			return span{}, apierr.Validation("duration_minutes does not match started_at and ended_at.")
		}
		minutes = derived
	}
	if minutes > maxMinutes {
		return span{}, apierr.Validation("An entry cannot exceed 24 hours.")
	}
	return span{Start: start, End: end, Minutes: minutes}, nil
}

// parseInstant parses an RFC 3339 timestamp; empty yields nil.
func parseInstant(s, label string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil, apierr.Validation(label + " must be an RFC 3339 timestamp.")
	}
	t = t.UTC()
	return &t, nil
}
