// internal/app/features/applications/types.go
package applications

import (
	applicationstore "github.com/dalemusser/hirehub/internal/app/store/applications"
	"github.com/dalemusser/hirehub/internal/app/system/htmlsanitize"
	"github.com/dalemusser/hirehub/internal/domain/models"
)

type linksInput struct {
	Portfolio string `json:"portfolio" validate:"omitempty,httpurl,max=500" label:"Portfolio link"`
	LinkedIn  string `json:"linkedin" validate:"omitempty,httpurl,max=500" label:"LinkedIn link"`
	GitHub    string `json:"github" validate:"omitempty,httpurl,max=500" label:"GitHub link"`
	Resume    string `json:"resume" validate:"omitempty,httpurl,max=500" label:"Resume link"`
}

// applicationInput is the body of a submission and of an applicant edit.
type applicationInput struct {
	FullName        string     `json:"full_name" validate:"required,max=200" label:"Full name"`
	Email           string     `json:"email" validate:"required,emailaddr,max=254" label:"Email"`
	Phone           string     `json:"phone" validate:"max=50" label:"Phone"`
	Position        string     `json:"position" validate:"required,max=200" label:"Position"`
	Skills          []string   `json:"skills" validate:"max=50,dive,max=100" label:"Skills"`
	ExperienceYears int        `json:"experience_years" validate:"min=0,max=80" label:"Years of experience"`
	CoverLetter     string     `json:"cover_letter" validate:"max=20000" label:"Cover letter"`
	Links           linksInput `json:"links"`
	Availability    string     `json:"availability" validate:"max=200" label:"Availability"`
}

// clean strips markup from the plain-text fields and sanitizes the cover letter.
func (in *applicationInput) clean() {
	in.FullName = htmlsanitize.StripTags(in.FullName)
	in.Phone = htmlsanitize.StripTags(in.Phone)
	in.Position = htmlsanitize.StripTags(in.Position)
	in.Availability = htmlsanitize.StripTags(in.Availability)
	in.CoverLetter = htmlsanitize.Sanitize(in.CoverLetter)
	for i, s := range in.Skills {
		in.Skills[i] = htmlsanitize.StripTags(s)
	}
}

func (in *applicationInput) links() models.ApplicationLinks {
	return models.ApplicationLinks{
		Portfolio: in.Links.Portfolio,
		LinkedIn:  in.Links.LinkedIn,
		GitHub:    in.Links.GitHub,
		Resume:    in.Links.Resume,
	}
}

func (in *applicationInput) model() models.Application {
	return models.Application{
		FullName:        in.FullName,
		Email:           in.Email,
		Phone:           in.Phone,
		Position:        in.Position,
		Skills:          in.Skills,
		ExperienceYears: in.ExperienceYears,
		CoverLetter:     in.CoverLetter,
		Links:           in.links(),
		Availability:    in.Availability,
	}
}

func (in *applicationInput) edit() applicationstore.Edit {
	return applicationstore.Edit{
		FullName:        in.FullName,
		Email:           in.Email,
		Phone:           in.Phone,
		Position:        in.Position,
		Skills:          in.Skills,
		ExperienceYears: in.ExperienceYears,
		CoverLetter:     in.CoverLetter,
		Links:           in.links(),
		Availability:    in.Availability,
	}
}

// submitResponse is returned once; the edit token cannot be retrieved again.
type submitResponse struct {
	Application models.Application `json:"application"`
	EditToken   string             `json:"edit_token"`
}

type editResponse struct {
	Application *models.Application  `json:"application"`
	Changes     []models.FieldChange `json:"changes"`
}

type statusInput struct {
	Status      string `json:"status" validate:"required,oneof=pending reviewing approved rejected" label:"Status"`
	ReviewNotes string `json:"review_notes" validate:"max=5000" label:"Review notes"`
}
