package model

import "time"

// Gender codes accepted on the registration and profile forms.
const (
	GenderMale   = "M"
	GenderFemale = "F"
	GenderOther  = "O"
)

// GenderChoice is one option of the gender select box.
type GenderChoice struct {
	Code  string
	Label string
}

// GenderChoices lists the valid genders in display order.
var GenderChoices = []GenderChoice{
	{Code: GenderMale, Label: "Male"},
	{Code: GenderFemale, Label: "Female"},
	{Code: GenderOther, Label: "Other"},
}

// ValidGender reports whether code is one of GenderChoices.
func ValidGender(code string) bool {
	for _, c := range GenderChoices {
		if c.Code == code {
			return true
		}
	}
	return false
}

// Profile extends a User one-to-one with non-identity attributes.
//
// Skills is free text stored exactly as submitted (typically comma separated).
// TeamID is nil while the user is not a member of any team.
type Profile struct {
	UserID    string    `json:"userId"`
	Job       string    `json:"job"`
	Gender    string    `json:"gender"`
	CountryID int64     `json:"countryId"`
	Skills    string    `json:"skills"`
	TeamID    *string   `json:"teamId,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// HasTeam reports whether the profile belongs to a team.
func (p *Profile) HasTeam() bool {
	return p.TeamID != nil && *p.TeamID != ""
}

// Country is a row of the country lookup table.
type Country struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}
