// Package roster implements bulk roster import: spreadsheet rows are
// normalized onto a canonical schema, validated, reconciled against stored
// players/parents/teams into a read-only preview, and finally applied one
// row per transaction.
//
// Pipeline: read sheet → normalize headers → validate → preview → execute.
package roster

import "strings"

// Field is a canonical import column.
type Field string

const (
	FieldPlayerExternalID Field = "player_external_id"
	FieldPlayerFirstName  Field = "player_first_name"
	FieldPlayerLastName   Field = "player_last_name"
	FieldPlayerDOB        Field = "player_dob"
	FieldPlayerGender     Field = "player_gender"
	FieldPlayerGrade      Field = "player_grade"
	FieldPlayerSchool     Field = "player_school"
	FieldJerseyNumber     Field = "jersey_number"
	FieldJerseySize       Field = "jersey_size"
	FieldMedicalNotes     Field = "medical_notes"
	FieldTeamName         Field = "team_name"
	FieldSeason           Field = "season"
	FieldTeamDivision     Field = "team_division"

	FieldParent1FirstName    Field = "parent1_first_name"
	FieldParent1LastName     Field = "parent1_last_name"
	FieldParent1Email        Field = "parent1_email"
	FieldParent1Phone        Field = "parent1_phone"
	FieldParent1Relationship Field = "parent1_relationship"

	FieldParent2FirstName    Field = "parent2_first_name"
	FieldParent2LastName     Field = "parent2_last_name"
	FieldParent2Email        Field = "parent2_email"
	FieldParent2Phone        Field = "parent2_phone"
	FieldParent2Relationship Field = "parent2_relationship"
)

// Fields lists every canonical field in template column order.
var Fields = []Field{
	FieldPlayerExternalID,
	FieldPlayerFirstName,
	FieldPlayerLastName,
	FieldPlayerDOB,
	FieldPlayerGender,
	FieldPlayerGrade,
	FieldPlayerSchool,
	FieldJerseyNumber,
	FieldJerseySize,
	FieldMedicalNotes,
	FieldTeamName,
	FieldSeason,
	FieldTeamDivision,
	FieldParent1FirstName,
	FieldParent1LastName,
	FieldParent1Email,
	FieldParent1Phone,
	FieldParent1Relationship,
	FieldParent2FirstName,
	FieldParent2LastName,
	FieldParent2Email,
	FieldParent2Phone,
	FieldParent2Relationship,
}

// ImportRow is one spreadsheet row after header normalization. Only resolved
// fields are set; Row is the 1-based sheet row the data came from.
type ImportRow struct {
	Row int `json:"row,omitempty"`

	PlayerExternalID string `json:"player_external_id,omitempty"`
	PlayerFirstName  string `json:"player_first_name,omitempty"`
	PlayerLastName   string `json:"player_last_name,omitempty"`
	PlayerDOB        string `json:"player_dob,omitempty"`
	PlayerGender     string `json:"player_gender,omitempty"`
	PlayerGrade      string `json:"player_grade,omitempty"`
	PlayerSchool     string `json:"player_school,omitempty"`
	JerseyNumber     string `json:"jersey_number,omitempty"`
	JerseySize       string `json:"jersey_size,omitempty"`
	MedicalNotes     string `json:"medical_notes,omitempty"`
	TeamName         string `json:"team_name,omitempty"`
	Season           string `json:"season,omitempty"`
	TeamDivision     string `json:"team_division,omitempty"`

	Parent1FirstName    string `json:"parent1_first_name,omitempty"`
	Parent1LastName     string `json:"parent1_last_name,omitempty"`
	Parent1Email        string `json:"parent1_email,omitempty"`
	Parent1Phone        string `json:"parent1_phone,omitempty"`
	Parent1Relationship string `json:"parent1_relationship,omitempty"`

	Parent2FirstName    string `json:"parent2_first_name,omitempty"`
	Parent2LastName     string `json:"parent2_last_name,omitempty"`
	Parent2Email        string `json:"parent2_email,omitempty"`
	Parent2Phone        string `json:"parent2_phone,omitempty"`
	Parent2Relationship string `json:"parent2_relationship,omitempty"`
}

// fieldRefs maps a canonical field to its slot on ImportRow.
var fieldRefs = map[Field]func(r *ImportRow) *string{
	FieldPlayerExternalID:    func(r *ImportRow) *string { return &r.PlayerExternalID },
	FieldPlayerFirstName:     func(r *ImportRow) *string { return &r.PlayerFirstName },
	FieldPlayerLastName:      func(r *ImportRow) *string { return &r.PlayerLastName },
	FieldPlayerDOB:           func(r *ImportRow) *string { return &r.PlayerDOB },
	FieldPlayerGender:        func(r *ImportRow) *string { return &r.PlayerGender },
	FieldPlayerGrade:         func(r *ImportRow) *string { return &r.PlayerGrade },
	FieldPlayerSchool:        func(r *ImportRow) *string { return &r.PlayerSchool },
	FieldJerseyNumber:        func(r *ImportRow) *string { return &r.JerseyNumber },
	FieldJerseySize:          func(r *ImportRow) *string { return &r.JerseySize },
	FieldMedicalNotes:        func(r *ImportRow) *string { return &r.MedicalNotes },
	FieldTeamName:            func(r *ImportRow) *string { return &r.TeamName },
	FieldSeason:              func(r *ImportRow) *string { return &r.Season },
	FieldTeamDivision:        func(r *ImportRow) *string { return &r.TeamDivision },
	FieldParent1FirstName:    func(r *ImportRow) *string { return &r.Parent1FirstName },
	FieldParent1LastName:     func(r *ImportRow) *string { return &r.Parent1LastName },
	FieldParent1Email:        func(r *ImportRow) *string { return &r.Parent1Email },
	FieldParent1Phone:        func(r *ImportRow) *string { return &r.Parent1Phone },
	FieldParent1Relationship: func(r *ImportRow) *string { return &r.Parent1Relationship },
	FieldParent2FirstName:    func(r *ImportRow) *string { return &r.Parent2FirstName },
	FieldParent2LastName:     func(r *ImportRow) *string { return &r.Parent2LastName },
	FieldParent2Email:        func(r *ImportRow) *string { return &r.Parent2Email },
	FieldParent2Phone:        func(r *ImportRow) *string { return &r.Parent2Phone },
	FieldParent2Relationship: func(r *ImportRow) *string { return &r.Parent2Relationship },
}

// Get returns the value of a canonical field.
func (r *ImportRow) Get(f Field) string {
	ref, ok := fieldRefs[f]
	if !ok {
		return ""
	}
	return *ref(r)
}

// Set assigns a canonical field. Unknown fields are ignored.
func (r *ImportRow) Set(f Field, v string) {
	if ref, ok := fieldRefs[f]; ok {
		*ref(r) = v
	}
}

// Trimmed returns a copy with all values whitespace-trimmed.
func (r ImportRow) Trimmed() ImportRow {
	out := ImportRow{Row: r.Row}
	for _, f := range Fields {
		out.Set(f, strings.TrimSpace(r.Get(f)))
	}
	return out
}

// hasParent2 reports whether any parent-2 field is populated.
func (r *ImportRow) hasParent2() bool {
	return r.Parent2FirstName != "" || r.Parent2LastName != "" || r.Parent2Email != "" ||
		r.Parent2Phone != "" || r.Parent2Relationship != ""
}

// parent2Complete reports whether parent 2 can be resolved and persisted.
func (r *ImportRow) parent2Complete() bool {
	return r.Parent2FirstName != "" && r.Parent2LastName != "" && emailPattern.MatchString(r.Parent2Email)
}
