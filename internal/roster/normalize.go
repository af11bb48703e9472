package roster

import (
	"maps"
	"slices"
	"strings"
)

// headerAliases lists accepted spreadsheet headers per canonical field, in
// priority order. The first alias is the one written to the template.
// Headers are compared after normalizeHeader.
var headerAliases = map[Field][]string{
	FieldPlayerExternalID: {"Player ID", "player_external_id", "External ID", "Member ID", "Registration ID"},
	FieldPlayerFirstName:  {"Player First Name", "player_first_name", "First Name", "Player First", "Child First Name"},
	FieldPlayerLastName:   {"Player Last Name", "player_last_name", "Last Name", "Player Last", "Child Last Name"},
	FieldPlayerDOB:        {"Date of Birth", "player_dob", "DOB", "Birthdate", "Birth Date", "Player DOB"},
	FieldPlayerGender:     {"Gender", "player_gender", "Sex", "Player Gender"},
	FieldPlayerGrade:      {"Grade", "player_grade", "School Grade"},
	FieldPlayerSchool:     {"School", "player_school", "School Name"},
	FieldJerseyNumber:     {"Jersey Number", "jersey_number", "Jersey #", "Jersey No", "Number", "Uniform Number"},
	FieldJerseySize:       {"Jersey Size", "jersey_size", "Uniform Size", "Shirt Size"},
	FieldMedicalNotes:     {"Medical Notes", "medical_notes", "Allergies", "Medical"},
	FieldTeamName:         {"Team", "team_name", "Team Name"},
	FieldSeason:           {"Season", "season", "Season Year", "Year"},
	FieldTeamDivision:     {"Division", "team_division", "Age Group", "Level"},

	FieldParent1FirstName:    {"Parent 1 First Name", "parent1_first_name", "Parent First Name", "Guardian First Name", "Parent/Guardian First Name"},
	FieldParent1LastName:     {"Parent 1 Last Name", "parent1_last_name", "Parent Last Name", "Guardian Last Name", "Parent/Guardian Last Name"},
	FieldParent1Email:        {"Parent 1 Email", "parent1_email", "Parent Email", "Guardian Email", "Email"},
	FieldParent1Phone:        {"Parent 1 Phone", "parent1_phone", "Parent Phone", "Guardian Phone", "Phone"},
	FieldParent1Relationship: {"Parent 1 Relationship", "parent1_relationship", "Relationship", "Parent Relationship"},

	FieldParent2FirstName:    {"Parent 2 First Name", "parent2_first_name", "Second Parent First Name", "Guardian 2 First Name"},
	FieldParent2LastName:     {"Parent 2 Last Name", "parent2_last_name", "Second Parent Last Name", "Guardian 2 Last Name"},
	FieldParent2Email:        {"Parent 2 Email", "parent2_email", "Second Parent Email", "Guardian 2 Email"},
	FieldParent2Phone:        {"Parent 2 Phone", "parent2_phone", "Second Parent Phone", "Guardian 2 Phone"},
	FieldParent2Relationship: {"Parent 2 Relationship", "parent2_relationship", "Second Parent Relationship"},
}

// TemplateHeader returns the preferred spreadsheet header for a field.
func TemplateHeader(f Field) string {
	if aliases := headerAliases[f]; len(aliases) > 0 {
		return aliases[0]
	}
	return string(f)
}

// normalizeHeader folds case, punctuation used as separators, required-field
// markers and repeated whitespace so "Player_First-Name *" matches
// "player first name".
func normalizeHeader(h string) string {
	h = strings.ToLower(strings.TrimSpace(h))
	h = strings.NewReplacer("_", " ", "-", " ", ".", " ", "*", " ", ":", " ").Replace(h)
	return strings.Join(strings.Fields(h), " ")
}

// Normalize maps a raw row keyed by spreadsheet header onto the canonical
// schema. For each field the aliases are tried in order and the first
// non-empty value wins; unresolved fields stay empty. Values are trimmed.
// Headers that fold to the same alias are taken in sorted order.
func Normalize(raw map[string]string) ImportRow {
	headers := slices.Sorted(maps.Keys(raw))
	values := make([]string, len(headers))
	for i, h := range headers {
		values[i] = raw[h]
	}
	return normalizeCells(headers, values)
}

// normalizeCells resolves aliases over parallel header and value slices.
// When several columns fold to the same header, the first non-empty one wins.
func normalizeCells(headers, values []string) ImportRow {
	byHeader := make(map[string]string, len(headers))
	for i, h := range headers {
		if h == "" || i >= len(values) {
			continue
		}
		key := normalizeHeader(h)
		if byHeader[key] != "" {
			continue
		}
		byHeader[key] = strings.TrimSpace(values[i])
	}

	var row ImportRow
	for _, f := range Fields {
		for _, alias := range headerAliases[f] {
			if v := byHeader[normalizeHeader(alias)]; v != "" {
				row.Set(f, v)
				break
			}
		}
	}
	return row
}

// NormalizeSheet zips each data row with the header row and normalizes it.
// Row numbers are 1-based sheet rows: the header is row 1, so the first data
// row is row 2.
func NormalizeSheet(s *Sheet) []ImportRow {
	rows := make([]ImportRow, 0, len(s.Rows))
	for i, cells := range s.Rows {
		row := normalizeCells(s.Header, cells)
		row.Row = i + 2
		if i < len(s.RowNumbers) {
			row.Row = s.RowNumbers[i]
		}
		rows = append(rows, row)
	}
	return rows
}
