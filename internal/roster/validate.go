package roster

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

var (
	emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	datePattern  = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
)

// DateLayout is the only accepted date of birth format.
const DateLayout = "2006-01-02"

// genders maps every accepted spelling (lower-cased) to its stored code.
var genders = map[string]string{
	"m":          "M",
	"male":       "M",
	"boy":        "M",
	"f":          "F",
	"female":     "F",
	"girl":       "F",
	"x":          "X",
	"other":      "X",
	"non-binary": "X",
}

// AcceptedGenders lists the accepted gender spellings for templates and
// error messages.
var AcceptedGenders = []string{"M", "F", "Male", "Female", "Boy", "Girl", "X", "Other", "Non-binary"}

// CanonicalGender returns the stored code for an accepted spelling, or false.
func CanonicalGender(v string) (string, bool) {
	g, ok := genders[strings.ToLower(strings.TrimSpace(v))]
	return g, ok
}

// ValidationError is a single finding against one row and field. The same
// type carries both blocking errors and warnings.
type ValidationError struct {
	Row     int    `json:"row"`
	Field   Field  `json:"field"`
	Message string `json:"message"`
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("row %d: %s: %s", e.Row, e.Field, e.Message)
}

// Blocking reports whether the error removes its row from the import set.
// Parent-2 findings are reported but never exclude a row.
func (e ValidationError) Blocking() bool {
	f := string(e.Field)
	return strings.HasPrefix(f, "player_") ||
		e.Field == FieldTeamName ||
		e.Field == FieldSeason ||
		strings.HasPrefix(f, "parent1_")
}

// DuplicateParent2Message explains why a parent 2 sharing parent 1's email
// is left out of the import.
const DuplicateParent2Message = "Parent 2 email matches parent 1; parent 2 will be ignored"

// ValidateRow checks one normalized row. rowNumber is the 1-based sheet row.
func ValidateRow(row ImportRow, rowNumber int) (errs, warns []ValidationError) {
	row = row.Trimmed()
	fail := func(f Field, msg string) {
		errs = append(errs, ValidationError{Row: rowNumber, Field: f, Message: msg})
	}
	warn := func(f Field, msg string) {
		warns = append(warns, ValidationError{Row: rowNumber, Field: f, Message: msg})
	}

	if row.PlayerFirstName == "" {
		fail(FieldPlayerFirstName, "Player first name is required")
	}
	if row.PlayerLastName == "" {
		fail(FieldPlayerLastName, "Player last name is required")
	}
	switch {
	case row.PlayerDOB == "":
		fail(FieldPlayerDOB, "Date of birth is required")
	case !datePattern.MatchString(row.PlayerDOB):
		fail(FieldPlayerDOB, "Date of birth must be in YYYY-MM-DD format")
	default:
		if _, err := time.Parse(DateLayout, row.PlayerDOB); err != nil {
			fail(FieldPlayerDOB, "Date of birth is not a valid date")
		}
	}
	if row.PlayerGender == "" {
		fail(FieldPlayerGender, "Gender is required")
	} else if _, ok := CanonicalGender(row.PlayerGender); !ok {
		fail(FieldPlayerGender, "Gender must be one of: "+strings.Join(AcceptedGenders, ", "))
	}
	if row.TeamName == "" {
		fail(FieldTeamName, "Team name is required")
	}
	if row.Season == "" {
		fail(FieldSeason, "Season is required")
	}

	validateContact(row.Parent1FirstName, row.Parent1LastName, row.Parent1Email,
		FieldParent1FirstName, FieldParent1LastName, FieldParent1Email, "Parent 1", fail)

	if row.hasParent2() {
		validateContact(row.Parent2FirstName, row.Parent2LastName, row.Parent2Email,
			FieldParent2FirstName, FieldParent2LastName, FieldParent2Email, "Parent 2", fail)
		if row.Parent2Email != "" && strings.EqualFold(row.Parent2Email, row.Parent1Email) {
			warn(FieldParent2Email, DuplicateParent2Message)
		}
	}

	if row.JerseyNumber == "" {
		warn(FieldJerseyNumber, "Jersey number is missing")
	}
	if row.Parent1Relationship == "" {
		warn(FieldParent1Relationship, "Parent 1 relationship is missing")
	}
	return errs, warns
}

func validateContact(first, last, email string, firstF, lastF, emailF Field, label string, fail func(Field, string)) {
	switch {
	case email == "":
		fail(emailF, label+" email is required")
	case !emailPattern.MatchString(email):
		fail(emailF, label+" email is not a valid email address")
	}
	if first == "" {
		fail(firstF, label+" first name is required")
	}
	if last == "" {
		fail(lastF, label+" last name is required")
	}
}

// Summary counts a parse. Error is the number of excluded rows; Warnings is
// the number of warning findings.
type Summary struct {
	Total    int `json:"total"`
	Valid    int `json:"valid"`
	Error    int `json:"error"`
	Warnings int `json:"warnings"`
}

// ParseResult is the parse response: import-eligible rows plus every
// finding, errors and warnings in row order.
type ParseResult struct {
	Rows     []ImportRow       `json:"rows"`
	Errors   []ValidationError `json:"errors"`
	Warnings []ValidationError `json:"warnings"`
	Summary  Summary           `json:"summary"`
}

// ValidateRows validates a batch. Rows with a blocking error are reported and
// left out of Rows.
func ValidateRows(rows []ImportRow) ParseResult {
	res := ParseResult{
		Rows:     make([]ImportRow, 0, len(rows)),
		Errors:   []ValidationError{},
		Warnings: []ValidationError{},
	}
	for i, row := range rows {
		n := row.Row
		if n == 0 {
			n = i + 2
		}
		errs, warns := ValidateRow(row, n)
		res.Errors = append(res.Errors, errs...)
		res.Warnings = append(res.Warnings, warns...)

		excluded := false
		for _, e := range errs {
			if e.Blocking() {
				excluded = true
				break
			}
		}
		if excluded {
			res.Summary.Error++
			continue
		}
		clean := row.Trimmed()
		clean.Row = n
		res.Rows = append(res.Rows, clean)
	}
	res.Summary.Total = len(rows)
	res.Summary.Valid = len(res.Rows)
	res.Summary.Warnings = len(res.Warnings)
	return res
}

// ParseUpload reads, normalizes and validates an uploaded roster file.
func ParseUpload(filename string, data []byte) (ParseResult, error) {
	sheet, err := ReadSheet(filename, data)
	if err != nil {
		return ParseResult{}, err
	}
	return ValidateRows(NormalizeSheet(sheet)), nil
}

// FilterValid re-runs validation over rows submitted by a client for preview
// or execute, so a row with a blocking error can never reach the datastore.
func FilterValid(rows []ImportRow) ([]ImportRow, []ValidationError) {
	res := ValidateRows(rows)
	blocking := make([]ValidationError, 0, len(res.Errors))
	for _, e := range res.Errors {
		if e.Blocking() {
			blocking = append(blocking, e)
		}
	}
	return res.Rows, blocking
}
