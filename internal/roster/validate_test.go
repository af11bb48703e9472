package roster_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	. "github.com/albapepper/courtside/internal/roster"
	"github.com/albapepper/courtside/internal/roster/rostertest"
)

func fieldsOf(errs []ValidationError) []Field {
	out := make([]Field, len(errs))
	for i, e := range errs {
		out[i] = e.Field
	}
	return out
}

func TestValidateRow_Valid(t *testing.T) {
	errs, warns := ValidateRow(janeDoe(), 2)
	require.Empty(t, errs)
	require.ElementsMatch(t, []Field{FieldJerseyNumber, FieldParent1Relationship}, fieldsOf(warns))
	for _, w := range warns {
		require.Equal(t, 2, w.Row)
	}
}

func TestValidateRow_DateOfBirth(t *testing.T) {
	tests := []struct {
		name    string
		dob     string
		wantMsg string
	}{
		{name: "us format", dob: "05/01/2013", wantMsg: "Date of birth must be in YYYY-MM-DD format"},
		{name: "missing day", dob: "2013-05", wantMsg: "Date of birth must be in YYYY-MM-DD format"},
		{name: "with time", dob: "2013-05-01T00:00:00Z", wantMsg: "Date of birth must be in YYYY-MM-DD format"},
		{name: "impossible date", dob: "2013-02-30", wantMsg: "Date of birth is not a valid date"},
		{name: "month 13", dob: "2013-13-01", wantMsg: "Date of birth is not a valid date"},
		{name: "empty", dob: "", wantMsg: "Date of birth is required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			row := janeDoe()
			row.PlayerDOB = tt.dob
			errs, _ := ValidateRow(row, 7)
			require.Equal(t, []ValidationError{{Row: 7, Field: FieldPlayerDOB, Message: tt.wantMsg}}, errs)
		})
	}
}

func TestValidateRow_Gender(t *testing.T) {
	for _, g := range []string{"M", "f", "Male", "FEMALE", "boy", "Girl", "x", "Other", "non-binary"} {
		row := janeDoe()
		row.PlayerGender = g
		errs, _ := ValidateRow(row, 2)
		require.Empty(t, errs, g)
	}
	for _, g := range []string{"W", "unknown", "n"} {
		row := janeDoe()
		row.PlayerGender = g
		errs, _ := ValidateRow(row, 2)
		require.Equal(t, []Field{FieldPlayerGender}, fieldsOf(errs), g)
	}
}

func TestValidateRow_RequiredFields(t *testing.T) {
	for _, f := range RequiredFields {
		t.Run(string(f), func(t *testing.T) {
			row := janeDoe()
			row.Set(f, "  ")
			errs, _ := ValidateRow(row, 2)
			require.Equal(t, []Field{f}, fieldsOf(errs))

			res := ValidateRows([]ImportRow{row})
			require.Empty(t, res.Rows, "row missing %s must be excluded", f)
			require.Equal(t, 1, res.Summary.Error)
		})
	}
}

func TestValidateRow_Parent1Email(t *testing.T) {
	for _, email := range []string{"not-an-email", "a@b", "a b@c.com", "@b.com"} {
		row := janeDoe()
		row.Parent1Email = email
		errs, _ := ValidateRow(row, 2)
		require.Equal(t, []Field{FieldParent1Email}, fieldsOf(errs), email)
	}
}

func TestValidateRow_Parent2(t *testing.T) {
	tests := []struct {
		name   string
		first  string
		last   string
		email  string
		phone  string
		fields []Field
	}{
		{name: "absent", fields: nil},
		{name: "complete", first: "Bob", last: "Doe", email: "bob@b.com", fields: nil},
		{name: "email only", email: "bob@b.com", fields: []Field{FieldParent2FirstName, FieldParent2LastName}},
		{name: "first only", first: "Bob", fields: []Field{FieldParent2Email, FieldParent2LastName}},
		{name: "last only", last: "Doe", fields: []Field{FieldParent2Email, FieldParent2FirstName}},
		{name: "names without email", first: "Bob", last: "Doe", fields: []Field{FieldParent2Email}},
		{name: "bad email", first: "Bob", last: "Doe", email: "bob", fields: []Field{FieldParent2Email}},
		{name: "phone only", phone: "555", fields: []Field{FieldParent2Email, FieldParent2FirstName, FieldParent2LastName}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			row := janeDoe()
			row.Parent2FirstName, row.Parent2LastName, row.Parent2Email, row.Parent2Phone = tt.first, tt.last, tt.email, tt.phone
			errs, _ := ValidateRow(row, 2)
			require.ElementsMatch(t, tt.fields, fieldsOf(errs))

			// Parent 2 findings never exclude a row.
			res := ValidateRows([]ImportRow{row})
			require.Len(t, res.Rows, 1)
			require.Equal(t, 0, res.Summary.Error)
		})
	}
}

func TestValidateRow_Parent2SameEmailAsParent1(t *testing.T) {
	row := janeDoe()
	row.Parent2FirstName, row.Parent2LastName = "Bob", "Doe"
	row.Parent2Email = strings.ToUpper(row.Parent1Email)

	errs, warns := ValidateRow(row, 2)
	require.Empty(t, errs)
	require.Contains(t, warns, ValidationError{Row: 2, Field: FieldParent2Email, Message: DuplicateParent2Message})
}

func TestValidationError_Blocking(t *testing.T) {
	tests := []struct {
		field Field
		want  bool
	}{
		{FieldPlayerFirstName, true},
		{FieldPlayerDOB, true},
		{FieldPlayerGender, true},
		{FieldTeamName, true},
		{FieldSeason, true},
		{FieldParent1Email, true},
		{FieldParent1LastName, true},
		{FieldParent2Email, false},
		{FieldParent2FirstName, false},
		{FieldJerseyNumber, false},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, ValidationError{Field: tt.field}.Blocking(), tt.field)
	}
}

func TestValidateRows_Example(t *testing.T) {
	res := ValidateRows([]ImportRow{janeDoe()})
	require.Empty(t, res.Errors)
	require.Len(t, res.Rows, 1)
	require.Equal(t, 2, res.Rows[0].Row)

	bad := janeDoe()
	bad.PlayerDOB = "05/01/2013"
	res = ValidateRows([]ImportRow{bad})
	require.Empty(t, res.Rows)
	require.Len(t, res.Errors, 1)
	require.Equal(t, FieldPlayerDOB, res.Errors[0].Field)
	require.Equal(t, "Date of birth must be in YYYY-MM-DD format", res.Errors[0].Message)
}

func TestValidateRows_HundredRowsThreeMissingTeam(t *testing.T) {
	rows := newRowFaker(42).rows(100)
	for _, i := range []int{3, 50, 99} {
		rows[i].TeamName = ""
	}

	res := ValidateRows(rows)
	require.Equal(t, 100, res.Summary.Total)
	require.Equal(t, 3, res.Summary.Error)
	require.Equal(t, 97, res.Summary.Valid)
	require.Len(t, res.Rows, 97)
	require.Len(t, res.Errors, 3)
	for _, e := range res.Errors {
		require.Equal(t, FieldTeamName, e.Field)
	}

	preview, err := NewReconciler(rostertest.NewMemoryStore(), discardLogger()).Preview(t.Context(), rows)
	require.NoError(t, err)
	require.Equal(t, 97, preview.Summary.Total)
	require.Len(t, preview.Rejected, 3)
}

func TestValidateRows_TrimsValues(t *testing.T) {
	row := janeDoe()
	row.PlayerFirstName = "  Jane "
	res := ValidateRows([]ImportRow{row})
	require.Len(t, res.Rows, 1)
	require.Equal(t, "Jane", res.Rows[0].PlayerFirstName)
}

func TestCanonicalGender(t *testing.T) {
	g, ok := CanonicalGender(" Girl ")
	require.True(t, ok)
	require.Equal(t, "F", g)

	_, ok = CanonicalGender("")
	require.False(t, ok)
}
