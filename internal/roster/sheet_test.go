package roster_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	. "github.com/albapepper/courtside/internal/roster"
)

func TestReadSheet_Extensions(t *testing.T) {
	xlsx := buildXLSX(t, "", [][]string{{"Team"}, {"U12"}})
	tests := []struct {
		name     string
		filename string
		data     []byte
		wantErr  error
	}{
		{name: "xlsx", filename: "roster.xlsx", data: xlsx},
		{name: "xls name with ooxml content", filename: "ROSTER.XLS", data: xlsx},
		{name: "csv", filename: "roster.csv", data: []byte("Team\nU12\n")},
		{name: "unsupported", filename: "roster.txt", data: []byte("Team"), wantErr: ErrUnsupportedFile},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := ReadSheet(tt.filename, tt.data)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			require.Equal(t, []string{"Team"}, s.Header)
			require.Equal(t, [][]string{{"U12"}}, s.Rows)
		})
	}
}

func TestReadSheet_PrefersPlayersSheet(t *testing.T) {
	f := excelize.NewFile()
	first := f.GetSheetName(0)
	require.NoError(t, f.SetSheetRow(first, "A1", &[]any{"Notes"}))
	require.NoError(t, f.SetSheetRow(first, "A2", &[]any{"ignore me"}))
	_, err := f.NewSheet("players")
	require.NoError(t, err)
	require.NoError(t, f.SetSheetRow("players", "A1", &[]any{"First Name", "Last Name"}))
	require.NoError(t, f.SetSheetRow("players", "A2", &[]any{"Jane", "Doe"}))
	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))
	require.NoError(t, f.Close())

	s, err := ReadSheet("roster.xlsx", buf.Bytes())
	require.NoError(t, err)
	require.Equal(t, "players", s.Name)
	require.Equal(t, []string{"First Name", "Last Name"}, s.Header)
	require.Len(t, s.Rows, 1)
}

func TestReadSheet_FallsBackToFirstSheet(t *testing.T) {
	data := buildXLSX(t, "Roster 2025", [][]string{{"Team"}, {"U10"}})
	s, err := ReadSheet("roster.xlsx", data)
	require.NoError(t, err)
	require.Equal(t, "Roster 2025", s.Name)
}

func TestReadSheet_SkipsBlankRowsAndKeepsRowNumbers(t *testing.T) {
	data := buildXLSX(t, "Players", [][]string{
		{"First Name", "Team"},
		{"Jane", "U12"},
		{"", ""},
		{"  ", ""},
		{"Ann", "U14"},
	})
	s, err := ReadSheet("roster.xlsx", data)
	require.NoError(t, err)
	require.Len(t, s.Rows, 2)
	require.Equal(t, []int{2, 5}, s.RowNumbers)

	rows := NormalizeSheet(s)
	require.Equal(t, 2, rows[0].Row)
	require.Equal(t, 5, rows[1].Row)
	require.Equal(t, "Ann", rows[1].PlayerFirstName)
}

func TestReadSheet_Empty(t *testing.T) {
	_, err := ReadSheet("roster.xlsx", buildXLSX(t, "Players", nil))
	require.ErrorIs(t, err, ErrEmptySheet)

	_, err = ReadSheet("roster.csv", []byte("\n\n"))
	require.ErrorIs(t, err, ErrEmptySheet)
}

func TestReadSheet_NotAWorkbook(t *testing.T) {
	_, err := ReadSheet("roster.xlsx", []byte("definitely not a zip"))
	require.Error(t, err)
}

func TestReadSheet_LegacyXLS(t *testing.T) {
	data := buildXLS(t,
		xlsSheet{name: "Instructions", rows: [][]any{{"Fill in the Players sheet"}}},
		xlsSheet{name: "Players", rows: [][]any{
			{"First Name", "Last Name", "Jersey"},
			{"Jane", "Doe", float64(7)},
			{},
			{"Ann", "Lee", 12.5},
		}},
	)

	for _, name := range []string{"roster.xls", "roster.xlsx"} {
		t.Run(name, func(t *testing.T) {
			s, err := ReadSheet(name, data)
			require.NoError(t, err)
			require.Equal(t, "Players", s.Name)
			require.Equal(t, []string{"First Name", "Last Name", "Jersey"}, s.Header)
			require.Equal(t, [][]string{{"Jane", "Doe", "7"}, {"Ann", "Lee", "12.5"}}, s.Rows)
			require.Equal(t, []int{2, 4}, s.RowNumbers)
		})
	}
}

func TestReadSheet_LegacyXLSFallsBackToFirstSheet(t *testing.T) {
	data := buildXLS(t, xlsSheet{name: "Roster 2025", rows: [][]any{{"Team"}, {"U10"}}})
	s, err := ReadSheet("roster.xls", data)
	require.NoError(t, err)
	require.Equal(t, "Roster 2025", s.Name)
	require.Equal(t, [][]string{{"U10"}}, s.Rows)
}

func TestReadSheet_CorruptXLS(t *testing.T) {
	data := append([]byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}, make([]byte, 1024)...)
	_, err := ReadSheet("roster.xls", data)
	require.Error(t, err)
	require.NotContains(t, err.Error(), "zip")
}

func TestReadSheet_CSVByteOrderMark(t *testing.T) {
	s, err := ReadSheet("roster.csv", []byte("\xef\xbb\xbfFirst Name,Team\nJane,U12\n"))
	require.NoError(t, err)
	require.Equal(t, "First Name", s.Header[0])
}

func TestParseUpload(t *testing.T) {
	data := buildXLSX(t, "Players", [][]string{
		{"First Name", "Last Name", "DOB", "Sex", "Team Name", "Season", "Parent Email", "Parent First Name", "Parent Last Name"},
		{"Jane", "Doe", "2013-05-01", "F", "U12 Girls", "2025", "a@b.com", "Ann", "Doe"},
		{"John", "Doe", "05/01/2013", "M", "U12 Boys", "2025", "a@b.com", "Ann", "Doe"},
	})
	res, err := ParseUpload("roster.xlsx", data)
	require.NoError(t, err)
	require.Equal(t, Summary{Total: 2, Valid: 1, Error: 1, Warnings: 4}, res.Summary)
	require.Len(t, res.Rows, 1)
	require.Equal(t, 2, res.Rows[0].Row)
	require.Equal(t, "Jane", res.Rows[0].PlayerFirstName)
	require.Len(t, res.Errors, 1)
	require.Equal(t, 3, res.Errors[0].Row)
	require.Equal(t, FieldPlayerDOB, res.Errors[0].Field)
}
