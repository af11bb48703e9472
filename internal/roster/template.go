package roster

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

// TemplateFilename is the download name of the import template.
const TemplateFilename = "roster-import-template.xlsx"

// RequiredFields are the fields every row must carry.
var RequiredFields = []Field{
	FieldPlayerFirstName,
	FieldPlayerLastName,
	FieldPlayerDOB,
	FieldPlayerGender,
	FieldTeamName,
	FieldSeason,
	FieldParent1FirstName,
	FieldParent1LastName,
	FieldParent1Email,
}

var exampleRow = ImportRow{
	PlayerFirstName:     "Jane",
	PlayerLastName:      "Doe",
	PlayerDOB:           "2013-05-01",
	PlayerGender:        "F",
	PlayerGrade:         "6",
	JerseyNumber:        "23",
	JerseySize:          "YM",
	TeamName:            "U12 Girls",
	Season:              "2025",
	TeamDivision:        "U12",
	Parent1FirstName:    "Ann",
	Parent1LastName:     "Doe",
	Parent1Email:        "ann.doe@example.com",
	Parent1Phone:        "555-0100",
	Parent1Relationship: "Mother",
}

// Template builds the import workbook: a Players sheet with the preferred
// header for every field and one example row, plus an Instructions sheet.
func Template() ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), PreferredSheet); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}

	header := make([]any, len(Fields))
	example := make([]any, len(Fields))
	for i, field := range Fields {
		header[i] = TemplateHeader(field)
		example[i] = exampleRow.Get(field)
	}
	if err := f.SetSheetRow(PreferredSheet, "A1", &header); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}
	if err := f.SetSheetRow(PreferredSheet, "A2", &example); err != nil {
		return nil, fmt.Errorf("write example: %w", err)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, fmt.Errorf("header style: %w", err)
	}
	last, err := excelize.CoordinatesToCellName(len(Fields), 1)
	if err != nil {
		return nil, err
	}
	if err := f.SetCellStyle(PreferredSheet, "A1", last, bold); err != nil {
		return nil, fmt.Errorf("apply header style: %w", err)
	}
	lastCol, _ := excelize.ColumnNumberToName(len(Fields))
	if err := f.SetColWidth(PreferredSheet, "A", lastCol, 20); err != nil {
		return nil, fmt.Errorf("column width: %w", err)
	}

	if err := writeInstructions(f, bold); err != nil {
		return nil, err
	}
	f.SetActiveSheet(0)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func writeInstructions(f *excelize.File, bold int) error {
	const sheet = "Instructions"
	if _, err := f.NewSheet(sheet); err != nil {
		return fmt.Errorf("add instructions sheet: %w", err)
	}

	required := make([]string, len(RequiredFields))
	for i, field := range RequiredFields {
		required[i] = TemplateHeader(field)
	}
	lines := [][]any{
		{"Roster import"},
		{"Fill one row per player on the Players sheet. Keep the header row."},
		{"Required columns", strings.Join(required, ", ")},
		{"Date of Birth", "YYYY-MM-DD, for example 2013-05-01"},
		{"Gender", strings.Join(AcceptedGenders, ", ")},
		{"Parent 2", "Optional. If any Parent 2 column is filled, first name, last name and email are required."},
		{"Player ID", "Optional. When present, rows are matched to existing players by this id only."},
		{"Warnings", "Rows without a jersey number or parent 1 relationship are imported with a warning."},
	}
	for i, line := range lines {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow(sheet, cell, &line); err != nil {
			return fmt.Errorf("write instructions: %w", err)
		}
	}
	if err := f.SetCellStyle(sheet, "A1", "A1", bold); err != nil {
		return err
	}
	return f.SetColWidth(sheet, "A", "A", 22)
}
