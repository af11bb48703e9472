package roster_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	. "github.com/albapepper/courtside/internal/roster"
)

func TestTemplate_Sheets(t *testing.T) {
	data, err := Template()
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	require.Equal(t, []string{"Players", "Instructions"}, f.GetSheetList())

	rows, err := f.GetRows("Players")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	require.Len(t, rows[0], len(Fields))
	require.Equal(t, "Player ID", rows[0][0])
	require.Equal(t, "Parent 2 Relationship", rows[0][len(Fields)-1])

	instructions, err := f.GetRows("Instructions")
	require.NoError(t, err)
	require.NotEmpty(t, instructions)
}

func TestTemplate_ExampleRowParses(t *testing.T) {
	data, err := Template()
	require.NoError(t, err)

	res, err := ParseUpload(TemplateFilename, data)
	require.NoError(t, err)
	require.Empty(t, res.Errors)
	require.Empty(t, res.Warnings)
	require.Len(t, res.Rows, 1)

	want := ExampleRow
	want.Row = 2
	require.Equal(t, want, res.Rows[0])
}
