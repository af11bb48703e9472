package roster

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// PreferredSheet is read when present; otherwise the first sheet is used.
const PreferredSheet = "Players"

var (
	// ErrUnsupportedFile is returned for extensions other than xlsx/xls/csv.
	ErrUnsupportedFile = errors.New("unsupported file type")
	// ErrEmptySheet is returned when no header row can be found.
	ErrEmptySheet = errors.New("sheet has no header row")
)

// Sheet is a header row plus data rows, every cell coerced to a string.
// Fully blank rows are dropped; RowNumbers keeps the original 1-based sheet
// row of each remaining data row.
type Sheet struct {
	Name       string
	Header     []string
	Rows       [][]string
	RowNumbers []int
}

// ReadSheet decodes an uploaded roster file. The parser is chosen by file
// extension, except that workbooks are sniffed so a BIFF file named .xlsx or
// an OOXML file named .xls still opens.
func ReadSheet(filename string, data []byte) (*Sheet, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".xlsx", ".xls", ".xlsm":
		if bytes.HasPrefix(data, cfbMagic) {
			return readXLS(data)
		}
		return readXLSX(data)
	case ".csv":
		return readCSV(data)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFile, filepath.Ext(filename))
	}
}

func readXLSX(data []byte) (*Sheet, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook has no sheets")
	}
	name := sheets[pickSheet(sheets)]

	rows, err := f.GetRows(name)
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", name, err)
	}
	return buildSheet(name, rows)
}

// pickSheet returns the index of PreferredSheet, or 0 when it is absent.
func pickSheet(names []string) int {
	for i, n := range names {
		if strings.EqualFold(strings.TrimSpace(n), PreferredSheet) {
			return i
		}
	}
	return 0
}

func readCSV(data []byte) (*Sheet, error) {
	r := csv.NewReader(bytes.NewReader(bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))))
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	var rows [][]string
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv: %w", err)
		}
		rows = append(rows, rec)
	}
	return buildSheet("csv", rows)
}

// buildSheet takes the first non-blank row as the header and keeps the
// sheet row numbers of the non-blank data rows that follow it.
func buildSheet(name string, rows [][]string) (*Sheet, error) {
	headerIdx := -1
	for i, row := range rows {
		if !isBlankRow(row) {
			headerIdx = i
			break
		}
	}
	if headerIdx < 0 {
		return nil, fmt.Errorf("%w: %q", ErrEmptySheet, name)
	}

	header := make([]string, len(rows[headerIdx]))
	for i, h := range rows[headerIdx] {
		header[i] = strings.TrimSpace(h)
	}

	s := &Sheet{Name: name, Header: header}
	for i := headerIdx + 1; i < len(rows); i++ {
		if isBlankRow(rows[i]) {
			continue
		}
		s.Rows = append(s.Rows, rows[i])
		s.RowNumbers = append(s.RowNumbers, i+1)
	}
	return s, nil
}

func isBlankRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
