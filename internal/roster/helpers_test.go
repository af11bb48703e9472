package roster_test

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"log/slog"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	. "github.com/albapepper/courtside/internal/roster"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func janeDoe() ImportRow {
	return ImportRow{
		PlayerFirstName:  "Jane",
		PlayerLastName:   "Doe",
		PlayerDOB:        "2013-05-01",
		PlayerGender:     "F",
		TeamName:         "U12 Girls",
		Season:           "2025",
		Parent1Email:     "a@b.com",
		Parent1FirstName: "Ann",
		Parent1LastName:  "Doe",
	}
}

// rowFaker generates valid, distinct import rows from a fixed seed.
type rowFaker struct {
	faker *gofakeit.Faker
}

func newRowFaker(seed int64) *rowFaker {
	return &rowFaker{faker: gofakeit.New(uint64(seed))}
}

func (g *rowFaker) row(i int) ImportRow {
	first, last := g.faker.FirstName(), g.faker.LastName()
	dob := g.faker.DateRange(
		time.Date(2008, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2018, 12, 31, 0, 0, 0, 0, time.UTC),
	)
	return ImportRow{
		PlayerExternalID:    fmt.Sprintf("P-%05d", i),
		PlayerFirstName:     first,
		PlayerLastName:      last,
		PlayerDOB:           dob.Format(DateLayout),
		PlayerGender:        g.faker.RandomString([]string{"M", "F", "Boy", "Girl", "female"}),
		PlayerGrade:         fmt.Sprint(g.faker.Number(1, 12)),
		JerseyNumber:        fmt.Sprint(g.faker.Number(0, 99)),
		JerseySize:          g.faker.RandomString([]string{"YS", "YM", "YL", "AS", "AM"}),
		TeamName:            g.faker.RandomString([]string{"U10 Boys", "U12 Girls", "U14 Boys"}),
		Season:              "2025",
		Parent1FirstName:    g.faker.FirstName(),
		Parent1LastName:     last,
		Parent1Email:        fmt.Sprintf("parent%d@example.com", i),
		Parent1Phone:        g.faker.Phone(),
		Parent1Relationship: g.faker.RandomString([]string{"Mother", "Father", "Guardian"}),
	}
}

func (g *rowFaker) rows(n int) []ImportRow {
	out := make([]ImportRow, n)
	for i := range out {
		out[i] = g.row(i)
		out[i].Row = i + 2
	}
	return out
}

func buildXLSX(t *testing.T, sheet string, rows [][]string) []byte {
	t.Helper()
	f := excelize.NewFile()
	name := f.GetSheetName(f.GetActiveSheetIndex())
	if sheet != "" && sheet != name {
		require.NoError(t, f.SetSheetName(name, sheet))
		name = sheet
	}
	for idx, row := range rows {
		axis, err := excelize.CoordinatesToCellName(1, idx+1)
		require.NoError(t, err)
		cells := make([]any, len(row))
		for i, val := range row {
			cells[i] = val
		}
		require.NoError(t, f.SetSheetRow(name, axis, &cells))
	}
	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))
	require.NoError(t, f.Close())
	return buf.Bytes()
}

// xlsSheet is one worksheet of a BIFF8 fixture. Cells are strings or
// float64; empty strings are left out.
type xlsSheet struct {
	name string
	rows [][]any
}

// buildXLS writes a minimal legacy .xls: a BIFF8 Workbook stream with a
// globals substream and a substream per sheet, inside a compound file.
func buildXLS(t *testing.T, sheets ...xlsSheet) []byte {
	t.Helper()
	le := binary.LittleEndian
	record := func(b *bytes.Buffer, id uint16, body []byte) {
		require.NoError(t, binary.Write(b, le, [2]uint16{id, uint16(len(body))}))
		b.Write(body)
	}
	bof := func(kind uint16) []byte {
		b := make([]byte, 16)
		le.PutUint16(b[0:], 0x0600)
		le.PutUint16(b[2:], kind)
		return b
	}

	subs := make([][]byte, len(sheets))
	for i, sh := range sheets {
		var b bytes.Buffer
		record(&b, 0x0809, bof(0x0010))
		for r, row := range sh.rows {
			for c, v := range row {
				switch v := v.(type) {
				case string:
					if v == "" {
						continue
					}
					body := make([]byte, 9, 9+len(v))
					le.PutUint16(body[0:], uint16(r))
					le.PutUint16(body[2:], uint16(c))
					le.PutUint16(body[6:], uint16(len(v)))
					record(&b, 0x0204, append(body, v...))
				case float64:
					body := make([]byte, 14)
					le.PutUint16(body[0:], uint16(r))
					le.PutUint16(body[2:], uint16(c))
					le.PutUint64(body[6:], math.Float64bits(v))
					record(&b, 0x0203, body)
				}
			}
		}
		record(&b, 0x000A, nil)
		subs[i] = b.Bytes()
	}

	pos := 4 + 16 + 4
	for _, sh := range sheets {
		pos += 4 + 8 + len(sh.name)
	}
	var stream bytes.Buffer
	record(&stream, 0x0809, bof(0x0005))
	for i, sh := range sheets {
		body := make([]byte, 8, 8+len(sh.name))
		le.PutUint32(body[0:], uint32(pos))
		body[6] = byte(len(sh.name))
		record(&stream, 0x0085, append(body, sh.name...))
		pos += len(subs[i])
	}
	record(&stream, 0x000A, nil)
	for _, sub := range subs {
		stream.Write(sub)
	}
	data, err := WrapCFB(stream.Bytes())
	require.NoError(t, err)
	return data
}
