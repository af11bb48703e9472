package roster

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/extrame/xls"
	"github.com/richardlehane/mscfb"
)

// cfbMagic opens every OLE compound file, the container of legacy BIFF .xls
// workbooks.
var cfbMagic = []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}

const (
	// xlsMaxCols is the BIFF8 column limit.
	xlsMaxCols = 256

	cfbSector     = 512
	cfbFATEntries = cfbSector / 4
	// cfbHeaderFATs is the number of FAT sectors the header can list without
	// DIFAT sectors.
	cfbHeaderFATs = 109
	cfbMiniCutoff = 4096

	cfbEndOfChain = 0xFFFFFFFE
	cfbFreeSect   = 0xFFFFFFFF
	cfbFATSect    = 0xFFFFFFFD
)

// ErrWorkbookTooLarge is returned for .xls workbooks whose stream does not
// fit a single-level FAT.
var ErrWorkbookTooLarge = errors.New("legacy .xls workbook too large, save it as .xlsx")

// readXLS reads a BIFF workbook. The compound file is parsed and checked by
// mscfb first; the BIFF decoder then only sees the Workbook stream inside a
// freshly written container, because its own container reader exits the
// process on broken sector chains. Decoder panics are reported as errors.
func readXLS(data []byte) (s *Sheet, err error) {
	defer func() {
		if r := recover(); r != nil {
			s, err = nil, fmt.Errorf("open workbook: malformed xls: %v", r)
		}
	}()

	stream, err := workbookStream(data)
	if err != nil {
		return nil, err
	}
	container, err := wrapCFB(stream)
	if err != nil {
		return nil, err
	}

	wb, err := xls.OpenReader(bytes.NewReader(container), "utf-8")
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	if wb == nil || wb.NumSheets() == 0 {
		return nil, fmt.Errorf("workbook has no sheets")
	}

	names := make([]string, wb.NumSheets())
	for i := range names {
		names[i] = wb.GetSheet(i).Name
	}
	idx := pickSheet(names)
	ws := wb.GetSheet(idx)

	rows := make([][]string, 0, int(ws.MaxRow)+1)
	for i := 0; i <= int(ws.MaxRow); i++ {
		rows = append(rows, xlsRow(ws, i))
	}
	return buildSheet(names[idx], rows)
}

// workbookStream returns the BIFF stream of a compound file. Excel 97 and
// later name it "Workbook", Excel 5 "Book".
func workbookStream(data []byte) ([]byte, error) {
	doc, err := mscfb.New(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	var book *mscfb.File
	for _, f := range doc.File {
		switch {
		case f.Name == "Workbook":
			book = f
		case f.Name == "Book" && book == nil:
			book = f
		}
	}
	if book == nil {
		return nil, fmt.Errorf("open workbook: no Workbook stream")
	}
	stream, err := io.ReadAll(book)
	if err != nil {
		return nil, fmt.Errorf("read workbook stream: %w", err)
	}
	return stream, nil
}

// wrapCFB writes stream as the only "Workbook" entry of a version 3 compound
// file: FAT sectors first, then one directory sector, then the stream padded
// past the mini stream cutoff.
func wrapCFB(stream []byte) ([]byte, error) {
	size := max(cfbMiniCutoff, (len(stream)+cfbSector-1)/cfbSector*cfbSector)
	nStream := size / cfbSector
	nFAT := 1
	for nFAT*cfbFATEntries < nFAT+1+nStream {
		nFAT++
	}
	if nFAT > cfbHeaderFATs {
		return nil, ErrWorkbookTooLarge
	}
	dirSect := nFAT
	first := nFAT + 1

	le := binary.LittleEndian
	out := make([]byte, cfbSector*(1+nFAT+1+nStream))

	h := out[:cfbSector]
	copy(h, cfbMagic)
	le.PutUint16(h[24:], 0x003E)
	le.PutUint16(h[26:], 0x0003)
	le.PutUint16(h[28:], 0xFFFE)
	le.PutUint16(h[30:], 9)
	le.PutUint16(h[32:], 6)
	le.PutUint32(h[44:], uint32(nFAT))
	le.PutUint32(h[48:], uint32(dirSect))
	le.PutUint32(h[56:], cfbMiniCutoff)
	le.PutUint32(h[60:], cfbEndOfChain)
	le.PutUint32(h[68:], cfbEndOfChain)
	for i := 0; i < cfbHeaderFATs; i++ {
		v := uint32(cfbFreeSect)
		if i < nFAT {
			v = uint32(i)
		}
		le.PutUint32(h[76+4*i:], v)
	}

	sector := func(n int) []byte { return out[cfbSector*(n+1) : cfbSector*(n+2)] }
	fat := out[cfbSector : cfbSector*(1+nFAT)]
	for i := 0; i < nFAT*cfbFATEntries; i++ {
		var v uint32
		switch {
		case i < nFAT:
			v = cfbFATSect
		case i == dirSect:
			v = cfbEndOfChain
		case i >= first && i < first+nStream-1:
			v = uint32(i + 1)
		case i == first+nStream-1:
			v = cfbEndOfChain
		default:
			v = cfbFreeSect
		}
		le.PutUint32(fat[4*i:], v)
	}

	dir := sector(dirSect)
	entry := func(off int, name string, kind byte, child, start, size uint32) {
		for i, r := range name {
			le.PutUint16(dir[off+2*i:], uint16(r))
		}
		le.PutUint16(dir[off+64:], uint16(2*(len(name)+1)))
		dir[off+66] = kind
		dir[off+67] = 1 // black
		le.PutUint32(dir[off+68:], cfbFreeSect)
		le.PutUint32(dir[off+72:], cfbFreeSect)
		le.PutUint32(dir[off+76:], child)
		le.PutUint32(dir[off+116:], start)
		le.PutUint32(dir[off+120:], size)
	}
	entry(0, "Root Entry", 5, 1, cfbEndOfChain, 0)
	entry(128, "Workbook", 2, cfbFreeSect, uint32(first), uint32(size))
	for off := 256; off < cfbSector; off += 128 {
		le.PutUint32(dir[off+68:], cfbFreeSect)
		le.PutUint32(dir[off+72:], cfbFreeSect)
		le.PutUint32(dir[off+76:], cfbFreeSect)
	}

	copy(out[cfbSector*(first+1):], stream)
	return out, nil
}

// xlsRow returns the cells of row i with trailing blanks trimmed. Rows the
// sheet never stored come back empty.
func xlsRow(ws *xls.WorkSheet, i int) []string {
	row := storedRow(ws, i)
	if row == nil {
		return nil
	}
	cells := make([]string, xlsMaxCols)
	last := -1
	for c := range cells {
		cells[c] = xlsCell(row.Col(c))
		if strings.TrimSpace(cells[c]) != "" {
			last = c
		}
	}
	return cells[:last+1]
}

// storedRow returns nil for rows without any record; WorkSheet.Row panics on
// those.
func storedRow(ws *xls.WorkSheet, i int) (row *xls.Row) {
	defer func() {
		if recover() != nil {
			row = nil
		}
	}()
	return ws.Row(i)
}

// xlsCell turns the decoder's timestamp rendering of date cells back into a
// plain date.
func xlsCell(v string) string {
	if t, err := time.Parse(time.RFC3339, v); err == nil && t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 {
		return t.Format(DateLayout)
	}
	return v
}
