package loader

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
)

// Workbook holds every sheet of a spreadsheet as raw string cells. The
// fiscal survey workbooks have no usable headers, so callers address cells
// by column index.
type Workbook struct {
	Sheets map[string][][]string
}

// ReadWorkbook reads all sheets of an .xlsx file into string cells.
func ReadWorkbook(path string) (*Workbook, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "loader: open workbook %s", path)
	}

	wb := &Workbook{Sheets: make(map[string][][]string, len(f.Sheets))}
	for _, sheet := range f.Sheets {
		rows := make([][]string, 0, len(sheet.Rows))
		for _, row := range sheet.Rows {
			cells := make([]string, len(row.Cells))
			for i, cell := range row.Cells {
				cells[i] = strings.TrimSpace(cell.String())
			}
			rows = append(rows, cells)
		}
		wb.Sheets[sheet.Name] = rows
	}

	return wb, nil
}

// FindWorkbook returns the first .xlsx file under dir, skipping Office
// lock files. Returns "" when the directory holds none.
func FindWorkbook(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", eris.Wrapf(err, "loader: read dir %s", dir)
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if strings.HasPrefix(name, "~$") {
			continue
		}
		if strings.EqualFold(filepath.Ext(name), ".xlsx") {
			return filepath.Join(dir, name), nil
		}
	}
	return "", nil
}

// Cell returns the trimmed cell at (row, col) of a sheet, or "" when out of
// range.
func Cell(rows [][]string, row, col int) string {
	if row < 0 || row >= len(rows) {
		return ""
	}
	r := rows[row]
	if col < 0 || col >= len(r) {
		return ""
	}
	return r[col]
}
