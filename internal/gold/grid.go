package gold

import (
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
)

// Grid is a read-only view of a worksheet addressed with 1-based row and
// column numbers, the way abstract templates are described.
type Grid struct {
	cells  [][]any
	maxCol int
}

// NewGrid converts a worksheet into a Grid. Empty cells read as nil, date
// cells as YYYY-MM-DD strings and numeric cells as float64.
func NewGrid(sheet *xlsx.Sheet) *Grid {
	g := &Grid{cells: make([][]any, len(sheet.Rows))}
	for i, row := range sheet.Rows {
		if row == nil {
			continue
		}
		vals := make([]any, len(row.Cells))
		for j, cell := range row.Cells {
			vals[j] = cellValue(cell)
		}
		g.cells[i] = vals
		if len(vals) > g.maxCol {
			g.maxCol = len(vals)
		}
	}
	return g
}

// GridFromValues builds a Grid from row-major values.
func GridFromValues(rows [][]any) *Grid {
	g := &Grid{cells: rows}
	for _, r := range rows {
		if len(r) > g.maxCol {
			g.maxCol = len(r)
		}
	}
	return g
}

// MaxRow returns the number of rows.
func (g *Grid) MaxRow() int { return len(g.cells) }

// MaxCol returns the width of the widest row.
func (g *Grid) MaxCol() int { return g.maxCol }

// At returns the value at row, col, or nil when out of range.
func (g *Grid) At(row, col int) any {
	if row < 1 || col < 1 || row > len(g.cells) {
		return nil
	}
	r := g.cells[row-1]
	if col > len(r) {
		return nil
	}
	return r[col-1]
}

// Text returns the value at row, col as trimmed text, or "" when empty.
func (g *Grid) Text(row, col int) string {
	v := g.At(row, col)
	if v == nil {
		return ""
	}
	return strings.TrimSpace(valueText(v))
}

// Find returns the first cell, scanning rows below maxRow and columns
// 1 to 16, whose text contains label case-insensitively.
func (g *Grid) Find(label string, maxRow int) (int, int, bool) {
	want := strings.ToLower(label)
	last := min(maxRow-1, g.MaxRow())
	for row := 1; row <= last; row++ {
		for col := 1; col <= labelColumns; col++ {
			v := g.At(row, col)
			if !truthy(v) {
				continue
			}
			if strings.Contains(strings.ToLower(valueText(v)), want) {
				return row, col, true
			}
		}
	}
	return 0, 0, false
}

// RightOf returns the first non-empty value within five cells to the right
// of label.
func (g *Grid) RightOf(label string) any {
	row, col, ok := g.Find(label, defaultMaxRow)
	if !ok {
		return nil
	}
	for c := col + 1; c < min(col+6, labelColumns+1); c++ {
		if v := g.At(row, c); v != nil {
			return v
		}
	}
	return nil
}

// Offset returns the value at a fixed offset from label.
func (g *Grid) Offset(label string, rows, cols int) any {
	row, col, ok := g.Find(label, defaultMaxRow)
	if !ok {
		return nil
	}
	return g.At(row+rows, col+cols)
}

// Join joins the text of n cells going down column col from row, skipping
// empty ones. It returns nil when all are empty.
func (g *Grid) Join(row, col, n int) any {
	var parts []string
	for r := row; r < row+n; r++ {
		if s := g.Text(r, col); s != "" {
			parts = append(parts, s)
		}
	}
	if len(parts) == 0 {
		return nil
	}
	return strings.Join(parts, " ")
}

const (
	labelColumns  = 16
	defaultMaxRow = 200
)

func cellValue(c *xlsx.Cell) any {
	if c == nil {
		return nil
	}
	raw := strings.TrimSpace(c.Value)
	if raw == "" {
		return nil
	}
	switch c.Type() {
	case xlsx.CellTypeNumeric:
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return raw
		}
		if isDateFormat(c.NumFmt) {
			return xlsx.TimeFromExcelTime(f, false).Format("2006-01-02")
		}
		return f
	case xlsx.CellTypeBool:
		return raw == "1"
	default:
		s := strings.TrimSpace(c.String())
		if s == "" {
			return nil
		}
		return s
	}
}

// isDateFormat reports whether an Excel number format renders a date.
func isDateFormat(numFmt string) bool {
	f := strings.ToLower(numFmt)
	if f == "" || f == "general" {
		return false
	}
	// drop quoted literals and escapes before looking for date tokens
	var sb strings.Builder
	inQuote := false
	for i := 0; i < len(f); i++ {
		switch {
		case f[i] == '"':
			inQuote = !inQuote
		case inQuote:
		case f[i] == '\\':
			i++
		default:
			sb.WriteByte(f[i])
		}
	}
	s := sb.String()
	return strings.ContainsAny(s, "dy") || strings.Contains(s, "mmm")
}

func valueText(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		if t {
			return "True"
		}
		return "False"
	default:
		return ""
	}
}

// truthy follows spreadsheet intuition: empty text and zero are blank.
func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case string:
		return t != ""
	case float64:
		return t != 0
	case bool:
		return t
	default:
		return true
	}
}

func selectSheet(f *xlsx.File, name string) (*xlsx.Sheet, error) {
	if name != "" {
		sheet, ok := f.Sheet[name]
		if !ok {
			return nil, eris.Errorf("gold: sheet %q not found", name)
		}
		return sheet, nil
	}
	if len(f.Sheets) == 0 {
		return nil, eris.New("gold: workbook has no sheets")
	}
	return f.Sheets[0], nil
}
