package extraction

import (
	"errors"
	"regexp"
	"strings"
)

// ErrNoHeader is returned when the text holds no table header
var ErrNoHeader = errors.New("markdown table has no header")

// Row maps a column name to a cell value
type Row map[string]string

// Table is a parsed Markdown table
type Table struct {
	Headers []string
	Rows    [][]string
}

// Records zips every row with the headers by position. A short row yields
// a record missing its trailing keys.
func (t *Table) Records() []Row {
	records := make([]Row, 0, len(t.Rows))
	for _, cells := range t.Rows {
		row := make(Row, len(cells))
		for i, cell := range cells {
			row[t.Headers[i]] = cell
		}
		records = append(records, row)
	}
	return records
}

// SeparatorPolicy picks the separator line of a table. lines[0] is the
// header; the returned index must be at least 1.
type SeparatorPolicy interface {
	SeparatorIndex(lines []string) int
}

// SeparatorFunc adapts a function to SeparatorPolicy
type SeparatorFunc func(lines []string) int

func (f SeparatorFunc) SeparatorIndex(lines []string) int {
	return f(lines)
}

// DashRowOrSecondLine uses the first dash row after the header. Without one,
// the line right after the header is taken as the separator whatever it holds.
var DashRowOrSecondLine SeparatorPolicy = SeparatorFunc(func(lines []string) int {
	for i := 1; i < len(lines); i++ {
		if isSeparatorRow(lines[i]) {
			return i
		}
	}
	return 1
})

var separatorCell = regexp.MustCompile(`^:?-+:?$`)

// isSeparatorRow reports whether every non-empty cell is a dash run or
// an alignment marker such as :---:
func isSeparatorRow(line string) bool {
	if !strings.Contains(line, "-") {
		return false
	}
	seen := false
	for _, cell := range strings.Split(line, "|") {
		cell = strings.TrimSpace(cell)
		if cell == "" {
			continue
		}
		if !separatorCell.MatchString(cell) {
			return false
		}
		seen = true
	}
	return seen
}

// TableParser extracts a Markdown table from model output
type TableParser struct {
	Separator SeparatorPolicy
}

// NewTableParser returns a parser using DashRowOrSecondLine
func NewTableParser() *TableParser {
	return &TableParser{Separator: DashRowOrSecondLine}
}

// Parse locates the table in text
func (p *TableParser) Parse(text string) (*Table, error) {
	var lines []string
	for _, line := range strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n") {
		line = strings.TrimSpace(line)
		if len(lines) == 0 && line == "" {
			continue
		}
		lines = append(lines, line)
	}
	if len(lines) == 0 {
		return nil, ErrNoHeader
	}

	var headers []string
	for _, cell := range strings.Split(lines[0], "|") {
		if cell = strings.TrimSpace(cell); cell != "" {
			headers = append(headers, cell)
		}
	}
	if len(headers) == 0 {
		return nil, ErrNoHeader
	}

	policy := p.Separator
	if policy == nil {
		policy = DashRowOrSecondLine
	}
	sep := policy.SeparatorIndex(lines)
	if sep < 1 {
		sep = 1
	}

	table := &Table{Headers: headers, Rows: [][]string{}}
	if sep+1 >= len(lines) {
		return table, nil
	}
	for _, line := range lines[sep+1:] {
		if !strings.Contains(line, "|") {
			continue
		}
		cells := splitCells(line)
		if len(cells) > len(headers) {
			cells = cells[:len(headers)]
		}
		table.Rows = append(table.Rows, cells)
	}
	return table, nil
}

// Records parses text and returns one Row per data line
func (p *TableParser) Records(text string) ([]Row, error) {
	table, err := p.Parse(text)
	if err != nil {
		return nil, err
	}
	return table.Records(), nil
}

// splitCells splits a row on pipes, dropping the empty cell a leading or
// trailing pipe produces
func splitCells(line string) []string {
	cells := strings.Split(line, "|")
	for i := range cells {
		cells[i] = strings.TrimSpace(cells[i])
	}
	if len(cells) > 0 && cells[0] == "" {
		cells = cells[1:]
	}
	if len(cells) > 0 && cells[len(cells)-1] == "" {
		cells = cells[:len(cells)-1]
	}
	return cells
}
