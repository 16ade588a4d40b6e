// Package tabular parses delimited trait tables with a header row.
package tabular

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/stat"
)

// ErrParse reports malformed table content.
var ErrParse = errors.New("malformed table")

// Row maps column names to cell values.
type Row map[string]string

// Table is an immutable parsed table. Columns keep header order.
type Table struct {
	columns []string
	rows    []Row
}

// Parse reads comma separated text whose first record names the columns.
func Parse(r io.Reader) (*Table, error) {
	reader := csv.NewReader(r)
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: empty input", ErrParse)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}

	columns := make([]string, len(header))
	seen := make(map[string]bool, len(header))
	for i, h := range header {
		name := strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		if seen[name] {
			return nil, fmt.Errorf("%w: duplicate column %q", ErrParse, name)
		}
		seen[name] = true
		columns[i] = name
	}

	t := &Table{columns: columns}
	for {
		rec, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrParse, err)
		}
		if len(rec) == 1 && strings.TrimSpace(rec[0]) == "" {
			continue
		}
		row := make(Row, len(columns))
		for i, name := range columns {
			if i < len(rec) {
				row[name] = rec[i]
			} else {
				row[name] = ""
			}
		}
		t.rows = append(t.rows, row)
	}
	return t, nil
}

// ParseString is a convenience wrapper around Parse.
func ParseString(s string) (*Table, error) {
	return Parse(strings.NewReader(s))
}

// Columns returns a copy of the column names.
func (t *Table) Columns() []string {
	if t == nil {
		return nil
	}
	return append([]string(nil), t.columns...)
}

// HasColumn reports whether name is one of the table's columns.
func (t *Table) HasColumn(name string) bool {
	if t == nil {
		return false
	}
	for _, c := range t.columns {
		if c == name {
			return true
		}
	}
	return false
}

// Len returns the number of data rows.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.rows)
}

// Row returns a copy of row i, or nil when i is out of range.
func (t *Table) Row(i int) Row {
	if t == nil || i < 0 || i >= len(t.rows) {
		return nil
	}
	dup := make(Row, len(t.columns))
	for k, v := range t.rows[i] {
		dup[k] = v
	}
	return dup
}

// Value returns the cell at row i, column name. Missing cells are empty.
func (t *Table) Value(i int, name string) string {
	if t == nil || i < 0 || i >= len(t.rows) {
		return ""
	}
	return t.rows[i][name]
}

// Records returns the table as header-ordered string slices, without the header.
func (t *Table) Records() [][]string {
	if t == nil {
		return nil
	}
	out := make([][]string, len(t.rows))
	for i, row := range t.rows {
		rec := make([]string, len(t.columns))
		for j, name := range t.columns {
			rec[j] = row[name]
		}
		out[i] = rec
	}
	return out
}

// Summary describes the numeric content of one column.
type Summary struct {
	Column  string
	Numeric int // cells that parse as numbers
	Missing int // blank or NA cells
	Mean    float64
	StdDev  float64
	Min     float64
	Max     float64
}

// IsNumeric reports whether every present cell of the column is a number.
func (s Summary) IsNumeric() bool {
	return s.Numeric > 0
}

// Summarize computes a Summary for column name. Columns holding any
// non-numeric, non-missing cell report zero Numeric.
func (t *Table) Summarize(name string) Summary {
	sum := Summary{Column: name}
	if !t.HasColumn(name) {
		return sum
	}
	values := make([]float64, 0, len(t.rows))
	for _, row := range t.rows {
		cell := strings.TrimSpace(row[name])
		if cell == "" || strings.EqualFold(cell, "NA") {
			sum.Missing++
			continue
		}
		v, err := strconv.ParseFloat(cell, 64)
		if err != nil || math.IsNaN(v) {
			return Summary{Column: name, Missing: sum.Missing}
		}
		values = append(values, v)
	}
	if len(values) == 0 {
		return sum
	}
	sum.Numeric = len(values)
	sum.Mean, sum.StdDev = stat.MeanStdDev(values, nil)
	if len(values) < 2 {
		sum.StdDev = 0
	}
	sum.Min, sum.Max = values[0], values[0]
	for _, v := range values[1:] {
		sum.Min = math.Min(sum.Min, v)
		sum.Max = math.Max(sum.Max, v)
	}
	return sum
}

// NumericColumns returns the columns whose present cells are all numbers.
func (t *Table) NumericColumns() []string {
	var out []string
	for _, c := range t.Columns() {
		if t.Summarize(c).IsNumeric() {
			out = append(out, c)
		}
	}
	return out
}
