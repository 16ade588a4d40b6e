package tabular

import (
	"errors"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParse_HeaderAndRows(t *testing.T) {
	tbl, err := ParseString("\ufeffspecies, mass ,habitat\nA,1.5,forest\nB,2.5,\"open, dry\"\n\nC,NA\n")
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if diff := cmp.Diff([]string{"species", "mass", "habitat"}, tbl.Columns()); diff != "" {
		t.Fatalf("Columns mismatch (-want +got):\n%s", diff)
	}
	if tbl.Len() != 3 {
		t.Fatalf("Len = %d, want 3", tbl.Len())
	}
	if got := tbl.Value(1, "habitat"); got != "open, dry" {
		t.Fatalf("Value(1, habitat) = %q, want %q", got, "open, dry")
	}
	if got := tbl.Value(2, "habitat"); got != "" {
		t.Fatalf("short row should pad missing cells, got %q", got)
	}
	want := [][]string{{"A", "1.5", "forest"}, {"B", "2.5", "open, dry"}, {"C", "NA", ""}}
	if diff := cmp.Diff(want, tbl.Records()); diff != "" {
		t.Fatalf("Records mismatch (-want +got):\n%s", diff)
	}
}

func TestParse_Errors(t *testing.T) {
	cases := []struct {
		name  string
		input string
	}{
		{"empty", ""},
		{"duplicate column", "a,b,a\n1,2,3\n"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseString(tc.input)
			if !errors.Is(err, ErrParse) {
				t.Fatalf("Parse(%q) error = %v, want ErrParse", tc.input, err)
			}
		})
	}
}

func TestColumnsAndRowReturnCopies(t *testing.T) {
	tbl, err := ParseString("a,b\n1,2\n")
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	cols := tbl.Columns()
	cols[0] = "mutated"
	row := tbl.Row(0)
	row["a"] = "mutated"
	if !tbl.HasColumn("a") || tbl.Value(0, "a") != "1" {
		t.Fatalf("table mutated through returned copies")
	}
	var nilTable *Table
	if nilTable.HasColumn("a") || nilTable.Len() != 0 || nilTable.Columns() != nil {
		t.Fatalf("nil table should behave as empty")
	}
}

func TestRowAndValueOutOfRange(t *testing.T) {
	tbl, err := ParseString("a,b\n1,2\n")
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	var nilTable *Table
	cases := []struct {
		name string
		tbl  *Table
		row  int
	}{
		{"nil table", nilTable, 0},
		{"negative", tbl, -1},
		{"past end", tbl, 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if row := tc.tbl.Row(tc.row); row != nil {
				t.Fatalf("Row(%d) = %v, want nil", tc.row, row)
			}
			if v := tc.tbl.Value(tc.row, "a"); v != "" {
				t.Fatalf("Value(%d) = %q, want empty", tc.row, v)
			}
		})
	}
}

func TestSummarize(t *testing.T) {
	tbl, err := ParseString("sp,mass,len,habitat\nA,1,5,x\nB,3,,y\nC,5,NA,z\n")
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}

	mass := tbl.Summarize("mass")
	if mass.Numeric != 3 || mass.Missing != 0 {
		t.Fatalf("mass counts = %+v", mass)
	}
	if mass.Mean != 3 || math.Abs(mass.StdDev-2) > 1e-12 || mass.Min != 1 || mass.Max != 5 {
		t.Fatalf("mass summary = %+v, want mean 3 sd 2 range 1..5", mass)
	}

	length := tbl.Summarize("len")
	if length.Numeric != 1 || length.Missing != 2 || length.StdDev != 0 {
		t.Fatalf("len summary = %+v, want 1 numeric 2 missing sd 0", length)
	}

	if tbl.Summarize("habitat").IsNumeric() {
		t.Fatalf("habitat should not be numeric")
	}
	if tbl.Summarize("nope").IsNumeric() {
		t.Fatalf("unknown column should not be numeric")
	}

	if diff := cmp.Diff([]string{"mass", "len"}, tbl.NumericColumns()); diff != "" {
		t.Fatalf("NumericColumns mismatch (-want +got):\n%s", diff)
	}
}
