package table

import (
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/araddon/dateparse"
)

// RemoveEmpty drops every row that has at least one null cell.
func RemoveEmpty(t *Table) *Table {
	return t.filterRows(func(row []Value) bool {
		for _, v := range row {
			if v.IsNull() {
				return false
			}
		}
		return true
	})
}

// FindDuplicates returns the rows that repeat an earlier row. The first
// occurrence of each repeated row is not included.
func FindDuplicates(t *Table) *Table {
	seen := make(map[string]struct{}, len(t.Rows))
	return t.filterRows(func(row []Value) bool {
		key := rowKey(row)
		if _, ok := seen[key]; ok {
			return true
		}
		seen[key] = struct{}{}
		return false
	})
}

// DropDuplicates keeps only the first occurrence of each distinct row.
func DropDuplicates(t *Table) *Table {
	seen := make(map[string]struct{}, len(t.Rows))
	return t.filterRows(func(row []Value) bool {
		key := rowKey(row)
		if _, ok := seen[key]; ok {
			return false
		}
		seen[key] = struct{}{}
		return true
	})
}

// IsNumericColumn reports whether column idx is number typed, or is a string
// column whose non-null cells all parse as numbers. A column without any
// non-null cell is not numeric.
func IsNumericColumn(t *Table, idx int) bool {
	switch t.Columns[idx].Type {
	case TypeNumber:
		return true
	case TypeDate:
		return false
	}
	nonNull := 0
	for _, row := range t.Rows {
		v := row[idx]
		if v.IsNull() {
			continue
		}
		if _, ok := v.Float(); !ok {
			return false
		}
		nonNull++
	}
	return nonNull > 0
}

// NumericColumns keeps only the columns whose values are uniformly numeric.
func NumericColumns(t *Table) *Table {
	var idx []int
	for i := range t.Columns {
		if IsNumericColumn(t, i) {
			idx = append(idx, i)
		}
	}
	out := t.SelectColumns(idx)
	for _, i := range idx {
		// string columns that passed the check are promoted so callers see the type
		out = promoteNumber(out, t.Columns[i].Name)
	}
	return out
}

func promoteNumber(t *Table, name string) *Table {
	idx, err := t.ColumnIndex(name)
	if err != nil || t.Columns[idx].Type == TypeNumber {
		return t
	}
	t.Columns[idx].Type = TypeNumber
	for _, row := range t.Rows {
		if f, ok := row[idx].Float(); ok {
			row[idx] = Number(f)
		}
	}
	return t
}

// Outcome classifies what CoerceTypes did with a column.
type Outcome string

const (
	// OutcomeCoerced means every non-null cell converted to the new type.
	OutcomeCoerced Outcome = "coerced"
	// OutcomeUnchanged means a conversion was attempted and at least one cell
	// resisted it, so the column was kept as it was.
	OutcomeUnchanged Outcome = "unchanged"
	// OutcomeSkipped means no conversion was attempted: the column is already
	// typed or has no non-null cells.
	OutcomeSkipped Outcome = "skipped"
)

// Coercion reports the result for one column.
type Coercion struct {
	Column  string     `json:"column"`
	Outcome Outcome    `json:"outcome"`
	Type    ColumnType `json:"type"`
}

// CoerceTypes tries, independently for each text column, a numeric
// conversion when every non-null cell is made only of numeric characters,
// and a date conversion otherwise. A column converts entirely or not at all.
func CoerceTypes(t *Table) (*Table, []Coercion) {
	out := t.Clone()
	report := make([]Coercion, len(t.Columns))
	for i, col := range t.Columns {
		report[i] = Coercion{Column: col.Name, Outcome: OutcomeSkipped, Type: col.Type}
		if col.Type != TypeString {
			continue
		}
		cells := nonNullText(t, i)
		if len(cells) == 0 {
			continue
		}

		var converted []Value
		var typ ColumnType
		if allNumeric(cells) {
			converted, typ = parseNumbers(cells), TypeNumber
		} else {
			converted, typ = parseDates(cells), TypeDate
		}
		if converted == nil {
			report[i].Outcome = OutcomeUnchanged
			continue
		}

		k := 0
		for _, row := range out.Rows {
			if row[i].IsNull() {
				continue
			}
			row[i] = converted[k]
			k++
		}
		out.Columns[i].Type = typ
		report[i] = Coercion{Column: col.Name, Outcome: OutcomeCoerced, Type: typ}
	}
	return out, report
}

func nonNullText(t *Table, idx int) []string {
	var cells []string
	for _, row := range t.Rows {
		if v := row[idx]; !v.IsNull() {
			cells = append(cells, v.String())
		}
	}
	return cells
}

func allNumeric(cells []string) bool {
	for _, s := range cells {
		if s == "" {
			return false
		}
		for _, r := range s {
			if !unicode.IsNumber(r) {
				return false
			}
		}
	}
	return true
}

func parseNumbers(cells []string) []Value {
	out := make([]Value, len(cells))
	for i, s := range cells {
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil
		}
		out[i] = Number(f)
	}
	return out
}

func parseDates(cells []string) []Value {
	out := make([]Value, len(cells))
	for i, s := range cells {
		at, err := dateparse.ParseIn(strings.TrimSpace(s), time.UTC)
		if err != nil {
			return nil
		}
		out[i] = Date(at)
	}
	return out
}

// FillNumericNullsWithMean replaces the nulls of every numeric column with
// the mean of that column's non-null cells. Columns with no non-null cells
// are left as they are. It returns the names of the columns it filled.
func FillNumericNullsWithMean(t *Table) (*Table, []string) {
	out := t.Clone()
	var filled []string
	for i, col := range t.Columns {
		if !IsNumericColumn(t, i) {
			continue
		}
		var sum float64
		var n, nulls int
		for _, row := range t.Rows {
			if row[i].IsNull() {
				nulls++
				continue
			}
			f, _ := row[i].Float()
			sum += f
			n++
		}
		if nulls == 0 || n == 0 {
			continue
		}
		mean := sum / float64(n)
		for _, row := range out.Rows {
			if row[i].IsNull() {
				row[i] = Number(mean)
			}
		}
		out = promoteNumber(out, col.Name)
		filled = append(filled, col.Name)
	}
	return out, filled
}
