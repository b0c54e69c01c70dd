// Package attendance aggregates present/absent marks of attendance sheets:
// tables with an ID column, a name column and one status column per day.
package attendance

import (
	"errors"
	"math"
	"strconv"
	"strings"

	"ems-desk/internal/table"
)

const (
	IDColumn     = "ID"
	NameColumn   = "name"
	TotalPresent = "Total_P"
	TotalAbsent  = "Total_A"

	Present = "P"
	Absent  = "A"
)

// ErrDivisionByZero is returned when a percentage is requested for a sheet
// without rows.
var ErrDivisionByZero = errors.New("attendance sheet has no rows")

func isIdentity(name string) bool {
	return strings.EqualFold(name, IDColumn) || strings.EqualFold(name, NameColumn)
}

func isDerived(name string) bool {
	return name == TotalPresent || name == TotalAbsent
}

// dayColumns returns the positions of the columns holding daily marks.
func dayColumns(t *table.Table) []int {
	var idx []int
	for i, col := range t.Columns {
		if isIdentity(col.Name) || isDerived(col.Name) {
			continue
		}
		idx = append(idx, i)
	}
	return idx
}

func mark(v table.Value) string {
	if v.Kind() != table.KindString {
		return ""
	}
	return v.String()
}

// PerIDTotals appends Total_P and Total_A to every row, counting the "P" and
// "A" marks across the day columns. Existing total columns are recomputed.
func PerIDTotals(t *table.Table) *table.Table {
	days := dayColumns(t)

	var keep []int
	for i, col := range t.Columns {
		if !isDerived(col.Name) {
			keep = append(keep, i)
		}
	}
	base := t.SelectColumns(keep)

	out := &table.Table{
		Columns: append(base.Columns,
			table.Column{Name: TotalPresent, Type: table.TypeNumber},
			table.Column{Name: TotalAbsent, Type: table.TypeNumber},
		),
		Rows: make([][]table.Value, len(t.Rows)),
	}
	for r, row := range t.Rows {
		var p, a int
		for _, i := range days {
			switch mark(row[i]) {
			case Present:
				p++
			case Absent:
				a++
			}
		}
		out.Rows[r] = append(base.Rows[r], table.Number(float64(p)), table.Number(float64(a)))
	}
	return out
}

// Summary projects PerIDTotals onto the name and total columns. Sheets
// without a name column keep the ID column instead.
func Summary(t *table.Table) (*table.Table, error) {
	totals := PerIDTotals(t)
	label := ""
	for _, col := range totals.Columns {
		if strings.EqualFold(col.Name, NameColumn) {
			label = col.Name
			break
		}
		if label == "" && strings.EqualFold(col.Name, IDColumn) {
			label = col.Name
		}
	}
	if label == "" {
		return totals.Select(TotalPresent, TotalAbsent)
	}
	return totals.Select(label, TotalPresent, TotalAbsent)
}

// Counts holds per-day present and absent tallies in day-column order.
type Counts struct {
	Days    []string       `json:"days"`
	Present map[string]int `json:"present"`
	Absent  map[string]int `json:"absent"`
}

// PerDayCounts counts "P" and "A" marks in each day column.
func PerDayCounts(t *table.Table) Counts {
	days := dayColumns(t)
	c := Counts{
		Days:    make([]string, len(days)),
		Present: make(map[string]int, len(days)),
		Absent:  make(map[string]int, len(days)),
	}
	for k, i := range days {
		name := t.Columns[i].Name
		c.Days[k] = name
		c.Present[name] = 0
		c.Absent[name] = 0
		for _, row := range t.Rows {
			switch mark(row[i]) {
			case Present:
				c.Present[name]++
			case Absent:
				c.Absent[name]++
			}
		}
	}
	return c
}

// Percentages maps each day column to its share of present marks.
type Percentages struct {
	Days    []string           `json:"days"`
	Present map[string]float64 `json:"present"`
}

// PerDayPercentage returns present marks per day as a percentage of all rows.
func PerDayPercentage(t *table.Table) (Percentages, error) {
	if t.Len() == 0 {
		return Percentages{}, ErrDivisionByZero
	}
	counts := PerDayCounts(t)
	p := Percentages{Days: counts.Days, Present: make(map[string]float64, len(counts.Days))}
	total := float64(t.Len())
	for _, day := range counts.Days {
		p.Present[day] = float64(counts.Present[day]) / total * 100
	}
	return p, nil
}

// LookupByID returns the rows whose ID equals id. No match is an empty
// table, not an error.
func LookupByID(t *table.Table, id int64) (*table.Table, error) {
	idx, err := t.ColumnIndex(IDColumn)
	if err != nil {
		return nil, err
	}
	out := &table.Table{Columns: append([]table.Column(nil), t.Columns...), Rows: [][]table.Value{}}
	for _, row := range t.Rows {
		if matchesID(row[idx], id) {
			out.Rows = append(out.Rows, append([]table.Value(nil), row...))
		}
	}
	return out, nil
}

func matchesID(v table.Value, id int64) bool {
	switch v.Kind() {
	case table.KindNumber:
		f, _ := v.Float()
		return f == math.Trunc(f) && int64(f) == id
	case table.KindString:
		n, err := strconv.ParseInt(strings.TrimSpace(v.String()), 10, 64)
		return err == nil && n == id
	default:
		return false
	}
}
