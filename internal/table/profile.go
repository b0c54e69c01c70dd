package table

import (
	"math"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"
)

// ColumnInfo describes a single column of a table.
type ColumnInfo struct {
	Name    string     `json:"name"`
	Type    ColumnType `json:"type"`
	NonNull int        `json:"non_null"`
}

// Summary is the shape of a table: row count and per-column details.
type Summary struct {
	Rows    int          `json:"rows"`
	Columns []ColumnInfo `json:"columns"`
}

// Info summarizes the table's shape.
func Info(t *Table) Summary {
	s := Summary{Rows: len(t.Rows), Columns: make([]ColumnInfo, len(t.Columns))}
	for i, col := range t.Columns {
		info := ColumnInfo{Name: col.Name, Type: col.Type}
		for _, row := range t.Rows {
			if !row[i].IsNull() {
				info.NonNull++
			}
		}
		s.Columns[i] = info
	}
	return s
}

// ColumnStats holds descriptive statistics of one numeric column. Std is nil
// when the column has fewer than two values.
type ColumnStats struct {
	Column string   `json:"column"`
	Count  int      `json:"count"`
	Mean   float64  `json:"mean"`
	Std    *float64 `json:"std"`
	Min    float64  `json:"min"`
	Q25    float64  `json:"p25"`
	Median float64  `json:"p50"`
	Q75    float64  `json:"p75"`
	Max    float64  `json:"max"`
}

// Describe computes count, mean, sample standard deviation, quartiles and
// extremes for every numeric column.
func Describe(t *Table) []ColumnStats {
	stats := make([]ColumnStats, 0, len(t.Columns))
	for i, col := range t.Columns {
		if !IsNumericColumn(t, i) {
			continue
		}
		var xs []float64
		for _, row := range t.Rows {
			if f, ok := row[i].Float(); ok {
				xs = append(xs, f)
			}
		}
		if len(xs) == 0 {
			continue
		}
		sort.Float64s(xs)

		var sum float64
		for _, x := range xs {
			sum += x
		}
		n := len(xs)
		st := ColumnStats{
			Column: col.Name,
			Count:  n,
			Mean:   sum / float64(n),
			Min:    xs[0],
			Q25:    quantile(xs, 0.25),
			Median: quantile(xs, 0.5),
			Q75:    quantile(xs, 0.75),
			Max:    xs[n-1],
		}
		if n > 1 {
			var ss float64
			for _, x := range xs {
				d := x - st.Mean
				ss += d * d
			}
			std := math.Sqrt(ss / float64(n-1))
			st.Std = &std
		}
		stats = append(stats, st)
	}
	return stats
}

// quantile interpolates linearly between the closest ranks of sorted xs.
func quantile(xs []float64, q float64) float64 {
	pos := q * float64(len(xs)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return xs[lo]
	}
	return xs[lo] + (xs[hi]-xs[lo])*(pos-float64(lo))
}

// CapitalizeColumns upper-cases the first letter of every column name and
// lower-cases the rest.
func CapitalizeColumns(t *Table) *Table {
	return renameColumns(t, func(name string) string {
		r, size := utf8.DecodeRuneInString(name)
		if r == utf8.RuneError {
			return name
		}
		return string(unicode.ToUpper(r)) + strings.ToLower(name[size:])
	})
}

// LowercaseColumns lower-cases every column name.
func LowercaseColumns(t *Table) *Table {
	return renameColumns(t, strings.ToLower)
}

func renameColumns(t *Table, rename func(string) string) *Table {
	out := t.Clone()
	for i := range out.Columns {
		out.Columns[i].Name = rename(out.Columns[i].Name)
	}
	return out
}
