// Package table holds the in-memory tabular model used by every data
// operation of the desk, together with its CSV codec and the cleaning,
// search and profiling transformations over it.
//
// Operations never mutate their input: each returns a new *Table whose rows
// do not alias the input rows.
package table

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
)

// ErrColumnNotFound is returned when an operation references a column the
// table does not have.
var ErrColumnNotFound = errors.New("column not found")

// ColumnType describes how the cells of a column are interpreted.
type ColumnType string

const (
	TypeString ColumnType = "string"
	TypeNumber ColumnType = "number"
	TypeDate   ColumnType = "date"
)

// Kind tags the content of a Value.
type Kind uint8

const (
	KindNull Kind = iota
	KindString
	KindNumber
	KindDate
)

// Value is a single table cell.
type Value struct {
	kind Kind
	str  string
	num  float64
	at   time.Time
}

// Null returns an empty cell.
func Null() Value { return Value{} }

// Text returns a string cell.
func Text(s string) Value { return Value{kind: KindString, str: s} }

// Number returns a numeric cell.
func Number(f float64) Value { return Value{kind: KindNumber, num: f} }

// Date returns a date cell.
func Date(t time.Time) Value { return Value{kind: KindDate, at: t} }

func (v Value) Kind() Kind   { return v.kind }
func (v Value) IsNull() bool { return v.kind == KindNull }

// String returns the cell's string form: empty for null, the shortest decimal
// representation for numbers and an ISO date (with clock when set) for dates.
func (v Value) String() string {
	switch v.kind {
	case KindString:
		return v.str
	case KindNumber:
		return strconv.FormatFloat(v.num, 'f', -1, 64)
	case KindDate:
		if v.at.Hour() == 0 && v.at.Minute() == 0 && v.at.Second() == 0 && v.at.Nanosecond() == 0 {
			return v.at.Format("2006-01-02")
		}
		return v.at.Format("2006-01-02 15:04:05")
	default:
		return ""
	}
}

// Float interprets the cell as a number. String cells are parsed, so a raw
// CSV column of digits is numeric even before coercion.
func (v Value) Float() (float64, bool) {
	switch v.kind {
	case KindNumber:
		return v.num, true
	case KindString:
		f, err := strconv.ParseFloat(strings.TrimSpace(v.str), 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// Time returns the date held by a date cell.
func (v Value) Time() (time.Time, bool) {
	if v.kind != KindDate {
		return time.Time{}, false
	}
	return v.at, true
}

// Equal reports value equality; two nulls are equal.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindString:
		return v.str == o.str
	case KindNumber:
		return v.num == o.num
	case KindDate:
		return v.at.Equal(o.at)
	default:
		return true
	}
}

func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindNull:
		return []byte("null"), nil
	case KindNumber:
		return []byte(strconv.FormatFloat(v.num, 'f', -1, 64)), nil
	default:
		return json.Marshal(v.String())
	}
}

// Column is a named, typed column header.
type Column struct {
	Name string     `json:"name"`
	Type ColumnType `json:"type"`
}

// Table is an ordered set of rows sharing one ordered column set.
type Table struct {
	Columns []Column  `json:"columns"`
	Rows    [][]Value `json:"rows"`
}

// New builds a table and checks that every row matches the column count.
func New(columns []Column, rows [][]Value) (*Table, error) {
	for i, row := range rows {
		if len(row) != len(columns) {
			return nil, fmt.Errorf("row %d has %d cells, want %d", i, len(row), len(columns))
		}
	}
	return &Table{Columns: columns, Rows: rows}, nil
}

// Len returns the number of rows.
func (t *Table) Len() int { return len(t.Rows) }

// ColumnNames returns the column names in order.
func (t *Table) ColumnNames() []string {
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Name
	}
	return names
}

// ColumnIndex returns the position of the named column.
func (t *Table) ColumnIndex(name string) (int, error) {
	for i, c := range t.Columns {
		if c.Name == name {
			return i, nil
		}
	}
	return -1, fmt.Errorf("%w: %q", ErrColumnNotFound, name)
}

// Column returns a copy of the cells of the named column.
func (t *Table) Column(name string) ([]Value, error) {
	idx, err := t.ColumnIndex(name)
	if err != nil {
		return nil, err
	}
	out := make([]Value, len(t.Rows))
	for i, row := range t.Rows {
		out[i] = row[idx]
	}
	return out, nil
}

// Row returns row i keyed by column name.
func (t *Table) Row(i int) map[string]Value {
	out := make(map[string]Value, len(t.Columns))
	for j, c := range t.Columns {
		out[c.Name] = t.Rows[i][j]
	}
	return out
}

// Clone returns a deep copy of the table.
func (t *Table) Clone() *Table {
	return t.filterRows(func([]Value) bool { return true })
}

func (t *Table) copyColumns() []Column {
	cols := make([]Column, len(t.Columns))
	copy(cols, t.Columns)
	return cols
}

func (t *Table) filterRows(keep func(row []Value) bool) *Table {
	out := &Table{Columns: t.copyColumns(), Rows: make([][]Value, 0, len(t.Rows))}
	for _, row := range t.Rows {
		if keep(row) {
			out.Rows = append(out.Rows, copyRow(row))
		}
	}
	return out
}

// SelectColumns projects the table onto the given column positions.
func (t *Table) SelectColumns(idx []int) *Table {
	out := &Table{Columns: make([]Column, len(idx)), Rows: make([][]Value, len(t.Rows))}
	for j, k := range idx {
		out.Columns[j] = t.Columns[k]
	}
	for i, row := range t.Rows {
		r := make([]Value, len(idx))
		for j, k := range idx {
			r[j] = row[k]
		}
		out.Rows[i] = r
	}
	return out
}

// Select projects the table onto the named columns, in the given order.
func (t *Table) Select(names ...string) (*Table, error) {
	idx := make([]int, len(names))
	for i, name := range names {
		k, err := t.ColumnIndex(name)
		if err != nil {
			return nil, err
		}
		idx[i] = k
	}
	return t.SelectColumns(idx), nil
}

func copyRow(row []Value) []Value {
	r := make([]Value, len(row))
	copy(r, row)
	return r
}

// rowKey renders a row so that two rows share a key exactly when every cell
// is Equal.
func rowKey(row []Value) string {
	var b strings.Builder
	for _, v := range row {
		b.WriteByte(byte('0' + v.kind))
		switch v.kind {
		case KindNumber:
			b.WriteString(strconv.FormatUint(math.Float64bits(v.num+0), 16))
		case KindDate:
			b.WriteString(strconv.FormatInt(v.at.UnixNano(), 10))
		default:
			b.WriteString(strconv.Itoa(len(v.str)))
			b.WriteByte(':')
			b.WriteString(v.str)
		}
		b.WriteByte(0x1f)
	}
	return b.String()
}
