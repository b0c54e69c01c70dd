package table

import "strings"

// Search keeps the rows whose cell in column contains needle, ignoring case.
// Null cells never match a non-empty needle; an empty needle keeps every row.
func Search(t *Table, column, needle string) (*Table, error) {
	idx, err := t.ColumnIndex(column)
	if err != nil {
		return nil, err
	}
	if needle == "" {
		return t.Clone(), nil
	}
	needle = strings.ToLower(needle)
	return t.filterRows(func(row []Value) bool {
		v := row[idx]
		if v.IsNull() {
			return false
		}
		return strings.Contains(strings.ToLower(v.String()), needle)
	}), nil
}
