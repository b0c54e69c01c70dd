package table

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// ErrEmptyInput is returned by ReadCSV when the input has no header row.
var ErrEmptyInput = errors.New("csv input is empty")

// ReadCSV parses comma-separated text with a header row. Every cell arrives
// as text; empty cells become null. Blank header names are replaced with
// "Unnamed: <pos>" and repeated names get a ".<n>" suffix so that column
// names stay unique.
func ReadCSV(r io.Reader) (*Table, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrEmptyInput
		}
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}

	t := &Table{Columns: headerColumns(header), Rows: [][]Value{}}
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv record: %w", err)
		}
		row := make([]Value, len(record))
		for i, cell := range record {
			if cell == "" {
				row[i] = Null()
				continue
			}
			row[i] = Text(cell)
		}
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}

func headerColumns(header []string) []Column {
	cols := make([]Column, len(header))
	seen := make(map[string]int, len(header))
	for i, name := range header {
		name = strings.TrimSpace(name)
		if name == "" {
			name = "Unnamed: " + strconv.Itoa(i)
		}
		if n, ok := seen[name]; ok {
			seen[name] = n + 1
			name = name + "." + strconv.Itoa(n+1)
		} else {
			seen[name] = 0
		}
		cols[i] = Column{Name: name, Type: TypeString}
	}
	return cols
}

// WriteCSV writes the table as a header row followed by each row's string
// forms. Nulls are written as empty fields.
func WriteCSV(w io.Writer, t *Table) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(t.ColumnNames()); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	record := make([]string, len(t.Columns))
	for _, row := range t.Rows {
		for i, v := range row {
			record[i] = v.String()
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("write csv record: %w", err)
		}
	}
	writer.Flush()
	return writer.Error()
}
