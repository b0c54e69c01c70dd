// Package chart prepares plot series from a table for the front end to draw.
package chart

import (
	"errors"
	"fmt"

	"ems-desk/internal/table"
)

// Kind is the chart representation requested by the client.
type Kind string

const (
	Bar     Kind = "bar"
	Pie     Kind = "pie"
	Line    Kind = "line"
	Scatter Kind = "scatter"
)

var (
	// ErrUnknownKind is returned for chart kinds other than bar, pie, line and scatter.
	ErrUnknownKind = errors.New("unknown chart kind")
	// ErrNotNumeric is returned when the value column holds a non-numeric cell.
	ErrNotNumeric = errors.New("value column is not numeric")
)

// Request names the columns to plot. For pie charts X holds the labels
// column and Y the values column.
type Request struct {
	Kind Kind
	X    string
	Y    string
}

// Series is the data behind a chart. Percent is only set for pie charts.
type Series struct {
	Kind    Kind      `json:"kind"`
	X       string    `json:"x"`
	Y       string    `json:"y"`
	Labels  []string  `json:"labels"`
	Values  []float64 `json:"values"`
	Percent []float64 `json:"percent,omitempty"`
}

// Build extracts the series described by req. Rows with a null value are
// skipped; pie charts also skip rows with a null label.
func Build(t *table.Table, req Request) (Series, error) {
	switch req.Kind {
	case Bar, Pie, Line, Scatter:
	default:
		return Series{}, fmt.Errorf("%w: %q", ErrUnknownKind, req.Kind)
	}

	xi, err := t.ColumnIndex(req.X)
	if err != nil {
		return Series{}, err
	}
	yi, err := t.ColumnIndex(req.Y)
	if err != nil {
		return Series{}, err
	}

	s := Series{Kind: req.Kind, X: req.X, Y: req.Y, Labels: []string{}, Values: []float64{}}
	for r, row := range t.Rows {
		x, y := row[xi], row[yi]
		if y.IsNull() || (req.Kind == Pie && x.IsNull()) {
			continue
		}
		f, ok := y.Float()
		if !ok {
			return Series{}, fmt.Errorf("%w: %q row %d has %q", ErrNotNumeric, req.Y, r, y.String())
		}
		s.Labels = append(s.Labels, x.String())
		s.Values = append(s.Values, f)
	}

	if req.Kind == Pie {
		s.Percent = percentages(s.Values)
	}
	return s, nil
}

func percentages(values []float64) []float64 {
	var total float64
	for _, v := range values {
		total += v
	}
	out := make([]float64, len(values))
	if total == 0 {
		return out
	}
	for i, v := range values {
		out[i] = v / total * 100
	}
	return out
}
