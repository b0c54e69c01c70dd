package chart

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ems-desk/internal/table"
)

func load(t *testing.T, src string) *table.Table {
	t.Helper()
	tbl, err := table.ReadCSV(strings.NewReader(src))
	require.NoError(t, err)
	return tbl
}

func TestBuild_Bar(t *testing.T) {
	tbl := load(t, "city,pop\nA,10\nB,\nC,30\n")

	s, err := Build(tbl, Request{Kind: Bar, X: "city", Y: "pop"})
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "C"}, s.Labels)
	assert.Equal(t, []float64{10, 30}, s.Values)
	assert.Nil(t, s.Percent)
}

func TestBuild_LineKeepsNullLabels(t *testing.T) {
	tbl := load(t, "x,y\n,1\nb,2\n")

	s, err := Build(tbl, Request{Kind: Line, X: "x", Y: "y"})
	require.NoError(t, err)
	assert.Equal(t, []string{"", "b"}, s.Labels)
}

func TestBuild_Pie(t *testing.T) {
	tbl := load(t, "label,value\nA,1\n,2\nB,3\n")

	s, err := Build(tbl, Request{Kind: Pie, X: "label", Y: "value"})
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B"}, s.Labels)
	require.Len(t, s.Percent, 2)
	assert.InDelta(t, 25.0, s.Percent[0], 1e-9)
	assert.InDelta(t, 75.0, s.Percent[1], 1e-9)
}

func TestBuild_Errors(t *testing.T) {
	tbl := load(t, "x,y\na,1\nb,two\n")

	_, err := Build(tbl, Request{Kind: "area", X: "x", Y: "y"})
	require.ErrorIs(t, err, ErrUnknownKind)

	_, err = Build(tbl, Request{Kind: Scatter, X: "x", Y: "nope"})
	require.ErrorIs(t, err, table.ErrColumnNotFound)

	_, err = Build(tbl, Request{Kind: Scatter, X: "x", Y: "y"})
	require.ErrorIs(t, err, ErrNotNumeric)
}
