package tickets

import (
	"fmt"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func keys(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("K%03d", i)
	}
	return out
}

func TestDefaultLayoutIsValid(t *testing.T) {
	require.NoError(t, DefaultLayout.Validate())
	assert.Equal(t, 54, DefaultLayout.PerPage())
}

func TestPlanFullPage(t *testing.T) {
	plan := DefaultLayout.Plan(keys(54))
	require.Len(t, plan, 54)

	cells := map[[2]int]bool{}
	for i, p := range plan {
		assert.Equal(t, 0, p.Page)
		assert.Equal(t, i, p.Index)
		assert.Equal(t, fmt.Sprintf("K%03d", i), p.Key)
		cell := [2]int{p.Col, p.Row}
		assert.False(t, cells[cell], "cell %v used twice", cell)
		cells[cell] = true
	}
	assert.Len(t, cells, 54)
	assert.Equal(t, 1, DefaultLayout.PageCount(54))
}

func TestPlanStartsNewPage(t *testing.T) {
	plan := DefaultLayout.Plan(keys(55))
	require.Len(t, plan, 55)

	last := plan[54]
	assert.Equal(t, 1, last.Page)
	assert.Equal(t, 0, last.Col)
	assert.Equal(t, 0, last.Row)
	assert.Equal(t, plan[0].X, last.X)
	assert.Equal(t, plan[0].Y, last.Y)
	assert.Equal(t, 2, DefaultLayout.PageCount(55))
	assert.Equal(t, 2, DefaultLayout.PageCount(108))
	assert.Equal(t, 3, DefaultLayout.PageCount(109))
}

func TestPlanCentersGrid(t *testing.T) {
	l := DefaultLayout
	offX, offY := l.Offset()
	assert.InDelta(t, 15.0, offX, 1e-9)
	assert.InDelta(t, 13.5, offY, 1e-9)

	plan := l.Plan(keys(54))
	first, last := plan[0], plan[53]
	assert.Equal(t, 5, last.Col)
	assert.Equal(t, 8, last.Row)

	// Left margin equals right margin once the trailing gap is counted.
	right := l.PageWidth - (last.X + l.CodeSize + l.Gap)
	bottom := l.PageHeight - (last.Y + l.CodeSize + l.Gap)
	assert.InDelta(t, first.X, right, 1e-9)
	assert.InDelta(t, first.Y, bottom, 1e-9)
}

func TestPlanEmpty(t *testing.T) {
	assert.Empty(t, DefaultLayout.Plan(nil))
	assert.Equal(t, 0, DefaultLayout.PageCount(0))
}

func TestValidateRejectsBadLayouts(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Layout)
	}{
		{"zero cols", func(l *Layout) { l.Cols = 0 }},
		{"zero rows", func(l *Layout) { l.RowsPerPage = 0 }},
		{"zero code size", func(l *Layout) { l.CodeSize = 0 }},
		{"negative gap", func(l *Layout) { l.Gap = -1 }},
		{"too wide", func(l *Layout) { l.Cols = 8 }},
		{"too tall", func(l *Layout) { l.RowsPerPage = 10 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := DefaultLayout
			tt.mutate(&l)
			assert.Error(t, l.Validate())
		})
	}
}

func TestPayloadURL(t *testing.T) {
	got := PayloadURL("https://vote.example.org/", "ab+c/d=")
	u, err := url.Parse(got)
	require.NoError(t, err)
	assert.Equal(t, "vote.example.org", u.Host)
	assert.Equal(t, "/loading", u.Path)
	assert.Equal(t, "ab+c/d=", u.Query().Get("ticket_key"))

	assert.Equal(t, "http://localhost:5173/loading?ticket_key=XYZ", PayloadURL("http://localhost:5173", "XYZ"))
}
