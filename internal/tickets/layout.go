// Package tickets lays out ticket QR codes on printable sheets.
package tickets

import (
	"errors"
	"net/url"
	"strings"
)

// Layout describes the sheet grid. Lengths are in millimetres.
type Layout struct {
	CodeSize    float64
	Gap         float64
	Cols        int
	RowsPerPage int
	PageWidth   float64
	PageHeight  float64
}

// DefaultLayout packs 6x9 codes of 25mm onto A4 portrait.
var DefaultLayout = Layout{
	CodeSize:    25,
	Gap:         5,
	Cols:        6,
	RowsPerPage: 9,
	PageWidth:   210,
	PageHeight:  297,
}

// Placement is where one ticket code goes.
type Placement struct {
	Index int
	Key   string
	Page  int
	Col   int
	Row   int
	X     float64
	Y     float64
}

// Validate rejects layouts that cannot be planned.
func (l Layout) Validate() error {
	switch {
	case l.Cols <= 0 || l.RowsPerPage <= 0:
		return errors.New("layout: cols and rows per page must be positive")
	case l.CodeSize <= 0:
		return errors.New("layout: code size must be positive")
	case l.Gap < 0:
		return errors.New("layout: gap must not be negative")
	case l.PageWidth <= 0 || l.PageHeight <= 0:
		return errors.New("layout: page size must be positive")
	}
	if float64(l.Cols)*l.step() > l.PageWidth || float64(l.RowsPerPage)*l.step() > l.PageHeight {
		return errors.New("layout: grid does not fit on the page")
	}
	return nil
}

// PerPage is the number of codes on a full page.
func (l Layout) PerPage() int {
	return l.Cols * l.RowsPerPage
}

// PageCount is the number of pages n codes need. Zero codes need zero pages.
func (l Layout) PageCount(n int) int {
	if n <= 0 {
		return 0
	}
	per := l.PerPage()
	return (n + per - 1) / per
}

// Offset is the top-left corner of the grid, which is centred on the page.
func (l Layout) Offset() (x, y float64) {
	step := l.step()
	x = (l.PageWidth - float64(l.Cols)*step) / 2
	y = (l.PageHeight - float64(l.RowsPerPage)*step) / 2
	return x, y
}

// Plan places keys in order, row by row, starting a new page whenever the
// previous one is full. The layout must be valid.
func (l Layout) Plan(keys []string) []Placement {
	if len(keys) == 0 {
		return nil
	}
	per := l.PerPage()
	step := l.step()
	offX, offY := l.Offset()

	out := make([]Placement, len(keys))
	for i, key := range keys {
		pos := i % per
		col := pos % l.Cols
		row := pos / l.Cols
		out[i] = Placement{
			Index: i,
			Key:   key,
			Page:  i / per,
			Col:   col,
			Row:   row,
			X:     offX + float64(col)*step,
			Y:     offY + float64(row)*step,
		}
	}
	return out
}

func (l Layout) step() float64 {
	return l.CodeSize + l.Gap
}

// PayloadURL is what a ticket's QR code encodes: the voter landing page with
// the raw key as a query parameter.
func PayloadURL(frontURL, key string) string {
	q := url.Values{}
	q.Set("ticket_key", key)
	return strings.TrimRight(frontURL, "/") + "/loading?" + q.Encode()
}
