package render

import (
	"math"
	"strings"

	"github.com/muesli/reflow/wordwrap"

	"github.com/csheth/citeview/internal/geometry"
)

// cellAspect is how much taller a terminal cell is than it is wide.
const cellAspect = 2.0

// Frame is a page laid out on a character grid.
type Frame struct {
	Page  int
	Cols  int
	Rows  int
	Lines [][]rune
	// Rendered is the page size the grid stands for.
	Rendered geometry.Size
}

// Rasterize lays page out cols cells wide, keeping the aspect ratio of
// rendered. The page text is word-wrapped into the grid and clipped at the
// bottom edge.
func (d *Document) Rasterize(page int, rendered geometry.Size, cols int) Frame {
	if cols < 4 {
		cols = 4
	}
	rows := 1
	if rendered.Valid() {
		rows = int(math.Round(float64(cols) * rendered.Height / rendered.Width / cellAspect))
		if rows < 1 {
			rows = 1
		}
	}
	f := Frame{Page: page, Cols: cols, Rows: rows, Rendered: rendered, Lines: make([][]rune, rows)}
	for i := range f.Lines {
		f.Lines[i] = []rune(strings.Repeat(" ", cols))
	}
	wrapped := wordwrap.String(d.PageText(page), cols)
	for i, line := range strings.Split(wrapped, "\n") {
		if i >= rows {
			break
		}
		for j, r := range []rune(line) {
			if j >= cols {
				break
			}
			f.Lines[i][j] = r
		}
	}
	return f
}

// Span is an inclusive range of highlighted cells on one row.
type Span struct {
	Row  int
	From int
	To   int
}

// Highlight returns the cells covered by rect, which is expressed in the
// frame's rendered units.
func (f Frame) Highlight(rect geometry.Rect) []Span {
	col0, row0, col1, row1, ok := rect.Cells(f.Rendered, f.Cols, f.Rows)
	if !ok {
		return nil
	}
	spans := make([]Span, 0, row1-row0+1)
	for row := row0; row <= row1; row++ {
		spans = append(spans, Span{Row: row, From: col0, To: col1})
	}
	return spans
}

// Render joins the grid into lines, passing highlighted runs through mark.
func (f Frame) Render(spans []Span, mark func(string) string) []string {
	byRow := make(map[int]Span, len(spans))
	for _, s := range spans {
		byRow[s.Row] = s
	}
	out := make([]string, len(f.Lines))
	for i, line := range f.Lines {
		s, ok := byRow[i]
		if !ok || mark == nil {
			out[i] = string(line)
			continue
		}
		out[i] = string(line[:s.From]) + mark(string(line[s.From:s.To+1])) + string(line[s.To+1:])
	}
	return out
}
