// Package geometry converts citation boxes from PDF point space into overlay
// rectangles in rendered page space and remembers how large each page was
// painted.
package geometry

import "math"

// Default page size in points assumed for citation boxes when the real
// MediaBox of the page is not known (A4).
const (
	ReferenceWidth  = 595.0
	ReferenceHeight = 842.0
)

// Size is a width/height pair in either points or rendered units.
type Size struct {
	Width  float64
	Height float64
}

// DefaultReference is the A4 reference page size.
var DefaultReference = Size{Width: ReferenceWidth, Height: ReferenceHeight}

// Valid reports whether both sides are positive and finite.
func (s Size) Valid() bool {
	return positive(s.Width) && positive(s.Height)
}

// Rect is an overlay rectangle with a top-left origin.
type Rect struct {
	Left   float64
	Top    float64
	Width  float64
	Height float64
}

// Right returns the x coordinate of the right edge.
func (r Rect) Right() float64 { return r.Left + r.Width }

// Bottom returns the y coordinate of the bottom edge.
func (r Rect) Bottom() float64 { return r.Top + r.Height }

// ValidBox reports whether bbox is a finite [x0, y0, x1, y1] box with
// x0 <= x1 and y0 <= y1.
func ValidBox(bbox []float64) bool {
	if len(bbox) != 4 {
		return false
	}
	for _, v := range bbox {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return bbox[0] <= bbox[2] && bbox[1] <= bbox[3]
}

// ToOverlayRect maps bbox, given in points with a bottom-left origin on a page
// of size ref, onto a page painted at rendered units. The vertical axis is
// flipped because the overlay origin is the top-left corner.
//
// The result is only exact when the page really measures ref; callers that
// know the page's MediaBox should pass it instead of DefaultReference.
func ToOverlayRect(bbox []float64, rendered, ref Size) (Rect, bool) {
	if !ValidBox(bbox) || !rendered.Valid() || !ref.Valid() {
		return Rect{}, false
	}
	x0, y0, x1, y1 := bbox[0], bbox[1], bbox[2], bbox[3]
	scaleX := rendered.Width / ref.Width
	scaleY := rendered.Height / ref.Height
	return Rect{
		Left:   x0 * scaleX,
		Top:    (ref.Height - y1) * scaleY,
		Width:  (x1 - x0) * scaleX,
		Height: (y1 - y0) * scaleY,
	}, true
}

// Cells projects r, expressed on a page of size page, onto a grid of cols by
// rows character cells. The returned bounds are inclusive and clipped to the
// grid; ok is false when the rectangle falls entirely outside it.
func (r Rect) Cells(page Size, cols, rows int) (col0, row0, col1, row1 int, ok bool) {
	if cols <= 0 || rows <= 0 || !page.Valid() {
		return 0, 0, 0, 0, false
	}
	cw := page.Width / float64(cols)
	rh := page.Height / float64(rows)
	col0 = int(math.Floor(r.Left / cw))
	row0 = int(math.Floor(r.Top / rh))
	col1 = int(math.Ceil(r.Right()/cw)) - 1
	row1 = int(math.Ceil(r.Bottom()/rh)) - 1
	if col1 < col0 {
		col1 = col0
	}
	if row1 < row0 {
		row1 = row0
	}
	if col1 < 0 || row1 < 0 || col0 >= cols || row0 >= rows {
		return 0, 0, 0, 0, false
	}
	col0 = clampInt(col0, 0, cols-1)
	col1 = clampInt(col1, 0, cols-1)
	row0 = clampInt(row0, 0, rows-1)
	row1 = clampInt(row1, 0, rows-1)
	return col0, row0, col1, row1, true
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
