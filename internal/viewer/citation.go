package viewer

import "github.com/csheth/citeview/internal/geometry"

// Citation points at a source passage inside the loaded document. BBox is
// [x0, y0, x1, y1] in points with a bottom-left origin.
type Citation struct {
	PageNumber int
	BBox       []float64
	Text       string
	// Index is the 1-based position of the citation within its answer.
	Index int
}

// HasPage reports whether the citation names a usable page number.
func (c Citation) HasPage() bool {
	return c.PageNumber >= 1
}

// HasBox reports whether an overlay can be drawn for the citation.
func (c Citation) HasBox() bool {
	return geometry.ValidBox(c.BBox)
}

func (c Citation) clone() Citation {
	out := c
	if c.BBox != nil {
		out.BBox = append([]float64(nil), c.BBox...)
	}
	return out
}

// ClickOrigin tags where a click inside the application landed.
type ClickOrigin int

const (
	// OriginGeneric is any click that is not on a reference control.
	OriginGeneric ClickOrigin = iota
	// OriginReference is a click on a reference-selection control.
	OriginReference
)

func (o ClickOrigin) String() string {
	switch o {
	case OriginReference:
		return "reference-click"
	default:
		return "generic-click"
	}
}

// ClickEvent is delivered to the coordinator for every click on the document
// surface or the chat panel.
type ClickEvent struct {
	Origin ClickOrigin
}
