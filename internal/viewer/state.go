// Package viewer keeps the document view, zoom level and citation highlight
// consistent with each other. All methods are meant to be called from a single
// event loop; nothing here is safe for concurrent use.
package viewer

import (
	"math"

	"github.com/csheth/citeview/internal/geometry"
)

const (
	MinZoom     = 0.3
	MaxZoom     = 3.0
	ZoomStep    = 0.1
	DefaultZoom = 1.0

	// DefaultBaseWidth is the rendered width of a page at zoom 1.0.
	DefaultBaseWidth = 600.0
	// FallbackHeight is the unzoomed height assumed for a page that has not
	// been painted yet.
	FallbackHeight = geometry.ReferenceHeight
)

// State is the viewport state shared by the document pane and the chat pane.
type State struct {
	Zoom            float64
	PageInput       string
	ActiveHighlight *Citation
}

func newState() State {
	return State{Zoom: DefaultZoom, PageInput: "1"}
}

func clampZoom(z float64) float64 {
	if math.IsNaN(z) {
		return DefaultZoom
	}
	if z < MinZoom {
		return MinZoom
	}
	if z > MaxZoom {
		return MaxZoom
	}
	return z
}

// roundZoom keeps repeated ±0.1 steps on one-decimal values.
func roundZoom(z float64) float64 {
	return math.Round(z*10) / 10
}

// ScrollAlign is the vertical placement requested for a scrolled page.
type ScrollAlign int

const (
	AlignCenter ScrollAlign = iota
	AlignStart
)

// ScrollOptions describes how a page should be brought into view.
type ScrollOptions struct {
	Smooth bool
	Align  ScrollAlign
}

// Scroller brings a page element into view. It returns false when the page
// has no mounted element yet.
type Scroller interface {
	ScrollIntoView(page int, opts ScrollOptions) bool
}

// PaintTicket identifies one paint request. Generation is the zoom/document
// generation active when the request was issued.
type PaintTicket struct {
	Page       int
	Width      float64
	Generation uint64
}

// PaintRequester asks the rendering backend to paint a page.
type PaintRequester interface {
	RequestPaint(ticket PaintTicket)
}

// ReferenceSizer reports the size of a page in points.
type ReferenceSizer interface {
	PageSize(page int) (geometry.Size, bool)
}
