package viewer

import (
	"errors"
	"fmt"
	"log"
	"math"
	"strconv"
	"strings"

	"github.com/csheth/citeview/internal/geometry"
)

// Controller owns zoom and the page-number field, and issues paint and scroll
// requests on their behalf.
type Controller struct {
	state     *State
	store     *geometry.Store
	baseWidth float64
	numPages  int

	generation uint64
	scroller   Scroller
	painter    PaintRequester
}

func newController(state *State, store *geometry.Store, baseWidth float64) *Controller {
	if baseWidth <= 0 {
		baseWidth = DefaultBaseWidth
	}
	return &Controller{state: state, store: store, baseWidth: baseWidth}
}

// SetScroller installs the component that owns page elements.
func (c *Controller) SetScroller(s Scroller) { c.scroller = s }

// SetPainter installs the rendering backend adapter.
func (c *Controller) SetPainter(p PaintRequester) { c.painter = p }

// Zoom returns the current zoom factor.
func (c *Controller) Zoom() float64 { return c.state.Zoom }

// ZoomIn increases zoom by one step.
func (c *Controller) ZoomIn() float64 { return c.setZoom(c.state.Zoom + ZoomStep) }

// ZoomOut decreases zoom by one step.
func (c *Controller) ZoomOut() float64 { return c.setZoom(c.state.Zoom - ZoomStep) }

func (c *Controller) setZoom(z float64) float64 {
	z = clampZoom(roundZoom(z))
	if z == c.state.Zoom {
		return z
	}
	c.state.Zoom = z
	// Geometry recorded at the old zoom stays in the store until the new
	// paints land; results for the old generation are dropped in AcceptPaint.
	c.generation++
	c.requestRepaint()
	return z
}

// RenderWidth is the width every page is requested at for the current zoom.
func (c *Controller) RenderWidth() float64 {
	return c.baseWidth * c.state.Zoom
}

// EstimatedGeometry is the size assumed for a page that has not been painted.
func (c *Controller) EstimatedGeometry() geometry.Size {
	return geometry.Size{
		Width:  c.baseWidth * c.state.Zoom,
		Height: FallbackHeight * c.state.Zoom,
	}
}

// Generation returns the tag attached to paint requests issued now.
func (c *Controller) Generation() uint64 { return c.generation }

// SetNumPages records the document's page count; zero means unknown.
func (c *Controller) SetNumPages(n int) {
	if n < 0 {
		n = 0
	}
	c.numPages = n
}

// NumPages returns the page count and whether it is known.
func (c *Controller) NumPages() (int, bool) {
	return c.numPages, c.numPages > 0
}

// PageLabel renders the "of N" half of the page indicator.
func (c *Controller) PageLabel() string {
	if c.numPages <= 0 {
		return "of -"
	}
	return fmt.Sprintf("of %d", c.numPages)
}

// PageInputLimit is the maximum number of digits the page field accepts.
func (c *Controller) PageInputLimit() int {
	if c.numPages <= 0 {
		return 3
	}
	return len(strconv.Itoa(c.numPages))
}

// PageInput returns the raw text of the page field.
func (c *Controller) PageInput() string { return c.state.PageInput }

// SetPageInputDigitsOnly stores raw with every non-digit removed. The range is
// validated on commit, not here.
func (c *Controller) SetPageInputDigitsOnly(raw string) string {
	c.state.PageInput = strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, raw)
	return c.state.PageInput
}

// CommitPageJump clamps the page field to [1, numPages], writes the clamped
// value back and scrolls to that page.
func (c *Controller) CommitPageJump() int {
	page, err := strconv.Atoi(c.state.PageInput)
	switch {
	case errors.Is(err, strconv.ErrRange):
		page = math.MaxInt
	case err != nil || page < 1:
		page = 1
	}
	if c.numPages > 0 && page > c.numPages {
		page = c.numPages
	}
	if c.numPages <= 0 && page == math.MaxInt {
		page = 1
	}
	c.state.PageInput = strconv.Itoa(page)
	c.scrollTo(page)
	return page
}

// JumpToHighlightedPage scrolls to page on behalf of a citation selection.
func (c *Controller) JumpToHighlightedPage(page int) bool {
	return c.scrollTo(page)
}

func (c *Controller) scrollTo(page int) bool {
	if c.scroller == nil || page < 1 {
		return false
	}
	if !c.scroller.ScrollIntoView(page, ScrollOptions{Smooth: true, Align: AlignCenter}) {
		log.Printf("[viewer] page %d not mounted; scroll skipped", page)
		return false
	}
	return true
}

// RequestRepaint asks for every page to be painted at the current width.
func (c *Controller) RequestRepaint() {
	c.requestRepaint()
}

func (c *Controller) requestRepaint() {
	if c.painter == nil || c.numPages <= 0 {
		return
	}
	width := c.RenderWidth()
	for page := 1; page <= c.numPages; page++ {
		c.painter.RequestPaint(PaintTicket{Page: page, Width: width, Generation: c.generation})
	}
}

// AcceptPaint records the rendered size of a completed paint. Results issued
// under an older generation are discarded and AcceptPaint reports false.
func (c *Controller) AcceptPaint(ticket PaintTicket, rendered geometry.Size) bool {
	if ticket.Generation != c.generation {
		log.Printf("[viewer] stale paint for page %d (generation %d, current %d)", ticket.Page, ticket.Generation, c.generation)
		return false
	}
	return c.store.Record(ticket.Page, rendered.Width, rendered.Height)
}

func (c *Controller) resetForDocument(numPages int) {
	c.SetNumPages(numPages)
	c.state.PageInput = "1"
	c.generation++
	c.requestRepaint()
}
