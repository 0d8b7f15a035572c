package viewer

import (
	"strconv"

	"github.com/csheth/citeview/internal/geometry"
)

// HighlightStatus is the coordinator's state machine position.
type HighlightStatus int

const (
	Idle HighlightStatus = iota
	Highlighting
)

func (s HighlightStatus) String() string {
	if s == Highlighting {
		return "highlighting"
	}
	return "idle"
}

// Coordinator owns the single active citation highlight.
type Coordinator struct {
	state      *State
	controller *Controller
	store      *geometry.Store
	sizer      ReferenceSizer
}

func newCoordinator(state *State, controller *Controller, store *geometry.Store) *Coordinator {
	return &Coordinator{state: state, controller: controller, store: store}
}

// Status reports whether a citation is currently highlighted.
func (h *Coordinator) Status() HighlightStatus {
	if h.state.ActiveHighlight == nil {
		return Idle
	}
	return Highlighting
}

// Active returns a copy of the highlighted citation.
func (h *Coordinator) Active() (Citation, bool) {
	if h.state.ActiveHighlight == nil {
		return Citation{}, false
	}
	return h.state.ActiveHighlight.clone(), true
}

// Select makes c the active highlight and brings its page into view. Selecting
// the citation that is already active scrolls again. A citation whose box is
// malformed still moves the viewport.
func (h *Coordinator) Select(c Citation) bool {
	active := c.clone()
	h.state.ActiveHighlight = &active
	if !c.HasPage() {
		return false
	}
	h.state.PageInput = strconv.Itoa(c.PageNumber)
	return h.controller.JumpToHighlightedPage(c.PageNumber)
}

// Dismiss clears the highlight for clicks that did not land on a reference
// control. It reports whether a highlight was cleared.
func (h *Coordinator) Dismiss(ev ClickEvent) bool {
	if ev.Origin == OriginReference {
		return false
	}
	return h.Clear()
}

// Clear drops the active highlight.
func (h *Coordinator) Clear() bool {
	had := h.state.ActiveHighlight != nil
	h.state.ActiveHighlight = nil
	return had
}

// Overlay returns the rectangle to draw over page, if the active highlight
// belongs to it. Unpainted pages use the estimated size so the overlay shows
// up early at roughly the right place.
func (h *Coordinator) Overlay(page int) (geometry.Rect, bool) {
	active := h.state.ActiveHighlight
	if active == nil || active.PageNumber != page || !active.HasBox() {
		return geometry.Rect{}, false
	}
	if n, known := h.controller.NumPages(); known && page > n {
		return geometry.Rect{}, false
	}
	ref, exact := h.reference(page)
	return geometry.ToOverlayRect(active.BBox, h.renderedSize(page, ref, exact), ref)
}

// RenderedSize is the size page occupies on screen right now, measured or
// estimated.
func (h *Coordinator) RenderedSize(page int) geometry.Size {
	ref, exact := h.reference(page)
	return h.renderedSize(page, ref, exact)
}

func (h *Coordinator) renderedSize(page int, ref geometry.Size, exact bool) geometry.Size {
	if g, ok := h.store.Get(page); ok {
		return geometry.Size{Width: g.Width, Height: g.Height}
	}
	if exact {
		width := h.controller.RenderWidth()
		return geometry.Size{Width: width, Height: width * ref.Height / ref.Width}
	}
	return h.controller.EstimatedGeometry()
}

func (h *Coordinator) reference(page int) (geometry.Size, bool) {
	if h.sizer != nil {
		if size, ok := h.sizer.PageSize(page); ok && size.Valid() {
			return size, true
		}
	}
	return geometry.DefaultReference, false
}
