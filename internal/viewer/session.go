package viewer

import (
	"errors"
	"log"

	"github.com/csheth/citeview/internal/geometry"
)

// ErrUploadInFlight is returned when an upload is requested while another one
// has not resolved yet.
var ErrUploadInFlight = errors.New("an upload is already in progress")

// ReferenceMode selects the page size used to scale citation boxes.
type ReferenceMode string

const (
	// ReferencePage scales by each page's MediaBox when the renderer knows it.
	ReferencePage ReferenceMode = "page"
	// ReferenceFixed always assumes a 595x842 point page.
	ReferenceFixed ReferenceMode = "fixed"
)

// Options configures a Session.
type Options struct {
	BaseWidth     float64
	ReferenceMode ReferenceMode
	Scroller      Scroller
	Painter       PaintRequester
}

// Session is the state shared by the document pane and the chat pane for one
// viewer session.
type Session struct {
	state      State
	store      *geometry.Store
	controller *Controller
	highlights *Coordinator
	mode       ReferenceMode
	uploading  bool
	loaded     bool
}

// NewSession builds a session with no document loaded.
func NewSession(opts Options) *Session {
	s := &Session{state: newState(), store: geometry.NewStore(), mode: opts.ReferenceMode}
	if s.mode == "" {
		s.mode = ReferencePage
	}
	s.controller = newController(&s.state, s.store, opts.BaseWidth)
	s.controller.SetScroller(opts.Scroller)
	s.controller.SetPainter(opts.Painter)
	s.highlights = newCoordinator(&s.state, s.controller, s.store)
	return s
}

// Controller returns the viewport controller.
func (s *Session) Controller() *Controller { return s.controller }

// Highlights returns the highlight coordinator.
func (s *Session) Highlights() *Coordinator { return s.highlights }

// Geometry returns the per-page geometry store.
func (s *Session) Geometry() *geometry.Store { return s.store }

// State returns a snapshot of the viewport state.
func (s *Session) State() State {
	out := s.state
	if s.state.ActiveHighlight != nil {
		c := s.state.ActiveHighlight.clone()
		out.ActiveHighlight = &c
	}
	return out
}

// Loaded reports whether a document has been installed.
func (s *Session) Loaded() bool { return s.loaded }

// ReplaceDocument installs a new document with numPages pages (zero when not
// known yet). Geometry and the highlight are dropped, the page field returns
// to "1", zoom is kept, and every page is requested at the current width.
func (s *Session) ReplaceDocument(numPages int, sizer ReferenceSizer) {
	s.store.Reset()
	s.highlights.Clear()
	if s.mode == ReferencePage {
		s.highlights.sizer = sizer
	} else {
		s.highlights.sizer = nil
	}
	s.loaded = true
	s.controller.resetForDocument(numPages)
	log.Printf("[viewer] document replaced (pages=%d, zoom=%.1f)", numPages, s.state.Zoom)
}

// BeginUpload admits a new upload. Only one upload may be in flight; the
// current highlight is dropped as soon as a new file is chosen.
func (s *Session) BeginUpload() error {
	if s.uploading {
		return ErrUploadInFlight
	}
	s.uploading = true
	s.highlights.Clear()
	return nil
}

// FinishUpload releases the upload slot, whatever the outcome.
func (s *Session) FinishUpload() {
	s.uploading = false
}

// Uploading reports whether an upload is pending.
func (s *Session) Uploading() bool { return s.uploading }

// CanQuery reports whether a question may be sent now.
func (s *Session) CanQuery() bool { return !s.uploading }
