package tui

import (
	"time"

	"github.com/csheth/citeview/internal/viewer"
)

type stage int

const (
	stagePicker stage = iota
	stageViewer
)

type focusArea int

const (
	focusDocument focusArea = iota
	focusChat
	focusQuestion
	focusPage
)

type pickerFocus int

const (
	pickerFocusFiles pickerFocus = iota
	pickerFocusPath
)

const heroTagline = "Ask your PDF. Follow every citation back to the page."

const (
	minPaneWidth      = 30
	paneGap           = 1
	headerHeight      = 2
	footerHeight      = 3
	unitsPerCell      = 10.0
	maxReferenceKeys  = 9
	questionCharLimit = 500
)

const processingText = "Processing PDF..."

type qaExchange struct {
	Question  string
	Answer    string
	Citations []viewer.Citation
	Error     string
	Pending   bool
	Restored  bool
	AskedAt   time.Time
}

// answered reports whether the exchange has a reply with references to pick.
func (e qaExchange) answered() bool {
	return !e.Pending && e.Error == "" && len(e.Citations) > 0
}
