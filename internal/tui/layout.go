package tui

import (
	"fmt"
	"math"
	"strings"

	"github.com/muesli/reflow/truncate"
	"github.com/muesli/reflow/wordwrap"

	"github.com/csheth/citeview/internal/render"
)

type pageLayout struct {
	windowWidth  int
	windowHeight int
	docWidth     int
	chatWidth    int
	paneHeight   int
	chatLeft     int
}

func newPageLayout() pageLayout {
	l := pageLayout{}
	l.Update(120, 40)
	return l
}

// Update splits the window into the document pane (three fifths) and the
// chat pane, leaving room for the toolbar and the footer.
func (l *pageLayout) Update(width, height int) {
	l.windowWidth = width
	l.windowHeight = height
	usable := width - paneGap
	if usable < 2*minPaneWidth {
		usable = 2 * minPaneWidth
	}
	l.docWidth = usable * 3 / 5
	l.chatWidth = usable - l.docWidth
	l.chatLeft = l.docWidth + paneGap
	l.paneHeight = height - headerHeight - footerHeight
	if l.paneHeight < 5 {
		l.paneHeight = 5
	}
}

type paneHit int

const (
	hitNone paneHit = iota
	hitDocument
	hitChat
)

// Hit maps a mouse position to a pane and the line inside it.
func (l pageLayout) Hit(x, y int) (paneHit, int) {
	row := y - headerHeight
	if row < 0 || row >= l.paneHeight {
		return hitNone, 0
	}
	switch {
	case x < l.docWidth:
		return hitDocument, row
	case x >= l.chatLeft:
		return hitChat, row
	default:
		return hitNone, 0
	}
}

type contentBuilder struct {
	builder strings.Builder
	lines   int
}

func (cb *contentBuilder) WriteString(s string) {
	cb.builder.WriteString(s)
	cb.lines += strings.Count(s, "\n")
}

func (cb *contentBuilder) WriteRune(r rune) {
	cb.builder.WriteRune(r)
	if r == '\n' {
		cb.lines++
	}
}

func (cb *contentBuilder) WriteLine(s string) {
	cb.WriteString(s)
	cb.WriteRune('\n')
}

func (cb *contentBuilder) String() string {
	return cb.builder.String()
}

func (cb *contentBuilder) Line() int {
	return cb.lines
}

type pageSpan struct {
	start  int
	height int
	// anchor is the line of the highlight relative to start, or -1.
	anchor int
}

type documentView struct {
	content string
	pages   map[int]pageSpan
}

// buildDocumentContent lays every page out at its current rendered size.
// Pages are as wide as their rendered width allows, clipped to the pane.
func (m *model) buildDocumentContent() documentView {
	view := documentView{pages: map[int]pageSpan{}}
	if m.doc == nil {
		return view
	}
	cb := &contentBuilder{}
	paneWidth := m.layout.docWidth
	highlights := m.session.Highlights()
	for page := 1; page <= m.doc.NumPages(); page++ {
		start := cb.Line()
		rendered := highlights.RenderedSize(page)
		cols := int(math.Round(rendered.Width / unitsPerCell))
		header := fmt.Sprintf("── Page %d ", page)
		if _, painted := m.session.Geometry().Get(page); !painted {
			header += "(estimated) "
		}
		cb.WriteLine(pageHeaderStyle.Render(clip(header+strings.Repeat("─", maxInt(0, cols-len([]rune(header)))), paneWidth)))

		frame := m.doc.Rasterize(page, rendered, cols)
		var spans []render.Span
		rect, overlay := highlights.Overlay(page)
		if overlay {
			spans = frame.Highlight(rect)
		}
		anchor := -1
		if len(spans) > 0 {
			anchor = cb.Line() - start + (spans[0].Row+spans[len(spans)-1].Row)/2
		}
		for _, line := range frame.Render(spans, func(s string) string { return overlayStyle.Render(s) }) {
			cb.WriteLine(pageStyle.Render(clip(line, paneWidth)))
		}
		if overlay {
			if active, ok := highlights.Active(); ok && strings.TrimSpace(active.Text) != "" {
				quote := wordwrap.String(fmt.Sprintf("[%d] %s", active.Index, active.Text), maxInt(10, paneWidth-2))
				for _, line := range strings.Split(quote, "\n") {
					cb.WriteLine(citedTextStyle.Render(clip("▌ "+line, paneWidth)))
				}
			}
		}
		view.pages[page] = pageSpan{start: start, height: cb.Line() - start, anchor: anchor}
		cb.WriteRune('\n')
	}
	view.content = cb.String()
	return view
}

type chatView struct {
	content string
	refs    map[int]refTarget
}

type refTarget struct {
	exchange int
	citation int
}

func (m *model) buildChatContent() chatView {
	view := chatView{refs: map[int]refTarget{}}
	cb := &contentBuilder{}
	wrap := maxInt(10, m.layout.chatWidth-4)
	if m.session.Uploading() {
		cb.WriteLine(helperStyle.Render(fmt.Sprintf("%s %s", m.spinner.View(), processingText)))
		cb.WriteRune('\n')
	}
	if len(m.qaHistory) == 0 {
		cb.WriteLine(helperStyle.Render("Questions and answers appear here. Press ? to ask."))
		view.content = cb.String()
		return view
	}
	active, hasActive := m.session.Highlights().Active()
	latest := m.latestAnsweredIndex()
	for idx, entry := range m.qaHistory {
		label := "You"
		if entry.Restored {
			label = "You (earlier)"
		}
		cb.WriteLine(userLabelStyle.Render(label))
		cb.WriteLine(indentMultiline(wordwrap.String(entry.Question, wrap), "  "))
		cb.WriteLine(botLabelStyle.Render("Bot"))
		switch {
		case entry.Pending:
			cb.WriteLine("  " + m.spinner.View() + " Thinking…")
		case entry.Error != "":
			cb.WriteLine(indentMultiline(errorStyle.Render(wordwrap.String(entry.Error, wrap)), "  "))
		default:
			cb.WriteLine(indentMultiline(wordwrap.String(entry.Answer, wrap), "  "))
		}
		for ci, c := range entry.Citations {
			view.refs[cb.Line()] = refTarget{exchange: idx, citation: ci}
			where := "p.?"
			if c.HasPage() {
				where = fmt.Sprintf("p.%d", c.PageNumber)
			}
			text := fmt.Sprintf("[%d] %s %s", c.Index, where, c.Text)
			style := referenceStyle
			if hasActive && idx == m.activeExchange && active.Index == c.Index {
				style = activeReferenceStyle
			} else if idx != latest {
				style = helperStyle
			}
			cb.WriteLine("  " + style.Render(clip(text, wrap)))
		}
		if idx < len(m.qaHistory)-1 {
			cb.WriteRune('\n')
		}
	}
	view.content = cb.String()
	return view
}

func clip(s string, width int) string {
	if width <= 0 {
		return ""
	}
	return truncate.String(s, uint(width))
}

func indentMultiline(text, prefix string) string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = prefix + line
	}
	return strings.Join(lines, "\n")
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
