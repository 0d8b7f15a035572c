package tui

import (
	"context"
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/csheth/citeview/internal/backend"
	"github.com/csheth/citeview/internal/render"
	"github.com/csheth/citeview/internal/viewer"
)

const fixturePDF = "../render/testdata/two_pages.pdf"

type fakeBackend struct {
	uploads   []string
	uploadErr error
	answer    backend.Answer
	askErr    error
}

func (f *fakeBackend) Upload(ctx context.Context, path string) error {
	f.uploads = append(f.uploads, path)
	return f.uploadErr
}

func (f *fakeBackend) Ask(ctx context.Context, question string) (backend.Answer, error) {
	return f.answer, f.askErr
}

func (f *fakeBackend) Name() string { return "fake" }

func newTestModel(t *testing.T) *model {
	t.Helper()
	teaModel, ok := New(Config{Backend: &fakeBackend{}}).(*model)
	if !ok {
		t.Fatalf("expected *model, got %T", teaModel)
	}
	return teaModel
}

// loadFixture installs the two-page fixture without going through the
// backend and returns the paint tickets it queued.
func loadFixture(t *testing.T, m *model) []viewer.PaintTicket {
	t.Helper()
	doc, err := render.Open(fixturePDF)
	if err != nil {
		t.Fatalf("open fixture: %v", err)
	}
	m.update(uploadResultMsg{input: fixturePDF, doc: doc})
	if m.doc != doc {
		t.Fatal("document not installed")
	}
	return takePaints(m)
}

func takePaints(m *model) []viewer.PaintTicket {
	tickets := m.pendingPaints
	m.pendingPaints = nil
	return tickets
}

func applyPaints(t *testing.T, m *model, tickets []viewer.PaintTicket) {
	t.Helper()
	msg, _ := paintJob(m.renderer, tickets)(context.Background())
	m.update(msg)
}

func pressKey(m *model, key string) tea.Cmd {
	_, cmd := m.update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(key)})
	return cmd
}

func answerWithReferences(t *testing.T, m *model) {
	t.Helper()
	two, one := 2, 1
	answerWith(t, m,
		backend.Reference{PageNumber: &two, BBox: []float64{72, 700, 200, 730}, Text: "Operating margin"},
		backend.Reference{PageNumber: &one, BBox: []float64{300, 10, 100, 20}, Text: "inverted box"},
	)
}

func answerWith(t *testing.T, m *model, refs ...backend.Reference) {
	t.Helper()
	m.qaHistory = append(m.qaHistory, qaExchange{Question: "What about margins?", Pending: true})
	m.update(questionResultMsg{
		index:  len(m.qaHistory) - 1,
		docID:  m.doc.ID,
		answer: backend.Answer{Text: "Margins are discussed on page 2.", References: refs},
	})
}

func TestUploadResultInstallsDocument(t *testing.T) {
	m := newTestModel(t)
	if m.stage != stagePicker {
		t.Fatalf("expected the picker first, got stage %v", m.stage)
	}
	tickets := loadFixture(t, m)
	if m.stage != stageViewer {
		t.Fatalf("a loaded document should open the viewer, got stage %v", m.stage)
	}
	if len(tickets) != 2 {
		t.Fatalf("expected a paint ticket per page, got %d", len(tickets))
	}
	if got := m.session.Controller().PageLabel(); got != "of 2" {
		t.Fatalf("unexpected page label %q", got)
	}
	if m.pageInput.CharLimit != 1 {
		t.Fatalf("page field limit should follow the page count, got %d", m.pageInput.CharLimit)
	}
	if !strings.Contains(m.infoMessage, "2 pages") {
		t.Fatalf("unexpected info message %q", m.infoMessage)
	}
}

func TestPaintResultsRecordGeometry(t *testing.T) {
	m := newTestModel(t)
	applyPaints(t, m, loadFixture(t, m))

	g, ok := m.session.Geometry().Get(1)
	if !ok {
		t.Fatal("page 1 geometry missing")
	}
	if g.Width != 600 || g.Height != 776 {
		t.Fatalf("unexpected page 1 geometry %+v", g)
	}
}

func TestStalePaintsAreDiscarded(t *testing.T) {
	m := newTestModel(t)
	stale := loadFixture(t, m)
	pressKey(m, "+")
	fresh := takePaints(m)
	if len(fresh) != 2 {
		t.Fatalf("zoom should repaint every page, got %d tickets", len(fresh))
	}

	applyPaints(t, m, stale)
	if m.session.Geometry().Len() != 0 {
		t.Fatal("paints from before the zoom change must be dropped")
	}
	applyPaints(t, m, fresh)
	g, _ := m.session.Geometry().Get(2)
	if g.Width != 660 {
		t.Fatalf("expected width 660 after zoom, got %v", g.Width)
	}
}

func TestZoomKeysClamp(t *testing.T) {
	m := newTestModel(t)
	loadFixture(t, m)
	for i := 0; i < 40; i++ {
		pressKey(m, "+")
	}
	if z := m.session.Controller().Zoom(); z != viewer.MaxZoom {
		t.Fatalf("zoom should clamp at %v, got %v", viewer.MaxZoom, z)
	}
	for i := 0; i < 40; i++ {
		pressKey(m, "-")
	}
	if z := m.session.Controller().Zoom(); z != viewer.MinZoom {
		t.Fatalf("zoom should clamp at %v, got %v", viewer.MinZoom, z)
	}
	if !strings.Contains(m.infoMessage, "30%") {
		t.Fatalf("unexpected info message %q", m.infoMessage)
	}
}

func TestPageFieldFiltersAndClamps(t *testing.T) {
	m := newTestModel(t)
	loadFixture(t, m)

	pressKey(m, ":")
	if m.focus != focusPage {
		t.Fatalf("expected page focus, got %v", m.focus)
	}
	pressKey(m, "a")
	if got := m.pageInput.Value(); got != "" {
		t.Fatalf("non-digits should be dropped, got %q", got)
	}
	pressKey(m, "9")
	m.update(tea.KeyMsg{Type: tea.KeyEnter})

	if got := m.session.Controller().PageInput(); got != "2" {
		t.Fatalf("page should clamp to 2, got %q", got)
	}
	if got := m.pageInput.Value(); got != "2" {
		t.Fatalf("field should show the clamped page, got %q", got)
	}
	if m.focus != focusDocument {
		t.Fatal("commit should return focus to the document")
	}
}

func TestReferenceDigitHighlightsCitation(t *testing.T) {
	m := newTestModel(t)
	applyPaints(t, m, loadFixture(t, m))
	answerWithReferences(t, m)

	pressKey(m, "1")
	active, ok := m.session.Highlights().Active()
	if !ok || active.PageNumber != 2 || active.Index != 1 {
		t.Fatalf("expected reference 1 on page 2, got %+v (ok=%v)", active, ok)
	}
	if got := m.session.Controller().PageInput(); got != "2" {
		t.Fatalf("page field should follow the citation, got %q", got)
	}
	content := m.buildDocumentContent().content
	if !strings.Contains(content, "[1] Operating margin") {
		t.Fatal("cited passage should be shown under the page")
	}

	pressKey(m, "2")
	active, _ = m.session.Highlights().Active()
	if active.Index != 2 {
		t.Fatalf("expected reference 2, got %d", active.Index)
	}
	if _, ok := m.session.Highlights().Overlay(1); ok {
		t.Fatal("inverted box must not produce an overlay")
	}

	pressKey(m, "7")
	if !strings.Contains(m.infoMessage, "does not exist") {
		t.Fatalf("unexpected info message %q", m.infoMessage)
	}
}

func TestClickDismissesHighlight(t *testing.T) {
	m := newTestModel(t)
	applyPaints(t, m, loadFixture(t, m))
	answerWithReferences(t, m)
	pressKey(m, "1")
	if m.session.Highlights().Status() != viewer.Highlighting {
		t.Fatal("digit key should have selected a reference")
	}

	m.update(tea.MouseMsg{X: 2, Y: headerHeight + 1, Type: tea.MouseLeft})
	if m.session.Highlights().Status() != viewer.Idle {
		t.Fatal("a click on the document should dismiss the highlight")
	}
}

func TestClickOnReferenceSelectsIt(t *testing.T) {
	m := newTestModel(t)
	applyPaints(t, m, loadFixture(t, m))
	answerWithReferences(t, m)
	m.refreshChatIfDirty()

	line := -1
	for l, target := range m.chatRefs {
		if target.citation == 0 {
			line = l
		}
	}
	if line < 0 {
		t.Fatal("reference line not found in chat")
	}
	m.update(tea.MouseMsg{X: m.layout.chatLeft + 2, Y: headerHeight + line - m.chatView.YOffset, Type: tea.MouseLeft})
	active, ok := m.session.Highlights().Active()
	if !ok || active.Index != 1 {
		t.Fatalf("clicking a reference should select it, got %+v", active)
	}
}

func TestUploadAdmission(t *testing.T) {
	m := newTestModel(t)
	if cmd := m.beginUpload(fixturePDF); cmd == nil {
		t.Fatal("first upload should start a job")
	}
	if cmd := m.beginUpload(fixturePDF); cmd != nil {
		t.Fatal("second upload must be refused while the first is pending")
	}
	if !strings.Contains(m.infoMessage, "already in progress") {
		t.Fatalf("unexpected info message %q", m.infoMessage)
	}

	pressKey(m, "?")
	m.questionInput.SetValue("Anything?")
	m.update(tea.KeyMsg{Type: tea.KeyEnter})
	if len(m.qaHistory) != 0 {
		t.Fatal("questions must wait for the upload")
	}
	if m.infoMessage != processingText {
		t.Fatalf("expected processing notice, got %q", m.infoMessage)
	}
}

func TestUploadFailureKeepsPreviousDocument(t *testing.T) {
	m := newTestModel(t)
	loadFixture(t, m)
	previous := m.doc
	answerWithReferences(t, m)
	pressKey(m, "1")
	if _, ok := m.session.Highlights().Active(); !ok {
		t.Fatal("expected an active highlight before the new upload")
	}

	m.beginUpload("other.pdf")
	if m.session.Highlights().Status() != viewer.Idle {
		t.Fatal("choosing a new file should drop the highlight")
	}
	m.update(uploadResultMsg{input: "other.pdf", err: errors.New("connection refused")})

	if m.doc != previous {
		t.Fatal("failed upload must not replace the document")
	}
	if m.session.Uploading() {
		t.Fatal("upload slot should be released")
	}
	if !strings.HasPrefix(m.errorMessage, backend.UploadErrorText) {
		t.Fatalf("unexpected error message %q", m.errorMessage)
	}
	if len(m.qaHistory) != 1 {
		t.Fatal("chat should survive a failed upload")
	}
}

func TestQuestionFailureShowsFixedText(t *testing.T) {
	m := newTestModel(t)
	loadFixture(t, m)
	pressKey(m, "?")
	m.questionInput.SetValue("Why?")
	if _, cmd := m.update(tea.KeyMsg{Type: tea.KeyEnter}); cmd == nil {
		t.Fatal("question should start a job")
	}
	if len(m.qaHistory) != 1 || !m.qaHistory[0].Pending {
		t.Fatalf("expected one pending exchange, got %+v", m.qaHistory)
	}

	m.update(questionResultMsg{index: 0, docID: m.doc.ID, err: errors.New("timeout")})
	if got := m.qaHistory[0].Error; got != backend.QueryErrorText {
		t.Fatalf("unexpected bot error %q", got)
	}
	if m.session.Highlights().Status() != viewer.Idle {
		t.Fatal("query failure must not touch the highlight")
	}
}

func TestScrollIntoViewRequiresLayout(t *testing.T) {
	m := newTestModel(t)
	if m.ScrollIntoView(1, viewer.ScrollOptions{Align: viewer.AlignCenter}) {
		t.Fatal("no page can be scrolled to before a document is loaded")
	}
	loadFixture(t, m)
	if !m.ScrollIntoView(2, viewer.ScrollOptions{Align: viewer.AlignStart}) {
		t.Fatal("page 2 should be laid out")
	}
	if m.docView.YOffset != m.pageSpans[2].start && !m.docView.AtBottom() {
		t.Fatalf("expected offset %d, got %d", m.pageSpans[2].start, m.docView.YOffset)
	}
	if m.ScrollIntoView(3, viewer.ScrollOptions{}) {
		t.Fatal("page 3 does not exist")
	}
}

func TestCenteredScrollKeepsLowHighlightVisible(t *testing.T) {
	m := newTestModel(t)
	applyPaints(t, m, loadFixture(t, m))
	two := 2
	answerWith(t, m, backend.Reference{PageNumber: &two, BBox: []float64{72, 40, 200, 60}, Text: "footnote"})

	pressKey(m, "1")
	span := m.pageSpans[2]
	if span.anchor < 0 {
		t.Fatal("highlighted page should record the overlay line")
	}
	line := span.start + span.anchor
	if span.anchor < m.docView.Height/2 {
		t.Fatalf("fixture highlight should sit low on the page, anchor %d", span.anchor)
	}
	if line < m.docView.YOffset || line >= m.docView.YOffset+m.docView.Height {
		t.Fatalf("highlight line %d outside the pane [%d, %d)", line, m.docView.YOffset, m.docView.YOffset+m.docView.Height)
	}
}

func TestUnmountedCitationSyncsPageField(t *testing.T) {
	m := newTestModel(t)
	loadFixture(t, m)
	five := 5
	answerWith(t, m, backend.Reference{PageNumber: &five, BBox: []float64{72, 700, 200, 730}, Text: "missing page"})

	pressKey(m, "1")
	if !strings.Contains(m.infoMessage, "not available") {
		t.Fatalf("unexpected info message %q", m.infoMessage)
	}
	want := m.session.Controller().PageInput()
	if want != "5" {
		t.Fatalf("selection should still record the page, got %q", want)
	}
	if got := m.pageInput.Value(); got != want {
		t.Fatalf("page field shows %q, state has %q", got, want)
	}
}

func TestToolbarShowsRunningPaints(t *testing.T) {
	m := newTestModel(t)
	loadFixture(t, m)
	running := jobSnapshot{ID: "paint-1", Kind: jobKindPaint, Status: jobStatusRunning}
	m.update(jobSignalMsg{Snapshot: running})
	if !strings.Contains(m.toolbarView(), "rendering (1)") {
		t.Fatalf("toolbar should count the running paint: %q", m.toolbarView())
	}

	done := running
	done.Status = jobStatusSucceeded
	m.update(jobResultEnvelope{Snapshot: done})
	if strings.Contains(m.toolbarView(), "rendering") {
		t.Fatalf("finished paints should drop off the toolbar: %q", m.toolbarView())
	}
}
