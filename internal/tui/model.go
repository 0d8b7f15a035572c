package tui

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/filepicker"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/csheth/citeview/internal/backend"
	"github.com/csheth/citeview/internal/docsource"
	"github.com/csheth/citeview/internal/history"
	"github.com/csheth/citeview/internal/render"
	"github.com/csheth/citeview/internal/viewer"
)

// Config wires runtime options into the TUI program.
type Config struct {
	Backend       backend.Client
	Resolver      *docsource.Resolver
	History       *history.Store
	HistoryLimit  int
	BaseWidth     float64
	ReferenceMode viewer.ReferenceMode
	// StartDir is where the file picker opens.
	StartDir string
	// InitialDocument, when set, is uploaded as soon as the program starts.
	InitialDocument string
}

type model struct {
	config  Config
	stage   stage
	focus   focusArea
	picking pickerFocus
	layout  pageLayout
	jobs    *jobBus

	session  *viewer.Session
	doc      *render.Document
	renderer *render.Renderer

	picker        filepicker.Model
	pathInput     textinput.Model
	questionInput textinput.Model
	pageInput     textinput.Model
	spinner       spinner.Model
	docView       viewport.Model
	chatView      viewport.Model

	pendingPaints  []viewer.PaintTicket
	pageSpans      map[int]pageSpan
	chatRefs       map[int]refTarget
	docDirty       bool
	chatDirty      bool
	qaHistory      []qaExchange
	activeExchange int
	pendingUpload  string
	infoMessage    string
	errorMessage   string
	helpVisible    bool
}

// New returns a tea.Model ready to be mounted into a Program.
func New(config Config) tea.Model {
	return newModel(config)
}

func newModel(config Config) *model {
	if config.HistoryLimit <= 0 {
		config.HistoryLimit = history.DefaultLimit
	}
	picker := filepicker.New()
	picker.AllowedTypes = []string{".pdf", ".PDF"}
	picker.AutoHeight = false
	picker.Height = 15
	if config.StartDir != "" {
		picker.CurrentDirectory = config.StartDir
	} else if wd, err := os.Getwd(); err == nil {
		picker.CurrentDirectory = wd
	}

	pathInput := textinput.New()
	pathInput.Placeholder = "/path/to/report.pdf, https://… or arXiv:2101.00001"
	pathInput.CharLimit = 2048
	pathInput.Width = 70

	questionInput := textinput.New()
	questionInput.Placeholder = "Ask a question about the document…"
	questionInput.CharLimit = questionCharLimit
	questionInput.Width = 60

	pageInput := textinput.New()
	pageInput.Prompt = ""
	pageInput.CharLimit = 3
	pageInput.Width = 4

	spin := spinner.New()
	spin.Spinner = spinner.Dot

	m := &model{
		config:         config,
		stage:          stagePicker,
		focus:          focusDocument,
		layout:         newPageLayout(),
		jobs:           newJobBus(),
		picker:         picker,
		pathInput:      pathInput,
		questionInput:  questionInput,
		pageInput:      pageInput,
		spinner:        spin,
		docView:        viewport.New(72, 30),
		chatView:       viewport.New(47, 30),
		pageSpans:      map[int]pageSpan{},
		chatRefs:       map[int]refTarget{},
		docDirty:       true,
		chatDirty:      true,
		activeExchange: -1,
		infoMessage:    "Pick a PDF to begin (Tab to type a path or URL).",
	}
	m.docView.MouseWheelEnabled = true
	m.chatView.MouseWheelEnabled = true
	m.session = viewer.NewSession(viewer.Options{
		BaseWidth:     config.BaseWidth,
		ReferenceMode: config.ReferenceMode,
		Scroller:      m,
		Painter:       m,
	})
	m.applyLayout()
	return m
}

func (m *model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.picker.Init(), textinput.Blink}
	if m.config.InitialDocument != "" {
		cmds = append(cmds, m.beginUpload(m.config.InitialDocument))
	}
	return tea.Batch(cmds...)
}

// RequestPaint queues a paint; queued tickets are sent as one job when the
// current update finishes.
func (m *model) RequestPaint(ticket viewer.PaintTicket) {
	m.pendingPaints = append(m.pendingPaints, ticket)
}

// ScrollIntoView moves the document pane so page is visible. Centred scrolls
// put the highlight, when the page has one, in the middle of the pane. Pages
// that are not laid out yet cannot be scrolled to.
func (m *model) ScrollIntoView(page int, opts viewer.ScrollOptions) bool {
	m.refreshDocumentIfDirty()
	span, ok := m.pageSpans[page]
	if !ok {
		return false
	}
	offset := span.start
	if opts.Align == viewer.AlignCenter {
		target := span.start + span.height/2
		if span.anchor >= 0 {
			target = span.start + span.anchor
		}
		offset = target - m.docView.Height/2
	}
	if offset < 0 {
		offset = 0
	}
	m.docView.SetYOffset(offset)
	return true
}

func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	model, cmd := m.update(msg)
	if paint := m.flushPaints(); paint != nil {
		cmd = tea.Batch(cmd, paint)
	}
	return model, cmd
}

func (m *model) update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case spinner.TickMsg:
		if m.session.Uploading() || m.questionPending() {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			m.chatDirty = true
			return m, cmd
		}
		return m, nil
	case tea.WindowSizeMsg:
		m.layout.Update(msg.Width, msg.Height)
		m.applyLayout()
		return m, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			return m, tea.Quit
		}
		if m.stage == stagePicker {
			return m.handlePickerKey(msg)
		}
		return m.handleViewerKey(msg)
	case tea.MouseMsg:
		return m.handleMouse(msg)
	case jobSignalMsg:
		m.jobs.Track(msg.Snapshot)
		return m, nil
	case jobResultEnvelope:
		m.jobs.Track(msg.Snapshot)
		if msg.Payload == nil {
			return m, nil
		}
		return m.update(msg.Payload)
	case uploadResultMsg:
		return m.handleUploadResult(msg)
	case paintResultMsg:
		m.handlePaintResult(msg)
		return m, nil
	case questionResultMsg:
		return m.handleQuestionResult(msg)
	case historyLoadedMsg:
		m.handleHistoryLoaded(msg)
		return m, nil
	case historySavedMsg:
		if msg.err != nil {
			log.Printf("[history] save failed: %v", msg.err)
			m.infoMessage = fmt.Sprintf("History not saved: %v", msg.err)
		}
		return m, nil
	}
	var cmd tea.Cmd
	m.picker, cmd = m.picker.Update(msg)
	return m, cmd
}

func (m *model) handlePickerKey(key tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch key.Type {
	case tea.KeyEsc:
		if m.session.Loaded() || m.session.Uploading() {
			m.stage = stageViewer
			m.pathInput.Blur()
			return m, nil
		}
		return m, tea.Quit
	case tea.KeyTab:
		if m.picking == pickerFocusFiles {
			m.picking = pickerFocusPath
			return m, m.pathInput.Focus()
		}
		m.picking = pickerFocusFiles
		m.pathInput.Blur()
		return m, nil
	}
	if m.picking == pickerFocusPath {
		var cmd tea.Cmd
		m.pathInput, cmd = m.pathInput.Update(key)
		if key.Type == tea.KeyEnter {
			value := strings.TrimSpace(m.pathInput.Value())
			if value == "" {
				m.errorMessage = "Enter a PDF path or URL."
				return m, cmd
			}
			return m, tea.Batch(cmd, m.beginUpload(value))
		}
		return m, cmd
	}
	var cmd tea.Cmd
	m.picker, cmd = m.picker.Update(key)
	if ok, path := m.picker.DidSelectFile(key); ok {
		return m, tea.Batch(cmd, m.beginUpload(path))
	}
	if ok, path := m.picker.DidSelectDisabledFile(key); ok {
		m.errorMessage = fmt.Sprintf("%s is not a PDF.", filepath.Base(path))
	}
	return m, cmd
}

// beginUpload admits an upload of input and switches to the viewer while it
// runs. The current document stays on screen until the new one is ready.
func (m *model) beginUpload(input string) tea.Cmd {
	if err := m.session.BeginUpload(); err != nil {
		m.infoMessage = "An upload is already in progress."
		return nil
	}
	m.pendingUpload = input
	m.activeExchange = -1
	m.stage = stageViewer
	m.focus = focusDocument
	m.pathInput.Blur()
	m.pathInput.SetValue("")
	m.questionInput.Blur()
	m.errorMessage = ""
	m.infoMessage = fmt.Sprintf("Uploading %s…", displayName(input))
	m.docDirty = true
	m.chatDirty = true
	return tea.Batch(m.spinner.Tick, m.jobs.Start(jobKindUpload, uploadJob(m.config.Resolver, m.config.Backend, input)))
}

func (m *model) handleUploadResult(msg uploadResultMsg) (tea.Model, tea.Cmd) {
	m.session.FinishUpload()
	m.pendingUpload = ""
	m.chatDirty = true
	if msg.err != nil {
		m.errorMessage = fmt.Sprintf("%s (%v)", backend.UploadErrorText, msg.err)
		m.infoMessage = "Press o to pick another file."
		m.docDirty = true
		return m, nil
	}
	m.stage = stageViewer
	m.doc = msg.doc
	m.renderer = render.NewRenderer(msg.doc)
	m.qaHistory = nil
	m.activeExchange = -1
	m.session.ReplaceDocument(msg.doc.NumPages(), msg.doc)
	m.pageInput.CharLimit = m.session.Controller().PageInputLimit()
	m.pageInput.SetValue(m.session.Controller().PageInput())
	m.docView.SetYOffset(0)
	m.docDirty = true
	m.errorMessage = ""
	m.infoMessage = fmt.Sprintf("Loaded %s (%d pages). Press ? to ask a question.", displayName(msg.input), msg.doc.NumPages())
	if m.config.History != nil {
		return m, m.jobs.Start(jobKindHistory, loadHistoryJob(m.config.History, msg.doc, m.config.HistoryLimit))
	}
	return m, nil
}

func (m *model) flushPaints() tea.Cmd {
	if len(m.pendingPaints) == 0 {
		return nil
	}
	tickets := m.pendingPaints
	m.pendingPaints = nil
	if m.renderer == nil {
		return nil
	}
	return m.jobs.Start(jobKindPaint, paintJob(m.renderer, tickets))
}

func (m *model) handlePaintResult(msg paintResultMsg) {
	controller := m.session.Controller()
	accepted := 0
	for _, painted := range msg.painted {
		if controller.AcceptPaint(painted.Ticket, painted.Size) {
			accepted++
		}
	}
	for _, failure := range msg.failed {
		log.Printf("[viewer] paint page %d failed: %v", failure.ticket.Page, failure.err)
	}
	if accepted > 0 {
		m.docDirty = true
	}
}

func (m *model) handleViewerKey(key tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch m.focus {
	case focusQuestion:
		return m.handleQuestionKey(key)
	case focusPage:
		return m.handlePageKey(key)
	}
	controller := m.session.Controller()
	switch key.String() {
	case "q", "esc":
		return m, tea.Quit
	case "o":
		m.stage = stagePicker
		m.picking = pickerFocusFiles
		m.errorMessage = ""
		m.infoMessage = "Pick a PDF (Tab to type a path or URL, Esc to go back)."
		return m, m.picker.Init()
	case "?":
		m.focus = focusQuestion
		if !m.session.CanQuery() {
			m.questionInput.Placeholder = processingText
		} else {
			m.questionInput.Placeholder = "Ask a question about the document…"
		}
		return m, m.questionInput.Focus()
	case ":":
		if !m.session.Loaded() {
			m.infoMessage = "Load a document first."
			return m, nil
		}
		m.focus = focusPage
		m.pageInput.CharLimit = controller.PageInputLimit()
		m.pageInput.SetValue("")
		return m, m.pageInput.Focus()
	case "+", "=":
		controller.ZoomIn()
		m.afterZoom()
		return m, nil
	case "-", "_":
		controller.ZoomOut()
		m.afterZoom()
		return m, nil
	case "x":
		if m.session.Highlights().Clear() {
			m.activeExchange = -1
			m.docDirty = true
			m.chatDirty = true
			m.infoMessage = "Highlight cleared."
		}
		return m, nil
	case "tab":
		if m.focus == focusDocument {
			m.focus = focusChat
		} else {
			m.focus = focusDocument
		}
		return m, nil
	case "h":
		m.helpVisible = !m.helpVisible
		return m, nil
	case "1", "2", "3", "4", "5", "6", "7", "8", "9":
		m.selectReference(int(key.Runes[0] - '0'))
		return m, nil
	}
	var cmd tea.Cmd
	if m.focus == focusChat {
		m.chatView, cmd = m.chatView.Update(key)
	} else {
		m.docView, cmd = m.docView.Update(key)
	}
	return m, cmd
}

func (m *model) afterZoom() {
	m.docDirty = true
	m.infoMessage = fmt.Sprintf("Zoom %d%%", zoomPercent(m.session.Controller().Zoom()))
}

func (m *model) handlePageKey(key tea.KeyMsg) (tea.Model, tea.Cmd) {
	controller := m.session.Controller()
	switch key.Type {
	case tea.KeyEsc:
		m.focus = focusDocument
		m.pageInput.Blur()
		m.pageInput.SetValue(controller.PageInput())
		return m, nil
	case tea.KeyEnter:
		controller.SetPageInputDigitsOnly(m.pageInput.Value())
		page := controller.CommitPageJump()
		m.pageInput.SetValue(controller.PageInput())
		m.pageInput.Blur()
		m.focus = focusDocument
		m.infoMessage = fmt.Sprintf("Page %d %s", page, controller.PageLabel())
		return m, nil
	}
	var cmd tea.Cmd
	m.pageInput, cmd = m.pageInput.Update(key)
	m.pageInput.SetValue(controller.SetPageInputDigitsOnly(m.pageInput.Value()))
	m.pageInput.CursorEnd()
	return m, cmd
}

func (m *model) handleQuestionKey(key tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch key.Type {
	case tea.KeyEsc:
		m.focus = focusDocument
		m.questionInput.Blur()
		return m, nil
	case tea.KeyEnter:
		value := strings.TrimSpace(m.questionInput.Value())
		if value == "" {
			m.infoMessage = "Type a question or press Esc to cancel."
			return m, nil
		}
		if !m.session.CanQuery() {
			m.infoMessage = processingText
			return m, nil
		}
		if m.questionPending() {
			m.infoMessage = "Waiting for the previous answer."
			return m, nil
		}
		if m.config.Backend == nil {
			m.errorMessage = "No backend configured."
			return m, nil
		}
		m.questionInput.SetValue("")
		m.questionInput.Blur()
		m.focus = focusDocument
		m.qaHistory = append(m.qaHistory, qaExchange{Question: value, Pending: true, AskedAt: time.Now()})
		m.chatDirty = true
		m.infoMessage = "Asking the backend…"
		idx := len(m.qaHistory) - 1
		docID := ""
		if m.doc != nil {
			docID = m.doc.ID
		}
		m.scrollChatToBottom()
		return m, tea.Batch(m.spinner.Tick, m.jobs.Start(jobKindQuestion, questionJob(m.config.Backend, idx, docID, value)))
	}
	var cmd tea.Cmd
	m.questionInput, cmd = m.questionInput.Update(key)
	return m, cmd
}

func (m *model) handleQuestionResult(msg questionResultMsg) (tea.Model, tea.Cmd) {
	if msg.index < 0 || msg.index >= len(m.qaHistory) {
		return m, nil
	}
	if m.doc != nil && msg.docID != m.doc.ID {
		return m, nil
	}
	entry := &m.qaHistory[msg.index]
	entry.Pending = false
	m.chatDirty = true
	record := history.Exchange{DocumentID: msg.docID, Question: entry.Question, AskedAt: entry.AskedAt}
	if msg.err != nil {
		log.Printf("[backend] query failed: %v", msg.err)
		entry.Error = backend.QueryErrorText
		m.infoMessage = "The backend did not answer."
		record.Answer = backend.QueryErrorText
		record.Failed = true
	} else {
		entry.Answer = msg.answer.Text
		entry.Citations = citationsFrom(msg.answer.References)
		record.Answer = msg.answer.Text
		record.References = msg.answer.References
		if n := len(entry.Citations); n > 0 {
			m.infoMessage = fmt.Sprintf("Answer has %d reference(s). Press 1-%d to jump.", n, minInt(n, maxReferenceKeys))
		} else {
			m.infoMessage = "Answer received."
		}
	}
	m.scrollChatToBottom()
	if m.config.History != nil && msg.docID != "" {
		return m, m.jobs.Start(jobKindHistory, saveHistoryJob(m.config.History, record))
	}
	return m, nil
}

func (m *model) handleHistoryLoaded(msg historyLoadedMsg) {
	if msg.err != nil {
		log.Printf("[history] load failed: %v", msg.err)
		m.infoMessage = fmt.Sprintf("History unavailable: %v", msg.err)
		return
	}
	if m.doc == nil || m.doc.ID != msg.docID || len(msg.exchanges) == 0 {
		return
	}
	restored := make([]qaExchange, 0, len(msg.exchanges)+len(m.qaHistory))
	for _, ex := range msg.exchanges {
		restored = append(restored, exchangeFromHistory(ex))
	}
	shift := len(restored)
	m.qaHistory = append(restored, m.qaHistory...)
	if m.activeExchange >= 0 {
		m.activeExchange += shift
	}
	m.chatDirty = true
	m.scrollChatToBottom()
}

// selectReference highlights citation n of the latest answer that has
// references.
func (m *model) selectReference(n int) {
	idx := m.latestAnsweredIndex()
	if idx < 0 {
		m.infoMessage = "No references to select yet."
		return
	}
	m.selectCitation(idx, n-1)
}

func (m *model) selectCitation(exchange, citation int) {
	entry := m.qaHistory[exchange]
	if citation < 0 || citation >= len(entry.Citations) {
		m.infoMessage = fmt.Sprintf("Reference %d does not exist.", citation+1)
		return
	}
	c := entry.Citations[citation]
	m.activeExchange = exchange
	m.docDirty = true
	m.chatDirty = true
	selected := m.session.Highlights().Select(c)
	m.pageInput.SetValue(m.session.Controller().PageInput())
	if !selected {
		if !c.HasPage() {
			m.infoMessage = fmt.Sprintf("Reference %d has no page.", c.Index)
		} else {
			m.infoMessage = fmt.Sprintf("Page %d is not available.", c.PageNumber)
		}
		return
	}
	m.infoMessage = fmt.Sprintf("Reference %d on page %d", c.Index, c.PageNumber)
}

func (m *model) handleMouse(msg tea.MouseMsg) (tea.Model, tea.Cmd) {
	if m.stage != stageViewer {
		return m, nil
	}
	if msg.Type != tea.MouseLeft {
		var cmd tea.Cmd
		if pane, _ := m.layout.Hit(msg.X, msg.Y); pane == hitChat {
			m.chatView, cmd = m.chatView.Update(msg)
		} else {
			m.docView, cmd = m.docView.Update(msg)
		}
		return m, cmd
	}
	pane, row := m.layout.Hit(msg.X, msg.Y)
	if pane == hitChat {
		m.refreshChatIfDirty()
		if target, ok := m.chatRefs[m.chatView.YOffset+row]; ok {
			m.selectCitation(target.exchange, target.citation)
			return m, nil
		}
	}
	if m.session.Highlights().Dismiss(viewer.ClickEvent{Origin: viewer.OriginGeneric}) {
		m.activeExchange = -1
		m.docDirty = true
		m.chatDirty = true
		m.infoMessage = "Highlight dismissed."
	}
	return m, nil
}

func (m *model) latestAnsweredIndex() int {
	for i := len(m.qaHistory) - 1; i >= 0; i-- {
		if m.qaHistory[i].answered() {
			return i
		}
	}
	return -1
}

func (m *model) questionPending() bool {
	for _, entry := range m.qaHistory {
		if entry.Pending {
			return true
		}
	}
	return false
}

func (m *model) applyLayout() {
	m.docView.Width = m.layout.docWidth
	m.docView.Height = m.layout.paneHeight
	m.chatView.Width = m.layout.chatWidth
	m.chatView.Height = m.layout.paneHeight
	m.questionInput.Width = maxInt(10, m.layout.windowWidth-20)
	m.picker.Height = maxInt(5, m.layout.windowHeight-10)
	m.docDirty = true
	m.chatDirty = true
}

func (m *model) refreshDocumentIfDirty() {
	if !m.docDirty {
		return
	}
	m.docDirty = false
	view := m.buildDocumentContent()
	m.pageSpans = view.pages
	offset := m.docView.YOffset
	m.docView.SetContent(view.content)
	m.docView.SetYOffset(offset)
}

func (m *model) refreshChatIfDirty() {
	if !m.chatDirty {
		return
	}
	m.chatDirty = false
	view := m.buildChatContent()
	m.chatRefs = view.refs
	offset := m.chatView.YOffset
	m.chatView.SetContent(view.content)
	m.chatView.SetYOffset(offset)
}

func (m *model) scrollChatToBottom() {
	m.refreshChatIfDirty()
	m.chatView.GotoBottom()
}

func displayName(input string) string {
	if docsource.IsRemote(input) {
		return input
	}
	return filepath.Base(input)
}

func zoomPercent(z float64) int {
	return int(z*100 + 0.5)
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
