package tui

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle           = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	sectionHeaderStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("81"))
	errorStyle           = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	helperStyle          = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	statusBarStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("#0f0f0f")).Background(lipgloss.Color("#8ecae6")).Padding(0, 1)
	keyStyle             = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#0f0f0f")).Background(lipgloss.Color("#ffd166")).Padding(0, 1)
	keyDescStyle         = lipgloss.NewStyle().Foreground(lipgloss.Color("#e0def4"))
	helpBoxStyle         = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("#7f5af0")).Padding(0, 1)
	pageHeaderStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#56526e"))
	pageStyle            = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	overlayStyle         = lipgloss.NewStyle().Foreground(lipgloss.Color("0")).Background(lipgloss.Color("190"))
	citedTextStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("190")).Italic(true)
	userLabelStyle       = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("147"))
	botLabelStyle        = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#a3be8c"))
	referenceStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("110")).Underline(true)
	activeReferenceStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("0")).Background(lipgloss.Color("229"))
	focusedPaneStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
)

func (m *model) View() string {
	switch m.stage {
	case stagePicker:
		return m.viewPicker()
	default:
		return m.viewViewer()
	}
}

func (m *model) viewPicker() string {
	parts := []string{
		titleStyle.Render("citeview") + "  " + helperStyle.Italic(true).Render(heroTagline),
		sectionHeaderStyle.Render("Choose a PDF"),
	}
	if m.picking == pickerFocusFiles {
		parts = append(parts, helperStyle.Render(m.picker.CurrentDirectory), m.picker.View())
	} else {
		parts = append(parts, m.pathInput.View())
	}
	parts = append(parts, helperStyle.Render("Enter selects · Tab switches between browsing and typing a path or URL · Esc goes back"))
	if m.errorMessage != "" {
		parts = append(parts, errorStyle.Render(m.errorMessage))
	}
	if m.infoMessage != "" {
		parts = append(parts, helperStyle.Render(m.infoMessage))
	}
	return joinNonEmpty(parts)
}

func (m *model) viewViewer() string {
	m.refreshDocumentIfDirty()
	m.refreshChatIfDirty()
	docPane := lipgloss.NewStyle().Width(m.layout.docWidth).Render(
		lipgloss.JoinVertical(lipgloss.Left, m.paneTitle("Document", focusDocument), m.docView.View()))
	chatPane := lipgloss.NewStyle().Width(m.layout.chatWidth).Render(
		lipgloss.JoinVertical(lipgloss.Left, m.paneTitle("Chat", focusChat), m.chatView.View()))
	body := lipgloss.JoinHorizontal(lipgloss.Top, docPane, strings.Repeat(" ", paneGap), chatPane)
	parts := []string{m.toolbarView(), body, m.composerView(), m.statusLine()}
	if m.helpVisible {
		parts = append(parts, m.helpView())
	}
	return joinNonEmpty(parts)
}

func (m *model) toolbarView() string {
	controller := m.session.Controller()
	name := "no document"
	if m.doc != nil {
		name = filepath.Base(m.doc.Path)
	}
	page := controller.PageInput()
	if m.focus == focusPage {
		page = m.pageInput.View()
	}
	segments := []string{
		titleStyle.Render("citeview"),
		name,
		fmt.Sprintf("Page %s %s", page, controller.PageLabel()),
		fmt.Sprintf("Zoom %d%%", zoomPercent(controller.Zoom())),
	}
	if n := m.jobs.Running(jobKindPaint); n > 0 {
		segments = append(segments, helperStyle.Render(fmt.Sprintf("rendering (%d)", n)))
	}
	if m.session.Uploading() {
		segments = append(segments, fmt.Sprintf("%s %s %s", m.spinner.View(), processingText, displayName(m.pendingUpload)))
	}
	return strings.Join(segments, helperStyle.Render(" │ "))
}

func (m *model) paneTitle(label string, area focusArea) string {
	if m.focus == area {
		return focusedPaneStyle.Render("▸ " + label)
	}
	return sectionHeaderStyle.Render("  " + label)
}

func (m *model) composerView() string {
	if m.focus == focusQuestion {
		return m.questionInput.View()
	}
	if !m.session.CanQuery() {
		return helperStyle.Render(processingText)
	}
	return helperStyle.Render("? ask · 1-9 jump to reference · : go to page · +/- zoom · o open · h help")
}

func (m *model) statusLine() string {
	if m.errorMessage != "" {
		return errorStyle.Render(m.errorMessage)
	}
	if m.infoMessage == "" {
		return ""
	}
	return statusBarStyle.Render(m.infoMessage)
}

func (m *model) helpView() string {
	bindings := [][2]string{
		{"?", "ask a question"},
		{"1-9", "highlight a reference of the latest answer"},
		{"click", "select a reference in the chat, dismiss elsewhere"},
		{":", "type a page number, Enter to jump"},
		{"+ / -", "zoom in / out"},
		{"x", "clear the highlight"},
		{"tab", "switch scrolling between panes"},
		{"o", "open another PDF"},
		{"q", "quit"},
	}
	lines := make([]string, 0, len(bindings))
	for _, b := range bindings {
		lines = append(lines, keyStyle.Render(b[0])+" "+keyDescStyle.Render(b[1]))
	}
	return helpBoxStyle.Render(strings.Join(lines, "\n"))
}

func joinNonEmpty(parts []string) string {
	filtered := parts[:0]
	for _, part := range parts {
		if strings.TrimSpace(part) != "" {
			filtered = append(filtered, part)
		}
	}
	return strings.Join(filtered, "\n")
}
