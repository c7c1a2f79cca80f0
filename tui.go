package main

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/elcuervo/otq/internal/query"
	"github.com/elcuervo/otq/internal/task"
)

const (
	defaultWindowHeight = 24
	defaultWindowWidth  = 80
	minVisibleHeight    = 3
	maxInputWidth       = 70
	minInputWidth       = 30
	cursorCharacter     = ">"
)

// resultMsg carries a fresh result for one section.
type resultMsg struct {
	section int
	result  *query.Result
}

// opFinishedMsg reports a write to the vault.
type opFinishedMsg struct {
	err    error
	status string
}

// editorFinishedMsg is sent when the external editor closes
type editorFinishedMsg struct {
	err error
}

// sender lets live queries reach the program once it exists.
type sender struct {
	program *tea.Program
}

func (s *sender) send(msg tea.Msg) {
	if s.program != nil {
		s.program.Send(msg)
	}
}

// taskRow is a selectable task along with where it is shown.
type taskRow struct {
	task    *task.Task
	section int
	group   string
}

// model is the BubbleTea model
type model struct {
	session  *session
	sender   *sender
	sections []QuerySection
	results  []*query.Result
	rows     []taskRow

	cursor       int
	titleName    string
	editorMode   string
	quitting     bool
	err          error
	status       string
	windowHeight int
	windowWidth  int
	aboutOpen    bool
	viewport     viewport.Model

	searching   bool
	searchQuery string
	searchInput textinput.Model
	filtered    []taskRow

	deleting     bool
	deletingTask *task.Task
}

func newModel(s *session, snd *sender, titleName, editorMode string) model {
	return model{
		session:      s,
		sender:       snd,
		sections:     s.sections,
		results:      make([]*query.Result, len(s.sections)),
		titleName:    titleName,
		editorMode:   editorMode,
		windowHeight: defaultWindowHeight,
		windowWidth:  defaultWindowWidth,
		viewport:     viewport.New(defaultWindowWidth, defaultWindowHeight),
	}
}

func (m model) Init() tea.Cmd {
	s, snd := m.session, m.sender
	start := func() tea.Msg {
		s.start(func(i int, res *query.Result) {
			snd.send(resultMsg{section: i, result: res})
		})
		return nil
	}
	return tea.Batch(tea.WindowSize(), start)
}

// rebuildRows flattens every section's groups into selectable rows.
func (m *model) rebuildRows() {
	m.rows = m.rows[:0]
	for i, res := range m.results {
		if res == nil {
			continue
		}
		for _, g := range res.Groups {
			for _, t := range g.Tasks {
				m.rows = append(m.rows, taskRow{task: t, section: i, group: groupHeading(g)})
			}
		}
	}
	m.filterBySearch()
	m.clampCursor(len(m.activeRows()))
}

func (m *model) filterBySearch() {
	if m.searchQuery == "" {
		m.filtered = nil
		return
	}

	needle := strings.ToLower(m.searchQuery)
	var filtered []taskRow
	for _, row := range m.rows {
		haystacks := []string{row.task.Description, m.sections[row.section].Name, row.group}
		for _, h := range haystacks {
			if strings.Contains(strings.ToLower(h), needle) {
				filtered = append(filtered, row)
				break
			}
		}
	}
	m.filtered = filtered
	m.clampCursor(len(filtered))
}

func (m *model) activeRows() []taskRow {
	if m.searchQuery != "" {
		return m.filtered
	}
	return m.rows
}

func (m *model) selected() *task.Task {
	rows := m.activeRows()
	if m.cursor < 0 || m.cursor >= len(rows) {
		return nil
	}
	return rows[m.cursor].task
}

func (m *model) clampCursor(length int) {
	m.cursor = max(0, min(m.cursor, length-1))
}

func (m *model) inputWidth() int {
	return max(minInputWidth, min(maxInputWidth, m.windowWidth-10))
}

// toggleCmd writes the toggle off the event loop; publishing re-renders the
// live queries, which send back into the program.
func (m *model) toggleCmd(t *task.Task) tea.Cmd {
	s := m.session
	return func() tea.Msg {
		if err := s.toggle(t); err != nil {
			return opFinishedMsg{err: err}
		}
		return opFinishedMsg{status: "toggled " + t.Description}
	}
}

func (m *model) deleteCmd(t *task.Task) tea.Cmd {
	s := m.session
	return func() tea.Msg {
		if err := s.remove(t); err != nil {
			return opFinishedMsg{err: err}
		}
		return opFinishedMsg{status: "deleted " + t.Description}
	}
}

func (m *model) reloadCmd() tea.Cmd {
	s := m.session
	return func() tea.Msg {
		n, err := s.load()
		if err != nil {
			return opFinishedMsg{err: err}
		}
		return opFinishedMsg{status: fmt.Sprintf("reloaded %d tasks", n)}
	}
}

// openInEditor opens the task file in an external editor at the correct line
func (m *model) openInEditor(t *task.Task) tea.Cmd {
	editor := m.editorMode
	if strings.TrimSpace(editor) == "" {
		editor = os.Getenv("EDITOR")
	}

	parts := strings.Fields(editor)
	if len(parts) == 0 {
		parts = []string{"vi"}
	}
	args := append(parts[1:], fmt.Sprintf("+%d", t.Line), filepath.Join(m.session.vaultPath, filepath.FromSlash(t.Path)))
	c := exec.Command(parts[0], args...)

	return tea.ExecProcess(c, func(err error) tea.Msg {
		return editorFinishedMsg{err: err}
	})
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.windowHeight = msg.Height
		m.windowWidth = msg.Width
		m.viewport.Width = msg.Width
		m.viewport.Height = msg.Height
		return m, nil

	case resultMsg:
		if msg.section >= 0 && msg.section < len(m.results) {
			m.results[msg.section] = msg.result
			m.rebuildRows()
		}
		return m, nil

	case opFinishedMsg:
		m.err = msg.err
		m.status = msg.status
		return m, nil

	case editorFinishedMsg:
		if msg.err != nil {
			m.err = msg.err
		}
		return m, m.reloadCmd()

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m, nil
}

func (m model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()

	if key == "ctrl+c" {
		m.quitting = true
		return m, tea.Quit
	}

	if m.aboutOpen {
		switch key {
		case "esc", "ctrl+[", "q", "?":
			m.aboutOpen = false
		}
		return m, nil
	}

	if m.deleting {
		switch key {
		case "y", "Y", "enter", "d", "D":
			t := m.deletingTask
			m.deleting = false
			m.deletingTask = nil
			if t != nil {
				return m, m.deleteCmd(t)
			}
		default:
			m.deleting = false
			m.deletingTask = nil
		}
		return m, nil
	}

	if m.searching {
		switch key {
		case "esc", "ctrl+[":
			m.searching = false
			m.searchQuery = ""
			m.filtered = nil
			m.clampCursor(len(m.rows))
			return m, nil
		case "enter":
			m.searching = false
			return m, nil
		case "up", "down":
			// fall through to navigation
		default:
			var cmd tea.Cmd
			m.searchInput, cmd = m.searchInput.Update(msg)
			m.searchQuery = m.searchInput.Value()
			m.filterBySearch()
			return m, cmd
		}
	}

	if m.err != nil && key != "q" {
		m.err = nil
	}

	rows := m.activeRows()
	switch key {
	case "q":
		m.quitting = true
		return m, tea.Quit

	case "?":
		m.aboutOpen = true

	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}

	case "down", "j":
		if m.cursor < len(rows)-1 {
			m.cursor++
		}

	case "g", "home":
		m.cursor = 0

	case "G", "end":
		m.cursor = max(0, len(rows)-1)

	case "enter", " ", "x":
		if t := m.selected(); t != nil {
			return m, m.toggleCmd(t)
		}

	case "e":
		if t := m.selected(); t != nil {
			return m, m.openInEditor(t)
		}

	case "d":
		if t := m.selected(); t != nil {
			m.deleting = true
			m.deletingTask = t
		}

	case "r":
		return m, m.reloadCmd()

	case "/":
		m.searching = true
		m.searchInput = textinput.New()
		m.searchInput.Prompt = "/"
		m.searchInput.SetValue(m.searchQuery)
		m.searchInput.Width = m.inputWidth()
		return m, m.searchInput.Focus()

	case "esc":
		if m.searchQuery != "" {
			m.searchQuery = ""
			m.filtered = nil
			m.clampCursor(len(m.rows))
		}
	}

	return m, nil
}

type viewLine struct {
	content string
	// taskIndex is the row shown on this line, or -1 for headings.
	taskIndex int
}

// contentLines renders the sections for the body. Rows hidden by the
// search are skipped along with headings left empty.
func (m model) contentLines() ([]viewLine, int) {
	var lines []viewLine
	cursorLine := 0

	visible := make(map[*task.Task]bool)
	searching := m.searchQuery != ""
	for _, row := range m.filtered {
		visible[row.task] = true
	}

	index := 0
	for i, res := range m.results {
		section := m.sections[i]
		if res == nil {
			if section.Name != "" {
				lines = append(lines, viewLine{content: sectionStyle.Render(section.Name) + countStyle.Render(" ..."), taskIndex: -1})
			}
			continue
		}

		if section.Name != "" || len(m.sections) > 1 {
			name := section.Name
			if name == "" {
				name = fmt.Sprintf("Query %d", i+1)
			}
			count := ""
			if !res.Layout.IsHidden("task count") {
				count = countStyle.Render(fmt.Sprintf(" (%d)", len(res.Tasks)))
			}
			lines = append(lines, viewLine{content: sectionStyle.Render(name) + count, taskIndex: -1})
		}

		for _, err := range res.Errors {
			lines = append(lines, viewLine{content: dangerStyle.Render("  ! " + err.Error()), taskIndex: -1})
		}
		if res.Explanation != "" {
			for _, l := range strings.Split(res.Explanation, "\n") {
				lines = append(lines, viewLine{content: helpBarDescStyle.Render("  " + l), taskIndex: -1})
			}
		}

		for _, g := range res.Groups {
			heading := groupHeading(g)
			headingShown := false
			for _, t := range g.Tasks {
				if searching && !visible[t] {
					continue
				}
				if heading != "" && !headingShown {
					lines = append(lines, viewLine{content: groupStyle.Render("  " + heading), taskIndex: -1})
					headingShown = true
				}

				rendered := renderTask(t, res.Layout)
				if t.IsDone() {
					rendered = doneStyle.Render(rendered)
				}
				prefix := "  "
				if index == m.cursor {
					prefix = cursorStyle.Render(cursorCharacter) + " "
					rendered = selectedStyle.Render(rendered)
					cursorLine = len(lines)
				}
				if !res.Layout.IsHidden("backlink") && !res.Layout.ShortMode {
					rendered += " " + fileStyle.Render(fmt.Sprintf("%s:%d", t.Path, t.Line))
				}
				lines = append(lines, viewLine{content: prefix + rendered, taskIndex: index})
				index++
			}
		}

		if len(res.Tasks) == 0 && len(res.Errors) == 0 {
			lines = append(lines, viewLine{content: fileStyle.Render("  (no matching tasks)"), taskIndex: -1})
		}
		lines = append(lines, viewLine{content: "", taskIndex: -1})
	}

	return lines, cursorLine
}

func (m model) View() string {
	if m.quitting {
		return "Goodbye!\n"
	}

	if m.aboutOpen {
		return m.aboutView()
	}

	width := m.windowWidth
	if width <= 0 {
		width = defaultWindowWidth
	}

	title := titleStyle.Render(" ot ") + titleNameStyle.Render(m.titleName)
	header := headerBarStyle.Width(width).Render(title)

	var footer string
	switch {
	case m.deleting && m.deletingTask != nil:
		footer = m.renderFooterSplit(
			dangerStyle.Render(" delete \""+m.deletingTask.Description+"\"? "),
			confirmStyle.Render("y")+helpBarDescStyle.Render(" yes ")+cancelStyle.Render("n")+helpBarDescStyle.Render(" no "))
	case m.searching:
		footer = m.renderFooterSplit(searchInputStyle.Render(m.searchInput.View()), searchModeStyle.Render("SEARCH"))
	case m.err != nil:
		footer = m.renderFooterSplit(dangerStyle.Render(" "+m.err.Error()), "")
	default:
		right := fmt.Sprintf("%d tasks ", len(m.activeRows()))
		if m.searchQuery != "" {
			right = resultsModeStyle.Render("/"+m.searchQuery) + " " + helpBarInfoStyle.Render(right)
			footer = m.renderFooterRight(right, false)
		} else {
			left := helpBarKeyStyle.Render(" ?") + helpBarDescStyle.Render(" help")
			if m.status != "" {
				left += helpBarSeparatorStyle.Render(" │ ") + helpBarDescStyle.Render(m.status)
			}
			footer = m.renderFooterSplit(left, helpBarInfoStyle.Render(right))
		}
	}

	lines, cursorLine := m.contentLines()
	contentHeight := m.windowHeight - lipgloss.Height(header) - lipgloss.Height(footer)
	body, _, _, _ := m.buildViewport(lines, cursorLine, contentHeight)

	return lipgloss.JoinVertical(lipgloss.Left, header, body, footer)
}

func (m model) aboutView() string {
	sha := strings.TrimSpace(buildSHA)
	if sha == "" {
		sha = "unknown"
	}

	type helpItem struct {
		keys string
		desc string
	}

	items := []helpItem{
		{keys: "↑/k ↓/j", desc: "move"},
		{keys: "g/G", desc: "top / bottom"},
		{keys: "enter/space/x", desc: "toggle done"},
		{keys: "e", desc: "open in editor"},
		{keys: "d", desc: "delete"},
		{keys: "r", desc: "reload vault"},
		{keys: "/", desc: "search"},
		{keys: "?", desc: "help"},
		{keys: "q/ctrl+c", desc: "quit"},
	}

	var b strings.Builder
	b.WriteString(aboutStyle.Render(fmt.Sprintf("ot v%s (%s)", strings.TrimSpace(version), sha)))
	b.WriteString("\n\n")
	for _, item := range items {
		b.WriteString(helpBarKeyStyle.Render(fmt.Sprintf("%-14s", item.keys)))
		b.WriteString(helpBarDescStyle.Render(item.desc))
		b.WriteString("\n")
	}

	box := aboutBoxStyle.Render(strings.TrimRight(b.String(), "\n"))
	return lipgloss.Place(m.windowWidth, m.windowHeight, lipgloss.Center, lipgloss.Center, box)
}

func (m model) renderFooterRight(rightInfo string, applyInfoStyle bool) string {
	if rightInfo == "" {
		return helpBarStyle.Width(m.windowWidth).Render("")
	}

	rightPart := rightInfo
	if applyInfoStyle {
		rightPart = helpBarInfoStyle.Render(rightInfo)
	}
	spacing := max(0, m.windowWidth-lipgloss.Width(rightPart))

	return helpBarStyle.Width(m.windowWidth).Render(strings.Repeat(" ", spacing) + rightPart)
}

func (m model) renderFooterSplit(left, right string) string {
	if left == "" && right == "" {
		return helpBarStyle.Width(m.windowWidth).Render("")
	}
	spacing := max(0, m.windowWidth-lipgloss.Width(left)-lipgloss.Width(right))

	gap := helpBarStyle.Render(strings.Repeat(" ", spacing))
	return left + gap + right
}

func (m model) buildViewport(lines []viewLine, cursorLineIdx int, contentHeight int) (string, int, int, int) {
	if contentHeight < minVisibleHeight {
		contentHeight = minVisibleHeight
	}

	width := m.windowWidth
	if width <= 0 {
		width = defaultWindowWidth
	}

	vp := m.viewport
	vp.Width = width
	vp.Height = contentHeight

	if len(lines) == 0 {
		vp.SetContent("")
		view := lipgloss.NewStyle().Width(width).Height(contentHeight).Render(vp.View())
		return normalizeViewHeight(view, contentHeight), 0, 0, 0
	}

	contentLines := make([]string, len(lines))
	lineHeights := make([]int, len(lines))
	totalRenderedLines := 0

	for i, line := range lines {
		contentLines[i] = line.content
		height := 1 + strings.Count(line.content, "\n")
		lineHeights[i] = height
		totalRenderedLines += height
	}

	cursorLineIdx = max(0, min(cursorLineIdx, len(lines)-1))

	startLine := 0
	endLine := len(lines)
	startRow := 0

	if totalRenderedLines > contentHeight {
		startLine, endLine = calculateVisibleRange(cursorLineIdx, lineHeights, contentHeight)
		for i := 0; i < startLine; i++ {
			startRow += lineHeights[i]
		}
	}

	vp.SetContent(strings.Join(contentLines, "\n"))
	vp.YOffset = startRow

	view := lipgloss.NewStyle().Width(width).Height(contentHeight).Render(vp.View())
	return normalizeViewHeight(view, contentHeight), startLine, endLine, totalRenderedLines
}

func normalizeViewHeight(view string, height int) string {
	if height <= 0 {
		return ""
	}

	lines := strings.Split(view, "\n")
	if len(lines) > height {
		lines = lines[:height]
	}
	for len(lines) < height {
		lines = append(lines, "")
	}
	return strings.Join(lines, "\n")
}

func calculateVisibleRange(cursorLineIdx int, lineHeights []int, visibleHeight int) (startLine, endLine int) {
	totalLines := len(lineHeights)

	if totalLines == 0 {
		return 0, 0
	}

	cursorPos := 0
	totalHeight := 0

	for i, h := range lineHeights {
		if i < cursorLineIdx {
			cursorPos += h
		}
		totalHeight += h
	}

	if totalHeight <= visibleHeight {
		return 0, totalLines
	}

	startRow := max(0, cursorPos-(visibleHeight-1))

	pos := 0

	for i, h := range lineHeights {
		if pos+h > startRow {
			startLine = i
			break
		}
		pos += h
	}

	rendered := 0

	for i := startLine; i < totalLines; i++ {
		if rendered+lineHeights[i] > visibleHeight {
			break
		}

		rendered += lineHeights[i]
		endLine = i + 1
	}

	if cursorLineIdx >= endLine {
		endLine = cursorLineIdx + 1
	}

	return startLine, endLine
}
