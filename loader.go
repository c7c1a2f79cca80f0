package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// loadingDelay is how long a load may take before the loading screen shows.
const loadingDelay = 200 * time.Millisecond

// loadDoneMsg ends the loading screen with the outcome of the load.
type loadDoneMsg struct {
	count int
	err   error
}

type loaderModel struct {
	spinner   spinner.Model
	vaultPath string
	sections  int
	width     int
	height    int
	started   time.Time
	cancelled bool
}

func newLoaderModel(vaultPath string, sections int) loaderModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(accentColor)

	return loaderModel{
		spinner:   s,
		vaultPath: vaultPath,
		sections:  sections,
		started:   time.Now(),
	}
}

func (m loaderModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, tea.WindowSize())
}

func (m loaderModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height

	case tea.KeyMsg:
		if k := msg.String(); k == "q" || k == "ctrl+c" {
			m.cancelled = true
			return m, tea.Quit
		}

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case loadDoneMsg:
		return m, tea.Quit
	}

	return m, nil
}

func (m loaderModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("ot") + " ")
	b.WriteString(m.spinner.View() + " ")
	b.WriteString("Scanning vault")
	if m.sections > 1 {
		fmt.Fprintf(&b, " for %d queries", m.sections)
	}
	b.WriteString(countStyle.Render(fmt.Sprintf(" %.1fs", time.Since(m.started).Seconds())))

	if m.vaultPath != "" {
		b.WriteString("\n" + fileStyle.Render(truncateLeft(m.vaultPath, max(20, m.width-40))))
	}

	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, b.String())
}

// truncateLeft keeps the end of s, which for paths is the part that tells
// vaults apart.
func truncateLeft(s string, n int) string {
	if len(s) <= n || n <= 3 {
		return s
	}
	return "..." + s[len(s)-n+3:]
}

// RunWithLoader loads the session's vault. The loading screen only appears
// when the load outlasts loadingDelay.
func RunWithLoader(s *session) (int, error) {
	done := make(chan loadDoneMsg, 1)
	go func() {
		count, err := s.load()
		done <- loadDoneMsg{count: count, err: err}
	}()

	select {
	case res := <-done:
		return res.count, res.err
	case <-time.After(loadingDelay):
	}

	p := tea.NewProgram(newLoaderModel(s.vaultPath, len(s.sections)), tea.WithAltScreen())

	result := make(chan loadDoneMsg, 1)
	go func() {
		res := <-done
		result <- res
		p.Send(res)
	}()

	final, err := p.Run()
	if err != nil {
		return 0, err
	}
	if lm, ok := final.(loaderModel); ok && lm.cancelled {
		return 0, errLoadCancelled
	}

	res := <-result
	return res.count, res.err
}
