package main

import "github.com/charmbracelet/lipgloss"

var (
	primaryColor   = lipgloss.Color("109")
	accentColor    = lipgloss.Color("171")
	barBackground  = lipgloss.Color("233")
	mutedColor     = lipgloss.Color("239")
	subtleColor    = lipgloss.Color("244")
	warningColor   = lipgloss.Color("179")
	dangerColor    = lipgloss.Color("167")
	successColor   = lipgloss.Color("65")
	highlightColor = lipgloss.Color("171")
	fileColor      = lipgloss.Color("243")
	badgeText      = lipgloss.Color("231")
)

func fg(c lipgloss.Color) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(c)
}

func bold(c lipgloss.Color) lipgloss.Style {
	return fg(c).Bold(true)
}

// badge is a mode marker in the footer, e.g. SEARCH.
func badge(bg lipgloss.Color) lipgloss.Style {
	return bold(badgeText).Background(bg).Padding(0, 1)
}

// Header and footer bars.
var (
	titleStyle            = bold(accentColor).Background(barBackground)
	titleNameStyle        = bold(primaryColor).Background(barBackground)
	headerBarStyle        = fg(primaryColor).Background(barBackground)
	helpBarStyle          = fg(subtleColor).Background(barBackground)
	helpBarKeyStyle       = bold(primaryColor)
	helpBarDescStyle      = fg(subtleColor)
	helpBarSeparatorStyle = fg(mutedColor)
	helpBarInfoStyle      = fg(mutedColor)
	searchInputStyle      = fg(accentColor).Background(barBackground)
	searchModeStyle       = badge(dangerColor)
	resultsModeStyle      = badge(warningColor)
)

// Query sections and task rows.
var (
	sectionStyle  = bold(accentColor)
	groupStyle    = bold(primaryColor)
	countStyle    = fg(subtleColor)
	fileStyle     = fg(fileColor)
	cursorStyle   = fg(highlightColor)
	selectedStyle = bold(highlightColor)
	doneStyle     = fg(mutedColor).Strikethrough(true)
	dangerStyle   = bold(dangerColor)
)

// Dialogs.
var (
	aboutStyle    = bold(lipgloss.Color("white"))
	aboutBoxStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(mutedColor).Padding(1, 2)
	confirmStyle  = bold(successColor)
	cancelStyle   = bold(dangerColor)
)
