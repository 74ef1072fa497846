package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/aptl-dev/aptl/internal/ui"
	"github.com/aptl-dev/aptl/internal/version"
)

// Application branding constants
const (
	AppName    = "APTL SETUP WIZARD"
	ProjectURL = "github.com/aptl-dev/aptl"
)

// Layout constants for responsive terminal width
const (
	MinTerminalWidth = 72
	MaxContentWidth  = 120
)

// Neutral colors not in the shared ui palette
var (
	BorderColor    = ui.PrimaryColor
	HighlightColor = ui.SuccessColor
)

var (
	TitleStyle = lipgloss.NewStyle().
			Foreground(ui.PrimaryColor).
			Bold(true).
			Padding(1, 0)

	SubtitleStyle = lipgloss.NewStyle().
			Foreground(ui.MutedColor).
			Italic(true)

	SelectedItemStyle = lipgloss.NewStyle().
				Foreground(HighlightColor).
				Bold(true)

	SpinnerStyle = lipgloss.NewStyle().
			Foreground(ui.PrimaryColor)

	SectionStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(BorderColor).
			Padding(0, 2).
			MarginLeft(2)

	ErrorBoxStyle = lipgloss.NewStyle().
			Foreground(ui.ErrorColor).
			Bold(true).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ui.ErrorColor).
			Padding(1, 2)

	WarningBoxStyle = lipgloss.NewStyle().
			Foreground(ui.WarningColor).
			Bold(true).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ui.WarningColor).
			Padding(1, 2)

	SuccessBoxStyle = lipgloss.NewStyle().
			Foreground(ui.SuccessColor).
			Bold(true).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ui.SuccessColor).
			Padding(1, 2)
)

// RenderTitle renders a screen title.
func RenderTitle(text string) string {
	return TitleStyle.Render(text)
}

// RenderError renders an error box.
func RenderError(text string) string {
	return ErrorBoxStyle.Render(text)
}

func buildHeaderContent() string {
	left := lipgloss.NewStyle().
		Foreground(ui.TextColor).
		Bold(true).
		Render(AppName + " " + version.Version)
	right := lipgloss.NewStyle().
		Foreground(ui.MutedColor).
		Render(ProjectURL)
	return lipgloss.JoinHorizontal(lipgloss.Top, left, "  ", right)
}

// contentWidth clamps the terminal width to the supported range.
func contentWidth(terminalWidth int) int {
	if terminalWidth < MinTerminalWidth {
		return MinTerminalWidth
	}
	if terminalWidth > MaxContentWidth {
		return MaxContentWidth
	}
	return terminalWidth
}

// RenderApplicationContainer wraps a screen in the shared frame: header,
// content and a footer with the screen's key help. Every screen's View
// goes through it.
func RenderApplicationContainer(content, footerText string, terminalWidth, terminalHeight int) string {
	if terminalWidth == 0 {
		terminalWidth = MinTerminalWidth
	}
	inner := terminalWidth - 4

	header := lipgloss.NewStyle().
		BorderStyle(lipgloss.Border{Bottom: "─"}).
		BorderForeground(BorderColor).
		Width(inner).
		Padding(0, 1).
		Render(buildHeaderContent())

	footer := lipgloss.NewStyle().
		BorderStyle(lipgloss.Border{Top: "─"}).
		BorderForeground(BorderColor).
		Width(inner).
		Padding(0, 1).
		Foreground(ui.MutedColor).
		Render(footerText)

	body := lipgloss.NewStyle().Width(inner).Render(content)

	frame := lipgloss.NewStyle().
		Border(lipgloss.NormalBorder()).
		BorderForeground(BorderColor).
		Width(terminalWidth - 2)
	if terminalHeight > 2 {
		frame = frame.Height(terminalHeight - 2).AlignVertical(lipgloss.Top)
	}

	bordered := frame.Render(lipgloss.JoinVertical(lipgloss.Left, header, body, footer))
	if terminalHeight == 0 {
		return bordered
	}
	return lipgloss.Place(terminalWidth, terminalHeight, lipgloss.Left, lipgloss.Top, bordered)
}
