package tui

import "github.com/charmbracelet/lipgloss"

// Color palette
var (
	PrimaryColor   = lipgloss.Color("#7D56F4") // Purple
	ConnectedColor = lipgloss.Color("#43BF6D") // Green
	WarningColor   = lipgloss.Color("#FFA500") // Orange
	ErrorColor     = lipgloss.Color("#FF0000") // Red
	TextColor      = lipgloss.Color("#FFFFFF") // White
	SubtleColor    = lipgloss.Color("#626262") // Gray
)

// Common styles
var (
	TitleStyle = lipgloss.NewStyle().
			Foreground(PrimaryColor).
			Bold(true).
			Padding(1, 0)

	SubtitleStyle = lipgloss.NewStyle().
			Foreground(SubtleColor).
			Italic(true)

	HelpStyle = lipgloss.NewStyle().
			Foreground(SubtleColor).
			Padding(1, 0)

	StatusBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(PrimaryColor).
			Padding(1, 2).
			MarginTop(1).
			MarginBottom(1)

	DegradedBannerStyle = lipgloss.NewStyle().
				Foreground(ErrorColor).
				Bold(true).
				Border(lipgloss.RoundedBorder()).
				BorderForeground(ErrorColor).
				Padding(0, 2)

	LabelStyle = lipgloss.NewStyle().
			Foreground(SubtleColor)

	SpinnerStyle = lipgloss.NewStyle().
			Foreground(PrimaryColor)

	HistoryEntryStyle = lipgloss.NewStyle().
				PaddingLeft(2).
				Foreground(TextColor)
)

// ModeStyle returns the style for rendering a mode name.
func ModeStyle(mode string) lipgloss.Style {
	style := lipgloss.NewStyle().Bold(true)
	switch mode {
	case "client-connected":
		return style.Foreground(ConnectedColor)
	case "ap-active":
		return style.Foreground(PrimaryColor)
	case "client-disconnected", "ap-starting", "reconnecting":
		return style.Foreground(WarningColor)
	default:
		return style.Foreground(TextColor)
	}
}

// ModeDescription returns a one-line explanation of a mode name.
func ModeDescription(mode string) string {
	switch mode {
	case "client-connected":
		return "Connected to a configured network"
	case "client-disconnected":
		return "Link down, waiting out the disconnect threshold"
	case "ap-starting":
		return "Bringing up the access point"
	case "ap-active":
		return "Hosting the configuration access point"
	case "reconnecting":
		return "Tearing down the access point and reassociating"
	default:
		return ""
	}
}
