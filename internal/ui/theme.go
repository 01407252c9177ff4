package ui

import "github.com/charmbracelet/lipgloss"

// Theme colors
var (
	// Primary colors
	AccentColor     = lipgloss.Color("#ef233c")
	AccentDimColor  = lipgloss.Color("#d90429")
	BackgroundColor = lipgloss.Color("#2b2d42")
	ForegroundColor = lipgloss.Color("#edf2f4")
	MutedColor      = lipgloss.Color("#8d99ae")

	// Semantic colors
	ColorAccept  = lipgloss.Color("#2ecc71")
	ColorReject  = AccentColor
	ColorWarning = lipgloss.Color("#f39c12")
	ColorInfo    = lipgloss.Color("#3498db")
)

// Styles for TUI components
var (
	HeaderStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ForegroundColor).
			Background(AccentColor).
			Padding(0, 1)

	FooterStyle = lipgloss.NewStyle().
			Foreground(MutedColor).
			Padding(0, 1)

	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(AccentColor)

	ContentStyle = lipgloss.NewStyle().
			Foreground(ForegroundColor)

	MutedStyle = lipgloss.NewStyle().
			Foreground(MutedColor)

	// Row under the pane cursor
	CursorStyle = lipgloss.NewStyle().
			Foreground(BackgroundColor).
			Background(AccentColor).
			Bold(true)

	// Selected folder of a pane
	SelectedStyle = lipgloss.NewStyle().
			Foreground(ColorAccept).
			Bold(true)

	AcceptStyle = lipgloss.NewStyle().
			Foreground(ColorAccept).
			Bold(true)

	RejectStyle = lipgloss.NewStyle().
			Foreground(ColorReject).
			Bold(true)

	WarningStyle = lipgloss.NewStyle().
			Foreground(ColorWarning).
			Bold(true)

	InfoStyle = lipgloss.NewStyle().
			Foreground(ColorInfo)

	StatStyle = lipgloss.NewStyle().
			Foreground(AccentColor).
			Bold(true)

	// Pane borders; the focused pane gets the accent color
	PaneStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(MutedColor).
			Padding(0, 1)

	FocusedPaneStyle = PaneStyle.
				BorderForeground(AccentColor)

	PreviewStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(MutedColor).
			Padding(1, 2)

	PopupStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(AccentColor).
			Background(BackgroundColor).
			Padding(1, 3)
)

// FormatKeybinding formats a keybinding for display in footer
func FormatKeybinding(key, description string) string {
	keyStyle := lipgloss.NewStyle().
		Foreground(AccentColor).
		Bold(true)

	return keyStyle.Render(key) + " " + MutedStyle.Render(description)
}

// FormatHeader renders a full width header bar
func FormatHeader(title string, width int) string {
	return HeaderStyle.Width(width).Render(title)
}

// FormatFooter joins keybindings into the footer bar
func FormatFooter(width int, keybindings ...string) string {
	footer := ""
	for i, kb := range keybindings {
		if i > 0 {
			footer += "  "
		}
		footer += kb
	}
	return FooterStyle.Width(width).Render(footer)
}

// Status markers
var (
	OKMarker   = lipgloss.NewStyle().Foreground(ColorAccept).SetString("[OK]")
	InfoMarker = lipgloss.NewStyle().Foreground(ColorInfo).SetString("[INFO]")
	WarnMarker = lipgloss.NewStyle().Foreground(ColorWarning).SetString("[WARN]")
	FailMarker = lipgloss.NewStyle().Foreground(ColorReject).SetString("[FAIL]")
)

// FormatStatusOK returns an [OK] marker with message
func FormatStatusOK(message string) string {
	return OKMarker.String() + " " + message
}

// FormatStatusInfo returns an [INFO] marker with message
func FormatStatusInfo(message string) string {
	return InfoMarker.String() + " " + message
}

// FormatStatusWarn returns a [WARN] marker with message
func FormatStatusWarn(message string) string {
	return WarnMarker.String() + " " + message
}

// FormatStatusFail returns a [FAIL] marker with message
func FormatStatusFail(message string) string {
	return FailMarker.String() + " " + message
}
