package ui

import "github.com/charmbracelet/lipgloss"

// Banner shown in the preview pane before a directory is picked
const swipesortASCII = `                _                          __
  ______      _(_)___  ___  _________  _____/ /_
 / ___/ | /| / / / __ \/ _ \/ ___/ __ \/ ___/ __/
(__  )| |/ |/ / / /_/ /  __(__  ) /_/ / /  / /_
/____/ |__/|__/_/ .___/\___/____/\____/_/   \__/
               /_/                               `

// FormatASCIIHeader renders the banner in the accent color
func FormatASCIIHeader() string {
	return lipgloss.NewStyle().
		Foreground(AccentColor).
		Bold(true).
		Render(swipesortASCII)
}

// FormatASCIIHeaderWithSubtext renders the banner with a muted subtitle
func FormatASCIIHeaderWithSubtext(subtext string) string {
	return FormatASCIIHeader() + "\n\n" + MutedStyle.Render(subtext)
}
