package ui

import (
	"fmt"
	"path"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	"github.com/charmbracelet/lipgloss"

	"github.com/Nomadcxx/swipesort/internal/media"
	"github.com/Nomadcxx/swipesort/internal/pane"
	"github.com/Nomadcxx/swipesort/internal/triage"
)

const minPaneWidth = 24

// View renders the TUI
func (m Model) View() string {
	if !m.ready {
		return "Initializing..."
	}

	paneWidth := m.width / 4
	if paneWidth < minPaneWidth {
		paneWidth = minPaneWidth
	}
	previewWidth := m.width - 2*paneWidth
	if previewWidth < minPaneWidth {
		previewWidth = minPaneWidth
	}

	footer := FooterStyle.Width(m.width).Render(m.help.View(m.keys))
	bodyHeight := m.height - 2 - lipgloss.Height(footer)
	if bodyHeight < 6 {
		bodyHeight = 6
	}

	body := lipgloss.JoinHorizontal(
		lipgloss.Top,
		m.renderPane(pane.Navigation, "FOLDERS", paneWidth, bodyHeight),
		m.renderPreview(previewWidth, bodyHeight),
		m.renderPane(pane.Target, "MOVE TO", paneWidth, bodyHeight),
	)

	view := lipgloss.JoinVertical(
		lipgloss.Left,
		FormatHeader(m.title(), m.width),
		body,
		m.renderStatus(),
		footer,
	)

	if m.adding {
		return m.renderWithInputPopup()
	}
	return view
}

func (m Model) title() string {
	title := "SWIPESORT"
	if m.sess.HasDirectory() {
		ctrl := m.sess.Controller
		pos := ctrl.Cursor() + 1
		if pos > ctrl.Len() {
			pos = ctrl.Len()
		}
		title += fmt.Sprintf("  %s  %d/%d", m.sess.Dir, pos, ctrl.Len())
	}
	return title
}

// renderPane draws one folder tree. The rows sit in a viewport scrolled so
// the cursor row stays visible.
func (m Model) renderPane(k pane.Kind, title string, width, height int) string {
	style := PaneStyle
	if m.focus == k {
		style = FocusedPaneStyle
	}
	inner := width - 4
	lines := height - 4

	rows := m.sess.View.Rows(k)
	cursor := m.cursors[k]

	content := make([]string, 0, len(rows))
	for i, row := range rows {
		content = append(content, m.renderRow(row, i == cursor && m.focus == k, inner))
	}
	if len(rows) == 0 {
		content = append(content, MutedStyle.Render("no folders"))
	}

	vp := viewport.New(inner, lines)
	vp.SetContent(strings.Join(content, "\n"))
	if cursor >= lines {
		vp.SetYOffset(cursor - lines/2)
	}

	return style.
		Width(width - 2).
		Height(height - 2).
		Render(TitleStyle.Render(title) + "\n\n" + vp.View())
}

func (m Model) renderRow(row pane.Row, atCursor bool, width int) string {
	glyph := row.Glyph
	if glyph == "" {
		glyph = " "
	}
	name := row.Name
	if name == "" {
		name = "(empty)"
	}

	line := truncate(strings.Repeat("  ", row.Depth)+glyph+" "+name, width)
	switch {
	case atCursor:
		return CursorStyle.Render(line)
	case row.Selected:
		return SelectedStyle.Render(line)
	default:
		return ContentStyle.Render(line)
	}
}

func (m Model) renderPreview(width, height int) string {
	inner := width - 6
	var sb strings.Builder

	switch {
	case m.loading:
		sb.WriteString(MutedStyle.Render("Loading..."))

	case !m.sess.HasDirectory():
		sb.WriteString(FormatASCIIHeaderWithSubtext("Select a folder and press Enter to start"))

	default:
		sb.WriteString(m.renderCard(inner))
	}

	sb.WriteString("\n\n")
	if target, ok := m.sess.TargetFolder(); ok {
		sb.WriteString(MutedStyle.Render("Target: ") + SelectedStyle.Render(target))
	} else {
		sb.WriteString(WarningStyle.Render("No target folder selected"))
	}

	return PreviewStyle.
		Width(width - 2).
		Height(height - 2).
		Render(sb.String())
}

// renderCard draws the current item, the swipe banner while a transition
// runs, or the done screen
func (m Model) renderCard(width int) string {
	ctrl := m.sess.Controller
	st := ctrl.State()

	switch st.Phase {
	case triage.PhaseAnimating:
		if st.Direction == triage.DirectionAccept {
			return lipgloss.NewStyle().Width(width).Align(lipgloss.Right).Render(AcceptStyle.Render("ACCEPT ▶▶"))
		}
		return lipgloss.NewStyle().Width(width).Align(lipgloss.Left).Render(RejectStyle.Render("◀◀ REJECT"))

	case triage.PhaseExhausted:
		if ctrl.Len() == 0 {
			return TitleStyle.Render("Nothing to sort") + "\n\n" + MutedStyle.Render("No files in "+m.sess.Dir)
		}
		return TitleStyle.Render("Done") + "\n\n" + MutedStyle.Render(m.summary())
	}

	item := st.Item
	var sb strings.Builder
	sb.WriteString(kindBadge(item.Kind) + "  " + MutedStyle.Render(fmt.Sprintf("%d of %d", ctrl.Cursor()+1, ctrl.Len())))
	sb.WriteString("\n\n")
	sb.WriteString(TitleStyle.Render(truncate(path.Base(item.Path), width)))
	sb.WriteString("\n")
	sb.WriteString(MutedStyle.Render(truncate(item.Path, width)))
	sb.WriteString("\n\n")
	sb.WriteString(InfoStyle.Render(truncate(m.backend.MediaURL(item.Path), width)))

	if st.Phase == triage.PhaseMoving {
		sb.WriteString("\n\n" + WarningStyle.Render("Moving..."))
	}
	return sb.String()
}

func kindBadge(k media.Kind) string {
	style := lipgloss.NewStyle().Bold(true).Padding(0, 1).Foreground(BackgroundColor)
	switch k {
	case media.KindImage:
		style = style.Background(ColorInfo)
	case media.KindVideo:
		style = style.Background(AccentColor)
	default:
		style = style.Background(MutedColor)
	}
	return style.Render(k.String())
}

func (m Model) renderStatus() string {
	text := m.status.Text
	switch m.status.Kind {
	case StatusOK:
		text = FormatStatusOK(text)
	case StatusWarn:
		text = FormatStatusWarn(text)
	case StatusFail:
		text = FormatStatusFail(text)
	default:
		text = FormatStatusInfo(text)
	}
	return lipgloss.NewStyle().Width(m.width).Padding(0, 1).Render(text)
}

// renderWithInputPopup overlays the new folder prompt on the screen
func (m Model) renderWithInputPopup() string {
	parent := "root"
	rows := m.sess.View.Rows(pane.Target)
	if c := m.cursors[pane.Target]; c >= 0 && c < len(rows) {
		parent = rows[c].FullPath
	}

	var popup strings.Builder
	popup.WriteString(TitleStyle.Render("NEW FOLDER") + "\n\n")
	popup.WriteString(MutedStyle.Render("Inside "+parent+" (start with / for the root)") + "\n\n")
	popup.WriteString(m.input.View())

	box := PopupStyle.Render(popup.String())
	help := MutedStyle.Render("Enter to create, Esc to cancel")
	withHelp := box + "\n" + lipgloss.NewStyle().Align(lipgloss.Center).Width(lipgloss.Width(box)).Render(help)

	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, withHelp)
}

func truncate(s string, width int) string {
	if width <= 0 {
		return ""
	}
	r := []rune(s)
	if len(r) <= width {
		return s
	}
	if width == 1 {
		return "…"
	}
	return string(r[:width-1]) + "…"
}
