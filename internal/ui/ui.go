package ui

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/Nomadcxx/swipesort/internal/client"
	"github.com/Nomadcxx/swipesort/internal/logging"
	"github.com/Nomadcxx/swipesort/internal/pane"
	"github.com/Nomadcxx/swipesort/internal/session"
	"github.com/Nomadcxx/swipesort/internal/triage"
)

// Backend is everything the triage screen calls on the server
type Backend interface {
	session.Backend
	AddFolder(ctx context.Context, req client.AddFolderRequest) error
	MediaURL(path string) string
}

// Options configure a Model
type Options struct {
	Logger *logging.Logger
	// Open hands a media URL to an external viewer. Nil uses OpenURL.
	Open func(url string) error
}

// StatusKind ranks the status line message
type StatusKind int

const (
	StatusInfo StatusKind = iota
	StatusOK
	StatusWarn
	StatusFail
)

// Status is the one-line message under the panes
type Status struct {
	Kind StatusKind
	Text string
}

// Custom messages for asynchronous results. Everything tied to a session
// carries its generation so results that outlive a navigation are dropped.
type sessionLoadedMsg struct {
	seq  int
	sess *session.Session
	err  error
}

type moveSettledMsg struct {
	gen uint64
	req triage.MoveRequest
	err error
}

type transitionDoneMsg struct {
	gen uint64
}

type folderAddedMsg struct {
	gen     uint64
	path    string
	folders []string
	err     error
}

type openedMsg struct {
	err error
}

// Model is the triage screen: navigation pane, preview, target pane
type Model struct {
	ctx     context.Context
	cancel  context.CancelFunc
	backend Backend
	sess    *session.Session
	open    func(url string) error
	log     *logging.Logger

	keys   KeyMap
	help   help.Model
	input  textinput.Model
	adding bool

	focus   pane.Kind
	cursors [2]int
	loadSeq int
	loading bool
	status  Status

	width  int
	height int
	ready  bool
}

// NewModel creates the triage screen for an already loaded session
func NewModel(sess *session.Session, backend Backend, opts Options) Model {
	log := opts.Logger
	if log == nil {
		log = logging.Nop()
	}
	open := opts.Open
	if open == nil {
		open = OpenURL
	}

	ti := textinput.New()
	ti.Placeholder = "new folder name"
	ti.CharLimit = 255
	ti.Width = 40

	ctx, cancel := context.WithCancel(context.Background())

	m := Model{
		ctx:     ctx,
		cancel:  cancel,
		backend: backend,
		open:    open,
		log:     log.With("ui"),
		keys:    DefaultKeyMap(),
		help:    help.New(),
		input:   ti,
	}
	m.setSession(sess)
	return m
}

// Session returns the active session
func (m Model) Session() *session.Session {
	return m.sess
}

// Status returns the current status line
func (m Model) Status() Status {
	return m.status
}

// Focus returns the pane that receives cursor keys
func (m Model) Focus() pane.Kind {
	return m.focus
}

// Cursor returns the cursor row of pane k
func (m Model) Cursor(k pane.Kind) int {
	return m.cursors[k]
}

// Loading reports whether a navigation is in flight
func (m Model) Loading() bool {
	return m.loading
}

// Init initializes the TUI
func (m Model) Init() tea.Cmd {
	return nil
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.ready = true
		return m, nil

	case sessionLoadedMsg:
		if msg.seq != m.loadSeq {
			// Superseded by a later navigation
			return m, nil
		}
		m.loading = false
		if msg.err != nil {
			m.log.Error().Err(msg.err).Msg("failed to load folder")
			m.setStatus(StatusFail, fmt.Sprintf("Load failed: %v", msg.err))
			return m, nil
		}
		m.setSession(msg.sess)
		return m, nil

	case moveSettledMsg:
		return m.settleMove(msg)

	case transitionDoneMsg:
		if msg.gen != m.sess.Generation() {
			return m, nil
		}
		if err := m.sess.Controller.Elapse(); err != nil {
			m.log.Debug().Err(err).Msg("transition already finished")
			return m, nil
		}
		if m.sess.Controller.State().Phase == triage.PhaseExhausted {
			m.setStatus(StatusOK, m.summary())
		}
		return m, nil

	case folderAddedMsg:
		if msg.err != nil {
			m.log.Error().Err(msg.err).Str("folder", msg.path).Msg("failed to create folder")
			m.setStatus(StatusFail, fmt.Sprintf("Could not create %s: %v", msg.path, msg.err))
			return m, nil
		}
		if msg.gen == m.sess.Generation() && msg.folders != nil {
			m.sess.RefreshFolders(msg.folders)
			m.clampCursors()
		}
		m.setStatus(StatusOK, "Created "+msg.path)
		return m, nil

	case openedMsg:
		if msg.err != nil {
			m.setStatus(StatusWarn, fmt.Sprintf("Could not open viewer: %v", msg.err))
		}
		return m, nil

	case tea.KeyMsg:
		if m.adding {
			return m.updateInput(msg)
		}
		return m.handleKey(msg)
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.cancel()
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll

	case key.Matches(msg, m.keys.Focus):
		if m.focus == pane.Navigation {
			m.focus = pane.Target
		} else {
			m.focus = pane.Navigation
		}

	case key.Matches(msg, m.keys.Up):
		m.moveCursor(-1)

	case key.Matches(msg, m.keys.Down):
		m.moveCursor(1)

	case key.Matches(msg, m.keys.Toggle):
		m.toggle(func(bool) bool { return true })

	case key.Matches(msg, m.keys.Expand):
		m.toggle(func(open bool) bool { return !open })

	case key.Matches(msg, m.keys.Collapse):
		m.toggle(func(open bool) bool { return open })

	case key.Matches(msg, m.keys.Select):
		return m.selectRow()

	case key.Matches(msg, m.keys.Accept):
		return m.accept()

	case key.Matches(msg, m.keys.Reject):
		return m.reject()

	case key.Matches(msg, m.keys.Open):
		return m.openCurrent()

	case key.Matches(msg, m.keys.NewFolder):
		m.adding = true
		m.input.SetValue("")
		m.input.Focus()
		return m, textinput.Blink

	case key.Matches(msg, m.keys.Reload):
		return m.navigate(m.sess.Dir)
	}

	return m, nil
}

func (m Model) updateInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.adding = false
		m.input.Blur()
		return m, nil

	case "enter":
		name := strings.TrimSpace(m.input.Value())
		if strings.Trim(name, "/") == "" {
			return m, nil
		}
		m.adding = false
		m.input.Blur()
		return m, m.addFolderCmd(name)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// setSession swaps in a freshly loaded session. Pane cursors start on the
// active directory so it is scrolled into view.
func (m *Model) setSession(s *session.Session) {
	m.sess = s
	m.cursors = [2]int{}
	if anchor := pane.Anchor(s.View.Rows(pane.Navigation)); anchor >= 0 {
		m.cursors[pane.Navigation] = anchor
	}

	switch {
	case !s.HasDirectory():
		m.setStatus(StatusInfo, "Pick a folder to triage")
	case s.Controller.Len() == 0:
		m.setStatus(StatusInfo, fmt.Sprintf("No files in %s", s.Dir))
	default:
		m.setStatus(StatusInfo, fmt.Sprintf("%d files in %s", s.Controller.Len(), s.Dir))
	}
}

func (m *Model) setStatus(kind StatusKind, text string) {
	m.status = Status{Kind: kind, Text: text}
}

func (m *Model) moveCursor(delta int) {
	rows := m.sess.View.Rows(m.focus)
	c := m.cursors[m.focus] + delta
	if c < 0 {
		c = 0
	}
	if c > len(rows)-1 {
		c = len(rows) - 1
	}
	if c < 0 {
		c = 0
	}
	m.cursors[m.focus] = c
}

func (m *Model) clampCursors() {
	for _, k := range []pane.Kind{pane.Navigation, pane.Target} {
		n := len(m.sess.View.Rows(k))
		if m.cursors[k] >= n {
			m.cursors[k] = n - 1
		}
		if m.cursors[k] < 0 {
			m.cursors[k] = 0
		}
	}
}

// cursorRow returns the row under the cursor of the focused pane
func (m Model) cursorRow() (pane.Row, bool) {
	rows := m.sess.View.Rows(m.focus)
	c := m.cursors[m.focus]
	if c < 0 || c >= len(rows) {
		return pane.Row{}, false
	}
	return rows[c], true
}

// toggle flips the folder under the cursor when want(open) is true
func (m *Model) toggle(want func(open bool) bool) {
	row, ok := m.cursorRow()
	if !ok || row.Glyph == "" {
		return
	}
	if !want(m.sess.View.State(m.focus).IsExpanded(row.FullPath)) {
		return
	}
	if _, err := m.sess.View.Toggle(m.focus, row.FullPath); err != nil {
		m.log.Warn().Err(err).Msg("toggle failed")
	}
	m.clampCursors()
}

func (m Model) selectRow() (tea.Model, tea.Cmd) {
	row, ok := m.cursorRow()
	if !ok {
		return m, nil
	}

	sel, err := m.sess.Select(m.focus, row.FullPath)
	if err != nil {
		m.setStatus(StatusFail, err.Error())
		return m, nil
	}
	if sel.Navigate {
		return m.navigate(sel.Path)
	}

	m.log.Debug().Str("target", sel.Path).Msg("target selected")
	m.setStatus(StatusInfo, "Target: "+sel.Path)
	return m, nil
}

// navigate loads a new session for dir in the background. Only the most
// recent navigation is applied.
func (m Model) navigate(dir string) (tea.Model, tea.Cmd) {
	m.loadSeq++
	m.loading = true
	label := dir
	if label == "" {
		label = "folders"
	}
	m.setStatus(StatusInfo, "Loading "+label+"...")

	seq, sess, ctx := m.loadSeq, m.sess, m.ctx
	return m, func() tea.Msg {
		next, err := sess.Navigate(ctx, dir)
		return sessionLoadedMsg{seq: seq, sess: next, err: err}
	}
}

func (m Model) accept() (tea.Model, tea.Cmd) {
	if m.loading {
		return m, nil
	}

	req, err := m.sess.Controller.BeginAccept()
	if err != nil {
		m.decisionRefused(err)
		return m, nil
	}

	m.setStatus(StatusInfo, fmt.Sprintf("Moving %s to %s...", path.Base(req.FromPath), req.TargetFolder))

	gen, backend, ctx := m.sess.Generation(), m.backend, m.ctx
	return m, func() tea.Msg {
		return moveSettledMsg{gen: gen, req: req, err: backend.Move(ctx, req)}
	}
}

func (m Model) settleMove(msg moveSettledMsg) (tea.Model, tea.Cmd) {
	if msg.gen != m.sess.Generation() {
		m.log.Debug().Str("from", msg.req.FromPath).Msg("dropping move result from an earlier folder")
		return m, nil
	}

	delay, err := m.sess.Controller.SettleMove(msg.err)
	name := path.Base(msg.req.FromPath)

	var moveErr *triage.MoveError
	switch {
	case errors.As(err, &moveErr):
		m.log.Warn().Err(moveErr.Err).Str("from", msg.req.FromPath).Str("to", msg.req.TargetFolder).Msg("move failed")
		m.setStatus(StatusFail, fmt.Sprintf("Move of %s failed: %v", name, moveErr.Err))
		return m, nil
	case err != nil:
		m.log.Warn().Err(err).Msg("unexpected move result")
		return m, nil
	case msg.err != nil:
		m.log.Warn().Err(msg.err).Str("from", msg.req.FromPath).Msg("move failed, advancing anyway")
		m.setStatus(StatusWarn, fmt.Sprintf("%s may not have moved: %v", name, msg.err))
	default:
		m.log.Info().Str("from", msg.req.FromPath).Str("to", msg.req.TargetFolder).Msg("accepted")
		m.setStatus(StatusOK, fmt.Sprintf("Moved %s to %s", name, msg.req.TargetFolder))
	}

	return m, transition(msg.gen, delay)
}

func (m Model) reject() (tea.Model, tea.Cmd) {
	if m.loading {
		return m, nil
	}

	item := m.sess.Controller.State().Item
	delay, err := m.sess.Controller.Reject()
	if err != nil {
		m.decisionRefused(err)
		return m, nil
	}

	m.log.Info().Str("path", item.Path).Msg("rejected")
	m.setStatus(StatusInfo, "Skipped "+path.Base(item.Path))
	return m, transition(m.sess.Generation(), delay)
}

// transition schedules the end of the swipe animation
func transition(gen uint64, delay time.Duration) tea.Cmd {
	return tea.Tick(delay, func(time.Time) tea.Msg {
		return transitionDoneMsg{gen: gen}
	})
}

func (m *Model) decisionRefused(err error) {
	switch {
	case errors.Is(err, triage.ErrNoTarget):
		m.setStatus(StatusWarn, "Please select a target folder first")
	case errors.Is(err, triage.ErrExhausted):
		if m.sess.HasDirectory() {
			m.setStatus(StatusInfo, m.summary())
		} else {
			m.setStatus(StatusInfo, "Pick a folder to triage")
		}
	case errors.Is(err, triage.ErrBusy):
		m.log.Debug().Msg("decision ignored while busy")
	default:
		m.setStatus(StatusFail, err.Error())
	}
}

func (m Model) openCurrent() (tea.Model, tea.Cmd) {
	st := m.sess.Controller.State()
	if st.Phase != triage.PhaseDisplaying {
		return m, nil
	}

	url, open := m.backend.MediaURL(st.Item.Path), m.open
	return m, func() tea.Msg {
		return openedMsg{err: open(url)}
	}
}

// addFolderCmd creates name under the target pane cursor row, then
// fetches the new folder list. A leading slash creates it at the root.
func (m Model) addFolderCmd(name string) tea.Cmd {
	var parent string
	rows := m.sess.View.Rows(pane.Target)
	if strings.HasPrefix(name, "/") {
		name = strings.TrimLeft(name, "/")
	} else if c := m.cursors[pane.Target]; c >= 0 && c < len(rows) {
		parent = rows[c].FullPath
	}

	full := name
	if parent != "" {
		full = parent + "/" + name
	}

	gen, backend, ctx := m.sess.Generation(), m.backend, m.ctx
	return func() tea.Msg {
		if err := backend.AddFolder(ctx, client.AddFolderRequest{Name: name, Target: parent}); err != nil {
			return folderAddedMsg{gen: gen, path: full, err: err}
		}
		folders, err := backend.Folders(ctx)
		if err != nil {
			// The folder exists; the panes just cannot show it yet
			return folderAddedMsg{gen: gen, path: full}
		}
		return folderAddedMsg{gen: gen, path: full, folders: folders}
	}
}

func (m Model) summary() string {
	s := m.sess.Controller.Stats()
	return fmt.Sprintf("Done: %d accepted, %d rejected, %d failed moves", s.Accepted, s.Rejected, s.MoveFailed)
}
