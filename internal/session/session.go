package session

import (
	"context"
	"fmt"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/Nomadcxx/swipesort/internal/logging"
	"github.com/Nomadcxx/swipesort/internal/media"
	"github.com/Nomadcxx/swipesort/internal/pane"
	"github.com/Nomadcxx/swipesort/internal/pathtree"
	"github.com/Nomadcxx/swipesort/internal/triage"
)

// Backend is what a session needs from the folder/file/move service
type Backend interface {
	Folders(ctx context.Context) ([]string, error)
	Files(ctx context.Context, dir string) ([]string, error)
	triage.Mover
}

// Options carry the controller tuning and logger into each load
type Options struct {
	Triage triage.Options
	Logger *logging.Logger
}

// generation numbers loads across the whole process so stale results
// from an earlier session can be recognised and dropped
var generation atomic.Uint64

// Session is all state for one active directory. It is built in one go
// and thrown away on navigation; nothing in it is patched across loads.
type Session struct {
	Dir        string
	Tree       *pathtree.Tree
	View       *pane.View
	Controller *triage.Controller

	backend    Backend
	opts       Options
	generation uint64
	hasFiles   bool
}

// Load fetches folders and, when dir is set, the files of dir, then
// builds the tree, both panes and the triage controller.
func Load(ctx context.Context, backend Backend, dir string, opts Options) (*Session, error) {
	log := opts.Logger
	if log == nil {
		log = logging.Nop()
	}

	var folders, files []string
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		var err error
		folders, err = backend.Folders(gctx)
		if err != nil {
			return fmt.Errorf("failed to load folders: %w", err)
		}
		return nil
	})

	if dir != "" {
		g.Go(func() error {
			var err error
			files, err = backend.Files(gctx, dir)
			if err != nil {
				return fmt.Errorf("failed to load files for %s: %w", dir, err)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	tree := pathtree.Build(folders)
	if n := tree.Degenerate(); n > 0 {
		log.Warn().Int("nodes", n).Msg("folder list contains empty path segments")
	}

	s := &Session{
		Dir:        dir,
		Tree:       tree,
		View:       pane.NewView(tree, dir),
		backend:    backend,
		opts:       opts,
		generation: generation.Add(1),
		hasFiles:   dir != "",
	}
	s.Controller = triage.New(media.NewQueue(files), s, opts.Triage)

	log.Info().
		Str("dir", dir).
		Int("folders", len(folders)).
		Int("files", len(files)).
		Uint64("generation", s.generation).
		Msg("session loaded")

	return s, nil
}

// Navigate loads a brand new session for dir. The receiver is left as is;
// callers replace it and let in-flight work from it be ignored.
func (s *Session) Navigate(ctx context.Context, dir string) (*Session, error) {
	return Load(ctx, s.backend, dir, s.opts)
}

// Reload rebuilds the session for the same directory
func (s *Session) Reload(ctx context.Context) (*Session, error) {
	return s.Navigate(ctx, s.Dir)
}

// RefreshFolders rebuilds the tree and both panes from a new folder list
// while the queue and controller carry on. Expansion and selections are
// kept for folders that still exist.
func (s *Session) RefreshFolders(folders []string) {
	tree := pathtree.Build(folders)
	view := pane.NewView(tree, s.Dir)
	carry(tree, view.Nav, s.View.Nav)
	carry(tree, view.Target, s.View.Target)

	s.Tree = tree
	s.View = view
}

func carry(tree *pathtree.Tree, dst, src *pane.State) {
	for path, open := range src.Expanded {
		if _, ok := tree.Find(path); ok && open {
			dst.Expand(path)
		}
	}
	if _, ok := tree.Find(src.Selected); ok && src.HasSelection() {
		dst.Selected = src.Selected
	}
}

// TargetFolder reports the target pane selection of the current view
func (s *Session) TargetFolder() (string, bool) {
	return s.View.TargetFolder()
}

// Generation identifies this load
func (s *Session) Generation() uint64 {
	return s.generation
}

// HasDirectory reports whether a working directory is active. Without one
// only the folder panes are shown.
func (s *Session) HasDirectory() bool {
	return s.hasFiles
}

// Backend returns the backend the session was loaded from
func (s *Session) Backend() Backend {
	return s.backend
}

// Select routes a click in pane k. Navigation selects come back with
// Navigate set and must be followed by Navigate on the session.
func (s *Session) Select(k pane.Kind, fullPath string) (pane.Selection, error) {
	return s.View.Select(k, fullPath)
}
