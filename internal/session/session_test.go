package session

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Nomadcxx/swipesort/internal/pane"
	"github.com/Nomadcxx/swipesort/internal/triage"
)

type fakeBackend struct {
	mu       sync.Mutex
	folders  []string
	files    map[string][]string
	moves    []triage.MoveRequest
	filesErr error
}

func (f *fakeBackend) Folders(ctx context.Context) ([]string, error) {
	return f.folders, nil
}

func (f *fakeBackend) Files(ctx context.Context, dir string) ([]string, error) {
	if f.filesErr != nil {
		return nil, f.filesErr
	}
	return f.files[dir], nil
}

func (f *fakeBackend) Move(ctx context.Context, req triage.MoveRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.moves = append(f.moves, req)
	return nil
}

func newBackend() *fakeBackend {
	return &fakeBackend{
		folders: []string{"inbox", "movies/keep", "movies/trash", "inbox/new"},
		files: map[string][]string{
			"inbox":       {"inbox/a.jpg", "inbox/b.mp4"},
			"movies/keep": {"movies/keep/x.mkv"},
		},
	}
}

func TestLoadWithoutDirectory(t *testing.T) {
	s, err := Load(context.Background(), newBackend(), "", Options{})
	require.NoError(t, err)

	assert.False(t, s.HasDirectory())
	assert.Equal(t, triage.PhaseExhausted, s.Controller.State().Phase)
	assert.False(t, s.View.Nav.HasSelection())
	assert.Equal(t, 5, s.Tree.Len())
}

func TestLoadBuildsEverything(t *testing.T) {
	s, err := Load(context.Background(), newBackend(), "inbox", Options{Triage: triage.DefaultOptions()})
	require.NoError(t, err)

	assert.True(t, s.HasDirectory())
	assert.Equal(t, "inbox", s.View.Nav.Selected)
	assert.True(t, s.View.Nav.IsExpanded("inbox"))
	assert.True(t, s.View.Nav.IsExpanded("inbox/new"))

	st := s.Controller.State()
	assert.Equal(t, triage.PhaseDisplaying, st.Phase)
	assert.Equal(t, "inbox/a.jpg", st.Item.Path)
	assert.Equal(t, 2, s.Controller.Len())
}

func TestAcceptUsesTargetPane(t *testing.T) {
	backend := newBackend()
	s, err := Load(context.Background(), backend, "inbox", Options{})
	require.NoError(t, err)

	_, err = s.Controller.Accept(context.Background(), backend)
	assert.ErrorIs(t, err, triage.ErrNoTarget)

	_, err = s.Select(pane.Target, "movies/keep")
	require.NoError(t, err)

	_, err = s.Controller.Accept(context.Background(), backend)
	require.NoError(t, err)
	require.Len(t, backend.moves, 1)
	assert.Equal(t, triage.MoveRequest{FromPath: "inbox/a.jpg", TargetFolder: "movies/keep"}, backend.moves[0])
}

func TestNavigateIsAFullReset(t *testing.T) {
	backend := newBackend()
	s, err := Load(context.Background(), backend, "inbox", Options{})
	require.NoError(t, err)

	s.Select(pane.Target, "movies/trash")
	s.View.Toggle(pane.Navigation, "movies")
	s.Controller.Reject()

	sel, err := s.Select(pane.Navigation, "movies/keep")
	require.NoError(t, err)
	require.True(t, sel.Navigate)

	next, err := s.Navigate(context.Background(), sel.Path)
	require.NoError(t, err)

	assert.NotSame(t, s, next)
	assert.Greater(t, next.Generation(), s.Generation())
	assert.Equal(t, "movies/keep", next.Dir)
	assert.Equal(t, 0, next.Controller.Cursor())
	assert.False(t, next.View.Target.HasSelection(), "target selection must not survive navigation")
	assert.Equal(t, "movies/keep", next.View.Nav.Selected)
	assert.Equal(t, "movies/keep/x.mkv", next.Controller.State().Item.Path)

	// The old session is untouched
	assert.Equal(t, 1, s.Controller.Cursor())
}

func TestLoadPropagatesErrors(t *testing.T) {
	backend := newBackend()
	backend.filesErr = errors.New("connection refused")

	_, err := Load(context.Background(), backend, "inbox", Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load files for inbox")
}

func TestRefreshFoldersKeepsQueueAndSelections(t *testing.T) {
	backend := newBackend()
	s, err := Load(context.Background(), backend, "inbox", Options{})
	require.NoError(t, err)

	_, err = s.Select(pane.Target, "movies/keep")
	require.NoError(t, err)
	_, err = s.View.Toggle(pane.Target, "movies")
	require.NoError(t, err)
	_, err = s.Controller.Reject()
	require.NoError(t, err)
	require.NoError(t, s.Controller.Elapse())

	gen := s.Generation()
	s.RefreshFolders(append(backend.folders, "movies/keep/2024"))

	assert.Equal(t, gen, s.Generation())
	assert.Equal(t, 6, s.Tree.Len())
	assert.Equal(t, "movies/keep", s.View.Target.Selected)
	assert.True(t, s.View.Target.IsExpanded("movies"))
	assert.Equal(t, "inbox/b.mp4", s.Controller.State().Item.Path)

	// The controller reads the refreshed target pane
	req, err := s.Controller.BeginAccept()
	require.NoError(t, err)
	assert.Equal(t, "movies/keep", req.TargetFolder)
}

func TestRefreshFoldersDropsVanishedSelection(t *testing.T) {
	s, err := Load(context.Background(), newBackend(), "inbox", Options{})
	require.NoError(t, err)

	_, err = s.Select(pane.Target, "movies/trash")
	require.NoError(t, err)

	s.RefreshFolders([]string{"inbox", "movies/keep"})
	_, ok := s.TargetFolder()
	assert.False(t, ok)
}
