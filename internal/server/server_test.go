package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Nomadcxx/swipesort/internal/mover"
)

type fixture struct {
	root   string
	server *Server
	http   *httptest.Server
}

func setup(t *testing.T) *fixture {
	t.Helper()
	root := t.TempDir()

	for _, dir := range []string{"inbox", "movies/keep", "movies/trash", ".hidden"} {
		require.NoError(t, os.MkdirAll(filepath.Join(root, filepath.FromSlash(dir)), 0755))
	}
	require.NoError(t, os.WriteFile(filepath.Join(root, "inbox", "b.mp4"), []byte("video"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "inbox", "a.jpg"), []byte("image"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "inbox", ".DS_Store"), []byte("x"), 0644))

	m, err := mover.New(mover.Config{Root: root, LogPath: filepath.Join(t.TempDir(), "ops.log")})
	require.NoError(t, err)

	s := New(Config{Mover: m})
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)

	return &fixture{root: root, server: s, http: ts}
}

func (f *fixture) getJSON(t *testing.T, path string, out interface{}) int {
	t.Helper()
	resp, err := http.Get(f.http.URL + path)
	require.NoError(t, err)
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusOK {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func (f *fixture) post(t *testing.T, path string, body interface{}) int {
	t.Helper()
	data, _ := json.Marshal(body)
	resp, err := http.Post(f.http.URL+path, "application/json", bytes.NewReader(data))
	require.NoError(t, err)
	resp.Body.Close()
	return resp.StatusCode
}

func TestFolders(t *testing.T) {
	f := setup(t)

	var folders []string
	require.Equal(t, http.StatusOK, f.getJSON(t, "/folders", &folders))
	assert.ElementsMatch(t, []string{"inbox", "movies", "movies/keep", "movies/trash"}, folders)
}

func TestFiles(t *testing.T) {
	f := setup(t)

	var files []string
	require.Equal(t, http.StatusOK, f.getJSON(t, "/files?dir=inbox", &files))
	assert.Equal(t, []string{"inbox/a.jpg", "inbox/b.mp4"}, files)

	var empty []string
	require.Equal(t, http.StatusOK, f.getJSON(t, "/files?dir=movies/keep", &empty))
	assert.Empty(t, empty)

	assert.Equal(t, http.StatusForbidden, f.getJSON(t, "/files?dir=../", nil))
	assert.Equal(t, http.StatusNotFound, f.getJSON(t, "/files?dir=missing", nil))
}

func TestMedia(t *testing.T) {
	f := setup(t)

	resp, err := http.Get(f.http.URL + "/media/inbox/a.jpg")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp2, err := http.Get(f.http.URL + "/media/inbox")
	require.NoError(t, err)
	resp2.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp2.StatusCode)
}

func TestMediaEscapedNames(t *testing.T) {
	f := setup(t)

	for _, name := range []string{"trip, day 1.jpg", "x;y.jpg", "a b.jpg", "100%.jpg", "a+b.jpg"} {
		require.NoError(t, os.WriteFile(filepath.Join(f.root, "inbox", name), []byte(name), 0644))

		resp, err := http.Get(f.http.URL + "/media/inbox/" + url.PathEscape(name))
		require.NoError(t, err)
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()

		assert.Equal(t, http.StatusOK, resp.StatusCode, name)
		assert.Equal(t, name, string(body))
	}
}

func TestMediaRefusesSymlinkOutOfRoot(t *testing.T) {
	f := setup(t)
	outside := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(outside, "secret.txt"), []byte("SECRET"), 0644))
	require.NoError(t, os.Symlink(outside, filepath.Join(f.root, "inbox", "link")))

	resp, err := http.Get(f.http.URL + "/media/inbox/link/secret.txt")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()

	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.False(t, strings.Contains(string(body), "SECRET"))
}

func TestMove(t *testing.T) {
	f := setup(t)

	status := f.post(t, "/move", map[string]string{"fromPath": "inbox/a.jpg", "targetFolder": "movies/keep"})
	require.Equal(t, http.StatusNoContent, status)
	assert.FileExists(t, filepath.Join(f.root, "movies", "keep", "a.jpg"))
	assert.NoFileExists(t, filepath.Join(f.root, "inbox", "a.jpg"))

	// Moving the same file again finds no source
	status = f.post(t, "/move", map[string]string{"fromPath": "inbox/a.jpg", "targetFolder": "movies/keep"})
	assert.Equal(t, http.StatusNotFound, status)
}

func TestMoveSucceedsWhenOperationLogFails(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "inbox"), 0755))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "keep"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "inbox", "a.jpg"), []byte("image"), 0644))

	// A directory cannot be opened for append
	m, err := mover.New(mover.Config{Root: root, LogPath: t.TempDir()})
	require.NoError(t, err)
	ts := httptest.NewServer(New(Config{Mover: m}).Handler())
	defer ts.Close()
	f := &fixture{root: root, http: ts}

	var before []string
	f.getJSON(t, "/folders", &before)

	status := f.post(t, "/move", map[string]string{"fromPath": "inbox/a.jpg", "targetFolder": "keep/new"})
	require.Equal(t, http.StatusNoContent, status)
	assert.FileExists(t, filepath.Join(root, "keep", "new", "a.jpg"))

	// The folder cache was still invalidated
	var after []string
	f.getJSON(t, "/folders", &after)
	assert.Contains(t, after, "keep/new")
}

func TestMoveBadRequests(t *testing.T) {
	f := setup(t)

	assert.Equal(t, http.StatusBadRequest, f.post(t, "/move", map[string]string{"fromPath": "inbox/a.jpg"}))
	assert.Equal(t, http.StatusForbidden, f.post(t, "/move", map[string]string{"fromPath": "../x", "targetFolder": "inbox"}))

	resp, err := http.Post(f.http.URL+"/move", "application/json", bytes.NewReader([]byte("{")))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAddFolderInvalidatesCache(t *testing.T) {
	f := setup(t)

	var before []string
	f.getJSON(t, "/folders", &before)
	assert.NotContains(t, before, "movies/2024")

	require.Equal(t, http.StatusCreated, f.post(t, "/addfolder", map[string]string{"name": "2024", "target": "movies"}))
	assert.DirExists(t, filepath.Join(f.root, "movies", "2024"))

	var after []string
	f.getJSON(t, "/folders", &after)
	assert.Contains(t, after, "movies/2024")

	assert.Equal(t, http.StatusConflict, f.post(t, "/addfolder", map[string]string{"name": "2024", "target": "movies"}))
	assert.Equal(t, http.StatusBadRequest, f.post(t, "/addfolder", map[string]string{"name": "a/b"}))
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusForbidden, statusFor(mover.ErrPathEscape))
	assert.Equal(t, http.StatusConflict, statusFor(mover.ErrDestinationExists))
	assert.Equal(t, http.StatusInternalServerError, statusFor(errors.New("boom")))
}

func TestWatcherInvalidatesCache(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "a"), 0755))

	m, err := mover.New(mover.Config{Root: root})
	require.NoError(t, err)
	s := New(Config{Mover: m, Watch: true})

	folders, err := s.folders.Get()
	require.NoError(t, err)
	require.Equal(t, []string{"a"}, folders)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- s.watchFolders(ctx) }()

	// Give the watcher time to register before creating the folder
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.MkdirAll(filepath.Join(root, "a", "b"), 0755))

	assert.Eventually(t, func() bool {
		folders, err := s.folders.Get()
		return err == nil && len(folders) == 2
	}, 2*time.Second, 20*time.Millisecond)

	cancel()
	assert.NoError(t, <-done)
}
