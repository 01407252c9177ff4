package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Nomadcxx/swipesort/internal/triage"
)

func newTestClient(t *testing.T, h http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return New(Options{BaseURL: srv.URL + "/", Timeout: 2 * time.Second, RetryMax: 2})
}

func TestFolders(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/folders", r.URL.Path)
		json.NewEncoder(w).Encode([]string{"movies", "movies/keep"})
	}))

	folders, err := c.Folders(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"movies", "movies/keep"}, folders)
}

func TestFilesEncodesDir(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "holiday pics/2024 & more", r.URL.Query().Get("dir"))
		json.NewEncoder(w).Encode([]string{"holiday pics/2024 & more/a.jpg"})
	}))

	files, err := c.Files(context.Background(), "holiday pics/2024 & more")
	require.NoError(t, err)
	assert.Len(t, files, 1)
}

func TestGetRetriesServerErrors(t *testing.T) {
	var calls int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		json.NewEncoder(w).Encode([]string{"a"})
	}))

	folders, err := c.Folders(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, folders)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestMoveSendsBodyOnce(t *testing.T) {
	var calls int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/move", r.URL.Path)
		assert.NotEmpty(t, r.Header.Get(RequestIDHeader))

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "inbox/a.jpg", body["fromPath"])
		assert.Equal(t, "movies/keep", body["targetFolder"])

		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("disk full\n"))
	}))

	err := c.Move(context.Background(), triage.MoveRequest{FromPath: "inbox/a.jpg", TargetFolder: "movies/keep"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrBackend))

	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusInternalServerError, statusErr.Status)
	assert.Equal(t, "disk full", statusErr.Body)

	assert.Equal(t, int32(1), atomic.LoadInt32(&calls), "moves must not be retried")
}

func TestAddFolder(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body AddFolderRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, AddFolderRequest{Name: "2024", Target: "movies"}, body)
		w.WriteHeader(http.StatusCreated)
	}))

	require.NoError(t, c.AddFolder(context.Background(), AddFolderRequest{Name: "2024", Target: "movies"}))
}

func TestConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := New(Options{BaseURL: url, Timeout: time.Second, RetryMax: 0})
	err := c.Move(context.Background(), triage.MoveRequest{FromPath: "a", TargetFolder: "b"})
	assert.Error(t, err)
}

func TestMediaURL(t *testing.T) {
	c := New(Options{BaseURL: "http://host:8080/"})
	assert.Equal(t, "http://host:8080/media/my%20pics/a%23b.jpg", c.MediaURL("my pics/a#b.jpg"))
}
