package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-retryablehttp"

	"github.com/Nomadcxx/swipesort/internal/logging"
	"github.com/Nomadcxx/swipesort/internal/triage"
)

// ErrBackend wraps every non-success response from the backend
var ErrBackend = errors.New("backend error")

// RequestIDHeader carries the client-generated id of a mutating request
const RequestIDHeader = "X-Request-Id"

// StatusError is a non-2xx backend response
type StatusError struct {
	Method string
	Path   string
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	msg := fmt.Sprintf("%s %s: %d %s", e.Method, e.Path, e.Status, http.StatusText(e.Status))
	if e.Body != "" {
		msg += ": " + e.Body
	}
	return msg
}

func (e *StatusError) Unwrap() error {
	return ErrBackend
}

// Options configure the backend client
type Options struct {
	BaseURL  string
	Timeout  time.Duration
	RetryMax int
	Logger   *logging.Logger
}

// Client talks to the folder/file/move backend
type Client struct {
	getClient  *http.Client
	postClient *http.Client
	baseURL    string
	log        *logging.Logger
}

// AddFolderRequest is the body of POST /addfolder
type AddFolderRequest struct {
	Name   string `json:"name"`
	Target string `json:"target,omitempty"`
}

// New creates a client. GET requests are retried with backoff; POSTs are
// sent once because a move that reached the server must not be replayed.
func New(opts Options) *Client {
	log := opts.Logger
	if log == nil {
		log = logging.Nop()
	}

	retryClient := retryablehttp.NewClient()
	retryClient.HTTPClient = &http.Client{Timeout: opts.Timeout}
	retryClient.RetryMax = opts.RetryMax
	retryClient.RetryWaitMin = 200 * time.Millisecond
	retryClient.RetryWaitMax = 2 * time.Second
	retryClient.Logger = logging.NewRetryLogger(log.With("http"))
	// Hand the last response back instead of a generic "giving up" error
	retryClient.ErrorHandler = retryablehttp.PassthroughErrorHandler

	return &Client{
		getClient:  retryClient.StandardClient(),
		postClient: &http.Client{Timeout: opts.Timeout},
		baseURL:    strings.TrimSuffix(opts.BaseURL, "/"),
		log:        log.With("client"),
	}
}

// Folders fetches the flat folder list
func (c *Client) Folders(ctx context.Context) ([]string, error) {
	var folders []string
	if err := c.getJSON(ctx, "/folders", nil, &folders); err != nil {
		return nil, err
	}
	return folders, nil
}

// Files fetches the media file list for dir
func (c *Client) Files(ctx context.Context, dir string) ([]string, error) {
	var files []string
	if err := c.getJSON(ctx, "/files", url.Values{"dir": {dir}}, &files); err != nil {
		return nil, err
	}
	return files, nil
}

// Move asks the backend to move a file into a folder
func (c *Client) Move(ctx context.Context, req triage.MoveRequest) error {
	return c.postJSON(ctx, "/move", req)
}

// AddFolder asks the backend to create a folder
func (c *Client) AddFolder(ctx context.Context, req AddFolderRequest) error {
	return c.postJSON(ctx, "/addfolder", req)
}

// MediaURL returns the URL a preview renderer can load path from
func (c *Client) MediaURL(path string) string {
	segments := strings.Split(path, "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return c.baseURL + "/media/" + strings.Join(segments, "/")
}

func (c *Client) getJSON(ctx context.Context, path string, query url.Values, out interface{}) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.getClient.Do(req)
	if err != nil {
		return fmt.Errorf("GET %s: %w", path, err)
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return err
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", path, err)
	}
	return nil
}

func (c *Client) postJSON(ctx context.Context, path string, body interface{}) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	id := uuid.NewString()
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(RequestIDHeader, id)

	start := time.Now()
	resp, err := c.postClient.Do(req)
	if err != nil {
		c.log.Warn().Err(err).Str("path", path).Str("request_id", id).Msg("request failed")
		return fmt.Errorf("POST %s: %w", path, err)
	}
	defer resp.Body.Close()

	c.log.Debug().
		Str("path", path).
		Str("request_id", id).
		Int("status", resp.StatusCode).
		Dur("elapsed", time.Since(start)).
		Msg("request done")

	return checkStatus(resp)
}

func checkStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	return &StatusError{
		Method: resp.Request.Method,
		Path:   resp.Request.URL.Path,
		Status: resp.StatusCode,
		Body:   strings.TrimSpace(string(body)),
	}
}
