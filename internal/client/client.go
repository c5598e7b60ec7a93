// Package client talks to the bookmark server over HTTP. It implements
// the remote half of every tree operation and classifies failures as
// transport failures or server rejections.
package client

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	apperr "github.com/alexjbarnes/marksync/internal/errors"
	"github.com/alexjbarnes/marksync/internal/models"
	json "github.com/goccy/go-json"
	"github.com/google/uuid"
)

const (
	// maxRedirects is the maximum number of HTTP redirects to follow
	// before giving up, matching the default net/http limit.
	maxRedirects = 10

	// DefaultTimeout is the timeout for the default HTTP client used
	// when no custom client is provided.
	DefaultTimeout = 30 * time.Second

	// maxAPIResponseBytes caps response body reads to prevent a
	// misbehaving server from consuming unbounded memory. Full tree
	// responses are the largest payloads.
	maxAPIResponseBytes = 16 * 1024 * 1024

	// requestIDHeader carries a per-request id for server-side log
	// correlation.
	requestIDHeader = "X-Request-Id"
)

// TransportError wraps a failure to reach the server or read its
// response. It matches ErrNetworkFailure and is always transient.
type TransportError struct {
	Endpoint string
	Err      error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("sending request to %s: %v", e.Endpoint, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrNetworkFailure) hold.
func (e *TransportError) Is(target error) bool { return target == apperr.ErrNetworkFailure }

// RemoteError is a non-success response from the server. It matches
// ErrRemoteRejection.
type RemoteError struct {
	Endpoint string
	Status   int
	Message  string
}

func (e *RemoteError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("API %s returned status %d", e.Endpoint, e.Status)
	}

	return fmt.Sprintf("API %s returned status %d: %s", e.Endpoint, e.Status, e.Message)
}

// Is makes errors.Is(err, ErrRemoteRejection) hold.
func (e *RemoteError) Is(target error) bool { return target == apperr.ErrRemoteRejection }

// IsTransient reports whether err is likely temporary and safe to
// retry: transport failures and overload or gateway statuses.
func IsTransient(err error) bool {
	var te *TransportError
	if errors.As(err, &te) {
		return true
	}

	var re *RemoteError
	if errors.As(err, &re) {
		return isTransientStatus(re.Status)
	}

	return false
}

// Client talks to the bookmark server REST API.
type Client struct {
	httpClient *http.Client
	baseURL    string
}

// sameHostRedirectPolicy follows redirects only when the target host
// matches the original request host.
func sameHostRedirectPolicy(req *http.Request, via []*http.Request) error {
	if len(via) >= maxRedirects {
		return errors.New("stopped after 10 redirects")
	}

	if len(via) > 0 {
		origHost := via[0].URL.Host
		if req.URL.Host != origHost {
			return fmt.Errorf("redirect to different host blocked: %s -> %s", origHost, req.URL.Host)
		}
	}

	return nil
}

// New creates an API client rooted at baseURL, e.g.
// "http://localhost:3096/api". If httpClient is nil, a client with the
// default timeout and same-host redirect policy is created.
func New(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = NewHTTPClient(DefaultTimeout)
	}

	return &Client{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(baseURL, "/"),
	}
}

// NewHTTPClient returns an http.Client with the given timeout that only
// follows redirects to the original host.
func NewHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout:       timeout,
		CheckRedirect: sameHostRedirectPolicy,
	}
}

// sanitizeResponseBody truncates and sanitizes a response body for
// inclusion in error messages. Limits to 256 bytes and replaces
// non-printable characters to prevent log injection.
func sanitizeResponseBody(body []byte) string {
	const maxLen = 256
	if len(body) > maxLen {
		body = body[:maxLen]
	}

	var clean []byte

	for len(body) > 0 {
		r, size := utf8.DecodeRune(body)
		if r == utf8.RuneError && size <= 1 {
			clean = append(clean, '?')
			body = body[1:]

			continue
		}

		if r < 0x20 && r != '\t' {
			clean = append(clean, '?')
		} else {
			clean = append(clean, body[:size]...)
		}

		body = body[size:]
	}

	return strings.TrimSpace(string(clean))
}

// do sends a request with an optional JSON body and decodes a JSON
// response into result when result is non-nil. It returns the raw
// response body for callers that need to inspect it.
func (c *Client) do(ctx context.Context, method, endpoint string, body, result any) ([]byte, error) {
	var reader io.Reader

	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshalling request body: %w", err)
		}

		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, reader)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set(requestIDHeader, uuid.NewString())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &TransportError{Endpoint: endpoint, Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxAPIResponseBytes))
	if err != nil {
		return nil, &TransportError{Endpoint: endpoint, Err: fmt.Errorf("reading response: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &RemoteError{
			Endpoint: endpoint,
			Status:   resp.StatusCode,
			Message:  sanitizeResponseBody(respBody),
		}
	}

	if result != nil {
		if err := json.Unmarshal(respBody, result); err != nil {
			return nil, &RemoteError{
				Endpoint: endpoint,
				Status:   resp.StatusCode,
				Message:  fmt.Sprintf("decoding response: %v", err),
			}
		}
	}

	return respBody, nil
}

func isTransientStatus(code int) bool {
	switch code {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}

	return false
}

// FetchTree returns the whole tree.
func (c *Client) FetchTree(ctx context.Context) (models.RootItems, error) {
	var root models.RootItems
	if _, err := c.do(ctx, http.MethodGet, "/folder-tree", nil, &root); err != nil {
		return models.RootItems{}, fmt.Errorf("fetching tree: %w", err)
	}

	return root, nil
}

// FetchBranch returns the direct children and bookmarks of folderID,
// or the root collections when folderID is nil.
func (c *Client) FetchBranch(ctx context.Context, folderID *int64) (models.RootItems, error) {
	segment := "root"
	if folderID != nil {
		segment = strconv.FormatInt(*folderID, 10)
	}

	var root models.RootItems
	if _, err := c.do(ctx, http.MethodGet, "/folder-tree/"+segment, nil, &root); err != nil {
		return models.RootItems{}, fmt.Errorf("fetching branch %s: %w", segment, err)
	}

	return root, nil
}

// create posts a create request and returns the assigned id. The item
// exists once the server answers with a success status, so a reply
// without a readable id yields id 0, which callers treat as unknown.
func (c *Client) create(ctx context.Context, endpoint string, body any) (int64, error) {
	raw, err := c.do(ctx, http.MethodPost, endpoint, body, nil)
	if err != nil {
		return 0, err
	}

	var resp models.CreatedResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return 0, nil
	}

	return resp.ID, nil
}

// CreateFolder creates a folder and returns its server-assigned id.
func (c *Client) CreateFolder(ctx context.Context, req models.CreateFolderRequest) (int64, error) {
	id, err := c.create(ctx, "/create-folder", req)
	if err != nil {
		return 0, fmt.Errorf("creating folder: %w", err)
	}

	return id, nil
}

// CreateBookmark creates a bookmark and returns its server-assigned id.
func (c *Client) CreateBookmark(ctx context.Context, req models.CreateBookmarkRequest) (int64, error) {
	id, err := c.create(ctx, "/create-bookmark", req)
	if err != nil {
		return 0, fmt.Errorf("creating bookmark: %w", err)
	}

	return id, nil
}

// UpdateFolder renames and reparents a folder.
func (c *Client) UpdateFolder(ctx context.Context, req models.UpdateFolderRequest) error {
	if _, err := c.do(ctx, http.MethodPost, "/update-folder", req, nil); err != nil {
		return fmt.Errorf("updating folder %d: %w", req.ID, err)
	}

	return nil
}

// UpdateBookmark replaces a bookmark's name, URL and folder.
func (c *Client) UpdateBookmark(ctx context.Context, req models.UpdateBookmarkRequest) error {
	if _, err := c.do(ctx, http.MethodPost, "/update-bookmark", req, nil); err != nil {
		return fmt.Errorf("updating bookmark %d: %w", req.ID, err)
	}

	return nil
}

// DeleteFolder deletes a folder. The server cascades to its contents.
func (c *Client) DeleteFolder(ctx context.Context, id int64) error {
	if _, err := c.do(ctx, http.MethodPost, "/delete-folder", id, nil); err != nil {
		return fmt.Errorf("deleting folder %d: %w", id, err)
	}

	return nil
}

// DeleteBookmark deletes a bookmark.
func (c *Client) DeleteBookmark(ctx context.Context, id int64) error {
	if _, err := c.do(ctx, http.MethodPost, "/delete-bookmark", id, nil); err != nil {
		return fmt.Errorf("deleting bookmark %d: %w", id, err)
	}

	return nil
}

// Move reparents an item under req.TargetFolderID.
func (c *Client) Move(ctx context.Context, req models.MoveRequest) error {
	if _, err := c.do(ctx, http.MethodPost, "/move", req, nil); err != nil {
		return fmt.Errorf("moving %s %d: %w", req.ItemType, req.ItemID, err)
	}

	return nil
}

// MoveToRoot moves an item to the top level.
func (c *Client) MoveToRoot(ctx context.Context, req models.MoveRequest) error {
	req.TargetFolderID = nil

	if _, err := c.do(ctx, http.MethodPost, "/move-to-root", req, nil); err != nil {
		return fmt.Errorf("moving %s %d to root: %w", req.ItemType, req.ItemID, err)
	}

	return nil
}

// ToggleFavorite flips a bookmark's favorite flag.
func (c *Client) ToggleFavorite(ctx context.Context, id int64) error {
	if _, err := c.do(ctx, http.MethodPost, "/favorite-bookmark", id, nil); err != nil {
		return fmt.Errorf("toggling favorite on bookmark %d: %w", id, err)
	}

	return nil
}
