// Package restapi is the HTTP client for the backend's REST endpoints.
package restapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/runoshun/adr-sync/internal/domain"
)

// Ensure Client implements the backend ports.
var (
	_ domain.TaskStatusFetcher  = (*Client)(nil)
	_ domain.QueueStatusFetcher = (*Client)(nil)
	_ domain.RecordReloader     = (*Client)(nil)
	_ domain.TaskSubmitter      = (*Client)(nil)
)

// maxErrorBody caps how much of an error response is kept.
const maxErrorBody = 512

const (
	queuePath = "/api/queue/status"
	cachePath = "/api/cache/status"
)

// HTTPError is returned for non-2xx responses.
type HTTPError struct {
	Method     string
	URL        string
	Body       string
	StatusCode int
}

func (e *HTTPError) Error() string {
	msg := fmt.Sprintf("%s %s: %d %s", e.Method, e.URL, e.StatusCode, http.StatusText(e.StatusCode))
	if e.Body != "" {
		msg += ": " + e.Body
	}
	return msg
}

// Client talks to the backend REST API.
// Fields are ordered to minimize memory padding.
type Client struct {
	http    *http.Client
	base    *url.URL
	summary singleflight.Group
}

// New creates a Client for baseURL.
func New(baseURL string, timeout time.Duration) (*Client, error) {
	if baseURL == "" {
		return nil, domain.ErrNoBaseURL
	}
	base, err := url.Parse(strings.TrimSuffix(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("parse base url: unsupported scheme %q", base.Scheme)
	}
	return &Client{
		http: &http.Client{Timeout: timeout},
		base: base,
	}, nil
}

// statusPath returns the status endpoint for a task kind. Refinement tasks
// run on the generation pipeline and share its endpoint.
func statusPath(kind domain.TaskKind, id string) string {
	segment := string(kind)
	if kind == domain.KindRefinement {
		segment = string(domain.KindGeneration)
	}
	return "/api/" + segment + "/status/" + url.PathEscape(id)
}

// FetchTaskStatus reads one task's status.
func (c *Client) FetchTaskStatus(ctx context.Context, id string, kind domain.TaskKind) (*domain.TaskStatusResponse, error) {
	if id == "" {
		return nil, domain.ErrEmptyTaskID
	}
	var resp domain.TaskStatusResponse
	if err := c.do(ctx, http.MethodGet, statusPath(kind, id), nil, &resp); err != nil {
		return nil, err
	}
	if !resp.Status.IsValid() {
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidStatus, resp.Status)
	}
	return &resp, nil
}

// FetchQueueStatus reads the aggregate queue counters. Concurrent calls
// share one request.
func (c *Client) FetchQueueStatus(ctx context.Context) (*domain.QueueStatus, error) {
	v, err, _ := c.summary.Do(queuePath, func() (any, error) {
		var q domain.QueueStatus
		if err := c.do(ctx, http.MethodGet, queuePath, nil, &q); err != nil {
			return nil, err
		}
		return q, nil
	})
	if err != nil {
		return nil, err
	}
	q := v.(domain.QueueStatus)
	return &q, nil
}

// cacheWire accepts last_sync_time with or without a zone offset.
type cacheWire struct {
	LastSyncTime *string `json:"last_sync_time"`
	IsRebuilding bool    `json:"is_rebuilding"`
}

var syncTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
}

func parseSyncTime(s string) (time.Time, error) {
	for _, layout := range syncTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("parse last_sync_time %q", s)
}

// FetchCacheStatus reads the record cache state. Concurrent calls share
// one request.
func (c *Client) FetchCacheStatus(ctx context.Context) (*domain.CacheStatus, error) {
	v, err, _ := c.summary.Do(cachePath, func() (any, error) {
		var w cacheWire
		if err := c.do(ctx, http.MethodGet, cachePath, nil, &w); err != nil {
			return nil, err
		}
		cs := domain.CacheStatus{IsRebuilding: w.IsRebuilding}
		if w.LastSyncTime != nil && *w.LastSyncTime != "" {
			t, err := parseSyncTime(*w.LastSyncTime)
			if err != nil {
				return nil, err
			}
			cs.LastSyncTime = &t
		}
		return cs, nil
	})
	if err != nil {
		return nil, err
	}
	cs := v.(domain.CacheStatus)
	if cs.LastSyncTime != nil {
		t := *cs.LastSyncTime
		cs.LastSyncTime = &t
	}
	return &cs, nil
}

// ReloadRecords refetches the decision record list.
func (c *Client) ReloadRecords(ctx context.Context) (int, error) {
	var records []json.RawMessage
	if err := c.do(ctx, http.MethodGet, "/api/decisions", nil, &records); err != nil {
		return 0, err
	}
	return len(records), nil
}

// SubmitTask creates a task of the given kind. body is passed through
// unchanged; nil sends an empty JSON object.
func (c *Client) SubmitTask(ctx context.Context, kind domain.TaskKind, body []byte) (*domain.TaskCreated, error) {
	if !kind.IsValid() {
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidKind, kind)
	}
	if len(bytes.TrimSpace(body)) == 0 {
		body = []byte("{}")
	}
	if !json.Valid(body) {
		return nil, fmt.Errorf("%w: request body is not valid JSON", domain.ErrMalformedPayload)
	}
	var created domain.TaskCreated
	if err := c.do(ctx, http.MethodPost, "/api/"+string(kind), body, &created); err != nil {
		return nil, err
	}
	if created.TaskID == "" {
		return nil, domain.ErrEmptyTaskID
	}
	return &created, nil
}

func (c *Client) do(ctx context.Context, method, path string, body []byte, out any) error {
	u := c.base.JoinPath(path)
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &HTTPError{
			Method:     method,
			URL:        path,
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(snippet)),
		}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}
