// Package backend is the HTTP client for the project and task-catalog API
// the assignment engine consumes.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/alexanderramin/tasktree/internal/contract"
)

// Config holds connection settings for the backend API.
type Config struct {
	BaseURL    string
	Token      string
	TimeoutMs  int
	MaxRetries int
}

// DefaultConfig returns a Config pointing at a local backend.
func DefaultConfig() Config {
	return Config{
		BaseURL:    "http://localhost:8080",
		TimeoutMs:  10000,
		MaxRetries: 2,
	}
}

// Client is the backend surface used by the assignment workflow.
type Client interface {
	// ListProjects returns the projects a catalog can be assigned to. An
	// empty status lists every project.
	ListProjects(ctx context.Context, status string) ([]contract.ProjectRef, error)

	// FetchTree returns every category with its nested groups, templates and
	// subtasks.
	FetchTree(ctx context.Context) ([]contract.CategoryTree, error)

	// SubmitAssignment attaches a payload to its project. It is sent exactly
	// once; a 409 is returned as *DuplicateNamesError.
	SubmitAssignment(ctx context.Context, payload contract.AssignmentPayload) (*contract.AssignmentResult, error)
}

type httpClient struct {
	cfg      Config
	http     *http.Client
	observer Observer
}

// NewHTTPClient creates a Client that talks to cfg.BaseURL.
func NewHTTPClient(cfg Config, observer Observer) Client {
	if observer == nil {
		observer = NoopObserver{}
	}
	if cfg.TimeoutMs <= 0 {
		cfg.TimeoutMs = DefaultConfig().TimeoutMs
	}
	return &httpClient{
		cfg: cfg,
		http: &http.Client{
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout: 5 * time.Second,
				}).DialContext,
			},
		},
		observer: observer,
	}
}

type response struct {
	status int
	body   []byte
}

func (c *httpClient) ListProjects(ctx context.Context, status string) ([]contract.ProjectRef, error) {
	path := "/api/projects"
	if status != "" {
		path += "?" + url.Values{"status": {status}}.Encode()
	}
	var projects []contract.ProjectRef
	if err := c.getJSON(ctx, "list_projects", path, &projects); err != nil {
		return nil, err
	}
	return projects, nil
}

func (c *httpClient) FetchTree(ctx context.Context) ([]contract.CategoryTree, error) {
	var tree []contract.CategoryTree
	if err := c.getJSON(ctx, "fetch_tree", "/api/task-categories/tree", &tree); err != nil {
		return nil, err
	}
	return tree, nil
}

func (c *httpClient) getJSON(ctx context.Context, op, path string, out any) error {
	resp, err := c.call(ctx, op, http.MethodGet, path, nil, 1+c.cfg.MaxRetries)
	if err != nil {
		return err
	}
	if resp.status != http.StatusOK {
		return &TransportError{Op: op, Status: resp.status, Message: serverMessage(resp.body)}
	}
	if err := json.Unmarshal(resp.body, out); err != nil {
		return &TransportError{Op: op, Status: resp.status, Message: "decoding response: " + err.Error()}
	}
	return nil
}

func (c *httpClient) SubmitAssignment(ctx context.Context, payload contract.AssignmentPayload) (*contract.AssignmentResult, error) {
	const op = "submit_assignment"
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshaling payload: %w", err)
	}
	path := "/api/projects/" + url.PathEscape(payload.ProjectID) + "/assignments"

	resp, err := c.call(ctx, op, http.MethodPost, path, data, 1)
	if err != nil {
		return nil, err
	}

	switch {
	case resp.status == http.StatusOK || resp.status == http.StatusCreated:
		var result contract.AssignmentResult
		if len(bytes.TrimSpace(resp.body)) > 0 {
			if err := json.Unmarshal(resp.body, &result); err != nil {
				return nil, &TransportError{Op: op, Status: resp.status, Message: "decoding response: " + err.Error()}
			}
		}
		return &result, nil
	case resp.status == http.StatusConflict:
		var conflict contract.ConflictResponse
		if err := json.Unmarshal(resp.body, &conflict); err == nil && len(conflict.Duplicates) > 0 {
			return nil, &DuplicateNamesError{Message: conflict.Message, Duplicates: conflict.Duplicates}
		}
		return nil, &TransportError{Op: op, Status: resp.status, Message: serverMessage(resp.body)}
	default:
		return nil, &TransportError{Op: op, Status: resp.status, Message: serverMessage(resp.body)}
	}
}

// call performs up to attempts requests, retrying connection failures and
// 5xx answers. The timeout covers all attempts.
func (c *httpClient) call(ctx context.Context, op, method, path string, body []byte, attempts int) (*response, error) {
	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, time.Duration(c.cfg.TimeoutMs)*time.Millisecond)
	defer cancel()

	var (
		resp    *response
		lastErr error
		tries   int
	)
	for tries < attempts {
		tries++
		resp, lastErr = c.doRequest(ctx, method, path, body)
		if lastErr == nil && resp.status < 500 {
			break
		}
		// Don't retry on context cancellation/timeout
		if ctx.Err() != nil {
			break
		}
	}

	event := CallEvent{
		Op:        op,
		Method:    method,
		Path:      path,
		Attempts:  tries,
		LatencyMs: time.Since(start).Milliseconds(),
	}
	if resp != nil {
		event.Status = resp.status
	}

	if lastErr != nil {
		switch {
		case errors.Is(ctx.Err(), context.DeadlineExceeded):
			lastErr = ErrTimeout
		case ctx.Err() != nil:
			lastErr = fmt.Errorf("%s: %w", op, ctx.Err())
		case isConnectionError(lastErr):
			lastErr = ErrUnavailable
		default:
			lastErr = &TransportError{Op: op, Message: lastErr.Error()}
		}
		event.ErrorCode = errorCode(lastErr)
		c.observer.OnCallComplete(event)
		return nil, lastErr
	}

	event.Success = resp.status < 300
	if !event.Success {
		event.ErrorCode = statusCode(resp.status)
	}
	c.observer.OnCallComplete(event)
	return resp, nil
}

func (c *httpClient) doRequest(ctx context.Context, method, path string, body []byte) (*response, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, method, strings.TrimRight(c.cfg.BaseURL, "/")+path, reader)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if c.cfg.Token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.cfg.Token)
	}

	httpResp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}
	return &response{status: httpResp.StatusCode, body: respBody}, nil
}

// serverMessage extracts the message of an error body, falling back to the
// raw text.
func serverMessage(body []byte) string {
	var e contract.ErrorResponse
	if err := json.Unmarshal(body, &e); err == nil && e.Message != "" {
		return e.Message
	}
	msg := strings.TrimSpace(string(body))
	if len(msg) > 200 {
		msg = msg[:200] + "..."
	}
	return msg
}

func isConnectionError(err error) bool {
	if err == nil {
		return false
	}
	var netErr *net.OpError
	if errors.As(err, &netErr) {
		return true
	}
	return false
}

func errorCode(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrTimeout):
		return "TIMEOUT"
	case errors.Is(err, ErrUnavailable):
		return "UNAVAILABLE"
	case errors.Is(err, context.Canceled):
		return "CANCELLED"
	default:
		return "UNKNOWN"
	}
}

func statusCode(status int) string {
	switch {
	case status == http.StatusConflict:
		return "CONFLICT"
	case status >= 500:
		return "SERVER_ERROR"
	default:
		return "CLIENT_ERROR"
	}
}
