package simulate

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	service "github.com/okian/rulcast/internal/app"
)

const maxResponseBytes = 4 << 20

// ErrUnexpectedStatus is wrapped by APIError.
var ErrUnexpectedStatus = errors.New("unexpected status")

// APIError is a non-success answer from the session API.
type APIError struct {
	Method     string
	Path       string
	StatusCode int
	Code       string
	Message    string
	Keys       []string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s %s: %d %s: %s", e.Method, e.Path, e.StatusCode, e.Code, e.Message)
}

func (e *APIError) Unwrap() error { return ErrUnexpectedStatus }

// Client talks to the session API.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a client for baseURL with a per-request timeout.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// Health checks /healthz.
func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/healthz", nil, http.StatusOK, nil)
}

// CreateSession opens a session.
func (c *Client) CreateSession(ctx context.Context) (service.Snapshot, error) {
	var snap service.Snapshot
	err := c.do(ctx, http.MethodPost, "/api/sessions", nil, http.StatusCreated, &snap)
	return snap, err
}

// Snapshot fetches the current session snapshot.
func (c *Client) Snapshot(ctx context.Context, id string) (service.Snapshot, error) {
	var snap service.Snapshot
	err := c.do(ctx, http.MethodGet, "/api/sessions/"+id, nil, http.StatusOK, &snap)
	return snap, err
}

// SetField records one field edit.
func (c *Client) SetField(ctx context.Context, id, key, value string) (service.Snapshot, error) {
	var snap service.Snapshot
	body := map[string]string{"key": key, "value": value}
	err := c.do(ctx, http.MethodPost, "/api/sessions/"+id+"/fields", body, http.StatusOK, &snap)
	return snap, err
}

// Submit dispatches the form.
func (c *Client) Submit(ctx context.Context, id string) (service.Snapshot, error) {
	var snap service.Snapshot
	err := c.do(ctx, http.MethodPost, "/api/sessions/"+id+"/submit", nil, http.StatusAccepted, &snap)
	return snap, err
}

// CloseSession ends the session.
func (c *Client) CloseSession(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/sessions/"+id, nil, http.StatusNoContent, nil)
}

func (c *Client) do(ctx context.Context, method, path string, body any, want int, out any) error {
	var rd io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		rd = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rd)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("%s %s: read body: %w", method, path, err)
	}

	if resp.StatusCode != want {
		apiErr := &APIError{Method: method, Path: path, StatusCode: resp.StatusCode}
		var env struct {
			Code    string   `json:"code"`
			Message string   `json:"message"`
			Keys    []string `json:"keys"`
		}
		if json.Unmarshal(raw, &env) == nil {
			apiErr.Code, apiErr.Message, apiErr.Keys = env.Code, env.Message, env.Keys
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%s %s: decode: %w", method, path, err)
	}
	return nil
}
