package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

var (
	// ErrUnreachable wraps transport failures and server errors; the request may be retried later.
	ErrUnreachable = errors.New("backend unreachable")

	// ErrRejected is returned when the backend answered with success set to false.
	ErrRejected = errors.New("backend rejected request")
)

// maxResponseSize bounds how much of a response body is read.
const maxResponseSize = 4 << 20

// Caller sends one action to the backend and decodes the reply into out.
type Caller interface {
	Call(ctx context.Context, action string, params map[string]any, out any) error
}

// Client talks to the spreadsheet backend over its single JSON endpoint.
// Every request is a POST whose body carries an "action" field plus the action's parameters.
type Client struct {
	endpoint   string
	httpClient *http.Client
}

// NewClient creates a Client for the given endpoint URL.
func NewClient(endpoint string, timeout time.Duration) *Client {
	return &Client{
		endpoint:   endpoint,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type status struct {
	Success *bool  `json:"success"`
	Error   string `json:"error"`
	Message string `json:"message"`
}

// Call posts the action and decodes the JSON reply into out, which may be nil.
func (c *Client) Call(ctx context.Context, action string, params map[string]any, out any) error {
	payload := make(map[string]any, len(params)+1)
	for k, v := range params {
		payload[k] = v
	}
	payload["action"] = action

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode %s request: %w", action, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build %s request: %w", action, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrUnreachable, action, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return fmt.Errorf("%w: failed to read %s response: %w", ErrUnreachable, action, err)
	}

	if resp.StatusCode >= http.StatusInternalServerError {
		return fmt.Errorf("%w: %s returned status code %d", ErrUnreachable, action, resp.StatusCode)
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("%s returned status code %d", action, resp.StatusCode)
	}

	if !json.Valid(raw) {
		return fmt.Errorf("failed to decode %s response: invalid JSON", action)
	}

	// List actions reply with a bare array, which carries no status
	var st status
	if trimmed := bytes.TrimSpace(raw); len(trimmed) > 0 && trimmed[0] == '{' {
		if err := json.Unmarshal(trimmed, &st); err != nil {
			return fmt.Errorf("failed to decode %s response: %w", action, err)
		}
	}
	if st.Success != nil && !*st.Success {
		reason := st.Error
		if reason == "" {
			reason = st.Message
		}
		if reason == "" {
			reason = "no reason given"
		}
		return fmt.Errorf("%w: %s: %s", ErrRejected, action, reason)
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", action, err)
	}
	return nil
}
