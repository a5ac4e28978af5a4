package frameio

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

	"golang.org/x/oauth2"

	"github.com/custodia-labs/sercha-events/internal/core/ports/driven"
)

const (
	// DefaultBaseURL is the Frame.io v2 API root.
	DefaultBaseURL = "https://api.frame.io/v2"

	// DefaultTimeout is the default HTTP request timeout.
	DefaultTimeout = 30 * time.Second
)

// ErrUnauthenticated indicates a hooks request without a token.
var ErrUnauthenticated = errors.New("frameio: a token is required to manage hooks")

// APIError represents a Frame.io API error response.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("frameio: API error %d: %s", e.StatusCode, e.Message)
}

// Hook is a team webhook.
type Hook struct {
	ID     string   `json:"id,omitempty"`
	Name   string   `json:"name"`
	URL    string   `json:"url"`
	Events []string `json:"events"`
	Active bool     `json:"active"`
	Secret string   `json:"secret,omitempty"`
}

// Client calls the Frame.io hooks endpoints.
type Client struct {
	baseURL string
	tokens  driven.TokenProvider
}

// NewClient creates a hooks client. baseURL may be empty for the default.
func NewClient(tokens driven.TokenProvider, baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), tokens: tokens}
}

// CreateHook creates a hook on teamID and returns it with its id and secret.
func (c *Client) CreateHook(ctx context.Context, teamID string, hook Hook) (*Hook, error) {
	var created Hook
	path := "/teams/" + url.PathEscape(teamID) + "/hooks"
	if err := c.do(ctx, http.MethodPost, path, hook, &created); err != nil {
		return nil, fmt.Errorf("create hook: %w", err)
	}
	return &created, nil
}

// DeleteHook deletes a hook. A hook that no longer exists is treated as
// deleted.
func (c *Client) DeleteHook(ctx context.Context, hookID string) error {
	err := c.do(ctx, http.MethodDelete, "/hooks/"+url.PathEscape(hookID), nil, nil)
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
		return nil
	}
	if err != nil {
		return fmt.Errorf("delete hook: %w", err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	if c.tokens == nil || !c.tokens.IsAuthenticated() {
		return ErrUnauthenticated
	}

	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	httpClient := oauth2.NewClient(ctx, newTokenSource(ctx, c.tokens))
	httpClient.Timeout = DefaultTimeout

	resp, err := httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		var payload struct {
			Message string `json:"message"`
		}
		msg := strings.TrimSpace(string(data))
		if json.Unmarshal(data, &payload) == nil && payload.Message != "" {
			msg = payload.Message
		}
		return &APIError{StatusCode: resp.StatusCode, Message: msg}
	}

	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
