package github

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	gh "github.com/google/go-github/v80/github"
	"golang.org/x/oauth2"

	"github.com/custodia-labs/sercha-events/internal/core/ports/driven"
)

const (
	// DefaultTimeout is the default HTTP request timeout.
	DefaultTimeout = 30 * time.Second

	// BranchesPerPage is the page size used when listing branches.
	BranchesPerPage = 100
)

// Client wraps the go-github client with rate limiting and error mapping.
type Client struct {
	tokenProvider driven.TokenProvider
	rateLimiter   *RateLimiter
	baseURL       string

	mu sync.Mutex
	gh *gh.Client
}

// NewClient creates a GitHub API client. tokenProvider may be nil or
// unauthenticated, in which case requests are anonymous.
func NewClient(tokenProvider driven.TokenProvider, baseURL string) *Client {
	return &Client{
		tokenProvider: tokenProvider,
		rateLimiter:   NewRateLimiter(),
		baseURL:       baseURL,
	}
}

// ensureClient initializes the go-github client on first use so the token
// is only read when a request is made. A failed initialization is not
// cached; the next request tries again.
func (c *Client) ensureClient(ctx context.Context) (*gh.Client, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gh != nil {
		return c.gh, nil
	}

	httpClient := &http.Client{Timeout: DefaultTimeout}
	if c.tokenProvider != nil && c.tokenProvider.IsAuthenticated() {
		token, err := c.tokenProvider.GetToken(ctx)
		if err != nil {
			return nil, fmt.Errorf("get token: %w", err)
		}
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
		httpClient = oauth2.NewClient(context.Background(), ts)
		httpClient.Timeout = DefaultTimeout
	}

	client := gh.NewClient(httpClient)
	if c.baseURL != "" {
		base := c.baseURL
		if !strings.HasSuffix(base, "/") {
			base += "/"
		}
		u, err := url.Parse(base)
		if err != nil {
			return nil, fmt.Errorf("parse base_url: %w", err)
		}
		client.BaseURL = u
	}
	c.gh = client
	return client, nil
}

// ListBranches returns up to maxPages pages of the repository's branches.
func (c *Client) ListBranches(ctx context.Context, owner, repo string, maxPages int) ([]*gh.Branch, error) {
	client, err := c.ensureClient(ctx)
	if err != nil {
		return nil, err
	}

	var all []*gh.Branch
	opts := &gh.BranchListOptions{ListOptions: gh.ListOptions{PerPage: BranchesPerPage}}

	for page := 0; page < maxPages; page++ {
		if err := c.rateLimiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limit wait: %w", err)
		}

		branches, resp, err := client.Repositories.ListBranches(ctx, owner, repo, opts)
		if err != nil {
			return nil, c.wrapError(resp, err, "list branches")
		}
		c.updateRateLimitFromResponse(resp)
		all = append(all, branches...)

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	return all, nil
}

// CreateHook creates an active JSON repository hook and returns its id.
func (c *Client) CreateHook(ctx context.Context, owner, repo, callbackURL, secret string, events []string) (int64, error) {
	client, err := c.ensureClient(ctx)
	if err != nil {
		return 0, err
	}
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return 0, fmt.Errorf("rate limit wait: %w", err)
	}

	hook := &gh.Hook{
		Events: events,
		Active: gh.Ptr(true),
		Config: &gh.HookConfig{
			URL:         gh.Ptr(callbackURL),
			ContentType: gh.Ptr("json"),
		},
	}
	if secret != "" {
		hook.Config.Secret = gh.Ptr(secret)
	}

	created, resp, err := client.Repositories.CreateHook(ctx, owner, repo, hook)
	if err != nil {
		return 0, c.wrapError(resp, err, "create hook")
	}
	c.updateRateLimitFromResponse(resp)
	return created.GetID(), nil
}

// DeleteHook deletes a repository hook. A hook that no longer exists is
// treated as deleted.
func (c *Client) DeleteHook(ctx context.Context, owner, repo string, id int64) error {
	client, err := c.ensureClient(ctx)
	if err != nil {
		return err
	}
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}

	resp, err := client.Repositories.DeleteHook(ctx, owner, repo, id)
	if err != nil {
		wrapped := c.wrapError(resp, err, "delete hook")
		if IsNotFound(wrapped) {
			return nil
		}
		return wrapped
	}
	c.updateRateLimitFromResponse(resp)
	return nil
}

// RateLimiter returns the client's rate limiter.
func (c *Client) RateLimiter() *RateLimiter {
	return c.rateLimiter
}

func (c *Client) updateRateLimitFromResponse(resp *gh.Response) {
	if resp == nil || resp.Response == nil {
		return
	}
	c.rateLimiter.UpdateFromResponse(resp.Response)
}

// wrapError converts go-github errors to our error types.
func (c *Client) wrapError(resp *gh.Response, err error, operation string) error {
	if err == nil {
		return nil
	}

	var rateLimitErr *gh.RateLimitError
	if errors.As(err, &rateLimitErr) {
		c.updateRateLimitFromResponse(resp)
		return c.rateLimiter.snapshot()
	}
	var abuseErr *gh.AbuseRateLimitError
	if errors.As(err, &abuseErr) {
		limited := c.rateLimiter.snapshot()
		if abuseErr.RetryAfter != nil {
			limited.ResetAt = time.Now().Add(*abuseErr.RetryAfter)
		}
		return limited
	}
	if resp != nil && resp.Response != nil {
		if limited := c.rateLimiter.CheckRateLimit(resp.Response); limited != nil {
			return limited
		}
	}

	var ghErr *gh.ErrorResponse
	if errors.As(err, &ghErr) && ghErr.Response != nil {
		apiErr := &APIError{StatusCode: ghErr.Response.StatusCode, Message: ghErr.Message}
		if ghErr.Response.Request != nil {
			apiErr.URL = ghErr.Response.Request.URL.String()
		}
		return apiErr
	}

	return fmt.Errorf("%s: %w", operation, err)
}

func formatHookID(id int64) string {
	return strconv.FormatInt(id, 10)
}

func parseHookID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidHookID, s)
	}
	return id, nil
}
