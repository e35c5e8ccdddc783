// Package transport is the HTTP JSON client the console uses to reach the
// gatekeeper REST API.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/xraph/gatekeeper/pagination"
	"github.com/xraph/gatekeeper/user"
)

// DefaultTimeout bounds a single request.
const DefaultTimeout = 30 * time.Second

// Resource kinds, used as path segments.
const (
	KindRoles       = "roles"
	KindPermissions = "permissions"
	KindUsers       = "users"
)

// User actions.
const (
	ActionLock          = "lock"
	ActionUnlock        = "unlock"
	ActionResetPassword = "reset-password"
)

// PageResponse is one page of a server-mode list.
type PageResponse[T any] struct {
	Items       []T   `json:"items"`
	CurrentPage int   `json:"currentPage"`
	TotalItems  int64 `json:"totalItems"`
	TotalPages  int   `json:"totalPages"`
}

// Page returns the pagination metadata for a page of size items.
func (p PageResponse[T]) Page(size int) pagination.Page {
	return pagination.Page{
		CurrentPage: p.CurrentPage,
		Size:        size,
		TotalItems:  p.TotalItems,
		TotalPages:  p.TotalPages,
	}
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying *http.Client.
func WithHTTPClient(hc *http.Client) Option { return func(c *Client) { c.httpClient = hc } }

// WithHeader adds a header sent with every request.
func WithHeader(key, value string) Option {
	return func(c *Client) { c.header.Add(key, value) }
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option { return func(c *Client) { c.logger = l } }

// Client talks to the REST API rooted at a base URL such as
// "http://localhost:8080/v1".
type Client struct {
	baseURL    string
	httpClient *http.Client
	header     http.Header
	logger     *slog.Logger
}

// New creates a Client.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: DefaultTimeout},
		header:     make(http.Header),
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ──────────────────────────────────────────────────
// Resource verbs
// ──────────────────────────────────────────────────

// List fetches one page of kind into out, which should point to a
// PageResponse.
func (c *Client) List(ctx context.Context, kind string, q pagination.Query, out any) error {
	q = q.Normalize()
	v := url.Values{}
	v.Set("page", strconv.Itoa(q.Page))
	v.Set("size", strconv.Itoa(q.Size))
	if q.SortBy != "" {
		v.Set("sortBy", q.SortBy)
		v.Set("direction", string(q.Direction))
	}
	if q.Search != "" {
		v.Set("search", q.Search)
	}
	return c.Do(ctx, http.MethodGet, v, nil, out, kind)
}

// ListAll fetches the whole collection of kind into out, which should point
// to a slice.
func (c *Client) ListAll(ctx context.Context, kind string, out any) error {
	return c.Do(ctx, http.MethodGet, url.Values{"all": {"true"}}, nil, out, kind)
}

// Get fetches one entity.
func (c *Client) Get(ctx context.Context, kind, id string, out any) error {
	return c.Do(ctx, http.MethodGet, nil, nil, out, kind, id)
}

// Create posts in and decodes the created entity into out.
func (c *Client) Create(ctx context.Context, kind string, in, out any) error {
	return c.Do(ctx, http.MethodPost, nil, in, out, kind)
}

// Update puts in and decodes the updated entity into out.
func (c *Client) Update(ctx context.Context, kind, id string, in, out any) error {
	return c.Do(ctx, http.MethodPut, nil, in, out, kind, id)
}

// Delete removes one entity.
func (c *Client) Delete(ctx context.Context, kind, id string) error {
	return c.Do(ctx, http.MethodDelete, nil, nil, nil, kind, id)
}

// Action posts to /kind/id/action, for example /users/{id}/lock.
func (c *Client) Action(ctx context.Context, kind, id, action string, out any) error {
	return c.Do(ctx, http.MethodPost, nil, nil, out, kind, id, action)
}

// SetRolePermissions replaces a role's permission set and decodes the
// updated role into out.
func (c *Client) SetRolePermissions(ctx context.Context, roleID string, permissionIDs []string, out any) error {
	in := struct {
		PermissionIDs []string `json:"permissionIds"`
	}{PermissionIDs: permissionIDs}
	return c.Do(ctx, http.MethodPut, nil, in, out, KindRoles, roleID, "permissions")
}

// CheckAvailability asks whether a username and/or email is free.
func (c *Client) CheckAvailability(ctx context.Context, req user.AvailabilityRequest) (*user.Availability, error) {
	v := url.Values{}
	if req.Username != "" {
		v.Set("username", req.Username)
	}
	if req.Email != "" {
		v.Set("email", req.Email)
	}
	if req.ExcludeID != "" {
		v.Set("excludeId", req.ExcludeID)
	}
	out := &user.Availability{}
	if err := c.Do(ctx, http.MethodGet, v, nil, out, KindUsers, "availability"); err != nil {
		return nil, err
	}
	return out, nil
}

// ──────────────────────────────────────────────────
// Plumbing
// ──────────────────────────────────────────────────

// Do sends a request to the path built from segments. A non-nil in is sent
// as JSON; a non-nil out receives the decoded response body.
func (c *Client) Do(ctx context.Context, method string, query url.Values, in, out any, segments ...string) error {
	u, err := url.JoinPath(c.baseURL, segments...)
	if err != nil {
		return fmt.Errorf("transport: build url: %w", err)
	}
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var body io.Reader
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("transport: encode request: %w", err)
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return fmt.Errorf("transport: new request: %w", err)
	}
	for k, vs := range c.header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("transport: %s %s: %w", method, u, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("transport: read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger.Debug("gatekeeper: request failed",
			"method", method, "url", u, "status", resp.StatusCode)
		return newError(resp.StatusCode, raw)
	}
	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("transport: decode response: %w", err)
	}
	return nil
}
