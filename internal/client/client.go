// Package client talks to the knowledge-base REST API: pages and the blocks
// they own. Every request carries a bearer token; without one the call
// fails with ErrNotAuthenticated before touching the network.
package client

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

	"blocknotes/internal/domain"
)

// TokenSource supplies the bearer credential. An empty token means the
// user is not signed in.
type TokenSource interface {
	Token() string
}

// StaticToken is a fixed credential.
type StaticToken string

func (t StaticToken) Token() string { return string(t) }

// Client provides typed access to the knowledge-base API.
// It is safe for concurrent use.
type Client struct {
	baseURL    string
	httpClient *http.Client
	tokens     TokenSource
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// New creates a client for baseURL (e.g. "http://localhost:8000/api/kb").
func New(baseURL string, tokens TokenSource, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
		tokens:     tokens,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ── Pages ──────────────────────────────────────────────────

// ListPages returns the pages under parentID (root pages when nil), each
// with its subtree in Children.
func (c *Client) ListPages(ctx context.Context, parentID *domain.ID) ([]domain.Page, error) {
	path := "/pages"
	if parentID != nil {
		path += "?parent_id=" + url.QueryEscape(parentID.String())
	}
	var pages []domain.Page
	if err := c.do(ctx, OpListPages, http.MethodGet, path, nil, &pages); err != nil {
		return nil, err
	}
	if pages == nil {
		pages = []domain.Page{}
	}
	return pages, nil
}

// GetPage returns a page with its blocks.
func (c *Client) GetPage(ctx context.Context, id domain.ID) (*domain.Page, error) {
	var page domain.Page
	if err := c.do(ctx, OpGetPage, http.MethodGet, "/pages/"+url.PathEscape(id.String()), nil, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// CreatePage creates a page. A blank title becomes the default title.
func (c *Client) CreatePage(ctx context.Context, in domain.PageInput) (*domain.Page, error) {
	if in.Title == "" {
		in.Title = domain.DefaultPageTitle
	}
	var page domain.Page
	if err := c.do(ctx, OpCreatePage, http.MethodPost, "/pages", in, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// UpdatePage renames, re-icons or moves a page.
func (c *Client) UpdatePage(ctx context.Context, id domain.ID, patch domain.PagePatch) (*domain.Page, error) {
	var page domain.Page
	if err := c.do(ctx, OpUpdatePage, http.MethodPatch, "/pages/"+url.PathEscape(id.String()), patch, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// DeletePage removes a page and, server side, its blocks and subpages.
func (c *Client) DeletePage(ctx context.Context, id domain.ID) error {
	return c.do(ctx, OpDeletePage, http.MethodDelete, "/pages/"+url.PathEscape(id.String()), nil, nil)
}

// ── Blocks ─────────────────────────────────────────────────

// CreateBlock adds a block to a page.
func (c *Client) CreateBlock(ctx context.Context, pageID domain.ID, in domain.BlockInput) (*domain.Block, error) {
	if in.Type == "" {
		in.Type = domain.BlockTypeText
	}
	var b domain.Block
	path := "/pages/" + url.PathEscape(pageID.String()) + "/blocks"
	if err := c.do(ctx, OpCreateBlock, http.MethodPost, path, in, &b); err != nil {
		return nil, err
	}
	if b.PageID.IsZero() {
		b.PageID = pageID
	}
	return &b, nil
}

// UpdateBlock patches a block and returns the stored record.
func (c *Client) UpdateBlock(ctx context.Context, id domain.ID, patch domain.BlockPatch) (*domain.Block, error) {
	var b domain.Block
	if err := c.do(ctx, OpUpdateBlock, http.MethodPatch, "/blocks/"+url.PathEscape(id.String()), patch, &b); err != nil {
		return nil, err
	}
	return &b, nil
}

// DeleteBlock removes a block.
func (c *Client) DeleteBlock(ctx context.Context, id domain.ID) error {
	return c.do(ctx, OpDeleteBlock, http.MethodDelete, "/blocks/"+url.PathEscape(id.String()), nil, nil)
}

// ── transport ──────────────────────────────────────────────

func (c *Client) do(ctx context.Context, op Op, method, path string, body, target any) error {
	token := ""
	if c.tokens != nil {
		token = c.tokens.Token()
	}
	if token == "" {
		return fmt.Errorf("%s: %w", op, ErrNotAuthenticated)
	}

	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%s: marshal request: %w", op, err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("%s: build request: %w", op, err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return transportError(op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return statusError(op, resp.StatusCode, string(detail))
	}
	if target == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
		return &Error{Op: op, Status: resp.StatusCode, Err: fmt.Errorf("%s: decode response: %w", op, err)}
	}
	return nil
}
