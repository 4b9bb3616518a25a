package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"time"
)

// Book is a single library entry. ID is the stable primary key used for
// de-duplication across overlapping list responses.
type Book struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Author   string `json:"author,omitempty"`
	CoverURL string `json:"coverUrl,omitempty"`
	Format   string `json:"format,omitempty"`
	Private  bool   `json:"private,omitempty"`

	AddedAt   time.Time `json:"addedAt,omitempty"`
	UpdatedAt time.Time `json:"updatedAt,omitempty"`
}

// Pagination carries the server-side total for a list response.
type Pagination struct {
	Total int `json:"total"`
}

// BookList is the standard list response shape:
// {"books": [...], "pagination": {"total": N}}.
type BookList struct {
	Books      []Book     `json:"books"`
	Pagination Pagination `json:"pagination"`
}

// ReadingProgress is the server-side reading position for a book.
type ReadingProgress struct {
	BookID    string    `json:"bookId"`
	Ratio     float64   `json:"ratio"`
	Locator   string    `json:"locator,omitempty"`
	UpdatedAt time.Time `json:"updatedAt,omitempty"`
}

// ListOptions are the common list query parameters.
type ListOptions struct {
	Page  int
	Limit int
	Scope string
	Sort  string
	Order string
}

// Values converts the options to canonical query parameters. Zero-valued
// fields are omitted so keys stay stable across call sites.
func (o ListOptions) Values() url.Values {
	params := url.Values{}
	if o.Page > 0 {
		params.Set("page", strconv.Itoa(o.Page))
	}
	if o.Limit > 0 {
		params.Set("limit", strconv.Itoa(o.Limit))
	}
	if o.Scope != "" {
		params.Set("scope", o.Scope)
	}
	if o.Sort != "" {
		params.Set("sort", o.Sort)
	}
	if o.Order != "" {
		params.Set("order", o.Order)
	}
	return params
}

// ListBooks fetches one page of the library list.
func (c *Client) ListBooks(ctx context.Context, opts ListOptions) (*BookList, error) {
	return c.fetchList(ctx, "/books", opts.Values())
}

// RecentBooks fetches the most recently added books.
func (c *Client) RecentBooks(ctx context.Context, limit int) (*BookList, error) {
	params := url.Values{}
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}
	return c.fetchList(ctx, "/books/recent", params)
}

// RecommendedBooks fetches the recommendation list.
func (c *Client) RecommendedBooks(ctx context.Context, limit int) (*BookList, error) {
	params := url.Values{}
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}
	return c.fetchList(ctx, "/books/recommended", params)
}

// PrivateBooks fetches the caller's private-scope books.
func (c *Client) PrivateBooks(ctx context.Context, opts ListOptions) (*BookList, error) {
	opts.Scope = "private"
	return c.fetchList(ctx, "/books", opts.Values())
}

// fetchList performs the request and decodes the standard list shape.
func (c *Client) fetchList(ctx context.Context, path string, params url.Values) (*BookList, error) {
	body, err := c.GetJSON(ctx, path, params)
	if err != nil {
		return nil, err
	}

	var list BookList
	if err := json.Unmarshal(body, &list); err != nil {
		return nil, fmt.Errorf("decode book list: %w", err)
	}

	return &list, nil
}

// GetProgress fetches the authoritative reading position for a book.
// Returns ErrNoProgress when the server has none.
func (c *Client) GetProgress(ctx context.Context, bookID string) (*ReadingProgress, error) {
	params := url.Values{}
	params.Set("bookId", bookID)

	body, err := c.GetJSON(ctx, "/reading/progress", params)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == 404 {
			return nil, ErrNoProgress
		}
		return nil, err
	}

	var progress ReadingProgress
	if err := json.Unmarshal(body, &progress); err != nil {
		return nil, fmt.Errorf("decode reading progress: %w", err)
	}

	return &progress, nil
}

// PutProgress writes the reading position to the server.
func (c *Client) PutProgress(ctx context.Context, progress ReadingProgress) error {
	return c.putJSON(ctx, "/reading/progress", progress)
}
