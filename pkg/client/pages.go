package client

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shelfhaven/shelfsync/pkg/merge"
)

// BatchConfig holds configuration for parallel page fetching.
type BatchConfig struct {
	// MaxConcurrency is the maximum number of parallel page requests
	MaxConcurrency int
	// Timeout per page fetch
	Timeout time.Duration
	// PageSize is the limit parameter sent per page
	PageSize int
}

// DefaultBatchConfig returns safe defaults for a personal library backend.
func DefaultBatchConfig() BatchConfig {
	return BatchConfig{
		MaxConcurrency: 4,
		Timeout:        5 * time.Second,
		PageSize:       50,
	}
}

// pageResult carries one fetched page through the worker pool.
type pageResult struct {
	pageNumber int
	books      []Book
	err        error
}

// AllBooks fetches every page of the library list in parallel and returns
// the de-duplicated union. Pages that fail are skipped with a warning;
// partial results are still returned so a flaky connection degrades
// gracefully instead of failing the whole sync.
func (c *Client) AllBooks(ctx context.Context, opts ListOptions, cfg BatchConfig) ([]Book, error) {
	if cfg.MaxConcurrency <= 0 {
		cfg.MaxConcurrency = 4
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = 50
	}

	start := time.Now()

	// Fetch first page to learn the total
	opts.Limit = cfg.PageSize
	opts.Page = 1
	first, err := c.ListBooks(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("fetch first page: %w", err)
	}

	totalPages := 1
	if first.Pagination.Total > cfg.PageSize {
		totalPages = (first.Pagination.Total + cfg.PageSize - 1) / cfg.PageSize
	}

	c.logger.Info().
		Int("total", first.Pagination.Total).
		Int("total_pages", totalPages).
		Msg("Starting parallel page fetch")

	if totalPages == 1 {
		return merge.ByKey(first.Books, bookID), nil
	}

	pageQueue := make(chan int, totalPages)
	results := make(chan pageResult, totalPages)

	go func() {
		for page := 2; page <= totalPages; page++ {
			pageQueue <- page
		}
		close(pageQueue)
	}()

	var wg sync.WaitGroup
	for i := 0; i < cfg.MaxConcurrency; i++ {
		wg.Add(1)
		go c.pageWorker(ctx, opts, cfg, pageQueue, results, &wg)
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	pages := make([][]Book, 1, totalPages)
	pages[0] = first.Books
	failed := 0

	for result := range results {
		if result.err != nil {
			failed++
			c.logger.Warn().
				Err(result.err).
				Int("page", result.pageNumber).
				Msg("Page fetch failed")
			continue
		}
		pages = append(pages, result.books)
	}

	books := merge.ByKey(merge.Flatten(pages...), bookID)

	c.logger.Info().
		Int("books", len(books)).
		Int("failed_pages", failed).
		Dur("duration", time.Since(start)).
		Msg("Fetch complete")

	if failed > 0 {
		return books, fmt.Errorf("partial result: %d/%d pages failed", failed, totalPages)
	}

	return books, nil
}

// pageWorker processes pages from the queue.
func (c *Client) pageWorker(ctx context.Context, opts ListOptions, cfg BatchConfig, pageQueue <-chan int, results chan<- pageResult, wg *sync.WaitGroup) {
	defer wg.Done()

	for pageNum := range pageQueue {
		select {
		case <-ctx.Done():
			return
		default:
		}

		pageCtx, cancel := context.WithTimeout(ctx, cfg.Timeout)
		pageOpts := opts
		pageOpts.Page = pageNum
		list, err := c.ListBooks(pageCtx, pageOpts)
		cancel()

		if err != nil {
			select {
			case results <- pageResult{pageNumber: pageNum, err: err}:
			case <-ctx.Done():
				return
			}
			continue
		}

		select {
		case results <- pageResult{pageNumber: pageNum, books: list.Books}:
		case <-ctx.Done():
			return
		}
	}
}

// bookID is the merge key for book records.
func bookID(b Book) string { return b.ID }
