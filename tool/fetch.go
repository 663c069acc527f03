package tool

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/researchmesh/researchmesh/core"
	"github.com/researchmesh/researchmesh/internal/util"
)

// Fetcher retrieves raw page content for a URL. Implementations own their
// transport concerns (TLS, redirects, user agent).
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// HTTPFetcher is the default Fetcher backed by net/http.
type HTTPFetcher struct {
	client   *http.Client
	maxBytes int64
}

// HTTPFetcherOptions configures the HTTPFetcher.
type HTTPFetcherOptions struct {
	Timeout  time.Duration
	MaxBytes int64
}

// NewHTTPFetcher returns a Fetcher with sane timeout and size bounds.
func NewHTTPFetcher(optFns ...func(o *HTTPFetcherOptions)) *HTTPFetcher {
	opts := HTTPFetcherOptions{
		Timeout:  20 * time.Second,
		MaxBytes: 4 << 20, // 4 MiB
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	return &HTTPFetcher{
		client:   &http.Client{Timeout: opts.Timeout},
		maxBytes: opts.MaxBytes,
	}
}

// Fetch implements Fetcher.
func (f *HTTPFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request for %s: %w", url, err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("fetch %s: unexpected status %d", url, resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", url, err)
	}

	return data, nil
}

var _ Fetcher = (*HTTPFetcher)(nil)

// StaticFetcher serves canned page bytes keyed by URL. Useful for tests.
type StaticFetcher struct {
	mu    sync.RWMutex
	pages map[string][]byte
}

// NewStaticFetcher returns an empty StaticFetcher.
func NewStaticFetcher() *StaticFetcher {
	return &StaticFetcher{pages: map[string][]byte{}}
}

// AddPage registers canned content for a URL.
func (f *StaticFetcher) AddPage(url string, data []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pages[url] = data
}

// Fetch implements Fetcher.
func (f *StaticFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f.mu.RLock()
	defer f.mu.RUnlock()
	data, ok := f.pages[url]
	if !ok {
		return nil, fmt.Errorf("no content for %s", url)
	}
	return data, nil
}

var _ Fetcher = (*StaticFetcher)(nil)

// NewFetchPageTool returns a tool that fetches a page and stores its content
// in the session's document store.
func NewFetchPageTool(fetcher Fetcher) Tool {
	return NewFunctionTool(
		"fetch_page",
		"Fetch the content of a web page and store it as a session document. Returns the document id.",
		map[string]any{
			"type": "object",
			"properties": map[string]any{
				"url": map[string]any{"type": "string", "description": "Page URL to fetch"},
			},
			"required": []string{"url"},
		},
		func(tc *core.ToolContext, args map[string]any) (any, error) {
			if fetcher == nil {
				return nil, fmt.Errorf("fetcher not configured")
			}

			url := args["url"].(string)
			data, err := fetcher.Fetch(tc.Context(), url)
			if err != nil {
				return nil, err
			}

			docID := util.NewID()
			if err := tc.SaveDocument(docID, data); err != nil {
				return nil, fmt.Errorf("store document for %s: %w", url, err)
			}

			return map[string]any{
				"documentId": docID,
				"url":        url,
				"bytes":      len(data),
			}, nil
		},
	)
}
