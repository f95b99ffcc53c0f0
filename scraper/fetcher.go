package scraper

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"
)

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"

// Fetcher is a rate-limited HTTP client shared by the scrapers. Requests are
// serialized per fetcher and at least Delay apart; transient failures are
// retried with a growing wait between attempts.
type Fetcher struct {
	client    *http.Client
	Delay     time.Duration
	Retries   int
	MaxBody   int64
	userAgent string

	mu   sync.Mutex
	last time.Time
}

func NewFetcher(timeout, delay time.Duration) *Fetcher {
	return &Fetcher{
		client:    &http.Client{Timeout: timeout},
		Delay:     delay,
		Retries:   3,
		MaxBody:   5 << 20, // 5 MB
		userAgent: defaultUserAgent,
	}
}

// Get fetches a page, honoring the rate limit and retrying on errors.
func (f *Fetcher) Get(ctx context.Context, url string) (string, error) {
	var lastErr error

	for attempt := 0; attempt < f.Retries; attempt++ {
		if err := f.waitTurn(ctx); err != nil {
			return "", err
		}

		body, err := f.fetch(ctx, url)
		if err == nil {
			return body, nil
		}
		lastErr = err

		if attempt < f.Retries-1 {
			slog.Warn("Fetch error, retrying", "url", url, "attempt", attempt+1, "error", err)
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(time.Duration(attempt+1) * 500 * time.Millisecond):
			}
		}
	}

	return "", fmt.Errorf("after %d attempts: %w", f.Retries, lastErr)
}

// waitTurn sleeps until the rate-limit window since the previous request has
// passed.
func (f *Fetcher) waitTurn(ctx context.Context) error {
	f.mu.Lock()
	now := time.Now()
	wait := f.last.Add(f.Delay).Sub(now)
	if wait < 0 {
		wait = 0
	}
	f.last = now.Add(wait)
	f.mu.Unlock()

	if wait == 0 {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(wait):
		return nil
	}
}

func (f *Fetcher) fetch(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "pt-PT,pt;q=0.9,en;q=0.8")

	resp, err := f.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status %d for %s", resp.StatusCode, url)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.MaxBody))
	if err != nil {
		return "", fmt.Errorf("failed to read body: %w", err)
	}
	return string(body), nil
}
