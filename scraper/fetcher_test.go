package scraper

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func TestFetcherGet(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ua := r.Header.Get("User-Agent"); !strings.Contains(ua, "Mozilla") {
			t.Errorf("Expected browser user agent, got %q", ua)
		}
		w.Write([]byte("<html>ok</html>"))
	}))
	defer server.Close()

	fetcher := NewFetcher(5*time.Second, 0)
	body, err := fetcher.Get(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if body != "<html>ok</html>" {
		t.Errorf("Unexpected body: %q", body)
	}
}

func TestFetcherRetriesOnServerError(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte("recovered"))
	}))
	defer server.Close()

	fetcher := NewFetcher(5*time.Second, 0)
	body, err := fetcher.Get(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Expected retry to succeed, got %v", err)
	}
	if body != "recovered" {
		t.Errorf("Unexpected body: %q", body)
	}
	if got := atomic.LoadInt32(&calls); got != 3 {
		t.Errorf("Expected 3 attempts, got %d", got)
	}
}

func TestFetcherGivesUpAfterRetries(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	fetcher := NewFetcher(5*time.Second, 0)
	if _, err := fetcher.Get(context.Background(), server.URL); err == nil {
		t.Fatal("Expected error after exhausting retries")
	}
	if got := atomic.LoadInt32(&calls); got != 3 {
		t.Errorf("Expected 3 attempts, got %d", got)
	}
}

func TestFetcherRateLimit(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	}))
	defer server.Close()

	fetcher := NewFetcher(5*time.Second, 50*time.Millisecond)

	start := time.Now()
	for i := 0; i < 3; i++ {
		if _, err := fetcher.Get(context.Background(), server.URL); err != nil {
			t.Fatalf("Get failed: %v", err)
		}
	}
	if elapsed := time.Since(start); elapsed < 100*time.Millisecond {
		t.Errorf("Expected at least 100ms for 3 rate-limited requests, took %v", elapsed)
	}
}

func TestFetcherContextCancellation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	}))
	defer server.Close()

	fetcher := NewFetcher(5*time.Second, time.Hour)
	fetcher.Get(context.Background(), server.URL) // arms the rate limiter

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if _, err := fetcher.Get(ctx, server.URL); err == nil {
		t.Fatal("Expected context cancellation while waiting for rate limit")
	}
}
