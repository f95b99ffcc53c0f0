package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mrcosta/backoffice/models"
)

// jobServer serves a scripted sequence of sync job states, one per poll.
// Once the script is exhausted the last state repeats.
type jobServer struct {
	mu       sync.Mutex
	states   []models.SyncJob
	polls    int
	inFlight atomic.Int32
	overlap  atomic.Bool
}

func (s *jobServer) handler(w http.ResponseWriter, r *http.Request) {
	if s.inFlight.Add(1) > 1 {
		s.overlap.Store(true)
	}
	defer s.inFlight.Add(-1)

	// Slow responses make overlapping ticks detectable.
	time.Sleep(20 * time.Millisecond)

	s.mu.Lock()
	idx := s.polls
	if idx >= len(s.states) {
		idx = len(s.states) - 1
	}
	job := s.states[idx]
	s.polls++
	s.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(job)
}

func (s *jobServer) pollCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.polls
}

func runningJob(id string, found int) models.SyncJob {
	return models.SyncJob{ID: id, Kind: "universities", Status: models.SyncStatusRunning, RecordsFound: found}
}

func terminalJob(id, status string, found int) models.SyncJob {
	return models.SyncJob{ID: id, Kind: "universities", Status: status, RecordsFound: found}
}

func TestWatchStopsOnTerminalStatus(t *testing.T) {
	js := &jobServer{states: []models.SyncJob{
		runningJob("job-1", 10),
		runningJob("job-1", 20),
		terminalJob("job-1", models.SyncStatusCompleted, 30),
	}}
	srv := httptest.NewServer(http.HandlerFunc(js.handler))
	defer srv.Close()

	c := New(srv.URL)
	var progressCalls int
	job, err := c.Watch(context.Background(), "job-1", WatchOptions{
		Interval: 10 * time.Millisecond,
		OnProgress: func(j *models.SyncJob) {
			progressCalls++
		},
	})
	if err != nil {
		t.Fatalf("Watch returned error: %v", err)
	}
	if job.Status != models.SyncStatusCompleted {
		t.Errorf("Expected completed status, got %s", job.Status)
	}
	if job.RecordsFound != 30 {
		t.Errorf("Expected final counters, got found=%d", job.RecordsFound)
	}
	if progressCalls != 3 {
		t.Errorf("Expected 3 progress calls, got %d", progressCalls)
	}

	// The watcher must not poll again after observing the terminal status.
	finalPolls := js.pollCount()
	if finalPolls != 3 {
		t.Errorf("Expected exactly 3 polls, got %d", finalPolls)
	}
	time.Sleep(60 * time.Millisecond)
	if js.pollCount() != finalPolls {
		t.Errorf("Watcher kept polling after terminal status: %d -> %d", finalPolls, js.pollCount())
	}
}

func TestWatchStopsOnFailedAndStopped(t *testing.T) {
	for _, status := range []string{models.SyncStatusFailed, models.SyncStatusStopped} {
		t.Run(status, func(t *testing.T) {
			js := &jobServer{states: []models.SyncJob{
				runningJob("job-2", 5),
				terminalJob("job-2", status, 5),
			}}
			srv := httptest.NewServer(http.HandlerFunc(js.handler))
			defer srv.Close()

			c := New(srv.URL)
			job, err := c.Watch(context.Background(), "job-2", WatchOptions{Interval: 10 * time.Millisecond})
			if err != nil {
				t.Fatalf("Watch returned error: %v", err)
			}
			if job.Status != status {
				t.Errorf("Expected %s, got %s", status, job.Status)
			}
		})
	}
}

func TestWatchImmediatelyTerminal(t *testing.T) {
	js := &jobServer{states: []models.SyncJob{
		terminalJob("job-3", models.SyncStatusCompleted, 0),
	}}
	srv := httptest.NewServer(http.HandlerFunc(js.handler))
	defer srv.Close()

	c := New(srv.URL)
	job, err := c.Watch(context.Background(), "job-3", WatchOptions{Interval: 10 * time.Millisecond})
	if err != nil {
		t.Fatalf("Watch returned error: %v", err)
	}
	if job.Status != models.SyncStatusCompleted {
		t.Errorf("Expected completed, got %s", job.Status)
	}
	if js.pollCount() != 1 {
		t.Errorf("Expected a single poll, got %d", js.pollCount())
	}
}

func TestWatchPollsSerially(t *testing.T) {
	states := make([]models.SyncJob, 0, 6)
	for i := 0; i < 5; i++ {
		states = append(states, runningJob("job-4", i))
	}
	states = append(states, terminalJob("job-4", models.SyncStatusCompleted, 5))

	js := &jobServer{states: states}
	srv := httptest.NewServer(http.HandlerFunc(js.handler))
	defer srv.Close()

	c := New(srv.URL)
	// Interval shorter than the server's response time: overlap would occur
	// if ticks were scheduled independently of poll completion.
	if _, err := c.Watch(context.Background(), "job-4", WatchOptions{Interval: time.Millisecond}); err != nil {
		t.Fatalf("Watch returned error: %v", err)
	}
	if js.overlap.Load() {
		t.Error("Detected overlapping in-flight polls")
	}
}

func TestWatchToleratesTransientErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := calls.Add(1)
		if n <= 2 {
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(terminalJob("job-5", models.SyncStatusCompleted, 1))
	}))
	defer srv.Close()

	c := New(srv.URL)
	job, err := c.Watch(context.Background(), "job-5", WatchOptions{Interval: time.Millisecond})
	if err != nil {
		t.Fatalf("Watch should survive transient errors, got: %v", err)
	}
	if job.Status != models.SyncStatusCompleted {
		t.Errorf("Expected completed, got %s", job.Status)
	}
}

func TestWatchConsecutiveErrorCap(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := New(srv.URL)
	_, err := c.Watch(context.Background(), "job-6", WatchOptions{
		Interval:             time.Millisecond,
		MaxConsecutiveErrors: 3,
	})
	if !errors.Is(err, ErrTooManyPollErrors) {
		t.Fatalf("Expected ErrTooManyPollErrors, got: %v", err)
	}
	if got := calls.Load(); got != 3 {
		t.Errorf("Expected exactly 3 polls before giving up, got %d", got)
	}
}

func TestWatchContextCancellation(t *testing.T) {
	js := &jobServer{states: []models.SyncJob{runningJob("job-7", 0)}}
	srv := httptest.NewServer(http.HandlerFunc(js.handler))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	c := New(srv.URL)
	_, err := c.Watch(ctx, "job-7", WatchOptions{Interval: 10 * time.Millisecond})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Expected context.Canceled, got: %v", err)
	}
}

func TestStartAndWatchUsesReturnedJobID(t *testing.T) {
	var polledID atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/api/v1/sync/start":
			w.WriteHeader(http.StatusAccepted)
			json.NewEncoder(w).Encode(runningJob("job-8", 0))
		case r.Method == http.MethodGet && r.URL.Path == "/api/v1/sync/job-8":
			polledID.Store("job-8")
			json.NewEncoder(w).Encode(terminalJob("job-8", models.SyncStatusCompleted, 2))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c := New(srv.URL)
	job, err := c.StartAndWatch(context.Background(), "universities", WatchOptions{Interval: time.Millisecond})
	if err != nil {
		t.Fatalf("StartAndWatch returned error: %v", err)
	}
	if job.ID != "job-8" {
		t.Errorf("Expected job-8, got %s", job.ID)
	}
	if polledID.Load() != "job-8" {
		t.Error("Watcher did not poll the job id returned by start")
	}
}
