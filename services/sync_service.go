package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/mrcosta/backoffice/models"
	"github.com/mrcosta/backoffice/repository"
	"github.com/mrcosta/backoffice/websocket"
)

// ErrSyncAlreadyRunning is returned when a sync of the same kind is still in
// flight. Only one job per kind may run at a time.
var ErrSyncAlreadyRunning = errors.New("a sync of this kind is already running")

// ErrUnknownSyncKind is returned for kinds with no registered runner.
var ErrUnknownSyncKind = errors.New("unknown sync kind")

// ProgressFunc reports importer progress. Counters are cumulative totals,
// not deltas.
type ProgressFunc func(found, created, updated, failed int)

// SyncRunner executes one sync kind end to end. It must honor ctx
// cancellation and report progress through report.
type SyncRunner func(ctx context.Context, job *models.SyncJob, report ProgressFunc) error

// SyncService owns the sync job lifecycle: it starts runners in the
// background, persists their progress, and settles them into exactly one
// terminal status.
type SyncService struct {
	repo    *repository.GORMRepository
	hub     *websocket.Hub
	runners map[string]SyncRunner

	mu      sync.Mutex
	cancels map[string]context.CancelFunc
}

func NewSyncService(repo *repository.GORMRepository, hub *websocket.Hub) *SyncService {
	return &SyncService{
		repo:    repo,
		hub:     hub,
		runners: make(map[string]SyncRunner),
		cancels: make(map[string]context.CancelFunc),
	}
}

// RegisterRunner binds a runner to a sync kind. Must be called before Start
// for that kind.
func (s *SyncService) RegisterRunner(kind string, runner SyncRunner) {
	s.runners[kind] = runner
}

// Kinds lists the registered sync kinds.
func (s *SyncService) Kinds() []string {
	kinds := make([]string, 0, len(s.runners))
	for kind := range s.runners {
		kinds = append(kinds, kind)
	}
	return kinds
}

// Start creates a sync job and launches its runner in the background. It
// returns ErrSyncAlreadyRunning when a job of the same kind has not finished.
func (s *SyncService) Start(ctx context.Context, kind, source string) (*models.SyncJob, error) {
	runner, ok := s.runners[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSyncKind, kind)
	}

	// The running check and the insert must be serialized, otherwise two
	// concurrent starts of the same kind both pass the check.
	s.mu.Lock()
	running, err := s.repo.GetRunningSyncJob(ctx, kind)
	if err != nil {
		s.mu.Unlock()
		return nil, fmt.Errorf("failed to check running sync: %w", err)
	}
	if running != nil {
		s.mu.Unlock()
		return nil, ErrSyncAlreadyRunning
	}

	job := &models.SyncJob{
		Kind:      kind,
		Source:    source,
		Status:    models.SyncStatusRunning,
		StartedAt: time.Now(),
	}
	if err := s.repo.CreateSyncJob(ctx, job); err != nil {
		s.mu.Unlock()
		return nil, fmt.Errorf("failed to create sync job: %w", err)
	}

	// The runner outlives the request, so it gets its own context.
	runCtx, cancel := context.WithCancel(context.Background())
	s.cancels[job.ID] = cancel
	s.mu.Unlock()

	s.hub.Broadcast(websocket.Event{
		Type:   "sync_started",
		JobID:  job.ID,
		Kind:   job.Kind,
		Status: job.Status,
	})

	go s.run(runCtx, job, runner)

	slog.Info("Sync started", "job_id", job.ID, "kind", kind, "source", source)
	return job, nil
}

func (s *SyncService) run(ctx context.Context, job *models.SyncJob, runner SyncRunner) {
	defer func() {
		s.mu.Lock()
		if cancel, ok := s.cancels[job.ID]; ok {
			cancel()
			delete(s.cancels, job.ID)
		}
		s.mu.Unlock()
	}()

	// Watch for stop requests written by other instances.
	stopCtx, stopWatch := context.WithCancel(ctx)
	defer stopWatch()
	go s.watchStopRequest(stopCtx, job.ID)

	report := func(found, created, updated, failed int) {
		if err := s.repo.UpdateSyncJobProgress(context.Background(), job.ID, found, created, updated, failed); err != nil {
			slog.Warn("Failed to update sync progress", "job_id", job.ID, "error", err)
			return
		}
		s.hub.Broadcast(websocket.Event{
			Type:           "sync_progress",
			JobID:          job.ID,
			Kind:           job.Kind,
			Status:         models.SyncStatusRunning,
			RecordsFound:   found,
			RecordsCreated: created,
			RecordsUpdated: updated,
			RecordsFailed:  failed,
		})
	}

	err := runner(stopCtx, job, report)

	status := models.SyncStatusCompleted
	errMsg := ""
	switch {
	case stopCtx.Err() != nil:
		status = models.SyncStatusStopped
	case err != nil:
		status = models.SyncStatusFailed
		errMsg = err.Error()
	}

	if finishErr := s.repo.FinishSyncJob(context.Background(), job.ID, status, errMsg); finishErr != nil {
		slog.Error("Failed to finish sync job", "job_id", job.ID, "status", status, "error", finishErr)
		return
	}

	s.hub.Broadcast(websocket.Event{
		Type:   "sync_finished",
		JobID:  job.ID,
		Kind:   job.Kind,
		Status: status,
	})
	slog.Info("Sync finished", "job_id", job.ID, "kind", job.Kind, "status", status, "error", errMsg)
}

// watchStopRequest polls the job row and cancels the runner when a stop has
// been requested out of band.
func (s *SyncService) watchStopRequest(ctx context.Context, jobID string) {
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			job, err := s.repo.GetSyncJob(ctx, jobID)
			if err != nil || job == nil {
				continue
			}
			if job.StopRequested {
				s.Cancel(jobID)
				return
			}
			if models.SyncTerminal(job.Status) {
				return
			}
		}
	}
}

// Stop requests cancellation of a running job. The job settles to "stopped"
// once the runner observes the cancellation.
func (s *SyncService) Stop(ctx context.Context, jobID string) (*models.SyncJob, error) {
	job, err := s.repo.GetSyncJob(ctx, jobID)
	if err != nil {
		return nil, fmt.Errorf("failed to get sync job: %w", err)
	}
	if job == nil {
		return nil, nil
	}
	if models.SyncTerminal(job.Status) {
		return job, fmt.Errorf("sync job already %s", job.Status)
	}

	if _, err := s.repo.RequestSyncJobStop(ctx, jobID); err != nil {
		return nil, fmt.Errorf("failed to request stop: %w", err)
	}
	s.Cancel(jobID)

	slog.Info("Sync stop requested", "job_id", jobID)
	return job, nil
}

// Cancel cancels the in-process runner for jobID if this instance owns it.
func (s *SyncService) Cancel(jobID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cancel, ok := s.cancels[jobID]; ok {
		cancel()
	}
}

// StatusResponse is the payload the admin dashboard polls.
type StatusResponse struct {
	RunningSync *models.SyncJob       `json:"runningSync"`
	RecentSyncs []models.SyncJob      `json:"recentSyncs"`
	Stats       *repository.SyncStats `json:"stats"`
}

// Status reports the currently running job (if any), recent history and
// aggregate stats, optionally filtered by kind.
func (s *SyncService) Status(ctx context.Context, kind string) (*StatusResponse, error) {
	running, err := s.repo.GetRunningSyncJob(ctx, kind)
	if err != nil {
		return nil, fmt.Errorf("failed to get running sync: %w", err)
	}

	recent, err := s.repo.ListRecentSyncJobs(ctx, kind, 10)
	if err != nil {
		return nil, fmt.Errorf("failed to list recent syncs: %w", err)
	}

	stats, err := s.repo.GetSyncStats(ctx, kind)
	if err != nil {
		return nil, fmt.Errorf("failed to get sync stats: %w", err)
	}

	return &StatusResponse{
		RunningSync: running,
		RecentSyncs: recent,
		Stats:       stats,
	}, nil
}
