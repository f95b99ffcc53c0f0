package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/mrcosta/backoffice/models"
	"github.com/robfig/cron/v3"
)

// Scheduler triggers the directory syncs on a cron schedule so the catalog
// stays fresh without manual runs.
type Scheduler struct {
	syncService  *SyncService
	cron         *cron.Cron
	spec         string
	pollInterval time.Duration
}

func NewScheduler(syncService *SyncService, spec string, pollInterval time.Duration) *Scheduler {
	if pollInterval <= 0 {
		pollInterval = 4 * time.Second
	}
	return &Scheduler{
		syncService:  syncService,
		cron:         cron.New(),
		spec:         spec,
		pollInterval: pollInterval,
	}
}

// Start validates the schedule and begins running it. The courses sync
// chains after universities finish so course rows can resolve their
// university.
func (s *Scheduler) Start() error {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	if _, err := parser.Parse(s.spec); err != nil {
		return fmt.Errorf("invalid cron expression %q: %w", s.spec, err)
	}

	if _, err := s.cron.AddFunc(s.spec, s.runScheduledSync); err != nil {
		return fmt.Errorf("failed to schedule sync: %w", err)
	}

	s.cron.Start()
	slog.Info("Scheduler started", "spec", s.spec)
	return nil
}

// Stop halts the schedule. Running jobs are left to finish.
func (s *Scheduler) Stop() {
	s.cron.Stop()
	slog.Info("Scheduler stopped")
}

func (s *Scheduler) runScheduledSync() {
	ctx := context.Background()

	for _, kind := range []string{models.SyncKindUniversities, models.SyncKindCourses, models.SyncKindEnrichment} {
		job, err := s.syncService.Start(ctx, kind, "scheduler")
		if err != nil {
			if errors.Is(err, ErrSyncAlreadyRunning) {
				slog.Info("Scheduled sync skipped, already running", "kind", kind)
				continue
			}
			slog.Error("Scheduled sync failed to start", "kind", kind, "error", err)
			continue
		}
		slog.Info("Scheduled sync started", "kind", kind, "job_id", job.ID)

		// Wait for this kind to settle before starting the next one.
		s.waitForJob(ctx, job.ID)
	}
}

func (s *Scheduler) waitForJob(ctx context.Context, jobID string) {
	for {
		job, err := s.syncService.repo.GetSyncJob(ctx, jobID)
		if err != nil || job == nil {
			return
		}
		if models.SyncTerminal(job.Status) {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(s.pollInterval):
		}
	}
}
