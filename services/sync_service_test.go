package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/mrcosta/backoffice/models"
	"github.com/mrcosta/backoffice/repository"
	"github.com/mrcosta/backoffice/websocket"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newSyncTestService(t *testing.T) *SyncService {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	repo := repository.NewGORMRepository(db)
	if err := repo.AutoMigrate(); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	hub := websocket.NewHub()
	go hub.Run()
	return NewSyncService(repo, hub)
}

// waitForSettled polls until no job of the kind is running.
func waitForSettled(t *testing.T, svc *SyncService, kind string) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		running, err := svc.repo.GetRunningSyncJob(context.Background(), kind)
		if err != nil {
			t.Fatalf("get running sync: %v", err)
		}
		if running == nil {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("sync of kind %s never settled", kind)
}

func TestStartRejectsUnknownKind(t *testing.T) {
	svc := newSyncTestService(t)

	_, err := svc.Start(context.Background(), "nonsense", "")
	if !errors.Is(err, ErrUnknownSyncKind) {
		t.Fatalf("err = %v, want ErrUnknownSyncKind", err)
	}
}

func TestStartAllowsExactlyOneJobPerKind(t *testing.T) {
	svc := newSyncTestService(t)
	release := make(chan struct{})
	svc.RegisterRunner(models.SyncKindUniversities, func(ctx context.Context, _ *models.SyncJob, _ ProgressFunc) error {
		select {
		case <-release:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	})

	// All starts race for the same kind at once.
	const starters = 8
	var wg sync.WaitGroup
	results := make(chan error, starters)
	for i := 0; i < starters; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Start(context.Background(), models.SyncKindUniversities, "dges")
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var started, rejected int
	for err := range results {
		switch {
		case err == nil:
			started++
		case errors.Is(err, ErrSyncAlreadyRunning):
			rejected++
		default:
			t.Fatalf("unexpected start error: %v", err)
		}
	}
	if started != 1 {
		t.Errorf("started = %d, want 1", started)
	}
	if rejected != starters-1 {
		t.Errorf("rejected = %d, want %d", rejected, starters-1)
	}

	close(release)
	waitForSettled(t, svc, models.SyncKindUniversities)
}

func TestStartAllowedAgainAfterFinish(t *testing.T) {
	svc := newSyncTestService(t)
	svc.RegisterRunner(models.SyncKindCourses, func(context.Context, *models.SyncJob, ProgressFunc) error {
		return nil
	})

	first, err := svc.Start(context.Background(), models.SyncKindCourses, "dges")
	if err != nil {
		t.Fatalf("first start: %v", err)
	}
	waitForSettled(t, svc, models.SyncKindCourses)

	second, err := svc.Start(context.Background(), models.SyncKindCourses, "dges")
	if err != nil {
		t.Fatalf("second start after finish: %v", err)
	}
	if second.ID == first.ID {
		t.Error("second run reused the first job id")
	}
	waitForSettled(t, svc, models.SyncKindCourses)
}

func TestStopSettlesJobAsStopped(t *testing.T) {
	svc := newSyncTestService(t)
	svc.RegisterRunner(models.SyncKindUniversities, func(ctx context.Context, _ *models.SyncJob, _ ProgressFunc) error {
		<-ctx.Done()
		return ctx.Err()
	})

	job, err := svc.Start(context.Background(), models.SyncKindUniversities, "dges")
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	if _, err := svc.Stop(context.Background(), job.ID); err != nil {
		t.Fatalf("stop: %v", err)
	}
	waitForSettled(t, svc, models.SyncKindUniversities)

	got, err := svc.repo.GetSyncJob(context.Background(), job.ID)
	if err != nil {
		t.Fatalf("get sync job: %v", err)
	}
	if got.Status != models.SyncStatusStopped {
		t.Errorf("status = %q, want %q", got.Status, models.SyncStatusStopped)
	}
}

func TestRunnerFailureSettlesJobAsFailed(t *testing.T) {
	svc := newSyncTestService(t)
	svc.RegisterRunner(models.SyncKindCourses, func(context.Context, *models.SyncJob, ProgressFunc) error {
		return errors.New("source unreachable")
	})

	job, err := svc.Start(context.Background(), models.SyncKindCourses, "dges")
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	waitForSettled(t, svc, models.SyncKindCourses)

	got, err := svc.repo.GetSyncJob(context.Background(), job.ID)
	if err != nil {
		t.Fatalf("get sync job: %v", err)
	}
	if got.Status != models.SyncStatusFailed {
		t.Errorf("status = %q, want %q", got.Status, models.SyncStatusFailed)
	}
	if got.Error != "source unreachable" {
		t.Errorf("error = %q, want %q", got.Error, "source unreachable")
	}
}

func TestProgressPersistedWhileRunning(t *testing.T) {
	svc := newSyncTestService(t)
	reported := make(chan struct{})
	release := make(chan struct{})
	svc.RegisterRunner(models.SyncKindUniversities, func(ctx context.Context, _ *models.SyncJob, report ProgressFunc) error {
		report(12, 8, 3, 1)
		close(reported)
		select {
		case <-release:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	})

	job, err := svc.Start(context.Background(), models.SyncKindUniversities, "dges")
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	select {
	case <-reported:
	case <-time.After(5 * time.Second):
		t.Fatal("runner never reported progress")
	}

	got, err := svc.repo.GetSyncJob(context.Background(), job.ID)
	if err != nil {
		t.Fatalf("get sync job: %v", err)
	}
	if got.RecordsFound != 12 || got.RecordsCreated != 8 || got.RecordsUpdated != 3 || got.RecordsFailed != 1 {
		t.Errorf("counters = found=%d created=%d updated=%d failed=%d, want 12/8/3/1",
			got.RecordsFound, got.RecordsCreated, got.RecordsUpdated, got.RecordsFailed)
	}

	close(release)
	waitForSettled(t, svc, models.SyncKindUniversities)
}
