package repository

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/mrcosta/backoffice/models"
	"gorm.io/gorm"
)

// Sync job operations. The state machine is enforced here: counters can only
// change while the job is running, and a terminal status is written exactly
// once.

func (r *GORMRepository) CreateSyncJob(ctx context.Context, job *models.SyncJob) error {
	if err := r.db.WithContext(ctx).Create(job).Error; err != nil {
		slog.Error("Failed to create sync job", "error", err)
		return err
	}
	slog.Info("Sync job created", "job_id", job.ID, "kind", job.Kind, "source", job.Source)
	return nil
}

func (r *GORMRepository) GetSyncJob(ctx context.Context, id string) (*models.SyncJob, error) {
	var job models.SyncJob
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&job).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		slog.Error("Failed to get sync job", "error", err, "job_id", id)
		return nil, err
	}
	return &job, nil
}

// GetRunningSyncJob returns the running job for a kind, or nil.
func (r *GORMRepository) GetRunningSyncJob(ctx context.Context, kind string) (*models.SyncJob, error) {
	var job models.SyncJob
	query := r.db.WithContext(ctx).Where("status = ?", models.SyncStatusRunning)
	if kind != "" {
		query = query.Where("kind = ?", kind)
	}
	if err := query.Order("started_at DESC").First(&job).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		slog.Error("Failed to get running sync job", "error", err, "kind", kind)
		return nil, err
	}
	return &job, nil
}

func (r *GORMRepository) ListRecentSyncJobs(ctx context.Context, kind string, limit int) ([]models.SyncJob, error) {
	if limit <= 0 {
		limit = 10
	}
	query := r.db.WithContext(ctx).Order("started_at DESC").Limit(limit)
	if kind != "" {
		query = query.Where("kind = ?", kind)
	}

	var jobs []models.SyncJob
	if err := query.Find(&jobs).Error; err != nil {
		slog.Error("Failed to list recent sync jobs", "error", err, "kind", kind)
		return nil, err
	}
	return jobs, nil
}

// UpdateSyncJobProgress writes the progress counters of a running job.
// Updates against a terminal job are rejected so terminal counters stay
// immutable.
func (r *GORMRepository) UpdateSyncJobProgress(ctx context.Context, id string, found, created, updated, failed int) error {
	result := r.db.WithContext(ctx).Model(&models.SyncJob{}).
		Where("id = ? AND status = ?", id, models.SyncStatusRunning).
		Updates(map[string]interface{}{
			"records_found":   found,
			"records_created": created,
			"records_updated": updated,
			"records_failed":  failed,
		})
	if result.Error != nil {
		slog.Error("Failed to update sync job progress", "error", result.Error, "job_id", id)
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("sync job %s is not running", id)
	}
	return nil
}

// FinishSyncJob transitions a running job to a terminal status. The
// transition is validated and applied conditionally so a job can only
// finish once.
func (r *GORMRepository) FinishSyncJob(ctx context.Context, id, status, errMsg string) error {
	if !models.ValidSyncTransition(models.SyncStatusRunning, status) {
		return fmt.Errorf("invalid sync transition running -> %s", status)
	}

	now := time.Now()
	result := r.db.WithContext(ctx).Model(&models.SyncJob{}).
		Where("id = ? AND status = ?", id, models.SyncStatusRunning).
		Updates(map[string]interface{}{
			"status":      status,
			"error":       errMsg,
			"finished_at": now,
		})
	if result.Error != nil {
		slog.Error("Failed to finish sync job", "error", result.Error, "job_id", id)
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("sync job %s already finished", id)
	}

	slog.Info("Sync job finished", "job_id", id, "status", status)
	return nil
}

// RequestSyncJobStop flags a running job for cancellation. The importer
// observes the flag and finishes with the stopped status.
func (r *GORMRepository) RequestSyncJobStop(ctx context.Context, id string) (bool, error) {
	result := r.db.WithContext(ctx).Model(&models.SyncJob{}).
		Where("id = ? AND status = ?", id, models.SyncStatusRunning).
		Update("stop_requested", true)
	if result.Error != nil {
		slog.Error("Failed to request sync job stop", "error", result.Error, "job_id", id)
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// SyncStats summarizes sync history for the status endpoint.
type SyncStats struct {
	TotalJobs      int64 `json:"total_jobs"`
	CompletedJobs  int64 `json:"completed_jobs"`
	FailedJobs     int64 `json:"failed_jobs"`
	RecordsCreated int64 `json:"records_created"`
	RecordsUpdated int64 `json:"records_updated"`
}

func (r *GORMRepository) GetSyncStats(ctx context.Context, kind string) (*SyncStats, error) {
	stats := &SyncStats{}

	base := func() *gorm.DB {
		query := r.db.WithContext(ctx).Model(&models.SyncJob{})
		if kind != "" {
			query = query.Where("kind = ?", kind)
		}
		return query
	}

	if err := base().Count(&stats.TotalJobs).Error; err != nil {
		return nil, err
	}
	if err := base().Where("status = ?", models.SyncStatusCompleted).Count(&stats.CompletedJobs).Error; err != nil {
		return nil, err
	}
	if err := base().Where("status = ?", models.SyncStatusFailed).Count(&stats.FailedJobs).Error; err != nil {
		return nil, err
	}

	row := base().Select("COALESCE(SUM(records_created), 0), COALESCE(SUM(records_updated), 0)").Row()
	if err := row.Scan(&stats.RecordsCreated, &stats.RecordsUpdated); err != nil {
		return nil, err
	}

	return stats, nil
}
