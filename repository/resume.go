package repository

import (
	"context"
	"log/slog"

	"github.com/mrcosta/backoffice/models"
	"gorm.io/gorm"
)

// Resume operations
func (r *GORMRepository) CreateResume(ctx context.Context, resume *models.Resume) error {
	if err := r.db.WithContext(ctx).Create(resume).Error; err != nil {
		slog.Error("Failed to create resume", "error", err)
		return err
	}
	slog.Info("Resume created", "resume_id", resume.ID, "file_name", resume.FileName)
	return nil
}

func (r *GORMRepository) GetResumeByID(ctx context.Context, id string) (*models.Resume, error) {
	var resume models.Resume
	if err := r.db.WithContext(ctx).Preload("Profile").Where("id = ?", id).First(&resume).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		slog.Error("Failed to get resume", "error", err, "resume_id", id)
		return nil, err
	}
	return &resume, nil
}

func (r *GORMRepository) ListResumes(ctx context.Context, limit int) ([]models.Resume, error) {
	if limit <= 0 {
		limit = 20
	}
	var resumes []models.Resume
	if err := r.db.WithContext(ctx).Preload("Profile").Order("created_at DESC").Limit(limit).Find(&resumes).Error; err != nil {
		slog.Error("Failed to list resumes", "error", err)
		return nil, err
	}
	return resumes, nil
}

func (r *GORMRepository) DeleteResume(ctx context.Context, id string) error {
	if err := r.db.WithContext(ctx).Where("resume_id = ?", id).Delete(&models.ResumeProfile{}).Error; err != nil {
		slog.Error("Failed to delete resume profile", "error", err, "resume_id", id)
		return err
	}
	if err := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Resume{}).Error; err != nil {
		slog.Error("Failed to delete resume", "error", err, "resume_id", id)
		return err
	}
	return nil
}

// SaveResumeProfile stores the AI-extracted profile, replacing any previous
// analysis for the same resume.
func (r *GORMRepository) SaveResumeProfile(ctx context.Context, profile *models.ResumeProfile) error {
	var existing models.ResumeProfile
	err := r.db.WithContext(ctx).Where("resume_id = ?", profile.ResumeID).First(&existing).Error
	if err != nil && err != gorm.ErrRecordNotFound {
		slog.Error("Failed to check existing resume profile", "error", err, "resume_id", profile.ResumeID)
		return err
	}

	if err == nil {
		profile.ID = existing.ID
		profile.CreatedAt = existing.CreatedAt
		if saveErr := r.db.WithContext(ctx).Save(profile).Error; saveErr != nil {
			slog.Error("Failed to update resume profile", "error", saveErr, "resume_id", profile.ResumeID)
			return saveErr
		}
		return nil
	}

	if createErr := r.db.WithContext(ctx).Create(profile).Error; createErr != nil {
		slog.Error("Failed to create resume profile", "error", createErr, "resume_id", profile.ResumeID)
		return createErr
	}
	slog.Info("Resume profile saved", "resume_id", profile.ResumeID)
	return nil
}
