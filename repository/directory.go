package repository

import (
	"context"
	"log/slog"
	"strings"

	"github.com/mrcosta/backoffice/models"
	"gorm.io/gorm"
)

// UniversityFilter narrows ListUniversities results.
type UniversityFilter struct {
	Country string
	Region  string
	Type    string
	Source  string
	Search  string // matched against name, case-insensitive
	Limit   int
	Offset  int
}

func (r *GORMRepository) ListUniversities(ctx context.Context, filter UniversityFilter) ([]models.University, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.University{})

	if filter.Country != "" {
		query = query.Where("country = ?", filter.Country)
	}
	if filter.Region != "" {
		query = query.Where("region = ?", filter.Region)
	}
	if filter.Type != "" {
		query = query.Where("type = ?", filter.Type)
	}
	if filter.Source != "" {
		query = query.Where("source = ?", filter.Source)
	}
	if filter.Search != "" {
		query = query.Where("LOWER(name) LIKE ?", "%"+strings.ToLower(filter.Search)+"%")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		slog.Error("Failed to count universities", "error", err)
		return nil, 0, err
	}

	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		query = query.Offset(filter.Offset)
	}

	var universities []models.University
	if err := query.Order("name ASC").Find(&universities).Error; err != nil {
		slog.Error("Failed to list universities", "error", err)
		return nil, 0, err
	}
	return universities, total, nil
}

func (r *GORMRepository) GetUniversityByID(ctx context.Context, id string) (*models.University, error) {
	var university models.University
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&university).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		slog.Error("Failed to get university", "error", err, "university_id", id)
		return nil, err
	}
	return &university, nil
}

func (r *GORMRepository) GetUniversityBySourceKey(ctx context.Context, source, sourceKey string) (*models.University, error) {
	var university models.University
	if err := r.db.WithContext(ctx).Where("source = ? AND source_key = ?", source, sourceKey).First(&university).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		slog.Error("Failed to get university by source key", "error", err, "source", source, "source_key", sourceKey)
		return nil, err
	}
	return &university, nil
}

// FindUniversityBySlug matches an imported university by its slug across
// sources; used to attach courses whose listing only carries the
// university name.
func (r *GORMRepository) FindUniversityBySlug(ctx context.Context, slug string) (*models.University, error) {
	var university models.University
	if err := r.db.WithContext(ctx).Where("source_key = ?", slug).First(&university).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &university, nil
}

func (r *GORMRepository) CreateUniversity(ctx context.Context, university *models.University) error {
	if err := r.db.WithContext(ctx).Create(university).Error; err != nil {
		slog.Error("Failed to create university", "error", err)
		return err
	}
	slog.Info("University created", "university_id", university.ID, "name", university.Name)
	return nil
}

func (r *GORMRepository) UpdateUniversity(ctx context.Context, university *models.University) error {
	if err := r.db.WithContext(ctx).Save(university).Error; err != nil {
		slog.Error("Failed to update university", "error", err, "university_id", university.ID)
		return err
	}
	return nil
}

func (r *GORMRepository) DeleteUniversity(ctx context.Context, id string) error {
	if err := r.db.WithContext(ctx).Where("university_id = ?", id).Delete(&models.Course{}).Error; err != nil {
		slog.Error("Failed to delete university courses", "error", err, "university_id", id)
		return err
	}
	if err := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.University{}).Error; err != nil {
		slog.Error("Failed to delete university", "error", err, "university_id", id)
		return err
	}
	return nil
}

// UpsertUniversity creates or updates an imported row keyed by
// (source, source_key). Reports created=true when a new row was inserted.
// Enrichment fields on an existing row are preserved; only directory fields
// are refreshed.
func (r *GORMRepository) UpsertUniversity(ctx context.Context, university *models.University) (created bool, err error) {
	existing, err := r.GetUniversityBySourceKey(ctx, university.Source, university.SourceKey)
	if err != nil {
		return false, err
	}
	if existing == nil {
		return true, r.CreateUniversity(ctx, university)
	}

	existing.Name = university.Name
	if university.Type != "" {
		existing.Type = university.Type
	}
	if university.Region != "" {
		existing.Region = university.Region
	}
	if university.City != "" {
		existing.City = university.City
	}
	if university.SourceURL != "" {
		existing.SourceURL = university.SourceURL
	}
	if university.LogoURL != "" && existing.LogoURL == "" {
		existing.LogoURL = university.LogoURL
	}
	if university.Description != "" && existing.Description == "" {
		existing.Description = university.Description
	}

	*university = *existing
	return false, r.UpdateUniversity(ctx, existing)
}

// ListUniversitiesMissingEnrichment returns imported universities without a
// logo or any social link, the set the enrichment sync targets.
func (r *GORMRepository) ListUniversitiesMissingEnrichment(ctx context.Context, limit int) ([]models.University, error) {
	query := r.db.WithContext(ctx).
		Where("enriched_at IS NULL OR (logo_url = '' AND instagram_url = '' AND linkedin_url = '' AND facebook_url = '')")
	if limit > 0 {
		query = query.Limit(limit)
	}

	var universities []models.University
	if err := query.Order("name ASC").Find(&universities).Error; err != nil {
		slog.Error("Failed to list universities missing enrichment", "error", err)
		return nil, err
	}
	return universities, nil
}

// Course operations
func (r *GORMRepository) ListCourses(ctx context.Context, universityID, level string, limit, offset int) ([]models.Course, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Course{})
	if universityID != "" {
		query = query.Where("university_id = ?", universityID)
	}
	if level != "" {
		query = query.Where("level = ?", level)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		slog.Error("Failed to count courses", "error", err)
		return nil, 0, err
	}

	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}

	var courses []models.Course
	if err := query.Order("name ASC").Find(&courses).Error; err != nil {
		slog.Error("Failed to list courses", "error", err)
		return nil, 0, err
	}
	return courses, total, nil
}

func (r *GORMRepository) GetCourseBySourceKey(ctx context.Context, universityID, sourceKey string) (*models.Course, error) {
	var course models.Course
	if err := r.db.WithContext(ctx).Where("university_id = ? AND source_key = ?", universityID, sourceKey).First(&course).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &course, nil
}

// UpsertCourse creates or updates a course keyed by
// (university_id, source_key). Reports created=true on insert.
func (r *GORMRepository) UpsertCourse(ctx context.Context, course *models.Course) (created bool, err error) {
	existing, err := r.GetCourseBySourceKey(ctx, course.UniversityID, course.SourceKey)
	if err != nil {
		return false, err
	}
	if existing == nil {
		if err := r.db.WithContext(ctx).Create(course).Error; err != nil {
			slog.Error("Failed to create course", "error", err)
			return false, err
		}
		return true, nil
	}

	existing.Name = course.Name
	if course.Level != "" {
		existing.Level = course.Level
	}
	if course.Duration != "" {
		existing.Duration = course.Duration
	}
	if course.Vacancies > 0 {
		existing.Vacancies = course.Vacancies
	}
	if course.SourceURL != "" {
		existing.SourceURL = course.SourceURL
	}

	*course = *existing
	if err := r.db.WithContext(ctx).Save(existing).Error; err != nil {
		slog.Error("Failed to update course", "error", err, "course_id", existing.ID)
		return false, err
	}
	return false, nil
}
