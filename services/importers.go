package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/mrcosta/backoffice/models"
	"github.com/mrcosta/backoffice/repository"
	"github.com/mrcosta/backoffice/scraper"
)

// ImporterService turns scraped directory listings into database rows. Each
// runner is registered with the SyncService under its sync kind.
type ImporterService struct {
	repo        *repository.GORMRepository
	dges        *scraper.DGES
	eduportugal *scraper.EduPortugal
	enricher    *EnrichService
	enrichLimit int
}

func NewImporterService(repo *repository.GORMRepository, dges *scraper.DGES, eduportugal *scraper.EduPortugal, enricher *EnrichService, enrichLimit int) *ImporterService {
	if enrichLimit <= 0 {
		enrichLimit = 50
	}
	return &ImporterService{
		repo:        repo,
		dges:        dges,
		eduportugal: eduportugal,
		enricher:    enricher,
		enrichLimit: enrichLimit,
	}
}

// Register binds the importer runners to their sync kinds.
func (s *ImporterService) Register(syncService *SyncService) {
	syncService.RegisterRunner(models.SyncKindUniversities, s.RunUniversities)
	syncService.RegisterRunner(models.SyncKindCourses, s.RunCourses)
	syncService.RegisterRunner(models.SyncKindEnrichment, s.RunEnrichment)
}

// importCounters tracks cumulative progress for one run.
type importCounters struct {
	found   int
	created int
	updated int
	failed  int
}

func (c *importCounters) report(fn ProgressFunc) {
	fn(c.found, c.created, c.updated, c.failed)
}

// RunUniversities imports institutions from DGES and EduPortugal, upserting
// by (source, source_key).
func (s *ImporterService) RunUniversities(ctx context.Context, job *models.SyncJob, report ProgressFunc) error {
	var counters importCounters

	dgesListings, _, err := s.dges.ScrapeAll(ctx, nil, func(region string, universities, courses int) {
		slog.Info("DGES region scraped", "region", region, "universities", universities, "courses", courses)
	})
	if err != nil {
		return fmt.Errorf("dges scrape failed: %w", err)
	}
	s.upsertUniversities(ctx, "dges", dgesListings, &counters, report)

	eduListings, err := s.eduportugal.ScrapeUniversities(ctx, nil)
	if err != nil {
		// DGES results are already persisted, report the partial outcome.
		return fmt.Errorf("eduportugal scrape failed after %d records: %w", counters.found, err)
	}
	s.upsertUniversities(ctx, "eduportugal", eduListings, &counters, report)

	return ctx.Err()
}

func (s *ImporterService) upsertUniversities(ctx context.Context, source string, listings []scraper.UniversityListing, counters *importCounters, report ProgressFunc) {
	for _, listing := range listings {
		if ctx.Err() != nil {
			return
		}
		counters.found++

		university := &models.University{
			Source:      source,
			SourceKey:   listing.Slug,
			Name:        listing.Name,
			Type:        listing.Type,
			Country:     "Portugal",
			Region:      listing.Region,
			City:        listing.City,
			SourceURL:   listing.SourceURL,
			Description: listing.Description,
			LogoURL:     listing.LogoURL,
		}

		created, err := s.repo.UpsertUniversity(ctx, university)
		if err != nil {
			slog.Error("Failed to upsert university", "source", source, "name", listing.Name, "error", err)
			counters.failed++
		} else if created {
			counters.created++
		} else {
			counters.updated++
		}
		counters.report(report)
	}
}

// RunCourses imports courses from DGES and EduPortugal. Courses whose
// university has not been imported yet count as failed.
func (s *ImporterService) RunCourses(ctx context.Context, job *models.SyncJob, report ProgressFunc) error {
	var counters importCounters

	_, dgesCourses, err := s.dges.ScrapeAll(ctx, nil, nil)
	if err != nil {
		return fmt.Errorf("dges scrape failed: %w", err)
	}
	s.upsertCourses(ctx, "dges", dgesCourses, &counters, report)

	eduCourses, err := s.eduportugal.ScrapeCourses(ctx, nil, func(level string, page, found int) {
		slog.Info("EduPortugal courses page scraped", "level", level, "page", page, "found", found)
	})
	if err != nil {
		return fmt.Errorf("eduportugal scrape failed after %d records: %w", counters.found, err)
	}
	s.upsertCourses(ctx, "eduportugal", eduCourses, &counters, report)

	return ctx.Err()
}

func (s *ImporterService) upsertCourses(ctx context.Context, source string, listings []scraper.CourseListing, counters *importCounters, report ProgressFunc) {
	for _, listing := range listings {
		if ctx.Err() != nil {
			return
		}
		counters.found++

		university, err := s.resolveUniversity(ctx, source, listing.UniversitySlug)
		if err != nil || university == nil {
			slog.Warn("Course references unknown university", "source", source, "course", listing.Name, "university", listing.UniversityName)
			counters.failed++
			counters.report(report)
			continue
		}

		sourceKey := listing.Slug
		if listing.Code != "" {
			sourceKey = listing.Code + "-" + listing.Slug
		}

		course := &models.Course{
			UniversityID: university.ID,
			Source:       source,
			SourceKey:    sourceKey,
			Name:         listing.Name,
			Level:        listing.Level,
			Duration:     listing.Duration,
			Vacancies:    listing.Vacancies,
			SourceURL:    listing.SourceURL,
		}

		created, err := s.repo.UpsertCourse(ctx, course)
		if err != nil {
			slog.Error("Failed to upsert course", "source", source, "name", listing.Name, "error", err)
			counters.failed++
		} else if created {
			counters.created++
		} else {
			counters.updated++
		}
		counters.report(report)
	}
}

// resolveUniversity finds the university a course belongs to, preferring the
// same source and falling back to a slug match across sources.
func (s *ImporterService) resolveUniversity(ctx context.Context, source, slug string) (*models.University, error) {
	university, err := s.repo.GetUniversityBySourceKey(ctx, source, slug)
	if err != nil {
		return nil, err
	}
	if university != nil {
		return university, nil
	}
	return s.repo.FindUniversityBySlug(ctx, slug)
}

// RunEnrichment fills contact details for universities that have not been
// enriched yet. Individual failures do not abort the run.
func (s *ImporterService) RunEnrichment(ctx context.Context, job *models.SyncJob, report ProgressFunc) error {
	universities, err := s.repo.ListUniversitiesMissingEnrichment(ctx, s.enrichLimit)
	if err != nil {
		return fmt.Errorf("failed to list universities: %w", err)
	}

	var counters importCounters
	counters.found = len(universities)
	counters.report(report)

	for i := range universities {
		if err := ctx.Err(); err != nil {
			return err
		}

		university := &universities[i]
		if err := s.enricher.Enrich(ctx, university); err != nil {
			slog.Warn("Enrichment failed", "university", university.Name, "error", err)
			counters.failed++
			counters.report(report)
			continue
		}

		now := time.Now()
		university.EnrichedAt = &now
		if err := s.repo.UpdateUniversity(ctx, university); err != nil {
			slog.Error("Failed to save enrichment", "university", university.Name, "error", err)
			counters.failed++
		} else {
			counters.updated++
		}
		counters.report(report)
	}

	return nil
}
