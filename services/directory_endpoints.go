package services

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/mrcosta/backoffice/models"
	"github.com/mrcosta/backoffice/repository"
	"github.com/mrcosta/backoffice/scraper"
)

// DirectoryEndpoints serves the university and course catalog used by the
// admin dashboard.
type DirectoryEndpoints struct {
	repo     *repository.GORMRepository
	enricher *EnrichService
}

func NewDirectoryEndpoints(repo *repository.GORMRepository, enricher *EnrichService) *DirectoryEndpoints {
	return &DirectoryEndpoints{
		repo:     repo,
		enricher: enricher,
	}
}

func (e *DirectoryEndpoints) RegisterRoutes(r chi.Router) {
	r.Route("/universities", func(r chi.Router) {
		r.Get("/", e.ListHandler)
		r.Post("/", e.CreateHandler)
		r.Get("/{id}", e.GetHandler)
		r.Put("/{id}", e.UpdateHandler)
		r.Delete("/{id}", e.DeleteHandler)
		r.Post("/{id}/enrich", e.EnrichHandler)
		r.Get("/{id}/courses", e.CoursesHandler)
	})
}

func (e *DirectoryEndpoints) ListHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))

	filter := repository.UniversityFilter{
		Country: q.Get("country"),
		Region:  q.Get("region"),
		Type:    q.Get("type"),
		Source:  q.Get("source"),
		Search:  q.Get("search"),
		Limit:   limit,
		Offset:  offset,
	}

	universities, total, err := e.repo.ListUniversities(r.Context(), filter)
	if err != nil {
		slog.Error("Failed to list universities", "error", err)
		http.Error(w, "Failed to list universities", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"universities": universities,
		"total":        total,
	})
}

func (e *DirectoryEndpoints) GetHandler(w http.ResponseWriter, r *http.Request) {
	university, err := e.repo.GetUniversityByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		slog.Error("Failed to get university", "error", err)
		http.Error(w, "Failed to get university", http.StatusInternalServerError)
		return
	}
	if university == nil {
		http.Error(w, "University not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(university)
}

func (e *DirectoryEndpoints) CreateHandler(w http.ResponseWriter, r *http.Request) {
	var university models.University
	if err := json.NewDecoder(r.Body).Decode(&university); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if university.Name == "" {
		http.Error(w, "Missing university name", http.StatusBadRequest)
		return
	}

	if university.Source == "" {
		university.Source = "manual"
	}
	if university.SourceKey == "" {
		university.SourceKey = scraper.Slugify(university.Name)
	}

	if err := e.repo.CreateUniversity(r.Context(), &university); err != nil {
		slog.Error("Failed to create university", "name", university.Name, "error", err)
		http.Error(w, "Failed to create university", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(university)
}

func (e *DirectoryEndpoints) UpdateHandler(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	existing, err := e.repo.GetUniversityByID(r.Context(), id)
	if err != nil {
		http.Error(w, "Failed to get university", http.StatusInternalServerError)
		return
	}
	if existing == nil {
		http.Error(w, "University not found", http.StatusNotFound)
		return
	}

	var update models.University
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	// Identity fields are immutable through this endpoint.
	update.ID = existing.ID
	update.Source = existing.Source
	update.SourceKey = existing.SourceKey
	update.CreatedAt = existing.CreatedAt

	if err := e.repo.UpdateUniversity(r.Context(), &update); err != nil {
		slog.Error("Failed to update university", "id", id, "error", err)
		http.Error(w, "Failed to update university", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(update)
}

func (e *DirectoryEndpoints) DeleteHandler(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := e.repo.DeleteUniversity(r.Context(), id); err != nil {
		slog.Error("Failed to delete university", "id", id, "error", err)
		http.Error(w, "Failed to delete university", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"message": "University deleted",
	})
}

// EnrichHandler runs enrichment for a single university on demand.
func (e *DirectoryEndpoints) EnrichHandler(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	university, err := e.repo.GetUniversityByID(r.Context(), id)
	if err != nil {
		http.Error(w, "Failed to get university", http.StatusInternalServerError)
		return
	}
	if university == nil {
		http.Error(w, "University not found", http.StatusNotFound)
		return
	}

	if err := e.enricher.Enrich(r.Context(), university); err != nil {
		slog.Warn("Enrichment failed", "university", university.Name, "error", err)
		http.Error(w, "Enrichment failed: "+err.Error(), http.StatusBadGateway)
		return
	}

	now := time.Now()
	university.EnrichedAt = &now
	if err := e.repo.UpdateUniversity(r.Context(), university); err != nil {
		slog.Error("Failed to save enrichment", "id", id, "error", err)
		http.Error(w, "Failed to save enrichment", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(university)
}

func (e *DirectoryEndpoints) CoursesHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))

	courses, total, err := e.repo.ListCourses(r.Context(), chi.URLParam(r, "id"), q.Get("level"), limit, offset)
	if err != nil {
		slog.Error("Failed to list courses", "error", err)
		http.Error(w, "Failed to list courses", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"courses": courses,
		"total":   total,
	})
}
