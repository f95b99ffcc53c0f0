package services

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/mrcosta/backoffice/repository"
)

// 10MB upload cap, matching typical resume sizes with room to spare.
const maxResumeUploadSize = 10 << 20

type ResumeEndpoints struct {
	repo          *repository.GORMRepository
	resumeService *ResumeService
}

func NewResumeEndpoints(repo *repository.GORMRepository, resumeService *ResumeService) *ResumeEndpoints {
	return &ResumeEndpoints{
		repo:          repo,
		resumeService: resumeService,
	}
}

func (e *ResumeEndpoints) RegisterRoutes(r chi.Router) {
	r.Route("/resumes", func(r chi.Router) {
		r.Post("/", e.UploadHandler)
		r.Get("/", e.ListHandler)
		r.Get("/{id}", e.GetHandler)
		r.Delete("/{id}", e.DeleteHandler)
		r.Post("/{id}/profile", e.ProfileHandler)
	})
}

// UploadHandler accepts a multipart upload under the "file" field, extracts
// its text and stores it.
func (e *ResumeEndpoints) UploadHandler(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxResumeUploadSize)
	if err := r.ParseMultipartForm(maxResumeUploadSize); err != nil {
		http.Error(w, "Invalid multipart form", http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "Missing file", http.StatusBadRequest)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		http.Error(w, "Failed to read file", http.StatusBadRequest)
		return
	}

	mimeType := header.Header.Get("Content-Type")
	if mimeType == "" || mimeType == "application/octet-stream" {
		mimeType = mimeFromFileName(header.Filename)
	}

	resume, err := e.resumeService.Upload(r.Context(), header.Filename, mimeType, data)
	if err != nil {
		slog.Error("Resume upload failed", "file", header.Filename, "error", err)
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(resume)
}

func (e *ResumeEndpoints) ListHandler(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	resumes, err := e.repo.ListResumes(r.Context(), limit)
	if err != nil {
		slog.Error("Failed to list resumes", "error", err)
		http.Error(w, "Failed to list resumes", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"resumes": resumes,
		"total":   len(resumes),
	})
}

func (e *ResumeEndpoints) GetHandler(w http.ResponseWriter, r *http.Request) {
	resume, err := e.repo.GetResumeByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		slog.Error("Failed to get resume", "error", err)
		http.Error(w, "Failed to get resume", http.StatusInternalServerError)
		return
	}
	if resume == nil {
		http.Error(w, "Resume not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resume)
}

func (e *ResumeEndpoints) DeleteHandler(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := e.repo.DeleteResume(r.Context(), id); err != nil {
		slog.Error("Failed to delete resume", "id", id, "error", err)
		http.Error(w, "Failed to delete resume", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"message": "Resume deleted",
	})
}

// ProfileHandler extracts the AI profile for one resume synchronously.
// Batch extraction runs through the sync engine instead.
func (e *ResumeEndpoints) ProfileHandler(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	resume, err := e.repo.GetResumeByID(r.Context(), id)
	if err != nil {
		http.Error(w, "Failed to get resume", http.StatusInternalServerError)
		return
	}
	if resume == nil {
		http.Error(w, "Resume not found", http.StatusNotFound)
		return
	}

	profile, err := e.resumeService.ExtractProfile(r.Context(), resume)
	if err != nil {
		slog.Error("Profile extraction failed", "resume_id", id, "error", err)
		http.Error(w, "Profile extraction failed", http.StatusBadGateway)
		return
	}

	if err := e.repo.SaveResumeProfile(r.Context(), profile); err != nil {
		slog.Error("Failed to save profile", "resume_id", id, "error", err)
		http.Error(w, "Failed to save profile", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(profile)
}

func mimeFromFileName(name string) string {
	lower := strings.ToLower(name)
	switch {
	case strings.HasSuffix(lower, ".pdf"):
		return "application/pdf"
	case strings.HasSuffix(lower, ".docx"):
		return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	case strings.HasSuffix(lower, ".txt"):
		return "text/plain"
	default:
		return "application/octet-stream"
	}
}
