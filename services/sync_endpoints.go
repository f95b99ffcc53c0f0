package services

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
)

type SyncEndpoints struct {
	syncService *SyncService
}

type StartSyncRequest struct {
	Kind   string `json:"kind"`
	Source string `json:"source,omitempty"`
}

func NewSyncEndpoints(syncService *SyncService) *SyncEndpoints {
	return &SyncEndpoints{
		syncService: syncService,
	}
}

func (e *SyncEndpoints) RegisterRoutes(r chi.Router) {
	r.Route("/sync", func(r chi.Router) {
		r.Post("/start", e.StartHandler)
		r.Get("/status", e.StatusHandler)
		r.Get("/kinds", e.KindsHandler)
		r.Get("/{jobID}", e.GetJobHandler)
		r.Post("/{jobID}/stop", e.StopHandler)
	})
}

// StartHandler launches a sync job and returns it immediately. The client
// follows up by polling the status endpoint.
func (e *SyncEndpoints) StartHandler(w http.ResponseWriter, r *http.Request) {
	var req StartSyncRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Kind == "" {
		http.Error(w, "Missing sync kind", http.StatusBadRequest)
		return
	}

	job, err := e.syncService.Start(r.Context(), req.Kind, req.Source)
	if err != nil {
		switch {
		case errors.Is(err, ErrSyncAlreadyRunning):
			http.Error(w, err.Error(), http.StatusConflict)
		case errors.Is(err, ErrUnknownSyncKind):
			http.Error(w, err.Error(), http.StatusBadRequest)
		default:
			slog.Error("Failed to start sync", "kind", req.Kind, "error", err)
			http.Error(w, "Failed to start sync", http.StatusInternalServerError)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(job)
}

// StatusHandler returns the running job, recent history and aggregate stats.
func (e *SyncEndpoints) StatusHandler(w http.ResponseWriter, r *http.Request) {
	status, err := e.syncService.Status(r.Context(), r.URL.Query().Get("kind"))
	if err != nil {
		slog.Error("Failed to get sync status", "error", err)
		http.Error(w, "Failed to get sync status", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(status)
}

func (e *SyncEndpoints) KindsHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"kinds": e.syncService.Kinds(),
	})
}

func (e *SyncEndpoints) GetJobHandler(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")

	job, err := e.syncService.repo.GetSyncJob(r.Context(), jobID)
	if err != nil {
		slog.Error("Failed to get sync job", "job_id", jobID, "error", err)
		http.Error(w, "Failed to get sync job", http.StatusInternalServerError)
		return
	}
	if job == nil {
		http.Error(w, "Sync job not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(job)
}

// StopHandler requests cancellation of a running job.
func (e *SyncEndpoints) StopHandler(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")

	job, err := e.syncService.Stop(r.Context(), jobID)
	if err != nil {
		if job != nil {
			http.Error(w, err.Error(), http.StatusConflict)
			return
		}
		slog.Error("Failed to stop sync", "job_id", jobID, "error", err)
		http.Error(w, "Failed to stop sync", http.StatusInternalServerError)
		return
	}
	if job == nil {
		http.Error(w, "Sync job not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"message": "Stop requested",
		"job":     job,
	})
}
