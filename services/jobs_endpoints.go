package services

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/mrcosta/backoffice/scraper"
)

const maxJobSearchLimit = 100

// SearchResponse is the aggregated result of a job search across sources.
// Errors carries per-source failures so partial results still return 200.
type SearchResponse struct {
	Jobs      []scraper.JobListing `json:"jobs"`
	Total     int                  `json:"total"`
	Source    string               `json:"source"`
	Timestamp time.Time            `json:"timestamp"`
	Errors    []string             `json:"errors"`
}

// JobsEndpoints serves job searches across the scraper registry plus the
// scraper observability endpoints (logs, stats).
type JobsEndpoints struct {
	registry     *scraper.Registry
	cache        *scraper.Cache[SearchResponse]
	stats        *scraper.Stats
	logs         *scraper.LogBuffer
	enricher     *EnrichService
	defaultLimit int
}

func NewJobsEndpoints(registry *scraper.Registry, cache *scraper.Cache[SearchResponse], stats *scraper.Stats, logs *scraper.LogBuffer, enricher *EnrichService, defaultLimit int) *JobsEndpoints {
	if defaultLimit <= 0 {
		defaultLimit = 20
	}
	return &JobsEndpoints{
		registry:     registry,
		cache:        cache,
		stats:        stats,
		logs:         logs,
		enricher:     enricher,
		defaultLimit: defaultLimit,
	}
}

func (e *JobsEndpoints) RegisterRoutes(r chi.Router) {
	r.Route("/jobs", func(r chi.Router) {
		r.Get("/search", e.SearchHandler)
		r.Get("/search/{source}", e.SearchSourceHandler)
		r.Get("/sources", e.SourcesHandler)
	})
	r.Get("/logs", e.LogsHandler)
	r.Get("/stats", e.StatsHandler)
}

func (e *JobsEndpoints) SearchHandler(w http.ResponseWriter, r *http.Request) {
	e.search(w, r, r.URL.Query().Get("source"))
}

func (e *JobsEndpoints) SearchSourceHandler(w http.ResponseWriter, r *http.Request) {
	source := chi.URLParam(r, "source")
	if e.registry.Get(source) == nil {
		http.Error(w, fmt.Sprintf("Source '%s' not found", source), http.StatusNotFound)
		return
	}
	e.search(w, r, source)
}

func (e *JobsEndpoints) search(w http.ResponseWriter, r *http.Request, source string) {
	q := r.URL.Query()
	keyword := q.Get("keyword")
	if keyword == "" {
		keyword = "desenvolvedor"
	}
	country := q.Get("country")
	if country == "" {
		country = "br"
	}
	limit, _ := strconv.Atoi(q.Get("limit"))
	if limit <= 0 {
		limit = e.defaultLimit
	}
	if limit > maxJobSearchLimit {
		limit = maxJobSearchLimit
	}

	e.stats.RecordRequest()

	cacheKey := strings.Join([]string{strings.ToLower(keyword), country, source, strconv.Itoa(limit)}, "|")
	if cached, ok := e.cache.Get(cacheKey); ok {
		cached.Timestamp = time.Now()
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("X-Cache", "HIT")
		json.NewEncoder(w).Encode(cached)
		return
	}

	var selected []scraper.JobScraper
	if source != "" {
		js := e.registry.Get(source)
		if js == nil {
			http.Error(w, fmt.Sprintf("Source '%s' not found", source), http.StatusNotFound)
			return
		}
		selected = []scraper.JobScraper{js}
	} else {
		selected = e.registry.All()
	}

	// Fan out across sources; each failure is reported, not fatal.
	var (
		mu      sync.Mutex
		jobs    []scraper.JobListing
		errMsgs []string
		wg      sync.WaitGroup
	)
	for _, js := range selected {
		wg.Add(1)
		go func(js scraper.JobScraper) {
			defer wg.Done()

			slog.Info("Searching source", "source", js.Name(), "keyword", keyword)
			found, err := js.Search(r.Context(), keyword, country, limit)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errMsgs = append(errMsgs, js.Name()+": "+err.Error())
				slog.Error("Source search failed", "source", js.Name(), "error", err)
				return
			}
			jobs = append(jobs, found...)
			slog.Info("Source search finished", "source", js.Name(), "found", len(found))
		}(js)
	}
	wg.Wait()

	e.stats.RecordJobs(len(jobs))
	if len(errMsgs) > 0 && len(jobs) == 0 {
		e.stats.RecordFailure()
	} else {
		e.stats.RecordSuccess()
	}

	total := len(jobs)
	if len(jobs) > limit {
		jobs = jobs[:limit]
	}
	if jobs == nil {
		jobs = []scraper.JobListing{}
	}
	if errMsgs == nil {
		errMsgs = []string{}
	}

	sourceLabel := source
	if sourceLabel == "" {
		sourceLabel = "all"
	}

	response := SearchResponse{
		Jobs:      jobs,
		Total:     total,
		Source:    sourceLabel,
		Timestamp: time.Now(),
		Errors:    errMsgs,
	}
	if len(errMsgs) == 0 {
		e.cache.Set(cacheKey, response)
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Cache", "MISS")
	json.NewEncoder(w).Encode(response)
}

func (e *JobsEndpoints) SourcesHandler(w http.ResponseWriter, r *http.Request) {
	names := e.registry.Names()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"sources": names,
		"total":   len(names),
	})
}

func (e *JobsEndpoints) LogsHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	if limit <= 0 {
		limit = 50
	}
	if limit > 200 {
		limit = 200
	}

	// Total counts every entry matching the level filter, not just the
	// returned page.
	entries := e.logs.Recent(0, q.Get("level"))
	total := len(entries)
	if len(entries) > limit {
		entries = entries[:limit]
	}
	if entries == nil {
		entries = []scraper.LogEntry{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"logs":  entries,
		"total": total,
	})
}

func (e *JobsEndpoints) StatsHandler(w http.ResponseWriter, r *http.Request) {
	response := map[string]interface{}{
		"scraper": e.stats.Snapshot(),
	}
	if e.enricher != nil {
		response["enrichment"] = e.enricher.Stats()
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}
