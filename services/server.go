package services

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/gorilla/websocket"
	"github.com/mrcosta/backoffice/models"
	"github.com/mrcosta/backoffice/repository"
	"github.com/mrcosta/backoffice/scraper"
	ws "github.com/mrcosta/backoffice/websocket"
)

// Server holds all server dependencies
type Server struct {
	config        *Config
	gormDB        *repository.GORMRepository
	geminiService *GeminiService
	enrichService *EnrichService
	syncService   *SyncService
	importers     *ImporterService
	resumeService *ResumeService
	scheduler     *Scheduler

	authService        *AuthService
	authEndpoints      *AuthEndpoints
	syncEndpoints      *SyncEndpoints
	directoryEndpoints *DirectoryEndpoints
	jobsEndpoints      *JobsEndpoints
	resumeEndpoints    *ResumeEndpoints

	registry *scraper.Registry
	stats    *scraper.Stats
	logs     *scraper.LogBuffer

	wsHub    *ws.Hub
	upgrader websocket.Upgrader
}

// NewServer creates a new server instance
func NewServer(config *Config, logs *scraper.LogBuffer) *Server {
	return &Server{
		config: config,
		logs:   logs,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return checkOrigin(r, config.WebSocket.AllowedOrigins)
			},
		},
	}
}

// SetDatabase sets the database connection
func (s *Server) SetDatabase(db *repository.GORMRepository) {
	s.gormDB = db
}

// InitializeServices wires every service to its dependencies. The database
// must be set first.
func (s *Server) InitializeServices() error {
	s.geminiService = NewGeminiService(s.config.AI.GeminiAPIKey, s.config.AI.GeminiModel)
	if s.geminiService.Available() {
		slog.Info("Gemini service initialized", "model", s.config.AI.GeminiModel)
	}

	// Job board scrapers share one rate-limited fetcher; directory sources
	// get their own delays per site policy.
	jobFetcher := scraper.NewFetcher(15*time.Second, s.config.Scraper.RequestDelay)
	s.registry = scraper.NewRegistry(
		scraper.NewGeekHunter(jobFetcher),
		scraper.NewVagasComBr(jobFetcher),
	)
	s.stats = scraper.NewStats()

	dges := scraper.NewDGES(scraper.NewFetcher(15*time.Second, 1*time.Second))
	eduportugal := scraper.NewEduPortugal(scraper.NewFetcher(15*time.Second, 2*time.Second))

	enrichFetcher := scraper.NewFetcher(15*time.Second, s.config.Scraper.RequestDelay)
	s.enrichService = NewEnrichService(enrichFetcher, s.geminiService, s.config.Sync.EnrichCacheTTL)

	s.wsHub = ws.NewHub()
	go s.wsHub.Run()

	s.syncService = NewSyncService(s.gormDB, s.wsHub)
	s.importers = NewImporterService(s.gormDB, dges, eduportugal, s.enrichService, s.config.Sync.EnrichLimit)
	s.importers.Register(s.syncService)
	s.resumeService = NewResumeService(s.gormDB, s.geminiService)
	s.resumeService.Register(s.syncService)

	if s.config.JWT.Secret != "" {
		s.authService = NewAuthService(s.gormDB, s.config.JWT.Secret)
		s.authEndpoints = NewAuthEndpoints(s.authService)
		slog.Info("Authentication service initialized")
	} else {
		slog.Warn("JWT secret not configured, API runs unauthenticated")
	}

	searchCache := scraper.NewCache[SearchResponse](s.config.Scraper.CacheTTL)
	s.syncEndpoints = NewSyncEndpoints(s.syncService)
	s.directoryEndpoints = NewDirectoryEndpoints(s.gormDB, s.enrichService)
	s.jobsEndpoints = NewJobsEndpoints(s.registry, searchCache, s.stats, s.logs, s.enrichService, s.config.Scraper.JobLimit)
	s.resumeEndpoints = NewResumeEndpoints(s.gormDB, s.resumeService)

	if s.config.Schedule.Enabled {
		s.scheduler = NewScheduler(s.syncService, s.config.Schedule.SyncSpec, s.config.Sync.PollInterval)
		if err := s.scheduler.Start(); err != nil {
			return err
		}
	}

	return nil
}

// SetupRoutes configures all HTTP routes
func (s *Server) SetupRoutes() *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	if s.config.WebSocket.AllowedOrigins != "" {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   splitOrigins(s.config.WebSocket.AllowedOrigins),
			AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Content-Type", "Authorization"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	// Health endpoint
	r.Get("/health", s.healthHandler)

	// API v1 route group
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/", s.apiV1Handler)

		// Authentication routes
		if s.authEndpoints != nil {
			r.Route("/auth", func(r chi.Router) {
				// Public auth routes (no middleware)
				r.Post("/login", s.authEndpoints.LoginHandler)
				r.Post("/refresh", s.authEndpoints.RefreshHandler)

				// Protected auth routes (with middleware)
				r.Group(func(r chi.Router) {
					r.Use(s.authService.Middleware)
					r.Post("/logout", s.authEndpoints.LogoutHandler)
					r.Get("/me", s.authEndpoints.MeHandler)
				})
			})
		}

		// Admin routes (protected when auth is configured)
		registerAdmin := func(r chi.Router) {
			s.syncEndpoints.RegisterRoutes(r)
			s.directoryEndpoints.RegisterRoutes(r)
			s.jobsEndpoints.RegisterRoutes(r)
			s.resumeEndpoints.RegisterRoutes(r)
			r.Get("/ws", s.websocketHandlerFunc)
		}

		if s.authService != nil {
			r.Group(func(r chi.Router) {
				r.Use(s.authService.Middleware)
				registerAdmin(r)
			})
		} else {
			registerAdmin(r)
		}
	})

	return r
}

// Start starts the HTTP server
func (s *Server) Start() {
	port := s.config.Server.Port
	if port == "" {
		port = "8080"
	}

	srv := &http.Server{
		Addr:    ":" + port,
		Handler: s.SetupRoutes(),
	}

	// Graceful shutdown
	go func() {
		slog.Info("Starting server", "port", port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("Server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("Shutting down server...")
	if s.scheduler != nil {
		s.scheduler.Stop()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
	}

	slog.Info("Server exited")
}

// checkOrigin validates the origin of WebSocket connections to prevent CSRF attacks
func checkOrigin(r *http.Request, allowedOriginsStr string) bool {
	origin := r.Header.Get("Origin")

	// If no allowed origins are configured, deny all requests for security
	if allowedOriginsStr == "" {
		slog.Warn("WebSocket connection rejected: no allowed origins configured", "origin", origin)
		return false
	}

	for _, allowed := range splitOrigins(allowedOriginsStr) {
		if allowed == origin {
			slog.Info("WebSocket connection accepted", "origin", origin)
			return true
		}
	}

	slog.Warn("WebSocket connection rejected: origin not allowed", "origin", origin, "allowed_origins", allowedOriginsStr)
	return false
}

func splitOrigins(allowedOriginsStr string) []string {
	origins := strings.Split(allowedOriginsStr, ",")
	for i := range origins {
		origins[i] = strings.TrimSpace(origins[i])
	}
	return origins
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	dbStatus := "not configured"

	if s.gormDB != nil {
		if sqlDB, err := s.gormDB.DB().DB(); err == nil {
			if err := sqlDB.Ping(); err != nil {
				dbStatus = "down"
				status = "degraded"
			} else {
				dbStatus = "up"
			}
		} else {
			dbStatus = "down"
			status = "degraded"
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"` + status + `","database":"` + dbStatus + `"}`))
}

func (s *Server) apiV1Handler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"message":"API v1","version":"1.0.0"}`))
}

func (s *Server) websocketHandlerFunc(w http.ResponseWriter, r *http.Request) {
	userID := "anonymous"
	if user, ok := r.Context().Value("user").(*models.User); ok {
		userID = user.ID
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("WebSocket upgrade failed", "error", err)
		return
	}

	slog.Info("WebSocket connection established", "user_id", userID)

	client := s.wsHub.RegisterClient(conn, userID)
	go client.WritePump()
	client.ReadPump()
}
