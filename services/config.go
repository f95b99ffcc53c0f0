package services

import (
	"log/slog"
	"time"

	"github.com/spf13/viper"
)

// Config holds application configuration
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	AI        AIConfig
	JWT       JWTConfig
	WebSocket WebSocketConfig
	Scraper   ScraperConfig
	Sync      SyncConfig
	Schedule  ScheduleConfig
}

type ServerConfig struct {
	Port string
}

type DatabaseConfig struct {
	URL          string
	Seed         bool
	LogLevel     string
	MaxIdleConns int
	MaxOpenConns int
}

type AIConfig struct {
	GeminiAPIKey string
	GeminiModel  string
}

type JWTConfig struct {
	Secret string
}

type WebSocketConfig struct {
	AllowedOrigins string
}

type ScraperConfig struct {
	CacheTTL     time.Duration
	RequestDelay time.Duration
	JobLimit     int
}

type SyncConfig struct {
	PollInterval   time.Duration
	EnrichCacheTTL time.Duration
	EnrichLimit    int
}

type ScheduleConfig struct {
	Enabled  bool
	SyncSpec string
}

// LoadConfig loads configuration from environment variables and config files
func LoadConfig() *Config {
	viper.SetConfigName(".env")
	viper.SetConfigType("env")
	viper.AddConfigPath(".")
	viper.AutomaticEnv()

	// Set defaults
	viper.SetDefault("server.port", "8080")
	viper.SetDefault("websocket.allowed_origins", "")
	viper.SetDefault("gemini.api_key", "")
	viper.SetDefault("gemini.model", "gemini-2.0-flash")
	viper.SetDefault("jwt.secret", "")
	viper.SetDefault("database.url", "")
	viper.SetDefault("database.seed", "true")
	viper.SetDefault("database.log_level", "silent")
	viper.SetDefault("database.max_idle_conns", "10")
	viper.SetDefault("database.max_open_conns", "100")
	viper.SetDefault("scraper.cache_ttl", "300s")
	viper.SetDefault("scraper.request_delay", "1s")
	viper.SetDefault("scraper.job_limit", "20")
	viper.SetDefault("sync.poll_interval", "4s")
	viper.SetDefault("sync.enrich_cache_ttl", "720h")
	viper.SetDefault("sync.enrich_limit", "50")
	viper.SetDefault("schedule.enabled", "false")
	viper.SetDefault("schedule.sync_spec", "0 3 * * *")

	// Map environment variables to config keys
	viper.BindEnv("server.port", "SERVER_PORT")
	viper.BindEnv("websocket.allowed_origins", "WEBSOCKET_ALLOWED_ORIGINS")
	viper.BindEnv("gemini.api_key", "GEMINI_API_KEY")
	viper.BindEnv("gemini.model", "GEMINI_MODEL")
	viper.BindEnv("jwt.secret", "JWT_SECRET")
	viper.BindEnv("database.url", "DATABASE_URL")
	viper.BindEnv("database.seed", "DATABASE_SEED")
	viper.BindEnv("database.log_level", "DATABASE_LOG_LEVEL")
	viper.BindEnv("database.max_idle_conns", "DATABASE_MAX_IDLE_CONNS")
	viper.BindEnv("database.max_open_conns", "DATABASE_MAX_OPEN_CONNS")
	viper.BindEnv("scraper.cache_ttl", "SCRAPER_CACHE_TTL")
	viper.BindEnv("scraper.request_delay", "SCRAPER_REQUEST_DELAY")
	viper.BindEnv("scraper.job_limit", "SCRAPER_JOB_LIMIT")
	viper.BindEnv("sync.poll_interval", "SYNC_POLL_INTERVAL")
	viper.BindEnv("sync.enrich_cache_ttl", "SYNC_ENRICH_CACHE_TTL")
	viper.BindEnv("sync.enrich_limit", "SYNC_ENRICH_LIMIT")
	viper.BindEnv("schedule.enabled", "SCHEDULE_ENABLED")
	viper.BindEnv("schedule.sync_spec", "SCHEDULE_SYNC_SPEC")

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			slog.Warn("Config file not found, using defaults and environment variables")
		} else {
			slog.Error("Error reading config file", "error", err)
		}
	}

	return &Config{
		Server: ServerConfig{
			Port: viper.GetString("server.port"),
		},
		Database: DatabaseConfig{
			URL:          viper.GetString("database.url"),
			Seed:         viper.GetBool("database.seed"),
			LogLevel:     viper.GetString("database.log_level"),
			MaxIdleConns: viper.GetInt("database.max_idle_conns"),
			MaxOpenConns: viper.GetInt("database.max_open_conns"),
		},
		AI: AIConfig{
			GeminiAPIKey: viper.GetString("gemini.api_key"),
			GeminiModel:  viper.GetString("gemini.model"),
		},
		JWT: JWTConfig{
			Secret: viper.GetString("jwt.secret"),
		},
		WebSocket: WebSocketConfig{
			AllowedOrigins: viper.GetString("websocket.allowed_origins"),
		},
		Scraper: ScraperConfig{
			CacheTTL:     viper.GetDuration("scraper.cache_ttl"),
			RequestDelay: viper.GetDuration("scraper.request_delay"),
			JobLimit:     viper.GetInt("scraper.job_limit"),
		},
		Sync: SyncConfig{
			PollInterval:   viper.GetDuration("sync.poll_interval"),
			EnrichCacheTTL: viper.GetDuration("sync.enrich_cache_ttl"),
			EnrichLimit:    viper.GetInt("sync.enrich_limit"),
		},
		Schedule: ScheduleConfig{
			Enabled:  viper.GetBool("schedule.enabled"),
			SyncSpec: viper.GetString("schedule.sync_spec"),
		},
	}
}
