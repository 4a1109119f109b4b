// Package config loads service settings from the environment and optional
// .env files.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Store backends.
const (
	BackendJSON     = "json"
	BackendPostgres = "postgres"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig
	Store    StoreConfig
	Database DatabaseConfig
	Security SecurityConfig
	MovieAPI MovieAPIConfig
	CORS     CORSConfig
	Logging  LoggingConfig

	Env           string
	BootstrapDemo bool
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port int
	Host string
}

// StoreConfig selects and configures the user store.
type StoreConfig struct {
	Backend   string // json, postgres
	UsersFile string
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	URL string
}

// SecurityConfig holds session settings.
type SecurityConfig struct {
	SessionSecret string
	SessionTTL    time.Duration
}

// MovieAPIConfig holds remote movie database settings.
type MovieAPIConfig struct {
	TMDBAPIKey        string
	TMDBBaseURL       string
	OMDbAPIKey        string
	OMDbBaseURL       string
	Timeout           time.Duration
	RequestsPerSecond float64
}

// CORSConfig holds CORS settings.
type CORSConfig struct {
	AllowedOrigins []string
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, text
}

// Load reads .env files when present, then the environment.
func Load() (*Config, error) {
	_ = godotenv.Load(".env")
	_ = godotenv.Load("config/local.env")
	return FromEnv()
}

// FromEnv builds and validates a Config from the current environment only.
func FromEnv() (*Config, error) {
	cfg := &Config{}

	if err := cfg.loadServer(); err != nil {
		return nil, fmt.Errorf("load server config: %w", err)
	}
	cfg.loadStore()
	cfg.Database.URL = os.Getenv("DATABASE_URL")
	if err := cfg.loadSecurity(); err != nil {
		return nil, fmt.Errorf("load security config: %w", err)
	}
	if err := cfg.loadMovieAPI(); err != nil {
		return nil, fmt.Errorf("load movie api config: %w", err)
	}
	cfg.loadCORS()
	cfg.loadLogging()

	cfg.Env = strings.ToLower(os.Getenv("ENV"))
	cfg.BootstrapDemo, _ = strconv.ParseBool(os.Getenv("BOOTSTRAP_DEMO"))

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

func (c *Config) loadServer() error {
	port, err := strconv.Atoi(getEnvOrDefault("PORT", "8080"))
	if err != nil {
		return fmt.Errorf("invalid PORT: %w", err)
	}
	c.Server.Port = port
	c.Server.Host = getEnvOrDefault("HOST", "0.0.0.0")
	return nil
}

func (c *Config) loadStore() {
	c.Store.Backend = strings.ToLower(getEnvOrDefault("STORE_BACKEND", BackendJSON))
	c.Store.UsersFile = getEnvOrDefault("USERS_FILE", "users.json")
}

func (c *Config) loadSecurity() error {
	c.Security.SessionSecret = os.Getenv("SESSION_SECRET")

	ttl, err := time.ParseDuration(getEnvOrDefault("SESSION_TTL", "24h"))
	if err != nil {
		return fmt.Errorf("invalid SESSION_TTL: %w", err)
	}
	c.Security.SessionTTL = ttl
	return nil
}

func (c *Config) loadMovieAPI() error {
	c.MovieAPI.TMDBAPIKey = os.Getenv("TMDB_API_KEY")
	c.MovieAPI.TMDBBaseURL = getEnvOrDefault("TMDB_BASE_URL", "https://api.themoviedb.org/3")
	c.MovieAPI.OMDbAPIKey = os.Getenv("OMDB_API_KEY")
	c.MovieAPI.OMDbBaseURL = getEnvOrDefault("OMDB_BASE_URL", "https://www.omdbapi.com")

	timeout, err := time.ParseDuration(getEnvOrDefault("MOVIE_API_TIMEOUT", "10s"))
	if err != nil {
		return fmt.Errorf("invalid MOVIE_API_TIMEOUT: %w", err)
	}
	c.MovieAPI.Timeout = timeout

	rps, err := strconv.ParseFloat(getEnvOrDefault("MOVIE_API_RATE", "20"), 64)
	if err != nil {
		return fmt.Errorf("invalid MOVIE_API_RATE: %w", err)
	}
	c.MovieAPI.RequestsPerSecond = rps
	return nil
}

func (c *Config) loadCORS() {
	originsEnv := os.Getenv("CORS_ALLOWED_ORIGINS")
	if originsEnv == "" {
		// Default for local development
		c.CORS.AllowedOrigins = []string{
			"http://localhost:3000",
			"http://localhost:5173",
			"http://localhost:8080",
		}
		return
	}

	var origins []string
	for _, origin := range strings.Split(originsEnv, ",") {
		if trimmed := strings.TrimSpace(origin); trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	c.CORS.AllowedOrigins = origins
}

func (c *Config) loadLogging() {
	c.Logging.Level = getEnvOrDefault("LOG_LEVEL", "info")
	c.Logging.Format = getEnvOrDefault("LOG_FORMAT", "json")
}

// Validate checks that all required configuration is present and valid.
func (c *Config) Validate() error {
	var errors []string

	switch c.Store.Backend {
	case BackendJSON:
		if c.Store.UsersFile == "" {
			errors = append(errors, "USERS_FILE is required for the json store")
		}
	case BackendPostgres:
		if c.Database.URL == "" {
			errors = append(errors, "DATABASE_URL is required for the postgres store")
		}
	default:
		errors = append(errors, "STORE_BACKEND must be one of: json, postgres")
	}

	if c.Security.SessionSecret == "" {
		errors = append(errors, "SESSION_SECRET is required")
	} else if len(c.Security.SessionSecret) < 16 {
		errors = append(errors, "SESSION_SECRET must be at least 16 characters")
	}
	if c.Security.SessionTTL <= 0 {
		errors = append(errors, "SESSION_TTL must be positive")
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errors = append(errors, "PORT must be between 1 and 65535")
	}

	if c.MovieAPI.Timeout <= 0 {
		errors = append(errors, "MOVIE_API_TIMEOUT must be positive")
	}
	if c.MovieAPI.RequestsPerSecond < 0 {
		errors = append(errors, "MOVIE_API_RATE must not be negative")
	}

	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[c.Logging.Level] {
		errors = append(errors, "LOG_LEVEL must be one of: debug, info, warn, error")
	}

	validLogFormats := map[string]bool{"json": true, "text": true}
	if !validLogFormats[c.Logging.Format] {
		errors = append(errors, "LOG_FORMAT must be one of: json, text")
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n  - %s", strings.Join(errors, "\n  - "))
	}
	return nil
}

// Addr returns the host:port the server listens on.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// IsProduction returns true if running in production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
