package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// Server
	ServerPort int
	Host       string

	// Catalog
	TMDBAPIToken     string
	TMDBBaseURL      string
	TMDBImageBaseURL string
	HTTPTimeout      time.Duration

	// Database
	DatabaseDriver string
	DatabaseURL    string

	// Auth
	UsersFile  string
	JWTSecret  string
	SessionTTL time.Duration

	// Workers
	RecommendConcurrency int
	PosterWorkers        int
	PosterCacheCapacity  int // 0 means unbounded
	PosterFetchTimeout   time.Duration

	// Logging
	LogLevel  string
	LogFormat string
	LogFile   string

	Debug bool
}

// Load reads configuration from the environment, falling back to defaults.
// Malformed numbers keep their default; Validate reports the rest.
func Load() *Config {
	return &Config{
		ServerPort: getEnvInt("SERVER_PORT", 8080),
		Host:       getEnv("HOST", "0.0.0.0"),

		TMDBAPIToken:     getEnv("TMDB_API_TOKEN", ""),
		TMDBBaseURL:      getEnv("TMDB_BASE_URL", "https://api.themoviedb.org/3"),
		TMDBImageBaseURL: getEnv("TMDB_IMAGE_BASE_URL", "https://image.tmdb.org/t/p"),
		HTTPTimeout:      time.Duration(getEnvInt("HTTP_TIMEOUT_SECONDS", 15)) * time.Second,

		DatabaseDriver: getEnv("DATABASE_DRIVER", "sqlite3"),
		DatabaseURL:    getEnv("DATABASE_URL", "file:flickfinder.db?_foreign_keys=on"),

		UsersFile:  getEnv("USERS_FILE", "users.txt"),
		JWTSecret:  getEnv("JWT_SECRET", ""),
		SessionTTL: time.Duration(getEnvInt("SESSION_TTL_HOURS", 24)) * time.Hour,

		RecommendConcurrency: getEnvInt("RECOMMEND_CONCURRENCY", 8),
		PosterWorkers:        getEnvInt("POSTER_WORKERS", 4),
		PosterCacheCapacity:  getEnvInt("POSTER_CACHE_CAPACITY", 0),
		PosterFetchTimeout:   time.Duration(getEnvInt("POSTER_FETCH_TIMEOUT_SECONDS", 20)) * time.Second,

		LogLevel:  strings.ToLower(getEnv("LOG_LEVEL", "info")),
		LogFormat: strings.ToLower(getEnv("LOG_FORMAT", "json")),
		LogFile:   getEnv("LOG_FILE", ""),

		Debug: getEnvBool("DEBUG", false),
	}
}

// Validate returns every configuration problem joined into one error.
func (c *Config) Validate() error {
	var errs []error

	if c.TMDBAPIToken == "" {
		errs = append(errs, errors.New("TMDB_API_TOKEN is required"))
	}
	if c.ServerPort < 1 || c.ServerPort > 65535 {
		errs = append(errs, fmt.Errorf("SERVER_PORT %d is out of range", c.ServerPort))
	}
	if c.HTTPTimeout <= 0 {
		errs = append(errs, errors.New("HTTP_TIMEOUT_SECONDS must be positive"))
	}
	switch c.DatabaseDriver {
	case "postgres", "sqlite3":
	default:
		errs = append(errs, fmt.Errorf("DATABASE_DRIVER %q is not supported (use postgres or sqlite3)", c.DatabaseDriver))
	}
	if c.DatabaseURL == "" {
		errs = append(errs, errors.New("DATABASE_URL is required"))
	}
	if c.UsersFile == "" {
		errs = append(errs, errors.New("USERS_FILE is required"))
	}
	if c.SessionTTL <= 0 {
		errs = append(errs, errors.New("SESSION_TTL_HOURS must be positive"))
	}
	if c.RecommendConcurrency < 1 {
		errs = append(errs, errors.New("RECOMMEND_CONCURRENCY must be at least 1"))
	}
	if c.PosterWorkers < 1 {
		errs = append(errs, errors.New("POSTER_WORKERS must be at least 1"))
	}
	if c.PosterCacheCapacity < 0 {
		errs = append(errs, errors.New("POSTER_CACHE_CAPACITY must not be negative"))
	}
	if c.PosterFetchTimeout <= 0 {
		errs = append(errs, errors.New("POSTER_FETCH_TIMEOUT_SECONDS must be positive"))
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("LOG_LEVEL %q is not one of debug, info, warn, error", c.LogLevel))
	}
	switch c.LogFormat {
	case "json", "console":
	default:
		errs = append(errs, fmt.Errorf("LOG_FORMAT %q is not json or console", c.LogFormat))
	}

	return errors.Join(errs...)
}

// Addr is the listen address for the HTTP server.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.ServerPort)
}

// getEnv returns the value of an environment variable or a default value
func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return n
}

func getEnvBool(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	b, err := strconv.ParseBool(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return b
}
