package common

import (
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration
type Config struct {
	Database DatabaseConfig
	Storage  StorageConfig
	Engine   EngineConfig
	Worker   WorkerConfig
}

// DatabaseConfig holds job-store configuration. When DSN is empty the
// daemon falls back to the SQLite file at SQLitePath.
type DatabaseConfig struct {
	DSN             string
	SQLitePath      string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
	DialTimeout     time.Duration
}

// StorageConfig holds object-store configuration
type StorageConfig struct {
	RootDir       string
	BaseURL       string
	SigningSecret string
	PresignTTL    time.Duration
}

// EngineConfig holds analysis-engine configuration
type EngineConfig struct {
	ReplayDir      string
	PageSize       int
	PollInterval   time.Duration
	DeadlineMargin time.Duration
	MaxResults     int
}

// WorkerConfig holds processing-queue configuration
type WorkerConfig struct {
	Workers        int
	QueueSize      int
	ProcessTimeout time.Duration
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			DSN:             getEnv("DB_URL", ""),
			SQLitePath:      getEnv("SQLITE_PATH", "./data/jobs.db"),
			MaxConns:        getEnvAsInt32("DB_MAX_CONNS", 10),
			MinConns:        getEnvAsInt32("DB_MIN_CONNS", 2),
			MaxConnLifetime: getEnvAsDuration("DB_MAX_CONN_LIFETIME", 30*time.Minute),
			MaxConnIdleTime: getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", 5*time.Minute),
			DialTimeout:     getEnvAsDuration("DB_DIAL_TIMEOUT", 3*time.Second),
		},
		Storage: StorageConfig{
			RootDir:       getEnv("STORAGE_ROOT", "./data/objects"),
			BaseURL:       getEnv("STORAGE_BASE_URL", "http://localhost:8080/objects"),
			SigningSecret: getEnv("STORAGE_SIGNING_SECRET", ""),
			PresignTTL:    getEnvAsDuration("STORAGE_PRESIGN_TTL", time.Hour),
		},
		Engine: EngineConfig{
			ReplayDir:      getEnv("ENGINE_REPLAY_DIR", "./data/analysis"),
			PageSize:       getEnvAsInt("ENGINE_PAGE_SIZE", 1000),
			PollInterval:   getEnvAsDuration("ENGINE_POLL_INTERVAL", 5*time.Second),
			DeadlineMargin: getEnvAsDuration("ENGINE_DEADLINE_MARGIN", 60*time.Second),
			MaxResults:     getEnvAsInt("ENGINE_MAX_RESULTS", 1000),
		},
		Worker: WorkerConfig{
			Workers:        getEnvAsInt("WORKERS", 4),
			QueueSize:      getEnvAsInt("QUEUE_SIZE", 256),
			ProcessTimeout: getEnvAsDuration("PROCESS_TIMEOUT", 10*time.Minute),
		},
	}
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsInt32(key string, defaultValue int32) int32 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 32); err == nil {
			return int32(intVal)
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// Validate validates the loaded configuration
func (c *Config) Validate() error {
	if c.Storage.RootDir == "" {
		return NewAppError("CONFIG_ERROR", "STORAGE_ROOT is required", ErrInvalidInput)
	}
	if c.Database.DSN == "" && c.Database.SQLitePath == "" {
		return NewAppError("CONFIG_ERROR", "one of DB_URL or SQLITE_PATH is required", ErrInvalidInput)
	}
	if c.Engine.PollInterval <= 0 {
		return NewAppError("CONFIG_ERROR", "ENGINE_POLL_INTERVAL must be positive", ErrInvalidInput)
	}
	if c.Engine.DeadlineMargin <= 0 {
		return NewAppError("CONFIG_ERROR", "ENGINE_DEADLINE_MARGIN must be positive", ErrInvalidInput)
	}
	return nil
}
