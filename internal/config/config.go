package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	DatabasePath     string
	Port             int
	DevMode          bool
	LogLevel         string
	SnapshotsToKeep  int
	BackupBucket     string
	BackupPrefix     string
	BackupSchedule   string
	BackupEnabled    bool
	FrontierMaxPoint int
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg := &Config{
		Port:             getEnvAsInt("PORT", 8080),
		DevMode:          getEnvAsBool("DEV_MODE", false),
		DatabasePath:     getEnv("DATABASE_PATH", "./data/analytics.db"),
		LogLevel:         getEnv("LOG_LEVEL", "info"),
		SnapshotsToKeep:  getEnvAsInt("SNAPSHOTS_TO_KEEP", 100),
		BackupBucket:     getEnv("BACKUP_S3_BUCKET", ""),
		BackupPrefix:     getEnv("BACKUP_S3_PREFIX", "analytics-backups"),
		BackupSchedule:   getEnv("BACKUP_SCHEDULE", "@daily"),
		FrontierMaxPoint: getEnvAsInt("FRONTIER_MAX_POINTS", 500),
	}
	cfg.BackupEnabled = cfg.BackupBucket != ""

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if required configuration is present
func (c *Config) Validate() error {
	if c.DatabasePath == "" {
		return fmt.Errorf("DATABASE_PATH is required")
	}
	if c.SnapshotsToKeep < 0 {
		return fmt.Errorf("SNAPSHOTS_TO_KEEP must not be negative")
	}
	return nil
}

// Helper functions
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

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}
