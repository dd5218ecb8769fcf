package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"
)

// Backends accepted by DATA_BACKEND.
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
)

type Config struct {
	// HTTP Server
	Port      string
	RateLimit int

	// Logging
	LogLevel string

	// Backend selection
	DataBackend  string
	SQLiteDBPath string
	DataDir      string

	// AMQP (optional)
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Advisor (optional)
	AdvisorBaseURL     string
	AdvisorAPIKey      string
	AdvisorModel       string
	AdvisorTemperature float64
	AdvisorMaxTokens   int
	AdvisorTimeout     time.Duration

	// Projection cache
	ProjectionCacheSize int
	ProjectionCacheTTL  time.Duration

	// Worker
	ExportMonths   int
	ExportInterval time.Duration
	ExportTarget   string

	// Google Sheets export
	GoogleSpreadsheetID       string
	GoogleSummarySheetName    string
	GoogleProjectionSheetName string
	GoogleServiceAccountJSON  string
	GoogleServiceAccountFile  string
}

func Load() *Config {
	cfg := &Config{
		Port:      getEnv("PORT", "8081"),
		RateLimit: getEnvInt("RATE_LIMIT_PER_MINUTE", 60),

		LogLevel: getEnv("LOG_LEVEL", "info"),

		DataBackend:  getEnv("DATA_BACKEND", BackendMemory),
		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/finx.db"),
		DataDir:      getEnv("DATA_DIR", "data"),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "finx"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "snapshot_events"),

		AdvisorBaseURL:     getEnv("ADVISOR_BASE_URL", "https://api.openai.com/v1"),
		AdvisorAPIKey:      getEnv("ADVISOR_API_KEY", ""),
		AdvisorModel:       getEnv("ADVISOR_MODEL", "gpt-4o-mini"),
		AdvisorTemperature: getEnvFloat("ADVISOR_TEMPERATURE", 0.7),
		AdvisorMaxTokens:   getEnvInt("ADVISOR_MAX_TOKENS", 1024),
		AdvisorTimeout:     getEnvDuration("ADVISOR_TIMEOUT", 60*time.Second),

		ProjectionCacheSize: getEnvInt("PROJECTION_CACHE_SIZE", 64),
		ProjectionCacheTTL:  getEnvDuration("PROJECTION_CACHE_TTL", 10*time.Minute),

		ExportMonths:   getEnvInt("EXPORT_MONTHS", 60),
		ExportInterval: getEnvDuration("EXPORT_INTERVAL", 5*time.Minute),
		ExportTarget:   getEnv("EXPORT_TARGET", "sheets"),

		GoogleSpreadsheetID:       getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleSummarySheetName:    getEnv("GOOGLE_SUMMARY_SHEET_NAME", "Summary"),
		GoogleProjectionSheetName: getEnv("GOOGLE_PROJECTION_SHEET_NAME", "Projection"),
		GoogleServiceAccountJSON:  getEnv("GOOGLE_SERVICE_ACCOUNT_JSON", ""),
		GoogleServiceAccountFile:  getEnv("GOOGLE_SERVICE_ACCOUNT_FILE", ""),
	}

	return cfg
}

// AdvisorEnabled reports whether an advisor API key is configured.
func (c *Config) AdvisorEnabled() bool {
	return strings.TrimSpace(c.AdvisorAPIKey) != ""
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	// Validate port
	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if c.RateLimit < 1 {
		errors = append(errors, fmt.Sprintf("invalid rate limit %d: must be at least 1 request per minute", c.RateLimit))
	}

	validLevels := []string{"debug", "info", "warn", "error"}
	if level := strings.ToLower(c.LogLevel); !slices.Contains(validLevels, level) && level != "warning" {
		errors = append(errors, fmt.Sprintf("invalid log level '%s': must be one of %v", c.LogLevel, validLevels))
	}

	// Validate data backend
	validBackends := []string{BackendMemory, BackendSQLite}
	if !slices.Contains(validBackends, c.DataBackend) {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}

	// Validate SQLite configuration if backend is sqlite
	if c.DataBackend == BackendSQLite {
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
		} else {
			// Check if directory exists or can be created
			dir := filepath.Dir(c.SQLiteDBPath)
			if dir != "." && dir != "" {
				if _, err := os.Stat(dir); os.IsNotExist(err) {
					if err := os.MkdirAll(dir, 0755); err != nil {
						errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
					}
				}
			}
		}
	}

	// Validate AMQP URL if provided
	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	// Validate advisor settings only when it is enabled
	if c.AdvisorEnabled() {
		if parsedURL, err := url.Parse(c.AdvisorBaseURL); err != nil || (parsedURL.Scheme != "http" && parsedURL.Scheme != "https") {
			errors = append(errors, fmt.Sprintf("invalid advisor base URL '%s': must be an http(s) URL", c.AdvisorBaseURL))
		}
		if c.AdvisorModel == "" {
			errors = append(errors, "advisor model cannot be empty when ADVISOR_API_KEY is set")
		}
		if c.AdvisorTemperature < 0 || c.AdvisorTemperature > 2 {
			errors = append(errors, fmt.Sprintf("invalid advisor temperature %v: must be between 0 and 2", c.AdvisorTemperature))
		}
		if c.AdvisorMaxTokens < 1 {
			errors = append(errors, fmt.Sprintf("invalid advisor max tokens %d: must be at least 1", c.AdvisorMaxTokens))
		}
		if c.AdvisorTimeout < time.Second {
			errors = append(errors, fmt.Sprintf("invalid advisor timeout %v: must be at least 1 second", c.AdvisorTimeout))
		}
	}

	if c.ProjectionCacheSize < 1 {
		errors = append(errors, fmt.Sprintf("invalid projection cache size %d: must be at least 1", c.ProjectionCacheSize))
	}
	if c.ProjectionCacheTTL < time.Second {
		errors = append(errors, fmt.Sprintf("invalid projection cache TTL %v: must be at least 1 second", c.ProjectionCacheTTL))
	}

	// Validate worker configuration
	if c.ExportMonths < 1 || c.ExportMonths > 600 {
		errors = append(errors, fmt.Sprintf("invalid export months %d: must be between 1 and 600", c.ExportMonths))
	}
	if c.ExportInterval < time.Second {
		errors = append(errors, fmt.Sprintf("invalid export interval %v: must be at least 1 second", c.ExportInterval))
	} else if c.ExportInterval > 24*time.Hour {
		errors = append(errors, fmt.Sprintf("invalid export interval %v: must be at most 24 hours", c.ExportInterval))
	}

	// Return combined errors
	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

// ValidateWorker checks the settings only the export worker needs.
func (c *Config) ValidateWorker() error {
	var errors []string

	if c.DataBackend != BackendSQLite {
		errors = append(errors, fmt.Sprintf("export worker needs the sqlite backend, got '%s'", c.DataBackend))
	}
	if c.AMQPURL == "" {
		errors = append(errors, "AMQP_URL is required for the export worker")
	}

	switch c.ExportTarget {
	case "sheets":
		if c.GoogleSpreadsheetID == "" {
			errors = append(errors, "Google Spreadsheet ID is required when exporting to sheets")
		}
		if c.GoogleServiceAccountJSON == "" && c.GoogleServiceAccountFile == "" && os.Getenv("GOOGLE_APPLICATION_CREDENTIALS") == "" {
			errors = append(errors, "either GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE or GOOGLE_APPLICATION_CREDENTIALS must be provided for sheets export")
		}
		if c.GoogleServiceAccountFile != "" {
			if _, err := os.Stat(c.GoogleServiceAccountFile); os.IsNotExist(err) {
				errors = append(errors, fmt.Sprintf("Google service account file does not exist: %s", c.GoogleServiceAccountFile))
			}
		}
	case "memory":
	default:
		errors = append(errors, fmt.Sprintf("invalid export target '%s': must be one of [sheets memory]", c.ExportTarget))
	}

	if len(errors) > 0 {
		return fmt.Errorf("worker configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
