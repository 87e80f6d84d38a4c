package config

import (
	"os"
	"strconv"
	"time"

	"adlens/ai"
	"adlens/internal/errors"
	"adlens/models"
)

// Config represents the complete application configuration
type Config struct {
	LLM        models.LLMConfig
	Retry      ai.RetryPolicy
	Thresholds ThresholdConfig
	Data       DataConfig
	Outputs    OutputConfig
	Server     ServerConfig
	Database   DatabaseConfig
}

// ThresholdConfig holds the analysis cut-offs shared by agents
type ThresholdConfig struct {
	ConfidenceMin    float64
	LowCTRThreshold  float64
	LowROASThreshold float64
}

// DataConfig holds dataset input settings
type DataConfig struct {
	File string
}

// OutputConfig holds artifact directories
type OutputConfig struct {
	ReportsDir string
	LogsDir    string
}

// ServerConfig holds web server settings
type ServerConfig struct {
	Port string
}

// DatabaseConfig holds the optional run-archive database settings
type DatabaseConfig struct {
	URL string
}

// Load reads configuration from environment variables and validates it
func Load() (*Config, error) {
	cfg := &Config{
		LLM: models.LLMConfig{
			APIKey:        os.Getenv("OPENAI_API_KEY"),
			BaseURL:       getEnvOrDefault("OPENAI_BASE_URL", ""),
			Model:         getEnvOrDefault("LLM_MODEL", "gpt-4-turbo-preview"),
			Temperature:   getEnvFloatOrDefault("TEMPERATURE", 0.7),
			MaxTokens:     getEnvIntOrDefault("MAX_TOKENS", 4000),
			SystemContext: getEnvOrDefault("SYSTEM_CONTEXT", "You are a marketing performance analyst."),
			PromptsDir:    getEnvOrDefault("PROMPTS_DIR", "./prompts"),
		},
		Retry: ai.RetryPolicy{
			MaxRetries:    getEnvIntOrDefault("LLM_MAX_RETRIES", 3),
			InitialDelay:  getEnvDurationOrDefault("LLM_INITIAL_RETRY_DELAY", time.Second),
			MaxDelay:      getEnvDurationOrDefault("LLM_MAX_RETRY_DELAY", 60*time.Second),
			BackoffFactor: getEnvFloatOrDefault("LLM_BACKOFF_FACTOR", 2.0),
		},
		Thresholds: ThresholdConfig{
			ConfidenceMin:    getEnvFloatOrDefault("CONFIDENCE_MIN", 0.7),
			LowCTRThreshold:  getEnvFloatOrDefault("LOW_CTR_THRESHOLD", 0.01),
			LowROASThreshold: getEnvFloatOrDefault("LOW_ROAS_THRESHOLD", 1.0),
		},
		Data: DataConfig{
			File: getEnvOrDefault("DATA_FILE", "data/ads.csv"),
		},
		Outputs: OutputConfig{
			ReportsDir: getEnvOrDefault("REPORTS_DIR", "reports"),
			LogsDir:    getEnvOrDefault("LOGS_DIR", "logs"),
		},
		Server: ServerConfig{
			Port: getEnvOrDefault("PORT", "8080"),
		},
		Database: DatabaseConfig{
			URL: getEnvOrDefault("DATABASE_URL", ""),
		},
	}

	if err := validateConfig(cfg); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}
	return cfg, nil
}

func validateConfig(cfg *Config) error {
	if cfg.LLM.APIKey == "" {
		return errors.ConfigInvalid("OPENAI_API_KEY is required")
	}
	if cfg.LLM.PromptsDir == "" {
		return errors.ConfigInvalid("prompts directory is required")
	}
	if cfg.Retry.MaxRetries < 1 {
		return errors.ConfigInvalid("LLM_MAX_RETRIES must be at least 1")
	}
	if cfg.Retry.BackoffFactor < 1 {
		return errors.ConfigInvalid("LLM_BACKOFF_FACTOR must be at least 1")
	}
	if cfg.Thresholds.ConfidenceMin < 0 || cfg.Thresholds.ConfidenceMin > 1 {
		return errors.ConfigInvalid("CONFIDENCE_MIN must be within [0, 1]")
	}
	return nil
}

// Helper functions for environment variable parsing
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
