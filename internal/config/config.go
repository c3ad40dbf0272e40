package config

import (
	"fmt"
	"os"
	"strconv"
	"student-taskgen/internal/models"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Mistral MistralConfig
	Server  ServerConfig
	// SchemaPath points at the JSON schema used to validate strict-mode answers
	SchemaPath string
	// DefaultMode is the output mode used when a request does not pick one
	DefaultMode models.OutputMode
}

// MistralConfig holds Mistral API configuration
type MistralConfig struct {
	APIKey         string
	Model          string
	BaseURL        string
	TimeoutSeconds int
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port string
	Host string
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	// Try to load .env file (ignore error if it doesn't exist)
	_ = godotenv.Load()

	config := &Config{
		Mistral: MistralConfig{
			APIKey:         getEnv("MISTRAL_API_KEY", ""),
			Model:          getEnv("MISTRAL_MODEL", "mistral-small"),
			BaseURL:        getEnv("MISTRAL_BASE_URL", "https://api.mistral.ai/v1"),
			TimeoutSeconds: getEnvInt("MISTRAL_TIMEOUT_SECONDS", 90),
		},
		Server: ServerConfig{
			Port: getEnv("PORT", "8085"),
			Host: getEnv("HOST", "0.0.0.0"),
		},
		SchemaPath:  getEnv("TASK_SCHEMA_PATH", "schemas/task_schema.json"),
		DefaultMode: models.OutputMode(getEnv("TASK_OUTPUT_MODE", string(models.ModeExtended))),
	}

	if err := ValidateConfig(config); err != nil {
		return nil, err
	}

	return config, nil
}

// ValidateConfig validates that required configuration values are present
func ValidateConfig(config *Config) error {
	// The Mistral API key is not required at startup - clients may supply a
	// key per request. A missing key is rejected when a run is started.
	if !models.ValidOutputMode(config.DefaultMode) {
		return fmt.Errorf("TASK_OUTPUT_MODE must be %q or %q, got %q",
			models.ModeExtended, models.ModeStrict, config.DefaultMode)
	}
	if config.Mistral.TimeoutSeconds <= 0 {
		return fmt.Errorf("MISTRAL_TIMEOUT_SECONDS must be positive")
	}
	return nil
}

// Helper functions for environment variable access
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
