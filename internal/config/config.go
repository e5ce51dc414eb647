package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all application configuration
type Config struct {
	Port        string `yaml:"port"`
	Environment string `yaml:"environment"` // "development" or "production"

	// DatabaseURL selects the driver by scheme: a mysql:// or postgres://
	// DSN uses the matching driver, anything else is treated as a SQLite path.
	DatabaseURL string `yaml:"database_url"`

	// Model provider (OpenAI-compatible chat completions API)
	OpenAIBaseURL string `yaml:"openai_base_url"`
	OpenAIAPIKey  string `yaml:"openai_api_key"`
	OpenAIModel   string `yaml:"openai_model"`

	// MaxToolIterations bounds the model/tool round trips in one turn
	MaxToolIterations int `yaml:"max_tool_iterations"`

	AllowedOrigins   string `yaml:"allowed_origins"`
	RedisURL         string `yaml:"redis_url"`          // optional, enables cross-instance broadcasts
	SystemPromptFile string `yaml:"system_prompt_file"` // optional, overrides the built-in prompt

	// Rate limiting
	WSMessagesPerMinute  int `yaml:"ws_messages_per_minute"`
	APIRequestsPerMinute int `yaml:"api_requests_per_minute"`

	// ModelHealthInterval is how often the provider probe job runs
	ModelHealthInterval time.Duration `yaml:"model_health_interval"`
}

// Load builds the configuration: defaults, then the optional YAML file named
// by CONFIG_FILE, then environment variables on top.
func Load() *Config {
	cfg := &Config{
		Port:                 "8000",
		Environment:          "development",
		DatabaseURL:          "./data/taskmate.db",
		OpenAIBaseURL:        "https://api.openai.com/v1",
		OpenAIModel:          "gpt-4o-mini",
		MaxToolIterations:    6,
		AllowedOrigins:       "http://localhost:5173,http://localhost:3000",
		WSMessagesPerMinute:  30,
		APIRequestsPerMinute: 120,
		ModelHealthInterval:  5 * time.Minute,
	}

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			fmt.Printf("⚠️  [CONFIG] Failed to load %s: %v\n", path, err)
		}
	}

	cfg.applyEnv()
	return cfg
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config YAML: %w", err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.Port = getEnv("PORT", c.Port)
	c.Environment = getEnv("ENVIRONMENT", c.Environment)
	c.DatabaseURL = getEnv("DATABASE_URL", c.DatabaseURL)
	c.OpenAIBaseURL = getEnv("OPENAI_BASE_URL", c.OpenAIBaseURL)
	c.OpenAIAPIKey = getEnv("OPENAI_API_KEY", c.OpenAIAPIKey)
	c.OpenAIModel = getEnv("OPENAI_MODEL", c.OpenAIModel)
	c.MaxToolIterations = getIntEnv("MAX_TOOL_ITERATIONS", c.MaxToolIterations)
	c.AllowedOrigins = getEnv("ALLOWED_ORIGINS", c.AllowedOrigins)
	c.RedisURL = getEnv("REDIS_URL", c.RedisURL)
	c.SystemPromptFile = getEnv("SYSTEM_PROMPT_FILE", c.SystemPromptFile)
	c.WSMessagesPerMinute = getIntEnv("WS_MESSAGES_PER_MINUTE", c.WSMessagesPerMinute)
	c.APIRequestsPerMinute = getIntEnv("API_REQUESTS_PER_MINUTE", c.APIRequestsPerMinute)
	c.ModelHealthInterval = getDurationEnv("MODEL_HEALTH_INTERVAL", c.ModelHealthInterval)
}

// IsProduction reports whether the app runs with production settings
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		parsed, err := strconv.Atoi(value)
		if err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		parsed, err := time.ParseDuration(value)
		if err == nil {
			return parsed
		}
	}
	return defaultValue
}
