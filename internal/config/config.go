// Package config loads runtime configuration from the environment, with an
// optional YAML file overlay for deployments that prefer files over env vars.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds application configuration
type Config struct {
	ServerPort      string        `yaml:"server_port"`
	BaseURL         string        `yaml:"base_url"`
	FrontendURL     string        `yaml:"frontend_url"`
	UpstreamURL     string        `yaml:"upstream_url"`
	UpstreamTimeout time.Duration `yaml:"upstream_timeout"`
	AuthSecret      string        `yaml:"auth_secret"`
	Classifier      string        `yaml:"classifier"`
	OpenAIKey       string        `yaml:"openai_api_key"`
	AIModel         string        `yaml:"ai_model"`
	AIBaseURL       string        `yaml:"ai_base_url"`
	RedisURL        string        `yaml:"redis_url"`
	RabbitMQURL     string        `yaml:"rabbitmq_url"`
	CacheTTL        time.Duration `yaml:"cache_ttl"`
	RateLimit       string        `yaml:"rate_limit"`
	EnableHSTS      bool          `yaml:"enable_hsts"`
	ServerDebugMode bool          `yaml:"server_debug_mode"`
	OTELEnabled     bool          `yaml:"otel_enabled"`
	OTELEndpoint    string        `yaml:"otel_endpoint"`
}

// Load loads configuration from environment variables. If CONFIG_FILE is set,
// the YAML file is read first and env vars override its values.
func Load() (*Config, error) {
	cfg := &Config{
		ServerPort:      "8080",
		BaseURL:         "http://localhost:8080",
		FrontendURL:     "http://localhost:3000",
		UpstreamTimeout: 10 * time.Second,
		Classifier:      "pattern",
		CacheTTL:        60 * time.Second,
		RateLimit:       "60-M",
	}

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	cfg.ServerPort = getEnv("SERVER_PORT", cfg.ServerPort)
	cfg.BaseURL = getEnv("BASE_URL", cfg.BaseURL)
	cfg.FrontendURL = getEnv("FRONTEND_URL", cfg.FrontendURL)
	cfg.UpstreamURL = getEnv("UPSTREAM_URL", cfg.UpstreamURL)
	cfg.UpstreamTimeout = getEnvDuration("UPSTREAM_TIMEOUT", cfg.UpstreamTimeout)
	cfg.AuthSecret = getEnv("AUTH_SECRET", cfg.AuthSecret)
	cfg.Classifier = getEnv("CLASSIFIER", cfg.Classifier)
	cfg.OpenAIKey = getEnv("OPENAI_API_KEY", cfg.OpenAIKey)
	cfg.AIModel = getEnv("AI_MODEL", cfg.AIModel)
	cfg.AIBaseURL = getEnv("AI_BASE_URL", cfg.AIBaseURL)
	cfg.RedisURL = getEnv("REDIS_URL", cfg.RedisURL)
	cfg.RabbitMQURL = getEnv("RABBITMQ_URL", cfg.RabbitMQURL)
	cfg.CacheTTL = getEnvDuration("CACHE_TTL", cfg.CacheTTL)
	cfg.RateLimit = getEnv("RATE_LIMIT", cfg.RateLimit)
	cfg.EnableHSTS = getEnvBool("ENABLE_HSTS", cfg.EnableHSTS)
	cfg.ServerDebugMode = getEnvBool("SERVER_DEBUG_MODE", cfg.ServerDebugMode)
	cfg.OTELEnabled = getEnvBool("OTEL_ENABLED", cfg.OTELEnabled)
	cfg.OTELEndpoint = getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", cfg.OTELEndpoint)

	if cfg.UpstreamURL == "" {
		return nil, fmt.Errorf("UPSTREAM_URL is required")
	}
	if cfg.AuthSecret == "" {
		return nil, fmt.Errorf("AUTH_SECRET is required")
	}
	if cfg.Classifier != "pattern" && cfg.Classifier != "openai" {
		return nil, fmt.Errorf("CLASSIFIER must be \"pattern\" or \"openai\", got %q", cfg.Classifier)
	}
	if cfg.Classifier == "openai" && cfg.OpenAIKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY is required when CLASSIFIER=openai")
	}

	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true" || value == "1" || value == "yes"
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
