package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for the BrandLens server.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Scraper  ScraperConfig
	AI       AIConfig
}

type ServerConfig struct {
	Port int
	Env  string
}

type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type RedisConfig struct {
	URL string
}

type ScraperConfig struct {
	MaxSubPages int
	PageTimeout time.Duration
	UserAgent   string
}

// AIConfig covers all three providers. Every key is required at startup.
// A missing credential is a fatal configuration error, not a per-call one.
type AIConfig struct {
	CallTimeout   time.Duration
	RetryAttempts int
	RetryDelay    time.Duration
	Temperature   float64
	MaxTokens     int
	OpenAI        ProviderConfig
	Anthropic     ProviderConfig
	Google        ProviderConfig
}

// ProviderConfig holds one upstream's credentials, model, and price table.
// Prices are per 1K tokens in USD.
type ProviderConfig struct {
	APIKey             string
	BaseURL            string
	Model              string
	PromptPricePer1K   float64
	ResponsePricePer1K float64
}

// Load reads configuration from environment variables and returns a validated Config.
// Returns an error with a descriptive message if any required value is missing or invalid.
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port: envInt("BRANDLENS_PORT", 8080),
			Env:  envString("BRANDLENS_ENV", "development"),
		},
		Database: DatabaseConfig{
			URL:             os.Getenv("DATABASE_URL"),
			MaxOpenConns:    envInt("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    envInt("DATABASE_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: envDuration("DATABASE_CONN_MAX_LIFETIME", 5*time.Minute),
		},
		Redis: RedisConfig{
			URL: os.Getenv("REDIS_URL"),
		},
		Scraper: ScraperConfig{
			MaxSubPages: envInt("SCRAPER_MAX_SUBPAGES", 5),
			PageTimeout: envDuration("SCRAPER_PAGE_TIMEOUT", 20*time.Second),
			UserAgent:   envString("SCRAPER_USER_AGENT", "BrandLens/1.0"),
		},
		AI: AIConfig{
			CallTimeout:   envDurationSecs("AI_CALL_TIMEOUT_SECS", 120*time.Second),
			RetryAttempts: envInt("AI_RETRY_ATTEMPTS", 3),
			RetryDelay:    envDuration("AI_RETRY_DELAY", 2000*time.Millisecond),
			Temperature:   envFloat("AI_TEMPERATURE", 0.4),
			MaxTokens:     envInt("AI_MAX_TOKENS", 2048),
			OpenAI: ProviderConfig{
				APIKey:             os.Getenv("OPENAI_API_KEY"),
				Model:              envString("OPENAI_MODEL", "gpt-4o"),
				PromptPricePer1K:   envFloat("OPENAI_PROMPT_PRICE_PER_1K", 0.0025),
				ResponsePricePer1K: envFloat("OPENAI_RESPONSE_PRICE_PER_1K", 0.01),
			},
			Anthropic: ProviderConfig{
				APIKey:             os.Getenv("ANTHROPIC_API_KEY"),
				BaseURL:            envString("ANTHROPIC_BASE_URL", "https://api.anthropic.com"),
				Model:              envString("ANTHROPIC_MODEL", "claude-sonnet-4-5-20250929"),
				PromptPricePer1K:   envFloat("ANTHROPIC_PROMPT_PRICE_PER_1K", 0.003),
				ResponsePricePer1K: envFloat("ANTHROPIC_RESPONSE_PRICE_PER_1K", 0.015),
			},
			Google: ProviderConfig{
				APIKey:             os.Getenv("GOOGLE_API_KEY"),
				BaseURL:            envString("GOOGLE_BASE_URL", "https://generativelanguage.googleapis.com"),
				Model:              envString("GOOGLE_MODEL", "gemini-2.0-flash"),
				PromptPricePer1K:   envFloat("GOOGLE_PROMPT_PRICE_PER_1K", 0.0001),
				ResponsePricePer1K: envFloat("GOOGLE_RESPONSE_PRICE_PER_1K", 0.0004),
			},
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if c.Redis.URL == "" {
		return fmt.Errorf("REDIS_URL is required")
	}

	if c.AI.OpenAI.APIKey == "" {
		return fmt.Errorf("OPENAI_API_KEY is required")
	}
	if c.AI.Anthropic.APIKey == "" {
		return fmt.Errorf("ANTHROPIC_API_KEY is required")
	}
	if c.AI.Google.APIKey == "" {
		return fmt.Errorf("GOOGLE_API_KEY is required")
	}

	if !strings.HasPrefix(c.AI.Anthropic.BaseURL, "http://") && !strings.HasPrefix(c.AI.Anthropic.BaseURL, "https://") {
		return fmt.Errorf("ANTHROPIC_BASE_URL must start with http:// or https://, got %q", c.AI.Anthropic.BaseURL)
	}
	if !strings.HasPrefix(c.AI.Google.BaseURL, "http://") && !strings.HasPrefix(c.AI.Google.BaseURL, "https://") {
		return fmt.Errorf("GOOGLE_BASE_URL must start with http:// or https://, got %q", c.AI.Google.BaseURL)
	}

	if c.AI.RetryAttempts < 1 {
		return fmt.Errorf("AI_RETRY_ATTEMPTS must be at least 1, got %d", c.AI.RetryAttempts)
	}
	if c.Scraper.MaxSubPages < 0 {
		return fmt.Errorf("SCRAPER_MAX_SUBPAGES must not be negative, got %d", c.Scraper.MaxSubPages)
	}

	return nil
}

func envString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func envFloat(key string, defaultVal float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return defaultVal
	}
	return f
}

func envDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}

func envDurationSecs(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	secs, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return time.Duration(secs) * time.Second
}
