package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config represents the complete application configuration
type Config struct {
	Server        ServerConfig
	Budget        BudgetConfig
	Backends      BackendsConfig
	Database      *DatabaseConfig // Optional: usage ledger DB. When nil, usage logging is disabled.
	Observability ObservabilityConfig
	CatalogPath   string
	AuthSecret    string // When empty, the gateway runs without authentication.
	Environment   string
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// BudgetConfig holds daily spend policy
type BudgetConfig struct {
	DailyLimitUSD    float64
	DegradeThreshold float64
}

// BackendsConfig holds per-family backend settings. API keys themselves stay
// in the environment and are resolved per request, so supplying or revoking
// a credential takes effect without a restart.
type BackendsConfig struct {
	Anthropic  AnthropicConfig
	OpenRouter OpenRouterConfig
	Local      LocalConfig
}

// AnthropicConfig holds Anthropic backend configuration
type AnthropicConfig struct {
	APIKeyEnv string
	BaseURL   string
	Timeout   time.Duration
}

// OpenRouterConfig holds OpenRouter backend configuration
type OpenRouterConfig struct {
	APIKeyEnv string
	BaseURL   string
	Timeout   time.Duration
}

// LocalConfig holds self-hosted backend configuration
type LocalConfig struct {
	BaseURLEnv string
	Timeout    time.Duration
}

// DatabaseConfig holds PostgreSQL configuration for the usage ledger
type DatabaseConfig struct {
	ConnectionString string
	MaxOpenConns     int
	MaxIdleConns     int
	ConnMaxLifetime  time.Duration
}

// ObservabilityConfig holds logging configuration
type ObservabilityConfig struct {
	LogLevel  string
	LogFormat string // json or console
}

// New creates a new Config instance by loading environment variables
func New() (*Config, error) {
	// Load .env if it exists; real environment takes precedence
	_ = godotenv.Load(".env")

	cfg := &Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		CatalogPath: getEnv("CATALOG_PATH", "configs/models.yaml"),
		AuthSecret:  getEnv("AUTH_SECRET", ""),
		Server: ServerConfig{
			Host:            getEnv("SERVER_HOST", "0.0.0.0"),
			Port:            getEnvAsInt("SERVER_PORT", 8090),
			ReadTimeout:     getEnvAsDuration("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout:    getEnvAsDuration("SERVER_WRITE_TIMEOUT", 120*time.Second),
			ShutdownTimeout: getEnvAsDuration("SERVER_SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Budget: BudgetConfig{
			DailyLimitUSD:    getEnvAsFloat("DAILY_COST_LIMIT_USD", 5.0),
			DegradeThreshold: getEnvAsFloat("BUDGET_DEGRADE_THRESHOLD", 0.8),
		},
		Backends: BackendsConfig{
			Anthropic: AnthropicConfig{
				APIKeyEnv: getEnv("ANTHROPIC_API_KEY_ENV", "ANTHROPIC_API_KEY"),
				BaseURL:   getEnv("ANTHROPIC_BASE_URL", "https://api.anthropic.com"),
				Timeout:   getEnvAsDuration("ANTHROPIC_TIMEOUT", 60*time.Second),
			},
			OpenRouter: OpenRouterConfig{
				APIKeyEnv: getEnv("OPENROUTER_API_KEY_ENV", "OPENROUTER_API_KEY"),
				BaseURL:   getEnv("OPENROUTER_BASE_URL", "https://openrouter.ai/api/v1"),
				Timeout:   getEnvAsDuration("OPENROUTER_TIMEOUT", 60*time.Second),
			},
			Local: LocalConfig{
				BaseURLEnv: getEnv("LOCAL_BASE_URL_ENV", "LOCAL_LLM_BASE_URL"),
				Timeout:    getEnvAsDuration("LOCAL_TIMEOUT", 120*time.Second),
			},
		},
		Database: loadDatabaseConfig(),
		Observability: ObservabilityConfig{
			LogLevel:  getEnv("LOG_LEVEL", "info"),
			LogFormat: getEnv("LOG_FORMAT", "json"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks if all required configuration fields are sane
func (c *Config) Validate() error {
	if c.CatalogPath == "" {
		return fmt.Errorf("catalog path is required")
	}
	if c.Budget.DailyLimitUSD < 0 {
		return fmt.Errorf("daily cost limit must be >= 0")
	}
	if c.Budget.DegradeThreshold <= 0 || c.Budget.DegradeThreshold > 1 {
		return fmt.Errorf("budget degrade threshold must be in (0, 1]")
	}
	if c.Observability.LogLevel == "" {
		return fmt.Errorf("log level is required")
	}
	return nil
}

// IsProduction returns true if running in production environment
func (c *Config) IsProduction() bool {
	return c.Environment == "production" || c.Environment == "prod"
}

// Address returns the HTTP server address
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// LogString returns a safe connection string for logging (no password)
func (c *DatabaseConfig) LogString() string {
	u, err := url.Parse(c.ConnectionString)
	if err != nil {
		return "host=<from DATABASE_URL>"
	}
	port := u.Port()
	if port == "" {
		port = "5432"
	}
	return fmt.Sprintf("host=%s port=%s database=%s", u.Hostname(), port, strings.TrimPrefix(u.Path, "/"))
}

// loadDatabaseConfig loads the usage ledger DB config from DATABASE_URL.
// Returns nil when not set (usage logging disabled).
func loadDatabaseConfig() *DatabaseConfig {
	dbURL := getEnv("DATABASE_URL", "")
	if dbURL == "" {
		return nil
	}
	return &DatabaseConfig{
		ConnectionString: dbURL,
		MaxOpenConns:     getEnvAsInt("DB_MAX_OPEN_CONNS", 10),
		MaxIdleConns:     getEnvAsInt("DB_MAX_IDLE_CONNS", 5),
		ConnMaxLifetime:  getEnvAsDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
	}
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
