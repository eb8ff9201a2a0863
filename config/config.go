package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	ServerConfig   ServerConfig   `json:"server"`
	DatabaseConfig DatabaseConfig `json:"database"`
	RedisConfig    RedisConfig    `json:"redis"`
	MarketConfig   MarketConfig   `json:"market"`
	StreamConfig   StreamConfig   `json:"stream"`
	ScannerConfig  ScannerConfig  `json:"scanner"`
	EngineConfig   EngineConfig   `json:"engine"`
	ExternalConfig ExternalConfig `json:"external"`
	NotifyConfig   NotifyConfig   `json:"notify"`
	LearningConfig LearningConfig `json:"learning"`
	LoggingConfig  LoggingConfig  `json:"logging"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port            int      `json:"port"`
	ProductionMode  bool     `json:"production_mode"`
	AllowedOrigins  []string `json:"allowed_origins"`
	ShutdownTimeout int      `json:"shutdown_timeout"` // Seconds
}

// DatabaseConfig holds PostgreSQL configuration.
type DatabaseConfig struct {
	Enabled  bool   `json:"enabled"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	Database string `json:"database"`
	SSLMode  string `json:"ssl_mode"`
}

// RedisConfig holds Redis cache configuration.
type RedisConfig struct {
	Enabled  bool   `json:"enabled"`
	Address  string `json:"address"`
	Password string `json:"password"`
	DB       int    `json:"db"`
}

// MarketConfig holds the exchange REST client configuration.
type MarketConfig struct {
	BaseURL           string  `json:"base_url"`
	RequestsPerSecond float64 `json:"requests_per_second"`
	TimeoutSeconds    int     `json:"timeout_seconds"`
	CandleTTLSeconds  int     `json:"candle_ttl_seconds"`
	TickerTTLSeconds  int     `json:"ticker_ttl_seconds"`
}

// StreamConfig holds the websocket kline stream configuration.
type StreamConfig struct {
	Enabled    bool     `json:"enabled"`
	URL        string   `json:"url"`
	Symbols    []string `json:"symbols"`
	Timeframes []string `json:"timeframes"`
	WindowSize int      `json:"window_size"`
}

// ScannerConfig holds the market scan loop configuration.
type ScannerConfig struct {
	Enabled           bool    `json:"enabled"`
	IntervalSeconds   int     `json:"interval_seconds"`
	Workers           int     `json:"workers"`
	MaxSymbols        int     `json:"max_symbols"`
	MaxResults        int     `json:"max_results"`
	ScoreThreshold    float64 `json:"score_threshold"`
	ReferenceSymbol   string  `json:"reference_symbol"`
	QuoteAsset        string  `json:"quote_asset"`
	SafetyMovePercent float64 `json:"safety_move_percent"`
}

// EngineConfig holds analysis engine defaults.
type EngineConfig struct {
	AllowNeutral       bool    `json:"allow_neutral"`
	DefaultCapital     float64 `json:"default_capital"`
	DefaultRiskPercent float64 `json:"default_risk_percent"`
	MaxDailyLoss       float64 `json:"max_daily_loss"`
}

// ExternalConfig holds the external-factor provider endpoints.
type ExternalConfig struct {
	Enabled         bool   `json:"enabled"`
	EventsURL       string `json:"events_url"`
	FundamentalsURL string `json:"fundamentals_url"`
	NewsURL         string `json:"news_url"`
	TimeoutSeconds  int    `json:"timeout_seconds"`
}

// NotifyConfig holds outbound notification configuration.
type NotifyConfig struct {
	Enabled              bool    `json:"enabled"`
	WebhookURL           string  `json:"webhook_url"`
	ConfidenceThreshold  float64 `json:"confidence_threshold"`
	TimeoutSeconds       int     `json:"timeout_seconds"`
}

// LearningConfig holds the adaptive learning scheduler configuration.
type LearningConfig struct {
	Enabled       bool     `json:"enabled"`
	IntervalHours int      `json:"interval_hours"`
	Users         []string `json:"users"`
}

// LoggingConfig holds log output configuration.
type LoggingConfig struct {
	Level      string `json:"level"`       // debug, info, warn, error
	JSONFormat bool   `json:"json_format"` // JSON instead of console writer
}

// Load reads config.json when present, then applies environment overrides.
// Environment variables take precedence over the file.
func Load() (*Config, error) {
	cfg, err := loadFromFile("config.json")
	if err != nil {
		cfg = &Config{}
	}
	applyEnvOverrides(cfg)
	return cfg, nil
}

func loadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := &Config{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	// Server
	cfg.ServerConfig.Port = getEnvIntOrDefault("WEB_PORT", defaultInt(cfg.ServerConfig.Port, 8080))
	cfg.ServerConfig.ProductionMode = getEnvOrDefault("PRODUCTION_MODE", boolString(cfg.ServerConfig.ProductionMode)) == "true"
	if origins := os.Getenv("SERVER_ALLOWED_ORIGINS"); origins != "" {
		cfg.ServerConfig.AllowedOrigins = splitAndTrim(origins)
	}
	cfg.ServerConfig.ShutdownTimeout = getEnvIntOrDefault("SERVER_SHUTDOWN_TIMEOUT", defaultInt(cfg.ServerConfig.ShutdownTimeout, 10))

	// Database
	cfg.DatabaseConfig.Enabled = getEnvOrDefault("DB_ENABLED", boolString(cfg.DatabaseConfig.Enabled)) == "true"
	cfg.DatabaseConfig.Host = getEnvOrDefault("DB_HOST", defaultString(cfg.DatabaseConfig.Host, "localhost"))
	cfg.DatabaseConfig.Port = getEnvIntOrDefault("DB_PORT", defaultInt(cfg.DatabaseConfig.Port, 5432))
	cfg.DatabaseConfig.User = getEnvOrDefault("DB_USER", defaultString(cfg.DatabaseConfig.User, "postgres"))
	cfg.DatabaseConfig.Password = getEnvOrDefault("DB_PASSWORD", cfg.DatabaseConfig.Password)
	cfg.DatabaseConfig.Database = getEnvOrDefault("DB_NAME", defaultString(cfg.DatabaseConfig.Database, "cryptoarena"))
	cfg.DatabaseConfig.SSLMode = getEnvOrDefault("DB_SSLMODE", defaultString(cfg.DatabaseConfig.SSLMode, "disable"))

	// Redis
	cfg.RedisConfig.Enabled = getEnvOrDefault("REDIS_ENABLED", boolString(cfg.RedisConfig.Enabled)) == "true"
	cfg.RedisConfig.Address = getEnvOrDefault("REDIS_ADDRESS", defaultString(cfg.RedisConfig.Address, "localhost:6379"))
	cfg.RedisConfig.Password = getEnvOrDefault("REDIS_PASSWORD", cfg.RedisConfig.Password)
	cfg.RedisConfig.DB = getEnvIntOrDefault("REDIS_DB", cfg.RedisConfig.DB)

	// Market
	cfg.MarketConfig.BaseURL = getEnvOrDefault("MARKET_BASE_URL", defaultString(cfg.MarketConfig.BaseURL, "https://api.binance.com"))
	cfg.MarketConfig.RequestsPerSecond = getEnvFloatOrDefault("MARKET_REQUESTS_PER_SECOND", defaultFloat(cfg.MarketConfig.RequestsPerSecond, 10))
	cfg.MarketConfig.TimeoutSeconds = getEnvIntOrDefault("MARKET_TIMEOUT", defaultInt(cfg.MarketConfig.TimeoutSeconds, 10))
	cfg.MarketConfig.CandleTTLSeconds = getEnvIntOrDefault("MARKET_CANDLE_TTL", defaultInt(cfg.MarketConfig.CandleTTLSeconds, 60))
	cfg.MarketConfig.TickerTTLSeconds = getEnvIntOrDefault("MARKET_TICKER_TTL", defaultInt(cfg.MarketConfig.TickerTTLSeconds, 10))

	// Stream
	cfg.StreamConfig.Enabled = getEnvOrDefault("STREAM_ENABLED", boolString(cfg.StreamConfig.Enabled)) == "true"
	cfg.StreamConfig.URL = getEnvOrDefault("STREAM_URL", defaultString(cfg.StreamConfig.URL, "wss://stream.binance.com:9443"))
	if symbols := os.Getenv("STREAM_SYMBOLS"); symbols != "" {
		cfg.StreamConfig.Symbols = splitAndTrim(symbols)
	}
	if timeframes := os.Getenv("STREAM_TIMEFRAMES"); timeframes != "" {
		cfg.StreamConfig.Timeframes = splitAndTrim(timeframes)
	}
	cfg.StreamConfig.WindowSize = getEnvIntOrDefault("STREAM_WINDOW_SIZE", defaultInt(cfg.StreamConfig.WindowSize, 500))

	// Scanner
	cfg.ScannerConfig.Enabled = getEnvOrDefault("SCANNER_ENABLED", boolString(cfg.ScannerConfig.Enabled)) == "true"
	cfg.ScannerConfig.IntervalSeconds = getEnvIntOrDefault("SCANNER_INTERVAL", defaultInt(cfg.ScannerConfig.IntervalSeconds, 300))
	cfg.ScannerConfig.Workers = getEnvIntOrDefault("SCANNER_WORKERS", defaultInt(cfg.ScannerConfig.Workers, 5))
	cfg.ScannerConfig.MaxSymbols = getEnvIntOrDefault("SCANNER_MAX_SYMBOLS", defaultInt(cfg.ScannerConfig.MaxSymbols, 100))
	cfg.ScannerConfig.MaxResults = getEnvIntOrDefault("SCANNER_MAX_RESULTS", defaultInt(cfg.ScannerConfig.MaxResults, 20))
	cfg.ScannerConfig.ScoreThreshold = getEnvFloatOrDefault("SCANNER_SCORE_THRESHOLD", defaultFloat(cfg.ScannerConfig.ScoreThreshold, 70))
	cfg.ScannerConfig.ReferenceSymbol = getEnvOrDefault("SCANNER_REFERENCE_SYMBOL", defaultString(cfg.ScannerConfig.ReferenceSymbol, "BTCUSDT"))
	cfg.ScannerConfig.QuoteAsset = getEnvOrDefault("SCANNER_QUOTE_ASSET", defaultString(cfg.ScannerConfig.QuoteAsset, "USDT"))
	cfg.ScannerConfig.SafetyMovePercent = getEnvFloatOrDefault("SCANNER_SAFETY_MOVE", defaultFloat(cfg.ScannerConfig.SafetyMovePercent, 10))

	// Engine
	cfg.EngineConfig.AllowNeutral = getEnvOrDefault("ENGINE_ALLOW_NEUTRAL", boolString(cfg.EngineConfig.AllowNeutral)) == "true"
	cfg.EngineConfig.DefaultCapital = getEnvFloatOrDefault("ENGINE_DEFAULT_CAPITAL", defaultFloat(cfg.EngineConfig.DefaultCapital, 10000))
	cfg.EngineConfig.DefaultRiskPercent = getEnvFloatOrDefault("ENGINE_DEFAULT_RISK_PERCENT", defaultFloat(cfg.EngineConfig.DefaultRiskPercent, 1))
	cfg.EngineConfig.MaxDailyLoss = getEnvFloatOrDefault("ENGINE_MAX_DAILY_LOSS", cfg.EngineConfig.MaxDailyLoss)

	// External factors
	cfg.ExternalConfig.Enabled = getEnvOrDefault("EXTERNAL_ENABLED", boolString(cfg.ExternalConfig.Enabled)) == "true"
	cfg.ExternalConfig.EventsURL = getEnvOrDefault("EXTERNAL_EVENTS_URL", cfg.ExternalConfig.EventsURL)
	cfg.ExternalConfig.FundamentalsURL = getEnvOrDefault("EXTERNAL_FUNDAMENTALS_URL", cfg.ExternalConfig.FundamentalsURL)
	cfg.ExternalConfig.NewsURL = getEnvOrDefault("EXTERNAL_NEWS_URL", cfg.ExternalConfig.NewsURL)
	cfg.ExternalConfig.TimeoutSeconds = getEnvIntOrDefault("EXTERNAL_TIMEOUT", defaultInt(cfg.ExternalConfig.TimeoutSeconds, 3))

	// Notifications
	cfg.NotifyConfig.Enabled = getEnvOrDefault("NOTIFICATIONS_ENABLED", boolString(cfg.NotifyConfig.Enabled)) == "true"
	cfg.NotifyConfig.WebhookURL = getEnvOrDefault("NOTIFY_WEBHOOK_URL", cfg.NotifyConfig.WebhookURL)
	cfg.NotifyConfig.ConfidenceThreshold = getEnvFloatOrDefault("NOTIFY_CONFIDENCE_THRESHOLD", defaultFloat(cfg.NotifyConfig.ConfidenceThreshold, 75))
	cfg.NotifyConfig.TimeoutSeconds = getEnvIntOrDefault("NOTIFY_TIMEOUT", defaultInt(cfg.NotifyConfig.TimeoutSeconds, 5))

	// Learning scheduler
	cfg.LearningConfig.Enabled = getEnvOrDefault("LEARNING_ENABLED", boolString(cfg.LearningConfig.Enabled)) == "true"
	cfg.LearningConfig.IntervalHours = getEnvIntOrDefault("LEARNING_INTERVAL_HOURS", defaultInt(cfg.LearningConfig.IntervalHours, 24))
	if users := os.Getenv("LEARNING_USERS"); users != "" {
		cfg.LearningConfig.Users = splitAndTrim(users)
	}

	// Logging
	cfg.LoggingConfig.Level = getEnvOrDefault("LOG_LEVEL", defaultString(cfg.LoggingConfig.Level, "info"))
	cfg.LoggingConfig.JSONFormat = getEnvOrDefault("LOG_JSON", boolString(cfg.LoggingConfig.JSONFormat)) == "true"
}

// ScanInterval returns the scanner interval as a duration.
func (c ScannerConfig) ScanInterval() time.Duration {
	return time.Duration(c.IntervalSeconds) * time.Second
}

func getEnvOrDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvIntOrDefault(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvFloatOrDefault(key string, fallback float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return fallback
}

func defaultString(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

func defaultInt(v, fallback int) int {
	if v == 0 {
		return fallback
	}
	return v
}

func defaultFloat(v, fallback float64) float64 {
	if v == 0 {
		return fallback
	}
	return v
}

func boolString(v bool) string {
	if v {
		return "true"
	}
	return "false"
}

func splitAndTrim(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
