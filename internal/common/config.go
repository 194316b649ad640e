package common

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Database DatabaseConfig
	Server   ServerConfig
	OCR      OCRConfig
	LLM      LLMConfig
	Search   SearchConfig
	Auth     AuthConfig
	Events   EventsConfig
	Carbon   CarbonConfig
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	DSN             string
	MaxConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
	DialTimeout     time.Duration
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	GRPCAddr  string
	AdminAddr string
}

// OCRConfig holds OCR-related configuration
type OCRConfig struct {
	Provider        string // "vision" | "tesseract"
	CredentialsFile string
	Tesseract       string
	TesseractLang   string
	TessdataDir     string
	Pdftotext       string
	Timeout         time.Duration
}

// LLMConfig holds LLM-related configuration
type LLMConfig struct {
	Model       string
	APIKey      string
	BaseURL     string
	Temperature float32
	Timeout     time.Duration
}

// SearchConfig holds web search configuration
type SearchConfig struct {
	Provider   string // "tavily" | "duckduckgo" | "" (disabled)
	APIKey     string
	APIURL     string
	MaxResults int
	Timeout    time.Duration
	RPS        float64
	CacheTTL   time.Duration
}

// AuthConfig holds token verification configuration
type AuthConfig struct {
	SkipAuth bool
	Audience string
}

// EventsConfig holds record event publishing configuration
type EventsConfig struct {
	Brokers []string
	Topic   string
}

// CarbonConfig holds estimation defaults
type CarbonConfig struct {
	Strategy         string
	Concurrency      int
	ReceiptItemLimit int
}

// LoadConfig loads configuration from environment variables, reading a .env file first if present.
func LoadConfig() *Config {
	_ = godotenv.Load()

	return &Config{
		Database: DatabaseConfig{
			DSN:             getEnv("DB_URL", "file:ecoscore.db"),
			MaxConns:        getEnvAsInt("DB_MAX_CONNS", 10),
			MaxConnLifetime: getEnvAsDuration("DB_MAX_CONN_LIFETIME", 30*time.Minute),
			MaxConnIdleTime: getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", 5*time.Minute),
			DialTimeout:     getEnvAsDuration("DB_DIAL_TIMEOUT", 3*time.Second),
		},
		Server: ServerConfig{
			GRPCAddr:  getEnv("GRPC_ADDR", ":8080"),
			AdminAddr: getEnv("ADMIN_ADDR", ":9090"),
		},
		OCR: OCRConfig{
			Provider:        getEnv("OCR_PROVIDER", "vision"),
			CredentialsFile: getEnv("GOOGLE_APPLICATION_CREDENTIALS", ""),
			Tesseract:       getEnv("TESSERACT_PATH", "tesseract"),
			TesseractLang:   getEnv("TESSERACT_LANG", "eng"),
			TessdataDir:     getEnv("TESSDATA_PREFIX", ""),
			Pdftotext:       getEnv("PDFTOTEXT_PATH", "pdftotext"),
			Timeout:         getEnvAsDuration("OCR_TIMEOUT", 60*time.Second),
		},
		LLM: LLMConfig{
			Model:       getEnv("OPENAI_MODEL", "gpt-4o-mini"),
			APIKey:      getEnv("OPENAI_API_KEY", ""),
			BaseURL:     getEnv("OPENAI_API_BASE", "https://api.openai.com/v1"),
			Temperature: getEnvAsFloat32("OPENAI_TEMPERATURE", 0.2),
			Timeout:     getEnvAsDuration("OPENAI_TIMEOUT", 45*time.Second),
		},
		Search: SearchConfig{
			Provider:   strings.ToLower(getEnv("SEARCH_PROVIDER", "tavily")),
			APIKey:     getEnv("TAVILY_API_KEY", ""),
			APIURL:     getEnv("TAVILY_API_URL", "https://api.tavily.com/search"),
			MaxResults: getEnvAsInt("SEARCH_MAX_RESULTS", 5),
			Timeout:    getEnvAsDuration("SEARCH_TIMEOUT", 15*time.Second),
			RPS:        getEnvAsFloat64("SEARCH_RPS", 1),
			CacheTTL:   getEnvAsDuration("SEARCH_CACHE_TTL", 10*time.Minute),
		},
		Auth: AuthConfig{
			SkipAuth: getEnvAsBool("SKIP_AUTH", false),
			Audience: getEnv("AUTH_AUDIENCE", ""),
		},
		Events: EventsConfig{
			Brokers: getEnvAsList("KAFKA_BROKERS"),
			Topic:   getEnv("KAFKA_TOPIC", "ecoscore.records"),
		},
		Carbon: CarbonConfig{
			Strategy:         getEnv("CARBON_STRATEGY", "auto"),
			Concurrency:      getEnvAsInt("CARBON_CONCURRENCY", 1),
			ReceiptItemLimit: getEnvAsInt("RECEIPT_ITEM_LIMIT", 60),
		},
	}
}

// SearchEnabled reports whether a search collaborator can be built from this config.
func (c *Config) SearchEnabled() bool {
	switch c.Search.Provider {
	case "tavily":
		return c.Search.APIKey != ""
	case "duckduckgo":
		return true
	default:
		return false
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

func getEnvAsFloat32(key string, defaultValue float32) float32 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 32); err == nil {
			return float32(floatVal)
		}
	}
	return defaultValue
}

func getEnvAsFloat64(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
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

func getEnvAsList(key string) []string {
	var out []string
	for _, p := range strings.Split(os.Getenv(key), ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Validate checks the loaded configuration
func (c *Config) Validate() error {
	if c.Database.DSN == "" {
		return NewAppError("CONFIG_ERROR", "DB_URL is required", ErrInvalidInput)
	}
	if c.Server.GRPCAddr == "" {
		return NewAppError("CONFIG_ERROR", "GRPC_ADDR is required", ErrInvalidInput)
	}
	switch c.OCR.Provider {
	case "vision", "tesseract", "none":
	default:
		return NewAppError("CONFIG_ERROR", "OCR_PROVIDER must be vision, tesseract or none", ErrInvalidInput)
	}
	switch c.Search.Provider {
	case "tavily", "duckduckgo", "", "none":
	default:
		return NewAppError("CONFIG_ERROR", "SEARCH_PROVIDER must be tavily, duckduckgo or none", ErrInvalidInput)
	}
	if c.Carbon.ReceiptItemLimit <= 0 {
		return NewAppError("CONFIG_ERROR", "RECEIPT_ITEM_LIMIT must be positive", ErrInvalidInput)
	}
	if !c.Auth.SkipAuth && c.Auth.Audience == "" {
		return NewAppError("CONFIG_ERROR", "AUTH_AUDIENCE is required unless SKIP_AUTH is set", ErrInvalidInput)
	}
	return nil
}
