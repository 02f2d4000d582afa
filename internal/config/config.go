// File: internal/config/config.go
package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	SweepModeDelete = "delete"
	SweepModeRevoke = "revoke"
)

type Config struct {
	ServerPort   string
	Environment  string
	JWTSecretKey string

	// Storage
	DBDriver string
	DBDSN    string

	// Generation gateway
	AIProvider          string
	AIAPIKey            string
	AIBaseURL           string
	ChatModel           string
	TitleModel          string
	GenerationTimeout   time.Duration
	RateLimitRetryAfter time.Duration
	MaxMessageRunes     int

	// Sharing
	ShareBaseURL string
	ShareTTL     time.Duration
	SweepMode    string
	SweepAPIKey  string

	// Per-chat lease; Redis is used when RedisURL is set
	RedisURL  string
	LeaseTTL  time.Duration
	LeaseWait time.Duration

	// Send rate limiting per owner
	SendRateLimit  int
	SendRateWindow time.Duration
}

// Load reads configuration from environment variables or .env file.
func Load() *Config {
	cfg, err := New()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	return cfg
}

// New is the non-fatal variant of Load used by the CLI and tests.
func New() (*Config, error) {
	env := getEnv("ENV", getEnv("GO_ENV", "development"))
	if strings.ToLower(env) != "production" {
		if err := godotenv.Load(); err != nil {
			log.Println("No .env file found; continuing with environment variables")
		}
	}

	cfg := &Config{
		ServerPort:   getEnv("SERVER_PORT", "8080"),
		Environment:  env,
		JWTSecretKey: getEnv("JWT_SECRET_KEY", ""),

		DBDriver: strings.ToLower(getEnv("DB_DRIVER", "sqlite")),
		DBDSN:    getEnv("DB_DSN", "converse.db"),

		AIProvider:          strings.ToLower(getEnv("AI_PROVIDER", "openai")),
		AIAPIKey:            getEnv("AI_API_KEY", ""),
		AIBaseURL:           getEnv("AI_BASE_URL", ""),
		ChatModel:           getEnv("CHAT_MODEL", "gpt-4o-mini"),
		TitleModel:          getEnv("TITLE_MODEL", ""),
		GenerationTimeout:   getEnvAsDuration("GENERATION_TIMEOUT", 60*time.Second),
		RateLimitRetryAfter: getEnvAsDuration("RATE_LIMIT_RETRY_AFTER", 25*time.Second),
		MaxMessageRunes:     getEnvAsInt("MAX_MESSAGE_RUNES", 32000),

		ShareBaseURL: strings.TrimRight(getEnv("SHARE_BASE_URL", "http://localhost:8080"), "/"),
		ShareTTL:     getEnvAsDuration("SHARE_TTL", 30*24*time.Hour),
		SweepMode:    strings.ToLower(getEnv("SHARE_SWEEP_MODE", SweepModeDelete)),
		SweepAPIKey:  getEnv("SWEEP_API_KEY", ""),

		RedisURL:  getEnv("REDIS_URL", ""),
		LeaseTTL:  getEnvAsDuration("LEASE_TTL", 3*time.Minute),
		LeaseWait: getEnvAsDuration("LEASE_WAIT", 5*time.Second),

		SendRateLimit:  getEnvAsInt("SEND_RATE_LIMIT", 100),
		SendRateWindow: getEnvAsDuration("SEND_RATE_WINDOW", 15*time.Minute),
	}
	if cfg.TitleModel == "" {
		cfg.TitleModel = cfg.ChatModel
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks value ranges and, in production, required secrets.
func (c *Config) Validate() error {
	switch c.DBDriver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.DBDriver)
	}
	switch c.AIProvider {
	case "openai", "gemini":
	default:
		return fmt.Errorf("unsupported AI_PROVIDER %q", c.AIProvider)
	}
	switch c.SweepMode {
	case SweepModeDelete, SweepModeRevoke:
	default:
		return fmt.Errorf("unsupported SHARE_SWEEP_MODE %q", c.SweepMode)
	}
	if c.GenerationTimeout <= 0 || c.ShareTTL <= 0 || c.LeaseTTL <= 0 {
		return fmt.Errorf("timeouts and TTLs must be positive")
	}
	if c.LeaseTTL <= 2*c.GenerationTimeout {
		return fmt.Errorf("LEASE_TTL must exceed twice GENERATION_TIMEOUT")
	}
	if c.SendRateLimit <= 0 || c.SendRateWindow <= 0 {
		return fmt.Errorf("send rate limit must be positive")
	}

	if c.IsProduction() {
		missing := []string{}
		if c.JWTSecretKey == "" {
			missing = append(missing, "JWT_SECRET_KEY")
		}
		if c.AIAPIKey == "" {
			missing = append(missing, "AI_API_KEY")
		}
		if c.SweepAPIKey == "" {
			missing = append(missing, "SWEEP_API_KEY")
		}
		if len(missing) > 0 {
			return fmt.Errorf("missing required production environment variables: %v", missing)
		}
	}
	return nil
}

func (c *Config) IsProduction() bool {
	return strings.ToLower(c.Environment) == "production"
}

// getEnv returns the value of an environment variable or a default.
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

// getEnvAsInt gets an env var as an integer, with a fallback.
func getEnvAsInt(key string, defaultValue int) int {
	strValue := getEnv(key, "")
	if strValue == "" {
		return defaultValue
	}
	intValue, err := strconv.Atoi(strValue)
	if err != nil {
		log.Printf("Warning: could not parse env var %s as integer. Using default value.", key)
		return defaultValue
	}
	return intValue
}

// getEnvAsDuration accepts Go durations ("90s") or bare seconds ("90").
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	strValue := getEnv(key, "")
	if strValue == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(strValue); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(strValue); err == nil {
		return time.Duration(secs) * time.Second
	}
	log.Printf("Warning: could not parse env var %s as duration. Using default value.", key)
	return defaultValue
}
