package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config holds the application configuration. It is built once at
// startup and passed by reference; nothing mutates it afterwards.
type Config struct {
	Environment        string
	ServerPort         int
	LogLevel           string
	Debug              bool
	JWTSecret          string
	TokenTTLMinutes    int
	RedisURL           string // optional; empty falls back to in-memory caching
	CORSAllowedOrigins []string
	LoginRatePerMinute int

	Database DatabaseConfig
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	port, err := intEnv("SERVER_PORT", 8080)
	if err != nil {
		return nil, err
	}

	tokenTTL, err := intEnv("TOKEN_TTL_MINUTES", 30)
	if err != nil {
		return nil, err
	}
	if tokenTTL <= 0 {
		return nil, fmt.Errorf("TOKEN_TTL_MINUTES must be positive, got %d", tokenTTL)
	}

	dbPort, err := intEnv("DATABASE_PORT", 5432)
	if err != nil {
		return nil, err
	}

	loginRate, err := intEnv("LOGIN_RATE_PER_MINUTE", 20)
	if err != nil {
		return nil, err
	}

	return &Config{
		Environment:     getEnv("ENVIRONMENT", "development"),
		ServerPort:      port,
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		Debug:           boolEnv("DEBUG"),
		JWTSecret:       getEnv("JWT_SECRET", ""),
		TokenTTLMinutes: tokenTTL,
		RedisURL:        getEnv("REDIS_URL", ""),
		CORSAllowedOrigins: parseCSVEnv("CORS_ALLOWED_ORIGINS", []string{
			"http://localhost:5173",
			"http://localhost:3000",
		}),
		LoginRatePerMinute: loginRate,
		Database: DatabaseConfig{
			Host:     getEnv("DATABASE_HOST", "localhost"),
			Port:     dbPort,
			User:     getEnv("DATABASE_USER", "stockledger"),
			Password: getEnv("DATABASE_PASSWORD", "dev"),
			Name:     getEnv("DATABASE_NAME", "stockledger"),
			SSLMode:  getEnv("DATABASE_SSLMODE", "disable"),
		},
	}, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func intEnv(key string, defaultValue int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return v, nil
}

func boolEnv(key string) bool {
	switch strings.ToLower(os.Getenv(key)) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}

func parseCSVEnv(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			trimmed := strings.TrimSpace(p)
			if trimmed != "" {
				out = append(out, trimmed)
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return defaultValue
}
