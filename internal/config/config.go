package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	JWT      JWTConfig
	Roles    RolesConfig
	CORS     CORSConfig
	Agent    AgentConfig
}

type ServerConfig struct {
	Port string
	Host string
	Env  string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
}

type JWTConfig struct {
	Secret                 string
	Expiration             time.Duration
	RefreshTokenExpiration time.Duration
}

// RolesConfig drives the three-tier sync permission model: the admin email
// and the comma-separated certificate-holder emails.
type RolesConfig struct {
	AdminEmail        string
	CertificateEmails []string
}

type CORSConfig struct {
	AllowedOrigins string
	AllowedMethods string
	AllowedHeaders string
}

// AgentConfig configures the local sync agent: where the server lives, the
// credentials it logs in with, where the local store sits, and the
// background sync cadence.
type AgentConfig struct {
	ServerURL     string
	Email         string
	Password      string
	StorePath     string
	SyncInterval  time.Duration
	FlushDebounce time.Duration
}

func Load() (*Config, error) {
	godotenv.Load()

	jwtExp, err := time.ParseDuration(getEnv("JWT_EXPIRATION", "15m"))
	if err != nil {
		return nil, fmt.Errorf("invalid JWT_EXPIRATION: %w", err)
	}

	refreshExp, err := time.ParseDuration(getEnv("REFRESH_TOKEN_EXPIRATION", "168h"))
	if err != nil {
		return nil, fmt.Errorf("invalid REFRESH_TOKEN_EXPIRATION: %w", err)
	}

	syncInterval, err := time.ParseDuration(getEnv("SYNC_INTERVAL", "5m"))
	if err != nil {
		return nil, fmt.Errorf("invalid SYNC_INTERVAL: %w", err)
	}

	flushDebounce, err := time.ParseDuration(getEnv("SYNC_FLUSH_DEBOUNCE", "30s"))
	if err != nil {
		return nil, fmt.Errorf("invalid SYNC_FLUSH_DEBOUNCE: %w", err)
	}

	return &Config{
		Server: ServerConfig{
			Port: getEnv("PORT", "8080"),
			Host: getEnv("HOST", "0.0.0.0"),
			Env:  getEnv("ENV", "development"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5984"),
			User:     getEnv("DB_USER", "admin"),
			Password: getEnv("DB_PASSWORD", "password"),
			Name:     getEnv("DB_NAME", "leettrack"),
		},
		JWT: JWTConfig{
			Secret:                 getEnv("JWT_SECRET", "dev-secret-change-in-production"),
			Expiration:             jwtExp,
			RefreshTokenExpiration: refreshExp,
		},
		Roles: RolesConfig{
			AdminEmail:        getEnv("ADMIN_EMAIL", ""),
			CertificateEmails: splitList(getEnv("CERTIFICATE_EMAILS", "")),
		},
		CORS: CORSConfig{
			AllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "*"),
			AllowedMethods: getEnv("CORS_ALLOWED_METHODS", "GET,POST,PUT,DELETE,OPTIONS"),
			AllowedHeaders: getEnv("CORS_ALLOWED_HEADERS", "Content-Type,Authorization"),
		},
		Agent: AgentConfig{
			ServerURL:     getEnv("AGENT_SERVER_URL", "http://localhost:8080"),
			Email:         getEnv("AGENT_EMAIL", ""),
			Password:      getEnv("AGENT_PASSWORD", ""),
			StorePath:     getEnv("AGENT_STORE_PATH", "data/leettrack.db"),
			SyncInterval:  syncInterval,
			FlushDebounce: flushDebounce,
		},
	}, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func splitList(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
