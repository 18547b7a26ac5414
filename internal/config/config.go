package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	App      AppConfig
	Postgres PostgresConfig
	Auth     AuthConfig
	Scan     ScanConfig
}

type AppConfig struct {
	Port string
	Env  string
}

type PostgresConfig struct {
	Host           string
	Port           string
	User           string
	Password       string
	DBName         string
	SSLMode        string
	MaxConns       int32
	MigrationsPath string
}

type AuthConfig struct {
	JWTSecret         string
	AdminUser         string
	AdminPasswordHash string
	APIKey            string
}

// ScanConfig is optional: when OllamaURL is empty the scan endpoints
// respond with 503 instead of failing at startup.
type ScanConfig struct {
	TesseractBin   string
	TesseractLangs string
	OllamaURL      string
	OllamaModel    string
}

// Load reads configuration from the environment, optionally seeding it
// from a .env file first. A missing .env file is not an error.
func Load(envPath string) (*Config, error) {
	if envPath != "" {
		if err := godotenv.Load(envPath); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("config: failed to load %s: %w", envPath, err)
		}
	}

	cfg := &Config{}

	cfg.App.Port = getenv("APP_PORT", "8080")
	cfg.App.Env = getenv("APP_ENV", "development")

	cfg.Postgres.Host = os.Getenv("DB_HOST")
	cfg.Postgres.Port = getenv("DB_PORT", "5432")
	cfg.Postgres.User = os.Getenv("DB_USER")
	cfg.Postgres.Password = os.Getenv("DB_PASSWORD")
	cfg.Postgres.DBName = os.Getenv("DB_NAME")
	cfg.Postgres.SSLMode = getenv("DB_SSLMODE", "disable")
	cfg.Postgres.MigrationsPath = getenv("DB_MIGRATIONS_PATH", "migrations")

	maxConns := getenv("DB_MAX_CONNS", "10")
	n, err := strconv.ParseInt(maxConns, 10, 32)
	if err != nil {
		return nil, fmt.Errorf("config: invalid DB_MAX_CONNS %q: %w", maxConns, err)
	}
	cfg.Postgres.MaxConns = int32(n)

	cfg.Auth.JWTSecret = os.Getenv("JWT_SECRET")
	cfg.Auth.AdminUser = getenv("ADMIN_USER", "admin")
	cfg.Auth.AdminPasswordHash = os.Getenv("ADMIN_PASSWORD_HASH")
	cfg.Auth.APIKey = os.Getenv("API_KEY")

	cfg.Scan.TesseractBin = getenv("TESSERACT_BIN", "tesseract")
	cfg.Scan.TesseractLangs = getenv("TESSERACT_LANGS", "spa+eng")
	cfg.Scan.OllamaURL = os.Getenv("OLLAMA_URL")
	cfg.Scan.OllamaModel = getenv("OLLAMA_MODEL", "llama3.1")

	for name, value := range map[string]string{
		"DB_HOST":             cfg.Postgres.Host,
		"DB_USER":             cfg.Postgres.User,
		"DB_PASSWORD":         cfg.Postgres.Password,
		"DB_NAME":             cfg.Postgres.DBName,
		"JWT_SECRET":          cfg.Auth.JWTSecret,
		"ADMIN_PASSWORD_HASH": cfg.Auth.AdminPasswordHash,
		"API_KEY":             cfg.Auth.APIKey,
	} {
		if value == "" {
			return nil, fmt.Errorf("config: %s is required", name)
		}
	}

	return cfg, nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
