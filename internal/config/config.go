package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type ServerConfig struct {
	Port string `yaml:"port"`
	Mode string `yaml:"mode"` // gin mode: debug, release, test
}

type BackendConfig struct {
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
}

// AuthConfig points at the auth provider's OAuth2 token endpoint.
type AuthConfig struct {
	TokenURL     string `yaml:"token_url"`
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
}

type SessionConfig struct {
	Name          string `yaml:"name"`
	AuthKey       string `yaml:"auth_key"`
	EncryptionKey string `yaml:"encryption_key"` // 16, 24 or 32 bytes, optional
	MaxAge        int    `yaml:"max_age"`
	Secure        bool   `yaml:"secure"`
}

type DatabaseConfig struct {
	DSN string `yaml:"dsn"`
}

type StorageConfig struct {
	StagingDir  string        `yaml:"staging_dir"`
	MaxFileSize int64         `yaml:"max_file_size"`
	DraftTTL    time.Duration `yaml:"draft_ttl"` // drafts untouched this long are swept
}

type LoggingConfig struct {
	Level string `yaml:"level"`
}

type CatalogConfig struct {
	MaxSessions int           `yaml:"max_sessions"`
	IdleTTL     time.Duration `yaml:"idle_ttl"`
}

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Backend  BackendConfig  `yaml:"backend"`
	Auth     AuthConfig     `yaml:"auth"`
	Session  SessionConfig  `yaml:"session"`
	Database DatabaseConfig `yaml:"database"`
	Storage  StorageConfig  `yaml:"storage"`
	Logging  LoggingConfig  `yaml:"logging"`
	Catalog  CatalogConfig  `yaml:"catalog"`
}

// Default returns the configuration used when nothing overrides it.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port: "8080",
			Mode: "release",
		},
		Backend: BackendConfig{
			BaseURL: "http://localhost:8000/api",
			Timeout: 15 * time.Second,
		},
		Session: SessionConfig{
			Name:   "maderalink_session",
			MaxAge: 7 * 24 * 3600,
		},
		Database: DatabaseConfig{
			DSN: "host=localhost user=postgres password=postgres dbname=maderalink port=5432 sslmode=disable",
		},
		Storage: StorageConfig{
			StagingDir:  "./data/staging",
			MaxFileSize: 20 << 20,
			DraftTTL:    14 * 24 * time.Hour,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		Catalog: CatalogConfig{
			MaxSessions: 1000,
			IdleTTL:     30 * time.Minute,
		},
	}
}

// Load builds the configuration from defaults, then the YAML file at path
// (skipped when it does not exist), then .env, then the process environment.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
			}
		case errors.Is(err, os.ErrNotExist):
		default:
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}

	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, reading env vars from system")
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func applyEnv(cfg *Config) error {
	setString(&cfg.Server.Port, "PORT")
	setString(&cfg.Server.Mode, "GIN_MODE")
	setString(&cfg.Backend.BaseURL, "BACKEND_URL")
	setString(&cfg.Auth.TokenURL, "AUTH_TOKEN_URL")
	setString(&cfg.Auth.ClientID, "AUTH_CLIENT_ID")
	setString(&cfg.Auth.ClientSecret, "AUTH_CLIENT_SECRET")
	setString(&cfg.Session.AuthKey, "SESSION_SECRET")
	setString(&cfg.Session.EncryptionKey, "SESSION_ENCRYPTION_KEY")
	setString(&cfg.Database.DSN, "DATABASE_URL")
	setString(&cfg.Storage.StagingDir, "STAGING_DIR")
	setString(&cfg.Logging.Level, "LOG_LEVEL")

	if err := setDuration(&cfg.Backend.Timeout, "BACKEND_TIMEOUT"); err != nil {
		return err
	}
	if err := setDuration(&cfg.Catalog.IdleTTL, "CATALOG_IDLE_TTL"); err != nil {
		return err
	}
	if err := setDuration(&cfg.Storage.DraftTTL, "DRAFT_TTL"); err != nil {
		return err
	}
	if v := os.Getenv("CATALOG_MAX_SESSIONS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("CATALOG_MAX_SESSIONS: %w", err)
		}
		cfg.Catalog.MaxSessions = n
	}
	if v := os.Getenv("SESSION_SECURE"); v != "" {
		cfg.Session.Secure = strings.EqualFold(v, "true") || v == "1"
	}
	return nil
}

// Validate checks the settings the server cannot start without.
func (c *Config) Validate() error {
	if c.Backend.BaseURL == "" {
		return errors.New("backend base url is required")
	}
	if c.Session.AuthKey == "" {
		return errors.New("session auth key is required (SESSION_SECRET)")
	}
	switch len(c.Session.EncryptionKey) {
	case 0, 16, 24, 32:
	default:
		return errors.New("session encryption key must be 16, 24 or 32 bytes")
	}
	if c.Catalog.MaxSessions <= 0 {
		return errors.New("catalog max sessions must be positive")
	}
	return nil
}

// TokenURL falls back to the backend's token endpoint when no separate auth
// provider is configured.
func (c *Config) TokenURL() string {
	if c.Auth.TokenURL != "" {
		return c.Auth.TokenURL
	}
	return strings.TrimSuffix(c.Backend.BaseURL, "/") + "/auth/token"
}

func setString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		*dst = v
	}
}

func setDuration(dst *time.Duration, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = d
	return nil
}
