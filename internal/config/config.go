package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/xxxsen/common/logger"
)

type Config struct {
	Port           int                            `json:"port"`
	Database       DatabaseConfig                 `json:"database"`
	JWTSecret      string                         `json:"jwt_secret"`
	JWTTTLHours    int                            `json:"jwt_ttl_hours"`
	LogConfig      logger.LogConfig               `json:"log_config"`
	FileStore      FileStoreConfig                `json:"file_store"`
	DemoMode       bool                           `json:"demo_mode"`
	CORSAllowlist  []string                       `json:"cors_allowlist"`
	FrontendURL    string                         `json:"frontend_url"`
	Monitor        MonitorConfig                  `json:"monitor"`
	Jobs           JobsConfig                     `json:"jobs"`
	Providers      map[string]OAuthProviderConfig `json:"providers"`
	DraftRetention int                            `json:"draft_retention_days"`
}

type DatabaseConfig struct {
	DSN      string `json:"dsn"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	DBName   string `json:"db_name"`
	SSLMode  string `json:"ssl_mode"`
}

type FileStoreConfig struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

type MonitorConfig struct {
	IntervalSeconds int `json:"interval_seconds"`
}

type JobsConfig struct {
	RefreshCron         string `json:"refresh_cron"`
	RefreshAheadMinutes int    `json:"refresh_ahead_minutes"`
	CleanupCron         string `json:"cleanup_cron"`
}

type OAuthProviderConfig struct {
	ClientID     string   `json:"client_id"`
	ClientSecret string   `json:"client_secret"`
	RedirectURL  string   `json:"redirect_url"`
	Scopes       []string `json:"scopes"`
}

func Load(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	var cfg Config
	if err := json.NewDecoder(file).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if cfg.Port == 0 {
		return nil, fmt.Errorf("port is required")
	}
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("jwt_secret is required")
	}
	if cfg.Database.DSN == "" && cfg.Database.Host == "" {
		return nil, fmt.Errorf("database.dsn or database.host is required")
	}
	if cfg.JWTTTLHours == 0 {
		cfg.JWTTTLHours = 72
	}
	if cfg.LogConfig.Level == "" {
		cfg.LogConfig.Level = "info"
	}
	if cfg.FileStore.Type == "" {
		cfg.FileStore.Type = "local"
		cfg.FileStore.Data = map[string]interface{}{"dir": "./data/files"}
	}
	if cfg.Monitor.IntervalSeconds <= 0 {
		cfg.Monitor.IntervalSeconds = 5
	}
	if cfg.Jobs.RefreshCron == "" {
		cfg.Jobs.RefreshCron = "*/10 * * * *"
	}
	if cfg.Jobs.RefreshAheadMinutes <= 0 {
		cfg.Jobs.RefreshAheadMinutes = 20
	}
	if cfg.Jobs.CleanupCron == "" {
		cfg.Jobs.CleanupCron = "0 4 * * *"
	}
	if cfg.DraftRetention <= 0 {
		cfg.DraftRetention = 30
	}
	if !cfg.DemoMode && len(cfg.Providers) == 0 {
		return nil, fmt.Errorf("providers are required unless demo_mode is set")
	}
	return &cfg, nil
}
