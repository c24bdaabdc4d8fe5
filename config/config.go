package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the overall application configuration.
type Config struct {
	Server       ServerConfig       `yaml:"server"`
	Database     DatabaseConfig     `yaml:"database"`
	Facility     FacilityConfig     `yaml:"facility"`
	Media        MediaConfig        `yaml:"media"`
	Push         PushConfig         `yaml:"push"`
	Notification NotificationConfig `yaml:"notification"`
	Seed         SeedConfig         `yaml:"seed"`
}

// ServerConfig holds the server-related configuration.
type ServerConfig struct {
	Port            int      `yaml:"port"`
	RateLimitPerSec float64  `yaml:"rate_limit_per_sec"`
	RateLimitBurst  int      `yaml:"rate_limit_burst"`
	CacheTTLSeconds int      `yaml:"cache_ttl_seconds"`
	AllowedOrigins  []string `yaml:"allowed_origins"`
	MaxUploadBytes  int64    `yaml:"max_upload_bytes"`
	ReleaseMode     bool     `yaml:"release_mode"`
}

// CacheTTL returns the configured response cache lifetime.
func (s ServerConfig) CacheTTL() time.Duration {
	return time.Duration(s.CacheTTLSeconds) * time.Second
}

// DatabaseConfig holds the database connection configuration.
type DatabaseConfig struct {
	Driver                 string `yaml:"driver"` // postgres or sqlite
	DSN                    string `yaml:"dsn"`
	MaxOpenConns           int    `yaml:"max_open_conns"`
	MaxIdleConns           int    `yaml:"max_idle_conns"`
	ConnMaxLifetimeMinutes int    `yaml:"conn_max_lifetime_minutes"`
	LogLevel               string `yaml:"log_level"`
	EnablePostgresDDL      bool   `yaml:"enable_postgres_ddl"`
}

// FacilityConfig describes the site the kiosk runs in.
type FacilityConfig struct {
	Name             string         `yaml:"name"`
	Timezone         string         `yaml:"timezone"`
	Location         *time.Location `yaml:"-"`
	HistoryLimit     int            `yaml:"history_limit"`
	DashboardLimit   int            `yaml:"dashboard_limit"`
	StatisticsWindow int            `yaml:"statistics_days"`
}

// MediaConfig controls where visitor photos are written and served from.
type MediaConfig struct {
	Dir         string `yaml:"dir"`
	URLPrefix   string `yaml:"url_prefix"`
	MaxWidth    int    `yaml:"max_width"`
	JPEGQuality int    `yaml:"jpeg_quality"`
}

// PushConfig holds the VAPID keys for web push notifications.
type PushConfig struct {
	PublicKey  string `yaml:"vapid_public_key"`
	PrivateKey string `yaml:"vapid_private_key"`
	Subject    string `yaml:"subject"`
	TTL        int    `yaml:"ttl"`
}

// Enabled reports whether both VAPID keys are present.
func (p PushConfig) Enabled() bool {
	return p.PublicKey != "" && p.PrivateKey != ""
}

// NotificationConfig holds the host notification queue and worker pool settings.
type NotificationConfig struct {
	QueueBackend string `yaml:"queue_backend"` // memory or redis
	QueueSize    int    `yaml:"queue_size"`
	RedisAddr    string `yaml:"redis_addr"`
	QueueKey     string `yaml:"queue_key"`
	Workers      int    `yaml:"workers"`
}

// SeedConfig lists reference data inserted at startup when missing.
type SeedConfig struct {
	Hosts []SeedHost `yaml:"hosts"`
}

// SeedHost is a host created on first boot.
type SeedHost struct {
	FullName   string `yaml:"full_name"`
	Email      string `yaml:"email"`
	Department string `yaml:"department"`
}

// Load reads the configuration from the given path.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var cfg Config
	decoder := yaml.NewDecoder(f)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, err
	}

	applyEnv(&cfg)
	if err := applyDefaults(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyEnv lets secrets and connection strings come from the environment.
func applyEnv(cfg *Config) {
	if v := os.Getenv("DATABASE_DRIVER"); v != "" {
		cfg.Database.Driver = v
	}
	if v := os.Getenv("DATABASE_DSN"); v != "" {
		cfg.Database.DSN = v
	}
	if v := os.Getenv("VAPID_PUBLIC_KEY"); v != "" {
		cfg.Push.PublicKey = v
	}
	if v := os.Getenv("VAPID_PRIVATE_KEY"); v != "" {
		cfg.Push.PrivateKey = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Notification.RedisAddr = v
	}
	if v := os.Getenv("PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		} else {
			log.Printf("invalid PORT %q: %v, keeping %d", v, err, cfg.Server.Port)
		}
	}
}

func applyDefaults(cfg *Config) error {
	if cfg.Server.Port <= 0 {
		cfg.Server.Port = 8000
	}
	if cfg.Server.RateLimitPerSec <= 0 {
		cfg.Server.RateLimitPerSec = 10
	}
	if cfg.Server.RateLimitBurst <= 0 {
		cfg.Server.RateLimitBurst = 5
	}
	if cfg.Server.CacheTTLSeconds <= 0 {
		cfg.Server.CacheTTLSeconds = 30
	}
	if cfg.Server.MaxUploadBytes <= 0 {
		cfg.Server.MaxUploadBytes = 2 << 20
	}

	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "postgres"
	}
	if cfg.Database.LogLevel == "" {
		cfg.Database.LogLevel = "warn"
	}

	if cfg.Facility.Timezone == "" {
		cfg.Facility.Timezone = "UTC"
	}
	loc, err := time.LoadLocation(cfg.Facility.Timezone)
	if err != nil {
		return err
	}
	cfg.Facility.Location = loc
	if cfg.Facility.HistoryLimit <= 0 {
		cfg.Facility.HistoryLimit = 200
	}
	if cfg.Facility.DashboardLimit <= 0 {
		cfg.Facility.DashboardLimit = 100
	}
	if cfg.Facility.StatisticsWindow <= 0 {
		cfg.Facility.StatisticsWindow = 7
	}

	if cfg.Media.Dir == "" {
		cfg.Media.Dir = "./storage"
	}
	if cfg.Media.URLPrefix == "" {
		cfg.Media.URLPrefix = "/storage"
	}
	if cfg.Media.MaxWidth <= 0 {
		cfg.Media.MaxWidth = 800
	}
	if cfg.Media.JPEGQuality <= 0 || cfg.Media.JPEGQuality > 100 {
		cfg.Media.JPEGQuality = 85
	}

	if cfg.Push.TTL <= 0 {
		cfg.Push.TTL = 3600
	}

	if cfg.Notification.QueueBackend == "" {
		cfg.Notification.QueueBackend = "memory"
	}
	if cfg.Notification.QueueSize <= 0 {
		cfg.Notification.QueueSize = 64
	}
	if cfg.Notification.QueueKey == "" {
		cfg.Notification.QueueKey = "kiosk:host_notifications"
	}
	if cfg.Notification.Workers <= 0 {
		log.Printf("notification.workers is not set or invalid; defaulting to 1")
		cfg.Notification.Workers = 1
	}
	return nil
}
