package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"pickpoint/internal/models"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	App        AppConfig        `yaml:"app"`
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	Redis      RedisConfig      `yaml:"redis"`
	Backup     BackupConfig     `yaml:"backup"`
	Monitoring MonitoringConfig `yaml:"monitoring"`
	Logging    LoggingConfig    `yaml:"logging"`
	Pickup     PickupConfig     `yaml:"pickup"`
	Lockers    []models.Locker  `yaml:"lockers"`
}

type AppConfig struct {
	Name        string `yaml:"name"`
	Environment string `yaml:"environment"`
	Version     string `yaml:"version"`
}

type ServerConfig struct {
	Port      int             `yaml:"port"`
	Auth      AuthConfig      `yaml:"auth"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

type AuthConfig struct {
	Enabled bool          `yaml:"enabled"`
	Tokens  []BearerToken `yaml:"tokens"`
}

type BearerToken struct {
	Token  string `yaml:"token"`
	Name   string `yaml:"name"`
	UserID int64  `yaml:"user_id"`
}

type RateLimitConfig struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

type RedisConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size"`
}

type BackupConfig struct {
	Enabled       bool   `yaml:"enabled"`
	Schedule      string `yaml:"schedule"`
	RetentionDays int    `yaml:"retention_days"`
	StoragePath   string `yaml:"storage_path"`
}

type MonitoringConfig struct {
	PrometheusEnabled bool `yaml:"prometheus_enabled"`
	PrometheusPort    int  `yaml:"prometheus_port"`
}

type LoggingConfig struct {
	Level    string `yaml:"level"`
	Format   string `yaml:"format"`
	Output   string `yaml:"output"`
	FilePath string `yaml:"file_path"`
}

// PickupConfig tunes the fulfillment workflow timers.
type PickupConfig struct {
	PaymentWindow      time.Duration `yaml:"-"`
	ExpiryScanInterval time.Duration `yaml:"-"`
	DirectoryCacheTTL  time.Duration `yaml:"-"`
}

// UnmarshalYAML accepts Go duration strings ("15m", "5s").
func (p *PickupConfig) UnmarshalYAML(value *yaml.Node) error {
	var raw struct {
		PaymentWindow      string `yaml:"payment_window"`
		ExpiryScanInterval string `yaml:"expiry_scan_interval"`
		DirectoryCacheTTL  string `yaml:"directory_cache_ttl"`
	}
	if err := value.Decode(&raw); err != nil {
		return err
	}

	fields := []struct {
		name string
		src  string
		dst  *time.Duration
	}{
		{"payment_window", raw.PaymentWindow, &p.PaymentWindow},
		{"expiry_scan_interval", raw.ExpiryScanInterval, &p.ExpiryScanInterval},
		{"directory_cache_ttl", raw.DirectoryCacheTTL, &p.DirectoryCacheTTL},
	}
	for _, f := range fields {
		if f.src == "" {
			continue
		}
		d, err := time.ParseDuration(f.src)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", f.name, err)
		}
		*f.dst = d
	}
	return nil
}

func Load(configPath string) (*Config, error) {
	// .env is optional; environment may already be populated.
	_ = godotenv.Load(".env")

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}

	// Предварительная замена переменных окружения в YAML
	expandedData := []byte(os.ExpandEnv(string(data)))

	var config Config
	if err := yaml.Unmarshal(expandedData, &config); err != nil {
		return nil, err
	}

	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return errors.New("database path is required")
	}

	if c.Server.Auth.Enabled && len(c.Server.Auth.Tokens) == 0 {
		return errors.New("auth is enabled but no bearer tokens are configured")
	}

	return ValidateLockers(c.Lockers)
}

func ValidateLockers(lockers []models.Locker) error {
	lockerIDs := make(map[int64]bool)
	for _, locker := range lockers {
		if locker.ID == 0 {
			return fmt.Errorf("locker '%s' has invalid ID 0", locker.Name)
		}
		if lockerIDs[locker.ID] {
			return fmt.Errorf("duplicate locker ID found: %d", locker.ID)
		}
		lockerIDs[locker.ID] = true

		if locker.TotalCompartments <= 0 {
			return fmt.Errorf("locker %d has no compartments", locker.ID)
		}
		if _, _, err := locker.LatLng(); err != nil {
			return fmt.Errorf("locker %d: %w", locker.ID, err)
		}
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Monitoring.PrometheusEnabled && c.Monitoring.PrometheusPort == 0 {
		c.Monitoring.PrometheusPort = 9090
	}
	if c.Server.RateLimit.Burst == 0 && c.Server.RateLimit.RPS > 0 {
		c.Server.RateLimit.Burst = 5
	}
	if c.Redis.PoolSize == 0 {
		c.Redis.PoolSize = 10
	}

	// Pickup defaults
	if c.Pickup.PaymentWindow == 0 {
		c.Pickup.PaymentWindow = models.PaymentWindow
	}
	if c.Pickup.ExpiryScanInterval == 0 {
		c.Pickup.ExpiryScanInterval = models.DefaultExpiryScanInterval
	}
	if c.Pickup.DirectoryCacheTTL == 0 {
		c.Pickup.DirectoryCacheTTL = models.DefaultRedisTTL
	}
}
