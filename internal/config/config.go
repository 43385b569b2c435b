package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds the application configuration loaded from files and environment variables.
type Config struct {
	AppName              string        `mapstructure:"app_name"`
	Env                  string        `mapstructure:"app_env"`
	LogLevel             string        `mapstructure:"log_level"`
	TargetsFile          string        `mapstructure:"targets_file"`
	PublishersFile       string        `mapstructure:"publishers_file"`
	CheckIntervalSeconds int64         `mapstructure:"check_interval"`
	CheckInterval        time.Duration `mapstructure:"-"`

	// Single-firewall credentials used by the CLI when no --target is given.
	FirewallHost          string        `mapstructure:"firewall_host"`
	FirewallPort          int           `mapstructure:"firewall_port"`
	APIUsername           string        `mapstructure:"api_username"`
	APIPassword           string        `mapstructure:"api_password"`
	TLSInsecureSkipVerify bool          `mapstructure:"tls_insecure_skip_verify"`
	RequestTimeoutSeconds int64         `mapstructure:"request_timeout_seconds"`
	RequestTimeout        time.Duration `mapstructure:"-"`

	StorageType            string        `mapstructure:"storage_type"`
	BBoltPath              string        `mapstructure:"bbolt_path"`
	StorageTTLSeconds      int64         `mapstructure:"storage_ttl_seconds"`
	StorageCleanupSeconds  int64         `mapstructure:"storage_cleanup_interval_seconds"`
	StorageTTL             time.Duration `mapstructure:"-"`
	StorageCleanupInterval time.Duration `mapstructure:"-"`
}

// Load reads configuration from environment variables and config files.
func Load() (*Config, error) {
	_ = godotenv.Load("configs/.env")

	v := viper.New()

	v.SetDefault("app_name", "go-sonicos")
	v.SetDefault("app_env", "development")
	v.SetDefault("log_level", "info")
	v.SetDefault("targets_file", "./configs/targets.yaml")
	v.SetDefault("publishers_file", "./configs/publishers.yaml")
	v.SetDefault("check_interval", 300) // seconds
	v.SetDefault("firewall_host", "")
	v.SetDefault("firewall_port", 443)
	v.SetDefault("api_username", "admin")
	v.SetDefault("api_password", "")
	v.SetDefault("tls_insecure_skip_verify", false)
	v.SetDefault("request_timeout_seconds", 30)
	v.SetDefault("storage_type", "bbolt")
	v.SetDefault("bbolt_path", "./data/drift.db")
	v.SetDefault("storage_ttl_seconds", int64((5*24*time.Hour)/time.Second))
	v.SetDefault("storage_cleanup_interval_seconds", int64((12*time.Hour)/time.Second))

	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.CheckIntervalSeconds <= 0 {
		return nil, fmt.Errorf("invalid check_interval (must be positive seconds)")
	}
	cfg.CheckInterval = time.Duration(cfg.CheckIntervalSeconds) * time.Second

	if cfg.RequestTimeoutSeconds <= 0 {
		return nil, fmt.Errorf("invalid request_timeout_seconds (must be positive seconds)")
	}
	cfg.RequestTimeout = time.Duration(cfg.RequestTimeoutSeconds) * time.Second

	if cfg.FirewallPort <= 0 || cfg.FirewallPort > 65535 {
		return nil, fmt.Errorf("invalid firewall_port %d", cfg.FirewallPort)
	}

	if cfg.StorageTTLSeconds <= 0 {
		return nil, fmt.Errorf("invalid storage_ttl_seconds (must be positive seconds)")
	}
	if cfg.StorageCleanupSeconds <= 0 {
		return nil, fmt.Errorf("invalid storage_cleanup_interval_seconds (must be positive seconds)")
	}
	cfg.StorageTTL = time.Duration(cfg.StorageTTLSeconds) * time.Second
	cfg.StorageCleanupInterval = time.Duration(cfg.StorageCleanupSeconds) * time.Second

	return &cfg, nil
}
