package config

import (
	"time"

	"github.com/vietddude/tracker/internal/infra/alertlog"
	"github.com/vietddude/tracker/internal/infra/analytics"
	redisstore "github.com/vietddude/tracker/internal/infra/store/redis"
)

// AppConfig represents the top-level configuration.
type AppConfig struct {
	Server    ServerConfig      `yaml:"server"`
	Redis     redisstore.Config `yaml:"redis"`
	Database  alertlog.Config   `yaml:"database"`
	Analytics analytics.Config  `yaml:"analytics"`
	Tracking  TrackingConfig    `yaml:"tracking"`
	Logging   LoggingConfig     `yaml:"logging"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port int `yaml:"port"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
}

// TrackingConfig holds engine scan settings.
type TrackingConfig struct {
	WalletScanInterval      time.Duration `yaml:"wallet_scan_interval"`
	WhaleScanInterval       time.Duration `yaml:"whale_scan_interval"`
	MaxWalletsPerSubscriber int           `yaml:"max_wallets_per_subscriber"`
	WhalePageLimit          int           `yaml:"whale_page_limit"`
}
