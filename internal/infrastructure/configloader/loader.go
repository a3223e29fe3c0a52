package configloader

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"starknet_portfolio/internal/domain/entity"
	"starknet_portfolio/internal/pkg/utils"
)

const DefaultPath = "config.yml"

// ServerConfig holds HTTP server settings. Timeouts are in seconds.
type ServerConfig struct {
	Port         string `yaml:"port"`
	ReadTimeout  int    `yaml:"readTimeout"`
	WriteTimeout int    `yaml:"writeTimeout"`
	IdleTimeout  int    `yaml:"idleTimeout"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json or console
}

// StarknetConfig holds chain access settings. The first RPC URL is the
// primary; the rest are tried in order when it cannot be dialed.
type StarknetConfig struct {
	Network          string   `yaml:"network"`
	RPCURLs          []string `yaml:"rpcURLs"`
	RPCCallTimeoutMs int64    `yaml:"rpcCallTimeoutMs"`
	ConnectTimeoutMs int64    `yaml:"connectTimeoutMs"`
	RateLimit        float64  `yaml:"rateLimit"`
	BurstLimit       int      `yaml:"burstLimit"`
	MaxBatchSize     int      `yaml:"maxBatchSize"`
}

// PriceFeedConfig holds AVNU price feed settings.
type PriceFeedConfig struct {
	BaseURL              string `yaml:"baseURL"`
	PathTemplate         string `yaml:"pathTemplate"`
	RequestTimeoutMillis int64  `yaml:"requestTimeoutMillis"`
}

// CatalogConfig selects where supported assets come from.
type CatalogConfig struct {
	Source          string `yaml:"source"` // sql or file
	File            string `yaml:"file"`
	CacheTTLSeconds int    `yaml:"cacheTTLSeconds"`
}

// DatabaseConfig holds SQL store settings. With PolicySource "sql" the
// PoliciesFile, when set, is seeded into the store on startup; with "file"
// policies are read from PoliciesFile directly and the store never sees them.
type DatabaseConfig struct {
	Driver       string `yaml:"driver"` // sqlite or postgres
	DSN          string `yaml:"dsn"`
	PolicySource string `yaml:"policySource"` // sql or file
	PoliciesFile string `yaml:"policiesFile"`
}

// RebalanceConfig controls the periodic sweep.
type RebalanceConfig struct {
	Enabled              bool              `yaml:"enabled"`
	Schedule             string            `yaml:"schedule"`
	RunOnStartup         bool              `yaml:"runOnStartup"`
	SweepTimeoutSeconds  int               `yaml:"sweepTimeoutSeconds"`
	DefaultToleranceBand float64           `yaml:"defaultToleranceBand"`
	MaxConcurrentWallets int               `yaml:"maxConcurrentWallets"`
	Categories           map[string]string `yaml:"categories"` // asset address -> Stable|Native|Other
}

// NATSConfig holds execution hand-off settings. An empty URL selects the
// dry-run executor.
type NATSConfig struct {
	URL           string `yaml:"url"`
	Stream        string `yaml:"stream"`
	SubjectPrefix string `yaml:"subjectPrefix"`
}

// PerformanceConfig holds fan-out limits.
type PerformanceConfig struct {
	MaxConcurrentRoutines int `yaml:"maxConcurrentRoutines"`
}

// Config is the top-level configuration structure.
type Config struct {
	Server      ServerConfig      `yaml:"server"`
	Logging     LoggingConfig     `yaml:"logging"`
	Starknet    StarknetConfig    `yaml:"starknet"`
	PriceFeed   PriceFeedConfig   `yaml:"priceFeed"`
	Catalog     CatalogConfig     `yaml:"catalog"`
	Database    DatabaseConfig    `yaml:"database"`
	Rebalance   RebalanceConfig   `yaml:"rebalance"`
	NATS        NATSConfig        `yaml:"nats"`
	Performance PerformanceConfig `yaml:"performance"`
}

// Load reads .env (if present), then the YAML file at path, then applies
// environment overrides and defaults.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		logrus.Warnf("Failed to load .env file: %v", err)
	}

	path = utils.GetEnv("CONFIG_PATH", path)
	if path == "" {
		path = DefaultPath
	}
	logrus.Infof("Loading configuration from path: %s", path)

	data, err := os.ReadFile(path)
	if err != nil {
		logrus.Errorf("Failed to read config file %s: %v", path, err)
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	cfg, err := Parse(data)
	if err != nil {
		logrus.Errorf("Failed to parse config file %s: %v", path, err)
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	logrus.Info("Configuration loaded successfully.")
	return cfg, nil
}

// Parse decodes YAML, applies environment overrides, fills defaults and
// validates the result.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyEnvOverrides(&cfg)
	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := utils.GetEnv("STARKNET_RPC_URL", ""); v != "" {
		// The override becomes the primary; configured URLs remain fallbacks.
		urls := []string{v}
		for _, u := range cfg.Starknet.RPCURLs {
			if u != v {
				urls = append(urls, u)
			}
		}
		cfg.Starknet.RPCURLs = urls
	}
	if v := utils.GetEnv("DATABASE_DSN", ""); v != "" {
		cfg.Database.DSN = v
	}
	if v := utils.GetEnv("NATS_URL", ""); v != "" {
		cfg.NATS.URL = v
	}
	if v := utils.GetEnv("SERVER_PORT", ""); v != "" {
		cfg.Server.Port = v
	}
	if v := utils.GetEnv("LOG_LEVEL", ""); v != "" {
		cfg.Logging.Level = v
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Port == "" {
		cfg.Server.Port = ":8080"
	} else if !strings.Contains(cfg.Server.Port, ":") {
		cfg.Server.Port = ":" + cfg.Server.Port
	}
	if cfg.Server.ReadTimeout <= 0 {
		cfg.Server.ReadTimeout = 15
	}
	if cfg.Server.WriteTimeout <= 0 {
		cfg.Server.WriteTimeout = 60
	}
	if cfg.Server.IdleTimeout <= 0 {
		cfg.Server.IdleTimeout = 120
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}

	if cfg.Starknet.Network == "" {
		cfg.Starknet.Network = "mainnet"
	}
	if cfg.Starknet.RPCCallTimeoutMs <= 0 {
		cfg.Starknet.RPCCallTimeoutMs = 10000
		logrus.Infof("starknet.rpcCallTimeoutMs not set, defaulting to %d ms", cfg.Starknet.RPCCallTimeoutMs)
	}
	if cfg.Starknet.ConnectTimeoutMs <= 0 {
		cfg.Starknet.ConnectTimeoutMs = 5000
	}
	if cfg.Starknet.RateLimit <= 0 {
		cfg.Starknet.RateLimit = 20
	}
	if cfg.Starknet.BurstLimit <= 0 {
		cfg.Starknet.BurstLimit = 10
	}

	if cfg.PriceFeed.BaseURL == "" {
		cfg.PriceFeed.BaseURL = "https://starknet.impulse.avnu.fi"
		logrus.Infof("priceFeed.baseURL not set, defaulting to %s", cfg.PriceFeed.BaseURL)
	}
	if cfg.PriceFeed.RequestTimeoutMillis <= 0 {
		cfg.PriceFeed.RequestTimeoutMillis = 10000
	}

	if cfg.Catalog.Source == "" {
		cfg.Catalog.Source = "sql"
	}
	cfg.Catalog.Source = strings.ToLower(cfg.Catalog.Source)
	if cfg.Catalog.File == "" {
		cfg.Catalog.File = "data/assets.json"
	}
	if cfg.Catalog.CacheTTLSeconds < 0 {
		cfg.Catalog.CacheTTLSeconds = 0
	}

	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "sqlite"
	}
	cfg.Database.Driver = strings.ToLower(cfg.Database.Driver)
	if cfg.Database.DSN == "" && cfg.Database.Driver == "sqlite" {
		cfg.Database.DSN = "file:portfolio.db?_pragma=busy_timeout(5000)"
	}
	if cfg.Database.PolicySource == "" {
		cfg.Database.PolicySource = "sql"
	}
	cfg.Database.PolicySource = strings.ToLower(cfg.Database.PolicySource)

	if cfg.Rebalance.Schedule == "" {
		cfg.Rebalance.Schedule = "@every 6h"
	}
	if cfg.Rebalance.SweepTimeoutSeconds <= 0 {
		cfg.Rebalance.SweepTimeoutSeconds = 600
	}
	if cfg.Rebalance.DefaultToleranceBand <= 0 {
		cfg.Rebalance.DefaultToleranceBand = 5
	}
	if cfg.Rebalance.MaxConcurrentWallets <= 0 {
		cfg.Rebalance.MaxConcurrentWallets = 4
	}

	if cfg.Performance.MaxConcurrentRoutines <= 0 {
		cfg.Performance.MaxConcurrentRoutines = 10
		logrus.Infof("performance.maxConcurrentRoutines not set, defaulting to %d", cfg.Performance.MaxConcurrentRoutines)
	}
}

// Validate checks the values defaults cannot repair.
func (c *Config) Validate() error {
	if len(c.Starknet.RPCURLs) == 0 {
		return fmt.Errorf("starknet.rpcURLs must contain at least one URL")
	}
	switch c.Catalog.Source {
	case "sql", "file":
	default:
		return fmt.Errorf("catalog.source must be sql or file, got %q", c.Catalog.Source)
	}
	switch c.Database.Driver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("database.driver must be sqlite or postgres, got %q", c.Database.Driver)
	}
	if c.Database.DSN == "" {
		return fmt.Errorf("database.dsn is required for driver %s", c.Database.Driver)
	}
	switch c.Database.PolicySource {
	case "sql":
	case "file":
		if c.Database.PoliciesFile == "" {
			return fmt.Errorf("database.policiesFile is required when database.policySource is file")
		}
	default:
		return fmt.Errorf("database.policySource must be sql or file, got %q", c.Database.PolicySource)
	}
	if _, err := c.Categories(); err != nil {
		return err
	}
	return nil
}

// Categories parses rebalance.categories into a normalized address map.
func (c *Config) Categories() (map[string]entity.AssetCategory, error) {
	out := make(map[string]entity.AssetCategory, len(c.Rebalance.Categories))
	for addr, raw := range c.Rebalance.Categories {
		category, err := entity.ParseCategory(raw)
		if err != nil {
			return nil, fmt.Errorf("rebalance.categories[%s]: %w", addr, err)
		}
		out[entity.NormalizeAddress(addr)] = category
	}
	return out, nil
}

func (s ServerConfig) ReadTimeoutDuration() time.Duration {
	return time.Duration(s.ReadTimeout) * time.Second
}

func (s ServerConfig) WriteTimeoutDuration() time.Duration {
	return time.Duration(s.WriteTimeout) * time.Second
}

func (s ServerConfig) IdleTimeoutDuration() time.Duration {
	return time.Duration(s.IdleTimeout) * time.Second
}
