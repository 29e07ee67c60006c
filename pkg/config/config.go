package config

import (
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// FileName is the optional project configuration file
const FileName = "cog.yaml"

// Config holds all application configuration
type Config struct {
	// Project layout
	ProjectRoot  string `yaml:"projectRoot,omitempty"`
	AssetsDir    string `yaml:"assetsDir,omitempty"`
	ProductsRoot string `yaml:"productsRoot,omitempty"`

	// JournalPath is relative to ProjectRoot; empty disables the journal
	JournalPath string `yaml:"journalPath,omitempty"`

	LogLevel       string `yaml:"logLevel,omitempty"`
	MetricsEnabled bool   `yaml:"metricsEnabled,omitempty"`
	StatusAddr     string `yaml:"statusAddr,omitempty"`

	// Watcher
	WatchDelay     time.Duration `yaml:"watchDelay,omitempty"`
	ResyncSchedule string        `yaml:"resyncSchedule,omitempty"`

	// Asset kind cache
	AssetCacheSize int           `yaml:"assetCacheSize,omitempty"`
	AssetCacheTTL  time.Duration `yaml:"assetCacheTTL,omitempty"`
}

// Default returns the built-in configuration for a project directory
func Default(projectRoot string) *Config {
	return &Config{
		ProjectRoot:    projectRoot,
		AssetsDir:      "Assets",
		ProductsRoot:   "Assets/Plugins/VoxelBusters",
		JournalPath:    ".cog/journal.db",
		LogLevel:       "info",
		MetricsEnabled: true,
		StatusAddr:     ":9470",
		WatchDelay:     2 * time.Second,
		AssetCacheSize: 512,
		AssetCacheTTL:  5 * time.Minute,
	}
}

// Load builds the configuration for projectRoot: defaults, then cog.yaml in
// the project root if present, then COG_* environment variables.
// COG_PROJECT_ROOT replaces projectRoot before the file is read.
func Load(projectRoot string) (*Config, error) {
	projectRoot = getEnv("COG_PROJECT_ROOT", projectRoot)
	cfg := Default(projectRoot)

	if err := cfg.loadFile(filepath.Join(projectRoot, FileName)); err != nil {
		return nil, err
	}
	cfg.loadEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

func (c *Config) loadFile(file string) error {
	data, err := os.ReadFile(file)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to read %s: %w", FileName, err)
	}

	root := c.ProjectRoot
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse %s: %w", FileName, err)
	}
	// the file never moves the project it lives in
	c.ProjectRoot = root
	return nil
}

func (c *Config) loadEnv() {
	c.AssetsDir = getEnv("COG_ASSETS_DIR", c.AssetsDir)
	c.ProductsRoot = getEnv("COG_PRODUCTS_ROOT", c.ProductsRoot)
	if v, ok := os.LookupEnv("COG_JOURNAL_PATH"); ok {
		c.JournalPath = v
		if strings.EqualFold(v, "off") {
			c.JournalPath = ""
		}
	}
	c.LogLevel = getEnv("COG_LOG_LEVEL", c.LogLevel)
	c.MetricsEnabled = getEnvBool("COG_METRICS_ENABLED", c.MetricsEnabled)
	c.StatusAddr = getEnv("COG_STATUS_ADDR", c.StatusAddr)
	c.WatchDelay = getEnvDuration("COG_WATCH_DELAY", c.WatchDelay)
	c.ResyncSchedule = getEnv("COG_RESYNC_SCHEDULE", c.ResyncSchedule)
	c.AssetCacheSize = getEnvInt("COG_ASSET_CACHE_SIZE", c.AssetCacheSize)
	c.AssetCacheTTL = getEnvDuration("COG_ASSET_CACHE_TTL", c.AssetCacheTTL)
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.ProjectRoot == "" {
		return NewInvalidConfigError("project root is required")
	}
	if c.AssetsDir == "" {
		return NewInvalidConfigError("assets dir is required")
	}

	products := filepath.ToSlash(c.ProductsRoot)
	if products == "" || path.IsAbs(products) || filepath.IsAbs(c.ProductsRoot) {
		return NewInvalidConfigError("products root must be a relative path, got %q", c.ProductsRoot)
	}
	assetsDir := strings.TrimSuffix(filepath.ToSlash(c.AssetsDir), "/")
	if !strings.HasPrefix(path.Clean(products)+"/", assetsDir+"/") {
		return NewInvalidConfigError("products root %q must be under %q", c.ProductsRoot, c.AssetsDir)
	}

	if c.AssetCacheSize <= 0 {
		return NewInvalidConfigError("asset cache size must be positive, got %d", c.AssetCacheSize)
	}
	if c.WatchDelay < 0 {
		return NewInvalidConfigError("watch delay must not be negative")
	}

	if _, err := c.ParseResyncSchedule(); err != nil {
		return NewInvalidConfigError("invalid resync schedule %q: %v", c.ResyncSchedule, err)
	}

	if c.LogLevel != "" {
		if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
			return NewInvalidConfigError("%v", err)
		}
	}

	return nil
}

// ParseResyncSchedule parses the periodic resync schedule. An empty schedule
// yields nil.
func (c *Config) ParseResyncSchedule() (cron.Schedule, error) {
	if c.ResyncSchedule == "" {
		return nil, nil
	}
	return cron.ParseStandard(c.ResyncSchedule)
}

// JournalFile returns the absolute journal path, or "" when disabled
func (c *Config) JournalFile() string {
	if c.JournalPath == "" {
		return ""
	}
	if c.JournalPath == ":memory:" || filepath.IsAbs(c.JournalPath) {
		return c.JournalPath
	}
	return filepath.Join(c.ProjectRoot, c.JournalPath)
}

// getEnv returns an environment variable value or a default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool returns a boolean environment variable or a default
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return strings.ToLower(value) == "true" || value == "1"
	}
	return defaultValue
}

// getEnvInt returns an integer environment variable or a default
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvDuration returns a duration environment variable or a default
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
