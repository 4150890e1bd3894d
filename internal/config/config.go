// Package config loads evlog settings from the environment and an
// optional YAML file. File values override environment values so a
// deployment can keep secrets in the environment and the rest on disk.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// Config holds all settings. None are hot-updatable.
type Config struct {
	// Storage. DBFile is joined under DataDir unless absolute.
	DataDir string
	DBFile  string

	// Network
	ListenAddress string
	UDPPort       int
	HTTPPort      int
	MaxHTTPConns  int // concurrent HTTP connections; zero disables the cap

	// Pipeline
	IngestQueueSize     int
	SubscriberBuffer    int
	APIMaxBodyBytes     int
	DisplayNameCacheTTL time.Duration

	// Retention; zero disables purging.
	Retention         time.Duration
	RetentionSchedule string

	// Optional integrations; empty disables each.
	GeoIPDB   string
	RedisAddr string
	RedisKey  string

	// Auth. Empty means the API is open.
	AdminToken string
}

// Load reads the environment, overlays filePath when non-empty, and
// validates the result. All problems are reported together.
func Load(filePath string) (*Config, error) {
	var errs []string
	cfg := fromEnv(&errs)
	if filePath != "" {
		applyFile(cfg, filePath, &errs)
	}
	validate(cfg, &errs)
	if len(errs) > 0 {
		return nil, fmt.Errorf("config validation failed:\n  %s", strings.Join(errs, "\n  "))
	}
	return cfg, nil
}

// DBPath resolves the database location. A relative DBFile lives
// under DataDir; an absolute one is used as given.
func (c *Config) DBPath() string {
	if filepath.IsAbs(c.DBFile) {
		return c.DBFile
	}
	return filepath.Join(c.DataDir, c.DBFile)
}

func fromEnv(errs *[]string) *Config {
	cfg := &Config{}

	cfg.DataDir = envStr("EVLOG_DATA_DIR", "/var/lib/evlog")
	cfg.DBFile = envStr("EVLOG_DB_FILE", "evlog.db")
	cfg.ListenAddress = strings.TrimSpace(envStr("EVLOG_LISTEN_ADDRESS", "0.0.0.0"))

	cfg.UDPPort = envInt("EVLOG_UDP_PORT", 5514, errs)
	cfg.HTTPPort = envInt("EVLOG_HTTP_PORT", 8080, errs)
	cfg.MaxHTTPConns = envInt("EVLOG_MAX_HTTP_CONNS", 256, errs)

	cfg.IngestQueueSize = envInt("EVLOG_INGEST_QUEUE_SIZE", 8192, errs)
	cfg.SubscriberBuffer = envInt("EVLOG_SUBSCRIBER_BUFFER", 256, errs)
	cfg.APIMaxBodyBytes = envInt("EVLOG_API_MAX_BODY_BYTES", 1<<20, errs)
	cfg.DisplayNameCacheTTL = envDuration("EVLOG_DISPLAY_NAME_CACHE_TTL", 30*time.Second, errs)

	cfg.Retention = envDuration("EVLOG_RETENTION", 0, errs)
	cfg.RetentionSchedule = envStr("EVLOG_RETENTION_SCHEDULE", "@hourly")

	cfg.GeoIPDB = envStr("EVLOG_GEOIP_DB", "")
	cfg.RedisAddr = envStr("EVLOG_REDIS_ADDR", "")
	cfg.RedisKey = envStr("EVLOG_REDIS_KEY", "evlog:records")

	cfg.AdminToken = envStr("EVLOG_ADMIN_TOKEN", "")

	return cfg
}

func validate(cfg *Config, errs *[]string) {
	if cfg.DataDir == "" {
		*errs = append(*errs, "EVLOG_DATA_DIR must not be empty")
	}
	if cfg.DBFile == "" {
		*errs = append(*errs, "EVLOG_DB_FILE must not be empty")
	}
	if cfg.ListenAddress == "" {
		*errs = append(*errs, "EVLOG_LISTEN_ADDRESS must not be empty")
	}

	validatePort("EVLOG_UDP_PORT", cfg.UDPPort, errs)
	validatePort("EVLOG_HTTP_PORT", cfg.HTTPPort, errs)
	if cfg.MaxHTTPConns < 0 {
		*errs = append(*errs, fmt.Sprintf("EVLOG_MAX_HTTP_CONNS: must not be negative, got %d (0 disables the limit)", cfg.MaxHTTPConns))
	}
	validatePositive("EVLOG_INGEST_QUEUE_SIZE", cfg.IngestQueueSize, errs)
	validatePositive("EVLOG_SUBSCRIBER_BUFFER", cfg.SubscriberBuffer, errs)
	validatePositive("EVLOG_API_MAX_BODY_BYTES", cfg.APIMaxBodyBytes, errs)

	if cfg.DisplayNameCacheTTL <= 0 {
		*errs = append(*errs, "EVLOG_DISPLAY_NAME_CACHE_TTL must be positive")
	}
	if cfg.Retention < 0 {
		*errs = append(*errs, "EVLOG_RETENTION must not be negative")
	}
	if cfg.Retention > 0 {
		if _, err := cron.ParseStandard(cfg.RetentionSchedule); err != nil {
			*errs = append(*errs, fmt.Sprintf("EVLOG_RETENTION_SCHEDULE: invalid cron expression %q: %v", cfg.RetentionSchedule, err))
		}
	}
	if cfg.RedisAddr != "" && cfg.RedisKey == "" {
		*errs = append(*errs, "EVLOG_REDIS_KEY must not be empty when EVLOG_REDIS_ADDR is set")
	}
}

// --- helpers ---

func envStr(key, defaultVal string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return defaultVal
}

func envInt(key string, defaultVal int, errs *[]string) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		*errs = append(*errs, fmt.Sprintf("%s: invalid integer %q", key, v))
		return defaultVal
	}
	return n
}

func envDuration(key string, defaultVal time.Duration, errs *[]string) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		*errs = append(*errs, fmt.Sprintf("%s: invalid duration %q", key, v))
		return defaultVal
	}
	return d
}

func validatePort(name string, value int, errs *[]string) {
	if value < 1 || value > 65535 {
		*errs = append(*errs, fmt.Sprintf("%s: port must be 1-65535, got %d", name, value))
	}
}

func validatePositive(name string, value int, errs *[]string) {
	if value <= 0 {
		*errs = append(*errs, fmt.Sprintf("%s: must be positive, got %d", name, value))
	}
}
