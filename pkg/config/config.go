// Package config holds runtime settings for the phishguard service. All
// settings have working defaults and can be overridden by a YAML file
// (PHISHGUARD_CONFIG) and then by individual environment variables, in that
// order, so env always wins.
package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds global settings for the phishguard service.
type Config struct {
	// === HTTP ===
	ListenAddr   string `yaml:"listen_addr"`   // address for the API server (default ":8080")
	MaxBodyBytes int    `yaml:"max_body_bytes"` // request body cap (default 1 MiB)

	// === Classifier bundles ===
	// One directory per content type holding model.onnx plus its
	// preprocessing artifacts. An empty or missing directory leaves that
	// content type degraded, not the whole service.
	EmailBundleDir string `yaml:"email_bundle_dir"`
	SMSBundleDir   string `yaml:"sms_bundle_dir"`
	URLBundleDir   string `yaml:"url_bundle_dir"`

	// === Verdict cache (optional) ===
	RedisAddr     string        `yaml:"redis_addr"`
	RedisPassword string        `yaml:"redis_password"`
	RedisDB       int           `yaml:"redis_db"`
	CacheTTL      time.Duration `yaml:"cache_ttl"`

	// === Scan history (optional) ===
	PostgresDSN string `yaml:"postgres_dsn"`

	// === Observability ===
	LogRequests bool `yaml:"log_requests"`
}

// New builds the effective configuration: defaults, then the YAML overlay
// if PHISHGUARD_CONFIG points at a file, then environment overrides.
func New() *Config {
	cfg := &Config{
		ListenAddr:     ":8080",
		MaxBodyBytes:   1 << 20,
		EmailBundleDir: "models/email",
		SMSBundleDir:   "models/sms",
		URLBundleDir:   "models/url",
		CacheTTL:       15 * time.Minute,
		LogRequests:    true,
	}

	if path := os.Getenv("PHISHGUARD_CONFIG"); path != "" {
		if err := cfg.applyFile(path); err != nil {
			log.Printf("[CONFIG] overlay %s skipped: %v", path, err)
		}
	}

	cfg.ListenAddr = GetEnv("PHISHGUARD_LISTEN_ADDR", cfg.ListenAddr)
	cfg.MaxBodyBytes = GetEnvInt("PHISHGUARD_MAX_BODY_BYTES", cfg.MaxBodyBytes)
	cfg.EmailBundleDir = GetEnv("PHISHGUARD_EMAIL_BUNDLE", cfg.EmailBundleDir)
	cfg.SMSBundleDir = GetEnv("PHISHGUARD_SMS_BUNDLE", cfg.SMSBundleDir)
	cfg.URLBundleDir = GetEnv("PHISHGUARD_URL_BUNDLE", cfg.URLBundleDir)
	cfg.RedisAddr = GetEnv("PHISHGUARD_REDIS_ADDR", cfg.RedisAddr)
	cfg.RedisPassword = GetEnv("PHISHGUARD_REDIS_PASSWORD", cfg.RedisPassword)
	cfg.RedisDB = GetEnvInt("PHISHGUARD_REDIS_DB", cfg.RedisDB)
	cfg.CacheTTL = time.Duration(GetEnvInt("PHISHGUARD_CACHE_TTL_SECONDS", int(cfg.CacheTTL/time.Second))) * time.Second
	cfg.PostgresDSN = GetEnv("PHISHGUARD_POSTGRES_DSN", cfg.PostgresDSN)
	cfg.LogRequests = GetEnvBool("PHISHGUARD_LOG_REQUESTS", cfg.LogRequests)

	return cfg
}

func (c *Config) applyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, c)
}

// Validate checks the settings that would make startup pointless. A missing
// bundle directory is a warning, not an error: the service starts degraded
// and reports per-type readiness at the health endpoint.
func (c *Config) Validate() error {
	if c.ListenAddr == "" {
		return fmt.Errorf("listen address is empty")
	}
	if c.MaxBodyBytes <= 0 {
		return fmt.Errorf("max body bytes must be positive, got %d", c.MaxBodyBytes)
	}
	for _, b := range []struct{ name, dir string }{
		{"email", c.EmailBundleDir},
		{"sms", c.SMSBundleDir},
		{"url", c.URLBundleDir},
	} {
		if b.dir == "" {
			log.Printf("[CONFIG] %s bundle not configured; %s classification will be unavailable", b.name, b.name)
		}
	}
	return nil
}

// MustValidate calls Validate and fatally exits if validation fails.
func (c *Config) MustValidate() {
	if err := c.Validate(); err != nil {
		log.Fatalf("[STARTUP] FATAL: configuration invalid: %v", err)
	}
}

// Environment helpers, exported for use by other packages.

// GetEnv returns the value of an environment variable or a default value.
func GetEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

// GetEnvBool returns the boolean value of an environment variable or a default value.
func GetEnvBool(key string, defaultValue bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return defaultValue
}

// GetEnvInt returns the integer value of an environment variable or a default value.
func GetEnvInt(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		i, err := strconv.Atoi(v)
		if err == nil {
			return i
		}
	}
	return defaultValue
}

// GetEnvSlice returns a comma-separated list from an environment variable or a default value.
func GetEnvSlice(key string, defaultValue []string) []string {
	if v := os.Getenv(key); v != "" {
		var parts []string
		for _, p := range strings.Split(v, ",") {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				parts = append(parts, trimmed)
			}
		}
		if len(parts) > 0 {
			return parts
		}
	}
	return defaultValue
}
