// (c) Siemens AG 2023
//
// SPDX-License-Identifier: MIT

package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the complete mailsift configuration.
type Config struct {
	Workers     uint          `yaml:"workers"`      // number of concurrent verifications.
	UnitTimeout time.Duration `yaml:"unit_timeout"` // maximum time to wait for a single verdict.

	DNS        DNSConfig        `yaml:"dns"`
	SMTP       SMTPConfig       `yaml:"smtp"`
	Cache      CacheConfig      `yaml:"cache"`
	Output     OutputConfig     `yaml:"output"`
	ZeroBounce ZeroBounceConfig `yaml:"zerobounce"`
	Log        LogConfig        `yaml:"log"`
}

// DNSConfig configures MX lookups.
type DNSConfig struct {
	Nameservers []string      `yaml:"nameservers"` // "host:port"; empty means /etc/resolv.conf.
	Timeout     time.Duration `yaml:"timeout"`
	Retries     uint          `yaml:"retries"`
	TCP         bool          `yaml:"tcp"`
}

// SMTPConfig configures mailbox probes.
type SMTPConfig struct {
	Timeout   time.Duration `yaml:"timeout"`
	Port      uint16        `yaml:"port"`
	Helo      string        `yaml:"helo"`
	Sender    string        `yaml:"sender"`
	Retries   uint          `yaml:"retries"`
	RateLimit float64       `yaml:"rate_limit"` // probes per second; 0 is unlimited.
	Burst     int           `yaml:"burst"`
}

// CacheConfig configures the domain verdict cache.
type CacheConfig struct {
	TTL      time.Duration `yaml:"ttl"`      // 0 keeps verdicts forever.
	Capacity uint64        `yaml:"capacity"` // 0 is unlimited.
	Shards   uint          `yaml:"shards"`
	Redis    string        `yaml:"redis"` // redis:// URL of a shared cache; empty for in-memory.
	Prefix   string        `yaml:"prefix"`
}

// OutputConfig configures where result artifacts go.
type OutputConfig struct {
	Dir      string `yaml:"dir"`
	S3Bucket string `yaml:"s3_bucket"`
	S3Prefix string `yaml:"s3_prefix"`
	S3Region string `yaml:"s3_region"`
}

// ZeroBounceConfig configures the hosted validation backend.
type ZeroBounceConfig struct {
	APIKey    string `yaml:"api_key"`
	BaseURL   string `yaml:"base_url"`
	IPAddress string `yaml:"ip_address"`
}

// LogConfig configures logging.
type LogConfig struct {
	File  string `yaml:"file"` // appended to; empty logs to stderr.
	Debug bool   `yaml:"debug"`
}

// Environment variables overriding configuration values.
const (
	EnvZeroBounceAPIKey = "ZEROBOUNCE_API_KEY"
	EnvRedisURL         = "MAILSIFT_REDIS_URL"
)

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Workers:     50,
		UnitTimeout: 30 * time.Second,
		DNS: DNSConfig{
			Timeout: 5 * time.Second,
		},
		SMTP: SMTPConfig{
			Timeout: 5 * time.Second,
			Port:    25,
			Helo:    "mailsift.localhost",
			Sender:  "test@example.com",
			Burst:   1,
		},
		Cache: CacheConfig{
			Shards: 32,
			Prefix: "mailsift:mx:",
		},
		Output: OutputConfig{
			Dir: ".",
		},
		ZeroBounce: ZeroBounceConfig{
			BaseURL: "https://api.zerobounce.net/v2",
		},
		Log: LogConfig{
			File: "email_service.log",
		},
	}
}

// Load returns the configuration read from the specified YAML file, with
// unspecified settings taking their default values. An empty path returns
// the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read configuration, reason: %w", err)
	}
	defer f.Close()
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("malformed configuration %s, reason: %w", path, err)
	}
	return cfg, nil
}

// LoadFromEnv works like [Load], but then overrides secrets and connection
// URLs from the environment. Before, it loads the specified .env files (or
// ".env" if none are specified) into the environment, if they exist.
func LoadFromEnv(path string, envfiles ...string) (*Config, error) {
	if len(envfiles) == 0 {
		envfiles = []string{".env"}
	}
	for _, envfile := range envfiles {
		if err := godotenv.Load(envfile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("malformed environment file %s, reason: %w", envfile, err)
		}
	}
	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}
	if apikey := os.Getenv(EnvZeroBounceAPIKey); apikey != "" {
		cfg.ZeroBounce.APIKey = apikey
	}
	if redisURL := os.Getenv(EnvRedisURL); redisURL != "" {
		cfg.Cache.Redis = redisURL
	}
	return cfg, nil
}

// Validate checks the configuration for values out of range.
func (c *Config) Validate() error {
	var errs []error
	if c.Workers < 1 || c.Workers > 500 {
		errs = append(errs, fmt.Errorf("workers must be between 1 and 500, got %d", c.Workers))
	}
	for name, d := range map[string]time.Duration{
		"unit_timeout": c.UnitTimeout,
		"dns.timeout":  c.DNS.Timeout,
		"smtp.timeout": c.SMTP.Timeout,
	} {
		if d <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive, got %s", name, d))
		}
	}
	if c.Cache.TTL < 0 {
		errs = append(errs, fmt.Errorf("cache.ttl must not be negative, got %s", c.Cache.TTL))
	}
	if c.SMTP.Port == 0 {
		errs = append(errs, errors.New("smtp.port must not be 0"))
	}
	if c.SMTP.RateLimit < 0 {
		errs = append(errs, fmt.Errorf("smtp.rate_limit must not be negative, got %g", c.SMTP.RateLimit))
	}
	if c.SMTP.RateLimit > 0 && c.SMTP.Burst < 1 {
		errs = append(errs, fmt.Errorf("smtp.burst must be at least 1, got %d", c.SMTP.Burst))
	}
	if c.Cache.Shards < 1 {
		errs = append(errs, errors.New("cache.shards must be at least 1"))
	}
	for _, ns := range c.DNS.Nameservers {
		if !strings.Contains(ns, ":") {
			errs = append(errs, fmt.Errorf("dns nameserver %q lacks port", ns))
		}
	}
	return errors.Join(errs...)
}
