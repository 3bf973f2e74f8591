// Package config loads and validates sitemapper configuration via Viper.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap/zapcore"

	"github.com/JakeFAU/sitemapper/internal/crawler"
	collyfetcher "github.com/JakeFAU/sitemapper/internal/fetcher/colly"
	"github.com/JakeFAU/sitemapper/internal/sitemap"
)

// Config captures all configuration knobs loaded via Viper.
type Config struct {
	Logging LoggingConfig `mapstructure:"logging"`
	HTTP    HTTPConfig    `mapstructure:"http"`
	Crawler CrawlerConfig `mapstructure:"crawler"`
	Sitemap SitemapConfig `mapstructure:"sitemap"`
	Server  ServerConfig  `mapstructure:"server"`
	Auth    AuthConfig    `mapstructure:"auth"`
}

// LoggingConfig toggles zap development features and the level.
type LoggingConfig struct {
	Development bool   `mapstructure:"development"`
	Level       string `mapstructure:"level"`
}

// HTTPConfig configures the outbound HTTP client.
type HTTPConfig struct {
	UserAgent          string        `mapstructure:"user_agent"`
	Timeout            time.Duration `mapstructure:"timeout"`
	InsecureSkipVerify bool          `mapstructure:"insecure_skip_verify"`
	MaxBodyBytes       int           `mapstructure:"max_body_bytes"`
	Accept             string        `mapstructure:"accept"`
}

// CrawlerConfig governs the recursive page crawler.
type CrawlerConfig struct {
	Concurrency     int      `mapstructure:"concurrency"`
	ExcludePatterns []string `mapstructure:"exclude_patterns"`
	CheckRedirects  bool     `mapstructure:"check_redirects"`
	CheckOffDomain  bool     `mapstructure:"check_off_domain"`
	RespectRobots   bool     `mapstructure:"respect_robots"`
	MaxPages        int      `mapstructure:"max_pages"`
}

// SitemapConfig governs sitemap discovery.
type SitemapConfig struct {
	DefaultPath    string   `mapstructure:"default_path"`
	WellKnownPaths []string `mapstructure:"well_known_paths"`
	Concurrency    int      `mapstructure:"concurrency"`
	RestrictToPath bool     `mapstructure:"restrict_to_path"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port           int           `mapstructure:"port"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// AuthConfig defines API authentication toggles.
type AuthConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	APIKey  string `mapstructure:"api_key"`
}

// flagKeys maps command-line flags onto config keys.
var flagKeys = map[string]string{
	"log-level":   "logging.level",
	"dev":         "logging.development",
	"insecure":    "http.insecure_skip_verify",
	"concurrency": "crawler.concurrency",
	"user-agent":  "http.user_agent",
	"port":        "server.port",
}

// Load builds a Config from disk, environment and any flags in flags that
// the caller registered. Precedence is flag, env, file, default.
func Load(path string, flags *pflag.FlagSet) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("SITEMAPPER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	if flags != nil {
		for name, key := range flagKeys {
			flag := flags.Lookup(name)
			if flag == nil {
				continue
			}
			if err := v.BindPFlag(key, flag); err != nil {
				return Config{}, fmt.Errorf("bind flag %s: %w", name, err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("logging.development", false)
	v.SetDefault("logging.level", "info")
	v.SetDefault("http.user_agent", "sitemapper/1.0 (+https://github.com/JakeFAU/sitemapper)")
	v.SetDefault("http.timeout", 30*time.Second)
	v.SetDefault("http.insecure_skip_verify", false)
	v.SetDefault("http.max_body_bytes", 10<<20)
	v.SetDefault("http.accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	v.SetDefault("crawler.concurrency", 1)
	v.SetDefault("crawler.exclude_patterns", crawler.DefaultExcludePatterns())
	v.SetDefault("crawler.check_redirects", true)
	v.SetDefault("crawler.check_off_domain", true)
	v.SetDefault("crawler.respect_robots", false)
	v.SetDefault("crawler.max_pages", 0)
	defaults := sitemap.DefaultConfig()
	v.SetDefault("sitemap.default_path", defaults.DefaultPath)
	v.SetDefault("sitemap.well_known_paths", defaults.WellKnownPaths)
	v.SetDefault("sitemap.concurrency", 0)
	v.SetDefault("sitemap.restrict_to_path", defaults.RestrictToPath)
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.request_timeout", 5*time.Minute)
	v.SetDefault("auth.enabled", false)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if _, err := zapcore.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("logging.level: %w", err)
	}
	if c.HTTP.Timeout <= 0 {
		return errors.New("http.timeout must be > 0")
	}
	if c.HTTP.MaxBodyBytes < 0 {
		return errors.New("http.max_body_bytes must be >= 0")
	}
	if err := c.CrawlerConfig().Validate(); err != nil {
		return err
	}
	if c.Sitemap.Concurrency < 0 {
		return errors.New("sitemap.concurrency must be >= 0")
	}
	if !strings.HasPrefix(c.Sitemap.DefaultPath, "/") {
		return errors.New("sitemap.default_path must start with /")
	}
	for _, p := range c.Sitemap.WellKnownPaths {
		if !strings.HasPrefix(p, "/") {
			return fmt.Errorf("sitemap.well_known_paths entry %q must start with /", p)
		}
	}
	if c.Server.Port <= 0 {
		return errors.New("server.port must be > 0")
	}
	if c.Server.RequestTimeout <= 0 {
		return errors.New("server.request_timeout must be > 0")
	}
	if c.Auth.Enabled && c.Auth.APIKey == "" {
		return errors.New("auth.api_key must be set when auth is enabled")
	}
	return nil
}

// CrawlerConfig converts the crawler section into engine settings.
func (c Config) CrawlerConfig() crawler.Config {
	return crawler.Config{
		Concurrency:     c.Crawler.Concurrency,
		ExcludePatterns: c.Crawler.ExcludePatterns,
		CheckRedirects:  c.Crawler.CheckRedirects,
		CheckOffDomain:  c.Crawler.CheckOffDomain,
		MaxPages:        c.Crawler.MaxPages,
	}
}

// FetcherConfig converts the http section into fetcher settings.
func (c Config) FetcherConfig() collyfetcher.Config {
	return collyfetcher.Config{
		UserAgent:          c.HTTP.UserAgent,
		Timeout:            c.HTTP.Timeout,
		InsecureSkipVerify: c.HTTP.InsecureSkipVerify,
		MaxBodyBytes:       c.HTTP.MaxBodyBytes,
		Accept:             c.HTTP.Accept,
	}
}

// SitemapConfig converts the sitemap section into loader settings.
func (c Config) SitemapConfig() sitemap.Config {
	return sitemap.Config{
		DefaultPath:    c.Sitemap.DefaultPath,
		WellKnownPaths: c.Sitemap.WellKnownPaths,
		Concurrency:    c.Sitemap.Concurrency,
		RestrictToPath: c.Sitemap.RestrictToPath,
	}
}
