// Package config handles TOML/YAML configuration loading and validation.
package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// configSearchPaths lists paths checked in order when no explicit config is given.
var configSearchPaths = []string{
	"/etc/edge-router/config.toml",
	"configs/config.toml",
}

// InternalPrefix is the path namespace of the router's own endpoints. Static
// routes may not live under it.
const InternalPrefix = "/_edge"

// Defaults taken from the production deployment.
var (
	defaultPublicHost   = "officeadmin.io"
	defaultStaticRoutes = []string{"/", "/blog", "/hello", "/ReportKit"}
)

// CLI holds command-line arguments parsed by Kong.
type CLI struct {
	Config     string `kong:"short='c',help='Path to TOML or YAML config file.',env='CONFIG_PATH'"`
	Host       string `kong:"help='Listen host (overrides config).',env='HOST'"`
	Port       int    `kong:"short='p',help='Listen port (overrides config).',env='PORT'"`
	PublicHost string `kong:"help='Public hostname served by the router (overrides config).',env='PUBLIC_HOST'"`
	LogLevel   string `kong:"help='Log level: debug|info|warn|error (overrides config).',env='LOG_LEVEL'"`
}

// Config is the top-level application configuration.
type Config struct {
	Server   ServerConfig   `toml:"server" yaml:"server"`
	Origins  OriginsConfig  `toml:"origins" yaml:"origins"`
	Routes   RoutesConfig   `toml:"routes" yaml:"routes"`
	Upstream UpstreamConfig `toml:"upstream" yaml:"upstream"`
	Log      LogConfig      `toml:"log" yaml:"log"`
	Metrics  MetricsConfig  `toml:"metrics" yaml:"metrics"`

	filePath string // resolved config file path (unexported)
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host         string          `toml:"host" yaml:"host"`
	Port         int             `toml:"port" yaml:"port"` // 0 means "use default" (8080)
	BodyMaxBytes int64           `toml:"body_max_bytes" yaml:"body_max_bytes"`
	RateLimit    RateLimitConfig `toml:"rate_limit" yaml:"rate_limit"`
}

// RateLimitConfig controls per-IP request rate limiting.
type RateLimitConfig struct {
	Enabled           bool    `toml:"enabled" yaml:"enabled"`
	RequestsPerSecond float64 `toml:"requests_per_second" yaml:"requests_per_second"`
}

// OriginsConfig names the public hostname and the two origins behind it.
type OriginsConfig struct {
	PublicHost     string `toml:"public_host" yaml:"public_host"`
	StaticBaseURL  string `toml:"static_base_url" yaml:"static_base_url"`
	DynamicBaseURL string `toml:"dynamic_base_url" yaml:"dynamic_base_url"`
}

// RoutesConfig lists the static-origin prefixes, in match order, and the
// dynamic-only prefixes that override them.
type RoutesConfig struct {
	Static      []string `toml:"static" yaml:"static"`
	DynamicOnly []string `toml:"dynamic_only" yaml:"dynamic_only"`
}

// UpstreamConfig holds upstream connection settings.
type UpstreamConfig struct {
	// TimeoutSeconds bounds the wait for dynamic-origin response headers.
	// Bodies and tunnels are not cut by it.
	TimeoutSeconds       int   `toml:"timeout_seconds" yaml:"timeout_seconds"`
	StaticTimeoutSeconds int   `toml:"static_timeout_seconds" yaml:"static_timeout_seconds"`
	StaticMaxBytes       int64 `toml:"static_max_bytes" yaml:"static_max_bytes"`
	IdleConnections      int   `toml:"idle_connections" yaml:"idle_connections"`
	// InsecureSkipVerify disables TLS verification towards both origins.
	// Only meant for staging origins with self-signed certificates.
	InsecureSkipVerify bool `toml:"insecure_skip_verify" yaml:"insecure_skip_verify"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `toml:"level" yaml:"level"`
	Format string `toml:"format" yaml:"format"`
}

// MetricsConfig holds Prometheus metrics settings.
type MetricsConfig struct {
	Enabled bool   `toml:"enabled" yaml:"enabled"`
	Path    string `toml:"path" yaml:"path"`
}

// Load reads the config file and applies CLI overrides.
// When no explicit path is given (via --config or CONFIG_PATH), it searches
// /etc/edge-router/config.toml then configs/config.toml.
// Files ending in .yaml or .yml are parsed as YAML, everything else as TOML.
func Load(cli *CLI) (*Config, error) {
	path := cli.Config
	if path == "" {
		path = findConfig()
	}
	if path == "" {
		return nil, fmt.Errorf("config: no config file found (searched %v)", configSearchPaths)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	var cfg Config
	if err := unmarshal(path, data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}

	cfg.filePath = path
	cfg.applyCLI(cli)
	cfg.setDefaults()

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config: validate: %w", err)
	}

	return &cfg, nil
}

func unmarshal(path string, data []byte, cfg *Config) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return yaml.Unmarshal(data, cfg)
	default:
		return toml.Unmarshal(data, cfg)
	}
}

// applyCLI overrides config values with non-zero CLI flags.
func (c *Config) applyCLI(cli *CLI) {
	if cli.Host != "" {
		c.Server.Host = cli.Host
	}
	if cli.Port != 0 {
		c.Server.Port = cli.Port
	}
	if cli.PublicHost != "" {
		c.Origins.PublicHost = cli.PublicHost
	}
	if cli.LogLevel != "" {
		c.Log.Level = cli.LogLevel
	}
}

func (c *Config) validate() error {
	// Static origin: any absolute http(s) URL.
	if c.Origins.StaticBaseURL == "" {
		return fmt.Errorf("origins.static_base_url is required")
	}
	su, err := url.Parse(c.Origins.StaticBaseURL)
	if err != nil {
		return fmt.Errorf("origins.static_base_url is not a valid URL: %w", err)
	}
	if (su.Scheme != "https" && su.Scheme != "http") || su.Host == "" {
		return fmt.Errorf("origins.static_base_url must be an absolute http(s) URL; got %q", c.Origins.StaticBaseURL)
	}

	// Dynamic origin: HTTPS host only, path and query are taken from the request.
	if c.Origins.DynamicBaseURL == "" {
		return fmt.Errorf("origins.dynamic_base_url is required")
	}
	du, err := url.Parse(c.Origins.DynamicBaseURL)
	if err != nil {
		return fmt.Errorf("origins.dynamic_base_url is not a valid URL: %w", err)
	}
	if du.Scheme != "https" || du.Host == "" {
		return fmt.Errorf("origins.dynamic_base_url must use HTTPS; got %q", c.Origins.DynamicBaseURL)
	}
	if du.Path != "" && du.Path != "/" {
		return fmt.Errorf("origins.dynamic_base_url must not carry a path; got %q", c.Origins.DynamicBaseURL)
	}

	// Public host: bare hostname, and not the dynamic origin itself (that would loop).
	host := c.Origins.PublicHost
	if strings.Contains(host, "/") || strings.Contains(host, " ") {
		return fmt.Errorf("origins.public_host must be a bare hostname; got %q", host)
	}
	if strings.EqualFold(host, du.Hostname()) {
		return fmt.Errorf("origins.public_host %q must differ from the dynamic origin host", host)
	}

	for _, p := range c.Routes.Static {
		if lp := strings.ToLower(p); lp == InternalPrefix || strings.HasPrefix(lp, InternalPrefix+"/") {
			return fmt.Errorf("routes.static entry %q conflicts with reserved prefix %q", p, InternalPrefix)
		}
	}

	// Numeric bounds.
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be 0–65535; got %d", c.Server.Port)
	}
	if c.Server.BodyMaxBytes < 0 {
		return fmt.Errorf("server.body_max_bytes must be non-negative; got %d", c.Server.BodyMaxBytes)
	}
	if c.Upstream.TimeoutSeconds < 0 {
		return fmt.Errorf("upstream.timeout_seconds must be non-negative; got %d", c.Upstream.TimeoutSeconds)
	}
	if c.Upstream.StaticTimeoutSeconds < 0 {
		return fmt.Errorf("upstream.static_timeout_seconds must be non-negative; got %d", c.Upstream.StaticTimeoutSeconds)
	}
	if c.Upstream.StaticMaxBytes < 0 {
		return fmt.Errorf("upstream.static_max_bytes must be non-negative; got %d", c.Upstream.StaticMaxBytes)
	}
	if c.Upstream.IdleConnections < 0 {
		return fmt.Errorf("upstream.idle_connections must be non-negative; got %d", c.Upstream.IdleConnections)
	}
	if c.Server.RateLimit.Enabled && c.Server.RateLimit.RequestsPerSecond <= 0 {
		return fmt.Errorf("server.rate_limit.requests_per_second must be > 0 when rate limiting is enabled; got %v", c.Server.RateLimit.RequestsPerSecond)
	}

	// Log fields.
	level := strings.ToLower(c.Log.Level)
	switch level {
	case "debug", "info", "warn", "error", "":
		// valid
	default:
		return fmt.Errorf("log.level must be one of: debug, info, warn, error; got %q", c.Log.Level)
	}
	format := strings.ToLower(c.Log.Format)
	switch format {
	case "json", "text", "":
		// valid
	default:
		return fmt.Errorf("log.format must be one of: json, text; got %q", c.Log.Format)
	}

	// Metrics path validation (only when metrics are enabled).
	if c.Metrics.Enabled {
		p := c.Metrics.Path
		if p == "" || p[0] != '/' {
			return fmt.Errorf("metrics.path must start with '/'; got %q", p)
		}
		for _, reserved := range []string{HealthzPath, StatusPath} {
			if p == reserved || strings.HasPrefix(p, reserved+"/") {
				return fmt.Errorf("metrics.path %q conflicts with reserved route %q", p, reserved)
			}
		}
		if p != InternalPrefix && !strings.HasPrefix(p, InternalPrefix+"/") {
			return fmt.Errorf("metrics.path %q conflicts with routed traffic; it must live under %q", p, InternalPrefix)
		}
	}

	return nil
}

// Reserved internal endpoints.
const (
	HealthzPath        = InternalPrefix + "/healthz"
	StatusPath         = InternalPrefix + "/status"
	DefaultMetricsPath = InternalPrefix + "/metrics"
)

// setDefaults fills zero-valued fields with sensible defaults.
// For integer fields zero means "unset" because TOML cannot distinguish
// between an explicit 0 and an omitted key.
func (c *Config) setDefaults() {
	if c.Server.Host == "" {
		c.Server.Host = "0.0.0.0"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.BodyMaxBytes == 0 {
		c.Server.BodyMaxBytes = 32 * 1024 * 1024 // 32 MB
	}
	if c.Origins.PublicHost == "" {
		c.Origins.PublicHost = defaultPublicHost
	}
	if c.Routes.Static == nil {
		c.Routes.Static = append([]string(nil), defaultStaticRoutes...)
	}
	if c.Upstream.TimeoutSeconds == 0 {
		c.Upstream.TimeoutSeconds = 60
	}
	if c.Upstream.StaticTimeoutSeconds == 0 {
		c.Upstream.StaticTimeoutSeconds = 10
	}
	if c.Upstream.StaticMaxBytes == 0 {
		c.Upstream.StaticMaxBytes = 10 * 1024 * 1024 // 10 MB
	}
	if c.Upstream.IdleConnections == 0 {
		c.Upstream.IdleConnections = 100
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "json"
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = DefaultMetricsPath
	}
}

// findConfig returns the first config path that exists, or empty string.
func findConfig() string {
	return findConfigInPaths(configSearchPaths)
}

// findConfigInPaths returns the first path that exists on disk, or empty string.
func findConfigInPaths(paths []string) string {
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// Addr returns the server listen address as host:port.
func (c *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// WarnPermissions logs a warning if the config file is readable by group or others.
func (c *Config) WarnPermissions(logger *slog.Logger) {
	if c.filePath == "" {
		return
	}
	info, err := os.Stat(c.filePath)
	if err != nil {
		return
	}
	if perm := info.Mode().Perm(); perm&0o077 != 0 {
		logger.Warn("config file is readable by group/others; consider chmod 600",
			"path", c.filePath,
			"mode", fmt.Sprintf("%04o", perm),
		)
	}
}
