package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	App struct {
		// dev | prod
		Env     string `yaml:"app_env"`
		Name    string `yaml:"name"`
		Version string `yaml:"version"`
	} `yaml:"app"`

	Log struct {
		Level string `yaml:"level"` // debug | info | warn | error
	} `yaml:"log"`

	Server struct {
		Addr            string `yaml:"addr"`
		ShutdownTimeout string `yaml:"shutdown_timeout"`
		// TrustProxy: usar X-Forwarded-For como IP del cliente (rate limit).
		TrustProxy bool `yaml:"trust_proxy"`
	} `yaml:"server"`

	OpenID struct {
		DiscoveryURL string `yaml:"discovery_url"`
		Freshness    string `yaml:"freshness"` // default 120h (5 días)
		Timeout      string `yaml:"timeout"`   // por hop, default 5s
		WarmUp       bool   `yaml:"warm_up"`   // refresh al arrancar serve
	} `yaml:"openid"`

	Metrics struct {
		Enabled bool `yaml:"enabled"`
	} `yaml:"metrics"`

	// RateLimit acota POST /v1/refresh por IP (cada refresh pega al IdP).
	RateLimit struct {
		RefreshMax    int    `yaml:"refresh_max"`    // 0 = sin límite
		RefreshWindow string `yaml:"refresh_window"` // default 1m
	} `yaml:"rate_limit"`
}

// Load lee config YAML desde path (vacío = solo env), aplica defaults,
// overrides por env y valida.
func Load(path string) (*Config, error) {
	var c Config
	if strings.TrimSpace(path) != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(b, &c); err != nil {
			return nil, fmt.Errorf("config: %s: %w", path, err)
		}
	} else {
		// sin archivo: métricas on por default
		c.Metrics.Enabled = true
	}

	c.applyEnvOverrides()
	c.applyDefaults()

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Config) applyDefaults() {
	if c.App.Env == "" {
		c.App.Env = "dev"
	}
	if c.App.Name == "" {
		c.App.Name = "keyresolver"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Server.ShutdownTimeout == "" {
		c.Server.ShutdownTimeout = "10s"
	}
	if c.OpenID.Freshness == "" {
		c.OpenID.Freshness = "120h"
	}
	if c.OpenID.Timeout == "" {
		c.OpenID.Timeout = "5s"
	}
	if c.RateLimit.RefreshWindow == "" {
		c.RateLimit.RefreshWindow = "1m"
	}
}

// Validate chequea URL de discovery y duraciones.
func (c *Config) Validate() error {
	raw := strings.TrimSpace(c.OpenID.DiscoveryURL)
	if raw == "" {
		return errors.New("config: openid.discovery_url is required")
	}
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("config: openid.discovery_url %q is not an absolute http(s) url", raw)
	}
	for name, v := range map[string]string{
		"openid.freshness":          c.OpenID.Freshness,
		"openid.timeout":            c.OpenID.Timeout,
		"server.shutdown_timeout":   c.Server.ShutdownTimeout,
		"rate_limit.refresh_window": c.RateLimit.RefreshWindow,
	} {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("config: %s: %w", name, err)
		}
		if d <= 0 {
			return fmt.Errorf("config: %s must be positive", name)
		}
	}
	if c.RateLimit.RefreshMax < 0 {
		return errors.New("config: rate_limit.refresh_max must be >= 0")
	}
	return nil
}

// Freshness ya validada por Load.
func (c *Config) Freshness() time.Duration { return mustDur(c.OpenID.Freshness) }

// Timeout por hop, ya validado por Load.
func (c *Config) Timeout() time.Duration { return mustDur(c.OpenID.Timeout) }

func (c *Config) ShutdownTimeout() time.Duration { return mustDur(c.Server.ShutdownTimeout) }

func (c *Config) RefreshWindow() time.Duration { return mustDur(c.RateLimit.RefreshWindow) }

func mustDur(s string) time.Duration {
	d, _ := time.ParseDuration(s)
	return d
}

// ---- Helpers env ----

func getEnvStr(key string) (string, bool) {
	v := strings.TrimSpace(os.Getenv(key))
	return v, v != ""
}

func getEnvBool(key string) (bool, bool) {
	if s, ok := getEnvStr(key); ok {
		if b, err := strconv.ParseBool(s); err == nil {
			return b, true
		}
	}
	return false, false
}

// applyEnvOverrides: pisa config.yaml con variables de entorno.
func (c *Config) applyEnvOverrides() {
	if v, ok := getEnvStr("APP_ENV"); ok {
		c.App.Env = strings.ToLower(v)
	}
	if v, ok := getEnvStr("LOG_LEVEL"); ok {
		c.Log.Level = v
	}
	if v, ok := getEnvStr("SERVER_ADDR"); ok {
		c.Server.Addr = v
	}
	if v, ok := getEnvBool("SERVER_TRUST_PROXY"); ok {
		c.Server.TrustProxy = v
	}
	if v, ok := getEnvStr("OPENID_DISCOVERY_URL"); ok {
		c.OpenID.DiscoveryURL = v
	}
	if v, ok := getEnvStr("OPENID_FRESHNESS"); ok {
		c.OpenID.Freshness = v
	}
	if v, ok := getEnvStr("OPENID_TIMEOUT"); ok {
		c.OpenID.Timeout = v
	}
	if v, ok := getEnvBool("OPENID_WARM_UP"); ok {
		c.OpenID.WarmUp = v
	}
	if v, ok := getEnvBool("METRICS_ENABLED"); ok {
		c.Metrics.Enabled = v
	}
	if v, ok := getEnvStr("RATE_REFRESH_MAX"); ok {
		if n, err := strconv.Atoi(v); err == nil {
			c.RateLimit.RefreshMax = n
		}
	}
	if v, ok := getEnvStr("RATE_REFRESH_WINDOW"); ok {
		c.RateLimit.RefreshWindow = v
	}
}
