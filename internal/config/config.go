package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const (
	// CredentialKey is the one environment key the bearer credential is read from.
	CredentialKey = "POKE_PRICE_API_KEY"

	EnvPrefix = "PRICEDASH"

	DefaultBaseURL  = "https://www.pokemonpricetracker.com/api"
	DefaultUpstream = "https://www.pokemonpricetracker.com"
	DefaultAddress  = "127.0.0.1:5173"
	DefaultLimit    = 500
)

// CredentialProvider resolves the API credential at the moment a request is built.
type CredentialProvider interface {
	Credential() string
}

// StaticCredentials is a fixed credential, mostly for tests.
type StaticCredentials string

func (s StaticCredentials) Credential() string { return string(s) }

// ViperCredentials reads api.key from viper on every call so that a
// late-loaded .env or config file is still honored.
type ViperCredentials struct {
	v *viper.Viper
}

func NewViperCredentials(v *viper.Viper) ViperCredentials {
	return ViperCredentials{v: v}
}

func (c ViperCredentials) Credential() string {
	if c.v == nil {
		return ""
	}
	return c.v.GetString("api.key")
}

type Config struct {
	API     APIConfig     `yaml:"api"`
	Server  ServerConfig  `yaml:"server"`
	Proxy   ProxyConfig   `yaml:"proxy"`
	Refresh RefreshConfig `yaml:"refresh"`
	Logging LoggingConfig `yaml:"logging"`
}

type APIConfig struct {
	BaseURL string `yaml:"base_url"`
	Limit   int    `yaml:"limit"`
	// Zero means the http.Client default (no timeout).
	Timeout time.Duration `yaml:"timeout"`
	// ViaProxy routes acquisition through the local /api proxy instead of BaseURL.
	ViaProxy bool `yaml:"via_proxy"`
}

type ServerConfig struct {
	Address string `yaml:"address"`
}

type ProxyConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Upstream string `yaml:"upstream"`
	// Requests per second forwarded upstream; zero disables limiting.
	RateLimit float64 `yaml:"rate_limit"`
	Burst     int     `yaml:"burst"`
}

type RefreshConfig struct {
	// Cron expression; empty means the view is mounted once at startup.
	Schedule string `yaml:"schedule"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	File   string `yaml:"file"`
}

// YAML renders the effective configuration in the same layout config.yaml
// uses. The credential is never part of a Config, so nothing is redacted.
func (c *Config) YAML() ([]byte, error) {
	out, err := yaml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}
	return out, nil
}

// New returns a viper instance with defaults and environment bindings applied.
func New() *viper.Viper {
	v := viper.New()
	SetDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("api.key", CredentialKey)
	_ = v.BindEnv("logging.level", EnvPrefix+"_LOGGING_LEVEL", "LOG_LEVEL")
	return v
}

func SetDefaults(v *viper.Viper) {
	v.SetDefault("api.base_url", DefaultBaseURL)
	v.SetDefault("api.limit", DefaultLimit)
	v.SetDefault("api.timeout", time.Duration(0))
	v.SetDefault("api.via_proxy", false)
	v.SetDefault("server.address", DefaultAddress)
	v.SetDefault("proxy.enabled", true)
	v.SetDefault("proxy.upstream", DefaultUpstream)
	v.SetDefault("proxy.rate_limit", 0.0)
	v.SetDefault("proxy.burst", 5)
	v.SetDefault("refresh.schedule", "")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
	v.SetDefault("logging.file", "")
}

// LoadDotEnv loads .env files into the process environment. Missing files are
// not an error; existing variables are never overridden.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if _, err := os.Stat(p); errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return fmt.Errorf("load %s: %w", p, err)
		}
	}
	return nil
}

// ReadFile reads a YAML config file into v. An empty path searches the
// working directory and $HOME/.config/pricedash for config.yaml.
func ReadFile(v *viper.Viper, path string) error {
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(home + "/.config/pricedash")
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

// FromViper builds a Config snapshot. The credential is deliberately not part
// of it; use NewViperCredentials so it is resolved at request time.
func FromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		API: APIConfig{
			BaseURL:  strings.TrimRight(v.GetString("api.base_url"), "/"),
			Limit:    v.GetInt("api.limit"),
			Timeout:  v.GetDuration("api.timeout"),
			ViaProxy: v.GetBool("api.via_proxy"),
		},
		Server: ServerConfig{
			Address: v.GetString("server.address"),
		},
		Proxy: ProxyConfig{
			Enabled:   v.GetBool("proxy.enabled"),
			Upstream:  strings.TrimRight(v.GetString("proxy.upstream"), "/"),
			RateLimit: v.GetFloat64("proxy.rate_limit"),
			Burst:     v.GetInt("proxy.burst"),
		},
		Refresh: RefreshConfig{
			Schedule: strings.TrimSpace(v.GetString("refresh.schedule")),
		},
		Logging: LoggingConfig{
			Level:  v.GetString("logging.level"),
			Format: v.GetString("logging.format"),
			File:   v.GetString("logging.file"),
		},
	}

	if cfg.API.Limit <= 0 {
		cfg.API.Limit = DefaultLimit
	}
	if cfg.API.BaseURL == "" {
		cfg.API.BaseURL = DefaultBaseURL
	}
	if cfg.Server.Address == "" {
		cfg.Server.Address = DefaultAddress
	}
	if cfg.Proxy.RateLimit < 0 {
		return nil, fmt.Errorf("proxy.rate_limit must not be negative, got %v", cfg.Proxy.RateLimit)
	}
	if cfg.Proxy.Burst <= 0 {
		cfg.Proxy.Burst = 1
	}
	return cfg, nil
}
