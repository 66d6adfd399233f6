package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/joelkehle/offerdraft/internal/offer"
	"github.com/joelkehle/offerdraft/internal/render"
	"github.com/joelkehle/offerdraft/internal/telemetry"
)

const (
	ProviderAnthropic = "anthropic"
	ProviderGemini    = "gemini"

	CacheMemory = "memory"
	CacheRedis  = "redis"
)

type Config struct {
	Server    ServerConfig     `yaml:"server"`
	Oracle    OracleConfig     `yaml:"oracle"`
	Render    RenderConfig     `yaml:"render"`
	Brand     render.Brand     `yaml:"brand"`
	Cache     CacheConfig      `yaml:"cache"`
	Ledger    LedgerConfig     `yaml:"ledger"`
	Telemetry telemetry.Config `yaml:"telemetry"`
	Logging   LoggingConfig    `yaml:"logging"`
}

type ServerConfig struct {
	Addr   string `yaml:"addr"`
	WebDir string `yaml:"web_dir"`
	// RateLimit is the number of requests a client may make to each of the
	// generate and export routes per RateWindow. Zero disables limiting.
	RateLimit  int           `yaml:"rate_limit"`
	RateWindow time.Duration `yaml:"rate_window"`
}

type OracleConfig struct {
	Provider        string        `yaml:"provider"`
	Model           string        `yaml:"model"`
	AnthropicAPIKey string        `yaml:"anthropic_api_key"`
	GeminiAPIKey    string        `yaml:"gemini_api_key"`
	MaxTokens       int           `yaml:"max_tokens"`
	Temperature     float64       `yaml:"temperature"`
	Timeout         time.Duration `yaml:"timeout"`
	MaxRetries      int           `yaml:"max_retries"`
}

// APIKey returns the credential for the selected provider.
func (o OracleConfig) APIKey() string {
	if o.Provider == ProviderGemini {
		return o.GeminiAPIKey
	}
	return o.AnthropicAPIKey
}

type RenderConfig struct {
	ChromePath   string        `yaml:"chrome_path"`
	PrintTimeout time.Duration `yaml:"print_timeout"`
	PDFLimits    render.Limits `yaml:"pdf_limits"`
	ScreenLimits render.Limits `yaml:"screen_limits"`
}

type CacheConfig struct {
	Enabled       bool          `yaml:"enabled"`
	Backend       string        `yaml:"backend"`
	RedisAddr     string        `yaml:"redis_addr"`
	RedisPassword string        `yaml:"redis_password"`
	RedisDB       int           `yaml:"redis_db"`
	TTL           time.Duration `yaml:"ttl"`
}

type LedgerConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

type LoggingConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:       ":8080",
			WebDir:     "web",
			RateLimit:  10,
			RateWindow: time.Minute,
		},
		Oracle: OracleConfig{
			Provider:    ProviderAnthropic,
			MaxTokens:   offer.DefaultMaxTokens,
			Temperature: offer.DefaultTemperature,
			Timeout:     offer.DefaultTimeout,
			MaxRetries:  offer.DefaultMaxRetries,
		},
		Render: RenderConfig{
			PrintTimeout: 30 * time.Second,
			PDFLimits:    render.DefaultPDFLimits,
		},
		Brand: render.Brand{CompanyName: "Offer Draft"},
		Cache: CacheConfig{
			Backend: CacheMemory,
			TTL:     24 * time.Hour,
		},
		Ledger:    LedgerConfig{Path: "offerdraft.db"},
		Telemetry: telemetry.Config{ServiceName: "offerdraft", SampleRatio: 1},
		Logging:   LoggingConfig{Level: "info"},
	}
}

// Load reads path over the defaults and applies environment overrides. A
// missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config: %w", err)
			}
		case !os.IsNotExist(err):
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}
	cfg.applyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnvOverrides() {
	if port := strings.TrimSpace(os.Getenv("PORT")); port != "" {
		c.Server.Addr = ":" + port
	}
	if key := os.Getenv("ANTHROPIC_API_KEY"); key != "" {
		c.Oracle.AnthropicAPIKey = key
	}
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		c.Oracle.GeminiAPIKey = key
		if c.Oracle.AnthropicAPIKey == "" {
			c.Oracle.Provider = ProviderGemini
		}
	}
	if p := strings.TrimSpace(os.Getenv("OFFERDRAFT_PROVIDER")); p != "" {
		c.Oracle.Provider = strings.ToLower(p)
	}
	if m := strings.TrimSpace(os.Getenv("OFFERDRAFT_MODEL")); m != "" {
		c.Oracle.Model = m
	}
	if addr := strings.TrimSpace(os.Getenv("REDIS_ADDR")); addr != "" {
		c.Cache.Enabled = true
		c.Cache.Backend = CacheRedis
		c.Cache.RedisAddr = addr
	}
	if path := strings.TrimSpace(os.Getenv("OFFERDRAFT_DB")); path != "" {
		c.Ledger.Enabled = true
		c.Ledger.Path = path
	}
	if ep := strings.TrimSpace(os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")); ep != "" {
		c.Telemetry.Endpoint = ep
	}
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	switch c.Oracle.Provider {
	case ProviderAnthropic, ProviderGemini:
	default:
		return fmt.Errorf("oracle.provider: unsupported provider %q", c.Oracle.Provider)
	}
	if c.Oracle.Timeout <= 0 {
		return fmt.Errorf("oracle.timeout: must be positive")
	}
	if c.Oracle.MaxRetries < 0 || c.Oracle.MaxRetries > 5 {
		return fmt.Errorf("oracle.max_retries: must be between 0 and 5, got %d", c.Oracle.MaxRetries)
	}
	if c.Oracle.Temperature < 0 || c.Oracle.Temperature > 1 {
		return fmt.Errorf("oracle.temperature: must be between 0 and 1, got %s", strconv.FormatFloat(c.Oracle.Temperature, 'f', -1, 64))
	}
	if c.Oracle.MaxTokens <= 0 {
		return fmt.Errorf("oracle.max_tokens: must be positive")
	}
	if c.Server.RateLimit < 0 {
		return fmt.Errorf("server.rate_limit: must not be negative")
	}
	if c.Server.RateLimit > 0 && c.Server.RateWindow <= 0 {
		return fmt.Errorf("server.rate_window: must be positive when rate_limit is set")
	}
	for name, l := range map[string]render.Limits{"render.pdf_limits": c.Render.PDFLimits, "render.screen_limits": c.Render.ScreenLimits} {
		if l.MaxScriptLines < 0 || l.MaxScriptChars < 0 {
			return fmt.Errorf("%s: limits must not be negative", name)
		}
	}
	if c.Cache.Enabled {
		switch c.Cache.Backend {
		case CacheMemory:
		case CacheRedis:
			if c.Cache.RedisAddr == "" {
				return fmt.Errorf("cache.redis_addr: required for the redis backend")
			}
		default:
			return fmt.Errorf("cache.backend: unsupported backend %q", c.Cache.Backend)
		}
	}
	if c.Ledger.Enabled && strings.TrimSpace(c.Ledger.Path) == "" {
		return fmt.Errorf("ledger.path: required when the ledger is enabled")
	}
	if c.Telemetry.SampleRatio < 0 || c.Telemetry.SampleRatio > 1 {
		return fmt.Errorf("telemetry.sample_ratio: must be between 0 and 1")
	}
	return nil
}

// AdapterConfig maps the oracle settings onto the retrying adapter.
func (c *Config) AdapterConfig() offer.AdapterConfig {
	return offer.AdapterConfig{MaxRetries: c.Oracle.MaxRetries, Timeout: c.Oracle.Timeout}
}

// ProviderConfig maps the oracle settings onto a provider.
func (c *Config) ProviderConfig() offer.OracleConfig {
	return offer.OracleConfig{
		APIKey:      c.Oracle.APIKey(),
		Model:       c.Oracle.Model,
		MaxTokens:   c.Oracle.MaxTokens,
		Temperature: c.Oracle.Temperature,
	}
}

// RenderEngineConfig maps render and brand settings onto the render engine.
func (c *Config) RenderEngineConfig() render.Config {
	return render.Config{
		Brand:        c.Brand,
		PDFLimits:    c.Render.PDFLimits,
		ScreenLimits: c.Render.ScreenLimits,
	}
}
