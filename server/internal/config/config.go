package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/Microgramix/Motoristas.ranking/pkg/types"
	"github.com/Microgramix/Motoristas.ranking/server/internal/correction"
	"github.com/Microgramix/Motoristas.ranking/server/internal/ranking"
)

// Default values applied when fields are absent from the config file.
const (
	DefaultHTTPPort        = 8080
	DefaultReadTimeout     = 10 * time.Second
	DefaultWriteTimeout    = 15 * time.Second
	DefaultRefreshInterval = time.Minute
	DefaultSourceTimeout   = 10 * time.Second
	DefaultTimezone        = "Europe/Lisbon"
	DefaultServiceName     = "motoristas-ranking"

	DefaultBreakerMaxRequests  = 1
	DefaultBreakerInterval     = time.Minute
	DefaultBreakerTimeout      = 30 * time.Second
	DefaultBreakerMinRequests  = 3
	DefaultBreakerFailureRatio = 0.6
)

// Config is the top-level server configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Source    SourceConfig    `yaml:"source"`
	Ranking   RankingConfig   `yaml:"ranking"`
	Breaker   BreakerConfig   `yaml:"breaker"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Log       LogConfig       `yaml:"log"`
}

// ServerConfig holds the HTTP listener settings.
type ServerConfig struct {
	HTTPPort     int           `yaml:"http_port"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// RefreshInterval is how often the current selection is recomputed from
	// the source. Zero disables periodic refresh.
	RefreshInterval time.Duration `yaml:"refresh_interval"`
}

// SourceConfig describes the external store holding team documents.
type SourceConfig struct {
	// Type is one of: file | http | sqlite.
	Type string `yaml:"type"`

	// Path is the JSON or YAML document read by the file source.
	Path string `yaml:"path"`

	// Endpoint is the URL fetched by the http source.
	Endpoint string `yaml:"endpoint"`

	// DSN is the modernc.org/sqlite data source name for the sqlite source.
	DSN string `yaml:"dsn"`

	// Timeout bounds a single fetch.
	Timeout time.Duration `yaml:"timeout"`

	Auth AuthConfig `yaml:"auth"`
	TLS  TLSConfig  `yaml:"tls"`
}

// AuthConfig specifies how the http source authenticates to the store.
type AuthConfig struct {
	// Mode is one of: mtls | apikey | bearer | basic | none.
	Mode string `yaml:"mode"`

	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
	CAFile   string `yaml:"ca_file"`

	// Header carries the API key; defaults to X-API-Key.
	Header string `yaml:"header"`
	KeyEnv string `yaml:"key_env"`

	TokenEnv string `yaml:"token_env"`

	Username    string `yaml:"username"`
	PasswordEnv string `yaml:"password_env"`
}

// Key returns the API key resolved from the environment.
func (a AuthConfig) Key() string { return lookup(a.KeyEnv) }

// Token returns the bearer token resolved from the environment.
func (a AuthConfig) Token() string { return lookup(a.TokenEnv) }

// Password returns the basic-auth password resolved from the environment.
func (a AuthConfig) Password() string { return lookup(a.PasswordEnv) }

func lookup(name string) string {
	if name == "" {
		return ""
	}
	return os.Getenv(name)
}

// TLSConfig holds TLS dial options for the http source.
type TLSConfig struct {
	InsecureSkipVerify bool `yaml:"insecure_skip_verify"`
}

// RankingConfig shapes every leaderboard the server builds.
type RankingConfig struct {
	// Timezone decides which calendar day "today" is.
	Timezone     string             `yaml:"timezone"`
	HighlightTop int                `yaml:"highlight_top"`
	Goals        types.Goals        `yaml:"goals"`
	Corrections  []correction.Entry `yaml:"corrections"`
	Level        ranking.LevelScale `yaml:"level"`
}

// Location returns the configured time zone.
func (r RankingConfig) Location() (*time.Location, error) {
	return time.LoadLocation(r.Timezone)
}

// CorrectionTable builds the score correction table.
func (r RankingConfig) CorrectionTable() (*correction.Table, error) {
	return correction.New(r.Corrections)
}

// Options converts the section into aggregation options using rule as the
// correction rule.
func (r RankingConfig) Options(rule correction.Rule) ranking.Options {
	return ranking.Options{
		Rule:         rule,
		Goals:        r.Goals,
		HighlightTop: r.HighlightTop,
		Levels:       r.Level,
	}
}

// BreakerConfig maps onto gobreaker.Settings.
type BreakerConfig struct {
	MaxRequests  uint32        `yaml:"max_requests"`
	Interval     time.Duration `yaml:"interval"`
	Timeout      time.Duration `yaml:"timeout"`
	MinRequests  uint32        `yaml:"min_requests"`
	FailureRatio float64       `yaml:"failure_ratio"`
}

// TelemetryConfig enables OTLP/HTTP trace export when OTLPEndpoint is set.
type TelemetryConfig struct {
	OTLPEndpoint string `yaml:"otlp_endpoint"`
	ServiceName  string `yaml:"service_name"`
}

// LogConfig selects the slog level: debug | info | warn | error.
type LogConfig struct {
	Level string `yaml:"level"`
}

// SlogLevel parses Level, falling back to info.
func (l LogConfig) SlogLevel() slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(l.Level)); err != nil {
		return slog.LevelInfo
	}
	return lvl
}

// overrides lists the environment variables that take precedence over the
// file. Unset variables leave the file value alone.
type overrides struct {
	HTTPPort       *int           `env:"RANKING_HTTP_PORT"`
	Refresh        *time.Duration `env:"RANKING_REFRESH_INTERVAL"`
	SourceType     *string        `env:"RANKING_SOURCE_TYPE"`
	SourcePath     *string        `env:"RANKING_SOURCE_PATH"`
	SourceEndpoint *string        `env:"RANKING_SOURCE_ENDPOINT"`
	SourceDSN      *string        `env:"RANKING_SOURCE_DSN"`
	Timezone       *string        `env:"RANKING_TIMEZONE"`
	HighlightTop   *int           `env:"RANKING_HIGHLIGHT_TOP"`
	OTLPEndpoint   *string        `env:"RANKING_OTLP_ENDPOINT"`
	LogLevel       *string        `env:"RANKING_LOG_LEVEL"`
}

// Load reads the config file at path. Defaults are applied first, then the
// file, then RANKING_* environment overrides; the result is validated.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %q: %w", path, err)
	}

	cfg := defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse yaml: %w", err)
	}
	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

func applyEnv(cfg *Config) error {
	var o overrides
	if err := env.Parse(&o); err != nil {
		return fmt.Errorf("config: parse env: %w", err)
	}
	set(&cfg.Server.HTTPPort, o.HTTPPort)
	set(&cfg.Server.RefreshInterval, o.Refresh)
	set(&cfg.Source.Type, o.SourceType)
	set(&cfg.Source.Path, o.SourcePath)
	set(&cfg.Source.Endpoint, o.SourceEndpoint)
	set(&cfg.Source.DSN, o.SourceDSN)
	set(&cfg.Ranking.Timezone, o.Timezone)
	set(&cfg.Ranking.HighlightTop, o.HighlightTop)
	set(&cfg.Telemetry.OTLPEndpoint, o.OTLPEndpoint)
	set(&cfg.Log.Level, o.LogLevel)
	return nil
}

func set[T any](dst *T, v *T) {
	if v != nil {
		*dst = *v
	}
}

// Default returns the configuration used when no file is given. Its source
// section is incomplete and must be filled in before use.
func Default() *Config { return defaults() }

func defaults() *Config {
	return &Config{
		Server: ServerConfig{
			HTTPPort:        DefaultHTTPPort,
			ReadTimeout:     DefaultReadTimeout,
			WriteTimeout:    DefaultWriteTimeout,
			RefreshInterval: DefaultRefreshInterval,
		},
		Source: SourceConfig{
			Type:    "file",
			Timeout: DefaultSourceTimeout,
		},
		Ranking: RankingConfig{
			Timezone:     DefaultTimezone,
			HighlightTop: types.DefaultHighlightTop,
			Goals:        types.DefaultGoals(),
			Level:        ranking.DefaultLevelScale(),
		},
		Breaker: BreakerConfig{
			MaxRequests:  DefaultBreakerMaxRequests,
			Interval:     DefaultBreakerInterval,
			Timeout:      DefaultBreakerTimeout,
			MinRequests:  DefaultBreakerMinRequests,
			FailureRatio: DefaultBreakerFailureRatio,
		},
		Telemetry: TelemetryConfig{ServiceName: DefaultServiceName},
		Log:       LogConfig{Level: "info"},
	}
}

func validate(cfg *Config) error {
	if cfg.Server.HTTPPort <= 0 || cfg.Server.HTTPPort > 65535 {
		return fmt.Errorf("server.http_port %d is out of range [1, 65535]", cfg.Server.HTTPPort)
	}
	if cfg.Server.RefreshInterval < 0 {
		return fmt.Errorf("server.refresh_interval must not be negative")
	}

	src := cfg.Source
	switch strings.ToLower(src.Type) {
	case "file":
		if src.Path == "" {
			return fmt.Errorf("source.path is required for type file")
		}
	case "http":
		if src.Endpoint == "" {
			return fmt.Errorf("source.endpoint is required for type http")
		}
	case "sqlite":
		if src.DSN == "" {
			return fmt.Errorf("source.dsn is required for type sqlite")
		}
	default:
		return fmt.Errorf("source.type %q unknown: want file|http|sqlite", src.Type)
	}
	if src.Timeout <= 0 {
		return fmt.Errorf("source.timeout must be positive")
	}
	switch src.Auth.Mode {
	case "", "none", "apikey", "bearer", "basic":
	case "mtls":
		if src.Auth.CertFile == "" || src.Auth.KeyFile == "" {
			return fmt.Errorf("source.auth: mtls requires cert_file and key_file")
		}
	default:
		return fmt.Errorf("source.auth.mode %q unknown: want mtls|apikey|bearer|basic|none", src.Auth.Mode)
	}

	r := cfg.Ranking
	if _, err := r.Location(); err != nil {
		return fmt.Errorf("ranking.timezone: %w", err)
	}
	if r.HighlightTop <= 0 {
		return fmt.Errorf("ranking.highlight_top must be positive")
	}
	if r.Goals.Daily <= 0 || r.Goals.Weekly <= 0 || r.Goals.Monthly <= 0 {
		return fmt.Errorf("ranking.goals must all be positive")
	}
	if r.Level.XPPerDelivery <= 0 || r.Level.BaseXP <= 0 {
		return fmt.Errorf("ranking.level: xp_per_delivery and base_xp must be positive")
	}
	if _, err := r.CorrectionTable(); err != nil {
		return fmt.Errorf("ranking.corrections: %w", err)
	}

	b := cfg.Breaker
	if b.FailureRatio <= 0 || b.FailureRatio > 1 {
		return fmt.Errorf("breaker.failure_ratio %v must be in (0, 1]", b.FailureRatio)
	}
	if b.Timeout <= 0 {
		return fmt.Errorf("breaker.timeout must be positive")
	}
	return nil
}
