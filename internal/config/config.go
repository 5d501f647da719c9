package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

const (
	DefaultListen          = ":8080"
	DefaultTokenTTL        = 24 * time.Hour
	DefaultInterval        = 3 * time.Second
	DefaultWindow          = 24
	DefaultEndpoint        = "https://generativelanguage.googleapis.com"
	DefaultModel           = "gemini-3-flash-preview"
	DefaultAnalysisTimeout = 60 * time.Second
	DefaultLogLevel        = "info"
	DefaultLogFormat       = "json"
	DefaultLogCapacity     = 50
	DefaultSTUNServer      = "stun.l.google.com:19302"

	EnvAPIKey   = "API_KEY"
	EnvLogLevel = "LOG_LEVEL"
)

// Config holds every setting of the platform process.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Simulation SimulationConfig `yaml:"simulation"`
	Analysis   AnalysisConfig   `yaml:"analysis"`
	Log        LogConfig        `yaml:"log"`
	Doctor     DoctorConfig     `yaml:"doctor"`
}

// ServerConfig is used by `serve`.
type ServerConfig struct {
	Listen      string        `yaml:"listen" validate:"required"`
	CORSOrigins []string      `yaml:"cors_origins"`
	AuthSecret  string        `yaml:"auth_secret" validate:"omitempty,min=16"`
	TokenTTL    time.Duration `yaml:"token_ttl" validate:"gt=0"`
	PublishAddr string        `yaml:"publish_addr"`
}

// SimulationConfig tunes the synthetic generator.
type SimulationConfig struct {
	Interval    time.Duration `yaml:"interval" validate:"gt=0"`
	Window      int           `yaml:"window" validate:"min=1,max=1440"`
	Seed        int64         `yaml:"seed"`
	DriftAll    bool          `yaml:"drift_all"`
	CatalogPath string        `yaml:"catalog_path"`
}

// AnalysisConfig configures the outbound text-generation call. The key is
// only ever read from the environment.
type AnalysisConfig struct {
	Endpoint       string        `yaml:"endpoint" validate:"required,url"`
	Model          string        `yaml:"model" validate:"required"`
	Timeout        time.Duration `yaml:"timeout" validate:"gt=0"`
	ThinkingBudget int           `yaml:"thinking_budget" validate:"gte=-1"`
	APIKey         string        `yaml:"-"`
}

// LogConfig covers both the process logger and the dashboard event log.
type LogConfig struct {
	Level    string `yaml:"level" validate:"oneof=debug info warn error"`
	Format   string `yaml:"format" validate:"oneof=json console"`
	Capacity int    `yaml:"capacity" validate:"min=1"`
}

// DoctorConfig configures egress diagnostics.
type DoctorConfig struct {
	STUNServers []string `yaml:"stun_servers"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("yaml"), ",", 2)[0]
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})
	return v
}

// Default returns a fully defaulted config.
func Default() Config {
	var cfg Config
	ApplyDefaults(&cfg)
	return cfg
}

// Load reads and parses a YAML config file. An empty path yields the
// defaults. Environment overrides are applied in both cases.
func Load(path string) (Config, error) {
	var cfg Config
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, err
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse %s: %w", path, err)
		}
	}

	ApplyDefaults(&cfg)
	ApplyEnv(&cfg, os.Getenv)
	return cfg, nil
}

// Save writes a YAML config file to disk.
func Save(path string, cfg Config) error {
	ApplyDefaults(&cfg)
	data, err := yaml.Marshal(&cfg)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	return os.WriteFile(path, data, 0o600)
}

// ApplyEnv overlays API_KEY and LOG_LEVEL.
func ApplyEnv(cfg *Config, getenv func(string) string) {
	cfg.Analysis.APIKey = getenv(EnvAPIKey)
	if lvl := strings.TrimSpace(getenv(EnvLogLevel)); lvl != "" {
		cfg.Log.Level = strings.ToLower(lvl)
	}
}

// Validate checks field constraints and reports every failing field.
func Validate(cfg Config) error {
	err := validate.Struct(cfg)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fmt.Sprintf("%s: %s", strings.TrimPrefix(fe.Namespace(), "Config."), fe.Tag()))
	}
	sort.Strings(fields)
	return fmt.Errorf("invalid config: %s", strings.Join(fields, "; "))
}

// ApplyDefaults fills in default values when empty.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Listen == "" {
		cfg.Server.Listen = DefaultListen
	}
	if cfg.Server.TokenTTL == 0 {
		cfg.Server.TokenTTL = DefaultTokenTTL
	}

	if cfg.Simulation.Interval == 0 {
		cfg.Simulation.Interval = DefaultInterval
	}
	if cfg.Simulation.Window == 0 {
		cfg.Simulation.Window = DefaultWindow
	}

	if cfg.Analysis.Endpoint == "" {
		cfg.Analysis.Endpoint = DefaultEndpoint
	}
	if cfg.Analysis.Model == "" {
		cfg.Analysis.Model = DefaultModel
	}
	if cfg.Analysis.Timeout == 0 {
		cfg.Analysis.Timeout = DefaultAnalysisTimeout
	}

	if cfg.Log.Level == "" {
		cfg.Log.Level = DefaultLogLevel
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = DefaultLogFormat
	}
	if cfg.Log.Capacity == 0 {
		cfg.Log.Capacity = DefaultLogCapacity
	}

	if len(cfg.Doctor.STUNServers) == 0 {
		cfg.Doctor.STUNServers = []string{DefaultSTUNServer}
	}
}
