package config

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/teambition/rrule-go"
	"gopkg.in/yaml.v3"
)

// Config represents the overall application configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	Waitlist   WaitlistConfig   `yaml:"waitlist"`
	RoomStock  RoomStockConfig  `yaml:"room_stock"`
	Push       PushConfig       `yaml:"push"`
	WorkerPool WorkerPoolConfig `yaml:"worker_pool"`
	Log        LogConfig        `yaml:"log"`
	Tracing    TracingConfig    `yaml:"tracing"`
}

// ServerConfig holds the server-related configuration.
type ServerConfig struct {
	Port            int     `yaml:"port" validate:"min=0,max=65535"`
	RateLimitPerSec float64 `yaml:"rate_limit_per_sec" validate:"gte=0"`
	RateLimitBurst  int     `yaml:"rate_limit_burst" validate:"gte=0"`
	CacheTTLSeconds int     `yaml:"cache_ttl_seconds" validate:"gte=0"`
	DefaultActor    string  `yaml:"default_actor"`
}

// DatabaseConfig holds the database connection configuration.
type DatabaseConfig struct {
	Driver                 string `yaml:"driver" validate:"oneof=postgres sqlite"`
	DSN                    string `yaml:"dsn" validate:"required"`
	MaxOpenConns           int    `yaml:"max_open_conns" validate:"gte=0"`
	MaxIdleConns           int    `yaml:"max_idle_conns" validate:"gte=0"`
	ConnMaxLifetimeMinutes int    `yaml:"conn_max_lifetime_minutes" validate:"gte=0"`
	LogLevel               string `yaml:"log_level" validate:"omitempty,oneof=silent error warn info"`
}

// WaitlistConfig holds the priority policy and the recompute schedule.
type WaitlistConfig struct {
	BaseScore       int    `yaml:"base_score" validate:"gte=0,lte=100"`
	// SeniorThreshold nil means unset; 0 makes every occupant senior.
	SeniorThreshold *int   `yaml:"senior_threshold" validate:"omitempty,gte=0"`
	SeniorBonus     int    `yaml:"senior_bonus" validate:"gte=0,lte=100"`
	RecomputeRRule  string `yaml:"recompute_rrule"`
}

// RoomStockConfig holds the upstream room-stock feed configuration.
type RoomStockConfig struct {
	Enabled         bool             `yaml:"enabled"`
	IntervalSeconds int              `yaml:"interval_seconds"`
	Interval        time.Duration    `yaml:"-"` // Ignored by YAML parser
	HTTPProxy       string           `yaml:"http_proxy"`
	Request         RoomStockRequest `yaml:"request"`
}

// RoomStockRequest defines the HTTP request for the room-stock importer.
type RoomStockRequest struct {
	URL      string            `yaml:"url" validate:"omitempty,url"`
	Headers  map[string]string `yaml:"headers"`
	PageSize int               `yaml:"pageSize"`
	Payload  map[string]any    `yaml:"payload"`
}

// PushConfig holds the VAPID keys for web push notifications.
type PushConfig struct {
	Enabled    bool   `yaml:"enabled"`
	PublicKey  string `yaml:"vapid_public_key" validate:"required_if=Enabled true"`
	PrivateKey string `yaml:"vapid_private_key" validate:"required_if=Enabled true"`
	Subject    string `yaml:"subject"`
	TTL        int    `yaml:"ttl"`
}

// WorkerPoolConfig holds the configuration for the notification worker pool.
type WorkerPoolConfig struct {
	Size int `yaml:"size"`
}

// LogConfig selects the zap encoder and level.
type LogConfig struct {
	Format string `yaml:"format" validate:"omitempty,oneof=console json"`
	Level  string `yaml:"level" validate:"omitempty,oneof=debug info warn error"`
}

// TracingConfig toggles the stdout span exporter.
type TracingConfig struct {
	Enabled    bool   `yaml:"enabled"`
	OutputFile string `yaml:"output_file"`
}

var validate = validator.New()

// Load reads the configuration from the given path.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var cfg Config
	decoder := yaml.NewDecoder(f)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ApplyDefaults fills unset fields with their defaults.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.RateLimitPerSec == 0 {
		cfg.Server.RateLimitPerSec = 10
	}
	if cfg.Server.RateLimitBurst == 0 {
		cfg.Server.RateLimitBurst = 5
	}
	if cfg.Server.CacheTTLSeconds == 0 {
		cfg.Server.CacheTTLSeconds = 30
	}
	if cfg.Server.DefaultActor == "" {
		cfg.Server.DefaultActor = "system"
	}

	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "postgres"
	}
	if cfg.Database.LogLevel == "" {
		cfg.Database.LogLevel = "warn"
	}

	if cfg.Waitlist.BaseScore == 0 {
		cfg.Waitlist.BaseScore = 10
	}
	if cfg.Waitlist.SeniorBonus == 0 {
		cfg.Waitlist.SeniorBonus = 5
	}
	if cfg.Waitlist.SeniorThreshold == nil {
		threshold := 3
		cfg.Waitlist.SeniorThreshold = &threshold
	}
	if cfg.Waitlist.RecomputeRRule == "" {
		cfg.Waitlist.RecomputeRRule = "FREQ=DAILY;BYHOUR=3;BYMINUTE=0;BYSECOND=0"
	}

	if cfg.RoomStock.IntervalSeconds <= 0 {
		cfg.RoomStock.IntervalSeconds = 3600
	}
	cfg.RoomStock.Interval = time.Duration(cfg.RoomStock.IntervalSeconds) * time.Second
	if cfg.RoomStock.Request.PageSize <= 0 {
		cfg.RoomStock.Request.PageSize = 100
	}

	if cfg.Push.TTL <= 0 {
		cfg.Push.TTL = 3600
	}
	if cfg.WorkerPool.Size <= 0 {
		cfg.WorkerPool.Size = 1
	}

	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
}

// Validate runs struct validation and checks the recompute rrule syntax.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	if _, err := rrule.StrToRRule(cfg.Waitlist.RecomputeRRule); err != nil {
		return fmt.Errorf("invalid waitlist.recompute_rrule: %w", err)
	}
	return nil
}
