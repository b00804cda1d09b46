// Package config loads runtime settings.
//
// Load order:
//  1. .env files (godotenv never overrides variables that are already set)
//  2. the config file, YAML or JSON by extension
//  3. FRAMECORE_* environment overrides
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/containerd/errdefs"
	"github.com/joho/godotenv"
)

// Env keys read by Load.
const (
	EnvLogLevel    = "FRAMECORE_LOG_LEVEL"
	EnvLogFormat   = "FRAMECORE_LOG_FORMAT"
	EnvTickRate    = "FRAMECORE_TICK_RATE"
	EnvUpdateMode  = "FRAMECORE_UPDATE_MODE"
	EnvFaultPolicy = "FRAMECORE_FAULT_POLICY"
	EnvVSync       = "FRAMECORE_DISABLE_VSYNC"
	EnvMetricsAddr = "FRAMECORE_METRICS_ADDR"
)

// ErrInvalid classes every validation failure.
var ErrInvalid = fmt.Errorf("invalid config: %w", errdefs.ErrInvalidArgument)

type LogConfig struct {
	Level  string `json:"level" yaml:"level"`
	Format string `json:"format" yaml:"format"` // text, json or auto
}

type WindowConfig struct {
	Title  string `json:"title" yaml:"title"`
	Width  uint32 `json:"width" yaml:"width"`
	Height uint32 `json:"height" yaml:"height"`
}

// Config is the full set of settings.
type Config struct {
	Log          LogConfig      `json:"log" yaml:"log"`
	TickRate     time.Duration  `json:"tickRate" yaml:"tickRate"`
	UpdateMode   string         `json:"updateMode" yaml:"updateMode"`   // tick or event
	FaultPolicy  string         `json:"faultPolicy" yaml:"faultPolicy"` // continue or abort
	ClearColor   [4]float32     `json:"clearColor" yaml:"clearColor"`
	DisableVSync bool           `json:"disableVSync" yaml:"disableVSync"`
	MetricsAddr  string         `json:"metricsAddr" yaml:"metricsAddr"`
	Windows      []WindowConfig `json:"windows" yaml:"windows"`
}

// Default returns the settings used when nothing is configured.
func Default() Config {
	return Config{
		Log:          LogConfig{Level: "info", Format: "auto"},
		TickRate:     16667 * time.Microsecond,
		UpdateMode:   "tick",
		FaultPolicy:  "continue",
		ClearColor:   [4]float32{0.1, 0.2, 0.3, 1.0},
		DisableVSync: true,
		Windows: []WindowConfig{
			{Title: "framecore", Width: 1280, Height: 720},
		},
	}
}

// Load reads envFiles (missing ones are skipped), then path if non-empty,
// then environment overrides, and validates the result.
func Load(path string, envFiles ...string) (Config, error) {
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", f, err)
		}
	}

	cfg := Default()
	if path != "" {
		if err := ReadFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}
	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) error {
	if v, ok := os.LookupEnv(EnvLogLevel); ok {
		cfg.Log.Level = v
	}
	if v, ok := os.LookupEnv(EnvLogFormat); ok {
		cfg.Log.Format = v
	}
	if v, ok := os.LookupEnv(EnvTickRate); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s=%q: %w: %w", EnvTickRate, v, ErrInvalid, err)
		}
		cfg.TickRate = d
	}
	if v, ok := os.LookupEnv(EnvUpdateMode); ok {
		cfg.UpdateMode = v
	}
	if v, ok := os.LookupEnv(EnvFaultPolicy); ok {
		cfg.FaultPolicy = v
	}
	if v, ok := os.LookupEnv(EnvVSync); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%s=%q: %w: %w", EnvVSync, v, ErrInvalid, err)
		}
		cfg.DisableVSync = b
	}
	if v, ok := os.LookupEnv(EnvMetricsAddr); ok {
		cfg.MetricsAddr = v
	}
	return nil
}

// Validate checks enumerations, ranges and window sizes.
func (c Config) Validate() error {
	var errs []error
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("log.level %q", c.Log.Level))
	}
	switch c.Log.Format {
	case "text", "json", "auto":
	default:
		errs = append(errs, fmt.Errorf("log.format %q", c.Log.Format))
	}
	if c.TickRate <= 0 {
		errs = append(errs, fmt.Errorf("tickRate %s must be positive", c.TickRate))
	}
	switch c.UpdateMode {
	case "tick", "event":
	default:
		errs = append(errs, fmt.Errorf("updateMode %q", c.UpdateMode))
	}
	switch c.FaultPolicy {
	case "continue", "abort":
	default:
		errs = append(errs, fmt.Errorf("faultPolicy %q", c.FaultPolicy))
	}
	for i, v := range c.ClearColor {
		if v < 0 || v > 1 {
			errs = append(errs, fmt.Errorf("clearColor[%d] %v out of [0,1]", i, v))
		}
	}
	for i, w := range c.Windows {
		if w.Width == 0 || w.Height == 0 {
			errs = append(errs, fmt.Errorf("windows[%d] %q: size %dx%d", i, w.Title, w.Width, w.Height))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalid, errors.Join(errs...))
	}
	return nil
}
