package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
	"gopkg.in/yaml.v3"

	"github.com/JPFrancoia/scipy/optimize/zeros"
)

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("config: invalid")

// FileConfig is the on-disk YAML shape.
type FileConfig struct {
	Addr      *string `yaml:"addr"`
	LogLevel  *string `yaml:"log_level"`
	LogFormat *string `yaml:"log_format"`

	// Solver defaults applied to requests that leave them unset.
	MaxIter *int     `yaml:"max_iter"`
	XTol    *float64 `yaml:"xtol"`
	RTol    *float64 `yaml:"rtol"`
	Tol     *float64 `yaml:"tol"`

	BatchConcurrency *int `yaml:"batch_concurrency"`
	PreviewPoints    *int `yaml:"preview_points"`

	// RunRetention is how long a finished run stays queryable, e.g. "10m".
	RunRetention *time.Duration `yaml:"run_retention"`
}

// Config is the resolved configuration.
type Config struct {
	Addr      string
	LogLevel  string
	LogFormat string

	Solver zeros.Options

	BatchConcurrency int
	PreviewPoints    int
	RunRetention     time.Duration
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Addr:             ":8080",
		LogLevel:         "info",
		LogFormat:        "text",
		Solver:           zeros.DefaultOptions(),
		BatchConcurrency: 8,
		PreviewPoints:    400,
		RunRetention:     10 * time.Minute,
	}
}

// LoadFile reads a YAML config file from the provided path.
func LoadFile(path string) (FileConfig, error) {
	var cfg FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, fmt.Errorf("config: %s: %w", path, err)
	}
	return cfg, nil
}

// Merge overlays the fields set in fc onto c.
func (c Config) Merge(fc FileConfig) Config {
	if fc.Addr != nil {
		c.Addr = *fc.Addr
	}
	if fc.LogLevel != nil {
		c.LogLevel = *fc.LogLevel
	}
	if fc.LogFormat != nil {
		c.LogFormat = *fc.LogFormat
	}
	if fc.MaxIter != nil {
		c.Solver.MaxIter = *fc.MaxIter
	}
	if fc.XTol != nil {
		c.Solver.XTol = *fc.XTol
	}
	if fc.RTol != nil {
		c.Solver.RTol = *fc.RTol
	}
	if fc.Tol != nil {
		c.Solver.Tol = *fc.Tol
	}
	if fc.BatchConcurrency != nil {
		c.BatchConcurrency = *fc.BatchConcurrency
	}
	if fc.PreviewPoints != nil {
		c.PreviewPoints = *fc.PreviewPoints
	}
	if fc.RunRetention != nil {
		c.RunRetention = *fc.RunRetention
	}
	return c
}

// Resolve loads path (when non-empty) over Default and validates the result.
func Resolve(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		fc, err := LoadFile(path)
		if err != nil {
			return cfg, err
		}
		cfg = cfg.Merge(fc)
	}
	return cfg, cfg.Validate()
}

// Validate reports every problem with c at once.
func (c Config) Validate() error {
	var errs *multierror.Error
	if c.Addr == "" {
		errs = multierror.Append(errs, fmt.Errorf("%w: addr is empty", ErrInvalid))
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		errs = multierror.Append(errs, err)
	}
	if f := strings.ToLower(c.LogFormat); f != "text" && f != "json" {
		errs = multierror.Append(errs, fmt.Errorf("%w: log_format %q (want text or json)", ErrInvalid, c.LogFormat))
	}
	if c.Solver.MaxIter < 0 {
		errs = multierror.Append(errs, fmt.Errorf("%w: max_iter %d", ErrInvalid, c.Solver.MaxIter))
	}
	if !(c.Solver.XTol >= 0) {
		errs = multierror.Append(errs, fmt.Errorf("%w: xtol %v", ErrInvalid, c.Solver.XTol))
	}
	if !(c.Solver.RTol >= zeros.DefaultRTol) {
		errs = multierror.Append(errs, fmt.Errorf("%w: rtol %v below %v", ErrInvalid, c.Solver.RTol, zeros.DefaultRTol))
	}
	if !(c.Solver.Tol >= 0) {
		errs = multierror.Append(errs, fmt.Errorf("%w: tol %v", ErrInvalid, c.Solver.Tol))
	}
	if c.BatchConcurrency < 1 {
		errs = multierror.Append(errs, fmt.Errorf("%w: batch_concurrency %d", ErrInvalid, c.BatchConcurrency))
	}
	if c.PreviewPoints < 2 {
		errs = multierror.Append(errs, fmt.Errorf("%w: preview_points %d", ErrInvalid, c.PreviewPoints))
	}
	if c.RunRetention <= 0 {
		errs = multierror.Append(errs, fmt.Errorf("%w: run_retention %v", ErrInvalid, c.RunRetention))
	}
	return errs.ErrorOrNil()
}

// ParseLevel maps debug, info, warn and error to slog levels.
func ParseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return l, fmt.Errorf("%w: log_level %q", ErrInvalid, s)
	}
	return l, nil
}

// Logger builds the process logger described by c.
func (c Config) Logger() *slog.Logger {
	level, err := ParseLevel(c.LogLevel)
	if err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(c.LogFormat, "json") {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}
