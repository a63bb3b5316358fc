// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New(ctx) to build a Config with defaults.
// - Functions accept context.Context as the first parameter.
// - Validation failures wrap ErrInvalidConfig.
package config

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Default values for a fresh Config.
const (
	defaultLogLevel        = "info"
	defaultLogFormat       = "text"
	defaultAddr            = ":9080"
	defaultOverlap         = 0.5
	defaultReadTimeoutMS   = 10_000
	defaultWriteTimeoutMS  = 60_000
	defaultMaxRequestBytes = 64 << 20
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the log handler: text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// JobPath names a YAML or JSON scoring job. When set the process scores
	// it once, prints the records and exits instead of serving HTTP.
	JobPath string `koanf:"job_path"`

	// ScoreCrossEntropy appends crossEntropyNonBinarized per target to every run.
	ScoreCrossEntropy bool `koanf:"score_cross_entropy"`

	// OverlapThreshold is the default IoU threshold for object detection AP.
	OverlapThreshold float64 `koanf:"overlap_threshold"`

	// UseElevenPoint selects 11-point interpolated AP by default.
	UseElevenPoint bool `koanf:"use_eleven_point"`

	// MetricsEnabled toggles Prometheus instrumentation.
	MetricsEnabled bool `koanf:"metrics_enabled"`

	// ReadTimeoutMS and WriteTimeoutMS bound HTTP request handling.
	ReadTimeoutMS  int `koanf:"read_timeout_ms"`
	WriteTimeoutMS int `koanf:"write_timeout_ms"`

	// MaxRequestBytes caps the size of a POST /score body.
	MaxRequestBytes int64 `koanf:"max_request_bytes"`
}

// New creates a Config with defaults. Context is accepted first to satisfy the
// project-wide convention and is currently unused.
func New(_ context.Context) *Config {
	return &Config{
		LogLevel:         defaultLogLevel,
		LogFormat:        defaultLogFormat,
		Addr:             defaultAddr,
		OverlapThreshold: defaultOverlap,
		MetricsEnabled:   true,
		ReadTimeoutMS:    defaultReadTimeoutMS,
		WriteTimeoutMS:   defaultWriteTimeoutMS,
		MaxRequestBytes:  defaultMaxRequestBytes,
	}
}

// Validate reports the first invalid field.
func (c *Config) Validate() error {
	switch {
	case c.JobPath == "" && strings.TrimSpace(c.Addr) == "":
		return fmt.Errorf("addr must not be empty: %w", ErrInvalidConfig)
	case c.LogFormat != "text" && c.LogFormat != "json":
		return fmt.Errorf("log_format %q: %w", c.LogFormat, ErrInvalidConfig)
	case c.OverlapThreshold < 0 || c.OverlapThreshold > 1:
		return fmt.Errorf("overlap_threshold %v outside [0,1]: %w", c.OverlapThreshold, ErrInvalidConfig)
	case c.ReadTimeoutMS <= 0 || c.WriteTimeoutMS <= 0:
		return fmt.Errorf("timeouts must be positive: %w", ErrInvalidConfig)
	case c.MaxRequestBytes <= 0:
		return fmt.Errorf("max_request_bytes must be positive: %w", ErrInvalidConfig)
	}
	return nil
}

// ReadTimeout returns ReadTimeoutMS as a duration.
func (c *Config) ReadTimeout() time.Duration {
	return time.Duration(c.ReadTimeoutMS) * time.Millisecond
}

// WriteTimeout returns WriteTimeoutMS as a duration.
func (c *Config) WriteTimeout() time.Duration {
	return time.Duration(c.WriteTimeoutMS) * time.Millisecond
}
