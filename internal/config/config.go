package config

import (
	"fmt"
)

// Config represents the complete application configuration
type Config struct {
	Pipeline PipelineConfig `mapstructure:"pipeline"`
	ICA      ICAConfig      `mapstructure:"ica"`
	Output   OutputConfig   `mapstructure:"output"`
	Publish  PublishConfig  `mapstructure:"publish"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// PipelineConfig selects how the regions are unmixed and which samples are kept
type PipelineConfig struct {
	Mode           string          `mapstructure:"mode"`             // separate, combined
	ChainWarmStart bool            `mapstructure:"chain_warm_start"` // Warm-start each region from the previous region's W (separate mode)
	RegionNames    []string        `mapstructure:"region_names"`     // Names for the RGB triples, in column order (default: forehead, cheek, region2, ...)
	Transient      TransientConfig `mapstructure:"transient"`
	Exclude        []TimeRange     `mapstructure:"exclude"` // Glitch intervals dropped before differentiation
}

// TransientConfig describes the lead-in/trail-out removal
type TransientConfig struct {
	Lead          float64 `mapstructure:"lead"`           // Seconds, or samples in samples mode
	Trail         float64 `mapstructure:"trail"`          // Seconds, or samples in samples mode
	Mode          string  `mapstructure:"mode"`           // time, rate, samples
	RateEstimator string  `mapstructure:"rate_estimator"` // span, local
	LocalIndex    int     `mapstructure:"local_index"`    // Sample pair used by the local estimator (-1: middle of series)
}

// TimeRange is a half-open [Start, End) interval in seconds
type TimeRange struct {
	Start float64 `mapstructure:"start"`
	End   float64 `mapstructure:"end"`
}

// ICAConfig holds the separator settings
type ICAConfig struct {
	Separator           string      `mapstructure:"separator"`              // Registered separator name (default: fastica)
	Components          int         `mapstructure:"components"`             // Fixed at 3 for RGB
	Algorithm           string      `mapstructure:"algorithm"`              // parallel, deflation
	Contrast            string      `mapstructure:"contrast"`               // exp, logcosh, cube
	MaxIter             int         `mapstructure:"max_iter"`               // Iteration cap
	Tol                 float64     `mapstructure:"tol"`                    // Convergence tolerance
	Seed                int64       `mapstructure:"seed"`                   // Seed for the random initial matrix
	ConvergencePolicy   string      `mapstructure:"convergence_policy"`     // warn, abort
	WarmStart           [][]float64 `mapstructure:"warm_start"`             // Optional 3x3 initial separating matrix
	UseDefaultWarmStart bool        `mapstructure:"use_default_warm_start"` // Use the built-in RGB guess when WarmStart is empty
}

// OutputConfig controls the result writer
type OutputConfig struct {
	Precision int `mapstructure:"precision"` // Significant digits (>= 15)
}

// PublishConfig represents the optional result publisher
type PublishConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Type      string `mapstructure:"type"`       // memory, nats, redis, kafka
	URL       string `mapstructure:"url"`        // Queue server URL (e.g., nats://localhost:4222, redis://localhost:6379)
	Username  string `mapstructure:"username"`   // Optional authentication
	Password  string `mapstructure:"password"`   // Optional authentication
	Subject   string `mapstructure:"subject"`    // Subject prefix; messages go to <subject>.summary and <subject>.components
	BatchSize int    `mapstructure:"batch_size"` // Component rows per message

	// Payload compression: none or snappy (block format)
	Compression string `mapstructure:"compression"`

	// Redis-specific options
	RedisDB     int    `mapstructure:"redis_db"`     // Redis database number (default: 0)
	RedisStream string `mapstructure:"redis_stream"` // Redis stream prefix (default: "cardiacam")

	// Kafka-specific options
	KafkaBrokers []string `mapstructure:"kafka_brokers"` // Kafka broker addresses
}

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	Level      string `mapstructure:"level"`       // debug, info, warn, error
	Format     string `mapstructure:"format"`      // json, console
	OutputPath string `mapstructure:"output_path"` // stderr, stdout, file path
	TimeFormat string `mapstructure:"time_format"` // RFC3339, RFC3339Nano, Kitchen
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if err := c.Pipeline.Validate(); err != nil {
		return fmt.Errorf("pipeline config: %w", err)
	}

	if err := c.ICA.Validate(); err != nil {
		return fmt.Errorf("ica config: %w", err)
	}

	if err := c.Output.Validate(); err != nil {
		return fmt.Errorf("output config: %w", err)
	}

	if err := c.Publish.Validate(); err != nil {
		return fmt.Errorf("publish config: %w", err)
	}

	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging config: %w", err)
	}

	return nil
}

// Validate validates pipeline configuration
func (c *PipelineConfig) Validate() error {
	if c.Mode != ModeSeparate && c.Mode != ModeCombined {
		return fmt.Errorf("pipeline.mode must be '%s' or '%s'", ModeSeparate, ModeCombined)
	}

	if err := c.Transient.Validate(); err != nil {
		return err
	}

	for i, r := range c.Exclude {
		if r.End <= r.Start {
			return fmt.Errorf("pipeline.exclude[%d]: end (%g) must be after start (%g)", i, r.End, r.Start)
		}
	}

	return nil
}

// Validate validates transient configuration
func (c *TransientConfig) Validate() error {
	if c.Lead < 0 || c.Trail < 0 {
		return fmt.Errorf("transient lead and trail must not be negative")
	}

	switch c.Mode {
	case TrimTime, TrimRate, TrimSamples:
	default:
		return fmt.Errorf("transient.mode must be one of: %s, %s, %s", TrimTime, TrimRate, TrimSamples)
	}

	if c.RateEstimator != RateSpan && c.RateEstimator != RateLocal {
		return fmt.Errorf("transient.rate_estimator must be '%s' or '%s'", RateSpan, RateLocal)
	}

	return nil
}

// Validate validates ICA configuration
func (c *ICAConfig) Validate() error {
	if c.Separator == "" {
		return fmt.Errorf("ica.separator is required")
	}

	if c.Components != 3 {
		return fmt.Errorf("ica.components must be 3 for RGB unmixing, got %d", c.Components)
	}

	if c.Algorithm != "parallel" && c.Algorithm != "deflation" {
		return fmt.Errorf("ica.algorithm must be 'parallel' or 'deflation'")
	}

	validContrasts := map[string]bool{
		"exp":     true,
		"logcosh": true,
		"cube":    true,
	}
	if !validContrasts[c.Contrast] {
		return fmt.Errorf("ica.contrast must be one of: exp, logcosh, cube")
	}

	if c.MaxIter < 1 {
		return fmt.Errorf("ica.max_iter must be at least 1")
	}

	if c.Tol <= 0 {
		return fmt.Errorf("ica.tol must be positive")
	}

	if c.ConvergencePolicy != PolicyWarn && c.ConvergencePolicy != PolicyAbort {
		return fmt.Errorf("ica.convergence_policy must be '%s' or '%s'", PolicyWarn, PolicyAbort)
	}

	if len(c.WarmStart) > 0 {
		if len(c.WarmStart) != c.Components {
			return fmt.Errorf("ica.warm_start must have %d rows, got %d", c.Components, len(c.WarmStart))
		}
		for i, row := range c.WarmStart {
			if len(row) != c.Components {
				return fmt.Errorf("ica.warm_start row %d must have %d values, got %d", i, c.Components, len(row))
			}
		}
	}

	return nil
}

// Validate validates output configuration
func (c *OutputConfig) Validate() error {
	if c.Precision < 15 || c.Precision > 17 {
		return fmt.Errorf("output.precision must be between 15 and 17, got %d", c.Precision)
	}
	return nil
}

// Validate validates publish configuration
func (c *PublishConfig) Validate() error {
	if !c.Enabled {
		return nil
	}

	if c.Subject == "" {
		return fmt.Errorf("publish.subject is required")
	}

	if c.BatchSize < 1 {
		return fmt.Errorf("publish.batch_size must be at least 1")
	}

	switch c.Type {
	case "memory", "nats", "redis":
	case "kafka":
		if len(c.KafkaBrokers) == 0 {
			return fmt.Errorf("publish.kafka_brokers is required for kafka")
		}
	default:
		return fmt.Errorf("publish.type must be one of: memory, nats, redis, kafka")
	}

	switch c.Compression {
	case "", "none", "snappy":
	default:
		return fmt.Errorf("publish.compression must be one of: none, snappy")
	}

	return nil
}

// Validate validates logging configuration
func (c *LoggingConfig) Validate() error {
	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}

	if !validLevels[c.Level] {
		return fmt.Errorf("logging.level must be one of: debug, info, warn, error")
	}

	validFormats := map[string]bool{
		"json":    true,
		"console": true,
	}

	if !validFormats[c.Format] {
		return fmt.Errorf("logging.format must be 'json' or 'console'")
	}

	return nil
}
