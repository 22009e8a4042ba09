package config

import (
	"fmt"
	"strings"

	"github.com/cardiacam/cardiacam/internal/utils"
	"github.com/spf13/viper"
)

// Load loads configuration from file
func Load(configPath string) (*Config, error) {
	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("cardiacam")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/cardiacam")
	}

	setDefaults(v)

	// CARDIACAM_ICA_MAX_ITER overrides ica.max_iter
	v.SetEnvPrefix("CARDIACAM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return parseConfig(v)
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	return parseConfig(v)
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	d := DefaultConfig()

	v.SetDefault("pipeline.mode", d.Pipeline.Mode)
	v.SetDefault("pipeline.chain_warm_start", d.Pipeline.ChainWarmStart)
	v.SetDefault("pipeline.region_names", d.Pipeline.RegionNames)
	v.SetDefault("pipeline.transient.lead", d.Pipeline.Transient.Lead)
	v.SetDefault("pipeline.transient.trail", d.Pipeline.Transient.Trail)
	v.SetDefault("pipeline.transient.mode", d.Pipeline.Transient.Mode)
	v.SetDefault("pipeline.transient.rate_estimator", d.Pipeline.Transient.RateEstimator)
	v.SetDefault("pipeline.transient.local_index", d.Pipeline.Transient.LocalIndex)

	v.SetDefault("ica.separator", d.ICA.Separator)
	v.SetDefault("ica.components", d.ICA.Components)
	v.SetDefault("ica.algorithm", d.ICA.Algorithm)
	v.SetDefault("ica.contrast", d.ICA.Contrast)
	v.SetDefault("ica.max_iter", d.ICA.MaxIter)
	v.SetDefault("ica.tol", d.ICA.Tol)
	v.SetDefault("ica.seed", d.ICA.Seed)
	v.SetDefault("ica.convergence_policy", d.ICA.ConvergencePolicy)
	v.SetDefault("ica.use_default_warm_start", d.ICA.UseDefaultWarmStart)

	v.SetDefault("output.precision", d.Output.Precision)

	v.SetDefault("publish.enabled", d.Publish.Enabled)
	v.SetDefault("publish.type", d.Publish.Type)
	v.SetDefault("publish.subject", d.Publish.Subject)
	v.SetDefault("publish.batch_size", d.Publish.BatchSize)
	v.SetDefault("publish.redis_stream", d.Publish.RedisStream)
	v.SetDefault("publish.compression", d.Publish.Compression)

	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.format", d.Logging.Format)
	v.SetDefault("logging.output_path", d.Logging.OutputPath)
	v.SetDefault("logging.time_format", d.Logging.TimeFormat)
}

// parseConfig parses viper config into Config struct
func parseConfig(v *viper.Viper) (*Config, error) {
	var cfg Config

	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

// DefaultConfig returns default configuration
func DefaultConfig() *Config {
	return &Config{
		Pipeline: PipelineConfig{
			Mode:           ModeSeparate,
			ChainWarmStart: true,
			RegionNames:    append([]string(nil), defaultRegionNames...),
			Transient: TransientConfig{
				Lead:          utils.DefaultLeadTransient,
				Trail:         utils.DefaultTrailTransient,
				Mode:          TrimTime,
				RateEstimator: RateSpan,
				LocalIndex:    -1,
			},
		},
		ICA: ICAConfig{
			Separator:         "fastica",
			Components:        utils.DefaultComponents,
			Algorithm:         "parallel",
			Contrast:          "exp",
			MaxIter:           utils.DefaultMaxIter,
			Tol:               utils.DefaultTolerance,
			ConvergencePolicy: PolicyWarn,
		},
		Output: OutputConfig{
			Precision: utils.DefaultPrecision,
		},
		Publish: PublishConfig{
			Type:        string(utils.QueueTypeMemory),
			Subject:     "cardiacam",
			BatchSize:   utils.DefaultPublishBatchSize,
			RedisStream: "cardiacam",
			Compression: "none",
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "console",
			OutputPath: "stderr",
			TimeFormat: "RFC3339",
		},
	}
}
