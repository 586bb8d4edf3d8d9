// File: internal/config/config.go
package config

import (
	"fmt"
	"strings"
	"time"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
)

// Interface defines the contract for accessing application configuration.
// This allows for dependency injection and mocking in tests.
type Interface interface {
	Logger() LoggerConfig
	Engine() EngineConfig
	Scan() ScanConfig
	Classifier() ClassifierConfig
	Report() ReportConfig

	SetScanConfig(sc ScanConfig)
	SetEngineWorkers(n int)
	SetReportConfig(rc ReportConfig)
}

// Config holds the entire application configuration. Access goes through the
// Interface getters so commands can swap in a mock.
type Config struct {
	LoggerCfg     LoggerConfig     `mapstructure:"logger" yaml:"logger"`
	EngineCfg     EngineConfig     `mapstructure:"engine" yaml:"engine"`
	ClassifierCfg ClassifierConfig `mapstructure:"classifier" yaml:"classifier"`
	ReportCfg     ReportConfig     `mapstructure:"report" yaml:"report"`
	// ScanCfg gets its marching orders from CLI flags, not the config file.
	ScanCfg ScanConfig `mapstructure:"scan" yaml:"scan"`
}

func (c *Config) Logger() LoggerConfig         { return c.LoggerCfg }
func (c *Config) Engine() EngineConfig         { return c.EngineCfg }
func (c *Config) Scan() ScanConfig             { return c.ScanCfg }
func (c *Config) Classifier() ClassifierConfig { return c.ClassifierCfg }
func (c *Config) Report() ReportConfig         { return c.ReportCfg }

func (c *Config) SetScanConfig(sc ScanConfig)     { c.ScanCfg = sc }
func (c *Config) SetEngineWorkers(n int)          { c.EngineCfg.Workers = n }
func (c *Config) SetReportConfig(rc ReportConfig) { c.ReportCfg = rc }

// LoggerConfig controls the zap logger: level, encoding and optional rotating
// file output.
type LoggerConfig struct {
	Level       string `mapstructure:"level" yaml:"level"`
	Format      string `mapstructure:"format" yaml:"format"`
	AddSource   bool   `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int    `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int    `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int    `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool   `mapstructure:"compress" yaml:"compress"`
}

// EngineConfig configures the batch scanning engine. Workers bounds the pool,
// FilesPerSecond (0 = unlimited) throttles file starts, and PerFileTimeout
// (0 = none) guards against pathological inputs.
type EngineConfig struct {
	Workers        int           `mapstructure:"workers" yaml:"workers"`
	FilesPerSecond float64       `mapstructure:"files_per_second" yaml:"files_per_second"`
	PerFileTimeout time.Duration `mapstructure:"per_file_timeout" yaml:"per_file_timeout"`
}

// ScanConfig carries the per-invocation analysis parameters. Threshold has no
// baked-in default: the caller picks it from an offline precision/recall
// trade-off, and Validate rejects an unset value.
type ScanConfig struct {
	Threshold  float64  `mapstructure:"threshold" yaml:"threshold"`
	Localize   bool     `mapstructure:"localize" yaml:"localize"`
	WindowSize int      `mapstructure:"window_size" yaml:"window_size"`
	TopK       int      `mapstructure:"top_k" yaml:"top_k"`
	Extensions []string `mapstructure:"extensions" yaml:"extensions"`
}

// ClassifierConfig points at the trained model artifact.
type ClassifierConfig struct {
	ModelPath string `mapstructure:"model_path" yaml:"model_path"`
}

// ReportConfig selects the output format and destination for scan results.
type ReportConfig struct {
	Format string `mapstructure:"format" yaml:"format"` // text, json, csv, sarif
	Output string `mapstructure:"output" yaml:"output"` // empty = stdout
}

// ThresholdUnset is the sentinel default meaning "no threshold configured".
const ThresholdUnset = -1.0

// SetDefaults registers the defaults for every key except scan.threshold,
// which deliberately has none.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.service_name", "lancet-cli")
	v.SetDefault("logger.max_size", 50)
	v.SetDefault("logger.max_backups", 3)
	v.SetDefault("logger.max_age", 14)

	v.SetDefault("engine.workers", 4)
	v.SetDefault("engine.files_per_second", 0)
	v.SetDefault("engine.per_file_timeout", 0)

	v.SetDefault("scan.threshold", ThresholdUnset)
	v.SetDefault("scan.window_size", 5)
	v.SetDefault("scan.top_k", 10)
	v.SetDefault("scan.extensions", []string{".php"})

	v.SetDefault("report.format", "text")
}

// Load reads the configuration from an optional file path, the standard
// search locations and LANCET_* environment variables.
func Load(cfgFile string) (*Config, error) {
	v := viper.GetViper()
	SetDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.AddConfigPath(".")
		if home, err := homedir.Dir(); err == nil {
			v.AddConfigPath(home + "/.lancet")
		}
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix("LANCET")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// No config file is fine; defaults, env vars and flags carry the run.
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return &cfg, nil
}

// Validate checks the configuration for a scan run and collects every problem
// it finds, so the user sees all of them at once instead of one per attempt.
func (c *Config) Validate() error {
	var problems []string

	if c.ScanCfg.Threshold == ThresholdUnset {
		problems = append(problems, "scan.threshold must be set (no default; pick one from your offline evaluation)")
	} else if c.ScanCfg.Threshold < 0 || c.ScanCfg.Threshold > 1 {
		problems = append(problems, fmt.Sprintf("scan.threshold must be in [0,1], got %v", c.ScanCfg.Threshold))
	}
	if c.ScanCfg.WindowSize < 1 {
		problems = append(problems, fmt.Sprintf("scan.window_size must be >= 1, got %d", c.ScanCfg.WindowSize))
	}
	if c.ScanCfg.TopK < 1 {
		problems = append(problems, fmt.Sprintf("scan.top_k must be >= 1, got %d", c.ScanCfg.TopK))
	}
	if c.EngineCfg.Workers < 1 {
		problems = append(problems, fmt.Sprintf("engine.workers must be >= 1, got %d", c.EngineCfg.Workers))
	}
	if c.EngineCfg.FilesPerSecond < 0 {
		problems = append(problems, "engine.files_per_second must not be negative")
	}
	if c.ClassifierCfg.ModelPath == "" {
		problems = append(problems, "classifier.model_path must point at a trained model artifact")
	}
	switch c.ReportCfg.Format {
	case "text", "json", "csv", "sarif":
	default:
		problems = append(problems, fmt.Sprintf("report.format %q is not one of text, json, csv, sarif", c.ReportCfg.Format))
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration:\n  - %s", strings.Join(problems, "\n  - "))
	}
	return nil
}
