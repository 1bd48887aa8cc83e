package config

import (
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// Config represents the complete pipeline configuration
type Config struct {
	Logging  LoggingConfig  `yaml:"logging" envconfig:"LOGGING"`
	Paths    PathsConfig    `yaml:"paths" envconfig:"PATHS"`
	Model    ModelConfig    `yaml:"model" envconfig:"MODEL"`
	Pipeline PipelineConfig `yaml:"pipeline" envconfig:"PIPELINE"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level    string `yaml:"level" envconfig:"LEVEL"`
	Format   string `yaml:"format" envconfig:"FORMAT" validate:"oneof=json text"`
	Output   string `yaml:"output" envconfig:"OUTPUT" validate:"oneof=stdout file both"`
	FilePath string `yaml:"file_path" envconfig:"FILE_PATH"`
}

// PathsConfig contains the file system layout shared by every stage.
// The partition directories all follow the year=YYYY/month=MM/day=DD
// convention under their base dir.
type PathsConfig struct {
	RawFile     string `yaml:"raw_file" envconfig:"RAW_FILE"`
	CleanDir    string `yaml:"clean_dir" envconfig:"CLEAN_DIR"`
	FeaturesDir string `yaml:"features_dir" envconfig:"FEATURES_DIR"`
	ModelDir    string `yaml:"model_dir" envconfig:"MODEL_DIR"`
	AlertsDir   string `yaml:"alerts_dir" envconfig:"ALERTS_DIR"`
	LogsDir     string `yaml:"logs_dir" envconfig:"LOGS_DIR"`
}

// ModelConfig contains training and scoring parameters
type ModelConfig struct {
	Contamination float64 `yaml:"contamination" envconfig:"CONTAMINATION" validate:"gt=0,lt=1"`
	Trees         int     `yaml:"trees" envconfig:"TREES" validate:"gte=1"`
	Subsample     int     `yaml:"subsample" envconfig:"SUBSAMPLE" validate:"gte=2"`
	Scale         bool    `yaml:"scale" envconfig:"SCALE"`
	Seed          int64   `yaml:"seed" envconfig:"SEED"`
	// MinDailyTxns is the activity floor: rows with cnt_24h at or below
	// this value are excluded from both training and scoring.
	MinDailyTxns int `yaml:"min_daily_txns" envconfig:"MIN_DAILY_TXNS" validate:"gte=0"`
}

// PipelineConfig controls the per-day orchestration
type PipelineConfig struct {
	Workers  int  `yaml:"workers" envconfig:"WORKERS" validate:"gte=1"`
	FailFast bool `yaml:"fail_fast" envconfig:"FAIL_FAST"`
}

// Load loads configuration from environment variables layered over an
// optional config.yaml; environment takes precedence.
func Load() (*Config, error) {
	return LoadFromFile(getConfigFilePath())
}

// LoadFromFile loads configuration from the given YAML file plus environment
func LoadFromFile(configFile string) (*Config, error) {
	var cfg Config

	if configFile != "" {
		if _, err := os.Stat(configFile); err == nil {
			data, err := os.ReadFile(configFile)
			if err != nil {
				return nil, fmt.Errorf("read config file: %w", err)
			}
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return nil, fmt.Errorf("parse config file: %w", err)
			}
		}
	}

	// Environment overrides file values
	if err := envconfig.Process("TXA", &cfg); err != nil {
		return nil, fmt.Errorf("load config from env: %w", err)
	}
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// applyDefaults fills anything neither the config file nor the
// environment set.
func (c *Config) applyDefaults() {
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "json"
	}
	if c.Logging.Output == "" {
		c.Logging.Output = "stdout"
	}
	if c.Logging.FilePath == "" {
		c.Logging.FilePath = "logs/pipeline.log"
	}
	if c.Paths.RawFile == "" {
		c.Paths.RawFile = "data/raw/transactions.csv"
	}
	if c.Paths.CleanDir == "" {
		c.Paths.CleanDir = "data/clean"
	}
	if c.Paths.FeaturesDir == "" {
		c.Paths.FeaturesDir = "data/features"
	}
	if c.Paths.ModelDir == "" {
		c.Paths.ModelDir = "models"
	}
	if c.Paths.AlertsDir == "" {
		c.Paths.AlertsDir = "data/alerts"
	}
	if c.Paths.LogsDir == "" {
		c.Paths.LogsDir = "logs"
	}
	if c.Model.Contamination == 0 {
		c.Model.Contamination = 0.01
	}
	if c.Model.Trees == 0 {
		c.Model.Trees = 100
	}
	if c.Model.Subsample == 0 {
		c.Model.Subsample = 256
	}
	if c.Model.Seed == 0 {
		c.Model.Seed = 42
	}
	if c.Model.MinDailyTxns == 0 {
		c.Model.MinDailyTxns = 10
	}
	if c.Pipeline.Workers == 0 {
		c.Pipeline.Workers = 4
	}
}

// Validate checks the configuration against its struct tags
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return err
	}
	return nil
}

// getConfigFilePath returns the config file location, honoring the
// TXA_CONFIG_PATH override
func getConfigFilePath() string {
	if path := os.Getenv("TXA_CONFIG_PATH"); path != "" {
		return path
	}
	return "config.yaml"
}
