// Package config defines the configuration surface for a triage run:
// which mail accounts to pull from, which oracle model classifies them,
// and the tuning knobs for batching and retry behavior.
package config

import (
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/sfioritto/inbox-triage/pkg/errors"
)

// Config is the root configuration for the triage pipeline.
type Config struct {
	// Accounts lists the mail accounts to triage. An empty list is not an
	// error; the pipeline degrades to an empty digest.
	Accounts []AccountConfig `yaml:"accounts,omitempty" validate:"omitempty,dive"`

	// Oracle configures the classification oracle.
	Oracle OracleConfig `yaml:"oracle" validate:"required"`

	// Retry configures transient-failure handling for oracle calls.
	Retry RetryConfig `yaml:"retry,omitempty"`

	// Batch configures concurrent oracle call batching.
	Batch BatchConfig `yaml:"batch,omitempty"`

	// Retrieval configures conversation fetching.
	Retrieval RetrievalConfig `yaml:"retrieval,omitempty"`

	// Checkpoint configures optional per-stage result persistence.
	Checkpoint CheckpointConfig `yaml:"checkpoint,omitempty"`

	// Logging configures log output.
	Logging LoggingConfig `yaml:"logging,omitempty"`
}

// AccountConfig identifies one mail account.
type AccountConfig struct {
	Name            string `yaml:"name" validate:"required"`
	CredentialsFile string `yaml:"credentials_file" validate:"required"`
	TokenFile       string `yaml:"token_file" validate:"required"`
}

// OracleConfig configures the oracle adapter.
type OracleConfig struct {
	Provider    string  `yaml:"provider" validate:"required,oneof=anthropic"`
	ModelID     string  `yaml:"model_id" validate:"required"`
	APIKey      string  `yaml:"api_key,omitempty"`
	MaxTokens   int     `yaml:"max_tokens,omitempty" validate:"omitempty,min=1"`
	Temperature float64 `yaml:"temperature,omitempty" validate:"omitempty,min=0,max=1"`
}

// RetryConfig configures the retry policy applied to every oracle call.
type RetryConfig struct {
	MaxRetries  int `yaml:"max_retries,omitempty" validate:"omitempty,min=0"`
	BaseDelayMS int `yaml:"base_delay_ms,omitempty" validate:"omitempty,min=1"`
}

// BaseDelay returns the configured base delay as a duration.
func (r RetryConfig) BaseDelay() time.Duration {
	return time.Duration(r.BaseDelayMS) * time.Millisecond
}

// BatchConfig configures the concurrency batcher.
type BatchConfig struct {
	Size      int `yaml:"size,omitempty" validate:"omitempty,min=1"`
	StaggerMS int `yaml:"stagger_ms,omitempty" validate:"omitempty,min=0"`
}

// Stagger returns the configured stagger delay as a duration.
func (b BatchConfig) Stagger() time.Duration {
	return time.Duration(b.StaggerMS) * time.Millisecond
}

// RetrievalConfig configures conversation fetching.
type RetrievalConfig struct {
	Query     string `yaml:"query,omitempty"`
	Limit     int64  `yaml:"limit,omitempty" validate:"omitempty,min=1"`
	BodyLimit int    `yaml:"body_limit,omitempty" validate:"omitempty,min=1"`
}

// CheckpointConfig configures per-stage result persistence. An empty path
// disables checkpointing.
type CheckpointConfig struct {
	Path string `yaml:"path,omitempty"`
}

// LoggingConfig configures the logger.
type LoggingConfig struct {
	Level string `yaml:"level,omitempty" validate:"omitempty,oneof=DEBUG INFO WARN ERROR FATAL"`
	File  string `yaml:"file,omitempty"`
}

// Default values applied by ApplyDefaults.
const (
	DefaultMaxRetries  = 3
	DefaultBaseDelayMS = 1000
	DefaultBatchSize   = 20
	DefaultStaggerMS   = 30
	DefaultBodyLimit   = 2000
	DefaultLimit       = 50
	DefaultMaxTokens   = 8192
	DefaultQuery       = "in:inbox -in:draft"
)

// ApplyDefaults fills in unset fields with the canonical defaults.
func (c *Config) ApplyDefaults() {
	if c.Retry.MaxRetries == 0 {
		c.Retry.MaxRetries = DefaultMaxRetries
	}
	if c.Retry.BaseDelayMS == 0 {
		c.Retry.BaseDelayMS = DefaultBaseDelayMS
	}
	if c.Batch.Size == 0 {
		c.Batch.Size = DefaultBatchSize
	}
	if c.Batch.StaggerMS == 0 {
		c.Batch.StaggerMS = DefaultStaggerMS
	}
	if c.Retrieval.Query == "" {
		c.Retrieval.Query = DefaultQuery
	}
	if c.Retrieval.Limit == 0 {
		c.Retrieval.Limit = DefaultLimit
	}
	if c.Retrieval.BodyLimit == 0 {
		c.Retrieval.BodyLimit = DefaultBodyLimit
	}
	if c.Oracle.MaxTokens == 0 {
		c.Oracle.MaxTokens = DefaultMaxTokens
	}
	if c.Oracle.APIKey == "" {
		c.Oracle.APIKey = os.Getenv("ANTHROPIC_API_KEY")
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "INFO"
	}
}

// Validate checks the configuration for structural problems.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(err, errors.ValidationFailed, "invalid configuration")
	}
	return nil
}

// Load reads, defaults, and validates a configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.WithFields(
			errors.Wrap(err, errors.InvalidInput, "failed to read config file"),
			errors.Fields{"path": path})
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, errors.WithFields(
			errors.Wrap(err, errors.InvalidInput, "failed to parse config file"),
			errors.Fields{"path": path})
	}

	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}
