// Package config holds the configuration of the nerprep command line tool.
//
// Values are read with viper from an optional YAML/JSON/TOML file and from NERPREP_* environment
// variables (e.g. NERPREP_MAX_LEN), on top of the defaults below. Command line flags are applied
// afterwards by the caller.
package config

import (
	"path/filepath"
	"runtime"
	"strings"

	"github.com/gomlx/tokenclass/align"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

// EnvPrefix of the environment variables overriding the configuration.
const EnvPrefix = "NERPREP"

// Dataset formats.
const (
	FormatAuto    = ""
	FormatCoNLL   = "conll"
	FormatParquet = "parquet"
)

// TagsFromModel as the Tags value reads the tag mapping (label2id) from the model's "config.json".
const TagsFromModel = "model"

// Config of a data preparation run.
type Config struct {
	// Model is the HuggingFace Hub id of the model whose tokenizer is used, e.g. "bert-base-cased".
	Model    string `mapstructure:"model"`
	Revision string `mapstructure:"revision"`
	CacheDir string `mapstructure:"cache_dir"`

	// TokenizerDir, if set, is used instead of the Hub: a local directory with the tokenizer files.
	TokenizerDir string `mapstructure:"tokenizer_dir"`

	// Tags is a JSON file with the tag to id mapping, or TagsFromModel. If empty, TagNames is used.
	Tags     string   `mapstructure:"tags"`
	TagNames []string `mapstructure:"tag_names"`

	Input     string `mapstructure:"input"`
	Format    string `mapstructure:"format"`
	TagColumn int    `mapstructure:"tag_column"`
	Output    string `mapstructure:"output"`

	MaxLen      int    `mapstructure:"max_len"`
	BatchSize   int    `mapstructure:"batch_size"`
	Parallelism int    `mapstructure:"parallelism"`
	Strategy    string `mapstructure:"strategy"`
}

// Default values, also used as the set of known keys for environment overrides.
var defaults = map[string]any{
	"model":         "",
	"revision":      "main",
	"cache_dir":     "",
	"tokenizer_dir": "",
	"tags":          "",
	"tag_names":     []string{"O", "B-PER", "I-PER", "B-ORG", "I-ORG", "B-LOC", "I-LOC", "B-MISC", "I-MISC"},
	"input":         "",
	"format":        FormatAuto,
	"tag_column":    -1,
	"output":        "",
	"max_len":       128,
	"batch_size":    32,
	"parallelism":   runtime.NumCPU(),
	"strategy":      "auto",
}

// Load reads the configuration file at configPath (if not empty) and the environment.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "failed to read config file %q", configPath)
		}
	}
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, errors.Wrap(err, "unable to decode configuration")
	}
	return cfg, nil
}

// InputFormat returns the dataset format: Format if set, otherwise guessed from the Input extension.
func (c *Config) InputFormat() string {
	if c.Format != FormatAuto {
		return c.Format
	}
	if strings.EqualFold(filepath.Ext(c.Input), ".parquet") {
		return FormatParquet
	}
	return FormatCoNLL
}

// Validate checks the configuration is complete and consistent.
func (c *Config) Validate() error {
	if c.Model == "" && c.TokenizerDir == "" {
		return errors.New("either model or tokenizer_dir must be set")
	}
	if c.Input == "" {
		return errors.New("input must be set")
	}
	if c.Tags == "" && len(c.TagNames) == 0 {
		return errors.New("either tags or tag_names must be set")
	}
	if c.Tags == TagsFromModel && c.Model == "" {
		return errors.Errorf("tags=%q requires a model", TagsFromModel)
	}
	switch c.InputFormat() {
	case FormatCoNLL, FormatParquet:
	default:
		return errors.Errorf("unknown format %q, valid values are %q or %q", c.Format, FormatCoNLL, FormatParquet)
	}
	if c.MaxLen <= 0 {
		return errors.Errorf("max_len must be positive, got %d", c.MaxLen)
	}
	if c.BatchSize <= 0 {
		return errors.Errorf("batch_size must be positive, got %d", c.BatchSize)
	}
	if _, err := align.ParseStrategy(c.Strategy); err != nil {
		return err
	}
	return nil
}
