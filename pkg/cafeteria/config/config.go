// Package config loads cafeteria settings and the sentiment lexicon.
//
// Settings are layered: built-in defaults, then an optional YAML file, then
// CAFETERIA_* environment variables. CAFETERIA_RANKING_RATING_WEIGHT maps
// to ranking.rating_weight; the first underscore after the prefix separates
// the section from the key.
package config

import (
	"fmt"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	"github.com/cognicore/cafeteria/internal/logging"
	"github.com/cognicore/cafeteria/pkg/cafeteria/feedback"
	"github.com/cognicore/cafeteria/pkg/cafeteria/internalerr"
	"github.com/cognicore/cafeteria/pkg/cafeteria/rank"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "CAFETERIA_"

// Config holds every tunable setting.
type Config struct {
	Database DatabaseConfig `koanf:"database"`
	Log      LogConfig      `koanf:"log"`
	Lexicon  LexiconConfig  `koanf:"lexicon"`
	Ranking  RankingConfig  `koanf:"ranking"`
	Discard  DiscardConfig  `koanf:"discard"`
	Summary  SummaryConfig  `koanf:"summary"`
	Metrics  MetricsConfig  `koanf:"metrics"`
}

type DatabaseConfig struct {
	Path string `koanf:"path" validate:"required"`
}

type LogConfig struct {
	Level  string `koanf:"level" validate:"required"`
	Format string `koanf:"format" validate:"oneof=json console"`
}

// LexiconConfig points at an optional YAML lexicon. Empty uses the built-in one.
type LexiconConfig struct {
	Path string `koanf:"path"`
}

type RankingConfig struct {
	RatingWeight    float64 `koanf:"rating_weight" validate:"gte=0"`
	SentimentWeight float64 `koanf:"sentiment_weight" validate:"gte=0"`
	DefaultCount    int     `koanf:"default_count" validate:"gte=1"`
}

type DiscardConfig struct {
	RatingThreshold float64 `koanf:"rating_threshold" validate:"gt=0,lte=5"`
}

type SummaryConfig struct {
	MaxPositive int    `koanf:"max_positive" validate:"gte=1"`
	MaxNegative int    `koanf:"max_negative" validate:"gte=1"`
	Separator   string `koanf:"separator" validate:"required"`
}

// MetricsConfig names a node-exporter textfile to write counters to. Empty
// disables the dump.
type MetricsConfig struct {
	Textfile string `koanf:"textfile"`
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		Database: DatabaseConfig{Path: "cafeteria.db"},
		Log:      LogConfig{Level: "info", Format: "console"},
		Ranking: RankingConfig{
			RatingWeight:    0.5,
			SentimentWeight: 0.5,
			DefaultCount:    5,
		},
		Discard: DiscardConfig{RatingThreshold: 2.0},
		Summary: SummaryConfig{
			MaxPositive: feedback.DefaultMaxPositive,
			MaxNegative: feedback.DefaultMaxNegative,
			Separator:   feedback.DefaultSeparator,
		},
	}
}

// Load layers defaults, the YAML file at path (skipped when path is empty)
// and environment overrides, then validates the result.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// envKey turns CAFETERIA_SUMMARY_MAX_POSITIVE into summary.max_positive.
func envKey(key string) string {
	key = strings.ToLower(strings.TrimPrefix(key, EnvPrefix))
	return strings.Replace(key, "_", ".", 1)
}

// Validate checks field constraints and cross-field rules.
func (c *Config) Validate() error {
	if err := internalerr.ValidateStruct(c); err != nil {
		return fmt.Errorf("%w: %w", internalerr.ErrInvalidConfig, err)
	}
	if !logging.ValidLevel(c.Log.Level) {
		return fmt.Errorf("%w: unknown log level %q", internalerr.ErrInvalidConfig, c.Log.Level)
	}
	if c.Ranking.RatingWeight+c.Ranking.SentimentWeight == 0 {
		return fmt.Errorf("%w: ranking weights cannot both be zero", internalerr.ErrInvalidConfig)
	}
	return nil
}

// Weights returns the ranking blend.
func (c *Config) Weights() rank.Weights {
	return rank.Weights{Rating: c.Ranking.RatingWeight, Sentiment: c.Ranking.SentimentWeight}
}

// SummaryOptions returns the comment summary limits.
func (c *Config) SummaryOptions() feedback.SummaryOptions {
	return feedback.SummaryOptions{
		MaxPositive: c.Summary.MaxPositive,
		MaxNegative: c.Summary.MaxNegative,
		Separator:   c.Summary.Separator,
	}
}

// Logging returns the logger settings.
func (c *Config) Logging() logging.Config {
	return logging.Config{
		Level:     c.Log.Level,
		Format:    c.Log.Format,
		Timestamp: c.Log.Format == "json",
	}
}
