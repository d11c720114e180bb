// Package config is the configuration surface of soundmotif.
//
// Values are layered: Default(), then an optional YAML file, then an
// optional .env file, then SOUNDMOTIF_* environment variables. Validate runs
// last; any violation is an InvalidConfiguration and aborts the run before
// work starts.
package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	"github.com/katalvlaran/soundmotif/cluster"
	"github.com/katalvlaran/soundmotif/dtw"
	"github.com/katalvlaran/soundmotif/hmm"
	"github.com/katalvlaran/soundmotif/logging"
	"github.com/katalvlaran/soundmotif/matrix"
)

// EnvPrefix prefixes every environment override, e.g. SOUNDMOTIF_MATCH_PENALTY.
// Field names are split on word boundaries, so only prefixed variables are
// consulted.
const EnvPrefix = "SOUNDMOTIF"

// ErrInvalidConfiguration wraps every validation failure. The message names
// the offending key and value.
var ErrInvalidConfiguration = errors.New("config: invalid configuration")

// Config holds every tunable of a discovery run.
type Config struct {
	// Alignment
	WarpingBandPercentage float64 `yaml:"warping_band_percentage" split_words:"true"`
	InsertionPenalty      float64 `yaml:"insertion_penalty" split_words:"true"`
	DeletionPenalty       float64 `yaml:"deletion_penalty" split_words:"true"`
	MatchPenalty          float64 `yaml:"match_penalty" split_words:"true"`
	AlignmentWorkers      int     `yaml:"alignment_workers" split_words:"true"`
	NormalizeCost         bool    `yaml:"normalize_cost" split_words:"true"`
	SymmetricAlignment    bool    `yaml:"symmetric_alignment" split_words:"true"`
	RetainPaths           bool    `yaml:"retain_paths" split_words:"true"`

	// Clustering
	ClusteringPercentile float64 `yaml:"clustering_percentile" split_words:"true"`

	// Model merging. MergeThreshold > 0 is used as is; 0 derives the
	// threshold from MergingPercentile of the step distances on every corpus path.
	MergeThreshold    float64 `yaml:"merge_threshold" split_words:"true"`
	MergingPercentile float64 `yaml:"merging_percentile" split_words:"true"`
	MergingMoving     int     `yaml:"merging_moving" split_words:"true"`

	// Ambient
	LogLevel    string `yaml:"log_level" split_words:"true"`
	LogFormat   string `yaml:"log_format" split_words:"true"`
	MetricsAddr string `yaml:"metrics_addr" split_words:"true"`
}

// Default returns the baseline configuration.
func Default() Config {
	return Config{
		WarpingBandPercentage: 0.25,
		InsertionPenalty:      1,
		DeletionPenalty:       1,
		MatchPenalty:          1,
		AlignmentWorkers:      0,
		NormalizeCost:         true,
		ClusteringPercentile:  cluster.DefaultPercentile,
		MergingPercentile:     0.25,
		LogLevel:              "info",
		LogFormat:             "json",
	}
}

// Load layers path (YAML, optional), envFile (.env, optional; a missing file
// is ignored) and SOUNDMOTIF_* variables over Default, then validates.
func Load(path, envFile string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if err := cfg.readYAML(path); err != nil {
			return nil, err
		}
	}
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("config: load %s: %w", envFile, err)
		}
	}
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("%w: environment: %w", ErrInvalidConfiguration, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) readYAML(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("config: open %s: %w", path, err)
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err = dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: %s: %w", ErrInvalidConfiguration, path, err)
	}

	return nil
}

// Validate checks every key. Stage order is fixed so the first reported
// violation is deterministic.
func (c Config) Validate() error {
	// Stage 1: unit-interval parameters.
	unit := []struct {
		key string
		v   float64
	}{
		{"warping_band_percentage", c.WarpingBandPercentage},
		{"insertion_penalty", c.InsertionPenalty},
		{"deletion_penalty", c.DeletionPenalty},
		{"match_penalty", c.MatchPenalty},
		{"clustering_percentile", c.ClusteringPercentile},
		{"merging_percentile", c.MergingPercentile},
	}
	for _, u := range unit {
		if !(u.v >= 0 && u.v <= 1) {
			return fmt.Errorf("%w: %s=%v must be in [0,1]", ErrInvalidConfiguration, u.key, u.v)
		}
	}

	// Stage 2: counts and thresholds.
	if c.AlignmentWorkers < 0 {
		return fmt.Errorf("%w: alignment_workers=%d must be >= 0", ErrInvalidConfiguration, c.AlignmentWorkers)
	}
	if !(c.MergeThreshold >= 0) {
		return fmt.Errorf("%w: merge_threshold=%v must be >= 0", ErrInvalidConfiguration, c.MergeThreshold)
	}
	if c.MergingMoving < 0 {
		return fmt.Errorf("%w: merging_moving=%d must be >= 0", ErrInvalidConfiguration, c.MergingMoving)
	}

	// Stage 3: ambient.
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("%w: log_level: %w", ErrInvalidConfiguration, err)
	}
	switch strings.ToLower(c.LogFormat) {
	case "", "json", "console", "text":
	default:
		return fmt.Errorf("%w: log_format=%q must be json or console", ErrInvalidConfiguration, c.LogFormat)
	}

	return nil
}

// AlignOptions maps the alignment keys onto dtw.Options.
func (c Config) AlignOptions() dtw.Options {
	o := dtw.DefaultOptions()
	o.BandPercentage = c.WarpingBandPercentage
	o.InsertionPenalty = c.InsertionPenalty
	o.DeletionPenalty = c.DeletionPenalty
	o.MatchPenalty = c.MatchPenalty

	return o
}

// BuildOptions maps the alignment keys onto matrix.BuildOptions. Step
// distances are collected whenever the merge threshold is derived, since the
// derivation samples every corpus path.
func (c Config) BuildOptions() matrix.BuildOptions {
	return matrix.BuildOptions{
		Align:        c.AlignOptions(),
		Workers:      c.AlignmentWorkers,
		Symmetric:    c.SymmetricAlignment,
		RetainPaths:  c.RetainPaths,
		Normalize:    c.NormalizeCost,
		CollectSteps: c.MergeThreshold == 0,
	}
}

// MergeOptions returns the hmm options for a resolved threshold.
func (c Config) MergeOptions(threshold float64) []hmm.Option {
	return []hmm.Option{
		hmm.WithThreshold(threshold),
		hmm.WithMovingWindow(c.MergingMoving),
	}
}

// LoggingConfig maps the ambient keys onto logging.Config.
func (c Config) LoggingConfig() logging.Config {
	lc := logging.DefaultConfig()
	lc.Level = c.LogLevel
	lc.Format = c.LogFormat

	return lc
}
