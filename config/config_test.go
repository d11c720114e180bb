package config_test

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/katalvlaran/soundmotif/config"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	return path
}

func TestDefault_Valid(t *testing.T) {
	cfg := config.Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 0.05, cfg.ClusteringPercentile)
	assert.Zero(t, cfg.MergeThreshold, "derived from merging_percentile by default")
	assert.True(t, cfg.BuildOptions().CollectSteps, "a derived threshold samples corpus paths")

	cfg.MergeThreshold = 2
	assert.False(t, cfg.BuildOptions().CollectSteps)
}

func TestLoad_YAMLThenEnv(t *testing.T) {
	path := writeFile(t, "soundmotif.yaml", `
warping_band_percentage: 0.1
insertion_penalty: 0.3
match_penalty: 0.9
alignment_workers: 4
clustering_percentile: 0.1
retain_paths: true
log_format: console
`)
	t.Setenv("SOUNDMOTIF_MATCH_PENALTY", "0.5")

	cfg, err := config.Load(path, "")
	require.NoError(t, err)
	assert.Equal(t, 0.1, cfg.WarpingBandPercentage)
	assert.Equal(t, 0.3, cfg.InsertionPenalty)
	assert.Equal(t, 1.0, cfg.DeletionPenalty, "untouched default")
	assert.Equal(t, 0.5, cfg.MatchPenalty, "environment wins over file")
	assert.Equal(t, 4, cfg.AlignmentWorkers)
	assert.True(t, cfg.RetainPaths)
	assert.Equal(t, "console", cfg.LogFormat)

	opts := cfg.AlignOptions()
	assert.Equal(t, 0.1, opts.BandPercentage)
	assert.Equal(t, 0.3, opts.InsertionPenalty)
	assert.Equal(t, 0.5, opts.MatchPenalty)

	b := cfg.BuildOptions()
	assert.Equal(t, 4, b.Workers)
	assert.True(t, b.RetainPaths)
	assert.True(t, b.Normalize)
}

func TestLoad_EmptyYAML(t *testing.T) {
	cfg, err := config.Load(writeFile(t, "empty.yaml", ""), "")
	require.NoError(t, err)
	assert.Equal(t, config.Default(), *cfg)
}

func TestLoad_UnknownKey(t *testing.T) {
	_, err := config.Load(writeFile(t, "bad.yaml", "band: 0.5\n"), "")
	assert.ErrorIs(t, err, config.ErrInvalidConfiguration)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "nope.yaml"), "")
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoad_DotEnv(t *testing.T) {
	const key = "SOUNDMOTIF_MERGING_MOVING"
	t.Cleanup(func() { _ = os.Unsetenv(key) })

	env := writeFile(t, ".env", key+"=3\n")
	cfg, err := config.Load("", env)
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.MergingMoving)

	_, err = config.Load("", filepath.Join(t.TempDir(), ".env"))
	assert.NoError(t, err, "a missing .env file is ignored")
}

func TestLoad_BadEnvironmentValue(t *testing.T) {
	t.Setenv("SOUNDMOTIF_ALIGNMENT_WORKERS", "many")
	_, err := config.Load("", "")
	assert.ErrorIs(t, err, config.ErrInvalidConfiguration)
}

func TestValidate_Violations(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
		key    string
	}{
		{"band above one", func(c *config.Config) { c.WarpingBandPercentage = 1.5 }, "warping_band_percentage"},
		{"negative penalty", func(c *config.Config) { c.InsertionPenalty = -0.1 }, "insertion_penalty"},
		{"NaN penalty", func(c *config.Config) { c.DeletionPenalty = math.NaN() }, "deletion_penalty"},
		{"match penalty", func(c *config.Config) { c.MatchPenalty = 2 }, "match_penalty"},
		{"percentile", func(c *config.Config) { c.ClusteringPercentile = 1.01 }, "clustering_percentile"},
		{"merging percentile", func(c *config.Config) { c.MergingPercentile = -1 }, "merging_percentile"},
		{"workers", func(c *config.Config) { c.AlignmentWorkers = -2 }, "alignment_workers"},
		{"threshold", func(c *config.Config) { c.MergeThreshold = -0.5 }, "merge_threshold"},
		{"moving", func(c *config.Config) { c.MergingMoving = -1 }, "merging_moving"},
		{"log level", func(c *config.Config) { c.LogLevel = "loud" }, "log_level"},
		{"log format", func(c *config.Config) { c.LogFormat = "xml" }, "log_format"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			require.ErrorIs(t, err, config.ErrInvalidConfiguration)
			assert.Contains(t, err.Error(), tt.key)
		})
	}
}
