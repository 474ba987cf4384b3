// Package config defines the run configuration of a training job.
//
// The configuration is a flat YAML document decoded in strict mode
// (KnownFields), so a typo in a key is an immediate startup error rather
// than a silently ignored option. Validation is eager: every missing or
// invalid required key is reported at load time, before any data is touched.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrInvalid wraps all validation failures of a Config.
var ErrInvalid = errors.New("config: invalid configuration")

// Config enumerates every recognized option of a training run.
type Config struct {
	// Model shape and label normalization.
	HiddenSize int     `yaml:"hidden_size"`
	LatentSize int     `yaml:"latent_size"`
	DepthT     int     `yaml:"depthT"`
	DepthG     int     `yaml:"depthG"`
	LabelSize  int     `yaml:"label_size"`
	LabelMean  float64 `yaml:"label_mean"`
	LabelVar   float64 `yaml:"label_var"`

	// Learning-rate schedule.
	LR         float64 `yaml:"lr"`
	AnnealRate float64 `yaml:"anneal_rate"`
	AnnealIter int     `yaml:"anneal_iter"`

	// Loss annealing.
	Alpha        float64 `yaml:"alpha"`
	Beta         float64 `yaml:"beta"`
	MaxBeta      float64 `yaml:"max_beta"`
	StepBeta     float64 `yaml:"step_beta"`
	KLAnnealIter int     `yaml:"kl_anneal_iter"`

	// Optimization and loop control.
	ClipNorm  float64 `yaml:"clip_norm"`
	NumEpochs int     `yaml:"num_epochs"`
	PrintIter int     `yaml:"print_iter"`
	SaveIter  int     `yaml:"save_iter"`
	BatchSize int     `yaml:"batch_size"`

	// Preprocessing fan-out. Zero num_workers means one worker per CPU;
	// zero chunk_size means the default chunk of 5000 structures.
	NumWorkers int `yaml:"num_workers"`
	ChunkSize  int `yaml:"chunk_size"`

	// LabelPct is the fraction of each batch carrying a property label.
	LabelPct float64 `yaml:"label_pct"`

	// Dataset split fractions for the validation and test sets, applied
	// after preprocessing. Zero selects the default of 0.05 each.
	ValPct  float64 `yaml:"val_pct"`
	TestPct float64 `yaml:"test_pct"`

	// Run-level settings.
	Seed                uint64 `yaml:"seed"`
	SaveDir             string `yaml:"save_dir"`
	CheckpointPrecision string `yaml:"checkpoint_precision"`
	MetricsAddr         string `yaml:"metrics_addr"`
}

// Load reads and validates a configuration file. Any failure here is fatal
// for the run: there is no partial startup.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %s: %w", path, err)
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)

	var cfg Config
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.SaveDir == "" {
		c.SaveDir = "saved"
	}
	if c.CheckpointPrecision == "" {
		c.CheckpointPrecision = "float32"
	}
	if c.ValPct == 0 {
		c.ValPct = 0.05
	}
	if c.TestPct == 0 {
		c.TestPct = 0.05
	}
}

// Validate checks every required key and reports all problems at once.
func (c *Config) Validate() error {
	var problems []string
	bad := func(format string, args ...any) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	requirePositiveInt := func(name string, v int) {
		if v <= 0 {
			bad("%s must be a positive integer (got %d)", name, v)
		}
	}
	requirePositiveInt("hidden_size", c.HiddenSize)
	requirePositiveInt("latent_size", c.LatentSize)
	requirePositiveInt("depthT", c.DepthT)
	requirePositiveInt("depthG", c.DepthG)
	requirePositiveInt("label_size", c.LabelSize)
	requirePositiveInt("anneal_iter", c.AnnealIter)
	requirePositiveInt("kl_anneal_iter", c.KLAnnealIter)
	requirePositiveInt("num_epochs", c.NumEpochs)
	requirePositiveInt("print_iter", c.PrintIter)
	requirePositiveInt("save_iter", c.SaveIter)
	requirePositiveInt("batch_size", c.BatchSize)

	if c.LR <= 0 {
		bad("lr must be positive (got %g)", c.LR)
	}
	if c.AnnealRate <= 0 || c.AnnealRate > 1 {
		bad("anneal_rate must be in (0, 1] (got %g)", c.AnnealRate)
	}
	if c.LabelVar <= 0 {
		bad("label_var must be positive (got %g)", c.LabelVar)
	}
	if c.Alpha < 0 {
		bad("alpha must be non-negative (got %g)", c.Alpha)
	}
	if c.Beta < 0 {
		bad("beta must be non-negative (got %g)", c.Beta)
	}
	if c.MaxBeta < c.Beta {
		bad("max_beta must be >= beta (got %g < %g)", c.MaxBeta, c.Beta)
	}
	if c.StepBeta < 0 {
		bad("step_beta must be non-negative (got %g)", c.StepBeta)
	}
	if c.ClipNorm <= 0 {
		bad("clip_norm must be positive (got %g)", c.ClipNorm)
	}
	if c.NumWorkers < 0 {
		bad("num_workers must be non-negative (got %d)", c.NumWorkers)
	}
	if c.ChunkSize < 0 {
		bad("chunk_size must be non-negative (got %d)", c.ChunkSize)
	}
	if c.LabelPct <= 0 || c.LabelPct > 1 {
		bad("label_pct must be in (0, 1] (got %g)", c.LabelPct)
	}
	if c.ValPct < 0 || c.TestPct < 0 || c.ValPct+c.TestPct >= 1 {
		bad("val_pct and test_pct must be non-negative and sum below 1 (got %g, %g)", c.ValPct, c.TestPct)
	}
	switch c.CheckpointPrecision {
	case "float32", "float16":
	default:
		bad("checkpoint_precision must be float32 or float16 (got %q)", c.CheckpointPrecision)
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w:\n  %s", ErrInvalid, strings.Join(problems, "\n  "))
	}
	return nil
}
