// Package config loads the JSON configuration shared by the CLI and the MCP
// server.
//
// A config file only needs the fields it changes: Load starts from Default
// and overlays the file, so omitted fields keep their defaults.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ironsheep/fovea-tools-mcp/internal/dataset"
	"github.com/ironsheep/fovea-tools-mcp/internal/evaluation"
	"github.com/ironsheep/fovea-tools-mcp/internal/geometry"
	"github.com/ironsheep/fovea-tools-mcp/internal/heatmap"
	"github.com/ironsheep/fovea-tools-mcp/internal/predict"
)

// Estimator kinds.
const (
	EstimatorDarkness   = "darkness"
	EstimatorHeatmapDir = "heatmap_dir"
)

const maxFileSize = 1 * 1024 * 1024

// DecoderConfig selects the heatmap decoding strategy.
type DecoderConfig struct {
	Strategy  string  `json:"strategy"`
	Threshold float64 `json:"threshold"`
}

// EstimatorConfig selects what produces predicted heatmaps.
type EstimatorConfig struct {
	// Kind is "darkness" for the built-in baseline or "heatmap_dir" to read
	// precomputed PNG heatmaps from HeatmapDir.
	Kind           string  `json:"kind"`
	HeatmapDir     string  `json:"heatmap_dir,omitempty"`
	BlurRadius     float64 `json:"blur_radius"`
	FieldThreshold float64 `json:"field_threshold"`
}

// Config is the root configuration.
type Config struct {
	Annotations []string        `json:"annotations"`
	ImagesDir   string          `json:"images_dir"`
	Geometry    geometry.Config `json:"geometry"`
	Decoder     DecoderConfig   `json:"decoder"`
	Estimator   EstimatorConfig `json:"estimator"`

	Mode      string `json:"mode"`
	Seed      uint64 `json:"seed"`
	Workers   int    `json:"workers"`
	BatchSize int    `json:"batch_size"`

	// RefineHalfSize enables a second prediction pass on a window of side
	// 2*RefineHalfSize around the first estimate. Zero disables it.
	RefineHalfSize int `json:"refine_half_size"`

	// Database is the SQLite file evaluation runs are stored in. Empty
	// disables persistence.
	Database string `json:"database,omitempty"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Geometry: geometry.Config{
			InputSize:    geometry.Size{Width: 512, Height: 512},
			OutputStride: 4,
			KernelSize:   7,
		},
		Decoder: DecoderConfig{Strategy: heatmap.ArgmaxName, Threshold: 0.5},
		Estimator: EstimatorConfig{
			Kind:           EstimatorDarkness,
			BlurRadius:     8,
			FieldThreshold: 0.06,
		},
		Mode:      string(dataset.ModeEval),
		Workers:   dataset.DefaultWorkers,
		BatchSize: 16,
	}
}

// Load reads the JSON file at path over Default and validates the result.
func Load(path string) (*Config, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	info, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if info.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", info.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}
	cfg.resolvePaths(filepath.Dir(cleanPath))

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// resolvePaths makes relative file paths relative to the config file.
func (c *Config) resolvePaths(base string) {
	abs := func(p string) string {
		if p == "" || filepath.IsAbs(p) || p == ":memory:" {
			return p
		}
		return filepath.Join(base, p)
	}
	for i, a := range c.Annotations {
		c.Annotations[i] = abs(a)
	}
	c.ImagesDir = abs(c.ImagesDir)
	c.Estimator.HeatmapDir = abs(c.Estimator.HeatmapDir)
	c.Database = abs(c.Database)
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs []error
	if err := c.Geometry.Validate(); err != nil {
		errs = append(errs, err)
	}
	if _, err := c.NewDecoder(); err != nil {
		errs = append(errs, err)
	}
	if _, err := dataset.ParseMode(c.Mode); err != nil {
		errs = append(errs, err)
	}
	if c.Workers < 0 {
		errs = append(errs, fmt.Errorf("workers %d must not be negative", c.Workers))
	}
	if c.BatchSize < 0 {
		errs = append(errs, fmt.Errorf("batch_size %d must not be negative", c.BatchSize))
	}
	if c.RefineHalfSize < 0 {
		errs = append(errs, fmt.Errorf("refine_half_size %d must not be negative", c.RefineHalfSize))
	}

	switch strings.ToLower(c.Estimator.Kind) {
	case EstimatorDarkness:
		if c.Estimator.BlurRadius < 0 {
			errs = append(errs, fmt.Errorf("estimator blur_radius %v must not be negative", c.Estimator.BlurRadius))
		}
		if c.Estimator.FieldThreshold < 0 || c.Estimator.FieldThreshold >= 1 {
			errs = append(errs, fmt.Errorf("estimator field_threshold %v must be in [0, 1)", c.Estimator.FieldThreshold))
		}
	case EstimatorHeatmapDir:
		if c.Estimator.HeatmapDir == "" {
			errs = append(errs, errors.New("estimator heatmap_dir is required for kind heatmap_dir"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown estimator kind: %s", c.Estimator.Kind))
	}
	return errors.Join(errs...)
}

// NewDecoder builds the configured decoding strategy.
func (c *Config) NewDecoder() (heatmap.Decoder, error) {
	return heatmap.NewDecoder(c.Decoder.Strategy, c.Decoder.Threshold)
}

// NewEstimator builds the configured estimator. Precomputed heatmap
// directories are only usable for evaluation and have no estimator.
func (c *Config) NewEstimator() (predict.Estimator, error) {
	if strings.ToLower(c.Estimator.Kind) != EstimatorDarkness {
		return nil, fmt.Errorf("estimator kind %q cannot predict on new images", c.Estimator.Kind)
	}
	return predict.DarknessEstimator{
		OutputStride:   c.Geometry.OutputStride,
		BlurRadius:     c.Estimator.BlurRadius,
		FieldThreshold: c.Estimator.FieldThreshold,
	}, nil
}

// NewAugmenter returns the augmentation policy for the configured mode.
func (c *Config) NewAugmenter() (dataset.Augmenter, error) {
	mode, err := dataset.ParseMode(c.Mode)
	if err != nil {
		return nil, err
	}
	return dataset.DefaultAugmenter(mode, c.Seed), nil
}

// OpenDataset loads the configured annotation tables and image directory.
func (c *Config) OpenDataset() (*dataset.Dataset, error) {
	if len(c.Annotations) == 0 {
		return nil, errors.New("no annotation tables configured")
	}
	if c.ImagesDir == "" {
		return nil, errors.New("no images_dir configured")
	}
	aug, err := c.NewAugmenter()
	if err != nil {
		return nil, err
	}
	return dataset.Open(c.Geometry, c.ImagesDir, c.Annotations, dataset.WithAugmenter(aug))
}

// OpenEvaluationDataset opens the configured dataset without augmentation,
// whatever the configured mode, so targets stay aligned with predictions.
func (c *Config) OpenEvaluationDataset() (*dataset.Dataset, error) {
	eval := *c
	eval.Mode = string(dataset.ModeEval)
	return eval.OpenDataset()
}

// NewPredictor builds a predictor from the configured geometry, estimator
// and decoder.
func (c *Config) NewPredictor() (*predict.Predictor, error) {
	est, err := c.NewEstimator()
	if err != nil {
		return nil, err
	}
	dec, err := c.NewDecoder()
	if err != nil {
		return nil, err
	}
	return predict.New(c.Geometry, est, dec)
}

// NewScorer returns what evaluation compares targets against: precomputed
// heatmaps for kind heatmap_dir, otherwise the configured estimator.
func (c *Config) NewScorer() (evaluation.Scorer, error) {
	if strings.ToLower(c.Estimator.Kind) == EstimatorHeatmapDir {
		return evaluation.DirScorer{Dir: c.Estimator.HeatmapDir}, nil
	}
	est, err := c.NewEstimator()
	if err != nil {
		return nil, err
	}
	return evaluation.EstimatorScorer{Estimator: est}, nil
}

// EvaluationOptions returns the run options for the configured batching.
func (c *Config) EvaluationOptions(notes string) evaluation.Options {
	return evaluation.Options{BatchSize: c.BatchSize, Workers: c.Workers, Notes: notes}
}
