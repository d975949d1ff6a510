// Package training runs the batch side of the nowcast pipeline: building a
// windowed dataset from a feed file and recording a baseline model in the
// registry.
package training

import (
	"fmt"
	"log/slog"

	"github.com/couchcryptid/geomag-nowcast-service/internal/dataset"
	"github.com/couchcryptid/geomag-nowcast-service/internal/domain"
	"github.com/jonboulle/clockwork"
)

// ModelAppender records a trained model.
type ModelAppender interface {
	Append(record domain.ModelRecord) error
}

// BuildDataset reads the feed at inputPath, slices it into window examples and
// writes them to outputPath. It returns the number of examples written.
func BuildDataset(inputPath, outputPath string, cfg domain.WindowConfig, logger *slog.Logger) (int, error) {
	if err := cfg.Validate(); err != nil {
		return 0, err
	}

	points, err := dataset.LoadFeed(inputPath)
	if err != nil {
		return 0, err
	}

	examples, err := domain.BuildExamples(points, cfg)
	if err != nil {
		return 0, err
	}

	if err := dataset.WriteExamples(outputPath, examples); err != nil {
		return 0, err
	}

	logger.Info("dataset built",
		"input", inputPath,
		"output", outputPath,
		"points", len(points),
		"examples", len(examples),
		"input_steps", cfg.InputSteps,
		"horizon_steps", cfg.HorizonSteps,
	)
	return len(examples), nil
}

// TrainParams describes one training run.
type TrainParams struct {
	DatasetPath  string
	ModelVersion string
	Epochs       int
}

// Trainer fits the baseline model and appends the result to a registry.
type Trainer struct {
	registry ModelAppender
	clock    clockwork.Clock
	logger   *slog.Logger
}

// NewTrainer creates a Trainer. The clock stamps trained_at.
func NewTrainer(registry ModelAppender, clock clockwork.Clock, logger *slog.Logger) *Trainer {
	return &Trainer{registry: registry, clock: clock, logger: logger}
}

// Run trains on the dataset and registers exactly one record, including for
// an empty or missing dataset.
func (t *Trainer) Run(p TrainParams) (domain.ModelRecord, error) {
	examples, err := dataset.ReadExamples(p.DatasetPath)
	if err != nil {
		return domain.ModelRecord{}, err
	}

	// Epochs is recorded for compatibility with gradient-trained models; the
	// baseline makes a single pass.
	metrics := domain.Train(examples)
	record := domain.ModelRecord{
		Version:   p.ModelVersion,
		TrainedAt: t.clock.Now().UTC(),
		Epochs:    p.Epochs,
		Metrics:   metrics,
		Dataset:   p.DatasetPath,
		Status:    domain.ModelStatusReady,
	}

	if err := t.registry.Append(record); err != nil {
		return domain.ModelRecord{}, fmt.Errorf("register model: %w", err)
	}

	if metrics.Loss == nil {
		t.logger.Warn("trained on empty dataset", "dataset", p.DatasetPath, "version", p.ModelVersion)
	} else {
		t.logger.Info("baseline trained",
			"dataset", p.DatasetPath,
			"version", p.ModelVersion,
			"samples", metrics.Samples,
			"loss", *metrics.Loss,
		)
	}
	return record, nil
}
