package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"github.com/couchcryptid/geomag-nowcast-service/internal/dataset"
	"github.com/couchcryptid/geomag-nowcast-service/internal/domain"
	"github.com/couchcryptid/geomag-nowcast-service/internal/inference"
	"github.com/couchcryptid/geomag-nowcast-service/internal/registry"
	"github.com/couchcryptid/geomag-nowcast-service/internal/training"
	"github.com/jonboulle/clockwork"
)

type trainOptions struct {
	DatasetPath  string
	RegistryPath string
	ModelVersion string
	Epochs       int
}

type trainResult struct {
	OK    bool               `json:"ok"`
	Model domain.ModelRecord `json:"model"`
}

func runBuildDataset(out io.Writer, input, output string, cfg domain.WindowConfig, logger *slog.Logger) error {
	n, err := training.BuildDataset(input, output, cfg, logger)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(out, "Wrote %d examples to %s\n", n, output)
	return err
}

func runTrain(out io.Writer, opts trainOptions, logger *slog.Logger) error {
	reg := registry.NewFileRegistry(opts.RegistryPath, logger)
	trainer := training.NewTrainer(reg, clockwork.NewRealClock(), logger)

	record, err := trainer.Run(training.TrainParams{
		DatasetPath:  opts.DatasetPath,
		ModelVersion: opts.ModelVersion,
		Epochs:       opts.Epochs,
	})
	if err != nil {
		return err
	}
	return printJSON(out, trainResult{OK: true, Model: record})
}

func runModels(out io.Writer, registryPath string, logger *slog.Logger) error {
	doc, err := registry.NewFileRegistry(registryPath, logger).Read()
	if err != nil {
		return err
	}
	return printJSON(out, doc)
}

func runForecast(out io.Writer, feed, version string, horizon int) error {
	points, err := dataset.LoadFeed(feed)
	if err != nil {
		return err
	}
	svc := inference.NewService(version, clockwork.NewRealClock())
	return printJSON(out, svc.Forecast(points, horizon))
}

func printJSON(out io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(out, string(data))
	return err
}
