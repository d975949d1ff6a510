package main

import (
	"log/slog"

	"github.com/couchcryptid/geomag-nowcast-service/internal/domain"
	"github.com/couchcryptid/geomag-nowcast-service/internal/observability"
	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
	"github.com/spf13/cobra"
)

const (
	defaultDatasetPath  = "ml/data/train_dataset.jsonl"
	defaultRegistryPath = "ml/models/registry.json"
	defaultModelVersion = "unet-baseline-v1"
)

var (
	logLevel string
	logger   *slog.Logger

	inputPath    string
	outputPath   string
	inputSteps   int
	horizonSteps int

	datasetPath  string
	registryPath string
	modelVersion string
	epochs       int

	feedPath             string
	forecastModelVersion string
	horizonMinutes       int

	rootCmd = &cobra.Command{
		Use:          "nowcast",
		Short:        "Batch tooling for the geomagnetic nowcast service",
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			logger = observability.NewLogger(logLevel, "text")
		},
	}

	buildDatasetCmd = &cobra.Command{
		Use:   "build-dataset",
		Short: "Slice a telemetry feed into a JSON Lines training dataset",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := domain.WindowConfig{InputSteps: inputSteps, HorizonSteps: horizonSteps}
			return runBuildDataset(cmd.OutOrStdout(), inputPath, outputPath, cfg, logger)
		},
	}

	trainCmd = &cobra.Command{
		Use:   "train",
		Short: "Fit the baseline model on a dataset and append it to the registry",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runTrain(cmd.OutOrStdout(), trainOptions{
				DatasetPath:  datasetPath,
				RegistryPath: registryPath,
				ModelVersion: modelVersion,
				Epochs:       epochs,
			}, logger)
		},
	}

	modelsCmd = &cobra.Command{
		Use:   "models",
		Short: "Print the model registry",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runModels(cmd.OutOrStdout(), registryPath, logger)
		},
	}

	forecastCmd = &cobra.Command{
		Use:   "forecast",
		Short: "Run the forecast engine on the points of a feed file",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runForecast(cmd.OutOrStdout(), feedPath, forecastModelVersion, horizonMinutes)
		},
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", sharedcfg.EnvOrDefault("LOG_LEVEL", "info"), "log level (debug, info, warn, error)")

	buildDatasetCmd.Flags().StringVar(&inputPath, "input", "", "path to the JSON feed input")
	buildDatasetCmd.Flags().StringVar(&outputPath, "output", "", "path to the dataset JSONL output")
	buildDatasetCmd.Flags().IntVar(&inputSteps, "input-steps", 24, "input timesteps per example")
	buildDatasetCmd.Flags().IntVar(&horizonSteps, "horizon-steps", 12, "forecast timesteps ahead of the window")
	_ = buildDatasetCmd.MarkFlagRequired("input")
	_ = buildDatasetCmd.MarkFlagRequired("output")

	trainCmd.Flags().StringVar(&datasetPath, "dataset", defaultDatasetPath, "path to the dataset JSONL")
	trainCmd.Flags().StringVar(&registryPath, "registry", sharedcfg.EnvOrDefault("REGISTRY_PATH", defaultRegistryPath), "path to the model registry")
	trainCmd.Flags().StringVar(&modelVersion, "model-version", defaultModelVersion, "version recorded for the trained model")
	trainCmd.Flags().IntVar(&epochs, "epochs", 20, "epochs recorded for the trained model")

	modelsCmd.Flags().StringVar(&registryPath, "registry", sharedcfg.EnvOrDefault("REGISTRY_PATH", defaultRegistryPath), "path to the model registry")

	forecastCmd.Flags().StringVar(&feedPath, "feed", "", "path to the JSON feed whose points form the sequence")
	forecastCmd.Flags().IntVar(&horizonMinutes, "horizon", domain.DefaultHorizonMinutes, "forecast horizon in minutes")
	forecastCmd.Flags().StringVar(&forecastModelVersion, "model-version", sharedcfg.EnvOrDefault("MODEL_VERSION", defaultModelVersion), "model version reported in the forecast")
	_ = forecastCmd.MarkFlagRequired("feed")

	rootCmd.AddCommand(buildDatasetCmd, trainCmd, modelsCmd, forecastCmd)
}
