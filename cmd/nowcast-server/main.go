// Command nowcast-server serves the inference API and, when STREAM_ENABLED is
// true, runs the Kafka telemetry -> forecast stream alongside it.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	httpadapter "github.com/couchcryptid/geomag-nowcast-service/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/geomag-nowcast-service/internal/adapter/kafka"
	"github.com/couchcryptid/geomag-nowcast-service/internal/config"
	"github.com/couchcryptid/geomag-nowcast-service/internal/inference"
	"github.com/couchcryptid/geomag-nowcast-service/internal/observability"
	"github.com/couchcryptid/geomag-nowcast-service/internal/pipeline"
	"github.com/couchcryptid/geomag-nowcast-service/internal/registry"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/jonboulle/clockwork"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()
	clock := clockwork.NewRealClock()

	reg := registry.NewFileRegistry(cfg.RegistryPath, logger)
	svc := inference.NewService(cfg.ModelVersion, clock)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Readiness requires a readable registry and, when streaming, a published forecast.
	checks := readinessChecks{reg}

	var stream *streamRunner
	if cfg.StreamEnabled {
		stream = newStreamRunner(cfg, svc, clock, logger, metrics)
		checks = append(checks, stream.pipeline)
		logger.Info("stream pipeline enabled",
			"source_topic", cfg.KafkaSourceTopic,
			"sink_topic", cfg.KafkaSinkTopic,
			"window_size", cfg.StreamWindowSize,
			"horizon_minutes", cfg.StreamHorizonMinutes,
		)
	} else {
		logger.Info("stream pipeline disabled")
	}

	srv := httpadapter.NewServer(cfg.HTTPAddr, svc, checks, metrics, logger)

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
			stop()
		}
	}()

	if stream != nil {
		go func() {
			if err := stream.pipeline.Run(ctx); err != nil {
				logger.Error("pipeline error", "error", err)
			}
		}()
	}

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if stream != nil {
		stream.close(logger)
	}

	logger.Info("shutdown complete")
}

type streamRunner struct {
	reader   *kafkaadapter.Reader
	writer   *kafkaadapter.Writer
	pipeline *pipeline.Pipeline
}

func newStreamRunner(cfg *config.Config, svc *inference.Service, clock clockwork.Clock, logger *slog.Logger, metrics *observability.Metrics) *streamRunner {
	reader := kafkaadapter.NewReader(cfg, logger)
	writer := kafkaadapter.NewWriter(cfg, logger)
	transformer := pipeline.NewTransformer(svc, cfg.StreamHorizonMinutes, cfg.StreamWindowSize, logger)
	return &streamRunner{
		reader:   reader,
		writer:   writer,
		pipeline: pipeline.New(reader, transformer, writer, clock, logger, metrics, cfg.BatchSize),
	}
}

func (s *streamRunner) close(logger *slog.Logger) {
	if err := s.reader.Close(); err != nil {
		logger.Error("kafka reader close error", "error", err)
	}
	if err := s.writer.Close(); err != nil {
		logger.Error("kafka writer close error", "error", err)
	}
}

// readinessChecks is ready when every check is.
type readinessChecks []sharedobs.ReadinessChecker

func (c readinessChecks) CheckReadiness(ctx context.Context) error {
	for _, check := range c {
		if err := check.CheckReadiness(ctx); err != nil {
			return err
		}
	}
	return nil
}
