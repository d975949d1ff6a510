package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/couchcryptid/geomag-nowcast-service/internal/domain"
	"github.com/couchcryptid/geomag-nowcast-service/internal/inference"
	"github.com/google/uuid"
)

// Kafka header names set on every published forecast.
const (
	HeaderModelVersion = "model_version"
	HeaderGeneratedAt  = "generated_at"
)

// NowcastTransformer keeps the most recent telemetry points in arrival order
// and emits a forecast for every point it accepts.
type NowcastTransformer struct {
	service        *inference.Service
	horizonMinutes int
	windowSize     int
	logger         *slog.Logger

	mu     sync.Mutex
	window []domain.TelemetryPoint
}

// NewTransformer creates a NowcastTransformer holding at most windowSize
// points and forecasting horizonMinutes ahead.
func NewTransformer(service *inference.Service, horizonMinutes, windowSize int, logger *slog.Logger) *NowcastTransformer {
	return &NowcastTransformer{
		service:        service,
		horizonMinutes: horizonMinutes,
		windowSize:     max(1, windowSize),
		logger:         logger,
		window:         make([]domain.TelemetryPoint, 0, windowSize),
	}
}

func (t *NowcastTransformer) Transform(_ context.Context, raw domain.RawEvent) (domain.OutputEvent, error) {
	point, err := domain.ParseRawEvent(raw)
	if err != nil {
		return domain.OutputEvent{}, err
	}

	window := t.push(point)
	fc := t.service.Forecast(window, t.horizonMinutes)
	t.logger.Debug("forecast computed",
		"point_timestamp", point.Timestamp,
		"window", len(window),
		"steps", len(fc.Predictions),
	)

	value, err := json.Marshal(fc)
	if err != nil {
		return domain.OutputEvent{}, fmt.Errorf("serialize forecast: %w", err)
	}

	return domain.OutputEvent{
		Key:   []byte(uuid.NewString()),
		Value: value,
		Headers: map[string]string{
			HeaderModelVersion: fc.ModelVersion,
			HeaderGeneratedAt:  fc.GeneratedAt.Format(time.RFC3339),
		},
	}, nil
}

// Window returns a copy of the points currently held.
func (t *NowcastTransformer) Window() []domain.TelemetryPoint {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]domain.TelemetryPoint(nil), t.window...)
}

// push appends p, evicts the oldest points beyond windowSize and returns a
// snapshot of the window.
func (t *NowcastTransformer) push(p domain.TelemetryPoint) []domain.TelemetryPoint {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.window = append(t.window, p)
	if over := len(t.window) - t.windowSize; over > 0 {
		t.window = append(t.window[:0], t.window[over:]...)
	}
	return append([]domain.TelemetryPoint(nil), t.window...)
}
