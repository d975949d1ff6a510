// Package inference turns inference request bodies into forecasts.
package inference

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"

	"github.com/couchcryptid/geomag-nowcast-service/internal/domain"
	"github.com/creasty/defaults"
	"github.com/jonboulle/clockwork"
)

// Request is the POST /infer body. Both fields are optional; a null
// horizonMinutes is treated as absent.
type Request struct {
	HorizonMinutes *int                    `json:"horizonMinutes" default:"60"`
	Sequence       []domain.TelemetryPoint `json:"sequence"`
}

// RequestError is any failure while decoding or computing a request. The HTTP
// layer renders it as 400 {"error": Message}.
type RequestError struct {
	Message string
	Err     error
}

func (e *RequestError) Error() string { return e.Message }

func (e *RequestError) Unwrap() error { return e.Err }

func newRequestError(err error) *RequestError {
	return &RequestError{Message: err.Error(), Err: err}
}

// Service runs the forecast engine for one model version.
type Service struct {
	modelVersion string
	clock        clockwork.Clock
}

// NewService creates a Service reporting modelVersion in every forecast.
func NewService(modelVersion string, clock clockwork.Clock) *Service {
	return &Service{modelVersion: modelVersion, clock: clock}
}

// ModelVersion returns the configured model version.
func (s *Service) ModelVersion() string { return s.modelVersion }

// DecodeRequest parses and defaults a request body. Errors are *RequestError.
func DecodeRequest(body []byte) (Request, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return Request{}, newRequestError(fmt.Errorf("%w: request body must be a JSON object", domain.ErrMalformedInput))
	}

	var req Request
	if err := json.Unmarshal(trimmed, &req); err != nil {
		return Request{}, newRequestError(fmt.Errorf("%w: %w", domain.ErrMalformedInput, err))
	}
	if err := defaults.Set(&req); err != nil {
		return Request{}, newRequestError(err)
	}
	return req, nil
}

// Infer decodes body and forecasts from its sequence. Inputs large enough to
// overflow the forecast are rejected with a *RequestError.
func (s *Service) Infer(body []byte) (domain.Forecast, error) {
	req, err := DecodeRequest(body)
	if err != nil {
		return domain.Forecast{}, err
	}
	fc := s.Forecast(req.Sequence, *req.HorizonMinutes)
	if err := checkFinite(fc); err != nil {
		return domain.Forecast{}, newRequestError(err)
	}
	return fc, nil
}

func checkFinite(fc domain.Forecast) error {
	for _, p := range fc.Predictions {
		for _, v := range []float64{p.GeomagneticPerturbation, p.AuroraIntensity, p.Confidence} {
			if math.IsInf(v, 0) || math.IsNaN(v) {
				return fmt.Errorf("%w: inputs out of range, forecast is not finite", domain.ErrMalformedInput)
			}
		}
	}
	return nil
}

// Forecast runs the engine at the clock's current time.
func (s *Service) Forecast(sequence []domain.TelemetryPoint, horizonMinutes int) domain.Forecast {
	now := s.clock.Now().UTC()
	return domain.Forecast{
		ModelVersion:   s.modelVersion,
		GeneratedAt:    now,
		HorizonMinutes: horizonMinutes,
		Predictions:    domain.ForecastPredictions(sequence, horizonMinutes, now),
	}
}
