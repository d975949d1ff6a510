package domain

import (
	"context"
	"time"
)

// SolarWind holds upstream solar wind plasma measurements.
type SolarWind struct {
	Speed   *float64 `json:"speed,omitempty"`   // km/s
	Density *float64 `json:"density,omitempty"` // protons/cm^3
}

// MagneticField holds the interplanetary magnetic field in GSM coordinates (nT).
type MagneticField struct {
	X  *float64 `json:"x,omitempty"`
	Y  *float64 `json:"y,omitempty"`
	Z  *float64 `json:"z,omitempty"`
	Bt *float64 `json:"bt,omitempty"`
}

// ElectricField holds the dawn-dusk interplanetary electric field (mV/m).
type ElectricField struct {
	Ey *float64 `json:"ey,omitempty"`
}

// Coupling holds solar wind-magnetosphere coupling functions.
type Coupling struct {
	Newell  *float64 `json:"newell,omitempty"`
	Epsilon *float64 `json:"epsilon,omitempty"`
}

// Indices holds the planetary geomagnetic indices.
type Indices struct {
	Kp  *float64 `json:"kp,omitempty"`
	Dst *float64 `json:"dst,omitempty"` // nT, negative during storms
}

// TelemetryPoint is one timestamped space-weather observation. Every group and
// every numeric field is optional; nil means "not reported", which lets callers
// apply their own defaults.
type TelemetryPoint struct {
	Timestamp     string         `json:"timestamp,omitempty"`
	SolarWind     *SolarWind     `json:"solarWind,omitempty"`
	MagneticField *MagneticField `json:"magneticField,omitempty"`
	ElectricField *ElectricField `json:"electricField,omitempty"`
	Coupling      *Coupling      `json:"coupling,omitempty"`
	Indices       *Indices       `json:"indices,omitempty"`
}

// Feed is the canonical on-disk telemetry feed: {"points": [...]}.
type Feed struct {
	Points []TelemetryPoint `json:"points"`
}

// FeatureVectorLen is the number of model input features per telemetry point.
const FeatureVectorLen = 11

// FeatureVector is the fixed-order model input for one telemetry point.
// The order is part of the dataset contract; see Features.
type FeatureVector [FeatureVectorLen]float64

// TargetVector is [perturbation, auroraIntensity].
type TargetVector [2]float64

// WindowExample is one supervised training example: a context window of
// feature vectors and the target observed horizonSteps after the window.
type WindowExample struct {
	X         []FeatureVector `json:"x"`
	Y         TargetVector    `json:"y"`
	Timestamp string          `json:"timestamp"`
}

// ModelMetrics summarizes a baseline training run. A nil Loss means the run
// saw no data; it is not a numeric failure.
type ModelMetrics struct {
	Loss        *float64      `json:"loss"`
	Samples     int           `json:"samples"`
	PredictMean *TargetVector `json:"predict_mean,omitempty"`
	Message     string        `json:"message,omitempty"`
}

// ModelStatusReady is the only status the baseline trainer writes.
const ModelStatusReady = "ready"

// ModelRecord is one entry in the model registry. Versions are not unique:
// retraining under the same version appends another record.
type ModelRecord struct {
	Version   string       `json:"version"`
	TrainedAt time.Time    `json:"trained_at"`
	Epochs    int          `json:"epochs"`
	Metrics   ModelMetrics `json:"metrics"`
	Dataset   string       `json:"dataset"`
	Status    string       `json:"status"`
}

// Prediction is one step of a forecast.
type Prediction struct {
	Timestamp               time.Time `json:"timestamp"`
	GeomagneticPerturbation float64   `json:"geomagneticPerturbation"`
	AuroraIntensity         float64   `json:"auroraIntensity"`
	Confidence              float64   `json:"confidence"`
}

// Forecast is the envelope returned to inference clients.
type Forecast struct {
	ModelVersion   string       `json:"modelVersion"`
	GeneratedAt    time.Time    `json:"generatedAt"`
	HorizonMinutes int          `json:"horizonMinutes"`
	Predictions    []Prediction `json:"predictions"`
}

// RawEvent represents an unprocessed telemetry message from the stream source.
type RawEvent struct {
	Key       []byte
	Value     []byte
	Headers   map[string]string
	Topic     string
	Partition int
	Offset    int64
	Timestamp time.Time
	Commit    func(ctx context.Context) error
}

// OutputEvent is the serialized form destined for the forecast sink.
type OutputEvent struct {
	Key     []byte
	Value   []byte
	Headers map[string]string
}
