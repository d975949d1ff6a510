package domain

import (
	"math"
	"time"
)

const (
	// StepMinutes is the spacing between forecast steps.
	StepMinutes = 5
	// MaxSteps caps a forecast at two hours.
	MaxSteps = 24
	// DefaultHorizonMinutes applies when a request omits horizonMinutes.
	DefaultHorizonMinutes = 60
)

// Fallbacks the forecast heuristic uses for fields the latest point omits.
// They describe a quiet solar wind, unlike the zero defaults of Features.
const (
	fallbackSpeed   = 400.0
	fallbackDensity = 5.0
	fallbackBz      = 0.0
	fallbackKp      = 2.0
	fallbackNewell  = 0.0
)

// ForecastSteps returns the number of 5-minute predictions for a horizon,
// clamped to [1, MaxSteps].
func ForecastSteps(horizonMinutes int) int {
	return max(1, min(MaxSteps, horizonMinutes/StepMinutes))
}

// ForecastPredictions runs the nowcast heuristic on the most recent point of
// the sequence. An empty sequence is treated as one point with every field
// missing. The result depends only on the latest point, horizonMinutes and now.
func ForecastPredictions(points []TelemetryPoint, horizonMinutes int, now time.Time) []Prediction {
	var latest TelemetryPoint
	if len(points) > 0 {
		latest = points[len(points)-1]
	}

	sw := latest.solarWind()
	b := latest.magneticField()
	idx := latest.indices()
	c := latest.coupling()

	speed := valueOr(sw.Speed, fallbackSpeed)
	density := valueOr(sw.Density, fallbackDensity)
	bz := valueOr(b.Z, fallbackBz)
	kp := valueOr(idx.Kp, fallbackKp)
	newell := valueOr(c.Newell, fallbackNewell)

	// The heuristic holds the drivers constant across the horizon; only
	// confidence and timestamp vary with lead time.
	driver := math.Max(0, -bz)*0.45 + (speed-350)*0.004 + density*0.05 + newell/8000
	perturbation := kp*8 + driver*12
	aurora := clamp((kp/9)*0.7+driver*0.03, 0, 1)

	now = now.UTC()
	steps := ForecastSteps(horizonMinutes)
	predictions := make([]Prediction, 0, steps)
	for i := range steps {
		minutesAhead := (i + 1) * StepMinutes
		predictions = append(predictions, Prediction{
			Timestamp:               now.Add(time.Duration(minutesAhead) * time.Minute),
			GeomagneticPerturbation: perturbation,
			AuroraIntensity:         aurora,
			Confidence:              clamp(0.9-float64(i)*0.02, 0.35, 0.95),
		})
	}
	return predictions
}
