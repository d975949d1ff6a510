package domain

import (
	"encoding/json"
	"fmt"
	"math"
)

// ParseRawEvent deserializes a stream message value into a TelemetryPoint.
func ParseRawEvent(raw RawEvent) (TelemetryPoint, error) {
	var p TelemetryPoint
	if err := json.Unmarshal(raw.Value, &p); err != nil {
		return TelemetryPoint{}, fmt.Errorf("parse telemetry point: %w: %w", ErrMalformedInput, err)
	}
	return p, nil
}

// Features maps a telemetry point to its model input vector:
//
//	[speed, density, bx, by, bz, bt, ey, newell, epsilon, kp, dst]
//
// Missing groups or fields read as 0. Changing this order invalidates every
// dataset and model built before the change.
func Features(p TelemetryPoint) FeatureVector {
	sw := p.solarWind()
	b := p.magneticField()
	e := p.electricField()
	c := p.coupling()
	i := p.indices()
	return FeatureVector{
		valueOr(sw.Speed, 0),
		valueOr(sw.Density, 0),
		valueOr(b.X, 0),
		valueOr(b.Y, 0),
		valueOr(b.Z, 0),
		valueOr(b.Bt, 0),
		valueOr(e.Ey, 0),
		valueOr(c.Newell, 0),
		valueOr(c.Epsilon, 0),
		valueOr(i.Kp, 0),
		valueOr(i.Dst, 0),
	}
}

// Targets derives the placeholder training targets from the indices:
//
//	perturbation    = max(0, kp*10 - dst*0.1)
//	auroraIntensity = clamp(kp/9 + max(0, -dst)/400, 0, 1)
func Targets(p TelemetryPoint) TargetVector {
	i := p.indices()
	kp := valueOr(i.Kp, 0)
	dst := valueOr(i.Dst, 0)
	perturbation := math.Max(0, kp*10-dst*0.1)
	aurora := clamp(kp/9+math.Max(0, -dst)/400, 0, 1)
	return TargetVector{perturbation, aurora}
}

func (p TelemetryPoint) solarWind() SolarWind {
	if p.SolarWind == nil {
		return SolarWind{}
	}
	return *p.SolarWind
}

func (p TelemetryPoint) magneticField() MagneticField {
	if p.MagneticField == nil {
		return MagneticField{}
	}
	return *p.MagneticField
}

func (p TelemetryPoint) electricField() ElectricField {
	if p.ElectricField == nil {
		return ElectricField{}
	}
	return *p.ElectricField
}

func (p TelemetryPoint) coupling() Coupling {
	if p.Coupling == nil {
		return Coupling{}
	}
	return *p.Coupling
}

func (p TelemetryPoint) indices() Indices {
	if p.Indices == nil {
		return Indices{}
	}
	return *p.Indices
}

func valueOr(v *float64, def float64) float64 {
	if v == nil {
		return def
	}
	return *v
}

func clamp(v, lo, hi float64) float64 {
	return math.Min(hi, math.Max(lo, v))
}
