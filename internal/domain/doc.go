// Package domain models space-weather telemetry and the nowcast pipeline built
// on it: feature/target extraction, sliding-window datasets, the baseline
// trainer, and the forecast heuristic.
//
// # Data Source
//
// Telemetry arrives as JSON points sampled every few seconds by the upstream
// feed (solar wind plasma and magnetic field from an L1 monitor, plus the
// planetary indices). Batch tooling reads a feed file shaped as
// {"points": [...]}; the stream pipeline reads one point per message.
//
// # Field Conventions
//
//	solarWind.speed     km/s, quiet wind is ~350-450
//	solarWind.density   protons per cm^3
//	magneticField.x/y/z GSM components in nT; southward Bz (negative) drives storms
//	magneticField.bt    total field magnitude in nT
//	electricField.ey    dawn-dusk electric field in mV/m
//	coupling.newell     Newell coupling function
//	coupling.epsilon    Akasofu epsilon parameter
//	indices.kp          planetary K index, 0-9
//	indices.dst         Disturbance Storm Time index in nT, negative during storms
//
// Missing values:
//
//	Any group or field may be absent. Features and Targets read absent values
//	as 0. The forecast heuristic substitutes a quiet-wind point instead
//	(speed 400, density 5, kp 2, Bz 0, Newell 0) so that a sparse request still
//	yields a plausible baseline rather than a storm or a dead calm.
//
// # Dataset Contract
//
// A FeatureVector is always
//
//	[speed, density, bx, by, bz, bt, ey, newell, epsilon, kp, dst]
//
// and a TargetVector is [perturbation, auroraIntensity]. Dataset files are JSON
// Lines of WindowExample in chronological order. Reordering either vector
// invalidates every stored dataset and registry entry.
//
// # Training and Forecasting
//
// Train computes target statistics only (a constant predictor) and its output
// is recorded in the model registry. ForecastPredictions does not read those
// statistics: it applies a fixed heuristic to the latest point. The two paths
// are intentionally independent.
package domain
