package domain

import "math"

// NoDataMessage is reported by Train when it receives no examples.
const NoDataMessage = "No data"

// Train fits the constant-predictor baseline: the per-component mean of the
// targets. The reported loss is sqrt(var0 + var1) using population variance
// (divisor N), i.e. the RMS distance of the targets from that constant
// prediction. It is a dispersion statistic of the data, not the error of a
// fitted model, and should not be compared with supervised training losses.
func Train(examples []WindowExample) ModelMetrics {
	if len(examples) == 0 {
		return ModelMetrics{Loss: nil, Samples: 0, Message: NoDataMessage}
	}

	n := float64(len(examples))
	var sum0, sum1 float64
	for _, ex := range examples {
		sum0 += ex.Y[0]
		sum1 += ex.Y[1]
	}
	mean0 := sum0 / n
	mean1 := sum1 / n

	var ss0, ss1 float64
	for _, ex := range examples {
		d0 := ex.Y[0] - mean0
		d1 := ex.Y[1] - mean1
		ss0 += d0 * d0
		ss1 += d1 * d1
	}

	loss := math.Sqrt(ss0/n + ss1/n)
	return ModelMetrics{
		Loss:        &loss,
		Samples:     len(examples),
		PredictMean: &TargetVector{mean0, mean1},
	}
}
