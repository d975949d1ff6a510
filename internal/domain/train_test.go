package domain

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func examplesWithTargets(targets ...TargetVector) []WindowExample {
	out := make([]WindowExample, len(targets))
	for i, y := range targets {
		out[i] = WindowExample{Y: y}
	}
	return out
}

func TestTrain_NoData(t *testing.T) {
	for _, examples := range [][]WindowExample{nil, {}} {
		m := Train(examples)

		assert.Nil(t, m.Loss)
		assert.Equal(t, 0, m.Samples)
		assert.Equal(t, "No data", m.Message)
		assert.Nil(t, m.PredictMean)
	}
}

func TestTrain_ConstantTargets(t *testing.T) {
	m := Train(examplesWithTargets(
		TargetVector{42, 0.5},
		TargetVector{42, 0.5},
		TargetVector{42, 0.5},
	))

	require.NotNil(t, m.Loss)
	assert.Equal(t, 0.0, *m.Loss)
	assert.Equal(t, 3, m.Samples)
	require.NotNil(t, m.PredictMean)
	assert.Equal(t, TargetVector{42, 0.5}, *m.PredictMean)
	assert.Empty(t, m.Message)
}

func TestTrain_PopulationVariance(t *testing.T) {
	// y0 = {0, 10}: mean 5, population variance 25.
	// y1 = {0, 1}:  mean 0.5, population variance 0.25.
	m := Train(examplesWithTargets(
		TargetVector{0, 0},
		TargetVector{10, 1},
	))

	require.NotNil(t, m.Loss)
	assert.InDelta(t, math.Sqrt(25.25), *m.Loss, 1e-12)
	assert.Equal(t, 2, m.Samples)
	assert.Equal(t, TargetVector{5, 0.5}, *m.PredictMean)
}

func TestTrain_FromWindows(t *testing.T) {
	examples, err := BuildExamples(makePoints(12), WindowConfig{InputSteps: 2, HorizonSteps: 1})
	require.NoError(t, err)

	m := Train(examples)
	assert.Equal(t, len(examples), m.Samples)
	require.NotNil(t, m.Loss)
	assert.Greater(t, *m.Loss, 0.0)
}
