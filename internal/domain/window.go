package domain

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// WindowConfig sizes the sliding window used to build training examples.
type WindowConfig struct {
	InputSteps   int `validate:"gt=0"`
	HorizonSteps int `validate:"gt=0"`
}

// Validate rejects non-positive step counts with ErrInvalidWindowConfig.
func (c WindowConfig) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: input_steps=%d horizon_steps=%d: %w",
			ErrInvalidWindowConfig, c.InputSteps, c.HorizonSteps, err)
	}
	return nil
}

// BuildExamples slices points into (context window -> future target) examples.
//
// For every end in [InputSteps, len(points)-HorizonSteps) the context is
// points[end-InputSteps:end] and the target comes from
// points[end+HorizonSteps-1]. Examples are returned in increasing end order, so
// dataset files built from the same feed are byte-identical. A feed too short
// to hold one window yields no examples and no error.
func BuildExamples(points []TelemetryPoint, cfg WindowConfig) ([]WindowExample, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	n := len(points) - cfg.InputSteps - cfg.HorizonSteps
	if n <= 0 {
		return []WindowExample{}, nil
	}

	examples := make([]WindowExample, 0, n)
	for end := cfg.InputSteps; end < len(points)-cfg.HorizonSteps; end++ {
		x := make([]FeatureVector, 0, cfg.InputSteps)
		for _, p := range points[end-cfg.InputSteps : end] {
			x = append(x, Features(p))
		}
		future := points[end+cfg.HorizonSteps-1]
		examples = append(examples, WindowExample{
			X:         x,
			Y:         Targets(future),
			Timestamp: future.Timestamp,
		})
	}
	return examples, nil
}
