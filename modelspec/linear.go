package modelspec

import (
	"math"

	"github.com/ezoic/predsql/pkg/errors"
)

// Linear is the portable document for a linear regression model.
//
// Predictions are intercept + dot(coefficients, features), with
// Coefficients[i] applying to Features[i].
type Linear struct {
	Features     []string  `yaml:"features"`
	TargetName   string    `yaml:"target,omitempty"`
	Intercept    float64   `yaml:"intercept"`
	Coefficients []float64 `yaml:"coefficients"`
}

// Kind returns KindLinear.
func (l *Linear) Kind() Kind { return KindLinear }

// FeatureNames returns a copy of the model's feature names in column order.
func (l *Linear) FeatureNames() []string {
	out := make([]string, len(l.Features))
	copy(out, l.Features)
	return out
}

// Target returns the name of the predicted column ("" if unset).
func (l *Linear) Target() string { return l.TargetName }

// Predict computes intercept + dot(coefficients, features) for one row.
func (l *Linear) Predict(features []float64) (float64, error) {
	if len(features) != len(l.Coefficients) {
		return 0, errors.NewDimensionError("Linear.Predict", len(l.Coefficients), len(features), 1)
	}
	sum := l.Intercept
	for i, c := range l.Coefficients {
		sum += c * features[i]
	}
	return sum, nil
}

// Validate checks structural consistency: named features, one coefficient
// per feature, and finite parameters.
func (l *Linear) Validate() error {
	const op = "Linear.Validate"
	if err := validFeatures(op, l.Features); err != nil {
		return err
	}
	if len(l.Coefficients) != len(l.Features) {
		return errors.Wrapf(errors.ErrInvalidModel,
			"%s: %d coefficients for %d features", op, len(l.Coefficients), len(l.Features))
	}
	if !isFinite(l.Intercept) {
		return errors.Wrapf(errors.ErrInvalidModel, "%s: intercept is not finite", op)
	}
	for i, c := range l.Coefficients {
		if !isFinite(c) {
			return errors.Wrapf(errors.ErrInvalidModel,
				"%s: coefficient %d (%s) is not finite", op, i, l.Features[i])
		}
	}
	return nil
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
