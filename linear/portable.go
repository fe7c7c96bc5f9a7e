package linear

import (
	"github.com/ezoic/predsql/modelspec"
	predsqlErrors "github.com/ezoic/predsql/pkg/errors"
)

// PortableSpec translates the fitted model into a portable model document.
//
// The features slice names the training matrix columns in order and must
// match the fitted feature count; target names the predicted column. The
// document is validated before it is returned.
func (lr *LinearRegression) PortableSpec(features []string, target string) (modelspec.Spec, error) {
	const op = "LinearRegression.PortableSpec"
	if !lr.State.IsFitted() {
		return nil, predsqlErrors.NewNotFittedError("LinearRegression", "PortableSpec")
	}
	if len(features) != lr.NFeatures {
		return nil, predsqlErrors.NewDimensionError(op, lr.NFeatures, len(features), 1)
	}

	spec := &modelspec.Linear{
		Features:     append([]string{}, features...),
		TargetName:   target,
		Intercept:    lr.Intercept,
		Coefficients: lr.GetWeights(),
	}
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	return spec, nil
}
