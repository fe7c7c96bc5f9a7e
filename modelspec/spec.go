// Package modelspec defines the portable, backend-agnostic description of a
// fitted regression model.
//
// A model document captures everything needed to reproduce a model's
// predictions outside the process that trained it: feature names, and either
// linear coefficients or a full tree ensemble. Documents are kind-tagged and
// exposed through the Spec capability interface, so consumers (SQL
// generation, scoring, the CLI) never inspect concrete model internals.
//
// Two kinds exist:
//
//   - linear: intercept + per-feature coefficients
//   - tree_ensemble: an init score plus additive regression trees whose
//     leaf values already include any learning-rate scaling
//
// Tree routing follows one convention everywhere: a feature value less than
// or equal to the split threshold goes LEFT, a greater value goes RIGHT, and
// a missing value (NaN) goes by the node's default_left flag. SQL generated
// from a document reproduces exactly this routing.
//
// Documents serialize as YAML (see Encode/Decode) with a versioned envelope,
// making them diffable, hand-editable and readable from any ecosystem:
//
//	format_version: "1.0"
//	kind: linear
//	model:
//	  features: [trip_distance, passenger_count]
//	  target: fare_amount
//	  intercept: 2.5
//	  coefficients: [1.5, -3]
//
// Fitted estimators translate themselves via the Translatable interface:
//
//	spec, err := modelspec.FromModel(reg, []string{"trip_distance"}, "fare_amount")
//	if err != nil {
//		log.Fatal(err)
//	}
//	err = modelspec.WriteFile("model.yaml", spec)
package modelspec

import (
	"github.com/ezoic/predsql/pkg/errors"
)

// Kind tags the variant held by a model document.
type Kind string

const (
	// KindLinear marks a linear model: intercept + coefficients.
	KindLinear Kind = "linear"

	// KindTreeEnsemble marks an additive ensemble of regression trees.
	KindTreeEnsemble Kind = "tree_ensemble"
)

// Spec is the capability interface over all model document kinds.
//
// Predict takes one row of feature values aligned with FeatureNames and
// returns the model's prediction. Implementations assume a document that
// passed Validate.
type Spec interface {
	Kind() Kind
	FeatureNames() []string
	Target() string
	Predict(features []float64) (float64, error)
	Validate() error
}

// Translatable is implemented by fitted estimators that can describe
// themselves as a portable model document. The features slice names the
// training matrix columns in order; target names the predicted column.
type Translatable interface {
	PortableSpec(features []string, target string) (Spec, error)
}

// FromModel translates a fitted estimator into a model document.
//
// Translation is capability-based: the estimator must implement Translatable.
// Anything else yields an UnsupportedModelError carrying the concrete type
// name, so callers can tell exactly which model kind was rejected.
func FromModel(m interface{}, features []string, target string) (Spec, error) {
	t, ok := m.(Translatable)
	if !ok {
		return nil, errors.NewUnsupportedModelError("FromModel", m)
	}
	return t.PortableSpec(features, target)
}

// validFeatures checks the shared feature-list rules.
func validFeatures(op string, features []string) error {
	if len(features) == 0 {
		return errors.Wrapf(errors.ErrInvalidModel, "%s: features are required", op)
	}
	seen := make(map[string]struct{}, len(features))
	for _, f := range features {
		if f == "" {
			return errors.Wrapf(errors.ErrInvalidModel, "%s: empty feature name", op)
		}
		if _, dup := seen[f]; dup {
			return errors.Wrapf(errors.ErrInvalidModel, "%s: duplicate feature %q", op, f)
		}
		seen[f] = struct{}{}
	}
	return nil
}
