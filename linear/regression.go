// Package linear fits ordinary least squares models and connects them to
// the rest of the export pipeline.
//
// LinearRegression solves the normal equations over a bias-augmented design
// matrix, which is plenty for the handful of features that survive
// correlation pruning. A fitted model can
//
//   - predict in memory (Predict),
//   - report its R² against held-out data (Score),
//   - round-trip through the scikit-learn JSON interchange
//     (ExportToSKLearn / LoadFromSKLearn), and
//   - translate into a portable model document for SQL generation
//     (PortableSpec).
//
// Typical use:
//
//	lr := linear.NewLinearRegression()
//	if err := lr.Fit(X, y); err != nil {
//		return err
//	}
//	doc, err := lr.PortableSpec([]string{"trip_distance"}, "fare_amount")
package linear

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"io"
	"os"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/ezoic/predsql/core/model"
	"github.com/ezoic/predsql/core/parallel"
	"github.com/ezoic/predsql/metrics"
	predsqlErrors "github.com/ezoic/predsql/pkg/errors"
	"github.com/ezoic/predsql/pkg/log"
)

// LinearRegression is an ordinary least squares model.
type LinearRegression struct {
	State     *model.StateManager // fitted-state tracking; public for gob encoding
	Weights   *mat.VecDense       // learned coefficients, one per feature
	Intercept float64
	NFeatures int
	logger    log.Logger
}

// NewLinearRegression returns an untrained model. Call Fit before Predict,
// Score or PortableSpec.
func NewLinearRegression() *LinearRegression {
	lr := &LinearRegression{
		State: model.NewStateManager(),
	}

	lr.logger = log.GetLoggerWithName("linear").With(
		log.ModelNameKey, "LinearRegression",
		log.ComponentKey, "linear",
	)

	return lr
}

// withBias returns X with a leading column of ones, so the intercept can be
// solved as just another coefficient. The copy is parallelized once the row
// count crosses parallelThreshold.
func withBias(X mat.Matrix, r, c int) *mat.Dense {
	const parallelThreshold = 1000

	design := mat.NewDense(r, c+1, nil)
	parallel.ParallelizeWithThreshold(r, parallelThreshold, func(start, end int) {
		for i := start; i < end; i++ {
			design.Set(i, 0, 1.0)
			for j := 0; j < c; j++ {
				design.Set(i, j+1, X.At(i, j))
			}
		}
	})
	return design
}

// Fit estimates weights and intercept from training data by solving the
// normal equations (X^T X) w = X^T y over the bias-augmented design matrix.
//
// X has one row per sample and one column per feature; y must be a column
// of matching height. On success the model reports IsFitted.
//
// Errors:
//   - ErrEmptyData: X has no rows or no columns
//   - DimensionError: X and y disagree on the sample count
//   - ValueError: y is not a single column
//   - ErrSingularMatrix: X^T X cannot be inverted (collinear features)
func (lr *LinearRegression) Fit(X, y mat.Matrix) (err error) {
	defer predsqlErrors.Recover(&err, "LinearRegression.Fit")

	start := time.Now()
	r, c := X.Dims()
	ry, cy := y.Dims()

	if lr.logger != nil {
		lr.logger.Info("Training started",
			log.OperationKey, log.OperationFit,
			log.PhaseKey, log.PhaseTraining,
			log.SamplesKey, r,
			log.FeaturesKey, c,
		)
	}

	if r == 0 || c == 0 {
		return predsqlErrors.NewModelError("LinearRegression.Fit", "empty data", predsqlErrors.ErrEmptyData)
	}
	if ry != r {
		return predsqlErrors.NewDimensionError("LinearRegression.Fit", r, ry, 0)
	}
	if cy != 1 {
		return predsqlErrors.NewValueError("LinearRegression.Fit", "y must be a column vector")
	}

	lr.NFeatures = c

	design := withBias(X, r, c)

	var designT mat.Dense
	designT.CloneFrom(design.T())

	var gram mat.Dense
	gram.Mul(&designT, design)

	var gramInv mat.Dense
	if err := gramInv.Inverse(&gram); err != nil {
		return predsqlErrors.NewModelError("LinearRegression.Fit", "singular matrix", predsqlErrors.ErrSingularMatrix)
	}

	target := mat.NewVecDense(r, mat.Col(nil, 0, y))

	var moment mat.VecDense
	moment.MulVec(&designT, target)

	solved := mat.NewVecDense(c+1, nil)
	solved.MulVec(&gramInv, &moment)

	// The bias column sits first, so entry 0 is the intercept.
	lr.Intercept = solved.AtVec(0)
	lr.Weights = mat.NewVecDense(c, nil)
	for j := 0; j < c; j++ {
		lr.Weights.SetVec(j, solved.AtVec(j+1))
	}

	lr.State.SetFitted()
	lr.State.SetDimensions(lr.NFeatures, r)

	if lr.logger != nil {
		lr.logger.Info("Training completed",
			log.OperationKey, log.OperationFit,
			log.PhaseKey, log.PhaseTraining,
			log.DurationMsKey, time.Since(start).Milliseconds(),
			log.SamplesKey, r,
			log.FeaturesKey, c,
		)
	}

	return nil
}

// Predict scores each row of X as X*w + intercept and returns the results
// as an n×1 matrix.
//
// Errors:
//   - NotFittedError: Fit has not completed
//   - DimensionError: X's column count differs from the fitted feature count
func (lr *LinearRegression) Predict(X mat.Matrix) (_ mat.Matrix, err error) {
	defer predsqlErrors.Recover(&err, "LinearRegression.Predict")
	if !lr.State.IsFitted() {
		return nil, predsqlErrors.NewNotFittedError("LinearRegression", "Predict")
	}

	r, c := X.Dims()
	if c != lr.NFeatures {
		return nil, predsqlErrors.NewDimensionError("LinearRegression.Predict", lr.NFeatures, c, 1)
	}

	if lr.logger != nil {
		lr.logger.Debug("Prediction started",
			log.OperationKey, log.OperationPredict,
			log.PhaseKey, log.PhaseInference,
			log.SamplesKey, r,
			log.FeaturesKey, c,
		)
	}

	var scores mat.VecDense
	scores.MulVec(X, lr.Weights)

	out := mat.NewDense(r, 1, nil)
	for i := 0; i < r; i++ {
		out.Set(i, 0, scores.AtVec(i)+lr.Intercept)
	}

	if lr.logger != nil {
		lr.logger.Debug("Prediction completed",
			log.OperationKey, log.OperationPredict,
			log.PredsKey, r,
		)
	}

	return out, nil
}

// GetWeights returns the learned coefficients as a plain slice, or nil on
// an untrained model.
func (lr *LinearRegression) GetWeights() []float64 {
	if lr.Weights == nil {
		return nil
	}

	weights := make([]float64, lr.Weights.Len())
	for i := range weights {
		weights[i] = lr.Weights.AtVec(i)
	}
	return weights
}

// GetIntercept returns the learned intercept, or 0 on an untrained model.
func (lr *LinearRegression) GetIntercept() float64 {
	if !lr.State.IsFitted() {
		return 0
	}
	return lr.Intercept
}

// Score returns the R² of the model's predictions against y. It delegates
// to metrics.R2Score, so a constant target yields the same zero-variance
// error.
func (lr *LinearRegression) Score(X, y mat.Matrix) (_ float64, err error) {
	defer predsqlErrors.Recover(&err, "LinearRegression.Score")
	if !lr.State.IsFitted() {
		return 0, predsqlErrors.NewNotFittedError("LinearRegression", "Score")
	}

	yPred, err := lr.Predict(X)
	if err != nil {
		return 0, err
	}

	r, _ := y.Dims()
	observed := mat.NewVecDense(r, mat.Col(nil, 0, y))
	predicted := mat.NewVecDense(r, mat.Col(nil, 0, yPred))

	return metrics.R2Score(observed, predicted)
}

// LoadFromSKLearn loads model parameters from a scikit-learn interchange
// JSON file, leaving the model fitted.
func (lr *LinearRegression) LoadFromSKLearn(filename string) (err error) {
	defer predsqlErrors.Recover(&err, "LinearRegression.LoadFromSKLearn")
	skModel, err := model.LoadSKLearnModelFromFile(filename)
	if err != nil {
		return err
	}

	return lr.applySKLearn(skModel)
}

// LoadFromSKLearnReader loads scikit-learn interchange JSON from r. The
// envelope and parameters are validated; malformed documents wrap
// ErrInvalidModel.
func (lr *LinearRegression) LoadFromSKLearnReader(r io.Reader) (err error) {
	defer predsqlErrors.Recover(&err, "LinearRegression.LoadFromSKLearnReader")
	skModel, err := model.LoadSKLearnModelFromReader(r)
	if err != nil {
		return fmt.Errorf("failed to load sklearn model: %w", err)
	}

	return lr.applySKLearn(skModel)
}

// applySKLearn installs decoded interchange parameters on the receiver.
func (lr *LinearRegression) applySKLearn(skModel *model.SKLearnModel) error {
	params, err := model.LoadLinearRegressionParams(skModel)
	if err != nil {
		return fmt.Errorf("failed to load linear regression params: %w", err)
	}

	lr.NFeatures = params.NFeatures
	lr.Intercept = params.Intercept
	lr.Weights = mat.NewVecDense(len(params.Coefficients), params.Coefficients)

	lr.State.SetFitted()
	// The interchange format does not carry the training sample count.
	lr.State.SetDimensions(lr.NFeatures, 0)

	return nil
}

// ExportToSKLearn writes the fitted model to filename in scikit-learn
// interchange JSON.
func (lr *LinearRegression) ExportToSKLearn(filename string) (err error) {
	defer predsqlErrors.Recover(&err, "LinearRegression.ExportToSKLearn")
	if !lr.State.IsFitted() {
		return predsqlErrors.NewNotFittedError("LinearRegression", "ExportToSKLearn")
	}

	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer func() { _ = file.Close() }()

	return lr.ExportToSKLearnWriter(file)
}

// ExportToSKLearnWriter writes the fitted model to w in scikit-learn
// interchange JSON.
func (lr *LinearRegression) ExportToSKLearnWriter(w io.Writer) (err error) {
	defer predsqlErrors.Recover(&err, "LinearRegression.ExportToSKLearnWriter")
	if !lr.State.IsFitted() {
		return predsqlErrors.NewNotFittedError("LinearRegression", "ExportToSKLearnWriter")
	}

	params := model.SKLearnLinearRegressionParams{
		Coefficients: lr.GetWeights(),
		Intercept:    lr.Intercept,
		NFeatures:    lr.NFeatures,
	}

	return model.ExportSKLearnModel("LinearRegression", params, w)
}

// IsFitted reports whether Fit (or a successful load) has completed.
func (lr *LinearRegression) IsFitted() bool {
	return lr.State.IsFitted()
}

// GetParams returns the model's hyperparameters.
func (lr *LinearRegression) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"n_features": lr.NFeatures,
		"fitted":     lr.State.IsFitted(),
	}
}

// SetParams sets the model's hyperparameters. Ordinary least squares has
// none, so this is a no-op kept for estimator surface parity.
func (lr *LinearRegression) SetParams(params map[string]interface{}) error {
	return nil
}

// linearRegressionSnapshot is the gob wire form. mat.VecDense has no
// exported fields, so weights travel as a plain slice.
type linearRegressionSnapshot struct {
	Weights   []float64
	Intercept float64
	NFeatures int
	NSamples  int
	Fitted    bool
}

// GobEncode implements gob.GobEncoder for model persistence.
func (lr *LinearRegression) GobEncode() ([]byte, error) {
	snap := linearRegressionSnapshot{
		Intercept: lr.Intercept,
		NFeatures: lr.NFeatures,
	}
	if lr.State != nil && lr.State.IsFitted() {
		snap.Fitted = true
		snap.Weights = lr.GetWeights()
		snap.NSamples = lr.State.NSamples()
	}

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(&snap); err != nil {
		return nil, fmt.Errorf("failed to encode model state: %w", err)
	}
	return buf.Bytes(), nil
}

// GobDecode implements gob.GobDecoder for model persistence.
func (lr *LinearRegression) GobDecode(data []byte) error {
	var snap linearRegressionSnapshot
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&snap); err != nil {
		return fmt.Errorf("failed to decode model state: %w", err)
	}

	lr.State = model.NewStateManager()
	lr.logger = log.GetLoggerWithName("linear").With(
		log.ModelNameKey, "LinearRegression",
		log.ComponentKey, "linear",
	)
	lr.Intercept = snap.Intercept
	lr.NFeatures = snap.NFeatures
	lr.Weights = nil

	if snap.Fitted {
		lr.Weights = mat.NewVecDense(len(snap.Weights), snap.Weights)
		lr.State.SetFitted()
		lr.State.SetDimensions(snap.NFeatures, snap.NSamples)
	}
	return nil
}
