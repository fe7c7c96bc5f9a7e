package boost

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/ezoic/predsql/core/model"
	"github.com/ezoic/predsql/metrics"
	"github.com/ezoic/predsql/modelspec"
	predsqlErrors "github.com/ezoic/predsql/pkg/errors"
	"github.com/ezoic/predsql/pkg/log"
)

// Regressor is a gradient-boosted tree regressor with a builder-style
// configuration API.
//
// Hyperparameters are adjusted through the With* methods before Fit:
//
//	reg := boost.NewRegressor().
//		WithNumIterations(200).
//		WithLearningRate(0.05).
//		WithMaxDepth(4)
type Regressor struct {
	state  *model.StateManager
	logger log.Logger

	// Params holds the training hyperparameters read at Fit time.
	Params TrainingParams

	// Model is the trained ensemble, nil until Fit or LoadModel succeeds.
	Model *Model

	progress func(iteration int)
}

// NewRegressor creates a regressor with the default training parameters.
func NewRegressor() *Regressor {
	return &Regressor{
		state:  model.NewStateManager(),
		logger: log.GetLoggerWithName("boost.regressor"),
		Params: DefaultTrainingParams(),
	}
}

// WithNumIterations sets the number of boosting iterations.
func (r *Regressor) WithNumIterations(n int) *Regressor {
	r.Params.NumIterations = n
	return r
}

// WithLearningRate sets the shrinkage applied to every tree's leaf values.
func (r *Regressor) WithLearningRate(lr float64) *Regressor {
	r.Params.LearningRate = lr
	return r
}

// WithMaxDepth sets the maximum tree depth.
func (r *Regressor) WithMaxDepth(d int) *Regressor {
	r.Params.MaxDepth = d
	return r
}

// WithMinDataInLeaf sets the minimum number of samples per leaf.
func (r *Regressor) WithMinDataInLeaf(n int) *Regressor {
	r.Params.MinDataInLeaf = n
	return r
}

// WithLambda sets the L2 regularization on leaf weights.
func (r *Regressor) WithLambda(l float64) *Regressor {
	r.Params.Lambda = l
	return r
}

// WithSeed sets the random seed.
func (r *Regressor) WithSeed(seed int) *Regressor {
	r.Params.Seed = seed
	return r
}

// WithProgress registers a callback invoked after every completed boosting
// iteration with its zero-based index; CLI progress bars hook in here.
func (r *Regressor) WithProgress(fn func(iteration int)) *Regressor {
	r.progress = fn
	return r
}

// Fit trains the ensemble on X (samples x features) and the target column
// vector y.
//
// Errors:
//   - ErrEmptyData: X has no rows or no columns
//   - DimensionError: X and y disagree on the sample count
//   - ValueError: y is not a column vector, or X or y contain NaN
func (r *Regressor) Fit(X, y mat.Matrix) (err error) {
	defer predsqlErrors.Recover(&err, "Regressor.Fit")

	startTime := time.Now()
	rows, cols := X.Dims()
	yRows, yCols := y.Dims()

	r.logger.Info("Training started",
		log.OperationKey, log.OperationFit,
		log.PhaseKey, log.PhaseTraining,
		log.SamplesKey, rows,
		log.FeaturesKey, cols,
	)

	if rows == 0 || cols == 0 {
		return predsqlErrors.NewModelError("Regressor.Fit", "empty data", predsqlErrors.ErrEmptyData)
	}
	if yRows != rows {
		return predsqlErrors.NewDimensionError("Regressor.Fit", rows, yRows, 0)
	}
	if yCols != 1 {
		return predsqlErrors.NewValueError("Regressor.Fit", "y must be a column vector")
	}

	xDense, targets, err := denseInputs(X, y)
	if err != nil {
		return err
	}

	tr := newTrainer(r.Params)
	tr.progress = r.progress
	tr.fit(xDense, targets)

	r.Model = tr.model()
	r.state.SetFitted()
	r.state.SetDimensions(cols, rows)

	r.logger.Info("Training completed",
		log.OperationKey, log.OperationFit,
		log.PhaseKey, log.PhaseTraining,
		log.DurationMsKey, time.Since(startTime).Milliseconds(),
		log.SamplesKey, rows,
		log.FeaturesKey, cols,
		"trees", len(r.Model.Trees),
	)

	return nil
}

// Predict predicts every row of X and returns a (rows, 1) matrix.
func (r *Regressor) Predict(X mat.Matrix) (_ mat.Matrix, err error) {
	defer predsqlErrors.Recover(&err, "Regressor.Predict")
	if !r.state.IsFitted() || r.Model == nil {
		return nil, predsqlErrors.NewNotFittedError("Regressor", "Predict")
	}
	return r.Model.Predict(X)
}

// PredictRow predicts one sample. It returns NaN when the model is not
// fitted; use Predict for checked batch prediction.
func (r *Regressor) PredictRow(features []float64) float64 {
	if !r.state.IsFitted() || r.Model == nil {
		return math.NaN()
	}
	return r.Model.PredictRow(features)
}

// Score returns the coefficient of determination R^2 on the given data.
func (r *Regressor) Score(X, y mat.Matrix) (float64, error) {
	if !r.state.IsFitted() {
		return 0, predsqlErrors.NewNotFittedError("Regressor", "Score")
	}

	predictions, err := r.Predict(X)
	if err != nil {
		return 0, err
	}

	rows, _ := y.Dims()
	yVec := mat.NewVecDense(rows, nil)
	predVec := mat.NewVecDense(rows, nil)
	for i := 0; i < rows; i++ {
		yVec.SetVec(i, y.At(i, 0))
		predVec.SetVec(i, predictions.At(i, 0))
	}
	return metrics.R2Score(yVec, predVec)
}

// PortableSpec translates the fitted ensemble into a portable model
// document. See Model.PortableSpec.
func (r *Regressor) PortableSpec(features []string, target string) (modelspec.Spec, error) {
	if !r.state.IsFitted() || r.Model == nil {
		return nil, predsqlErrors.NewNotFittedError("Regressor", "PortableSpec")
	}
	return r.Model.PortableSpec(features, target)
}

// LoadModel loads a LightGBM text-format model file and marks the
// regressor fitted.
func (r *Regressor) LoadModel(path string) error {
	m, err := LoadFromFile(path)
	if err != nil {
		return err
	}
	r.Model = m
	r.state.SetFitted()
	r.state.SetDimensions(m.NumFeatures, 0)
	return nil
}

// IsFitted returns whether the model has been fitted.
func (r *Regressor) IsFitted() bool {
	return r.state.IsFitted()
}

// GetParams returns the model's hyperparameters.
func (r *Regressor) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"num_iterations":    r.Params.NumIterations,
		"learning_rate":     r.Params.LearningRate,
		"max_depth":         r.Params.MaxDepth,
		"min_data_in_leaf":  r.Params.MinDataInLeaf,
		"min_gain_to_split": r.Params.MinGainToSplit,
		"lambda_l2":         r.Params.Lambda,
		"seed":              r.Params.Seed,
	}
}

// SetParams sets the model's hyperparameters.
func (r *Regressor) SetParams(params map[string]interface{}) error {
	for key, value := range params {
		switch key {
		case "num_iterations":
			r.Params.NumIterations = value.(int)
		case "learning_rate":
			r.Params.LearningRate = value.(float64)
		case "max_depth":
			r.Params.MaxDepth = value.(int)
		case "min_data_in_leaf":
			r.Params.MinDataInLeaf = value.(int)
		case "min_gain_to_split":
			r.Params.MinGainToSplit = value.(float64)
		case "lambda_l2":
			r.Params.Lambda = value.(float64)
		case "seed":
			r.Params.Seed = value.(int)
		default:
			return fmt.Errorf("unknown parameter: %s", key)
		}
	}
	return nil
}

// denseInputs copies X into a concrete matrix and y into a plain slice,
// rejecting NaN in either: NaN would corrupt gradient sums silently.
func denseInputs(X, y mat.Matrix) (*mat.Dense, []float64, error) {
	rows, cols := X.Dims()

	xDense := mat.NewDense(rows, cols, nil)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			v := X.At(i, j)
			if math.IsNaN(v) {
				return nil, nil, predsqlErrors.NewValueError("Regressor.Fit",
					fmt.Sprintf("X contains NaN at row %d, column %d", i, j))
			}
			xDense.Set(i, j, v)
		}
	}

	targets := make([]float64, rows)
	for i := 0; i < rows; i++ {
		v := y.At(i, 0)
		if math.IsNaN(v) {
			return nil, nil, predsqlErrors.NewValueError("Regressor.Fit",
				fmt.Sprintf("y contains NaN at row %d", i))
		}
		targets[i] = v
	}

	return xDense, targets, nil
}

// regressorSnapshot is the gob wire form.
type regressorSnapshot struct {
	Params      TrainingParams
	Model       *Model
	NumFeatures int
	NumSamples  int
	Fitted      bool
}

// GobEncode implements gob.GobEncoder for model persistence.
func (r *Regressor) GobEncode() ([]byte, error) {
	snap := regressorSnapshot{
		Params: r.Params,
	}
	if r.state != nil && r.state.IsFitted() {
		snap.Fitted = true
		snap.Model = r.Model
		snap.NumFeatures = r.state.NFeatures()
		snap.NumSamples = r.state.NSamples()
	}

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(&snap); err != nil {
		return nil, fmt.Errorf("failed to encode model state: %w", err)
	}
	return buf.Bytes(), nil
}

// GobDecode implements gob.GobDecoder for model persistence.
func (r *Regressor) GobDecode(data []byte) error {
	var snap regressorSnapshot
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&snap); err != nil {
		return fmt.Errorf("failed to decode model state: %w", err)
	}

	r.state = model.NewStateManager()
	r.logger = log.GetLoggerWithName("boost.regressor")
	r.Params = snap.Params
	r.Model = nil

	if snap.Fitted {
		r.Model = snap.Model
		r.state.SetFitted()
		r.state.SetDimensions(snap.NumFeatures, snap.NumSamples)
	}
	return nil
}
