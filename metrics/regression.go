// Package metrics implements the regression metrics the pipeline reports
// when judging a fitted model before export: squared and absolute error,
// percentage error, and variance-explained scores.
//
// Every function takes observed and predicted values as *mat.VecDense and
// validates the pair up front, so a length mismatch surfaces as an error
// instead of a silent truncation:
//
//	rmse, err := metrics.RMSE(observed, predicted)
//	r2, err := metrics.R2Score(observed, predicted)
//
// MSEMatrix accepts n×1 matrices for callers that still hold predictions in
// the mat.Matrix form returned by Predict.
package metrics

import (
	"math"

	"gonum.org/v1/gonum/mat"

	predsqlErrors "github.com/ezoic/predsql/pkg/errors"
)

// checkPair validates that both vectors are non-empty and the same length,
// and returns that length.
func checkPair(op string, yTrue, yPred *mat.VecDense) (int, error) {
	n := yTrue.Len()
	if n == 0 {
		return 0, predsqlErrors.NewValueError(op, "empty vector")
	}
	if yPred.Len() != n {
		return 0, predsqlErrors.NewDimensionError(op, n, yPred.Len(), 0)
	}
	return n, nil
}

// MSE returns the mean squared error between observed and predicted values.
//
// Squaring makes the metric sensitive to large misses, which is usually what
// a fare model cares about: one prediction off by ten dollars should hurt
// more than ten predictions off by one.
//
// Errors:
//   - ValueError: if the vectors are empty
//   - DimensionError: if the vectors differ in length
func MSE(yTrue, yPred *mat.VecDense) (float64, error) {
	n, err := checkPair("MSE", yTrue, yPred)
	if err != nil {
		return 0, err
	}

	var total float64
	for i := 0; i < n; i++ {
		resid := yTrue.AtVec(i) - yPred.AtVec(i)
		total += resid * resid
	}
	return total / float64(n), nil
}

// RMSE returns the root mean squared error, the square root of MSE. The
// result is in the units of the target itself: an RMSE of 1.2 on a fare
// model means predictions miss by about $1.20 on a typical row.
func RMSE(yTrue, yPred *mat.VecDense) (float64, error) {
	mse, err := MSE(yTrue, yPred)
	if err != nil {
		return 0, err
	}
	return math.Sqrt(mse), nil
}

// MAE returns the mean absolute error between observed and predicted values.
// Unlike MSE it weighs every miss linearly, which keeps a handful of outlier
// trips from dominating the score.
//
// Errors:
//   - ValueError: if the vectors are empty
//   - DimensionError: if the vectors differ in length
func MAE(yTrue, yPred *mat.VecDense) (float64, error) {
	n, err := checkPair("MAE", yTrue, yPred)
	if err != nil {
		return 0, err
	}

	var total float64
	for i := 0; i < n; i++ {
		total += math.Abs(yTrue.AtVec(i) - yPred.AtVec(i))
	}
	return total / float64(n), nil
}

// MAPE returns the mean absolute percentage error as a value in [0, ∞),
// where 8.5 means predictions miss by 8.5% of the observed value on
// average.
//
// Rows whose observed value is zero have no defined percentage error and
// are left out of the mean. If every row is zero the metric itself is
// undefined and an error is returned.
func MAPE(yTrue, yPred *mat.VecDense) (float64, error) {
	n, err := checkPair("MAPE", yTrue, yPred)
	if err != nil {
		return 0, err
	}

	var total float64
	counted := 0
	for i := 0; i < n; i++ {
		obs := yTrue.AtVec(i)
		if obs == 0 {
			continue
		}
		total += math.Abs(obs-yPred.AtVec(i)) / math.Abs(obs)
		counted++
	}
	if counted == 0 {
		return 0, predsqlErrors.NewValueError("MAPE", "every observed value is zero")
	}
	return total / float64(counted) * 100, nil
}

// R2Score returns the coefficient of determination.
//
// A score of 1 means the predictions reproduce the observations exactly, 0
// means they do no better than always predicting the mean, and negative
// scores mean they do worse than that. A constant observed vector has no
// variance to explain, so the score is undefined and an error is returned.
//
// Errors:
//   - ValueError: if the vectors are empty or yTrue has zero variance
//   - DimensionError: if the vectors differ in length
func R2Score(yTrue, yPred *mat.VecDense) (float64, error) {
	n, err := checkPair("R2Score", yTrue, yPred)
	if err != nil {
		return 0, err
	}

	var mean float64
	for i := 0; i < n; i++ {
		mean += yTrue.AtVec(i)
	}
	mean /= float64(n)

	var tss, rss float64
	for i := 0; i < n; i++ {
		obs := yTrue.AtVec(i)
		resid := obs - yPred.AtVec(i)
		tss += (obs - mean) * (obs - mean)
		rss += resid * resid
	}
	if tss == 0 {
		return 0, predsqlErrors.NewValueError("R2Score", "observed values have zero variance")
	}
	return 1 - rss/tss, nil
}

// ExplainedVarianceScore returns the fraction of the observed variance that
// the predictions account for. It differs from R2Score in ignoring any
// constant offset in the residuals: a model that runs systematically two
// dollars high still explains the variance perfectly.
func ExplainedVarianceScore(yTrue, yPred *mat.VecDense) (float64, error) {
	n, err := checkPair("ExplainedVarianceScore", yTrue, yPred)
	if err != nil {
		return 0, err
	}

	var obsMean, residMean float64
	for i := 0; i < n; i++ {
		obsMean += yTrue.AtVec(i)
		residMean += yTrue.AtVec(i) - yPred.AtVec(i)
	}
	obsMean /= float64(n)
	residMean /= float64(n)

	// The 1/n factors cancel in the ratio, so plain sums of squares suffice.
	var obsVar, residVar float64
	for i := 0; i < n; i++ {
		obs := yTrue.AtVec(i)
		resid := obs - yPred.AtVec(i)
		obsVar += (obs - obsMean) * (obs - obsMean)
		residVar += (resid - residMean) * (resid - residMean)
	}
	if obsVar == 0 {
		return 0, predsqlErrors.NewValueError("ExplainedVarianceScore", "observed values have zero variance")
	}
	return 1 - residVar/obsVar, nil
}

// MSEMatrix computes MSE over n×1 matrices. Predict returns predictions in
// matrix form; this wrapper copies both columns into vectors and delegates
// to MSE.
//
// Errors:
//   - ValueError: if either matrix is empty or wider than one column
//   - DimensionError: if the shapes differ
func MSEMatrix(yTrue, yPred mat.Matrix) (float64, error) {
	rt, ct := yTrue.Dims()
	rp, cp := yPred.Dims()

	if rt == 0 || ct == 0 {
		return 0, predsqlErrors.NewValueError("MSEMatrix", "empty matrix")
	}
	if rt != rp || ct != cp {
		return 0, predsqlErrors.NewDimensionError("MSEMatrix", rt, rp, 0)
	}
	if ct != 1 {
		return 0, predsqlErrors.NewValueError("MSEMatrix", "expected a single-column matrix")
	}

	obs := mat.NewVecDense(rt, nil)
	pred := mat.NewVecDense(rt, nil)
	for i := 0; i < rt; i++ {
		obs.SetVec(i, yTrue.At(i, 0))
		pred.SetVec(i, yPred.At(i, 0))
	}
	return MSE(obs, pred)
}
