package metrics_test

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/ezoic/predsql/metrics"
)

// ExampleMSE scores a small batch of fare predictions.
func ExampleMSE() {
	observed := mat.NewVecDense(3, []float64{7.0, 12.5, 9.0})
	predicted := mat.NewVecDense(3, []float64{6.5, 13.0, 9.0})

	mse, err := metrics.MSE(observed, predicted)
	if err != nil {
		return
	}

	fmt.Printf("MSE: %.3f\n", mse)

	// Output: MSE: 0.167
}

// ExampleRMSE reports error in the units of the target itself.
func ExampleRMSE() {
	observed := mat.NewVecDense(3, []float64{6.0, 10.0, 23.0})
	predicted := mat.NewVecDense(3, []float64{7.0, 12.0, 20.0})

	rmse, err := metrics.RMSE(observed, predicted)
	if err != nil {
		return
	}

	fmt.Printf("RMSE: $%.2f\n", rmse)

	// Output: RMSE: $2.16
}

// ExampleMAE weighs every miss linearly.
func ExampleMAE() {
	observed := mat.NewVecDense(4, []float64{5.0, 12.5, 8.0, 19.5})
	predicted := mat.NewVecDense(4, []float64{5.5, 11.5, 7.5, 21.5})

	mae, err := metrics.MAE(observed, predicted)
	if err != nil {
		return
	}

	fmt.Printf("MAE: %.2f\n", mae)

	// Output: MAE: 1.00
}

// ExampleR2Score reports the fraction of variance the model explains.
func ExampleR2Score() {
	observed := mat.NewVecDense(4, []float64{10.0, 30.0, 20.0, 40.0})
	predicted := mat.NewVecDense(4, []float64{12.0, 28.0, 21.0, 39.0})

	r2, err := metrics.R2Score(observed, predicted)
	if err != nil {
		return
	}

	fmt.Printf("R²: %.3f\n", r2)

	// Output: R²: 0.980
}

// ExampleMAPE expresses the typical miss as a percentage of the
// observed value.
func ExampleMAPE() {
	observed := mat.NewVecDense(4, []float64{8.0, 16.0, 10.0, 25.0})
	predicted := mat.NewVecDense(4, []float64{7.0, 17.6, 9.5, 30.0})

	mape, err := metrics.MAPE(observed, predicted)
	if err != nil {
		return
	}

	fmt.Printf("MAPE: %.1f%%\n", mape)

	// Output: MAPE: 11.9%
}

// ExampleExplainedVarianceScore shows that a constant bias does not count
// against the score: these predictions all run $1.50 high yet track the
// observations perfectly.
func ExampleExplainedVarianceScore() {
	observed := mat.NewVecDense(4, []float64{5.0, 8.0, 11.0, 14.0})
	predicted := mat.NewVecDense(4, []float64{6.5, 9.5, 12.5, 15.5})

	evs, err := metrics.ExplainedVarianceScore(observed, predicted)
	if err != nil {
		return
	}

	fmt.Printf("Explained variance: %.3f\n", evs)

	// Output: Explained variance: 1.000
}

// ExampleMSEMatrix accepts the n×1 matrices that Predict returns.
func ExampleMSEMatrix() {
	observed := mat.NewDense(3, 1, []float64{14.0, 7.5, 10.0})
	predicted := mat.NewDense(3, 1, []float64{13.0, 8.0, 10.5})

	mse, err := metrics.MSEMatrix(observed, predicted)
	if err != nil {
		return
	}

	fmt.Printf("MSE: %.2f\n", mse)

	// Output: MSE: 0.50
}
