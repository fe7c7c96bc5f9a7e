package main

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/mat"

	"github.com/ezoic/predsql/boost"
	"github.com/ezoic/predsql/config"
	"github.com/ezoic/predsql/linear"
	"github.com/ezoic/predsql/metrics"
	"github.com/ezoic/predsql/modelspec"
	"github.com/ezoic/predsql/pkg/errors"
	"github.com/ezoic/predsql/pkg/log"
	"github.com/ezoic/predsql/trips"
)

func init() {
	fitCommand.Flags().String("model", "", "model kind: gbt or linear (default from config)")
	fitCommand.Flags().String("target", "", "target column (default from config)")
	fitCommand.Flags().StringSlice("features", nil, "feature columns (default: every numeric column except the target)")
	fitCommand.Flags().String("out", "", "model document path (default <out-dir>/model.yaml)")
	rootCommand.AddCommand(fitCommand)
}

var fitCommand = &cobra.Command{
	Use:   "fit",
	Short: "Fit a model on a seeded sample and write its model document",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		conf := globalConfig

		kind := conf.Fit.Model
		if cmd.Flags().Changed("model") {
			kind, _ = cmd.Flags().GetString("model")
		}
		target := conf.Fit.Target
		if cmd.Flags().Changed("target") {
			target, _ = cmd.Flags().GetString("target")
		}
		features := conf.Fit.Features
		if cmd.Flags().Changed("features") {
			features, _ = cmd.Flags().GetStringSlice("features")
		}
		features = resolveFeatures(features, target)
		outPath, _ := cmd.Flags().GetString("out")
		if outPath == "" {
			outPath = filepath.Join(conf.Output.Dir, "model.yaml")
		}

		db, table := openTable()
		defer db.Close()

		columns := append(append([]string{}, features...), target)
		f := drawSample(ctx, table, columns, conf.Sample.Size, conf.Sample.Seed)

		X, err := f.Select(features...)
		if err != nil {
			fatal(err, "failed to select feature columns")
		}
		y, err := f.Vector(target)
		if err != nil {
			fatal(err, "failed to select target column")
		}
		X, y, dropped, err := completeRows(X, y)
		if err != nil {
			fatal(err, "no complete rows to fit on")
		}
		if dropped > 0 {
			log.GetLoggerWithName("fit").Info("dropped rows with missing values",
				log.RowsKey, dropped)
		}

		var est estimator
		switch kind {
		case config.ModelGBT:
			est = fitGBT(conf, X, y)
		case config.ModelLinear:
			est = fitLinear(X, y)
		default:
			fatal(errors.NewValueError("fit", "unknown model kind "+strconv.Quote(kind)),
				"unknown model kind")
		}

		doc, err := modelspec.FromModel(est, features, target)
		if err != nil {
			fatal(err, "failed to translate model into a document")
		}
		if dir := filepath.Dir(outPath); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				fatal(err, "failed to create output directory")
			}
		}
		if err := modelspec.WriteFile(outPath, doc); err != nil {
			fatal(err, "failed to write model document")
		}

		printTrainingMetrics(est, X, y)
		rows, _ := X.Dims()
		fmt.Printf("fit %s on %d rows (%d features), wrote %s\n", kind, rows, len(features), outPath)
	},
}

// estimator is the model surface fit needs after training; the boosting
// regressor and the linear regression both satisfy it.
type estimator interface {
	Predict(X mat.Matrix) (mat.Matrix, error)
}

func fitGBT(conf *config.Config, X *mat.Dense, y *mat.VecDense) estimator {
	bar := progressbar.Default(int64(conf.Fit.NumIterations), "boosting")
	reg := boost.NewRegressor().
		WithNumIterations(conf.Fit.NumIterations).
		WithLearningRate(conf.Fit.LearningRate).
		WithMaxDepth(conf.Fit.MaxDepth).
		WithMinDataInLeaf(conf.Fit.MinDataInLeaf).
		WithLambda(conf.Fit.Lambda).
		WithSeed(int(conf.Fit.Seed)).
		WithProgress(func(iteration int) { _ = bar.Add(1) })
	if err := reg.Fit(X, y); err != nil {
		fatal(err, "failed to fit gradient boosting model")
	}
	_ = bar.Finish()
	return reg
}

func fitLinear(X *mat.Dense, y *mat.VecDense) estimator {
	lr := linear.NewLinearRegression()
	if err := lr.Fit(X, y); err != nil {
		fatal(err, "failed to fit linear regression")
	}
	return lr
}

// resolveFeatures defaults to every numeric trip column except the target.
func resolveFeatures(features []string, target string) []string {
	if len(features) > 0 {
		return features
	}
	out := make([]string, 0, len(trips.NumericColumns))
	for _, c := range trips.NumericColumns {
		if c != target {
			out = append(out, c)
		}
	}
	return out
}

// completeRows drops rows with a non-finite value in X or y, the in-memory
// analog of excluding trips with NULL columns from training.
func completeRows(X *mat.Dense, y *mat.VecDense) (*mat.Dense, *mat.VecDense, int, error) {
	rows, cols := X.Dims()
	keep := make([]int, 0, rows)
	for i := 0; i < rows; i++ {
		ok := finite(y.AtVec(i))
		for j := 0; ok && j < cols; j++ {
			ok = finite(X.At(i, j))
		}
		if ok {
			keep = append(keep, i)
		}
	}
	if len(keep) == rows {
		return X, y, 0, nil
	}
	if len(keep) == 0 {
		return nil, nil, rows, errors.Wrap(errors.ErrEmptyData, "fit: every sampled row has a missing value")
	}
	fx := mat.NewDense(len(keep), cols, nil)
	fy := mat.NewVecDense(len(keep), nil)
	for dst, src := range keep {
		fx.SetRow(dst, mat.Row(nil, src, X))
		fy.SetVec(dst, y.AtVec(src))
	}
	return fx, fy, rows - len(keep), nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func printTrainingMetrics(est estimator, X *mat.Dense, y *mat.VecDense) {
	preds, err := est.Predict(X)
	if err != nil {
		fatal(err, "failed to predict over the training sample")
	}
	predVec := mat.NewVecDense(y.Len(), mat.Col(nil, 0, preds))

	rmse, err := metrics.RMSE(y, predVec)
	if err != nil {
		fatal(err, "failed to compute training metrics")
	}
	mae, err := metrics.MAE(y, predVec)
	if err != nil {
		fatal(err, "failed to compute training metrics")
	}
	r2, err := metrics.R2Score(y, predVec)
	if err != nil {
		fatal(err, "failed to compute training metrics")
	}

	out := tablewriter.NewWriter(os.Stdout)
	out.Header([]string{"metric", "value"})
	for _, row := range [][]string{
		{"rmse", cell(rmse)},
		{"mae", cell(mae)},
		{"r2", cell(r2)},
	} {
		if err := out.Append(row); err != nil {
			fatal(err, "failed to build metrics table")
		}
	}
	if err := out.Render(); err != nil {
		fatal(err, "failed to render metrics table")
	}
}
