package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/ezoic/predsql/modelspec"
	"github.com/ezoic/predsql/score"
	"github.com/ezoic/predsql/sqlgen"
)

func init() {
	scoreCommand.Flags().String("model", "", "model document to check")
	scoreCommand.Flags().Float64("tolerance", 0, "allowed absolute per-row difference (default from config)")
	_ = scoreCommand.MarkFlagRequired("model")
	rootCommand.AddCommand(scoreCommand)
}

var scoreCommand = &cobra.Command{
	Use:   "score",
	Short: "Check that the generated SQL reproduces in-memory predictions",
	Long: `Check SQL-vs-memory prediction equivalence over a seeded sample: every
sampled row is predicted once in memory through the model document and once
inside the database through the generated SQL expression. A tolerance
violation is reported, not an error; the exit status is non-zero only for
infrastructure failures.`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		conf := globalConfig

		modelPath, _ := cmd.Flags().GetString("model")
		tolerance := conf.Score.Tolerance
		if cmd.Flags().Changed("tolerance") {
			tolerance, _ = cmd.Flags().GetFloat64("tolerance")
		}
		dialect, err := sqlgen.ParseDialect(conf.Score.Dialect)
		if err != nil {
			fatal(err, "unknown sql dialect")
		}

		doc, err := modelspec.ReadFile(modelPath)
		if err != nil {
			fatal(err, "failed to read model document")
		}

		db, table := openTable()
		defer db.Close()
		f := drawSample(ctx, table, doc.FeatureNames(), conf.Sample.Size, conf.Sample.Seed)

		report, err := score.SQLEquivalence(ctx, db, doc, f, score.Options{
			Tolerance: tolerance,
			Dialect:   dialect,
			Table:     conf.Database.Table,
			KeyColumn: conf.Database.KeyColumn,
		})
		if err != nil {
			fatal(err, "equivalence run failed")
		}

		out := tablewriter.NewWriter(os.Stdout)
		out.Header([]string{"", "value"})
		for _, row := range [][]string{
			{"rows compared", strconv.Itoa(report.Rows)},
			{"rows skipped", strconv.Itoa(report.Skipped)},
			{"rows over tolerance", strconv.Itoa(report.Exceeded)},
			{"max abs diff", cell(report.MaxAbsDiff)},
			{"worst key", strconv.FormatInt(report.WorstKey, 10)},
			{"rmse", cell(report.RMSE)},
			{"tolerance", cell(report.Tolerance)},
		} {
			if err := out.Append(row); err != nil {
				fatal(err, "failed to build report table")
			}
		}
		if err := out.Render(); err != nil {
			fatal(err, "failed to render report table")
		}

		if report.Passed {
			fmt.Println("PASSED: sql predictions match in-memory predictions")
		} else {
			fmt.Println("FAILED: sql predictions diverge from in-memory predictions")
		}
	},
}
