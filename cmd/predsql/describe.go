package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/ezoic/predsql/stats"
	"github.com/ezoic/predsql/trips"
)

func init() {
	rootCommand.AddCommand(describeCommand)
}

var describeCommand = &cobra.Command{
	Use:   "describe",
	Short: "Summarize the numeric trip columns",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		db, table := openTable()
		defer db.Close()

		count, err := table.Count(ctx)
		if err != nil {
			fatal(err, "failed to count rows")
		}
		fmt.Printf("%s: %d rows\n", globalConfig.Database.Table, count)

		f, err := table.Collect(ctx, trips.NumericColumns...)
		if err != nil {
			fatal(err, "failed to collect columns")
		}
		summaries, err := stats.Describe(f)
		if err != nil {
			fatal(err, "failed to summarize columns")
		}

		out := tablewriter.NewWriter(os.Stdout)
		out.Header([]string{"column", "count", "missing", "mean", "std", "min", "max"})
		for _, s := range summaries {
			if err := out.Append([]string{
				s.Name,
				strconv.Itoa(s.Count),
				strconv.Itoa(s.Missing),
				cell(s.Mean),
				cell(s.Std),
				cell(s.Min),
				cell(s.Max),
			}); err != nil {
				fatal(err, "failed to build summary table")
			}
		}
		if err := out.Render(); err != nil {
			fatal(err, "failed to render summary table")
		}
	},
}
