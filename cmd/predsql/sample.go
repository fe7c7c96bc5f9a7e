package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/ezoic/predsql/trips"
)

func init() {
	sampleCommand.Flags().Int("n", 0, "number of rows to draw (default from config)")
	sampleCommand.Flags().Int64("seed", 0, "random seed (default from config)")
	rootCommand.AddCommand(sampleCommand)
}

var sampleCommand = &cobra.Command{
	Use:   "sample",
	Short: "Draw a seeded sample of trips and show the first rows",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		n := globalConfig.Sample.Size
		if cmd.Flags().Changed("n") {
			n, _ = cmd.Flags().GetInt("n")
		}
		seed := globalConfig.Sample.Seed
		if cmd.Flags().Changed("seed") {
			seed, _ = cmd.Flags().GetInt64("seed")
		}

		db, table := openTable()
		defer db.Close()
		f := drawSample(ctx, table, trips.NumericColumns, n, seed)

		const preview = 10
		out := tablewriter.NewWriter(os.Stdout)
		out.Header(append([]string{globalConfig.Database.KeyColumn}, f.Names()...))
		for i := 0; i < f.NumRows() && i < preview; i++ {
			row := make([]string, 0, f.NumCols()+1)
			row = append(row, strconv.FormatInt(f.Key(i), 10))
			for _, v := range f.Row(i) {
				row = append(row, cell(v))
			}
			if err := out.Append(row); err != nil {
				fatal(err, "failed to build sample table")
			}
		}
		if err := out.Render(); err != nil {
			fatal(err, "failed to render sample table")
		}
		fmt.Printf("sampled %d rows with seed %d\n", f.NumRows(), seed)
	},
}
