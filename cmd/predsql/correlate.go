package main

import (
	"fmt"
	"os"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/ezoic/predsql/stats"
	"github.com/ezoic/predsql/trips"
	"github.com/ezoic/predsql/viz"
)

func init() {
	correlateCommand.Flags().Float64("threshold", 0.6, "minimum |r| for a strong pair")
	correlateCommand.Flags().String("html", "", "write heatmap and graph charts to this HTML file")
	rootCommand.AddCommand(correlateCommand)
}

var correlateCommand = &cobra.Command{
	Use:   "correlate",
	Short: "Correlate numeric columns over a seeded sample",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		threshold := globalConfig.Correlation.Threshold
		if cmd.Flags().Changed("threshold") {
			threshold, _ = cmd.Flags().GetFloat64("threshold")
		}
		htmlPath, _ := cmd.Flags().GetString("html")

		db, table := openTable()
		defer db.Close()
		f := drawSample(ctx, table, trips.NumericColumns, globalConfig.Sample.Size, globalConfig.Sample.Seed)

		m, err := stats.Correlate(f)
		if err != nil {
			fatal(err, "failed to correlate columns")
		}

		names := m.Names()
		out := tablewriter.NewWriter(os.Stdout)
		out.Header(append([]string{""}, names...))
		for i, name := range names {
			row := make([]string, 0, len(names)+1)
			row = append(row, name)
			for j := range names {
				row = append(row, fmt.Sprintf("%.2f", m.At(i, j)))
			}
			if err := out.Append(row); err != nil {
				fatal(err, "failed to build correlation table")
			}
		}
		if err := out.Render(); err != nil {
			fatal(err, "failed to render correlation table")
		}

		pairs := m.StrongPairs(threshold)
		if len(pairs) == 0 {
			fmt.Printf("no pairs with |r| >= %g\n", threshold)
		} else {
			fmt.Printf("pairs with |r| >= %g:\n", threshold)
			for _, p := range pairs {
				fmt.Printf("  %s ~ %s: r=%.3f (n=%d)\n", p.A, p.B, p.R, p.N)
			}
		}

		if htmlPath != "" {
			heatmap := viz.CorrelationHeatmap(m, "Trip column correlation")
			graph := viz.CorrelationGraph(m, threshold, "Strong correlations")
			if err := viz.WriteHTML(htmlPath, heatmap, graph); err != nil {
				fatal(err, "failed to write HTML charts")
			}
			fmt.Println("wrote", htmlPath)
		}
	},
}
