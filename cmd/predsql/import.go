package main

import (
	"fmt"
	"os"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/ezoic/predsql/trips"
)

func init() {
	importCommand.Flags().String("csv", "", "CSV trip export to load")
	_ = importCommand.MarkFlagRequired("csv")
	rootCommand.AddCommand(importCommand)
}

var importCommand = &cobra.Command{
	Use:   "import",
	Short: "Create the trip table and load a CSV export into it",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		csvPath, _ := cmd.Flags().GetString("csv")

		info, err := os.Stat(csvPath)
		if err != nil {
			fatal(err, "failed to stat CSV file")
		}
		file, err := os.Open(csvPath)
		if err != nil {
			fatal(err, "failed to open CSV file")
		}
		defer file.Close()

		db, err := trips.Open(globalConfig.Database.Path)
		if err != nil {
			fatal(err, "failed to open database")
		}
		defer db.Close()
		if err := trips.CreateTable(ctx, db); err != nil {
			fatal(err, "failed to create trip table")
		}

		pbReader := progressbar.NewReader(file, progressbar.DefaultBytes(
			info.Size(),
			"importing trips",
		))
		n, err := trips.ImportCSV(ctx, db, &pbReader)
		if err != nil {
			fatal(err, "failed to import CSV")
		}
		fmt.Printf("imported %d trips into %s\n", n, globalConfig.Database.Path)
	},
}
