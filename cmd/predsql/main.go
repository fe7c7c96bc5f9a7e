// Command predsql analyzes a SQLite trip table end to end: summarize and
// correlate columns, sample rows by dense key, fit gradient-boosted or
// linear regression models, export them as portable YAML model documents,
// render the documents as SQL expressions, and verify that the SQL
// reproduces in-memory predictions.
package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/ezoic/predsql/config"
	"github.com/ezoic/predsql/dbframe"
	"github.com/ezoic/predsql/pkg/log"
	"github.com/ezoic/predsql/sample"
	"github.com/ezoic/predsql/trips"
)

const versionName = "0.1.0"

var globalConfig *config.Config

var rootCommand = &cobra.Command{
	Use:           "predsql",
	Short:         "Fit trip models and translate them into portable SQL",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
			log.SetupLogger("debug")
		} else {
			log.SetupLogger("info")
		}
		if err := config.BindFlags(cmd.Flags()); err != nil {
			return err
		}
		configPath, _ := cmd.Flags().GetString("config")
		conf, err := config.LoadConfig(configPath)
		if err != nil {
			return err
		}
		if err := conf.Validate(); err != nil {
			return err
		}
		globalConfig = conf
		return nil
	},
}

var versionCommand = &cobra.Command{
	Use:   "version",
	Short: "Print the predsql version",
	// Overrides the root hook: printing the version needs no configuration.
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("predsql version", versionName)
	},
}

func init() {
	rootCommand.PersistentFlags().StringP("config", "c", "", "configuration file path")
	rootCommand.PersistentFlags().BoolP("verbose", "v", false, "enable debug logging")
	config.AddFlags(rootCommand.PersistentFlags())
	rootCommand.AddCommand(versionCommand)
}

func main() {
	if err := rootCommand.Execute(); err != nil {
		log.LogError(err, "predsql failed")
		os.Exit(1)
	}
}

// fatal logs err and exits. Command handlers use it for infrastructure
// failures; expected outcomes are printed, never fataled.
func fatal(err error, msg string) {
	log.GetLogger().Fatal().Err(err).Msg(msg)
}

// openTable opens the configured database and binds the trip table. The
// caller closes the returned handle.
func openTable() (*sql.DB, *dbframe.Table) {
	db, err := trips.Open(globalConfig.Database.Path)
	if err != nil {
		fatal(err, "failed to open database")
	}
	table, err := dbframe.Bind(db, globalConfig.Database.Table, globalConfig.Database.KeyColumn)
	if err != nil {
		db.Close()
		fatal(err, "failed to bind trip table")
	}
	return db, table
}

// drawSample collects a seeded sample of the named columns.
func drawSample(ctx context.Context, table *dbframe.Table, columns []string, n int, seed int64) *dbframe.Frame {
	f, err := sample.Draw(ctx, table, columns, n, seed)
	if err != nil {
		fatal(err, "failed to draw sample")
	}
	return f
}

// cell renders a float for table output.
func cell(v float64) string {
	return strconv.FormatFloat(v, 'g', 6, 64)
}
