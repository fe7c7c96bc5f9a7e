package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ezoic/predsql/modelspec"
	"github.com/ezoic/predsql/sqlgen"
)

func init() {
	sqlCommand.Flags().String("model", "", "model document to render")
	sqlCommand.Flags().String("dialect", "", "sql dialect: sqlite, postgres or mysql (default from config)")
	sqlCommand.Flags().String("table", "", "emit a full prediction query over this table")
	_ = sqlCommand.MarkFlagRequired("model")
	rootCommand.AddCommand(sqlCommand)
}

var sqlCommand = &cobra.Command{
	Use:   "sql",
	Short: "Render a model document as a SQL expression",
	Long: `Render a model document as a scalar SQL expression over its feature
columns. With --table the expression is wrapped in a full prediction query
keyed by the configured key column. Output goes to stdout so it can be piped
into a database shell.`,
	Run: func(cmd *cobra.Command, args []string) {
		modelPath, _ := cmd.Flags().GetString("model")
		dialectName := globalConfig.Score.Dialect
		if cmd.Flags().Changed("dialect") {
			dialectName, _ = cmd.Flags().GetString("dialect")
		}
		table, _ := cmd.Flags().GetString("table")

		doc, err := modelspec.ReadFile(modelPath)
		if err != nil {
			fatal(err, "failed to read model document")
		}
		dialect, err := sqlgen.ParseDialect(dialectName)
		if err != nil {
			fatal(err, "unknown sql dialect")
		}

		var stmt string
		if table != "" {
			stmt, err = sqlgen.PredictionQuery(doc, dialect, table, globalConfig.Database.KeyColumn)
		} else {
			stmt, err = sqlgen.Expression(doc, dialect)
		}
		if err != nil {
			fatal(err, "failed to generate sql")
		}
		fmt.Println(stmt)
	},
}
