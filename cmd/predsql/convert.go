package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ezoic/predsql/boost"
	"github.com/ezoic/predsql/modelspec"
	"github.com/ezoic/predsql/pkg/errors"
)

func init() {
	convertCommand.Flags().String("lightgbm", "", "LightGBM text model file to convert")
	convertCommand.Flags().String("out", "", "model document path (default <out-dir>/model.yaml)")
	_ = convertCommand.MarkFlagRequired("lightgbm")
	rootCommand.AddCommand(convertCommand)
}

var convertCommand = &cobra.Command{
	Use:   "convert",
	Short: "Convert a LightGBM text model into a model document",
	Run: func(cmd *cobra.Command, args []string) {
		modelPath, _ := cmd.Flags().GetString("lightgbm")
		outPath, _ := cmd.Flags().GetString("out")
		if outPath == "" {
			outPath = filepath.Join(globalConfig.Output.Dir, "model.yaml")
		}

		m, err := boost.LoadFromFile(modelPath)
		if err != nil {
			fatal(err, "failed to load LightGBM model")
		}
		if len(m.FeatureNames) == 0 {
			fatal(errors.Wrap(errors.ErrInvalidModel, "convert: model file names no features"),
				"model file names no features")
		}
		doc, err := modelspec.FromModel(m, m.FeatureNames, "")
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
		fmt.Printf("converted %d trees over %d features, wrote %s\n",
			m.NumTrees(), len(m.FeatureNames), outPath)
	},
}
