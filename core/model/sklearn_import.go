package model

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/ezoic/predsql/pkg/errors"
)

// SKLearnFormatVersion is the JSON interchange version this package accepts.
const SKLearnFormatVersion = "1.0"

// SKLearnModelSpec identifies the estimator an interchange document carries.
type SKLearnModelSpec struct {
	Name           string `json:"name"`                      // estimator class, e.g. "LinearRegression"
	FormatVersion  string `json:"format_version"`            // pinned to SKLearnFormatVersion
	SKLearnVersion string `json:"sklearn_version,omitempty"` // producing library version, informational
}

// SKLearnLinearRegressionParams は線形回帰の学習済みパラメータ
type SKLearnLinearRegressionParams struct {
	Coefficients []float64 `json:"coefficients"`
	Intercept    float64   `json:"intercept"`
	NFeatures    int       `json:"n_features"`
}

// SKLearnModel is a decoded interchange document. Params stays raw JSON
// until an estimator-specific loader such as LoadLinearRegressionParams
// interprets it.
type SKLearnModel struct {
	ModelSpec SKLearnModelSpec `json:"model_spec"`
	Params    json.RawMessage  `json:"params"`
}

// validateSpec rejects envelopes this package cannot interpret.
// 不正なドキュメントは ErrInvalidModel をラップして返す。
func (m *SKLearnModel) validateSpec() error {
	switch {
	case m.ModelSpec.FormatVersion == "":
		return errors.Wrap(errors.ErrInvalidModel, "format_version is required")
	case m.ModelSpec.FormatVersion != SKLearnFormatVersion:
		return errors.Wrapf(errors.ErrInvalidModel,
			"unsupported format version: %s", m.ModelSpec.FormatVersion)
	case m.ModelSpec.Name == "":
		return errors.Wrap(errors.ErrInvalidModel, "model name is required")
	}
	return nil
}

// LoadSKLearnModelFromFile reads one interchange document from filename.
func LoadSKLearnModelFromFile(filename string) (*SKLearnModel, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	return LoadSKLearnModelFromReader(file)
}

// LoadSKLearnModelFromReader decodes one interchange document from r and
// validates its envelope.
func LoadSKLearnModelFromReader(r io.Reader) (*SKLearnModel, error) {
	var m SKLearnModel
	if err := json.NewDecoder(r).Decode(&m); err != nil {
		return nil, errors.Wrapf(errors.ErrInvalidModel, "failed to decode JSON: %v", err)
	}
	if err := m.validateSpec(); err != nil {
		return nil, err
	}
	return &m, nil
}

// LoadLinearRegressionParams はLinearRegressionのパラメータを取り出す。
// 他のestimatorのドキュメントを渡すと ValueError を返す。
func LoadLinearRegressionParams(m *SKLearnModel) (*SKLearnLinearRegressionParams, error) {
	if m.ModelSpec.Name != "LinearRegression" {
		return nil, errors.NewValueError("LoadLinearRegressionParams",
			fmt.Sprintf("expected LinearRegression, got %s", m.ModelSpec.Name))
	}

	var params SKLearnLinearRegressionParams
	if err := json.Unmarshal(m.Params, &params); err != nil {
		return nil, errors.Wrapf(errors.ErrInvalidModel, "failed to unmarshal params: %v", err)
	}

	if len(params.Coefficients) == 0 {
		return nil, errors.Wrap(errors.ErrInvalidModel, "coefficients cannot be empty")
	}
	if params.NFeatures != len(params.Coefficients) {
		return nil, errors.Wrapf(errors.ErrInvalidModel,
			"n_features (%d) does not match coefficients length (%d)",
			params.NFeatures, len(params.Coefficients))
	}

	return &params, nil
}

// ExportSKLearnModel writes params to w under a versioned envelope naming
// modelName as the estimator. The output reads back through
// LoadSKLearnModelFromReader.
func ExportSKLearnModel(modelName string, params interface{}, w io.Writer) error {
	paramsJSON, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("failed to marshal params: %w", err)
	}

	m := SKLearnModel{
		ModelSpec: SKLearnModelSpec{
			Name:          modelName,
			FormatVersion: SKLearnFormatVersion,
		},
		Params: paramsJSON,
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(&m); err != nil {
		return fmt.Errorf("failed to encode model: %w", err)
	}
	return nil
}
