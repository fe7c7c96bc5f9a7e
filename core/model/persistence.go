package model

import (
	"encoding/gob"
	"fmt"
	"io"
	"os"

	"github.com/ezoic/predsql/pkg/errors"
)

// SaveModel persists a trained model to path using encoding/gob.
//
// Models with gonum matrix fields implement GobEncode/GobDecode themselves
// (see linear.LinearRegression); models with plain exported fields need
// nothing extra.
//
// Example:
//
//	err := model.SaveModel(reg, "model.gob")
func SaveModel(m interface{}, path string) error {
	if m == nil {
		return errors.NewValueError("SaveModel", "model cannot be nil")
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer func() { _ = file.Close() }()

	return SaveModelToWriter(m, file)
}

// SaveModelToWriter writes the gob encoding of m to w.
func SaveModelToWriter(m interface{}, w io.Writer) error {
	if m == nil {
		return errors.NewValueError("SaveModelToWriter", "model cannot be nil")
	}

	if err := gob.NewEncoder(w).Encode(m); err != nil {
		return fmt.Errorf("failed to encode model: %w", err)
	}
	return nil
}

// LoadModel restores a model saved with SaveModel into m, which must be a
// pointer to the same concrete type that was saved.
//
// Example:
//
//	reg := linear.NewLinearRegression()
//	err := model.LoadModel(reg, "model.gob")
func LoadModel(m interface{}, path string) error {
	if m == nil {
		return errors.NewValueError("LoadModel", "model cannot be nil")
	}

	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	return LoadModelFromReader(m, file)
}

// LoadModelFromReader decodes a gob-encoded model from r into m.
func LoadModelFromReader(m interface{}, r io.Reader) error {
	if m == nil {
		return errors.NewValueError("LoadModelFromReader", "model cannot be nil")
	}

	if err := gob.NewDecoder(r).Decode(m); err != nil {
		return fmt.Errorf("failed to decode model: %w", err)
	}
	return nil
}
