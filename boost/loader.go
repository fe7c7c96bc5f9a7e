package boost

import (
	"bufio"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	predsqlErrors "github.com/ezoic/predsql/pkg/errors"
)

// LoadFromFile loads a model from a LightGBM text-format file.
//
// Only regression objectives are supported; classification or link-function
// objectives return ErrNotImplemented. Leaf values in the text format
// already carry the learning rate and the boost-from-average base score, so
// imported models predict as plain sums with InitScore zero and are
// immediately translatable via PortableSpec.
func LoadFromFile(path string) (*Model, error) {
	cleanPath := filepath.Clean(path)
	file, err := os.Open(cleanPath)
	if err != nil {
		return nil, predsqlErrors.Wrap(err, "failed to open model file")
	}
	defer func() { _ = file.Close() }()

	return LoadFromReader(file)
}

// LoadFromString loads a model from LightGBM text format held in a string.
func LoadFromString(modelStr string) (*Model, error) {
	return LoadFromReader(strings.NewReader(modelStr))
}

// LoadFromReader loads a model from LightGBM text format.
func LoadFromReader(r io.Reader) (*Model, error) {
	scanner := bufio.NewScanner(r)
	// Threshold and leaf_value arrays are single lines that grow with tree
	// size, far past the default token limit for large models.
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	m := &Model{}
	objective := ""
	numClass := 1

	var treeParams map[string]string
	inTree := false
	treeIndex := 0

	flush := func() error {
		if !inTree {
			return nil
		}
		tree, err := buildImportedTree(treeParams)
		if err != nil {
			return predsqlErrors.Wrapf(err, "tree %d", treeIndex)
		}
		m.Trees = append(m.Trees, tree)
		inTree = false
		return nil
	}

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		if line == "" {
			if err := flush(); err != nil {
				return nil, err
			}
			continue
		}

		if strings.HasPrefix(line, "Tree=") {
			if err := flush(); err != nil {
				return nil, err
			}
			idx, err := strconv.Atoi(strings.TrimPrefix(line, "Tree="))
			if err != nil {
				return nil, predsqlErrors.Wrap(predsqlErrors.ErrInvalidModel, "invalid tree index")
			}
			treeIndex = idx
			treeParams = make(map[string]string)
			inTree = true
			continue
		}

		if !strings.Contains(line, "=") {
			continue
		}
		parts := strings.SplitN(line, "=", 2)
		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		if inTree {
			treeParams[key] = value
			continue
		}

		switch key {
		case "objective":
			fields := strings.Fields(value)
			if len(fields) > 0 {
				objective = fields[0]
			}
		case "num_class":
			numClass, _ = strconv.Atoi(value)
		case "max_feature_idx":
			maxFeature, _ := strconv.Atoi(value)
			m.NumFeatures = maxFeature + 1
		case "feature_names":
			m.FeatureNames = strings.Fields(value)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, predsqlErrors.Wrap(err, "failed to read model")
	}
	if err := flush(); err != nil {
		return nil, err
	}

	if objective != "" && !isRegressionObjective(objective) {
		return nil, predsqlErrors.Wrapf(predsqlErrors.ErrNotImplemented,
			"objective %q: only regression models can be imported", objective)
	}
	if numClass > 1 {
		return nil, predsqlErrors.Wrapf(predsqlErrors.ErrNotImplemented,
			"num_class %d: only single-output regression models can be imported", numClass)
	}
	if len(m.Trees) == 0 {
		return nil, predsqlErrors.Wrap(predsqlErrors.ErrInvalidModel, "model has no trees")
	}

	// Hand-written fixtures may omit max_feature_idx
	if m.NumFeatures == 0 {
		maxFeature := -1
		for ti := range m.Trees {
			for _, n := range m.Trees[ti].Nodes {
				if !n.Leaf && n.Feature > maxFeature {
					maxFeature = n.Feature
				}
			}
		}
		m.NumFeatures = maxFeature + 1
	}

	return m, nil
}

// isRegressionObjective reports whether a LightGBM objective name denotes
// identity-link regression. Log-link objectives (poisson, gamma, tweedie)
// predict exp(raw score) and cannot be evaluated as a plain sum.
func isRegressionObjective(name string) bool {
	if strings.HasPrefix(name, "regression") {
		return true
	}
	switch name {
	case "l1", "l2", "mean_squared_error", "mean_absolute_error",
		"mse", "mae", "rmse", "huber", "fair", "quantile", "mape":
		return true
	}
	return false
}

// buildImportedTree converts one Tree=N block into the flat node layout.
//
// LightGBM stores internal nodes and leaves in separate arrays: child
// index c >= 0 references internal node c, c < 0 references leaf -(c)-1.
// Here both live in a single array with leaves appended after the internal
// nodes. Bit 2 of decision_type marks splits whose missing values default
// left.
func buildImportedTree(params map[string]string) (Tree, error) {
	leafValues := parseFloatArray(params["leaf_value"])
	splitFeatures := parseIntArray(params["split_feature"])

	// A constant tree is a single leaf
	if len(splitFeatures) == 0 {
		if len(leafValues) == 0 {
			return Tree{}, predsqlErrors.Wrap(predsqlErrors.ErrInvalidModel, "no leaf values")
		}
		return Tree{Nodes: []Node{{Leaf: true, Value: leafValues[0]}}}, nil
	}

	thresholds := parseFloatArray(params["threshold"])
	leftChildren := parseIntArray(params["left_child"])
	rightChildren := parseIntArray(params["right_child"])
	decisionTypes := parseIntArray(params["decision_type"])

	numInternal := len(splitFeatures)
	if len(thresholds) != numInternal || len(leftChildren) != numInternal || len(rightChildren) != numInternal {
		return Tree{}, predsqlErrors.Wrap(predsqlErrors.ErrInvalidModel, "split arrays disagree in length")
	}
	if len(leafValues) != numInternal+1 {
		return Tree{}, predsqlErrors.Wrapf(predsqlErrors.ErrInvalidModel,
			"%d internal nodes require %d leaves, got %d", numInternal, numInternal+1, len(leafValues))
	}

	// Internal nodes keep their indices; leaf k lands at numInternal+k
	childIndex := func(c int) (int, error) {
		if c >= 0 {
			if c >= numInternal {
				return 0, predsqlErrors.Wrapf(predsqlErrors.ErrInvalidModel, "child index %d out of range", c)
			}
			return c, nil
		}
		leaf := -(c) - 1
		if leaf >= len(leafValues) {
			return 0, predsqlErrors.Wrapf(predsqlErrors.ErrInvalidModel, "leaf index %d out of range", leaf)
		}
		return numInternal + leaf, nil
	}

	nodes := make([]Node, numInternal+len(leafValues))
	for i := 0; i < numInternal; i++ {
		left, err := childIndex(leftChildren[i])
		if err != nil {
			return Tree{}, err
		}
		right, err := childIndex(rightChildren[i])
		if err != nil {
			return Tree{}, err
		}

		defaultLeft := false
		if i < len(decisionTypes) {
			defaultLeft = decisionTypes[i]&(1<<1) != 0
		}

		nodes[i] = Node{
			Feature:     splitFeatures[i],
			Threshold:   thresholds[i],
			Left:        left,
			Right:       right,
			DefaultLeft: defaultLeft,
		}
	}
	for k, v := range leafValues {
		nodes[numInternal+k] = Node{Leaf: true, Value: v}
	}

	return Tree{Nodes: nodes}, nil
}

// parseIntArray parses a space-separated string of integers.
func parseIntArray(s string) []int {
	if s == "" {
		return nil
	}
	fields := strings.Fields(s)
	result := make([]int, 0, len(fields))
	for _, f := range fields {
		if v, err := strconv.Atoi(f); err == nil {
			result = append(result, v)
		}
	}
	return result
}

// parseFloatArray parses a space-separated string of floats.
func parseFloatArray(s string) []float64 {
	if s == "" {
		return nil
	}
	fields := strings.Fields(s)
	result := make([]float64, 0, len(fields))
	for _, f := range fields {
		if v, err := strconv.ParseFloat(f, 64); err == nil {
			result = append(result, v)
		}
	}
	return result
}
