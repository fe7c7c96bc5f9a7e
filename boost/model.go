// Package boost implements gradient-boosted regression trees with a
// squared-error objective.
//
// Training follows the second-order boosting recipe: each iteration
// computes gradients g = pred - y and hessians h = 1 against the running
// predictions, grows one regression tree by exact greedy search over every
// candidate threshold, and adds the tree's leaf values -G/(H+lambda),
// scaled by the learning rate, to the running predictions.
//
// Trees are stored as flat node arrays with node 0 as the root. A sample
// routes left when its feature value is less than or equal to the node
// threshold and right otherwise; equality routes left, and NaN routes by
// the node's DefaultLeft flag. Leaf values already include the learning
// rate, so a prediction is the init score plus one leaf value per tree.
//
// Models trained here and models imported from the LightGBM text format
// share the same representation, translate to portable model documents via
// PortableSpec, and produce identical routing in every downstream consumer.
//
// Basic usage:
//
//	reg := boost.NewRegressor().
//		WithNumIterations(50).
//		WithMaxDepth(4)
//	if err := reg.Fit(X, y); err != nil {
//		log.Fatal(err)
//	}
//	predictions, err := reg.Predict(XTest)
package boost

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/ezoic/predsql/modelspec"
	predsqlErrors "github.com/ezoic/predsql/pkg/errors"
)

// Node is one node of a regression tree. A node is either a split
// (Feature, Threshold, Left, Right) or a leaf (Leaf true, Value), never
// both. Child fields index into the owning tree's node array.
type Node struct {
	Feature     int
	Threshold   float64
	Left        int
	Right       int
	DefaultLeft bool
	Leaf        bool
	Value       float64
}

// Tree is a single regression tree stored as a flat node array. Nodes[0]
// is the root.
type Tree struct {
	Nodes []Node
}

// Model is a gradient-boosted tree ensemble. Leaf values carry the
// learning rate already applied, so a prediction is InitScore plus the
// sum of one leaf value per tree.
type Model struct {
	Trees       []Tree
	InitScore   float64
	NumFeatures int

	// FeatureNames is filled by the LightGBM loader when the model file
	// names its features. Models trained here leave it nil.
	FeatureNames []string
}

// NumTrees returns the number of trees in the ensemble.
func (m *Model) NumTrees() int {
	return len(m.Trees)
}

// PredictRow predicts a single sample. The features slice must hold
// NumFeatures values in training-column order; missing values are NaN and
// route by each node's DefaultLeft flag.
func (m *Model) PredictRow(features []float64) float64 {
	pred := m.InitScore
	for i := range m.Trees {
		pred += m.Trees[i].response(features)
	}
	return pred
}

// Predict predicts every row of X and returns a (rows, 1) matrix.
func (m *Model) Predict(X mat.Matrix) (mat.Matrix, error) {
	rows, cols := X.Dims()
	if cols != m.NumFeatures {
		return nil, predsqlErrors.NewDimensionError("Model.Predict", m.NumFeatures, cols, 1)
	}

	predictions := mat.NewDense(rows, 1, nil)
	features := make([]float64, cols)
	for i := 0; i < rows; i++ {
		mat.Row(features, i, X)
		predictions.Set(i, 0, m.PredictRow(features))
	}
	return predictions, nil
}

// PortableSpec translates the ensemble into a portable model document.
//
// The features slice names the training matrix columns in order and must
// match the model's feature count; target names the predicted column. The
// document is validated before it is returned.
func (m *Model) PortableSpec(features []string, target string) (modelspec.Spec, error) {
	const op = "Model.PortableSpec"
	if len(m.Trees) == 0 {
		return nil, predsqlErrors.Wrapf(predsqlErrors.ErrInvalidModel, "%s: model has no trees", op)
	}
	if len(features) != m.NumFeatures {
		return nil, predsqlErrors.NewDimensionError(op, m.NumFeatures, len(features), 1)
	}

	spec := &modelspec.Ensemble{
		Features:   append([]string{}, features...),
		TargetName: target,
		InitScore:  m.InitScore,
		Trees:      make([]modelspec.Tree, len(m.Trees)),
	}
	for i := range m.Trees {
		src := m.Trees[i].Nodes
		nodes := make([]modelspec.Node, len(src))
		for j, n := range src {
			nodes[j] = modelspec.Node{
				Feature:     n.Feature,
				Threshold:   n.Threshold,
				Left:        n.Left,
				Right:       n.Right,
				DefaultLeft: n.DefaultLeft,
				Leaf:        n.Leaf,
				Value:       n.Value,
			}
		}
		spec.Trees[i] = modelspec.Tree{Nodes: nodes}
	}
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	return spec, nil
}

// response walks the tree for one sample and returns the leaf value. The
// step bound guards against malformed child links in hand-built trees; a
// walk that does not reach a leaf yields NaN.
func (t *Tree) response(features []float64) float64 {
	idx := 0
	for steps := 0; steps < len(t.Nodes); steps++ {
		if idx < 0 || idx >= len(t.Nodes) {
			return math.NaN()
		}
		n := &t.Nodes[idx]
		if n.Leaf {
			return n.Value
		}
		if n.Feature < 0 || n.Feature >= len(features) {
			return math.NaN()
		}

		v := features[n.Feature]
		switch {
		case math.IsNaN(v):
			if n.DefaultLeft {
				idx = n.Left
			} else {
				idx = n.Right
			}
		case v <= n.Threshold:
			idx = n.Left
		default:
			idx = n.Right
		}
	}
	return math.NaN()
}
