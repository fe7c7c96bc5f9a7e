package modelspec

import (
	"math"

	"github.com/ezoic/predsql/pkg/errors"
)

// Ensemble is the portable document for an additive tree ensemble.
//
// A prediction is InitScore plus the response of every tree. Leaf values are
// stored post-shrinkage: whatever learning rate the trainer used is already
// folded in, so evaluation is a plain sum.
type Ensemble struct {
	Features   []string `yaml:"features"`
	TargetName string   `yaml:"target,omitempty"`
	InitScore  float64  `yaml:"init_score"`
	Trees      []Tree   `yaml:"trees"`
}

// Tree is one regression tree stored as a flat node array. Nodes[0] is the
// root; internal nodes reference children by index.
type Tree struct {
	Nodes []Node `yaml:"nodes"`
}

// Node is either a split or a leaf, discriminated by Leaf.
//
// Split nodes route a row by comparing one feature value against Threshold:
// value <= Threshold goes to Nodes[Left], value > Threshold to Nodes[Right].
// A missing value (NaN) goes left when DefaultLeft is set, right otherwise.
// Leaf nodes carry only Value.
type Node struct {
	Feature     int     `yaml:"feature,omitempty"`
	Threshold   float64 `yaml:"threshold,omitempty"`
	Left        int     `yaml:"left,omitempty"`
	Right       int     `yaml:"right,omitempty"`
	DefaultLeft bool    `yaml:"default_left,omitempty"`
	Leaf        bool    `yaml:"leaf,omitempty"`
	Value       float64 `yaml:"value,omitempty"`
}

// MarshalYAML emits only the fields relevant to the node's shape, keeping
// documents compact: leaves as {leaf, value}, splits as
// {feature, threshold, left, right} plus default_left when set.
func (n Node) MarshalYAML() (interface{}, error) {
	if n.Leaf {
		return struct {
			Leaf  bool    `yaml:"leaf"`
			Value float64 `yaml:"value"`
		}{true, n.Value}, nil
	}
	return struct {
		Feature     int     `yaml:"feature"`
		Threshold   float64 `yaml:"threshold"`
		Left        int     `yaml:"left"`
		Right       int     `yaml:"right"`
		DefaultLeft bool    `yaml:"default_left,omitempty"`
	}{n.Feature, n.Threshold, n.Left, n.Right, n.DefaultLeft}, nil
}

// Kind returns KindTreeEnsemble.
func (e *Ensemble) Kind() Kind { return KindTreeEnsemble }

// FeatureNames returns a copy of the model's feature names in column order.
func (e *Ensemble) FeatureNames() []string {
	out := make([]string, len(e.Features))
	copy(out, e.Features)
	return out
}

// Target returns the name of the predicted column ("" if unset).
func (e *Ensemble) Target() string { return e.TargetName }

// Predict evaluates the ensemble for one row: init score plus every tree's
// leaf value. NaN features route through default_left.
func (e *Ensemble) Predict(features []float64) (float64, error) {
	if len(features) != len(e.Features) {
		return 0, errors.NewDimensionError("Ensemble.Predict", len(e.Features), len(features), 1)
	}
	sum := e.InitScore
	for ti := range e.Trees {
		v, err := e.Trees[ti].response(features)
		if err != nil {
			return 0, err
		}
		sum += v
	}
	return sum, nil
}

// response walks one tree from the root to a leaf. The step bound guards
// against cyclic node graphs in documents that skipped Validate.
func (t *Tree) response(features []float64) (float64, error) {
	idx := 0
	for steps := 0; steps <= len(t.Nodes); steps++ {
		n := &t.Nodes[idx]
		if n.Leaf {
			return n.Value, nil
		}
		x := features[n.Feature]
		switch {
		case math.IsNaN(x):
			if n.DefaultLeft {
				idx = n.Left
			} else {
				idx = n.Right
			}
		case x <= n.Threshold:
			idx = n.Left
		default:
			idx = n.Right
		}
	}
	return 0, errors.Wrap(errors.ErrInvalidModel, "Tree.response: node cycle")
}

// Validate checks structural consistency of the whole ensemble: named
// features, at least one tree, and for every tree a flat node array that
// forms a proper binary tree (each node reachable from the root exactly
// once, splits referencing valid features and children, leaves carrying no
// split fields).
func (e *Ensemble) Validate() error {
	const op = "Ensemble.Validate"
	if err := validFeatures(op, e.Features); err != nil {
		return err
	}
	if !isFinite(e.InitScore) {
		return errors.Wrapf(errors.ErrInvalidModel, "%s: init_score is not finite", op)
	}
	if len(e.Trees) == 0 {
		return errors.Wrapf(errors.ErrInvalidModel, "%s: ensemble has no trees", op)
	}
	for ti := range e.Trees {
		if err := e.Trees[ti].validate(len(e.Features)); err != nil {
			return errors.Wrapf(err, "%s: tree %d", op, ti)
		}
	}
	return nil
}

// validate walks the node array from the root and checks that it encodes a
// proper binary tree over nFeatures features.
func (t *Tree) validate(nFeatures int) error {
	if len(t.Nodes) == 0 {
		return errors.Wrap(errors.ErrInvalidModel, "tree has no nodes")
	}
	visited := make([]bool, len(t.Nodes))
	stack := []int{0}
	for len(stack) > 0 {
		idx := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if idx < 0 || idx >= len(t.Nodes) {
			return errors.Wrapf(errors.ErrInvalidModel, "node index %d out of range", idx)
		}
		if visited[idx] {
			return errors.Wrapf(errors.ErrInvalidModel, "node %d reachable more than once", idx)
		}
		visited[idx] = true

		n := &t.Nodes[idx]
		if n.Leaf {
			if n.Feature != 0 || n.Threshold != 0 || n.Left != 0 || n.Right != 0 {
				return errors.Wrapf(errors.ErrInvalidModel, "leaf %d carries split fields", idx)
			}
			if !isFinite(n.Value) {
				return errors.Wrapf(errors.ErrInvalidModel, "leaf %d value is not finite", idx)
			}
			continue
		}
		if n.Feature < 0 || n.Feature >= nFeatures {
			return errors.Wrapf(errors.ErrInvalidModel, "split %d references feature %d of %d", idx, n.Feature, nFeatures)
		}
		if !isFinite(n.Threshold) {
			return errors.Wrapf(errors.ErrInvalidModel, "split %d threshold is not finite", idx)
		}
		if n.Value != 0 {
			return errors.Wrapf(errors.ErrInvalidModel, "split %d carries a leaf value", idx)
		}
		stack = append(stack, n.Left, n.Right)
	}
	for idx, ok := range visited {
		if !ok {
			return errors.Wrapf(errors.ErrInvalidModel, "node %d unreachable from root", idx)
		}
	}
	return nil
}
