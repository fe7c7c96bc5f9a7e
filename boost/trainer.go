package boost

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/ezoic/predsql/pkg/log"
)

// TrainingParams contains the boosting hyperparameters.
type TrainingParams struct {
	NumIterations  int     `json:"num_iterations"`
	LearningRate   float64 `json:"learning_rate"`
	MaxDepth       int     `json:"max_depth"`
	MinDataInLeaf  int     `json:"min_data_in_leaf"`
	MinGainToSplit float64 `json:"min_gain_to_split"`
	Lambda         float64 `json:"lambda_l2"`
	Seed           int     `json:"seed"`
}

// DefaultTrainingParams returns the LightGBM-style regression defaults.
func DefaultTrainingParams() TrainingParams {
	return TrainingParams{
		NumIterations:  100,
		LearningRate:   0.1,
		MaxDepth:       6,
		MinDataInLeaf:  20,
		MinGainToSplit: 1e-7,
		Lambda:         1.0,
		Seed:           42,
	}
}

// trainer runs the boosting loop over one fixed training set.
type trainer struct {
	params TrainingParams
	logger log.Logger

	X *mat.Dense
	y []float64

	gradients   []float64
	hessians    []float64
	predictions []float64

	trees     []Tree
	initScore float64

	progress func(iteration int)
}

func newTrainer(params TrainingParams) *trainer {
	// Zero-valued fields fall back to the defaults
	if params.NumIterations == 0 {
		params.NumIterations = 100
	}
	if params.LearningRate == 0 {
		params.LearningRate = 0.1
	}
	if params.MaxDepth == 0 {
		params.MaxDepth = 6
	}
	if params.MinDataInLeaf == 0 {
		params.MinDataInLeaf = 20
	}
	if params.MinGainToSplit == 0 {
		params.MinGainToSplit = 1e-7
	}
	if params.Lambda == 0 {
		params.Lambda = 1.0
	}

	return &trainer{
		params: params,
		logger: log.GetLoggerWithName("boost.trainer"),
	}
}

// fit runs the full boosting loop. Inputs are validated by the caller.
func (t *trainer) fit(X *mat.Dense, y []float64) {
	t.X = X
	t.y = y

	rows, _ := X.Dims()
	t.gradients = make([]float64, rows)
	t.hessians = make([]float64, rows)
	t.predictions = make([]float64, rows)

	// The target mean is the optimal constant under squared error
	sum := 0.0
	for _, v := range y {
		sum += v
	}
	t.initScore = sum / float64(rows)
	for i := range t.predictions {
		t.predictions[i] = t.initScore
	}

	indices := make([]int, rows)
	for i := range indices {
		indices[i] = i
	}

	for iter := 0; iter < t.params.NumIterations; iter++ {
		t.calculateGradients()

		tree := t.buildTree(indices)
		t.trees = append(t.trees, tree)
		t.updatePredictions(tree)

		if iter%10 == 0 {
			t.logger.Debug("boosting progress",
				"iteration", iter,
				"loss", t.trainingLoss())
		}
		if t.progress != nil {
			t.progress(iter)
		}
	}
}

// model packages the trained trees into a standalone Model.
func (t *trainer) model() *Model {
	_, cols := t.X.Dims()
	return &Model{
		Trees:       t.trees,
		InitScore:   t.initScore,
		NumFeatures: cols,
	}
}

// calculateGradients computes the squared-error gradients and hessians
// against the running predictions: g = pred - y, h = 1.
func (t *trainer) calculateGradients() {
	for i := range t.gradients {
		t.gradients[i] = t.predictions[i] - t.y[i]
		t.hessians[i] = 1.0
	}
}

// updatePredictions folds the new tree into the running predictions. Leaf
// values already carry the learning rate.
func (t *trainer) updatePredictions(tree Tree) {
	_, cols := t.X.Dims()
	features := make([]float64, cols)
	for i := range t.predictions {
		mat.Row(features, i, t.X)
		t.predictions[i] += tree.response(features)
	}
}

// trainingLoss returns the mean squared error of the running predictions.
func (t *trainer) trainingLoss() float64 {
	loss := 0.0
	for i, pred := range t.predictions {
		d := pred - t.y[i]
		loss += d * d
	}
	return loss / float64(len(t.predictions))
}

// buildTree grows one regression tree by exact greedy search and scales
// its leaf values by the learning rate before the tree is stored.
func (t *trainer) buildTree(indices []int) Tree {
	tree := Tree{}
	t.buildNode(&tree, indices, 0)
	for i := range tree.Nodes {
		if tree.Nodes[i].Leaf {
			tree.Nodes[i].Value *= t.params.LearningRate
		}
	}
	return tree
}

// buildNode appends the subtree covering the given sample set to
// tree.Nodes and returns its root index.
func (t *trainer) buildNode(tree *Tree, indices []int, depth int) int {
	nodeIdx := len(tree.Nodes)

	sumGrad := 0.0
	sumHess := 0.0
	for _, idx := range indices {
		sumGrad += t.gradients[idx]
		sumHess += t.hessians[idx]
	}

	// No split can satisfy MinDataInLeaf on both sides below twice the
	// minimum, so the node is a leaf without searching.
	if (t.params.MaxDepth > 0 && depth >= t.params.MaxDepth) ||
		len(indices) < 2*t.params.MinDataInLeaf {
		tree.Nodes = append(tree.Nodes, t.leafNode(sumGrad, sumHess))
		return nodeIdx
	}

	best := t.findBestSplit(indices, sumGrad, sumHess)
	if best.feature < 0 || best.gain < t.params.MinGainToSplit {
		tree.Nodes = append(tree.Nodes, t.leafNode(sumGrad, sumHess))
		return nodeIdx
	}

	tree.Nodes = append(tree.Nodes, Node{
		Feature:   best.feature,
		Threshold: best.threshold,
	})

	leftIndices, rightIndices := t.splitData(indices, best.feature, best.threshold)
	leftChild := t.buildNode(tree, leftIndices, depth+1)
	rightChild := t.buildNode(tree, rightIndices, depth+1)
	tree.Nodes[nodeIdx].Left = leftChild
	tree.Nodes[nodeIdx].Right = rightChild

	return nodeIdx
}

// leafNode computes the regularized leaf weight -G/(H+lambda). The
// learning rate is applied once the whole tree is built.
func (t *trainer) leafNode(sumGrad, sumHess float64) Node {
	return Node{
		Leaf:  true,
		Value: -sumGrad / (sumHess + t.params.Lambda),
	}
}

// splitCandidate is the best split found for one node.
type splitCandidate struct {
	feature   int
	threshold float64
	gain      float64
}

// findBestSplit runs exact greedy search: every feature, every threshold
// at the midpoint between consecutive distinct sorted values. Split gain
// is 0.5*(GL^2/(HL+lambda) + GR^2/(HR+lambda) - G^2/(H+lambda)).
func (t *trainer) findBestSplit(indices []int, sumGrad, sumHess float64) splitCandidate {
	_, cols := t.X.Dims()
	best := splitCandidate{feature: -1, gain: math.Inf(-1)}

	lambda := t.params.Lambda
	parentScore := sumGrad * sumGrad / (sumHess + lambda)

	sorted := make([]int, len(indices))
	for feature := 0; feature < cols; feature++ {
		copy(sorted, indices)
		sort.Slice(sorted, func(a, b int) bool {
			return t.X.At(sorted[a], feature) < t.X.At(sorted[b], feature)
		})

		leftGrad := 0.0
		leftHess := 0.0
		for i := 0; i < len(sorted)-1; i++ {
			idx := sorted[i]
			leftGrad += t.gradients[idx]
			leftHess += t.hessians[idx]

			value := t.X.At(idx, feature)
			next := t.X.At(sorted[i+1], feature)
			// Thresholds only between distinct values
			if value == next {
				continue
			}

			leftCount := i + 1
			rightCount := len(sorted) - leftCount
			if leftCount < t.params.MinDataInLeaf || rightCount < t.params.MinDataInLeaf {
				continue
			}

			rightGrad := sumGrad - leftGrad
			rightHess := sumHess - leftHess
			gain := 0.5 * (leftGrad*leftGrad/(leftHess+lambda) +
				rightGrad*rightGrad/(rightHess+lambda) - parentScore)

			if gain > best.gain {
				best.feature = feature
				best.threshold = (value + next) / 2
				best.gain = gain
			}
		}
	}

	return best
}

// splitData partitions indices by the split convention: value <= threshold
// routes left, value > threshold routes right.
func (t *trainer) splitData(indices []int, feature int, threshold float64) ([]int, []int) {
	var leftIndices, rightIndices []int
	for _, idx := range indices {
		if t.X.At(idx, feature) <= threshold {
			leftIndices = append(leftIndices, idx)
		} else {
			rightIndices = append(rightIndices, idx)
		}
	}
	return leftIndices, rightIndices
}
