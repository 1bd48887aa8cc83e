package anomaly

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sort"
)

// Detector is the capability the rest of the pipeline consumes: fit a
// numeric matrix, then produce real-valued anomaly scores (lower = more
// anomalous) and boundary labels for new matrices. Any implementation
// satisfying this interface can replace the built-in forest.
type Detector interface {
	Fit(ctx context.Context, matrix [][]float64) error
	Score(matrix [][]float64) ([]float64, error)
	Predict(matrix [][]float64) ([]bool, error)
}

var (
	// ErrNoTrainingData is returned when fitting is attempted on an
	// empty matrix
	ErrNoTrainingData = errors.New("no training data")
	// ErrModelNotFitted is returned when scoring precedes fitting
	ErrModelNotFitted = errors.New("model not fitted")
)

// ForestConfig holds the isolation forest hyperparameters. Seed is an
// explicit configuration value so a fixed seed reproduces the same model;
// no ambient random state is touched.
type ForestConfig struct {
	Trees         int     `json:"trees"`
	Subsample     int     `json:"subsample"`
	Contamination float64 `json:"contamination"`
	Seed          int64   `json:"seed"`
}

// IsolationForest is an ensemble of random partition trees. Scores follow
// the decision-function convention: values below the fitted Offset are
// anomalous, and the Offset itself is fixed at fit time at the
// contamination percentile of the training score distribution.
type IsolationForest struct {
	Config ForestConfig `json:"config"`
	Roots  []*treeNode  `json:"roots"`
	Offset float64      `json:"offset"`
	// normalization constant c(psi) for the subsample size actually used
	PathNorm float64 `json:"path_norm"`
}

// treeNode is one node of an isolation tree. Leaves have no children and
// carry the number of samples they isolate.
type treeNode struct {
	SplitAttr  int       `json:"a,omitempty"`
	SplitValue float64   `json:"v,omitempty"`
	Left       *treeNode `json:"l,omitempty"`
	Right      *treeNode `json:"r,omitempty"`
	Size       int       `json:"n,omitempty"`
}

func (n *treeNode) isLeaf() bool {
	return n.Left == nil && n.Right == nil
}

// NewIsolationForest creates an unfitted forest with the given parameters
func NewIsolationForest(cfg ForestConfig) *IsolationForest {
	return &IsolationForest{Config: cfg}
}

// Fit builds the ensemble over the matrix and fixes the decision Offset.
// Deterministic for a fixed seed.
func (f *IsolationForest) Fit(ctx context.Context, matrix [][]float64) error {
	if len(matrix) == 0 {
		return ErrNoTrainingData
	}
	if f.Config.Trees < 1 {
		return fmt.Errorf("invalid tree count %d", f.Config.Trees)
	}

	psi := f.Config.Subsample
	if psi > len(matrix) {
		psi = len(matrix)
	}
	if psi < 1 {
		psi = len(matrix)
	}
	heightLimit := int(math.Ceil(math.Log2(float64(psi)))) + 1
	f.PathNorm = avgPathLength(psi)

	rng := rand.New(rand.NewSource(f.Config.Seed))
	f.Roots = make([]*treeNode, f.Config.Trees)
	for i := 0; i < f.Config.Trees; i++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		sample := subsample(rng, matrix, psi)
		f.Roots[i] = buildTree(rng, sample, 0, heightLimit)
	}

	// Fix the decision boundary at the contamination percentile of the
	// training scores so Predict is a pure comparison afterwards.
	scores, err := f.Score(matrix)
	if err != nil {
		return err
	}
	f.Offset = Percentile(scores, f.Config.Contamination*100)
	return nil
}

// Score computes the anomaly score of every row; lower = more anomalous.
// Scores lie in (-0.5, 0.5) with typical inliers near the top of the range.
func (f *IsolationForest) Score(matrix [][]float64) ([]float64, error) {
	if len(f.Roots) == 0 {
		return nil, ErrModelNotFitted
	}
	scores := make([]float64, len(matrix))
	for i, row := range matrix {
		var total float64
		for _, root := range f.Roots {
			total += pathLength(root, row, 0)
		}
		avg := total / float64(len(f.Roots))
		// s in (0, 1], higher = more isolated = more anomalous
		s := math.Pow(2, -avg/f.PathNorm)
		scores[i] = 0.5 - s
	}
	return scores, nil
}

// Predict labels every row against the fitted decision boundary
func (f *IsolationForest) Predict(matrix [][]float64) ([]bool, error) {
	scores, err := f.Score(matrix)
	if err != nil {
		return nil, err
	}
	flags := make([]bool, len(scores))
	for i, s := range scores {
		flags[i] = s < f.Offset
	}
	return flags, nil
}

// subsample draws psi rows without replacement
func subsample(rng *rand.Rand, matrix [][]float64, psi int) [][]float64 {
	if psi >= len(matrix) {
		return matrix
	}
	idx := rng.Perm(len(matrix))[:psi]
	out := make([][]float64, psi)
	for i, j := range idx {
		out[i] = matrix[j]
	}
	return out
}

// buildTree grows one isolation tree by recursive random splits
func buildTree(rng *rand.Rand, rows [][]float64, depth, heightLimit int) *treeNode {
	if len(rows) <= 1 || depth >= heightLimit {
		return &treeNode{Size: len(rows)}
	}

	// Pick a random attribute with spread; a node where every attribute
	// is constant cannot be split further.
	attrs := rng.Perm(len(rows[0]))
	attr, lo, hi, ok := -1, 0.0, 0.0, false
	for _, a := range attrs {
		lo, hi = columnRange(rows, a)
		if hi > lo {
			attr, ok = a, true
			break
		}
	}
	if !ok {
		return &treeNode{Size: len(rows)}
	}

	split := lo + rng.Float64()*(hi-lo)
	var left, right [][]float64
	for _, row := range rows {
		if row[attr] < split {
			left = append(left, row)
		} else {
			right = append(right, row)
		}
	}

	return &treeNode{
		SplitAttr:  attr,
		SplitValue: split,
		Left:       buildTree(rng, left, depth+1, heightLimit),
		Right:      buildTree(rng, right, depth+1, heightLimit),
	}
}

func columnRange(rows [][]float64, attr int) (lo, hi float64) {
	lo, hi = rows[0][attr], rows[0][attr]
	for _, row := range rows[1:] {
		if row[attr] < lo {
			lo = row[attr]
		}
		if row[attr] > hi {
			hi = row[attr]
		}
	}
	return lo, hi
}

// pathLength walks a row down one tree, terminating leaves with the average
// path adjustment for the samples they hold
func pathLength(node *treeNode, row []float64, depth int) float64 {
	if node.isLeaf() {
		return float64(depth) + avgPathLength(node.Size)
	}
	if row[node.SplitAttr] < node.SplitValue {
		return pathLength(node.Left, row, depth+1)
	}
	return pathLength(node.Right, row, depth+1)
}

const eulerGamma = 0.5772156649015329

// avgPathLength is c(n), the average path length of an unsuccessful BST
// search over n samples
func avgPathLength(n int) float64 {
	if n < 2 {
		return 0
	}
	h := math.Log(float64(n-1)) + eulerGamma
	return 2*h - 2*float64(n-1)/float64(n)
}

// Percentile computes the p-th percentile (0-100) of values with linear
// interpolation between closest ranks
func Percentile(values []float64, p float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	if p <= 0 {
		return sorted[0]
	}
	if p >= 100 {
		return sorted[len(sorted)-1]
	}
	rank := p / 100 * float64(len(sorted)-1)
	lo := int(math.Floor(rank))
	frac := rank - float64(lo)
	if lo+1 >= len(sorted) {
		return sorted[lo]
	}
	return sorted[lo] + frac*(sorted[lo+1]-sorted[lo])
}
