// Package ensemble provides bagged tree ensembles.
package ensemble

import (
	"fmt"
	"math/rand/v2"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/tumoreval/core/model"
	"github.com/YuminosukeSato/tumoreval/core/parallel"
	"github.com/YuminosukeSato/tumoreval/pkg/errors"
	"github.com/YuminosukeSato/tumoreval/sklearn/tree"
)

// RandomForestClassifier averages the class probabilities of decision trees
// grown on bootstrap replicates with random feature subsets.
type RandomForestClassifier struct {
	state *model.StateManager

	nEstimators     int
	criterion       string
	maxDepth        int
	minSamplesSplit int
	minSamplesLeaf  int
	maxFeatures     string
	bootstrap       bool
	randomState     int64

	estimators         []*tree.DecisionTreeClassifier
	featureImportances []float64
}

// Option configures a RandomForestClassifier.
type Option func(*RandomForestClassifier)

// WithNEstimators sets the number of trees.
func WithNEstimators(n int) Option {
	return func(rf *RandomForestClassifier) { rf.nEstimators = n }
}

// WithCriterion sets the split criterion of every tree.
func WithCriterion(criterion string) Option {
	return func(rf *RandomForestClassifier) { rf.criterion = criterion }
}

// WithMaxDepth limits the depth of every tree. Values below 1 mean no limit.
func WithMaxDepth(depth int) Option {
	return func(rf *RandomForestClassifier) { rf.maxDepth = depth }
}

// WithMinSamplesSplit sets min_samples_split for every tree.
func WithMinSamplesSplit(n int) Option {
	return func(rf *RandomForestClassifier) { rf.minSamplesSplit = n }
}

// WithMinSamplesLeaf sets min_samples_leaf for every tree.
func WithMinSamplesLeaf(n int) Option {
	return func(rf *RandomForestClassifier) { rf.minSamplesLeaf = n }
}

// WithMaxFeatures sets the per-split feature subset: "sqrt" (default), "log2" or "all".
func WithMaxFeatures(mode string) Option {
	return func(rf *RandomForestClassifier) { rf.maxFeatures = mode }
}

// WithBootstrap toggles bootstrap sampling. Without it every tree sees the full set.
func WithBootstrap(enabled bool) Option {
	return func(rf *RandomForestClassifier) { rf.bootstrap = enabled }
}

// WithRandomState seeds tree seeds and bootstrap draws.
func WithRandomState(seed int64) Option {
	return func(rf *RandomForestClassifier) { rf.randomState = seed }
}

// NewRandomForestClassifier creates an unfitted forest with scikit-learn's
// defaults: 100 trees, gini, sqrt features, bootstrap.
func NewRandomForestClassifier(opts ...Option) *RandomForestClassifier {
	rf := &RandomForestClassifier{
		state:           model.NewStateManager(),
		nEstimators:     100,
		criterion:       "gini",
		maxDepth:        -1,
		minSamplesSplit: 2,
		minSamplesLeaf:  1,
		maxFeatures:     "sqrt",
		bootstrap:       true,
	}
	for _, opt := range opts {
		opt(rf)
	}
	return rf
}

// Fit grows the trees. Tree seeds are drawn sequentially from the forest
// seed before any tree is built, so the result does not depend on how the
// trees are scheduled across goroutines.
func (rf *RandomForestClassifier) Fit(X, y mat.Matrix) error {
	if rf.nEstimators < 1 {
		return errors.NewValidationError("n_estimators", "must be at least 1", rf.nEstimators)
	}
	labels, err := model.ValidateFitInput("RandomForestClassifier.Fit", X, y)
	if err != nil {
		return err
	}
	rf.Reset()

	rows, cols := X.Dims()
	Xd := mat.DenseCopyOf(X)
	yv := mat.NewVecDense(rows, labels)

	rng := rand.New(rand.NewPCG(uint64(rf.randomState), uint64(rf.randomState)))
	seeds := make([]int64, rf.nEstimators)
	for i := range seeds {
		seeds[i] = rng.Int64N(1 << 31)
	}

	estimators := make([]*tree.DecisionTreeClassifier, rf.nEstimators)
	errs := make([]error, rf.nEstimators)
	parallel.ParallelizeWithThreshold(rf.nEstimators, 4, func(start, end int) {
		for i := start; i < end; i++ {
			est := tree.NewDecisionTreeClassifier(
				tree.WithCriterion(rf.criterion),
				tree.WithMaxDepth(rf.maxDepth),
				tree.WithMinSamplesSplit(rf.minSamplesSplit),
				tree.WithMinSamplesLeaf(rf.minSamplesLeaf),
				tree.WithMaxFeatures(rf.maxFeatures),
				tree.WithRandomState(seeds[i]),
			)
			var weights []float64
			if rf.bootstrap {
				weights = bootstrapWeights(rows, seeds[i])
			}
			errs[i] = errors.SafeExecute(fmt.Sprintf("RandomForestClassifier.tree[%d]", i), func() error {
				return est.FitWeighted(Xd, yv, weights)
			})
			estimators[i] = est
		}
	})
	for i, err := range errs {
		if err != nil {
			return errors.Wrapf(err, "RandomForestClassifier: tree %d", i)
		}
	}

	importances := make([]float64, cols)
	for _, est := range estimators {
		floats.Add(importances, est.GetFeatureImportances())
	}
	if sum := floats.Sum(importances); sum > 0 {
		floats.Scale(1/sum, importances)
	}

	rf.estimators = estimators
	rf.featureImportances = importances
	rf.state.SetClasses(model.UniqueSorted(labels))
	rf.state.SetDimensions(cols, rows)
	rf.state.SetFitted()
	return nil
}

// bootstrapWeights draws n indices with replacement and returns how often
// each sample was drawn.
func bootstrapWeights(n int, seed int64) []float64 {
	rng := rand.New(rand.NewPCG(uint64(seed), ^uint64(seed)))
	w := make([]float64, n)
	for i := 0; i < n; i++ {
		w[rng.IntN(n)]++
	}
	return w
}

// PredictProba averages the per-tree class probabilities (soft voting).
func (rf *RandomForestClassifier) PredictProba(X mat.Matrix) (mat.Matrix, error) {
	if err := rf.state.RequireFitted("RandomForestClassifier", "PredictProba"); err != nil {
		return nil, err
	}
	rows, cols := X.Dims()
	if err := rf.state.RequireFeatures("RandomForestClassifier.PredictProba", cols); err != nil {
		return nil, err
	}

	nClasses := len(rf.state.Classes())
	sum := mat.NewDense(rows, nClasses, nil)
	for i, est := range rf.estimators {
		p, err := est.PredictProba(X)
		if err != nil {
			return nil, errors.Wrapf(err, "RandomForestClassifier: tree %d", i)
		}
		sum.Add(sum, p)
	}
	sum.Scale(1/float64(len(rf.estimators)), sum)
	return sum, nil
}

// Predict returns the class with the highest averaged probability.
func (rf *RandomForestClassifier) Predict(X mat.Matrix) (mat.Matrix, error) {
	proba, err := rf.PredictProba(X)
	if err != nil {
		return nil, err
	}
	classes := rf.state.Classes()
	rows, _ := proba.Dims()
	out := mat.NewVecDense(rows, nil)
	p := proba.(*mat.Dense)
	for i := 0; i < rows; i++ {
		out.SetVec(i, classes[floats.MaxIdx(p.RawRowView(i))])
	}
	return out, nil
}

// Classes returns the sorted labels seen during Fit.
func (rf *RandomForestClassifier) Classes() []float64 {
	return rf.state.Classes()
}

// IsFitted reports whether the forest has been grown.
func (rf *RandomForestClassifier) IsFitted() bool {
	return rf.state.IsFitted()
}

// Reset discards the trees and keeps the hyperparameters.
func (rf *RandomForestClassifier) Reset() {
	rf.state.Reset()
	rf.estimators = nil
	rf.featureImportances = nil
}

// Estimators returns the fitted trees.
func (rf *RandomForestClassifier) Estimators() []*tree.DecisionTreeClassifier {
	return rf.estimators
}

// GetFeatureImportances returns the normalized mean impurity decrease per feature.
func (rf *RandomForestClassifier) GetFeatureImportances() []float64 {
	return append([]float64(nil), rf.featureImportances...)
}

// GetParams returns the hyperparameters.
func (rf *RandomForestClassifier) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"n_estimators":      rf.nEstimators,
		"criterion":         rf.criterion,
		"max_depth":         rf.maxDepth,
		"min_samples_split": rf.minSamplesSplit,
		"min_samples_leaf":  rf.minSamplesLeaf,
		"max_features":      rf.maxFeatures,
		"bootstrap":         rf.bootstrap,
		"random_state":      rf.randomState,
	}
}
