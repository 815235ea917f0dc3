// Package tree implements a CART decision tree classifier in the style of
// scikit-learn's DecisionTreeClassifier.
package tree

import (
	"fmt"
	"math"
	"math/rand/v2"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/tumoreval/core/model"
	"github.com/YuminosukeSato/tumoreval/pkg/errors"
)

const (
	// 閾値の比較で同一値とみなす幅
	featureThreshold = 1e-7
	impurityEpsilon  = 1e-12
)

// node は木の1ノード。葉ではleft/rightがnil。
type node struct {
	feature   int
	threshold float64
	left      *node
	right     *node

	// value はノードに到達した訓練サンプルのクラス別重み
	value    []float64
	impurity float64
	nSamples int
}

func (n *node) isLeaf() bool {
	return n.left == nil
}

// DecisionTreeClassifier is a CART classification tree.
type DecisionTreeClassifier struct {
	state *model.StateManager

	criterion       string
	maxDepth        int
	minSamplesSplit int
	minSamplesLeaf  int
	maxFeatures     string
	randomState     int64

	root               *node
	nClasses_          int
	depth              int
	nLeaves            int
	featureImportances []float64
}

// Option configures a DecisionTreeClassifier.
type Option func(*DecisionTreeClassifier)

// WithCriterion sets the impurity criterion: "gini" or "entropy".
func WithCriterion(criterion string) Option {
	return func(dt *DecisionTreeClassifier) { dt.criterion = criterion }
}

// WithMaxDepth limits the depth of the tree. Values below 1 mean no limit.
func WithMaxDepth(depth int) Option {
	return func(dt *DecisionTreeClassifier) { dt.maxDepth = depth }
}

// WithMinSamplesSplit sets the minimum number of samples required to split a node.
func WithMinSamplesSplit(n int) Option {
	return func(dt *DecisionTreeClassifier) { dt.minSamplesSplit = n }
}

// WithMinSamplesLeaf sets the minimum number of samples in each leaf.
func WithMinSamplesLeaf(n int) Option {
	return func(dt *DecisionTreeClassifier) { dt.minSamplesLeaf = n }
}

// WithMaxFeatures sets how many features are examined per split:
// "all" (default), "sqrt" or "log2".
func WithMaxFeatures(mode string) Option {
	return func(dt *DecisionTreeClassifier) { dt.maxFeatures = mode }
}

// WithRandomState seeds the per-node feature permutation.
func WithRandomState(seed int64) Option {
	return func(dt *DecisionTreeClassifier) { dt.randomState = seed }
}

// NewDecisionTreeClassifier creates an unfitted tree. Defaults follow
// scikit-learn: gini, unlimited depth, min_samples_split=2, min_samples_leaf=1.
func NewDecisionTreeClassifier(opts ...Option) *DecisionTreeClassifier {
	dt := &DecisionTreeClassifier{
		state:           model.NewStateManager(),
		criterion:       "gini",
		maxDepth:        -1,
		minSamplesSplit: 2,
		minSamplesLeaf:  1,
		maxFeatures:     "all",
	}
	for _, opt := range opts {
		opt(dt)
	}
	return dt
}

func (dt *DecisionTreeClassifier) validateParams() error {
	switch dt.criterion {
	case "gini", "entropy":
	default:
		return errors.NewValidationError("criterion", "must be 'gini' or 'entropy'", dt.criterion)
	}
	switch dt.maxFeatures {
	case "all", "sqrt", "log2":
	default:
		return errors.NewValidationError("max_features", "must be 'all', 'sqrt' or 'log2'", dt.maxFeatures)
	}
	if dt.minSamplesSplit < 2 {
		return errors.NewValidationError("min_samples_split", "must be at least 2", dt.minSamplesSplit)
	}
	if dt.minSamplesLeaf < 1 {
		return errors.NewValidationError("min_samples_leaf", "must be at least 1", dt.minSamplesLeaf)
	}
	return nil
}

// Fit builds the tree from X and the labels y.
func (dt *DecisionTreeClassifier) Fit(X, y mat.Matrix) error {
	return dt.FitWeighted(X, y, nil)
}

// FitWeighted builds the tree with per-sample weights. Samples with zero
// weight are ignored, which is how bootstrap replicates are expressed.
// A nil weight slice gives every sample weight 1.
func (dt *DecisionTreeClassifier) FitWeighted(X, y mat.Matrix, sampleWeight []float64) error {
	if err := dt.validateParams(); err != nil {
		return err
	}
	labels, err := model.ValidateFitInput("DecisionTreeClassifier.Fit", X, y)
	if err != nil {
		return err
	}
	rows, cols := X.Dims()
	if sampleWeight == nil {
		sampleWeight = make([]float64, rows)
		for i := range sampleWeight {
			sampleWeight[i] = 1
		}
	}
	if len(sampleWeight) != rows {
		return errors.NewDimensionError("DecisionTreeClassifier.FitWeighted", rows, len(sampleWeight), 0)
	}

	dt.state.Reset()
	classes := model.UniqueSorted(labels)
	index := model.ClassIndex(classes)
	yIdx := make([]int, rows)
	for i, l := range labels {
		yIdx[i] = index[l]
	}

	var samples []int
	for i, w := range sampleWeight {
		if w > 0 {
			samples = append(samples, i)
		}
	}
	if len(samples) == 0 {
		return errors.NewValueError("DecisionTreeClassifier.Fit", "all sample weights are zero")
	}

	b := &builder{
		X:           mat.DenseCopyOf(X),
		y:           yIdx,
		w:           sampleWeight,
		nClasses:    len(classes),
		nFeatures:   cols,
		maxFeatures: resolveMaxFeatures(dt.maxFeatures, cols),
		tree:        dt,
		rng:         rand.New(rand.NewPCG(uint64(dt.randomState), uint64(dt.randomState))),
		importances: make([]float64, cols),
	}

	dt.depth, dt.nLeaves = 0, 0
	dt.nClasses_ = len(classes)
	dt.root = b.build(samples, 0)

	if sum := floats.Sum(b.importances); sum > 0 {
		floats.Scale(1/sum, b.importances)
	}
	dt.featureImportances = b.importances

	dt.state.SetClasses(classes)
	dt.state.SetDimensions(cols, len(samples))
	dt.state.SetFitted()
	return nil
}

func resolveMaxFeatures(mode string, nFeatures int) int {
	var k int
	switch mode {
	case "sqrt":
		k = int(math.Sqrt(float64(nFeatures)))
	case "log2":
		k = int(math.Log2(float64(nFeatures)))
	default:
		k = nFeatures
	}
	if k < 1 {
		k = 1
	}
	return k
}

// builder holds the working state of a single Fit call.
type builder struct {
	X           *mat.Dense
	y           []int
	w           []float64
	nClasses    int
	nFeatures   int
	maxFeatures int
	tree        *DecisionTreeClassifier
	rng         *rand.Rand
	importances []float64
}

type split struct {
	feature   int
	threshold float64
	pos       int
	proxy     float64
}

func (b *builder) classWeights(samples []int) []float64 {
	v := make([]float64, b.nClasses)
	for _, s := range samples {
		v[b.y[s]] += b.w[s]
	}
	return v
}

func (b *builder) impurity(counts []float64) float64 {
	total := floats.Sum(counts)
	if total == 0 {
		return 0
	}
	switch b.tree.criterion {
	case "entropy":
		h := 0.0
		for _, c := range counts {
			if c > 0 {
				p := c / total
				h -= p * math.Log2(p)
			}
		}
		return h
	default:
		g := 1.0
		for _, c := range counts {
			p := c / total
			g -= p * p
		}
		return g
	}
}

func (b *builder) build(samples []int, depth int) *node {
	counts := b.classWeights(samples)
	n := &node{
		value:    counts,
		impurity: b.impurity(counts),
		nSamples: len(samples),
	}
	if depth > b.tree.depth {
		b.tree.depth = depth
	}

	dt := b.tree
	isLeaf := (dt.maxDepth > 0 && depth >= dt.maxDepth) ||
		len(samples) < dt.minSamplesSplit ||
		len(samples) < 2*dt.minSamplesLeaf ||
		n.impurity <= impurityEpsilon
	if isLeaf {
		b.tree.nLeaves++
		return n
	}

	best, ok := b.bestSplit(samples)
	if !ok {
		b.tree.nLeaves++
		return n
	}

	left := append([]int(nil), samples[:best.pos]...)
	right := append([]int(nil), samples[best.pos:]...)

	wNode := floats.Sum(counts)
	lc, rc := b.classWeights(left), b.classWeights(right)
	wl, wr := floats.Sum(lc), floats.Sum(rc)
	b.importances[best.feature] += wNode*n.impurity - wl*b.impurity(lc) - wr*b.impurity(rc)

	n.feature = best.feature
	n.threshold = best.threshold
	n.left = b.build(left, depth+1)
	n.right = b.build(right, depth+1)
	return n
}

// bestSplit searches the features in a random order and returns the split
// with the lowest weighted child impurity. samples is reordered so that the
// chosen split partitions it at best.pos.
func (b *builder) bestSplit(samples []int) (split, bool) {
	best := split{proxy: math.Inf(-1)}
	found := false
	minLeaf := b.tree.minSamplesLeaf
	order := b.rng.Perm(b.nFeatures)
	visited := 0

	work := append([]int(nil), samples...)
	for _, f := range order {
		if visited >= b.maxFeatures {
			break
		}
		sort.SliceStable(work, func(i, j int) bool {
			return b.X.At(work[i], f) < b.X.At(work[j], f)
		})
		if b.X.At(work[len(work)-1], f) <= b.X.At(work[0], f)+featureThreshold {
			// 定数特徴量は max_features に数えない
			continue
		}
		visited++

		left := make([]float64, b.nClasses)
		right := b.classWeights(work)
		for i := 1; i < len(work); i++ {
			s := work[i-1]
			left[b.y[s]] += b.w[s]
			right[b.y[s]] -= b.w[s]

			lo, hi := b.X.At(work[i-1], f), b.X.At(work[i], f)
			if hi <= lo+featureThreshold {
				continue
			}
			if i < minLeaf || len(work)-i < minLeaf {
				continue
			}
			wl, wr := floats.Sum(left), floats.Sum(right)
			proxy := -wl*b.impurity(left) - wr*b.impurity(right)
			if proxy > best.proxy {
				threshold := lo/2 + hi/2
				if threshold == hi || math.IsInf(threshold, 0) || math.IsNaN(threshold) {
					threshold = lo
				}
				best = split{feature: f, threshold: threshold, pos: i, proxy: proxy}
				found = true
			}
		}
	}
	if !found {
		return best, false
	}

	sort.SliceStable(samples, func(i, j int) bool {
		return b.X.At(samples[i], best.feature) < b.X.At(samples[j], best.feature)
	})
	return best, true
}

func (dt *DecisionTreeClassifier) checkPredict(method string, X mat.Matrix) error {
	if err := dt.state.RequireFitted("DecisionTreeClassifier", method); err != nil {
		return err
	}
	_, cols := X.Dims()
	return dt.state.RequireFeatures("DecisionTreeClassifier."+method, cols)
}

func (dt *DecisionTreeClassifier) leaf(X mat.Matrix, i int) *node {
	n := dt.root
	for !n.isLeaf() {
		if X.At(i, n.feature) <= n.threshold {
			n = n.left
		} else {
			n = n.right
		}
	}
	return n
}

// PredictProba returns the class distribution of the leaf each sample falls in.
func (dt *DecisionTreeClassifier) PredictProba(X mat.Matrix) (mat.Matrix, error) {
	if err := dt.checkPredict("PredictProba", X); err != nil {
		return nil, err
	}
	rows, _ := X.Dims()
	out := mat.NewDense(rows, dt.nClasses_, nil)
	for i := 0; i < rows; i++ {
		v := dt.leaf(X, i).value
		total := floats.Sum(v)
		for c, w := range v {
			out.Set(i, c, w/total)
		}
	}
	return out, nil
}

// Predict returns the majority class of the leaf each sample falls in.
func (dt *DecisionTreeClassifier) Predict(X mat.Matrix) (mat.Matrix, error) {
	if err := dt.checkPredict("Predict", X); err != nil {
		return nil, err
	}
	classes := dt.state.Classes()
	rows, _ := X.Dims()
	out := mat.NewVecDense(rows, nil)
	for i := 0; i < rows; i++ {
		out.SetVec(i, classes[floats.MaxIdx(dt.leaf(X, i).value)])
	}
	return out, nil
}

// Score returns the mean accuracy on X and y, or 0 if prediction fails.
func (dt *DecisionTreeClassifier) Score(X, y mat.Matrix) float64 {
	pred, err := dt.Predict(X)
	if err != nil {
		return 0
	}
	labels := model.LabelsOf(y)
	if len(labels) == 0 {
		return 0
	}
	correct := 0
	for i, l := range labels {
		if pred.At(i, 0) == l {
			correct++
		}
	}
	return float64(correct) / float64(len(labels))
}

// Classes returns the sorted labels seen during Fit.
func (dt *DecisionTreeClassifier) Classes() []float64 {
	return dt.state.Classes()
}

// IsFitted reports whether the tree has been built.
func (dt *DecisionTreeClassifier) IsFitted() bool {
	return dt.state.IsFitted()
}

// Reset discards the fitted tree and keeps the hyperparameters.
func (dt *DecisionTreeClassifier) Reset() {
	dt.state.Reset()
	dt.root = nil
	dt.nClasses_ = 0
	dt.depth, dt.nLeaves = 0, 0
	dt.featureImportances = nil
}

// GetFeatureImportances returns the normalized total impurity decrease per feature.
func (dt *DecisionTreeClassifier) GetFeatureImportances() []float64 {
	return append([]float64(nil), dt.featureImportances...)
}

// GetDepth returns the depth of the fitted tree (a single leaf has depth 0).
func (dt *DecisionTreeClassifier) GetDepth() int {
	return dt.depth
}

// GetNLeaves returns the number of leaves of the fitted tree.
func (dt *DecisionTreeClassifier) GetNLeaves() int {
	return dt.nLeaves
}

// GetParams returns the hyperparameters.
func (dt *DecisionTreeClassifier) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"criterion":         dt.criterion,
		"max_depth":         dt.maxDepth,
		"min_samples_split": dt.minSamplesSplit,
		"min_samples_leaf":  dt.minSamplesLeaf,
		"max_features":      dt.maxFeatures,
		"random_state":      dt.randomState,
	}
}

// SetParams updates hyperparameters. Unknown keys and wrong value types are errors.
func (dt *DecisionTreeClassifier) SetParams(params map[string]interface{}) error {
	for key, value := range params {
		var ok bool
		switch key {
		case "criterion":
			dt.criterion, ok = value.(string)
		case "max_depth":
			dt.maxDepth, ok = value.(int)
		case "min_samples_split":
			dt.minSamplesSplit, ok = value.(int)
		case "min_samples_leaf":
			dt.minSamplesLeaf, ok = value.(int)
		case "max_features":
			dt.maxFeatures, ok = value.(string)
		case "random_state":
			var seed int
			if seed, ok = value.(int); ok {
				dt.randomState = int64(seed)
			} else {
				dt.randomState, ok = value.(int64)
			}
		default:
			return errors.NewValidationError(key, "unknown parameter", value)
		}
		if !ok {
			return errors.NewValidationError(key, fmt.Sprintf("unexpected type %T", value), value)
		}
	}
	return dt.validateParams()
}
