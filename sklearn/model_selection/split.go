// Package model_selection provides stratified hold-out and k-fold splitting
// and cross-validated scoring.
package model_selection

import (
	"fmt"
	"math"
	"math/rand/v2"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/tumoreval/core/model"
	"github.com/YuminosukeSato/tumoreval/pkg/errors"
)

type splitConfig struct {
	testSize    float64
	randomState int64
}

// SplitOption configures TrainTestSplit.
type SplitOption func(*splitConfig)

// WithTestSize sets the fraction of samples placed in the test partition.
func WithTestSize(f float64) SplitOption {
	return func(c *splitConfig) { c.testSize = f }
}

// WithSplitRandomState seeds the split.
func WithSplitRandomState(seed int64) SplitOption {
	return func(c *splitConfig) { c.randomState = seed }
}

// TrainTestSplit partitions sample indices into a stratified train and test
// set. The test set holds ceil(f*n) samples; each class contributes its share
// rounded by largest remainder, ties going to the smaller label. The same
// labels and seed always yield the same indices.
func TrainTestSplit(y mat.Matrix, opts ...SplitOption) (trainIdx, testIdx []int, err error) {
	cfg := splitConfig{testSize: 0.2}
	for _, opt := range opts {
		opt(&cfg)
	}
	if !(cfg.testSize > 0 && cfg.testSize < 1) {
		return nil, nil, errors.NewInvalidSplitParameterError("test_size", cfg.testSize, "must be in the open interval (0, 1)")
	}

	labels := model.LabelsOf(y)
	n := len(labels)
	if n == 0 {
		return nil, nil, errors.Wrap(errors.ErrEmptyData, "TrainTestSplit")
	}
	classes := model.UniqueSorted(labels)
	nTest := int(math.Ceil(cfg.testSize*float64(n) - 1e-9))
	nTrain := n - nTest
	if nTest < len(classes) || nTrain < len(classes) {
		return nil, nil, errors.NewInvalidSplitParameterError("test_size", cfg.testSize,
			"each partition needs at least one sample per class")
	}

	members := groupByClass(labels, classes)
	counts := make([]int, len(classes))
	for c, m := range members {
		counts[c] = len(m)
	}
	perClass := largestRemainder(counts, nTest, n)
	for c, k := range perClass {
		if k >= counts[c] {
			return nil, nil, errors.NewInvalidSplitParameterError("test_size", cfg.testSize,
				fmt.Sprintf("class %g would have no training samples", classes[c]))
		}
	}

	rng := rand.New(rand.NewPCG(uint64(cfg.randomState), uint64(cfg.randomState)))
	for c, m := range members {
		shuffled := append([]int(nil), m...)
		rng.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })
		testIdx = append(testIdx, shuffled[:perClass[c]]...)
		trainIdx = append(trainIdx, shuffled[perClass[c]:]...)
	}
	rng.Shuffle(len(trainIdx), func(i, j int) { trainIdx[i], trainIdx[j] = trainIdx[j], trainIdx[i] })
	rng.Shuffle(len(testIdx), func(i, j int) { testIdx[i], testIdx[j] = testIdx[j], testIdx[i] })
	return trainIdx, testIdx, nil
}

// largestRemainder apportions total seats among classes proportionally to
// counts (summing to n).
func largestRemainder(counts []int, total, n int) []int {
	alloc := make([]int, len(counts))
	rem := make([]float64, len(counts))
	assigned := 0
	for c, cnt := range counts {
		exact := float64(total) * float64(cnt) / float64(n)
		alloc[c] = int(math.Floor(exact))
		rem[c] = exact - float64(alloc[c])
		assigned += alloc[c]
	}
	order := make([]int, len(counts))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool { return rem[order[i]] > rem[order[j]] })
	for i := 0; assigned < total; i++ {
		alloc[order[i%len(order)]]++
		assigned++
	}
	return alloc
}

// groupByClass returns the sample indices of every class, in sample order.
func groupByClass(labels, classes []float64) [][]int {
	index := model.ClassIndex(classes)
	members := make([][]int, len(classes))
	for i, l := range labels {
		members[index[l]] = append(members[index[l]], i)
	}
	return members
}

// SelectRows copies the given rows of X into a new matrix.
func SelectRows(X mat.Matrix, idx []int) *mat.Dense {
	_, c := X.Dims()
	out := mat.NewDense(len(idx), c, nil)
	for i, r := range idx {
		for j := 0; j < c; j++ {
			out.Set(i, j, X.At(r, j))
		}
	}
	return out
}

// SelectLabels copies the labels at idx into a new vector.
func SelectLabels(y mat.Matrix, idx []int) *mat.VecDense {
	labels := model.LabelsOf(y)
	out := mat.NewVecDense(len(idx), nil)
	for i, r := range idx {
		out.SetVec(i, labels[r])
	}
	return out
}
