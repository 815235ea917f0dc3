package model_selection

import (
	"math/rand/v2"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/tumoreval/core/model"
	"github.com/YuminosukeSato/tumoreval/pkg/errors"
)

// Fold is one cross-validation round: Test is used for validation and Train
// is the union of all other folds. Both are sorted ascending.
type Fold struct {
	Index int
	Train []int
	Test  []int
}

// StratifiedKFold splits samples into k folds that preserve label
// proportions and differ in size by at most one sample.
type StratifiedKFold struct {
	NSplits     int
	Shuffle     bool
	RandomState int64
}

// NewStratifiedKFold creates a stratified k-fold splitter.
func NewStratifiedKFold(nSplits int, shuffle bool, randomState int64) *StratifiedKFold {
	return &StratifiedKFold{
		NSplits:     nSplits,
		Shuffle:     shuffle,
		RandomState: randomState,
	}
}

// GetNSplits returns the number of folds.
func (skf *StratifiedKFold) GetNSplits() int {
	return skf.NSplits
}

// Split assigns every sample to exactly one test fold.
//
// Labels are sorted and dealt round-robin to the folds, which fixes how many
// samples of each class every fold receives. Within a class the fold ids are
// then (optionally) shuffled and handed to the members in sample order.
// Calling Split twice with the same labels returns identical folds.
func (skf *StratifiedKFold) Split(y mat.Matrix) ([]Fold, error) {
	k := skf.NSplits
	if k < 2 {
		return nil, errors.NewInvalidSplitParameterError("n_splits", k, "must be at least 2")
	}
	labels := model.LabelsOf(y)
	if len(labels) == 0 {
		return nil, errors.Wrap(errors.ErrEmptyData, "StratifiedKFold.Split")
	}

	classes := firstAppearance(labels)
	members := groupByClass(labels, classes)
	minCount := len(labels)
	for _, m := range members {
		if len(m) < minCount {
			minCount = len(m)
		}
	}
	if k > minCount {
		return nil, errors.NewInvalidSplitParameterError("n_splits", k,
			"cannot be greater than the number of members in the smallest class")
	}

	// 並べ替えたラベル列を fold に順番に配る
	allocation := make([][]int, k)
	for f := range allocation {
		allocation[f] = make([]int, len(classes))
	}
	pos := 0
	for c, m := range members {
		for range m {
			allocation[pos%k][c]++
			pos++
		}
	}

	var rng *rand.Rand
	if skf.Shuffle {
		rng = rand.New(rand.NewPCG(uint64(skf.RandomState), uint64(skf.RandomState)))
	}
	testFold := make([]int, len(labels))
	for c, m := range members {
		ids := make([]int, 0, len(m))
		for f := 0; f < k; f++ {
			for i := 0; i < allocation[f][c]; i++ {
				ids = append(ids, f)
			}
		}
		if rng != nil {
			rng.Shuffle(len(ids), func(i, j int) { ids[i], ids[j] = ids[j], ids[i] })
		}
		for i, sample := range m {
			testFold[sample] = ids[i]
		}
	}

	folds := make([]Fold, k)
	for f := range folds {
		folds[f].Index = f
	}
	for sample, f := range testFold {
		for g := range folds {
			if g == f {
				folds[g].Test = append(folds[g].Test, sample)
			} else {
				folds[g].Train = append(folds[g].Train, sample)
			}
		}
	}
	return folds, nil
}

// firstAppearance returns the distinct labels ordered by first occurrence,
// which is the class order the round-robin allocation uses.
func firstAppearance(labels []float64) []float64 {
	seen := map[float64]int{}
	for i, l := range labels {
		if _, ok := seen[l]; !ok {
			seen[l] = i
		}
	}
	out := make([]float64, 0, len(seen))
	for l := range seen {
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool { return seen[out[i]] < seen[out[j]] })
	return out
}
