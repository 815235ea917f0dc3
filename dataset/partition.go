package dataset

import (
	"fmt"
	"sort"

	"github.com/YuminosukeSato/tumoreval/pkg/errors"
	"github.com/YuminosukeSato/tumoreval/sklearn/model_selection"
)

// Partition names.
const (
	TrainName = "train"
	TestName  = "test"
)

// FoldName returns the partition name of cross-validation fold k.
func FoldName(k int) string {
	return fmt.Sprintf("fold_%d", k)
}

// Partition maps names to disjoint subsets of one dataset.
type Partition struct {
	names []string
	parts map[string]*Dataset
	index map[string][]int
}

func newPartition() *Partition {
	return &Partition{
		parts: make(map[string]*Dataset),
		index: make(map[string][]int),
	}
}

func (p *Partition) add(ds *Dataset, name string, idx []int) error {
	sub, err := ds.Subset(idx)
	if err != nil {
		return errors.Wrapf(err, "partition %q", name)
	}
	p.names = append(p.names, name)
	p.parts[name] = sub
	p.index[name] = append([]int(nil), idx...)
	return nil
}

// Get returns the named subset.
func (p *Partition) Get(name string) (*Dataset, bool) {
	ds, ok := p.parts[name]
	return ds, ok
}

// Names returns the subset names in creation order.
func (p *Partition) Names() []string {
	return append([]string(nil), p.names...)
}

// Indices returns the source row indices of the named subset.
func (p *Partition) Indices(name string) []int {
	return append([]int(nil), p.index[name]...)
}

// HoldOut splits ds into stratified "train" and "test" subsets.
func HoldOut(ds *Dataset, testSize float64, seed int64) (*Partition, error) {
	trainIdx, testIdx, err := model_selection.TrainTestSplit(ds.Y(),
		model_selection.WithTestSize(testSize),
		model_selection.WithSplitRandomState(seed),
	)
	if err != nil {
		return nil, err
	}
	p := newPartition()
	if err := p.add(ds, TrainName, trainIdx); err != nil {
		return nil, err
	}
	if err := p.add(ds, TestName, testIdx); err != nil {
		return nil, err
	}
	return p, nil
}

// Folds splits ds into the validation sides of cv, named "fold_0" ...
// "fold_<k-1>". Each subset keeps the ascending source order.
func Folds(ds *Dataset, cv *model_selection.StratifiedKFold) (*Partition, error) {
	folds, err := cv.Split(ds.Y())
	if err != nil {
		return nil, err
	}
	p := newPartition()
	for _, f := range folds {
		idx := append([]int(nil), f.Test...)
		sort.Ints(idx)
		if err := p.add(ds, FoldName(f.Index), idx); err != nil {
			return nil, err
		}
	}
	return p, nil
}
