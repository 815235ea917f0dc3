// Package dataset holds labelled tumor measurements and their partitions.
//
// A Dataset is immutable once built. Subset and Select produce new datasets
// and never share storage with the receiver.
package dataset

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/tumoreval/core/model"
	"github.com/YuminosukeSato/tumoreval/pkg/errors"
)

// Feature columns used for classification, in model order.
var DefaultFeatures = []string{
	"radius_mean",
	"concave points_mean",
	"perimeter_mean",
	"area_mean",
}

// Diagnosis codes and their encoded labels.
const (
	Benign    = 0.0
	Malignant = 1.0
)

// Dataset is a feature matrix with named columns and one label per row.
type Dataset struct {
	featureNames []string
	classNames   []string
	x            *mat.Dense
	y            *mat.VecDense
}

// Option configures New.
type Option func(*Dataset)

// WithClassNames names the encoded labels; names[i] is the name of label i.
func WithClassNames(names ...string) Option {
	return func(d *Dataset) { d.classNames = append([]string(nil), names...) }
}

// New copies X and y into a dataset. The number of feature names must match
// the columns of X and y must hold one finite label per row.
func New(featureNames []string, X mat.Matrix, y mat.Vector, opts ...Option) (*Dataset, error) {
	rows, cols := X.Dims()
	if rows == 0 || cols == 0 {
		return nil, errors.Wrap(errors.ErrEmptyData, "dataset.New")
	}
	if len(featureNames) != cols {
		return nil, errors.NewDimensionError("dataset.New", cols, len(featureNames), 1)
	}
	if y.Len() != rows {
		return nil, errors.NewDimensionError("dataset.New", rows, y.Len(), 0)
	}
	seen := make(map[string]struct{}, cols)
	for _, name := range featureNames {
		if _, dup := seen[name]; dup {
			return nil, errors.NewValidationError("feature_names", "duplicate feature name", name)
		}
		seen[name] = struct{}{}
	}
	for i := 0; i < rows; i++ {
		if l := y.AtVec(i); math.IsNaN(l) || math.IsInf(l, 0) {
			return nil, errors.NewValueError("dataset.New", fmt.Sprintf("label at row %d is not finite", i))
		}
	}

	d := &Dataset{
		featureNames: append([]string(nil), featureNames...),
		x:            mat.DenseCopyOf(X),
		y:            mat.VecDenseCopyOf(y),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// Len returns the number of samples.
func (d *Dataset) Len() int {
	r, _ := d.x.Dims()
	return r
}

// NumFeatures returns the number of feature columns.
func (d *Dataset) NumFeatures() int {
	_, c := d.x.Dims()
	return c
}

// FeatureNames returns a copy of the column names.
func (d *Dataset) FeatureNames() []string {
	return append([]string(nil), d.featureNames...)
}

// ClassNames returns a copy of the label names, if known.
func (d *Dataset) ClassNames() []string {
	return append([]string(nil), d.classNames...)
}

// ClassName returns the name of label, falling back to its numeric form.
func (d *Dataset) ClassName(label float64) string {
	i := int(label)
	if float64(i) == label && i >= 0 && i < len(d.classNames) {
		return d.classNames[i]
	}
	return fmt.Sprintf("%g", label)
}

// X returns the feature matrix. Callers must not modify it; use Features
// for a private copy.
func (d *Dataset) X() mat.Matrix {
	return d.x
}

// Y returns the labels. Callers must not modify them.
func (d *Dataset) Y() mat.Vector {
	return d.y
}

// Labels returns a copy of the labels.
func (d *Dataset) Labels() []float64 {
	return model.LabelsOf(d.y)
}

// Classes returns the distinct labels in ascending order.
func (d *Dataset) Classes() []float64 {
	return model.UniqueSorted(d.Labels())
}

// ClassCounts returns the number of samples per label.
func (d *Dataset) ClassCounts() map[float64]int {
	counts := make(map[float64]int, 2)
	for _, l := range d.Labels() {
		counts[l]++
	}
	return counts
}

// Subset returns the rows at idx, in the given order.
func (d *Dataset) Subset(idx []int) (*Dataset, error) {
	if len(idx) == 0 {
		return nil, errors.Wrap(errors.ErrEmptyData, "dataset.Subset")
	}
	n := d.Len()
	out := mat.NewDense(len(idx), d.NumFeatures(), nil)
	y := mat.NewVecDense(len(idx), nil)
	for i, r := range idx {
		if r < 0 || r >= n {
			return nil, errors.NewValidationError("indices", "row index out of range", r)
		}
		out.SetRow(i, d.x.RawRowView(r))
		y.SetVec(i, d.y.AtVec(r))
	}
	return &Dataset{
		featureNames: d.FeatureNames(),
		classNames:   d.ClassNames(),
		x:            out,
		y:            y,
	}, nil
}

// Select returns a dataset with only the named columns, in the given order.
func (d *Dataset) Select(names ...string) (*Dataset, error) {
	pos := make(map[string]int, len(d.featureNames))
	for j, name := range d.featureNames {
		pos[name] = j
	}
	cols := make([]int, len(names))
	for i, name := range names {
		j, ok := pos[name]
		if !ok {
			return nil, errors.NewSchemaMismatchError("dataset", d.featureNames, names)
		}
		cols[i] = j
	}
	if len(cols) == 0 {
		return nil, errors.Wrap(errors.ErrEmptyData, "dataset.Select")
	}

	n := d.Len()
	out := mat.NewDense(n, len(cols), nil)
	for i := 0; i < n; i++ {
		for k, j := range cols {
			out.Set(i, k, d.x.At(i, j))
		}
	}
	return &Dataset{
		featureNames: append([]string(nil), names...),
		classNames:   d.ClassNames(),
		x:            out,
		y:            mat.VecDenseCopyOf(d.y),
	}, nil
}

func (d *Dataset) String() string {
	return fmt.Sprintf("Dataset(samples=%d, features=%v)", d.Len(), d.featureNames)
}
