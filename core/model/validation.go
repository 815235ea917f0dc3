package model

import (
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/tumoreval/pkg/errors"
)

// ValidateFitInput checks that X and y are non-empty and that y is a single
// column or row with one label per sample of X. It returns the labels as a slice.
func ValidateFitInput(op string, X, y mat.Matrix) ([]float64, error) {
	rows, cols := X.Dims()
	if rows == 0 || cols == 0 {
		return nil, errors.Wrapf(errors.ErrEmptyData, "%s", op)
	}
	labels := LabelsOf(y)
	if len(labels) != rows {
		return nil, errors.NewDimensionError(op, rows, len(labels), 0)
	}
	return labels, nil
}

// LabelsOf flattens a label vector stored either as a column or a row.
func LabelsOf(y mat.Matrix) []float64 {
	if v, ok := y.(mat.Vector); ok {
		out := make([]float64, v.Len())
		for i := range out {
			out[i] = v.AtVec(i)
		}
		return out
	}
	r, c := y.Dims()
	if c == 1 {
		out := make([]float64, r)
		for i := range out {
			out[i] = y.At(i, 0)
		}
		return out
	}
	if r == 1 {
		out := make([]float64, c)
		for j := range out {
			out[j] = y.At(0, j)
		}
		return out
	}
	return nil
}

// UniqueSorted returns the distinct values of labels in ascending order.
func UniqueSorted(labels []float64) []float64 {
	seen := make(map[float64]struct{}, 2)
	var out []float64
	for _, l := range labels {
		if _, ok := seen[l]; !ok {
			seen[l] = struct{}{}
			out = append(out, l)
		}
	}
	sort.Float64s(out)
	return out
}

// ClassIndex maps each label to its position in classes.
func ClassIndex(classes []float64) map[float64]int {
	idx := make(map[float64]int, len(classes))
	for i, c := range classes {
		idx[c] = i
	}
	return idx
}
