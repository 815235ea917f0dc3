package dataset

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// ClassCount is the number of samples carrying one label.
type ClassCount struct {
	Label float64 `json:"label" csv:"label"`
	Name  string  `json:"name" csv:"name"`
	Count int     `json:"count" csv:"count"`
}

// FeatureSummary describes one feature within one class. Std is the sample
// standard deviation (n-1), matching a dataframe describe().
type FeatureSummary struct {
	Feature string  `json:"feature" csv:"feature"`
	Class   string  `json:"class" csv:"class"`
	Count   int     `json:"count" csv:"count"`
	Mean    float64 `json:"mean" csv:"mean"`
	Std     float64 `json:"std" csv:"std"`
	Min     float64 `json:"min" csv:"min"`
	Max     float64 `json:"max" csv:"max"`
}

// Summary is the exploratory overview of a dataset.
type Summary struct {
	Samples     int              `json:"samples"`
	Classes     []ClassCount     `json:"classes"`
	Features    []FeatureSummary `json:"features"`
	Correlation *mat.SymDense    `json:"-"`
}

// Describe computes class counts, per-class feature statistics and the
// Pearson correlation between features.
func Describe(ds *Dataset) *Summary {
	labels := ds.Labels()
	classes := ds.Classes()
	counts := ds.ClassCounts()

	s := &Summary{Samples: ds.Len()}
	for _, c := range classes {
		s.Classes = append(s.Classes, ClassCount{Label: c, Name: ds.ClassName(c), Count: counts[c]})
	}

	names := ds.FeatureNames()
	for j, name := range names {
		col := mat.Col(nil, j, ds.X())
		for _, c := range classes {
			var values []float64
			for i, l := range labels {
				if l == c {
					values = append(values, col[i])
				}
			}
			mean, std := stat.MeanStdDev(values, nil)
			if len(values) < 2 {
				std = 0
			}
			s.Features = append(s.Features, FeatureSummary{
				Feature: name,
				Class:   ds.ClassName(c),
				Count:   len(values),
				Mean:    mean,
				Std:     std,
				Min:     floats.Min(values),
				Max:     floats.Max(values),
			})
		}
	}

	if ds.Len() > 1 {
		s.Correlation = mat.NewSymDense(ds.NumFeatures(), nil)
		stat.CorrelationMatrix(s.Correlation, ds.X(), nil)
	}
	return s
}
