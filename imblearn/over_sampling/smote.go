// Package over_sampling balances labelled training data by synthesising
// minority-class samples (SMOTE).
package over_sampling

import (
	"math"
	"math/rand/v2"
	"sort"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/kdtree"

	"github.com/YuminosukeSato/tumoreval/core/model"
	"github.com/YuminosukeSato/tumoreval/pkg/errors"
	"github.com/YuminosukeSato/tumoreval/pkg/log"
)

// Interpolation selects how the step from a sample towards its neighbour is drawn.
type Interpolation int

const (
	// FeatureInterpolation draws an independent step in [0,1) for every feature.
	FeatureInterpolation Interpolation = iota
	// SegmentInterpolation draws one step per synthetic sample, so the new
	// point lies on the segment between the sample and its neighbour.
	SegmentInterpolation
)

// String returns the configuration name of the mode.
func (i Interpolation) String() string {
	if i == SegmentInterpolation {
		return "segment"
	}
	return "feature"
}

// ParseInterpolation converts "feature" or "segment" into an Interpolation.
func ParseInterpolation(s string) (Interpolation, error) {
	switch s {
	case "feature", "":
		return FeatureInterpolation, nil
	case "segment":
		return SegmentInterpolation, nil
	default:
		return FeatureInterpolation, errors.NewValidationError("interpolation", "must be 'feature' or 'segment'", s)
	}
}

// SMOTE oversamples every non-majority class up to the majority count.
type SMOTE struct {
	kNeighbors    int
	randomState   int64
	interpolation Interpolation
}

// Option configures SMOTE.
type Option func(*SMOTE)

// WithKNeighbors sets the number of nearest neighbours considered (default 5).
func WithKNeighbors(k int) Option {
	return func(s *SMOTE) { s.kNeighbors = k }
}

// WithRandomState seeds sample, neighbour and step selection.
func WithRandomState(seed int64) Option {
	return func(s *SMOTE) { s.randomState = seed }
}

// WithInterpolation sets the interpolation mode.
func WithInterpolation(mode Interpolation) Option {
	return func(s *SMOTE) { s.interpolation = mode }
}

// NewSMOTE creates a SMOTE resampler.
func NewSMOTE(opts ...Option) *SMOTE {
	s := &SMOTE{kNeighbors: 5}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GetParams returns the resampler configuration.
func (s *SMOTE) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"k_neighbors":   s.kNeighbors,
		"random_state":  s.randomState,
		"interpolation": s.interpolation.String(),
	}
}

// FitResample returns X and y with synthetic samples appended so that every
// class has as many samples as the largest one. The original rows come first,
// unchanged and in their original order.
func (s *SMOTE) FitResample(X, y mat.Matrix) (*mat.Dense, *mat.VecDense, error) {
	if s.kNeighbors < 1 {
		return nil, nil, errors.NewValidationError("k_neighbors", "must be at least 1", s.kNeighbors)
	}
	labels, err := model.ValidateFitInput("SMOTE.FitResample", X, y)
	if err != nil {
		return nil, nil, err
	}
	rows, cols := X.Dims()
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			if v := X.At(i, j); math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, nil, errors.NewValueError("SMOTE.FitResample", "input contains NaN or infinity")
			}
		}
	}
	classes := model.UniqueSorted(labels)
	if len(classes) < 2 {
		return nil, nil, errors.NewValueError("SMOTE.FitResample", "need samples of at least 2 classes")
	}

	members := make(map[float64][]int, len(classes))
	for i, l := range labels {
		members[l] = append(members[l], i)
	}
	majority := 0
	for _, c := range classes {
		if len(members[c]) > majority {
			majority = len(members[c])
		}
	}

	rng := rand.New(rand.NewPCG(uint64(s.randomState), uint64(s.randomState)))
	logger := log.GetLoggerWithName("over_sampling")

	var synthX [][]float64
	var synthY []float64
	for _, c := range classes {
		m := len(members[c])
		need := majority - m
		if need == 0 {
			continue
		}
		if m < 2 {
			return nil, nil, errors.NewInsufficientMinoritySamplesError(c, m, 2)
		}
		points := make([][]float64, m)
		for i, r := range members[c] {
			points[i] = mat.Row(nil, r, X)
		}
		kEff := min(s.kNeighbors, m-1)
		neighbours := nearestNeighbours(points, kEff)

		for n := 0; n < need; n++ {
			pi := rng.IntN(m)
			q := neighbours[pi][rng.IntN(len(neighbours[pi]))]
			synthX = append(synthX, s.interpolate(points[pi], q, rng))
			synthY = append(synthY, c)
		}
		logger.Debug("minority class oversampled",
			log.ClassKey, c,
			log.SamplesKey, m,
			log.SyntheticKey, need,
		)
	}

	outX := mat.NewDense(rows+len(synthX), cols, nil)
	outY := mat.NewVecDense(rows+len(synthY), nil)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			outX.Set(i, j, X.At(i, j))
		}
		outY.SetVec(i, labels[i])
	}
	for i, row := range synthX {
		outX.SetRow(rows+i, row)
		outY.SetVec(rows+i, synthY[i])
	}
	return outX, outY, nil
}

func (s *SMOTE) interpolate(p, q []float64, rng *rand.Rand) []float64 {
	out := make([]float64, len(p))
	step := rng.Float64()
	for j := range p {
		if s.interpolation == FeatureInterpolation && j > 0 {
			step = rng.Float64()
		}
		out[j] = p[j] + step*(q[j]-p[j])
	}
	return out
}

// nearestNeighbours returns, for every point, its k nearest other points of
// the same set ordered by distance. Ties are broken by coordinates so the
// result does not depend on the kd-tree layout.
func nearestNeighbours(points [][]float64, k int) [][][]float64 {
	treePoints := make(kdtree.Points, len(points))
	for i, p := range points {
		treePoints[i] = kdtree.Point(append([]float64(nil), p...))
	}
	tree := kdtree.New(treePoints, false)

	out := make([][][]float64, len(points))
	for i, p := range points {
		keeper := kdtree.NewNKeeper(k + 1)
		tree.NearestSet(keeper, kdtree.Point(p))

		found := make([]kdtree.ComparableDist, 0, k+1)
		for _, cd := range keeper.Heap {
			if cd.Comparable != nil {
				found = append(found, cd)
			}
		}
		sort.Slice(found, func(a, b int) bool {
			if found[a].Dist != found[b].Dist {
				return found[a].Dist < found[b].Dist
			}
			return lexLess(found[a].Comparable.(kdtree.Point), found[b].Comparable.(kdtree.Point))
		})
		// 先頭は自分自身（距離0）
		if len(found) > 0 {
			found = found[1:]
		}
		if len(found) > k {
			found = found[:k]
		}
		nn := make([][]float64, len(found))
		for j, cd := range found {
			nn[j] = cd.Comparable.(kdtree.Point)
		}
		out[i] = nn
	}
	return out
}

func lexLess(a, b kdtree.Point) bool {
	for i := range a {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return false
}
