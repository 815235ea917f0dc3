package model_selection

import (
	"math"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/tumoreval/pkg/errors"
)

// labelsVec returns nNeg zeros followed by nPos ones, interleaved so that the
// classes are not contiguous.
func labelsVec(nNeg, nPos int) *mat.VecDense {
	total := nNeg + nPos
	y := make([]float64, 0, total)
	for len(y) < total {
		if nNeg > 0 {
			y = append(y, 0)
			nNeg--
		}
		if nNeg > 0 {
			y = append(y, 0)
			nNeg--
		}
		if nPos > 0 {
			y = append(y, 1)
			nPos--
		}
	}
	return mat.NewVecDense(len(y), y)
}

func countPositive(y *mat.VecDense, idx []int) int {
	n := 0
	for _, i := range idx {
		if y.AtVec(i) == 1 {
			n++
		}
	}
	return n
}

func TestTrainTestSplit_Stratified(t *testing.T) {
	y := labelsVec(70, 30)

	train, test, err := TrainTestSplit(y, WithTestSize(0.2), WithSplitRandomState(42))
	require.NoError(t, err)

	assert.Len(t, test, 20)
	assert.Len(t, train, 80)
	assert.Equal(t, 24, countPositive(y, train))
	assert.Equal(t, 56, len(train)-countPositive(y, train))
	assert.Equal(t, 6, countPositive(y, test))

	all := append(append([]int(nil), train...), test...)
	sort.Ints(all)
	for i, v := range all {
		require.Equal(t, i, v, "partitions must be disjoint and cover every sample")
	}
}

func TestTrainTestSplit_SizeAndProportion(t *testing.T) {
	for _, tc := range []struct {
		nNeg, nPos int
		f          float64
	}{
		{357, 212, 0.2},
		{50, 13, 0.3},
		{9, 4, 0.25},
	} {
		y := labelsVec(tc.nNeg, tc.nPos)
		n := tc.nNeg + tc.nPos
		train, test, err := TrainTestSplit(y, WithTestSize(tc.f), WithSplitRandomState(1))
		require.NoError(t, err)

		assert.InDelta(t, tc.f*float64(n), float64(len(test)), 1.0)
		assert.Equal(t, n, len(train)+len(test))

		overall := float64(tc.nPos) / float64(n)
		testShare := float64(countPositive(y, test)) / float64(len(test))
		trainShare := float64(countPositive(y, train)) / float64(len(train))
		if n >= 100 {
			assert.InDelta(t, overall, testShare, 0.02)
			assert.InDelta(t, overall, trainShare, 0.02)
		}
	}
}

func TestTrainTestSplit_Deterministic(t *testing.T) {
	y := labelsVec(40, 20)
	tr1, te1, err := TrainTestSplit(y, WithSplitRandomState(7))
	require.NoError(t, err)
	tr2, te2, err := TrainTestSplit(y, WithSplitRandomState(7))
	require.NoError(t, err)
	assert.Equal(t, tr1, tr2)
	assert.Equal(t, te1, te2)

	_, te3, err := TrainTestSplit(y, WithSplitRandomState(8))
	require.NoError(t, err)
	assert.NotEqual(t, te1, te3)
}

func TestTrainTestSplit_InvalidParameters(t *testing.T) {
	y := labelsVec(10, 10)
	for _, f := range []float64{0, 1, -0.1, 1.5, math.NaN()} {
		_, _, err := TrainTestSplit(y, WithTestSize(f))
		var ispe *errors.InvalidSplitParameterError
		require.True(t, errors.As(err, &ispe), "test_size=%v", f)
		assert.Equal(t, "test_size", ispe.Param)
	}

	// テスト側に各クラス1件も入らない
	_, _, err := TrainTestSplit(y, WithTestSize(0.01))
	assert.Error(t, err)
}

func TestLabelsVec(t *testing.T) {
	y := labelsVec(70, 30)
	require.Equal(t, 100, y.Len())
	assert.Equal(t, 30, countPositive(y, seq(100)))
	assert.Equal(t, 112, labelsVec(56, 56).Len())
}

func seq(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}

func TestTrainTestSplit_ClassWithoutTrainSamples(t *testing.T) {
	// 8対2で test_size=0.75 だと陽性2件が全て test 側に入る
	y := labelsVec(8, 2)
	_, _, err := TrainTestSplit(y, WithTestSize(0.75), WithSplitRandomState(42))
	var ispe *errors.InvalidSplitParameterError
	require.True(t, errors.As(err, &ispe))
	assert.Equal(t, "test_size", ispe.Param)
	assert.Equal(t, 0.75, ispe.Value)

	train, test, err := TrainTestSplit(y, WithTestSize(0.5), WithSplitRandomState(42))
	require.NoError(t, err)
	assert.Equal(t, 1, countPositive(y, train))
	assert.Equal(t, 1, countPositive(y, test))
}

func TestLargestRemainder(t *testing.T) {
	assert.Equal(t, []int{14, 6}, largestRemainder([]int{70, 30}, 20, 100))
	// 同点は小さいラベル側へ
	assert.Equal(t, []int{3, 2}, largestRemainder([]int{5, 5}, 5, 10))
	assert.Equal(t, []int{72, 42}, largestRemainder([]int{357, 212}, 114, 569))
}

func TestSelectRowsAndLabels(t *testing.T) {
	X := mat.NewDense(3, 2, []float64{1, 2, 3, 4, 5, 6})
	y := mat.NewVecDense(3, []float64{0, 1, 0})

	sub := SelectRows(X, []int{2, 0})
	assert.Equal(t, []float64{5, 6, 1, 2}, sub.RawMatrix().Data)
	assert.Equal(t, []float64{0, 0}, SelectLabels(y, []int{2, 0}).RawVector().Data)
}
