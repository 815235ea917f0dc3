package over_sampling

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/tumoreval/pkg/errors"
)

// imbalanced returns nMaj samples of class 0 followed by nMin samples of class 1.
func imbalanced(nMaj, nMin int) (*mat.Dense, *mat.VecDense) {
	n := nMaj + nMin
	X := mat.NewDense(n, 4, nil)
	y := mat.NewVecDense(n, nil)
	for i := 0; i < n; i++ {
		base := 0.0
		if i >= nMaj {
			base = 10
			y.SetVec(i, 1)
		}
		for j := 0; j < 4; j++ {
			X.Set(i, j, base+math.Sin(float64(3*i+j)))
		}
	}
	return X, y
}

func classCounts(y *mat.VecDense) map[float64]int {
	out := map[float64]int{}
	for i := 0; i < y.Len(); i++ {
		out[y.AtVec(i)]++
	}
	return out
}

func TestSMOTE_ExactBalance(t *testing.T) {
	X, y := imbalanced(56, 24)
	Xr, yr, err := NewSMOTE(WithRandomState(42)).FitResample(X, y)
	require.NoError(t, err)

	counts := classCounts(yr)
	assert.Equal(t, 56, counts[0])
	assert.Equal(t, 56, counts[1])
	r, c := Xr.Dims()
	assert.Equal(t, 112, r)
	assert.Equal(t, 4, c)
}

func TestSMOTE_OriginalsKeptInOrder(t *testing.T) {
	X, y := imbalanced(20, 6)
	Xr, yr, err := NewSMOTE(WithRandomState(1)).FitResample(X, y)
	require.NoError(t, err)

	rows, _ := X.Dims()
	for i := 0; i < rows; i++ {
		assert.Equal(t, mat.Row(nil, i, X), mat.Row(nil, i, Xr))
		assert.Equal(t, y.AtVec(i), yr.AtVec(i))
	}
}

func TestSMOTE_SyntheticWithinMinorityHull(t *testing.T) {
	X, y := imbalanced(30, 5)
	for _, mode := range []Interpolation{FeatureInterpolation, SegmentInterpolation} {
		Xr, yr, err := NewSMOTE(WithRandomState(9), WithInterpolation(mode)).FitResample(X, y)
		require.NoError(t, err)

		// 合成サンプルは少数クラスの各特徴量の範囲内に収まる
		lo, hi := make([]float64, 4), make([]float64, 4)
		for j := 0; j < 4; j++ {
			lo[j], hi[j] = math.Inf(1), math.Inf(-1)
			for i := 30; i < 35; i++ {
				lo[j] = math.Min(lo[j], X.At(i, j))
				hi[j] = math.Max(hi[j], X.At(i, j))
			}
		}
		r, _ := Xr.Dims()
		for i := 35; i < r; i++ {
			assert.Equal(t, 1.0, yr.AtVec(i))
			for j := 0; j < 4; j++ {
				v := Xr.At(i, j)
				assert.True(t, v >= lo[j]-1e-12 && v <= hi[j]+1e-12, "%s: feature %d = %v", mode, j, v)
			}
		}
	}
}

func TestSMOTE_Deterministic(t *testing.T) {
	X, y := imbalanced(40, 11)
	a, ya, err := NewSMOTE(WithRandomState(42)).FitResample(X, y)
	require.NoError(t, err)
	b, yb, err := NewSMOTE(WithRandomState(42)).FitResample(X, y)
	require.NoError(t, err)
	assert.True(t, mat.Equal(a, b))
	assert.True(t, mat.Equal(ya, yb))

	c, _, err := NewSMOTE(WithRandomState(43)).FitResample(X, y)
	require.NoError(t, err)
	assert.False(t, mat.Equal(a, c))
}

func TestSMOTE_SmallMinorityUsesFewerNeighbours(t *testing.T) {
	// m=3 なので k_eff = 2
	X, y := imbalanced(10, 3)
	_, yr, err := NewSMOTE(WithKNeighbors(5)).FitResample(X, y)
	require.NoError(t, err)
	assert.Equal(t, 10, classCounts(yr)[1])
}

func TestSMOTE_InsufficientMinoritySamples(t *testing.T) {
	X, y := imbalanced(10, 1)
	_, _, err := NewSMOTE().FitResample(X, y)

	var ims *errors.InsufficientMinoritySamplesError
	require.True(t, errors.As(err, &ims))
	assert.Equal(t, 1.0, ims.Class)
	assert.Equal(t, 1, ims.Count)
}

func TestSMOTE_InvalidInput(t *testing.T) {
	X, y := imbalanced(5, 5)
	Xr, yr, err := NewSMOTE().FitResample(X, y)
	require.NoError(t, err, "already balanced input is returned as is")
	assert.True(t, mat.Equal(X, Xr))
	assert.Equal(t, 10, yr.Len())

	X.Set(0, 0, math.NaN())
	_, _, err = NewSMOTE().FitResample(X, y)
	assert.Error(t, err)

	_, _, err = NewSMOTE().FitResample(mat.NewDense(3, 1, []float64{1, 2, 3}), mat.NewVecDense(3, nil))
	assert.Error(t, err)

	_, _, err = NewSMOTE(WithKNeighbors(0)).FitResample(X, y)
	assert.Error(t, err)
}

func TestNearestNeighbours(t *testing.T) {
	points := [][]float64{{0, 0}, {1, 0}, {3, 0}, {10, 0}}
	nn := nearestNeighbours(points, 2)
	assert.Equal(t, [][]float64{{1, 0}, {3, 0}}, toSlices(nn[0]))
	assert.Equal(t, [][]float64{{0, 0}, {3, 0}}, toSlices(nn[1]))
	assert.Equal(t, [][]float64{{3, 0}, {1, 0}}, toSlices(nn[3]))
}

func toSlices(in [][]float64) [][]float64 {
	out := make([][]float64, len(in))
	for i, v := range in {
		out[i] = append([]float64(nil), v...)
	}
	return out
}

func TestParseInterpolation(t *testing.T) {
	mode, err := ParseInterpolation("segment")
	require.NoError(t, err)
	assert.Equal(t, SegmentInterpolation, mode)
	_, err = ParseInterpolation("linear")
	assert.Error(t, err)
}
