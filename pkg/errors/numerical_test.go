package errors

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestCheckNumericalStability(t *testing.T) {
	assert.NoError(t, CheckNumericalStability("bias", []float64{0, -1, 1e300}, 1))

	err := CheckNumericalStability("bias", []float64{1, math.NaN()}, 3)
	var nerr *NumericalInstabilityError
	require.True(t, As(err, &nerr))
	assert.Equal(t, "bias", nerr.Operation)
	assert.Equal(t, 3, nerr.Iteration)
}

func TestCheckMatrix(t *testing.T) {
	m := mat.NewDense(2, 2, []float64{1, 2, 3, 4})
	assert.NoError(t, CheckMatrix("weights", m, 1))

	m.Set(1, 0, math.Inf(-1))
	m.Set(1, 1, math.NaN())
	err := CheckMatrix("weights", m, 2)
	var nerr *NumericalInstabilityError
	require.True(t, As(err, &nerr))
	assert.Len(t, nerr.Values, 2)
	assert.True(t, math.IsInf(nerr.Values[0], -1))

	// 最大10件まで
	big := mat.NewDense(4, 5, nil)
	for i := 0; i < 4; i++ {
		for j := 0; j < 5; j++ {
			big.Set(i, j, math.NaN())
		}
	}
	require.True(t, As(CheckMatrix("weights", big, 1), &nerr))
	assert.Len(t, nerr.Values, 10)
}

func TestSafeDivide(t *testing.T) {
	assert.Equal(t, 2.5, SafeDivide(5, 2))
	assert.Equal(t, 0.0, SafeDivide(5, 0))
	assert.Equal(t, 0.0, SafeDivide(1, 1e-12))
}
