package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/tumoreval/pkg/errors"
)

func TestStateManager(t *testing.T) {
	s := NewStateManager()
	assert.False(t, s.IsFitted())

	err := s.RequireFitted("DecisionTreeClassifier", "Predict")
	var nf *errors.NotFittedError
	require.True(t, errors.As(err, &nf))

	s.SetDimensions(4, 112)
	s.SetClasses([]float64{0, 1})
	s.SetFitted()

	assert.NoError(t, s.RequireFitted("DecisionTreeClassifier", "Predict"))
	assert.NoError(t, s.RequireFeatures("Predict", 4))
	assert.Error(t, s.RequireFeatures("Predict", 3))

	classes := s.Classes()
	classes[0] = 7
	assert.Equal(t, []float64{0, 1}, s.Classes(), "Classes must return a copy")

	s.Reset()
	assert.False(t, s.IsFitted())
	nFeatures, nSamples := s.GetDimensions()
	assert.Zero(t, nFeatures)
	assert.Zero(t, nSamples)
	assert.Empty(t, s.Classes())
}

func TestValidateFitInput(t *testing.T) {
	X := mat.NewDense(3, 2, []float64{1, 2, 3, 4, 5, 6})

	labels, err := ValidateFitInput("Fit", X, mat.NewVecDense(3, []float64{1, 0, 1}))
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 0, 1}, labels)

	labels, err = ValidateFitInput("Fit", X, mat.NewDense(1, 3, []float64{0, 0, 1}))
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 0, 1}, labels)

	_, err = ValidateFitInput("Fit", X, mat.NewVecDense(2, []float64{1, 0}))
	var dimErr *errors.DimensionError
	assert.True(t, errors.As(err, &dimErr))
}

func TestUniqueSortedAndClassIndex(t *testing.T) {
	classes := UniqueSorted([]float64{1, 0, 1, 1, 0})
	assert.Equal(t, []float64{0, 1}, classes)
	assert.Equal(t, map[float64]int{0: 0, 1: 1}, ClassIndex(classes))
}
