package metrics

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/tumoreval/pkg/errors"
)

func vec(v ...float64) *mat.VecDense {
	return mat.NewVecDense(len(v), v)
}

func TestAccuracy(t *testing.T) {
	tests := []struct {
		name    string
		yTrue   []float64
		yPred   []float64
		want    float64
		wantErr bool
	}{
		{
			name:  "Perfect accuracy",
			yTrue: []float64{0, 1, 1, 0},
			yPred: []float64{0, 1, 1, 0},
			want:  1.0,
		},
		{
			name:  "80% accuracy",
			yTrue: []float64{0, 1, 1, 1, 0},
			yPred: []float64{0, 1, 0, 1, 0},
			want:  0.8,
		},
		{
			name:  "Zero accuracy",
			yTrue: []float64{0, 0, 0},
			yPred: []float64{1, 1, 1},
			want:  0.0,
		},
		{
			name:    "Empty vectors",
			wantErr: true,
		},
		{
			name:    "Length mismatch",
			yTrue:   []float64{0, 1},
			yPred:   []float64{0},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var yTrue, yPred *mat.VecDense
			if len(tt.yTrue) > 0 {
				yTrue = vec(tt.yTrue...)
			}
			if len(tt.yPred) > 0 {
				yPred = vec(tt.yPred...)
			}

			got, err := Accuracy(yTrue, yPred)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-12)
		})
	}
}

func TestConfusionMatrixIdentities(t *testing.T) {
	yTrue := vec(0, 0, 0, 1, 1, 1, 1, 0, 1, 0)
	yPred := vec(0, 1, 0, 1, 0, 1, 1, 0, 0, 0)

	for _, pos := range []float64{0, 1} {
		c, err := ConfusionMatrix(yTrue, yPred, pos)
		require.NoError(t, err)

		assert.Equal(t, yTrue.Len(), c.Total())
		acc, err := Accuracy(yTrue, yPred)
		require.NoError(t, err)
		assert.InDelta(t, acc, c.Accuracy(), 1e-12)
		assert.Equal(t, pos, c.PosLabel)
	}

	c, err := ConfusionMatrix(yTrue, yPred, 1)
	require.NoError(t, err)
	assert.Equal(t, Confusion{PosLabel: 1, TP: 3, TN: 4, FP: 1, FN: 2}, c)

	// 陽性ラベルを入れ替えるとTP/TN, FP/FNが入れ替わる
	flipped, err := ConfusionMatrix(yTrue, yPred, 0)
	require.NoError(t, err)
	assert.Equal(t, c.TP, flipped.TN)
	assert.Equal(t, c.FP, flipped.FN)
}

func TestConfusionMatrixRejectsMulticlass(t *testing.T) {
	_, err := ConfusionMatrix(vec(0, 1, 2), vec(0, 1, 1), 1)
	assert.True(t, errors.Is(err, errors.ErrNotBinary))
}

func TestPrecisionRecallF1(t *testing.T) {
	yTrue := vec(1, 1, 1, 0, 0, 0)
	yPred := vec(1, 1, 0, 1, 0, 0)

	p, err := PrecisionScore(yTrue, yPred, 1)
	require.NoError(t, err)
	r, err := RecallScore(yTrue, yPred, 1)
	require.NoError(t, err)
	f, err := F1Score(yTrue, yPred, 1)
	require.NoError(t, err)

	assert.InDelta(t, 2.0/3.0, p, 1e-12)
	assert.InDelta(t, 2.0/3.0, r, 1e-12)
	assert.InDelta(t, 2*p*r/(p+r), f, 1e-12)
}

func TestUndefinedMetricsAreZero(t *testing.T) {
	var warnings []error
	errors.SetWarningHandler(func(w error) { warnings = append(warnings, w) })
	t.Cleanup(func() { errors.SetWarningHandler(func(error) {}) })

	// 陽性予測なし: precision = 0
	p, err := PrecisionScore(vec(1, 0, 1), vec(0, 0, 0), 1)
	require.NoError(t, err)
	assert.Equal(t, 0.0, p)

	// 真の陽性サンプルなし: recall = 0
	r, err := RecallScore(vec(0, 0, 0), vec(1, 0, 0), 1)
	require.NoError(t, err)
	assert.Equal(t, 0.0, r)

	// precision と recall がともに0: F1 = 0
	f, err := F1Score(vec(1, 1, 0), vec(0, 0, 1), 1)
	require.NoError(t, err)
	assert.Equal(t, 0.0, f)
	assert.False(t, math.IsNaN(f))

	require.NotEmpty(t, warnings)
	var undefined *errors.UndefinedMetricWarning
	assert.True(t, errors.As(warnings[0], &undefined))
	assert.Equal(t, "precision", undefined.Metric)
}

func TestBinaryClassificationReport(t *testing.T) {
	yTrue := vec(0, 0, 1, 1, 0, 1)
	yPred := vec(0, 1, 1, 1, 0, 0)

	rep, err := BinaryClassificationReport(yTrue, yPred, 0)
	require.NoError(t, err)

	assert.Equal(t, Confusion{PosLabel: 0, TP: 2, TN: 2, FP: 1, FN: 1}, rep.Confusion)
	assert.InDelta(t, 4.0/6.0, rep.Accuracy, 1e-12)
	assert.InDelta(t, 2.0/3.0, rep.Precision, 1e-12)
	assert.InDelta(t, 2.0/3.0, rep.Recall, 1e-12)
	assert.InDelta(t, 2.0/3.0, rep.F1, 1e-12)
}

func TestMeanStd(t *testing.T) {
	mean, std := MeanStd([]float64{0.9, 1.0, 0.8, 1.0, 0.8})
	assert.InDelta(t, 0.9, mean, 1e-12)
	assert.InDelta(t, math.Sqrt(0.008), std, 1e-12)

	mean, std = MeanStd(nil)
	assert.Zero(t, mean)
	assert.Zero(t, std)
}

func BenchmarkBinaryClassificationReport(b *testing.B) {
	n := 1000
	yTrue := mat.NewVecDense(n, nil)
	yPred := mat.NewVecDense(n, nil)
	for i := 0; i < n; i++ {
		yTrue.SetVec(i, float64(i%2))
		yPred.SetVec(i, float64((i/3)%2))
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = BinaryClassificationReport(yTrue, yPred, 1)
	}
}

func TestEmptyConfusionAccuracy(t *testing.T) {
	assert.Equal(t, 0.0, Confusion{}.Accuracy())
	assert.InDelta(t, 0.75, Confusion{TP: 2, TN: 1, FP: 1}.Accuracy(), 1e-12)
}
