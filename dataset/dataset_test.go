package dataset

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/hashicorp/go-multierror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/tumoreval/pkg/errors"
	"github.com/YuminosukeSato/tumoreval/sklearn/model_selection"
)

const wdbcHeader = "id,diagnosis,radius_mean,texture_mean,perimeter_mean,area_mean,concave points_mean,symmetry_mean\n"

func TestReadCSV(t *testing.T) {
	input := wdbcHeader +
		"842302,M,17.99,10.38,122.8,1001,0.1471,0.2419\n" +
		"842517,M,20.57,17.77,132.9,1326,0.07017,0.1812\n" +
		"8510426,B,13.54,14.36,87.46,566.3,0.04781,0.1885\n" +
		"8510426,B,13.54,14.36,87.46,566.3,0.04781,0.1885\n" +
		"8510653,B,13.08,15.71,85.63,520,0.0311,0.1967\n"

	ds, err := ReadCSV(strings.NewReader(input))
	require.NoError(t, err)

	assert.Equal(t, 4, ds.Len(), "duplicate row should be dropped")
	assert.Equal(t, DefaultFeatures, ds.FeatureNames())
	assert.Equal(t, []string{"B", "M"}, ds.ClassNames())
	assert.Equal(t, []float64{Malignant, Malignant, Benign, Benign}, ds.Labels())

	// 列順は radius, concave points, perimeter, area
	assert.Equal(t, []float64{17.99, 0.1471, 122.8, 1001}, mat.Row(nil, 0, ds.X()))
	assert.Equal(t, "M", ds.ClassName(Malignant))
	assert.Equal(t, "7", ds.ClassName(7))
}

func TestReadCSVAggregatesProblems(t *testing.T) {
	input := wdbcHeader +
		"1,M,17.99,10.38,,1001,0.1471,0.2419\n" +
		"2,B,13.54,14.36,87.46,566.3,0.04781,0.1885\n" +
		"3,,13.08,15.71,85.63,520,0.0311,0.1967\n" +
		"4,B,abc,15.71,85.63,NA,0.0311,0.1967\n"

	_, err := ReadCSV(strings.NewReader(input))
	require.Error(t, err)

	var merr *multierror.Error
	require.True(t, errors.As(err, &merr))
	assert.Len(t, merr.Errors, 3)

	msg := err.Error()
	assert.Contains(t, msg, "line 2")
	assert.Contains(t, msg, "perimeter_mean")
	assert.Contains(t, msg, "line 4: missing diagnosis")
	assert.Contains(t, msg, "line 5")
	assert.Contains(t, msg, "radius_mean")
	assert.Contains(t, msg, "area_mean")
}

func TestReadCSVEmpty(t *testing.T) {
	_, err := ReadCSV(strings.NewReader(wdbcHeader))
	require.Error(t, err)
}

func TestReadCSVDiagnosisValues(t *testing.T) {
	for name, rows := range map[string]string{
		"three": "1,M,17.99,10.38,122.8,1001,0.1471,0.2419\n" +
			"2,B,13.54,14.36,87.46,566.3,0.04781,0.1885\n" +
			"3,X,13.08,15.71,85.63,520,0.0311,0.1967\n",
		"one": "1,B,17.99,10.38,122.8,1001,0.1471,0.2419\n" +
			"2,B,13.54,14.36,87.46,566.3,0.04781,0.1885\n",
	} {
		_, err := ReadCSV(strings.NewReader(wdbcHeader + rows))
		var verr *errors.ValidationError
		require.True(t, errors.As(err, &verr), name)
		assert.Equal(t, "diagnosis", verr.ParamName, name)
	}
}

func TestLoadCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.csv")
	require.NoError(t, os.WriteFile(path, []byte(wdbcHeader+
		"1,M,17.99,10.38,122.8,1001,0.1471,0.2419\n"+
		"2,B,13.54,14.36,87.46,566.3,0.04781,0.1885\n"), 0o600))

	ds, err := LoadCSV(path)
	require.NoError(t, err)
	assert.Equal(t, 2, ds.Len())

	_, err = LoadCSV(filepath.Join(t.TempDir(), "missing.csv"))
	assert.Error(t, err)
}

func TestNewValidation(t *testing.T) {
	X := mat.NewDense(2, 2, []float64{1, 2, 3, 4})

	_, err := New([]string{"a"}, X, mat.NewVecDense(2, nil))
	assert.Error(t, err)

	_, err = New([]string{"a", "b"}, X, mat.NewVecDense(3, nil))
	assert.Error(t, err)

	_, err = New([]string{"a", "a"}, X, mat.NewVecDense(2, nil))
	assert.Error(t, err)
}

func TestDatasetIsImmutable(t *testing.T) {
	X := mat.NewDense(3, 2, []float64{1, 2, 3, 4, 5, 6})
	y := mat.NewVecDense(3, []float64{0, 1, 0})
	ds, err := New([]string{"a", "b"}, X, y)
	require.NoError(t, err)

	X.Set(0, 0, 100)
	y.SetVec(0, 1)
	assert.Equal(t, 1.0, ds.X().At(0, 0))
	assert.Equal(t, 0.0, ds.Y().AtVec(0))

	names := ds.FeatureNames()
	names[0] = "z"
	assert.Equal(t, []string{"a", "b"}, ds.FeatureNames())
}

func TestSubsetAndSelect(t *testing.T) {
	X := mat.NewDense(4, 3, []float64{
		1, 2, 3,
		4, 5, 6,
		7, 8, 9,
		10, 11, 12,
	})
	ds, err := New([]string{"a", "b", "c"}, X, mat.NewVecDense(4, []float64{0, 1, 0, 1}))
	require.NoError(t, err)

	sub, err := ds.Subset([]int{3, 0})
	require.NoError(t, err)
	assert.Equal(t, 2, sub.Len())
	assert.Equal(t, []float64{10, 11, 12}, mat.Row(nil, 0, sub.X()))
	assert.Equal(t, []float64{1, 0}, sub.Labels())

	_, err = ds.Subset([]int{4})
	assert.Error(t, err)
	_, err = ds.Subset(nil)
	assert.Error(t, err)

	sel, err := ds.Select("c", "a")
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "a"}, sel.FeatureNames())
	assert.Equal(t, []float64{6, 4}, mat.Row(nil, 1, sel.X()))

	_, err = ds.Select("d")
	var schemaErr *errors.SchemaMismatchError
	assert.True(t, errors.As(err, &schemaErr))
}

func balancedDataset(t *testing.T, n0, n1 int) *Dataset {
	t.Helper()
	n := n0 + n1
	X := mat.NewDense(n, 2, nil)
	y := mat.NewVecDense(n, nil)
	for i := 0; i < n; i++ {
		X.Set(i, 0, float64(i))
		X.Set(i, 1, float64(i%7))
		if i >= n0 {
			y.SetVec(i, 1)
		}
	}
	ds, err := New([]string{"f0", "f1"}, X, y, WithClassNames("B", "M"))
	require.NoError(t, err)
	return ds
}

func TestHoldOutPartition(t *testing.T) {
	ds := balancedDataset(t, 70, 30)

	p, err := HoldOut(ds, 0.2, 42)
	require.NoError(t, err)
	assert.Equal(t, []string{TrainName, TestName}, p.Names())

	train, ok := p.Get(TrainName)
	require.True(t, ok)
	test, ok := p.Get(TestName)
	require.True(t, ok)
	assert.Equal(t, 80, train.Len())
	assert.Equal(t, 20, test.Len())
	assert.Equal(t, map[float64]int{0: 14, 1: 6}, test.ClassCounts())
	assert.Equal(t, []string{"B", "M"}, train.ClassNames())

	// 互いに素で和集合が元データ
	all := append(p.Indices(TrainName), p.Indices(TestName)...)
	sort.Ints(all)
	for i, v := range all {
		assert.Equal(t, i, v)
	}

	_, ok = p.Get("fold_0")
	assert.False(t, ok)

	_, err = HoldOut(ds, 1.5, 42)
	var splitErr *errors.InvalidSplitParameterError
	assert.True(t, errors.As(err, &splitErr))
}

func TestFoldsPartition(t *testing.T) {
	ds := balancedDataset(t, 56, 56)

	p, err := Folds(ds, model_selection.NewStratifiedKFold(5, true, 42))
	require.NoError(t, err)
	require.Len(t, p.Names(), 5)

	seen := make(map[int]bool)
	for k, name := range p.Names() {
		assert.Equal(t, FoldName(k), name)
		fold, _ := p.Get(name)
		assert.GreaterOrEqual(t, fold.Len(), 22)
		assert.LessOrEqual(t, fold.Len(), 23)
		idx := p.Indices(name)
		assert.True(t, sort.IntsAreSorted(idx))
		for _, i := range idx {
			assert.False(t, seen[i], "sample %d in two folds", i)
			seen[i] = true
		}
	}
	assert.Len(t, seen, 112)
}

func TestDescribe(t *testing.T) {
	X := mat.NewDense(5, 2, []float64{
		1, 10,
		3, 20,
		5, 30,
		2, 5,
		4, 15,
	})
	ds, err := New([]string{"radius", "area"}, X, mat.NewVecDense(5, []float64{0, 0, 0, 1, 1}), WithClassNames("B", "M"))
	require.NoError(t, err)

	s := Describe(ds)
	assert.Equal(t, 5, s.Samples)
	assert.Equal(t, []ClassCount{{Label: 0, Name: "B", Count: 3}, {Label: 1, Name: "M", Count: 2}}, s.Classes)
	require.Len(t, s.Features, 4)

	radiusB := s.Features[0]
	assert.Equal(t, "radius", radiusB.Feature)
	assert.Equal(t, "B", radiusB.Class)
	assert.InDelta(t, 3.0, radiusB.Mean, 1e-12)
	assert.InDelta(t, 2.0, radiusB.Std, 1e-12)
	assert.Equal(t, 1.0, radiusB.Min)
	assert.Equal(t, 5.0, radiusB.Max)

	require.NotNil(t, s.Correlation)
	assert.InDelta(t, 1.0, s.Correlation.At(0, 0), 1e-12)
	assert.Greater(t, s.Correlation.At(0, 1), 0.5)
}
