package evaluation

import (
	"slices"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/tumoreval/core/model"
	"github.com/YuminosukeSato/tumoreval/dataset"
	"github.com/YuminosukeSato/tumoreval/pkg/errors"
	"github.com/YuminosukeSato/tumoreval/sklearn/model_selection"
)

// Builder returns a new, untrained classifier with fixed hyperparameters.
type Builder func() model.Classifier

// Variant is a named classifier configuration. It starts untrained; Train
// replaces any previous trained state with a model fitted on the given data.
type Variant struct {
	name     string
	params   map[string]interface{}
	build    Builder
	clf      model.Classifier
	features []string
}

// NewVariant wraps build under name. The hyperparameters are read once from
// a built instance when it exposes GetParams.
func NewVariant(name string, build Builder) *Variant {
	v := &Variant{name: name, build: build}
	if pg, ok := build().(model.ParameterGetter); ok {
		v.params = pg.GetParams()
	}
	return v
}

// Name returns the registry name.
func (v *Variant) Name() string { return v.name }

// Params returns a copy of the hyperparameters.
func (v *Variant) Params() map[string]interface{} {
	out := make(map[string]interface{}, len(v.params))
	for k, val := range v.params {
		out[k] = val
	}
	return out
}

// IsTrained reports whether Train has completed successfully.
func (v *Variant) IsTrained() bool {
	return v.clf != nil && v.clf.IsFitted()
}

// Train fits a new classifier on ds. On failure the variant is left
// untrained.
func (v *Variant) Train(ds *dataset.Dataset) error {
	v.Reset()
	clf := v.build()
	err := errors.SafeExecute(v.name+".Train", func() error {
		return clf.Fit(ds.X(), ds.Y())
	})
	if err != nil {
		return errors.Wrapf(err, "train %s", v.name)
	}
	v.clf = clf
	v.features = ds.FeatureNames()
	return nil
}

// Predict returns one label per sample of ds. The feature names of ds must
// equal those seen in Train, in the same order.
func (v *Variant) Predict(ds *dataset.Dataset) (*mat.VecDense, error) {
	if !v.IsTrained() {
		return nil, errors.NewNotFittedError(v.name, "Predict")
	}
	if got := ds.FeatureNames(); !slices.Equal(got, v.features) {
		return nil, errors.NewSchemaMismatchError(v.name, v.features, got)
	}

	var pred mat.Matrix
	err := errors.SafeExecute(v.name+".Predict", func() error {
		var perr error
		pred, perr = v.clf.Predict(ds.X())
		return perr
	})
	if err != nil {
		return nil, errors.Wrapf(err, "predict %s", v.name)
	}
	labels := model.LabelsOf(pred)
	return mat.NewVecDense(len(labels), labels), nil
}

// Reset returns the variant to the untrained state.
func (v *Variant) Reset() {
	v.clf = nil
	v.features = nil
}

// Fresh returns an independent untrained variant with the same name and
// configuration.
func (v *Variant) Fresh() *Variant {
	return &Variant{name: v.name, params: v.Params(), build: v.build}
}

// Factory exposes the builder for cross-validation.
func (v *Variant) Factory() model_selection.ClassifierFactory {
	return model_selection.ClassifierFactory(v.build)
}

type importancer interface {
	GetFeatureImportances() []float64
}

// FeatureImportances returns the trained model's impurity importances paired
// with feature names, or nil when the model has none.
func (v *Variant) FeatureImportances() []FeatureImportance {
	if !v.IsTrained() {
		return nil
	}
	imp, ok := v.clf.(importancer)
	if !ok {
		return nil
	}
	values := imp.GetFeatureImportances()
	if len(values) != len(v.features) {
		return nil
	}
	out := make([]FeatureImportance, len(values))
	for i, val := range values {
		out[i] = FeatureImportance{Feature: v.features[i], Importance: val}
	}
	return out
}
