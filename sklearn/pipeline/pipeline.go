// Package pipeline chains a transformer in front of a classifier.
package pipeline

import (
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/tumoreval/core/model"
	"github.com/YuminosukeSato/tumoreval/pkg/errors"
)

// Pipeline fits the transformer on the training features and feeds the
// transformed features to the classifier, both at fit and predict time.
type Pipeline struct {
	transformer model.Transformer
	classifier  model.Classifier
}

// NewPipeline creates a two-step pipeline.
func NewPipeline(transformer model.Transformer, classifier model.Classifier) *Pipeline {
	return &Pipeline{transformer: transformer, classifier: classifier}
}

// Fit fits the transformer on X, then the classifier on the transformed X.
func (p *Pipeline) Fit(X, y mat.Matrix) error {
	Xt, err := p.transformer.FitTransform(X)
	if err != nil {
		return errors.Wrap(err, "Pipeline.Fit: transform")
	}
	if err := p.classifier.Fit(Xt, y); err != nil {
		return errors.Wrap(err, "Pipeline.Fit: classifier")
	}
	return nil
}

// Predict transforms X and returns the classifier's predictions.
func (p *Pipeline) Predict(X mat.Matrix) (mat.Matrix, error) {
	Xt, err := p.transform("Predict", X)
	if err != nil {
		return nil, err
	}
	return p.classifier.Predict(Xt)
}

// PredictProba transforms X and returns the classifier's probabilities.
func (p *Pipeline) PredictProba(X mat.Matrix) (mat.Matrix, error) {
	Xt, err := p.transform("PredictProba", X)
	if err != nil {
		return nil, err
	}
	return p.classifier.PredictProba(Xt)
}

func (p *Pipeline) transform(method string, X mat.Matrix) (mat.Matrix, error) {
	if !p.classifier.IsFitted() {
		return nil, errors.NewNotFittedError("Pipeline", method)
	}
	return p.transformer.Transform(X)
}

// Classes returns the classifier's classes.
func (p *Pipeline) Classes() []float64 {
	return p.classifier.Classes()
}

// IsFitted reports whether the final step has been fitted.
func (p *Pipeline) IsFitted() bool {
	return p.classifier.IsFitted()
}

// Reset resets both steps when they support it.
func (p *Pipeline) Reset() {
	type resetter interface{ Reset() }
	if r, ok := p.transformer.(resetter); ok {
		r.Reset()
	}
	if r, ok := p.classifier.(resetter); ok {
		r.Reset()
	}
}

// Steps returns the transformer and the classifier.
func (p *Pipeline) Steps() (model.Transformer, model.Classifier) {
	return p.transformer, p.classifier
}

// GetParams returns the classifier's parameters prefixed like scikit-learn's
// step__param naming, plus the transformer's when it exposes them.
func (p *Pipeline) GetParams() map[string]interface{} {
	out := map[string]interface{}{}
	if g, ok := p.transformer.(model.ParameterGetter); ok {
		for k, v := range g.GetParams() {
			out["scaler__"+k] = v
		}
	}
	if g, ok := p.classifier.(model.ParameterGetter); ok {
		for k, v := range g.GetParams() {
			out["classifier__"+k] = v
		}
	}
	return out
}
