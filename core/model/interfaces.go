// Package model defines the estimator contracts shared by the classifiers,
// transformers and samplers of tumoreval.
package model

import (
	"gonum.org/v1/gonum/mat"
)

// Fitter は学習可能なモデルのインターフェース
type Fitter interface {
	// Fit はモデルを訓練データで学習させる
	Fit(X, y mat.Matrix) error
}

// Predictor は予測可能なモデルのインターフェース
type Predictor interface {
	// Predict は入力データに対する予測を行う。戻り値は (n_samples, 1) の列ベクトル。
	Predict(X mat.Matrix) (mat.Matrix, error)
}

// Classifier combines the interfaces every classification model implements.
type Classifier interface {
	Fitter
	Predictor

	// PredictProba returns probability estimates, one column per class in
	// the order returned by Classes.
	PredictProba(X mat.Matrix) (mat.Matrix, error)

	// Classes returns the sorted distinct labels seen during fitting.
	Classes() []float64

	// IsFitted reports whether Fit has completed successfully.
	IsFitted() bool
}

// Transformer はデータ変換のインターフェース
type Transformer interface {
	Fit(X mat.Matrix) error
	Transform(X mat.Matrix) (mat.Matrix, error)
	FitTransform(X mat.Matrix) (mat.Matrix, error)
}

// Resampler changes the sample composition of a training set, e.g. by
// synthesising minority samples.
type Resampler interface {
	FitResample(X, y mat.Matrix) (*mat.Dense, *mat.VecDense, error)
}

// ParameterGetter is the interface for models that expose their parameters.
type ParameterGetter interface {
	// GetParams returns the model's hyperparameters.
	GetParams() map[string]interface{}
}

// ParameterSetter is the interface for models that allow parameter modification.
type ParameterSetter interface {
	// SetParams sets the model's hyperparameters.
	SetParams(params map[string]interface{}) error
}
