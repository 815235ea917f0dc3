package model_selection

import (
	"context"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/tumoreval/core/model"
	"github.com/YuminosukeSato/tumoreval/metrics"
	"github.com/YuminosukeSato/tumoreval/pkg/errors"
	"github.com/YuminosukeSato/tumoreval/pkg/log"
)

// ClassifierFactory returns a new, untrained classifier. CrossValScore calls
// it once per fold so that no state is shared between folds.
type ClassifierFactory func() model.Classifier

// CrossValScore trains a fresh classifier on the training side of every fold
// and returns the accuracy on the held-out side, in fold order. The first
// failing fold aborts the run; the error names the fold.
func CrossValScore(ctx context.Context, factory ClassifierFactory, X, y mat.Matrix, cv *StratifiedKFold) ([]float64, error) {
	folds, err := cv.Split(y)
	if err != nil {
		return nil, err
	}
	rows, _ := X.Dims()
	if labels := model.LabelsOf(y); len(labels) != rows {
		return nil, errors.NewDimensionError("CrossValScore", rows, len(labels), 0)
	}

	logger := log.GetLoggerWithName("model_selection")
	scores := make([]float64, 0, len(folds))
	for _, fold := range folds {
		if err := ctx.Err(); err != nil {
			return nil, errors.Wrapf(err, "cross-validation cancelled before fold %d", fold.Index)
		}
		score, err := scoreFold(factory, X, y, fold)
		if err != nil {
			return nil, errors.Wrapf(err, "fold %d", fold.Index)
		}
		logger.Debug("fold scored",
			log.FoldKey, fold.Index,
			log.SamplesKey, len(fold.Test),
			log.AccuracyKey, score,
		)
		scores = append(scores, score)
	}
	return scores, nil
}

func scoreFold(factory ClassifierFactory, X, y mat.Matrix, fold Fold) (float64, error) {
	clf := factory()
	err := errors.SafeExecute("CrossValScore.Fit", func() error {
		return clf.Fit(SelectRows(X, fold.Train), SelectLabels(y, fold.Train))
	})
	if err != nil {
		return 0, err
	}

	var pred mat.Matrix
	err = errors.SafeExecute("CrossValScore.Predict", func() error {
		var perr error
		pred, perr = clf.Predict(SelectRows(X, fold.Test))
		return perr
	})
	if err != nil {
		return 0, err
	}
	return metrics.Accuracy(SelectLabels(y, fold.Test), mat.NewVecDense(len(fold.Test), model.LabelsOf(pred)))
}
