// Package metrics は分類器の評価指標を提供する。
//
// 二値指標 (precision / recall / F1 / 混同行列) は常に明示的な陽性ラベルに
// 対して計算される。ラベルの暗黙の規約には依存しない。
package metrics

import (
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/YuminosukeSato/tumoreval/pkg/errors"
)

// Confusion は陽性ラベルに対する二値混同行列のカウント
type Confusion struct {
	PosLabel float64 `json:"positive_label" csv:"positive_label"`
	TP       int     `json:"tp" csv:"tp"`
	TN       int     `json:"tn" csv:"tn"`
	FP       int     `json:"fp" csv:"fp"`
	FN       int     `json:"fn" csv:"fn"`
}

// Total returns TP+TN+FP+FN, which always equals the number of samples.
func (c Confusion) Total() int {
	return c.TP + c.TN + c.FP + c.FN
}

// Accuracy returns (TP+TN)/total.
func (c Confusion) Accuracy() float64 {
	return errors.SafeDivide(float64(c.TP+c.TN), float64(c.Total()))
}

// Precision returns TP/(TP+FP), or 0 with an UndefinedMetricWarning when
// nothing was predicted positive.
func (c Confusion) Precision() float64 {
	if c.TP+c.FP == 0 {
		errors.Warn(errors.NewUndefinedMetricWarning("precision", "no predicted samples", 0))
		return 0
	}
	return float64(c.TP) / float64(c.TP+c.FP)
}

// Recall returns TP/(TP+FN), or 0 with an UndefinedMetricWarning when there
// are no true positive samples.
func (c Confusion) Recall() float64 {
	if c.TP+c.FN == 0 {
		errors.Warn(errors.NewUndefinedMetricWarning("recall", "no true samples", 0))
		return 0
	}
	return float64(c.TP) / float64(c.TP+c.FN)
}

// F1 returns the harmonic mean of precision and recall, 0 when both are 0.
func (c Confusion) F1() float64 {
	return f1(c.Precision(), c.Recall())
}

func f1(p, r float64) float64 {
	if p+r == 0 {
		errors.Warn(errors.NewUndefinedMetricWarning("f1", "precision and recall are both zero", 0))
		return 0
	}
	return errors.SafeDivide(2*p*r, p+r)
}

// Accuracy は正解率を計算する
func Accuracy(yTrue, yPred *mat.VecDense) (float64, error) {
	if err := checkPair("Accuracy", yTrue, yPred); err != nil {
		return 0, err
	}
	n := yTrue.Len()
	correct := 0
	for i := 0; i < n; i++ {
		if yTrue.AtVec(i) == yPred.AtVec(i) {
			correct++
		}
	}
	return float64(correct) / float64(n), nil
}

// ConfusionMatrix counts TP/TN/FP/FN treating posLabel as the positive class.
// Labels must be binary: more than two distinct values across yTrue and
// yPred is an error.
func ConfusionMatrix(yTrue, yPred *mat.VecDense, posLabel float64) (Confusion, error) {
	if err := checkPair("ConfusionMatrix", yTrue, yPred); err != nil {
		return Confusion{}, err
	}
	seen := make(map[float64]struct{}, 2)
	c := Confusion{PosLabel: posLabel}
	for i := 0; i < yTrue.Len(); i++ {
		t, p := yTrue.AtVec(i), yPred.AtVec(i)
		seen[t] = struct{}{}
		seen[p] = struct{}{}
		switch {
		case t == posLabel && p == posLabel:
			c.TP++
		case t == posLabel:
			c.FN++
		case p == posLabel:
			c.FP++
		default:
			c.TN++
		}
	}
	if len(seen) > 2 {
		return Confusion{}, errors.Wrapf(errors.ErrNotBinary, "ConfusionMatrix: found %d distinct labels", len(seen))
	}
	return c, nil
}

// PrecisionScore は陽性ラベルに対する適合率を計算する
func PrecisionScore(yTrue, yPred *mat.VecDense, posLabel float64) (float64, error) {
	c, err := ConfusionMatrix(yTrue, yPred, posLabel)
	if err != nil {
		return 0, err
	}
	return c.Precision(), nil
}

// RecallScore は陽性ラベルに対する再現率を計算する
func RecallScore(yTrue, yPred *mat.VecDense, posLabel float64) (float64, error) {
	c, err := ConfusionMatrix(yTrue, yPred, posLabel)
	if err != nil {
		return 0, err
	}
	return c.Recall(), nil
}

// F1Score は陽性ラベルに対するF1スコアを計算する
func F1Score(yTrue, yPred *mat.VecDense, posLabel float64) (float64, error) {
	c, err := ConfusionMatrix(yTrue, yPred, posLabel)
	if err != nil {
		return 0, err
	}
	return c.F1(), nil
}

// BinaryReport bundles every hold-out metric for one prediction vector.
type BinaryReport struct {
	Accuracy  float64   `json:"accuracy"`
	Precision float64   `json:"precision"`
	Recall    float64   `json:"recall"`
	F1        float64   `json:"f1"`
	Confusion Confusion `json:"confusion"`
}

// BinaryClassificationReport computes accuracy, precision, recall, F1 and the
// confusion counts in a single pass.
func BinaryClassificationReport(yTrue, yPred *mat.VecDense, posLabel float64) (BinaryReport, error) {
	c, err := ConfusionMatrix(yTrue, yPred, posLabel)
	if err != nil {
		return BinaryReport{}, err
	}
	p, r := c.Precision(), c.Recall()
	return BinaryReport{
		Accuracy:  c.Accuracy(),
		Precision: p,
		Recall:    r,
		F1:        f1(p, r),
		Confusion: c,
	}, nil
}

// MeanStd returns the arithmetic mean and the population standard deviation
// of scores, e.g. cross-validation fold accuracies.
func MeanStd(scores []float64) (mean, std float64) {
	if len(scores) == 0 {
		return 0, 0
	}
	return stat.PopMeanStdDev(scores, nil)
}

func checkPair(op string, yTrue, yPred *mat.VecDense) error {
	if yTrue == nil || yPred == nil || yTrue.Len() == 0 {
		return errors.NewValueError(op, "empty vector")
	}
	if yPred.Len() != yTrue.Len() {
		return errors.NewDimensionError(op, yTrue.Len(), yPred.Len(), 0)
	}
	return nil
}
