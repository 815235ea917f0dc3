package evaluation

import (
	"github.com/YuminosukeSato/tumoreval/metrics"
	"github.com/YuminosukeSato/tumoreval/pkg/errors"
)

// FeatureImportance is the normalized impurity decrease of one feature.
type FeatureImportance struct {
	Feature    string  `json:"feature" csv:"feature"`
	Importance float64 `json:"importance" csv:"importance"`
}

// Result holds the scores of one variant. Precision, recall and F1 are
// computed for PositiveLabel.
type Result struct {
	Variant       string                 `json:"variant"`
	PositiveLabel float64                `json:"positive_label"`
	Accuracy      float64                `json:"accuracy"`
	Precision     float64                `json:"precision"`
	Recall        float64                `json:"recall"`
	F1            float64                `json:"f1"`
	Confusion     metrics.Confusion      `json:"confusion"`
	FoldAccuracy  []float64              `json:"fold_accuracy"`
	CVMean        float64                `json:"cv_mean"`
	CVStd         float64                `json:"cv_std"`
	Importances   []FeatureImportance    `json:"feature_importances,omitempty"`
	Params        map[string]interface{} `json:"params,omitempty"`
}

func newResult(variant string, posLabel float64, rep metrics.BinaryReport, folds []float64) Result {
	mean, std := metrics.MeanStd(folds)
	return Result{
		Variant:       variant,
		PositiveLabel: posLabel,
		Accuracy:      rep.Accuracy,
		Precision:     rep.Precision,
		Recall:        rep.Recall,
		F1:            rep.F1,
		Confusion:     rep.Confusion,
		FoldAccuracy:  append([]float64(nil), folds...),
		CVMean:        mean,
		CVStd:         std,
	}
}

// Summary describes the data the results were computed on.
type Summary struct {
	Features      []string `json:"features"`
	ClassNames    []string `json:"class_names"`
	Seed          int64    `json:"seed"`
	Samples       int      `json:"samples"`
	TrainSamples  int      `json:"train_samples"`
	TestSamples   int      `json:"test_samples"`
	Balanced      int      `json:"balanced_samples"`
	Synthetic     int      `json:"synthetic_samples"`
	Folds         int      `json:"folds"`
	Interpolation string   `json:"interpolation,omitempty"`
}

// Report is the outcome of one evaluation run, one Result per variant in
// registry order.
type Report struct {
	PositiveLabel float64  `json:"positive_label"`
	Summary       Summary  `json:"summary"`
	Results       []Result `json:"results"`
}

// Assemble combines results that were all scored against the same positive
// label.
func Assemble(results []Result) (*Report, error) {
	if len(results) == 0 {
		return nil, errors.Wrap(errors.ErrEmptyData, "Assemble")
	}
	pos := results[0].PositiveLabel
	for _, r := range results[1:] {
		if r.PositiveLabel != pos {
			return nil, errors.NewLabelInconsistencyError(r.Variant, pos, r.PositiveLabel)
		}
	}
	out := make([]Result, len(results))
	copy(out, results)
	return &Report{PositiveLabel: pos, Results: out}, nil
}

// Get returns the result of the named variant.
func (r *Report) Get(variant string) (Result, bool) {
	for _, res := range r.Results {
		if res.Variant == variant {
			return res, true
		}
	}
	return Result{}, false
}

// Best returns the variant with the highest hold-out F1, breaking ties by
// cross-validation mean and then registry order. ok is false for an empty
// report.
func (r *Report) Best() (best Result, ok bool) {
	if len(r.Results) == 0 {
		return Result{}, false
	}
	best = r.Results[0]
	for _, res := range r.Results[1:] {
		if res.F1 > best.F1 || (res.F1 == best.F1 && res.CVMean > best.CVMean) {
			best = res
		}
	}
	return best, true
}

// ClassName returns the display name of label.
func (r *Report) ClassName(label float64) string {
	i := int(label)
	if float64(i) == label && i >= 0 && i < len(r.Summary.ClassNames) {
		return r.Summary.ClassNames[i]
	}
	return ""
}
