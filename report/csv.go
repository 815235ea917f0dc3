package report

import (
	"encoding/json"
	"io"

	"github.com/gocarina/gocsv"

	"github.com/YuminosukeSato/tumoreval/evaluation"
)

// ResultRecord is one CSV row of results.csv.
type ResultRecord struct {
	Variant       string  `csv:"variant"`
	PositiveLabel float64 `csv:"positive_label"`
	Accuracy      float64 `csv:"accuracy"`
	Precision     float64 `csv:"precision"`
	Recall        float64 `csv:"recall"`
	F1            float64 `csv:"f1"`
	TP            int     `csv:"tp"`
	TN            int     `csv:"tn"`
	FP            int     `csv:"fp"`
	FN            int     `csv:"fn"`
	CVMean        float64 `csv:"cv_mean"`
	CVStd         float64 `csv:"cv_std"`
}

// FoldRecord is one CSV row of folds.csv.
type FoldRecord struct {
	Variant  string  `csv:"variant"`
	Fold     int     `csv:"fold"`
	Accuracy float64 `csv:"accuracy"`
}

// ImportanceRecord is one CSV row of importances.csv.
type ImportanceRecord struct {
	Variant    string  `csv:"variant"`
	Feature    string  `csv:"feature"`
	Importance float64 `csv:"importance"`
}

// ResultRecords flattens rep into one record per variant.
func ResultRecords(rep *evaluation.Report) []*ResultRecord {
	out := make([]*ResultRecord, 0, len(rep.Results))
	for _, r := range rep.Results {
		out = append(out, &ResultRecord{
			Variant:       r.Variant,
			PositiveLabel: r.PositiveLabel,
			Accuracy:      r.Accuracy,
			Precision:     r.Precision,
			Recall:        r.Recall,
			F1:            r.F1,
			TP:            r.Confusion.TP,
			TN:            r.Confusion.TN,
			FP:            r.Confusion.FP,
			FN:            r.Confusion.FN,
			CVMean:        r.CVMean,
			CVStd:         r.CVStd,
		})
	}
	return out
}

// WriteResultsCSV writes one row per variant.
func WriteResultsCSV(w io.Writer, rep *evaluation.Report) error {
	return gocsv.Marshal(ResultRecords(rep), w)
}

// WriteFoldsCSV writes one row per variant and fold.
func WriteFoldsCSV(w io.Writer, rep *evaluation.Report) error {
	var records []*FoldRecord
	for _, r := range rep.Results {
		for k, acc := range r.FoldAccuracy {
			records = append(records, &FoldRecord{Variant: r.Variant, Fold: k, Accuracy: acc})
		}
	}
	return gocsv.Marshal(records, w)
}

// WriteImportancesCSV writes the feature importances of the variants that
// have them.
func WriteImportancesCSV(w io.Writer, rep *evaluation.Report) error {
	records := []*ImportanceRecord{}
	for _, r := range rep.Results {
		for _, fi := range r.Importances {
			records = append(records, &ImportanceRecord{Variant: r.Variant, Feature: fi.Feature, Importance: fi.Importance})
		}
	}
	return gocsv.Marshal(records, w)
}

// WriteJSON writes rep as indented JSON.
func WriteJSON(w io.Writer, rep *evaluation.Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(rep)
}
