// Package report renders evaluation reports as tables, CSV, JSON and charts.
package report

import (
	"os"
	"path/filepath"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/tumoreval/evaluation"
	"github.com/YuminosukeSato/tumoreval/pkg/errors"
	"github.com/YuminosukeSato/tumoreval/pkg/log"
)

// Output formats accepted by WriteDir.
const (
	FormatTable = "table"
	FormatCSV   = "csv"
	FormatJSON  = "json"
	FormatPNG   = "png"
)

var diagnosisNames = map[string]string{
	"B": "Benign",
	"M": "Malignant",
}

// DisplayName expands a diagnosis code ("B", "M") to its clinical name.
// Unknown codes are returned unchanged.
func DisplayName(code string) string {
	if name, ok := diagnosisNames[code]; ok {
		return name
	}
	return code
}

// classLabels returns the display names of labels 0 and 1.
func classLabels(rep *evaluation.Report) [2]string {
	var out [2]string
	for i := range out {
		name := rep.ClassName(float64(i))
		if name == "" {
			name = []string{"0", "1"}[i]
		}
		out[i] = DisplayName(name)
	}
	return out
}

// ConfusionMatrix lays the counts of res out as a 2x2 matrix indexed
// [true label][predicted label] for labels 0 and 1.
func ConfusionMatrix(res evaluation.Result) *mat.Dense {
	c := res.Confusion
	pos := 0
	if c.PosLabel == 1 {
		pos = 1
	}
	neg := 1 - pos
	m := mat.NewDense(2, 2, nil)
	m.Set(pos, pos, float64(c.TP))
	m.Set(pos, neg, float64(c.FN))
	m.Set(neg, pos, float64(c.FP))
	m.Set(neg, neg, float64(c.TN))
	return m
}

// WriteDir writes rep to dir in each of formats and returns the created
// file paths.
func WriteDir(dir string, rep *evaluation.Report, formats []string) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrapf(err, "create report dir %s", dir)
	}
	logger := log.GetLoggerWithName("report")

	var written []string
	create := func(name string, write func(f *os.File) error) error {
		path := filepath.Join(dir, name)
		f, err := os.Create(path)
		if err != nil {
			return errors.Wrapf(err, "create %s", path)
		}
		if err := write(f); err != nil {
			f.Close()
			return errors.Wrapf(err, "write %s", path)
		}
		if err := f.Close(); err != nil {
			return errors.Wrapf(err, "close %s", path)
		}
		written = append(written, path)
		return nil
	}

	for _, format := range formats {
		var err error
		switch format {
		case FormatTable:
			err = create("summary.txt", func(f *os.File) error { return WriteTable(f, rep) })
		case FormatCSV:
			err = create("results.csv", func(f *os.File) error { return WriteResultsCSV(f, rep) })
			if err == nil {
				err = create("folds.csv", func(f *os.File) error { return WriteFoldsCSV(f, rep) })
			}
			if err == nil {
				err = create("importances.csv", func(f *os.File) error { return WriteImportancesCSV(f, rep) })
			}
		case FormatJSON:
			err = create("report.json", func(f *os.File) error { return WriteJSON(f, rep) })
		case FormatPNG:
			var paths []string
			paths, err = SaveCharts(dir, rep)
			written = append(written, paths...)
		default:
			err = errors.NewValidationError("report.formats", "unknown format", format)
		}
		if err != nil {
			return written, err
		}
	}

	logger.Info("report written", log.PhaseKey, log.PhaseReporting, "dir", dir, "files", len(written))
	return written, nil
}
